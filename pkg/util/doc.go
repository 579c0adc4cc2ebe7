// Package util provides common utility functions and data structures
//
// This package includes generic set implementations, state transition tables
// and a hierarchical path index used throughout the workflow engine
package util
