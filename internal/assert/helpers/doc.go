// Package helpers provides fixtures shared by the package tests: recording
// executors, an in-memory Redis, and polling helpers
package helpers
