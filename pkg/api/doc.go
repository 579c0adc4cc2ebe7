// Package api defines the core data types shared across the workflow engine
//
// This package contains identifiers, action status values, option maps for
// actions and triggers, status summaries, runner events, and HTTP messages
package api
