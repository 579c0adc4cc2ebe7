// Package workflow implements actions, the shared run context, and the
// round-based scheduler that walks a workflow's dependency graph
//
// A Workflow owns a set of Actions connected by dependency edges, a set of
// Triggers that launch runs, and a Context that threads results between
// actions. Each run resets every action to pending, then repeatedly executes
// the actions whose dependencies have all completed until no further
// progress is possible
package workflow
