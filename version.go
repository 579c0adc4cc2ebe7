// Package taskmaster is a workflow automation engine: named actions are
// assembled into a dependency graph, triggers launch executions, and a runner
// drives each graph to completion while threading a shared context between
// actions
package taskmaster

const (
	// Name is the service name reported in logs
	Name = "taskmaster"

	// Version is the current release of the engine
	Version = "0.1.0"
)
