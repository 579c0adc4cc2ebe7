package api

import "github.com/google/uuid"

type (
	// WorkflowID is a unique identifier for a workflow
	WorkflowID string

	// ActionID is a unique identifier for an action
	ActionID string

	// TriggerID is a unique identifier for a trigger
	TriggerID string
)

const shortIDLen = 8

// NewWorkflowID returns a fresh random workflow identifier
func NewWorkflowID() WorkflowID {
	return WorkflowID(uuid.NewString())
}

// NewActionID returns a fresh random action identifier
func NewActionID() ActionID {
	return ActionID(uuid.NewString())
}

// NewTriggerID returns a fresh random trigger identifier
func NewTriggerID() TriggerID {
	return TriggerID(uuid.NewString())
}

// ShortID returns the leading characters of an identifier, used to build
// default names
func ShortID[T ~string](id T) string {
	s := string(id)
	if len(s) <= shortIDLen {
		return s
	}
	return s[:shortIDLen]
}
