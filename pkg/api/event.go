package api

import "time"

type (
	// EventData carries the payload of a trigger firing
	EventData map[string]any

	// EventType names a runner or workflow lifecycle event
	EventType string

	// Event is published by workflows and the runner as execution progresses
	Event struct {
		Timestamp  time.Time  `json:"timestamp"`
		Type       EventType  `json:"type"`
		WorkflowID WorkflowID `json:"workflow_id"`
		ActionID   ActionID   `json:"action_id,omitempty"`
		Status     Status     `json:"status,omitempty"`
		Error      string     `json:"error,omitempty"`
	}
)

// EventDataKey is the reserved context key seeded with the data of the event
// that launched a run
const EventDataKey = "event_data"

const (
	EventTypeWorkflowRegistered   EventType = "workflow_registered"
	EventTypeWorkflowUnregistered EventType = "workflow_unregistered"
	EventTypeWorkflowActivated    EventType = "workflow_activated"
	EventTypeWorkflowDeactivated  EventType = "workflow_deactivated"
	EventTypeRunStarted           EventType = "run_started"
	EventTypeRunSkipped           EventType = "run_skipped"
	EventTypeRunCompleted         EventType = "run_completed"
	EventTypeActionCompleted      EventType = "action_completed"
	EventTypeActionFailed         EventType = "action_failed"
)

// Clone returns a shallow copy of the event data, never nil
func (d EventData) Clone() EventData {
	res := make(EventData, len(d))
	for k, v := range d {
		res[k] = v
	}
	return res
}
