package api

type (
	// Status represents the lifecycle state of an action within one run
	Status string

	// ActionStatus summarizes a single action's outcome
	ActionStatus struct {
		Name     string `json:"name"`
		Status   Status `json:"status"`
		Error    string `json:"error_message,omitempty"`
		HasError bool   `json:"has_error"`
	}

	// WorkflowStatus is a point-in-time snapshot of a registered workflow
	WorkflowStatus struct {
		Actions      map[ActionID]ActionStatus `json:"actions"`
		ID           WorkflowID                `json:"id"`
		Name         string                    `json:"name"`
		Description  string                    `json:"description,omitempty"`
		TriggerCount int                       `json:"trigger_count"`
		ActionCount  int                       `json:"action_count"`
		IsActive     bool                      `json:"is_active"`
		IsRunning    bool                      `json:"is_running"`
	}
)

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// IsTerminal reports whether no further transitions happen in this run
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Failed returns the ids of actions that ended the last run in failure
func (s *WorkflowStatus) Failed() []ActionID {
	var res []ActionID
	for id, a := range s.Actions {
		if a.Status == StatusFailed {
			res = append(res, id)
		}
	}
	return res
}
