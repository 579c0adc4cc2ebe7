package api

type (
	// RunResponse is returned by the HTTP API after a synchronous run
	RunResponse struct {
		Context map[string]any  `json:"context"`
		Status  *WorkflowStatus `json:"status"`
		Error   string          `json:"error,omitempty"`
	}

	// RegisterResponse is returned after a workflow document is registered
	RegisterResponse struct {
		ID   WorkflowID `json:"id"`
		Name string     `json:"name"`
	}

	// WebhookResponse acknowledges a delivered webhook
	WebhookResponse struct {
		Status     string `json:"status"`
		Message    string `json:"message"`
		EndpointID string `json:"endpoint_id"`
	}

	// ErrorResponse contains error details for failed requests
	ErrorResponse struct {
		Error  string `json:"error"`
		Status int    `json:"status,omitempty"`
	}
)

type (
	// SubscribeRequest is sent by websocket clients to narrow the events
	// they receive
	SubscribeRequest struct {
		Type string             `json:"type"`
		Data ClientSubscription `json:"data"`
	}

	// ClientSubscription configures which events a websocket client
	// receives. Empty fields match everything
	ClientSubscription struct {
		WorkflowIDs []WorkflowID `json:"workflow_ids,omitempty"`
		EventTypes  []EventType  `json:"event_types,omitempty"`
	}

	// HealthResponse is returned by the health endpoint
	HealthResponse struct {
		Status    string `json:"status"`
		Workflows int    `json:"workflows"`
		Active    int    `json:"active"`
	}
)
