package api

type (
	// StepResponse describes a rendered wizard step, mirroring the template
	// context handed to HTML rendering
	StepResponse struct {
		Wizard string         `json:"wizard"`
		Step   Name           `json:"step"`
		First  Name           `json:"first_step"`
		Last   Name           `json:"last_step"`
		Prev   Name           `json:"prev_step,omitempty"`
		Next   Name           `json:"next_step,omitempty"`
		Index  int            `json:"step_index"`
		Index1 int            `json:"step_index1"`
		Count  int            `json:"step_count"`
		Data   RawValues      `json:"data,omitempty"`
		Errors FieldErrors    `json:"errors,omitempty"`
		Extra  map[string]any `json:"extra,omitempty"`
	}

	// ProgressResponse summarizes how far a session has advanced
	ProgressResponse struct {
		Wizard  string `json:"wizard"`
		Current Name   `json:"current"`
		Steps   []Name `json:"steps"`
		Index   int    `json:"step_index"`
		Count   int    `json:"step_count"`
	}

	// CompletedResponse is returned when the completion gate passes
	CompletedResponse struct {
		Message string `json:"message"`
		Wizard  string `json:"wizard"`
		Data    Values `json:"data,omitempty"`
	}

	// HealthResponse provides service health information
	HealthResponse struct {
		Service string `json:"service"`
		Status  string `json:"status"`
		Wizards int    `json:"wizards"`
	}

	// MessageResponse contains a simple message string
	MessageResponse struct {
		Message string `json:"message"`
	}

	// ErrorResponse contains error details for failed requests
	ErrorResponse struct {
		Error  string `json:"error"`
		Status int    `json:"status,omitempty"`
	}

	// ClientSubscription filters the websocket event stream
	ClientSubscription struct {
		Wizard     string   `json:"wizard,omitempty"`
		EventTypes []string `json:"event_types,omitempty"`
	}

	// SubscribeRequest is the inbound websocket subscription message
	SubscribeRequest struct {
		Type string             `json:"type"`
		Data ClientSubscription `json:"data"`
	}

	// WebSocketEvent is the outbound websocket event envelope
	WebSocketEvent struct {
		Type      string `json:"type"`
		Wizard    string `json:"wizard"`
		Session   string `json:"session"`
		Step      Name   `json:"step,omitempty"`
		Timestamp int64  `json:"timestamp"`
	}
)
