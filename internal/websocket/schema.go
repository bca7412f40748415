package websocket

import "time"

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionAutosave Action = "autosave"
	ActionSubmit   Action = "submit"
	ActionPing     Action = "ping"
)

// RequestPayload carries every client action; unused fields stay empty.
type RequestPayload struct {
	Action Action `json:"action"`
	Index  *int   `json:"index,omitempty"` // autosave only
	Value  string `json:"value,omitempty"` // autosave only
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventTick    Event = "tick"
	EventWarning Event = "warning"
	EventSaved   Event = "saved"
	EventGraded  Event = "graded"
	EventError   Event = "error"
	EventPong    Event = "pong"
)

// TickResponse is pushed every second while the session runs.
type TickResponse struct {
	Event            Event  `json:"event"`
	RemainingSeconds int    `json:"remaining_seconds"`
	Status           string `json:"status"`
}

// WarningResponse pushes one integrity warning as it is raised.
type WarningResponse struct {
	Event     Event     `json:"event"`
	Kind      string    `json:"kind"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// SavedResponse acknowledges an autosave.
type SavedResponse struct {
	Event Event `json:"event"`
	Index int   `json:"index"`
}

// GradedResponse announces the terminal result.
type GradedResponse struct {
	Event Event   `json:"event"`
	Score float64 `json:"score"`
}

// ErrorResponse reports a failed action.
type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

// PongResponse answers a ping.
type PongResponse struct {
	Event Event `json:"event"`
}
