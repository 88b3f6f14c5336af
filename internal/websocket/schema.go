package websocket

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionSelect           Action = "select"
	ActionToggle           Action = "toggle"
	ActionSetText          Action = "set_text"
	ActionSetNotes         Action = "set_notes"
	ActionSetUnsure        Action = "set_unsure"
	ActionSetAnnotator     Action = "set_annotator"
	ActionSetUnfilledStart Action = "set_unfilled_start"
	ActionSetUnfilledScope Action = "set_unfilled_scope"
	ActionSetAutoSubmit    Action = "set_auto_submit"
	ActionKey              Action = "key"
	ActionSubmit           Action = "submit"
	ActionPing             Action = "ping"
)

// EventRequest carries one page event. Fields beyond Action are read per
// action: choice actions use Label and Choice, value actions use Value or On,
// keyboard events use Key and Focus.
type EventRequest struct {
	Action Action `json:"action"`
	Label  string `json:"label,omitempty"`
	Choice string `json:"choice,omitempty"`
	Value  string `json:"value,omitempty"`
	On     bool   `json:"on,omitempty"`
	Key    string `json:"key,omitempty"`
	Focus  string `json:"focus,omitempty"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventState     Event = "state"
	EventSubmitted Event = "submitted"
	EventError     Event = "error"
	EventPong      Event = "pong"
)

// StateResponse echoes the engine state after an applied event. Outcome is
// present only when the event completed a submission.
type StateResponse struct {
	Event    Event       `json:"event"`
	Snapshot interface{} `json:"snapshot"`
	Outcome  interface{} `json:"outcome,omitempty"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
