package websocket

import "github.com/quizdeck/quizdeck-backend/internal/session"

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionGoto   Action = "goto"
	ActionAnswer Action = "answer"
	ActionMark   Action = "mark"
	ActionSubmit Action = "submit"
	ActionPing   Action = "ping"
)

// RequestEnvelope is used to peek at the action before full parsing.
type RequestEnvelope struct {
	Action Action `json:"action"`
}

// GotoRequest moves the attempt to a question index.
type GotoRequest struct {
	Action Action `json:"action"`
	Index  int    `json:"index"`
}

// AnswerRequest records an option for the current question.
type AnswerRequest struct {
	Action Action `json:"action"`
	Option string `json:"option"`
}

// MarkRequest toggles the review flag on the current question.
type MarkRequest struct {
	Action Action `json:"action"`
}

// SubmitRequest finishes and grades the attempt.
type SubmitRequest struct {
	Action Action `json:"action"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventState  Event = "state"
	EventGraded Event = "graded"
	EventError  Event = "error"
	EventPong   Event = "pong"
)

// StateResponse carries a full attempt snapshot after every action.
type StateResponse struct {
	Event Event         `json:"event"`
	State session.State `json:"state"`
}

// GradedResponse announces the final result once the attempt is submitted,
// whether by the client or by the countdown.
type GradedResponse struct {
	Event  Event           `json:"event"`
	Result *session.Result `json:"result"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
