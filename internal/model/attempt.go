package model

import (
	"time"

	"github.com/google/uuid"
)

// TagStat aggregates per-tag performance within one attempt.
type TagStat struct {
	Correct int `json:"correct"`
	Total   int `json:"total"`
}

// AttemptResult is the history record emitted when an attempt is submitted.
// AttemptID doubles as the idempotency key: the persistence layer inserts
// with ON CONFLICT DO NOTHING so a replayed emission never double-counts.
type AttemptResult struct {
	AttemptID        uuid.UUID          `json:"attempt_id"`
	UserID           int                `json:"user_id"`
	ExamID           uuid.UUID          `json:"exam_id"`
	ExamTitle        string             `json:"exam_title"`
	Score            int                `json:"score"`
	TotalQuestions   int                `json:"total_questions"`
	Passed           bool               `json:"passed"`
	WinPercentage    float64            `json:"win_percentage"`
	TimeTakenSeconds int                `json:"time_taken_seconds"`
	TagBreakdown     map[string]TagStat `json:"tag_breakdown,omitempty"`
	SharedBy         string             `json:"shared_by,omitempty"`
	TakenAt          time.Time          `json:"taken_at"`
}

// StartAttemptRequest is the payload for opening a new attempt.
type StartAttemptRequest struct {
	ExamID string `json:"exam_id" binding:"required,uuid"`
}

// GotoQuestionRequest moves an attempt to a question index.
type GotoQuestionRequest struct {
	Index int `json:"index" binding:"min=0"`
}

// SelectAnswerRequest records an option for the current question.
type SelectAnswerRequest struct {
	Option string `json:"option" binding:"required,max=500"`
}
