package model

import (
	"time"

	"github.com/google/uuid"
)

// ExamStatus enumerates the possible states of an exam.
type ExamStatus string

const (
	ExamStatusDraft     ExamStatus = "DRAFT"
	ExamStatusPublished ExamStatus = "PUBLISHED"
	ExamStatusArchived  ExamStatus = "ARCHIVED"
)

// DefaultWinPercentage is the pass threshold used when an exam does not set one.
const DefaultWinPercentage = 50

// Exam represents an exam entity. TimeLimitMinutes is nil for untimed exams,
// in which case attempts run a count-up clock instead of a countdown.
type Exam struct {
	ID               uuid.UUID  `json:"id"`
	Title            string     `json:"title"`
	Description      string     `json:"description"`
	AuthorID         int        `json:"author_id"`
	TimeLimitMinutes *int       `json:"time_limit_minutes,omitempty"`
	WinPercentage    float64    `json:"win_percentage"`
	Status           ExamStatus `json:"status"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`

	// Questions is populated only when the full paper is loaded
	// (publish-time caching and attempt starts).
	Questions []Question `json:"questions,omitempty"`
}

// CreateExamRequest is the payload for creating a new exam.
type CreateExamRequest struct {
	Title            string  `json:"title" binding:"required,min=3,max=255"`
	Description      string  `json:"description" binding:"omitempty,max=2000"`
	TimeLimitMinutes *int    `json:"time_limit_minutes" binding:"omitempty,min=1,max=480"`
	WinPercentage    float64 `json:"win_percentage" binding:"omitempty,gt=0,lte=100"`
}

// UpdateExamRequest is the payload for updating an existing draft exam.
type UpdateExamRequest struct {
	Title            string   `json:"title" binding:"omitempty,min=3,max=255"`
	Description      *string  `json:"description" binding:"omitempty,max=2000"`
	TimeLimitMinutes *int     `json:"time_limit_minutes" binding:"omitempty,min=1,max=480"`
	WinPercentage    *float64 `json:"win_percentage" binding:"omitempty,gt=0,lte=100"`
}
