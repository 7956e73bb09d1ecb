package model

import (
	"github.com/google/uuid"
)

// Question represents a single multiple-choice exam question.
// Correctness is always determined by comparing the chosen option text
// against CorrectAnswer — never by option position — so option order can
// be shuffled freely per attempt.
type Question struct {
	ID            uuid.UUID `json:"id"`
	ExamID        uuid.UUID `json:"exam_id"`
	QuestionText  string    `json:"question_text"`
	Options       []string  `json:"options"`
	CorrectAnswer string    `json:"correct_answer"`
	Tag           string    `json:"tag,omitempty"`
	OrderNum      int       `json:"order_num"`
}

// AddQuestionRequest is the payload for adding a question to an exam.
type AddQuestionRequest struct {
	QuestionText  string   `json:"question_text" binding:"required,min=1,max=2000"`
	Options       []string `json:"options" binding:"required,len=4,unique,dive,required,max=500"`
	CorrectAnswer string   `json:"correct_answer" binding:"required,max=500"`
	Tag           string   `json:"tag" binding:"omitempty,max=100"`
	OrderNum      int      `json:"order_num" binding:"min=0"`
}

// ReplaceQuestionsRequest is the payload for bulk replacing an exam's questions.
type ReplaceQuestionsRequest struct {
	Questions []AddQuestionRequest `json:"questions" binding:"dive"`
}
