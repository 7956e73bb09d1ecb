package session

import "github.com/google/uuid"

// QuestionView is the taker-facing projection of a question. It never
// carries the correct answer.
type QuestionView struct {
	QuestionText string   `json:"question_text"`
	Options      []string `json:"options"`
	Selected     string   `json:"selected,omitempty"`
	Marked       bool     `json:"marked"`
}

// State is a rendering snapshot of the attempt, safe to send to the client.
type State struct {
	AttemptID      uuid.UUID    `json:"attempt_id"`
	ExamID         uuid.UUID    `json:"exam_id"`
	ExamTitle      string       `json:"exam_title"`
	CurrentIndex   int          `json:"current_index"`
	TotalQuestions int          `json:"total_questions"`
	Question       QuestionView `json:"question"`
	Statuses       []Status     `json:"statuses"`
	Countdown      bool         `json:"countdown"`
	Seconds        int          `json:"seconds"`
	Submitted      bool         `json:"submitted"`
	Result         *Result      `json:"result,omitempty"`
}

// Snapshot captures the current attempt state for rendering. The navigator
// statuses follow the precedence current > marked > answered > visited >
// unvisited.
func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	q := s.questions[s.current]
	statuses := make([]Status, len(s.questions))
	for i := range s.questions {
		statuses[i] = s.statusLocked(i)
	}

	return State{
		AttemptID:      s.attemptID,
		ExamID:         s.exam.ID,
		ExamTitle:      s.exam.Title,
		CurrentIndex:   s.current,
		TotalQuestions: len(s.questions),
		Question: QuestionView{
			QuestionText: q.QuestionText,
			Options:      append([]string(nil), q.Options...),
			Selected:     s.answers[s.current],
			Marked:       s.marked[s.current],
		},
		Statuses:  statuses,
		Countdown: s.countdown,
		Seconds:   s.seconds,
		Submitted: s.submitted,
		Result:    s.result,
	}
}

// Questions returns a copy of the shuffled questions without correct
// answers, for clients that render the full paper at once.
func (s *Session) Questions() []QuestionView {
	s.mu.Lock()
	defer s.mu.Unlock()

	views := make([]QuestionView, len(s.questions))
	for i, q := range s.questions {
		views[i] = QuestionView{
			QuestionText: q.QuestionText,
			Options:      append([]string(nil), q.Options...),
			Selected:     s.answers[i],
			Marked:       s.marked[i],
		}
	}
	return views
}
