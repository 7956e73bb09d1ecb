package session_test

import (
	"math/rand"
	"testing"

	"github.com/google/uuid"
	"github.com/quizdeck/quizdeck-backend/internal/model"
	"github.com/quizdeck/quizdeck-backend/internal/session"
)

func newExam(win float64, limit *int, questions ...model.Question) model.Exam {
	return model.Exam{
		ID:               uuid.New(),
		Title:            "Sample Exam",
		WinPercentage:    win,
		TimeLimitMinutes: limit,
		Questions:        questions,
	}
}

func q(text string, options [4]string, correct, tag string) model.Question {
	return model.Question{
		ID:            uuid.New(),
		QuestionText:  text,
		Options:       options[:],
		CorrectAnswer: correct,
		Tag:           tag,
	}
}

func newSession(t *testing.T, exam model.Exam, opts ...session.Option) *session.Session {
	t.Helper()
	opts = append(opts, session.WithRand(rand.New(rand.NewSource(42))))
	sess, err := session.New(exam, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return sess
}

// goToQuestion navigates to the shuffled position of the question with the
// given text and fails the test if it does not exist.
func goToQuestion(t *testing.T, sess *session.Session, text string) {
	t.Helper()
	for i, view := range sess.Questions() {
		if view.QuestionText == text {
			sess.GoTo(i)
			return
		}
	}
	t.Fatalf("question %q not found in session", text)
}

func TestNewRejectsEmptyExam(t *testing.T) {
	_, err := session.New(newExam(50, nil))
	if err != session.ErrEmptyExam {
		t.Fatalf("expected ErrEmptyExam, got %v", err)
	}
}

func TestSingleQuestionExamIsValid(t *testing.T) {
	sess := newSession(t, newExam(50, nil,
		q("Only?", [4]string{"a", "b", "c", "d"}, "a", ""),
	))
	state := sess.Snapshot()
	if state.TotalQuestions != 1 || state.CurrentIndex != 0 {
		t.Fatalf("unexpected state: %+v", state)
	}
}

func TestScoringCorrectIncorrectUnanswered(t *testing.T) {
	sess := newSession(t, newExam(50, nil,
		q("Q1", [4]string{"a", "b", "c", "d"}, "a", ""),
		q("Q2", [4]string{"e", "f", "g", "h"}, "e", ""),
		q("Q3", [4]string{"i", "j", "k", "l"}, "i", ""),
	))

	goToQuestion(t, sess, "Q1")
	if err := sess.SelectAnswer("a"); err != nil {
		t.Fatalf("select: %v", err)
	}
	goToQuestion(t, sess, "Q2")
	if err := sess.SelectAnswer("f"); err != nil {
		t.Fatalf("select: %v", err)
	}
	// Q3 left unanswered.

	res := sess.Submit()
	if res.Score != 1 || res.TotalQuestions != 3 {
		t.Fatalf("expected score 1/3, got %d/%d", res.Score, res.TotalQuestions)
	}

	counts := map[session.Outcome]int{}
	for _, o := range res.Outcomes {
		counts[o]++
	}
	if counts[session.OutcomeCorrect] != 1 || counts[session.OutcomeIncorrect] != 1 || counts[session.OutcomeUnanswered] != 1 {
		t.Fatalf("unexpected outcomes: %v", counts)
	}
}

func TestPassBoundaryIsInclusive(t *testing.T) {
	sess := newSession(t, newExam(50, nil,
		q("Q1", [4]string{"a", "b", "c", "d"}, "a", ""),
		q("Q2", [4]string{"e", "f", "g", "h"}, "e", ""),
	))

	goToQuestion(t, sess, "Q1")
	if err := sess.SelectAnswer("a"); err != nil {
		t.Fatalf("select: %v", err)
	}

	res := sess.Submit()
	if res.UserPercentage != 50 {
		t.Fatalf("expected exactly 50%%, got %v", res.UserPercentage)
	}
	if !res.Passed {
		t.Fatal("score exactly at threshold must pass")
	}
}

func TestTagBreakdownExcludesUntagged(t *testing.T) {
	sess := newSession(t, newExam(50, nil,
		q("G1", [4]string{"a", "b", "c", "d"}, "a", "Geography"),
		q("G2", [4]string{"e", "f", "g", "h"}, "e", "Geography"),
		q("U1", [4]string{"i", "j", "k", "l"}, "i", ""),
	))

	goToQuestion(t, sess, "G1")
	if err := sess.SelectAnswer("a"); err != nil {
		t.Fatalf("select: %v", err)
	}
	goToQuestion(t, sess, "G2")
	if err := sess.SelectAnswer("f"); err != nil {
		t.Fatalf("select: %v", err)
	}
	goToQuestion(t, sess, "U1")
	if err := sess.SelectAnswer("i"); err != nil {
		t.Fatalf("select: %v", err)
	}

	res := sess.Submit()
	if len(res.TagBreakdown) != 1 {
		t.Fatalf("expected only the Geography tag, got %v", res.TagBreakdown)
	}
	geo := res.TagBreakdown["Geography"]
	if geo.Correct != 1 || geo.Total != 2 {
		t.Fatalf("expected Geography {1,2}, got %+v", geo)
	}
}

func TestSubmitIsIdempotent(t *testing.T) {
	emissions := 0
	sess := newSession(t, newExam(50, nil,
		q("Q1", [4]string{"a", "b", "c", "d"}, "a", ""),
	), session.WithSink(func(session.Result) { emissions++ }))

	if err := sess.SelectAnswer("a"); err != nil {
		t.Fatalf("select: %v", err)
	}

	first := sess.Submit()
	second := sess.Submit()

	if first != second {
		t.Fatal("second Submit must return the same result")
	}
	if emissions != 1 {
		t.Fatalf("expected exactly one emission, got %d", emissions)
	}
}

func TestMutationsAfterSubmitAreNoOps(t *testing.T) {
	sess := newSession(t, newExam(50, nil,
		q("Q1", [4]string{"a", "b", "c", "d"}, "a", ""),
		q("Q2", [4]string{"e", "f", "g", "h"}, "e", ""),
	))
	sess.Submit()

	if err := sess.SelectAnswer("a"); err != nil {
		t.Fatalf("post-submit select must be a silent no-op, got %v", err)
	}
	sess.ToggleMarkForReview()

	state := sess.Snapshot()
	if state.Question.Selected != "" || state.Question.Marked {
		t.Fatalf("post-submit mutation leaked into state: %+v", state.Question)
	}
	if state.Result.Score != 0 {
		t.Fatalf("result changed after submit: %+v", state.Result)
	}
}

func TestNavigationBounds(t *testing.T) {
	sess := newSession(t, newExam(50, nil,
		q("Q1", [4]string{"a", "b", "c", "d"}, "a", ""),
		q("Q2", [4]string{"e", "f", "g", "h"}, "e", ""),
		q("Q3", [4]string{"i", "j", "k", "l"}, "i", ""),
	))

	before := sess.Snapshot()
	sess.GoTo(-1)
	sess.GoTo(3)
	after := sess.Snapshot()

	if after.CurrentIndex != before.CurrentIndex {
		t.Fatalf("out-of-range GoTo moved the cursor to %d", after.CurrentIndex)
	}
	for i, st := range after.Statuses {
		if st != before.Statuses[i] {
			t.Fatalf("out-of-range GoTo changed visited state at %d: %v", i, st)
		}
	}
}

func TestNextStopsAtLastQuestion(t *testing.T) {
	sess := newSession(t, newExam(50, nil,
		q("Q1", [4]string{"a", "b", "c", "d"}, "a", ""),
		q("Q2", [4]string{"e", "f", "g", "h"}, "e", ""),
	))

	sess.Next()
	if got := sess.Snapshot().CurrentIndex; got != 1 {
		t.Fatalf("expected index 1, got %d", got)
	}
	sess.Next() // at the last question: no-op, never submits
	state := sess.Snapshot()
	if state.CurrentIndex != 1 || state.Submitted {
		t.Fatalf("Next at last question must be a no-op: %+v", state)
	}
}

func TestSelectAnswerRejectsForeignOption(t *testing.T) {
	sess := newSession(t, newExam(50, nil,
		q("Q1", [4]string{"a", "b", "c", "d"}, "a", ""),
	))
	if err := sess.SelectAnswer("not-an-option"); err != session.ErrInvalidOption {
		t.Fatalf("expected ErrInvalidOption, got %v", err)
	}
}

func TestSelectAnswerOverwrites(t *testing.T) {
	sess := newSession(t, newExam(50, nil,
		q("Q1", [4]string{"a", "b", "c", "d"}, "a", ""),
	))
	if err := sess.SelectAnswer("b"); err != nil {
		t.Fatalf("select: %v", err)
	}
	if err := sess.SelectAnswer("a"); err != nil {
		t.Fatalf("select: %v", err)
	}
	if res := sess.Submit(); res.Score != 1 {
		t.Fatalf("overwritten answer not scored, result %+v", res)
	}
}

func TestStatusPrecedence(t *testing.T) {
	sess := newSession(t, newExam(50, nil,
		q("Q1", [4]string{"a", "b", "c", "d"}, "a", ""),
		q("Q2", [4]string{"e", "f", "g", "h"}, "e", ""),
		q("Q3", [4]string{"i", "j", "k", "l"}, "i", ""),
		q("Q4", [4]string{"m", "n", "o", "p"}, "m", ""),
	))

	// Index 0: answered and marked — marked wins once we move away.
	if err := sess.SelectAnswer(sess.Snapshot().Question.Options[0]); err != nil {
		t.Fatalf("select: %v", err)
	}
	sess.ToggleMarkForReview()

	// Index 1: answered only.
	sess.GoTo(1)
	if err := sess.SelectAnswer(sess.Snapshot().Question.Options[0]); err != nil {
		t.Fatalf("select: %v", err)
	}

	// Index 2: visited only, then move to it last so it is current.
	sess.GoTo(2)

	statuses := sess.Snapshot().Statuses
	want := []session.Status{
		session.StatusMarked,
		session.StatusAnswered,
		session.StatusCurrent,
		session.StatusUnvisited,
	}
	for i, w := range want {
		if statuses[i] != w {
			t.Fatalf("status[%d] = %v, want %v (all: %v)", i, statuses[i], w, statuses)
		}
	}

	// Moving away from a merely visited question leaves it VISITED.
	sess.GoTo(0)
	if got := sess.Snapshot().Statuses[2]; got != session.StatusVisited {
		t.Fatalf("expected VISITED at index 2, got %v", got)
	}
}

func TestMarkToggleIsIndependent(t *testing.T) {
	sess := newSession(t, newExam(50, nil,
		q("Q1", [4]string{"a", "b", "c", "d"}, "a", ""),
		q("Q2", [4]string{"e", "f", "g", "h"}, "e", ""),
	))
	sess.ToggleMarkForReview()
	if !sess.Snapshot().Question.Marked {
		t.Fatal("expected current question to be marked")
	}
	sess.ToggleMarkForReview()
	if sess.Snapshot().Question.Marked {
		t.Fatal("expected mark to be cleared")
	}
}

func TestEndToEndScenario(t *testing.T) {
	exam := newExam(50, nil,
		q("2+2?", [4]string{"3", "4", "5", "6"}, "4", ""),
		q("Capital of France?", [4]string{"Berlin", "Paris", "Rome", "Lisbon"}, "Paris", "Geo"),
	)

	var emitted *session.Result
	sess := newSession(t, exam, session.WithSink(func(r session.Result) { emitted = &r }))

	goToQuestion(t, sess, "2+2?")
	if err := sess.SelectAnswer("4"); err != nil {
		t.Fatalf("select: %v", err)
	}
	goToQuestion(t, sess, "Capital of France?")
	if err := sess.SelectAnswer("Rome"); err != nil {
		t.Fatalf("select: %v", err)
	}

	res := sess.Submit()
	if res.Score != 1 || res.TotalQuestions != 2 {
		t.Fatalf("expected 1/2, got %d/%d", res.Score, res.TotalQuestions)
	}
	if res.UserPercentage != 50 || !res.Passed {
		t.Fatalf("expected 50%% pass, got %v passed=%v", res.UserPercentage, res.Passed)
	}
	geo := res.TagBreakdown["Geo"]
	if geo.Correct != 0 || geo.Total != 1 {
		t.Fatalf("expected Geo {0,1}, got %+v", geo)
	}
	if emitted == nil || emitted.AttemptID != sess.AttemptID() {
		t.Fatalf("sink did not receive the result: %+v", emitted)
	}
}
