// Package session implements the in-memory state machine for a single exam
// attempt: question/option shuffling, navigation and marking state, the
// attempt clock, scoring and the final result emission. It has no transport
// or storage dependencies — handlers drive it and a caller-supplied sink
// receives the finished result.
package session

import (
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/quizdeck/quizdeck-backend/internal/model"
)

// Domain errors.
var (
	ErrEmptyExam     = errors.New("exam has no questions")
	ErrInvalidOption = errors.New("option is not part of the current question")
)

// Outcome is the post-submission tri-state of a single question.
type Outcome string

const (
	OutcomeCorrect    Outcome = "CORRECT"
	OutcomeIncorrect  Outcome = "INCORRECT"
	OutcomeUnanswered Outcome = "UNANSWERED"
)

// Status is the navigator state of a question. When several apply, the
// precedence is current > marked > answered > visited > unvisited.
type Status string

const (
	StatusCurrent   Status = "CURRENT"
	StatusMarked    Status = "MARKED"
	StatusAnswered  Status = "ANSWERED"
	StatusVisited   Status = "VISITED"
	StatusUnvisited Status = "UNVISITED"
)

// Result holds the outcome of a submitted attempt.
type Result struct {
	AttemptID        uuid.UUID                `json:"attempt_id"`
	ExamID           uuid.UUID                `json:"exam_id"`
	ExamTitle        string                   `json:"exam_title"`
	Score            int                      `json:"score"`
	TotalQuestions   int                      `json:"total_questions"`
	UserPercentage   float64                  `json:"user_percentage"`
	WinPercentage    float64                  `json:"win_percentage"`
	Passed           bool                     `json:"passed"`
	TimeTakenSeconds int                      `json:"time_taken_seconds"`
	TagBreakdown     map[string]model.TagStat `json:"tag_breakdown,omitempty"`
	Outcomes         []Outcome                `json:"outcomes"`
}

// Sink receives the result exactly once, when the attempt is submitted.
// The call is fire-and-forget from the session's perspective: the sink must
// not block for long and its failures must not reach the taker.
type Sink func(Result)

// Session owns one exam attempt. All exported methods are safe for the
// cooperative single-user model: one timer tick source plus request
// handlers, serialized by an internal mutex.
type Session struct {
	attemptID uuid.UUID
	exam      model.Exam // metadata only; questions live in the shuffled copy

	mu        sync.Mutex
	questions []model.Question // shuffled copy, options shuffled per question
	current   int
	answers   map[int]string
	visited   map[int]bool
	marked    map[int]bool
	countdown bool
	seconds   int // remaining (countdown) or elapsed (count-up)
	submitted   bool
	submittedAt time.Time
	result      *Result

	clock    Clock
	ticker   Ticker
	started  bool
	done     chan struct{}
	stopOnce sync.Once
	sink     Sink
	rng      *rand.Rand
}

// Option configures a Session.
type Option func(*Session)

// WithClock injects a clock, used by tests to simulate time.
func WithClock(c Clock) Option {
	return func(s *Session) { s.clock = c }
}

// WithSink registers the result sink invoked once on submission.
func WithSink(sink Sink) Option {
	return func(s *Session) { s.sink = sink }
}

// WithRand injects the randomness source used for shuffling, so tests can
// make permutations deterministic.
func WithRand(rng *rand.Rand) Option {
	return func(s *Session) { s.rng = rng }
}

// New creates a session for the given exam with a freshly randomized
// question order and, within each question, a randomized option order. The
// exam itself is never mutated; the session owns its shuffled copy.
func New(exam model.Exam, opts ...Option) (*Session, error) {
	if len(exam.Questions) == 0 {
		return nil, ErrEmptyExam
	}

	win := exam.WinPercentage
	if win <= 0 || win > 100 {
		win = model.DefaultWinPercentage
	}
	exam.WinPercentage = win

	s := &Session{
		attemptID: uuid.New(),
		exam:      exam,
		current:   0,
		answers:   make(map[int]string),
		visited:   map[int]bool{0: true},
		marked:    make(map[int]bool),
		clock:     RealClock(),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.rng == nil {
		s.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	s.questions = shuffledCopy(exam.Questions, s.rng)
	s.exam.Questions = nil

	if exam.TimeLimitMinutes != nil {
		s.countdown = true
		s.seconds = *exam.TimeLimitMinutes * 60
	}

	return s, nil
}

// shuffledCopy returns a Fisher–Yates permutation of qs with each question's
// option slice independently permuted. The originals are left untouched.
func shuffledCopy(qs []model.Question, rng *rand.Rand) []model.Question {
	out := make([]model.Question, len(qs))
	copy(out, qs)
	rng.Shuffle(len(out), func(i, j int) {
		out[i], out[j] = out[j], out[i]
	})
	for i := range out {
		opts := make([]string, len(out[i].Options))
		copy(opts, out[i].Options)
		rng.Shuffle(len(opts), func(a, b int) {
			opts[a], opts[b] = opts[b], opts[a]
		})
		out[i].Options = opts
	}
	return out
}

// AttemptID returns the client-independent idempotency key for this attempt.
func (s *Session) AttemptID() uuid.UUID { return s.attemptID }

// ExamID returns the id of the exam under attempt.
func (s *Session) ExamID() uuid.UUID { return s.exam.ID }

// Start launches the attempt clock: one tick per second until submission or
// Close. Calling Start more than once is a no-op.
func (s *Session) Start() {
	s.mu.Lock()
	if s.started || s.submitted {
		s.mu.Unlock()
		return
	}
	s.started = true
	s.ticker = s.clock.NewTicker(time.Second)
	ticker := s.ticker
	s.mu.Unlock()

	go func() {
		for {
			select {
			case <-s.done:
				return
			case <-ticker.C():
				s.tick()
			}
		}
	}()
}

// tick advances the clock by one second. In countdown mode reaching zero
// auto-submits exactly once; no tick is processed after submission.
func (s *Session) tick() {
	s.mu.Lock()
	if s.submitted {
		s.mu.Unlock()
		return
	}
	if s.countdown {
		s.seconds--
		if s.seconds <= 0 {
			s.seconds = 0
			res := s.submitLocked()
			s.mu.Unlock()
			s.emit(res)
			return
		}
	} else {
		s.seconds++
	}
	s.mu.Unlock()
}

// GoTo moves to the question at index. Out-of-range targets are recovered
// locally as a no-op, matching a defensively written UI flow.
func (s *Session) GoTo(index int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.questions) {
		return
	}
	s.current = index
	s.visited[index] = true
}

// Next advances to the following question. At the last question it is a
// no-op: submission is a separate, explicit action.
func (s *Session) Next() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current >= len(s.questions)-1 {
		return
	}
	s.current++
	s.visited[s.current] = true
}

// SelectAnswer records the chosen option text for the current question,
// overwriting any prior choice. The option must belong to the current
// question. After submission the call is a no-op.
func (s *Session) SelectAnswer(optionText string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.submitted {
		return nil
	}
	q := s.questions[s.current]
	valid := false
	for _, opt := range q.Options {
		if opt == optionText {
			valid = true
			break
		}
	}
	if !valid {
		return ErrInvalidOption
	}
	s.answers[s.current] = optionText
	return nil
}

// ToggleMarkForReview flips the review mark on the current question.
func (s *Session) ToggleMarkForReview() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.submitted {
		return
	}
	if s.marked[s.current] {
		delete(s.marked, s.current)
	} else {
		s.marked[s.current] = true
	}
}

// Submit finalizes the attempt: freezes the clock, scores every question by
// exact string comparison against its correct answer, aggregates the tag
// breakdown and determines pass/fail (inclusive threshold). Submit is
// idempotent — a second call has no observable effect and the sink fires at
// most once.
func (s *Session) Submit() *Result {
	s.mu.Lock()
	if s.submitted {
		res := s.result
		s.mu.Unlock()
		return res
	}
	res := s.submitLocked()
	s.mu.Unlock()
	s.emit(res)
	return res
}

// submitLocked computes the result and transitions submitted to true.
// Callers must hold s.mu and must not have submitted already.
func (s *Session) submitLocked() *Result {
	total := len(s.questions)
	score := 0
	breakdown := make(map[string]model.TagStat)
	outcomes := make([]Outcome, total)

	for i, q := range s.questions {
		chosen, answered := s.answers[i]
		correct := answered && chosen == q.CorrectAnswer

		switch {
		case correct:
			score++
			outcomes[i] = OutcomeCorrect
		case answered:
			outcomes[i] = OutcomeIncorrect
		default:
			outcomes[i] = OutcomeUnanswered
		}

		if q.Tag != "" {
			stat := breakdown[q.Tag]
			stat.Total++
			if correct {
				stat.Correct++
			}
			breakdown[q.Tag] = stat
		}
	}
	if len(breakdown) == 0 {
		breakdown = nil
	}

	percentage := float64(score) / float64(total) * 100

	timeTaken := s.seconds
	if s.countdown {
		timeTaken = *s.exam.TimeLimitMinutes*60 - s.seconds
	}

	s.submitted = true
	s.submittedAt = s.clock.Now()
	s.result = &Result{
		AttemptID:        s.attemptID,
		ExamID:           s.exam.ID,
		ExamTitle:        s.exam.Title,
		Score:            score,
		TotalQuestions:   total,
		UserPercentage:   percentage,
		WinPercentage:    s.exam.WinPercentage,
		Passed:           percentage >= s.exam.WinPercentage,
		TimeTakenSeconds: timeTaken,
		TagBreakdown:     breakdown,
		Outcomes:         outcomes,
	}
	s.stop()
	return s.result
}

// emit delivers the result to the sink, if one is registered.
func (s *Session) emit(res *Result) {
	if s.sink != nil && res != nil {
		s.sink(*res)
	}
}

// Close releases the attempt clock without submitting. Used when the taker
// abandons the attempt. Safe to call on any exit path, any number of times.
func (s *Session) Close() {
	s.stop()
}

func (s *Session) stop() {
	s.stopOnce.Do(func() {
		if s.ticker != nil {
			s.ticker.Stop()
		}
		close(s.done)
	})
}

// Done is closed once the attempt clock has been released, either by
// submission (manual or timeout) or by Close.
func (s *Session) Done() <-chan struct{} { return s.done }

// Submitted reports whether the attempt has been finalized.
func (s *Session) Submitted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.submitted
}

// SubmittedAt returns the finalization time. ok is false before submission.
func (s *Session) SubmittedAt() (t time.Time, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.submittedAt, s.submitted
}

// Seconds returns the remaining (countdown) or elapsed (count-up) seconds.
func (s *Session) Seconds() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seconds
}

// Result returns the finalized result, or nil before submission.
func (s *Session) Result() *Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}

// statusLocked derives the navigator state of question i.
func (s *Session) statusLocked(i int) Status {
	switch {
	case i == s.current:
		return StatusCurrent
	case s.marked[i]:
		return StatusMarked
	case s.answers[i] != "":
		return StatusAnswered
	case s.visited[i]:
		return StatusVisited
	default:
		return StatusUnvisited
	}
}
