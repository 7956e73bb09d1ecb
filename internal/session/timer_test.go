package session_test

import (
	"testing"
	"time"

	"github.com/quizdeck/quizdeck-backend/internal/session"
)

// fakeClock hands the session an unbuffered tick channel the test drives
// manually. Each send is received before the next one, so after n sends at
// least n-1 ticks have fully applied; assertions poll with waitUntil.
type fakeClock struct {
	ticks chan time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{ticks: make(chan time.Time)}
}

func (f *fakeClock) Now() time.Time { return time.Unix(0, 0) }

func (f *fakeClock) NewTicker(time.Duration) session.Ticker {
	return fakeTicker{ch: f.ticks}
}

func (f *fakeClock) advance(t *testing.T, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case f.ticks <- time.Unix(int64(i), 0):
		case <-time.After(2 * time.Second):
			t.Fatalf("tick %d not consumed: timer loop is gone", i)
		}
	}
}

type fakeTicker struct {
	ch chan time.Time
}

func (ft fakeTicker) C() <-chan time.Time { return ft.ch }
func (fakeTicker) Stop()                  {}

func waitUntil(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

func TestCountdownAutoSubmitsAtZero(t *testing.T) {
	limit := 1
	clock := newFakeClock()

	var emitted *session.Result
	done := make(chan struct{})
	sess := newSession(t,
		newExam(50, &limit,
			q("Q1", [4]string{"a", "b", "c", "d"}, "a", ""),
		),
		session.WithClock(clock),
		session.WithSink(func(r session.Result) {
			emitted = &r
			close(done)
		}),
	)

	sess.Start()
	if got := sess.Seconds(); got != 60 {
		t.Fatalf("expected 60 remaining seconds, got %d", got)
	}

	if err := sess.SelectAnswer("a"); err != nil {
		t.Fatalf("select: %v", err)
	}

	clock.advance(t, 60)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("countdown did not auto-submit")
	}
	<-sess.Done()

	if !sess.Submitted() {
		t.Fatal("expected session to be submitted")
	}
	if sess.Seconds() != 0 {
		t.Fatalf("expected clock frozen at 0, got %d", sess.Seconds())
	}
	if emitted.TimeTakenSeconds != 60 {
		t.Fatalf("expected 60s taken, got %d", emitted.TimeTakenSeconds)
	}
	if emitted.Score != 1 {
		t.Fatalf("auto-submit lost the recorded answer: %+v", emitted)
	}
}

func TestCountUpNeverAutoSubmits(t *testing.T) {
	clock := newFakeClock()
	sess := newSession(t,
		newExam(50, nil,
			q("Q1", [4]string{"a", "b", "c", "d"}, "a", ""),
		),
		session.WithClock(clock),
	)

	sess.Start()
	clock.advance(t, 5)
	waitUntil(t, func() bool { return sess.Seconds() == 5 })

	if sess.Submitted() {
		t.Fatal("count-up mode must not auto-submit")
	}

	res := sess.Submit()
	if res.TimeTakenSeconds != 5 {
		t.Fatalf("expected 5s taken, got %d", res.TimeTakenSeconds)
	}
}

func TestElapsedIsMonotonicUntilSubmit(t *testing.T) {
	clock := newFakeClock()
	sess := newSession(t,
		newExam(50, nil,
			q("Q1", [4]string{"a", "b", "c", "d"}, "a", ""),
		),
		session.WithClock(clock),
	)
	sess.Start()

	prev := 0
	for i := 0; i < 4; i++ {
		clock.advance(t, 1)
		target := i + 1
		waitUntil(t, func() bool { return sess.Seconds() == target })
		if sess.Seconds() < prev {
			t.Fatalf("elapsed went backwards: %d < %d", sess.Seconds(), prev)
		}
		prev = sess.Seconds()
	}

	sess.Submit()
	after := sess.Seconds()
	if after != 4 {
		t.Fatalf("expected clock frozen at 4, got %d", after)
	}
}

func TestCloseReleasesTimerWithoutSubmitting(t *testing.T) {
	clock := newFakeClock()
	sess := newSession(t,
		newExam(50, nil,
			q("Q1", [4]string{"a", "b", "c", "d"}, "a", ""),
		),
		session.WithClock(clock),
	)
	sess.Start()
	sess.Close()
	<-sess.Done()

	if sess.Submitted() {
		t.Fatal("Close must not submit")
	}
	if sess.Result() != nil {
		t.Fatal("abandoned attempt must not produce a result")
	}
}
