package session_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/quizdeck/quizdeck-backend/internal/session"
)

func TestManagerOwnership(t *testing.T) {
	m := session.NewManager()
	sess := newSession(t, newExam(50, nil,
		q("Q1", [4]string{"a", "b", "c", "d"}, "a", ""),
	))

	m.Put("user-7", sess)

	if _, ok := m.Get(sess.AttemptID(), "user-7"); !ok {
		t.Fatal("owner could not fetch their attempt")
	}
	if _, ok := m.Get(sess.AttemptID(), "user-8"); ok {
		t.Fatal("attempt leaked to a different owner")
	}
	if _, ok := m.Get(uuid.New(), "user-7"); ok {
		t.Fatal("unknown attempt id resolved")
	}
}

func TestManagerRemoveReleasesAttempt(t *testing.T) {
	m := session.NewManager()
	sess := newSession(t, newExam(50, nil,
		q("Q1", [4]string{"a", "b", "c", "d"}, "a", ""),
	))
	m.Put("", sess)

	m.Remove(sess.AttemptID())

	if _, ok := m.Get(sess.AttemptID(), ""); ok {
		t.Fatal("removed attempt still resolvable")
	}
	select {
	case <-sess.Done():
	default:
		t.Fatal("Remove must release the attempt clock")
	}
	if m.Len() != 0 {
		t.Fatalf("expected empty registry, got %d", m.Len())
	}
}

func TestManagerSubmittedBefore(t *testing.T) {
	m := session.NewManager()
	live := newSession(t, newExam(50, nil,
		q("Q1", [4]string{"a", "b", "c", "d"}, "a", ""),
	))
	finished := newSession(t, newExam(50, nil,
		q("Q1", [4]string{"a", "b", "c", "d"}, "a", ""),
	))
	m.Put("", live)
	m.Put("", finished)
	finished.Submit()

	if ids := m.SubmittedBefore(time.Now().Add(-time.Minute)); len(ids) != 0 {
		t.Fatalf("fresh result reported as expired: %v", ids)
	}
	ids := m.SubmittedBefore(time.Now().Add(time.Minute))
	if len(ids) != 1 || ids[0] != finished.AttemptID() {
		t.Fatalf("expected only the submitted attempt, got %v", ids)
	}
}
