package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/quizdeck/quizdeck-backend/internal/config"
	"github.com/quizdeck/quizdeck-backend/internal/model"
	"github.com/quizdeck/quizdeck-backend/internal/session"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// staticPaperLoader serves papers from a fixed map, standing in for the
// Redis/Postgres-backed ExamService.
type staticPaperLoader map[uuid.UUID]*model.Exam

func (l staticPaperLoader) GetFullPaper(_ context.Context, examID uuid.UUID) (*model.Exam, error) {
	paper, ok := l[examID]
	if !ok {
		return nil, ErrExamNotPublished
	}
	return paper, nil
}

func newTestAttemptService(t *testing.T) (*AttemptService, *redis.Client, uuid.UUID) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	examID := uuid.New()
	paper := &model.Exam{
		ID:            examID,
		Title:         "Capitals",
		WinPercentage: 50,
		Status:        model.ExamStatusPublished,
		Questions: []model.Question{
			{
				QuestionText:  "Capital of France?",
				Options:       []string{"Berlin", "Paris", "Rome", "Lisbon"},
				CorrectAnswer: "Paris",
				Tag:           "Geo",
			},
			{
				QuestionText:  "2+2?",
				Options:       []string{"3", "4", "5", "6"},
				CorrectAnswer: "4",
			},
		},
	}

	svc := NewAttemptService(
		staticPaperLoader{examID: paper},
		session.NewManager(),
		rdb,
		zerolog.Nop(),
	)
	return svc, rdb, examID
}

func TestStartSubmitQueuesHistoryRecord(t *testing.T) {
	svc, rdb, examID := newTestAttemptService(t)
	ctx := context.Background()

	sess, err := svc.Start(ctx, examID, 7, EncodeReferral(3))
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	defer svc.Finish(sess.AttemptID())

	if _, ok := svc.Get(sess.AttemptID(), 7); !ok {
		t.Fatal("started attempt not resolvable by owner")
	}
	if _, ok := svc.Get(sess.AttemptID(), 8); ok {
		t.Fatal("attempt resolvable by a different user")
	}

	res := sess.Submit()

	raw, err := rdb.LPop(ctx, config.WorkerKey.PersistAttemptsQueue).Bytes()
	if err != nil {
		t.Fatalf("expected one queued record: %v", err)
	}
	var record model.AttemptResult
	if err := json.Unmarshal(raw, &record); err != nil {
		t.Fatalf("unmarshal record: %v", err)
	}

	if record.AttemptID != res.AttemptID {
		t.Fatalf("attempt id mismatch: %v vs %v", record.AttemptID, res.AttemptID)
	}
	if record.UserID != 7 || record.ExamID != examID || record.ExamTitle != "Capitals" {
		t.Fatalf("unexpected record: %+v", record)
	}
	if record.SharedBy != "3" {
		t.Fatalf("expected referral 3, got %q", record.SharedBy)
	}
	if record.TakenAt.IsZero() {
		t.Fatal("expected taken_at to be stamped")
	}

	// Idempotent submit: second call must not enqueue again.
	sess.Submit()
	if n, _ := rdb.LLen(ctx, config.WorkerKey.PersistAttemptsQueue).Result(); n != 0 {
		t.Fatalf("expected empty queue after duplicate submit, got %d", n)
	}
}

func TestAnonymousAttemptSkipsHistory(t *testing.T) {
	svc, rdb, examID := newTestAttemptService(t)
	ctx := context.Background()

	sess, err := svc.Start(ctx, examID, 0, "")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	defer svc.Finish(sess.AttemptID())

	sess.Submit()

	if n, _ := rdb.LLen(ctx, config.WorkerKey.PersistAttemptsQueue).Result(); n != 0 {
		t.Fatalf("anonymous attempt must not persist history, queue has %d", n)
	}
}

func TestMalformedReferralIsDropped(t *testing.T) {
	svc, rdb, examID := newTestAttemptService(t)
	ctx := context.Background()

	sess, err := svc.Start(ctx, examID, 7, "%%%broken%%%")
	if err != nil {
		t.Fatalf("malformed referral must not block the attempt: %v", err)
	}
	defer svc.Finish(sess.AttemptID())

	sess.Submit()

	raw, err := rdb.LPop(ctx, config.WorkerKey.PersistAttemptsQueue).Bytes()
	if err != nil {
		t.Fatalf("expected queued record: %v", err)
	}
	var record model.AttemptResult
	if err := json.Unmarshal(raw, &record); err != nil {
		t.Fatalf("unmarshal record: %v", err)
	}
	if record.SharedBy != "" {
		t.Fatalf("expected empty shared_by, got %q", record.SharedBy)
	}
}

func TestAbandonReleasesAttempt(t *testing.T) {
	svc, rdb, examID := newTestAttemptService(t)
	ctx := context.Background()

	sess, err := svc.Start(ctx, examID, 7, "")
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	svc.Abandon(sess.AttemptID(), 7)

	if _, ok := svc.Get(sess.AttemptID(), 7); ok {
		t.Fatal("abandoned attempt still resolvable")
	}
	select {
	case <-sess.Done():
	default:
		t.Fatal("abandon must release the attempt clock")
	}
	if n, _ := rdb.LLen(ctx, config.WorkerKey.PersistAttemptsQueue).Result(); n != 0 {
		t.Fatal("abandon must not persist history")
	}
}
