package service

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/quizdeck/quizdeck-backend/internal/config"
	"github.com/quizdeck/quizdeck-backend/internal/model"
	"github.com/quizdeck/quizdeck-backend/internal/session"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// PaperLoader supplies the full exam paper for an attempt start.
// *ExamService is the production implementation.
type PaperLoader interface {
	GetFullPaper(ctx context.Context, examID uuid.UUID) (*model.Exam, error)
}

// AttemptService owns the lifecycle of live exam attempts: it builds
// sessions from published papers, registers them in the in-memory manager
// and queues finished results for the history worker. Result emission is
// fire-and-forget: a queue failure is logged and never reaches the taker.
type AttemptService struct {
	papers  PaperLoader
	manager *session.Manager
	rdb     *redis.Client
	clock   session.Clock
	log     zerolog.Logger
}

// NewAttemptService creates a new AttemptService.
func NewAttemptService(papers PaperLoader, manager *session.Manager, rdb *redis.Client, log zerolog.Logger) *AttemptService {
	return &AttemptService{
		papers:  papers,
		manager: manager,
		rdb:     rdb,
		clock:   session.RealClock(),
		log:     log.With().Str("component", "attempt_service").Logger(),
	}
}

// Start creates and starts a session for the given exam. userID 0 means
// anonymous: the attempt runs normally but no history is persisted.
// sharedBy is the optional referral token from a share link; a malformed
// token is logged and dropped.
func (s *AttemptService) Start(ctx context.Context, examID uuid.UUID, userID int, sharedBy string) (*session.Session, error) {
	paper, err := s.papers.GetFullPaper(ctx, examID)
	if err != nil {
		return nil, err
	}

	referral := ""
	if sharedBy != "" {
		decoded, err := DecodeReferral(sharedBy)
		if err != nil {
			s.log.Warn().Err(err).Str("exam_id", examID.String()).Msg("Dropping malformed referral token")
		} else {
			referral = decoded
		}
	}

	sess, err := session.New(*paper,
		session.WithClock(s.clock),
		session.WithSink(s.resultSink(userID, referral)),
	)
	if err != nil {
		return nil, err
	}

	sess.Start()
	s.manager.Put(ownerKey(userID), sess)

	s.log.Info().
		Str("attempt_id", sess.AttemptID().String()).
		Str("exam_id", examID.String()).
		Int("user_id", userID).
		Msg("Attempt started")
	return sess, nil
}

// Get resolves a live attempt owned by the given user.
func (s *AttemptService) Get(attemptID uuid.UUID, userID int) (*session.Session, bool) {
	return s.manager.Get(attemptID, ownerKey(userID))
}

// Finish drops a submitted attempt from the registry. The session keeps its
// result; only the registry entry and the (already released) clock go away.
func (s *AttemptService) Finish(attemptID uuid.UUID) {
	s.manager.Remove(attemptID)
}

// Abandon tears down an unsubmitted attempt when the taker navigates away.
// The clock is released; nothing is persisted.
func (s *AttemptService) Abandon(attemptID uuid.UUID, userID int) {
	if _, ok := s.manager.Get(attemptID, ownerKey(userID)); !ok {
		return
	}
	s.manager.Remove(attemptID)
	s.log.Info().Str("attempt_id", attemptID.String()).Msg("Attempt abandoned")
}

// Reap periodically drops attempts that were submitted more than retention
// ago, so the registry does not grow with the process lifetime. Takers keep
// access to a result for the retention window; unsubmitted attempts are
// never touched. Blocks until ctx is cancelled.
func (s *AttemptService) Reap(ctx context.Context, interval, retention time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cutoff := s.clock.Now().Add(-retention)
			for _, id := range s.manager.SubmittedBefore(cutoff) {
				s.Finish(id)
				s.log.Debug().Str("attempt_id", id.String()).Msg("Reaped finished attempt")
			}
		}
	}
}

// resultSink builds the at-most-once emission callback handed to the
// session. Anonymous attempts skip history entirely.
func (s *AttemptService) resultSink(userID int, referral string) session.Sink {
	return func(res session.Result) {
		if userID == 0 {
			s.log.Debug().
				Str("attempt_id", res.AttemptID.String()).
				Msg("Anonymous attempt, skipping history")
			return
		}

		record := model.AttemptResult{
			AttemptID:        res.AttemptID,
			UserID:           userID,
			ExamID:           res.ExamID,
			ExamTitle:        res.ExamTitle,
			Score:            res.Score,
			TotalQuestions:   res.TotalQuestions,
			Passed:           res.Passed,
			WinPercentage:    res.WinPercentage,
			TimeTakenSeconds: res.TimeTakenSeconds,
			TagBreakdown:     res.TagBreakdown,
			SharedBy:         referral,
			TakenAt:          time.Now().UTC(),
		}

		raw, err := json.Marshal(record)
		if err != nil {
			s.log.Error().Err(err).Msg("Failed to encode attempt result")
			return
		}

		// The session may be submitting from its timer goroutine; the
		// request context is long gone by then.
		if err := s.rdb.RPush(context.Background(), config.WorkerKey.PersistAttemptsQueue, raw).Err(); err != nil {
			s.log.Error().
				Err(err).
				Str("attempt_id", res.AttemptID.String()).
				Msg("Failed to queue attempt result")
		}
	}
}

func ownerKey(userID int) string {
	if userID == 0 {
		return ""
	}
	return strconv.Itoa(userID)
}
