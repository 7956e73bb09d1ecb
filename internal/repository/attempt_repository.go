package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/quizdeck/quizdeck-backend/internal/model"
)

// AttemptRepository handles exam attempt history data access.
type AttemptRepository struct {
	pool *pgxpool.Pool
}

// NewAttemptRepository creates a new AttemptRepository.
func NewAttemptRepository(pool *pgxpool.Pool) *AttemptRepository {
	return &AttemptRepository{pool: pool}
}

// Insert persists a single attempt result. The attempt_id conflict guard
// makes the write idempotent: a replayed emission is silently dropped.
func (r *AttemptRepository) Insert(ctx context.Context, a *model.AttemptResult) error {
	breakdown, err := json.Marshal(a.TagBreakdown)
	if err != nil {
		return err
	}

	_, err = r.pool.Exec(ctx,
		`INSERT INTO exam_attempts
		   (attempt_id, user_id, exam_id, exam_title, score, total_questions,
		    passed, win_percentage, time_taken_seconds, tag_breakdown, shared_by, taken_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 ON CONFLICT (attempt_id) DO NOTHING`,
		a.AttemptID, a.UserID, a.ExamID, a.ExamTitle, a.Score, a.TotalQuestions,
		a.Passed, a.WinPercentage, a.TimeTakenSeconds, breakdown, nullable(a.SharedBy), a.TakenAt)
	return err
}

// BulkInsert persists a batch of attempt results in one round trip using
// UNNEST. Conflicting attempt ids are dropped, never duplicated.
func (r *AttemptRepository) BulkInsert(ctx context.Context, batch []*model.AttemptResult) error {
	n := len(batch)
	if n == 0 {
		return nil
	}

	attemptIDs := make([]uuid.UUID, 0, n)
	userIDs := make([]int, 0, n)
	examIDs := make([]uuid.UUID, 0, n)
	titles := make([]string, 0, n)
	scores := make([]int, 0, n)
	totals := make([]int, 0, n)
	passes := make([]bool, 0, n)
	wins := make([]float64, 0, n)
	durations := make([]int, 0, n)
	breakdowns := make([][]byte, 0, n)
	sharedBys := make([]*string, 0, n)
	takenAts := make([]time.Time, 0, n)

	for _, a := range batch {
		bd, err := json.Marshal(a.TagBreakdown)
		if err != nil {
			return err
		}
		attemptIDs = append(attemptIDs, a.AttemptID)
		userIDs = append(userIDs, a.UserID)
		examIDs = append(examIDs, a.ExamID)
		titles = append(titles, a.ExamTitle)
		scores = append(scores, a.Score)
		totals = append(totals, a.TotalQuestions)
		passes = append(passes, a.Passed)
		wins = append(wins, a.WinPercentage)
		durations = append(durations, a.TimeTakenSeconds)
		breakdowns = append(breakdowns, bd)
		sharedBys = append(sharedBys, nullable(a.SharedBy))
		takenAts = append(takenAts, a.TakenAt)
	}

	query := `
		INSERT INTO exam_attempts
		  (attempt_id, user_id, exam_id, exam_title, score, total_questions,
		   passed, win_percentage, time_taken_seconds, tag_breakdown, shared_by, taken_at)
		SELECT
			u.attempt_id, u.user_id, u.exam_id, u.exam_title, u.score, u.total_questions,
			u.passed, u.win_percentage, u.time_taken_seconds, u.tag_breakdown, u.shared_by, u.taken_at
		FROM UNNEST(
			$1::uuid[],
			$2::int[],
			$3::uuid[],
			$4::text[],
			$5::int[],
			$6::int[],
			$7::bool[],
			$8::float8[],
			$9::int[],
			$10::jsonb[],
			$11::text[],
			$12::timestamptz[]
		) AS u (attempt_id, user_id, exam_id, exam_title, score, total_questions,
		        passed, win_percentage, time_taken_seconds, tag_breakdown, shared_by, taken_at)
		ON CONFLICT (attempt_id) DO NOTHING
	`

	_, err := r.pool.Exec(ctx, query,
		attemptIDs, userIDs, examIDs, titles, scores, totals,
		passes, wins, durations, breakdowns, sharedBys, takenAts)
	return err
}

// ListByUser retrieves a user's attempt history, newest first.
func (r *AttemptRepository) ListByUser(ctx context.Context, userID, page, perPage int) ([]model.AttemptResult, int64, error) {
	var total int64
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM exam_attempts WHERE user_id = $1`, userID,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * perPage
	rows, err := r.pool.Query(ctx,
		`SELECT attempt_id, user_id, exam_id, exam_title, score, total_questions,
		        passed, win_percentage, time_taken_seconds, tag_breakdown, shared_by, taken_at
		 FROM exam_attempts
		 WHERE user_id = $1
		 ORDER BY taken_at DESC
		 LIMIT $2 OFFSET $3`, userID, perPage, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var attempts []model.AttemptResult
	for rows.Next() {
		var a model.AttemptResult
		var breakdown []byte
		var sharedBy *string
		if err := rows.Scan(&a.AttemptID, &a.UserID, &a.ExamID, &a.ExamTitle, &a.Score,
			&a.TotalQuestions, &a.Passed, &a.WinPercentage, &a.TimeTakenSeconds,
			&breakdown, &sharedBy, &a.TakenAt); err != nil {
			return nil, 0, err
		}
		if len(breakdown) > 0 {
			if err := json.Unmarshal(breakdown, &a.TagBreakdown); err != nil {
				return nil, 0, err
			}
		}
		if sharedBy != nil {
			a.SharedBy = *sharedBy
		}
		attempts = append(attempts, a)
	}
	return attempts, total, rows.Err()
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
