package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/quizdeck/quizdeck-backend/internal/model"
)

// ExamRepository handles exam data access.
type ExamRepository struct {
	pool *pgxpool.Pool
}

// NewExamRepository creates a new ExamRepository.
func NewExamRepository(pool *pgxpool.Pool) *ExamRepository {
	return &ExamRepository{pool: pool}
}

// GetByID retrieves an exam by its UUID, without questions.
func (r *ExamRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Exam, error) {
	e := &model.Exam{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, title, description, author_id, time_limit_minutes,
		        win_percentage, status, created_at, updated_at
		 FROM exams WHERE id = $1`, id,
	).Scan(&e.ID, &e.Title, &e.Description, &e.AuthorID, &e.TimeLimitMinutes,
		&e.WinPercentage, &e.Status, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return e, nil
}

// ListByAuthorPaginated retrieves exams filtered by author with pagination.
// Pass authorID=0 to list all exams.
func (r *ExamRepository) ListByAuthorPaginated(ctx context.Context, authorID, limit, offset int) ([]model.Exam, int, error) {
	countQuery := `SELECT COUNT(*) FROM exams`
	var countArgs []interface{}
	if authorID > 0 {
		countQuery += ` WHERE author_id = $1`
		countArgs = append(countArgs, authorID)
	}

	var total int
	if err := r.pool.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT id, title, description, author_id, time_limit_minutes,
	                 win_percentage, status, created_at, updated_at
	          FROM exams`
	var args []interface{}
	if authorID > 0 {
		query += ` WHERE author_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
		args = append(args, authorID, limit, offset)
	} else {
		query += ` ORDER BY created_at DESC LIMIT $1 OFFSET $2`
		args = append(args, limit, offset)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var exams []model.Exam
	for rows.Next() {
		var e model.Exam
		if err := rows.Scan(&e.ID, &e.Title, &e.Description, &e.AuthorID, &e.TimeLimitMinutes,
			&e.WinPercentage, &e.Status, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, 0, err
		}
		exams = append(exams, e)
	}
	return exams, total, rows.Err()
}

// ListPublished returns all exams with PUBLISHED status.
// Used for cache prewarming on application startup and the taker lobby.
func (r *ExamRepository) ListPublished(ctx context.Context) ([]model.Exam, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, title, description, author_id, time_limit_minutes,
		        win_percentage, status, created_at, updated_at
		 FROM exams WHERE status = $1
		 ORDER BY created_at DESC`, model.ExamStatusPublished)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var exams []model.Exam
	for rows.Next() {
		var e model.Exam
		if err := rows.Scan(&e.ID, &e.Title, &e.Description, &e.AuthorID, &e.TimeLimitMinutes,
			&e.WinPercentage, &e.Status, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		exams = append(exams, e)
	}
	return exams, rows.Err()
}

// Create inserts a new exam.
func (r *ExamRepository) Create(ctx context.Context, e *model.Exam) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO exams (title, description, author_id, time_limit_minutes, win_percentage, status)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, created_at, updated_at`,
		e.Title, e.Description, e.AuthorID, e.TimeLimitMinutes, e.WinPercentage, e.Status,
	).Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
}

// Update modifies an existing exam.
func (r *ExamRepository) Update(ctx context.Context, e *model.Exam) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE exams
		 SET title = $1, description = $2, time_limit_minutes = $3,
		     win_percentage = $4, updated_at = NOW()
		 WHERE id = $5`,
		e.Title, e.Description, e.TimeLimitMinutes, e.WinPercentage, e.ID)
	return err
}

// UpdateStatus updates an exam's status.
func (r *ExamRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.ExamStatus) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE exams SET status = $1, updated_at = NOW() WHERE id = $2`,
		status, id)
	return err
}

// Delete removes an exam and, via FK cascade, its questions.
func (r *ExamRepository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM exams WHERE id = $1`, id)
	return err
}
