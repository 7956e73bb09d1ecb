package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/quizdeck/quizdeck-backend/internal/model"
)

// QuestionRepository handles question data access.
type QuestionRepository struct {
	pool *pgxpool.Pool
}

// NewQuestionRepository creates a new QuestionRepository.
func NewQuestionRepository(pool *pgxpool.Pool) *QuestionRepository {
	return &QuestionRepository{pool: pool}
}

// ListByExam retrieves all questions for a given exam, ordered by order_num.
// Options are stored as a jsonb array of strings.
func (r *QuestionRepository) ListByExam(ctx context.Context, examID uuid.UUID) ([]model.Question, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, exam_id, question_text, options, correct_answer, tag, order_num
		 FROM questions WHERE exam_id = $1
		 ORDER BY order_num`, examID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []model.Question
	for rows.Next() {
		var q model.Question
		if err := rows.Scan(&q.ID, &q.ExamID, &q.QuestionText, &q.Options, &q.CorrectAnswer, &q.Tag, &q.OrderNum); err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// Create inserts a new question.
func (r *QuestionRepository) Create(ctx context.Context, q *model.Question) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO questions (exam_id, question_text, options, correct_answer, tag, order_num)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id`,
		q.ExamID, q.QuestionText, q.Options, q.CorrectAnswer, q.Tag, q.OrderNum,
	).Scan(&q.ID)
}

// ReplaceForExam atomically swaps an exam's full question set.
func (r *QuestionRepository) ReplaceForExam(ctx context.Context, examID uuid.UUID, questions []model.Question) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM questions WHERE exam_id = $1`, examID); err != nil {
			return err
		}
		for i := range questions {
			q := &questions[i]
			q.ExamID = examID
			if err := tx.QueryRow(ctx,
				`INSERT INTO questions (exam_id, question_text, options, correct_answer, tag, order_num)
				 VALUES ($1, $2, $3, $4, $5, $6)
				 RETURNING id`,
				q.ExamID, q.QuestionText, q.Options, q.CorrectAnswer, q.Tag, q.OrderNum,
			).Scan(&q.ID); err != nil {
				return err
			}
		}
		return nil
	})
}

// DeleteByExam removes all questions of an exam.
func (r *QuestionRepository) DeleteByExam(ctx context.Context, examID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM questions WHERE exam_id = $1`, examID)
	return err
}
