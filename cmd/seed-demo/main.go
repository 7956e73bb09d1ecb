package main

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/quizdeck/quizdeck-backend/internal/config"
	"github.com/quizdeck/quizdeck-backend/internal/database"
	"github.com/quizdeck/quizdeck-backend/internal/logger"
	"github.com/quizdeck/quizdeck-backend/internal/model"
	"github.com/quizdeck/quizdeck-backend/internal/repository"
)

// Seeds a demo admin plus a published general-knowledge exam so a fresh
// install has something to click through. Safe to run twice: it skips
// seeding when the demo admin already exists.
func main() {
	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	userRepo := repository.NewUserRepository(pool)
	examRepo := repository.NewExamRepository(pool)
	questionRepo := repository.NewQuestionRepository(pool)

	fmt.Println("=== Seeding Demo Data ===")

	const demoEmail = "demo-admin@quizdeck.local"

	if _, err := userRepo.GetByEmail(ctx, demoEmail); err == nil {
		fmt.Println("Demo admin already exists, nothing to do")
		return
	} else if err != pgx.ErrNoRows {
		log.Fatal().Err(err).Msg("Failed to check demo admin")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte("quizdeck-demo"), cfg.BcryptCost)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to hash demo password")
	}

	admin := &model.User{
		Name:         "Demo Admin",
		Email:        demoEmail,
		PasswordHash: string(hash),
		Role:         model.UserRoleAdmin,
	}
	if err := userRepo.Create(ctx, admin); err != nil {
		log.Fatal().Err(err).Msg("Failed to create demo admin")
	}
	fmt.Printf("Created demo admin with ID: %d\n", admin.ID)

	timeLimit := 10
	exam := &model.Exam{
		Title:            "General Knowledge Warm-up",
		Description:      "A short mixed quiz to try the platform.",
		AuthorID:         admin.ID,
		TimeLimitMinutes: &timeLimit,
		WinPercentage:    60,
		Status:           model.ExamStatusDraft,
	}
	if err := examRepo.Create(ctx, exam); err != nil {
		log.Fatal().Err(err).Msg("Failed to create demo exam")
	}

	questions := []model.Question{
		{
			ExamID:        exam.ID,
			QuestionText:  "What is the capital of France?",
			Options:       []string{"Paris", "Lyon", "Marseille", "Nice"},
			CorrectAnswer: "Paris",
			Tag:           "Geography",
		},
		{
			ExamID:        exam.ID,
			QuestionText:  "Which planet is known as the Red Planet?",
			Options:       []string{"Venus", "Mars", "Jupiter", "Saturn"},
			CorrectAnswer: "Mars",
			Tag:           "Science",
		},
		{
			ExamID:        exam.ID,
			QuestionText:  "What is 12 × 12?",
			Options:       []string{"124", "132", "144", "156"},
			CorrectAnswer: "144",
			Tag:           "Math",
		},
		{
			ExamID:        exam.ID,
			QuestionText:  "Who wrote 'Romeo and Juliet'?",
			Options:       []string{"Charles Dickens", "William Shakespeare", "Jane Austen", "Mark Twain"},
			CorrectAnswer: "William Shakespeare",
			Tag:           "Literature",
		},
		{
			ExamID:        exam.ID,
			QuestionText:  "Which ocean is the largest?",
			Options:       []string{"Atlantic", "Indian", "Arctic", "Pacific"},
			CorrectAnswer: "Pacific",
			Tag:           "Geography",
		},
	}
	for i := range questions {
		questions[i].OrderNum = i
	}
	if err := questionRepo.ReplaceForExam(ctx, exam.ID, questions); err != nil {
		log.Fatal().Err(err).Msg("Failed to create demo questions")
	}

	// Publish directly; the server prewarms the paper cache on boot.
	if err := examRepo.UpdateStatus(ctx, exam.ID, model.ExamStatusPublished); err != nil {
		log.Fatal().Err(err).Msg("Failed to publish demo exam")
	}

	fmt.Printf("Created demo exam '%s' with %d questions (ID: %s)\n", exam.Title, len(questions), exam.ID)
	fmt.Println("Demo login: demo-admin@quizdeck.local / quizdeck-demo")
}
