package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/quizdeck/quizdeck-backend/internal/middleware"
	"github.com/quizdeck/quizdeck-backend/internal/model"
	"github.com/quizdeck/quizdeck-backend/internal/response"
	"github.com/quizdeck/quizdeck-backend/internal/service"
	"github.com/quizdeck/quizdeck-backend/internal/validator"
)

// ExamHandler handles exam authoring endpoints.
type ExamHandler struct {
	examService *service.ExamService
}

// NewExamHandler creates a new ExamHandler.
func NewExamHandler(examService *service.ExamService) *ExamHandler {
	return &ExamHandler{examService: examService}
}

// ListExams godoc
// GET /api/v1/admin/exams
// Lists the authenticated author's exams with pagination.
func (h *ExamHandler) ListExams(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "10"))

	exams, pagination, err := h.examService.ListByAuthor(c.Request.Context(), claims.UserID, page, perPage)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.SuccessWithPagination(c, http.StatusOK, gin.H{"exams": exams}, pagination)
}

// GetExam godoc
// GET /api/v1/admin/exams/:exam_id
// Returns a single exam with its questions, answers included. Author only.
func (h *ExamHandler) GetExam(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	exam, err := h.examService.GetByID(c.Request.Context(), examID)
	if err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		return
	}
	if exam.AuthorID != claims.UserID {
		response.Fail(c, http.StatusForbidden, response.ErrNotExamAuthor)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"exam": exam})
}

// CreateExam godoc
// POST /api/v1/admin/exams
// Creates a new draft exam.
func (h *ExamHandler) CreateExam(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.CreateExamRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	exam := &model.Exam{
		Title:            req.Title,
		Description:      req.Description,
		AuthorID:         claims.UserID,
		TimeLimitMinutes: req.TimeLimitMinutes,
		WinPercentage:    req.WinPercentage,
	}

	if err := h.examService.Create(c.Request.Context(), exam); err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"exam": exam})
}

// UpdateExam godoc
// PUT /api/v1/admin/exams/:exam_id
// Updates a draft exam's settings. Published exams must be archived first.
func (h *ExamHandler) UpdateExam(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.UpdateExamRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	exam, err := h.examService.GetByID(c.Request.Context(), examID)
	if err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		return
	}

	if req.Title != "" {
		exam.Title = req.Title
	}
	if req.Description != nil {
		exam.Description = *req.Description
	}
	if req.TimeLimitMinutes != nil {
		exam.TimeLimitMinutes = req.TimeLimitMinutes
	}
	if req.WinPercentage != nil {
		exam.WinPercentage = *req.WinPercentage
	}

	if err := h.examService.Update(c.Request.Context(), claims.UserID, exam); err != nil {
		h.failExam(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"exam": exam})
}

// DeleteExam godoc
// DELETE /api/v1/admin/exams/:exam_id
// Deletes a draft exam and its questions.
func (h *ExamHandler) DeleteExam(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if err := h.examService.Delete(c.Request.Context(), examID, claims.UserID); err != nil {
		h.failExam(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{})
}

// ReplaceQuestions godoc
// PUT /api/v1/admin/exams/:exam_id/questions
// Replaces the full question list of a draft exam in one transaction.
func (h *ExamHandler) ReplaceQuestions(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.ReplaceQuestionsRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	questions := make([]model.Question, 0, len(req.Questions))
	for i, q := range req.Questions {
		if !containsOption(q.Options, q.CorrectAnswer) {
			response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, map[string]string{
				"questions[" + strconv.Itoa(i) + "].correct_answer": "must match one of the options",
			})
			return
		}
		questions = append(questions, model.Question{
			ExamID:        examID,
			QuestionText:  q.QuestionText,
			Options:       q.Options,
			CorrectAnswer: q.CorrectAnswer,
			Tag:           q.Tag,
			OrderNum:      i,
		})
	}

	if err := h.examService.ReplaceQuestions(c.Request.Context(), examID, claims.UserID, questions); err != nil {
		h.failExam(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"count": len(questions)})
}

// PublishExam godoc
// POST /api/v1/admin/exams/:exam_id/publish
// Publishes a draft exam: caches the full paper to Redis, changes status.
func (h *ExamHandler) PublishExam(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if err := h.examService.Publish(c.Request.Context(), examID, claims.UserID); err != nil {
		h.failExam(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "exam published successfully"})
}

// ArchiveExam godoc
// POST /api/v1/admin/exams/:exam_id/archive
// Archives a published exam and drops its paper cache. Running attempts
// keep their already-loaded paper.
func (h *ExamHandler) ArchiveExam(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if err := h.examService.Archive(c.Request.Context(), examID, claims.UserID); err != nil {
		h.failExam(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "exam archived successfully"})
}

// failExam maps exam service errors to API error codes.
func (h *ExamHandler) failExam(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrNotExamAuthor):
		response.Fail(c, http.StatusForbidden, response.ErrNotExamAuthor)
	case errors.Is(err, service.ErrNoQuestions):
		response.Fail(c, http.StatusBadRequest, response.ErrNoQuestions)
	case errors.Is(err, service.ErrExamNotDraft):
		response.Fail(c, http.StatusBadRequest, response.ErrExamNotDraft)
	case errors.Is(err, service.ErrExamNotPublished):
		response.Fail(c, http.StatusBadRequest, response.ErrExamNotPublished)
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}

func containsOption(options []string, answer string) bool {
	for _, o := range options {
		if o == answer {
			return true
		}
	}
	return false
}
