package handler

import (
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/quizdeck/quizdeck-backend/internal/middleware"
	"github.com/quizdeck/quizdeck-backend/internal/model"
	"github.com/quizdeck/quizdeck-backend/internal/repository"
	"github.com/quizdeck/quizdeck-backend/internal/response"
	"github.com/quizdeck/quizdeck-backend/internal/service"
	"github.com/quizdeck/quizdeck-backend/internal/session"
	"github.com/quizdeck/quizdeck-backend/internal/validator"
)

// AttemptHandler handles the taker-facing endpoints: the lobby, the attempt
// lifecycle and the attempt history.
type AttemptHandler struct {
	attemptService *service.AttemptService
	examService    *service.ExamService
	attempts       *repository.AttemptRepository
}

// NewAttemptHandler creates a new AttemptHandler.
func NewAttemptHandler(
	attemptService *service.AttemptService,
	examService *service.ExamService,
	attempts *repository.AttemptRepository,
) *AttemptHandler {
	return &AttemptHandler{
		attemptService: attemptService,
		examService:    examService,
		attempts:       attempts,
	}
}

// GetLobby godoc
// GET /api/v1/lobby
// Lists published exams. Public: anonymous visitors can browse and start.
func (h *AttemptHandler) GetLobby(c *gin.Context) {
	exams, err := h.examService.ListPublished(c.Request.Context())
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	if exams == nil {
		exams = []model.Exam{}
	}

	response.Success(c, http.StatusOK, gin.H{"exams": exams})
}

// StartAttempt godoc
// POST /api/v1/attempts?shared_by=<referral>
// Opens a fresh attempt: loads the paper, shuffles it and starts the clock.
// Works with or without a login; anonymous attempts are keyed only by the
// returned attempt ID and never enter the history.
func (h *AttemptHandler) StartAttempt(c *gin.Context) {
	var req model.StartAttemptRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	examID, err := uuid.Parse(req.ExamID)
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	sess, err := h.attemptService.Start(
		c.Request.Context(),
		examID,
		middleware.UserID(c),
		c.Query("shared_by"),
	)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrExamNotPublished):
			response.Fail(c, http.StatusBadRequest, response.ErrExamNotPublished)
		case errors.Is(err, session.ErrEmptyExam):
			response.Fail(c, http.StatusBadRequest, response.ErrNoQuestions)
		default:
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		}
		return
	}

	response.Success(c, http.StatusCreated, gin.H{
		"state":     sess.Snapshot(),
		"questions": sess.Questions(),
	})
}

// GetAttemptState godoc
// GET /api/v1/attempts/:attempt_id
// Returns the full attempt snapshot. Covers page reloads: answers, marks,
// navigator statuses and the clock all come back in one payload.
func (h *AttemptHandler) GetAttemptState(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"state":     sess.Snapshot(),
		"questions": sess.Questions(),
	})
}

// GotoQuestion godoc
// POST /api/v1/attempts/:attempt_id/goto
// Jumps to a question index. Out-of-range indexes are ignored.
func (h *AttemptHandler) GotoQuestion(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}

	var req model.GotoQuestionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	sess.GoTo(req.Index)
	response.Success(c, http.StatusOK, gin.H{"state": sess.Snapshot()})
}

// NextQuestion godoc
// POST /api/v1/attempts/:attempt_id/next
// Advances to the next question. A no-op on the last question.
func (h *AttemptHandler) NextQuestion(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}

	sess.Next()
	response.Success(c, http.StatusOK, gin.H{"state": sess.Snapshot()})
}

// SelectAnswer godoc
// POST /api/v1/attempts/:attempt_id/answer
// Records an option for the current question. Re-answering overwrites.
func (h *AttemptHandler) SelectAnswer(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}

	var req model.SelectAnswerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := sess.SelectAnswer(req.Option); err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidOption)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"state": sess.Snapshot()})
}

// ToggleMark godoc
// POST /api/v1/attempts/:attempt_id/mark
// Toggles the review flag on the current question.
func (h *AttemptHandler) ToggleMark(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}

	sess.ToggleMarkForReview()
	response.Success(c, http.StatusOK, gin.H{"state": sess.Snapshot()})
}

// SubmitAttempt godoc
// POST /api/v1/attempts/:attempt_id/submit
// Grades the attempt. Idempotent: a second submit returns the same result.
func (h *AttemptHandler) SubmitAttempt(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}

	result := sess.Submit()
	response.Success(c, http.StatusOK, gin.H{
		"result": result,
		"state":  sess.Snapshot(),
	})
}

// AbandonAttempt godoc
// DELETE /api/v1/attempts/:attempt_id
// Releases the attempt and its clock. Unsubmitted answers are discarded.
func (h *AttemptHandler) AbandonAttempt(c *gin.Context) {
	attemptID, err := uuid.Parse(c.Param("attempt_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	h.attemptService.Abandon(attemptID, middleware.UserID(c))
	response.Success(c, http.StatusOK, gin.H{})
}

// GetHistory godoc
// GET /api/v1/history
// Returns the authenticated user's submitted attempts, newest first.
func (h *AttemptHandler) GetHistory(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "10"))
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 10
	}

	results, total, err := h.attempts.ListByUser(c.Request.Context(), claims.UserID, page, perPage)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	if results == nil {
		results = []model.AttemptResult{}
	}

	pagination := &response.Pagination{
		Page:       page,
		PerPage:    perPage,
		TotalItems: int(total),
		TotalPages: int(math.Ceil(float64(total) / float64(perPage))),
	}

	response.SuccessWithPagination(c, http.StatusOK, gin.H{"attempts": results}, pagination)
}

// session resolves the attempt from the URL and checks ownership. It writes
// the error response itself and reports success through the bool.
func (h *AttemptHandler) session(c *gin.Context) (*session.Session, bool) {
	attemptID, err := uuid.Parse(c.Param("attempt_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return nil, false
	}

	sess, ok := h.attemptService.Get(attemptID, middleware.UserID(c))
	if !ok {
		response.Fail(c, http.StatusNotFound, response.ErrAttemptNotFound)
		return nil, false
	}
	return sess, true
}
