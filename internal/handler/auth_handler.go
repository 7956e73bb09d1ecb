package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/quizdeck/quizdeck-backend/internal/middleware"
	"github.com/quizdeck/quizdeck-backend/internal/model"
	"github.com/quizdeck/quizdeck-backend/internal/repository"
	"github.com/quizdeck/quizdeck-backend/internal/response"
	"github.com/quizdeck/quizdeck-backend/internal/service"
	"github.com/quizdeck/quizdeck-backend/internal/validator"
)

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	authService *service.AuthService
	users       *repository.UserRepository
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *service.AuthService, users *repository.UserRepository) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		users:       users,
	}
}

// Login godoc
// POST /api/v1/auth/login
// Validates email + password and returns a JWT. A newer login replaces any
// previous session for the same account.
func (h *AuthHandler) Login(c *gin.Context) {
	var req model.LoginRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	user, err := h.users.GetByEmail(c.Request.Context(), req.Email)
	if err != nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrInvalidCredentials)
		return
	}

	if err := h.authService.CheckPassword(user.PasswordHash, req.Password); err != nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrInvalidCredentials)
		return
	}

	token, err := h.authService.GenerateToken(c.Request.Context(), user)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"token": token,
		"user":  userView(user),
	})
}

// Logout godoc
// POST /api/v1/auth/logout
// Invalidates the active login session.
func (h *AuthHandler) Logout(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	if err := h.authService.Logout(c.Request.Context(), claims.UserID); err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{})
}

// Me godoc
// GET /api/v1/auth/me
// Returns the profile of the currently authenticated user.
func (h *AuthHandler) Me(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	user, err := h.users.GetByID(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"user": userView(user)})
}

func userView(u *model.User) gin.H {
	return gin.H{
		"id":    u.ID,
		"name":  u.Name,
		"email": u.Email,
		"role":  u.Role,
	}
}
