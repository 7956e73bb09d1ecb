package model

import "time"

// UserRole distinguishes exam takers from exam authors.
type UserRole string

const (
	UserRoleStudent UserRole = "STUDENT"
	UserRoleAdmin   UserRole = "ADMIN"
)

// User represents an authenticated account.
type User struct {
	ID           int       `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         UserRole  `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

// LoginRequest is the payload for authenticating a user.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}
