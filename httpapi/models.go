package httpapi

import (
	"time"

	"github.com/MrEthical07/authgate"
)

// RegisterRequest is the body of POST /register.
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest is the body of POST /login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// UserResponse describes an account without its password hash.
type UserResponse struct {
	UserID    string     `json:"user_id"`
	Username  string     `json:"username"`
	Email     string     `json:"email"`
	Role      string     `json:"role"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

// SessionResponse is returned by login and protected.
type SessionResponse struct {
	User UserResponse `json:"user"`
}

// StatusResponse is a generic acknowledgement.
type StatusResponse struct {
	Status string `json:"status"`
}

// SessionsResponse is returned by GET /admin/sessions.
type SessionsResponse struct {
	ActiveSessions int `json:"active_sessions"`
}

// HealthResponse is returned by GET /healthz.
type HealthResponse struct {
	Status         string  `json:"status"`
	RedisLatencyMS float64 `json:"redis_latency_ms"`
}

func userResponse(u authgate.User) UserResponse {
	resp := UserResponse{
		UserID:   u.ID,
		Username: u.Username,
		Email:    u.Email,
		Role:     u.Role,
	}
	if !u.CreatedAt.IsZero() {
		created := u.CreatedAt.UTC()
		resp.CreatedAt = &created
	}
	return resp
}

func identityResponse(id *authgate.Identity) UserResponse {
	return UserResponse{
		UserID:   id.UserID,
		Username: id.Username,
		Email:    id.Email,
		Role:     id.Role,
	}
}
