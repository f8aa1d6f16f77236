package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// LoginRequest holds credentials for authenticating a user.
type LoginRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required"`
	IP        string `json:"-"`
	UserAgent string `json:"-"`
}

// LoginResponse returns the issued access token and user info.
type LoginResponse struct {
	AccessToken string    `json:"access_token"`
	ExpiresIn   int64     `json:"expires_in"`
	User        UserInfo  `json:"user"`
	IssuedAt    time.Time `json:"issued_at"`
}

// UserInfo describes the authenticated user in responses.
type UserInfo struct {
	ID       string   `json:"id"`
	Email    string   `json:"email"`
	FullName string   `json:"full_name"`
	Role     UserRole `json:"role"`
	TutorID  string   `json:"tutor_id,omitempty"`
}

// JWTClaims represents the JWT payload for access tokens.
type JWTClaims struct {
	UserID   string   `json:"user_id"`
	Role     UserRole `json:"role"`
	Email    string   `json:"email"`
	FullName string   `json:"full_name"`
	TutorID  string   `json:"tutor_id,omitempty"`
	jwt.RegisteredClaims
}

// Actor identifies who is performing an operation. A nil actor is an anonymous caller.
type Actor struct {
	UserID  string
	Role    UserRole
	TutorID string
}

// ActorFromClaims converts token claims into an Actor.
func ActorFromClaims(claims *JWTClaims) *Actor {
	if claims == nil {
		return nil
	}
	return &Actor{UserID: claims.UserID, Role: claims.Role, TutorID: claims.TutorID}
}

// Privileged reports whether the actor bypasses ownership checks and lead time.
func (a *Actor) Privileged() bool {
	return a != nil && a.Role.Privileged()
}

// CanManageTutor reports whether the actor may edit tutorID's availability and holidays.
func (a *Actor) CanManageTutor(tutorID string) bool {
	if a == nil {
		return false
	}
	if a.Privileged() {
		return true
	}
	return a.Role == RoleTutor && a.TutorID != "" && a.TutorID == tutorID
}

// Staff reports whether the actor is an administrator or tutor.
func (a *Actor) Staff() bool {
	return a != nil && (a.Privileged() || a.Role == RoleTutor)
}
