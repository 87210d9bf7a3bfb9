// Package authmodel contains the auth framework's entity model as seen by the adapter and
// the session synchronizer.
package authmodel

import "time"

// Default model names used by the auth framework.
const (
	ModelUser         = "user"
	ModelSession      = "session"
	ModelAccount      = "account"
	ModelVerification = "verification"
)

// User is the authenticated user. Role is free form and may be absent.
type User struct {
	ID            string    `json:"id"`
	Email         string    `json:"email,omitempty"`
	EmailVerified bool      `json:"emailVerified"`
	Name          string    `json:"name,omitempty"`
	Image         string    `json:"image,omitempty"`
	Username      string    `json:"username,omitempty"`
	Role          any       `json:"role,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Session is a persisted login. Token is minted once on creation.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	IPAddress string    `json:"ipAddress,omitempty"`
	UserAgent string    `json:"userAgent,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// SessionData is the external authentication state observed by the session synchronizer.
type SessionData struct {
	Session Session `json:"session"`
	User    User    `json:"user"`
}
