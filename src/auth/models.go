package auth

import (
	"time"
)

type User struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	PasswordHash  string    `json:"password_hash"`
	EmailVerified bool      `json:"email_verified"`
	GoogleLinked  bool      `json:"google_linked"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Identity is the public view of a user, safe to cache on the device and
// return to clients.
type Identity struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	EmailVerified bool      `json:"email_verified"`
	GoogleLinked  bool      `json:"google_linked"`
	CreatedAt     time.Time `json:"created_at"`
}

func (u *User) Identity() Identity {
	return Identity{
		ID:            u.ID,
		Email:         u.Email,
		EmailVerified: u.EmailVerified,
		GoogleLinked:  u.GoogleLinked,
		CreatedAt:     u.CreatedAt,
	}
}

type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

type OAuthState struct {
	State     string    `json:"state"`
	UserID    string    `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

type Config struct {
	SessionDuration time.Duration
	FrontendURL     string
	CookieDomain    string
	CookieSecure    bool
	CookieSameSite  string
}
