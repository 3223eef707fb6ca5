package auth

import "time"

const (
	// SessionTTL is the lifetime of a session token.
	SessionTTL = 24 * time.Hour
	// RefreshTTL is the lifetime of a refresh token. Refresh tokens are not
	// rotated when a session is renewed.
	RefreshTTL = 30 * 24 * time.Hour
	// MaxUserAgentLen bounds the stored user agent.
	MaxUserAgentLen = 2000
	// UnknownUserAgent is recorded when the client sends none.
	UnknownUserAgent = "Unknown"
)

// User is the stored account record.
type User struct {
	ID                  string
	Name                string
	Email               string
	PasswordHash        string
	SessionToken        string
	SessionExpiry       time.Time
	RefreshToken        string
	RefreshExpiry       time.Time
	LastLogin           time.Time
	UserAgent           string
	FailedLoginAttempts int
	CreatedAt           time.Time
}

// NewUser carries the fields written at signup.
type NewUser struct {
	Name         string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// SessionUpdate overwrites the session fields of the record keyed by Email.
type SessionUpdate struct {
	Email         string
	SessionToken  string
	SessionExpiry time.Time
	RefreshToken  string
	RefreshExpiry time.Time
	UserAgent     string
	LoginAt       time.Time
}

// Token is an opaque credential with its expiry.
type Token struct {
	Value     string
	ExpiresAt time.Time
}

// RefreshGrant is what a valid refresh token resolves to.
type RefreshGrant struct {
	Email         string
	RefreshExpiry time.Time
}

// LoginInput is the payload of a login attempt.
type LoginInput struct {
	Email     string
	Password  string
	UserAgent string
}

// LoginResult carries the credentials to hand to the client.
type LoginResult struct {
	Session Token
	Refresh Token
}

// SignupInput is the payload of a signup request.
type SignupInput struct {
	Name  string
	Email string
}

// RefreshResult carries the renewed session credential.
type RefreshResult struct {
	Session Token
	Refresh Token
}

// Contact is handed to post-signup hooks. Password is the generated
// plaintext credential, delivered out of band.
type Contact struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}
