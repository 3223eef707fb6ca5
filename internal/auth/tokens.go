package auth

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"time"
)

const (
	sessionTokenBytes = 32
	refreshTokenBytes = 64
	passwordBytes     = 8
)

// Issuer mints opaque session and refresh tokens.
type Issuer struct {
	now func() time.Time
}

// NewIssuer returns an Issuer. A nil clock uses time.Now.
func NewIssuer(now func() time.Time) *Issuer {
	if now == nil {
		now = time.Now
	}
	return &Issuer{now: now}
}

// IssueSession returns a fresh session token valid for SessionTTL.
func (i *Issuer) IssueSession() Token {
	return Token{Value: randomToken(sessionTokenBytes), ExpiresAt: i.now().Add(SessionTTL)}
}

// IssueRefresh returns a fresh refresh token valid for RefreshTTL.
func (i *Issuer) IssueRefresh() Token {
	return Token{Value: randomToken(refreshTokenBytes), ExpiresAt: i.now().Add(RefreshTTL)}
}

// GeneratePassword returns the plaintext password assigned at signup.
func (i *Issuer) GeneratePassword() string {
	return hex.EncodeToString(randomBytes(passwordBytes))
}

// Now exposes the issuer clock.
func (i *Issuer) Now() time.Time {
	return i.now()
}

func randomToken(n int) string {
	return base64.RawURLEncoding.EncodeToString(randomBytes(n))
}

func randomBytes(n int) []byte {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		panic("auth: crypto/rand unavailable: " + err.Error())
	}
	return b
}
