package auth

import (
	"context"
	"time"
)

// Repository is the credential store consulted by the auth flows. Lookups by
// email expect a normalized address. Implementations wrap remote failures
// with shared.ErrUpstream, report a missing record as shared.ErrNotFound and
// a duplicate signup as shared.ErrConflict.
type Repository interface {
	FindByEmail(ctx context.Context, email string) (*User, error)
	CreateUser(ctx context.Context, user NewUser) error
	UpdateSession(ctx context.Context, update SessionUpdate) error
	IncrementFailedAttempts(ctx context.Context, email string) error
	FindBySessionToken(ctx context.Context, token string, now time.Time) ([]User, error)
	FindByRefreshToken(ctx context.Context, token string, now time.Time) ([]User, error)
}
