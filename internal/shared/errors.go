package shared

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput indicates a malformed or incomplete request.
	ErrInvalidInput = errors.New("invalid input")
	// ErrUnauthorized indicates a missing, invalid or expired credential.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidCredentials indicates login failure. It matches ErrUnauthorized.
	ErrInvalidCredentials = fmt.Errorf("invalid credentials: %w", ErrUnauthorized)
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrConflict indicates a uniqueness violation such as a duplicate signup.
	ErrConflict = errors.New("already exists")
	// ErrUpstream indicates the store or another remote collaborator failed.
	ErrUpstream = errors.New("upstream error")
	// ErrInternal indicates an unexpected failure.
	ErrInternal = errors.New("internal error")
)

// Upstream wraps err so that it matches ErrUpstream while keeping the cause.
func Upstream(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrUpstream) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, ErrUpstream, err)
}
