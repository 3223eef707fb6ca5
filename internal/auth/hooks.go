package auth

import "context"

// SignupHook runs after a user record has been committed. Its failure never
// fails the signup.
type SignupHook interface {
	AfterSignup(ctx context.Context, contact Contact) error
}

// SignupHookFunc adapts a function to SignupHook.
type SignupHookFunc func(ctx context.Context, contact Contact) error

// AfterSignup calls f.
func (f SignupHookFunc) AfterSignup(ctx context.Context, contact Contact) error {
	return f(ctx, contact)
}

// Events receives auth flow outcomes, typically for metrics.
type Events interface {
	AuthEvent(flow, outcome string)
}

type noopEvents struct{}

func (noopEvents) AuthEvent(string, string) {}

// Flow outcomes reported to Events.
const (
	OutcomeSuccess            = "success"
	OutcomeInvalidCredentials = "invalid_credentials"
	OutcomeUnauthorized       = "unauthorized"
	OutcomeConflict           = "conflict"
	OutcomeError              = "error"
	OutcomeHookFailed         = "hook_failed"
)
