package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/notiongate/notiongate/internal/shared"
)

// DefaultPasswordCost is the bcrypt cost used for generated passwords.
const DefaultPasswordCost = 12

// Service wraps authentication business rules: the login, signup and refresh
// flows plus session validation. Flows share no state besides the store.
type Service struct {
	repo      Repository
	issuer    *Issuer
	hook      SignupHook
	events    Events
	logger    *slog.Logger
	cost      int
	dummyHash []byte
}

// Option customises a Service.
type Option func(*Service)

// WithIssuer overrides the token issuer, mostly to pin the clock in tests.
func WithIssuer(issuer *Issuer) Option {
	return func(s *Service) { s.issuer = issuer }
}

// WithSignupHook installs the post-signup hook.
func WithSignupHook(hook SignupHook) Option {
	return func(s *Service) { s.hook = hook }
}

// WithEvents installs an outcome recorder.
func WithEvents(events Events) Option {
	return func(s *Service) { s.events = events }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithPasswordCost overrides the bcrypt cost.
func WithPasswordCost(cost int) Option {
	return func(s *Service) { s.cost = cost }
}

// NewService constructs a new Service.
func NewService(repo Repository, opts ...Option) *Service {
	s := &Service{repo: repo, cost: DefaultPasswordCost}
	for _, opt := range opts {
		opt(s)
	}
	if s.issuer == nil {
		s.issuer = NewIssuer(nil)
	}
	if s.events == nil {
		s.events = noopEvents{}
	}
	if s.logger == nil {
		s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	// Compared against when the email is unknown so both paths cost one bcrypt run.
	s.dummyHash, _ = bcrypt.GenerateFromPassword([]byte("notiongate-dummy-password"), s.cost)
	return s
}

// HashPassword hashes a plaintext password with the configured cost.
func (s *Service) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w: %w", shared.ErrInternal, err)
	}
	return string(hash), nil
}

// VerifyPassword reports whether password matches the stored hash for email.
// It fails closed: an unknown email or empty hash is a mismatch. The error is
// only set when the store itself failed.
func (s *Service) VerifyPassword(ctx context.Context, email, password string) (bool, error) {
	_, ok, err := s.verify(ctx, NormalizeEmail(email), password)
	return ok, err
}

// verify also reports whether a record exists for email.
func (s *Service) verify(ctx context.Context, email, password string) (found, ok bool, err error) {
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
			return false, false, nil
		}
		return false, false, err
	}
	if user.PasswordHash == "" {
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
		return true, false, nil
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return true, false, nil
	}
	return true, true, nil
}

// Login verifies credentials and starts a new session with a fresh refresh
// token. Wrong credentials yield shared.ErrInvalidCredentials whether or not
// the email exists.
func (s *Service) Login(ctx context.Context, in LoginInput) (*LoginResult, error) {
	email := NormalizeEmail(in.Email)
	if email == "" || in.Password == "" {
		s.events.AuthEvent("login", OutcomeInvalidCredentials)
		return nil, shared.ErrInvalidCredentials
	}
	found, ok, err := s.verify(ctx, email, in.Password)
	if err != nil {
		s.events.AuthEvent("login", OutcomeError)
		return nil, fmt.Errorf("login: verify: %w", err)
	}
	if !ok {
		if found {
			s.recordFailedAttempt(ctx, email)
		}
		s.events.AuthEvent("login", OutcomeInvalidCredentials)
		return nil, shared.ErrInvalidCredentials
	}

	session := s.issuer.IssueSession()
	refresh := s.issuer.IssueRefresh()
	err = s.repo.UpdateSession(ctx, SessionUpdate{
		Email:         email,
		SessionToken:  session.Value,
		SessionExpiry: session.ExpiresAt,
		RefreshToken:  refresh.Value,
		RefreshExpiry: refresh.ExpiresAt,
		UserAgent:     in.UserAgent,
		LoginAt:       s.issuer.Now(),
	})
	if err != nil {
		s.events.AuthEvent("login", OutcomeError)
		if errors.Is(err, shared.ErrNotFound) {
			return nil, fmt.Errorf("login: user vanished before session update: %w", shared.ErrInternal)
		}
		return nil, fmt.Errorf("login: update session: %w", err)
	}
	s.events.AuthEvent("login", OutcomeSuccess)
	return &LoginResult{Session: session, Refresh: refresh}, nil
}

// Signup registers a user with a generated password. The password is handed
// only to the signup hook, never returned.
func (s *Service) Signup(ctx context.Context, in SignupInput) error {
	name := strings.TrimSpace(in.Name)
	email := NormalizeEmail(in.Email)
	if name == "" || email == "" {
		return fmt.Errorf("signup: name and email required: %w", shared.ErrInvalidInput)
	}
	password := s.issuer.GeneratePassword()
	hash, err := s.HashPassword(password)
	if err != nil {
		s.events.AuthEvent("signup", OutcomeError)
		return err
	}
	err = s.repo.CreateUser(ctx, NewUser{Name: name, Email: email, PasswordHash: hash, CreatedAt: s.issuer.Now()})
	if err != nil {
		if errors.Is(err, shared.ErrConflict) {
			s.events.AuthEvent("signup", OutcomeConflict)
		} else {
			s.events.AuthEvent("signup", OutcomeError)
		}
		return fmt.Errorf("signup: %w", err)
	}
	s.logger.InfoContext(ctx, "user created", slog.String("email", email))

	if s.hook != nil {
		if err := s.hook.AfterSignup(ctx, Contact{Name: name, Email: email, Password: password}); err != nil {
			s.events.AuthEvent("signup", OutcomeHookFailed)
			s.logger.ErrorContext(ctx, "signup hook failed", slog.String("email", email), slog.Any("error", err))
		}
	}
	s.events.AuthEvent("signup", OutcomeSuccess)
	return nil
}

// Refresh renews the session for a valid refresh token. The refresh token and
// its original expiry are kept as they are.
func (s *Service) Refresh(ctx context.Context, refreshToken, userAgent string) (*RefreshResult, error) {
	grant, ok := s.ValidateRefresh(ctx, refreshToken)
	if !ok {
		s.events.AuthEvent("refresh", OutcomeUnauthorized)
		return nil, shared.ErrUnauthorized
	}
	session := s.issuer.IssueSession()
	err := s.repo.UpdateSession(ctx, SessionUpdate{
		Email:         grant.Email,
		SessionToken:  session.Value,
		SessionExpiry: session.ExpiresAt,
		RefreshToken:  refreshToken,
		RefreshExpiry: grant.RefreshExpiry,
		UserAgent:     userAgent,
		LoginAt:       s.issuer.Now(),
	})
	if err != nil {
		s.events.AuthEvent("refresh", OutcomeError)
		if errors.Is(err, shared.ErrNotFound) {
			return nil, fmt.Errorf("refresh: user vanished before session update: %w", shared.ErrInternal)
		}
		return nil, fmt.Errorf("refresh: update session: %w", err)
	}
	s.events.AuthEvent("refresh", OutcomeSuccess)
	return &RefreshResult{
		Session: session,
		Refresh: Token{Value: refreshToken, ExpiresAt: grant.RefreshExpiry},
	}, nil
}

// IsSessionValid reports whether exactly one user holds token with a session
// expiry after now. Store failures count as invalid.
func (s *Service) IsSessionValid(ctx context.Context, token string) bool {
	if token == "" {
		return false
	}
	now := s.issuer.Now()
	users, err := s.repo.FindBySessionToken(ctx, token, now)
	if err != nil {
		s.logger.ErrorContext(ctx, "validate session", slog.Any("error", err))
		return false
	}
	if len(users) != 1 {
		return false
	}
	u := users[0]
	return u.SessionToken == token && u.SessionExpiry.After(now)
}

// ValidateRefresh resolves a refresh token to its owner and expiry. Store
// failures count as invalid.
func (s *Service) ValidateRefresh(ctx context.Context, token string) (*RefreshGrant, bool) {
	if token == "" {
		return nil, false
	}
	now := s.issuer.Now()
	users, err := s.repo.FindByRefreshToken(ctx, token, now)
	if err != nil {
		s.logger.ErrorContext(ctx, "validate refresh token", slog.Any("error", err))
		return nil, false
	}
	if len(users) != 1 {
		return nil, false
	}
	u := users[0]
	if u.Email == "" || u.RefreshToken != token || !u.RefreshExpiry.After(now) {
		return nil, false
	}
	return &RefreshGrant{Email: u.Email, RefreshExpiry: u.RefreshExpiry}, true
}

// recordFailedAttempt bumps the failed login counter. No lockout is derived
// from it.
func (s *Service) recordFailedAttempt(ctx context.Context, email string) {
	if err := s.repo.IncrementFailedAttempts(ctx, email); err != nil {
		s.logger.WarnContext(ctx, "increment failed login attempts", slog.Any("error", err))
	}
}
