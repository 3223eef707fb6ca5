package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/notiongate/notiongate/internal/notion"
	"github.com/notiongate/notiongate/internal/shared"
)

// Property names of the Notion users database.
const (
	PropName           = "Name"
	PropEmail          = "Email"
	PropPassword       = "Password"
	PropSessionToken   = "Session Token"
	PropSessionExpiry  = "Session Expiry"
	PropRefreshToken   = "Refresh Token"
	PropRefreshExpiry  = "Refresh Token Expiry"
	PropLastLogin      = "Last Login"
	PropUserAgent      = "User Agent"
	PropFailedAttempts = "Failed Login Attempts"
	PropCreatedAt      = "Created At"
)

// NotionRepository implements Repository on top of a Notion database where
// every page is one user. Notion offers no uniqueness constraint, so
// CreateUser checks for an existing email first; two concurrent signups for
// the same address can both pass that check.
type NotionRepository struct {
	client     *notion.Client
	databaseID string
}

// NewNotionRepository constructs a Notion backed repository.
func NewNotionRepository(client *notion.Client, databaseID string) *NotionRepository {
	return &NotionRepository{client: client, databaseID: databaseID}
}

// FindByEmail fetches a user by email.
func (r *NotionRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	page, err := r.pageByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	user := userFromPage(*page)
	return &user, nil
}

// CreateUser adds a user page unless the email is already registered.
func (r *NotionRepository) CreateUser(ctx context.Context, user NewUser) error {
	if _, err := r.pageByEmail(ctx, user.Email); err == nil {
		return shared.ErrConflict
	} else if !errors.Is(err, shared.ErrNotFound) {
		return err
	}
	_, err := r.client.CreatePage(ctx, r.databaseID, map[string]notion.PropertyValue{
		PropName:           notion.Title(user.Name),
		PropEmail:          notion.Email(user.Email),
		PropPassword:       notion.Text(user.PasswordHash),
		PropFailedAttempts: notion.Number(0),
		PropCreatedAt:      notion.Date(user.CreatedAt),
	})
	if err != nil {
		return shared.Upstream("notion: create user", err)
	}
	return nil
}

// UpdateSession overwrites the session fields and resets failed attempts.
func (r *NotionRepository) UpdateSession(ctx context.Context, update SessionUpdate) error {
	page, err := r.pageByEmail(ctx, update.Email)
	if err != nil {
		return err
	}
	_, err = r.client.UpdatePage(ctx, page.ID, map[string]notion.PropertyValue{
		PropSessionToken:   notion.Text(update.SessionToken),
		PropRefreshToken:   notion.Text(update.RefreshToken),
		PropSessionExpiry:  notion.Date(update.SessionExpiry),
		PropRefreshExpiry:  notion.Date(update.RefreshExpiry),
		PropLastLogin:      notion.Date(update.LoginAt),
		PropUserAgent:      notion.Text(truncateUserAgent(update.UserAgent)),
		PropFailedAttempts: notion.Number(0),
	})
	if err != nil {
		return shared.Upstream("notion: update session", err)
	}
	return nil
}

// IncrementFailedAttempts bumps the failed login counter. It is a
// read-modify-write and can lose increments under concurrency.
func (r *NotionRepository) IncrementFailedAttempts(ctx context.Context, email string) error {
	page, err := r.pageByEmail(ctx, email)
	if errors.Is(err, shared.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	current, _ := page.NumberValue(PropFailedAttempts)
	_, err = r.client.UpdatePage(ctx, page.ID, map[string]notion.PropertyValue{
		PropFailedAttempts: notion.Number(current + 1),
	})
	if err != nil {
		return shared.Upstream("notion: increment failed attempts", err)
	}
	return nil
}

// FindBySessionToken returns users whose session token equals token and whose
// session expiry is after now.
func (r *NotionRepository) FindBySessionToken(ctx context.Context, token string, now time.Time) ([]User, error) {
	return r.findByToken(ctx, PropSessionToken, PropSessionExpiry, token, now)
}

// FindByRefreshToken returns users whose refresh token equals token and whose
// refresh expiry is after now.
func (r *NotionRepository) FindByRefreshToken(ctx context.Context, token string, now time.Time) ([]User, error) {
	return r.findByToken(ctx, PropRefreshToken, PropRefreshExpiry, token, now)
}

func (r *NotionRepository) findByToken(ctx context.Context, tokenProp, expiryProp, token string, now time.Time) ([]User, error) {
	filter := notion.And(notion.RichTextEquals(tokenProp, token), notion.DateAfter(expiryProp, now))
	pages, err := r.client.QueryDatabase(ctx, r.databaseID, &filter)
	if err != nil {
		return nil, shared.Upstream(fmt.Sprintf("notion: query %s", tokenProp), err)
	}
	users := make([]User, 0, len(pages))
	for _, p := range pages {
		users = append(users, userFromPage(p))
	}
	return users, nil
}

func (r *NotionRepository) pageByEmail(ctx context.Context, email string) (*notion.Page, error) {
	filter := notion.EmailEquals(PropEmail, email)
	pages, err := r.client.QueryDatabase(ctx, r.databaseID, &filter)
	if err != nil {
		return nil, shared.Upstream("notion: query email", err)
	}
	if len(pages) == 0 {
		return nil, shared.ErrNotFound
	}
	return &pages[0], nil
}

func userFromPage(p notion.Page) User {
	u := User{
		ID:           p.ID,
		Name:         p.Text(PropName),
		Email:        p.EmailValue(PropEmail),
		PasswordHash: p.Text(PropPassword),
		SessionToken: p.Text(PropSessionToken),
		RefreshToken: p.Text(PropRefreshToken),
		UserAgent:    p.Text(PropUserAgent),
	}
	u.SessionExpiry, _ = p.Time(PropSessionExpiry)
	u.RefreshExpiry, _ = p.Time(PropRefreshExpiry)
	u.LastLogin, _ = p.Time(PropLastLogin)
	u.CreatedAt, _ = p.Time(PropCreatedAt)
	if n, ok := p.NumberValue(PropFailedAttempts); ok {
		u.FailedLoginAttempts = int(n)
	}
	return u
}

var _ Repository = (*NotionRepository)(nil)
