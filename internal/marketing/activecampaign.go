package marketing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrNotConfigured is returned when required ActiveCampaign settings are missing.
var ErrNotConfigured = errors.New("marketing: activecampaign not configured")

// ActiveCampaignConfig holds the account settings.
type ActiveCampaignConfig struct {
	BaseURL         string
	APIKey          string
	PasswordFieldID string
	TagID           string
	Timeout         time.Duration
	HTTPClient      *http.Client
}

// ActiveCampaign syncs contacts through the ActiveCampaign v3 API.
type ActiveCampaign struct {
	baseURL       string
	apiKey        string
	passwordField string
	tagID         string
	httpClient    *http.Client
	logger        *slog.Logger
}

// NewActiveCampaign constructs the client.
func NewActiveCampaign(cfg ActiveCampaignConfig, logger *slog.Logger) (*ActiveCampaign, error) {
	if cfg.BaseURL == "" || cfg.APIKey == "" || cfg.PasswordFieldID == "" {
		return nil, ErrNotConfigured
	}
	client := cfg.HTTPClient
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ActiveCampaign{
		baseURL:       strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:        cfg.APIKey,
		passwordField: cfg.PasswordFieldID,
		tagID:         cfg.TagID,
		httpClient:    client,
		logger:        logger,
	}, nil
}

type acContact struct {
	ID          string         `json:"id,omitempty"`
	Email       string         `json:"email,omitempty"`
	FirstName   string         `json:"firstName"`
	LastName    string         `json:"lastName"`
	FieldValues []acFieldValue `json:"fieldValues,omitempty"`
}

type acFieldValue struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

type acContactEnvelope struct {
	Contact acContact `json:"contact"`
}

type acContactList struct {
	Contacts []acContact `json:"contacts"`
}

type acContactTag struct {
	Contact string `json:"contact"`
	Tag     string `json:"tag"`
}

// SyncContact updates the contact when it already exists, creates it
// otherwise, then applies the configured tag. A tagging failure is logged
// and does not fail the sync.
func (c *ActiveCampaign) SyncContact(ctx context.Context, contact Contact) error {
	id, err := c.FindContact(ctx, contact.Email)
	if err != nil {
		return err
	}
	if id != "" {
		if err := c.UpdateContact(ctx, id, contact); err != nil {
			return err
		}
	} else {
		id, err = c.CreateContact(ctx, contact)
		if err != nil {
			return err
		}
	}
	if c.tagID == "" {
		return nil
	}
	if err := c.AddTag(ctx, id, c.tagID); err != nil {
		c.logger.WarnContext(ctx, "activecampaign tag contact", slog.String("contact_id", id), slog.Any("error", err))
	}
	return nil
}

// FindContact returns the id of the contact with email, or "" when none.
func (c *ActiveCampaign) FindContact(ctx context.Context, email string) (string, error) {
	var list acContactList
	if err := c.do(ctx, http.MethodGet, "/api/3/contacts?email="+url.QueryEscape(email), nil, &list); err != nil {
		return "", fmt.Errorf("find contact: %w", err)
	}
	if len(list.Contacts) == 0 {
		return "", nil
	}
	return list.Contacts[0].ID, nil
}

// CreateContact creates a contact and returns its id.
func (c *ActiveCampaign) CreateContact(ctx context.Context, contact Contact) (string, error) {
	body := acContactEnvelope{Contact: c.payload(contact)}
	body.Contact.Email = contact.Email
	var out acContactEnvelope
	if err := c.do(ctx, http.MethodPost, "/api/3/contacts", body, &out); err != nil {
		return "", fmt.Errorf("create contact: %w", err)
	}
	if out.Contact.ID == "" {
		return "", errors.New("create contact: response without id")
	}
	return out.Contact.ID, nil
}

// UpdateContact overwrites name and password field of contact id.
func (c *ActiveCampaign) UpdateContact(ctx context.Context, id string, contact Contact) error {
	body := acContactEnvelope{Contact: c.payload(contact)}
	if err := c.do(ctx, http.MethodPut, "/api/3/contacts/"+url.PathEscape(id), body, nil); err != nil {
		return fmt.Errorf("update contact: %w", err)
	}
	return nil
}

// AddTag tags contact id.
func (c *ActiveCampaign) AddTag(ctx context.Context, id, tagID string) error {
	body := map[string]acContactTag{"contactTag": {Contact: id, Tag: tagID}}
	if err := c.do(ctx, http.MethodPost, "/api/3/contactTags", body, nil); err != nil {
		return fmt.Errorf("add tag: %w", err)
	}
	return nil
}

func (c *ActiveCampaign) payload(contact Contact) acContact {
	first, last := SplitName(contact.Name)
	return acContact{
		FirstName:   first,
		LastName:    last,
		FieldValues: []acFieldValue{{Field: c.passwordField, Value: contact.Password}},
	}
}

func (c *ActiveCampaign) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Api-Token", c.apiKey)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return fmt.Errorf("activecampaign: %s %s: status %d", method, strings.SplitN(path, "?", 2)[0], resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("activecampaign: decode response: %w", err)
	}
	return nil
}

var _ Sink = (*ActiveCampaign)(nil)
