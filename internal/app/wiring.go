package app

import (
	"context"
	"log/slog"
	"strings"

	"github.com/notiongate/notiongate/internal/auth"
	"github.com/notiongate/notiongate/internal/marketing"
	"github.com/notiongate/notiongate/internal/notion"
)

// NewNotionClient builds the Notion API client from configuration.
func NewNotionClient(cfg *Config) *notion.Client {
	return notion.NewClient(notion.Options{
		BaseURL: cfg.NotionBaseURL,
		Token:   cfg.NotionAPIKey,
		Version: cfg.NotionVersion,
		Timeout: cfg.NotionTimeout,
	})
}

// NewMarketingSink returns the contact channel selected by MARKETING_DRIVER.
func NewMarketingSink(cfg *Config, logger *slog.Logger) (marketing.Sink, error) {
	switch cfg.MarketingDriver {
	case MarketingActiveCampaign:
		return marketing.NewActiveCampaign(marketing.ActiveCampaignConfig{
			BaseURL:         cfg.ActiveCampaignAPIURL,
			APIKey:          cfg.ActiveCampaignAPIKey,
			PasswordFieldID: cfg.ActiveCampaignPasswordFieldID,
			TagID:           cfg.ActiveCampaignTagID,
		}, logger)
	case MarketingSMTP:
		return marketing.NewMailer(marketing.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
			LoginURL: strings.TrimRight(cfg.AppBaseURL, "/") + "/",
		})
	default:
		return marketing.Noop{}, nil
	}
}

// InlineSignupHook delivers the contact synchronously within the signup
// request.
func InlineSignupHook(sink marketing.Sink) auth.SignupHook {
	return auth.SignupHookFunc(func(ctx context.Context, contact auth.Contact) error {
		return sink.SyncContact(ctx, marketing.Contact{
			Name:     contact.Name,
			Email:    contact.Email,
			Password: contact.Password,
		})
	})
}
