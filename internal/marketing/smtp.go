package marketing

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"

	"gopkg.in/gomail.v2"
)

// SMTPConfig holds SMTP delivery settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	Subject  string
	LoginURL string
}

func (c SMTPConfig) validate() error {
	if c.Host == "" {
		return errors.New("missing SMTP_HOST")
	}
	if c.Port == 0 {
		return errors.New("missing SMTP_PORT")
	}
	if c.From == "" {
		return errors.New("missing SMTP_FROM")
	}
	return nil
}

type sender interface {
	DialAndSend(m ...*gomail.Message) error
}

// Mailer emails the generated credentials to the new user.
type Mailer struct {
	config SMTPConfig
	dialer sender
}

var credentialsTemplate = template.Must(template.New("credentials").Parse(`<p>Hi {{.FirstName}},</p>
<p>Your access has been created.</p>
<p>Email: <strong>{{.Email}}</strong><br>Password: <strong>{{.Password}}</strong></p>
{{if .LoginURL}}<p><a href="{{.LoginURL}}">Sign in</a></p>{{end}}`))

// NewMailer constructs a Mailer.
func NewMailer(cfg SMTPConfig) (*Mailer, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("marketing: smtp config: %w", err)
	}
	if cfg.Subject == "" {
		cfg.Subject = "Your access details"
	}
	return &Mailer{config: cfg, dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)}, nil
}

// SyncContact sends the credentials email.
func (m *Mailer) SyncContact(ctx context.Context, contact Contact) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg, err := m.message(contact)
	if err != nil {
		return err
	}
	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("marketing: send credentials: %w", err)
	}
	return nil
}

func (m *Mailer) message(contact Contact) (*gomail.Message, error) {
	if contact.Email == "" {
		return nil, errors.New("marketing: no recipient")
	}
	first, _ := SplitName(contact.Name)
	var html bytes.Buffer
	err := credentialsTemplate.Execute(&html, map[string]string{
		"FirstName": first,
		"Email":     contact.Email,
		"Password":  contact.Password,
		"LoginURL":  m.config.LoginURL,
	})
	if err != nil {
		return nil, fmt.Errorf("marketing: render credentials: %w", err)
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.config.From)
	msg.SetHeader("To", contact.Email)
	msg.SetHeader("Subject", m.config.Subject)
	msg.SetBody("text/html", html.String())
	msg.AddAlternative("text/plain", fmt.Sprintf("Email: %s\nPassword: %s\n", contact.Email, contact.Password))
	return msg, nil
}

var _ Sink = (*Mailer)(nil)
