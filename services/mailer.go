package services

import (
	"context"
	"fmt"
	"law_consult_app/config"

	"github.com/resend/resend-go/v2"
	"go.uber.org/zap"
)

// Mailer delivers a rendered email
type Mailer interface {
	Send(ctx context.Context, email *Email) error
}

// NewMailer returns the console mailer in test mode and the Resend mailer otherwise
func NewMailer(cfg *config.Config, log *zap.Logger) (Mailer, error) {
	if cfg.EmailTestMode {
		return &ConsoleMailer{Log: log}, nil
	}
	if cfg.ResendAPIKey == "" {
		return nil, fmt.Errorf("RESEND_API_KEY not configured")
	}
	return &ResendMailer{
		Client: resend.NewClient(cfg.ResendAPIKey),
		From:   fmt.Sprintf("%s <%s>", cfg.EmailFromName, cfg.EmailFrom),
		Log:    log,
	}, nil
}

// ResendMailer sends through the Resend API
type ResendMailer struct {
	Client *resend.Client
	From   string
	Log    *zap.Logger
}

func (m *ResendMailer) Send(ctx context.Context, email *Email) error {
	params := &resend.SendEmailRequest{
		From:    m.From,
		To:      email.To,
		Subject: email.Subject,
		Html:    email.HTMLBody,
		Text:    email.TextBody,
	}
	if params.Html == "" && params.Text == "" {
		return fmt.Errorf("email must have either HTMLBody or TextBody")
	}

	sent, err := m.Client.Emails.SendWithContext(ctx, params)
	if err != nil {
		return fmt.Errorf("failed to send email via Resend: %w", err)
	}

	m.Log.Info("email sent", zap.String("resend_id", sent.Id), zap.Strings("to", email.To))
	return nil
}

// ConsoleMailer logs emails instead of sending them (EMAIL_TEST_MODE)
type ConsoleMailer struct {
	Log *zap.Logger
}

func (m *ConsoleMailer) Send(ctx context.Context, email *Email) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.Log.Info("email logged (test mode, not sent)",
		zap.Strings("to", email.To),
		zap.String("subject", email.Subject),
		zap.String("text", email.TextBody),
		zap.String("html", truncate(email.HTMLBody, 500)))
	return nil
}

// truncate truncates a string to a maximum length
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen]
}
