// Package notify emails the care team when an assessment comes back High.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/resend/resend-go/v2"
)

// Email is one outbound alert.
type Email struct {
	To      []string
	Subject string
	HTML    string
}

// Sender delivers emails and returns the provider message id.
type Sender interface {
	Send(ctx context.Context, e Email) (string, error)
}

// ResendSender sends emails through the Resend API.
type ResendSender struct {
	client *resend.Client
	from   string
}

// NewResendSender creates a sender for apiKey using from as the sender
// address.
func NewResendSender(apiKey, from string) *ResendSender {
	return &ResendSender{
		client: resend.NewClient(apiKey),
		from:   from,
	}
}

// Send queues one email with Resend.
func (s *ResendSender) Send(ctx context.Context, e Email) (string, error) {
	sent, err := s.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    s.from,
		To:      e.To,
		Subject: e.Subject,
		Html:    e.HTML,
	})
	if err != nil {
		return "", fmt.Errorf("resend send failed: %w", err)
	}
	return sent.Id, nil
}

// NoopSender logs alerts instead of delivering them.
type NoopSender struct{}

// Send logs the email.
func (NoopSender) Send(_ context.Context, e Email) (string, error) {
	slog.Info("alert email skipped, no sender configured", "to", e.To, "subject", e.Subject)
	return fmt.Sprintf("noop-%d", time.Now().UnixNano()), nil
}

// NewSender returns a Resend sender when an API key is configured and a
// NoopSender otherwise.
func NewSender(apiKey, from string) Sender {
	if apiKey == "" {
		return NoopSender{}
	}
	return NewResendSender(apiKey, from)
}
