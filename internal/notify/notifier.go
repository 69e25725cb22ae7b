package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/opensource-health/heron/internal/domain"
	"github.com/opensource-health/heron/internal/report"
)

// Notifier turns high-risk events into alert emails.
type Notifier struct {
	bus    domain.EventBus
	sender Sender
	to     []string

	mu   sync.Mutex
	sub  domain.TopicSubscription
	sent atomic.Int64
	errs atomic.Int64
}

// NewNotifier creates a notifier that mails to.
func NewNotifier(bus domain.EventBus, sender Sender, to []string) *Notifier {
	return &Notifier{bus: bus, sender: sender, to: to}
}

// Start subscribes to high-risk events.
func (n *Notifier) Start(ctx context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.sub != nil {
		return nil
	}
	sub, err := n.bus.Subscribe(ctx, domain.GlobalScope, domain.TopicRiskHigh, n.handle)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", domain.TopicRiskHigh, err)
	}
	n.sub = sub

	slog.Info("notifier started", "recipients", len(n.to))
	return nil
}

// Stop unsubscribes from high-risk events.
func (n *Notifier) Stop() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.sub == nil {
		return nil
	}
	err := n.sub.Unsubscribe()
	n.sub = nil
	return err
}

func (n *Notifier) handle(ctx context.Context, msg *domain.Message) error {
	var ev domain.AssessmentEvent
	if err := json.Unmarshal(msg.Payload, &ev); err != nil {
		n.errs.Add(1)
		return fmt.Errorf("failed to parse assessment event: %w", err)
	}
	return n.Notify(ctx, ev)
}

// Notify emails an alert for one assessment event.
func (n *Notifier) Notify(ctx context.Context, ev domain.AssessmentEvent) error {
	if len(n.to) == 0 {
		slog.Warn("high risk alert has no recipients", "assessment_id", ev.AssessmentID)
		return nil
	}

	email, err := alertEmail(n.to, ev)
	if err != nil {
		n.errs.Add(1)
		return err
	}

	id, err := n.sender.Send(ctx, email)
	if err != nil {
		n.errs.Add(1)
		slog.Error("failed to send alert",
			"assessment_id", ev.AssessmentID,
			"user_id", ev.UserID,
			"error", err,
		)
		return err
	}
	n.sent.Add(1)

	slog.Info("high risk alert sent",
		"assessment_id", ev.AssessmentID,
		"user_id", ev.UserID,
		"domain", ev.Domain,
		"message_id", id,
	)
	return nil
}

// Stats reports sent and failed alerts.
func (n *Notifier) Stats() (sent, failed int64) {
	return n.sent.Load(), n.errs.Load()
}

func alertEmail(to []string, ev domain.AssessmentEvent) (Email, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "# High %s risk\n\n", strings.ToUpper(string(ev.Domain)))
	fmt.Fprintf(&b, "User `%s` scored **%d** on assessment `%s`.\n\n", ev.UserID, ev.Score, ev.AssessmentID)
	if ev.PreviousRiskLevel != "" {
		fmt.Fprintf(&b, "Previous risk level: %s.\n\n", ev.PreviousRiskLevel)
	}
	if len(ev.Factors) > 0 {
		b.WriteString("## Factors\n\n")
		for _, f := range ev.Factors {
			fmt.Fprintf(&b, "- %s\n", f)
		}
		b.WriteString("\n")
	}
	if len(ev.UrgentActions) > 0 {
		b.WriteString("## Urgent actions\n\n")
		for _, a := range ev.UrgentActions {
			fmt.Fprintf(&b, "- %s\n", a)
		}
	}

	body, err := report.MarkdownToHTML(b.String())
	if err != nil {
		return Email{}, err
	}
	return Email{
		To:      to,
		Subject: fmt.Sprintf("[Heron] High %s risk for user %s", ev.Domain, ev.UserID),
		HTML:    string(body),
	}, nil
}
