package notify

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opensource-health/heron/internal/bus"
	"github.com/opensource-health/heron/internal/domain"
)

type recordingSender struct {
	mu     sync.Mutex
	emails []Email
	err    error
	sent   chan struct{}
}

func newRecordingSender() *recordingSender {
	return &recordingSender{sent: make(chan struct{}, 10)}
}

func (s *recordingSender) Send(_ context.Context, e Email) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return "", s.err
	}
	s.emails = append(s.emails, e)
	s.sent <- struct{}{}
	return "msg-1", nil
}

func highEvent() domain.AssessmentEvent {
	return domain.AssessmentEvent{
		AssessmentID:  "a-1",
		UserID:        "user-1",
		Domain:        domain.DomainMood,
		RiskLevel:     domain.TierHigh,
		Score:         13,
		Factors:       []string{"Crisis reported", "High anxiety"},
		UrgentActions: []string{"Contact a crisis line now"},
	}
}

func TestNotifier(t *testing.T) {
	ctx := context.Background()

	t.Run("SendsOnHighRisk", func(t *testing.T) {
		eventBus := bus.NewChannelBus(10)
		defer eventBus.Close()
		sender := newRecordingSender()

		n := NewNotifier(eventBus, sender, []string{"care@example.org"})
		require.NoError(t, n.Start(ctx))
		defer n.Stop()

		payload, _ := json.Marshal(highEvent())
		require.NoError(t, eventBus.Publish(ctx, domain.GlobalScope, domain.TopicRiskHigh, payload))

		select {
		case <-sender.sent:
		case <-time.After(time.Second):
			t.Fatal("timeout waiting for alert")
		}

		sender.mu.Lock()
		defer sender.mu.Unlock()
		require.Len(t, sender.emails, 1)
		e := sender.emails[0]
		assert.Equal(t, []string{"care@example.org"}, e.To)
		assert.Equal(t, "[Heron] High mood risk for user user-1", e.Subject)
		assert.Contains(t, e.HTML, "<h1>High MOOD risk</h1>")
		assert.Contains(t, e.HTML, "<li>Crisis reported</li>")
		assert.Contains(t, e.HTML, "<li>Contact a crisis line now</li>")

		sent, failed := n.Stats()
		assert.Equal(t, int64(1), sent)
		assert.Equal(t, int64(0), failed)
	})

	t.Run("MentionsPreviousTier", func(t *testing.T) {
		sender := newRecordingSender()
		n := NewNotifier(bus.NewChannelBus(10), sender, []string{"care@example.org"})

		ev := highEvent()
		ev.PreviousRiskLevel = domain.TierModerate
		require.NoError(t, n.Notify(ctx, ev))

		sender.mu.Lock()
		defer sender.mu.Unlock()
		require.Len(t, sender.emails, 1)
		assert.Contains(t, sender.emails[0].HTML, "Previous risk level: Moderate.")
	})

	t.Run("NoRecipients", func(t *testing.T) {
		sender := newRecordingSender()
		n := NewNotifier(bus.NewChannelBus(10), sender, nil)

		require.NoError(t, n.Notify(ctx, highEvent()))
		assert.Empty(t, sender.emails)
	})

	t.Run("SenderError", func(t *testing.T) {
		sender := newRecordingSender()
		sender.err = errors.New("quota exceeded")
		n := NewNotifier(bus.NewChannelBus(10), sender, []string{"care@example.org"})

		assert.Error(t, n.Notify(ctx, highEvent()))
		_, failed := n.Stats()
		assert.Equal(t, int64(1), failed)
	})

	t.Run("StartTwice", func(t *testing.T) {
		eventBus := bus.NewChannelBus(10)
		defer eventBus.Close()
		n := NewNotifier(eventBus, NoopSender{}, []string{"care@example.org"})

		require.NoError(t, n.Start(ctx))
		require.NoError(t, n.Start(ctx))
		require.NoError(t, n.Stop())
		require.NoError(t, n.Stop())
	})
}

func TestNewSender(t *testing.T) {
	_, ok := NewSender("", "alerts@example.org").(NoopSender)
	assert.True(t, ok, "expected NoopSender without an API key")

	_, ok = NewSender("re_test", "alerts@example.org").(*ResendSender)
	assert.True(t, ok, "expected ResendSender with an API key")

	id, err := NoopSender{}.Send(context.Background(), Email{Subject: "x"})
	require.NoError(t, err)
	assert.NotEmpty(t, id)
}
