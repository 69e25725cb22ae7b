package worker

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/opensource-health/heron/internal/assessment"
	"github.com/opensource-health/heron/internal/bus"
	"github.com/opensource-health/heron/internal/cache"
	"github.com/opensource-health/heron/internal/catalog"
	"github.com/opensource-health/heron/internal/domain"
	"github.com/opensource-health/heron/internal/repository"
	"github.com/opensource-health/heron/internal/rules"
	"github.com/opensource-health/heron/internal/tracker"
)

func newTestTracker(t *testing.T, eventBus domain.EventBus) (*tracker.Service, *repository.SQLRepository) {
	t.Helper()

	repo, err := repository.New(domain.RepositoryConfig{
		Driver:     "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "worker.db"),
	})
	if err != nil {
		t.Fatalf("failed to create repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	engine, err := rules.NewEngine()
	if err != nil {
		t.Fatalf("failed to create engine: %v", err)
	}
	if err := engine.LoadPacks(catalog.Builtin()); err != nil {
		t.Fatalf("failed to load packs: %v", err)
	}

	svc := tracker.NewService(repo, cache.NewLRUCache(100), eventBus, assessment.NewProcessor(engine), time.Minute)
	return svc, repo
}

func collect(t *testing.T, eventBus domain.EventBus, topic string) <-chan domain.AssessmentEvent {
	t.Helper()
	ch := make(chan domain.AssessmentEvent, 10)
	_, err := eventBus.Subscribe(context.Background(), domain.GlobalScope, topic, func(ctx context.Context, msg *domain.Message) error {
		var ev domain.AssessmentEvent
		if err := json.Unmarshal(msg.Payload, &ev); err != nil {
			return err
		}
		ch <- ev
		return nil
	})
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}
	return ch
}

func TestWorker(t *testing.T) {
	t.Run("StartAndStop", func(t *testing.T) {
		eventBus := bus.NewChannelBus(100)
		defer eventBus.Close()
		svc, _ := newTestTracker(t, eventBus)

		w := NewWorker(eventBus, svc)
		if err := w.Start(); err != nil {
			t.Fatalf("Start failed: %v", err)
		}

		stats := w.GetStats()
		if stats.SubscriptionCount != 1 || stats.Topics[0] != domain.TopicRecordIngested {
			t.Errorf("unexpected stats after start: %+v", stats)
		}

		if err := w.Stop(); err != nil {
			t.Errorf("Stop failed: %v", err)
		}
		if got := w.GetStats().SubscriptionCount; got != 0 {
			t.Errorf("expected 0 subscriptions after stop, got %d", got)
		}
	})

	t.Run("ReassessesOnRecord", func(t *testing.T) {
		eventBus := bus.NewChannelBus(100)
		defer eventBus.Close()
		svc, repo := newTestTracker(t, eventBus)

		completed := collect(t, eventBus, domain.TopicAssessmentCompleted)
		high := collect(t, eventBus, domain.TopicRiskHigh)

		w := NewWorker(eventBus, svc)
		if err := w.Start(); err != nil {
			t.Fatalf("Start failed: %v", err)
		}
		defer w.Stop()

		ctx := context.Background()
		err := svc.RecordMood(ctx, "user-1", &domain.MoodEntry{Mood: 1, Anxiety: 9, Stress: 9, Energy: 1, Crisis: true})
		if err != nil {
			t.Fatalf("record mood failed: %v", err)
		}

		var ev domain.AssessmentEvent
		select {
		case ev = <-completed:
		case <-time.After(2 * time.Second):
			t.Fatal("timeout waiting for assessment event")
		}
		if ev.UserID != "user-1" || ev.Domain != domain.DomainMood {
			t.Errorf("unexpected event: %+v", ev)
		}
		if ev.RiskLevel != domain.TierHigh || len(ev.UrgentActions) == 0 {
			t.Errorf("expected High with urgent actions, got %s %v", ev.RiskLevel, ev.UrgentActions)
		}

		select {
		case urgent := <-high:
			if urgent.AssessmentID != ev.AssessmentID {
				t.Errorf("expected the same assessment on the high-risk topic")
			}
		case <-time.After(2 * time.Second):
			t.Fatal("timeout waiting for high-risk event")
		}

		stored, err := repo.GetAssessment(ctx, "user-1", ev.AssessmentID)
		if err != nil {
			t.Fatalf("expected reassessment to be stored: %v", err)
		}
		if stored.Metadata.Source != domain.SourceTracker {
			t.Errorf("expected tracker source, got %s", stored.Metadata.Source)
		}
		if got := w.GetStats().Processed; got != 1 {
			t.Errorf("expected 1 processed record, got %d", got)
		}
	})

	t.Run("AlertsOnlyOnEscalation", func(t *testing.T) {
		eventBus := bus.NewChannelBus(100)
		defer eventBus.Close()
		svc, _ := newTestTracker(t, eventBus)

		completed := collect(t, eventBus, domain.TopicAssessmentCompleted)
		high := collect(t, eventBus, domain.TopicRiskHigh)

		w := NewWorker(eventBus, svc)
		if err := w.Start(); err != nil {
			t.Fatalf("Start failed: %v", err)
		}
		defer w.Stop()

		ctx := context.Background()
		record := func() domain.AssessmentEvent {
			t.Helper()
			err := svc.RecordMood(ctx, "user-1", &domain.MoodEntry{Mood: 1, Anxiety: 9, Stress: 9, Energy: 1, Crisis: true})
			if err != nil {
				t.Fatalf("record mood failed: %v", err)
			}
			select {
			case ev := <-completed:
				return ev
			case <-time.After(2 * time.Second):
				t.Fatal("timeout waiting for assessment event")
			}
			return domain.AssessmentEvent{}
		}

		first := record()
		select {
		case ev := <-high:
			if ev.AssessmentID != first.AssessmentID || ev.PreviousRiskLevel != "" {
				t.Errorf("unexpected first alert: %+v", ev)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("timeout waiting for high-risk event")
		}

		second := record()
		if second.RiskLevel != domain.TierHigh || second.PreviousRiskLevel != domain.TierHigh {
			t.Errorf("expected High following High, got %s after %s", second.RiskLevel, second.PreviousRiskLevel)
		}
		select {
		case ev := <-high:
			t.Errorf("unexpected repeat alert: %+v", ev)
		case <-time.After(50 * time.Millisecond):
		}
	})

	t.Run("LowRiskIsNotUrgent", func(t *testing.T) {
		eventBus := bus.NewChannelBus(100)
		defer eventBus.Close()
		svc, _ := newTestTracker(t, eventBus)

		completed := collect(t, eventBus, domain.TopicAssessmentCompleted)
		high := collect(t, eventBus, domain.TopicRiskHigh)

		w := NewWorker(eventBus, svc)
		w.Start()
		defer w.Stop()

		err := svc.RecordSleep(context.Background(), "user-1", &domain.SleepEntry{DurationHours: 8, Quality: 8})
		if err != nil {
			t.Fatalf("record sleep failed: %v", err)
		}

		select {
		case ev := <-completed:
			if ev.RiskLevel != domain.TierLow {
				t.Errorf("expected Low, got %s", ev.RiskLevel)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("timeout waiting for assessment event")
		}

		select {
		case ev := <-high:
			t.Errorf("unexpected high-risk event: %+v", ev)
		case <-time.After(50 * time.Millisecond):
		}
	})

	t.Run("BadPayload", func(t *testing.T) {
		eventBus := bus.NewChannelBus(100)
		defer eventBus.Close()
		svc, _ := newTestTracker(t, eventBus)

		w := NewWorker(eventBus, svc)
		err := w.handleRecord(context.Background(), &domain.Message{ID: "m-1", Payload: []byte("{")})
		if err == nil {
			t.Error("expected parse error")
		}
		if got := w.GetStats().Failed; got != 1 {
			t.Errorf("expected 1 failure, got %d", got)
		}
	})
}
