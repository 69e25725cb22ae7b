// Package worker recomputes tracker assessments in the background and
// sweeps overdue medication doses.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/opensource-health/heron/internal/assessment"
	"github.com/opensource-health/heron/internal/domain"
	"github.com/opensource-health/heron/internal/tracker"
)

// Worker reassesses a user's domain whenever a tracker record is ingested.
type Worker struct {
	bus     domain.EventBus
	tracker *tracker.Service

	mu            sync.Mutex
	subscriptions []domain.TopicSubscription
	processed     atomic.Int64
	failed        atomic.Int64
	ctx           context.Context
	cancel        context.CancelFunc
}

// NewWorker creates a new async worker.
func NewWorker(bus domain.EventBus, trackerSvc *tracker.Service) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		bus:     bus,
		tracker: trackerSvc,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start subscribes to record events on the global scope.
func (w *Worker) Start() error {
	sub, err := w.bus.Subscribe(w.ctx, domain.GlobalScope, domain.TopicRecordIngested, w.handleRecord)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", domain.TopicRecordIngested, err)
	}

	w.mu.Lock()
	w.subscriptions = append(w.subscriptions, sub)
	w.mu.Unlock()

	slog.Info("worker started", "topic", domain.TopicRecordIngested)
	return nil
}

// handleRecord recomputes the assessment the record belongs to.
func (w *Worker) handleRecord(ctx context.Context, msg *domain.Message) error {
	start := time.Now()

	var ev domain.RecordEvent
	if err := json.Unmarshal(msg.Payload, &ev); err != nil {
		w.failed.Add(1)
		slog.Error("failed to parse record event",
			"message_id", msg.ID,
			"error", err,
		)
		return err
	}

	a, err := w.tracker.Assess(ctx, ev.UserID, ev.Domain, true)
	if err != nil {
		w.failed.Add(1)
		slog.Error("reassessment failed",
			"user_id", ev.UserID,
			"domain", ev.Domain,
			"error", err,
		)
		return err
	}
	w.processed.Add(1)

	if err := PublishAssessment(ctx, w.bus, a); err != nil {
		slog.Error("failed to publish assessment",
			"assessment_id", a.ID,
			"error", err,
		)
	}

	slog.Info("record reassessed",
		"user_id", ev.UserID,
		"domain", ev.Domain,
		"risk_level", a.RiskLevel,
		"score", a.Score,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// PublishAssessment announces a completed assessment on the global scope,
// and again on the high-risk topic when it moved the user into High.
func PublishAssessment(ctx context.Context, bus domain.EventBus, a *domain.Assessment) error {
	payload, err := json.Marshal(assessment.Event(a))
	if err != nil {
		return fmt.Errorf("failed to marshal assessment event: %w", err)
	}

	if err := bus.Publish(ctx, domain.GlobalScope, domain.TopicAssessmentCompleted, payload); err != nil {
		return err
	}
	if assessment.Escalated(a) {
		return bus.Publish(ctx, domain.GlobalScope, domain.TopicRiskHigh, payload)
	}
	return nil
}

// Stop gracefully stops the worker.
func (w *Worker) Stop() error {
	w.cancel()

	w.mu.Lock()
	defer w.mu.Unlock()

	for _, sub := range w.subscriptions {
		if err := sub.Unsubscribe(); err != nil {
			slog.Error("failed to unsubscribe",
				"topic", sub.Topic(),
				"error", err,
			)
		}
	}
	w.subscriptions = nil

	slog.Info("worker stopped")
	return nil
}

// Stats returns worker statistics.
type Stats struct {
	SubscriptionCount int      `json:"subscriptionCount"`
	Topics            []string `json:"topics"`
	Processed         int64    `json:"processed"`
	Failed            int64    `json:"failed"`
}

// GetStats returns current worker statistics.
func (w *Worker) GetStats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()

	topics := make([]string, len(w.subscriptions))
	for i, sub := range w.subscriptions {
		topics[i] = sub.Topic()
	}
	return Stats{
		SubscriptionCount: len(w.subscriptions),
		Topics:            topics,
		Processed:         w.processed.Load(),
		Failed:            w.failed.Load(),
	}
}
