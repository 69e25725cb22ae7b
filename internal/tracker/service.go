// Package tracker stores self-service tracker records and builds the
// observation sets the scoring engine consumes from them.
package tracker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/opensource-health/heron/internal/assessment"
	"github.com/opensource-health/heron/internal/domain"
)

// ErrInvalidRecord is returned when a tracker record fails validation.
var ErrInvalidRecord = errors.New("invalid tracker record")

// ErrNotTracked is returned for domains without tracker records.
var ErrNotTracked = errors.New("domain has no tracker records")

// Service records tracker entries and assesses users from their history.
type Service struct {
	repo      domain.Repository
	cache     domain.Cache
	bus       domain.EventBus
	processor *assessment.Processor
	ttl       time.Duration
	now       func() time.Time
}

// NewService creates a new tracker service. cache and bus may be nil.
func NewService(repo domain.Repository, cache domain.Cache, bus domain.EventBus, processor *assessment.Processor, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Service{
		repo:      repo,
		cache:     cache,
		bus:       bus,
		processor: processor,
		ttl:       ttl,
		now:       time.Now,
	}
}

// Tracked reports whether observations for id are built from records.
func Tracked(id domain.DomainID) bool {
	switch id {
	case domain.DomainMood, domain.DomainSleep, domain.DomainAdherence, domain.DomainVaccine:
		return true
	default:
		return false
	}
}

// Observations builds the observation set for a user's tracked domain.
func (s *Service) Observations(ctx context.Context, userID string, id domain.DomainID) (domain.Observations, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrInvalidRecord)
	}

	switch id {
	case domain.DomainMood:
		entries, err := s.repo.ListMoodEntries(ctx, userID, MoodWindow)
		if err != nil {
			return nil, fmt.Errorf("failed to list mood entries: %w", err)
		}
		return MoodObservations(entries), nil

	case domain.DomainSleep:
		entries, err := s.repo.ListSleepEntries(ctx, userID, SleepWindow)
		if err != nil {
			return nil, fmt.Errorf("failed to list sleep entries: %w", err)
		}
		return SleepObservations(entries), nil

	case domain.DomainAdherence:
		logs, err := s.repo.ListDoseLogs(ctx, userID, s.now().Add(-AdherenceWindow))
		if err != nil {
			return nil, fmt.Errorf("failed to list dose logs: %w", err)
		}
		return AdherenceObservations(logs), nil

	case domain.DomainVaccine:
		doses, err := s.repo.ListVaccineDoses(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("failed to list vaccine doses: %w", err)
		}
		return VaccineObservations(doses, s.now()), nil

	default:
		return nil, fmt.Errorf("%w: %s", ErrNotTracked, id)
	}
}

// Assess returns the user's current assessment for a tracked domain. A
// cached result is served unless refresh is set or the processor reports it
// stale; fresh results are stored and cached.
func (s *Service) Assess(ctx context.Context, userID string, id domain.DomainID, refresh bool) (*domain.Assessment, error) {
	if !refresh && s.cache != nil {
		if cached, err := s.cache.GetAssessment(ctx, userID, id); err == nil && s.processor.Current(cached) {
			return cached, nil
		}
	}

	obs, err := s.Observations(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	a, err := s.processor.Process(ctx, &assessment.Input{
		UserID:       userID,
		Domain:       id,
		Observations: obs,
		Source:       domain.SourceTracker,
	})
	if err != nil {
		return nil, err
	}

	assessment.LinkPrevious(ctx, s.repo, a)
	if err := s.repo.SaveAssessment(ctx, userID, a); err != nil {
		return nil, fmt.Errorf("failed to save assessment: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.SetAssessment(ctx, userID, a, s.ttl); err != nil {
			slog.Warn("failed to cache assessment", "user_id", userID, "domain", id, "error", err)
		}
	}

	return a, nil
}

// Invalidate drops the cached assessment for a user's domain.
func (s *Service) Invalidate(ctx context.Context, userID string, id domain.DomainID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, userID, domain.AssessmentCacheKey(id)); err != nil {
		slog.Warn("failed to invalidate assessment", "user_id", userID, "domain", id, "error", err)
	}
}

// RecordMood validates and stores a mood check-in.
func (s *Service) RecordMood(ctx context.Context, userID string, e *domain.MoodEntry) error {
	for _, f := range []struct {
		name  string
		value int
	}{{"mood", e.Mood}, {"anxiety", e.Anxiety}, {"stress", e.Stress}, {"energy", e.Energy}} {
		if err := checkScale(f.name, f.value); err != nil {
			return err
		}
	}

	e.ID = uuid.New().String()
	e.UserID = userID
	if e.RecordedAt.IsZero() {
		e.RecordedAt = s.now().UTC()
	}

	if err := s.repo.SaveMoodEntry(ctx, userID, e); err != nil {
		return fmt.Errorf("failed to save mood entry: %w", err)
	}
	s.ingested(ctx, userID, domain.DomainMood, e.ID)
	return nil
}

// RecordSleep validates and stores a night of sleep.
func (s *Service) RecordSleep(ctx context.Context, userID string, e *domain.SleepEntry) error {
	if e.DurationHours < 0 || e.DurationHours > 24 {
		return fmt.Errorf("%w: durationHours must be between 0 and 24", ErrInvalidRecord)
	}
	if err := checkScale("quality", e.Quality); err != nil {
		return err
	}
	if e.Awakenings < 0 || e.LatencyMinutes < 0 {
		return fmt.Errorf("%w: awakenings and latencyMinutes must not be negative", ErrInvalidRecord)
	}

	e.ID = uuid.New().String()
	e.UserID = userID
	if e.Night.IsZero() {
		e.Night = s.now().UTC()
	}

	if err := s.repo.SaveSleepEntry(ctx, userID, e); err != nil {
		return fmt.Errorf("failed to save sleep entry: %w", err)
	}
	s.ingested(ctx, userID, domain.DomainSleep, e.ID)
	return nil
}

// ScheduleDose stores a scheduled medication dose.
func (s *Service) ScheduleDose(ctx context.Context, userID string, d *domain.DoseLog) error {
	d.Medication = strings.TrimSpace(d.Medication)
	if d.Medication == "" {
		return fmt.Errorf("%w: medication is required", ErrInvalidRecord)
	}
	if d.ScheduledAt.IsZero() {
		return fmt.Errorf("%w: scheduledAt is required", ErrInvalidRecord)
	}
	if d.Status == "" {
		d.Status = domain.DoseDue
	}
	if !d.Status.IsValid() {
		return fmt.Errorf("%w: unknown dose status %q", ErrInvalidRecord, d.Status)
	}

	d.ID = uuid.New().String()
	d.UserID = userID
	d.UpdatedAt = s.now().UTC()

	if err := s.repo.SaveDoseLog(ctx, userID, d); err != nil {
		return fmt.Errorf("failed to save dose log: %w", err)
	}
	s.ingested(ctx, userID, domain.DomainAdherence, d.ID)
	return nil
}

// SetDoseStatus records the outcome of a scheduled dose.
func (s *Service) SetDoseStatus(ctx context.Context, userID, id string, status domain.DoseStatus) error {
	if !status.IsValid() {
		return fmt.Errorf("%w: unknown dose status %q", ErrInvalidRecord, status)
	}
	if err := s.repo.UpdateDoseStatus(ctx, userID, id, status, s.now().UTC()); err != nil {
		return err
	}
	s.ingested(ctx, userID, domain.DomainAdherence, id)
	return nil
}

// ScheduleVaccine stores a vaccination schedule entry.
func (s *Service) ScheduleVaccine(ctx context.Context, userID string, v *domain.VaccineDose) error {
	v.Vaccine = strings.TrimSpace(v.Vaccine)
	if v.Vaccine == "" {
		return fmt.Errorf("%w: vaccine is required", ErrInvalidRecord)
	}
	if v.DueDate.IsZero() {
		return fmt.Errorf("%w: dueDate is required", ErrInvalidRecord)
	}
	if v.DoseNumber <= 0 {
		v.DoseNumber = 1
	}

	v.ID = uuid.New().String()
	v.UserID = userID

	if err := s.repo.SaveVaccineDose(ctx, userID, v); err != nil {
		return fmt.Errorf("failed to save vaccine dose: %w", err)
	}
	s.ingested(ctx, userID, domain.DomainVaccine, v.ID)
	return nil
}

// MarkVaccineAdministered records that a scheduled dose was given.
func (s *Service) MarkVaccineAdministered(ctx context.Context, userID, id string, at time.Time) error {
	if at.IsZero() {
		at = s.now().UTC()
	}
	if err := s.repo.MarkVaccineAdministered(ctx, userID, id, at); err != nil {
		return err
	}
	s.ingested(ctx, userID, domain.DomainVaccine, id)
	return nil
}

// MarkMissedDoses flags due doses scheduled more than grace ago as missed
// and returns the affected users, whose adherence assessment is invalidated
// and announced for recomputation.
func (s *Service) MarkMissedDoses(ctx context.Context, grace time.Duration) ([]string, error) {
	now := s.now().UTC()
	users, err := s.repo.MarkMissedDoses(ctx, now.Add(-grace), now)
	if err != nil {
		return nil, fmt.Errorf("failed to mark missed doses: %w", err)
	}
	for _, userID := range users {
		s.ingested(ctx, userID, domain.DomainAdherence, "")
	}
	return users, nil
}

// ingested invalidates the cached assessment and announces the record.
func (s *Service) ingested(ctx context.Context, userID string, id domain.DomainID, recordID string) {
	s.Invalidate(ctx, userID, id)

	if s.bus == nil {
		return
	}
	payload, err := json.Marshal(domain.RecordEvent{UserID: userID, Domain: id, RecordID: recordID})
	if err != nil {
		return
	}
	if err := s.bus.Publish(ctx, domain.GlobalScope, domain.TopicRecordIngested, payload); err != nil {
		slog.Warn("failed to publish record event", "user_id", userID, "domain", id, "error", err)
	}
}

func checkScale(name string, v int) error {
	if v < 1 || v > 10 {
		return fmt.Errorf("%w: %s must be between 1 and 10", ErrInvalidRecord, name)
	}
	return nil
}
