// Package assessment runs the scoring pipeline for one observation set:
// enrich, preconditions, rule evaluation, tier classification and bundle
// lookup.
package assessment

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/opensource-health/heron/internal/derived"
	"github.com/opensource-health/heron/internal/domain"
	"github.com/opensource-health/heron/internal/rules"
)

// EngineVersion is stamped on every assessment.
const EngineVersion = "heron-1.0"

var tracer = otel.Tracer("heron-assessment")

// Processor turns observation sets into assessments using the packs loaded
// in a rules engine.
type Processor struct {
	engine *rules.Engine
	now    func() time.Time
}

// NewProcessor creates a processor backed by engine.
func NewProcessor(engine *rules.Engine) *Processor {
	return &Processor{
		engine: engine,
		now:    time.Now,
	}
}

// Input contains all data needed for one assessment.
type Input struct {
	UserID       string
	Domain       domain.DomainID
	Observations domain.Observations
	TraceID      string
	Source       string
}

// Process scores the observations. It only fails for an unknown domain or
// a loaded pack without a bundle for the resulting tier; bad observations
// degrade to rules not firing.
func (p *Processor) Process(ctx context.Context, input *Input) (*domain.Assessment, error) {
	start := time.Now()

	_, span := tracer.Start(ctx, "assessment.process")
	defer span.End()
	span.SetAttributes(attribute.String("heron.domain", string(input.Domain)))

	pack, err := p.engine.Pack(input.Domain)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	obs := derived.Enrich(input.Observations.Normalize())

	a := &domain.Assessment{
		ID:           uuid.New().String(),
		UserID:       input.UserID,
		Domain:       input.Domain,
		Timestamp:    p.now().UTC(),
		MaxScore:     pack.MaxScore(),
		Factors:      make([]domain.Factor, 0),
		Observations: obs,
	}

	source := input.Source
	if source == "" {
		source = domain.SourceSubmission
	}
	a.Metadata = domain.AssessmentMetadata{
		TraceID:       input.TraceID,
		Source:        source,
		PackVersion:   pack.Version,
		EngineVersion: EngineVersion,
	}

	pre, err := p.engine.Precondition(input.Domain, obs)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if pre != nil {
		a.RiskLevel = pre.Tier
		a.ShortCircuit = pre.Reason
	} else {
		eval, err := p.engine.Evaluate(input.Domain, obs)
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		a.Score = eval.Score
		a.Factors = eval.Fired
		a.RiskLevel = rules.Classify(eval.Score, pack.Thresholds)
		a.Metadata.RulesEvaluated = eval.RulesEvaluated
		a.Metadata.RulesFired = len(eval.Fired)
	}

	bundle, err := rules.Assemble(pack, a.RiskLevel)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("assemble %s: %w", input.Domain, err)
	}
	a.UrgentActions = bundle.UrgentActions
	a.Recommendations = bundle.Recommendations
	a.PreventiveActions = bundle.PreventiveActions

	a.RiskPercentage = rules.RiskPercentage(a.Score, a.MaxScore)
	if pack.WellbeingScale > 0 {
		w := rules.Wellbeing(a.Score, pack.WellbeingScale)
		a.WellbeingScore = &w
	}

	a.Metadata.ProcessUs = time.Since(start).Microseconds()

	span.SetAttributes(
		attribute.String("heron.risk_level", string(a.RiskLevel)),
		attribute.Int("heron.score", a.Score),
		attribute.Int("heron.rules_fired", a.Metadata.RulesFired),
	)

	return a, nil
}

// Current reports whether a was computed today (UTC) against the pack now
// loaded for its domain.
func (p *Processor) Current(a *domain.Assessment) bool {
	if a == nil {
		return false
	}
	loadedAt, err := p.engine.LoadedAt(a.Domain)
	if err != nil || a.Timestamp.Before(loadedAt) {
		return false
	}
	ty, tm, td := a.Timestamp.UTC().Date()
	ny, nm, nd := p.now().UTC().Date()
	return ty == ny && tm == nm && td == nd
}

// IsUrgent returns true if the assessment carries urgent actions.
func IsUrgent(a *domain.Assessment) bool {
	return a != nil && a.RiskLevel == domain.TierHigh
}

// Escalated reports whether a is High and the user's previous assessment in
// the domain was not.
func Escalated(a *domain.Assessment) bool {
	return IsUrgent(a) && a.Metadata.PreviousRiskLevel != domain.TierHigh
}

// LinkPrevious records the tier of the user's latest stored assessment for
// a's domain. It must run before a is saved. A lookup failure leaves the
// previous tier empty, so a High result still alerts.
func LinkPrevious(ctx context.Context, repo domain.Repository, a *domain.Assessment) {
	prev, err := repo.ListAssessments(ctx, a.UserID, domain.AssessmentFilter{Domain: a.Domain, Limit: 1})
	if err != nil {
		slog.Warn("failed to load previous assessment",
			"user_id", a.UserID,
			"domain", a.Domain,
			"error", err,
		)
		return
	}
	if len(prev) > 0 {
		a.Metadata.PreviousRiskLevel = prev[0].RiskLevel
	}
}

// Reasons extracts the fired factor descriptions in table order.
func Reasons(a *domain.Assessment) []string {
	var reasons []string
	for _, f := range a.Factors {
		if f.Description != "" {
			reasons = append(reasons, f.Description)
		}
	}
	if a.ShortCircuit != "" {
		reasons = append(reasons, a.ShortCircuit)
	}
	return reasons
}

// Event builds the bus payload announcing a completed assessment.
func Event(a *domain.Assessment) domain.AssessmentEvent {
	urgent := make([]string, len(a.UrgentActions))
	copy(urgent, a.UrgentActions)
	return domain.AssessmentEvent{
		AssessmentID:  a.ID,
		UserID:        a.UserID,
		Domain:        a.Domain,
		RiskLevel:     a.RiskLevel,
		Score:         a.Score,
		Factors:       a.FactorLabels(),
		UrgentActions: urgent,

		PreviousRiskLevel: a.Metadata.PreviousRiskLevel,
	}
}
