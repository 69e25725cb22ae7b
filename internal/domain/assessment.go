package domain

import (
	"time"
)

// Assessment is the complete scoring result for one observation set.
type Assessment struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId,omitempty"`
	Domain    DomainID  `json:"domain"`
	Timestamp time.Time `json:"timestamp"`

	RiskLevel      RiskTier `json:"riskLevel"`
	Score          int      `json:"score"`
	MaxScore       int      `json:"maxScore"`
	RiskPercentage int      `json:"riskPercentage"`
	WellbeingScore *int     `json:"wellbeingScore,omitempty"`

	// Fired rules in rule-table order.
	Factors []Factor `json:"factors"`

	Recommendations   []string `json:"recommendations"`
	UrgentActions     []string `json:"urgentActions"`
	PreventiveActions []string `json:"preventiveActions"`

	// ShortCircuit holds the precondition reason when scoring was skipped.
	ShortCircuit string `json:"shortCircuit,omitempty"`

	// Observations actually scored, after normalization and enrichment.
	Observations Observations `json:"observations,omitempty"`

	Metadata AssessmentMetadata `json:"metadata"`
}

// AssessmentMetadata contains processing information.
type AssessmentMetadata struct {
	TraceID        string `json:"traceId,omitempty"`
	Source         string `json:"source"` // "submission" or "tracker"
	PackVersion    string `json:"packVersion"`
	RulesEvaluated int    `json:"rulesEvaluated"`
	RulesFired     int    `json:"rulesFired"`
	ProcessUs      int64  `json:"processUs"`
	EngineVersion  string `json:"engineVersion"`

	// PreviousRiskLevel is the tier of the user's last stored assessment in
	// the same domain, empty when there was none.
	PreviousRiskLevel RiskTier `json:"previousRiskLevel,omitempty"`
}

// Assessment sources
const (
	SourceSubmission = "submission"
	SourceTracker    = "tracker"
)

// AssessmentSummary is the list view of an assessment.
type AssessmentSummary struct {
	ID             string    `json:"id"`
	Domain         DomainID  `json:"domain"`
	RiskLevel      RiskTier  `json:"riskLevel"`
	Score          int       `json:"score"`
	RiskPercentage int       `json:"riskPercentage"`
	Timestamp      time.Time `json:"timestamp"`
}

// Summary converts an Assessment to its list view.
func (a *Assessment) Summary() AssessmentSummary {
	return AssessmentSummary{
		ID:             a.ID,
		Domain:         a.Domain,
		RiskLevel:      a.RiskLevel,
		Score:          a.Score,
		RiskPercentage: a.RiskPercentage,
		Timestamp:      a.Timestamp,
	}
}

// FactorLabels returns the labels of the fired factors in order.
func (a *Assessment) FactorLabels() []string {
	labels := make([]string, 0, len(a.Factors))
	for _, f := range a.Factors {
		labels = append(labels, f.Factor)
	}
	return labels
}
