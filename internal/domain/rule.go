package domain

import (
	"fmt"
	"strings"
)

// DomainID identifies a scoring domain (one rule table).
type DomainID string

// Built-in domains.
const (
	DomainPCOS      DomainID = "pcos"
	DomainVaccine   DomainID = "vaccine"
	DomainAdherence DomainID = "adherence"
	DomainMood      DomainID = "mood"
	DomainSleep     DomainID = "sleep"
)

// RiskTier is the three-way classification of a score.
type RiskTier string

const (
	TierLow      RiskTier = "Low"
	TierModerate RiskTier = "Moderate"
	TierHigh     RiskTier = "High"
)

// Tiers lists all tiers from lowest to highest risk.
func Tiers() []RiskTier {
	return []RiskTier{TierLow, TierModerate, TierHigh}
}

// Rank orders tiers: Low=0, Moderate=1, High=2, unknown=-1.
func (t RiskTier) Rank() int {
	switch t {
	case TierLow:
		return 0
	case TierModerate:
		return 1
	case TierHigh:
		return 2
	default:
		return -1
	}
}

// IsValid reports whether t is a known tier.
func (t RiskTier) IsValid() bool {
	return t.Rank() >= 0
}

// ParseRiskTier accepts tier names case-insensitively.
func ParseRiskTier(s string) (RiskTier, error) {
	for _, t := range Tiers() {
		if strings.EqualFold(string(t), strings.TrimSpace(s)) {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown risk tier %q", s)
}

// Rule is a weighted predicate in a domain's rule table.
type Rule struct {
	ID          string `json:"id" yaml:"id"`
	Label       string `json:"label" yaml:"label"`
	Description string `json:"description" yaml:"description"`

	// CEL boolean expression over the `obs` map.
	Expression string `json:"expression" yaml:"expression"`

	Points int `json:"points" yaml:"points"`
}

// Thresholds split a score into tiers: score < Moderate is Low,
// Moderate <= score < High is Moderate, score >= High is High.
type Thresholds struct {
	Moderate int `json:"moderate" yaml:"moderate"`
	High     int `json:"high" yaml:"high"`
}

// Precondition forces a tier before any rule is scored.
type Precondition struct {
	ID         string   `json:"id" yaml:"id"`
	Expression string   `json:"expression" yaml:"expression"`
	Tier       RiskTier `json:"tier" yaml:"tier"`
	Reason     string   `json:"reason" yaml:"reason"`
}

// Bundle is the guidance attached to a tier.
type Bundle struct {
	UrgentActions     []string `json:"urgentActions" yaml:"urgentActions"`
	Recommendations   []string `json:"recommendations" yaml:"recommendations"`
	PreventiveActions []string `json:"preventiveActions" yaml:"preventiveActions"`
}

// Factor is a fired rule as surfaced to the user.
type Factor struct {
	RuleID      string `json:"ruleId"`
	Factor      string `json:"factor"`
	Points      int    `json:"points"`
	Description string `json:"description"`
}
