package domain

import "time"

// DomainPack is the complete scoring configuration for one domain:
// an ordered rule table, tier thresholds, preconditions and one
// recommendation bundle per tier.
// Example: "pcos" combines cycle irregularity (3) + missed periods (3) + BMI band (2..3) + ...
type DomainPack struct {
	ID          DomainID `json:"id" yaml:"id"`
	Name        string   `json:"name" yaml:"name"`
	Description string   `json:"description,omitempty" yaml:"description"`
	Version     string   `json:"version" yaml:"version"`

	// Rules are evaluated and surfaced in this order.
	Rules []Rule `json:"rules" yaml:"rules"`

	Thresholds Thresholds `json:"thresholds" yaml:"thresholds"`

	// Preconditions are checked in order before scoring; the first match
	// fixes the tier and skips rule evaluation.
	Preconditions []Precondition `json:"preconditions,omitempty" yaml:"preconditions"`

	Bundles map[RiskTier]Bundle `json:"bundles" yaml:"bundles"`

	// WellbeingScale enables wellbeingScore = max(0, WellbeingScale - score).
	// Zero disables it.
	WellbeingScale int `json:"wellbeingScale,omitempty" yaml:"wellbeingScale"`

	// Audit timestamps
	CreatedAt time.Time `json:"createdAt,omitempty" yaml:"-"`
	UpdatedAt time.Time `json:"updatedAt,omitempty" yaml:"-"`
}

// MaxScore is the sum of all rule points, the upper bound of any score.
func (p *DomainPack) MaxScore() int {
	total := 0
	for _, r := range p.Rules {
		total += r.Points
	}
	return total
}

// Clone returns a deep copy so callers cannot mutate loaded packs.
func (p *DomainPack) Clone() *DomainPack {
	if p == nil {
		return nil
	}
	out := *p
	out.Rules = append([]Rule(nil), p.Rules...)
	out.Preconditions = append([]Precondition(nil), p.Preconditions...)
	out.Bundles = make(map[RiskTier]Bundle, len(p.Bundles))
	for tier, b := range p.Bundles {
		out.Bundles[tier] = b.Clone()
	}
	return &out
}

// Clone copies the bundle; nil slices become empty slices.
func (b Bundle) Clone() Bundle {
	return Bundle{
		UrgentActions:     copyStrings(b.UrgentActions),
		Recommendations:   copyStrings(b.Recommendations),
		PreventiveActions: copyStrings(b.PreventiveActions),
	}
}

func copyStrings(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}
