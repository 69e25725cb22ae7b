package rules

import (
	"fmt"

	"github.com/opensource-health/heron/internal/domain"
)

// Classify maps a score to a tier:
// score < moderate is Low, moderate <= score < high is Moderate,
// score >= high is High.
func Classify(score int, t domain.Thresholds) domain.RiskTier {
	switch {
	case score >= t.High:
		return domain.TierHigh
	case score >= t.Moderate:
		return domain.TierModerate
	default:
		return domain.TierLow
	}
}

// Assemble returns a copy of the pack's bundle for tier. Slices in the
// result are never nil.
func Assemble(pack *domain.DomainPack, tier domain.RiskTier) (domain.Bundle, error) {
	if pack == nil {
		return domain.Bundle{}, fmt.Errorf("domain pack is required")
	}
	b, ok := pack.Bundles[tier]
	if !ok {
		return domain.Bundle{}, fmt.Errorf("domain %s has no bundle for tier %s", pack.ID, tier)
	}
	return b.Clone(), nil
}

// RiskPercentage returns round(score / maxScore * 100), or 0 when maxScore
// is not positive.
func RiskPercentage(score, maxScore int) int {
	if maxScore <= 0 || score <= 0 {
		return 0
	}
	if score >= maxScore {
		return 100
	}
	return (score*100 + maxScore/2) / maxScore
}

// Wellbeing returns max(0, scale - score).
func Wellbeing(score, scale int) int {
	if w := scale - score; w > 0 {
		return w
	}
	return 0
}
