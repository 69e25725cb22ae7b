package rules

import (
	"testing"

	"github.com/opensource-health/heron/internal/domain"
)

func TestClassify(t *testing.T) {
	th := domain.Thresholds{Moderate: 5, High: 9}

	tests := []struct {
		score int
		want  domain.RiskTier
	}{
		{0, domain.TierLow},
		{4, domain.TierLow},
		{5, domain.TierModerate},
		{8, domain.TierModerate},
		{9, domain.TierHigh},
		{30, domain.TierHigh},
	}

	for _, tt := range tests {
		if got := Classify(tt.score, th); got != tt.want {
			t.Errorf("Classify(%d) = %s, want %s", tt.score, got, tt.want)
		}
	}
}

func TestClassifyMonotonic(t *testing.T) {
	th := domain.Thresholds{Moderate: 3, High: 6}
	prev := Classify(0, th)
	for s := 1; s <= 20; s++ {
		cur := Classify(s, th)
		if cur.Rank() < prev.Rank() {
			t.Fatalf("tier dropped from %s to %s at score %d", prev, cur, s)
		}
		prev = cur
	}
}

func TestAssemble(t *testing.T) {
	pack := testPack()

	b, err := Assemble(pack, domain.TierHigh)
	if err != nil {
		t.Fatalf("assemble failed: %v", err)
	}
	if len(b.UrgentActions) != 1 {
		t.Errorf("expected 1 urgent action, got %d", len(b.UrgentActions))
	}

	b, _ = Assemble(pack, domain.TierLow)
	if b.UrgentActions == nil || b.PreventiveActions == nil {
		t.Error("assembled slices must not be nil")
	}

	b.Recommendations[0] = "mutated"
	if pack.Bundles[domain.TierLow].Recommendations[0] != "keep going" {
		t.Error("assemble must return a copy")
	}

	delete(pack.Bundles, domain.TierModerate)
	if _, err := Assemble(pack, domain.TierModerate); err == nil {
		t.Error("expected error for missing tier bundle")
	}
}

func TestRiskPercentage(t *testing.T) {
	tests := []struct {
		score, max, want int
	}{
		{0, 27, 0},
		{16, 27, 59},
		{27, 27, 100},
		{5, 0, 0},
		{1, 3, 33},
		{1, 2, 50},
	}
	for _, tt := range tests {
		if got := RiskPercentage(tt.score, tt.max); got != tt.want {
			t.Errorf("RiskPercentage(%d, %d) = %d, want %d", tt.score, tt.max, got, tt.want)
		}
	}
}

func TestWellbeing(t *testing.T) {
	if got := Wellbeing(3, 10); got != 7 {
		t.Errorf("expected 7, got %d", got)
	}
	if got := Wellbeing(14, 10); got != 0 {
		t.Errorf("expected floor at 0, got %d", got)
	}
}
