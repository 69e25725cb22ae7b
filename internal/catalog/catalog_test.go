package catalog

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opensource-health/heron/internal/derived"
	"github.com/opensource-health/heron/internal/domain"
	"github.com/opensource-health/heron/internal/rules"
)

func loadedEngine(t *testing.T) *rules.Engine {
	t.Helper()
	engine, err := rules.NewEngine()
	require.NoError(t, err)
	require.NoError(t, engine.LoadPacks(Builtin()))
	t.Cleanup(func() { engine.Close() })
	return engine
}

func TestBuiltinPacksAreValid(t *testing.T) {
	packs := Builtin()
	require.Len(t, packs, 5)
	require.NoError(t, ValidateAll(packs))

	engine, err := rules.NewEngine()
	require.NoError(t, err)
	for _, p := range packs {
		assert.NoError(t, engine.ValidatePack(p), "pack %s", p.ID)
	}
}

func TestBundleCoverage(t *testing.T) {
	for _, p := range Builtin() {
		t.Run(string(p.ID), func(t *testing.T) {
			assert.NotEmpty(t, p.Bundles[domain.TierHigh].UrgentActions, "High must have urgent actions")
			assert.Empty(t, p.Bundles[domain.TierLow].UrgentActions, "Low must not have urgent actions")
			for _, tier := range domain.Tiers() {
				assert.NotEmpty(t, p.Bundles[tier].Recommendations, "%s recommendations", tier)
			}
		})
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(p *domain.DomainPack)
		want   error
	}{
		{"MissingHighBundle", func(p *domain.DomainPack) { delete(p.Bundles, domain.TierHigh) }, ErrIncompleteCoverage},
		{"HighWithoutUrgent", func(p *domain.DomainPack) {
			b := p.Bundles[domain.TierHigh]
			b.UrgentActions = nil
			p.Bundles[domain.TierHigh] = b
		}, ErrIncompleteCoverage},
		{"LowWithUrgent", func(p *domain.DomainPack) {
			b := p.Bundles[domain.TierLow]
			b.UrgentActions = []string{"panic"}
			p.Bundles[domain.TierLow] = b
		}, ErrIncompleteCoverage},
		{"UnorderedThresholds", func(p *domain.DomainPack) { p.Thresholds = domain.Thresholds{Moderate: 9, High: 5} }, ErrInvalidPack},
		{"ZeroModerate", func(p *domain.DomainPack) { p.Thresholds.Moderate = 0 }, ErrInvalidPack},
		{"HighAboveMax", func(p *domain.DomainPack) { p.Thresholds.High = 1000 }, ErrInvalidPack},
		{"DuplicateRule", func(p *domain.DomainPack) { p.Rules[1].ID = p.Rules[0].ID }, ErrInvalidPack},
		{"ZeroPoints", func(p *domain.DomainPack) { p.Rules[0].Points = 0 }, ErrInvalidPack},
		{"EmptyExpression", func(p *domain.DomainPack) { p.Rules[0].Expression = "" }, ErrInvalidPack},
		{"BadPreconditionTier", func(p *domain.DomainPack) { p.Preconditions[0].Tier = "Severe" }, ErrInvalidPack},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Vaccine()
			tt.mutate(p)
			err := Validate(p)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestPCOSScenario(t *testing.T) {
	engine := loadedEngine(t)

	obs := derived.Enrich(domain.Observations{
		"age":                25,
		"heightCm":           160,
		"weightKg":           70,
		"cycleLength":        40,
		"missedPeriods":      "yes",
		"periodsLateOften":   "no",
		"acne":               "severe",
		"hairFall":           "yes",
		"facialHair":         "no",
		"weightGainRecently": "yes",
		"familyHistoryPCOS":  "yes",
	}.Normalize())

	result, err := engine.Evaluate(domain.DomainPCOS, obs)
	require.NoError(t, err)

	assert.Equal(t, 16, result.Score)
	assert.Equal(t, domain.TierHigh, rules.Classify(result.Score, PCOS().Thresholds))

	var ids []string
	for _, f := range result.Fired {
		ids = append(ids, f.RuleID)
	}
	assert.Equal(t, []string{
		"bmi-overweight", "irregular-cycle", "missed-periods", "acne-severe",
		"hair-fall", "weight-gain", "family-history",
	}, ids)
}

func TestThresholdBoundaries(t *testing.T) {
	for _, p := range Builtin() {
		t.Run(string(p.ID), func(t *testing.T) {
			th := p.Thresholds
			assert.Equal(t, domain.TierLow, rules.Classify(th.Moderate-1, th))
			assert.Equal(t, domain.TierModerate, rules.Classify(th.Moderate, th))
			assert.Equal(t, domain.TierModerate, rules.Classify(th.High-1, th))
			assert.Equal(t, domain.TierHigh, rules.Classify(th.High, th))
			assert.Equal(t, domain.TierHigh, rules.Classify(p.MaxScore(), th))
		})
	}
}

func TestMonotonicity(t *testing.T) {
	engine := loadedEngine(t)

	base := domain.Observations{"avgMood": 6.0, "avgAnxiety": 4.0, "avgStress": 4.0, "avgEnergy": 6.0, "lowMoodDays": 0.0}
	low, err := engine.Evaluate(domain.DomainMood, base)
	require.NoError(t, err)

	worse := base.Clone()
	worse["avgAnxiety"] = 8.0
	worse["crisisReported"] = true
	high, err := engine.Evaluate(domain.DomainMood, worse)
	require.NoError(t, err)

	th := Mood().Thresholds
	assert.GreaterOrEqual(t, high.Score, low.Score)
	assert.GreaterOrEqual(t, rules.Classify(high.Score, th).Rank(), rules.Classify(low.Score, th).Rank())
}

const packYAML = `
packs:
  - id: sleep
    name: Sleep (strict)
    version: "custom-1"
    wellbeingScale: 10
    thresholds:
      moderate: 1
      high: 2
    rules:
      - id: short
        label: Short sleep
        description: Under 7 hours
        expression: obs.avgDurationHours < 7.0
        points: 2
    bundles:
      Low:
        recommendations: [ok]
      Moderate:
        recommendations: [watch]
      High:
        urgentActions: [see a doctor]
        recommendations: [rest]
`

func TestParseAndMerge(t *testing.T) {
	packs, err := Parse([]byte(packYAML))
	require.NoError(t, err)
	require.Len(t, packs, 1)

	p := packs[0]
	assert.Equal(t, domain.DomainSleep, p.ID)
	assert.Equal(t, 2, p.Thresholds.High)
	assert.Equal(t, []string{"see a doctor"}, p.Bundles[domain.TierHigh].UrgentActions)
	require.NoError(t, Validate(p))

	merged := Merge(Builtin(), packs)
	require.Len(t, merged, 5)
	for _, m := range merged {
		if m.ID == domain.DomainSleep {
			assert.Equal(t, "custom-1", m.Version)
		}
	}
}

func TestParseInvalidYAML(t *testing.T) {
	_, err := Parse([]byte("packs: [unterminated"))
	assert.Error(t, err)
}

type stubSource struct {
	packs []*domain.DomainPack
	err   error
}

func (s stubSource) ListDomainPacks(ctx context.Context) ([]*domain.DomainPack, error) {
	return s.packs, s.err
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "packs.yaml")
	require.NoError(t, os.WriteFile(path, []byte(packYAML), 0o600))

	t.Run("FileOverridesBuiltin", func(t *testing.T) {
		packs, err := Load(context.Background(), nil, path)
		require.NoError(t, err)
		for _, p := range packs {
			if p.ID == domain.DomainSleep {
				assert.Equal(t, "custom-1", p.Version)
			}
		}
	})

	t.Run("StoredOverridesFile", func(t *testing.T) {
		stored := Sleep()
		stored.Version = "stored-7"
		packs, err := Load(context.Background(), stubSource{packs: []*domain.DomainPack{stored}}, path)
		require.NoError(t, err)
		for _, p := range packs {
			if p.ID == domain.DomainSleep {
				assert.Equal(t, "stored-7", p.Version)
			}
		}
	})

	t.Run("InvalidStoredPackFails", func(t *testing.T) {
		bad := Mood()
		delete(bad.Bundles, domain.TierLow)
		_, err := Load(context.Background(), stubSource{packs: []*domain.DomainPack{bad}}, "")
		assert.ErrorIs(t, err, ErrIncompleteCoverage)
	})

	t.Run("MissingFile", func(t *testing.T) {
		_, err := Load(context.Background(), nil, filepath.Join(dir, "absent.yaml"))
		assert.Error(t, err)
	})
}
