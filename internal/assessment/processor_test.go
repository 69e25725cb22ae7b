package assessment

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/opensource-health/heron/internal/catalog"
	"github.com/opensource-health/heron/internal/domain"
	"github.com/opensource-health/heron/internal/repository"
	"github.com/opensource-health/heron/internal/rules"
)

func newTestProcessor(t *testing.T) *Processor {
	t.Helper()
	engine, err := rules.NewEngine()
	if err != nil {
		t.Fatalf("failed to create engine: %v", err)
	}
	if err := engine.LoadPacks(catalog.Builtin()); err != nil {
		t.Fatalf("failed to load packs: %v", err)
	}
	t.Cleanup(func() { engine.Close() })
	return NewProcessor(engine)
}

func TestProcessor(t *testing.T) {
	proc := newTestProcessor(t)
	ctx := context.Background()

	t.Run("PCOSHighRisk", func(t *testing.T) {
		a, err := proc.Process(ctx, &Input{
			UserID:  "user-001",
			Domain:  domain.DomainPCOS,
			TraceID: "trace-001",
			Observations: domain.Observations{
				"age": 25, "heightCm": 160, "weightKg": 70, "cycleLength": 40,
				"missedPeriods": "yes", "periodsLateOften": "no", "acne": "severe",
				"hairFall": "yes", "facialHair": "no", "weightGainRecently": "yes",
				"familyHistoryPCOS": "Yes",
			},
		})
		if err != nil {
			t.Fatalf("process failed: %v", err)
		}

		if a.Score != 16 {
			t.Errorf("expected score 16, got %d", a.Score)
		}
		if a.RiskLevel != domain.TierHigh {
			t.Errorf("expected High, got %s", a.RiskLevel)
		}
		if len(a.UrgentActions) == 0 {
			t.Error("High assessment must carry urgent actions")
		}
		if a.MaxScore != catalog.PCOS().MaxScore() {
			t.Errorf("unexpected max score %d", a.MaxScore)
		}
		if a.Factors[0].Factor != "BMI in overweight range" {
			t.Errorf("expected BMI factor first, got %q", a.Factors[0].Factor)
		}
		if a.Metadata.TraceID != "trace-001" || a.Metadata.Source != domain.SourceSubmission {
			t.Errorf("unexpected metadata %+v", a.Metadata)
		}
		if a.Metadata.RulesEvaluated != len(catalog.PCOS().Rules) || a.Metadata.RulesFired != 7 {
			t.Errorf("unexpected rule counts %+v", a.Metadata)
		}
		if a.WellbeingScore != nil {
			t.Error("PCOS has no wellbeing score")
		}
		if !IsUrgent(a) {
			t.Error("expected IsUrgent")
		}
	})

	t.Run("PCOSAnswerForms", func(t *testing.T) {
		forms := map[string]domain.Observations{
			"Booleans": {
				"age": 25, "heightCm": 160, "weightKg": 70, "cycleLength": 40,
				"missedPeriods": true, "periodsLateOften": false, "acne": "severe",
				"hairFall": true, "facialHair": false, "weightGainRecently": true,
				"familyHistoryPCOS": true,
			},
			"FormStrings": {
				"age": "25", "heightCm": "160", "weightKg": " 70 ", "cycleLength": "40",
				"missedPeriods": "Y", "periodsLateOften": "n", "acne": "Severe",
				"hairFall": "true", "facialHair": "false", "weightGainRecently": "YES",
				"familyHistoryPCOS": "y",
			},
		}
		for name, obs := range forms {
			t.Run(name, func(t *testing.T) {
				a, err := proc.Process(ctx, &Input{Domain: domain.DomainPCOS, Observations: obs})
				if err != nil {
					t.Fatalf("process failed: %v", err)
				}
				if a.Score != 16 || a.RiskLevel != domain.TierHigh {
					t.Errorf("expected High at 16, got %s at %d", a.RiskLevel, a.Score)
				}
				if a.Metadata.RulesFired != 7 {
					t.Errorf("expected 7 fired rules, got %d", a.Metadata.RulesFired)
				}
				if bmi, ok := a.Observations.Number("bmi"); !ok || bmi < 27.3 || bmi > 27.4 {
					t.Errorf("expected derived bmi near 27.34, got %v", a.Observations["bmi"])
				}
			})
		}
	})

	t.Run("MoodCrisisAnsweredYes", func(t *testing.T) {
		a, err := proc.Process(ctx, &Input{
			Domain:       domain.DomainMood,
			Observations: domain.Observations{"avgMood": 2, "crisisReported": "yes"},
		})
		if err != nil {
			t.Fatalf("process failed: %v", err)
		}
		if a.Score != 8 || a.RiskLevel != domain.TierHigh {
			t.Errorf("expected High at 8, got %s at %d", a.RiskLevel, a.Score)
		}
		if a.Observations["crisisReported"] != true {
			t.Errorf("expected crisisReported normalized to true, got %v", a.Observations["crisisReported"])
		}
	})

	t.Run("VaccineNothingDue", func(t *testing.T) {
		a, err := proc.Process(ctx, &Input{
			Domain: domain.DomainVaccine,
			Observations: domain.Observations{
				"expectedVaccines":       0,
				"completedVaccines":      3,
				"overdueVaccineCount":    5,
				"expectedCompletionRate": 100,
			},
		})
		if err != nil {
			t.Fatalf("process failed: %v", err)
		}
		if a.RiskLevel != domain.TierLow {
			t.Errorf("expected forced Low, got %s", a.RiskLevel)
		}
		if a.Score != 0 || len(a.Factors) != 0 {
			t.Errorf("precondition must skip scoring, got score %d", a.Score)
		}
		if a.ShortCircuit == "" {
			t.Error("expected short-circuit reason")
		}
		if len(a.UrgentActions) != 0 {
			t.Error("Low must not carry urgent actions")
		}
	})

	t.Run("AdherenceRateDerived", func(t *testing.T) {
		a, err := proc.Process(ctx, &Input{
			Domain:       domain.DomainAdherence,
			Observations: domain.Observations{"takenDoses": 18, "missedDoses": 2},
		})
		if err != nil {
			t.Fatalf("process failed: %v", err)
		}
		if rate, _ := a.Observations.Number("adherenceRate"); rate != 90 {
			t.Errorf("expected adherenceRate 90, got %v", rate)
		}
		if a.RiskLevel != domain.TierLow {
			t.Errorf("expected Low at 90%%, got %s", a.RiskLevel)
		}
	})

	t.Run("AdherenceNoHistory", func(t *testing.T) {
		a, err := proc.Process(ctx, &Input{
			Domain:       domain.DomainAdherence,
			Observations: domain.Observations{"takenDoses": 0, "missedDoses": 0, "activeMedications": 6},
		})
		if err != nil {
			t.Fatalf("process failed: %v", err)
		}
		if a.RiskLevel != domain.TierLow || a.ShortCircuit == "" {
			t.Errorf("expected short-circuit Low, got %s %q", a.RiskLevel, a.ShortCircuit)
		}
	})

	t.Run("MoodWellbeing", func(t *testing.T) {
		a, err := proc.Process(ctx, &Input{
			Domain:       domain.DomainMood,
			Observations: domain.Observations{"avgMood": 4.5, "avgAnxiety": 7.5, "avgStress": 3, "avgEnergy": 5, "lowMoodDays": 1},
		})
		if err != nil {
			t.Fatalf("process failed: %v", err)
		}
		if a.Score != 3 || a.RiskLevel != domain.TierModerate {
			t.Errorf("expected Moderate at 3, got %s at %d", a.RiskLevel, a.Score)
		}
		if a.WellbeingScore == nil || *a.WellbeingScore != 7 {
			t.Errorf("expected wellbeing 7, got %v", a.WellbeingScore)
		}
	})

	t.Run("EmptyObservations", func(t *testing.T) {
		a, err := proc.Process(ctx, &Input{Domain: domain.DomainSleep})
		if err != nil {
			t.Fatalf("process failed: %v", err)
		}
		if a.RiskLevel != domain.TierLow || a.Score != 0 || a.RiskPercentage != 0 {
			t.Errorf("expected empty Low assessment, got %+v", a)
		}
	})

	t.Run("UnknownDomain", func(t *testing.T) {
		_, err := proc.Process(ctx, &Input{Domain: "exercise"})
		if !errors.Is(err, rules.ErrUnknownDomain) {
			t.Errorf("expected ErrUnknownDomain, got %v", err)
		}
	})

	t.Run("Idempotent", func(t *testing.T) {
		in := &Input{Domain: domain.DomainSleep, Observations: domain.Observations{"avgDurationHours": 4.5, "avgQuality": 3}}
		first, _ := proc.Process(ctx, in)
		second, _ := proc.Process(ctx, in)
		if first.Score != second.Score || first.RiskLevel != second.RiskLevel || len(first.Factors) != len(second.Factors) {
			t.Error("repeated processing must give the same result")
		}
		if first.ID == second.ID {
			t.Error("each assessment gets its own id")
		}
	})
}

func TestAssessmentJSONShape(t *testing.T) {
	proc := newTestProcessor(t)

	a, err := proc.Process(context.Background(), &Input{Domain: domain.DomainSleep})
	if err != nil {
		t.Fatalf("process failed: %v", err)
	}

	raw, err := json.Marshal(a)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	for _, key := range []string{"riskLevel", "score", "factors", "recommendations", "urgentActions", "preventiveActions"} {
		v, ok := decoded[key]
		if !ok {
			t.Errorf("missing field %q", key)
			continue
		}
		if v == nil {
			t.Errorf("field %q must not be null", key)
		}
	}
}

func TestReasons(t *testing.T) {
	a := &domain.Assessment{
		Factors: []domain.Factor{
			{Factor: "A", Description: "first"},
			{Factor: "B"},
			{Factor: "C", Description: "third"},
		},
	}
	got := Reasons(a)
	if len(got) != 2 || got[0] != "first" || got[1] != "third" {
		t.Errorf("unexpected reasons %v", got)
	}
}

func TestEscalated(t *testing.T) {
	cases := []struct {
		name     string
		tier     domain.RiskTier
		previous domain.RiskTier
		want     bool
	}{
		{"FirstHigh", domain.TierHigh, "", true},
		{"ModerateToHigh", domain.TierHigh, domain.TierModerate, true},
		{"StillHigh", domain.TierHigh, domain.TierHigh, false},
		{"HighToModerate", domain.TierModerate, domain.TierHigh, false},
		{"Low", domain.TierLow, "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a := &domain.Assessment{RiskLevel: tc.tier}
			a.Metadata.PreviousRiskLevel = tc.previous
			if got := Escalated(a); got != tc.want {
				t.Errorf("Escalated = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestLinkPrevious(t *testing.T) {
	repo, err := repository.New(domain.RepositoryConfig{
		Driver:     "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "assessment.db"),
	})
	if err != nil {
		t.Fatalf("failed to create repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	ctx := context.Background()
	proc := newTestProcessor(t)
	crisis := domain.Observations{"avgMood": 2, "crisisReported": true}

	first, err := proc.Process(ctx, &Input{UserID: "user-1", Domain: domain.DomainMood, Observations: crisis})
	if err != nil {
		t.Fatalf("process failed: %v", err)
	}
	LinkPrevious(ctx, repo, first)
	if first.Metadata.PreviousRiskLevel != "" {
		t.Errorf("expected no previous tier, got %q", first.Metadata.PreviousRiskLevel)
	}
	if err := repo.SaveAssessment(ctx, "user-1", first); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	// another domain and another user must not count
	other := &domain.Assessment{ID: "other", UserID: "user-2", Domain: domain.DomainMood, RiskLevel: domain.TierLow, Timestamp: time.Now().UTC()}
	if err := repo.SaveAssessment(ctx, "user-2", other); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	second, err := proc.Process(ctx, &Input{UserID: "user-1", Domain: domain.DomainMood, Observations: crisis})
	if err != nil {
		t.Fatalf("process failed: %v", err)
	}
	LinkPrevious(ctx, repo, second)
	if second.Metadata.PreviousRiskLevel != domain.TierHigh {
		t.Errorf("expected previous High, got %q", second.Metadata.PreviousRiskLevel)
	}
	if Escalated(second) {
		t.Error("High following High must not escalate")
	}

	sleep, err := proc.Process(ctx, &Input{UserID: "user-1", Domain: domain.DomainSleep})
	if err != nil {
		t.Fatalf("process failed: %v", err)
	}
	LinkPrevious(ctx, repo, sleep)
	if sleep.Metadata.PreviousRiskLevel != "" {
		t.Errorf("expected no previous sleep tier, got %q", sleep.Metadata.PreviousRiskLevel)
	}
}

func TestCurrent(t *testing.T) {
	engine, err := rules.NewEngine()
	if err != nil {
		t.Fatalf("failed to create engine: %v", err)
	}
	if err := engine.LoadPacks(catalog.Builtin()); err != nil {
		t.Fatalf("failed to load packs: %v", err)
	}
	proc := NewProcessor(engine)
	ctx := context.Background()

	a, err := proc.Process(ctx, &Input{Domain: domain.DomainSleep})
	if err != nil {
		t.Fatalf("process failed: %v", err)
	}
	if !proc.Current(a) {
		t.Error("a fresh assessment must be current")
	}
	if proc.Current(nil) {
		t.Error("nil is never current")
	}

	t.Run("NextDay", func(t *testing.T) {
		next := *proc
		next.now = func() time.Time { return time.Now().Add(24 * time.Hour) }
		if next.Current(a) {
			t.Error("an assessment from yesterday must not be current")
		}
	})

	t.Run("PackReloaded", func(t *testing.T) {
		time.Sleep(time.Millisecond)
		if err := engine.ReloadPacks(catalog.Builtin()); err != nil {
			t.Fatalf("reload failed: %v", err)
		}
		if proc.Current(a) {
			t.Error("an assessment from before the reload must not be current")
		}
	})

	t.Run("UnknownDomain", func(t *testing.T) {
		if proc.Current(&domain.Assessment{Domain: "exercise", Timestamp: time.Now()}) {
			t.Error("an unloaded domain is never current")
		}
	})
}
