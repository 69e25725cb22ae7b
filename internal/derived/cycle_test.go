package derived

import (
	"testing"
	"time"
)

func TestCyclePhase(t *testing.T) {
	// 28-day cycle, 5-day period: ovulation on day 14.
	tests := []struct {
		day  int
		want Phase
	}{
		{1, PhaseMenstrual},
		{5, PhaseMenstrual},
		{6, PhaseFollicular},
		{12, PhaseFollicular},
		{13, PhaseOvulation},
		{14, PhaseOvulation},
		{15, PhaseOvulation},
		{16, PhaseLuteal},
		{28, PhaseLuteal},
	}

	for _, tt := range tests {
		if got := CyclePhase(tt.day, 28, 5); got != tt.want {
			t.Errorf("day %d: got %s, want %s", tt.day, got, tt.want)
		}
	}
}

func TestCyclePhaseLongCycle(t *testing.T) {
	// 35-day cycle: ovulation on day 21.
	if got := CyclePhase(18, 35, 5); got != PhaseFollicular {
		t.Errorf("day 18: got %s", got)
	}
	if got := CyclePhase(21, 35, 5); got != PhaseOvulation {
		t.Errorf("day 21: got %s", got)
	}
	if got := CyclePhase(30, 35, 5); got != PhaseLuteal {
		t.Errorf("day 30: got %s", got)
	}
}

func TestStatus(t *testing.T) {
	start := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	t.Run("FirstDay", func(t *testing.T) {
		s := Status(start, start.Add(9*time.Hour), 28, 5)
		if s.CycleDay != 1 || s.Phase != PhaseMenstrual {
			t.Errorf("expected day 1 menstrual, got %d %s", s.CycleDay, s.Phase)
		}
		if !s.NextPeriodStart.Equal(time.Date(2024, 5, 29, 0, 0, 0, 0, time.UTC)) {
			t.Errorf("unexpected next period %v", s.NextPeriodStart)
		}
		if s.DaysUntilPeriod != 28 {
			t.Errorf("expected 28 days until period, got %d", s.DaysUntilPeriod)
		}
	})

	t.Run("WrapsIntoNextCycle", func(t *testing.T) {
		s := Status(start, start.AddDate(0, 0, 30), 28, 5)
		if s.CycleDay != 3 {
			t.Errorf("expected cycle day 3, got %d", s.CycleDay)
		}
		if s.DaysSinceLastDay != 30 {
			t.Errorf("expected 30 days since start, got %d", s.DaysSinceLastDay)
		}
	})

	t.Run("DefaultsForInvalidLengths", func(t *testing.T) {
		s := Status(start, start.AddDate(0, 0, 13), 0, -1)
		if s.CycleLength != DefaultCycleLength || s.PeriodLength != DefaultPeriodLength {
			t.Errorf("expected defaults, got %d/%d", s.CycleLength, s.PeriodLength)
		}
		if s.Phase != PhaseOvulation {
			t.Errorf("day 14 should be ovulation, got %s", s.Phase)
		}
	})

	t.Run("FutureStartIsDayOne", func(t *testing.T) {
		s := Status(start.AddDate(0, 0, 3), start, 28, 5)
		if s.CycleDay != 1 {
			t.Errorf("expected day 1, got %d", s.CycleDay)
		}
	})
}
