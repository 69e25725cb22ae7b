package derived

import (
	"time"
)

// Phase is a menstrual cycle phase.
type Phase string

const (
	PhaseMenstrual  Phase = "Menstrual"
	PhaseFollicular Phase = "Follicular"
	PhaseOvulation  Phase = "Ovulation"
	PhaseLuteal     Phase = "Luteal"
)

// Cycle defaults used when the caller supplies none.
const (
	DefaultCycleLength  = 28
	DefaultPeriodLength = 5

	// lutealLength is the assumed span from ovulation to the next period.
	lutealLength = 14
)

// CycleStatus describes where a date falls in the current cycle.
type CycleStatus struct {
	CycleDay         int       `json:"cycleDay"`
	Phase            Phase     `json:"phase"`
	CycleLength      int       `json:"cycleLength"`
	PeriodLength     int       `json:"periodLength"`
	OvulationDay     int       `json:"ovulationDay"`
	NextPeriodStart  time.Time `json:"nextPeriodStart"`
	DaysUntilPeriod  int       `json:"daysUntilPeriod"`
	DaysSinceLastDay int       `json:"daysSinceLastPeriod"`
}

// CyclePhase classifies a 1-based cycle day. Ovulation covers the estimated
// ovulation day and one day either side.
func CyclePhase(cycleDay, cycleLength, periodLength int) Phase {
	cycleLength, periodLength = normalizeCycle(cycleLength, periodLength)
	ovulation := cycleLength - lutealLength

	switch {
	case cycleDay <= periodLength:
		return PhaseMenstrual
	case cycleDay >= ovulation-1 && cycleDay <= ovulation+1:
		return PhaseOvulation
	case cycleDay < ovulation-1:
		return PhaseFollicular
	default:
		return PhaseLuteal
	}
}

// Status returns the cycle status on now for a cycle that last started on
// lastPeriodStart. Dates in the future are treated as cycle day 1.
func Status(lastPeriodStart, now time.Time, cycleLength, periodLength int) CycleStatus {
	cycleLength, periodLength = normalizeCycle(cycleLength, periodLength)

	since := DaysBetween(truncateDay(lastPeriodStart), truncateDay(now))
	if since < 0 {
		since = 0
	}
	cycleDay := since%cycleLength + 1
	untilNext := cycleLength - cycleDay + 1

	return CycleStatus{
		CycleDay:         cycleDay,
		Phase:            CyclePhase(cycleDay, cycleLength, periodLength),
		CycleLength:      cycleLength,
		PeriodLength:     periodLength,
		OvulationDay:     cycleLength - lutealLength,
		NextPeriodStart:  truncateDay(now).AddDate(0, 0, untilNext),
		DaysUntilPeriod:  untilNext,
		DaysSinceLastDay: since,
	}
}

// normalizeCycle replaces out-of-range lengths with defaults. A cycle must
// be long enough to hold a luteal phase after the period.
func normalizeCycle(cycleLength, periodLength int) (int, int) {
	if cycleLength < 20 || cycleLength > 90 {
		cycleLength = DefaultCycleLength
	}
	if periodLength <= 0 || periodLength > cycleLength-lutealLength-1 {
		periodLength = DefaultPeriodLength
	}
	return cycleLength, periodLength
}

// truncateDay maps t to midnight UTC of its calendar date so day counts
// are not skewed by DST transitions.
func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
