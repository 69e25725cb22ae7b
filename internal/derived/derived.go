// Package derived computes the metrics observation sets are built from:
// BMI, adherence and completion rates, rolling means, day offsets and
// menstrual cycle status. Every function has a defined result for
// degenerate input and never returns NaN or Inf.
package derived

import (
	"math"
	"time"

	"github.com/opensource-health/heron/internal/domain"
)

// Observation keys written by Enrich.
const (
	KeyBMI           = "bmi"
	KeyAdherenceRate = "adherenceRate"
)

const day = 24 * time.Hour

// DaysBetween returns floor((now - ref) / 24h). Negative when ref is in
// the future.
func DaysBetween(ref, now time.Time) int {
	return int(math.Floor(float64(now.Sub(ref)) / float64(day)))
}

// BMI returns weight / (height in metres)^2 rounded to one decimal.
// ok is false unless both inputs are positive.
func BMI(heightCm, weightKg float64) (float64, bool) {
	if heightCm <= 0 || weightKg <= 0 || !finite(heightCm) || !finite(weightKg) {
		return 0, false
	}
	m := heightCm / 100
	return round1(weightKg / (m * m)), true
}

// AdherenceRate returns round(taken / (taken + missed) * 100).
// ok is false when there is no dose history.
func AdherenceRate(taken, missed int) (int, bool) {
	if taken < 0 || missed < 0 || taken+missed == 0 {
		return 0, false
	}
	return int(math.Round(float64(taken) / float64(taken+missed) * 100)), true
}

// CompletionRate returns round(completed / expected * 100), capped at 100.
// Nothing expected counts as complete.
func CompletionRate(completed, expected int) int {
	if expected <= 0 {
		return 100
	}
	rate := int(math.Round(float64(completed) / float64(expected) * 100))
	if rate > 100 {
		return 100
	}
	if rate < 0 {
		return 0
	}
	return rate
}

// Mean returns the arithmetic mean rounded to one decimal, or 0 for an
// empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return round1(sum / float64(len(values)))
}

// RollingMean averages the first n values. values are newest first, as
// the repository returns them.
func RollingMean(values []float64, n int) float64 {
	if n > 0 && len(values) > n {
		values = values[:n]
	}
	return Mean(values)
}

// Enrich returns a copy of obs with bmi and adherenceRate added when they
// can be computed from heightCm/weightKg and takenDoses/missedDoses.
// Values already present are kept.
func Enrich(obs domain.Observations) domain.Observations {
	out := obs.Clone()

	if _, ok := out[KeyBMI]; !ok {
		h, hok := out.Number("heightCm")
		w, wok := out.Number("weightKg")
		if hok && wok {
			if bmi, ok := BMI(h, w); ok {
				out[KeyBMI] = bmi
			}
		}
	}

	if _, ok := out[KeyAdherenceRate]; !ok {
		taken, tok := out.Number("takenDoses")
		missed, mok := out.Number("missedDoses")
		if tok || mok {
			if rate, ok := AdherenceRate(int(taken), int(missed)); ok {
				out[KeyAdherenceRate] = float64(rate)
			}
		}
	}

	return out
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
