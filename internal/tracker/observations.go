package tracker

import (
	"time"

	"github.com/opensource-health/heron/internal/derived"
	"github.com/opensource-health/heron/internal/domain"
)

// Window sizes for tracker-based observation sets.
const (
	MoodWindow      = 7
	SleepWindow     = 14
	AdherenceWindow = 30 * 24 * time.Hour
)

// lowMoodLevel is the mood score at or below which a day counts as low.
const lowMoodLevel = 3

// MoodObservations summarises mood entries (newest first).
func MoodObservations(entries []*domain.MoodEntry) domain.Observations {
	if len(entries) > MoodWindow {
		entries = entries[:MoodWindow]
	}
	obs := domain.Observations{"entries": float64(len(entries))}
	if len(entries) == 0 {
		return obs
	}

	mood := make([]float64, 0, len(entries))
	anxiety := make([]float64, 0, len(entries))
	stress := make([]float64, 0, len(entries))
	energy := make([]float64, 0, len(entries))
	lowDays := 0
	crisis := false

	for _, e := range entries {
		mood = append(mood, float64(e.Mood))
		anxiety = append(anxiety, float64(e.Anxiety))
		stress = append(stress, float64(e.Stress))
		energy = append(energy, float64(e.Energy))
		if e.Mood <= lowMoodLevel {
			lowDays++
		}
		crisis = crisis || e.Crisis
	}

	obs["avgMood"] = derived.Mean(mood)
	obs["avgAnxiety"] = derived.Mean(anxiety)
	obs["avgStress"] = derived.Mean(stress)
	obs["avgEnergy"] = derived.Mean(energy)
	obs["lowMoodDays"] = float64(lowDays)
	obs["crisisReported"] = crisis
	return obs
}

// SleepObservations summarises sleep entries (newest first).
func SleepObservations(entries []*domain.SleepEntry) domain.Observations {
	if len(entries) > SleepWindow {
		entries = entries[:SleepWindow]
	}
	obs := domain.Observations{"entries": float64(len(entries))}
	if len(entries) == 0 {
		return obs
	}

	duration := make([]float64, 0, len(entries))
	quality := make([]float64, 0, len(entries))
	awakenings := make([]float64, 0, len(entries))
	latency := make([]float64, 0, len(entries))
	snoring := 0

	for _, e := range entries {
		duration = append(duration, e.DurationHours)
		quality = append(quality, float64(e.Quality))
		awakenings = append(awakenings, float64(e.Awakenings))
		latency = append(latency, float64(e.LatencyMinutes))
		if e.Snoring {
			snoring++
		}
	}

	obs["avgDurationHours"] = derived.Mean(duration)
	obs["avgQuality"] = derived.Mean(quality)
	obs["avgAwakenings"] = derived.Mean(awakenings)
	obs["avgLatencyMinutes"] = derived.Mean(latency)
	obs["snoringNights"] = float64(snoring)
	return obs
}

// AdherenceObservations summarises dose logs ordered by scheduled time.
// Due and skipped doses count toward neither taken nor missed; a skipped
// dose does not break a missed streak.
func AdherenceObservations(logs []*domain.DoseLog) domain.Observations {
	taken, missed := 0, 0
	maxStreak := 0
	streak := make(map[string]int)
	meds := make(map[string]bool)

	for _, d := range logs {
		meds[d.Medication] = true
		switch d.Status {
		case domain.DoseTaken:
			taken++
			streak[d.Medication] = 0
		case domain.DoseMissed:
			missed++
			streak[d.Medication]++
			if streak[d.Medication] > maxStreak {
				maxStreak = streak[d.Medication]
			}
		}
	}

	obs := domain.Observations{
		"takenDoses":           float64(taken),
		"missedDoses":          float64(missed),
		"maxConsecutiveMissed": float64(maxStreak),
		"activeMedications":    float64(len(meds)),
	}
	if rate, ok := derived.AdherenceRate(taken, missed); ok {
		obs[derived.KeyAdherenceRate] = float64(rate)
	}
	return obs
}

// VaccineObservations compares a schedule against now. A dose is expected
// once its due date has passed; expected doses not yet given are overdue.
func VaccineObservations(doses []*domain.VaccineDose, now time.Time) domain.Observations {
	expected, completedExpected, completed, overdue, upcoming := 0, 0, 0, 0, 0
	maxOverdue := 0

	for _, v := range doses {
		if v.Administered() {
			completed++
		}
		if v.DueDate.After(now) {
			if !v.Administered() {
				upcoming++
			}
			continue
		}
		expected++
		if v.Administered() {
			completedExpected++
			continue
		}
		overdue++
		if days := derived.DaysBetween(v.DueDate, now); days > maxOverdue {
			maxOverdue = days
		}
	}

	return domain.Observations{
		"expectedVaccines":       float64(expected),
		"completedVaccines":      float64(completed),
		"overdueVaccineCount":    float64(overdue),
		"expectedCompletionRate": float64(derived.CompletionRate(completedExpected, expected)),
		"maxOverdueDays":         float64(maxOverdue),
		"upcomingVaccines":       float64(upcoming),
	}
}
