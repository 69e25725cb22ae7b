package tracker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/opensource-health/heron/internal/domain"
)

func TestMoodObservations(t *testing.T) {
	t.Run("Empty", func(t *testing.T) {
		obs := MoodObservations(nil)
		assert.Equal(t, domain.Observations{"entries": 0.0}, obs)
	})

	t.Run("Averages", func(t *testing.T) {
		entries := []*domain.MoodEntry{
			{Mood: 2, Anxiety: 8, Stress: 7, Energy: 2},
			{Mood: 3, Anxiety: 7, Stress: 6, Energy: 3, Crisis: true},
			{Mood: 7, Anxiety: 3, Stress: 5, Energy: 6},
		}
		obs := MoodObservations(entries)

		assert.Equal(t, 3.0, obs["entries"])
		assert.Equal(t, 4.0, obs["avgMood"])
		assert.Equal(t, 6.0, obs["avgAnxiety"])
		assert.Equal(t, 6.0, obs["avgStress"])
		assert.Equal(t, 3.7, obs["avgEnergy"])
		assert.Equal(t, 2.0, obs["lowMoodDays"])
		assert.Equal(t, true, obs["crisisReported"])
	})

	t.Run("Window", func(t *testing.T) {
		entries := make([]*domain.MoodEntry, 0, 10)
		for range 7 {
			entries = append(entries, &domain.MoodEntry{Mood: 8, Anxiety: 1, Stress: 1, Energy: 8})
		}
		for range 3 {
			entries = append(entries, &domain.MoodEntry{Mood: 1, Anxiety: 1, Stress: 1, Energy: 1})
		}
		obs := MoodObservations(entries)

		assert.Equal(t, float64(MoodWindow), obs["entries"])
		assert.Equal(t, 8.0, obs["avgMood"], "entries beyond the window are ignored")
		assert.Equal(t, 0.0, obs["lowMoodDays"])
	})
}

func TestSleepObservations(t *testing.T) {
	entries := []*domain.SleepEntry{
		{DurationHours: 5.5, Quality: 4, Awakenings: 3, LatencyMinutes: 40, Snoring: true},
		{DurationHours: 6.5, Quality: 5, Awakenings: 2, LatencyMinutes: 20, Snoring: true},
	}
	obs := SleepObservations(entries)

	assert.Equal(t, 2.0, obs["entries"])
	assert.Equal(t, 6.0, obs["avgDurationHours"])
	assert.Equal(t, 4.5, obs["avgQuality"])
	assert.Equal(t, 2.5, obs["avgAwakenings"])
	assert.Equal(t, 30.0, obs["avgLatencyMinutes"])
	assert.Equal(t, 2.0, obs["snoringNights"])

	assert.Equal(t, domain.Observations{"entries": 0.0}, SleepObservations(nil))
}

func TestAdherenceObservations(t *testing.T) {
	t.Run("NoHistory", func(t *testing.T) {
		obs := AdherenceObservations(nil)
		_, ok := obs["adherenceRate"]
		assert.False(t, ok, "adherence rate is absent without taken or missed doses")
		assert.Equal(t, 0.0, obs["takenDoses"])
	})

	t.Run("OnlyDueDoses", func(t *testing.T) {
		obs := AdherenceObservations([]*domain.DoseLog{
			{Medication: "metformin", Status: domain.DoseDue},
			{Medication: "metformin", Status: domain.DoseSkipped},
		})
		_, ok := obs["adherenceRate"]
		assert.False(t, ok)
		assert.Equal(t, 1.0, obs["activeMedications"])
	})

	t.Run("Streaks", func(t *testing.T) {
		logs := []*domain.DoseLog{
			{Medication: "a", Status: domain.DoseMissed},
			{Medication: "b", Status: domain.DoseMissed},
			{Medication: "a", Status: domain.DoseSkipped},
			{Medication: "a", Status: domain.DoseMissed},
			{Medication: "b", Status: domain.DoseTaken},
			{Medication: "a", Status: domain.DoseMissed},
			{Medication: "a", Status: domain.DoseTaken},
			{Medication: "a", Status: domain.DoseMissed},
		}
		obs := AdherenceObservations(logs)

		assert.Equal(t, 2.0, obs["takenDoses"])
		assert.Equal(t, 5.0, obs["missedDoses"])
		assert.Equal(t, 3.0, obs["maxConsecutiveMissed"])
		assert.Equal(t, 2.0, obs["activeMedications"])
		assert.Equal(t, 29.0, obs["adherenceRate"])
	})
}

func TestVaccineObservations(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	given := now.AddDate(0, -1, 0)

	t.Run("NothingDue", func(t *testing.T) {
		obs := VaccineObservations([]*domain.VaccineDose{
			{Vaccine: "hpv", DueDate: now.AddDate(0, 2, 0)},
		}, now)

		assert.Equal(t, 0.0, obs["expectedVaccines"])
		assert.Equal(t, 100.0, obs["expectedCompletionRate"])
		assert.Equal(t, 1.0, obs["upcomingVaccines"])
	})

	t.Run("Overdue", func(t *testing.T) {
		doses := []*domain.VaccineDose{
			{Vaccine: "mmr", DoseNumber: 1, DueDate: now.AddDate(0, 0, -200), AdministeredAt: &given},
			{Vaccine: "mmr", DoseNumber: 2, DueDate: now.AddDate(0, 0, -100)},
			{Vaccine: "tdap", DueDate: now.AddDate(0, 0, -10)},
			{Vaccine: "hpv", DueDate: now.AddDate(0, 0, 30)},
			{Vaccine: "flu", DueDate: now.AddDate(0, 0, 60), AdministeredAt: &given},
		}
		obs := VaccineObservations(doses, now)

		assert.Equal(t, 3.0, obs["expectedVaccines"])
		assert.Equal(t, 2.0, obs["completedVaccines"])
		assert.Equal(t, 2.0, obs["overdueVaccineCount"])
		assert.Equal(t, 33.0, obs["expectedCompletionRate"])
		assert.Equal(t, 100.0, obs["maxOverdueDays"])
		assert.Equal(t, 1.0, obs["upcomingVaccines"])
	})
}
