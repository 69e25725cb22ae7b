package catalog

import (
	"github.com/opensource-health/heron/internal/domain"
)

// BuiltinVersion is the version stamped on the packs compiled into the binary.
const BuiltinVersion = "2024.1"

// Builtin returns fresh copies of the built-in domain packs.
func Builtin() []*domain.DomainPack {
	return []*domain.DomainPack{
		PCOS(),
		Vaccine(),
		Adherence(),
		Mood(),
		Sleep(),
	}
}

// PCOS scores polycystic ovary syndrome indicators from a one-off survey.
func PCOS() *domain.DomainPack {
	return &domain.DomainPack{
		ID:          domain.DomainPCOS,
		Name:        "PCOS risk",
		Description: "Screening for polycystic ovary syndrome indicators",
		Version:     BuiltinVersion,
		Rules: []domain.Rule{
			{ID: "bmi-obese", Label: "BMI in obese range", Description: "BMI of 30 or above is associated with insulin resistance", Expression: "obs.bmi >= 30.0", Points: 3},
			{ID: "bmi-overweight", Label: "BMI in overweight range", Description: "BMI between 25 and 30", Expression: "obs.bmi >= 25.0 && obs.bmi < 30.0", Points: 2},
			{ID: "irregular-cycle", Label: "Irregular cycle length", Description: "Cycles longer than 35 days or shorter than 21 days", Expression: "obs.cycleLength > 35.0 || obs.cycleLength < 21.0", Points: 3},
			{ID: "missed-periods", Label: "Missed periods", Description: "Periods skipped in recent months", Expression: "obs.missedPeriods == true", Points: 3},
			{ID: "late-periods", Label: "Periods often late", Description: "Periods frequently arrive later than expected", Expression: "obs.periodsLateOften == true", Points: 2},
			{ID: "acne-severe", Label: "Severe acne", Description: "Severe acne can indicate elevated androgens", Expression: `obs.acne == "severe"`, Points: 2},
			{ID: "acne-moderate", Label: "Moderate acne", Description: "Persistent moderate acne", Expression: `obs.acne == "moderate"`, Points: 1},
			{ID: "hair-fall", Label: "Hair thinning", Description: "Scalp hair loss or thinning", Expression: "obs.hairFall == true", Points: 2},
			{ID: "facial-hair", Label: "Excess facial or body hair", Description: "Hirsutism is a common androgen sign", Expression: "obs.facialHair == true", Points: 3},
			{ID: "weight-gain", Label: "Recent weight gain", Description: "Unexplained weight gain in recent months", Expression: "obs.weightGainRecently == true", Points: 2},
			{ID: "family-history", Label: "Family history of PCOS", Description: "A close relative has been diagnosed with PCOS", Expression: "obs.familyHistoryPCOS == true", Points: 2},
		},
		Thresholds: domain.Thresholds{Moderate: 5, High: 9},
		Bundles: map[domain.RiskTier]domain.Bundle{
			domain.TierLow: {
				Recommendations: []string{
					"Keep tracking your cycle each month",
					"Maintain a balanced diet and regular exercise",
				},
				PreventiveActions: []string{
					"Schedule an annual gynaecological check-up",
				},
			},
			domain.TierModerate: {
				Recommendations: []string{
					"Book a consultation with a gynaecologist to discuss your symptoms",
					"Track cycle length and symptoms for the next three months",
					"Aim for 150 minutes of moderate activity per week",
				},
				PreventiveActions: []string{
					"Ask about fasting glucose and lipid screening",
					"Limit refined carbohydrates and sugary drinks",
				},
			},
			domain.TierHigh: {
				UrgentActions: []string{
					"Consult a gynaecologist or endocrinologist within the next two weeks",
					"Request hormone panel and pelvic ultrasound testing",
				},
				Recommendations: []string{
					"Bring your cycle history and symptom list to the appointment",
					"Discuss weight management support with your doctor",
				},
				PreventiveActions: []string{
					"Screen for insulin resistance and type 2 diabetes",
					"Monitor blood pressure regularly",
				},
			},
		},
	}
}

// Vaccine scores how far a vaccination schedule has fallen behind.
// Nothing due yet always yields Low.
func Vaccine() *domain.DomainPack {
	return &domain.DomainPack{
		ID:          domain.DomainVaccine,
		Name:        "Vaccine schedule",
		Description: "Overdue vaccination detection",
		Version:     BuiltinVersion,
		Rules: []domain.Rule{
			{ID: "overdue-many", Label: "Several vaccines overdue", Description: "Three or more doses are past their due date", Expression: "obs.overdueVaccineCount >= 3.0", Points: 4},
			{ID: "overdue-any", Label: "Vaccine overdue", Description: "At least one dose is past its due date", Expression: "obs.overdueVaccineCount >= 1.0", Points: 2},
			{ID: "completion-low", Label: "Low schedule completion", Description: "Less than half of due doses have been given", Expression: "obs.expectedCompletionRate < 50.0", Points: 3},
			{ID: "completion-partial", Label: "Partial schedule completion", Description: "Between half and 80% of due doses have been given", Expression: "obs.expectedCompletionRate >= 50.0 && obs.expectedCompletionRate < 80.0", Points: 1},
			{ID: "long-overdue", Label: "Dose overdue more than 90 days", Description: "The oldest missing dose is more than three months late", Expression: "obs.maxOverdueDays > 90.0", Points: 2},
		},
		Thresholds: domain.Thresholds{Moderate: 2, High: 5},
		Preconditions: []domain.Precondition{
			{ID: "nothing-due", Expression: "obs.expectedVaccines == 0.0", Tier: domain.TierLow, Reason: "no vaccines are due yet"},
		},
		Bundles: map[domain.RiskTier]domain.Bundle{
			domain.TierLow: {
				Recommendations: []string{
					"Your vaccination schedule is up to date",
				},
				PreventiveActions: []string{
					"Set reminders for upcoming doses",
					"Keep your vaccination card in a safe place",
				},
			},
			domain.TierModerate: {
				Recommendations: []string{
					"Book an appointment to catch up on overdue doses",
					"Check with your clinic whether the schedule needs adjusting",
				},
				PreventiveActions: []string{
					"Enable reminders for the remaining doses",
				},
			},
			domain.TierHigh: {
				UrgentActions: []string{
					"Contact your healthcare provider this week to plan catch-up vaccination",
				},
				Recommendations: []string{
					"Ask whether any series needs to be restarted",
					"Bring your vaccination record to the appointment",
				},
				PreventiveActions: []string{
					"Avoid high-exposure settings until protection is restored",
				},
			},
		},
	}
}

// Adherence scores medication adherence over the recent dose history.
// Without any taken or missed dose the tier is Low.
func Adherence() *domain.DomainPack {
	return &domain.DomainPack{
		ID:          domain.DomainAdherence,
		Name:        "Medicine adherence",
		Description: "Medication adherence analysis",
		Version:     BuiltinVersion,
		Rules: []domain.Rule{
			{ID: "adherence-poor", Label: "Poor adherence", Description: "Fewer than half of scheduled doses were taken", Expression: "obs.adherenceRate < 50.0", Points: 4},
			{ID: "adherence-fair", Label: "Fair adherence", Description: "Between 50% and 80% of scheduled doses were taken", Expression: "obs.adherenceRate >= 50.0 && obs.adherenceRate < 80.0", Points: 2},
			{ID: "missed-many", Label: "Many missed doses", Description: "Five or more doses missed in the window", Expression: "obs.missedDoses >= 5.0", Points: 2},
			{ID: "missed-streak", Label: "Consecutive missed doses", Description: "Three or more doses in a row were missed", Expression: "obs.maxConsecutiveMissed >= 3.0", Points: 2},
			{ID: "polypharmacy", Label: "Many active medications", Description: "Five or more medications are being taken", Expression: "obs.activeMedications >= 5.0", Points: 1},
		},
		Thresholds: domain.Thresholds{Moderate: 2, High: 5},
		Preconditions: []domain.Precondition{
			{ID: "no-history", Expression: "!has(obs.adherenceRate)", Tier: domain.TierLow, Reason: "no dose history"},
		},
		Bundles: map[domain.RiskTier]domain.Bundle{
			domain.TierLow: {
				Recommendations: []string{
					"Great job staying on schedule",
				},
				PreventiveActions: []string{
					"Keep refills ahead of your last dose",
				},
			},
			domain.TierModerate: {
				Recommendations: []string{
					"Set a daily alarm for each dose",
					"Use a weekly pill organiser",
				},
				PreventiveActions: []string{
					"Review your schedule with a pharmacist",
				},
			},
			domain.TierHigh: {
				UrgentActions: []string{
					"Talk to your pharmacist or doctor about missed doses before your next dose",
				},
				Recommendations: []string{
					"Ask whether a simpler dosing schedule is possible",
					"Enable dose reminders and caregiver notifications",
				},
				PreventiveActions: []string{
					"Do not double up on missed doses without medical advice",
				},
			},
		},
	}
}

// Mood scores the most recent week of mood check-ins.
func Mood() *domain.DomainPack {
	return &domain.DomainPack{
		ID:             domain.DomainMood,
		Name:           "Mood",
		Description:    "Mood and mental health risk from daily check-ins",
		Version:        BuiltinVersion,
		WellbeingScale: 10,
		Rules: []domain.Rule{
			{ID: "mood-very-low", Label: "Very low average mood", Description: "Average mood of 3 or below", Expression: "obs.avgMood <= 3.0", Points: 3},
			{ID: "mood-low", Label: "Low average mood", Description: "Average mood between 3 and 5", Expression: "obs.avgMood > 3.0 && obs.avgMood <= 5.0", Points: 1},
			{ID: "anxiety-high", Label: "High anxiety", Description: "Average anxiety of 7 or above", Expression: "obs.avgAnxiety >= 7.0", Points: 2},
			{ID: "stress-high", Label: "High stress", Description: "Average stress of 7 or above", Expression: "obs.avgStress >= 7.0", Points: 2},
			{ID: "energy-low", Label: "Low energy", Description: "Average energy of 3 or below", Expression: "obs.avgEnergy <= 3.0", Points: 1},
			{ID: "low-mood-days", Label: "Frequent low mood days", Description: "Four or more days with mood of 3 or below", Expression: "obs.lowMoodDays >= 4.0", Points: 2},
			{ID: "crisis", Label: "Crisis reported", Description: "A check-in reported thoughts of self-harm or crisis", Expression: "obs.crisisReported == true", Points: 5},
		},
		Thresholds: domain.Thresholds{Moderate: 3, High: 6},
		Bundles: map[domain.RiskTier]domain.Bundle{
			domain.TierLow: {
				Recommendations: []string{
					"Keep up the habits that support your mood",
				},
				PreventiveActions: []string{
					"Continue daily check-ins",
					"Stay connected with friends and family",
				},
			},
			domain.TierModerate: {
				Recommendations: []string{
					"Try a short daily relaxation or breathing exercise",
					"Consider booking a counselling session",
					"Keep a regular sleep and activity routine",
				},
				PreventiveActions: []string{
					"Limit alcohol and caffeine",
				},
			},
			domain.TierHigh: {
				UrgentActions: []string{
					"Book a counselling session as soon as possible",
					"If you are in crisis, contact local emergency services or a crisis line now",
				},
				Recommendations: []string{
					"Tell someone you trust how you are feeling",
				},
				PreventiveActions: []string{
					"Remove access to means of self-harm",
				},
			},
		},
	}
}

// Sleep scores the most recent two weeks of sleep logs.
func Sleep() *domain.DomainPack {
	return &domain.DomainPack{
		ID:             domain.DomainSleep,
		Name:           "Sleep",
		Description:    "Sleep quality risk from nightly logs",
		Version:        BuiltinVersion,
		WellbeingScale: 10,
		Rules: []domain.Rule{
			{ID: "duration-very-short", Label: "Very short sleep", Description: "Average sleep under 5 hours", Expression: "obs.avgDurationHours < 5.0", Points: 3},
			{ID: "duration-short", Label: "Short sleep", Description: "Average sleep between 5 and 6 hours", Expression: "obs.avgDurationHours >= 5.0 && obs.avgDurationHours < 6.0", Points: 2},
			{ID: "duration-long", Label: "Oversleeping", Description: "Average sleep over 10 hours", Expression: "obs.avgDurationHours > 10.0", Points: 1},
			{ID: "quality-poor", Label: "Poor sleep quality", Description: "Average quality of 4 or below", Expression: "obs.avgQuality <= 4.0", Points: 2},
			{ID: "awakenings", Label: "Frequent awakenings", Description: "Three or more awakenings per night", Expression: "obs.avgAwakenings >= 3.0", Points: 2},
			{ID: "latency", Label: "Slow to fall asleep", Description: "More than 30 minutes to fall asleep", Expression: "obs.avgLatencyMinutes > 30.0", Points: 1},
			{ID: "snoring", Label: "Regular snoring", Description: "Snoring reported on three or more nights", Expression: "obs.snoringNights >= 3.0", Points: 2},
		},
		Thresholds: domain.Thresholds{Moderate: 3, High: 6},
		Bundles: map[domain.RiskTier]domain.Bundle{
			domain.TierLow: {
				Recommendations: []string{
					"Your sleep pattern looks healthy",
				},
				PreventiveActions: []string{
					"Keep a consistent bedtime and wake time",
				},
			},
			domain.TierModerate: {
				Recommendations: []string{
					"Avoid screens for an hour before bed",
					"Keep your bedroom dark and quiet",
				},
				PreventiveActions: []string{
					"Avoid caffeine after mid-afternoon",
				},
			},
			domain.TierHigh: {
				UrgentActions: []string{
					"Consult a doctor about your sleep, especially if you snore or feel sleepy while driving",
				},
				Recommendations: []string{
					"Ask about a sleep study",
					"Keep a sleep diary to bring to your appointment",
				},
				PreventiveActions: []string{
					"Do not drive when drowsy",
				},
			},
		},
	}
}
