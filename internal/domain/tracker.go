package domain

import (
	"time"
)

// MoodEntry is one daily mood check-in. Scales are 1-10.
type MoodEntry struct {
	ID         string    `json:"id"`
	UserID     string    `json:"userId"`
	Mood       int       `json:"mood"`
	Anxiety    int       `json:"anxiety"`
	Stress     int       `json:"stress"`
	Energy     int       `json:"energy"`
	Crisis     bool      `json:"crisis"`
	Note       string    `json:"note,omitempty"`
	RecordedAt time.Time `json:"recordedAt"`
}

// SleepEntry is one night of sleep. Quality is 1-10.
type SleepEntry struct {
	ID             string    `json:"id"`
	UserID         string    `json:"userId"`
	DurationHours  float64   `json:"durationHours"`
	Quality        int       `json:"quality"`
	Awakenings     int       `json:"awakenings"`
	LatencyMinutes int       `json:"latencyMinutes"`
	Snoring        bool      `json:"snoring"`
	Night          time.Time `json:"night"`
}

// DoseStatus is the already classified state of a scheduled dose.
type DoseStatus string

const (
	DoseDue     DoseStatus = "due"
	DoseTaken   DoseStatus = "taken"
	DoseMissed  DoseStatus = "missed"
	DoseSkipped DoseStatus = "skipped"
)

// IsValid reports whether s is a known dose status.
func (s DoseStatus) IsValid() bool {
	switch s {
	case DoseDue, DoseTaken, DoseMissed, DoseSkipped:
		return true
	default:
		return false
	}
}

// DoseLog is one scheduled medicine dose.
type DoseLog struct {
	ID          string     `json:"id"`
	UserID      string     `json:"userId"`
	Medication  string     `json:"medication"`
	ScheduledAt time.Time  `json:"scheduledAt"`
	Status      DoseStatus `json:"status"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// VaccineDose is one entry in a vaccination schedule.
type VaccineDose struct {
	ID             string     `json:"id"`
	UserID         string     `json:"userId"`
	Vaccine        string     `json:"vaccine"`
	DoseNumber     int        `json:"doseNumber"`
	DueDate        time.Time  `json:"dueDate"`
	AdministeredAt *time.Time `json:"administeredAt,omitempty"`
}

// Administered reports whether the dose has been given.
func (v *VaccineDose) Administered() bool {
	return v.AdministeredAt != nil
}

// Subscription is a prepaid counselling plan.
type Subscription struct {
	ID                string    `json:"id"`
	UserID            string    `json:"userId"`
	Plan              string    `json:"plan"`
	SessionsRemaining int       `json:"sessionsRemaining"`
	ExpiresAt         time.Time `json:"expiresAt"`
	CreatedAt         time.Time `json:"createdAt"`
}

// Usable reports whether the subscription can cover a session at now.
func (s *Subscription) Usable(now time.Time) bool {
	return s != nil && s.SessionsRemaining > 0 && now.Before(s.ExpiresAt)
}

// Session identifies the caller of a request. It travels in the request
// context instead of any client-side global state.
type Session struct {
	UserID string `json:"userId"`
	Role   string `json:"role"`
}

// Roles
const (
	RolePatient    = "patient"
	RolePharmacist = "pharmacist"
	RoleDoctor     = "doctor"
	RoleAdmin      = "admin"
)

// CanManagePacks reports whether the session may edit domain packs.
func (s Session) CanManagePacks() bool {
	return s.Role == RoleAdmin
}
