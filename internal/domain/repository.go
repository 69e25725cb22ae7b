// Package domain defines the core interfaces and types for Heron.
package domain

import (
	"context"
	"time"
)

// Repository defines the interface for data persistence.
// Every record method is scoped by userID; domain packs are service-wide.
type Repository interface {
	// Assessment snapshots
	SaveAssessment(ctx context.Context, userID string, a *Assessment) error
	GetAssessment(ctx context.Context, userID string, id string) (*Assessment, error)
	ListAssessments(ctx context.Context, userID string, filter AssessmentFilter) ([]*Assessment, error)

	// Domain pack configuration
	SaveDomainPack(ctx context.Context, pack *DomainPack) error
	GetDomainPack(ctx context.Context, id DomainID) (*DomainPack, error)
	ListDomainPacks(ctx context.Context) ([]*DomainPack, error)

	// Mood and sleep trackers, newest first
	SaveMoodEntry(ctx context.Context, userID string, e *MoodEntry) error
	ListMoodEntries(ctx context.Context, userID string, limit int) ([]*MoodEntry, error)
	SaveSleepEntry(ctx context.Context, userID string, e *SleepEntry) error
	ListSleepEntries(ctx context.Context, userID string, limit int) ([]*SleepEntry, error)

	// Medication doses
	SaveDoseLog(ctx context.Context, userID string, d *DoseLog) error
	UpdateDoseStatus(ctx context.Context, userID string, id string, status DoseStatus, at time.Time) error
	ListDoseLogs(ctx context.Context, userID string, since time.Time) ([]*DoseLog, error)

	// MarkMissedDoses moves every due dose scheduled before cutoff to missed
	// and returns the distinct affected user ids.
	MarkMissedDoses(ctx context.Context, cutoff time.Time, at time.Time) ([]string, error)

	// Vaccination schedule
	SaveVaccineDose(ctx context.Context, userID string, v *VaccineDose) error
	MarkVaccineAdministered(ctx context.Context, userID string, id string, at time.Time) error
	ListVaccineDoses(ctx context.Context, userID string) ([]*VaccineDose, error)

	// Counselling subscriptions
	SaveSubscription(ctx context.Context, userID string, s *Subscription) error
	GetActiveSubscription(ctx context.Context, userID string, now time.Time) (*Subscription, error)

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// AssessmentFilter narrows ListAssessments. Zero values match everything.
type AssessmentFilter struct {
	Domain DomainID
	Since  time.Time
	Limit  int
}

// RepositoryConfig holds configuration for repository initialization.
type RepositoryConfig struct {
	// Driver is the database driver: "sqlite" or "postgres"
	Driver string `json:"driver"`

	// SQLite specific
	SQLitePath string `json:"sqlitePath"`

	// PostgreSQL specific
	PostgresHost     string `json:"postgresHost"`
	PostgresPort     int    `json:"postgresPort"`
	PostgresUser     string `json:"postgresUser"`
	PostgresPassword string `json:"-"`
	PostgresDB       string `json:"postgresDb"`
	PostgresSSLMode  string `json:"postgresSslMode"`

	// Connection pool settings
	MaxOpenConns    int           `json:"maxOpenConns"`
	MaxIdleConns    int           `json:"maxIdleConns"`
	ConnMaxLifetime time.Duration `json:"connMaxLifetime"`
}
