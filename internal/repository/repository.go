// Package repository provides data persistence implementations.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/opensource-health/heron/internal/domain"
)

var (
	ErrNotFound     = errors.New("record not found")
	ErrInvalidInput = errors.New("invalid input")
)

// SQLRepository implements domain.Repository using database/sql.
// Works with both SQLite and PostgreSQL drivers.
type SQLRepository struct {
	db     *sql.DB
	driver string
}

// New creates a new repository based on configuration.
func New(cfg domain.RepositoryConfig) (*SQLRepository, error) {
	var db *sql.DB
	var err error

	switch cfg.Driver {
	case "sqlite":
		db, err = openSQLite(cfg)
	case "postgres":
		db, err = openPostgres(cfg)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", cfg.Driver)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	if cfg.MaxOpenConns > 0 && cfg.SQLitePath != ":memory:" {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	repo := NewWithDB(db, cfg.Driver)

	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return repo, nil
}

// NewWithDB wraps an open database handle without running migrations.
func NewWithDB(db *sql.DB, driver string) *SQLRepository {
	return &SQLRepository{
		db:     db,
		driver: driver,
	}
}

func (r *SQLRepository) migrate() error {
	for _, schema := range AllSchemas() {
		if _, err := r.db.Exec(schema); err != nil {
			return err
		}
	}
	return nil
}

func requireUser(userID string) error {
	if userID == "" {
		return fmt.Errorf("%w: userID is required", ErrInvalidInput)
	}
	return nil
}

// SaveAssessment stores an assessment snapshot.
func (r *SQLRepository) SaveAssessment(ctx context.Context, userID string, a *domain.Assessment) error {
	if err := requireUser(userID); err != nil {
		return err
	}
	if a == nil || a.ID == "" {
		return fmt.Errorf("%w: assessment id is required", ErrInvalidInput)
	}

	payload, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("failed to encode assessment: %w", err)
	}

	query := `
		INSERT INTO assessments (
			id, user_id, domain, risk_level, score, max_score, source, timestamp, payload
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.ExecContext(ctx, r.rebind(query),
		a.ID, userID, string(a.Domain), string(a.RiskLevel),
		a.Score, a.MaxScore, a.Metadata.Source,
		a.Timestamp.UTC(), string(payload),
	)
	return err
}

// GetAssessment retrieves an assessment by id for its owner.
func (r *SQLRepository) GetAssessment(ctx context.Context, userID string, id string) (*domain.Assessment, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}

	query := `SELECT payload FROM assessments WHERE user_id = ? AND id = ?`

	var payload string
	err := r.db.QueryRowContext(ctx, r.rebind(query), userID, id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return decodeAssessment(payload)
}

// ListAssessments returns a user's assessments, newest first.
func (r *SQLRepository) ListAssessments(ctx context.Context, userID string, filter domain.AssessmentFilter) ([]*domain.Assessment, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}

	query := `SELECT payload FROM assessments WHERE user_id = ?`
	args := []any{userID}

	if filter.Domain != "" {
		query += ` AND domain = ?`
		args = append(args, string(filter.Domain))
	}
	if !filter.Since.IsZero() {
		query += ` AND timestamp >= ?`
		args = append(args, filter.Since.UTC())
	}
	query += ` ORDER BY timestamp DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ` + strconv.Itoa(filter.Limit)
	}

	rows, err := r.db.QueryContext(ctx, r.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Assessment
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		a, err := decodeAssessment(payload)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func decodeAssessment(payload string) (*domain.Assessment, error) {
	var a domain.Assessment
	if err := json.Unmarshal([]byte(payload), &a); err != nil {
		return nil, fmt.Errorf("failed to decode assessment: %w", err)
	}
	return &a, nil
}

// SaveDomainPack stores or replaces a domain pack.
func (r *SQLRepository) SaveDomainPack(ctx context.Context, pack *domain.DomainPack) error {
	if pack == nil || pack.ID == "" {
		return fmt.Errorf("%w: pack id is required", ErrInvalidInput)
	}

	now := time.Now().UTC()
	if pack.CreatedAt.IsZero() {
		pack.CreatedAt = now
	}
	pack.UpdatedAt = now

	payload, err := json.Marshal(pack)
	if err != nil {
		return fmt.Errorf("failed to encode domain pack: %w", err)
	}

	query := `
		INSERT INTO domain_packs (id, name, version, payload, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			version = excluded.version,
			payload = excluded.payload,
			updated_at = excluded.updated_at
	`

	_, err = r.db.ExecContext(ctx, r.rebind(query),
		string(pack.ID), pack.Name, pack.Version, string(payload),
		pack.CreatedAt.UTC(), pack.UpdatedAt,
	)
	return err
}

// GetDomainPack retrieves a stored domain pack.
func (r *SQLRepository) GetDomainPack(ctx context.Context, id domain.DomainID) (*domain.DomainPack, error) {
	query := `SELECT payload FROM domain_packs WHERE id = ?`

	var payload string
	err := r.db.QueryRowContext(ctx, r.rebind(query), string(id)).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var pack domain.DomainPack
	if err := json.Unmarshal([]byte(payload), &pack); err != nil {
		return nil, fmt.Errorf("failed to decode domain pack: %w", err)
	}
	return &pack, nil
}

// ListDomainPacks returns every stored domain pack ordered by id.
func (r *SQLRepository) ListDomainPacks(ctx context.Context) ([]*domain.DomainPack, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT payload FROM domain_packs ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var packs []*domain.DomainPack
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var pack domain.DomainPack
		if err := json.Unmarshal([]byte(payload), &pack); err != nil {
			return nil, fmt.Errorf("failed to decode domain pack: %w", err)
		}
		packs = append(packs, &pack)
	}
	return packs, rows.Err()
}

// SaveMoodEntry stores a mood check-in.
func (r *SQLRepository) SaveMoodEntry(ctx context.Context, userID string, e *domain.MoodEntry) error {
	if err := requireUser(userID); err != nil {
		return err
	}

	query := `
		INSERT INTO mood_entries (id, user_id, mood, anxiety, stress, energy, crisis, note, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		e.ID, userID, e.Mood, e.Anxiety, e.Stress, e.Energy, e.Crisis, e.Note, e.RecordedAt.UTC(),
	)
	return err
}

// ListMoodEntries returns the most recent mood entries, newest first.
func (r *SQLRepository) ListMoodEntries(ctx context.Context, userID string, limit int) ([]*domain.MoodEntry, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT id, user_id, mood, anxiety, stress, energy, crisis, note, recorded_at
		FROM mood_entries
		WHERE user_id = ?
		ORDER BY recorded_at DESC
		LIMIT ` + strconv.Itoa(limit)

	rows, err := r.db.QueryContext(ctx, r.rebind(query), userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*domain.MoodEntry
	for rows.Next() {
		var e domain.MoodEntry
		var note sql.NullString
		if err := rows.Scan(&e.ID, &e.UserID, &e.Mood, &e.Anxiety, &e.Stress, &e.Energy, &e.Crisis, &note, &e.RecordedAt); err != nil {
			return nil, err
		}
		e.Note = note.String
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

// SaveSleepEntry stores a night of sleep.
func (r *SQLRepository) SaveSleepEntry(ctx context.Context, userID string, e *domain.SleepEntry) error {
	if err := requireUser(userID); err != nil {
		return err
	}

	query := `
		INSERT INTO sleep_entries (id, user_id, duration_hours, quality, awakenings, latency_minutes, snoring, night)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		e.ID, userID, e.DurationHours, e.Quality, e.Awakenings, e.LatencyMinutes, e.Snoring, e.Night.UTC(),
	)
	return err
}

// ListSleepEntries returns the most recent sleep entries, newest first.
func (r *SQLRepository) ListSleepEntries(ctx context.Context, userID string, limit int) ([]*domain.SleepEntry, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT id, user_id, duration_hours, quality, awakenings, latency_minutes, snoring, night
		FROM sleep_entries
		WHERE user_id = ?
		ORDER BY night DESC
		LIMIT ` + strconv.Itoa(limit)

	rows, err := r.db.QueryContext(ctx, r.rebind(query), userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*domain.SleepEntry
	for rows.Next() {
		var e domain.SleepEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.DurationHours, &e.Quality, &e.Awakenings, &e.LatencyMinutes, &e.Snoring, &e.Night); err != nil {
			return nil, err
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

// SaveDoseLog stores a scheduled dose.
func (r *SQLRepository) SaveDoseLog(ctx context.Context, userID string, d *domain.DoseLog) error {
	if err := requireUser(userID); err != nil {
		return err
	}
	if !d.Status.IsValid() {
		return fmt.Errorf("%w: unknown dose status %q", ErrInvalidInput, d.Status)
	}

	query := `
		INSERT INTO dose_logs (id, user_id, medication, scheduled_at, status, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		d.ID, userID, d.Medication, d.ScheduledAt.UTC(), string(d.Status), d.UpdatedAt.UTC(),
	)
	return err
}

// UpdateDoseStatus sets the status of one of the user's doses.
func (r *SQLRepository) UpdateDoseStatus(ctx context.Context, userID string, id string, status domain.DoseStatus, at time.Time) error {
	if err := requireUser(userID); err != nil {
		return err
	}
	if !status.IsValid() {
		return fmt.Errorf("%w: unknown dose status %q", ErrInvalidInput, status)
	}

	query := `UPDATE dose_logs SET status = ?, updated_at = ? WHERE user_id = ? AND id = ?`

	result, err := r.db.ExecContext(ctx, r.rebind(query), string(status), at.UTC(), userID, id)
	if err != nil {
		return err
	}
	return expectAffected(result)
}

// ListDoseLogs returns doses scheduled at or after since, oldest first.
func (r *SQLRepository) ListDoseLogs(ctx context.Context, userID string, since time.Time) ([]*domain.DoseLog, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}

	query := `
		SELECT id, user_id, medication, scheduled_at, status, updated_at
		FROM dose_logs
		WHERE user_id = ? AND scheduled_at >= ?
		ORDER BY scheduled_at ASC
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), userID, since.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []*domain.DoseLog
	for rows.Next() {
		var d domain.DoseLog
		var status string
		if err := rows.Scan(&d.ID, &d.UserID, &d.Medication, &d.ScheduledAt, &status, &d.UpdatedAt); err != nil {
			return nil, err
		}
		d.Status = domain.DoseStatus(status)
		logs = append(logs, &d)
	}
	return logs, rows.Err()
}

// MarkMissedDoses moves due doses scheduled before cutoff to missed and
// returns the distinct affected user ids.
func (r *SQLRepository) MarkMissedDoses(ctx context.Context, cutoff time.Time, at time.Time) ([]string, error) {
	query := `
		UPDATE dose_logs SET status = ?, updated_at = ?
		WHERE status = ? AND scheduled_at < ?
		RETURNING user_id
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query),
		string(domain.DoseMissed), at.UTC(), string(domain.DoseDue), cutoff.UTC(),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	seen := make(map[string]bool)
	var users []string
	for rows.Next() {
		var userID string
		if err := rows.Scan(&userID); err != nil {
			return nil, err
		}
		if !seen[userID] {
			seen[userID] = true
			users = append(users, userID)
		}
	}
	return users, rows.Err()
}

// SaveVaccineDose stores a vaccination schedule entry.
func (r *SQLRepository) SaveVaccineDose(ctx context.Context, userID string, v *domain.VaccineDose) error {
	if err := requireUser(userID); err != nil {
		return err
	}

	var administered any
	if v.AdministeredAt != nil {
		administered = v.AdministeredAt.UTC()
	}

	query := `
		INSERT INTO vaccine_doses (id, user_id, vaccine, dose_number, due_date, administered_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		v.ID, userID, v.Vaccine, v.DoseNumber, v.DueDate.UTC(), administered,
	)
	return err
}

// MarkVaccineAdministered records when a scheduled dose was given.
func (r *SQLRepository) MarkVaccineAdministered(ctx context.Context, userID string, id string, at time.Time) error {
	if err := requireUser(userID); err != nil {
		return err
	}

	query := `UPDATE vaccine_doses SET administered_at = ? WHERE user_id = ? AND id = ?`

	result, err := r.db.ExecContext(ctx, r.rebind(query), at.UTC(), userID, id)
	if err != nil {
		return err
	}
	return expectAffected(result)
}

// ListVaccineDoses returns the user's schedule ordered by due date.
func (r *SQLRepository) ListVaccineDoses(ctx context.Context, userID string) ([]*domain.VaccineDose, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}

	query := `
		SELECT id, user_id, vaccine, dose_number, due_date, administered_at
		FROM vaccine_doses
		WHERE user_id = ?
		ORDER BY due_date ASC
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var doses []*domain.VaccineDose
	for rows.Next() {
		var v domain.VaccineDose
		var administered sql.NullTime
		if err := rows.Scan(&v.ID, &v.UserID, &v.Vaccine, &v.DoseNumber, &v.DueDate, &administered); err != nil {
			return nil, err
		}
		if administered.Valid {
			t := administered.Time
			v.AdministeredAt = &t
		}
		doses = append(doses, &v)
	}
	return doses, rows.Err()
}

// SaveSubscription stores a counselling subscription.
func (r *SQLRepository) SaveSubscription(ctx context.Context, userID string, s *domain.Subscription) error {
	if err := requireUser(userID); err != nil {
		return err
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO subscriptions (id, user_id, plan, sessions_remaining, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			plan = excluded.plan,
			sessions_remaining = excluded.sessions_remaining,
			expires_at = excluded.expires_at
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		s.ID, userID, s.Plan, s.SessionsRemaining, s.ExpiresAt.UTC(), s.CreatedAt.UTC(),
	)
	return err
}

// GetActiveSubscription returns the usable subscription expiring soonest.
func (r *SQLRepository) GetActiveSubscription(ctx context.Context, userID string, now time.Time) (*domain.Subscription, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}

	query := `
		SELECT id, user_id, plan, sessions_remaining, expires_at, created_at
		FROM subscriptions
		WHERE user_id = ? AND sessions_remaining > 0 AND expires_at > ?
		ORDER BY expires_at ASC
		LIMIT 1
	`

	var s domain.Subscription
	err := r.db.QueryRowContext(ctx, r.rebind(query), userID, now.UTC()).Scan(
		&s.ID, &s.UserID, &s.Plan, &s.SessionsRemaining, &s.ExpiresAt, &s.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Ping checks database connectivity.
func (r *SQLRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the database connection.
func (r *SQLRepository) Close() error {
	return r.db.Close()
}

func expectAffected(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// rebind converts ? placeholders to $1, $2, etc. for PostgreSQL.
func (r *SQLRepository) rebind(query string) string {
	if r.driver != "postgres" {
		return query
	}

	result := make([]byte, 0, len(query)+8)
	n := 1
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			result = append(result, '$')
			result = strconv.AppendInt(result, int64(n), 10)
			n++
		} else {
			result = append(result, query[i])
		}
	}
	return string(result)
}

var _ domain.Repository = (*SQLRepository)(nil)
