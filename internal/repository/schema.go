package repository

// Schema definitions for the Heron database.
// Compatible with both SQLite and PostgreSQL.

const schemaAssessments = `
CREATE TABLE IF NOT EXISTS assessments (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    domain TEXT NOT NULL,
    risk_level TEXT NOT NULL,
    score INTEGER NOT NULL,
    max_score INTEGER NOT NULL,
    source TEXT NOT NULL,
    timestamp TIMESTAMP NOT NULL,
    payload TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_assessments_user ON assessments(user_id, timestamp);
CREATE INDEX IF NOT EXISTS idx_assessments_domain ON assessments(user_id, domain, timestamp);
`

// schemaDomainPacks stores edited packs; they override the built-ins by id.
const schemaDomainPacks = `
CREATE TABLE IF NOT EXISTS domain_packs (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    version TEXT NOT NULL,
    payload TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
);
`

const schemaMoodEntries = `
CREATE TABLE IF NOT EXISTS mood_entries (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    mood INTEGER NOT NULL,
    anxiety INTEGER NOT NULL,
    stress INTEGER NOT NULL,
    energy INTEGER NOT NULL,
    crisis BOOLEAN NOT NULL DEFAULT FALSE,
    note TEXT,
    recorded_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_mood_entries_user ON mood_entries(user_id, recorded_at);
`

const schemaSleepEntries = `
CREATE TABLE IF NOT EXISTS sleep_entries (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    duration_hours REAL NOT NULL,
    quality INTEGER NOT NULL,
    awakenings INTEGER NOT NULL,
    latency_minutes INTEGER NOT NULL,
    snoring BOOLEAN NOT NULL DEFAULT FALSE,
    night TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_sleep_entries_user ON sleep_entries(user_id, night);
`

const schemaDoseLogs = `
CREATE TABLE IF NOT EXISTS dose_logs (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    medication TEXT NOT NULL,
    scheduled_at TIMESTAMP NOT NULL,
    status TEXT NOT NULL,
    updated_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_dose_logs_user ON dose_logs(user_id, scheduled_at);
CREATE INDEX IF NOT EXISTS idx_dose_logs_status ON dose_logs(status, scheduled_at);
`

const schemaVaccineDoses = `
CREATE TABLE IF NOT EXISTS vaccine_doses (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    vaccine TEXT NOT NULL,
    dose_number INTEGER NOT NULL,
    due_date TIMESTAMP NOT NULL,
    administered_at TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_vaccine_doses_user ON vaccine_doses(user_id, due_date);
`

const schemaSubscriptions = `
CREATE TABLE IF NOT EXISTS subscriptions (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    plan TEXT NOT NULL,
    sessions_remaining INTEGER NOT NULL,
    expires_at TIMESTAMP NOT NULL,
    created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_subscriptions_user ON subscriptions(user_id, expires_at);
`

// AllSchemas returns all schema statements in order.
func AllSchemas() []string {
	return []string{
		schemaAssessments,
		schemaDomainPacks,
		schemaMoodEntries,
		schemaSleepEntries,
		schemaDoseLogs,
		schemaVaccineDoses,
		schemaSubscriptions,
	}
}
