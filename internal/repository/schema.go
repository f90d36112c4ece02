package repository

// Schema definitions for Veritas database.
// Compatible with both SQLite and PostgreSQL.

// Threat URLs are stored lowercased; the unique constraint rejects duplicates.
const schemaKnownThreats = `
CREATE TABLE IF NOT EXISTS known_threats (
    id TEXT PRIMARY KEY,
    url TEXT NOT NULL UNIQUE,
    domain TEXT NOT NULL DEFAULT '',
    category TEXT NOT NULL,
    severity TEXT NOT NULL,
    reason TEXT,
    source TEXT NOT NULL,
    added_date TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_known_threats_added ON known_threats(added_date);
`

const schemaScanLogs = `
CREATE TABLE IF NOT EXISTS scan_logs (
    id TEXT PRIMARY KEY,
    url TEXT NOT NULL,
    risk_score INTEGER NOT NULL,
    verdict TEXT NOT NULL,
    timestamp TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_scan_logs_timestamp ON scan_logs(timestamp);
CREATE INDEX IF NOT EXISTS idx_scan_logs_verdict ON scan_logs(verdict);
`

const schemaReports = `
CREATE TABLE IF NOT EXISTS reports (
    id TEXT PRIMARY KEY,
    url TEXT NOT NULL,
    message TEXT,
    user_email TEXT NOT NULL,
    category TEXT NOT NULL,
    status TEXT NOT NULL,
    reported_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_reports_status ON reports(status);
CREATE INDEX IF NOT EXISTS idx_reports_url ON reports(url);
`

// schemaSignalRules stores admin-authored CEL rules.
// enabled is an INTEGER so the same DDL works on both drivers.
const schemaSignalRules = `
CREATE TABLE IF NOT EXISTS signal_rules (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    description TEXT,
    expression TEXT NOT NULL,
    adjustment INTEGER NOT NULL DEFAULT 0,
    explanation TEXT NOT NULL,
    enabled INTEGER NOT NULL DEFAULT 1,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
);
`

// AllSchemas returns all schema statements in order.
func AllSchemas() []string {
	return []string{
		schemaKnownThreats,
		schemaScanLogs,
		schemaReports,
		schemaSignalRules,
	}
}
