// Package domain defines the core interfaces and types for Veritas.
package domain

import (
	"context"
	"time"
)

// ThreatStore looks up curated known threats.
type ThreatStore interface {
	// FindThreat returns the record matching candidate case-insensitively,
	// either exactly or as a substring in either direction. Returns nil, nil on no match.
	FindThreat(ctx context.Context, candidate string) (*KnownThreatRecord, error)
}

// ScanLog records completed analyses.
type ScanLog interface {
	AppendScanLog(ctx context.Context, entry *ScanLogEntry) error
}

// Repository defines the interface for data persistence.
type Repository interface {
	ThreatStore
	ScanLog

	// Known threat operations
	SaveThreat(ctx context.Context, threat *KnownThreatRecord) error
	ListThreats(ctx context.Context, limit int) ([]*KnownThreatRecord, error)
	DeleteThreat(ctx context.Context, id string) error

	// Scan log queries
	RecentScans(ctx context.Context, limit int) ([]*ScanLogEntry, error)

	// User report operations
	SaveReport(ctx context.Context, report *Report) error
	ListReports(ctx context.Context, limit int) ([]*Report, error)
	MarkReportsVerified(ctx context.Context, url string) (int64, error)

	// Signal rule operations
	SaveSignalRule(ctx context.Context, rule *SignalRule) error
	ListSignalRules(ctx context.Context) ([]*SignalRule, error)
	DeleteSignalRule(ctx context.Context, id string) error

	// Aggregates for the admin dashboard
	Stats(ctx context.Context) (*Stats, error)

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// RepositoryConfig holds configuration for repository initialization.
type RepositoryConfig struct {
	// Driver is the database driver: "sqlite", "postgres" or "mongo"
	Driver string

	// SQLite specific
	SQLitePath string

	// PostgreSQL specific
	PostgresHost     string
	PostgresPort     int
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	// MongoDB specific
	MongoURI      string
	MongoDatabase string

	// Connection pool settings
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}
