// Package repository provides data persistence implementations.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/opensource-finance/veritas/internal/domain"
)

var (
	ErrNotFound     = errors.New("record not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrDuplicate    = errors.New("record already exists")
)

var (
	_ domain.Repository = (*SQLRepository)(nil)
	_ domain.Repository = (*MongoRepository)(nil)
)

// minReverseMatchLen is the shortest candidate that may match as a substring of a stored pattern.
const minReverseMatchLen = 4

// SQLRepository implements domain.Repository using database/sql.
// Works with both SQLite and PostgreSQL drivers.
type SQLRepository struct {
	db     *sql.DB
	driver string
}

// New creates a new repository based on configuration.
func New(cfg domain.RepositoryConfig) (domain.Repository, error) {
	if cfg.Driver == "mongo" {
		repo, err := NewMongo(cfg)
		if err != nil {
			return nil, err
		}
		return repo, nil
	}

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
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	repo := &SQLRepository{
		db:     db,
		driver: cfg.Driver,
	}

	// Run migrations
	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return repo, nil
}

func (r *SQLRepository) migrate() error {
	for _, schema := range AllSchemas() {
		if _, err := r.db.Exec(schema); err != nil {
			return err
		}
	}
	return nil
}

// FindThreat returns the most recently added threat whose URL or domain occurs in
// candidate, or whose URL contains candidate. Matching is case-insensitive.
func (r *SQLRepository) FindThreat(ctx context.Context, candidate string) (*domain.KnownThreatRecord, error) {
	c, ok := normalizeCandidate(candidate)
	if !ok {
		return nil, nil
	}

	where := fmt.Sprintf("(url <> '' AND %s) OR (domain <> '' AND %s)",
		r.contains("?", "url"), r.contains("?", "domain"))
	args := []any{c, c}
	if utf8.RuneCountInString(c) >= minReverseMatchLen {
		where += " OR " + r.contains("url", "?")
		args = append(args, c)
	}

	query := `
		SELECT id, url, domain, category, severity, reason, source, added_date
		FROM known_threats
		WHERE ` + where + `
		ORDER BY added_date DESC, id
		LIMIT 1
	`

	t, err := scanThreat(r.db.QueryRowContext(ctx, r.rebind(query), args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find threat: %w", err)
	}
	return t, nil
}

// SaveThreat stores a curated threat. URL and domain are stored lowercased.
func (r *SQLRepository) SaveThreat(ctx context.Context, t *domain.KnownThreatRecord) error {
	if err := prepareThreat(t); err != nil {
		return err
	}

	query := `
		INSERT INTO known_threats (id, url, domain, category, severity, reason, source, added_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		t.ID, t.URL, t.Domain, t.Category, t.Severity, t.Reason, t.Source, t.AddedDate,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: threat %s", ErrDuplicate, t.URL)
	}
	return err
}

// ListThreats returns the latest threats, newest first.
func (r *SQLRepository) ListThreats(ctx context.Context, limit int) ([]*domain.KnownThreatRecord, error) {
	query := `
		SELECT id, url, domain, category, severity, reason, source, added_date
		FROM known_threats
		ORDER BY added_date DESC, id
		LIMIT ?
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), clampLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var threats []*domain.KnownThreatRecord
	for rows.Next() {
		t, err := scanThreat(rows)
		if err != nil {
			return nil, err
		}
		threats = append(threats, t)
	}

	return threats, rows.Err()
}

// DeleteThreat removes a threat by ID.
func (r *SQLRepository) DeleteThreat(ctx context.Context, id string) error {
	return r.deleteByID(ctx, "known_threats", id)
}

// AppendScanLog records a completed analysis.
func (r *SQLRepository) AppendScanLog(ctx context.Context, entry *domain.ScanLogEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	query := `
		INSERT INTO scan_logs (id, url, risk_score, verdict, timestamp)
		VALUES (?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		entry.ID, entry.URL, entry.RiskScore, string(entry.Verdict), entry.Timestamp,
	)
	return err
}

// RecentScans returns the latest scan log entries, newest first.
func (r *SQLRepository) RecentScans(ctx context.Context, limit int) ([]*domain.ScanLogEntry, error) {
	query := `
		SELECT id, url, risk_score, verdict, timestamp
		FROM scan_logs
		ORDER BY timestamp DESC, id
		LIMIT ?
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), clampLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*domain.ScanLogEntry
	for rows.Next() {
		var e domain.ScanLogEntry
		var verdict string
		if err := rows.Scan(&e.ID, &e.URL, &e.RiskScore, &verdict, &e.Timestamp); err != nil {
			return nil, err
		}
		e.Verdict = domain.Verdict(verdict)
		entries = append(entries, &e)
	}

	return entries, rows.Err()
}

// SaveReport stores a user report in pending status.
func (r *SQLRepository) SaveReport(ctx context.Context, report *domain.Report) error {
	if err := prepareReport(report); err != nil {
		return err
	}

	query := `
		INSERT INTO reports (id, url, message, user_email, category, status, reported_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		report.ID, report.URL, report.Message, report.UserEmail,
		report.Category, report.Status, report.ReportedAt,
	)
	return err
}

// ListReports returns the latest reports, newest first.
func (r *SQLRepository) ListReports(ctx context.Context, limit int) ([]*domain.Report, error) {
	query := `
		SELECT id, url, message, user_email, category, status, reported_at
		FROM reports
		ORDER BY reported_at DESC, id
		LIMIT ?
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), clampLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reports []*domain.Report
	for rows.Next() {
		var rep domain.Report
		var message sql.NullString
		if err := rows.Scan(&rep.ID, &rep.URL, &message, &rep.UserEmail,
			&rep.Category, &rep.Status, &rep.ReportedAt); err != nil {
			return nil, err
		}
		rep.Message = message.String
		reports = append(reports, &rep)
	}

	return reports, rows.Err()
}

// MarkReportsVerified flags pending reports for url as verified and returns how many changed.
func (r *SQLRepository) MarkReportsVerified(ctx context.Context, url string) (int64, error) {
	query := `
		UPDATE reports SET status = ?
		WHERE lower(url) = ? AND status = ?
	`

	result, err := r.db.ExecContext(ctx, r.rebind(query),
		domain.ReportVerified, strings.ToLower(strings.TrimSpace(url)), domain.ReportPending,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// SaveSignalRule inserts or replaces a signal rule.
func (r *SQLRepository) SaveSignalRule(ctx context.Context, rule *domain.SignalRule) error {
	if rule.ID == "" {
		return fmt.Errorf("%w: rule id is required", ErrInvalidInput)
	}
	now := time.Now().UTC()
	if rule.CreatedAt.IsZero() {
		rule.CreatedAt = now
	}

	query := `
		INSERT INTO signal_rules (
			id, name, description, expression, adjustment,
			explanation, enabled, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			expression = excluded.expression,
			adjustment = excluded.adjustment,
			explanation = excluded.explanation,
			enabled = excluded.enabled,
			updated_at = excluded.updated_at
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		rule.ID, rule.Name, rule.Description, rule.Expression, rule.Adjustment,
		rule.Explanation, boolToInt(rule.Enabled), rule.CreatedAt, now,
	)
	return err
}

// ListSignalRules returns all stored signal rules ordered by ID.
func (r *SQLRepository) ListSignalRules(ctx context.Context) ([]*domain.SignalRule, error) {
	query := `
		SELECT id, name, description, expression, adjustment, explanation, enabled, created_at
		FROM signal_rules
		ORDER BY id
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rules []*domain.SignalRule
	for rows.Next() {
		var rule domain.SignalRule
		var description sql.NullString
		var enabled int
		if err := rows.Scan(&rule.ID, &rule.Name, &description, &rule.Expression,
			&rule.Adjustment, &rule.Explanation, &enabled, &rule.CreatedAt); err != nil {
			return nil, err
		}
		rule.Description = description.String
		rule.Enabled = enabled != 0
		rules = append(rules, &rule)
	}

	return rules, rows.Err()
}

// DeleteSignalRule removes a signal rule by ID.
func (r *SQLRepository) DeleteSignalRule(ctx context.Context, id string) error {
	return r.deleteByID(ctx, "signal_rules", id)
}

// Stats aggregates counters for the admin dashboard.
func (r *SQLRepository) Stats(ctx context.Context) (*domain.Stats, error) {
	var s domain.Stats

	counts := []struct {
		dst   *int64
		query string
		args  []any
	}{
		{&s.TotalScans, "SELECT COUNT(*) FROM scan_logs", nil},
		{&s.TotalReports, "SELECT COUNT(*) FROM reports", nil},
		{&s.TotalScams, "SELECT COUNT(*) FROM known_threats", nil},
		{&s.HighRiskScans, "SELECT COUNT(*) FROM scan_logs WHERE verdict = ?", []any{string(domain.VerdictHigh)}},
	}
	for _, c := range counts {
		if err := r.db.QueryRowContext(ctx, r.rebind(c.query), c.args...).Scan(c.dst); err != nil {
			return nil, fmt.Errorf("failed to compute stats: %w", err)
		}
	}

	recent, err := r.RecentScans(ctx, 10)
	if err != nil {
		return nil, err
	}
	s.RecentScans = recent

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

func (r *SQLRepository) deleteByID(ctx context.Context, table, id string) error {
	if id == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidInput)
	}

	result, err := r.db.ExecContext(ctx, r.rebind("DELETE FROM "+table+" WHERE id = ?"), id)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

// contains renders a case-insensitive "haystack contains needle" predicate.
// Either side may be a column name or the ? placeholder.
func (r *SQLRepository) contains(haystack, needle string) string {
	if haystack != "?" {
		haystack = "lower(" + haystack + ")"
	}
	if needle != "?" {
		needle = "lower(" + needle + ")"
	}
	if r.driver == "postgres" {
		return fmt.Sprintf("strpos(%s, %s) > 0", haystack, needle)
	}
	return fmt.Sprintf("instr(%s, %s) > 0", haystack, needle)
}

// rebind converts ? placeholders to $1, $2, etc. for PostgreSQL.
func (r *SQLRepository) rebind(query string) string {
	if r.driver != "postgres" {
		return query
	}

	// Convert ? to $1, $2, etc.
	var result []byte
	n := 1
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			result = append(result, '$')
			result = append(result, fmt.Sprintf("%d", n)...)
			n++
		} else {
			result = append(result, query[i])
		}
	}
	return string(result)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanThreat(row rowScanner) (*domain.KnownThreatRecord, error) {
	var t domain.KnownThreatRecord
	var reason sql.NullString
	if err := row.Scan(&t.ID, &t.URL, &t.Domain, &t.Category, &t.Severity,
		&reason, &t.Source, &t.AddedDate); err != nil {
		return nil, err
	}
	t.Reason = reason.String
	return &t, nil
}

// normalizeCandidate lowercases and trims candidate. Empty candidates never match.
func normalizeCandidate(candidate string) (string, bool) {
	c := strings.ToLower(strings.TrimSpace(candidate))
	return c, c != ""
}

// prepareThreat validates t and fills defaults shared by all backends.
func prepareThreat(t *domain.KnownThreatRecord) error {
	t.URL = strings.ToLower(strings.TrimSpace(t.URL))
	if t.URL == "" {
		return fmt.Errorf("%w: threat url is required", ErrInvalidInput)
	}
	t.Domain = strings.ToLower(strings.TrimSpace(t.Domain))
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	if t.Category == "" {
		t.Category = "phishing"
	}
	if t.Severity == "" {
		t.Severity = domain.SeverityHigh
	}
	if t.Source == "" {
		t.Source = domain.SourceAdmin
	}
	if t.AddedDate.IsZero() {
		t.AddedDate = time.Now().UTC()
	}
	return nil
}

func prepareReport(report *domain.Report) error {
	report.URL = strings.TrimSpace(report.URL)
	if report.URL == "" {
		return fmt.Errorf("%w: report url is required", ErrInvalidInput)
	}
	if report.ID == "" {
		report.ID = uuid.New().String()
	}
	if report.Category == "" {
		report.Category = "other"
	}
	if report.Status == "" {
		report.Status = domain.ReportPending
	}
	if report.ReportedAt.IsZero() {
		report.ReportedAt = time.Now().UTC()
	}
	return nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key")
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > 1000 {
		return 100
	}
	return limit
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
