package repository

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/opensource-finance/veritas/internal/domain"
)

func newSQLiteRepo(t *testing.T) domain.Repository {
	t.Helper()

	cfg := domain.RepositoryConfig{
		Driver:     "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "veritas-test.db"),
	}

	repo, err := New(cfg)
	if err != nil {
		t.Fatalf("failed to create repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestSQLiteRepository(t *testing.T) {
	runRepositorySuite(t, newSQLiteRepo(t))
}

// TestMongoRepository runs the same suite against a live MongoDB when
// VERITAS_TEST_MONGO_URI is set.
func TestMongoRepository(t *testing.T) {
	uri := os.Getenv("VERITAS_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("VERITAS_TEST_MONGO_URI not set")
	}

	repo, err := New(domain.RepositoryConfig{
		Driver:        "mongo",
		MongoURI:      uri,
		MongoDatabase: "veritas_test_" + time.Now().Format("20060102150405"),
	})
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	defer func() {
		repo.(*MongoRepository).db.Drop(context.Background())
		repo.Close()
	}()

	runRepositorySuite(t, repo)
}

func runRepositorySuite(t *testing.T, repo domain.Repository) {
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("Ping", func(t *testing.T) {
		if err := repo.Ping(ctx); err != nil {
			t.Errorf("Ping failed: %v", err)
		}
	})

	t.Run("SaveAndFindThreat", func(t *testing.T) {
		threat := &domain.KnownThreatRecord{
			URL:       "Evil-Bank-Login.TK",
			Category:  "phishing",
			Severity:  domain.SeverityCritical,
			Reason:    "Fake bank portal",
			AddedDate: base,
		}
		if err := repo.SaveThreat(ctx, threat); err != nil {
			t.Fatalf("SaveThreat failed: %v", err)
		}
		if threat.ID == "" {
			t.Error("expected generated ID")
		}
		if threat.URL != "evil-bank-login.tk" {
			t.Errorf("expected lowercased URL, got %s", threat.URL)
		}

		matches := []string{
			"https://evil-bank-login.tk/secure?x=1",
			"HTTPS://EVIL-BANK-LOGIN.TK",
			"bank-login",
			"  evil-bank-login.tk  ",
		}
		for _, c := range matches {
			got, err := repo.FindThreat(ctx, c)
			if err != nil {
				t.Fatalf("FindThreat(%q) failed: %v", c, err)
			}
			if got == nil || got.ID != threat.ID {
				t.Errorf("FindThreat(%q): expected %s, got %+v", c, threat.ID, got)
				continue
			}
			if got.Reason != "Fake bank portal" || got.Source != domain.SourceAdmin {
				t.Errorf("unexpected record %+v", got)
			}
		}

		for _, c := range []string{"", "   ", "evi", "https://google.com"} {
			got, err := repo.FindThreat(ctx, c)
			if err != nil {
				t.Fatalf("FindThreat(%q) failed: %v", c, err)
			}
			if got != nil {
				t.Errorf("FindThreat(%q): expected no match, got %s", c, got.URL)
			}
		}
	})

	t.Run("FindThreatByDomain", func(t *testing.T) {
		threat := &domain.KnownThreatRecord{
			URL:       "http://scam-shop.example/checkout",
			Domain:    "scam-shop.example",
			AddedDate: base.Add(time.Hour),
		}
		if err := repo.SaveThreat(ctx, threat); err != nil {
			t.Fatalf("SaveThreat failed: %v", err)
		}

		got, err := repo.FindThreat(ctx, "https://scam-shop.example/other-page")
		if err != nil {
			t.Fatalf("FindThreat failed: %v", err)
		}
		if got == nil || got.ID != threat.ID {
			t.Errorf("expected domain match, got %+v", got)
		}
	})

	t.Run("DuplicateThreat", func(t *testing.T) {
		err := repo.SaveThreat(ctx, &domain.KnownThreatRecord{URL: "EVIL-BANK-LOGIN.tk"})
		if !errors.Is(err, ErrDuplicate) {
			t.Errorf("expected ErrDuplicate, got %v", err)
		}
	})

	t.Run("InvalidThreat", func(t *testing.T) {
		err := repo.SaveThreat(ctx, &domain.KnownThreatRecord{URL: "  "})
		if !errors.Is(err, ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("ListAndDeleteThreats", func(t *testing.T) {
		threats, err := repo.ListThreats(ctx, 10)
		if err != nil {
			t.Fatalf("ListThreats failed: %v", err)
		}
		if len(threats) != 2 {
			t.Fatalf("expected 2 threats, got %d", len(threats))
		}
		if threats[0].URL != "http://scam-shop.example/checkout" {
			t.Errorf("expected newest first, got %s", threats[0].URL)
		}

		if err := repo.DeleteThreat(ctx, threats[0].ID); err != nil {
			t.Fatalf("DeleteThreat failed: %v", err)
		}
		if err := repo.DeleteThreat(ctx, threats[0].ID); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}

		got, _ := repo.FindThreat(ctx, "https://scam-shop.example/other-page")
		if got != nil {
			t.Error("deleted threat still matches")
		}
	})

	t.Run("ScanLogs", func(t *testing.T) {
		entries := []*domain.ScanLogEntry{
			{URL: "https://a.example", RiskScore: 10, Verdict: domain.VerdictLow, Timestamp: base},
			{URL: "https://b.example", RiskScore: 90, Verdict: domain.VerdictHigh, Timestamp: base.Add(time.Hour)},
			{URL: "https://c.example", RiskScore: 50, Verdict: domain.VerdictMedium, Timestamp: base.Add(2 * time.Hour)},
		}
		for _, e := range entries {
			if err := repo.AppendScanLog(ctx, e); err != nil {
				t.Fatalf("AppendScanLog failed: %v", err)
			}
		}

		recent, err := repo.RecentScans(ctx, 2)
		if err != nil {
			t.Fatalf("RecentScans failed: %v", err)
		}
		if len(recent) != 2 {
			t.Fatalf("expected 2 entries, got %d", len(recent))
		}
		if recent[0].URL != "https://c.example" || recent[1].Verdict != domain.VerdictHigh {
			t.Errorf("unexpected order: %s, %s", recent[0].URL, recent[1].URL)
		}
	})

	t.Run("Reports", func(t *testing.T) {
		reports := []*domain.Report{
			{URL: "https://Fake-Pay.example", UserEmail: "a@example.org", Category: "phishing", ReportedAt: base},
			{URL: "https://fake-pay.example", UserEmail: "b@example.org", Message: "got an SMS", ReportedAt: base.Add(time.Minute)},
			{URL: "https://other.example", UserEmail: "c@example.org", ReportedAt: base.Add(2 * time.Minute)},
		}
		for _, rep := range reports {
			if err := repo.SaveReport(ctx, rep); err != nil {
				t.Fatalf("SaveReport failed: %v", err)
			}
			if rep.Status != domain.ReportPending {
				t.Errorf("expected pending status, got %s", rep.Status)
			}
		}

		listed, err := repo.ListReports(ctx, 100)
		if err != nil {
			t.Fatalf("ListReports failed: %v", err)
		}
		if len(listed) != 3 || listed[0].URL != "https://other.example" {
			t.Fatalf("unexpected reports %+v", listed)
		}
		if listed[1].Message != "got an SMS" || listed[1].Category != "other" {
			t.Errorf("unexpected report %+v", listed[1])
		}

		n, err := repo.MarkReportsVerified(ctx, "https://fake-pay.example")
		if err != nil {
			t.Fatalf("MarkReportsVerified failed: %v", err)
		}
		if n != 2 {
			t.Errorf("expected 2 verified, got %d", n)
		}
		if n, _ := repo.MarkReportsVerified(ctx, "https://fake-pay.example"); n != 0 {
			t.Errorf("expected 0 on second call, got %d", n)
		}
	})

	t.Run("SignalRules", func(t *testing.T) {
		rule := &domain.SignalRule{
			ID:          "b-rule",
			Name:        "Cheap TLD",
			Expression:  "has_suspicious_tld",
			Adjustment:  10,
			Explanation: "Low-cost TLD",
			Enabled:     true,
		}
		if err := repo.SaveSignalRule(ctx, rule); err != nil {
			t.Fatalf("SaveSignalRule failed: %v", err)
		}
		if err := repo.SaveSignalRule(ctx, &domain.SignalRule{
			ID: "a-rule", Name: "Off", Expression: "false", Explanation: "never", Enabled: false,
		}); err != nil {
			t.Fatalf("SaveSignalRule failed: %v", err)
		}

		rule.Adjustment = -5
		if err := repo.SaveSignalRule(ctx, rule); err != nil {
			t.Fatalf("upsert failed: %v", err)
		}

		rules, err := repo.ListSignalRules(ctx)
		if err != nil {
			t.Fatalf("ListSignalRules failed: %v", err)
		}
		if len(rules) != 2 {
			t.Fatalf("expected 2 rules, got %d", len(rules))
		}
		if rules[0].ID != "a-rule" || rules[0].Enabled {
			t.Errorf("unexpected first rule %+v", rules[0])
		}
		if rules[1].Adjustment != -5 || !rules[1].Enabled {
			t.Errorf("upsert not applied: %+v", rules[1])
		}

		if err := repo.DeleteSignalRule(ctx, "a-rule"); err != nil {
			t.Fatalf("DeleteSignalRule failed: %v", err)
		}
		if err := repo.DeleteSignalRule(ctx, "a-rule"); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
		if err := repo.SaveSignalRule(ctx, &domain.SignalRule{}); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("Stats", func(t *testing.T) {
		stats, err := repo.Stats(ctx)
		if err != nil {
			t.Fatalf("Stats failed: %v", err)
		}
		if stats.TotalScans != 3 || stats.HighRiskScans != 1 {
			t.Errorf("unexpected scan counts %+v", stats)
		}
		if stats.TotalReports != 3 || stats.TotalScams != 1 {
			t.Errorf("unexpected counts %+v", stats)
		}
		if len(stats.RecentScans) != 3 {
			t.Errorf("expected 3 recent scans, got %d", len(stats.RecentScans))
		}
	})
}

func TestSQLiteInMemory(t *testing.T) {
	repo, err := New(domain.RepositoryConfig{Driver: "sqlite", SQLitePath: ":memory:"})
	if err != nil {
		t.Fatalf("failed to create in-memory repository: %v", err)
	}
	defer repo.Close()

	runRepositorySuite(t, repo)
}

func TestPostgresDSN(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		got := postgresDSN(domain.RepositoryConfig{})
		want := "host='localhost' port=5432 dbname='veritas' sslmode='disable' application_name=veritas connect_timeout=5"
		if got != want {
			t.Errorf("expected %q, got %q", want, got)
		}
	})

	t.Run("QuotesCredentials", func(t *testing.T) {
		got := postgresDSN(domain.RepositoryConfig{
			PostgresHost:     "db.internal",
			PostgresPort:     6432,
			PostgresUser:     "scanner",
			PostgresPassword: `it's a s\ecret`,
			PostgresSSLMode:  "require",
		})
		want := `host='db.internal' port=6432 dbname='veritas' sslmode='require' application_name=veritas connect_timeout=5 user='scanner' password='it\'s a s\\ecret'`
		if got != want {
			t.Errorf("expected %q, got %q", want, got)
		}
	})
}

func TestUnsupportedDriver(t *testing.T) {
	cfg := domain.RepositoryConfig{
		Driver: "mysql",
	}

	_, err := New(cfg)
	if err == nil {
		t.Error("expected error for unsupported driver")
	}
}

func TestRebind(t *testing.T) {
	repo := &SQLRepository{driver: "postgres"}

	tests := []struct {
		input    string
		expected string
	}{
		{"SELECT * FROM t WHERE id = ?", "SELECT * FROM t WHERE id = $1"},
		{"INSERT INTO t (a, b) VALUES (?, ?)", "INSERT INTO t (a, b) VALUES ($1, $2)"},
		{"SELECT * FROM t", "SELECT * FROM t"},
	}

	for _, tt := range tests {
		result := repo.rebind(tt.input)
		if result != tt.expected {
			t.Errorf("rebind(%q) = %q, want %q", tt.input, result, tt.expected)
		}
	}
}

func TestContainsPredicate(t *testing.T) {
	sqlite := &SQLRepository{driver: "sqlite"}
	pg := &SQLRepository{driver: "postgres"}

	if got := sqlite.contains("?", "url"); got != "instr(?, lower(url)) > 0" {
		t.Errorf("unexpected sqlite predicate %q", got)
	}
	if got := pg.contains("url", "?"); got != "strpos(lower(url), ?) > 0" {
		t.Errorf("unexpected postgres predicate %q", got)
	}
}
