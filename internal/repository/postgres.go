package repository

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/lib/pq"

	"github.com/opensource-finance/veritas/internal/domain"
)

// openPostgres opens the Pro tier database.
func openPostgres(cfg domain.RepositoryConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", postgresDSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres database: %w", err)
	}
	if err := pingDB(db, "postgres"); err != nil {
		return nil, err
	}
	return db, nil
}

// postgresDSN builds a lib/pq key/value connection string. Values are quoted
// so passwords may contain spaces or quotes.
func postgresDSN(cfg domain.RepositoryConfig) string {
	host := defaultString(cfg.PostgresHost, "localhost")
	dbname := defaultString(cfg.PostgresDB, "veritas")
	sslmode := defaultString(cfg.PostgresSSLMode, "disable")

	port := cfg.PostgresPort
	if port == 0 {
		port = 5432
	}

	parts := []string{
		"host=" + quoteDSNValue(host),
		fmt.Sprintf("port=%d", port),
		"dbname=" + quoteDSNValue(dbname),
		"sslmode=" + quoteDSNValue(sslmode),
		"application_name=veritas",
		"connect_timeout=5",
	}
	if cfg.PostgresUser != "" {
		parts = append(parts, "user="+quoteDSNValue(cfg.PostgresUser))
	}
	if cfg.PostgresPassword != "" {
		parts = append(parts, "password="+quoteDSNValue(cfg.PostgresPassword))
	}
	return strings.Join(parts, " ")
}

func quoteDSNValue(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}

func defaultString(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
