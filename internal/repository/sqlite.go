package repository

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/opensource-finance/veritas/internal/domain"
)

const (
	defaultSQLitePath = "./veritas.db"
	memorySQLitePath  = ":memory:"
	pingTimeout       = 5 * time.Second
)

// openSQLite opens the Community tier database with the pure Go driver.
// ":memory:" gives a private database that lives as long as its single connection.
func openSQLite(cfg domain.RepositoryConfig) (*sql.DB, error) {
	path := cfg.SQLitePath
	if path == "" {
		path = defaultSQLitePath
	}

	if path == memorySQLitePath {
		db, err := sql.Open("sqlite", memorySQLitePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite database: %w", err)
		}
		db.SetMaxOpenConns(1)
		db.SetConnMaxLifetime(0)
		return db, pingDB(db, "sqlite")
	}

	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// WAL lets the scan log append while admin queries read.
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)", path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	return db, pingDB(db, "sqlite")
}

func pingDB(db *sql.DB, driver string) error {
	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("failed to ping %s database: %w", driver, err)
	}
	return nil
}
