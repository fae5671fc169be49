// internal/db/db.go
//
// Database helpers for the Concentration server.
// Responsibilities:
//   - Opening a SQLite database with safe defaults (WAL, busy timeout, foreign keys).
//   - Applying the embedded goose migrations from the assets package.

package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/concentration/assets"
)

// Open opens (and creates if missing) a SQLite database file.
//
// The parent directory is created for relative paths such as ./data/app.db.
// Every pooled connection gets the busy timeout, WAL journaling and
// foreign-key enforcement through the DSN.
func Open(path string) (*sql.DB, error) {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", path, err)
	}
	return db, nil
}

// Migrate applies all pending migrations and logs each one applied.
func Migrate(ctx context.Context, db *sql.DB) error {
	fsys, err := assets.Migrations()
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}
	p, err := goose.NewProvider(goose.DialectSQLite3, db, fsys)
	if err != nil {
		return fmt.Errorf("goose provider: %w", err)
	}
	results, err := p.Up(ctx)
	if err != nil {
		return fmt.Errorf("migrate up: %w", err)
	}
	for _, r := range results {
		log.Info().
			Int64("version", r.Source.Version).
			Str("migration", r.Source.Path).
			Dur("took", r.Duration).
			Msg("applied")
	}
	if len(results) == 0 {
		log.Debug().Msg("migrations up to date")
	}
	return nil
}
