// Package database provides database setup, models, and the data access layer (Store)
// for message snapshots, the activity log and chat history.
package database

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"

	apperrors "github.com/edgard/guildwatch/internal/errors"
	"github.com/edgard/guildwatch/migrations"

	_ "modernc.org/sqlite" //revive:disable:blank-imports
)

// BusyTimeout is how long a statement waits for a competing writer before
// failing with SQLITE_BUSY.
const BusyTimeout = 5 * time.Second

// pragmas applied to every connection. Gateway handlers and scheduled tasks
// write concurrently, so readers must not block on the writer (WAL) and
// writers must queue instead of failing (busy_timeout).
var pragmas = []string{
	fmt.Sprintf("busy_timeout(%d)", BusyTimeout.Milliseconds()),
	"journal_mode(WAL)",
	"synchronous(NORMAL)",
	"foreign_keys(ON)",
}

// DSN appends the connection pragmas to an SQLite path or file: URI.
func DSN(path string) string {
	params := url.Values{}
	for _, p := range pragmas {
		params.Add("_pragma", p)
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + params.Encode()
}

// NewDB opens the snapshot and activity database at path and brings its
// schema up to date. Failing to reach the file is a BackendUnavailable error.
func NewDB(path string) (*sqlx.DB, error) {
	if path == "" {
		return nil, errors.New("database path is empty")
	}

	db, err := sqlx.Connect("sqlite", DSN(path))
	if err != nil {
		return nil, apperrors.NewBackendUnavailable("failed to open database "+path, err)
	}

	// One connection serializes writes from handlers and tasks; the busy
	// timeout covers other processes holding the file.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxIdleTime(0)

	if err := ApplyMigrations(db.DB, ExtractDBNameFromPath(path)); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("Error closing database after migration failure", "error", closeErr)
		}
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	slog.Info("Database ready", "path", path)
	return db, nil
}

// CloseDB closes db, logging instead of returning the error.
func CloseDB(db *sqlx.DB) {
	if db == nil {
		return
	}
	if err := db.Close(); err != nil {
		slog.Error("Error closing database", "error", err)
	}
}

// ApplyMigrations brings the snapshot, activity and chat tables to the latest
// embedded schema version.
func ApplyMigrations(db *sql.DB, dbName string) error {
	if db == nil {
		return errors.New("database connection is nil")
	}
	if dbName == "" {
		return errors.New("database name is empty")
	}

	source, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return fmt.Errorf("failed to open embedded migrations: %w", err)
	}
	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{DatabaseName: dbName})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}
	migrator, err := migrate.NewWithInstance("iofs", source, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}

	err = migrator.Up()
	switch {
	case errors.Is(err, migrate.ErrNoChange):
		return nil
	case err != nil:
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	if version, dirty, verr := migrator.Version(); verr == nil {
		slog.Info("Database schema migrated", "version", version, "dirty", dirty)
	}
	return nil
}

// ExtractDBNameFromPath strips a "file:" prefix and query string from a
// SQLite DSN and returns the decoded file path.
func ExtractDBNameFromPath(path string) string {
	path = strings.TrimPrefix(path, "file:")
	if idx := strings.Index(path, "?"); idx != -1 {
		path = path[:idx]
	}
	if decoded, err := url.PathUnescape(path); err == nil {
		return decoded
	}
	return path
}
