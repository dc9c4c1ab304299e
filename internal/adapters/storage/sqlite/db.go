// Package sqlite guarda usuarios y medicaciones en SQLite (modernc, sin cgo).
// Fechas y timestamps se guardan como TEXT: "2006-01-02" y RFC3339Nano en UTC.
package sqlite

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"med-tracker/internal/platform/migrate"

	modsqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const (
	dateLayout      = "2006-01-02"
	timestampLayout = time.RFC3339Nano
)

// Open abre (o crea) el archivo de base y fija los pragmas.
func Open(path string) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s?_txlock=immediate", path))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// SQLite admite un solo writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// NewInMemory abre una base en memoria, para tests.
func NewInMemory() (*sql.DB, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("open in-memory database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	return db, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	return nil
}

// Migrator devuelve el runner con las migraciones de SQLite.
func Migrator(db *sql.DB) (*migrate.Runner, error) {
	return migrate.New(db, migrationsFS, "migrations", migrate.Question)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timestampLayout, s)
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func nullDate(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(dateLayout), Valid: true}
}

func parseNullTime(s sql.NullString, layout string) (*time.Time, error) {
	if !s.Valid {
		return nil, nil
	}
	t, err := time.Parse(layout, s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// isUniqueViolation reconoce un UNIQUE constraint failed de modernc.
func isUniqueViolation(err error) bool {
	var se *modsqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	return se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE ||
		strings.Contains(se.Error(), "UNIQUE constraint failed")
}
