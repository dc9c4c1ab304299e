// Package migrate aplica migraciones SQL embebidas (NNN_descripcion.sql)
// sobre database/sql. Cada adapter de storage trae sus propios archivos.
package migrate

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

var fileName = regexp.MustCompile(`^(\d{3})_(.+)\.sql$`)

type Migration struct {
	Version     int
	Description string
	SQL         string
}

type Status struct {
	Migration
	Applied   bool
	AppliedAt string
}

// Placeholder devuelve el placeholder del parámetro n (1-based).
type Placeholder func(n int) string

func Dollar(n int) string { return "$" + strconv.Itoa(n) }
func Question(int) string { return "?" }

type Runner struct {
	db         *sql.DB
	bind       Placeholder
	migrations []Migration
	now        func() time.Time
}

// New carga las migraciones de dir dentro de fsys.
func New(db *sql.DB, fsys fs.FS, dir string, bind Placeholder) (*Runner, error) {
	migrations, err := Load(fsys, dir)
	if err != nil {
		return nil, err
	}
	return &Runner{db: db, bind: bind, migrations: migrations, now: time.Now}, nil
}

func Load(fsys fs.FS, dir string) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("read migrations dir: %w", err)
	}

	out := make([]Migration, 0, len(entries))
	seen := map[int]string{}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		m := fileName.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		version, _ := strconv.Atoi(m[1])
		if prev, dup := seen[version]; dup {
			return nil, fmt.Errorf("duplicate migration version %d (%s, %s)", version, prev, e.Name())
		}
		seen[version] = e.Name()

		content, err := fs.ReadFile(fsys, path.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", e.Name(), err)
		}
		out = append(out, Migration{
			Version:     version,
			Description: strings.ReplaceAll(m[2], "_", " "),
			SQL:         strings.TrimSpace(string(content)),
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

func (r *Runner) ensureTable(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version     INTEGER PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at  TEXT NOT NULL
		)
	`)
	return err
}

func (r *Runner) applied(ctx context.Context) (map[int]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT version, applied_at FROM schema_migrations`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[int]string{}
	for rows.Next() {
		var v int
		var at string
		if err := rows.Scan(&v, &at); err != nil {
			return nil, err
		}
		out[v] = at
	}
	return out, rows.Err()
}

// Up aplica las migraciones pendientes en orden, cada una en su transacción.
// Devuelve las que se aplicaron.
func (r *Runner) Up(ctx context.Context) ([]Migration, error) {
	if err := r.ensureTable(ctx); err != nil {
		return nil, fmt.Errorf("create schema_migrations: %w", err)
	}
	done, err := r.applied(ctx)
	if err != nil {
		return nil, fmt.Errorf("read schema_migrations: %w", err)
	}

	var out []Migration
	for _, m := range r.migrations {
		if _, ok := done[m.Version]; ok {
			continue
		}
		if err := r.apply(ctx, m); err != nil {
			return out, fmt.Errorf("migration %03d %s: %w", m.Version, m.Description, err)
		}
		out = append(out, m)
	}
	return out, nil
}

func (r *Runner) apply(ctx context.Context, m Migration) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, m.SQL); err != nil {
		return err
	}

	insert := fmt.Sprintf(
		`INSERT INTO schema_migrations (version, description, applied_at) VALUES (%s, %s, %s)`,
		r.bind(1), r.bind(2), r.bind(3),
	)
	if _, err := tx.ExecContext(ctx, insert, m.Version, m.Description, r.now().UTC().Format(time.RFC3339)); err != nil {
		return err
	}
	return tx.Commit()
}

// Status lista todas las migraciones conocidas y si ya se aplicaron.
func (r *Runner) Status(ctx context.Context) ([]Status, error) {
	if err := r.ensureTable(ctx); err != nil {
		return nil, fmt.Errorf("create schema_migrations: %w", err)
	}
	done, err := r.applied(ctx)
	if err != nil {
		return nil, fmt.Errorf("read schema_migrations: %w", err)
	}

	out := make([]Status, 0, len(r.migrations))
	for _, m := range r.migrations {
		at, ok := done[m.Version]
		out = append(out, Status{Migration: m, Applied: ok, AppliedAt: at})
	}
	return out, nil
}
