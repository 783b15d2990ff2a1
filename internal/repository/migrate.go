package repository

import (
	"context"
	"embed"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
)

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var migrationFiles embed.FS

// EnsureSchema applies any pending migrations for the driver's dialect.
// Versions are tracked in a schema_migrations table so restarts are cheap.
func EnsureSchema(ctx context.Context, drv *entsql.Driver) error {
	const bootstrap = `
	CREATE TABLE IF NOT EXISTS schema_migrations (
		version    INTEGER PRIMARY KEY,
		applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`
	if err := drv.Exec(ctx, bootstrap, []any{}, nil); err != nil {
		return fmt.Errorf("bootstrap schema_migrations: %w", err)
	}

	dir, err := migrationDir(drv.Dialect())
	if err != nil {
		return err
	}
	entries, err := migrationFiles.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	d := entsql.Dialect(drv.Dialect())
	for _, name := range names {
		version, err := migrationVersion(name)
		if err != nil {
			return err
		}

		query, args := d.Select(entsql.Count("*")).
			From(entsql.Table("schema_migrations")).
			Where(entsql.EQ("version", version)).
			Query()
		rows := &entsql.Rows{}
		if err := drv.Query(ctx, query, args, rows); err != nil {
			return fmt.Errorf("check migration %s: %w", name, err)
		}
		var applied int
		if rows.Next() {
			if err := rows.Scan(&applied); err != nil {
				_ = rows.Close()
				return fmt.Errorf("check migration %s: %w", name, err)
			}
		}
		if err := rows.Close(); err != nil {
			return fmt.Errorf("check migration %s: %w", name, err)
		}
		if applied > 0 {
			continue
		}

		script, err := migrationFiles.ReadFile(dir + "/" + name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		tx, err := drv.Tx(ctx)
		if err != nil {
			return fmt.Errorf("begin migration %s: %w", name, err)
		}
		// pgx rejects multi-statement strings, so run one statement at a time.
		for _, stmt := range strings.Split(string(script), ";") {
			stmt = strings.TrimSpace(stmt)
			if stmt == "" {
				continue
			}
			if err := tx.Exec(ctx, stmt, []any{}, nil); err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("apply migration %s: %w", name, err)
			}
		}
		query, args = d.Insert("schema_migrations").Columns("version").Values(version).Query()
		if err := tx.Exec(ctx, query, args, nil); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record migration %s: %w", name, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %s: %w", name, err)
		}
	}
	return nil
}

func migrationDir(d string) (string, error) {
	switch d {
	case dialect.Postgres:
		return "migrations/postgres", nil
	case dialect.SQLite:
		return "migrations/sqlite", nil
	default:
		return "", fmt.Errorf("no migrations for dialect %q", d)
	}
}

// migrationVersion extracts the numeric prefix from names like 0001_init.sql.
func migrationVersion(name string) (int, error) {
	prefix, _, ok := strings.Cut(name, "_")
	if !ok {
		return 0, fmt.Errorf("migration %s: missing version prefix", name)
	}
	version, err := strconv.Atoi(prefix)
	if err != nil {
		return 0, fmt.Errorf("migration %s: bad version prefix: %w", name, err)
	}
	return version, nil
}
