// Package migration creates the certificate registry schema on startup.
package migration

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"rentscore/internal/logging"
)

type migrationStep struct {
	Name string
	SQL  string
}

var steps = []migrationStep{
	{
		Name: "create_table_certificates",
		SQL: `CREATE TABLE IF NOT EXISTS certificates (
  id            UUID        PRIMARY KEY,
  trust_score   INTEGER     NOT NULL,
  payment_count INTEGER     NOT NULL CHECK (payment_count >= 0),
  storage_path  TEXT        NOT NULL UNIQUE,
  size          BIGINT      NOT NULL CHECK (size >= 0),
  content_type  TEXT        NOT NULL,
  created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_index_certificates_created_at",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_certificates_created_at ON certificates (created_at);`,
	},
}

// EnsureMigrated creates the schema when the certificates table is missing.
// Every step is idempotent, so a partially applied run is safe to repeat.
func EnsureMigrated(ctx context.Context, db *sql.DB, log *logging.Logger, dbHost string) error {
	log = log.With("database")
	start := time.Now()

	var exists bool
	query := "SELECT to_regclass('public.certificates') IS NOT NULL"
	if err := db.QueryRowContext(ctx, query).Scan(&exists); err != nil {
		log.Error("db_migration_failed", err, map[string]any{
			"db_host":     dbHost,
			"duration_ms": time.Since(start).Milliseconds(),
		})
		return fmt.Errorf("check sentinel table: %w", err)
	}

	if exists {
		log.Info("db_migration_skip", map[string]any{
			"db_host":     dbHost,
			"duration_ms": time.Since(start).Milliseconds(),
		})
		return nil
	}

	log.Info("db_migration_start", map[string]any{"db_host": dbHost, "steps": len(steps)})

	for _, step := range steps {
		stepStart := time.Now()
		if _, err := db.ExecContext(ctx, step.SQL); err != nil {
			log.Error("db_migration_failed", err, map[string]any{
				"migration_step":   step.Name,
				"db_host":          dbHost,
				"duration_ms":      time.Since(start).Milliseconds(),
				"step_duration_ms": time.Since(stepStart).Milliseconds(),
			})
			return fmt.Errorf("migration step %s failed: %w", step.Name, err)
		}
		log.Info("db_migration_step", map[string]any{
			"migration_step":   step.Name,
			"db_host":          dbHost,
			"step_duration_ms": time.Since(stepStart).Milliseconds(),
		})
	}

	log.Info("db_migration_success", map[string]any{
		"db_host":     dbHost,
		"duration_ms": time.Since(start).Milliseconds(),
	})
	return nil
}
