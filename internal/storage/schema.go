package storage

import (
	"context"
	"fmt"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS metrics (
        id          BIGSERIAL PRIMARY KEY,
        ts          TIMESTAMPTZ NOT NULL,
        metric_name TEXT NOT NULL,
        value       DOUBLE PRECISION NOT NULL,
        tags        JSONB,
        created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
    );`,
	`CREATE INDEX IF NOT EXISTS idx_metrics_name_ts ON metrics (metric_name, ts);`,
	`CREATE TABLE IF NOT EXISTS baselines (
        metric_name  TEXT PRIMARY KEY,
        avg          DOUBLE PRECISION NOT NULL,
        stddev       DOUBLE PRECISION NOT NULL,
        min          DOUBLE PRECISION NOT NULL,
        max          DOUBLE PRECISION NOT NULL,
        sample_count INTEGER NOT NULL,
        updated_at   TIMESTAMPTZ NOT NULL
    );`,
	`CREATE TABLE IF NOT EXISTS alerts (
        id              BIGSERIAL PRIMARY KEY,
        metric_name     TEXT NOT NULL,
        severity        TEXT NOT NULL,
        bucket_ts       TIMESTAMPTZ NOT NULL,
        current_value   DOUBLE PRECISION NOT NULL,
        threshold_value DOUBLE PRECISION NOT NULL,
        deviation       DOUBLE PRECISION,
        message         TEXT NOT NULL,
        actions         TEXT[],
        created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
        UNIQUE (metric_name, severity, bucket_ts)
    );`,
}

// EnsureSchema creates the metrics, baselines, and alerts tables if they
// do not already exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}

	for _, stmt := range schemaStatements {
		if _, execErr := pool.Exec(ctx, stmt); execErr != nil {
			return fmt.Errorf("ensure schema: %w", execErr)
		}
	}
	return nil
}
