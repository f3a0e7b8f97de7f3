package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrNotConfigured indicates the storage pool was not initialised.
	ErrNotConfigured = errors.New("storage: pool not configured")
)

const (
	insertPointSQL = `INSERT INTO metrics (ts, metric_name, value, tags)
    VALUES ($1, $2, $3, $4);`

	listPointsSinceSQL = `SELECT ts, metric_name, value, tags
    FROM metrics
    WHERE metric_name = $1
      AND ts >= $2
    ORDER BY ts DESC
    LIMIT $3;`

	listAllPointsSinceSQL = `SELECT ts, metric_name, value, tags
    FROM metrics
    WHERE ts >= $1
    ORDER BY ts
    LIMIT $2;`

	listMetricNamesSQL = `SELECT DISTINCT metric_name FROM metrics ORDER BY metric_name;`

	deletePointsBeforeSQL = `DELETE FROM metrics WHERE ts < $1;`

	countPointsSQL = `SELECT COUNT(*) FROM metrics;`

	upsertBaselineSQL = `INSERT INTO baselines (
        metric_name, avg, stddev, min, max, sample_count, updated_at
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7
    )
    ON CONFLICT (metric_name) DO UPDATE
    SET avg          = EXCLUDED.avg,
        stddev       = EXCLUDED.stddev,
        min          = EXCLUDED.min,
        max          = EXCLUDED.max,
        sample_count = EXCLUDED.sample_count,
        updated_at   = EXCLUDED.updated_at;`

	getBaselineSQL = `SELECT avg, stddev, min, max, sample_count, updated_at
    FROM baselines
    WHERE metric_name = $1;`

	upsertAlertSQL = `INSERT INTO alerts (
        metric_name, severity, bucket_ts, current_value, threshold_value, deviation, message, actions
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8
    )
    ON CONFLICT (metric_name, severity, bucket_ts) DO UPDATE
    SET current_value   = EXCLUDED.current_value,
        threshold_value = EXCLUDED.threshold_value,
        deviation       = EXCLUDED.deviation,
        message         = EXCLUDED.message,
        actions         = EXCLUDED.actions
    RETURNING id, created_at;`

	listRecentAlertsSQL = `SELECT
        id, metric_name, severity, bucket_ts, current_value, threshold_value, deviation, message, actions, created_at
    FROM alerts
    ORDER BY bucket_ts DESC
    LIMIT $1;`

	deleteAlertsBeforeSQL = `DELETE FROM alerts WHERE created_at < $1;`

	tryAdvisoryLockSQL = `SELECT pg_try_advisory_lock($1);`
	advisoryUnlockSQL  = `SELECT pg_advisory_unlock($1);`
)

// PointStore defines operations for metric point persistence.
type PointStore interface {
	InsertPoint(ctx context.Context, point Point) error
	InsertPoints(ctx context.Context, points []Point) error
	ListPointsSince(ctx context.Context, metricName string, since time.Time, limit int) ([]Point, error)
	ListAllPointsSince(ctx context.Context, since time.Time, limit int) ([]Point, error)
	ListMetricNames(ctx context.Context) ([]string, error)
	DeletePointsBefore(ctx context.Context, olderThan time.Time) (int64, error)
	CountPoints(ctx context.Context) (int64, error)
}

// BaselineStore defines operations for baseline persistence.
type BaselineStore interface {
	UpsertBaseline(ctx context.Context, baseline Baseline) error
	GetBaseline(ctx context.Context, metricName string) (Baseline, bool, error)
}

// AlertStore defines operations for alert auditing.
type AlertStore interface {
	UpsertAlert(ctx context.Context, alert AlertRecord) (AlertRecord, error)
	ListRecentAlerts(ctx context.Context, limit int) ([]AlertRecord, error)
	DeleteAlertsBefore(ctx context.Context, olderThan time.Time) error
}

// AdvisoryLocker exposes advisory lock helpers.
type AdvisoryLocker interface {
	TryAdvisoryLock(ctx context.Context, key int64) (unlock func(), acquired bool, err error)
}

// Store aggregates access to metric points, baselines, and alerts.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wires a pgx pool into a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// TryAdvisoryLock attempts to acquire a postgres advisory lock and returns a release func.
func (s *Store) TryAdvisoryLock(ctx context.Context, key int64) (func(), bool, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, false, err
	}

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("acquire connection: %w", err)
	}

	var acquired bool
	if err := conn.QueryRow(ctx, tryAdvisoryLockSQL, key).Scan(&acquired); err != nil {
		conn.Release()
		return nil, false, fmt.Errorf("try advisory lock: %w", err)
	}
	if !acquired {
		conn.Release()
		return nil, false, nil
	}

	unlock := func() {
		ctxUnlock, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if _, err := conn.Exec(ctxUnlock, advisoryUnlockSQL, key); err != nil {
			// unlock best effort; log omitted in storage package
		}
		conn.Release()
	}
	return unlock, true, nil
}

func (s *Store) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// InsertPoint persists a single metric observation.
func (s *Store) InsertPoint(ctx context.Context, point Point) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}

	tags, err := marshalTags(point.Tags)
	if err != nil {
		return err
	}

	if _, execErr := pool.Exec(ctx, insertPointSQL, point.Timestamp, point.MetricName, point.Value, tags); execErr != nil {
		return fmt.Errorf("insert point: %w", execErr)
	}
	return nil
}

// InsertPoints persists a batch of observations in one transaction.
// Either every point lands or none do; a partial batch would skew the
// baselines computed from it.
func (s *Store) InsertPoints(ctx context.Context, points []Point) error {
	if len(points) == 0 {
		return nil
	}

	pool, err := s.getPool()
	if err != nil {
		return err
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin batch insert: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, point := range points {
		tags, marshalErr := marshalTags(point.Tags)
		if marshalErr != nil {
			return marshalErr
		}
		batch.Queue(insertPointSQL, point.Timestamp, point.MetricName, point.Value, tags)
	}

	results := tx.SendBatch(ctx, batch)
	for range points {
		if _, execErr := results.Exec(); execErr != nil {
			results.Close()
			return fmt.Errorf("insert point batch: %w", execErr)
		}
	}
	if closeErr := results.Close(); closeErr != nil {
		return fmt.Errorf("close point batch: %w", closeErr)
	}

	if commitErr := tx.Commit(ctx); commitErr != nil {
		return fmt.Errorf("commit point batch: %w", commitErr)
	}
	return nil
}

// ListPointsSince lists points for one metric since the given instant,
// newest first, capped at limit.
func (s *Store) ListPointsSince(ctx context.Context, metricName string, since time.Time, limit int) ([]Point, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listPointsSinceSQL, metricName, since, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list points since: %w", queryErr)
	}
	defer rows.Close()

	return scanPoints(rows)
}

// ListAllPointsSince lists points across all metrics since the given
// instant, oldest first, capped at limit.
func (s *Store) ListAllPointsSince(ctx context.Context, since time.Time, limit int) ([]Point, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listAllPointsSinceSQL, since, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list all points since: %w", queryErr)
	}
	defer rows.Close()

	return scanPoints(rows)
}

// ListMetricNames lists the distinct metric names present in storage.
func (s *Store) ListMetricNames(ctx context.Context) ([]string, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listMetricNamesSQL)
	if queryErr != nil {
		return nil, fmt.Errorf("list metric names: %w", queryErr)
	}
	defer rows.Close()

	names := make([]string, 0)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return names, nil
}

// DeletePointsBefore removes expired points and reports how many rows
// were deleted. Irreversible. Baselines computed before the prune stay
// valid until the next recomputation.
func (s *Store) DeletePointsBefore(ctx context.Context, olderThan time.Time) (int64, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, err
	}

	cmdTag, execErr := pool.Exec(ctx, deletePointsBeforeSQL, olderThan)
	if execErr != nil {
		return 0, fmt.Errorf("delete points before: %w", execErr)
	}
	return cmdTag.RowsAffected(), nil
}

// CountPoints counts stored observations.
func (s *Store) CountPoints(ctx context.Context) (int64, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, err
	}
	var count int64
	if scanErr := pool.QueryRow(ctx, countPointsSQL).Scan(&count); scanErr != nil {
		return 0, fmt.Errorf("count points: %w", scanErr)
	}
	return count, nil
}

// UpsertBaseline persists or overwrites the baseline row for a metric.
func (s *Store) UpsertBaseline(ctx context.Context, baseline Baseline) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}

	_, execErr := pool.Exec(ctx, upsertBaselineSQL,
		baseline.MetricName,
		baseline.Avg,
		baseline.StdDev,
		baseline.Min,
		baseline.Max,
		baseline.SampleCount,
		baseline.ComputedAt,
	)
	if execErr != nil {
		return fmt.Errorf("upsert baseline: %w", execErr)
	}
	return nil
}

// GetBaseline reads the last computed baseline for a metric. The second
// return value is false when no baseline has been computed yet.
func (s *Store) GetBaseline(ctx context.Context, metricName string) (Baseline, bool, error) {
	pool, err := s.getPool()
	if err != nil {
		return Baseline{}, false, err
	}

	baseline := Baseline{MetricName: metricName}
	scanErr := pool.QueryRow(ctx, getBaselineSQL, metricName).Scan(
		&baseline.Avg,
		&baseline.StdDev,
		&baseline.Min,
		&baseline.Max,
		&baseline.SampleCount,
		&baseline.ComputedAt,
	)
	if scanErr != nil {
		if errors.Is(scanErr, pgx.ErrNoRows) {
			return Baseline{}, false, nil
		}
		return Baseline{}, false, fmt.Errorf("get baseline: %w", scanErr)
	}
	return baseline, true, nil
}

// UpsertAlert persists an alert emission, merging repeats within the
// same identity bucket.
func (s *Store) UpsertAlert(ctx context.Context, alert AlertRecord) (AlertRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return AlertRecord{}, err
	}

	var deviation interface{}
	if alert.BaselineDeviation != nil {
		deviation = *alert.BaselineDeviation
	}

	row := pool.QueryRow(ctx, upsertAlertSQL,
		alert.MetricName,
		alert.Severity,
		alert.BucketTS,
		alert.CurrentValue,
		alert.ThresholdValue,
		deviation,
		alert.Message,
		alert.SuggestedActions,
	)

	rec := alert
	if scanErr := row.Scan(&rec.ID, &rec.CreatedAt); scanErr != nil {
		return AlertRecord{}, fmt.Errorf("upsert alert: %w", scanErr)
	}
	return rec, nil
}

// ListRecentAlerts lists the most recent alert records.
func (s *Store) ListRecentAlerts(ctx context.Context, limit int) ([]AlertRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecentAlertsSQL, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent alerts: %w", queryErr)
	}
	defer rows.Close()

	alerts := make([]AlertRecord, 0, limit)
	for rows.Next() {
		var rec AlertRecord
		var deviation *float64
		if err := rows.Scan(
			&rec.ID,
			&rec.MetricName,
			&rec.Severity,
			&rec.BucketTS,
			&rec.CurrentValue,
			&rec.ThresholdValue,
			&deviation,
			&rec.Message,
			&rec.SuggestedActions,
			&rec.CreatedAt,
		); err != nil {
			return nil, err
		}
		rec.BaselineDeviation = deviation
		alerts = append(alerts, rec)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return alerts, nil
}

// DeleteAlertsBefore deletes historical alert records.
func (s *Store) DeleteAlertsBefore(ctx context.Context, olderThan time.Time) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	if _, execErr := pool.Exec(ctx, deleteAlertsBeforeSQL, olderThan); execErr != nil {
		return fmt.Errorf("delete alerts before: %w", execErr)
	}
	return nil
}

func marshalTags(tags map[string]string) ([]byte, error) {
	if len(tags) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(tags)
	if err != nil {
		return nil, fmt.Errorf("marshal tags: %w", err)
	}
	return data, nil
}

func scanPoints(rows pgx.Rows) ([]Point, error) {
	points := make([]Point, 0)
	for rows.Next() {
		var (
			point Point
			tags  []byte
		)
		if err := rows.Scan(&point.Timestamp, &point.MetricName, &point.Value, &tags); err != nil {
			return nil, err
		}
		if len(tags) > 0 {
			if err := json.Unmarshal(tags, &point.Tags); err != nil {
				return nil, fmt.Errorf("parse tags: %w", err)
			}
		}
		points = append(points, point)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return points, nil
}
