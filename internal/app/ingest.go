package app

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"metric-insights/internal/storage"
)

const defaultIngestBatch = 500

// Ingest bulk-loads historical points from a CSV file with a
// timestamp,metric_name,value header. Rows are written in batches so a
// large backfill does not hold one giant transaction.
func (a *App) Ingest(ctx context.Context, opts IngestOptions) error {
	if opts.Path == "" {
		return errors.New("input file is required")
	}
	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = defaultIngestBatch
	}

	file, err := os.Open(opts.Path)
	if err != nil {
		return err
	}
	defer file.Close()

	var points storage.PointStore
	if opts.DryRun {
		a.Logger.Warn().Msg("ingest dry-run; rows are parsed but not written")
	} else {
		store, closeStore, err := a.openStore(ctx)
		if err != nil {
			return err
		}
		if store == nil {
			return errors.New("database not configured; cannot ingest")
		}
		if closeStore != nil {
			defer closeStore()
		}
		points = store
	}

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return fmt.Errorf("read header: %w", err)
	}
	if len(header) < 3 || header[0] != "timestamp" || header[1] != "metric_name" || header[2] != "value" {
		return fmt.Errorf("unexpected header %v, want timestamp,metric_name,value", header)
	}

	batch := make([]storage.Point, 0, batchSize)
	line := 1
	loaded := 0
	skipped := 0

	flush := func() error {
		if len(batch) == 0 || points == nil {
			return nil
		}
		if err := points.InsertPoints(ctx, batch); err != nil {
			return fmt.Errorf("insert batch ending at line %d: %w", line, err)
		}
		batch = batch[:0]
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("read line %d: %w", line+1, err)
		}
		line++

		point, err := parsePointRecord(record)
		if err != nil {
			skipped++
			a.Logger.Warn().Err(err).Int("line", line).Msg("skipping malformed row")
			continue
		}

		loaded++
		if points == nil {
			continue
		}
		batch = append(batch, point)
		if len(batch) >= batchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}

	if err := flush(); err != nil {
		return err
	}

	a.Logger.Info().Int("loaded", loaded).Int("skipped", skipped).Bool("dry_run", opts.DryRun).Msg("ingest complete")
	if skipped > 0 {
		return fmt.Errorf("%d rows skipped; check logs", skipped)
	}
	return nil
}

func parsePointRecord(record []string) (storage.Point, error) {
	if len(record) < 3 {
		return storage.Point{}, fmt.Errorf("want at least 3 fields, got %d", len(record))
	}

	ts, err := time.Parse(time.RFC3339, record[0])
	if err != nil {
		return storage.Point{}, fmt.Errorf("invalid timestamp %q: %w", record[0], err)
	}
	if record[1] == "" {
		return storage.Point{}, errors.New("empty metric name")
	}
	value, err := strconv.ParseFloat(record[2], 64)
	if err != nil {
		return storage.Point{}, fmt.Errorf("invalid value %q: %w", record[2], err)
	}

	return storage.Point{
		Timestamp:  ts.UTC(),
		MetricName: record[1],
		Value:      value,
	}, nil
}
