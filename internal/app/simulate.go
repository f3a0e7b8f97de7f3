package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"metric-insights/internal/alert"
	"metric-insights/internal/storage"
)

// Simulate runs one classification pass over synthetic readings
// without touching the database. With Seed set, two hours of flat
// history is generated first so adaptive thresholds engage.
func (a *App) Simulate(ctx context.Context, opts SimulateOptions) error {
	if len(opts.Readings) == 0 {
		return errors.New("at least one metric=value reading is required")
	}

	mem := storage.NewMemStore()
	eng := a.newEngines(mem, mem)

	if opts.Seed {
		if err := a.seedHistory(ctx, mem, eng, opts.Readings); err != nil {
			return err
		}
	}

	names := make([]string, 0, len(opts.Readings))
	for name := range opts.Readings {
		names = append(names, name)
	}
	sort.Strings(names)

	notifier := a.newNotifier()
	fired := 0

	for _, name := range names {
		value := opts.Readings[name]
		result, err := eng.generator.Classify(ctx, name, value)
		if err != nil {
			return err
		}
		if result == nil {
			fmt.Fprintf(os.Stdout, "%s=%.2f: ok\n", name, value)
			continue
		}

		fired++
		fmt.Fprintf(os.Stdout, "%s=%.2f: %s\n", name, value, result.Message)
		if len(result.SuggestedActions) > 0 {
			fmt.Fprintf(os.Stdout, "  suggested: %s\n", strings.Join(result.SuggestedActions, "; "))
		}

		if notifier != nil && result.Severity >= alert.SeverityWarning {
			if err := notifier.Notify(ctx, *result); err != nil {
				a.Logger.Error().Err(err).Str("metric", name).Msg("failed to dispatch simulated alert")
			}
		}
	}

	if fired == 0 {
		fmt.Fprintln(os.Stdout, "all readings within thresholds")
	}
	return nil
}

// seedHistory writes a flat series per metric and computes baselines
// from it, so the simulated reading is judged against an adaptive
// threshold instead of the static fallback.
func (a *App) seedHistory(ctx context.Context, mem *storage.MemStore, eng engines, readings map[string]float64) error {
	now := time.Now().UTC()
	lookback := a.Config.Baseline.Lookback

	for name, value := range readings {
		seedValue := value * 0.5
		points := make([]storage.Point, 0, 24)
		for i := 0; i < 24; i++ {
			points = append(points, storage.Point{
				Timestamp:  now.Add(-2*time.Hour + time.Duration(i)*5*time.Minute),
				MetricName: name,
				Value:      seedValue,
			})
		}
		if err := mem.InsertPoints(ctx, points); err != nil {
			return err
		}
		if _, _, err := eng.baselines.Compute(ctx, name, lookback); err != nil {
			return err
		}
	}
	return nil
}
