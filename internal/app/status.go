package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"
)

// Status prints the latest reading, baseline, and dynamic thresholds
// for every known metric.
func (a *App) Status(ctx context.Context, opts StatusOptions) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot show status")
	}
	if closeStore != nil {
		defer closeStore()
	}

	names, err := store.ListMetricNames(ctx)
	if err != nil {
		return err
	}
	if len(names) == 0 {
		fmt.Fprintln(os.Stdout, "no metrics recorded")
		return nil
	}

	window := opts.Window
	if window <= 0 {
		window = time.Hour
	}
	since := time.Now().UTC().Add(-window)

	eng := a.newEngines(store, store)

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Metric\tCurrent\tBaseline Avg\tStdDev\tWarning\tCritical\tState")

	overall := "healthy"
	for _, name := range names {
		points, err := store.ListPointsSince(ctx, name, since, 1)
		if err != nil {
			return err
		}
		if len(points) == 0 {
			fmt.Fprintf(writer, "%s\t-\t-\t-\t-\t-\tstale\n", name)
			continue
		}
		current := points[0].Value

		b, ok, err := eng.baselines.Get(ctx, name)
		if err != nil {
			return err
		}

		pair := eng.thresholds.Dynamic(name, nil)
		avg, stddev := "-", "-"
		if ok {
			pair = eng.thresholds.Dynamic(name, &b)
			avg = fmt.Sprintf("%.2f", b.Avg)
			stddev = fmt.Sprintf("%.2f", b.StdDev)
		}

		state := "ok"
		switch {
		case current >= pair.Critical:
			state = "critical"
			overall = "critical"
		case current >= pair.Warning:
			state = "warning"
			if overall != "critical" {
				overall = "warning"
			}
		}

		fmt.Fprintf(writer, "%s\t%.2f\t%s\t%s\t%.2f\t%.2f\t%s\n",
			name, current, avg, stddev, pair.Warning, pair.Critical, state)
	}

	if err := writer.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "\noverall: %s\n", overall)
	return nil
}
