package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"
)

// Alerts prints recently recorded alerts, newest first.
func (a *App) Alerts(ctx context.Context, opts AlertsOptions) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot list alerts")
	}
	if closeStore != nil {
		defer closeStore()
	}

	records, err := store.ListRecentAlerts(ctx, opts.Limit)
	if err != nil {
		return err
	}

	if opts.Severity != "" {
		want := strings.ToLower(opts.Severity)
		filtered := records[:0]
		for _, record := range records {
			if record.Severity == want {
				filtered = append(filtered, record)
			}
		}
		records = filtered
	}

	if len(records) == 0 {
		fmt.Fprintln(os.Stdout, "no alerts found")
		return nil
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Time (UTC)\tSeverity\tMetric\tValue\tThreshold\tDeviation\tMessage")

	for _, record := range records {
		deviation := "-"
		if record.BaselineDeviation != nil {
			deviation = fmt.Sprintf("%+.2f", *record.BaselineDeviation)
		}
		fmt.Fprintf(writer, "%s\t%s\t%s\t%.2f\t%.2f\t%s\t%s\n",
			record.BucketTS.UTC().Format(time.RFC3339),
			record.Severity,
			record.MetricName,
			record.CurrentValue,
			record.ThresholdValue,
			deviation,
			sanitizeInline(record.Message),
		)
	}

	return writer.Flush()
}

func sanitizeInline(v string) string {
	cleaned := strings.ReplaceAll(v, "\n", " ")
	cleaned = strings.ReplaceAll(cleaned, "\r", " ")
	return cleaned
}
