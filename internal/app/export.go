package app

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	chart "github.com/wcharczuk/go-chart/v2"

	"metric-insights/internal/storage"
)

// Export renders one metric's history as CSV and/or a PNG chart with
// the dynamic threshold band overlaid.
func (a *App) Export(ctx context.Context, opts ExportOptions) error {
	if opts.Metric == "" {
		return errors.New("metric name is required")
	}
	if opts.CSVPath == "" && opts.PNGPath == "" {
		return errors.New("at least one of --csv or --png must be provided")
	}

	opts.MaxPoints = a.Config.ResolveMaxPoints(opts.MaxPoints)

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot export")
	}
	if closeStore != nil {
		defer closeStore()
	}

	to := time.Now().UTC()
	if opts.To != nil {
		to = opts.To.UTC()
	}

	from := to.Add(-time.Duration(opts.MaxPoints) * a.Config.Scheduler.Interval)
	if opts.From != nil {
		from = opts.From.UTC()
	}

	if !from.Before(to) {
		return errors.New("from must be before to")
	}

	points, err := store.ListPointsSince(ctx, opts.Metric, from, a.Config.Analysis.MaxQueryPoints)
	if err != nil {
		return err
	}
	points = clipPoints(points, to)
	if len(points) == 0 {
		a.Logger.Info().Str("metric", opts.Metric).Msg("no points found for export window")
		return nil
	}

	sort.Slice(points, func(i, j int) bool { return points[i].Timestamp.Before(points[j].Timestamp) })
	downsampled := downsamplePoints(points, opts.MaxPoints)
	a.Logger.Info().Str("metric", opts.Metric).Int("total", len(points)).Int("exported", len(downsampled)).Msg("exporting points")

	if opts.CSVPath != "" {
		if err := writePointsCSV(opts.CSVPath, downsampled); err != nil {
			return err
		}
	}

	if opts.PNGPath != "" {
		eng := a.newEngines(store, store)
		pair := eng.thresholds.Dynamic(opts.Metric, nil)
		if b, ok, err := eng.baselines.Get(ctx, opts.Metric); err != nil {
			return err
		} else if ok {
			pair = eng.thresholds.Dynamic(opts.Metric, &b)
		}
		if err := writePointsPNG(opts.PNGPath, opts.Metric, downsampled, pair.Warning, pair.Critical); err != nil {
			return err
		}
	}

	return nil
}

func clipPoints(points []storage.Point, to time.Time) []storage.Point {
	kept := points[:0]
	for _, point := range points {
		if point.Timestamp.Before(to) {
			kept = append(kept, point)
		}
	}
	return kept
}

func downsamplePoints(points []storage.Point, max int) []storage.Point {
	if max <= 0 || len(points) <= max {
		return points
	}

	result := make([]storage.Point, 0, max)
	step := float64(len(points)-1) / float64(max-1)
	for i := 0; i < max; i++ {
		idx := int(math.Round(step * float64(i)))
		if idx >= len(points) {
			idx = len(points) - 1
		}
		result = append(result, points[idx])
	}
	return result
}

func writePointsCSV(path string, points []storage.Point) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{"timestamp", "metric_name", "value"}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, point := range points {
		record := []string{
			point.Timestamp.UTC().Format(time.RFC3339),
			point.MetricName,
			strconv.FormatFloat(point.Value, 'f', -1, 64),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	return writer.Error()
}

func writePointsPNG(path, metricName string, points []storage.Point, warning, critical float64) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	x := make([]time.Time, len(points))
	values := make([]float64, len(points))
	warningLine := make([]float64, len(points))
	criticalLine := make([]float64, len(points))

	for i, point := range points {
		x[i] = point.Timestamp
		values[i] = point.Value
		warningLine[i] = warning
		criticalLine[i] = critical
	}

	valueFormatter := func(v interface{}) string {
		return chart.FloatValueFormatterWithFormat(v, "%.2f")
	}
	graph := chart.Chart{
		Width:  1280,
		Height: 720,
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeValueFormatter,
		},
		YAxis: chart.YAxis{
			Name:           metricName,
			ValueFormatter: valueFormatter,
		},
		Series: []chart.Series{
			chart.TimeSeries{
				Name:    metricName,
				XValues: x,
				YValues: values,
			},
			chart.TimeSeries{
				Name:    fmt.Sprintf("warning (%.1f)", warning),
				XValues: x,
				YValues: warningLine,
				Style: chart.Style{
					StrokeColor:     chart.ColorOrange,
					StrokeDashArray: []float64{5.0, 5.0},
				},
			},
			chart.TimeSeries{
				Name:    fmt.Sprintf("critical (%.1f)", critical),
				XValues: x,
				YValues: criticalLine,
				Style: chart.Style{
					StrokeColor:     chart.ColorRed,
					StrokeDashArray: []float64{5.0, 5.0},
				},
			},
		},
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return graph.Render(chart.PNG, file)
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
