package app

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"metric-insights/internal/alert"
	"metric-insights/internal/baseline"
	"metric-insights/internal/collector"
	"metric-insights/internal/config"
	"metric-insights/internal/scheduler"
	"metric-insights/internal/service"
	"metric-insights/internal/storage"
	"metric-insights/internal/threshold"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

func (a *App) openStore(ctx context.Context) (*storage.Store, func(), error) {
	if a.Config.Database.DSN == "" {
		return nil, nil, nil
	}

	pool, err := storage.NewPool(ctx, a.Config.Database)
	if err != nil {
		return nil, nil, err
	}

	store := storage.NewStore(pool)
	if err := store.EnsureSchema(ctx); err != nil {
		store.Close()
		return nil, nil, err
	}

	closer := func() {
		store.Close()
	}
	return store, closer, nil
}

// engines bundles the derived computation layers built on top of a
// store. Every command that analyzes or classifies goes through one.
type engines struct {
	baselines  *baseline.Engine
	thresholds *threshold.Engine
	generator  *alert.Generator
}

func (a *App) newEngines(points storage.PointStore, baselines storage.BaselineStore) engines {
	cfg := a.Config

	be := baseline.NewEngine(points, baselines, baseline.Options{
		MinSamples: cfg.Baseline.MinSamples,
		MaxPoints:  cfg.Analysis.MaxQueryPoints,
	}, a.Logger)

	te := threshold.NewEngine(cfg.Thresholds)

	gen := alert.NewGenerator(te, be, cfg.Alerts.IdentityBucket, a.Logger)

	return engines{baselines: be, thresholds: te, generator: gen}
}

func (a *App) newNotifier() alert.Notifier {
	hook := a.Config.Alerts.Webhook
	if !hook.Enabled || hook.URL == "" {
		return nil
	}
	timeout := hook.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return alert.NewWebhookNotifier(hook.URL, timeout, a.Logger)
}

// Run executes the long-running monitoring service.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if closeStore != nil {
		defer closeStore()
	}

	var points storage.PointStore
	var baselineStore storage.BaselineStore
	var alertStore storage.AlertStore
	if store != nil {
		points = store
		baselineStore = store
		alertStore = store
	} else {
		a.Logger.Warn().Msg("database.dsn not configured; using in-memory store, data will not survive restart")
		mem := storage.NewMemStore()
		points = mem
		baselineStore = mem
		alertStore = mem
	}

	sched, err := scheduler.New(scheduler.Options{
		Interval:      a.Config.Scheduler.Interval,
		AlignToBucket: a.Config.Scheduler.AlignToBucket,
		StartupDelay:  a.Config.Scheduler.StartupDelay,
	}, a.Logger)
	if err != nil {
		return err
	}

	eng := a.newEngines(points, baselineStore)
	sampler := collector.NewHostSampler(a.Config.Collector.DiskPath, a.Logger)
	alertLog := alert.NewLog(a.Config.Alerts.LogCapacity)
	notifier := a.newNotifier()

	svc := service.New(a.Config, sched, sampler, points, alertStore, eng.baselines, eng.generator, alertLog, notifier, a.Logger)

	a.Logger.Info().Msg("starting monitoring service")
	err = svc.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("service terminated with error")
		return err
	}

	a.Logger.Info().Msg("monitoring service stopped")
	return nil
}

// StatusOptions configure the status command.
type StatusOptions struct {
	Window time.Duration
}

// AlertsOptions configure the alerts command.
type AlertsOptions struct {
	Limit    int
	Severity string
}

// TrendOptions configure trend analysis.
type TrendOptions struct {
	Metric string
	Window time.Duration
}

// CorrelateOptions configure correlation analysis. When MetricA is
// empty all metric pairs are scanned.
type CorrelateOptions struct {
	MetricA string
	MetricB string
	Window  time.Duration
}

// AnomaliesOptions configure anomaly cluster detection.
type AnomaliesOptions struct {
	Window time.Duration
}

// PredictOptions configure forecasting.
type PredictOptions struct {
	Metric   string
	Lookback time.Duration
}

// ReportOptions configure the insight report.
type ReportOptions struct {
	Window time.Duration
	JSON   bool
}

// ExportOptions hold parameters for exporting metric history.
type ExportOptions struct {
	Metric    string
	From      *time.Time
	To        *time.Time
	PNGPath   string
	CSVPath   string
	MaxPoints int
}

// IngestOptions configure bulk CSV loading.
type IngestOptions struct {
	Path      string
	BatchSize int
	DryRun    bool
}

// SimulateOptions feed a synthetic reading set through one
// classification pass.
type SimulateOptions struct {
	Readings map[string]float64
	Seed     bool
}
