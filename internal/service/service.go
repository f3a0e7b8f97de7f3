package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"metric-insights/internal/alert"
	"metric-insights/internal/baseline"
	"metric-insights/internal/collector"
	"metric-insights/internal/config"
	"metric-insights/internal/scheduler"
	"metric-insights/internal/storage"
)

// Service orchestrates sampling, persistence, classification, and the
// periodic maintenance pass (baseline recomputation and retention
// pruning).
type Service struct {
	scheduler *scheduler.Scheduler
	sampler   collector.Sampler
	points    storage.PointStore
	alerts    storage.AlertStore
	baselines *baseline.Engine
	generator *alert.Generator
	alertLog  *alert.Log
	notifier  alert.Notifier
	logger    zerolog.Logger

	locker  storage.AdvisoryLocker
	lockKey int64

	baselineLookback time.Duration
	recomputeEvery   time.Duration
	retention        time.Duration
	nextMaintenance  time.Time
}

// New constructs the monitoring service.
func New(cfg *config.Config, sched *scheduler.Scheduler, sampler collector.Sampler, points storage.PointStore, alerts storage.AlertStore, baselines *baseline.Engine, generator *alert.Generator, alertLog *alert.Log, notifier alert.Notifier, logger zerolog.Logger) *Service {
	var locker storage.AdvisoryLocker
	if l, ok := points.(storage.AdvisoryLocker); ok {
		locker = l
	}

	return &Service{
		scheduler:        sched,
		sampler:          sampler,
		points:           points,
		alerts:           alerts,
		baselines:        baselines,
		generator:        generator,
		alertLog:         alertLog,
		notifier:         notifier,
		logger:           logger.With().Str("component", "service").Logger(),
		locker:           locker,
		lockKey:          cfg.Scheduler.AdvisoryLockKey,
		baselineLookback: cfg.Baseline.Lookback,
		recomputeEvery:   cfg.Baseline.RecomputeInterval,
		retention:        cfg.Retention.MaxAge,
	}
}

// Run begins the sampling loop.
func (s *Service) Run(ctx context.Context) error {
	if s.scheduler == nil {
		return fmt.Errorf("scheduler not configured")
	}
	return s.scheduler.Run(ctx, s.ProcessCycle)
}

// ProcessCycle executes one sampling cycle: collect readings, persist
// them, classify each against its dynamic thresholds, and run
// maintenance when due. The advisory lock lets several watchers share a
// database with only one doing the work.
func (s *Service) ProcessCycle(ctx context.Context, cycleTS time.Time) error {
	unlock, proceed, err := s.acquireLock(ctx)
	if err != nil {
		return err
	}
	if !proceed {
		s.logger.Debug().Time("cycle", cycleTS).Msg("skip cycle because advisory lock held elsewhere")
		return nil
	}
	if unlock != nil {
		defer unlock()
	}

	return s.executeCycle(ctx, cycleTS)
}

func (s *Service) executeCycle(ctx context.Context, cycleTS time.Time) error {
	snap, err := s.sampler.Sample(ctx)
	if err != nil {
		return fmt.Errorf("collect sample: %w", err)
	}
	if len(snap.Values) == 0 {
		return fmt.Errorf("sampler returned no readings")
	}

	names := make([]string, 0, len(snap.Values))
	batch := make([]storage.Point, 0, len(snap.Values))
	for name, value := range snap.Values {
		names = append(names, name)
		batch = append(batch, storage.Point{
			Timestamp:  snap.Timestamp,
			MetricName: name,
			Value:      value,
		})
	}
	sort.Strings(names)
	sort.Slice(batch, func(i, j int) bool { return batch[i].MetricName < batch[j].MetricName })

	if err := s.points.InsertPoints(ctx, batch); err != nil {
		return fmt.Errorf("persist sample batch: %w", err)
	}

	s.logger.Info().Time("cycle", cycleTS).Int("readings", len(batch)).Msg("sample recorded")

	for _, name := range names {
		s.classify(ctx, name, snap.Values[name])
	}

	if s.maintenanceDue(snap.Timestamp) {
		s.runMaintenance(ctx, names, snap.Timestamp)
	}

	return nil
}

func (s *Service) classify(ctx context.Context, metric string, value float64) {
	a, err := s.generator.Classify(ctx, metric, value)
	if err != nil {
		s.logger.Error().Err(err).Str("metric", metric).Msg("classification failed")
		return
	}
	if a == nil {
		return
	}

	s.alertLog.Record(*a)

	if s.alerts != nil && a.Severity >= alert.SeverityWarning {
		record := storage.AlertRecord{
			MetricName:        a.MetricName,
			Severity:          a.Severity.String(),
			BucketTS:          a.BucketTS,
			CurrentValue:      a.CurrentValue,
			ThresholdValue:    a.ThresholdValue,
			BaselineDeviation: a.BaselineDeviation,
			Message:           a.Message,
			SuggestedActions:  a.SuggestedActions,
		}
		if _, err := s.alerts.UpsertAlert(ctx, record); err != nil {
			s.logger.Error().Err(err).Str("metric", metric).Msg("failed to persist alert")
		}
	}

	if s.notifier != nil && a.Severity >= alert.SeverityWarning {
		if err := s.notifier.Notify(ctx, *a); err != nil {
			s.logger.Error().Err(err).Str("metric", metric).Msg("failed to dispatch alert")
		}
	}
}

func (s *Service) maintenanceDue(now time.Time) bool {
	if s.recomputeEvery <= 0 {
		return false
	}
	return s.nextMaintenance.IsZero() || !now.Before(s.nextMaintenance)
}

func (s *Service) runMaintenance(ctx context.Context, metrics []string, now time.Time) {
	s.nextMaintenance = now.Add(s.recomputeEvery)

	for _, name := range metrics {
		if _, _, err := s.baselines.Compute(ctx, name, s.baselineLookback); err != nil {
			s.logger.Error().Err(err).Str("metric", name).Msg("baseline recomputation failed")
		}
	}

	if s.retention <= 0 {
		return
	}
	cutoff := now.Add(-s.retention)

	removed, err := s.points.DeletePointsBefore(ctx, cutoff)
	if err != nil {
		s.logger.Error().Err(err).Msg("point retention prune failed")
	} else if removed > 0 {
		s.logger.Info().Int64("removed", removed).Time("cutoff", cutoff).Msg("pruned expired points")
	}

	if s.alerts != nil {
		if err := s.alerts.DeleteAlertsBefore(ctx, cutoff); err != nil {
			s.logger.Error().Err(err).Msg("alert retention prune failed")
		}
	}
}

func (s *Service) acquireLock(ctx context.Context) (func(), bool, error) {
	if s.lockKey == 0 || s.locker == nil {
		return nil, true, nil
	}
	unlock, acquired, err := s.locker.TryAdvisoryLock(ctx, s.lockKey)
	if err != nil {
		return nil, false, fmt.Errorf("acquire advisory lock: %w", err)
	}
	if !acquired {
		return nil, false, nil
	}
	return unlock, true, nil
}
