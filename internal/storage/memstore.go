package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// MemStore is an in-memory implementation of the store interfaces. It
// backs the simulate command and runs without a configured database; the
// engine tests use it as well. Not durable.
type MemStore struct {
	mu        sync.RWMutex
	points    []Point
	baselines map[string]Baseline
	alerts    map[string]AlertRecord
	alertSeq  int64
}

// NewMemStore constructs an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		baselines: make(map[string]Baseline),
		alerts:    make(map[string]AlertRecord),
	}
}

// InsertPoint appends one observation.
func (m *MemStore) InsertPoint(_ context.Context, point Point) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.points = append(m.points, point)
	return nil
}

// InsertPoints appends a batch of observations.
func (m *MemStore) InsertPoints(_ context.Context, points []Point) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.points = append(m.points, points...)
	return nil
}

// ListPointsSince returns one metric's points since the instant, newest
// first, capped at limit.
func (m *MemStore) ListPointsSince(_ context.Context, metricName string, since time.Time, limit int) ([]Point, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	matched := make([]Point, 0)
	for _, p := range m.points {
		if p.MetricName == metricName && !p.Timestamp.Before(since) {
			matched = append(matched, p)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].Timestamp.After(matched[j].Timestamp) })
	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

// ListAllPointsSince returns every metric's points since the instant,
// oldest first, capped at limit.
func (m *MemStore) ListAllPointsSince(_ context.Context, since time.Time, limit int) ([]Point, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	matched := make([]Point, 0)
	for _, p := range m.points {
		if !p.Timestamp.Before(since) {
			matched = append(matched, p)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].Timestamp.Before(matched[j].Timestamp) })
	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

// ListMetricNames lists distinct metric names.
func (m *MemStore) ListMetricNames(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	seen := make(map[string]struct{})
	for _, p := range m.points {
		seen[p.MetricName] = struct{}{}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// DeletePointsBefore removes expired points and reports the count.
func (m *MemStore) DeletePointsBefore(_ context.Context, olderThan time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.points[:0]
	var deleted int64
	for _, p := range m.points {
		if p.Timestamp.Before(olderThan) {
			deleted++
			continue
		}
		kept = append(kept, p)
	}
	m.points = kept
	return deleted, nil
}

// CountPoints counts stored observations.
func (m *MemStore) CountPoints(_ context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.points)), nil
}

// UpsertBaseline overwrites the baseline row for a metric.
func (m *MemStore) UpsertBaseline(_ context.Context, baseline Baseline) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.baselines[baseline.MetricName] = baseline
	return nil
}

// GetBaseline reads the stored baseline, if any.
func (m *MemStore) GetBaseline(_ context.Context, metricName string) (Baseline, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.baselines[metricName]
	return b, ok, nil
}

// UpsertAlert merges the alert into its identity bucket.
func (m *MemStore) UpsertAlert(_ context.Context, alert AlertRecord) (AlertRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := fmt.Sprintf("%s|%s|%d", alert.MetricName, alert.Severity, alert.BucketTS.Unix())
	if existing, ok := m.alerts[key]; ok {
		alert.ID = existing.ID
		alert.CreatedAt = existing.CreatedAt
	} else {
		m.alertSeq++
		alert.ID = m.alertSeq
		alert.CreatedAt = time.Now().UTC()
	}
	m.alerts[key] = alert
	return alert, nil
}

// ListRecentAlerts lists alerts newest bucket first.
func (m *MemStore) ListRecentAlerts(_ context.Context, limit int) ([]AlertRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	alerts := make([]AlertRecord, 0, len(m.alerts))
	for _, a := range m.alerts {
		alerts = append(alerts, a)
	}
	sort.Slice(alerts, func(i, j int) bool { return alerts[i].BucketTS.After(alerts[j].BucketTS) })
	if limit > 0 && len(alerts) > limit {
		alerts = alerts[:limit]
	}
	return alerts, nil
}

// DeleteAlertsBefore deletes alert records created before the instant.
func (m *MemStore) DeleteAlertsBefore(_ context.Context, olderThan time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, a := range m.alerts {
		if a.CreatedAt.Before(olderThan) {
			delete(m.alerts, key)
		}
	}
	return nil
}

var (
	_ PointStore    = (*MemStore)(nil)
	_ BaselineStore = (*MemStore)(nil)
	_ AlertStore    = (*MemStore)(nil)
)
