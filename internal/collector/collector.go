package collector

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
	gopsnet "github.com/shirou/gopsutil/v3/net"
)

// Snapshot is one classification pass worth of simultaneous readings.
type Snapshot struct {
	Timestamp time.Time
	Values    map[string]float64
}

// Sampler produces a snapshot of current metric readings.
type Sampler interface {
	Sample(ctx context.Context) (Snapshot, error)
}

// HostSampler reads host metrics via gopsutil. Network throughput is
// derived from counter deltas between consecutive samples, so the first
// sample reports zero rates.
type HostSampler struct {
	diskPath string
	logger   zerolog.Logger

	mu        sync.Mutex
	lastNetAt time.Time
	lastSent  uint64
	lastRecv  uint64
}

// NewHostSampler constructs a host sampler. diskPath is the mount point
// whose usage is reported.
func NewHostSampler(diskPath string, logger zerolog.Logger) *HostSampler {
	if diskPath == "" {
		diskPath = "/"
	}
	return &HostSampler{
		diskPath: diskPath,
		logger:   logger.With().Str("component", "collector").Logger(),
	}
}

// Sample collects one reading set. CPU, memory, and disk failures abort
// the sample; load and network are best-effort extras.
func (h *HostSampler) Sample(ctx context.Context) (Snapshot, error) {
	now := time.Now().UTC()
	values := make(map[string]float64, 6)

	cpuPercents, err := cpu.PercentWithContext(ctx, 0, false)
	if err != nil {
		return Snapshot{}, fmt.Errorf("sample cpu: %w", err)
	}
	if len(cpuPercents) > 0 {
		values["cpu_percent"] = cpuPercents[0]
	}

	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("sample memory: %w", err)
	}
	values["memory_percent"] = vm.UsedPercent

	usage, err := disk.UsageWithContext(ctx, h.diskPath)
	if err != nil {
		return Snapshot{}, fmt.Errorf("sample disk %s: %w", h.diskPath, err)
	}
	values["disk_percent"] = usage.UsedPercent

	if avg, err := load.AvgWithContext(ctx); err != nil {
		h.logger.Warn().Err(err).Msg("load average unavailable")
	} else {
		values["load_average"] = avg.Load1
	}

	inMbps, outMbps, err := h.networkRates(ctx, now)
	if err != nil {
		h.logger.Warn().Err(err).Msg("network counters unavailable")
	} else {
		values["network_in_mbps"] = inMbps
		values["network_out_mbps"] = outMbps
	}

	return Snapshot{Timestamp: now, Values: values}, nil
}

func (h *HostSampler) networkRates(ctx context.Context, now time.Time) (float64, float64, error) {
	counters, err := gopsnet.IOCountersWithContext(ctx, false)
	if err != nil {
		return 0, 0, err
	}
	if len(counters) == 0 {
		return 0, 0, fmt.Errorf("no network counters reported")
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	sent := counters[0].BytesSent
	recv := counters[0].BytesRecv

	var inMbps, outMbps float64
	if !h.lastNetAt.IsZero() {
		elapsed := now.Sub(h.lastNetAt).Seconds()
		if elapsed > 0 && recv >= h.lastRecv && sent >= h.lastSent {
			inMbps = float64(recv-h.lastRecv) * 8 / elapsed / (1024 * 1024)
			outMbps = float64(sent-h.lastSent) * 8 / elapsed / (1024 * 1024)
		}
	}

	h.lastNetAt = now
	h.lastSent = sent
	h.lastRecv = recv

	return inMbps, outMbps, nil
}

// StaticSampler returns a fixed reading set; simulate and tests use it.
type StaticSampler struct {
	Readings map[string]float64
}

// Sample returns the configured readings stamped with the current time.
func (s *StaticSampler) Sample(_ context.Context) (Snapshot, error) {
	values := make(map[string]float64, len(s.Readings))
	for name, value := range s.Readings {
		values[name] = value
	}
	return Snapshot{Timestamp: time.Now().UTC(), Values: values}, nil
}

var (
	_ Sampler = (*HostSampler)(nil)
	_ Sampler = (*StaticSampler)(nil)
)
