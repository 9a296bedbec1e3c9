// Package serverinfo maintains a best-effort periodic snapshot of host
// telemetry (CPU/RAM), exposed read-only through the dashboard GraphQL
// schema, refreshed by a background timer.
package serverinfo

import (
	"context"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"
	"go.uber.org/zap"
)

// Info is a point-in-time telemetry reading.
type Info struct {
	CPUUsagePercent float64
	RAMUsagePercent float64
	NumGoroutines   int
	CollectedAt     time.Time
}

// Collector periodically refreshes an Info snapshot in the background.
// Collection failures are logged at debug level and leave the affected
// field at zero in the new snapshot: telemetry is diagnostic, never
// load-bearing.
type Collector struct {
	log *zap.Logger

	current atomic.Pointer[Info]
}

// NewCollector constructs a Collector with an empty initial snapshot.
func NewCollector(log *zap.Logger) *Collector {
	c := &Collector{log: log.Named("serverinfo")}
	c.current.Store(&Info{})
	return c
}

// Current returns the most recently collected Info.
func (c *Collector) Current() Info {
	return *c.current.Load()
}

// Run refreshes the snapshot every interval until ctx is cancelled.
func (c *Collector) Run(ctx context.Context, interval time.Duration) {
	c.collect(ctx)
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			c.collect(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// collect gathers a best-effort snapshot via gopsutil and the Go runtime.
// Anything unavailable (restricted container, missing /proc) is logged at
// debug level and left at its zero value rather than failing the whole
// snapshot.
func (c *Collector) collect(ctx context.Context) {
	info := Info{
		NumGoroutines: runtime.NumGoroutine(),
		CollectedAt:   time.Now(),
	}

	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		info.RAMUsagePercent = vm.UsedPercent
	} else {
		c.log.Debug("ram telemetry unavailable", zap.Error(err))
	}
	if pct, err := cpu.PercentWithContext(ctx, 0, false); err == nil && len(pct) > 0 {
		info.CPUUsagePercent = pct[0]
	} else {
		c.log.Debug("cpu telemetry unavailable", zap.Error(err))
	}

	c.current.Store(&info)
}
