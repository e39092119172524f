// Package aggregator implements the periodic rollup described in spec
// §4.4: every tick it snapshots and clears each app's raw container/HTTP
// buffers, reduces them into one ApplicationMetric, and republishes that
// rollup so the scaler and the append-to-history path both see it.
package aggregator

import (
	"context"
	"log"
	"time"

	"autoscaler/internal/app"
	"autoscaler/internal/bus"
	"autoscaler/internal/metrics"
	"autoscaler/internal/registry"
)

// Aggregator periodically rolls up every registered app's raw metrics.
type Aggregator struct {
	reg    *registry.Manager
	bus    bus.Publisher
	period time.Duration
}

// New builds an Aggregator that ticks every period.
func New(reg *registry.Manager, publisher bus.Publisher, period time.Duration) *Aggregator {
	return &Aggregator{reg: reg, bus: publisher, period: period}
}

// Run blocks, ticking every a.period, until ctx is canceled.
func (a *Aggregator) Run(ctx context.Context) {
	ticker := time.NewTicker(a.period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			a.tick(ctx, now)
		}
	}
}

func (a *Aggregator) tick(ctx context.Context, now time.Time) {
	for _, sa := range a.reg.GetFlatCopyOfApps() {
		sa := sa
		err := sa.WithLock(ctx, func() error {
			a.rollupLocked(sa, now)
			return nil
		})
		if err != nil {
			log.Printf("[aggregator] skipping %s: %v", sa.Binding.ID, err)
		}
	}
}

// rollupLocked implements one app's rollup. Caller must hold sa's mutex.
// Per spec §4.4 step 3, CPU and RAM are NOT the ScalingChecker's
// valueOf<Dimension> policy reduction (MAX/MIN/MEAN over the
// most-recent-per-instance samples) — that's a different, narrower
// algorithm meant for scaling decisions. The aggregator instead
// accumulates, over every container sample not older than
// sa.MaxMetricAge, every non-negative CPU sample and every non-negative
// RAM sample separately, and averages each by its own count. Step 5
// applies the same age filter to HTTP samples and additionally requires
// requests > 0. Both the container and HTTP buffers are snapshotted and
// reset every tick (step 4) — nothing survives to the next window, aged
// out or not.
func (a *Aggregator) rollupLocked(sa *app.ScalableApp, now time.Time) {
	containerSamples := sa.GetCopyOfContainerMetricsList()
	sa.ResetContainerMetricsList()
	httpSamples := sa.GetCopyOfHttpMetricsList()
	sa.ResetHttpMetricList()

	var cpuSum, ramSum float64
	var cpuCount, ramCount int
	for _, m := range containerSamples {
		if now.Sub(m.Timestamp) > sa.MaxMetricAge {
			continue
		}
		if m.CPU >= 0 {
			cpuSum += m.CPU
			cpuCount++
		}
		if m.RAM >= 0 {
			ramSum += m.RAM
			ramCount++
		}
	}

	if cpuCount == 0 || ramCount == 0 {
		return
	}
	cpu := cpuSum / float64(cpuCount)
	ram := ramSum / float64(ramCount)

	var totalRequests int64
	var latencySum float64
	var latencyCount int
	for _, m := range httpSamples {
		if now.Sub(m.Timestamp) > sa.MaxMetricAge || m.Requests <= 0 {
			continue
		}
		totalRequests += m.Requests
		if m.Latency >= 0 {
			latencySum += m.Latency
			latencyCount++
		}
	}
	latency := float64(metrics.Missing)
	if latencyCount > 0 {
		latency = latencySum / float64(latencyCount)
	}

	quotient := 0.0
	if sa.CurrentInstanceCount > 0 {
		quotient = float64(totalRequests) / float64(sa.CurrentInstanceCount)
	}

	am := metrics.ApplicationMetric{
		Timestamp:     now,
		AppID:         sa.Binding.ResourceID,
		CPU:           cpu,
		RAM:           ram,
		Requests:      totalRequests,
		Latency:       latency,
		Quotient:      quotient,
		InstanceCount: sa.CurrentInstanceCount,
	}
	sa.AddApplicationMetric(am)
	a.bus.PublishApplicationMetric(am)
}
