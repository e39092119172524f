// Package app implements the ScalableApp aggregate: per-binding state,
// its four ComponentWrappers, its bounded metric buffers, and the single
// mutex that guards all of it. See spec §4.1.
package app

import (
	"context"
	"time"

	"autoscaler/internal/metrics"
)

// Minimums enforced on a ScalableApp's scheduling parameters (§3).
const (
	CooldownMin                = 5 * time.Second
	LearningMultiplierMin      = 1.0
	ScalingIntervalMultiplierMin = 1
)

// ScalableApp is the per-binding aggregate: binding identity, the four
// ComponentWrappers, ring-buffered metric lists, and scheduling state,
// all guarded by one mutex. Every getter and setter below assumes the
// caller already holds that mutex via Acquire/Release, matching the
// teacher's AppManager convention of a single lock per mutable aggregate
// (controller_go/manager.go's am.lock) narrowed here to per-app scope.
type ScalableApp struct {
	sem chan struct{}

	Binding Binding

	CPU     Wrapper
	RAM     Wrapper
	Request Wrapper
	Latency Wrapper

	MinInstances              int
	MaxInstances              int
	MinQuotient               float64
	CooldownTime              time.Duration
	LearningTimeMultiplier    float64
	ScalingIntervalMultiplier int
	MaxMetricListSize         int
	MaxMetricAge              time.Duration

	CurrentIntervalState int
	LastScalingTime      time.Time
	LearningStartTime    time.Time

	// CurrentInstanceCount is the last known replica count. It starts at 0
	// and is set by the scaler after each confirmed scale; no consumer
	// reads platform instance-count notifications. The aggregator stamps
	// it onto each ApplicationMetric it produces.
	CurrentInstanceCount int

	containerMetrics   []metrics.ContainerMetric
	httpMetrics        []metrics.HttpMetric
	applicationMetrics []metrics.ApplicationMetric
}

// Config bundles the parameters needed to construct a ScalableApp. A
// Config is assumed already validated (see internal/validate) — the
// "validation totality" property in spec §8 is enforced by callers
// routing every Config's blueprint through validate.Blueprint (both the
// load path and the bind path) before reaching New.
type Config struct {
	Binding Binding

	CPU     Wrapper
	RAM     Wrapper
	Request Wrapper
	Latency Wrapper

	MinInstances              int
	MaxInstances              int
	MinQuotient               float64
	CooldownTime              time.Duration
	LearningTimeMultiplier    float64
	ScalingIntervalMultiplier int
	MaxMetricListSize         int
	MaxMetricAge              time.Duration

	CurrentIntervalState int
	LastScalingTime      time.Time
	LearningStartTime    time.Time
}

// New constructs a ScalableApp from a validated Config, starting unlocked.
func New(cfg Config) *ScalableApp {
	a := &ScalableApp{
		sem:                       make(chan struct{}, 1),
		Binding:                   cfg.Binding,
		CPU:                       cfg.CPU,
		RAM:                       cfg.RAM,
		Request:                   cfg.Request,
		Latency:                   cfg.Latency,
		MinInstances:              cfg.MinInstances,
		MaxInstances:              cfg.MaxInstances,
		MinQuotient:               cfg.MinQuotient,
		CooldownTime:              cfg.CooldownTime,
		LearningTimeMultiplier:    cfg.LearningTimeMultiplier,
		ScalingIntervalMultiplier: cfg.ScalingIntervalMultiplier,
		MaxMetricListSize:         cfg.MaxMetricListSize,
		MaxMetricAge:              cfg.MaxMetricAge,
		CurrentIntervalState:      cfg.CurrentIntervalState,
		LastScalingTime:           cfg.LastScalingTime,
		LearningStartTime:         cfg.LearningStartTime,
	}
	a.sem <- struct{}{}
	return a
}

// Acquire blocks until the app's mutex is obtained, or ctx is done. On
// ctx cancellation it returns ctx.Err() and the caller must not proceed
// as if the lock were held (spec §4.1, §5: acquisition is interruptible).
func (a *ScalableApp) Acquire(ctx context.Context) error {
	select {
	case <-a.sem:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release returns the mutex. Callers must only call Release after a
// successful Acquire — calling it otherwise double-releases the binary
// semaphore, the bug spec §9's open questions warn against.
func (a *ScalableApp) Release() {
	a.sem <- struct{}{}
}

// WithLock runs fn with the mutex held, always releasing on return —
// including on panic or error — so callers get the scoped-acquisition
// discipline spec §9 recommends without hand-rolling defer at each call
// site. fn must not call Acquire/Release itself (self-deadlock).
func (a *ScalableApp) WithLock(ctx context.Context, fn func() error) error {
	if err := a.Acquire(ctx); err != nil {
		return err
	}
	defer a.Release()
	return fn()
}

// --- Buffer operations. Caller must hold the mutex. ---

func (a *ScalableApp) AddContainerMetric(m metrics.ContainerMetric) {
	a.containerMetrics = append(a.containerMetrics, m)
	if len(a.containerMetrics) > a.MaxMetricListSize {
		a.containerMetrics = a.containerMetrics[len(a.containerMetrics)-a.MaxMetricListSize:]
	}
}

func (a *ScalableApp) AddHttpMetric(m metrics.HttpMetric) {
	a.httpMetrics = append(a.httpMetrics, m)
	if len(a.httpMetrics) > a.MaxMetricListSize {
		a.httpMetrics = a.httpMetrics[len(a.httpMetrics)-a.MaxMetricListSize:]
	}
}

func (a *ScalableApp) AddApplicationMetric(m metrics.ApplicationMetric) {
	a.applicationMetrics = append(a.applicationMetrics, m)
	if len(a.applicationMetrics) > a.MaxMetricListSize {
		a.applicationMetrics = a.applicationMetrics[len(a.applicationMetrics)-a.MaxMetricListSize:]
	}
}

func (a *ScalableApp) ResetContainerMetricsList() {
	a.containerMetrics = nil
}

func (a *ScalableApp) ResetHttpMetricList() {
	a.httpMetrics = nil
}

func (a *ScalableApp) GetCopyOfContainerMetricsList() []metrics.ContainerMetric {
	out := make([]metrics.ContainerMetric, len(a.containerMetrics))
	copy(out, a.containerMetrics)
	return out
}

func (a *ScalableApp) GetCopyOfHttpMetricsList() []metrics.HttpMetric {
	out := make([]metrics.HttpMetric, len(a.httpMetrics))
	copy(out, a.httpMetrics)
	return out
}

func (a *ScalableApp) GetCopyOfApplicationMetricsList() []metrics.ApplicationMetric {
	out := make([]metrics.ApplicationMetric, len(a.applicationMetrics))
	copy(out, a.applicationMetrics)
	return out
}

// --- Derived reads. Caller must hold the mutex. ---

// ValueOfCPU reduces the most recent per-instance CPU sample (within
// MaxMetricAge of now) through the CPU wrapper's threshold policy.
func (a *ScalableApp) ValueOfCPU(now time.Time) float64 {
	return a.CPU.Reduce(a.latestPerInstance(now, func(m metrics.ContainerMetric) (float64, bool) {
		if m.CPU < 0 {
			return 0, false
		}
		return m.CPU, true
	}))
}

// ValueOfRAM mirrors ValueOfCPU for the RAM dimension.
func (a *ScalableApp) ValueOfRAM(now time.Time) float64 {
	return a.RAM.Reduce(a.latestPerInstance(now, func(m metrics.ContainerMetric) (float64, bool) {
		if m.RAM < 0 {
			return 0, false
		}
		return m.RAM, true
	}))
}

// ValueOfRequest reduces the aggregated application-metric window's
// request counts through the Request wrapper's threshold policy.
func (a *ScalableApp) ValueOfRequest(now time.Time) float64 {
	var samples []float64
	for _, m := range a.applicationMetrics {
		if now.Sub(m.Timestamp) > a.MaxMetricAge {
			continue
		}
		samples = append(samples, float64(m.Requests))
	}
	return a.Request.Reduce(samples)
}

// ValueOfLatency mirrors ValueOfRequest for the Latency dimension,
// skipping entries where latency was not reported.
func (a *ScalableApp) ValueOfLatency(now time.Time) float64 {
	var samples []float64
	for _, m := range a.applicationMetrics {
		if now.Sub(m.Timestamp) > a.MaxMetricAge {
			continue
		}
		if m.Latency < 0 {
			continue
		}
		samples = append(samples, m.Latency)
	}
	return a.Latency.Reduce(samples)
}

// CurrentQuotient is the most recent request-window quotient, or 0 if
// there is no recent application metric.
func (a *ScalableApp) CurrentQuotient(now time.Time) float64 {
	for i := len(a.applicationMetrics) - 1; i >= 0; i-- {
		m := a.applicationMetrics[i]
		if now.Sub(m.Timestamp) > a.MaxMetricAge {
			continue
		}
		return m.Quotient
	}
	return 0
}

// latestPerInstance picks, for each InstanceIndex, the most recent
// container metric within MaxMetricAge of now, runs extract over it, and
// collects the samples for which extract reported ok.
func (a *ScalableApp) latestPerInstance(now time.Time, extract func(metrics.ContainerMetric) (float64, bool)) []float64 {
	latest := map[int]metrics.ContainerMetric{}
	for _, m := range a.containerMetrics {
		if now.Sub(m.Timestamp) > a.MaxMetricAge {
			continue
		}
		cur, ok := latest[m.InstanceIndex]
		if !ok || m.Timestamp.After(cur.Timestamp) {
			latest[m.InstanceIndex] = m
		}
	}
	samples := make([]float64, 0, len(latest))
	for _, m := range latest {
		if v, ok := extract(m); ok {
			samples = append(samples, v)
		}
	}
	return samples
}

// AdvanceInterval increments the scaling-interval counter and reports
// whether it has reached ScalingIntervalMultiplier. When it has, the
// counter is reset to 0 so the next tick starts a fresh interval (§4.6).
func (a *ScalableApp) AdvanceInterval() bool {
	a.CurrentIntervalState++
	if a.CurrentIntervalState < a.ScalingIntervalMultiplier {
		return false
	}
	a.CurrentIntervalState = 0
	return true
}

// InCooldown reports whether now is within CooldownTime of the last
// confirmed scale.
func (a *ScalableApp) InCooldown(now time.Time) bool {
	return now.Sub(a.LastScalingTime) < a.CooldownTime
}

// InLearningWindow reports whether now is still within the learning
// phase, whose length is LearningTimeMultiplier x scalerPeriod.
func (a *ScalableApp) InLearningWindow(now time.Time, scalerPeriod time.Duration) bool {
	window := time.Duration(a.LearningTimeMultiplier * float64(scalerPeriod))
	return now.Sub(a.LearningStartTime) < window
}
