// Package scaler implements the periodic scaler loop described in spec
// §4.6: for each app whose scaling interval has elapsed, compute a
// ScalingAction, and if it calls for a change, commit it to the external
// engine before updating the app's own bookkeeping.
package scaler

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"autoscaler/internal/app"
	"autoscaler/internal/bus"
	"autoscaler/internal/engine"
	"autoscaler/internal/metrics"
	"autoscaler/internal/registry"
	"autoscaler/internal/scaling"
)

// Scaler drives the per-app scaling decision on a fixed tick.
type Scaler struct {
	reg               *registry.Manager
	bus               bus.Publisher
	eng               *engine.Client
	period            time.Duration
	staticScalingSize int
}

// New builds a Scaler. period is P_scale, the tick at which every app's
// interval counter advances; staticScalingSize is the fixed step applied
// on each upscale/downscale.
func New(reg *registry.Manager, publisher bus.Publisher, eng *engine.Client, period time.Duration, staticScalingSize int) *Scaler {
	return &Scaler{reg: reg, bus: publisher, eng: eng, period: period, staticScalingSize: staticScalingSize}
}

// Run blocks, ticking every s.period, until ctx is canceled.
func (s *Scaler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.tick(ctx, now)
		}
	}
}

func (s *Scaler) tick(ctx context.Context, now time.Time) {
	for _, sa := range s.reg.GetFlatCopyOfApps() {
		sa := sa
		if err := sa.Acquire(ctx); err != nil {
			return
		}
		if s.evaluateLocked(ctx, sa, now) {
			sa.Release()
		}
	}
}

// evaluateLocked runs one app's scaling decision. Caller must hold sa's
// mutex on entry. It reports whether the mutex is still held on return,
// since the commit phase below releases and re-acquires it and a failed
// re-acquire leaves it unheld.
//
// The interval gate and the ScalingChecker call happen while the app's
// own mutex is held — the two-phase intent/commit split is in what
// happens next: the outbound call to the engine happens WITHOUT the
// mutex held (so a slow or stuck engine never blocks metric ingestion for
// this app), and only the bookkeeping that follows a confirmed scale
// (LastScalingTime, CurrentInstanceCount, persistence, the ScalingLog
// publish) re-acquires it. If the app is removed between the intent and
// the commit, re-acquiring its own semaphore still succeeds, so the commit
// first checks that the app is still registered and drops the bookkeeping
// if not — the commit is lost, not corrupted; a loss spec §4.6 accepts as
// the price of not holding the lock across a network call.
func (s *Scaler) evaluateLocked(ctx context.Context, sa *app.ScalableApp, now time.Time) bool {
	if !sa.AdvanceInterval() {
		return true
	}

	action := scaling.ChooseScalingAction(sa, now, s.period, s.staticScalingSize)
	if !action.NeedsScaling {
		return true
	}

	cpu, ram := sa.ValueOfCPU(now), sa.ValueOfRAM(now)
	requests, latency, quotient := sa.ValueOfRequest(now), sa.ValueOfLatency(now), sa.CurrentQuotient(now)
	resourceID := sa.Binding.ResourceID
	appID := sa.Binding.ID

	sa.Release()
	err := s.eng.RequestScale(ctx, resourceID, action.NewInstances)
	if acquireErr := sa.Acquire(ctx); acquireErr != nil {
		log.Printf("[scaler] lost app %s while committing scale: %v", appID, acquireErr)
		return false
	}
	if err != nil {
		log.Printf("[scaler] scale request for %s failed: %v", appID, err)
		return true
	}
	if s.reg.Get(appID) != sa {
		log.Printf("[scaler] app %s was removed while its scale request was in flight; not committing", appID)
		return true
	}

	sa.CurrentInstanceCount = action.NewInstances
	sa.LastScalingTime = now

	if err := s.reg.UpdateInStore(sa); err != nil {
		log.Printf("[scaler] failed to persist scale for %s: %v", appID, err)
	}

	logEntry := metrics.ScalingLog{
		ID:            uuid.New().String(),
		ScalingAction: action,
		DecisionTime:  now,
		CPU:           cpu,
		RAM:           ram,
		Requests:      int64(requests),
		Latency:       latency,
		Quotient:      quotient,
	}
	if err := s.reg.LogScalingAction(appID, string(action.Reason), action.OldInstances, action.NewInstances, now, logEntry); err != nil {
		log.Printf("[scaler] failed to record scaling history for %s: %v", appID, err)
	}
	s.bus.PublishScalingLog(logEntry)
	return true
}
