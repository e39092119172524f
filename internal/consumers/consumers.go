// Package consumers wires the raw metric topics onto the registry: each
// incoming ContainerMetric or HttpMetric is resolved to its ScalableApp by
// resourceId and appended to that app's buffer under its own mutex, per
// spec §4.3.
package consumers

import (
	"context"
	"log"

	"autoscaler/internal/bus"
	"autoscaler/internal/metrics"
	"autoscaler/internal/registry"
)

// Consumers holds the dependencies the two subscription loops need.
type Consumers struct {
	bus *bus.Bus
	reg *registry.Manager
}

// New builds a Consumers bound to b and reg.
func New(b *bus.Bus, reg *registry.Manager) *Consumers {
	return &Consumers{bus: b, reg: reg}
}

// Run starts both subscription loops and blocks until ctx is canceled or
// one of them returns a non-context error.
func (c *Consumers) Run(ctx context.Context) error {
	errCh := make(chan error, 2)
	go func() { errCh <- c.bus.SubscribeContainerMetrics(ctx, c.handleContainerMetric) }()
	go func() { errCh <- c.bus.SubscribeHttpMetrics(ctx, c.handleHttpMetric) }()

	err := <-errCh
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

func (c *Consumers) handleContainerMetric(m metrics.ContainerMetric) {
	a := c.reg.GetByResourceID(m.AppID)
	if a == nil {
		return
	}
	ctx := context.Background()
	if err := a.WithLock(ctx, func() error {
		a.AddContainerMetric(m)
		return nil
	}); err != nil {
		log.Printf("[consumers] dropping container metric for %s: %v", m.AppID, err)
	}
}

func (c *Consumers) handleHttpMetric(m metrics.HttpMetric) {
	a := c.reg.GetByResourceID(m.AppID)
	if a == nil {
		return
	}
	ctx := context.Background()
	if err := a.WithLock(ctx, func() error {
		a.AddHttpMetric(m)
		return nil
	}); err != nil {
		log.Printf("[consumers] dropping http metric for %s: %v", m.AppID, err)
	}
}
