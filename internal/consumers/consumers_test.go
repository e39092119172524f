package consumers

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autoscaler/internal/app"
	"autoscaler/internal/metrics"
	"autoscaler/internal/registry"
	"autoscaler/internal/store"
)

type noopStore struct{}

func (noopStore) FindAll() ([]store.Blueprint, error) { return nil, nil }
func (noopStore) Save(store.Blueprint) error          { return nil }
func (noopStore) Delete(string) error                 { return nil }

type noopBus struct{}

func (noopBus) PublishApplicationMetric(metrics.ApplicationMetric) {}
func (noopBus) PublishScalingLog(metrics.ScalingLog)               {}
func (noopBus) PublishBindingEvent(metrics.BindingEvent)           {}

func TestHandleContainerMetricAppendsToMatchingApp(t *testing.T) {
	reg := registry.New(noopStore{}, noopBus{})
	a := app.New(app.Config{
		Binding:           app.Binding{ID: "b1", ResourceID: "r1"},
		MaxMetricListSize: 5,
		MaxMetricAge:      time.Minute,
	})
	reg.Add(a, true)

	c := &Consumers{bus: nil, reg: reg}
	c.handleContainerMetric(metrics.ContainerMetric{AppID: "r1", InstanceIndex: 0, CPU: 55, Timestamp: time.Now()})

	require.NoError(t, a.WithLock(context.Background(), func() error {
		got := a.GetCopyOfContainerMetricsList()
		require.Len(t, got, 1)
		assert.Equal(t, 55.0, got[0].CPU)
		return nil
	}))
}

func TestHandleContainerMetricIgnoresUnknownResource(t *testing.T) {
	reg := registry.New(noopStore{}, noopBus{})
	c := &Consumers{bus: nil, reg: reg}
	c.handleContainerMetric(metrics.ContainerMetric{AppID: "unknown", Timestamp: time.Now()})
}
