package aggregator

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

type recordingBus struct {
	published []metrics.ApplicationMetric
}

func (r *recordingBus) PublishApplicationMetric(m metrics.ApplicationMetric) {
	r.published = append(r.published, m)
}
func (r *recordingBus) PublishScalingLog(metrics.ScalingLog)    {}
func (r *recordingBus) PublishBindingEvent(metrics.BindingEvent) {}

func TestAggregatorTickPublishesApplicationMetric(t *testing.T) {
	bus := &recordingBus{}
	reg := registry.New(noopStore{}, bus)

	a := app.New(app.Config{
		Binding:           app.Binding{ID: "b1", ResourceID: "r1"},
		Request:           app.Wrapper{Dimension: app.DimensionRequest, UpperLimit: 1000, LowerLimit: 0, Policy: app.PolicyMean},
		Latency:           app.Wrapper{Dimension: app.DimensionLatency, UpperLimit: 1000, LowerLimit: 0, Policy: app.PolicyMax},
		MaxMetricListSize: 10,
		MaxMetricAge:      time.Minute,
	})
	reg.Add(a, true)

	now := time.Now()
	require.NoError(t, a.WithLock(context.Background(), func() error {
		a.AddContainerMetric(metrics.ContainerMetric{Timestamp: now, AppID: "r1", InstanceIndex: 0, CPU: 40, RAM: 1000})
		a.AddContainerMetric(metrics.ContainerMetric{Timestamp: now, AppID: "r1", InstanceIndex: 1, CPU: 60, RAM: 2000})
		a.AddHttpMetric(metrics.HttpMetric{Timestamp: now, AppID: "r1", Requests: 10, Latency: 100})
		a.AddHttpMetric(metrics.HttpMetric{Timestamp: now, AppID: "r1", Requests: 20, Latency: 200})
		a.CurrentInstanceCount = 2
		return nil
	}))

	agg := New(reg, bus, time.Second)
	agg.tick(context.Background(), now)

	require.Len(t, bus.published, 1)
	am := bus.published[0]
	assert.Equal(t, 50.0, am.CPU)
	assert.Equal(t, 1500.0, am.RAM)
	assert.Equal(t, int64(30), am.Requests)
	assert.Equal(t, 150.0, am.Latency)
	assert.Equal(t, 15.0, am.Quotient)

	require.NoError(t, a.WithLock(context.Background(), func() error {
		assert.Empty(t, a.GetCopyOfHttpMetricsList())
		assert.Empty(t, a.GetCopyOfContainerMetricsList())
		return nil
	}))
}

func TestAggregatorTickSkipsAppsWithNoContainerSamples(t *testing.T) {
	bus := &recordingBus{}
	reg := registry.New(noopStore{}, bus)
	a := app.New(app.Config{
		Binding:           app.Binding{ID: "b1", ResourceID: "r1"},
		MaxMetricListSize: 10,
		MaxMetricAge:      time.Minute,
	})
	reg.Add(a, true)

	now := time.Now()
	require.NoError(t, a.WithLock(context.Background(), func() error {
		a.AddHttpMetric(metrics.HttpMetric{Timestamp: now, AppID: "r1", Requests: 10, Latency: 100})
		return nil
	}))

	agg := New(reg, bus, time.Second)
	agg.tick(context.Background(), now)

	assert.Empty(t, bus.published)
	require.NoError(t, a.WithLock(context.Background(), func() error {
		assert.Empty(t, a.GetCopyOfHttpMetricsList())
		assert.Empty(t, a.GetCopyOfContainerMetricsList())
		return nil
	}))
}

func TestAggregatorTickSkipsWhenCpuOrRamSamplesAllMissing(t *testing.T) {
	bus := &recordingBus{}
	reg := registry.New(noopStore{}, bus)
	a := app.New(app.Config{
		Binding:           app.Binding{ID: "b1", ResourceID: "r1"},
		MaxMetricListSize: 10,
		MaxMetricAge:      time.Minute,
	})
	reg.Add(a, true)

	now := time.Now()
	require.NoError(t, a.WithLock(context.Background(), func() error {
		// CPU present, RAM reported missing on every sample.
		a.AddContainerMetric(metrics.ContainerMetric{Timestamp: now, AppID: "r1", InstanceIndex: 0, CPU: 40, RAM: float64(metrics.Missing)})
		a.AddHttpMetric(metrics.HttpMetric{Timestamp: now, AppID: "r1", Requests: 10, Latency: 100})
		return nil
	}))

	agg := New(reg, bus, time.Second)
	agg.tick(context.Background(), now)

	assert.Empty(t, bus.published)
}
