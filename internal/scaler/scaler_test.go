package scaler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autoscaler/internal/app"
	"autoscaler/internal/engine"
	"autoscaler/internal/metrics"
	"autoscaler/internal/registry"
	"autoscaler/internal/store"
)

type noopStore struct{}

func (noopStore) FindAll() ([]store.Blueprint, error) { return nil, nil }
func (noopStore) Save(store.Blueprint) error          { return nil }
func (noopStore) Delete(string) error                 { return nil }

type recordingBus struct {
	logs []metrics.ScalingLog
}

func (r *recordingBus) PublishApplicationMetric(metrics.ApplicationMetric) {}
func (r *recordingBus) PublishScalingLog(l metrics.ScalingLog)             { r.logs = append(r.logs, l) }
func (r *recordingBus) PublishBindingEvent(metrics.BindingEvent)           {}

func testEngine(t *testing.T, handler http.HandlerFunc) *engine.Client {
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return engine.New(engine.Config{
		Host:            srv.URL[len("http://"):],
		ScalingEndpoint: "scale",
		NameEndpoint:    "name",
		Secret:          "s3cr3t",
		Timeout:         time.Second,
		RateLimitPerSec: 1000,
		Burst:           10,
	})
}

func overThresholdApp() *app.ScalableApp {
	a := app.New(app.Config{
		Binding:                   app.Binding{ID: "b1", ResourceID: "r1"},
		CPU:                       app.Wrapper{Dimension: app.DimensionCPU, UpperLimit: 70, LowerLimit: 20, Policy: app.PolicyMax},
		RAM:                       app.Wrapper{Dimension: app.DimensionRAM, UpperLimit: 1000, LowerLimit: 100, Policy: app.PolicyMax},
		Request:                   app.Wrapper{Dimension: app.DimensionRequest, UpperLimit: 1000, LowerLimit: 0, Policy: app.PolicyMean},
		Latency:                   app.Wrapper{Dimension: app.DimensionLatency, UpperLimit: 1000, LowerLimit: 0, Policy: app.PolicyMax},
		MinInstances:              1,
		MaxInstances:              10,
		CooldownTime:              app.CooldownMin,
		LearningTimeMultiplier:    app.LearningMultiplierMin,
		ScalingIntervalMultiplier: 1,
		MaxMetricListSize:         10,
		MaxMetricAge:              time.Minute,
		LastScalingTime:           time.Now().Add(-time.Hour),
		LearningStartTime:         time.Now().Add(-time.Hour),
	})
	a.CurrentInstanceCount = 2
	return a
}

func TestScalerTickCommitsScaleOnSuccess(t *testing.T) {
	var gotPath string
	eng := testEngine(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusOK)
	})

	bus := &recordingBus{}
	reg := registry.New(noopStore{}, bus)
	a := overThresholdApp()
	reg.Add(a, true)

	now := time.Now()
	require.NoError(t, a.WithLock(context.Background(), func() error {
		a.AddContainerMetric(metrics.ContainerMetric{Timestamp: now, AppID: "r1", InstanceIndex: 0, CPU: 90, RAM: 1})
		return nil
	}))

	s := New(reg, bus, eng, 30*time.Second, 1)
	s.tick(context.Background(), now)

	assert.Equal(t, "/scale/r1", gotPath)
	require.Len(t, bus.logs, 1)
	assert.Equal(t, 3, a.CurrentInstanceCount)
	assert.Equal(t, now, a.LastScalingTime)
}

func TestScalerTickLeavesStateUnchangedOnEngineFailure(t *testing.T) {
	eng := testEngine(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	bus := &recordingBus{}
	reg := registry.New(noopStore{}, bus)
	a := overThresholdApp()
	reg.Add(a, true)
	originalLastScaling := a.LastScalingTime

	now := time.Now()
	require.NoError(t, a.WithLock(context.Background(), func() error {
		a.AddContainerMetric(metrics.ContainerMetric{Timestamp: now, AppID: "r1", InstanceIndex: 0, CPU: 90, RAM: 1})
		return nil
	}))

	s := New(reg, bus, eng, 30*time.Second, 1)
	s.tick(context.Background(), now)

	assert.Empty(t, bus.logs)
	assert.Equal(t, 2, a.CurrentInstanceCount)
	assert.Equal(t, originalLastScaling, a.LastScalingTime)
}
