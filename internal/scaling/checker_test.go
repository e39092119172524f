package scaling

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"autoscaler/internal/app"
	"autoscaler/internal/metrics"
)

func neutralApp() *app.ScalableApp {
	return app.New(app.Config{
		Binding:                   app.Binding{ID: "b1", ResourceID: "r1"},
		CPU:                       app.Wrapper{Dimension: app.DimensionCPU, UpperLimit: 70, LowerLimit: 20, Policy: app.PolicyMax},
		RAM:                       app.Wrapper{Dimension: app.DimensionRAM, UpperLimit: 1000, LowerLimit: 100, Policy: app.PolicyMax},
		Request:                   app.Wrapper{Dimension: app.DimensionRequest, UpperLimit: 1000, LowerLimit: 0, Policy: app.PolicyMean},
		Latency:                   app.Wrapper{Dimension: app.DimensionLatency, UpperLimit: 1000, LowerLimit: 0, Policy: app.PolicyMax},
		MinInstances:              1,
		MaxInstances:              10,
		CooldownTime:              app.CooldownMin,
		LearningTimeMultiplier:    app.LearningMultiplierMin,
		ScalingIntervalMultiplier: app.ScalingIntervalMultiplierMin,
		MaxMetricListSize:         10,
		MaxMetricAge:              time.Minute,
		LastScalingTime:           time.Now().Add(-time.Hour),
		LearningStartTime:         time.Now().Add(-time.Hour),
	})
}

func TestChooseScalingActionCPUUpscale(t *testing.T) {
	a := neutralApp()
	now := time.Now()
	a.CurrentInstanceCount = 2
	a.AddContainerMetric(metrics.ContainerMetric{Timestamp: now, AppID: "r1", InstanceIndex: 0, CPU: 90, RAM: 1})

	action := ChooseScalingAction(a, now, 30*time.Second, 1)
	assert.True(t, action.NeedsScaling)
	assert.Equal(t, metrics.ReasonCPU, action.Reason)
	assert.Equal(t, 3, action.NewInstances)
}

func TestChooseScalingActionWithinThresholds(t *testing.T) {
	a := neutralApp()
	now := time.Now()
	a.CurrentInstanceCount = 2
	a.AddContainerMetric(metrics.ContainerMetric{Timestamp: now, AppID: "r1", InstanceIndex: 0, CPU: 40, RAM: 500})

	action := ChooseScalingAction(a, now, 30*time.Second, 1)
	assert.False(t, action.NeedsScaling)
	assert.Equal(t, metrics.ReasonNone, action.Reason)
}

func TestChooseScalingActionRespectsCooldown(t *testing.T) {
	a := neutralApp()
	now := time.Now()
	a.LastScalingTime = now.Add(-time.Second)
	a.CurrentInstanceCount = 2
	a.AddContainerMetric(metrics.ContainerMetric{Timestamp: now, AppID: "r1", InstanceIndex: 0, CPU: 90, RAM: 1})

	action := ChooseScalingAction(a, now, 30*time.Second, 1)
	assert.False(t, action.NeedsScaling)
}

func TestChooseScalingActionClampDegradesToNone(t *testing.T) {
	a := neutralApp()
	now := time.Now()
	a.CurrentInstanceCount = 10
	a.MaxInstances = 10
	a.AddContainerMetric(metrics.ContainerMetric{Timestamp: now, AppID: "r1", InstanceIndex: 0, CPU: 90, RAM: 1})

	action := ChooseScalingAction(a, now, 30*time.Second, 1)
	assert.False(t, action.NeedsScaling)
	assert.Equal(t, 10, action.NewInstances)
}

func TestChooseScalingActionQuotientGateForcesDownscale(t *testing.T) {
	a := neutralApp()
	a.Request.QuotientScalingEnabled = true
	a.MinQuotient = 5
	now := time.Now()
	a.CurrentInstanceCount = 3
	a.AddApplicationMetric(metrics.ApplicationMetric{Timestamp: now, AppID: "r1", Quotient: 1, Requests: 3})

	action := ChooseScalingAction(a, now, 30*time.Second, 1)
	assert.True(t, action.NeedsScaling)
	assert.Equal(t, metrics.ReasonQuotient, action.Reason)
	assert.Equal(t, 2, action.NewInstances)
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 1, Clamp(-5, 1, 10))
	assert.Equal(t, 10, Clamp(50, 1, 10))
	assert.Equal(t, 5, Clamp(5, 1, 10))
}
