// Package store persists ScalableApp configuration (its "blueprint") and
// reads it back at startup. See spec §6 Persistent store, §4.2 loadFromStore.
package store

import (
	"time"

	"autoscaler/internal/app"
)

// WrapperBlueprint is the serializable form of one app.Wrapper.
type WrapperBlueprint struct {
	UpperLimit             float64 `json:"upperLimit"`
	LowerLimit             float64 `json:"lowerLimit"`
	Policy                 string  `json:"thresholdPolicy"`
	Quotient               float64 `json:"quotient,omitempty"`
	QuotientScalingEnabled bool    `json:"quotientScalingEnabled,omitempty"`
}

// BindingBlueprint is the serializable form of app.Binding.
type BindingBlueprint struct {
	ID           string            `json:"id"`
	ResourceID   string            `json:"resourceId"`
	ScalerID     string            `json:"scalerId"`
	ServiceID    string            `json:"serviceId"`
	Context      map[string]string `json:"context"`
	CreationTime int64             `json:"creationTime"` // epoch millis
	ResourceName string            `json:"resourceName,omitempty"`
}

// Blueprint is the persisted configuration of a ScalableApp — everything
// needed to reconstruct it, per spec §3's "Blueprint" glossary entry.
type Blueprint struct {
	Binding BindingBlueprint `json:"binding"`

	CPU     WrapperBlueprint `json:"cpu"`
	RAM     WrapperBlueprint `json:"ram"`
	Request WrapperBlueprint `json:"request"`
	Latency WrapperBlueprint `json:"latency"`

	MinInstances              int     `json:"minInstances"`
	MaxInstances              int     `json:"maxInstances"`
	MinQuotient               float64 `json:"minQuotient"`
	CooldownSeconds           float64 `json:"cooldownTime"`
	LearningTimeMultiplier    float64 `json:"learningTimeMultiplier"`
	ScalingIntervalMultiplier int     `json:"scalingIntervalMultiplier"`
	MaxMetricListSize         int     `json:"maxMetricListSize"`
	MaxMetricAgeSeconds       float64 `json:"maxMetricAge"`

	CurrentIntervalState int   `json:"currentIntervalState"`
	LastScalingTimeMillis int64 `json:"lastScalingTime"`
	LearningStartMillis   int64 `json:"learningStartTime"`
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms)
}

func toMillis(t time.Time) int64 {
	return t.UnixMilli()
}

// ToBinding converts the persisted form into an app.Binding.
func (b BindingBlueprint) ToBinding() app.Binding {
	return app.Binding{
		ID:           b.ID,
		ResourceID:   b.ResourceID,
		ScalerID:     b.ScalerID,
		ServiceID:    b.ServiceID,
		Context:      b.Context,
		CreationTime: fromMillis(b.CreationTime),
		ResourceName: b.ResourceName,
	}
}

// FromBinding converts an app.Binding into its persisted form.
func FromBinding(b app.Binding) BindingBlueprint {
	return BindingBlueprint{
		ID:           b.ID,
		ResourceID:   b.ResourceID,
		ScalerID:     b.ScalerID,
		ServiceID:    b.ServiceID,
		Context:      b.Context,
		CreationTime: toMillis(b.CreationTime),
		ResourceName: b.ResourceName,
	}
}

func (w WrapperBlueprint) toWrapper(dim app.Dimension) app.Wrapper {
	return app.Wrapper{
		Dimension:              dim,
		UpperLimit:             w.UpperLimit,
		LowerLimit:             w.LowerLimit,
		Policy:                 app.ThresholdPolicy(w.Policy),
		Quotient:               w.Quotient,
		QuotientScalingEnabled: w.QuotientScalingEnabled,
	}
}

func fromWrapper(w app.Wrapper) WrapperBlueprint {
	return WrapperBlueprint{
		UpperLimit:             w.UpperLimit,
		LowerLimit:             w.LowerLimit,
		Policy:                 string(w.Policy),
		Quotient:               w.Quotient,
		QuotientScalingEnabled: w.QuotientScalingEnabled,
	}
}

// ToConfig converts a Blueprint into an app.Config, ready for app.New.
// Callers must validate the Blueprint first (internal/validate) — ToConfig
// performs no validation of its own.
func (bp Blueprint) ToConfig() app.Config {
	return app.Config{
		Binding:                   bp.Binding.ToBinding(),
		CPU:                       bp.CPU.toWrapper(app.DimensionCPU),
		RAM:                       bp.RAM.toWrapper(app.DimensionRAM),
		Request:                   bp.Request.toWrapper(app.DimensionRequest),
		Latency:                   bp.Latency.toWrapper(app.DimensionLatency),
		MinInstances:              bp.MinInstances,
		MaxInstances:              bp.MaxInstances,
		MinQuotient:               bp.MinQuotient,
		CooldownTime:              time.Duration(bp.CooldownSeconds * float64(time.Second)),
		LearningTimeMultiplier:    bp.LearningTimeMultiplier,
		ScalingIntervalMultiplier: bp.ScalingIntervalMultiplier,
		MaxMetricListSize:         bp.MaxMetricListSize,
		MaxMetricAge:              time.Duration(bp.MaxMetricAgeSeconds * float64(time.Second)),
		CurrentIntervalState:      bp.CurrentIntervalState,
		LastScalingTime:           fromMillis(bp.LastScalingTimeMillis),
		LearningStartTime:         fromMillis(bp.LearningStartMillis),
	}
}

// FromApp captures a ScalableApp's current configuration as a Blueprint
// for persistence. Caller must hold the app's mutex.
func FromApp(a *app.ScalableApp) Blueprint {
	return Blueprint{
		Binding:                   FromBinding(a.Binding),
		CPU:                       fromWrapper(a.CPU),
		RAM:                       fromWrapper(a.RAM),
		Request:                   fromWrapper(a.Request),
		Latency:                   fromWrapper(a.Latency),
		MinInstances:              a.MinInstances,
		MaxInstances:              a.MaxInstances,
		MinQuotient:               a.MinQuotient,
		CooldownSeconds:           a.CooldownTime.Seconds(),
		LearningTimeMultiplier:    a.LearningTimeMultiplier,
		ScalingIntervalMultiplier: a.ScalingIntervalMultiplier,
		MaxMetricListSize:         a.MaxMetricListSize,
		MaxMetricAgeSeconds:       a.MaxMetricAge.Seconds(),
		CurrentIntervalState:      a.CurrentIntervalState,
		LastScalingTimeMillis:     toMillis(a.LastScalingTime),
		LearningStartMillis:       toMillis(a.LearningStartTime),
	}
}
