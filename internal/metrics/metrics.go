// Package metrics holds the immutable record types that flow through the
// controller: raw samples from the bus, and the derived records the
// controller publishes back onto it.
package metrics

import "time"

// Missing marks a CPU, RAM, or latency sample that a container or request
// did not report for this tick.
const Missing = -1

// ContainerMetric is one per-instance CPU/RAM sample, as published by the
// platform on the container-metrics topic.
type ContainerMetric struct {
	Timestamp     time.Time
	AppID         string
	InstanceIndex int
	CPU           float64 // percent, 0-100, or Missing
	RAM           float64 // bytes, or Missing
	Description   string
}

// HttpMetric is one per-tick HTTP sample for an application, as published
// on the HTTP-metrics topic.
type HttpMetric struct {
	Timestamp   time.Time
	AppID       string
	Requests    int64 // >= 0
	Latency     float64 // millis, or Missing
	Description string
}

// ApplicationMetric is the aggregator's derived, app-level rollup of a
// window of ContainerMetric/HttpMetric samples.
type ApplicationMetric struct {
	Timestamp     time.Time
	AppID         string
	CPU           float64
	RAM           float64
	Requests      int64
	Latency       float64
	Quotient      float64
	InstanceCount int
	Description   string
}

// Reason names the dimension (or absence of one) that drove a ScalingAction.
type Reason string

const (
	ReasonCPU      Reason = "CPU"
	ReasonRAM      Reason = "RAM"
	ReasonHTTP     Reason = "HTTP"
	ReasonLatency  Reason = "LATENCY"
	ReasonQuotient Reason = "QUOTIENT"
	ReasonNone     Reason = "NONE"
)

// ScalingAction is the ScalingChecker's verdict for one ScalableApp.
type ScalingAction struct {
	AppID        string
	OldInstances int
	NewInstances int
	Reason       Reason
	NeedsScaling bool
	Description  string
}

// ScalingLog is a ScalingAction plus the decision time and the component
// values that drove it, published to the bus after a confirmed scale.
type ScalingLog struct {
	ID           string
	ScalingAction
	DecisionTime time.Time
	CPU          float64
	RAM          float64
	Requests     int64
	Latency      float64
	Quotient     float64
}

// BindingEventAction names the lifecycle transition carried by a
// BindingEvent.
type BindingEventAction string

const (
	BindingCreating BindingEventAction = "CREATING"
	BindingLoading  BindingEventAction = "LOADING"
	BindingDeleting BindingEventAction = "DELETING"
)

// BindingEvent is published whenever the registry creates, loads, or
// removes a binding.
type BindingEvent struct {
	ID        string
	Timestamp time.Time
	BindingID string
	Action    BindingEventAction
}
