package app

import "fmt"

// Dimension tags which scalable quantity a ComponentWrapper governs.
type Dimension string

const (
	DimensionCPU     Dimension = "CPU"
	DimensionRAM     Dimension = "RAM"
	DimensionRequest Dimension = "REQUEST"
	DimensionLatency Dimension = "LATENCY"
)

// ThresholdPolicy is the reduction applied to per-instance samples before
// they are compared against a wrapper's limits.
type ThresholdPolicy string

const (
	PolicyMax  ThresholdPolicy = "MAX"
	PolicyMin  ThresholdPolicy = "MIN"
	PolicyMean ThresholdPolicy = "MEAN"
)

// ValidPolicy reports whether p is one of the three recognized policies.
func ValidPolicy(p ThresholdPolicy) bool {
	switch p {
	case PolicyMax, PolicyMin, PolicyMean:
		return true
	default:
		return false
	}
}

// Wrapper is one scalable dimension's configuration plus derived-value
// logic. The four dimensions share this capability set rather than a class
// hierarchy per spec.md's design notes (§9).
type Wrapper struct {
	Dimension  Dimension
	UpperLimit float64
	LowerLimit float64
	Policy     ThresholdPolicy

	// Request-only fields; zero/false for the other three dimensions.
	Quotient               float64
	QuotientScalingEnabled bool
}

// Reduce applies the wrapper's ThresholdPolicy to samples, collapsing
// per-instance values into the scalar compared against UpperLimit/LowerLimit.
// An empty sample set reduces to 0. The ValueOf* readers pass an empty set
// when no sample is recent enough, and that 0 is then compared against the
// limits like any other value.
func (w Wrapper) Reduce(samples []float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	switch w.Policy {
	case PolicyMax:
		max := samples[0]
		for _, s := range samples[1:] {
			if s > max {
				max = s
			}
		}
		return max
	case PolicyMin:
		min := samples[0]
		for _, s := range samples[1:] {
			if s < min {
				min = s
			}
		}
		return min
	case PolicyMean:
		sum := 0.0
		for _, s := range samples {
			sum += s
		}
		return sum / float64(len(samples))
	default:
		return 0
	}
}

// WithinUpper reports whether v is at or below UpperLimit.
func (w Wrapper) WithinUpper(v float64) bool {
	return v <= w.UpperLimit
}

// WithinLower reports whether v is at or above LowerLimit.
func (w Wrapper) WithinLower(v float64) bool {
	return v >= w.LowerLimit
}

// Describe renders a short human-readable summary of the wrapper's
// configuration, used in ScalingLog descriptions.
func (w Wrapper) Describe() string {
	return fmt.Sprintf("%s[policy=%s upper=%.2f lower=%.2f]", w.Dimension, w.Policy, w.UpperLimit, w.LowerLimit)
}
