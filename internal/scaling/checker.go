// Package scaling implements the ScalingChecker: a pure function that
// turns one ScalableApp's current state into a ScalingAction. See spec
// §4.5. It must be invoked with the app's mutex already held.
package scaling

import (
	"fmt"
	"time"

	"autoscaler/internal/app"
	"autoscaler/internal/metrics"
)

// dimension bundles one ComponentWrapper with the reduced value the
// checker computed for it, in the CPU > RAM > HTTP > LATENCY priority
// order spec §4.5 specifies for composing per-component verdicts.
type dimension struct {
	reason   metrics.Reason
	wrapper  app.Wrapper
	value    float64
	upscale  bool
	downscale bool
}

func evaluate(w app.Wrapper, v float64, reason metrics.Reason) dimension {
	d := dimension{reason: reason, wrapper: w, value: v}
	if !w.WithinUpper(v) {
		d.upscale = true
	} else if !w.WithinLower(v) {
		d.downscale = true
	}
	return d
}

// Clamp restricts target to [minInstances, maxInstances].
func Clamp(target, minInstances, maxInstances int) int {
	if target < minInstances {
		return minInstances
	}
	if target > maxInstances {
		return maxInstances
	}
	return target
}

// ChooseScalingAction evaluates a as of now and returns its ScalingAction.
// scalerPeriod is the scaler loop's tick period P_scale, used to size the
// learning window; staticScalingSize is the fixed step added/subtracted
// on upscale/downscale.
func ChooseScalingAction(a *app.ScalableApp, now time.Time, scalerPeriod time.Duration, staticScalingSize int) metrics.ScalingAction {
	old := a.CurrentInstanceCount

	none := metrics.ScalingAction{
		AppID:        a.Binding.ID,
		OldInstances: old,
		NewInstances: old,
		Reason:       metrics.ReasonNone,
		NeedsScaling: false,
	}

	if a.InCooldown(now) {
		none.Description = "within cooldown"
		return none
	}
	if a.InLearningWindow(now, scalerPeriod) {
		none.Description = "within learning window"
		return none
	}

	cpu := evaluate(a.CPU, a.ValueOfCPU(now), metrics.ReasonCPU)
	ram := evaluate(a.RAM, a.ValueOfRAM(now), metrics.ReasonRAM)
	req := evaluate(a.Request, a.ValueOfRequest(now), metrics.ReasonHTTP)
	lat := evaluate(a.Latency, a.ValueOfLatency(now), metrics.ReasonLatency)
	dims := []dimension{cpu, ram, req, lat}

	quotient := a.CurrentQuotient(now)
	quotientGated := a.Request.QuotientScalingEnabled && quotient < a.MinQuotient

	var reason metrics.Reason
	var newInstances int

	switch {
	case quotientGated:
		reason = metrics.ReasonQuotient
		newInstances = old - staticScalingSize

	default:
		var upscaleDim *dimension
		downscaleAll := true
		for i := range dims {
			d := dims[i]
			if d.upscale && upscaleDim == nil {
				upscaleDim = &dims[i]
			}
			if !d.downscale {
				downscaleAll = false
			}
		}

		switch {
		case upscaleDim != nil:
			reason = upscaleDim.reason
			newInstances = old + staticScalingSize
		case downscaleAll:
			reason = dims[0].reason
			newInstances = old - staticScalingSize
		default:
			none.Description = "within thresholds"
			return none
		}
	}

	clamped := Clamp(newInstances, a.MinInstances, a.MaxInstances)
	if clamped == old {
		none.Description = fmt.Sprintf("clamp to [%d,%d] produced no change", a.MinInstances, a.MaxInstances)
		return none
	}

	verb := "upscale"
	if clamped < old {
		verb = "downscale"
	}
	return metrics.ScalingAction{
		AppID:        a.Binding.ID,
		OldInstances: old,
		NewInstances: clamped,
		Reason:       reason,
		NeedsScaling: true,
		Description:  fmt.Sprintf("%s triggered by %s", verb, reason),
	}
}
