package validate

import (
	"math"
	"regexp"

	"autoscaler/internal/app"
	"autoscaler/internal/store"
)

// resourceIDPattern allows word characters plus '-', per §4.7: "resourceId
// matches \w* except '-' allowed".
var resourceIDPattern = regexp.MustCompile(`^[\w-]*$`)

const int32Max = math.MaxInt32

// Binding validates a Binding in isolation — the rules applied directly
// to an incoming bind request, before any ScalableApp exists for it.
func Binding(b app.Binding) error {
	if !resourceIDPattern.MatchString(b.ResourceID) {
		return newErr(KindSpecialCharacter, "resourceId %q contains disallowed characters", b.ResourceID)
	}
	if b.CreationTime.UnixMilli() < 0 {
		return newErr(KindTime, "creationTime must be >= 0")
	}
	return nil
}

// wrapper validates one ComponentWrapper's limits and policy.
func wrapper(dim app.Dimension, w store.WrapperBlueprint, upperCeiling float64) error {
	if !app.ValidPolicy(app.ThresholdPolicy(w.Policy)) {
		return newErr(KindPolicy, "%s: threshold policy %q is not one of MAX, MIN, MEAN", dim, w.Policy)
	}
	if w.LowerLimit < 0 {
		return newErr(KindLimit, "%s: lowerLimit must be >= 0", dim)
	}
	if w.UpperLimit <= w.LowerLimit {
		return newErr(KindLimit, "%s: upperLimit must be > lowerLimit", dim)
	}
	if upperCeiling > 0 && w.UpperLimit > upperCeiling {
		return newErr(KindLimit, "%s: upperLimit exceeds ceiling %v", dim, upperCeiling)
	}
	return nil
}

// Blueprint validates every rule enumerated in spec §3/§4.7 against a
// persisted or incoming blueprint. Per spec §9's open question, this
// implements the INTENDED semantics ("reject if malformed"), not the
// inverted expression the original source used.
func Blueprint(bp store.Blueprint) error {
	binding := bp.Binding.ToBinding()
	if err := Binding(binding); err != nil {
		return err
	}

	if err := wrapper(app.DimensionCPU, bp.CPU, 100); err != nil {
		return err
	}
	if err := wrapper(app.DimensionRAM, bp.RAM, int32Max); err != nil {
		return err
	}
	if err := wrapper(app.DimensionRequest, bp.Request, 0); err != nil {
		return err
	}
	if err := wrapper(app.DimensionLatency, bp.Latency, 0); err != nil {
		return err
	}
	if bp.Request.Quotient < 0 {
		return newErr(KindLimit, "request: quotient must be >= 0")
	}

	if bp.MinInstances < 0 {
		return newErr(KindLimit, "minInstances must be >= 0")
	}
	if bp.MaxInstances < bp.MinInstances {
		return newErr(KindLimit, "maxInstances must be >= minInstances")
	}
	if bp.MinQuotient < 0 {
		return newErr(KindLimit, "minQuotient must be >= 0")
	}
	if bp.CooldownSeconds < app.CooldownMin.Seconds() {
		return newErr(KindLimit, "cooldownTime must be >= %v seconds", app.CooldownMin.Seconds())
	}
	if bp.LearningTimeMultiplier < app.LearningMultiplierMin {
		return newErr(KindLimit, "learningTimeMultiplier must be >= %v", app.LearningMultiplierMin)
	}
	if bp.ScalingIntervalMultiplier < app.ScalingIntervalMultiplierMin {
		return newErr(KindLimit, "scalingIntervalMultiplier must be >= %v", app.ScalingIntervalMultiplierMin)
	}

	if err := workingSet(bp); err != nil {
		return err
	}
	return nil
}

// workingSet validates spec §4.7's scheduling-state invariants:
// 0 <= currentIntervalState <= scalingIntervalMultiplier,
// lastScalingTime >= creationTime >= 0, learningStartTime >= creationTime.
func workingSet(bp store.Blueprint) error {
	if bp.CurrentIntervalState < 0 || bp.CurrentIntervalState > bp.ScalingIntervalMultiplier {
		return newErr(KindWorkingSet, "currentIntervalState %d out of range [0, %d]", bp.CurrentIntervalState, bp.ScalingIntervalMultiplier)
	}
	creation := bp.Binding.CreationTime
	if creation < 0 {
		return newErr(KindTime, "creationTime must be >= 0")
	}
	if bp.LastScalingTimeMillis < creation {
		return newErr(KindTime, "lastScalingTime must be >= creationTime")
	}
	if bp.LearningStartMillis < creation {
		return newErr(KindTime, "learningStartTime must be >= creationTime")
	}
	return nil
}
