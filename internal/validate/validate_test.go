package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autoscaler/internal/app"
	"autoscaler/internal/store"
)

func validBlueprint() store.Blueprint {
	return store.Blueprint{
		Binding: store.BindingBlueprint{ID: "b1", ResourceID: "r1", CreationTime: 1000},
		CPU:     store.WrapperBlueprint{UpperLimit: 70, LowerLimit: 20, Policy: string(app.PolicyMax)},
		RAM:     store.WrapperBlueprint{UpperLimit: 1000, LowerLimit: 100, Policy: string(app.PolicyMean)},
		Request: store.WrapperBlueprint{UpperLimit: 100, LowerLimit: 10, Policy: string(app.PolicyMean)},
		Latency: store.WrapperBlueprint{UpperLimit: 500, LowerLimit: 10, Policy: string(app.PolicyMax)},

		MinInstances:              1,
		MaxInstances:              10,
		MinQuotient:               0,
		CooldownSeconds:           10,
		LearningTimeMultiplier:    1,
		ScalingIntervalMultiplier: 1,

		CurrentIntervalState:  0,
		LastScalingTimeMillis: 1000,
		LearningStartMillis:   1000,
	}
}

func TestValidBlueprintPasses(t *testing.T) {
	require.NoError(t, Blueprint(validBlueprint()))
}

func TestBlueprintRejectsBadResourceID(t *testing.T) {
	bp := validBlueprint()
	bp.Binding.ResourceID = "bad$id"
	err := Blueprint(bp)
	require.Error(t, err)
	ve, ok := err.(*Error)
	require.True(t, ok)
	assert.Equal(t, KindSpecialCharacter, ve.Kind)
}

func TestBlueprintRejectsBadPolicy(t *testing.T) {
	bp := validBlueprint()
	bp.CPU.Policy = "AVERAGE"
	err := Blueprint(bp)
	require.Error(t, err)
	assert.Equal(t, KindPolicy, err.(*Error).Kind)
}

func TestBlueprintRejectsUpperNotGreaterThanLower(t *testing.T) {
	bp := validBlueprint()
	bp.CPU.UpperLimit = 10
	bp.CPU.LowerLimit = 20
	err := Blueprint(bp)
	require.Error(t, err)
	assert.Equal(t, KindLimit, err.(*Error).Kind)
}

func TestBlueprintRejectsCPUAboveCeiling(t *testing.T) {
	bp := validBlueprint()
	bp.CPU.UpperLimit = 150
	err := Blueprint(bp)
	require.Error(t, err)
	assert.Equal(t, KindLimit, err.(*Error).Kind)
}

func TestBlueprintRejectsCooldownBelowMinimum(t *testing.T) {
	bp := validBlueprint()
	bp.CooldownSeconds = 1
	err := Blueprint(bp)
	require.Error(t, err)
	assert.Equal(t, KindLimit, err.(*Error).Kind)
}

func TestBlueprintRejectsIntervalStateOutOfRange(t *testing.T) {
	bp := validBlueprint()
	bp.CurrentIntervalState = 5
	bp.ScalingIntervalMultiplier = 1
	err := Blueprint(bp)
	require.Error(t, err)
	assert.Equal(t, KindWorkingSet, err.(*Error).Kind)
}

func TestBlueprintRejectsLastScalingTimeBeforeCreation(t *testing.T) {
	bp := validBlueprint()
	bp.LastScalingTimeMillis = 0
	bp.Binding.CreationTime = 1000
	err := Blueprint(bp)
	require.Error(t, err)
	assert.Equal(t, KindTime, err.(*Error).Kind)
}
