package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadUsesDefaultsWhenUnset(t *testing.T) {
	cfg := Load()
	assert.Equal(t, 60, cfg.MaxMetricListSize)
	assert.Equal(t, 120*time.Second, cfg.MaxMetricAge)
	assert.False(t, cfg.UpdateAppNameAtBinding)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Equal(t, 8080, cfg.APIPort)
}

func TestLoadReadsOverridesFromEnv(t *testing.T) {
	t.Setenv("SCALER_MAX_METRIC_LIST_SIZE", "120")
	t.Setenv("SCALER_UPDATE_APP_NAME_AT_BINDING", "true")
	t.Setenv("ENGINE_RATE_LIMIT_PER_SEC", "12.5")
	t.Setenv("ORCHESTRY_PORT", "9090")

	cfg := Load()
	assert.Equal(t, 120, cfg.MaxMetricListSize)
	assert.True(t, cfg.UpdateAppNameAtBinding)
	assert.Equal(t, 12.5, cfg.EngineRateLimitPerSec)
	assert.Equal(t, 9090, cfg.APIPort)
}

func TestLoadFallsBackOnUnparsableValues(t *testing.T) {
	t.Setenv("SCALER_STATIC_SCALING_SIZE", "not-a-number")
	cfg := Load()
	assert.Equal(t, 1, cfg.StaticScalingSize)
}
