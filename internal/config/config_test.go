package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig_PassesValidation(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "cascade", cfg.Train.Variant)
	assert.Greater(t, cfg.Patch.Width, 0)
	assert.Greater(t, cfg.Patch.Height, 0)
}

func TestValidate_RejectsUnknownVariant(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Train.Variant = "bogus"
	assert.Error(t, cfg.Validate())
}

func TestValidate_RejectsBadLogLevel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LogLevel = "verbose-ish"
	assert.Error(t, cfg.Validate())
}

func TestValidate_RejectsOutOfRangeFNR(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Train.TargetFNR = 1.5
	assert.Error(t, cfg.Validate())
}

func TestValidate_RejectsScalingFactorAtOrBelowOne(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Detect.ScalingFactor = 1.0
	assert.Error(t, cfg.Validate())
}

func TestValidate_RejectsBadPort(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Server.Port = 70000
	assert.Error(t, cfg.Validate())
}
