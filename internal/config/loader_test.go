package config

import (
	"os"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnvVars() {
	for _, env := range os.Environ() {
		if strings.HasPrefix(env, EnvPrefix+"_") {
			parts := strings.SplitN(env, "=", 2)
			if len(parts) > 0 {
				_ = os.Unsetenv(parts[0])
			}
		}
	}
}

func freshLoader() *Loader {
	viper.Reset()
	return NewLoader()
}

func TestNewLoader(t *testing.T) {
	l := freshLoader()
	assert.NotNil(t, l.GetViper())
}

func TestLoad_UsesDefaultsWhenNoFile(t *testing.T) {
	clearEnvVars()
	l := freshLoader()

	dir := t.TempDir()
	cwd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	defer func() { _ = os.Chdir(cwd) }()

	cfg, err := l.Load()
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Train.Variant, cfg.Train.Variant)
}

func TestLoad_EnvironmentOverride(t *testing.T) {
	clearEnvVars()
	l := freshLoader()

	dir := t.TempDir()
	cwd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	defer func() { _ = os.Chdir(cwd) }()

	require.NoError(t, os.Setenv(EnvPrefix+"_TRAIN_VARIANT", "anytime"))
	defer func() { _ = os.Unsetenv(EnvPrefix + "_TRAIN_VARIANT") }()

	cfg, err := l.Load()
	require.NoError(t, err)
	assert.Equal(t, "anytime", cfg.Train.Variant)
}

func TestLoadWithFile_MissingFileErrors(t *testing.T) {
	l := freshLoader()
	_, err := l.LoadWithFile("/nonexistent/path.yaml")
	assert.Error(t, err)
}
