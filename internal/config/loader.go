package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const (
	// ConfigFileName is the base name for configuration files (without extension).
	ConfigFileName = "boostcascade"

	// EnvPrefix is the prefix for environment variables.
	EnvPrefix = "BOOSTCASCADE"
)

// Loader handles loading configuration from various sources.
type Loader struct {
	v *viper.Viper
}

// NewLoader creates a new configuration loader.
func NewLoader() *Loader {
	return &Loader{v: viper.GetViper()}
}

// Load loads configuration from files, environment variables, and sets
// defaults, then validates the result.
func (l *Loader) Load() (*Config, error) {
	l.v.SetConfigName(ConfigFileName)
	l.v.SetConfigType("yaml")
	l.addConfigPaths()
	l.setupEnvironmentVariables()
	l.setDefaults()

	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := l.v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &config, nil
}

// LoadWithFile loads configuration from a specific file path.
func (l *Loader) LoadWithFile(configFile string) (*Config, error) {
	if configFile == "" {
		return l.Load()
	}

	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s", configFile)
	}

	l.v.SetConfigFile(configFile)
	l.setupEnvironmentVariables()
	l.setDefaults()

	if err := l.v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", configFile, err)
	}

	var config Config
	if err := l.v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &config, nil
}

// Get returns a value from the configuration.
func (l *Loader) Get(key string) interface{} {
	return l.v.Get(key)
}

// Set sets a value in the configuration.
func (l *Loader) Set(key string, value interface{}) {
	l.v.Set(key, value)
}

// GetConfigFileUsed returns the path of the config file used.
func (l *Loader) GetConfigFileUsed() string {
	return l.v.ConfigFileUsed()
}

// GetViper returns the underlying viper instance for advanced usage.
func (l *Loader) GetViper() *viper.Viper {
	return l.v
}

func (l *Loader) addConfigPaths() {
	l.v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		l.v.AddConfigPath(home)
	}
	l.v.AddConfigPath("/etc/boostcascade")
	if configDir, exists := os.LookupEnv("XDG_CONFIG_HOME"); exists {
		l.v.AddConfigPath(filepath.Join(configDir, "boostcascade"))
	} else if home, err := os.UserHomeDir(); err == nil {
		l.v.AddConfigPath(filepath.Join(home, ".config", "boostcascade"))
	}
}

func (l *Loader) setupEnvironmentVariables() {
	l.v.SetEnvPrefix(EnvPrefix)
	l.v.AutomaticEnv()
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
}

func (l *Loader) setDefaults() {
	d := DefaultConfig()

	l.v.SetDefault("log_level", d.LogLevel)
	l.v.SetDefault("verbose", d.Verbose)

	l.v.SetDefault("patch.width", d.Patch.Width)
	l.v.SetDefault("patch.height", d.Patch.Height)
	l.v.SetDefault("patch.channels", d.Patch.Channels)

	l.v.SetDefault("train.variant", d.Train.Variant)
	l.v.SetDefault("train.feature_pool", d.Train.FeaturePool)
	l.v.SetDefault("train.num_stages", d.Train.NumStages)
	l.v.SetDefault("train.iterations_per_stage", d.Train.IterationsPer)
	l.v.SetDefault("train.num_positives", d.Train.NumPositives)
	l.v.SetDefault("train.num_negatives", d.Train.NumNegatives)
	l.v.SetDefault("train.target_fnr", d.Train.TargetFNR)
	l.v.SetDefault("train.max_read_retries", d.Train.MaxReadRetries)
	l.v.SetDefault("train.workers", d.Train.Workers)
	l.v.SetDefault("train.bucket_min_examples", d.Train.BucketMinExamples)
	l.v.SetDefault("train.bucket_examples_step", d.Train.BucketExamplesStep)
	l.v.SetDefault("train.bucket_min_positive_examples", d.Train.BucketMinPositiveExamples)
	l.v.SetDefault("train.bucket_min_negative_examples", d.Train.BucketMinNegativeExamples)
	l.v.SetDefault("train.bucket_min_delta", d.Train.BucketMinDelta)
	l.v.SetDefault("train.max_inner_stages", d.Train.MaxInnerStages)
	l.v.SetDefault("train.target_false_positive_base", d.Train.TargetFalsePositiveBase)
	l.v.SetDefault("train.target_false_positive_step", d.Train.TargetFalsePositiveStep)
	l.v.SetDefault("train.use_rates", d.Train.UseRates)
	l.v.SetDefault("train.sample_patches", d.Train.SamplePatches)
	l.v.SetDefault("train.output_path", d.Train.OutputPath)
	l.v.SetDefault("train.stats_path", d.Train.StatsPath)

	l.v.SetDefault("detect.initial_scale", d.Detect.InitialScale)
	l.v.SetDefault("detect.scaling_factor", d.Detect.ScalingFactor)
	l.v.SetDefault("detect.num_scales", d.Detect.NumScales)
	l.v.SetDefault("detect.detection_threshold", d.Detect.DetectionThreshold)
	l.v.SetDefault("detect.merging_overlap", d.Detect.MergingOverlap)
	l.v.SetDefault("detect.filtered", d.Detect.Filtered)

	l.v.SetDefault("server.host", d.Server.Host)
	l.v.SetDefault("server.port", d.Server.Port)
	l.v.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout)
	l.v.SetDefault("server.cors_origin", d.Server.CORSOrigin)
	l.v.SetDefault("server.max_upload_mb", d.Server.MaxUploadMB)
	l.v.SetDefault("server.timeout_sec", d.Server.TimeoutSec)
}

// GetResolvedConfig returns the current resolved configuration for debugging.
func (l *Loader) GetResolvedConfig() map[string]interface{} {
	return l.v.AllSettings()
}

// WriteConfigToFile writes the current configuration to a file.
func (l *Loader) WriteConfigToFile(filename string) error {
	return l.v.WriteConfigAs(filename)
}

// GenerateDefaultConfigFile generates a default configuration file.
func GenerateDefaultConfigFile(filename string) error {
	loader := NewLoader()
	loader.setDefaults()

	if filename == "" {
		filename = "boostcascade.yaml"
	}

	return loader.WriteConfigToFile(filename)
}

// GetConfigSearchPaths returns the paths where configuration files are searched.
func GetConfigSearchPaths() []string {
	paths := []string{"."}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, home)
		paths = append(paths, filepath.Join(home, ".config", "boostcascade"))
	}

	if configDir, exists := os.LookupEnv("XDG_CONFIG_HOME"); exists {
		paths = append(paths, filepath.Join(configDir, "boostcascade"))
	}

	paths = append(paths, "/etc/boostcascade")

	return paths
}
