// Package config loads and validates the application's configuration:
// patch/feature geometry, training hyperparameters, detection pyramid
// settings, and server settings, from YAML files, environment variables, and
// command-line flags via viper.
package config

import (
	"fmt"
	"strings"
)

// Config is the complete configuration for the boostcascade training and
// detection tools.
type Config struct {
	LogLevel string `mapstructure:"log_level" yaml:"log_level" json:"log_level"`
	Verbose  bool   `mapstructure:"verbose" yaml:"verbose" json:"verbose"`

	Patch  PatchConfig  `mapstructure:"patch" yaml:"patch" json:"patch"`
	Train  TrainConfig  `mapstructure:"train" yaml:"train" json:"train"`
	Detect DetectConfig `mapstructure:"detect" yaml:"detect" json:"detect"`
	Server ServerConfig `mapstructure:"server" yaml:"server" json:"server"`
}

// PatchConfig names the fixed window geometry every feature and patch file
// is defined against.
type PatchConfig struct {
	Width    int `mapstructure:"width" yaml:"width" json:"width"`
	Height   int `mapstructure:"height" yaml:"height" json:"height"`
	Channels int `mapstructure:"channels" yaml:"channels" json:"channels"`
}

// TrainConfig configures a training run: classifier variant, feature pool
// size, stage/iteration counts, and the SpeedBoost bucket-construction
// thresholds.
type TrainConfig struct {
	Variant        string  `mapstructure:"variant" yaml:"variant" json:"variant"`
	FeaturePool    int     `mapstructure:"feature_pool" yaml:"feature_pool" json:"feature_pool"`
	NumStages      int     `mapstructure:"num_stages" yaml:"num_stages" json:"num_stages"`
	IterationsPer  int     `mapstructure:"iterations_per_stage" yaml:"iterations_per_stage" json:"iterations_per_stage"`
	NumPositives   int     `mapstructure:"num_positives" yaml:"num_positives" json:"num_positives"`
	NumNegatives   int     `mapstructure:"num_negatives" yaml:"num_negatives" json:"num_negatives"`
	TargetFNR      float32 `mapstructure:"target_fnr" yaml:"target_fnr" json:"target_fnr"`
	MaxReadRetries int     `mapstructure:"max_read_retries" yaml:"max_read_retries" json:"max_read_retries"`
	Workers        int     `mapstructure:"workers" yaml:"workers" json:"workers"`

	BucketMinExamples         int     `mapstructure:"bucket_min_examples" yaml:"bucket_min_examples" json:"bucket_min_examples"`
	BucketExamplesStep        int     `mapstructure:"bucket_examples_step" yaml:"bucket_examples_step" json:"bucket_examples_step"`
	BucketMinPositiveExamples int     `mapstructure:"bucket_min_positive_examples" yaml:"bucket_min_positive_examples" json:"bucket_min_positive_examples"`
	BucketMinNegativeExamples int     `mapstructure:"bucket_min_negative_examples" yaml:"bucket_min_negative_examples" json:"bucket_min_negative_examples"`
	BucketMinDelta            float32 `mapstructure:"bucket_min_delta" yaml:"bucket_min_delta" json:"bucket_min_delta"`

	// MaxInnerStages bounds a CASCADE stage's boosting inner loop when
	// UseRates is set; it falls back to IterationsPer when zero.
	MaxInnerStages int `mapstructure:"max_inner_stages" yaml:"max_inner_stages" json:"max_inner_stages"`
	// TargetFalsePositiveBase/Step define each cascade stage's target
	// false-positive rate as TargetFalsePositiveBase - stage*TargetFalsePositiveStep.
	TargetFalsePositiveBase float32 `mapstructure:"target_false_positive_base" yaml:"target_false_positive_base" json:"target_false_positive_base"`
	TargetFalsePositiveStep float32 `mapstructure:"target_false_positive_step" yaml:"target_false_positive_step" json:"target_false_positive_step"`
	// UseRates enables the false-positive-rate early stop within a CASCADE
	// stage's inner loop.
	UseRates bool `mapstructure:"use_rates" yaml:"use_rates" json:"use_rates"`
	// SamplePatches draws a BOOSTED/ANYTIME stage's training cohort with the
	// weighted low-variance resampler instead of plain capped reads.
	SamplePatches bool `mapstructure:"sample_patches" yaml:"sample_patches" json:"sample_patches"`

	PositivePaths []string `mapstructure:"positive_paths" yaml:"positive_paths" json:"positive_paths"`
	NegativePaths []string `mapstructure:"negative_paths" yaml:"negative_paths" json:"negative_paths"`
	OutputPath    string   `mapstructure:"output_path" yaml:"output_path" json:"output_path"`
	StatsPath     string   `mapstructure:"stats_path" yaml:"stats_path" json:"stats_path"`
}

// DetectConfig configures the multi-scale sliding-window detector.
type DetectConfig struct {
	ModelPath          string  `mapstructure:"model_path" yaml:"model_path" json:"model_path"`
	InitialScale       float64 `mapstructure:"initial_scale" yaml:"initial_scale" json:"initial_scale"`
	ScalingFactor      float64 `mapstructure:"scaling_factor" yaml:"scaling_factor" json:"scaling_factor"`
	NumScales          int     `mapstructure:"num_scales" yaml:"num_scales" json:"num_scales"`
	DetectionThreshold float32 `mapstructure:"detection_threshold" yaml:"detection_threshold" json:"detection_threshold"`
	MergingOverlap     float32 `mapstructure:"merging_overlap" yaml:"merging_overlap" json:"merging_overlap"`
	Filtered           bool    `mapstructure:"filtered" yaml:"filtered" json:"filtered"`
}

// ServerConfig configures the training-progress websocket server.
type ServerConfig struct {
	Host            string `mapstructure:"host" yaml:"host" json:"host"`
	Port            int    `mapstructure:"port" yaml:"port" json:"port"`
	ShutdownTimeout int    `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" json:"shutdown_timeout"`
	CORSOrigin      string `mapstructure:"cors_origin" yaml:"cors_origin" json:"cors_origin"`
	MaxUploadMB     int64  `mapstructure:"max_upload_mb" yaml:"max_upload_mb" json:"max_upload_mb"`
	TimeoutSec      int    `mapstructure:"timeout_sec" yaml:"timeout_sec" json:"timeout_sec"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() Config {
	return Config{
		LogLevel: "info",
		Verbose:  false,
		Patch: PatchConfig{
			Width:    24,
			Height:   24,
			Channels: 1,
		},
		Train: TrainConfig{
			Variant:                   "cascade",
			FeaturePool:               2000,
			NumStages:                 10,
			IterationsPer:             20,
			NumPositives:              500,
			NumNegatives:              1000,
			TargetFNR:                 0.001,
			MaxReadRetries:            10,
			Workers:                   4,
			BucketMinExamples:         100,
			BucketExamplesStep:        20,
			BucketMinPositiveExamples: 5,
			BucketMinNegativeExamples: 5,
			BucketMinDelta:            0.01,
			MaxInnerStages:            200,
			TargetFalsePositiveBase:   0.5,
			TargetFalsePositiveStep:   0,
			UseRates:                  false,
			SamplePatches:             false,
			OutputPath:                "classifier.bin",
			StatsPath:                 "stats.csv",
		},
		Detect: DetectConfig{
			InitialScale:       1.0,
			ScalingFactor:      1.2,
			NumScales:          10,
			DetectionThreshold: 0,
			MergingOverlap:     0.5,
			Filtered:           true,
		},
		Server: ServerConfig{
			Host:            "localhost",
			Port:            8080,
			ShutdownTimeout: 10,
			CORSOrigin:      "*",
			MaxUploadMB:     10,
			TimeoutSec:      30,
		},
	}
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLogLevels, c.LogLevel) {
		return fmt.Errorf("invalid log level: %s (must be one of: %s)", c.LogLevel, strings.Join(validLogLevels, ", "))
	}

	validVariants := []string{"boosted", "cascade", "anytime"}
	if !contains(validVariants, c.Train.Variant) {
		return fmt.Errorf("invalid train variant: %s (must be one of: %s)", c.Train.Variant, strings.Join(validVariants, ", "))
	}

	if c.Patch.Width <= 0 || c.Patch.Height <= 0 || c.Patch.Channels <= 0 {
		return fmt.Errorf("invalid patch geometry: %dx%dx%d", c.Patch.Width, c.Patch.Height, c.Patch.Channels)
	}

	if c.Train.FeaturePool <= 0 {
		return fmt.Errorf("invalid train.feature_pool: %d (must be positive)", c.Train.FeaturePool)
	}
	if c.Train.NumStages <= 0 {
		return fmt.Errorf("invalid train.num_stages: %d (must be positive)", c.Train.NumStages)
	}
	if err := validateUnitRange(float64(c.Train.TargetFNR), "train.target_fnr"); err != nil {
		return err
	}

	if c.Detect.ScalingFactor <= 1.0 {
		return fmt.Errorf("invalid detect.scaling_factor: %f (must be greater than 1.0)", c.Detect.ScalingFactor)
	}
	if c.Detect.NumScales <= 0 {
		return fmt.Errorf("invalid detect.num_scales: %d (must be positive)", c.Detect.NumScales)
	}
	if err := validateUnitRange(float64(c.Detect.MergingOverlap), "detect.merging_overlap"); err != nil {
		return err
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be between 1 and 65535)", c.Server.Port)
	}

	return nil
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

func validateUnitRange(value float64, name string) error {
	if value < 0.0 || value > 1.0 {
		return fmt.Errorf("invalid %s: %.4f (must be between 0.0 and 1.0)", name, value)
	}
	return nil
}
