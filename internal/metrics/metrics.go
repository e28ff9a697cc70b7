// Package metrics exposes Prometheus counters/histograms/gauges for
// training and detection runs.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TrainingIterationsTotal counts boosting rounds, labeled by variant.
	TrainingIterationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "boostcascade_training_iterations_total",
			Help: "Total number of boosting rounds run",
		},
		[]string{"variant"},
	)

	// TrainingIterationDuration tracks wall time per boosting round.
	TrainingIterationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "boostcascade_training_iteration_duration_seconds",
			Help:    "Duration of one feature-selection round",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"variant"},
	)

	// TrainingError tracks the weighted training error after each round.
	TrainingError = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "boostcascade_training_error",
			Help: "Weighted training error of the most recent round",
		},
		[]string{"variant"},
	)

	// StageCount counts completed cascade/anytime stages.
	StagesCompletedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "boostcascade_stages_completed_total",
			Help: "Total number of training stages completed",
		},
		[]string{"variant"},
	)

	// DetectionDuration tracks per-frame detection latency.
	DetectionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "boostcascade_detection_duration_seconds",
			Help:    "Duration of one multi-scale detection pass",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
	)

	// DetectionsPerFrame tracks post-NMS detection counts.
	DetectionsPerFrame = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "boostcascade_detections_per_frame",
			Help:    "Number of detections surviving non-maximum suppression per frame",
			Buckets: []float64{0, 1, 2, 5, 10, 25, 50, 100},
		},
	)

	// FeaturesPerPixel tracks the scanner's average weak-learner
	// evaluations per window position.
	FeaturesPerPixel = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "boostcascade_features_per_pixel",
			Help: "Average number of weak-learner evaluations per window position",
		},
	)

	// WebsocketConnections tracks active training-progress subscribers.
	WebsocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "boostcascade_websocket_active_connections",
			Help: "Number of active WebSocket connections watching training progress",
		},
	)
)
