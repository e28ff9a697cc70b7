// Package trainer implements the boosting training loops shared across all
// three classifier variants: classical AdaBoost weak-learner fitting,
// per-stage progress reporting, and cascade/anytime-specific stage
// management (resampling, filter construction, bias calibration).
package trainer

import (
	"log/slog"
	"math"
	"sort"

	"github.com/MeKo-Tech/boostcascade/internal/patch"
	"github.com/MeKo-Tech/boostcascade/internal/selector"
	"github.com/MeKo-Tech/boostcascade/internal/stump"
)

// Logger is the module-scoped structured logger, following the package-level
// slog convention used throughout this codebase.
var Logger = slog.Default()

// IterationStats is one row of the training progress log: exploss, error,
// pos/neg error, threshold, and the running feature-per-pixel figure,
// matching the on-disk training-statistics log.
type IterationStats struct {
	Iteration   int
	ExpLoss     float32
	Error       float32
	PosError    float32
	NegError    float32
	Threshold   float32
	Updated     int
	AvgFeatures float32
}

// computeAlpha is the AdaBoost weak-learner weight, alpha = 0.5*ln((1-err)/err).
func computeAlpha(err float32) float32 {
	const eps = 1e-6
	if err < eps {
		err = eps
	}
	if err > 1-eps {
		err = 1 - eps
	}
	return 0.5 * float32(math.Log(float64((1-err)/err)))
}

// reweight applies the multiplicative AdaBoost update in place and returns
// the round's summary statistics.
func reweight(fs *selector.FeatureSelector, result selector.Result, alpha float32, weights []float32) IterationStats {
	responses := fs.R[result.FeatureIndex]

	var expLoss, errSum, posErr, posTotal, negErr, negTotal float32
	newWeights := make([]float32, len(weights))
	for p := range weights {
		out := result.Stump.EvaluateResponse(responses[p])
		y := float32(fs.Labels[p])

		if out != y {
			errSum += weights[p]
			if y > 0 {
				posErr += weights[p]
			} else {
				negErr += weights[p]
			}
		}
		if y > 0 {
			posTotal += weights[p]
		} else {
			negTotal += weights[p]
		}

		newWeights[p] = weights[p] * float32(math.Exp(float64(-alpha*y*out)))
		expLoss += newWeights[p]
	}

	var total float32
	for _, w := range newWeights {
		total += w
	}
	if total > 0 {
		for p := range newWeights {
			newWeights[p] /= total
		}
	}
	copy(weights, newWeights)

	stats := IterationStats{ExpLoss: expLoss, Error: errSum}
	if posTotal > 0 {
		stats.PosError = posErr / posTotal
	}
	if negTotal > 0 {
		stats.NegError = negErr / negTotal
	}
	return stats
}

// ComputePredictionBias scans validation activations sorted ascending,
// looking for the smallest bias such that the false-negative rate at or
// below targetFNR is achieved, then returns the midpoint between the last
// rejected positive and the first accepted one.
func ComputePredictionBias(activations []float32, labels []int8, targetFNR float32) float32 {
	type sample struct {
		activation float32
		label      int8
	}
	samples := make([]sample, len(activations))
	for i := range activations {
		samples[i] = sample{activation: activations[i], label: labels[i]}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i].activation < samples[j].activation })

	var totalPos int
	for _, s := range samples {
		if s.label > 0 {
			totalPos++
		}
	}
	if totalPos == 0 {
		return 0
	}

	var falseNeg int
	bestBias := samples[0].activation - 1
	for i, s := range samples {
		if s.label > 0 {
			falseNeg++
		}
		fnr := float32(falseNeg) / float32(totalPos)
		if fnr <= targetFNR {
			if i+1 < len(samples) {
				bestBias = (s.activation + samples[i+1].activation) / 2
			} else {
				bestBias = s.activation + 1
			}
		}
	}
	return bestBias
}

// FalsePositiveRateAt reports the fraction of negative-labeled activations
// that would be admitted by a CASCADE-style Less=false filter gated at bias,
// i.e. the measured false-positive rate of a filter calibrated to that bias.
func FalsePositiveRateAt(activations []float32, labels []int8, bias float32) float32 {
	var negTotal, falsePos int
	for i, a := range activations {
		if labels[i] > 0 {
			continue
		}
		negTotal++
		if a > bias {
			falsePos++
		}
	}
	if negTotal == 0 {
		return 0
	}
	return float32(falsePos) / float32(negTotal)
}

// weightedError computes the weighted 0/1 loss of stump (already fit to
// feature featureIndex) against the current weights, for callers that pick a
// stump via a selection path that doesn't itself report an error rate
// (SpeedBoost joint selection reports gain, not error).
func weightedError(fs *selector.FeatureSelector, featureIndex int, st stump.DecisionStump, weights []float32) float32 {
	responses := fs.R[featureIndex]

	var errSum, total float32
	for p, w := range weights {
		total += w
		if st.EvaluateResponse(responses[p]) != float32(fs.Labels[p]) {
			errSum += w
		}
	}
	if total <= 0 {
		return 0
	}
	return errSum / total
}

// integralsAndLabels adapts a set of labeled patches into the parallel
// integral-image and label slices the FeatureSelector expects.
func integralsAndLabels(patches []*patch.Patch) ([]*patch.Patch, []int8) {
	integrals := make([]*patch.Patch, len(patches))
	labels := make([]int8, len(patches))
	for i, p := range patches {
		integrals[i] = p
		labels[i] = p.Label
	}
	return integrals, labels
}
