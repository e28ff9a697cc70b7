// Package selector implements the FeatureSelector: a dense per-(feature,
// patch) response cache plus per-feature sorted index, driving both
// classical AdaBoost weak-learner selection and SpeedBoost's joint
// feature-and-threshold selection.
package selector

import (
	"fmt"
	"sort"

	"github.com/MeKo-Tech/boostcascade/internal/feature"
	"github.com/MeKo-Tech/boostcascade/internal/patch"
	"github.com/MeKo-Tech/boostcascade/internal/stump"
	"github.com/sourcegraph/conc/iter"
)

// FeatureSelector holds the dense response cache R[f][p] and the per-feature
// permutation ord[f] sorting patches ascending by response.
type FeatureSelector struct {
	Features []feature.Feature
	Integral []*patch.Patch // per-patch integral image, same order as Labels
	Labels   []int8         // y[p] in {-1,+1}

	R   [][]float32 // R[f][p]
	Ord [][]int     // ord[f]: patch indices sorted ascending by R[f][p]

	// Workers bounds the number of goroutines used by the two
	// data-parallel regions (construction and selection).
	Workers int
}

// New builds a FeatureSelector over the given feature pool and patches,
// computing the response cache and sorted index in parallel per feature
// using a bounded worker pool (github.com/sourcegraph/conc), matching the
// bulk-synchronous data-parallelism-over-features design.
func New(features []feature.Feature, integrals []*patch.Patch, labels []int8, workers int) *FeatureSelector {
	if workers <= 0 {
		workers = 1
	}

	fs := &FeatureSelector{
		Features: features,
		Integral: integrals,
		Labels:   labels,
		R:        make([][]float32, len(features)),
		Ord:      make([][]int, len(features)),
		Workers:  workers,
	}

	iter.ForEachIdx(allIndices(len(features)), func(_ int, i *int) {
		f := features[*i]
		responses := make([]float32, len(integrals))
		for p, img := range integrals {
			responses[p] = f.Evaluate(img)
		}
		ord := make([]int, len(integrals))
		for p := range ord {
			ord[p] = p
		}
		sort.Slice(ord, func(a, b int) bool {
			return responses[ord[a]] < responses[ord[b]]
		})
		fs.R[*i] = responses
		fs.Ord[*i] = ord
	})

	return fs
}

func allIndices(n int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return idx
}

// Result is the outcome of a selection round: the chosen feature, the
// decision stump built from it, and its weighted error.
type Result struct {
	FeatureIndex int
	Stump        stump.DecisionStump
	Err          float32
}

// ErrNoPatches is returned when SelectFeature/SelectFeatureAndThreshold is
// called with no patches cached.
var ErrNoPatches = fmt.Errorf("selector: no patches available for selection")

// SelectFeature implements classical AdaBoost selection (
// "Classical selection"): for each feature, sweep the sorted patches
// maintaining weight mass below/above the candidate split, and keep the
// (feature, split, sign) triple minimizing weighted 0/1 loss.
func (fs *FeatureSelector) SelectFeature(weights []float32) (Result, error) {
	if len(fs.Integral) == 0 {
		return Result{}, ErrNoPatches
	}

	best := make([]sweepCandidate, len(fs.Features))
	iter.ForEachIdx(allIndices(len(fs.Features)), func(_ int, i *int) {
		best[*i] = fs.sweepFeature(*i, weights)
	})

	bestFeature := -1
	var bestLoss float32 = -1
	var totalW float32
	for _, w := range weights {
		totalW += w
	}

	for i, c := range best {
		if bestFeature == -1 || c.loss < bestLoss {
			bestFeature = i
			bestLoss = c.loss
		}
	}

	if bestFeature == -1 {
		return Result{}, ErrNoPatches
	}

	c := best[bestFeature]
	var errRate float32
	if totalW > 0 {
		errRate = c.loss / totalW
	}

	return Result{
		FeatureIndex: bestFeature,
		Stump: stump.DecisionStump{
			Feature: fs.Features[bestFeature],
			Split:   c.split,
			Sign:    c.sign,
		},
		Err: errRate,
	}, nil
}

type sweepCandidate struct {
	split float32
	sign  float32
	loss  float32
}

// sweepFeature implements the single-feature sweep described in
// §4.3: at every distinct response boundary, posLoss = weight(neg above) +
// weight(pos below); negLoss = totalWeight - posLoss; keep the best of the
// two signs.
func (fs *FeatureSelector) sweepFeature(f int, weights []float32) sweepCandidate {
	ord := fs.Ord[f]
	responses := fs.R[f]

	var totalPosW, totalNegW float32
	for _, p := range ord {
		if fs.Labels[p] > 0 {
			totalPosW += weights[p]
		} else {
			totalNegW += weights[p]
		}
	}
	totalW := totalPosW + totalNegW

	var posBelow, negBelow float32
	best := sweepCandidate{loss: -1}
	havePrev := false
	var prevResponse float32

	evaluateBoundary := func(split float32) {
		posLoss := (totalNegW - negBelow) + posBelow
		negLoss := totalW - posLoss
		if best.loss < 0 || posLoss < best.loss {
			best = sweepCandidate{split: split, sign: 1, loss: posLoss}
		}
		if negLoss < best.loss {
			best = sweepCandidate{split: split, sign: -1, loss: negLoss}
		}
	}

	for _, p := range ord {
		response := responses[p]
		if !havePrev || response != prevResponse {
			evaluateBoundary(response)
			havePrev = true
		}
		if fs.Labels[p] > 0 {
			posBelow += weights[p]
		} else {
			negBelow += weights[p]
		}
		prevResponse = response
	}
	// Final boundary: split beyond the largest response (everything below).
	evaluateBoundary(prevResponse + 1)

	return best
}

// UpdateActivations updates cached activations: for every
// patch p admitted by filter (gated on |a_p| or a_p per caller convention),
// add alpha*stump.evaluate(R[featureIndex,p]) to its running activation.
func (fs *FeatureSelector) UpdateActivations(featureIndex int, s stump.DecisionStump, alpha float32, passes func(v float32) bool, activations []float32) {
	responses := fs.R[featureIndex]
	for p := range activations {
		if passes(activations[p]) {
			activations[p] += alpha * s.EvaluateResponse(responses[p])
		}
	}
}
