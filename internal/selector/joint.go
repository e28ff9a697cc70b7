package selector

import (
	"math"

	"github.com/MeKo-Tech/boostcascade/internal/filter"
	"github.com/MeKo-Tech/boostcascade/internal/stump"
	"github.com/sourcegraph/conc/iter"
)

// JointResult is the outcome of SpeedBoost joint feature-and-threshold
// selection: the chosen feature/stump, the derived gating Filter, and the
// gain achieved.
type JointResult struct {
	FeatureIndex int
	Stump        stump.DecisionStump
	Filter       filter.Filter
	Gain         float32
}

// bucketAggregates holds cumulative (bucket<=b) sums used by the per-feature
// sweep, computed once per selection round (not per feature).
type bucketAggregates struct {
	posW, negW, loss []float32
	tau              []float32
}

func computeBucketAggregates(b Buckets, weights []float32, activations []float32, labels []int8) bucketAggregates {
	numBuckets := len(b.Thresholds)
	n := len(activations)

	rawPosW := make([]float32, numBuckets)
	rawNegW := make([]float32, numBuckets)
	rawLoss := make([]float32, numBuckets)
	rawCount := make([]int, numBuckets)

	for p := range n {
		bucket := b.BucketOf[p]
		y := float32(labels[p])
		w := weights[p]
		ya := y * activations[p]
		// Clamp to avoid overflow for large negative y*a.
		if ya < -60 {
			ya = -60
		}
		expLoss := float32(math.Exp(float64(-ya)))

		if labels[p] > 0 {
			rawPosW[bucket] += w
		} else {
			rawNegW[bucket] += w
		}
		rawLoss[bucket] += expLoss
		rawCount[bucket]++
	}

	posW := make([]float32, numBuckets)
	negW := make([]float32, numBuckets)
	loss := make([]float32, numBuckets)
	tau := make([]float32, numBuckets)

	var runningPos, runningNeg, runningLoss float32
	var runningCount int
	for bkt := range numBuckets {
		runningPos += rawPosW[bkt]
		runningNeg += rawNegW[bkt]
		runningLoss += rawLoss[bkt]
		runningCount += rawCount[bkt]

		posW[bkt] = runningPos
		negW[bkt] = runningNeg
		loss[bkt] = runningLoss
		tau[bkt] = float32(runningCount) / float32(n)
	}

	return bucketAggregates{posW: posW, negW: negW, loss: loss, tau: tau}
}

// SelectFeatureAndThreshold implements SpeedBoost joint selection (
// §4.3): partitions patches into |activation| buckets, sweeps every feature
// tracking, per bucket, the best-inner-product split, converts that into a
// gain, and returns the (feature, stump, filter) triple of maximum gain.
func (fs *FeatureSelector) SelectFeatureAndThreshold(weights, activations []float32, cfg BucketConfig) (JointResult, error) {
	if len(fs.Integral) == 0 {
		return JointResult{}, ErrNoPatches
	}

	absAct := make([]float32, len(activations))
	for i, a := range activations {
		absAct[i] = absf32(a)
	}

	buckets := BuildBuckets(absAct, fs.Labels, cfg)
	agg := computeBucketAggregates(buckets, weights, activations, fs.Labels)

	type featureOutcome struct {
		gain    float32
		bucket  int
		split   float32
		sign    float32
		hasGain bool
	}

	outcomes := make([]featureOutcome, len(fs.Features))
	iter.ForEachIdx(allIndices(len(fs.Features)), func(_ int, i *int) {
		gain, bucket, split, sign, ok := fs.sweepJointFeature(*i, weights, buckets, agg)
		outcomes[*i] = featureOutcome{gain: gain, bucket: bucket, split: split, sign: sign, hasGain: ok}
	})

	bestFeature := -1
	var bestGain float32
	for i, o := range outcomes {
		if !o.hasGain {
			continue
		}
		if bestFeature == -1 || o.gain > bestGain {
			bestFeature = i
			bestGain = o.gain
		}
	}

	if bestFeature == -1 {
		return JointResult{}, ErrNoPatches
	}

	o := outcomes[bestFeature]
	threshold := buckets.Thresholds[o.bucket]
	f := filter.Filter{}
	if !math.IsInf(float64(threshold), 1) {
		f = filter.Filter{Active: true, Threshold: threshold, Less: true}
	}

	return JointResult{
		FeatureIndex: bestFeature,
		Stump: stump.DecisionStump{
			Feature: fs.Features[bestFeature],
			Split:   o.split,
			Sign:    o.sign,
		},
		Filter: f,
		Gain:   o.gain,
	}, nil
}

// sweepJointFeature sweeps one feature's sorted responses, tracking per
// bucket the maximum-magnitude weighted inner product between the stump
// output and the gradient, then converts each bucket's best inner product
// into a gain and returns the best (bucket, split, sign) for this feature.
func (fs *FeatureSelector) sweepJointFeature(f int, weights []float32, buckets Buckets, agg bucketAggregates) (gain float32, bucket int, split float32, sign float32, ok bool) {
	ord := fs.Ord[f]
	responses := fs.R[f]
	numBuckets := len(buckets.Thresholds)

	posBelow := make([]float32, numBuckets)
	negBelow := make([]float32, numBuckets)

	bestIP := make([]float32, numBuckets)
	bestSign := make([]float32, numBuckets)
	bestResponse := make([]float32, numBuckets)
	for b := range bestIP {
		bestIP[b] = -1
	}

	evaluate := func(response float32) {
		for b := range numBuckets {
			bracket := (agg.posW[b] - 2*posBelow[b]) - (agg.negW[b] - 2*negBelow[b])
			if bracket > bestIP[b] {
				bestIP[b] = bracket
				bestSign[b] = 1
				bestResponse[b] = response
			}
			if -bracket > bestIP[b] {
				bestIP[b] = -bracket
				bestSign[b] = -1
				bestResponse[b] = response
			}
		}
	}

	havePrev := false
	var prevResponse float32
	for _, p := range ord {
		response := responses[p]
		if !havePrev || response != prevResponse {
			evaluate(response)
			havePrev = true
		}
		bp := buckets.BucketOf[p]
		w := weights[p]
		for bb := bp; bb < numBuckets; bb++ {
			if fs.Labels[p] > 0 {
				posBelow[bb] += w
			} else {
				negBelow[bb] += w
			}
		}
		prevResponse = response
	}
	evaluate(prevResponse + 1)

	bestGain := float32(-1)
	bestBucket := -1
	for b := range numBuckets {
		total := agg.posW[b] + agg.negW[b]
		if total <= 0 || agg.tau[b] <= 0 {
			continue
		}
		ip := bestIP[b] / total
		v := 1 - ip*ip
		if v < 0 {
			v = 0
		}
		deltaL := agg.loss[b] * (1 - sqrtf32(v))
		g := deltaL / agg.tau[b]
		if bestBucket == -1 || g > bestGain {
			bestBucket = b
			bestGain = g
		}
	}

	if bestBucket == -1 {
		return 0, 0, 0, 0, false
	}

	splitValue := fs.computeSplitAtBucket(f, buckets, bestBucket, bestResponse[bestBucket])
	return bestGain, bestBucket, splitValue, bestSign[bestBucket], true
}

// computeSplitAtBucket finds the mean of the two response values adjacent to
// the chosen boundary, restricted to patches whose bucket does not exceed
// the chosen bucket (skipping any patches whose bucket
// exceeds the chosen bucket").
func (fs *FeatureSelector) computeSplitAtBucket(f int, buckets Buckets, bucket int, boundaryResponse float32) float32 {
	ord := fs.Ord[f]
	responses := fs.R[f]

	filtered := make([]float32, 0, len(ord))
	for _, p := range ord {
		if buckets.BucketOf[p] <= bucket {
			filtered = append(filtered, responses[p])
		}
	}

	if len(filtered) == 0 {
		return boundaryResponse
	}

	lowIdx := -1
	for i, r := range filtered {
		if r < boundaryResponse {
			lowIdx = i
		} else {
			break
		}
	}

	switch {
	case lowIdx == -1:
		return filtered[0]
	case lowIdx == len(filtered)-1:
		return filtered[lowIdx]
	default:
		return (filtered[lowIdx] + filtered[lowIdx+1]) / 2
	}
}

func absf32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}

func sqrtf32(v float32) float32 {
	return float32(math.Sqrt(float64(v)))
}
