package selector

import (
	"math"
	"sort"
)

// BucketConfig holds the adaptive bucket-boundary construction thresholds
// from the training configuration (threshold_min_examples, ...).
type BucketConfig struct {
	MinExamples         int
	ExamplesStep        int
	MinPositiveExamples int
	MinNegativeExamples int
	MinDelta            float32
}

// Buckets assigns every patch to a bucket by |activation|, with adaptive
// boundaries for SpeedBoost joint selection.
type Buckets struct {
	// BucketOf[p] is the bucket index assigned to patch p.
	BucketOf []int
	// Thresholds[b] is the |activation| upper bound of bucket b; the final
	// entry is +Inf.
	Thresholds []float32
}

// BuildBuckets partitions patches by |activation| into adaptively-sized
// buckets: sorted ascending by magnitude, a new bucket boundary is cut
// whenever the running counts satisfy every one of MinExamples (total seen
// so far), ExamplesStep (patches since the last cut), MinPositiveExamples,
// MinNegativeExamples (within this bucket), and MinDelta (gap in |a| since
// the last cut).
func BuildBuckets(absActivations []float32, labels []int8, cfg BucketConfig) Buckets {
	n := len(absActivations)
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool {
		return absActivations[order[a]] < absActivations[order[b]]
	})

	bucketOf := make([]int, n)
	var thresholds []float32

	bucket := 0
	var count, posCount, negCount int
	var last float32

	for p := 1; p < n; p++ {
		p1 := order[p-1]

		if labels[p1] > 0 {
			posCount++
		} else {
			negCount++
		}
		count++
		bucketOf[p1] = bucket

		if absActivations[p1] == absActivations[order[p]] {
			continue
		}
		if p < cfg.MinExamples {
			continue
		}
		if count < cfg.ExamplesStep {
			continue
		}
		if posCount < cfg.MinPositiveExamples {
			continue
		}
		if negCount < cfg.MinNegativeExamples {
			continue
		}

		threshold := (absActivations[p1] + absActivations[order[p]]) / 2
		if threshold-last < cfg.MinDelta {
			continue
		}

		thresholds = append(thresholds, threshold)
		last = threshold
		count, posCount, negCount = 0, 0, 0
		bucket++
	}

	if n > 0 {
		bucketOf[order[n-1]] = bucket
	}
	thresholds = append(thresholds, float32(math.Inf(1)))
	return Buckets{BucketOf: bucketOf, Thresholds: thresholds}
}
