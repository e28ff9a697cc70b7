// Package sequencer implements the cascade/anytime pixel scheduler: given a
// classifier's per-chain filter thresholds, it precomputes, for every chain
// index, the furthest chain reachable by a patch whose running |activation|
// is below that chain's filter threshold, letting the scanner skip straight
// to the next chain a pixel could possibly still pass.
package sequencer

import (
	"fmt"
	"math"

	"github.com/MeKo-Tech/boostcascade/internal/classifier"
	"github.com/MeKo-Tech/boostcascade/internal/filter"
)

// Sequencer holds, for every chain index i, the biggest chain index reachable
// from i without being rejected (NextBiggest[i]) and the |activation|
// threshold below which that is guaranteed (MaxThreshold[i]).
type Sequencer struct {
	NextBiggest  []int
	MaxThreshold []float32

	filters []filter.Filter
}

// New builds a Sequencer from a classifier's filters. Only active filters
// constrain the walk; inactive filters always pass, so they do not appear as
// a wall between chains. Matches the Sequencer constructor of the reference
// detector: scan chains back to front, and within each contiguous run of
// active filters, find for every member the nearest later member with a
// strictly more lenient gate (bigger threshold for less=true filters,
// smaller threshold for less=false ones) via a monotonic stack. A member
// with no more lenient chain ahead of it jumps straight past the run: any
// patch that can't clear the most lenient gate in the run can't clear any
// of the stricter ones either.
func New(c *classifier.Classifier) *Sequencer {
	n := len(c.Filters)
	nextBiggest := make([]int, n)
	maxThreshold := make([]float32, n)

	i := n - 1
	for i >= 0 {
		if !c.Filters[i].Active {
			if i == n-1 {
				nextBiggest[i] = i
				maxThreshold[i] = float32(math.Inf(1))
			} else {
				nextBiggest[i] = nextBiggest[i+1]
				maxThreshold[i] = maxThreshold[i+1]
			}
			i--
			continue
		}

		end := i
		start := i
		for start > 0 && c.Filters[start-1].Active {
			start--
		}
		runEnd := end + 1
		if runEnd >= n {
			runEnd = n - 1
		}
		solveRun(c.Filters, start, end, runEnd, nextBiggest, maxThreshold)
		i = start - 1
	}

	return &Sequencer{NextBiggest: nextBiggest, MaxThreshold: maxThreshold, filters: c.Filters}
}

// solveRun fills nextBiggest and maxThreshold for the contiguous active run
// filters[start..end]. Every member of the run gets the same maxThreshold:
// the most lenient threshold anywhere in the run (max for less=true filters,
// min for less=false ones). nextBiggest[k] is the nearest j>k in the run
// whose threshold is strictly more lenient than filters[k]'s, found with a
// monotonic stack scanning right to left; runEnd if there is none.
func solveRun(filters []filter.Filter, start, end, runEnd int, nextBiggest []int, maxThreshold []float32) {
	less := filters[start].Less

	extreme := filters[start].Threshold
	for k := start + 1; k <= end; k++ {
		t := filters[k].Threshold
		if (less && t > extreme) || (!less && t < extreme) {
			extreme = t
		}
	}
	for k := start; k <= end; k++ {
		maxThreshold[k] = extreme
	}

	// lenience[k] increases with how lenient filters[k]'s gate is, so "next
	// strictly more lenient" becomes a classic next-strictly-greater query
	// regardless of the run's Less direction.
	lenience := func(k int) float32 {
		if less {
			return filters[k].Threshold
		}
		return -filters[k].Threshold
	}

	stack := make([]int, 0, end-start+1)
	for k := end; k >= start; k-- {
		lk := lenience(k)
		for len(stack) > 0 && lenience(stack[len(stack)-1]) <= lk {
			stack = stack[:len(stack)-1]
		}
		if len(stack) == 0 {
			nextBiggest[k] = runEnd
		} else {
			nextBiggest[k] = stack[len(stack)-1]
		}
		stack = append(stack, k)
	}
}

// NextChain returns the furthest chain index a patch with the given
// |activation| can be advanced to directly, walking forward through chains
// it is already guaranteed to fail until it reaches one whose (possibly
// inactive) filter it clears. cur must be a valid chain index and
// absActivation must be non-negative: activation magnitude is always >= 0 by
// construction, so a negative input indicates a caller bug.
func (s *Sequencer) NextChain(cur int, absActivation float32) int {
	if absActivation < 0 {
		panic(fmt.Sprintf("sequencer: NextChain called with negative |activation| %v", absActivation))
	}

	for {
		f := s.filters[cur]
		if f.Passes(absActivation) {
			return cur
		}
		next := s.NextBiggest[cur]
		if next == cur {
			return cur
		}
		cur = next
	}
}
