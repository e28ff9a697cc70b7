// Package scanner implements the single-scale sliding-window evaluator: it
// runs a classifier's activation protocol at every window position of a
// fixed-size patch over one integral image, using the sequencer to skip
// pixels that are already guaranteed to fail a later active filter.
package scanner

import (
	"github.com/MeKo-Tech/boostcascade/internal/classifier"
	"github.com/MeKo-Tech/boostcascade/internal/patch"
	"github.com/MeKo-Tech/boostcascade/internal/sequencer"
)

// SingleScaleDetector evaluates one classifier over every window position of
// a single-scale integral image.
type SingleScaleDetector struct {
	Classifier *classifier.Classifier
	Sequencer  *sequencer.Sequencer
	Geometry   patch.Geometry

	// updatedStumps and numPixels accumulate across the most recent
	// EvaluateAllPatchesFiltered/Listed call, backing FeaturesPerPixel.
	updatedStumps int
	numPixels     int
}

// New builds a SingleScaleDetector for the given classifier and its
// precomputed sequencer (pass nil for BOOSTED classifiers, which never skip).
func New(c *classifier.Classifier, seq *sequencer.Sequencer, geom patch.Geometry) *SingleScaleDetector {
	return &SingleScaleDetector{Classifier: c, Sequencer: seq, Geometry: geom}
}

// windowCounts returns the number of valid window positions in each
// dimension for a frame of the given size.
func (d *SingleScaleDetector) windowCounts(frameWidth, frameHeight int) (int, int) {
	w := frameWidth - d.Geometry.Width + 1
	h := frameHeight - d.Geometry.Height + 1
	if w < 0 {
		w = 0
	}
	if h < 0 {
		h = 0
	}
	return w, h
}

// EvaluateAllPatches evaluates the classifier at every window position
// without any filter-driven skipping, returning a [y][x] activation grid.
// This is the unconditional baseline used for BOOSTED classifiers, which
// have no active filters to skip against.
func (d *SingleScaleDetector) EvaluateAllPatches(integral *patch.Patch) [][]float32 {
	cols, rows := d.windowCounts(integral.Width, integral.Height)
	grid := make([][]float32, rows)
	total := 0
	for y := 0; y < rows; y++ {
		grid[y] = make([]float32, cols)
		for x := 0; x < cols; x++ {
			grid[y][x] = d.Classifier.ActivationAt(integral, x, y)
			total += len(d.Classifier.Chains)
		}
	}
	d.numPixels = rows * cols
	d.updatedStumps = total
	return grid
}

// pixelState tracks one window position's progress through the chain
// sequence during filtered evaluation.
type pixelState struct {
	activation float32
	chain      int
	done       bool
}

// EvaluateAllPatchesFiltered evaluates the classifier at every window
// position, using the sequencer to jump directly to the furthest chain a
// pixel's current |activation| cannot yet be rejected by, and stopping a
// pixel early once a permanent filter rejects it. Matches the
// ComputeNextFeature chain-boundary walk of the reference detector, applied
// one whole chain at a time across all pixels (bulk-synchronous over chains
// rather than incremental per-feature).
func (d *SingleScaleDetector) EvaluateAllPatchesFiltered(integral *patch.Patch) [][]float32 {
	cols, rows := d.windowCounts(integral.Width, integral.Height)
	grid := make([][]float32, rows)
	states := make([]pixelState, rows*cols)
	for y := range rows {
		grid[y] = make([]float32, cols)
	}

	permanent := d.Classifier.Type == classifier.Cascade
	useMargin := d.Classifier.Type == classifier.Anytime
	additive := d.Classifier.Type == classifier.Anytime

	updated := 0
	numChains := len(d.Classifier.Chains)

	for i := range states {
		states[i].chain = 0
		if d.Sequencer != nil {
			gate := float32(0)
			states[i].chain = d.Sequencer.NextChain(0, gate)
		}
	}

	for c := range numChains {
		filter := d.Classifier.Filters[c]
		ch := &d.Classifier.Chains[c]

		for idx := range states {
			st := &states[idx]
			if st.done || st.chain != c {
				continue
			}

			y, x := idx/cols, idx%cols

			gateIn := st.activation
			if useMargin {
				gateIn = absf32(st.activation)
			}

			if filter.Passes(gateIn) {
				if filter.Active && !additive {
					st.activation = 0
				}
				for j := range ch.Stumps {
					st.activation += ch.Weights[j] * ch.Stumps[j].EvaluateAt(integral, x, y)
				}
				updated++
			} else if permanent {
				st.done = true
				continue
			}

			if c == numChains-1 {
				st.done = true
				continue
			}

			next := c + 1
			if d.Sequencer != nil {
				gate := st.activation
				if useMargin {
					gate = absf32(st.activation)
				}
				next = d.Sequencer.NextChain(c+1, gate)
			}
			st.chain = next
		}
	}

	for idx, st := range states {
		y, x := idx/cols, idx%cols
		grid[y][x] = st.activation
	}

	d.numPixels = rows * cols
	d.updatedStumps = updated
	return grid
}

// EvaluateAllPatchesListed evaluates only the window positions named by
// listed (flat y*cols+x indices), leaving every other grid cell at zero.
// Used by the multi-scale detector to refine activation only around
// previously-promising positions.
func (d *SingleScaleDetector) EvaluateAllPatchesListed(integral *patch.Patch, listed []int) [][]float32 {
	cols, rows := d.windowCounts(integral.Width, integral.Height)
	grid := make([][]float32, rows)
	for y := range rows {
		grid[y] = make([]float32, cols)
	}

	updated := 0
	for _, idx := range listed {
		y, x := idx/cols, idx%cols
		if y < 0 || y >= rows || x < 0 || x >= cols {
			continue
		}
		grid[y][x] = d.Classifier.ActivationAt(integral, x, y)
		updated += len(d.Classifier.Chains)
	}

	d.numPixels = rows * cols
	d.updatedStumps = updated
	return grid
}

// FeaturesPerPixel reports the average number of weak-learner evaluations
// performed per window position in the most recent EvaluateAllPatches* call.
// Kept as updated/numPixels, not divided further by chain count, matching
// the reference detector's FeaturesPerPixel exactly.
func (d *SingleScaleDetector) FeaturesPerPixel() float32 {
	if d.numPixels == 0 {
		return 0
	}
	return float32(d.updatedStumps) / float32(d.numPixels)
}

func absf32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
