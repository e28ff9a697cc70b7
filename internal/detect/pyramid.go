// Package detect implements the multi-scale sliding-window detector: an
// image pyramid of per-scale activation grids, merged into one grid at the
// base resolution, thresholded into candidate boxes, and pruned by
// non-maximum suppression.
package detect

import (
	"math"

	"github.com/MeKo-Tech/boostcascade/internal/patch"
	"github.com/MeKo-Tech/boostcascade/internal/scanner"
)

// ScaleLevel is one level of the activation pyramid: the scale factor
// relative to the original frame, and the dense activation grid computed at
// that scale's resolution.
type ScaleLevel struct {
	Scale float64
	Grid  [][]float32
}

// ComputeActivationPyramid resizes frame to each of the configured scales,
// s_k = initialScale / scalingFactor^k for k in [0,numScales), and runs the
// scanner over each resized frame's integral image.
func ComputeActivationPyramid(scan *scanner.SingleScaleDetector, frame *patch.Patch, initialScale, scalingFactor float64, numScales int, filtered bool) []ScaleLevel {
	levels := make([]ScaleLevel, 0, numScales)

	for k := range numScales {
		scale := initialScale / math.Pow(scalingFactor, float64(k))

		scaled := resizeFrame(frame, scale)
		scaled.ComputeIntegralImage()

		var grid [][]float32
		if filtered {
			grid = scan.EvaluateAllPatchesFiltered(scaled)
		} else {
			grid = scan.EvaluateAllPatches(scaled)
		}

		levels = append(levels, ScaleLevel{Scale: scale, Grid: grid})
	}

	return levels
}

// resizeFrame produces a new Patch scaled by factor, using area-downsampling
// when shrinking and bilinear upsampling when enlarging (patch.ExtractLabel).
func resizeFrame(frame *patch.Patch, factor float64) *patch.Patch {
	w := int(float64(frame.Width) * factor)
	h := int(float64(frame.Height) * factor)
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}

	dst := patch.New(w, h, frame.Channels)
	label := patch.Label{X: 0, Y: 0, W: frame.Width, H: frame.Height}
	frame.ExtractLabel(label, dst, false)
	return dst
}
