package detect

import (
	"math"
	"sort"

	"github.com/MeKo-Tech/boostcascade/internal/patch"
	"github.com/MeKo-Tech/boostcascade/internal/scanner"
)

// Detection is one candidate window in the original frame's coordinates.
type Detection struct {
	X, Y, Width, Height int
	Score               float32
}

// Detector runs a single-scale scanner over an image pyramid and merges the
// per-scale activation grids into one set of non-maximum-suppressed
// detections.
type Detector struct {
	Scanner            *scanner.SingleScaleDetector
	InitialScale       float64
	ScalingFactor      float64
	NumScales          int
	DetectionThreshold float32
	MergingOverlap     float32
	Filtered           bool
}

// Detect runs the full pipeline: pyramid, merge, threshold, NMS.
func (d *Detector) Detect(frame *patch.Patch) []Detection {
	pyramid := ComputeActivationPyramid(d.Scanner, frame, d.InitialScale, d.ScalingFactor, d.NumScales, d.Filtered)
	merged, baseRows, baseCols := ComputeMergedActivation(pyramid, d.Scanner.Geometry)
	candidates := ComputeDetections(merged, baseRows, baseCols, d.Scanner.Geometry, d.InitialScale, d.DetectionThreshold)
	return FilterDetections(candidates, d.MergingOverlap)
}

// ComputeMergedActivation upsamples every pyramid level's grid (nearest
// neighbour) to the base (k=0) resolution, padding each level first by
// (patchHeight+1)/2 rows and (patchWidth+1)/2 columns of -Inf so that a
// window near a scaled frame's edge does not spuriously dominate the
// pointwise max, then takes the pointwise maximum across levels.
func ComputeMergedActivation(levels []ScaleLevel, geom patch.Geometry) (grid [][]float32, rows, cols int) {
	if len(levels) == 0 {
		return nil, 0, 0
	}

	base := levels[0].Grid
	rows = len(base)
	if rows > 0 {
		cols = len(base[0])
	}

	merged := make([][]float32, rows)
	for y := range rows {
		merged[y] = make([]float32, cols)
		for x := range cols {
			merged[y][x] = negInf()
		}
	}

	padY := (geom.Height + 1) / 2
	padX := (geom.Width + 1) / 2

	for _, level := range levels {
		padded := padGrid(level.Grid, padY, padX)
		factor := 1.0
		if levels[0].Scale != 0 {
			factor = level.Scale / levels[0].Scale
		}
		upsampled := upsampleNearest(padded, factor, rows, cols)

		for y := range rows {
			for x := range cols {
				if upsampled[y][x] > merged[y][x] {
					merged[y][x] = upsampled[y][x]
				}
			}
		}
	}

	return merged, rows, cols
}

func padGrid(grid [][]float32, padY, padX int) [][]float32 {
	rows := len(grid)
	cols := 0
	if rows > 0 {
		cols = len(grid[0])
	}

	outRows := rows + 2*padY
	outCols := cols + 2*padX
	out := make([][]float32, outRows)
	for y := range outRows {
		out[y] = make([]float32, outCols)
		for x := range outCols {
			out[y][x] = negInf()
		}
	}
	for y := range rows {
		copy(out[y+padY][padX:padX+cols], grid[y])
	}
	return out
}

// upsampleNearest inflates src by factor (src resolution relative to the
// base resolution) into an outRows x outCols grid via nearest-neighbour
// lookup.
func upsampleNearest(src [][]float32, factor float64, outRows, outCols int) [][]float32 {
	srcRows := len(src)
	srcCols := 0
	if srcRows > 0 {
		srcCols = len(src[0])
	}

	out := make([][]float32, outRows)
	for y := range outRows {
		out[y] = make([]float32, outCols)
		for x := range outCols {
			sy := int(float64(y) * factor)
			sx := int(float64(x) * factor)
			sy = clampInt(sy, 0, srcRows-1)
			sx = clampInt(sx, 0, srcCols-1)
			out[y][x] = src[sy][sx]
		}
	}
	return out
}

func clampInt(v, lo, hi int) int {
	if hi < lo {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func negInf() float32 {
	return float32(math.Inf(-1))
}

// ComputeDetections thresholds the merged grid, emitting one Detection per
// window position whose score exceeds threshold, sized by the patch
// geometry scaled to the base pyramid level.
func ComputeDetections(merged [][]float32, rows, cols int, geom patch.Geometry, baseScale float64, threshold float32) []Detection {
	w := int(float64(geom.Width) / baseScale)
	h := int(float64(geom.Height) / baseScale)

	var detections []Detection
	for y := range rows {
		for x := range cols {
			score := merged[y][x]
			if score >= threshold {
				detections = append(detections, Detection{
					X: int(float64(x) / baseScale), Y: int(float64(y) / baseScale),
					Width: w, Height: h, Score: score,
				})
			}
		}
	}
	return detections
}

// FilterDetections performs non-maximum suppression: sorted ascending by
// score, iterate from the highest down, and suppress a lower-scoring
// candidate whenever the overlap area with an already-kept, higher-scoring
// detection exceeds overlap * the candidate's OWN area (not the standard
// intersection-over-union denominator).
func FilterDetections(detections []Detection, overlap float32) []Detection {
	if len(detections) == 0 {
		return nil
	}

	sorted := append([]Detection{}, detections...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Score < sorted[j].Score })

	kept := make([]Detection, 0, len(sorted))
	suppressed := make([]bool, len(sorted))

	for i := len(sorted) - 1; i >= 0; i-- {
		if suppressed[i] {
			continue
		}
		candidate := sorted[i]
		kept = append(kept, candidate)

		for j := i - 1; j >= 0; j-- {
			if suppressed[j] {
				continue
			}
			other := sorted[j]
			ow, oh := overlapDims(candidate, other)
			if ow <= 0 || oh <= 0 {
				continue
			}
			area := float32(other.Width * other.Height)
			if area <= 0 {
				continue
			}
			if float32(ow*oh) > overlap*area {
				suppressed[j] = true
			}
		}
	}

	return kept
}

func overlapDims(a, b Detection) (int, int) {
	x0 := maxInt(a.X, b.X)
	y0 := maxInt(a.Y, b.Y)
	x1 := minInt(a.X+a.Width, b.X+b.Width)
	y1 := minInt(a.Y+a.Height, b.Y+b.Height)
	return x1 - x0, y1 - y0
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
