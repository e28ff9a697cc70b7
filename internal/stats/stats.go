// Package stats implements the plain-text training telemetry: the
// per-iteration statistics CSV, the ROC curve CSV, and PGM/PPM patch dumps
// used to inspect training data by eye. These are deliberately stdlib-only:
// no pack dependency offers CSV or NetPBM writing, and pulling one in for a
// handful of numeric columns or a byte-for-byte image dump would add weight
// without buying anything idiomatic.
package stats

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/MeKo-Tech/boostcascade/internal/patch"
	"github.com/MeKo-Tech/boostcascade/internal/trainer"
)

// IterationCSVHeader is the fixed column order for the training statistics
// log.
var IterationCSVHeader = []string{
	"iteration", "exploss", "error", "pos_error", "neg_error", "threshold", "updated", "avgfeat",
}

// WriteIterationCSV writes the header followed by one row per stats entry.
func WriteIterationCSV(w io.Writer, rows []trainer.IterationStats) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(IterationCSVHeader); err != nil {
		return fmt.Errorf("stats: write header: %w", err)
	}
	for _, r := range rows {
		record := []string{
			strconv.Itoa(r.Iteration),
			formatFloat(r.ExpLoss),
			formatFloat(r.Error),
			formatFloat(r.PosError),
			formatFloat(r.NegError),
			formatFloat(r.Threshold),
			strconv.Itoa(r.Updated),
			formatFloat(r.AvgFeatures),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("stats: write row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("stats: flush: %w", err)
	}
	return nil
}

func formatFloat(v float32) string {
	return strconv.FormatFloat(float64(v), 'g', -1, 32)
}

// ROCPoint is one sampled point of a ROC curve: raw false-positive and
// true-positive counts (not rates), matching the reference OutputROC.
type ROCPoint struct {
	FalsePositives int
	TruePositives  int
}

// ComputeROC scans activations (paired with labels) in descending order and
// samples a point every sampleEvery boundaries, reporting raw
// (false_positives, true_positives) counts accumulated so far.
func ComputeROC(activations []float32, labels []int8, sampleEvery int) []ROCPoint {
	type sample struct {
		activation float32
		label      int8
	}
	samples := make([]sample, len(activations))
	for i := range activations {
		samples[i] = sample{activation: activations[i], label: labels[i]}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i].activation > samples[j].activation })

	if sampleEvery <= 0 {
		sampleEvery = 1
	}

	var fp, tp int
	var points []ROCPoint
	for i, s := range samples {
		if s.label > 0 {
			tp++
		} else {
			fp++
		}
		if i%sampleEvery == 0 {
			points = append(points, ROCPoint{FalsePositives: fp, TruePositives: tp})
		}
	}
	return points
}

// WriteROCCSV writes one "fp,tp" row per ROC point.
func WriteROCCSV(w io.Writer, points []ROCPoint) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"fp", "tp"}); err != nil {
		return fmt.Errorf("stats: write header: %w", err)
	}
	for _, p := range points {
		if err := cw.Write([]string{strconv.Itoa(p.FalsePositives), strconv.Itoa(p.TruePositives)}); err != nil {
			return fmt.Errorf("stats: write row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("stats: flush: %w", err)
	}
	return nil
}

// WritePGM writes p (single channel) as a binary-grayscale NetPBM (P5) image,
// clamping values to [0,255].
func WritePGM(w io.Writer, p *patch.Patch) error {
	if _, err := fmt.Fprintf(w, "P5\n%d %d\n255\n", p.Width, p.Height); err != nil {
		return fmt.Errorf("stats: write pgm header: %w", err)
	}
	buf := make([]byte, p.Width*p.Height)
	for y := range p.Height {
		for x := range p.Width {
			buf[y*p.Width+x] = clampByte(p.Value(x, y, 0))
		}
	}
	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("stats: write pgm data: %w", err)
	}
	return nil
}

// WritePPM writes a 3-channel patch as a binary-color NetPBM (P6) image.
func WritePPM(w io.Writer, p *patch.Patch) error {
	if _, err := fmt.Fprintf(w, "P6\n%d %d\n255\n", p.Width, p.Height); err != nil {
		return fmt.Errorf("stats: write ppm header: %w", err)
	}
	buf := make([]byte, p.Width*p.Height*3)
	for y := range p.Height {
		for x := range p.Width {
			idx := (y*p.Width + x) * 3
			buf[idx] = clampByte(p.Value(x, y, 0))
			buf[idx+1] = clampByte(p.Value(x, y, 1))
			buf[idx+2] = clampByte(p.Value(x, y, 2))
		}
	}
	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("stats: write ppm data: %w", err)
	}
	return nil
}

func clampByte(v float32) byte {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return byte(v)
}
