// Package feature implements the two-box Haar rectangle feature evaluated
// against a Patch's integral image, and pool generation.
package feature

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/MeKo-Tech/boostcascade/internal/patch"
)

// ErrOutOfBounds is returned when a Box's coordinates fall outside the
// declared patch geometry.
var ErrOutOfBounds = errors.New("feature: box coordinates out of bounds")

// Box is a rectangle within a patch: 0 <= X0 < X1 < Width, 0 <= Y0 < Y1 < Height.
type Box struct {
	X0, Y0, X1, Y1 int
}

// Validate checks b against the given patch geometry.
func (b Box) Validate(g patch.Geometry) error {
	if b.X0 < 0 || b.X0 >= g.Width || b.X1 < 0 || b.X1 >= g.Width ||
		b.Y0 < 0 || b.Y0 >= g.Height || b.Y1 < 0 || b.Y1 >= g.Height {
		return fmt.Errorf("%w: box %+v against geometry %+v", ErrOutOfBounds, b, g)
	}
	return nil
}

func (b Box) toPatchBox() patch.Box {
	return patch.Box{X0: b.X0, Y0: b.Y0, X1: b.X1, Y1: b.Y1}
}

// Feature is a weighted sum of two integral-image rectangle areas over one
// channel: w0*area(b0) + w1*area(b1).
type Feature struct {
	B0, B1 Box
	W0, W1 float32
	C      int
}

// Evaluate computes the feature's response against p's integral image.
func (f Feature) Evaluate(integral *patch.Patch) float32 {
	return f.W0*integral.RectArea(f.B0.toPatchBox(), f.C) + f.W1*integral.RectArea(f.B1.toPatchBox(), f.C)
}

// EvaluateAt computes the feature's response against a window starting at
// (ox,oy) within a larger integral image, for sliding-window scanning over a
// full-frame integral rather than a per-window extracted Patch.
func (f Feature) EvaluateAt(integral *patch.Patch, ox, oy int) float32 {
	b0 := patch.Box{X0: f.B0.X0 + ox, Y0: f.B0.Y0 + oy, X1: f.B0.X1 + ox, Y1: f.B0.Y1 + oy}
	b1 := patch.Box{X0: f.B1.X0 + ox, Y0: f.B1.Y0 + oy, X1: f.B1.X1 + ox, Y1: f.B1.Y1 + oy}
	return f.W0*integral.RectArea(b0, f.C) + f.W1*integral.RectArea(b1, f.C)
}

// Validate checks f's channel and both boxes against the given geometry.
func (f Feature) Validate(g patch.Geometry) error {
	if f.C < 0 || f.C >= g.Channels {
		return fmt.Errorf("%w: channel %d outside [0,%d)", ErrOutOfBounds, f.C, g.Channels)
	}
	if err := f.B0.Validate(g); err != nil {
		return err
	}
	return f.B1.Validate(g)
}

// GeneratePool generates n random Haar features bounded by the given patch
// geometry, mirroring the source's GenerateFeatures: each box spans at
// least 2 pixels in each dimension, w0 is fixed at 1.0, w1 is a random
// sign, and the channel is drawn uniformly.
func GeneratePool(n int, g patch.Geometry, rng *rand.Rand) []Feature {
	if rng == nil {
		rng = rand.New(rand.NewPCG(1, 2))
	}

	features := make([]Feature, 0, n)
	for range n {
		b0 := randomBox(g, rng)
		b1 := randomBox(g, rng)

		sign := float32(1)
		if rng.IntN(2) == 0 {
			sign = -1
		}

		features = append(features, Feature{
			B0: b0,
			B1: b1,
			W0: 1.0,
			W1: sign,
			C:  rng.IntN(g.Channels),
		})
	}
	return features
}

func randomBox(g patch.Geometry, rng *rand.Rand) Box {
	x0 := rng.IntN(g.Width - 2)
	x1 := rng.IntN(g.Width-x0-2) + x0 + 2
	y0 := rng.IntN(g.Height - 2)
	y1 := rng.IntN(g.Height-y0-2) + y0 + 2
	return Box{X0: x0, Y0: y0, X1: x1, Y1: y1}
}
