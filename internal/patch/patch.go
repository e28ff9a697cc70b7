// Package patch implements the dense channel-major image tensor used
// throughout the detector: integral-image transforms, geometric rescaling,
// and the glue to/from image.Image.
package patch

import (
	"errors"
	"fmt"
)

// ErrDimensionMismatch is returned when a data slice's length does not
// match the declared Width*Height*Channels of a Patch.
var ErrDimensionMismatch = errors.New("patch: data length does not match width*height*channels")

// Geometry is the explicit replacement for the source's process-wide
// patch_width/patch_height/patch_depth flags (global mutable
// state"). A zero-valued Geometry means "adopt whatever the data/file says".
type Geometry struct {
	Width, Height, Channels int
}

// IsZero reports whether g is the declared-default geometry.
func (g Geometry) IsZero() bool {
	return g.Width == 0 && g.Height == 0 && g.Channels == 0
}

// Patch is a dense (Width x Height x Channels) float32 tensor in
// channel-major layout, plus a classification label.
type Patch struct {
	Width, Height, Channels int
	Label                   int8 // -1 or +1
	Data                    []float32
}

// New allocates a zeroed Patch of the given geometry.
func New(width, height, channels int) *Patch {
	return &Patch{
		Width:    width,
		Height:   height,
		Channels: channels,
		Data:     make([]float32, width*height*channels),
	}
}

// NewWithData wraps an existing buffer as a Patch, validating its length.
func NewWithData(width, height, channels int, label int8, data []float32) (*Patch, error) {
	if len(data) != width*height*channels {
		return nil, fmt.Errorf("patch.NewWithData: %w: got %d want %d", ErrDimensionMismatch, len(data), width*height*channels)
	}
	return &Patch{Width: width, Height: height, Channels: channels, Label: label, Data: data}, nil
}

// index returns the flat offset for (x,y,c) in channel-major layout.
func (p *Patch) index(x, y, c int) int {
	return c*p.Width*p.Height + y*p.Width + x
}

// Value returns the pixel value at (x,y,c).
func (p *Patch) Value(x, y, c int) float32 {
	return p.Data[p.index(x, y, c)]
}

// SetValue writes the pixel value at (x,y,c).
func (p *Patch) SetValue(x, y, c int, v float32) {
	p.Data[p.index(x, y, c)] = v
}

// Clone returns a deep copy of p.
func (p *Patch) Clone() *Patch {
	data := make([]float32, len(p.Data))
	copy(data, p.Data)
	return &Patch{Width: p.Width, Height: p.Height, Channels: p.Channels, Label: p.Label, Data: data}
}

// Geometry reports the patch's dimensions as a Geometry value.
func (p *Patch) Geometry() Geometry {
	return Geometry{Width: p.Width, Height: p.Height, Channels: p.Channels}
}

// ComputeIntegralImage turns p in place into its per-channel 2D prefix sum:
// after the call, Value(x,y,c) equals the sum of the original values over
// all (x',y') with x'<=x, y'<=y. Implemented as row-prefix then running
// column accumulation, matching the identity
// I(x,y) = p(x,y) + I(x-1,y) + I(x,y-1) - I(x-1,y-1).
func (p *Patch) ComputeIntegralImage() {
	for c := range p.Channels {
		for y := range p.Height {
			var rowTotal float32
			for x := range p.Width {
				var prev float32
				if y > 0 {
					prev = p.Value(x, y-1, c)
				}
				rowTotal += p.Value(x, y, c)
				p.SetValue(x, y, c, rowTotal+prev)
			}
		}
	}
}

// Box is an inclusive rectangle, axis-aligned within a patch, bounded at
// construction by 0 <= X0 < X1 < Width and 0 <= Y0 < Y1 < Height.
type Box struct {
	X0, Y0, X1, Y1 int
}

// RectArea computes the inclusive rectangle sum over channel c of integral
// image p using the standard four-corner formula:
// area = I(x1,y1) + I(x0,y0) - I(x0,y1) - I(x1,y0).
func (p *Patch) RectArea(b Box, c int) float32 {
	return p.Value(b.X1, b.Y1, c) + p.Value(b.X0, b.Y0, c) - p.Value(b.X0, b.Y1, c) - p.Value(b.X1, b.Y0, c)
}
