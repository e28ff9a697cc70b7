package patch

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

// ImageError wraps a failure converting between image.Image and Patch.
type ImageError struct {
	Operation string
	Err       error
}

func (e *ImageError) Error() string {
	return fmt.Sprintf("patch: image error in %s: %v", e.Operation, e.Err)
}

func (e *ImageError) Unwrap() error { return e.Err }

// FromImage converts a decoded image into a single-channel grayscale Patch
// ready for ComputeIntegralImage, using imaging.Clone to normalize the
// source into a concrete image type before sampling.
func FromImage(img image.Image) (*Patch, error) {
	if img == nil {
		return nil, &ImageError{Operation: "from-image", Err: errors.New("input image is nil")}
	}

	gray := imaging.Clone(img)
	bounds := gray.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width <= 0 || height <= 0 {
		return nil, &ImageError{Operation: "from-image", Err: errors.New("invalid image dimensions")}
	}

	p := New(width, height, 1)
	for y := range height {
		for x := range width {
			r, g, b, _ := gray.At(x+bounds.Min.X, y+bounds.Min.Y).RGBA()
			lum := 0.2989*float32(r>>8) + 0.5870*float32(g>>8) + 0.1140*float32(b>>8)
			p.SetValue(x, y, 0, lum/255.0)
		}
	}
	return p, nil
}

// ToImage renders a single-channel Patch as a grayscale image.Image, for
// dumping activation/update maps for visualisation.
func (p *Patch) ToImage() (image.Image, error) {
	if p.Channels != 1 {
		return nil, &ImageError{Operation: "to-image", Err: fmt.Errorf("expected 1 channel, got %d", p.Channels)}
	}
	img := imaging.New(p.Width, p.Height, color.Black)
	for y := range p.Height {
		for x := range p.Width {
			v := p.Value(x, y, 0)
			byteVal := clampByte(v * 255.0)
			img.Set(x, y, color.Gray{Y: byteVal})
		}
	}
	return img, nil
}

func clampByte(v float32) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
