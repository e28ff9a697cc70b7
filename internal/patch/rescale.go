package patch

// Label names a rectangular region of a source patch to be extracted into a
// (possibly differently sized) destination patch.
type Label struct {
	X, Y, W, H int
}

// ExtractLabel copies the region named by l out of p into dst, selecting a
// resampling mode automatically:
//   - identical dimensions: plain copy
//   - nearest: only when explicitly requested via the nearest flag (used for
//     up-sampling activation maps and shifted-map alignment)
//   - area (box-filter averaging): when both l.W > dst.Width and
//     l.H > dst.Height (downsampling only)
//   - bilinear: otherwise
func (p *Patch) ExtractLabel(l Label, dst *Patch, nearest bool) {
	switch {
	case l.W == dst.Width && l.H == dst.Height:
		for x := range dst.Width {
			for y := range dst.Height {
				for c := range p.Channels {
					dst.SetValue(x, y, c, p.Value(x+l.X, y+l.Y, c))
				}
			}
		}
	case nearest:
		p.extractLabelNearest(l, dst)
	case l.W > dst.Width && l.H > dst.Height:
		p.extractLabelArea(l, dst)
	default:
		p.extractLabelInterp(l, dst)
	}
}

// extractLabelArea performs box-filter downsampling in two 1D passes: first
// squashing x into a (dst.Width x l.H) scratch buffer, distributing each
// source column between the two straddled destination columns with weight
// alpha = xscale-rem, then squashing y the same way, then dividing by
// xscale*yscale.
func (p *Patch) extractLabelArea(l Label, dst *Patch) {
	pw, ph := dst.Width, dst.Height
	lw, lh := l.W, l.H
	x0, y0 := l.X, l.Y
	xscale := float32(lw) / float32(pw)
	yscale := float32(lh) / float32(ph)

	buf := New(pw, lh, p.Channels)

	var rem float32
	px := 0
	for x := range lw {
		if rem+1 < xscale {
			for y := range lh {
				for c := range p.Channels {
					buf.SetValue(px, y, c, buf.Value(px, y, c)+p.Value(x+x0, y+y0, c))
				}
			}
			rem++
		} else {
			alpha := xscale - rem
			for y := range lh {
				for c := range p.Channels {
					buf.SetValue(px, y, c, buf.Value(px, y, c)+alpha*p.Value(x+x0, y+y0, c))
				}
			}
			if px < pw-1 {
				for y := range lh {
					for c := range p.Channels {
						buf.SetValue(px+1, y, c, (1-alpha)*p.Value(x+x0, y+y0, c))
					}
				}
			}
			px++
			rem = 1 - alpha
		}
	}

	for x := range pw {
		for y := range ph {
			for c := range p.Channels {
				dst.SetValue(x, y, c, 0)
			}
		}
	}

	rem = 0
	py := 0
	for y := range lh {
		if rem+1 < yscale {
			for x := range pw {
				for c := range p.Channels {
					dst.SetValue(x, py, c, dst.Value(x, py, c)+buf.Value(x, y, c))
				}
			}
			rem++
		} else {
			alpha := yscale - rem
			for x := range pw {
				for c := range p.Channels {
					dst.SetValue(x, py, c, dst.Value(x, py, c)+alpha*buf.Value(x, y, c))
				}
			}
			if py < ph-1 {
				for x := range pw {
					for c := range p.Channels {
						dst.SetValue(x, py+1, c, (1-alpha)*buf.Value(x, y, c))
					}
				}
			}
			py++
			rem = 1 - alpha
		}
	}

	for x := range pw {
		for y := range ph {
			for c := range p.Channels {
				dst.SetValue(x, y, c, dst.Value(x, y, c)/(xscale*yscale))
			}
		}
	}
}

// extractLabelInterp resamples using centre-of-pixel bilinear interpolation,
// clamping sample coordinates to source bounds.
func (p *Patch) extractLabelInterp(l Label, dst *Patch) {
	pw, ph := dst.Width, dst.Height
	lw, lh := l.W, l.H
	x0, y0 := l.X, l.Y
	xscale := float32(lw) / float32(pw)
	yscale := float32(lh) / float32(ph)

	clamp := func(v, lo, hi int) int {
		if v < lo {
			return lo
		}
		if v > hi {
			return hi
		}
		return v
	}

	for x := range pw {
		for y := range ph {
			ix := (float32(x) + 0.5) * xscale
			iy := (float32(y) + 0.5) * yscale
			xa := int(floor32(ix + float32(x0) - 0.5))
			ya := int(floor32(iy + float32(y0) - 0.5))
			xb := int(ceil32(ix + float32(x0) - 0.5))
			yb := int(ceil32(iy + float32(y0) - 0.5))

			xa = clamp(xa, 0, p.Width-1)
			ya = clamp(ya, 0, p.Height-1)
			xb = clamp(xb, 0, p.Width-1)
			yb = clamp(yb, 0, p.Height-1)

			var px, py float32 = 1.0, 1.0
			if xb-xa > 0 {
				px = (ix + float32(x0) - 0.5 - float32(xa)) / float32(xb-xa)
			}
			if yb-ya > 0 {
				py = (iy + float32(y0) - 0.5 - float32(ya)) / float32(yb-ya)
			}

			for c := range p.Channels {
				inter0 := (1-py)*p.Value(xa, ya, c) + py*p.Value(xa, yb, c)
				inter1 := (1-py)*p.Value(xb, ya, c) + py*p.Value(xb, yb, c)
				dst.SetValue(x, y, c, (1-px)*inter0+px*inter1)
			}
		}
	}
}

// extractLabelNearest resamples using nearest-neighbour, used for
// up-sampling activation maps back to frame resolution.
func (p *Patch) extractLabelNearest(l Label, dst *Patch) {
	pw, ph := dst.Width, dst.Height
	lw, lh := l.W, l.H
	x0, y0 := l.X, l.Y
	xscale := float32(lw) / float32(pw)
	yscale := float32(lh) / float32(ph)

	clamp := func(v, lo, hi int) int {
		if v < lo {
			return lo
		}
		if v > hi {
			return hi
		}
		return v
	}

	for x := range pw {
		for y := range ph {
			ix := (float32(x) + 0.5) * xscale
			iy := (float32(y) + 0.5) * yscale
			xn := clamp(int(ix+float32(x0)), 0, p.Width-1)
			yn := clamp(int(iy+float32(y0)), 0, p.Height-1)

			for c := range p.Channels {
				dst.SetValue(x, y, c, p.Value(xn, yn, c))
			}
		}
	}
}

func floor32(v float32) float32 {
	i := int(v)
	if v < 0 && float32(i) != v {
		i--
	}
	return float32(i)
}

func ceil32(v float32) float32 {
	i := int(v)
	if v > 0 && float32(i) != v {
		i++
	}
	return float32(i)
}
