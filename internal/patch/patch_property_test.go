package patch

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// genNonNegativePatch generates a small non-negative single-channel patch.
func genNonNegativePatch() gopter.Gen {
	const w, h = 5, 5
	return gen.SliceOfN(w*h, gen.Float32Range(0, 100)).Map(func(data []float32) *Patch {
		p := New(w, h, 1)
		copy(p.Data, data)
		return p
	})
}

// TestIntegralImage_PrefixSumProperty verifies that
// integral(x,y,c) equals the sum of all original(i,j,c) with i<=x, j<=y.
func TestIntegralImage_PrefixSumProperty(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("integral image is the 2D prefix sum of the original", prop.ForAll(
		func(p *Patch) bool {
			original := p.Clone()
			p.ComputeIntegralImage()

			for y := range p.Height {
				for x := range p.Width {
					var want float32
					for j := 0; j <= y; j++ {
						for i := 0; i <= x; i++ {
							want += original.Value(i, j, 0)
						}
					}
					got := p.Value(x, y, 0)
					if diff := want - got; diff > 1e-2 || diff < -1e-2 {
						return false
					}
				}
			}
			return true
		},
		genNonNegativePatch(),
	))

	properties.TestingRun(t)
}
