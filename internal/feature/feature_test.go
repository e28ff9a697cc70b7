package feature

import (
	"math/rand/v2"
	"testing"

	"github.com/MeKo-Tech/boostcascade/internal/patch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluate_S2(t *testing.T) {
	p := patch.New(3, 3, 1)
	values := [][]float32{{1, 2, 3}, {4, 5, 6}, {7, 8, 9}}
	for y, row := range values {
		for x, v := range row {
			p.SetValue(x, y, 0, v)
		}
	}
	p.ComputeIntegralImage()

	f := Feature{
		B0: Box{X0: 0, Y0: 0, X1: 1, Y1: 1},
		B1: Box{X0: 1, Y0: 1, X1: 2, Y1: 2},
		W0: 1,
		W1: -1,
		C:  0,
	}

	got := f.Evaluate(p)
	assert.InDelta(t, float32(-4), got, 1e-6)
}

func TestBoxValidate_OutOfBounds(t *testing.T) {
	g := patch.Geometry{Width: 4, Height: 4, Channels: 1}
	b := Box{X0: 0, Y0: 0, X1: 5, Y1: 1}
	require.ErrorIs(t, b.Validate(g), ErrOutOfBounds)
}

func TestFeatureValidate_ChannelOutOfBounds(t *testing.T) {
	g := patch.Geometry{Width: 4, Height: 4, Channels: 1}
	f := Feature{B0: Box{0, 0, 1, 1}, B1: Box{0, 0, 2, 2}, W0: 1, W1: 1, C: 3}
	require.ErrorIs(t, f.Validate(g), ErrOutOfBounds)
}

func TestGeneratePool_BoundsAndCount(t *testing.T) {
	g := patch.Geometry{Width: 24, Height: 24, Channels: 2}
	rng := rand.New(rand.NewPCG(7, 11))
	pool := GeneratePool(50, g, rng)

	require.Len(t, pool, 50)
	for _, f := range pool {
		require.NoError(t, f.Validate(g))
		assert.Less(t, f.B0.X0, f.B0.X1)
		assert.Less(t, f.B0.Y0, f.B0.Y1)
		assert.Less(t, f.B1.X0, f.B1.X1)
		assert.Less(t, f.B1.Y0, f.B1.Y1)
	}
}
