package patch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeIntegralImage_S1(t *testing.T) {
	p := New(3, 3, 1)
	values := [][]float32{{1, 2, 3}, {4, 5, 6}, {7, 8, 9}}
	for y, row := range values {
		for x, v := range row {
			p.SetValue(x, y, 0, v)
		}
	}

	p.ComputeIntegralImage()

	want := [][]float32{{1, 3, 6}, {5, 12, 21}, {12, 27, 45}}
	for y, row := range want {
		for x, v := range row {
			assert.InDelta(t, v, p.Value(x, y, 0), 1e-6)
		}
	}
}

func TestRectArea_S2(t *testing.T) {
	p := New(3, 3, 1)
	values := [][]float32{{1, 2, 3}, {4, 5, 6}, {7, 8, 9}}
	for y, row := range values {
		for x, v := range row {
			p.SetValue(x, y, 0, v)
		}
	}
	p.ComputeIntegralImage()

	area0 := p.RectArea(Box{X0: 0, Y0: 0, X1: 1, Y1: 1}, 0)
	area1 := p.RectArea(Box{X0: 1, Y0: 1, X1: 2, Y1: 2}, 0)

	assert.InDelta(t, float32(5), area0, 1e-6)
	assert.InDelta(t, float32(9), area1, 1e-6)

	value := 1.0*area0 - 1.0*area1
	assert.InDelta(t, float32(-4), value, 1e-6)
}

func TestNewWithData_DimensionMismatch(t *testing.T) {
	_, err := NewWithData(2, 2, 1, 1, []float32{1, 2, 3})
	require.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestExtractLabel_IdenticalDimensions(t *testing.T) {
	src := New(4, 4, 1)
	for i := range src.Data {
		src.Data[i] = float32(i)
	}

	dst := New(2, 2, 1)
	src.ExtractLabel(Label{X: 1, Y: 1, W: 2, H: 2}, dst, false)

	assert.Equal(t, src.Value(1, 1, 0), dst.Value(0, 0, 0))
	assert.Equal(t, src.Value(2, 1, 0), dst.Value(1, 0, 0))
}

func TestExtractLabel_AreaDownsample(t *testing.T) {
	src := New(4, 4, 1)
	for y := range 4 {
		for x := range 4 {
			src.SetValue(x, y, 0, 1.0)
		}
	}

	dst := New(2, 2, 1)
	src.ExtractLabel(Label{X: 0, Y: 0, W: 4, H: 4}, dst, false)

	for y := range 2 {
		for x := range 2 {
			assert.InDelta(t, float32(1.0), dst.Value(x, y, 0), 1e-5)
		}
	}
}

func TestExtractLabel_NearestUpsample(t *testing.T) {
	src := New(2, 2, 1)
	src.SetValue(0, 0, 0, 1)
	src.SetValue(1, 0, 0, 2)
	src.SetValue(0, 1, 0, 3)
	src.SetValue(1, 1, 0, 4)

	dst := New(4, 4, 1)
	src.ExtractLabel(Label{X: 0, Y: 0, W: 2, H: 2}, dst, true)

	assert.Equal(t, src.Value(0, 0, 0), dst.Value(0, 0, 0))
	assert.Equal(t, src.Value(1, 1, 0), dst.Value(3, 3, 0))
}

func TestExtractLabel_BilinearUpsample(t *testing.T) {
	src := New(2, 2, 1)
	src.SetValue(0, 0, 0, 0)
	src.SetValue(1, 0, 0, 10)
	src.SetValue(0, 1, 0, 0)
	src.SetValue(1, 1, 0, 10)

	dst := New(4, 2, 1)
	src.ExtractLabel(Label{X: 0, Y: 0, W: 2, H: 2}, dst, false)

	for x := range 4 {
		v := dst.Value(x, 0, 0)
		assert.GreaterOrEqual(t, v, float32(0))
		assert.LessOrEqual(t, v, float32(10))
	}
}

func TestClone(t *testing.T) {
	p := New(2, 2, 1)
	p.SetValue(0, 0, 0, 5)
	c := p.Clone()
	c.SetValue(0, 0, 0, 9)
	assert.NotEqual(t, p.Value(0, 0, 0), c.Value(0, 0, 0))
}
