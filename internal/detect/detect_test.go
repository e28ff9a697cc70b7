package detect

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterDetections_SuppressesOverlapping(t *testing.T) {
	detections := []Detection{
		{X: 0, Y: 0, Width: 10, Height: 10, Score: 0.9},
		{X: 1, Y: 1, Width: 10, Height: 10, Score: 0.5},
		{X: 50, Y: 50, Width: 10, Height: 10, Score: 0.8},
	}

	kept := FilterDetections(detections, 0.3)
	assert.Len(t, kept, 2)

	scores := map[float32]bool{}
	for _, d := range kept {
		scores[d.Score] = true
	}
	assert.True(t, scores[0.9])
	assert.True(t, scores[0.8])
	assert.False(t, scores[0.5])
}

func TestFilterDetections_Empty(t *testing.T) {
	assert.Nil(t, FilterDetections(nil, 0.5))
}

func TestOverlapDims_NonOverlapping(t *testing.T) {
	a := Detection{X: 0, Y: 0, Width: 5, Height: 5}
	b := Detection{X: 100, Y: 100, Width: 5, Height: 5}
	w, h := overlapDims(a, b)
	assert.LessOrEqual(t, w, 0)
	assert.LessOrEqual(t, h, 0)
}
