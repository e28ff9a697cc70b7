package chain

import (
	"testing"

	"github.com/MeKo-Tech/boostcascade/internal/stump"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppend_ParallelSlicesGrowTogether(t *testing.T) {
	var c Chain
	c.Append(stump.DecisionStump{Split: 1, Sign: 1}, 0.5, 0.1)
	c.Append(stump.DecisionStump{Split: 2, Sign: -1}, 0.7, 0.2)

	require.Equal(t, 2, c.Len())
	assert.Len(t, c.Weights, 2)
	assert.Len(t, c.Biases, 2)
	assert.InDelta(t, float32(0.2), c.LastBias(), 1e-6)
}

func TestLastBias_Empty(t *testing.T) {
	var c Chain
	assert.Equal(t, float32(0), c.LastBias())
}
