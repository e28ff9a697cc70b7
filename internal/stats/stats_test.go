package stats

import (
	"bytes"
	"strings"
	"testing"

	"github.com/MeKo-Tech/boostcascade/internal/patch"
	"github.com/MeKo-Tech/boostcascade/internal/trainer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteIterationCSV(t *testing.T) {
	var buf bytes.Buffer
	rows := []trainer.IterationStats{
		{Iteration: 0, ExpLoss: 1.5, Error: 0.1, PosError: 0.05, NegError: 0.15, Updated: 10, AvgFeatures: 1.0},
	}
	require.NoError(t, WriteIterationCSV(&buf, rows))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, strings.Join(IterationCSVHeader, ","), lines[0])
}

func TestComputeROC_MonotonicCounts(t *testing.T) {
	activations := []float32{5, 4, 3, 2, 1}
	labels := []int8{1, -1, 1, -1, 1}

	points := ComputeROC(activations, labels, 1)
	require.Len(t, points, 5)
	for i := 1; i < len(points); i++ {
		assert.GreaterOrEqual(t, points[i].TruePositives, points[i-1].TruePositives)
		assert.GreaterOrEqual(t, points[i].FalsePositives, points[i-1].FalsePositives)
	}
}

func TestWritePGM_Header(t *testing.T) {
	p := patch.New(2, 2, 1)
	var buf bytes.Buffer
	require.NoError(t, WritePGM(&buf, p))
	assert.True(t, strings.HasPrefix(buf.String(), "P5\n2 2\n255\n"))
}
