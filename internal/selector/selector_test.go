package selector

import (
	"testing"

	"github.com/MeKo-Tech/boostcascade/internal/feature"
	"github.com/MeKo-Tech/boostcascade/internal/patch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildIntegral constructs a single-channel 2x2 patch whose top-left pixel
// carries the given value, with its integral image precomputed.
func buildIntegral(value float32) *patch.Patch {
	p := patch.New(2, 2, 1)
	p.SetValue(0, 0, 0, value)
	p.ComputeIntegralImage()
	return p
}

// identityFeature evaluates to the value of the top-left pixel via a single
// 1x1 box with weight 1.
func identityFeature() feature.Feature {
	return feature.Feature{
		B0: feature.Box{X0: 0, Y0: 0, X1: 1, Y1: 1},
		B1: feature.Box{X0: 0, Y0: 0, X1: 0, Y1: 0},
		W0: 1,
		W1: 0,
		C:  0,
	}
}

func TestSelectFeature_SeparatesClasses(t *testing.T) {
	features := []feature.Feature{identityFeature()}
	integrals := []*patch.Patch{
		buildIntegral(-5), // negative
		buildIntegral(-3), // negative
		buildIntegral(3),  // positive
		buildIntegral(5),  // positive
	}
	labels := []int8{-1, -1, 1, 1}
	weights := []float32{0.25, 0.25, 0.25, 0.25}

	fs := New(features, integrals, labels, 2)
	result, err := fs.SelectFeature(weights)
	require.NoError(t, err)

	assert.Equal(t, 0, result.FeatureIndex)
	assert.InDelta(t, float32(0), result.Err, 1e-6)

	for i, img := range integrals {
		out := result.Stump.Evaluate(img)
		want := float32(labels[i])
		assert.InDelta(t, want, out, 1e-6)
	}
}

func TestSelectFeature_NoPatches(t *testing.T) {
	fs := New([]feature.Feature{identityFeature()}, nil, nil, 1)
	_, err := fs.SelectFeature(nil)
	assert.ErrorIs(t, err, ErrNoPatches)
}

func TestUpdateActivations_GatedByPasses(t *testing.T) {
	features := []feature.Feature{identityFeature()}
	integrals := []*patch.Patch{buildIntegral(-1), buildIntegral(1)}
	labels := []int8{-1, 1}
	fs := New(features, integrals, labels, 1)

	result, err := fs.SelectFeature([]float32{0.5, 0.5})
	require.NoError(t, err)

	activations := make([]float32, 2)
	passAll := func(float32) bool { return true }
	fs.UpdateActivations(result.FeatureIndex, result.Stump, 2.0, passAll, activations)

	assert.InDelta(t, float32(-2.0), activations[0], 1e-6)
	assert.InDelta(t, float32(2.0), activations[1], 1e-6)

	passNone := func(float32) bool { return false }
	before := append([]float32{}, activations...)
	fs.UpdateActivations(result.FeatureIndex, result.Stump, 2.0, passNone, activations)
	assert.Equal(t, before, activations)
}

func TestSelectFeatureAndThreshold_PicksSeparatingFeature(t *testing.T) {
	goodFeature := identityFeature()
	badFeature := feature.Feature{
		B0: feature.Box{X0: 0, Y0: 0, X1: 1, Y1: 1},
		B1: feature.Box{X0: 0, Y0: 0, X1: 0, Y1: 0},
		W0: 0,
		W1: 0,
		C:  0,
	}

	features := []feature.Feature{badFeature, goodFeature}
	integrals := []*patch.Patch{
		buildIntegral(-4), buildIntegral(-3), buildIntegral(-2), buildIntegral(-1),
		buildIntegral(1), buildIntegral(2), buildIntegral(3), buildIntegral(4),
	}
	labels := []int8{-1, -1, -1, -1, 1, 1, 1, 1}
	weights := make([]float32, len(labels))
	activations := make([]float32, len(labels))
	for i := range weights {
		weights[i] = 1.0 / float32(len(labels))
	}

	fs := New(features, integrals, labels, 2)
	cfg := BucketConfig{
		MinExamples:         1,
		ExamplesStep:        1,
		MinPositiveExamples: 0,
		MinNegativeExamples: 0,
		MinDelta:            0,
	}

	result, err := fs.SelectFeatureAndThreshold(weights, activations, cfg)
	require.NoError(t, err)
	assert.Equal(t, 1, result.FeatureIndex)
}

func TestSelectFeatureAndThreshold_NoPatches(t *testing.T) {
	fs := New([]feature.Feature{identityFeature()}, nil, nil, 1)
	_, err := fs.SelectFeatureAndThreshold(nil, nil, BucketConfig{})
	assert.ErrorIs(t, err, ErrNoPatches)
}
