package classifier

import (
	"testing"

	"github.com/MeKo-Tech/boostcascade/internal/chain"
	"github.com/MeKo-Tech/boostcascade/internal/feature"
	"github.com/MeKo-Tech/boostcascade/internal/filter"
	"github.com/MeKo-Tech/boostcascade/internal/patch"
	"github.com/MeKo-Tech/boostcascade/internal/stump"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func constantFeaturePatch(value float32) *patch.Patch {
	p := patch.New(2, 2, 1)
	p.SetValue(0, 0, 0, value)
	p.ComputeIntegralImage()
	return p
}

func constantStump(out float32) stump.DecisionStump {
	return stump.DecisionStump{
		Feature: feature.Feature{B0: feature.Box{X0: 0, Y0: 0, X1: 1, Y1: 1}, B1: feature.Box{X0: 0, Y0: 0, X1: 1, Y1: 1}, W0: 0, W1: 0, C: 0},
		Split:   0,
		Sign:    out,
	}
}

func TestPolicyBits(t *testing.T) {
	assert.False(t, Boosted.filtersUseMargin())
	assert.False(t, Boosted.filtersAreAdditive())
	assert.False(t, Boosted.filtersArePermanent())

	assert.False(t, Cascade.filtersUseMargin())
	assert.False(t, Cascade.filtersAreAdditive())
	assert.True(t, Cascade.filtersArePermanent())

	assert.True(t, Anytime.filtersUseMargin())
	assert.True(t, Anytime.filtersAreAdditive())
	assert.False(t, Anytime.filtersArePermanent())
}

func TestActivation_BoostedSumsAllChains(t *testing.T) {
	c := &Classifier{Type: Boosted}
	c.Chains = []chain.Chain{{}, {}}
	c.Filters = []filter.Filter{{}, {}}
	c.Chains[0].Append(constantStump(1), 1.0, 0)
	c.Chains[1].Append(constantStump(1), 2.0, 0)

	p := constantFeaturePatch(0)
	assert.InDelta(t, float32(3.0), c.Activation(p), 1e-6)
}

func TestActivation_CascadeResetsOnPass(t *testing.T) {
	c := &Classifier{Type: Cascade}
	c.Chains = []chain.Chain{{}, {}}
	c.Filters = []filter.Filter{
		{Active: false},
		{Active: true, Threshold: 0.5, Less: false},
	}
	c.Chains[0].Append(constantStump(1), 1.0, 0)
	c.Chains[1].Append(constantStump(1), 5.0, 0)

	p := constantFeaturePatch(0)
	assert.InDelta(t, float32(5.0), c.Activation(p), 1e-6)
}

func TestActivation_CascadeBreaksOnFail(t *testing.T) {
	c := &Classifier{Type: Cascade}
	c.Chains = []chain.Chain{{}, {}}
	c.Filters = []filter.Filter{
		{Active: false},
		{Active: true, Threshold: 10.0, Less: false},
	}
	c.Chains[0].Append(constantStump(1), 1.0, 0)
	c.Chains[1].Append(constantStump(1), 5.0, 0)

	p := constantFeaturePatch(0)
	assert.InDelta(t, float32(1.0), c.Activation(p), 1e-6)
}

// TestCascadeMonotonicity verifies that under cascade
// policy, once a patch fails a stage's filter, later chains cannot affect
// its activation.
func TestCascadeMonotonicity(t *testing.T) {
	c := &Classifier{Type: Cascade}
	c.Chains = []chain.Chain{{}, {}, {}}
	c.Filters = []filter.Filter{
		{Active: false},
		{Active: true, Threshold: 0.5, Less: false},
		{Active: true, Threshold: 100.0, Less: false},
	}
	c.Chains[0].Append(constantStump(1), 1.0, 0)
	c.Chains[1].Append(constantStump(1), 1.0, 0)
	c.Chains[2].Append(constantStump(1), 1000.0, 0)

	p := constantFeaturePatch(0)
	activationWithThreeChains := c.Activation(p)

	truncated := &Classifier{Type: Cascade, Chains: c.Chains[:2], Filters: c.Filters[:2]}
	activationWithTwoChains := truncated.Activation(p)

	require.InDelta(t, activationWithTwoChains, activationWithThreeChains, 1e-6)
}

func TestIsActiveInLastChain(t *testing.T) {
	c := &Classifier{Type: Cascade}
	c.Chains = []chain.Chain{{}, {}}
	c.Filters = []filter.Filter{
		{Active: false},
		{Active: true, Threshold: 100.0, Less: false},
	}
	c.Chains[0].Append(constantStump(1), 1.0, 0)
	c.Chains[1].Append(constantStump(1), 1.0, 0)

	p := constantFeaturePatch(0)
	assert.False(t, c.IsActiveInLastChain(p))
}
