// Package chain implements the Chain: an ordered run of (stump, weight,
// bias) triples sharing one gating filter.
package chain

import "github.com/MeKo-Tech/boostcascade/internal/stump"

// Chain holds parallel slices of stumps, their boosting weights, and the
// calibrated bias recorded after each stump was appended.
type Chain struct {
	Stumps  []stump.DecisionStump
	Weights []float32
	Biases  []float32
}

// Append adds a (stump, weight, bias) triple to the end of the chain.
func (c *Chain) Append(s stump.DecisionStump, weight, bias float32) {
	c.Stumps = append(c.Stumps, s)
	c.Weights = append(c.Weights, weight)
	c.Biases = append(c.Biases, bias)
}

// Len reports the number of stumps in the chain.
func (c *Chain) Len() int {
	return len(c.Stumps)
}

// LastBias returns the most recently recorded bias, or 0 if the chain is empty.
func (c *Chain) LastBias() float32 {
	if len(c.Biases) == 0 {
		return 0
	}
	return c.Biases[len(c.Biases)-1]
}
