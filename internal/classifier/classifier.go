// Package classifier implements the Classifier: a variant tag plus aligned
// chains and filters, and the activation protocol shared by all three
// strategy variants (boosted / cascade / anytime).
package classifier

import (
	"fmt"
	"log/slog"

	"github.com/MeKo-Tech/boostcascade/internal/chain"
	"github.com/MeKo-Tech/boostcascade/internal/filter"
	"github.com/MeKo-Tech/boostcascade/internal/patch"
)

// Type names the classifier's strategy variant.
type Type int

const (
	// Boosted uses no gating at all: every chain always applies.
	Boosted Type = iota
	// Cascade resets activation to zero and permanently rejects a patch
	// that fails any active filter.
	Cascade
	// Anytime gates by margin, is additive (no reset), and only skips
	// (rather than permanently rejects) a chain that fails its filter.
	Anytime
)

func (t Type) String() string {
	switch t {
	case Boosted:
		return "BOOSTED"
	case Cascade:
		return "CASCADE"
	case Anytime:
		return "ANYTIME"
	default:
		return fmt.Sprintf("Type(%d)", int(t))
	}
}

// Policy bits derived from Type.
func (t Type) filtersUseMargin() bool    { return t == Anytime }
func (t Type) filtersAreAdditive() bool  { return t == Anytime }
func (t Type) filtersArePermanent() bool { return t == Cascade }

// Classifier is the trained model: a variant tag plus parallel chains/filters.
type Classifier struct {
	Type    Type
	Chains  []chain.Chain
	Filters []filter.Filter
}

// New constructs an empty classifier of the given variant, with one empty
// chain and filter as the starting point for training.
func New(t Type) *Classifier {
	return &Classifier{
		Type:    t,
		Chains:  []chain.Chain{{}},
		Filters: []filter.Filter{{}},
	}
}

// Activation runs the activation protocol over the
// classifier's chains, returning the final scalar activation for the patch.
func (c *Classifier) Activation(integral *patch.Patch) float32 {
	useMargin := c.Type.filtersUseMargin()
	additive := c.Type.filtersAreAdditive()
	permanent := c.Type.filtersArePermanent()

	var a float32
	for i := range c.Chains {
		gateIn := a
		if useMargin {
			gateIn = absf32(a)
		}

		if c.Filters[i].Passes(gateIn) {
			if c.Filters[i].Active && !additive {
				a = 0
			}
			ch := &c.Chains[i]
			for j := range ch.Stumps {
				a += ch.Weights[j] * ch.Stumps[j].Evaluate(integral)
			}
		} else if permanent {
			break
		}
		// anytime: skip this chain only, fall through to next i
	}
	return a
}

// ActivationAt runs the activation protocol against a window starting at
// (ox,oy) within a larger integral image, for sliding-window scanning over a
// full-frame integral.
func (c *Classifier) ActivationAt(integral *patch.Patch, ox, oy int) float32 {
	useMargin := c.Type.filtersUseMargin()
	additive := c.Type.filtersAreAdditive()
	permanent := c.Type.filtersArePermanent()

	var a float32
	for i := range c.Chains {
		gateIn := a
		if useMargin {
			gateIn = absf32(a)
		}

		if c.Filters[i].Passes(gateIn) {
			if c.Filters[i].Active && !additive {
				a = 0
			}
			ch := &c.Chains[i]
			for j := range ch.Stumps {
				a += ch.Weights[j] * ch.Stumps[j].EvaluateAt(integral, ox, oy)
			}
		} else if permanent {
			break
		}
	}
	return a
}

// IsActiveInLastChain runs the same protocol and reports whether the final
// chain's gate admitted the patch.
func (c *Classifier) IsActiveInLastChain(integral *patch.Patch) bool {
	if len(c.Chains) == 0 {
		return false
	}

	useMargin := c.Type.filtersUseMargin()
	additive := c.Type.filtersAreAdditive()
	permanent := c.Type.filtersArePermanent()

	var a float32
	lastIdx := len(c.Chains) - 1
	admitted := false
	for i := range c.Chains {
		gateIn := a
		if useMargin {
			gateIn = absf32(a)
		}

		passed := c.Filters[i].Passes(gateIn)
		if i == lastIdx {
			admitted = passed
		}

		if passed {
			if c.Filters[i].Active && !additive {
				a = 0
			}
			ch := &c.Chains[i]
			for j := range ch.Stumps {
				a += ch.Weights[j] * ch.Stumps[j].Evaluate(integral)
			}
		} else if permanent {
			break
		}
	}
	return admitted
}

// Logger is the module-level slog logger, following the package-scoped
// slog convention used throughout this codebase.
var Logger = slog.Default()

func absf32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
