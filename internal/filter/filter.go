// Package filter implements the per-chain gating predicate.
package filter

// Filter gates whether a chain is applied to a patch given its current
// activation (or margin). An inactive Filter always passes.
type Filter struct {
	Active    bool
	Threshold float32
	Less      bool
}

// Passes reports whether the gate admits value v.
func (f Filter) Passes(v float32) bool {
	if !f.Active {
		return true
	}
	if f.Less {
		return v < f.Threshold
	}
	return v > f.Threshold
}
