// Package stump implements the decision stump weak learner: a single
// feature compared against a threshold.
package stump

import (
	"github.com/MeKo-Tech/boostcascade/internal/feature"
	"github.com/MeKo-Tech/boostcascade/internal/patch"
)

// DecisionStump outputs Sign if the feature's response is >= Split, else -Sign.
type DecisionStump struct {
	Feature feature.Feature
	Split   float32
	Sign    float32
}

// Evaluate applies the stump to a patch's integral image.
func (s DecisionStump) Evaluate(integral *patch.Patch) float32 {
	return s.EvaluateResponse(s.Feature.Evaluate(integral))
}

// EvaluateAt applies the stump to a window starting at (ox,oy) within a
// larger integral image, for sliding-window scanning.
func (s DecisionStump) EvaluateAt(integral *patch.Patch, ox, oy int) float32 {
	return s.EvaluateResponse(s.Feature.EvaluateAt(integral, ox, oy))
}

// EvaluateResponse applies the stump's comparison to an already-computed
// feature response, avoiding recomputation when the response has been
// cached (e.g. by the selector's response cache).
func (s DecisionStump) EvaluateResponse(response float32) float32 {
	if response >= s.Split {
		return s.Sign
	}
	return -s.Sign
}
