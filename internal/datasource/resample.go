package datasource

import (
	"math"

	"github.com/MeKo-Tech/boostcascade/internal/classifier"
	"github.com/MeKo-Tech/boostcascade/internal/patch"
)

// ComputeAverageWeight peeks at up to sampleSize patches (coin-flipped
// between positive and negative by positiveProb) and returns the mean
// exponential-loss weight exp(-y * c.Activation(patch)), used to calibrate
// the resampling normalizer.
func (ds *DataSource) ComputeAverageWeight(c *classifier.Classifier, positiveProb float32, sampleSize int) (float32, error) {
	var total float32
	for range sampleSize {
		var p *patch.Patch
		var y float32
		var err error
		if ds.rng.Float32() < positiveProb {
			p, err = ds.ReadPositivePatch()
			y = 1
		} else {
			p, err = ds.ReadNegativePatch()
			y = -1
		}
		if err != nil {
			return 0, err
		}
		total += expWeight(y, c.Activation(p))
	}
	if sampleSize == 0 {
		return 0, nil
	}
	return total / float32(sampleSize), nil
}

func expWeight(y, activation float32) float32 {
	ya := y * activation
	if ya < -60 {
		ya = -60
	}
	return float32(math.Exp(float64(-ya)))
}

// WeightedPatch is one patch drawn by GetPatchesSampled, alongside the
// resampling weight it should carry into training (1/hits when duplicated).
type WeightedPatch struct {
	Patch  *patch.Patch
	Weight float32
}

// GetPatchesSampled draws maxNumPatches patches using the low-variance
// residual resampler: coin-flip positive/negative by positiveProb, weight
// each by exp(-y*c.Activation(p)), and emit it floor((w+remainder)/normalizer)
// times (each copy carrying weight hits/w), carrying the remainder forward
// to the next draw. This keeps the expected number of duplicates
// proportional to weight while avoiding the variance of independent
// Bernoulli sampling.
func (ds *DataSource) GetPatchesSampled(c *classifier.Classifier, positiveProb float32, maxNumPatches int, normalizer float32) ([]WeightedPatch, error) {
	if normalizer <= 0 {
		return nil, nil
	}

	out := make([]WeightedPatch, 0, maxNumPatches)
	remainder := normalizer * ds.rng.Float32()

	for len(out) < maxNumPatches {
		var p *patch.Patch
		var y float32
		var err error
		if ds.rng.Float32() < positiveProb {
			p, err = ds.ReadPositivePatch()
			y = 1
		} else {
			p, err = ds.ReadNegativePatch()
			y = -1
		}
		if err != nil {
			return nil, err
		}

		w := expWeight(y, c.Activation(p))
		if w+remainder > normalizer {
			hits := int(math.Floor(float64((w + remainder) / normalizer)))
			for i := 0; i < hits && len(out) < maxNumPatches; i++ {
				out = append(out, WeightedPatch{Patch: p, Weight: hits2weight(hits, w)})
			}
			remainder = float32(math.Mod(float64(w+remainder), float64(normalizer)))
		} else {
			remainder += w
		}
	}

	return out, nil
}

func hits2weight(hits int, w float32) float32 {
	if w == 0 {
		return 0
	}
	return float32(hits) / w
}

// GetPositivePatchesSampled resamples only from the positive pool.
func (ds *DataSource) GetPositivePatchesSampled(c *classifier.Classifier, maxNumPatches int, normalizer float32) ([]WeightedPatch, error) {
	return ds.GetPatchesSampled(c, 1.0, maxNumPatches, normalizer)
}

// GetNegativePatchesSampled resamples only from the negative pool.
func (ds *DataSource) GetNegativePatchesSampled(c *classifier.Classifier, maxNumPatches int, normalizer float32) ([]WeightedPatch, error) {
	return ds.GetPatchesSampled(c, 0.0, maxNumPatches, normalizer)
}
