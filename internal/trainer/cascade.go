package trainer

import (
	"fmt"

	"github.com/MeKo-Tech/boostcascade/internal/chain"
	"github.com/MeKo-Tech/boostcascade/internal/classifier"
	"github.com/MeKo-Tech/boostcascade/internal/datasource"
	"github.com/MeKo-Tech/boostcascade/internal/feature"
	"github.com/MeKo-Tech/boostcascade/internal/filter"
	"github.com/MeKo-Tech/boostcascade/internal/patch"
	"github.com/MeKo-Tech/boostcascade/internal/selector"
)

// StageConfig configures one stage of TrainStages/TrainCascade: how many
// boosting rounds to run, how many hard positive/negative patches to mine,
// the false-negative-rate target for the stage's filter/bias calibration,
// and (CASCADE only) the false-positive-rate early-stop target.
type StageConfig struct {
	NumIterations int
	// MaxInnerStages bounds the boosting inner loop when UseRates is set;
	// 0 falls back to NumIterations.
	MaxInnerStages int
	NumPositives   int
	NumNegatives   int
	TargetFNR      float32
	// TargetFP is this stage's target false-positive rate, only consulted
	// when UseRates is set.
	TargetFP float32
	// UseRates, when set, recalibrates a tentative admission bias after
	// every round and stops the inner loop early once its measured
	// false-positive rate reaches TargetFP, instead of always running
	// MaxInnerStages rounds.
	UseRates bool
	// SamplePatches, when set, draws the stage's training cohort with the
	// weighted low-variance resampler instead of plain capped reads. Only
	// consulted for non-CASCADE stages: CASCADE always hard-negative-mines
	// via GetPositivePatchesActive/GetNegativePatchesActive instead.
	SamplePatches bool
	// BucketCfg configures SpeedBoost joint feature-and-threshold selection
	// for ANYTIME stages.
	BucketCfg selector.BucketConfig
	// OnStage, if set, is invoked after every completed stage.
	OnStage func(stage int, stats IterationStats)
}

// TrainStages runs len(stages) rounds of: mine a fresh cohort of
// (still-active, per the classifier's current chains) positive and negative
// patches, build a FeatureSelector over them, and run the boosting inner
// loop for one stage's worth of rounds, appending the stage's chain(s) to c.
// Shared by TrainCascade (which additionally installs a permanent filter per
// stage) and plain multi-stage BOOSTED/ANYTIME training (which does not);
// the inner loop itself branches on c.Type, running SpeedBoost joint
// selection with per-round filter/chain rotation for ANYTIME and classical
// AdaBoost selection otherwise.
func TrainStages(c *classifier.Classifier, ds *datasource.DataSource, pool []feature.Feature, workers int, stages []StageConfig, installFilter bool) error {
	for stageIdx, cfg := range stages {
		var positives, negatives []*patch.Patch
		var err error
		if cfg.SamplePatches && !installFilter {
			positives, negatives, err = sampleStageCohort(ds, c, cfg)
		} else {
			positives, err = ds.GetPositivePatchesActive(cfg.NumPositives, c)
			if err == nil {
				negatives, err = ds.GetNegativePatchesActive(cfg.NumNegatives, c)
			}
		}
		if err != nil {
			return fmt.Errorf("trainer: stage %d: mining patches: %w", stageIdx, err)
		}

		patches := append(append([]*patch.Patch{}, positives...), negatives...)
		integrals, labels := integralsAndLabels(patches)

		fs := selector.New(pool, integrals, labels, workers)

		c.Chains = append(c.Chains, chain.Chain{})
		c.Filters = append(c.Filters, filter.Filter{})
		stageChainIdx := len(c.Chains) - 1

		var lastStats IterationStats
		onIteration := func(s IterationStats) {
			lastStats = s
		}

		if c.Type == classifier.Anytime {
			_, err = trainAnytimeStageChain(c, stageChainIdx, fs, cfg.BucketCfg, cfg.NumIterations, onIteration)
		} else {
			maxIterations := cfg.MaxInnerStages
			if maxIterations <= 0 {
				maxIterations = cfg.NumIterations
			}
			err = trainStageChain(c, stageChainIdx, fs, cfg, maxIterations, onIteration)
		}
		if err != nil {
			return fmt.Errorf("trainer: stage %d: %w", stageIdx, err)
		}

		if installFilter {
			activations := make([]float32, len(patches))
			for i, img := range integrals {
				activations[i] = c.Activation(img)
			}
			bias := ComputePredictionBias(activations, labels, cfg.TargetFNR)
			c.Filters[stageChainIdx] = filter.Filter{Active: true, Threshold: bias, Less: false}
		}

		lastStats.Iteration = stageIdx
		if cfg.OnStage != nil {
			cfg.OnStage(stageIdx, lastStats)
		}
		Logger.Info("completed training stage", "stage", stageIdx, "error", lastStats.Error)
	}

	return nil
}

// trainStageChain runs the classical boosting inner loop against a single
// pre-appended chain slot, appending weak learners directly into
// c.Chains[chainIdx] rather than creating a new chain per iteration. When
// cfg.UseRates is set (CASCADE), it recalibrates a tentative admission bias
// after every round and stops once the measured false-positive rate at that
// bias reaches cfg.TargetFP, instead of always running maxIterations rounds.
func trainStageChain(c *classifier.Classifier, chainIdx int, fs *selector.FeatureSelector, cfg StageConfig, maxIterations int, onIteration func(IterationStats)) error {
	n := len(fs.Labels)
	if n == 0 {
		return fmt.Errorf("trainer: trainStageChain: %w", selector.ErrNoPatches)
	}

	weights := make([]float32, n)
	for i := range weights {
		weights[i] = 1.0 / float32(n)
	}

	for iter := range maxIterations {
		result, err := fs.SelectFeature(weights)
		if err != nil {
			return fmt.Errorf("trainer: iteration %d: %w", iter, err)
		}

		alpha := computeAlpha(result.Err)
		c.Chains[chainIdx].Append(result.Stump, alpha, 0)

		stats := reweight(fs, result, alpha, weights)
		stats.Iteration = iter
		if onIteration != nil {
			onIteration(stats)
		}

		if cfg.UseRates {
			activations := make([]float32, n)
			for p, img := range fs.Integral {
				activations[p] = c.Activation(img)
			}
			bias := ComputePredictionBias(activations, fs.Labels, cfg.TargetFNR)
			if FalsePositiveRateAt(activations, fs.Labels, bias) <= cfg.TargetFP {
				break
			}
		}
	}

	return nil
}

// trainAnytimeStageChain runs the SpeedBoost joint-selection inner loop for
// an ANYTIME stage: each round jointly picks (feature, threshold) instead of
// just a feature, appends the stump to the current chain, and, whenever the
// round's winning threshold is finite, installs it as the current chain's
// Less=true margin filter and rotates onto a fresh empty chain/filter pair
// that becomes current for the remaining rounds. Returns the index of
// whichever chain is current when the loop ends.
func trainAnytimeStageChain(c *classifier.Classifier, chainIdx int, fs *selector.FeatureSelector, bucketCfg selector.BucketConfig, iterations int, onIteration func(IterationStats)) (int, error) {
	n := len(fs.Labels)
	if n == 0 {
		return chainIdx, fmt.Errorf("trainer: trainAnytimeStageChain: %w", selector.ErrNoPatches)
	}

	weights := make([]float32, n)
	for i := range weights {
		weights[i] = 1.0 / float32(n)
	}

	cur := chainIdx
	for iter := range iterations {
		activations := make([]float32, n)
		for p, img := range fs.Integral {
			activations[p] = c.Activation(img)
		}

		result, err := fs.SelectFeatureAndThreshold(weights, activations, bucketCfg)
		if err != nil {
			return cur, fmt.Errorf("trainer: iteration %d: %w", iter, err)
		}

		errRate := weightedError(fs, result.FeatureIndex, result.Stump, weights)
		alpha := computeAlpha(errRate)
		c.Chains[cur].Append(result.Stump, alpha, 0)

		stats := reweight(fs, selector.Result{FeatureIndex: result.FeatureIndex, Stump: result.Stump}, alpha, weights)
		stats.Iteration = iter
		if onIteration != nil {
			onIteration(stats)
		}

		if result.Filter.Active {
			c.Filters[cur] = result.Filter
			c.Chains = append(c.Chains, chain.Chain{})
			c.Filters = append(c.Filters, filter.Filter{})
			cur = len(c.Chains) - 1
		}
	}

	return cur, nil
}

// sampleStageCohort draws a stage's training cohort via the weighted
// low-variance resampler instead of plain capped reads: the resampling
// normalizer for each class is calibrated from a small average-weight probe
// against the classifier's current state. Patches that land hard under the
// classifier's current weights are duplicated more often by the resampler
// itself, so the boosting inner loop can start from uniform weights over
// the resulting cohort without a separate per-patch weight channel.
func sampleStageCohort(ds *datasource.DataSource, c *classifier.Classifier, cfg StageConfig) ([]*patch.Patch, []*patch.Patch, error) {
	const calibrationSamples = 256

	posNorm, err := ds.ComputeAverageWeight(c, 1.0, calibrationSamples)
	if err != nil {
		return nil, nil, fmt.Errorf("calibrating positive resampling weight: %w", err)
	}
	negNorm, err := ds.ComputeAverageWeight(c, 0.0, calibrationSamples)
	if err != nil {
		return nil, nil, fmt.Errorf("calibrating negative resampling weight: %w", err)
	}

	posSamples, err := ds.GetPositivePatchesSampled(c, cfg.NumPositives, posNorm)
	if err != nil {
		return nil, nil, fmt.Errorf("sampling positives: %w", err)
	}
	negSamples, err := ds.GetNegativePatchesSampled(c, cfg.NumNegatives, negNorm)
	if err != nil {
		return nil, nil, fmt.Errorf("sampling negatives: %w", err)
	}

	positives := make([]*patch.Patch, len(posSamples))
	for i, s := range posSamples {
		positives[i] = s.Patch
	}
	negatives := make([]*patch.Patch, len(negSamples))
	for i, s := range negSamples {
		negatives[i] = s.Patch
	}
	return positives, negatives, nil
}

// TrainCascade is TrainStages with installFilter=true: each stage ends with
// a permanent admission filter calibrated to the stage's target
// false-negative rate, matching the CASCADE variant's activation protocol.
func TrainCascade(c *classifier.Classifier, ds *datasource.DataSource, pool []feature.Feature, workers int, stages []StageConfig) error {
	if c.Type != classifier.Cascade {
		return fmt.Errorf("trainer: TrainCascade requires a CASCADE classifier, got %s", c.Type)
	}
	return TrainStages(c, ds, pool, workers, stages, true)
}
