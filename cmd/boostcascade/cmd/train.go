package cmd

import (
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"

	"github.com/gofrs/uuid"
	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/boostcascade/internal/classifier"
	"github.com/MeKo-Tech/boostcascade/internal/datasource"
	"github.com/MeKo-Tech/boostcascade/internal/feature"
	"github.com/MeKo-Tech/boostcascade/internal/patch"
	"github.com/MeKo-Tech/boostcascade/internal/selector"
	"github.com/MeKo-Tech/boostcascade/internal/stats"
	"github.com/MeKo-Tech/boostcascade/internal/trainer"
)

// trainCmd trains a classifier of the configured variant against the
// configured positive/negative patch-file pools.
var trainCmd = &cobra.Command{
	Use:          "train",
	Short:        "Train a boosted, cascade, or anytime classifier",
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE:         runTrain,
}

func init() {
	rootCmd.AddCommand(trainCmd)
}

func runTrain(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	runID, err := uuid.NewV4()
	if err != nil {
		return fmt.Errorf("train: generating run id: %w", err)
	}
	slog.Info("starting training run", "run_id", runID.String(), "variant", cfg.Train.Variant)

	geom := patch.Geometry{Width: cfg.Patch.Width, Height: cfg.Patch.Height, Channels: cfg.Patch.Channels}

	rng := rand.New(rand.NewPCG(1, uint64(len(cfg.Train.PositivePaths))+1))
	pool := feature.GeneratePool(cfg.Train.FeaturePool, geom, rng)

	ds, err := datasource.New(cfg.Train.PositivePaths, cfg.Train.NegativePaths, rng, cfg.Train.MaxReadRetries)
	if err != nil {
		return fmt.Errorf("train: building data source: %w", err)
	}

	variant, err := parseVariant(cfg.Train.Variant)
	if err != nil {
		return err
	}
	c := classifier.New(variant)

	bucketCfg := selector.BucketConfig{
		MinExamples:         cfg.Train.BucketMinExamples,
		ExamplesStep:        cfg.Train.BucketExamplesStep,
		MinPositiveExamples: cfg.Train.BucketMinPositiveExamples,
		MinNegativeExamples: cfg.Train.BucketMinNegativeExamples,
		MinDelta:            cfg.Train.BucketMinDelta,
	}

	stages := make([]trainer.StageConfig, cfg.Train.NumStages)
	var allStats []trainer.IterationStats
	for i := range stages {
		stages[i] = trainer.StageConfig{
			NumIterations:  cfg.Train.IterationsPer,
			MaxInnerStages: cfg.Train.MaxInnerStages,
			NumPositives:   cfg.Train.NumPositives,
			NumNegatives:   cfg.Train.NumNegatives,
			TargetFNR:      cfg.Train.TargetFNR,
			TargetFP:       cfg.Train.TargetFalsePositiveBase - float32(i)*cfg.Train.TargetFalsePositiveStep,
			UseRates:       cfg.Train.UseRates,
			SamplePatches:  cfg.Train.SamplePatches,
			BucketCfg:      bucketCfg,
			OnStage: func(stage int, st trainer.IterationStats) {
				allStats = append(allStats, st)
				slog.Info("stage complete", "stage", stage, "error", st.Error, "exp_loss", st.ExpLoss)
			},
		}
	}

	switch variant {
	case classifier.Cascade:
		err = trainer.TrainCascade(c, ds, pool, cfg.Train.Workers, stages)
	default:
		err = trainer.TrainStages(c, ds, pool, cfg.Train.Workers, stages, false)
	}
	if err != nil {
		return fmt.Errorf("train: %w", err)
	}

	if err := c.SaveFile(cfg.Train.OutputPath); err != nil {
		return fmt.Errorf("train: saving model: %w", err)
	}
	slog.Info("model saved", "path", cfg.Train.OutputPath)

	if cfg.Train.StatsPath != "" {
		if err := writeStats(cfg.Train.StatsPath, allStats); err != nil {
			return fmt.Errorf("train: writing stats: %w", err)
		}
	}

	return nil
}

func writeStats(path string, rows []trainer.IterationStats) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return stats.WriteIterationCSV(f, rows)
}

func parseVariant(s string) (classifier.Type, error) {
	switch s {
	case "boosted":
		return classifier.Boosted, nil
	case "cascade":
		return classifier.Cascade, nil
	case "anytime":
		return classifier.Anytime, nil
	default:
		return 0, fmt.Errorf("train: unknown variant %q", s)
	}
}

