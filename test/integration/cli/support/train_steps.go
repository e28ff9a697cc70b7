package support

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"

	"github.com/cucumber/godog"

	"github.com/MeKo-Tech/boostcascade/internal/patch"
	"github.com/MeKo-Tech/boostcascade/internal/record"
)

// PatchPaths records where the generated synthetic positive/negative
// record files were written, for later substitution into commands.
type PatchPaths struct {
	Positives string
	Negatives string
}

var syntheticPatches PatchPaths

// generateSyntheticPatches writes count positive and count negative 24x24x1
// patch records to a rotating pool of files under the scenario's temp dir.
// Positive patches carry a bright center square; negatives are uniform noise.
func (testCtx *TestContext) generateSyntheticPatches(count int) error {
	dir := testCtx.GetTempDir("patches")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating patch directory: %w", err)
	}

	posPath := filepath.Join(dir, "positives.bin")
	negPath := filepath.Join(dir, "negatives.bin")

	rng := rand.New(rand.NewPCG(42, 7))

	if err := writePatchFile(posPath, count, 1, rng); err != nil {
		return err
	}
	if err := writePatchFile(negPath, count, -1, rng); err != nil {
		return err
	}

	syntheticPatches = PatchPaths{Positives: posPath, Negatives: negPath}
	testCtx.TrackFile(posPath)
	testCtx.TrackFile(negPath)
	return nil
}

func writePatchFile(path string, count int, label int8, rng *rand.Rand) error {
	f, err := os.Create(path) //nolint:gosec // G304: scenario-controlled temp path
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	w := record.NewWriter(f)
	const width, height, channels = 24, 24, 1

	for i := 0; i < count; i++ {
		data := make([]float32, width*height*channels)
		for j := range data {
			data[j] = rng.Float32()
		}
		if label == 1 {
			// Brighten a centered square so positives are separable from
			// uniform-noise negatives.
			for y := height / 4; y < 3*height/4; y++ {
				for x := width / 4; x < 3*width/4; x++ {
					data[y*width+x] += 2.0
				}
			}
		}

		p, err := patch.NewWithData(width, height, channels, label, data)
		if err != nil {
			return fmt.Errorf("building synthetic patch: %w", err)
		}
		if err := w.Write(p); err != nil {
			return fmt.Errorf("writing synthetic patch: %w", err)
		}
	}

	return w.Flush()
}

func (testCtx *TestContext) iHaveSyntheticTrainingPatches(count int) error {
	return testCtx.generateSyntheticPatches(count)
}

// iHaveATrainingConfigurationFor writes a YAML config file pointing at the
// already-generated synthetic patch pool, for a short run of the given
// classifier variant.
func (testCtx *TestContext) iHaveATrainingConfigurationFor(variant string) error {
	if syntheticPatches.Positives == "" {
		return fmt.Errorf("no synthetic patches generated yet")
	}

	modelPath := testCtx.GetTempFile("classifier.gob")
	statsPath := testCtx.GetTempFile("stats.csv")
	configPath := testCtx.GetTempFile("train.yaml")

	yaml := fmt.Sprintf(`patch:
  width: 24
  height: 24
  channels: 1
train:
  variant: %s
  feature_pool: 200
  num_stages: 2
  iterations_per_stage: 5
  num_positives: 30
  num_negatives: 30
  target_fnr: 0.2
  max_read_retries: 5
  workers: 2
  positive_paths:
    - %s
  negative_paths:
    - %s
  output_path: %s
  stats_path: %s
detect:
  initial_scale: 1.0
  scaling_factor: 1.2
  num_scales: 5
  detection_threshold: 0
  merging_overlap: 0.5
  filtered: false
`, variant, syntheticPatches.Positives, syntheticPatches.Negatives, modelPath, statsPath)

	if err := os.WriteFile(configPath, []byte(yaml), 0o600); err != nil {
		return fmt.Errorf("writing training config: %w", err)
	}

	testCtx.trainConfigPath = configPath
	testCtx.trainModelPath = modelPath
	testCtx.trainStatsPath = statsPath
	testCtx.TrackFile(configPath)
	return nil
}

func (testCtx *TestContext) iHaveASyntheticFrameToDetectIn() error {
	dir := testCtx.GetTempDir("frame")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	framePath := filepath.Join(dir, "frame.png")
	if err := writeSyntheticFramePNG(framePath); err != nil {
		return err
	}
	testCtx.TrackFile(framePath)
	testCtx.syntheticFrame = framePath
	return nil
}

// substituteTrainVariables replaces placeholders referring to generated
// synthetic test data in a command string before it runs.
func (testCtx *TestContext) substituteTrainVariables(command string) string {
	command = strings.ReplaceAll(command, "{config_path}", testCtx.trainConfigPath)
	command = strings.ReplaceAll(command, "{model_path}", testCtx.trainModelPath)
	command = strings.ReplaceAll(command, "{stats_path}", testCtx.trainStatsPath)
	command = strings.ReplaceAll(command, "{frame_path}", testCtx.syntheticFrame)
	return command
}

// writeSyntheticFramePNG writes a small grayscale PNG with a bright square,
// so a trained classifier has something plausible to detect.
func writeSyntheticFramePNG(path string) error {
	const size = 64
	img := image.NewGray(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			img.SetGray(x, y, color.Gray{Y: 40})
		}
	}
	for y := size / 4; y < 3*size/4; y++ {
		for x := size / 4; x < 3*size/4; x++ {
			img.SetGray(x, y, color.Gray{Y: 220})
		}
	}

	f, err := os.Create(path) //nolint:gosec // G304: scenario-controlled temp path
	if err != nil {
		return fmt.Errorf("creating synthetic frame: %w", err)
	}
	defer f.Close()

	return png.Encode(f, img)
}

// RegisterTrainSteps registers step definitions for generating synthetic
// training/detection data and running the train and detect subcommands.
func (testCtx *TestContext) RegisterTrainSteps(sc *godog.ScenarioContext) {
	sc.Step(`^I have (\d+) synthetic training patches of each class$`, testCtx.iHaveSyntheticTrainingPatches)
	sc.Step(`^I have a training configuration for the "([^"]*)" variant$`, testCtx.iHaveATrainingConfigurationFor)
	sc.Step(`^I have a synthetic frame to detect in$`, testCtx.iHaveASyntheticFrameToDetectIn)
	sc.Step(`^I run "([^"]*)" with substituted paths$`, func(command string) error {
		return testCtx.iRunCommand(testCtx.substituteTrainVariables(command))
	})
}
