package cmd

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/boostcascade/internal/classifier"
	"github.com/MeKo-Tech/boostcascade/internal/detect"
	"github.com/MeKo-Tech/boostcascade/internal/patch"
	"github.com/MeKo-Tech/boostcascade/internal/scanner"
	"github.com/MeKo-Tech/boostcascade/internal/sequencer"
)

// detectCmd runs a trained classifier as a sliding-window multi-scale
// detector against one input image.
var detectCmd = &cobra.Command{
	Use:          "detect [model] [image]",
	Short:        "Detect objects in an image using a trained classifier",
	Args:         cobra.ExactArgs(2),
	SilenceUsage: true,
	RunE:         runDetect,
}

func init() {
	rootCmd.AddCommand(detectCmd)
}

func runDetect(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	modelPath, imagePath := args[0], args[1]

	c, err := classifier.LoadFile(modelPath)
	if err != nil {
		return fmt.Errorf("detect: loading model: %w", err)
	}

	frame, err := loadFrame(imagePath)
	if err != nil {
		return fmt.Errorf("detect: loading image: %w", err)
	}

	geom := patch.Geometry{Width: cfg.Patch.Width, Height: cfg.Patch.Height, Channels: cfg.Patch.Channels}
	seq := sequencer.New(c)
	scan := scanner.New(c, seq, geom)

	d := &detect.Detector{
		Scanner:            scan,
		InitialScale:       cfg.Detect.InitialScale,
		ScalingFactor:      cfg.Detect.ScalingFactor,
		NumScales:          cfg.Detect.NumScales,
		DetectionThreshold: cfg.Detect.DetectionThreshold,
		MergingOverlap:     cfg.Detect.MergingOverlap,
		Filtered:           cfg.Detect.Filtered,
	}

	detections := d.Detect(frame)
	slog.Info("detection complete", "count", len(detections), "features_per_pixel", scan.FeaturesPerPixel())

	for _, det := range detections {
		fmt.Printf("%d %d %d %d %.4f\n", det.X, det.Y, det.Width, det.Height, det.Score)
	}

	return nil
}

func loadFrame(path string) (*patch.Patch, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, err
	}

	p, err := patch.FromImage(img)
	if err != nil {
		return nil, err
	}
	p.ComputeIntegralImage()
	return p, nil
}
