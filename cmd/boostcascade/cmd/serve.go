package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/boostcascade/internal/classifier"
	"github.com/MeKo-Tech/boostcascade/internal/datasource"
	"github.com/MeKo-Tech/boostcascade/internal/feature"
	"github.com/MeKo-Tech/boostcascade/internal/patch"
	"github.com/MeKo-Tech/boostcascade/internal/runner"
	"github.com/MeKo-Tech/boostcascade/internal/selector"
	"github.com/MeKo-Tech/boostcascade/internal/server"
)

// serveCmd starts a training run in the background and serves its progress
// over HTTP and websocket.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Train a classifier while streaming progress over HTTP",
	Long: `serve starts the configured training run in the background and exposes
its progress over HTTP.

The server provides the following endpoints:
  GET /health   - liveness check
  GET /status   - current run status as JSON
  GET /progress - websocket stream of per-stage training events

Examples:
  boostcascade serve
  boostcascade serve --port 8080`,
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE:         runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("host", "H", "", "server host (overrides config)")
	serveCmd.Flags().IntP("port", "p", 0, "server port (overrides config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	host := cfg.Server.Host
	if cmd.Flags().Changed("host") {
		host, _ = cmd.Flags().GetString("host")
	}
	port := cfg.Server.Port
	if cmd.Flags().Changed("port") {
		port, _ = cmd.Flags().GetInt("port")
	}
	if port < 1 || port > 65535 {
		return fmt.Errorf("invalid port number: %d (must be between 1 and 65535)", port)
	}

	geom := patch.Geometry{Width: cfg.Patch.Width, Height: cfg.Patch.Height, Channels: cfg.Patch.Channels}
	rng := rand.New(rand.NewPCG(1, uint64(len(cfg.Train.PositivePaths))+1))
	pool := feature.GeneratePool(cfg.Train.FeaturePool, geom, rng)

	ds, err := datasource.New(cfg.Train.PositivePaths, cfg.Train.NegativePaths, rng, cfg.Train.MaxReadRetries)
	if err != nil {
		return fmt.Errorf("serve: building data source: %w", err)
	}

	variant, err := parseVariant(cfg.Train.Variant)
	if err != nil {
		return err
	}

	run := runner.New(runner.Params{
		Variant:        variant,
		VariantName:    cfg.Train.Variant,
		Classifier:     classifier.New(variant),
		DataSource:     ds,
		Pool:           pool,
		Workers:        cfg.Train.Workers,
		NumStages:      cfg.Train.NumStages,
		IterationsPer:  cfg.Train.IterationsPer,
		NumPositives:   cfg.Train.NumPositives,
		NumNegatives:   cfg.Train.NumNegatives,
		TargetFNR:      cfg.Train.TargetFNR,
		OutputPath:     cfg.Train.OutputPath,
		MaxInnerStages: cfg.Train.MaxInnerStages,
		TargetFPBase:   cfg.Train.TargetFalsePositiveBase,
		TargetFPStep:   cfg.Train.TargetFalsePositiveStep,
		UseRates:       cfg.Train.UseRates,
		SamplePatches:  cfg.Train.SamplePatches,
		BucketCfg: selector.BucketConfig{
			MinExamples:         cfg.Train.BucketMinExamples,
			ExamplesStep:        cfg.Train.BucketExamplesStep,
			MinPositiveExamples: cfg.Train.BucketMinPositiveExamples,
			MinNegativeExamples: cfg.Train.BucketMinNegativeExamples,
			MinDelta:            cfg.Train.BucketMinDelta,
		},
	})

	srv := server.NewServer(server.Config{
		Host:        host,
		Port:        port,
		CORSOrigin:  cfg.Server.CORSOrigin,
		MaxUploadMB: cfg.Server.MaxUploadMB,
		TimeoutSec:  cfg.Server.TimeoutSec,
	}, run)
	defer func() { _ = srv.Close() }()

	mux := http.NewServeMux()
	srv.SetupRoutes(mux)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", host, port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       time.Duration(cfg.Server.TimeoutSec) * time.Second,
		WriteTimeout:      time.Duration(cfg.Server.TimeoutSec) * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		slog.Info("starting training", "variant", cfg.Train.Variant, "stages", cfg.Train.NumStages)
		if err := run.Run(); err != nil {
			slog.Error("training failed", "error", err)
		}
	}()

	go func() {
		slog.Info("starting progress server", "host", host, "port", port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			cancel()
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	select {
	case sig := <-sigChan:
		slog.Info("received shutdown signal", "signal", sig.String())
	case <-ctx.Done():
		slog.Info("context cancelled, initiating shutdown")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(),
		time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown error", "error", err)
	}

	return nil
}
