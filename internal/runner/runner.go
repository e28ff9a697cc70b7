// Package runner drives a training run in the background and fans its
// progress out to the websocket subscribers of internal/server.
package runner

import (
	"fmt"
	"sync"
	"time"

	"github.com/MeKo-Tech/boostcascade/internal/classifier"
	"github.com/MeKo-Tech/boostcascade/internal/datasource"
	"github.com/MeKo-Tech/boostcascade/internal/feature"
	"github.com/MeKo-Tech/boostcascade/internal/metrics"
	"github.com/MeKo-Tech/boostcascade/internal/selector"
	"github.com/MeKo-Tech/boostcascade/internal/server"
	"github.com/MeKo-Tech/boostcascade/internal/trainer"
)

// Params holds everything a Runner needs to start a training run.
type Params struct {
	Variant       classifier.Type
	VariantName   string
	Classifier    *classifier.Classifier
	DataSource    *datasource.DataSource
	Pool          []feature.Feature
	Workers       int
	NumStages     int
	IterationsPer int
	NumPositives  int
	NumNegatives  int
	TargetFNR     float32
	OutputPath    string

	// MaxInnerStages, TargetFPBase/Step and UseRates configure a CASCADE
	// run's per-stage false-positive-rate early stop (§4.5); MaxInnerStages
	// falls back to IterationsPer when zero.
	MaxInnerStages int
	TargetFPBase   float32
	TargetFPStep   float32
	UseRates       bool

	// SamplePatches draws a BOOSTED/ANYTIME run's per-stage cohort with the
	// weighted low-variance resampler instead of plain capped reads.
	SamplePatches bool
	// BucketCfg configures SpeedBoost joint selection for an ANYTIME run.
	BucketCfg selector.BucketConfig
}

// Runner runs one training job and broadcasts its progress. It implements
// the server package's trainingRunner interface.
type Runner struct {
	params Params

	mu     sync.Mutex
	status server.RunStatus
	subs   map[int]chan server.IterationEvent
	nextID int
}

// New builds a Runner for the given training parameters.
func New(p Params) *Runner {
	return &Runner{
		params: p,
		status: server.RunStatus{
			Variant:   p.VariantName,
			NumStages: p.NumStages,
		},
		subs: make(map[int]chan server.IterationEvent),
	}
}

// Status returns a snapshot of the run's current state.
func (r *Runner) Status() server.RunStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// Subscribe registers a channel that receives every future IterationEvent.
// The returned function unregisters it.
func (r *Runner) Subscribe() (<-chan server.IterationEvent, func()) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.nextID
	r.nextID++
	ch := make(chan server.IterationEvent, 16)
	r.subs[id] = ch

	unsubscribe := func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if _, ok := r.subs[id]; ok {
			delete(r.subs, id)
			close(ch)
		}
	}
	return ch, unsubscribe
}

// Run executes the training job to completion, publishing an IterationEvent
// after every stage and saving the model when done. It is meant to run in
// its own goroutine; the server keeps serving /status and /progress while
// it runs.
func (r *Runner) Run() error {
	p := r.params

	stages := make([]trainer.StageConfig, p.NumStages)
	for i := range stages {
		stage := i
		stages[i] = trainer.StageConfig{
			NumIterations:  p.IterationsPer,
			MaxInnerStages: p.MaxInnerStages,
			NumPositives:   p.NumPositives,
			NumNegatives:   p.NumNegatives,
			TargetFNR:      p.TargetFNR,
			TargetFP:       p.TargetFPBase - float32(i)*p.TargetFPStep,
			UseRates:       p.UseRates,
			SamplePatches:  p.SamplePatches,
			BucketCfg:      p.BucketCfg,
			OnStage: func(_ int, st trainer.IterationStats) {
				metrics.StagesCompletedTotal.WithLabelValues(p.VariantName).Inc()
				r.publish(stage, st, false)
			},
		}
	}

	start := time.Now()
	var err error
	if p.Variant == classifier.Cascade {
		err = trainer.TrainCascade(p.Classifier, p.DataSource, p.Pool, p.Workers, stages)
	} else {
		err = trainer.TrainStages(p.Classifier, p.DataSource, p.Pool, p.Workers, stages, false)
	}
	metrics.TrainingIterationDuration.WithLabelValues(p.VariantName).Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.TrainingError.WithLabelValues(p.VariantName).Set(1)
		r.finish(fmt.Sprintf("training failed: %v", err))
		return err
	}

	if saveErr := p.Classifier.SaveFile(p.OutputPath); saveErr != nil {
		r.finish(fmt.Sprintf("saving model failed: %v", saveErr))
		return saveErr
	}

	r.finish("")
	return nil
}

func (r *Runner) publish(stage int, st trainer.IterationStats, done bool) {
	metrics.TrainingIterationsTotal.WithLabelValues(r.params.VariantName).Inc()
	metrics.TrainingError.WithLabelValues(r.params.VariantName).Set(float64(st.Error))

	r.mu.Lock()
	r.status.Stage = stage
	r.status.Iteration = st.Iteration
	r.status.ExpLoss = st.ExpLoss
	r.status.Error = st.Error
	r.status.Done = done
	ev := server.IterationEvent{
		Type:      "iteration",
		Stage:     stage,
		Iteration: st.Iteration,
		ExpLoss:   st.ExpLoss,
		Error:     st.Error,
		PosError:  st.PosError,
		NegError:  st.NegError,
		Threshold: st.Threshold,
		Done:      done,
	}
	subs := make([]chan server.IterationEvent, 0, len(r.subs))
	for _, ch := range r.subs {
		subs = append(subs, ch)
	}
	r.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

func (r *Runner) finish(failureReason string) {
	r.mu.Lock()
	r.status.Done = true
	r.status.FailureReason = failureReason
	subs := make([]chan server.IterationEvent, 0, len(r.subs))
	for _, ch := range r.subs {
		subs = append(subs, ch)
	}
	r.mu.Unlock()

	ev := server.IterationEvent{Type: "done", Done: true}
	for _, ch := range subs {
		select {
		case ch <- ev:
		default:
		}
	}
}
