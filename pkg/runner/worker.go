package runner

import (
	"context"
	crand "crypto/rand"
	"encoding/binary"
	"math/rand"
	"path/filepath"
	"strconv"

	"github.com/evosearch/demova/pkg/demography"
	"github.com/evosearch/demova/pkg/engines"
	"github.com/evosearch/demova/pkg/errors"
	"github.com/evosearch/demova/pkg/logging"
	"github.com/evosearch/demova/pkg/optimize"
)

// StopFactory builds a fresh stop condition per run. Stop conditions can be
// stateful (convergence tracking), so workers never share one.
type StopFactory func() optimize.StopCondition

// Worker wraps one GA run for execution inside a pool slot. It owns an
// independent randomness source and publishes only under its own key.
type Worker struct {
	ID       int
	Model    *demography.Model
	Engine   engines.Engine
	Config   optimize.Config
	Registry *Registry
	Logger   *logging.Logger

	// ResumeDir, when set, points at a previous run's output root; the
	// worker restores its trajectory from <ResumeDir>/<id>/ before running.
	ResumeDir string

	// NewStop builds the run's stop condition; nil means run until the
	// supervisor cancels.
	NewStop StopFactory
}

// seed derives an independent RNG seed for the worker. Seeding mixes
// crypto-random bytes with the worker id, so runs launched at the same
// instant still draw from unrelated streams.
func (w *Worker) seed() int64 {
	var buf [8]byte
	if _, err := crand.Read(buf[:]); err != nil {
		// Fall back to a fixed stream distinguished by id; statistically
		// weaker but still non-overlapping across workers.
		return int64(uint64(w.ID)*0x9E3779B97F4A7C15) + 1
	}
	return int64(binary.LittleEndian.Uint64(buf[:])) ^ int64(w.ID)
}

// Run executes the worker's GA to completion and returns its best candidate.
// Any failure is attributed to this worker's id; cancellation passes through
// undisguised so the supervisor can tell the outcomes apart.
func (w *Worker) Run(ctx context.Context) (*optimize.Candidate, error) {
	prefix := strconv.Itoa(w.ID)
	if err := errors.CheckContext(ctx, "search run"); err != nil {
		return nil, err
	}

	logger := w.Logger
	if logger == nil {
		logger = logging.GetLogger()
	}
	ctx = logging.WithRunID(ctx, prefix)
	ctx, endRun := logging.TraceTask(ctx, "run-"+prefix)
	defer endRun()

	cfg := w.Config
	cfg.Prefix = prefix

	stop := optimize.StopCondition(optimize.NeverStop{})
	if w.NewStop != nil {
		stop = w.NewStop()
	}

	opts := []optimize.Option{
		optimize.WithRNG(rand.New(rand.NewSource(w.seed()))),
		optimize.WithStopCondition(stop),
		optimize.WithLogger(logger),
	}
	if w.Registry != nil {
		opts = append(opts, optimize.WithBestSink(w.Registry))
	}

	ga := optimize.New(w.Model, w.Engine, cfg, opts...)

	if w.ResumeDir != "" {
		if err := ga.LoadState(filepath.Join(w.ResumeDir, prefix)); err != nil {
			return nil, errors.WithFields(
				errors.Wrap(err, errors.WorkerFailed, "failed to restore run state"),
				errors.Fields{"worker": w.ID})
		}
	}

	logger.Info(ctx, "start genetic algorithm number %d", w.ID)

	best, err := ga.Run(ctx)
	if err != nil {
		if ctx.Err() != nil {
			// Supervisor-initiated cancellation, not a worker fault.
			return best, err
		}
		return best, errors.WithFields(
			errors.Wrap(err, errors.WorkerFailed, "search run failed"),
			errors.Fields{"worker": w.ID})
	}

	if cfg.OutputDir != "" {
		if err := ga.SaveState(filepath.Join(cfg.OutputDir, prefix)); err != nil {
			logger.Warn(ctx, "failed to checkpoint run %d: %v", w.ID, err)
		}
	}

	logger.Info(ctx, "finish genetic algorithm number %d", w.ID)
	return best, nil
}
