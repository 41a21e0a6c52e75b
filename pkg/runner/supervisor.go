package runner

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/evosearch/demova/pkg/demography"
	"github.com/evosearch/demova/pkg/engines"
	"github.com/evosearch/demova/pkg/errors"
	"github.com/evosearch/demova/pkg/logging"
	"github.com/evosearch/demova/pkg/optimize"
)

// Outcome classifies how a supervised search ended.
type Outcome int

const (
	OutcomeCompleted Outcome = iota
	OutcomeCancelled
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCompleted:
		return "completed"
	case OutcomeCancelled:
		return "cancelled"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Result summarizes a supervised search.
type Result struct {
	Outcome   Outcome
	Best      *optimize.Candidate
	BestRun   string
	Elapsed   time.Duration
	Completed int // runs that finished normally
}

// Config sizes the pool and the polling loop.
type Config struct {
	// Workers bounds how many runs execute concurrently.
	Workers int
	// Runs is the total number of independent restarts; runs beyond
	// Workers queue behind the pool slots.
	Runs int
	// ReportInterval is the polling timeout between progress reports.
	ReportInterval time.Duration
}

// Supervisor launches the worker pool, polls the shared registry on a
// bounded timeout to report progress, and classifies the terminal outcome.
// It never evaluates fitness itself and never writes to the registry.
type Supervisor struct {
	config    Config
	model     *demography.Model
	engine    engines.Engine
	gaConfig  optimize.Config
	registry  *Registry
	reporter  *Reporter
	logger    *logging.Logger
	resumeDir string
	newStop   StopFactory
}

// SupervisorOption adjusts a Supervisor at construction time.
type SupervisorOption func(*Supervisor)

// WithReporter overrides the progress/final report destination.
func WithReporter(r *Reporter) SupervisorOption {
	return func(s *Supervisor) { s.reporter = r }
}

// WithSupervisorLogger overrides the default logger.
func WithSupervisorLogger(l *logging.Logger) SupervisorOption {
	return func(s *Supervisor) { s.logger = l }
}

// WithResumeDir points workers at a previous run's output root to restore
// their trajectories from.
func WithResumeDir(dir string) SupervisorOption {
	return func(s *Supervisor) { s.resumeDir = dir }
}

// WithStopFactory sets the per-run stop condition builder.
func WithStopFactory(f StopFactory) SupervisorOption {
	return func(s *Supervisor) { s.newStop = f }
}

// WithRegistry substitutes a pre-populated registry.
func WithRegistry(r *Registry) SupervisorOption {
	return func(s *Supervisor) { s.registry = r }
}

// NewSupervisor creates a supervisor over the given model and engine. Each
// worker receives gaConfig with its own prefix substituted.
func NewSupervisor(model *demography.Model, engine engines.Engine, config Config, gaConfig optimize.Config, opts ...SupervisorOption) *Supervisor {
	if config.Workers < 1 {
		config.Workers = 1
	}
	if config.Runs < 1 {
		config.Runs = config.Workers
	}
	if config.ReportInterval <= 0 {
		config.ReportInterval = time.Minute
	}
	s := &Supervisor{
		config:   config,
		model:    model,
		engine:   engine,
		gaConfig: gaConfig,
		registry: NewRegistry(),
		logger:   logging.GetLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.reporter == nil {
		s.reporter = NewReporter(logWriter{s.logger}, model, gaConfig.Epsilon)
	}
	return s
}

// Registry exposes the shared best-candidate store, e.g. for tests or final
// inspection. Callers receive snapshot copies only.
func (s *Supervisor) Registry() *Registry { return s.registry }

// Run drives the pool to completion. The polling loop re-arms on every
// timeout; any other wake-up is terminal. The returned error is nil only on
// normal completion.
func (s *Supervisor) Run(ctx context.Context) (Result, error) {
	start := time.Now()
	var completed int64

	p := pool.New().
		WithContext(ctx).
		WithCancelOnError().
		WithFirstError().
		WithMaxGoroutines(s.config.Workers)

	for i := 0; i < s.config.Runs; i++ {
		id := i
		p.Go(func(wctx context.Context) error {
			w := &Worker{
				ID:        id,
				Model:     s.model,
				Engine:    s.engine,
				Config:    s.gaConfig,
				Registry:  s.registry,
				Logger:    s.logger,
				ResumeDir: s.resumeDir,
				NewStop:   s.newStop,
			}
			if _, err := w.Run(wctx); err != nil {
				return err
			}
			atomic.AddInt64(&completed, 1)
			return nil
		})
	}

	done := make(chan error, 1)
	go func() { done <- p.Wait() }()

	ticker := time.NewTicker(s.config.ReportInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			// Poll timeout: report and keep waiting.
			s.reporter.Progress(time.Since(start), s.registry.Ranked())

		case err := <-done:
			elapsed := time.Since(start)
			result := Result{
				Elapsed:   elapsed,
				Completed: int(atomic.LoadInt64(&completed)),
			}
			ranked := s.registry.Ranked()
			if len(ranked) > 0 {
				result.Best = ranked[0].Candidate
				result.BestRun = ranked[0].Run
			}

			switch {
			case err == nil:
				result.Outcome = OutcomeCompleted
				s.reporter.Final(elapsed, ranked, result.Completed)
				return result, nil

			case ctx.Err() != nil:
				// User-initiated interrupt: terminate, do not finalize.
				result.Outcome = OutcomeCancelled
				s.logger.Warn(ctx, "search cancelled after %s", elapsed.Round(time.Second))
				return result, errors.Wrap(ctx.Err(), errors.Canceled, "search cancelled")

			default:
				// A worker failed; the pool has already been cancelled.
				// Published entries survive for this last report.
				result.Outcome = OutcomeFailed
				s.reporter.Progress(elapsed, ranked)
				return result, err
			}
		}
	}
}

// logWriter adapts the logger to the reporter's io.Writer.
type logWriter struct {
	logger *logging.Logger
}

func (w logWriter) Write(p []byte) (int, error) {
	w.logger.Info(context.Background(), "%s", string(p))
	return len(p), nil
}
