package optimize

import (
	"context"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/evosearch/demova/pkg/demography"
	"github.com/evosearch/demova/pkg/engines"
	"github.com/evosearch/demova/pkg/errors"
	"github.com/evosearch/demova/pkg/logging"
	"github.com/evosearch/demova/pkg/utils"
)

// BestSink receives the owned copy of a run's best candidate whenever it
// improves. The shared cross-run registry implements it.
type BestSink interface {
	Publish(key string, c *Candidate)
}

// Config carries the per-run search parameters.
type Config struct {
	// GenerationSize bounds the surviving population.
	GenerationSize int `json:"generation_size"`

	// Genetic tunes the operators of the genetic strategy.
	Genetic GeneticConfig `json:"genetic"`

	// Epsilon is the convergence tolerance; it also derives the number of
	// decimal digits used when printing log-likelihoods.
	Epsilon float64 `json:"epsilon"`

	// OutputDir is the root under which per-run directories are created.
	// Empty disables the per-run directory and log file.
	OutputDir string `json:"output_dir"`

	// Prefix identifies this run; it names the run directory and keys the
	// published best candidates.
	Prefix string `json:"prefix"`

	// Grid holds engine resolution parameters, passed through untouched.
	Grid []int `json:"grid"`
}

// DefaultConfig returns the search defaults.
func DefaultConfig() Config {
	return Config{
		GenerationSize: 10,
		Genetic:        DefaultGeneticConfig(),
		Epsilon:        1e-2,
	}
}

// GA owns one search trajectory: a population, its best candidate so far,
// and the iteration bookkeeping. It is not safe for concurrent use; each
// worker builds its own.
type GA struct {
	config   Config
	engine   engines.Engine
	model    *demography.Model
	strategy Strategy
	stop     StopCondition
	rng      *rand.Rand
	logger   *logging.Logger
	sink     BestSink

	pop       *Population
	best      *Candidate
	current   *Candidate
	curIter   int
	firstIter int
	workTime  time.Duration

	precision int
	runLog    *logging.FileOutput
	runLogger *logging.Logger
}

// Option adjusts a GA at construction time.
type Option func(*GA)

// WithStrategy selects the candidate generation strategy.
func WithStrategy(s Strategy) Option {
	return func(g *GA) { g.strategy = s }
}

// WithStopCondition selects the per-iteration stop predicate.
func WithStopCondition(s StopCondition) Option {
	return func(g *GA) { g.stop = s }
}

// WithRNG supplies the run's private randomness source.
func WithRNG(rng *rand.Rand) Option {
	return func(g *GA) { g.rng = rng }
}

// WithLogger overrides the default logger.
func WithLogger(l *logging.Logger) Option {
	return func(g *GA) { g.logger = l }
}

// WithBestSink attaches a destination for improved best candidates.
func WithBestSink(sink BestSink) Option {
	return func(g *GA) { g.sink = sink }
}

// New creates a GA over the given model and fitness engine.
func New(model *demography.Model, engine engines.Engine, config Config, opts ...Option) *GA {
	if config.GenerationSize < 1 {
		config.GenerationSize = DefaultConfig().GenerationSize
	}
	g := &GA{
		config:    config,
		engine:    engine,
		model:     model,
		strategy:  NewGeneticStrategy(config.Genetic),
		stop:      NeverStop{},
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
		logger:    logging.GetLogger(),
		pop:       NewPopulation(config.GenerationSize),
		precision: utils.DisplayPrecision(config.Epsilon),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Best returns an independent copy of the best candidate seen so far, or nil
// before the first completed iteration.
func (g *GA) Best() *Candidate { return g.best.Clone() }

// Iteration reports the number of the next iteration to run.
func (g *GA) Iteration() int { return g.curIter }

// MeanTime reports the average wall time of a completed iteration. Before
// any iteration has completed there is nothing to average and an error is
// returned.
func (g *GA) MeanTime() (time.Duration, error) {
	completed := g.curIter - g.firstIter
	if completed <= 0 {
		return 0, errors.New(errors.InvalidInput, "no completed iterations to average")
	}
	return g.workTime / time.Duration(completed), nil
}

// Run executes iterations until the stop condition fires or the context is
// cancelled, and returns the best candidate found. Cancellation is reported
// as the run error; the best found so far is still returned alongside it.
func (g *GA) Run(ctx context.Context) (*Candidate, error) {
	if err := g.openRunLog(); err != nil {
		return nil, err
	}
	if g.runLog != nil {
		defer func() {
			_ = g.runLog.Close()
			g.runLog = nil
			g.runLogger = nil
		}()
	}

	g.logf(ctx, "-- start %s search pipeline --", g.strategy.Name())

	for {
		if err := errors.CheckContext(ctx, "search"); err != nil {
			return g.Best(), err
		}

		if err := g.runOneIteration(ctx); err != nil {
			return g.Best(), err
		}

		if g.stop.Done(g.curIter-1, g.best) {
			break
		}
	}

	g.logf(ctx, "-- finish search pipeline at iteration %d --", g.curIter)
	return g.Best(), nil
}

// runOneIteration proposes one candidate, evaluates it exactly once, logs
// the result, and updates and publishes the best on strict improvement.
func (g *GA) runOneIteration(ctx context.Context) error {
	defer logging.TraceRegion(ctx, "iteration")()
	start := time.Now()

	candidate, err := g.strategy.Propose(g.model, g.pop, g.rng, g.curIter)
	if err != nil {
		return errors.WithFields(
			errors.Wrap(err, errors.InvalidInput, "candidate generation failed"),
			errors.Fields{"iteration": g.curIter})
	}

	valuesMap, err := g.model.ValuesMap(candidate.Values)
	if err != nil {
		return errors.WithFields(err, errors.Fields{"iteration": g.curIter})
	}

	logLikelihood, err := g.engine.Evaluate(ctx, g.model, valuesMap, g.config.Grid)
	if err != nil {
		return errors.WithFields(
			errors.Wrap(err, errors.EvaluationFailed, "fitness evaluation failed"),
			errors.Fields{"iteration": g.curIter, "engine": g.engine.Name()})
	}
	candidate.Fitness = -logLikelihood

	g.workTime += time.Since(start)
	g.current = candidate
	g.pop.Insert(candidate)

	improved := candidate.Better(g.best)
	if improved {
		g.best = candidate.Clone()
		logging.TraceLog(ctx, "search", "best improved")
	}

	g.logf(ctx, "%d %s %s %s",
		g.curIter,
		utils.FormatHMS(g.workTime),
		utils.FormatFloat(logLikelihood, g.precision),
		g.model.Describe(valuesMap, g.precision))

	if improved && g.sink != nil {
		g.sink.Publish(g.config.Prefix, g.best.Clone())
	}

	g.curIter++
	return nil
}

// runDir returns the per-run output directory, or "" when no prefix is set.
func (g *GA) runDir() string {
	if g.config.Prefix == "" || g.config.OutputDir == "" {
		return ""
	}
	return filepath.Join(g.config.OutputDir, g.config.Prefix)
}

// openRunLog creates the run directory and attaches its search log.
func (g *GA) openRunLog() error {
	dir := g.runDir()
	if dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.WithFields(
			errors.Wrap(err, errors.FileSystemError, "failed to create run directory"),
			errors.Fields{"dir": dir})
	}
	out, err := logging.NewFileOutput(filepath.Join(dir, "search.log"))
	if err != nil {
		return errors.WithFields(
			errors.Wrap(err, errors.FileSystemError, "failed to open search log"),
			errors.Fields{"dir": dir})
	}
	g.runLog = out
	g.runLogger = logging.NewLogger(logging.Config{
		Severity: logging.INFO,
		Outputs:  []logging.Output{out},
	})
	return nil
}

// logf writes one line to the run's search log (when open) and mirrors it
// through the configured logger at debug level.
func (g *GA) logf(ctx context.Context, format string, args ...interface{}) {
	if g.runLogger != nil {
		g.runLogger.Info(ctx, format, args...)
		g.logger.Debug(ctx, format, args...)
		return
	}
	g.logger.Info(ctx, format, args...)
}
