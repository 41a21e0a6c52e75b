// Command demova runs the genetic-algorithm search for demographic models:
// it loads the run configuration, wires the configured fitness engine and
// evaluation cache, and drives the supervised worker pool until completion,
// convergence, or interrupt.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/evosearch/demova/pkg/cache"
	"github.com/evosearch/demova/pkg/config"
	"github.com/evosearch/demova/pkg/demography"
	"github.com/evosearch/demova/pkg/engines"
	"github.com/evosearch/demova/pkg/logging"
	"github.com/evosearch/demova/pkg/runner"
)

const (
	exitOK          = 0
	exitFailure     = 1
	exitInterrupted = 130
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "path to the YAML run configuration")
	outputDir := flag.String("output", "", "override the output directory")
	processes := flag.Int("processes", 0, "override the number of concurrent runs")
	repeats := flag.Int("repeats", 0, "override the number of independent restarts")
	resumeDir := flag.String("resume", "", "previous output directory to resume from")
	engineName := flag.String("engine", "", "override the fitness engine")
	listEngines := flag.Bool("list-engines", false, "print the registered engines and exit")
	traceFile := flag.String("trace", "", "write a runtime trace snapshot here on failure")
	flag.Parse()

	registerBuiltinEngines()

	if *listEngines {
		for _, name := range engines.All() {
			fmt.Println(name)
		}
		return exitOK
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "demova: %v\n", err)
		return exitFailure
	}
	applyOverrides(cfg, *outputDir, *processes, *repeats, *resumeDir, *engineName)
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "demova: %v\n", err)
		return exitFailure
	}

	logger, closeLogs, err := buildLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "demova: %v\n", err)
		return exitFailure
	}
	defer closeLogs()
	logging.SetLogger(logger)

	var recorder *logging.FlightRecorder
	if *traceFile != "" {
		recorder = logging.NewFlightRecorder()
		if err := recorder.Start(); err != nil {
			logger.Warn(context.Background(), "flight recorder unavailable: %v", err)
			recorder = nil
		} else {
			defer recorder.Stop()
		}
	}

	engine, closeEngine, err := buildEngine(cfg)
	if err != nil {
		logger.Error(context.Background(), "%v", err)
		return exitFailure
	}
	defer closeEngine()

	model, err := searchModel()
	if err != nil {
		logger.Error(context.Background(), "failed to build model: %v", err)
		return exitFailure
	}

	opts := []runner.SupervisorOption{
		runner.WithSupervisorLogger(logger),
		runner.WithStopFactory(cfg.StopFactory()),
	}
	if cfg.ResumeDir != "" {
		opts = append(opts, runner.WithResumeDir(cfg.ResumeDir))
	}
	sup := runner.NewSupervisor(model, engine, cfg.SupervisorConfig(), cfg.SearchConfig(), opts...)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := sup.Run(ctx)
	switch result.Outcome {
	case runner.OutcomeCompleted:
		if result.Best != nil {
			logger.Info(ctx, "best log-likelihood %g from run %s after %s",
				result.Best.LogLikelihood(), result.BestRun, result.Elapsed.Round(time.Second))
		}
		return exitOK

	case runner.OutcomeCancelled:
		return exitInterrupted

	default:
		logger.Error(ctx, "search failed: %v", err)
		if recorder != nil {
			recorder.SnapshotOnError(err, *traceFile)
		}
		return exitFailure
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

func applyOverrides(cfg *config.Config, outputDir string, processes, repeats int, resumeDir, engineName string) {
	if outputDir != "" {
		cfg.OutputDir = outputDir
	}
	if processes > 0 {
		cfg.Processes = processes
	}
	if repeats > 0 {
		cfg.Repeats = repeats
	}
	if resumeDir != "" {
		cfg.ResumeDir = resumeDir
	}
	if engineName != "" {
		cfg.Engine.Name = engineName
	}
}

// buildLogger assembles the console and optional file outputs at the
// configured severity.
func buildLogger(cfg *config.Config) (*logging.Logger, func(), error) {
	var outputs []logging.Output
	if !cfg.Silence {
		outputs = append(outputs, logging.NewConsoleOutput(false, logging.WithColor(true)))
	}

	var fileOut *logging.FileOutput
	if cfg.Logging.File != "" {
		var err error
		fileOut, err = logging.NewFileOutput(cfg.Logging.File)
		if err != nil {
			return nil, nil, err
		}
		outputs = append(outputs, fileOut)
	}

	logger := logging.NewLogger(logging.Config{
		Severity: logging.ParseSeverity(cfg.Logging.Level),
		Outputs:  outputs,
	})
	closeLogs := func() {
		if fileOut != nil {
			fileOut.Close()
		}
	}
	return logger, closeLogs, nil
}

// buildEngine instantiates the configured engine and wraps it with the
// evaluation cache when enabled.
func buildEngine(cfg *config.Config) (engines.Engine, func(), error) {
	engine, err := engines.Get(cfg.Engine.Name)
	if err != nil {
		return nil, nil, err
	}
	if !cfg.Cache.Enabled {
		return engine, func() {}, nil
	}

	store, err := cache.New(cfg.CacheSettings())
	if err != nil {
		return nil, nil, err
	}
	cached := cache.NewCachedEngine(engine, store)
	return cached, func() { cached.Close() }, nil
}

// registerBuiltinEngines installs the analytic baseline engine. Real
// simulators register themselves the same way from their own packages.
func registerBuiltinEngines() {
	engines.Register("sphere", func() (engines.Engine, error) {
		return engines.NewEngineFunc("sphere", sphereEvaluate), nil
	})
}

// sphereEvaluate scores an assignment by the negated sum of squares of its
// numeric values. It has a single optimum and exists for smoke runs and
// pipeline checks, not for inference.
func sphereEvaluate(_ context.Context, _ *demography.Model, values map[string]demography.Value, _ []int) (float64, error) {
	sum := 0.0
	for _, raw := range values {
		if x, ok := raw.(float64); ok {
			sum += x * x
		}
	}
	return -sum, nil
}

// searchModel builds the initial two-epoch, two-population structure: an
// ancestral size change, a split, and a final epoch with symmetric migration
// and searchable dynamics for both descendants.
func searchModel() (*demography.Model, error) {
	t1, err := demography.NewTime("t1")
	if err != nil {
		return nil, err
	}
	nu1, err := demography.NewPopulationSize("nu1")
	if err != nil {
		return nil, err
	}
	nu21, err := demography.NewPopulationSize("nu21")
	if err != nil {
		return nil, err
	}
	nu22, err := demography.NewPopulationSize("nu22")
	if err != nil {
		return nil, err
	}
	t2, err := demography.NewTime("t2")
	if err != nil {
		return nil, err
	}
	mig, err := demography.NewMigration("m12")
	if err != nil {
		return nil, err
	}
	dyn1, err := demography.NewDynamics("dyn1")
	if err != nil {
		return nil, err
	}
	dyn2, err := demography.NewDynamics("dyn2")
	if err != nil {
		return nil, err
	}

	model := demography.NewModel()
	if err := model.AddEpoch(t1, []demography.Variable{nu1}, nil, nil); err != nil {
		return nil, err
	}
	if err := model.AddSplit(0, []demography.Variable{nu21, nu22}); err != nil {
		return nil, err
	}
	if err := model.AddEpoch(
		t2,
		[]demography.Variable{nu21, nu22},
		[][]demography.Variable{
			{nil, mig},
			{mig, nil},
		},
		[]demography.EpochDynamics{
			demography.SearchDynamics(dyn1),
			demography.SearchDynamics(dyn2),
		},
	); err != nil {
		return nil, err
	}
	return model, nil
}
