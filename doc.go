// Package demova infers demographic histories by searching the space of
// parameterized demographic models with a population-based genetic algorithm
// run across many independent restarts.
//
// A demographic model is an ordered sequence of epochs and population splits
// whose durations, sizes, migration rates and growth dynamics are bounded
// search variables. A fitness engine scores a full parameter assignment
// against observed genetic-variation data by log-likelihood; concrete
// simulators live outside this module and plug in through a narrow interface.
//
// Key Components:
//
//   - demography: Typed search variables (population sizes, times, migration
//     rates, growth dynamics), the epoch/split model structure, and the
//     fix/unfix overlay used for parameter counting.
//
//   - engines: The Engine fitness-evaluator interface and a registry of
//     named engine factories. Engines are pure: identical inputs always
//     yield the same log-likelihood.
//
//   - optimize: Candidates, the bounded elitist population, pluggable
//     generation strategies (random and genetic), stop conditions, and the
//     per-run GA loop with its checkpointing and search log.
//
//   - runner: The shared best-model registry, the worker wrapping one GA run,
//     and the supervisor that drives a bounded worker pool, polls the
//     registry to report progress, and classifies the terminal outcome.
//
//   - cache: Memoization of fitness evaluations behind the Engine interface,
//     with in-memory LRU and SQLite-backed stores.
//
//   - metrics: Model-comparison scores (AIC) for ranking results across runs
//     with different numbers of free parameters.
//
// The cmd/demova binary ties these together: it loads the YAML run
// configuration, installs signal handling, and runs the supervised search to
// completion, convergence, or interrupt.
package demova
