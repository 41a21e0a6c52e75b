package optimize

import (
	"math"
	"math/rand"

	"github.com/evosearch/demova/pkg/demography"
)

// Strategy produces the next candidate of a search trajectory. Exactly one
// candidate is proposed per iteration; its fitness is left unset for the
// engine to evaluate.
type Strategy interface {
	Name() string
	Propose(model *demography.Model, pop *Population, rng *rand.Rand, generation int) (*Candidate, error)
}

// RandomStrategy samples every free variable afresh each iteration. It is the
// minimal reference scaffold and doubles as the bootstrap phase of the
// genetic strategy.
type RandomStrategy struct{}

func (RandomStrategy) Name() string { return "random" }

func (RandomStrategy) Propose(model *demography.Model, pop *Population, rng *rand.Rand, generation int) (*Candidate, error) {
	return NewCandidate(model.SampleValues(rng), generation, OriginRandom), nil
}

// GeneticConfig tunes the genetic operators.
type GeneticConfig struct {
	// Fractions decide which operator produces the next candidate once the
	// population is full. They are normalized; anything left after mutation
	// and crossover goes to fresh random injection.
	MutationFraction  float64 `json:"mutation_fraction"`
	CrossoverFraction float64 `json:"crossover_fraction"`

	// Per-gene probability of perturbing a value during mutation.
	MutationRate float64 `json:"mutation_rate"`
	// Width of the log-normal mutation step for continuous genes.
	MutationStrength float64 `json:"mutation_strength"`
	// Number of individuals entering each tournament selection.
	TournamentSize int `json:"tournament_size"`
}

// DefaultGeneticConfig mirrors the usual operator mix: half mutation, a
// third crossover, the rest random restarts.
func DefaultGeneticConfig() GeneticConfig {
	return GeneticConfig{
		MutationFraction:  0.5,
		CrossoverFraction: 0.3,
		MutationRate:      0.3,
		MutationStrength:  0.2,
		TournamentSize:    3,
	}
}

// GeneticStrategy evolves the population with tournament selection, per-gene
// log-normal mutation and uniform crossover. Until the population fills it
// behaves like RandomStrategy.
type GeneticStrategy struct {
	config GeneticConfig
}

// NewGeneticStrategy creates a genetic strategy with the given operator
// configuration.
func NewGeneticStrategy(config GeneticConfig) *GeneticStrategy {
	if config.TournamentSize < 2 {
		config.TournamentSize = 2
	}
	return &GeneticStrategy{config: config}
}

func (s *GeneticStrategy) Name() string { return "genetic" }

func (s *GeneticStrategy) Propose(model *demography.Model, pop *Population, rng *rand.Rand, generation int) (*Candidate, error) {
	if !pop.Full() {
		return NewCandidate(model.SampleValues(rng), generation, OriginRandom), nil
	}

	total := s.config.MutationFraction + s.config.CrossoverFraction
	if total > 1 {
		total = 1
	}
	r := rng.Float64()
	switch {
	case r < s.config.MutationFraction:
		parent := s.tournament(pop, rng)
		return s.mutate(model, parent, rng, generation), nil
	case r < total:
		a := s.tournament(pop, rng)
		b := s.tournament(pop, rng)
		return s.crossover(model, a, b, rng, generation), nil
	default:
		return NewCandidate(model.SampleValues(rng), generation, OriginRandom), nil
	}
}

// tournament picks the fittest of TournamentSize uniformly drawn individuals.
func (s *GeneticStrategy) tournament(pop *Population, rng *rand.Rand) *Candidate {
	best := pop.At(rng.Intn(pop.Len()))
	for i := 1; i < s.config.TournamentSize; i++ {
		challenger := pop.At(rng.Intn(pop.Len()))
		if challenger.Fitness < best.Fitness {
			best = challenger
		}
	}
	return best
}

// mutate perturbs each gene with probability MutationRate. Continuous genes
// take a log-normal multiplicative step clamped to their bounds; discrete
// genes are resampled. Pinned variables keep their overlay value.
func (s *GeneticStrategy) mutate(model *demography.Model, parent *Candidate, rng *rand.Rand, generation int) *Candidate {
	variables := model.Variables()
	values := make([]demography.Value, len(parent.Values))
	copy(values, parent.Values)

	for i, v := range variables {
		if model.IsFixed(v.Name()) {
			continue
		}
		if rng.Float64() >= s.config.MutationRate {
			continue
		}
		cv, ok := v.(*demography.ContinuousVariable)
		if !ok {
			values[i] = v.Resample(rng)
			continue
		}
		lo, hi, err := cv.Bounds()
		if err != nil {
			values[i] = v.Resample(rng)
			continue
		}
		x, isNum := values[i].(float64)
		if !isNum || x <= 0 {
			// A multiplicative step cannot leave zero; resample instead.
			values[i] = v.Resample(rng)
			continue
		}
		x *= math.Exp(rng.NormFloat64() * s.config.MutationStrength)
		values[i] = math.Min(math.Max(x, lo), hi)
	}

	child := NewCandidate(values, generation, OriginMutation)
	return child
}

// crossover mixes two parents gene-wise with equal probability.
func (s *GeneticStrategy) crossover(model *demography.Model, a, b *Candidate, rng *rand.Rand, generation int) *Candidate {
	variables := model.Variables()
	values := make([]demography.Value, len(variables))
	for i := range variables {
		if rng.Float64() < 0.5 {
			values[i] = a.Values[i]
		} else {
			values[i] = b.Values[i]
		}
	}
	return NewCandidate(values, generation, OriginCrossover)
}
