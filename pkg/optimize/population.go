package optimize

import (
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Population holds the surviving candidates of one search trajectory, sorted
// by fitness ascending. Capacity bounds the generation size; inserting into a
// full population evicts the worst individual (elitist truncation).
type Population struct {
	capacity   int
	candidates []*Candidate
}

// NewPopulation creates an empty population with the given capacity.
func NewPopulation(capacity int) *Population {
	if capacity < 1 {
		capacity = 1
	}
	return &Population{capacity: capacity}
}

// Insert places the candidate into fitness order, dropping the worst
// individual when the population is over capacity. The inserted candidate is
// stored as-is; callers keep ownership of nothing after insertion.
func (p *Population) Insert(c *Candidate) {
	idx := sort.Search(len(p.candidates), func(i int) bool {
		return p.candidates[i].Fitness > c.Fitness
	})
	p.candidates = append(p.candidates, nil)
	copy(p.candidates[idx+1:], p.candidates[idx:])
	p.candidates[idx] = c

	if len(p.candidates) > p.capacity {
		p.candidates = p.candidates[:p.capacity]
	}
}

// Len reports the current number of individuals.
func (p *Population) Len() int { return len(p.candidates) }

// Capacity reports the configured generation size.
func (p *Population) Capacity() int { return p.capacity }

// Full reports whether the population has reached its capacity.
func (p *Population) Full() bool { return len(p.candidates) >= p.capacity }

// Best returns the fittest individual, or nil when empty. The returned
// candidate is owned by the population; clone before publishing.
func (p *Population) Best() *Candidate {
	if len(p.candidates) == 0 {
		return nil
	}
	return p.candidates[0]
}

// At returns the individual at rank i (0 = best).
func (p *Population) At(i int) *Candidate { return p.candidates[i] }

// Snapshot returns independent copies of all individuals in fitness order.
func (p *Population) Snapshot() []*Candidate {
	out := make([]*Candidate, len(p.candidates))
	for i, c := range p.candidates {
		out[i] = c.Clone()
	}
	return out
}

// Stats summarizes the fitness distribution of the population.
type Stats struct {
	Best   float64
	Mean   float64
	StdDev float64
	Size   int
}

// Stats computes summary statistics over the current fitness values.
func (p *Population) Stats() Stats {
	if len(p.candidates) == 0 {
		return Stats{}
	}
	fitness := make([]float64, len(p.candidates))
	for i, c := range p.candidates {
		fitness[i] = c.Fitness
	}
	s := Stats{
		Best: fitness[0],
		Mean: stat.Mean(fitness, nil),
		Size: len(fitness),
	}
	if len(fitness) > 1 {
		s.StdDev = stat.StdDev(fitness, nil)
	}
	return s
}
