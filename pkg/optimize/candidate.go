// Package optimize implements the genetic-algorithm search over demographic
// models: candidates and populations, generation strategies, stop conditions,
// the per-run iteration loop, and run-state checkpointing.
package optimize

import (
	"github.com/google/uuid"

	"github.com/evosearch/demova/pkg/demography"
)

// Candidate origins name the operator that produced an individual.
const (
	OriginRandom    = "random"
	OriginMutation  = "mutation"
	OriginCrossover = "crossover"
	OriginResume    = "resume"
)

// Candidate is one individual of the search: a full assignment of values to
// the model's variables together with its evaluated fitness. Fitness is the
// negated log-likelihood, so the search minimizes and lower is better.
type Candidate struct {
	ID         string              `json:"id"`
	Values     []demography.Value  `json:"values"`
	Fitness    float64             `json:"fitness"`
	Generation int                 `json:"generation"`
	Origin     string              `json:"origin"`
}

// NewCandidate creates a candidate with a fresh identity around the given
// value assignment. Values follow the model's variable order.
func NewCandidate(values []demography.Value, generation int, origin string) *Candidate {
	return &Candidate{
		ID:         uuid.New().String(),
		Values:     values,
		Generation: generation,
		Origin:     origin,
	}
}

// Clone returns an independent copy of the candidate. The copy shares no
// mutable state with the original; published candidates are always clones.
func (c *Candidate) Clone() *Candidate {
	if c == nil {
		return nil
	}
	values := make([]demography.Value, len(c.Values))
	copy(values, c.Values)
	return &Candidate{
		ID:         c.ID,
		Values:     values,
		Fitness:    c.Fitness,
		Generation: c.Generation,
		Origin:     c.Origin,
	}
}

// Better reports whether c strictly improves on other under the minimization
// convention. A nil incumbent is always improved upon; ties are not.
func (c *Candidate) Better(other *Candidate) bool {
	if other == nil {
		return true
	}
	return c.Fitness < other.Fitness
}

// LogLikelihood returns the candidate's fitness in its natural sign.
func (c *Candidate) LogLikelihood() float64 {
	return -c.Fitness
}
