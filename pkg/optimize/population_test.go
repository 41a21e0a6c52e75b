package optimize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evosearch/demova/pkg/demography"
)

func candidateWithFitness(fitness float64) *Candidate {
	c := NewCandidate([]demography.Value{fitness}, 0, OriginRandom)
	c.Fitness = fitness
	return c
}

func TestPopulationInsertKeepsOrder(t *testing.T) {
	p := NewPopulation(5)
	for _, f := range []float64{3.0, 1.0, 2.0, 5.0, 4.0} {
		p.Insert(candidateWithFitness(f))
	}

	require.Equal(t, 5, p.Len())
	last := p.At(0).Fitness
	for i := 1; i < p.Len(); i++ {
		assert.GreaterOrEqual(t, p.At(i).Fitness, last)
		last = p.At(i).Fitness
	}
	assert.Equal(t, 1.0, p.Best().Fitness)
}

func TestPopulationEvictsWorst(t *testing.T) {
	p := NewPopulation(3)
	for _, f := range []float64{3.0, 1.0, 2.0} {
		p.Insert(candidateWithFitness(f))
	}
	assert.True(t, p.Full())

	p.Insert(candidateWithFitness(0.5))
	require.Equal(t, 3, p.Len())
	assert.Equal(t, 0.5, p.Best().Fitness)
	// The previous worst (3.0) is gone
	assert.Equal(t, 2.0, p.At(p.Len()-1).Fitness)

	// Inserting something worse than everything leaves the population as-is
	p.Insert(candidateWithFitness(9.0))
	assert.Equal(t, 2.0, p.At(p.Len()-1).Fitness)
}

func TestPopulationStats(t *testing.T) {
	p := NewPopulation(4)
	assert.Equal(t, Stats{}, p.Stats())

	p.Insert(candidateWithFitness(2.0))
	s := p.Stats()
	assert.Equal(t, 2.0, s.Best)
	assert.Equal(t, 2.0, s.Mean)
	assert.Equal(t, 0.0, s.StdDev)

	p.Insert(candidateWithFitness(4.0))
	s = p.Stats()
	assert.Equal(t, 2.0, s.Best)
	assert.InDelta(t, 3.0, s.Mean, 1e-12)
	assert.Greater(t, s.StdDev, 0.0)
	assert.Equal(t, 2, s.Size)
}

func TestPopulationSnapshotIsIndependent(t *testing.T) {
	p := NewPopulation(2)
	p.Insert(candidateWithFitness(1.0))

	snap := p.Snapshot()
	require.Len(t, snap, 1)
	snap[0].Fitness = -100
	snap[0].Values[0] = -100.0

	assert.Equal(t, 1.0, p.Best().Fitness)
	assert.Equal(t, 1.0, p.Best().Values[0])
}
