package optimize

import "math"

// StopCondition decides after each iteration whether the search should end.
// Conditions may carry state (convergence tracking); a fresh condition is
// built per run.
type StopCondition interface {
	Done(iteration int, best *Candidate) bool
}

// NeverStop runs until externally cancelled, matching the reference search
// driver where termination is imposed by the supervisor alone.
type NeverStop struct{}

func (NeverStop) Done(int, *Candidate) bool { return false }

// MaxIterations stops after a fixed number of completed iterations.
type MaxIterations int

func (m MaxIterations) Done(iteration int, _ *Candidate) bool {
	return iteration+1 >= int(m)
}

// Converged stops once the best fitness has not improved by more than
// Epsilon for Patience consecutive iterations.
type Converged struct {
	Epsilon  float64
	Patience int

	lastBest float64
	stalled  int
	primed   bool
}

// NewConverged creates a convergence stop condition.
func NewConverged(epsilon float64, patience int) *Converged {
	if patience < 1 {
		patience = 1
	}
	return &Converged{Epsilon: epsilon, Patience: patience}
}

func (c *Converged) Done(_ int, best *Candidate) bool {
	if best == nil {
		return false
	}
	if !c.primed {
		c.primed = true
		c.lastBest = best.Fitness
		return false
	}
	if c.lastBest-best.Fitness > c.Epsilon {
		c.lastBest = best.Fitness
		c.stalled = 0
		return false
	}
	c.lastBest = math.Min(c.lastBest, best.Fitness)
	c.stalled++
	return c.stalled >= c.Patience
}
