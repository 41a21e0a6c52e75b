package optimize

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/evosearch/demova/pkg/errors"
)

const stateFileName = "state.json"

// runState is the serialized form of a search trajectory. Candidate values
// survive the round trip exactly: continuous genes as float64, dynamics tags
// as strings.
type runState struct {
	Iterations int           `json:"iterations"`
	WorkTime   time.Duration `json:"work_time"`
	Best       *Candidate    `json:"best,omitempty"`
	Population []*Candidate  `json:"population"`
}

// SaveState persists the trajectory into dir so a later run can resume from
// it. Pass the run directory; the artifact name is fixed.
func (g *GA) SaveState(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.WithFields(
			errors.Wrap(err, errors.FileSystemError, "failed to create checkpoint directory"),
			errors.Fields{"dir": dir})
	}
	state := runState{
		Iterations: g.curIter,
		WorkTime:   g.workTime,
		Best:       g.best.Clone(),
		Population: g.pop.Snapshot(),
	}
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return errors.Wrap(err, errors.CheckpointFailed, "failed to encode run state")
	}
	path := filepath.Join(dir, stateFileName)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.WithFields(
			errors.Wrap(err, errors.CheckpointFailed, "failed to write run state"),
			errors.Fields{"path": path})
	}
	return nil
}

// LoadState restores a trajectory saved by SaveState. A missing artifact is
// not an error: resuming from nothing simply starts fresh. A present but
// unreadable artifact is a checkpoint failure.
func (g *GA) LoadState(dir string) error {
	path := filepath.Join(dir, stateFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.WithFields(
			errors.Wrap(err, errors.CheckpointFailed, "failed to read run state"),
			errors.Fields{"path": path})
	}

	var state runState
	if err := json.Unmarshal(data, &state); err != nil {
		return errors.WithFields(
			errors.Wrap(err, errors.CheckpointFailed, "run state is corrupt"),
			errors.Fields{"path": path})
	}

	g.pop = NewPopulation(g.config.GenerationSize)
	for _, c := range state.Population {
		c.Origin = OriginResume
		g.pop.Insert(c)
	}
	g.best = state.Best
	if g.best != nil {
		g.best.Origin = OriginResume
	}
	// Iteration numbering continues from the checkpoint; the work-time
	// accumulator restarts so MeanTime averages only the resumed run.
	g.curIter = state.Iterations
	g.firstIter = state.Iterations
	g.workTime = 0
	return nil
}
