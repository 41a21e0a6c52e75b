package runner

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evosearch/demova/internal/testutil"
	"github.com/evosearch/demova/pkg/demography"
	"github.com/evosearch/demova/pkg/engines"
	"github.com/evosearch/demova/pkg/errors"
	"github.com/evosearch/demova/pkg/optimize"
)

func testWorker(t *testing.T, id int, engine engines.Engine, registry *Registry, iterations int) *Worker {
	t.Helper()
	f := testutil.TwoPopulationModel(t)
	return &Worker{
		ID:       id,
		Model:    f.Model,
		Engine:   engine,
		Config:   optimize.DefaultConfig(),
		Registry: registry,
		NewStop: func() optimize.StopCondition {
			return optimize.MaxIterations(iterations)
		},
	}
}

func TestWorkerRunPublishesUnderOwnKey(t *testing.T) {
	registry := NewRegistry()
	w := testWorker(t, 4, testutil.SphereEngine{}, registry, 20)

	best, err := w.Run(context.Background())
	require.NoError(t, err)
	require.NotNil(t, best)

	published, ok := registry.Get("4")
	require.True(t, ok)
	assert.Equal(t, best.Fitness, published.Fitness)
	assert.Equal(t, 1, registry.Len())
}

func TestWorkerSeedsAreIndependent(t *testing.T) {
	a := testWorker(t, 0, testutil.SphereEngine{}, nil, 1)
	b := testWorker(t, 1, testutil.SphereEngine{}, nil, 1)
	// Crypto-random mixing makes identical-instant launches diverge.
	assert.NotEqual(t, a.seed(), b.seed())
	assert.NotEqual(t, a.seed(), a.seed())
}

func TestWorkerFailureCarriesWorkerID(t *testing.T) {
	engine := engines.NewEngineFunc("broken", func(context.Context, *demography.Model, map[string]demography.Value, []int) (float64, error) {
		return 0, errors.New(errors.Unknown, "no spectrum")
	})
	w := testWorker(t, 7, engine, NewRegistry(), 5)

	_, err := w.Run(context.Background())
	require.Error(t, err)
	var coded *errors.Error
	require.ErrorAs(t, err, &coded)
	assert.Equal(t, errors.WorkerFailed, coded.Code())
	assert.Equal(t, 7, coded.Fields()["worker"])
}

func TestWorkerCancellationIsNotAFailure(t *testing.T) {
	slow := engines.NewEngineFunc("slow", func(ctx context.Context, _ *demography.Model, _ map[string]demography.Value, _ []int) (float64, error) {
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-time.After(5 * time.Millisecond):
			return -1, nil
		}
	})
	w := testWorker(t, 2, slow, NewRegistry(), 1_000_000)
	w.NewStop = nil // run until cancelled

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := w.Run(ctx)
	require.Error(t, err)
	var coded *errors.Error
	if assert.ErrorAs(t, err, &coded) {
		assert.NotEqual(t, errors.WorkerFailed, coded.Code())
	}
}

func TestWorkerDeclinesCancelledContext(t *testing.T) {
	calls := 0
	counting := engines.NewEngineFunc("counting", func(context.Context, *demography.Model, map[string]demography.Value, []int) (float64, error) {
		calls++
		return -1, nil
	})
	w := testWorker(t, 3, counting, NewRegistry(), 10)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	best, err := w.Run(ctx)
	require.Error(t, err)
	assert.Nil(t, best)
	assert.Zero(t, calls, "a cancelled context must stop the run before any evaluation")

	var coded *errors.Error
	require.ErrorAs(t, err, &coded)
	assert.Equal(t, errors.Canceled, coded.Code())
}

func TestWorkerResumeContinuesNumbering(t *testing.T) {
	out := t.TempDir()
	registry := NewRegistry()

	w := testWorker(t, 0, testutil.SphereEngine{}, registry, 10)
	w.Config.OutputDir = out
	_, err := w.Run(context.Background())
	require.NoError(t, err)

	// Second worker resumes from the first one's checkpoint.
	resumed := testWorker(t, 0, testutil.SphereEngine{}, registry, 15)
	resumed.Config.OutputDir = t.TempDir()
	resumed.ResumeDir = out

	best, err := resumed.Run(context.Background())
	require.NoError(t, err)
	require.NotNil(t, best)
}
