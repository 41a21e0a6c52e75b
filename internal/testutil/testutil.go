// Package testutil provides shared test doubles: a mockable fitness engine,
// deterministic analytic engines, and the standard two-population model
// fixture used across the test suites.
package testutil

import (
	"context"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/evosearch/demova/pkg/demography"
)

// MockEngine is a testify mock implementing engines.Engine.
type MockEngine struct {
	mock.Mock
}

func (m *MockEngine) Name() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockEngine) Evaluate(ctx context.Context, model *demography.Model, values map[string]demography.Value, grid []int) (float64, error) {
	args := m.Called(ctx, model, values, grid)
	return args.Get(0).(float64), args.Error(1)
}

// SphereEngine is a deterministic analytic engine: the log-likelihood is the
// negated sum of squares of all numeric parameter values, so the optimum
// lies at the domain's smallest magnitudes. Useful for convergence tests
// without a real simulator.
type SphereEngine struct{}

func (SphereEngine) Name() string { return "sphere" }

func (SphereEngine) Evaluate(_ context.Context, _ *demography.Model, values map[string]demography.Value, _ []int) (float64, error) {
	sum := 0.0
	for _, raw := range values {
		if x, ok := raw.(float64); ok {
			sum += x * x
		}
	}
	return -sum, nil
}

// TwoPopulationFixture bundles the standard model used by the parameter
// counting and search tests.
type TwoPopulationFixture struct {
	Model *demography.Model

	T1, T2     *demography.ContinuousVariable
	Nu1        *demography.ContinuousVariable
	Nu21, Nu22 *demography.ContinuousVariable
	Mig        *demography.ContinuousVariable
	Dyn1, Dyn2 *demography.DynamicsVariable
}

// TwoPopulationModel builds the canonical two-epoch, two-population model:
// an ancestral epoch, a split, and a final epoch with symmetric migration
// and searchable dynamics for both descendants. It carries 8 distinct
// variables, two of them dynamics.
func TwoPopulationModel(t *testing.T) *TwoPopulationFixture {
	t.Helper()

	f := &TwoPopulationFixture{}
	var err error

	f.T1, err = demography.NewTime("t1")
	require.NoError(t, err)
	f.Nu1, err = demography.NewPopulationSize("nu1")
	require.NoError(t, err)
	f.Nu21, err = demography.NewPopulationSize("nu21")
	require.NoError(t, err)
	f.Nu22, err = demography.NewPopulationSize("nu22")
	require.NoError(t, err)
	f.T2, err = demography.NewTime("t2")
	require.NoError(t, err)
	f.Mig, err = demography.NewMigration("m12")
	require.NoError(t, err)
	f.Dyn1, err = demography.NewDynamics("dyn1")
	require.NoError(t, err)
	f.Dyn2, err = demography.NewDynamics("dyn2")
	require.NoError(t, err)

	f.Model = demography.NewModel()
	require.NoError(t, f.Model.AddEpoch(f.T1, []demography.Variable{f.Nu1}, nil, nil))
	require.NoError(t, f.Model.AddSplit(0, []demography.Variable{f.Nu21, f.Nu22}))
	require.NoError(t, f.Model.AddEpoch(
		f.T2,
		[]demography.Variable{f.Nu21, f.Nu22},
		[][]demography.Variable{
			{nil, f.Mig},
			{f.Mig, nil},
		},
		[]demography.EpochDynamics{
			demography.SearchDynamics(f.Dyn1),
			demography.SearchDynamics(f.Dyn2),
		},
	))
	return f
}

// Values returns a full assignment for the fixture with the given dynamics
// tags.
func (f *TwoPopulationFixture) Values(dyn1, dyn2 string) map[string]demography.Value {
	return map[string]demography.Value{
		"t1":   0.5,
		"nu1":  1.0,
		"nu21": 2.0,
		"nu22": 0.5,
		"t2":   0.3,
		"m12":  1.5,
		"dyn1": dyn1,
		"dyn2": dyn2,
	}
}
