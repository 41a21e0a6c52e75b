package demography

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContinuousVariables(t *testing.T) {
	tests := []struct {
		name       string
		construct  func(string, ...ContinuousOption) (*ContinuousVariable, error)
		wantLower  float64
		wantUpper  float64
		logUniform bool
	}{
		{name: "PopulationSize", construct: NewPopulationSize, wantLower: 1e-2, wantUpper: 100, logUniform: true},
		{name: "Time", construct: NewTime, wantLower: 1e-15, wantUpper: 5},
		{name: "Migration", construct: NewMigration, wantLower: 0, wantUpper: 10},
		{name: "Selection", construct: NewSelection, wantLower: 0, wantUpper: 10},
		{name: "Fraction", construct: NewFraction, wantLower: 1e-3, wantUpper: 1},
	}

	rng := rand.New(rand.NewSource(42))

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := tt.construct("v")
			require.NoError(t, err)

			assert.Equal(t, "v", v.Name())
			assert.Equal(t, KindContinuous, v.Kind())

			lo, hi, err := v.Bounds()
			require.NoError(t, err)
			assert.Equal(t, tt.wantLower, lo)
			assert.Equal(t, tt.wantUpper, hi)

			// Every draw must stay inside the domain
			for i := 0; i < 1000; i++ {
				raw := v.Resample(rng)
				x, ok := raw.(float64)
				require.True(t, ok)
				assert.GreaterOrEqual(t, x, lo)
				assert.LessOrEqual(t, x, hi)
			}

			_, err = v.PossibleValues()
			assert.Error(t, err)
		})
	}
}

func TestContinuousCustomBounds(t *testing.T) {
	t.Run("override domain", func(t *testing.T) {
		v, err := NewTime("t", WithBounds(0.5, 2.0))
		require.NoError(t, err)

		lo, hi, err := v.Bounds()
		require.NoError(t, err)
		assert.Equal(t, 0.5, lo)
		assert.Equal(t, 2.0, hi)

		rng := rand.New(rand.NewSource(1))
		for i := 0; i < 1000; i++ {
			x := v.Resample(rng).(float64)
			assert.GreaterOrEqual(t, x, 0.5)
			assert.LessOrEqual(t, x, 2.0)
		}
	})

	t.Run("inverted bounds rejected", func(t *testing.T) {
		_, err := NewTime("t", WithBounds(5, 1))
		assert.Error(t, err)
	})

	t.Run("log scale requires positive lower bound", func(t *testing.T) {
		_, err := NewPopulationSize("nu", WithBounds(0, 10))
		assert.Error(t, err)
	})

	t.Run("empty name rejected", func(t *testing.T) {
		_, err := NewTime("")
		assert.Error(t, err)
	})
}

func TestLogUniformSampling(t *testing.T) {
	v, err := NewPopulationSize("nu")
	require.NoError(t, err)

	// On a log scale roughly half the draws land below the geometric mean
	// of the bounds; on a linear scale almost none would.
	rng := rand.New(rand.NewSource(7))
	geoMean := math.Sqrt(1e-2 * 100)
	below := 0
	const draws = 2000
	for i := 0; i < draws; i++ {
		if v.Resample(rng).(float64) < geoMean {
			below++
		}
	}
	ratio := float64(below) / draws
	assert.Greater(t, ratio, 0.4)
	assert.Less(t, ratio, 0.6)
}

func TestDiscreteVariable(t *testing.T) {
	t.Run("empty domain rejected", func(t *testing.T) {
		_, err := NewDiscrete("d", nil)
		assert.Error(t, err)
	})

	t.Run("numeric bounds", func(t *testing.T) {
		v, err := NewDiscrete("d", []Value{0.0, 1.0, 5.0, 4.0})
		require.NoError(t, err)

		lo, hi, err := v.Bounds()
		require.NoError(t, err)
		assert.Equal(t, 0.0, lo)
		assert.Equal(t, 5.0, hi)
	})

	t.Run("non-numeric bounds rejected", func(t *testing.T) {
		v, err := NewDiscrete("d", []Value{1.0, "two"})
		require.NoError(t, err)

		_, _, err = v.Bounds()
		assert.Error(t, err)
	})

	t.Run("resample stays in domain", func(t *testing.T) {
		v, err := NewDiscrete("d", []Value{0.0, 1.0, 5.0, 4.0})
		require.NoError(t, err)

		rng := rand.New(rand.NewSource(3))
		for i := 0; i < 1000; i++ {
			assert.True(t, v.Contains(v.Resample(rng)))
		}
	})

	t.Run("possible values are copies", func(t *testing.T) {
		v, err := NewDiscrete("d", []Value{1.0, 2.0})
		require.NoError(t, err)

		values, err := v.PossibleValues()
		require.NoError(t, err)
		values[0] = 99.0

		fresh, err := v.PossibleValues()
		require.NoError(t, err)
		assert.Equal(t, 1.0, fresh[0])
	})
}

func TestDynamicsVariable(t *testing.T) {
	t.Run("default domain", func(t *testing.T) {
		v, err := NewDynamics("Dyn")
		require.NoError(t, err)

		values, err := v.PossibleValues()
		require.NoError(t, err)
		assert.ElementsMatch(t, []Value{Sudden, Linear, Exponential}, values)
		assert.Equal(t, KindDiscrete, v.Kind())
	})

	t.Run("custom subset", func(t *testing.T) {
		v, err := NewDynamics("Dyn", Sudden, Exponential)
		require.NoError(t, err)
		assert.True(t, v.Contains(Sudden))
		assert.False(t, v.Contains(Linear))
	})

	t.Run("unknown tag rejected", func(t *testing.T) {
		_, err := NewDynamics("Dyn", "Gauss")
		assert.Error(t, err)
	})

	t.Run("resample stays in domain", func(t *testing.T) {
		v, err := NewDynamics("Dyn")
		require.NoError(t, err)

		rng := rand.New(rand.NewSource(5))
		for i := 0; i < 1000; i++ {
			tag, ok := v.Resample(rng).(string)
			require.True(t, ok)
			assert.True(t, IsDynamicsTag(tag))
		}
	})

	t.Run("no numeric bounds", func(t *testing.T) {
		v, err := NewDynamics("Dyn")
		require.NoError(t, err)

		_, _, err = v.Bounds()
		assert.Error(t, err)
	})
}

func TestDynamicsFunc(t *testing.T) {
	t.Run("sudden jumps to final size", func(t *testing.T) {
		f, err := DynamicsFunc(Sudden)
		require.NoError(t, err)
		assert.Equal(t, 2.0, f(1.0, 2.0, 0.0, 10.0))
		assert.Equal(t, 2.0, f(1.0, 2.0, 5.0, 10.0))
	})

	t.Run("linear interpolates", func(t *testing.T) {
		f, err := DynamicsFunc(Linear)
		require.NoError(t, err)
		assert.InDelta(t, 1.0, f(1.0, 3.0, 0.0, 10.0), 1e-12)
		assert.InDelta(t, 2.0, f(1.0, 3.0, 5.0, 10.0), 1e-12)
		assert.InDelta(t, 3.0, f(1.0, 3.0, 10.0, 10.0), 1e-12)
	})

	t.Run("exponential interpolates geometrically", func(t *testing.T) {
		f, err := DynamicsFunc(Exponential)
		require.NoError(t, err)
		assert.InDelta(t, 1.0, f(1.0, 4.0, 0.0, 10.0), 1e-12)
		assert.InDelta(t, 2.0, f(1.0, 4.0, 5.0, 10.0), 1e-12)
		assert.InDelta(t, 4.0, f(1.0, 4.0, 10.0, 10.0), 1e-12)
	})

	t.Run("zero duration resolves to final size", func(t *testing.T) {
		for _, tag := range []string{Linear, Exponential} {
			f, err := DynamicsFunc(tag)
			require.NoError(t, err)
			assert.Equal(t, 7.0, f(3.0, 7.0, 0.0, 0.0))
		}
	})

	t.Run("unknown tag rejected", func(t *testing.T) {
		_, err := DynamicsFunc("100")
		assert.Error(t, err)
	})
}

func TestVariablesEqual(t *testing.T) {
	a, err := NewPopulationSize("nu")
	require.NoError(t, err)
	b, err := NewPopulationSize("nu", WithBounds(1, 2))
	require.NoError(t, err)
	c, err := NewPopulationSize("other")
	require.NoError(t, err)
	d, err := NewDynamics("nu")
	require.NoError(t, err)

	assert.True(t, VariablesEqual(a, b), "same name and kind match regardless of domain")
	assert.False(t, VariablesEqual(a, c), "different names never match")
	assert.False(t, VariablesEqual(a, d), "different kinds never match")
	assert.False(t, VariablesEqual(a, nil))
	assert.True(t, VariablesEqual(nil, nil))
}
