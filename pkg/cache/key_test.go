package cache

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evosearch/demova/internal/testutil"
	"github.com/evosearch/demova/pkg/demography"
)

func TestKeyStableAcrossMapIterationOrder(t *testing.T) {
	f := testutil.TwoPopulationModel(t)
	gen := NewKeyGenerator("")

	// Build the same assignment repeatedly; map iteration order varies, the
	// key must not.
	first := gen.Key("moments", []int{40, 50, 60}, f.Model, f.Values("Sud", "Exp"))
	for i := 0; i < 50; i++ {
		values := f.Values("Sud", "Exp")
		assert.Equal(t, first, gen.Key("moments", []int{40, 50, 60}, f.Model, values))
	}
}

func TestKeySensitivity(t *testing.T) {
	f := testutil.TwoPopulationModel(t)
	gen := NewKeyGenerator("")
	base := gen.Key("moments", []int{40, 50, 60}, f.Model, f.Values("Sud", "Exp"))

	t.Run("engine name", func(t *testing.T) {
		other := gen.Key("dadi", []int{40, 50, 60}, f.Model, f.Values("Sud", "Exp"))
		assert.NotEqual(t, base, other)
	})

	t.Run("grid", func(t *testing.T) {
		other := gen.Key("moments", []int{40, 50, 70}, f.Model, f.Values("Sud", "Exp"))
		assert.NotEqual(t, base, other)
	})

	t.Run("values", func(t *testing.T) {
		values := f.Values("Sud", "Exp")
		values["nu1"] = 1.25
		other := gen.Key("moments", []int{40, 50, 60}, f.Model, values)
		assert.NotEqual(t, base, other)
	})

	t.Run("dynamics tag", func(t *testing.T) {
		other := gen.Key("moments", []int{40, 50, 60}, f.Model, f.Values("Lin", "Exp"))
		assert.NotEqual(t, base, other)
	})

	t.Run("model structure", func(t *testing.T) {
		g := testutil.TwoPopulationModel(t)
		tExtra, err := demography.NewTime("t3")
		require.NoError(t, err)
		require.NoError(t, g.Model.AddEpoch(tExtra, []demography.Variable{g.Nu21, g.Nu22}, nil, nil))
		other := gen.Key("moments", []int{40, 50, 60}, g.Model, g.Values("Sud", "Exp"))
		assert.NotEqual(t, base, other)
	})
}

func TestKeyPrefix(t *testing.T) {
	f := testutil.TwoPopulationModel(t)

	def := NewKeyGenerator("").Key("moments", nil, f.Model, f.Values("Sud", "Sud"))
	assert.True(t, strings.HasPrefix(def, "demova_moments_"))

	custom := NewKeyGenerator("run7_").Key("moments", nil, f.Model, f.Values("Sud", "Sud"))
	assert.True(t, strings.HasPrefix(custom, "run7_moments_"))
}
