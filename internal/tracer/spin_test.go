package tracer

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qestudio/internal/param"
)

func newSpin(t *testing.T) (*param.Set, *SpinRule) {
	t.Helper()
	system := param.NewSet("system")
	r := NewSpin(system)
	r.Activate()
	return system, r
}

func TestSpin_Scenario(t *testing.T) {
	system, _ := newSpin(t)

	system.Set("nspin", param.Int(2))
	assert.Equal(t, param.Int(2), system.GetShadow(ShadowNspin))
	assert.Equal(t, param.Float(0), system.Get("starting_magnetization(1)"))

	system.Set("noncolin", param.Bool(true))
	assert.False(t, system.Has("nspin"))
	assert.Equal(t, param.Int(4), system.GetShadow(ShadowNspin))

	system.Set("tot_magnetization", param.Float(0.5))
	assert.Equal(t, param.Float(0.5), system.Get("fixed_magnetization(3)"))
	assert.False(t, system.Has("tot_magnetization"))
	assert.Equal(t, param.String("total"), system.Get("constrained_magnetization"))
	assert.Equal(t, param.Float(0.5), system.GetShadow(ShadowTotMagnetization))
}

func TestSpin_MutualExclusion(t *testing.T) {
	system, r := newSpin(t)
	rng := rand.New(rand.NewSource(7))
	edits := []func(){
		func() { system.Set("nspin", param.Int(1)) },
		func() { system.Set("nspin", param.Int(2)) },
		func() { system.Set("nspin", param.Int(4)) },
		func() { system.Remove("nspin") },
		func() { system.Set("nspin", param.String("2")) },
		func() { system.Set("nspin", param.String("two")) },
		func() { system.Set("noncolin", param.Bool(true)) },
		func() { system.Set("noncolin", param.Bool(false)) },
		func() { system.Remove("noncolin") },
	}

	for i := 0; i < 1000; i++ {
		before := r.Passes()
		edits[rng.Intn(len(edits))]()
		require.Equal(t, before+1, r.Passes(), "one guarded pass per edit")
		require.False(t, system.Has("nspin") && system.Has("noncolin"), "step %d: %v", i, system.Keys())

		eff := system.GetShadow(ShadowNspin)
		require.True(t, eff.IsSet(), "step %d", i)
		require.Contains(t, []int{1, 2, 4}, eff.AsInteger())
	}
}

func TestSpin_NonIntegerNspin(t *testing.T) {
	t.Run("integer text is coerced", func(t *testing.T) {
		system, _ := newSpin(t)
		system.Set("noncolin", param.Bool(true))
		system.Set("nspin", param.String(" 2 "))
		assert.Equal(t, param.Int(2), system.Get("nspin"))
		assert.False(t, system.Has("noncolin"))
		assert.Equal(t, param.Int(2), system.GetShadow(ShadowNspin))
	})
	t.Run("anything else is dropped", func(t *testing.T) {
		system, _ := newSpin(t)
		system.Set("noncolin", param.Bool(true))
		for _, v := range []param.Value{param.String("two"), param.Bool(true)} {
			system.Set("nspin", v)
			assert.False(t, system.Has("nspin"))
			assert.Equal(t, param.Bool(true), system.Get("noncolin"))
			assert.Equal(t, param.Int(4), system.GetShadow(ShadowNspin))
		}
	})
	t.Run("loaded text is coerced on activate", func(t *testing.T) {
		system := param.NewSet("system")
		system.Set("nspin", param.String("4"))
		NewSpin(system).Activate()
		assert.False(t, system.Has("nspin"))
		assert.Equal(t, param.Bool(true), system.Get("noncolin"))
	})
}

func TestSpin_EffectiveCount(t *testing.T) {
	tests := []struct {
		name string
		edit func(*param.Set)
		want int
	}{
		{"unpolarized by default", func(*param.Set) {}, 1},
		{"nspin 1", func(s *param.Set) { s.Set("nspin", param.Int(1)) }, 1},
		{"nspin 2", func(s *param.Set) { s.Set("nspin", param.Int(2)) }, 2},
		{"noncolin", func(s *param.Set) { s.Set("noncolin", param.Bool(true)) }, 4},
		{"noncolin false", func(s *param.Set) { s.Set("noncolin", param.Bool(false)) }, 1},
		{"nspin 4 means noncolin", func(s *param.Set) { s.Set("nspin", param.Int(4)) }, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			system, _ := newSpin(t)
			tt.edit(system)
			assert.Equal(t, param.Int(tt.want), system.GetShadow(ShadowNspin))
		})
	}
}

func TestSpin_NspinFourSelectsNoncolin(t *testing.T) {
	system, _ := newSpin(t)
	system.Set("nspin", param.Int(4))
	assert.False(t, system.Has("nspin"))
	assert.Equal(t, param.Bool(true), system.Get("noncolin"))
}

func TestSpin_MagnetizationFollowsMode(t *testing.T) {
	system, _ := newSpin(t)

	system.Set("nspin", param.Int(2))
	system.Set("tot_magnetization", param.Float(1))
	assert.Equal(t, param.Float(1), system.Get("tot_magnetization"))
	assert.False(t, system.Has("fixed_magnetization(3)"))

	system.Set("noncolin", param.Bool(true))
	assert.False(t, system.Has("tot_magnetization"))
	assert.Equal(t, param.Float(1), system.Get("fixed_magnetization(3)"))
	assert.Equal(t, param.String("total"), system.Get("constrained_magnetization"))

	system.Set("nspin", param.Int(2))
	assert.False(t, system.Has("noncolin"))
	assert.False(t, system.Has("fixed_magnetization(3)"))
	assert.False(t, system.Has("constrained_magnetization"), "colinear mode forbids constrained 'total'")
	assert.Equal(t, param.Float(1), system.Get("tot_magnetization"))
}

func TestSpin_UnpolarizedKeepsShadow(t *testing.T) {
	system, _ := newSpin(t)
	system.Set("nspin", param.Int(2))
	system.Set("tot_magnetization", param.Float(0.5))

	system.Set("nspin", param.Int(1))
	assert.False(t, system.Has("tot_magnetization"))
	assert.Equal(t, param.Float(0.5), system.GetShadow(ShadowTotMagnetization))

	system.Set("nspin", param.Int(2))
	assert.Equal(t, param.Float(0.5), system.Get("tot_magnetization"))
}

func TestSpin_RemovingAuthoritativeFieldClearsShadow(t *testing.T) {
	system, _ := newSpin(t)
	system.Set("nspin", param.Int(2))
	system.Set("tot_magnetization", param.Float(0.5))

	system.Remove("fixed_magnetization(3)")
	assert.Equal(t, param.Float(0.5), system.Get("tot_magnetization"))

	system.Remove("tot_magnetization")
	assert.False(t, system.GetShadow(ShadowTotMagnetization).IsSet())
	assert.False(t, system.Has("tot_magnetization"))
}

func TestSpin_SeedNotOverwritten(t *testing.T) {
	system, _ := newSpin(t)
	system.Set("starting_magnetization(1)", param.Float(0.7))
	system.Set("nspin", param.Int(2))
	assert.Equal(t, param.Float(0.7), system.Get("starting_magnetization(1)"))
}

func TestSpin_ActivateResolvesLoadedConflict(t *testing.T) {
	system := param.NewSet("system")
	system.Set("nspin", param.Int(2))
	system.Set("noncolin", param.Bool(true))
	system.Set("tot_magnetization", param.Float(0.3))

	rec := &recorder{}
	NewSpin(system, WithRecorder(rec)).Activate()

	assert.False(t, system.Has("nspin"))
	assert.Equal(t, param.Int(4), system.GetShadow(ShadowNspin))
	assert.Equal(t, param.Float(0.3), system.Get("fixed_magnetization(3)"))
	assert.False(t, system.Has("tot_magnetization"))
	assert.Contains(t, rec.writes, "spin: -system.nspin")
	assert.Contains(t, rec.writes, "spin: system.!nspin=4")
}
