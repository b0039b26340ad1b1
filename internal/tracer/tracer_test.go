package tracer

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"qestudio/internal/card"
	"qestudio/internal/param"
	"qestudio/internal/pseudo"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// snapshot flattens sets into "set.key" and "set.!key" entries.
func snapshot(sets ...*param.Set) map[string]param.Value {
	out := make(map[string]param.Value)
	for _, s := range sets {
		s.Each(func(k string, v param.Value) { out[s.Name()+"."+k] = v })
		for k, v := range s.Shadows() {
			out[s.Name()+"."+param.ShadowMarker+string(k)] = v
		}
	}
	return out
}

type recorder struct {
	writes []string
}

func (r *recorder) RuleWrite(rule, target, value string, removed bool) {
	if removed {
		r.writes = append(r.writes, rule+": -"+target)
		return
	}
	r.writes = append(r.writes, rule+": "+target+"="+value)
}

type world struct {
	control, system, ions, dos, projwfc *param.Set
	species                             *card.AtomicSpecies
	positions                           *card.AtomicPositions
	rules                               []Rule
}

func newWorld() *world {
	w := &world{
		control:   param.NewSet("control"),
		system:    param.NewSet("system"),
		ions:      param.NewSet("ions"),
		dos:       param.NewSet("dos"),
		projwfc:   param.NewSet("projwfc"),
		species:   card.NewAtomicSpecies(),
		positions: card.NewAtomicPositions("angstrom"),
	}
	w.rules = []Rule{
		NewSpin(w.system),
		NewHubbard(w.system),
		NewDOS(w.dos, w.projwfc, Broadening{}),
		NewMD(w.control, w.ions),
		NewSpecies(w.system, w.species, w.positions, pseudo.Static{"C": "C.pbe.UPF"}, nil),
	}
	for _, r := range w.rules {
		r.Activate()
	}
	return w
}

func (w *world) passes() int {
	n := 0
	for _, r := range w.rules {
		n += r.Passes()
	}
	return n
}

func (w *world) sets() []*param.Set {
	return []*param.Set{w.control, w.system, w.ions, w.dos, w.projwfc}
}

func TestGuard_ReleasedAfterPanic(t *testing.T) {
	var g guard
	func() {
		defer func() { recover() }()
		release, ok := g.enter()
		require.True(t, ok)
		defer release()
		panic("rule bug")
	}()
	assert.False(t, g.busy)

	release, ok := g.enter()
	require.True(t, ok)
	_, again := g.enter()
	assert.False(t, again, "re-entry while busy must be refused")
	release()
	assert.Equal(t, 2, g.Passes())
}

func TestCascadesAreBounded(t *testing.T) {
	w := newWorld()
	rng := rand.New(rand.NewSource(42))

	type edit struct {
		set *param.Set
		key string
		val []param.Value
	}
	edits := []edit{
		{w.system, "nspin", []param.Value{param.Int(1), param.Int(2), param.Int(4)}},
		{w.system, "noncolin", []param.Value{param.Bool(true), param.Bool(false)}},
		{w.system, "tot_magnetization", []param.Value{param.Float(0.5), param.Float(2)}},
		{w.system, "fixed_magnetization(3)", []param.Value{param.Float(1)}},
		{w.system, "lda_plus_u", []param.Value{param.Bool(true), param.Bool(false)}},
		{w.system, "ntyp", []param.Value{param.Int(7)}},
		{w.dos, "ngauss", []param.Value{param.Int(TetrahedronIndex), param.Int(0), param.Int(-1)}},
		{w.projwfc, "degauss", []param.Value{param.Float(0.02)}},
		{w.projwfc, "emin", []param.Value{param.Float(-10)}},
		{w.control, "calculation", []param.Value{param.String("md"), param.String("vc-md"), param.String("scf")}},
	}

	for i := 0; i < 2000; i++ {
		e := edits[rng.Intn(len(edits))]
		before := w.passes()
		if rng.Intn(4) == 0 {
			e.set.Remove(e.key)
		} else {
			e.set.Set(e.key, e.val[rng.Intn(len(e.val))])
		}
		delta := w.passes() - before
		require.LessOrEqual(t, delta, 2*len(w.rules), "edit %d of %s.%s", i, e.set.Name(), e.key)
	}
}

func TestRepeatedSetIsIdempotent(t *testing.T) {
	edits := []struct {
		set func(*world) *param.Set
		key string
		val param.Value
	}{
		{func(w *world) *param.Set { return w.system }, "nspin", param.Int(2)},
		{func(w *world) *param.Set { return w.system }, "noncolin", param.Bool(true)},
		{func(w *world) *param.Set { return w.system }, "tot_magnetization", param.Float(0.5)},
		{func(w *world) *param.Set { return w.dos }, "ngauss", param.Int(TetrahedronIndex)},
		{func(w *world) *param.Set { return w.projwfc }, "degauss", param.Float(0.03)},
		{func(w *world) *param.Set { return w.control }, "calculation", param.String("vc-md")},
	}
	for _, e := range edits {
		t.Run(e.key, func(t *testing.T) {
			once, twice := newWorld(), newWorld()
			e.set(once).Set(e.key, e.val)
			e.set(twice).Set(e.key, e.val)
			e.set(twice).Set(e.key, e.val)
			assert.Equal(t, snapshot(once.sets()...), snapshot(twice.sets()...))
		})
	}
}
