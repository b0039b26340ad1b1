package param

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type recorder struct {
	got []Value
}

func (r *recorder) OnChange(_ *Cell, v Value) { r.got = append(r.got, v) }

func TestValue_Equality(t *testing.T) {
	assert.True(t, Int(2).Equal(Int(2)))
	assert.False(t, Int(2).Equal(Float(2)))
	assert.False(t, String("a").Equal(String("b")))
	assert.True(t, Value{}.Equal(Value{}))
	assert.False(t, Value{}.IsSet())
}

func TestValue_Accessors(t *testing.T) {
	t.Run("real widens integer", func(t *testing.T) {
		assert.Equal(t, 3.0, Int(3).AsReal())
	})
	t.Run("integer truncates real", func(t *testing.T) {
		assert.Equal(t, 2, Float(2.9).AsInteger())
	})
	t.Run("character on unset is empty", func(t *testing.T) {
		assert.Equal(t, "", Value{}.AsCharacter())
	})
	t.Run("numeric accessors panic on unset", func(t *testing.T) {
		assert.Panics(t, func() { Value{}.AsReal() })
		assert.Panics(t, func() { Value{}.AsInteger() })
		assert.Panics(t, func() { Value{}.AsLogical() })
	})
	t.Run("logical accessor panics on wrong kind", func(t *testing.T) {
		defer func() {
			r := recover()
			require.NotNil(t, r)
			ke, ok := r.(*KindError)
			require.True(t, ok)
			assert.Equal(t, Logical, ke.Want)
			assert.Equal(t, Integer, ke.Got)
		}()
		Int(1).AsLogical()
	})
}

func TestCell_SubscribeDeliversCurrentValue(t *testing.T) {
	s := NewSet("SYSTEM")
	s.Set("nspin", Int(2))

	r := &recorder{}
	s.Cell("NSPIN").Subscribe(r)
	require.Len(t, r.got, 1)
	assert.Equal(t, Int(2), r.got[0])

	empty := &recorder{}
	s.Cell("noncolin").Subscribe(empty)
	require.Len(t, empty.got, 1)
	assert.False(t, empty.got[0].IsSet())
}

func TestCell_SingletonPerKey(t *testing.T) {
	s := NewSet("system")
	assert.Same(t, s.Cell("ecutwfc"), s.Cell("ECUTWFC"))
	assert.NotSame(t, s.Cell("nspin"), s.ShadowCell("nspin"))
	assert.Same(t, s.ShadowCell("nspin"), s.ShadowCell("NSPIN"))
}

func TestSet_NoDedup(t *testing.T) {
	s := NewSet("system")
	r := &recorder{}
	s.Cell("ecutwfc").Subscribe(r)

	s.Set("ecutwfc", Float(30))
	s.Set("ecutwfc", Float(30))
	s.Remove("ecutwfc")

	assert.Equal(t, []Value{{}, Float(30), Float(30), {}}, r.got)
	assert.False(t, s.Cell("ecutwfc").HasValue())
}

func TestSet_OrderAndShadowsHidden(t *testing.T) {
	s := NewSet("system")
	s.Set("ibrav", Int(0))
	s.Set("nat", Int(2))
	s.SetShadow("nspin", Int(1))
	s.Set("ecutwfc", Float(25))
	s.Set("nat", Int(3))
	s.Remove("ibrav")

	var keys []string
	s.Each(func(k string, _ Value) { keys = append(keys, k) })
	assert.Equal(t, []string{"nat", "ecutwfc"}, keys)
	assert.Equal(t, keys, s.Keys())
	assert.Equal(t, 2, s.Len())
	assert.Equal(t, map[Shadow]Value{"nspin": Int(1)}, s.Shadows())
	assert.False(t, s.Has("nspin"))
	assert.Equal(t, Int(1), s.GetShadow("nspin"))
}

func TestSet_SettingUnsetRemoves(t *testing.T) {
	s := NewSet("system")
	s.Set("nspin", Int(2))
	s.Set("nspin", Value{})
	assert.False(t, s.Has("nspin"))
	assert.Empty(t, s.Keys())
}

func TestCell_ReentrantWrites(t *testing.T) {
	s := NewSet("system")
	// Mirror a into b and b into c; a nested write must settle before the
	// outer Set returns.
	s.Cell("a").Subscribe(ListenerFunc(func(c *Cell, v Value) {
		if v.IsSet() {
			s.Set("b", Int(v.AsInteger()+1))
		}
	}))
	s.Cell("b").Subscribe(ListenerFunc(func(c *Cell, v Value) {
		if v.IsSet() {
			s.Set("c", Int(v.AsInteger()+1))
		}
	}))

	s.Set("a", Int(1))
	assert.Equal(t, Int(2), s.Get("b"))
	assert.Equal(t, Int(3), s.Get("c"))
}

func TestCell_LaterListenersSeeLatestValue(t *testing.T) {
	s := NewSet("system")
	cell := s.Cell("x")
	cell.Subscribe(ListenerFunc(func(c *Cell, v Value) {
		if v.IsSet() && v.AsInteger() < 0 {
			c.Set(Int(0))
		}
	}))
	r := &recorder{}
	cell.Subscribe(r)

	s.Set("x", Int(-5))
	require.NotEmpty(t, r.got)
	assert.Equal(t, Int(0), r.got[len(r.got)-1])
	assert.NotContains(t, r.got[1:], Int(-5))
}

func TestCell_Cancel(t *testing.T) {
	s := NewSet("system")
	r := &recorder{}
	cancel := s.Cell("x").Subscribe(r)
	assert.Equal(t, 1, s.Cell("x").Listeners())
	cancel()
	cancel()
	s.Set("x", Int(1))
	assert.Len(t, r.got, 1)
	assert.Equal(t, 0, s.Cell("x").Listeners())
}

func TestCell_String(t *testing.T) {
	s := NewSet("SYSTEM")
	assert.Equal(t, "system.nspin", s.Cell("nspin").String())
	assert.Equal(t, "system.!nspin", s.ShadowCell("nspin").String())
}

func TestCell_WriteThrough(t *testing.T) {
	s := NewSet("dos")
	s.ShadowCell("ngauss").Set(Int(1))
	assert.Equal(t, Int(1), s.GetShadow("ngauss"))
	s.ShadowCell("ngauss").Remove()
	assert.False(t, s.GetShadow("ngauss").IsSet())

	s.Cell("degauss").Set(Float(0.02))
	assert.Equal(t, 0.02, s.Cell("degauss").AsReal())
}
