package tracer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qestudio/internal/param"
)

func newDOS(t *testing.T, defaults Broadening) (dos, projwfc *param.Set, r *DOSRule) {
	t.Helper()
	dos, projwfc = param.NewSet("dos"), param.NewSet("projwfc")
	r = NewDOS(dos, projwfc, defaults)
	r.Activate()
	return dos, projwfc, r
}

func TestDOS_EmptyMeansTetrahedron(t *testing.T) {
	dos, projwfc, _ := newDOS(t, Broadening{})
	assert.Equal(t, param.Int(TetrahedronIndex), dos.GetShadow(ShadowNgauss))
	assert.Zero(t, dos.Len())
	assert.Zero(t, projwfc.Len())
}

func TestDOS_SentinelRoundTrip(t *testing.T) {
	dos, projwfc, _ := newDOS(t, Broadening{})

	dos.Set("ngauss", param.Int(1))
	dos.Set("degauss", param.Float(0.02))
	dos.Set("ngauss", param.Int(TetrahedronIndex))
	for _, s := range []*param.Set{dos, projwfc} {
		assert.False(t, s.Has("ngauss"), s.Name())
		assert.False(t, s.Has("degauss"), s.Name())
	}

	dos.Set("ngauss", param.Int(-1))
	dos.Set("degauss", param.Float(0.005))
	for _, s := range []*param.Set{dos, projwfc} {
		assert.Equal(t, param.Int(-1), s.Get("ngauss"), s.Name())
		assert.Equal(t, param.Float(0.005), s.Get("degauss"), s.Name())
	}
}

func TestDOS_WidthSurvivesTetrahedron(t *testing.T) {
	dos, _, _ := newDOS(t, Broadening{})
	dos.Set("ngauss", param.Int(1))
	dos.Set("degauss", param.Float(0.02))
	dos.Set("ngauss", param.Int(TetrahedronIndex))
	assert.Equal(t, param.Float(0.02), dos.GetShadow(ShadowDegauss))

	dos.Set("ngauss", param.Int(0))
	assert.Equal(t, param.Float(0.02), dos.Get("degauss"))
}

// Removing one broadening field at a time never reaches "neither present":
// the other field is still there, so both are rewritten. Only the sentinel
// index selects the tetrahedron method.
func TestDOS_RemovingFieldsRestoresDefaults(t *testing.T) {
	dos, projwfc, _ := newDOS(t, Broadening{})
	dos.Set("ngauss", param.Int(1))
	dos.Set("degauss", param.Float(0.02))

	dos.Remove("degauss")
	assert.Equal(t, param.Int(1), dos.Get("ngauss"))
	assert.Equal(t, param.Float(DefaultDegauss), dos.Get("degauss"))

	projwfc.Remove("ngauss")
	for _, s := range []*param.Set{dos, projwfc} {
		assert.Equal(t, param.Int(DefaultNgauss), s.Get("ngauss"), s.Name())
		assert.Equal(t, param.Float(DefaultDegauss), s.Get("degauss"), s.Name())
	}
	assert.Equal(t, param.Int(DefaultNgauss), dos.GetShadow(ShadowNgauss))

	dos.Set("ngauss", param.Int(TetrahedronIndex))
	assert.Zero(t, dos.Len())
	assert.Zero(t, projwfc.Len())
}

func TestDOS_Defaults(t *testing.T) {
	t.Run("index only gets the default width", func(t *testing.T) {
		dos, _, _ := newDOS(t, Broadening{})
		dos.Set("ngauss", param.Int(1))
		assert.Equal(t, param.Float(DefaultDegauss), dos.Get("degauss"))
	})
	t.Run("width only gets the default index", func(t *testing.T) {
		dos, _, _ := newDOS(t, Broadening{})
		dos.Set("degauss", param.Float(0.05))
		assert.Equal(t, param.Int(DefaultNgauss), dos.Get("ngauss"))
		assert.Equal(t, param.Int(DefaultNgauss), dos.GetShadow(ShadowNgauss))
	})
	t.Run("configured defaults", func(t *testing.T) {
		dos, _, _ := newDOS(t, Broadening{Width: 0.03, Index: -1})
		dos.Set("ngauss", param.Int(1))
		assert.Equal(t, param.Float(0.03), dos.Get("degauss"))
		dos.Remove("ngauss")
		assert.Equal(t, param.Int(-1), dos.Get("ngauss"))
	})
	t.Run("removing width resets it", func(t *testing.T) {
		dos, _, _ := newDOS(t, Broadening{})
		dos.Set("ngauss", param.Int(1))
		dos.Set("degauss", param.Float(0.05))
		dos.Remove("degauss")
		assert.Equal(t, param.Float(DefaultDegauss), dos.Get("degauss"))
	})
	t.Run("removing both selects tetrahedron", func(t *testing.T) {
		dos, _, _ := newDOS(t, Broadening{})
		dos.Set("ngauss", param.Int(1))
		dos.Remove("degauss")
		dos.Remove("ngauss")
		// ngauss removal leaves the default width, so the index comes back.
		assert.Equal(t, param.Int(DefaultNgauss), dos.Get("ngauss"))
		dos.Set("ngauss", param.Int(TetrahedronIndex))
		assert.False(t, dos.Has("degauss"))
		assert.Equal(t, param.Int(TetrahedronIndex), dos.GetShadow(ShadowNgauss))
	})
}

func TestDOS_MirrorsWindow(t *testing.T) {
	dos, projwfc, r := newDOS(t, Broadening{})

	for _, k := range []string{"emin", "emax", "deltae"} {
		before := r.Passes()
		projwfc.Set(k, param.Float(1.5))
		assert.Equal(t, param.Float(1.5), dos.Get(k), k)
		assert.Equal(t, before+1, r.Passes())

		dos.Remove(k)
		assert.False(t, projwfc.Has(k), k)
	}

	projwfc.Set("degauss", param.Float(0.04))
	assert.Equal(t, param.Float(0.04), dos.Get("degauss"))
	assert.Equal(t, param.Int(DefaultNgauss), projwfc.Get("ngauss"))
}

func TestDOS_ActivatePullsProjwfcOnlyValues(t *testing.T) {
	dos, projwfc := param.NewSet("dos"), param.NewSet("projwfc")
	dos.Set("emin", param.Float(-5))
	projwfc.Set("emin", param.Float(-20))
	projwfc.Set("emax", param.Float(10))
	projwfc.Set("ngauss", param.Int(1))

	NewDOS(dos, projwfc, Broadening{}).Activate()

	assert.Equal(t, param.Float(-5), projwfc.Get("emin"))
	assert.Equal(t, param.Float(10), dos.Get("emax"))
	require.True(t, dos.Has("degauss"))
	assert.Equal(t, param.Int(1), dos.GetShadow(ShadowNgauss))
}
