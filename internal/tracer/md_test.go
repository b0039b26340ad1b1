package tracer

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"qestudio/internal/param"
)

func TestMD_Integrator(t *testing.T) {
	tests := []struct {
		name        string
		calculation string
		current     string
		want        string
	}{
		{"md defaults to verlet", "md", "", "verlet"},
		{"md replaces beeman", "md", "beeman", "verlet"},
		{"md keeps langevin", "md", "langevin", "langevin"},
		{"md keeps langevin-smc", "md", "Langevin-SMC", "Langevin-SMC"},
		{"vc-md forces beeman", "vc-md", "langevin", "beeman"},
		{"case insensitive", "VC-MD", "", "beeman"},
		{"relax untouched", "relax", "bfgs", "bfgs"},
		{"scf untouched", "scf", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			control, ions := param.NewSet("control"), param.NewSet("ions")
			if tt.current != "" {
				ions.Set("ion_dynamics", param.String(tt.current))
			}
			NewMD(control, ions).Activate()
			control.Set("calculation", param.String(tt.calculation))
			assert.Equal(t, tt.want, ions.Get("ion_dynamics").AsCharacter())
		})
	}
}

func TestMD_OnlyCalculationTriggers(t *testing.T) {
	control, ions := param.NewSet("control"), param.NewSet("ions")
	NewMD(control, ions).Activate()
	control.Set("calculation", param.String("md"))
	ions.Set("ion_dynamics", param.String("beeman"))
	assert.Equal(t, param.String("beeman"), ions.Get("ion_dynamics"))
}
