package tracer

import (
	"strings"

	"qestudio/internal/param"
)

// IsLangevin reports whether an ion_dynamics value names a Langevin-family
// integrator, which the MD rule leaves alone.
func IsLangevin(ionDynamics string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(ionDynamics)), "langevin")
}

// MDRule picks the ionic integrator for molecular-dynamics runs.
type MDRule struct {
	base

	calculation *param.Cell
	ionDynamics *param.Cell
}

// NewMD binds an integrator rule to the control and ions namelists.
func NewMD(control, ions *param.Set, opts ...Option) *MDRule {
	return &MDRule{
		base:        newBase("md", opts),
		calculation: control.Cell("calculation"),
		ionDynamics: ions.Cell("ion_dynamics"),
	}
}

// Activate implements Rule.
func (m *MDRule) Activate() {
	subscribeAll(&m.guard, m, m.calculation)
	m.OnChange(m.calculation, m.calculation.Value())
}

// OnChange implements Rule. Only the calculation cell is subscribed.
func (m *MDRule) OnChange(_ *param.Cell, v param.Value) {
	release, ok := m.enter()
	if !ok {
		return
	}
	defer release()

	switch lower(v) {
	case "md":
		if !IsLangevin(m.ionDynamics.Value().AsCharacter()) {
			m.ensure(m.ionDynamics, param.String("verlet"))
		}
	case "vc-md":
		m.ensure(m.ionDynamics, param.String("beeman"))
	}
}
