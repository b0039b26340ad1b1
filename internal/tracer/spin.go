package tracer

import (
	"strconv"
	"strings"

	"qestudio/internal/param"
)

// Shadow keys owned by SpinRule on the system set.
const (
	// ShadowNspin is the effective spin channel count: 1, 2 or 4.
	ShadowNspin param.Shadow = "nspin"
	// ShadowTotMagnetization is the total magnetization, whichever of
	// tot_magnetization or fixed_magnetization(3) carried it.
	ShadowTotMagnetization param.Shadow = "tot_magnetization"
)

// SpinRule keeps the spin fields of the system namelist consistent.
//
// nspin (colinear) and noncolin are exclusive spellings of one choice, and the
// ShadowNspin shadow always holds the effective channel count. The total
// magnetization lives in ShadowTotMagnetization and is projected onto
// tot_magnetization in colinear mode or onto fixed_magnetization(3) with
// constrained_magnetization='total' in non-colinear mode.
type SpinRule struct {
	base

	nspin       *param.Cell
	noncolin    *param.Cell
	startMag    *param.Cell
	totMag      *param.Cell
	fixedMag    *param.Cell
	constrained *param.Cell

	effective *param.Cell
	total     *param.Cell
}

// NewSpin binds a spin rule to the system namelist.
func NewSpin(system *param.Set, opts ...Option) *SpinRule {
	return &SpinRule{
		base:        newBase("spin", opts),
		nspin:       system.Cell("nspin"),
		noncolin:    system.Cell("noncolin"),
		startMag:    system.Cell("starting_magnetization(1)"),
		totMag:      system.Cell("tot_magnetization"),
		fixedMag:    system.Cell("fixed_magnetization(3)"),
		constrained: system.Cell("constrained_magnetization"),
		effective:   system.ShadowCell(ShadowNspin),
		total:       system.ShadowCell(ShadowTotMagnetization),
	}
}

// Activate implements Rule. When a file carries both spellings, noncolin
// wins.
func (s *SpinRule) Activate() {
	subscribeAll(&s.guard, s, s.nspin, s.noncolin, s.totMag, s.fixedMag)

	release, ok := s.enter()
	if !ok {
		return
	}
	defer release()

	switch n, isNum := s.channelCount(s.nspin.Value()); {
	case isTrue(s.noncolin.Value()):
		s.remove(s.nspin)
	case isNum && n == 4:
		s.remove(s.nspin)
		s.set(s.noncolin, param.Bool(true))
	case s.nspin.HasValue():
		s.remove(s.noncolin)
	}

	first, second := s.totMag, s.fixedMag
	if s.mode() == 4 {
		first, second = second, first
	}
	for _, c := range []*param.Cell{first, second} {
		if r, ok := realOf(c.Value()); ok {
			s.set(s.total, param.Float(r))
			break
		}
	}
	s.apply()
}

// OnChange implements Rule.
func (s *SpinRule) OnChange(c *param.Cell, v param.Value) {
	release, ok := s.enter()
	if !ok {
		return
	}
	defer release()

	switch c {
	case s.nspin:
		if n, ok := s.channelCount(v); ok {
			if n == 4 {
				s.remove(s.nspin)
				s.set(s.noncolin, param.Bool(true))
			} else {
				s.remove(s.noncolin)
			}
		}
	case s.noncolin:
		if isTrue(v) {
			s.remove(s.nspin)
		} else if v.IsSet() && s.nspin.HasValue() {
			s.remove(s.noncolin)
		}
	case s.totMag:
		s.magnetization(v, 2)
	case s.fixedMag:
		s.magnetization(v, 4)
	}
	s.apply()
}

// channelCount reads nspin. A character value holding an integer is
// rewritten as one; any other non-numeric value is removed, since it can
// select no spin mode.
func (s *SpinRule) channelCount(v param.Value) (int, bool) {
	if n, ok := intOf(v); ok {
		return n, true
	}
	if !v.IsSet() {
		return 0, false
	}
	if v.Kind() == param.Character {
		if n, err := strconv.Atoi(strings.TrimSpace(v.AsCharacter())); err == nil {
			s.set(s.nspin, param.Int(n))
			return n, true
		}
	}
	s.remove(s.nspin)
	return 0, false
}

// magnetization records a user edit of one magnetization spelling. owner is
// the mode in which that spelling is authoritative; clearing a field that is
// not authoritative leaves the shadow alone.
func (s *SpinRule) magnetization(v param.Value, owner int) {
	if r, ok := realOf(v); ok {
		s.set(s.total, param.Float(r))
		return
	}
	if !v.IsSet() && owner == s.mode() {
		s.remove(s.total)
	}
}

func (s *SpinRule) mode() int {
	if isTrue(s.noncolin.Value()) {
		return 4
	}
	if n, ok := intOf(s.nspin.Value()); ok && n >= 2 {
		return 2
	}
	return 1
}

func (s *SpinRule) apply() {
	m := s.mode()
	s.ensure(s.effective, param.Int(m))
	if m > 1 && !s.startMag.HasValue() {
		s.set(s.startMag, param.Float(0))
	}

	total := s.total.Value()
	switch m {
	case 4:
		s.remove(s.totMag)
		if total.IsSet() {
			s.ensure(s.fixedMag, total)
			s.ensure(s.constrained, param.String("total"))
		} else {
			s.remove(s.fixedMag)
			s.clearConstrainedTotal()
		}
	case 2:
		s.remove(s.fixedMag)
		s.clearConstrainedTotal()
		if total.IsSet() {
			s.ensure(s.totMag, total)
		} else {
			s.remove(s.totMag)
		}
	default:
		s.remove(s.totMag)
		s.remove(s.fixedMag)
		s.clearConstrainedTotal()
	}
}

// clearConstrainedTotal drops constrained_magnetization='total', which only
// makes sense together with fixed_magnetization in non-colinear mode.
func (s *SpinRule) clearConstrainedTotal() {
	if lower(s.constrained.Value()) == "total" {
		s.remove(s.constrained)
	}
}
