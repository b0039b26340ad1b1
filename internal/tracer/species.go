package tracer

import (
	"fmt"
	"strconv"

	"qestudio/internal/card"
	"qestudio/internal/logging"
	"qestudio/internal/param"
	"qestudio/internal/periodic"
)

// Library resolves a default pseudopotential file for an element symbol.
type Library interface {
	Resolve(symbol string) (string, bool)
}

type noLibrary struct{}

func (noLibrary) Resolve(string) (string, bool) { return "", false }

// SpeciesRule derives the species inventory and the ntyp/nat counts from the
// atomic positions. Species dropped from the inventory are cached, so their
// mass and pseudopotential come back when the label reappears.
type SpeciesRule struct {
	base

	ntyp      *param.Cell
	nat       *param.Cell
	species   *card.AtomicSpecies
	positions *card.AtomicPositions
	lib       Library
	table     periodic.Table

	cache map[string]card.Species
}

// NewSpecies binds a species rule. A nil lib resolves nothing; a nil table
// uses the standard periodic table.
func NewSpecies(system *param.Set, species *card.AtomicSpecies, positions *card.AtomicPositions,
	lib Library, table periodic.Table, opts ...Option) *SpeciesRule {
	if lib == nil {
		lib = noLibrary{}
	}
	if table == nil {
		table = periodic.Default
	}
	return &SpeciesRule{
		base:      newBase("species", opts),
		ntyp:      system.Cell("ntyp"),
		nat:       system.Cell("nat"),
		species:   species,
		positions: positions,
		lib:       lib,
		table:     table,
		cache:     make(map[string]card.Species),
	}
}

// Activate implements Rule.
func (s *SpeciesRule) Activate() {
	s.busy = true
	s.positions.Subscribe(func(*card.AtomicPositions) { s.OnChange(nil, param.Value{}) })
	s.ntyp.Subscribe(s)
	s.nat.Subscribe(s)
	s.busy = false
	s.OnChange(nil, param.Value{})
}

// Cached returns the cached record for a label no longer in use.
func (s *SpeciesRule) Cached(label string) (card.Species, bool) {
	sp, ok := s.cache[label]
	return sp, ok
}

// OnChange implements Rule. Edits of ntyp or nat are overwritten with the
// derived counts; a nil cell stands for a positions change.
func (s *SpeciesRule) OnChange(_ *param.Cell, _ param.Value) {
	release, ok := s.enter()
	if !ok {
		return
	}
	defer release()

	labels := s.positions.Labels()
	if s.positions.Len() == 0 {
		s.remove(s.ntyp)
		s.remove(s.nat)
	} else {
		s.ensure(s.ntyp, param.Int(len(labels)))
		s.ensure(s.nat, param.Int(s.positions.Len()))
	}

	used := make(map[string]bool, len(labels))
	for _, l := range labels {
		used[l] = true
	}
	for _, sp := range s.species.Entries() {
		if used[sp.Label] {
			continue
		}
		s.cache[sp.Label] = sp
		s.record(sp.Label, "", true)
		s.species.Remove(sp.Label)
	}

	for _, l := range labels {
		if _, ok := s.species.Get(l); ok {
			continue
		}
		sp, ok := s.cache[l]
		if ok {
			delete(s.cache, l)
		} else {
			sp = s.defaults(l)
		}
		s.record(l, fmt.Sprintf("%s %s", strconv.FormatFloat(sp.Mass, 'g', -1, 64), sp.Pseudo), false)
		s.species.Put(sp)
	}

	if s.species.Len() != len(labels) {
		err := &InvariantError{
			Rule:    s.name,
			Message: fmt.Sprintf("%d species for %d distinct labels", s.species.Len(), len(labels)),
		}
		logging.TracerError("%v", err)
		panic(err)
	}
}

func (s *SpeciesRule) defaults(label string) card.Species {
	sym := periodic.Symbol(label)
	sp := card.Species{Label: label, Mass: s.table.DefaultMass(sym)}
	if sym != "" {
		if file, ok := s.lib.Resolve(sym); ok {
			sp.Pseudo = file
		}
	}
	return sp
}

func (s *SpeciesRule) record(label, value string, removed bool) {
	target := "atomic_species." + label
	if removed {
		logging.TracerDebug("[%s] remove %s", s.name, target)
	} else {
		logging.TracerDebug("[%s] %s = %s", s.name, target, value)
	}
	if s.rec != nil {
		s.rec.RuleWrite(s.name, target, value, removed)
	}
}
