package card

// Atom is one ATOMIC_POSITIONS record. Constraint flags, when present, are
// kept verbatim in Extra.
type Atom struct {
	Label string
	Pos   [3]float64
	Extra []string
}

// AtomicPositions is the ordered atom list plus its unit option
// ("alat", "bohr", "angstrom", "crystal", ...). Every change is announced to
// subscribers as a full relabeling.
type AtomicPositions struct {
	unit  string
	atoms []Atom
	subs  listeners[*AtomicPositions]
}

// NewAtomicPositions returns an empty list in the given unit.
func NewAtomicPositions(unit string) *AtomicPositions {
	return &AtomicPositions{unit: unit}
}

// Unit returns the card option.
func (p *AtomicPositions) Unit() string { return p.unit }

// SetUnit changes the card option. Labels do not change, so nobody is notified.
func (p *AtomicPositions) SetUnit(unit string) { p.unit = unit }

// Len returns the atom count.
func (p *AtomicPositions) Len() int { return len(p.atoms) }

// Atoms returns a copy of the atom list.
func (p *AtomicPositions) Atoms() []Atom {
	out := make([]Atom, len(p.atoms))
	for i, a := range p.atoms {
		a.Extra = append([]string(nil), a.Extra...)
		out[i] = a
	}
	return out
}

// At returns atom i.
func (p *AtomicPositions) At(i int) Atom { return p.atoms[i] }

// Labels returns the distinct labels in first-seen order.
func (p *AtomicPositions) Labels() []string {
	seen := make(map[string]bool)
	var out []string
	for _, a := range p.atoms {
		if !seen[a.Label] {
			seen[a.Label] = true
			out = append(out, a.Label)
		}
	}
	return out
}

// Replace swaps in a whole new atom list.
func (p *AtomicPositions) Replace(atoms []Atom) {
	p.atoms = append([]Atom(nil), atoms...)
	p.subs.notify(p)
}

// Append adds atoms at the end.
func (p *AtomicPositions) Append(atoms ...Atom) {
	p.atoms = append(p.atoms, atoms...)
	p.subs.notify(p)
}

// Remove deletes atom i. It panics when i is out of range.
func (p *AtomicPositions) Remove(i int) {
	p.atoms = append(p.atoms[:i], p.atoms[i+1:]...)
	p.subs.notify(p)
}

// Subscribe registers fn and calls it once with the current list.
func (p *AtomicPositions) Subscribe(fn func(*AtomicPositions)) (cancel func()) {
	return p.subs.add(p, fn)
}
