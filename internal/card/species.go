// Package card holds the typed repeated-record cards of an input file.
//
// Cards are not scalar parameters, but they follow the same reactive contract
// as param.Cell: Subscribe delivers the current state once, then every change,
// synchronously and in subscription order.
package card

import "strings"

// Species is one ATOMIC_SPECIES record.
type Species struct {
	Label  string
	Mass   float64
	Pseudo string
}

// AtomicSpecies is the ordered species inventory. Labels are unique; matching
// is case-sensitive, as in the input format.
type AtomicSpecies struct {
	entries []Species
	subs    listeners[*AtomicSpecies]
}

// NewAtomicSpecies returns an empty inventory.
func NewAtomicSpecies() *AtomicSpecies {
	return &AtomicSpecies{}
}

// Len returns the number of species.
func (a *AtomicSpecies) Len() int { return len(a.entries) }

// Entries returns a copy of the records in order.
func (a *AtomicSpecies) Entries() []Species {
	return append([]Species(nil), a.entries...)
}

// Labels returns the species labels in order.
func (a *AtomicSpecies) Labels() []string {
	out := make([]string, len(a.entries))
	for i, e := range a.entries {
		out[i] = e.Label
	}
	return out
}

// Get returns the record for label.
func (a *AtomicSpecies) Get(label string) (Species, bool) {
	if i := a.index(label); i >= 0 {
		return a.entries[i], true
	}
	return Species{}, false
}

// Put replaces the record with the same label, or appends s.
func (a *AtomicSpecies) Put(s Species) {
	s.Label = strings.TrimSpace(s.Label)
	if i := a.index(s.Label); i >= 0 {
		a.entries[i] = s
	} else {
		a.entries = append(a.entries, s)
	}
	a.subs.notify(a)
}

// Remove deletes the record for label and reports whether it existed.
func (a *AtomicSpecies) Remove(label string) bool {
	i := a.index(label)
	if i < 0 {
		return false
	}
	a.entries = append(a.entries[:i], a.entries[i+1:]...)
	a.subs.notify(a)
	return true
}

// Subscribe registers fn and calls it once with the current inventory.
func (a *AtomicSpecies) Subscribe(fn func(*AtomicSpecies)) (cancel func()) {
	return a.subs.add(a, fn)
}

func (a *AtomicSpecies) index(label string) int {
	for i, e := range a.entries {
		if e.Label == label {
			return i
		}
	}
	return -1
}
