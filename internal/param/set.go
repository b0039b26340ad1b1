package param

import (
	"sort"
	"strings"
)

// ShadowMarker prefixes shadow keys wherever they are rendered as text. It is
// a comment character in the namelist format, so a shadow can never be read
// back from a file.
const ShadowMarker = "!"

// Shadow names a rule-private parameter. Shadows live in a table of their own
// and are never enumerated by Set.Each, so they never reach serialized output.
type Shadow string

type slot struct {
	key    string
	shadow bool
}

// Set is a named group of parameters, e.g. one namelist. Keys are
// case-insensitive and stored in lower case.
type Set struct {
	name   string
	values map[slot]Value
	order  []string
	cells  map[slot]*Cell
}

// NewSet returns an empty set.
func NewSet(name string) *Set {
	return &Set{
		name:   strings.ToLower(name),
		values: make(map[slot]Value),
		cells:  make(map[slot]*Cell),
	}
}

// Name returns the set name in lower case.
func (s *Set) Name() string { return s.name }

// Get returns the value stored under key, unset when absent.
func (s *Set) Get(key string) Value {
	return s.values[userSlot(key)]
}

// Has reports whether key has a value.
func (s *Set) Has(key string) bool {
	_, ok := s.values[userSlot(key)]
	return ok
}

// Set stores v under key and notifies the key's cell. Setting an unset value
// is the same as Remove. Identical values are re-delivered.
func (s *Set) Set(key string, v Value) {
	sl := userSlot(key)
	if !v.IsSet() {
		s.remove(sl)
		return
	}
	if _, ok := s.values[sl]; !ok {
		s.order = append(s.order, sl.key)
	}
	s.values[sl] = v
	s.deliver(sl, v)
}

// Remove clears key and delivers unset to the key's cell.
func (s *Set) Remove(key string) {
	s.remove(userSlot(key))
}

// Cell returns the cell for key, creating it on first request.
func (s *Set) Cell(key string) *Cell {
	return s.cell(userSlot(key))
}

// GetShadow returns the shadow value under key, unset when absent.
func (s *Set) GetShadow(key Shadow) Value {
	return s.values[shadowSlot(key)]
}

// SetShadow stores a shadow value. Only rules write shadows.
func (s *Set) SetShadow(key Shadow, v Value) {
	sl := shadowSlot(key)
	if !v.IsSet() {
		s.remove(sl)
		return
	}
	s.values[sl] = v
	s.deliver(sl, v)
}

// RemoveShadow clears a shadow value.
func (s *Set) RemoveShadow(key Shadow) {
	s.remove(shadowSlot(key))
}

// ShadowCell returns the cell for a shadow key, creating it on first request.
func (s *Set) ShadowCell(key Shadow) *Cell {
	return s.cell(shadowSlot(key))
}

// Len returns the number of user-visible keys with a value.
func (s *Set) Len() int { return len(s.order) }

// Keys returns the user-visible keys in insertion order.
func (s *Set) Keys() []string {
	return append([]string(nil), s.order...)
}

// Each calls fn for every user-visible key in insertion order. Shadow values
// are skipped. fn must not modify the set.
func (s *Set) Each(fn func(key string, v Value)) {
	for _, k := range s.order {
		fn(k, s.values[slot{key: k}])
	}
}

// Shadows returns a copy of the shadow table.
func (s *Set) Shadows() map[Shadow]Value {
	out := make(map[Shadow]Value)
	for sl, v := range s.values {
		if sl.shadow {
			out[Shadow(sl.key)] = v
		}
	}
	return out
}

// ShadowKeys returns the shadow keys with a value, sorted.
func (s *Set) ShadowKeys() []Shadow {
	var keys []Shadow
	for sl := range s.values {
		if sl.shadow {
			keys = append(keys, Shadow(sl.key))
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

func (s *Set) remove(sl slot) {
	if _, ok := s.values[sl]; ok {
		delete(s.values, sl)
		if !sl.shadow {
			for i, k := range s.order {
				if k == sl.key {
					s.order = append(s.order[:i], s.order[i+1:]...)
					break
				}
			}
		}
	}
	s.deliver(sl, Value{})
}

func (s *Set) deliver(sl slot, v Value) {
	if c, ok := s.cells[sl]; ok {
		c.publish(v)
	}
}

func (s *Set) cell(sl slot) *Cell {
	if c, ok := s.cells[sl]; ok {
		return c
	}
	c := &Cell{owner: s, key: sl.key, shadow: sl.shadow, value: s.values[sl]}
	s.cells[sl] = c
	return c
}

func userSlot(key string) slot {
	return slot{key: strings.ToLower(key)}
}

func shadowSlot(key Shadow) slot {
	return slot{key: strings.ToLower(string(key)), shadow: true}
}
