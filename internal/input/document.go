// Package input models one calculation input: the namelists and cards of a
// document and the consistency rules that keep them coherent.
package input

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"qestudio/internal/card"
	"qestudio/internal/logging"
	"qestudio/internal/param"
	"qestudio/internal/periodic"
	"qestudio/internal/pseudo"
	"qestudio/internal/tracer"
)

// StandardNamelists are the namelists every document carries, in output order.
var StandardNamelists = []string{"control", "system", "electrons", "ions", "cell", "dos", "projwfc"}

var (
	// ErrUnknownNamelist is returned for edits of a namelist the document
	// does not have.
	ErrUnknownNamelist = errors.New("unknown namelist")
	// ErrActive is returned by Load on an already activated document.
	ErrActive = errors.New("document already active")
)

// Options carries the collaborators handed to the rules.
type Options struct {
	Library    tracer.Library
	Table      periodic.Table
	Broadening tracer.Broadening
}

// DefaultOptions resolves no pseudopotentials and uses the standard periodic
// table.
func DefaultOptions() Options {
	return Options{
		Library: pseudo.None{},
		Table:   periodic.Default,
	}
}

// Document is one calculation input.
type Document struct {
	ID        string
	Species   *card.AtomicSpecies
	Positions *card.AtomicPositions

	sets    map[string]*param.Set
	order   []string
	present map[string]bool
	cards   []*rawCard
	rules   []tracer.Rule
	active  bool

	journal *logging.Journal
	log     *logging.DocumentLogger
}

// rawCard is a card position in the document. Typed cards have no lines of
// their own; their content comes from Species and Positions.
type rawCard struct {
	name   string
	option string
	lines  []string
}

// New creates an empty, inactive document with every standard namelist.
func New(opts Options) *Document {
	id := uuid.NewString()
	d := &Document{
		ID:        id,
		Species:   card.NewAtomicSpecies(),
		Positions: card.NewAtomicPositions("alat"),
		sets:      make(map[string]*param.Set),
		present:   make(map[string]bool),
		journal:   logging.JournalFor(id),
		log:       logging.ForDocument(logging.CategoryDocument, id),
	}
	for _, name := range StandardNamelists {
		d.addSet(name)
	}

	rec := tracer.WithRecorder(d.journal)
	d.rules = []tracer.Rule{
		tracer.NewSpin(d.sets["system"], rec),
		tracer.NewHubbard(d.sets["system"], rec),
		tracer.NewDOS(d.sets["dos"], d.sets["projwfc"], opts.Broadening, rec),
		tracer.NewMD(d.sets["control"], d.sets["ions"], rec),
		tracer.NewSpecies(d.sets["system"], d.Species, d.Positions, opts.Library, opts.Table, rec),
	}
	d.log.Debug("created with %d namelists and %d rules", len(d.order), len(d.rules))
	return d
}

func (d *Document) addSet(name string) *param.Set {
	s := param.NewSet(name)
	d.sets[s.Name()] = s
	d.order = append(d.order, s.Name())
	return s
}

// Namelist returns the named set, or nil.
func (d *Document) Namelist(name string) *param.Set {
	return d.sets[strings.ToLower(name)]
}

// Namelists returns every set in document order.
func (d *Document) Namelists() []*param.Set {
	out := make([]*param.Set, len(d.order))
	for i, name := range d.order {
		out[i] = d.sets[name]
	}
	return out
}

// Rules returns the rules in activation order.
func (d *Document) Rules() []tracer.Rule {
	return append([]tracer.Rule(nil), d.rules...)
}

// Active reports whether Activate has run.
func (d *Document) Active() bool { return d.active }

// Activate installs every rule, in order. Later calls do nothing.
func (d *Document) Activate() {
	if d.active {
		return
	}
	timer := logging.StartTimer(logging.CategoryDocument, "activate "+d.ID)
	defer timer.Stop()

	for _, r := range d.rules {
		r.Activate()
	}
	d.active = true
	d.journal.DocumentEvent(logging.JournalDocumentActivate, fmt.Sprintf("%d rules", len(d.rules)))
}

// Set writes one user value through the namelist's cell, running any cascade
// it triggers. An unset value removes the key.
func (d *Document) Set(namelist, key string, v param.Value) error {
	s := d.Namelist(namelist)
	if s == nil {
		return fmt.Errorf("%w: %s", ErrUnknownNamelist, namelist)
	}
	if strings.HasPrefix(key, param.ShadowMarker) {
		return fmt.Errorf("invalid key %q", key)
	}
	d.journal.Edit(s.Name()+"."+strings.ToLower(key), v.AsCharacter(), !v.IsSet())
	d.log.Debug("edit %s.%s = %s", s.Name(), key, v)
	s.Cell(key).Set(v)
	return nil
}

// Remove clears one user value.
func (d *Document) Remove(namelist, key string) error {
	return d.Set(namelist, key, param.Value{})
}

// ShadowEntry is one rule-private value.
type ShadowEntry struct {
	Namelist string
	Key      param.Shadow
	Value    param.Value
}

// Shadows lists every shadow value, by namelist then key.
func (d *Document) Shadows() []ShadowEntry {
	var out []ShadowEntry
	for _, s := range d.Namelists() {
		for _, k := range s.ShadowKeys() {
			out = append(out, ShadowEntry{Namelist: s.Name(), Key: k, Value: s.GetShadow(k)})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Namelist < out[j].Namelist })
	return out
}
