// Package tracer implements the consistency rule engines that keep coupled
// parameters of an input document in agreement.
//
// Each engine subscribes to the cells it needs and, on every notification,
// runs at most one guarded write cascade. The guard is per engine: an engine
// never reacts to writes made while it is itself running, but other engines
// do. The set of engines is acyclic between engines, so every cascade
// terminates.
package tracer

import (
	"fmt"
	"strings"

	"qestudio/internal/logging"
	"qestudio/internal/param"
)

// Rule is one consistency engine.
type Rule interface {
	// Name identifies the rule in logs and journals.
	Name() string
	// Activate installs the subscriptions and brings the bound sets into a
	// consistent state. It is called once per document.
	Activate()
	// OnChange reacts to a change of one subscribed cell.
	OnChange(c *param.Cell, v param.Value)
	// Passes returns how many guarded passes the rule has run.
	Passes() int
}

// Recorder receives every write a rule makes.
type Recorder interface {
	RuleWrite(rule, target, value string, removed bool)
}

// Option configures a rule.
type Option func(*base)

// WithRecorder attaches r to the rule.
func WithRecorder(r Recorder) Option {
	return func(b *base) { b.rec = r }
}

// InvariantError is the panic value raised when a rule's post-condition does
// not hold. It always points at a rule bug, never at user input.
type InvariantError struct {
	Rule    string
	Message string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("tracer %s: invariant violated: %s", e.Rule, e.Message)
}

// guard is the busy flag. enter hands back a release func so callers can
// defer it and a panicking pass never leaves the rule busy.
type guard struct {
	busy   bool
	passes int
}

func (g *guard) enter() (release func(), ok bool) {
	if g.busy {
		return nil, false
	}
	g.busy = true
	g.passes++
	return func() { g.busy = false }, true
}

// Passes returns the number of passes that got past the guard.
func (g *guard) Passes() int { return g.passes }

// base carries what every engine shares.
type base struct {
	guard
	name string
	rec  Recorder
}

func newBase(name string, opts []Option) base {
	b := base{name: name}
	for _, opt := range opts {
		opt(&b)
	}
	return b
}

func (b *base) Name() string { return b.name }

// set writes v through c and records the write.
func (b *base) set(c *param.Cell, v param.Value) {
	logging.TracerDebug("[%s] %s = %s", b.name, c, v)
	if b.rec != nil {
		b.rec.RuleWrite(b.name, c.String(), v.AsCharacter(), false)
	}
	c.Set(v)
}

// remove clears c and records the write. Cells already unset are left alone.
func (b *base) remove(c *param.Cell) {
	if !c.HasValue() {
		return
	}
	logging.TracerDebug("[%s] remove %s", b.name, c)
	if b.rec != nil {
		b.rec.RuleWrite(b.name, c.String(), "", true)
	}
	c.Remove()
}

// ensure writes v unless c already holds exactly v.
func (b *base) ensure(c *param.Cell, v param.Value) {
	if c.Value() == v {
		return
	}
	b.set(c, v)
}

// subscribeAll hooks l to every cell while the guard is held, so the initial
// deliveries do not act; the caller runs one explicit pass afterwards.
func subscribeAll(g *guard, l param.Listener, cells ...*param.Cell) {
	g.busy = true
	defer func() { g.busy = false }()
	for _, c := range cells {
		c.Subscribe(l)
	}
}

// intOf reads a numeric value as an integer.
func intOf(v param.Value) (int, bool) {
	switch v.Kind() {
	case param.Integer, param.Real:
		return v.AsInteger(), true
	}
	return 0, false
}

// realOf reads a numeric value as a real.
func realOf(v param.Value) (float64, bool) {
	switch v.Kind() {
	case param.Integer, param.Real:
		return v.AsReal(), true
	}
	return 0, false
}

// isTrue reports whether v is the logical true.
func isTrue(v param.Value) bool {
	return v.Kind() == param.Logical && v.AsLogical()
}

func lower(v param.Value) string {
	return strings.ToLower(strings.TrimSpace(v.AsCharacter()))
}
