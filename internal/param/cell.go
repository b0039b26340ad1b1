package param

// Listener receives change notifications from a Cell.
type Listener interface {
	OnChange(c *Cell, v Value)
}

// ListenerFunc adapts a plain function to Listener.
type ListenerFunc func(c *Cell, v Value)

// OnChange calls f(c, v).
func (f ListenerFunc) OnChange(c *Cell, v Value) { f(c, v) }

type subscription struct {
	l    Listener
	dead bool
}

// Cell is the reactive handle for one key of a Set. Cells are created by
// Set.Cell and Set.ShadowCell and are singletons per key within their set.
type Cell struct {
	owner  *Set
	key    string
	shadow bool
	value  Value
	subs   []*subscription
}

// Owner returns the set this cell mirrors.
func (c *Cell) Owner() *Set { return c.owner }

// Key returns the key this cell mirrors.
func (c *Cell) Key() string { return c.key }

// IsShadow reports whether the cell mirrors a rule-private shadow key.
func (c *Cell) IsShadow() bool { return c.shadow }

// Value returns the cached value; unset when the key has no value.
func (c *Cell) Value() Value { return c.value }

// HasValue reports whether the key currently has a value.
func (c *Cell) HasValue() bool { return c.value.IsSet() }

// AsLogical panics when the cell is unset; see Value.AsLogical.
func (c *Cell) AsLogical() bool { return c.value.AsLogical() }

// AsInteger panics when the cell is unset; see Value.AsInteger.
func (c *Cell) AsInteger() int { return c.value.AsInteger() }

// AsReal panics when the cell is unset; see Value.AsReal.
func (c *Cell) AsReal() float64 { return c.value.AsReal() }

// AsCharacter returns "" when the cell is unset.
func (c *Cell) AsCharacter() string { return c.value.AsCharacter() }

// Set writes v through the owning set. Writing an unset value removes the key.
func (c *Cell) Set(v Value) {
	if c.shadow {
		c.owner.SetShadow(Shadow(c.key), v)
		return
	}
	c.owner.Set(c.key, v)
}

// Remove clears the key through the owning set.
func (c *Cell) Remove() { c.Set(Value{}) }

// Subscribe appends l to the delivery list and synchronously delivers the
// current value (possibly unset) to it once. The returned function cancels
// the subscription.
func (c *Cell) Subscribe(l Listener) (cancel func()) {
	sub := &subscription{l: l}
	c.subs = append(c.subs, sub)
	l.OnChange(c, c.value)
	return func() {
		if sub.dead {
			return
		}
		sub.dead = true
		live := make([]*subscription, 0, len(c.subs))
		for _, s := range c.subs {
			if !s.dead {
				live = append(live, s)
			}
		}
		c.subs = live
	}
}

// Listeners returns the number of live subscriptions.
func (c *Cell) Listeners() int { return len(c.subs) }

// String renders the cell address, e.g. "system.nspin" or "system.!nspin".
func (c *Cell) String() string {
	if c.shadow {
		return c.owner.name + "." + ShadowMarker + c.key
	}
	return c.owner.name + "." + c.key
}

// publish stores v and notifies listeners in subscription order. Each
// listener is handed the cell's value at the moment it is called, so a
// listener that runs after a nested write sees the newer value rather than a
// stale one.
func (c *Cell) publish(v Value) {
	c.value = v
	for _, s := range c.subs {
		if s.dead {
			continue
		}
		s.l.OnChange(c, c.value)
	}
}
