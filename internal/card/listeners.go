package card

type entry[T any] struct {
	fn   func(T)
	dead bool
}

type listeners[T any] struct {
	list []*entry[T]
}

func (l *listeners[T]) add(owner T, fn func(T)) func() {
	e := &entry[T]{fn: fn}
	l.list = append(l.list, e)
	fn(owner)
	return func() {
		if e.dead {
			return
		}
		e.dead = true
		live := l.list[:0:0]
		for _, x := range l.list {
			if !x.dead {
				live = append(live, x)
			}
		}
		l.list = live
	}
}

func (l *listeners[T]) notify(owner T) {
	for _, e := range l.list {
		if !e.dead {
			e.fn(owner)
		}
	}
}
