// Package param implements the reactive parameter substrate: immutable typed
// values, named parameter sets, and the subscribable cells that mirror one key
// of a set.
//
// Everything here is synchronous and single-threaded. A write to a set fires the
// listeners of the matching cell inline, and listeners may write again, so one
// outer Set or Remove call can unwind a whole cascade before it returns.
package param

import (
	"fmt"
	"strconv"
)

// Kind tags the payload of a Value.
type Kind int

const (
	// Unset is the zero Kind. A Value of this kind carries no payload and
	// stands for "no value".
	Unset Kind = iota
	Logical
	Character
	Integer
	Real
)

func (k Kind) String() string {
	switch k {
	case Unset:
		return "unset"
	case Logical:
		return "logical"
	case Character:
		return "character"
	case Integer:
		return "integer"
	case Real:
		return "real"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Value is an immutable tagged scalar. The zero Value is unset.
//
// Values are comparable with ==, which is structural equality: two values are
// equal only when both kind and payload match.
type Value struct {
	kind Kind
	b    bool
	s    string
	i    int
	r    float64
}

// Bool returns a logical value.
func Bool(b bool) Value { return Value{kind: Logical, b: b} }

// String returns a character value.
func String(s string) Value { return Value{kind: Character, s: s} }

// Int returns an integer value.
func Int(i int) Value { return Value{kind: Integer, i: i} }

// Float returns a real value.
func Float(r float64) Value { return Value{kind: Real, r: r} }

// Kind returns the kind tag.
func (v Value) Kind() Kind { return v.kind }

// IsSet reports whether v carries a payload.
func (v Value) IsSet() bool { return v.kind != Unset }

// Equal reports structural equality.
func (v Value) Equal(o Value) bool { return v == o }

// AsLogical returns the logical payload. It panics on any other kind,
// including unset; callers check IsSet first.
func (v Value) AsLogical() bool {
	if v.kind != Logical {
		panic(&KindError{Want: Logical, Got: v.kind})
	}
	return v.b
}

// AsInteger returns the integer payload. A real payload is truncated toward
// zero. It panics on other kinds, including unset.
func (v Value) AsInteger() int {
	switch v.kind {
	case Integer:
		return v.i
	case Real:
		return int(v.r)
	}
	panic(&KindError{Want: Integer, Got: v.kind})
}

// AsReal returns the real payload, widening an integer payload. It panics on
// other kinds, including unset.
func (v Value) AsReal() float64 {
	switch v.kind {
	case Real:
		return v.r
	case Integer:
		return float64(v.i)
	}
	panic(&KindError{Want: Real, Got: v.kind})
}

// AsCharacter returns the character payload. Unlike the other accessors it
// never panics: an unset value yields "", and other kinds yield their plain
// textual form.
func (v Value) AsCharacter() string {
	switch v.kind {
	case Unset:
		return ""
	case Character:
		return v.s
	case Logical:
		return strconv.FormatBool(v.b)
	case Integer:
		return strconv.Itoa(v.i)
	default:
		return strconv.FormatFloat(v.r, 'g', -1, 64)
	}
}

// String renders v for diagnostics.
func (v Value) String() string {
	switch v.kind {
	case Unset:
		return "<unset>"
	case Character:
		return strconv.Quote(v.s)
	default:
		return v.AsCharacter()
	}
}

// KindError is the panic value raised by a typed accessor used on the wrong
// kind of value.
type KindError struct {
	Want Kind
	Got  Kind
}

func (e *KindError) Error() string {
	return fmt.Sprintf("param: %s accessor used on %s value", e.Want, e.Got)
}
