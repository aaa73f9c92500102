// Package tuple owns the value model carried by the tuple-space protocol.
//
// A Value is one of five kinds: Int, Double, String, Tuple (nested) or
// Wildcard. Tuples are ordered and positional; a tuple holding a Wildcard
// at any depth is a template.
package tuple

import (
	"math"
	"strconv"
	"strings"
)

// Kind identifies the variant held by a Value.
type Kind uint8

const (
	KindWildcard Kind = iota
	KindInt
	KindDouble
	KindString
	KindTuple
)

func (k Kind) String() string {
	switch k {
	case KindWildcard:
		return "wildcard"
	case KindInt:
		return "int"
	case KindDouble:
		return "double"
	case KindString:
		return "string"
	case KindTuple:
		return "tuple"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Value is one tuple element. The zero Value is a Wildcard.
type Value struct {
	kind Kind
	i    int32
	d    float64
	s    string
	t    Tuple
}

// Tuple is an ordered sequence of values.
type Tuple []Value

func Int(v int32) Value        { return Value{kind: KindInt, i: v} }
func Double(v float64) Value   { return Value{kind: KindDouble, d: v} }
func String(v string) Value    { return Value{kind: KindString, s: v} }
func Wildcard() Value          { return Value{kind: KindWildcard} }
func Nested(vs ...Value) Value { return FromTuple(Tuple(vs)) }

// FromTuple wraps t as a nested tuple value. A nil t is stored as an empty tuple.
func FromTuple(t Tuple) Value {
	if t == nil {
		t = Tuple{}
	}
	return Value{kind: KindTuple, t: t}
}

// Of builds a tuple from its elements.
func Of(vs ...Value) Tuple {
	if vs == nil {
		return Tuple{}
	}
	return Tuple(vs)
}

func (v Value) Kind() Kind { return v.kind }

func (v Value) Int() (int32, bool) {
	return v.i, v.kind == KindInt
}

func (v Value) Double() (float64, bool) {
	return v.d, v.kind == KindDouble
}

func (v Value) Str() (string, bool) {
	return v.s, v.kind == KindString
}

func (v Value) Tuple() (Tuple, bool) {
	return v.t, v.kind == KindTuple
}

func (v Value) IsWildcard() bool { return v.kind == KindWildcard }

// Equal reports structural equality. Doubles compare by bit pattern.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindInt:
		return v.i == o.i
	case KindDouble:
		return math.Float64bits(v.d) == math.Float64bits(o.d)
	case KindString:
		return v.s == o.s
	case KindTuple:
		return v.t.Equal(o.t)
	default:
		return true
	}
}

// Equal reports whether t and o have equal length and pairwise equal elements.
func (t Tuple) Equal(o Tuple) bool {
	if len(t) != len(o) {
		return false
	}
	for i := range t {
		if !t[i].Equal(o[i]) {
			return false
		}
	}
	return true
}

// IsTemplate reports whether t holds a Wildcard at any depth.
func (t Tuple) IsTemplate() bool {
	for _, v := range t {
		switch v.kind {
		case KindWildcard:
			return true
		case KindTuple:
			if v.t.IsTemplate() {
				return true
			}
		}
	}
	return false
}

// Clone returns a deep copy of t.
func (t Tuple) Clone() Tuple {
	out := make(Tuple, len(t))
	for i, v := range t {
		if v.kind == KindTuple {
			v.t = v.t.Clone()
		}
		out[i] = v
	}
	return out
}

func (v Value) String() string {
	var b strings.Builder
	v.write(&b)
	return b.String()
}

func (t Tuple) String() string {
	var b strings.Builder
	t.write(&b)
	return b.String()
}

func (v Value) write(b *strings.Builder) {
	switch v.kind {
	case KindInt:
		b.WriteString("Int(")
		b.WriteString(strconv.FormatInt(int64(v.i), 10))
		b.WriteByte(')')
	case KindDouble:
		b.WriteString("Double(")
		b.WriteString(strconv.FormatFloat(v.d, 'g', -1, 64))
		b.WriteByte(')')
	case KindString:
		b.WriteString("String(")
		b.WriteString(strconv.Quote(v.s))
		b.WriteByte(')')
	case KindTuple:
		b.WriteString("Tuple")
		v.t.write(b)
	default:
		b.WriteByte('?')
	}
}

func (t Tuple) write(b *strings.Builder) {
	b.WriteByte('[')
	for i, v := range t {
		if i > 0 {
			b.WriteString(", ")
		}
		v.write(b)
	}
	b.WriteByte(']')
}
