package vm

import "fmt"

// Kind tags a Value with its runtime variant. The data stack is a stack
// of Values; every op that isn't an untyped pop checks Kind before
// touching the payload.
type Kind byte

const (
	KindBool Kind = iota
	KindChar
	KindInt
	KindFloat
	KindLabel
)

func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindChar:
		return "char"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindLabel:
		return "label"
	default:
		return "?unknown-kind?"
	}
}

// Value is a tagged runtime value. Only one of the payload fields is
// meaningful for a given Kind; label carries both a name (for display)
// and a resolved code-segment index.
type Value struct {
	kind  Kind
	b     bool
	c     byte
	i     int32
	f     float64
	label string
	index int
}

func Bool(b bool) Value    { return Value{kind: KindBool, b: b} }
func Char(c byte) Value    { return Value{kind: KindChar, c: c} }
func Int(i int32) Value    { return Value{kind: KindInt, i: i} }
func Float(f float64) Value { return Value{kind: KindFloat, f: f} }
func Label(name string, index int) Value {
	return Value{kind: KindLabel, label: name, index: index}
}

func (v Value) Kind() Kind { return v.kind }

func (v Value) Bool() bool  { return v.b }
func (v Value) Char() byte  { return v.c }
func (v Value) Int() int32  { return v.i }
func (v Value) Float() float64 { return v.f }

func (v Value) LabelName() string { return v.label }
func (v Value) LabelIndex() int   { return v.index }

// Equal compares two Values of the same Kind. Mismatched kinds are never
// equal (callers are expected to have already type-checked via a typed
// pop; Equal is used by ops like EQUALS that accept any matching pair).
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindBool:
		return v.b == other.b
	case KindChar:
		return v.c == other.c
	case KindInt:
		return v.i == other.i
	case KindFloat:
		// IEEE-754 comparison (==), not a bit-pattern compare: NaN != NaN
		// and 0.0 == -0.0.
		return v.f == other.f
	case KindLabel:
		return v.index == other.index
	default:
		return false
	}
}

// ToString renders a Value in the instruction set's TOSTRING convention:
// chars are wrapped in single quotes, everything else in its natural
// textual form.
func (v Value) ToString() string {
	switch v.kind {
	case KindBool:
		if v.b {
			return "true"
		}
		return "false"
	case KindChar:
		return fmt.Sprintf("'%c'", v.c)
	case KindInt:
		return fmt.Sprintf("%d", v.i)
	case KindFloat:
		return fmt.Sprintf("%g", v.f)
	case KindLabel:
		return v.label
	default:
		return "?unknown?"
	}
}

// DisplayString renders a Value for user-facing output (PRINT, ERROR):
// unlike ToString, a char renders as the bare character, since program
// output is meant to be read, not round-tripped through TOSTRING.
func (v Value) DisplayString() string {
	if v.kind == KindChar {
		return string(v.c)
	}
	return v.ToString()
}

// debugString is used by the stack toString formatter (§4.5): chars show
// their quote form, and the whitespace chars get the named-op spelling.
func (v Value) debugString() string {
	if v.kind == KindChar {
		switch v.c {
		case ' ':
			return "SPACE"
		case '\t':
			return "TAB"
		case '\n':
			return "NEWLINE"
		}
	}
	return v.ToString()
}
