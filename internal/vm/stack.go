package vm

import (
	"strings"

	"github.com/pkg/errors"
)

const dataStackCapacity = 32768

// dataStack is the bounded stack of heterogeneous Values the interpreter
// operates on. Stack ranges (spec.md §3 GLOSSARY) are not a distinct
// representation here — they are just a run of Values with an Int count
// on top, by convention, exactly as specced; join/split only ever move
// the count markers, never reorder the payload values, which is what
// makes the join/split round-trip invariant in spec.md §8 hold.
type dataStack struct {
	values []Value
}

func newDataStack() *dataStack {
	return &dataStack{values: make([]Value, 0, 256)}
}

func (s *dataStack) depth() int { return len(s.values) }

func (s *dataStack) push(v Value) error {
	if len(s.values) >= dataStackCapacity {
		return ErrStackOverflow
	}
	s.values = append(s.values, v)
	return nil
}

func (s *dataStack) pop() (Value, error) {
	if len(s.values) == 0 {
		return Value{}, ErrStackUnderflow
	}
	last := len(s.values) - 1
	v := s.values[last]
	s.values = s.values[:last]
	return v, nil
}

func (s *dataStack) peek() (Value, error) {
	if len(s.values) == 0 {
		return Value{}, ErrStackUnderflow
	}
	return s.values[len(s.values)-1], nil
}

func typedPop(s *dataStack, want Kind) (Value, error) {
	v, err := s.pop()
	if err != nil {
		return Value{}, err
	}
	if v.Kind() != want {
		return Value{}, errors.Wrapf(ErrTypeMismatch, "wanted %s, got %s", want, v.Kind())
	}
	return v, nil
}

func (s *dataStack) popBool() (bool, error) {
	v, err := typedPop(s, KindBool)
	if err != nil {
		return false, err
	}
	return v.Bool(), nil
}

func (s *dataStack) popChar() (byte, error) {
	v, err := typedPop(s, KindChar)
	if err != nil {
		return 0, err
	}
	return v.Char(), nil
}

func (s *dataStack) popInt() (int32, error) {
	v, err := typedPop(s, KindInt)
	if err != nil {
		return 0, err
	}
	return v.Int(), nil
}

func (s *dataStack) popFloat() (float64, error) {
	v, err := typedPop(s, KindFloat)
	if err != nil {
		return 0, err
	}
	return v.Float(), nil
}

func (s *dataStack) popLabel() (Value, error) {
	return typedPop(s, KindLabel)
}

func (s *dataStack) dup() error {
	v, err := s.peek()
	if err != nil {
		return err
	}
	return s.push(v)
}

func (s *dataStack) swap() error {
	if len(s.values) < 2 {
		return ErrStackUnderflow
	}
	n := len(s.values)
	s.values[n-1], s.values[n-2] = s.values[n-2], s.values[n-1]
	return nil
}

// rotate rotates the top |n| elements in place. Clockwise moves the top
// element down to the bottom of that window; counter-clockwise is the
// exact inverse, so rotate(n, true) followed by rotate(n, false) is
// always a no-op (spec.md §8).
func (s *dataStack) rotate(n int, clockwise bool) error {
	if n == 0 {
		return errors.Wrap(ErrInvalidRangeSize, "ROTATE n must be non-zero")
	}
	if n < 0 {
		n = -n
	}
	if len(s.values) < n {
		return ErrStackUnderflow
	}

	window := make([]Value, n)
	top := len(s.values) - 1
	for j := 0; j < n; j++ {
		window[j] = s.values[top-j]
	}

	rotated := make([]Value, n)
	for j := 0; j < n; j++ {
		if clockwise {
			rotated[j] = window[(j+1)%n]
		} else {
			rotated[j] = window[(j-1+n)%n]
		}
	}

	for j := 0; j < n; j++ {
		s.values[top-j] = rotated[j]
	}
	return nil
}

func (s *dataStack) pick(k int) error {
	if k < 1 {
		return errors.Wrap(ErrInvalidRangeSize, "PICK k must be >= 1")
	}
	if len(s.values) < k {
		return ErrStackUnderflow
	}
	v := s.values[len(s.values)-k]
	return s.push(v)
}

func (s *dataStack) put(v Value, k int) error {
	if k < 1 {
		return errors.Wrap(ErrInvalidRangeSize, "PUT k must be >= 1")
	}
	if len(s.values) < k {
		return ErrStackUnderflow
	}
	s.values[len(s.values)-k] = v
	return nil
}

// join concatenates the top stack range with the range directly beneath
// it by removing the inner count marker and pushing the merged count.
func (s *dataStack) join() error {
	n1, err := s.popInt()
	if err != nil {
		return err
	}
	if n1 < 0 {
		return errors.Wrap(ErrInvalidRangeSize, "JOIN top range size must be >= 0")
	}
	L := len(s.values)
	idx := L - int(n1) - 1
	if idx < 0 {
		return ErrStackUnderflow
	}
	inner := s.values[idx]
	if inner.Kind() != KindInt {
		return errors.Wrapf(ErrTypeMismatch, "JOIN expected inner range count, got %s", inner.Kind())
	}
	n2 := inner.Int()
	if n2 < 0 {
		return errors.Wrap(ErrInvalidRangeSize, "JOIN inner range size must be >= 0")
	}

	s.values = append(s.values[:idx], s.values[idx+1:]...)
	return s.push(Int(n1 + n2))
}

// split divides the top stack range of size n into a top range of size i
// and a bottom range of size n-i, by inserting a new count marker and
// replacing the top count. It never moves the underlying values, which
// is what makes join(split(x, i)) == x hold exactly.
func (s *dataStack) split(i int) error {
	n, err := s.popInt()
	if err != nil {
		return err
	}
	if n < 1 {
		return errors.Wrap(ErrInvalidRangeSize, "SPLIT range size must be >= 1")
	}
	if i < 0 || i >= int(n) {
		return errors.Wrapf(ErrInvalidRangeSize, "SPLIT index %d out of [0, %d)", i, n)
	}
	L := len(s.values)
	if L < int(n) {
		return ErrStackUnderflow
	}

	pos := L - i
	marker := Int(n - int32(i))
	s.values = append(s.values[:pos], append([]Value{marker}, s.values[pos:]...)...)
	return s.push(Int(int32(i)))
}

// pushCharRange pushes s char by char (s[0] deepest) then the length.
func (s *dataStack) pushCharRange(str string) error {
	for i := 0; i < len(str); i++ {
		if err := s.push(Char(str[i])); err != nil {
			return err
		}
	}
	return s.push(Int(int32(len(str))))
}

// popCharRange pops a count then that many chars, returning them in
// original left-to-right order (the top-of-stack char is the last
// character of the string).
func (s *dataStack) popCharRange() (string, error) {
	n, err := s.popInt()
	if err != nil {
		return "", err
	}
	if n < 1 {
		return "", errors.Wrap(ErrInvalidRangeSize, "char range must have at least 1 element")
	}
	buf := make([]byte, n)
	for k := int32(0); k < n; k++ {
		c, err := s.popChar()
		if err != nil {
			return "", err
		}
		buf[n-1-k] = c
	}
	return string(buf), nil
}

// toString renders the stack bottom-to-top for debug traces, per
// spec.md §4.5.
func (s *dataStack) toString() string {
	parts := make([]string, len(s.values))
	for i, v := range s.values {
		parts[i] = v.debugString()
	}
	return strings.Join(parts, " ")
}
