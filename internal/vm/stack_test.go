package vm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDataStackPushPopOverflow(t *testing.T) {
	s := newDataStack()
	for i := 0; i < dataStackCapacity; i++ {
		require.NoError(t, s.push(Int(int32(i))))
	}
	err := s.push(Int(0))
	require.ErrorIs(t, err, ErrStackOverflow)
}

func TestDataStackPopUnderflow(t *testing.T) {
	s := newDataStack()
	_, err := s.pop()
	require.ErrorIs(t, err, ErrStackUnderflow)
}

func TestDataStackTypedPopMismatch(t *testing.T) {
	s := newDataStack()
	require.NoError(t, s.push(Int(5)))
	_, err := s.popBool()
	require.ErrorIs(t, err, ErrTypeMismatch)
}

func TestSwapSwapIsNoOp(t *testing.T) {
	s := newDataStack()
	require.NoError(t, s.push(Int(1)))
	require.NoError(t, s.push(Int(2)))
	require.NoError(t, s.swap())
	require.NoError(t, s.swap())
	top, _ := s.popInt()
	bottom, _ := s.popInt()
	assert.Equal(t, int32(2), top)
	assert.Equal(t, int32(1), bottom)
}

func TestDupPopIsNoOp(t *testing.T) {
	s := newDataStack()
	require.NoError(t, s.push(Int(7)))
	require.NoError(t, s.dup())
	_, err := s.pop()
	require.NoError(t, err)
	v, err := s.popInt()
	require.NoError(t, err)
	assert.Equal(t, int32(7), v)
}

func TestRotateThenInverseIsNoOp(t *testing.T) {
	s := newDataStack()
	for i := 1; i <= 5; i++ {
		require.NoError(t, s.push(Int(int32(i))))
	}
	before := append([]Value(nil), s.values...)

	require.NoError(t, s.rotate(3, true))
	require.NoError(t, s.rotate(3, false))

	assert.Equal(t, before, s.values)
}

func TestPickAndPut(t *testing.T) {
	s := newDataStack()
	require.NoError(t, s.push(Int(10)))
	require.NoError(t, s.push(Int(20)))
	require.NoError(t, s.push(Int(30)))

	require.NoError(t, s.pick(2))
	v, err := s.popInt()
	require.NoError(t, err)
	assert.Equal(t, int32(20), v)

	require.NoError(t, s.put(Int(99), 1))
	top, err := s.popInt()
	require.NoError(t, err)
	assert.Equal(t, int32(99), top)
}

func TestPushPopCharRangeRoundTrip(t *testing.T) {
	s := newDataStack()
	require.NoError(t, s.pushCharRange("hello"))
	out, err := s.popCharRange()
	require.NoError(t, err)
	assert.Equal(t, "hello", out)
}

func TestJoinSplitRoundTrip(t *testing.T) {
	for i := 1; i < 5; i++ {
		s := newDataStack()
		require.NoError(t, s.pushCharRange("ABCDE"))
		require.NoError(t, s.split(i))
		require.NoError(t, s.join())
		out, err := s.popCharRange()
		require.NoError(t, err)
		assert.Equal(t, "ABCDE", out, "split(%d) then join should round-trip", i)
	}
}

func TestSplitJoinExplicitRanges(t *testing.T) {
	s := newDataStack()
	require.NoError(t, s.pushCharRange("ABCDE"))
	require.NoError(t, s.split(2))

	// Top range (size 2) sits closest to the top; it should contain the
	// last two characters pushed, i.e. the range's tail.
	top, err := s.popCharRange()
	require.NoError(t, err)
	assert.Equal(t, "DE", top)

	bottom, err := s.popCharRange()
	require.NoError(t, err)
	assert.Equal(t, "ABC", bottom)
}

func TestDepth(t *testing.T) {
	s := newDataStack()
	require.NoError(t, s.push(Int(1)))
	require.NoError(t, s.push(Int(2)))
	assert.Equal(t, 2, s.depth())
}

func TestToStringFormatsWhitespaceChars(t *testing.T) {
	s := newDataStack()
	require.NoError(t, s.push(Char(' ')))
	require.NoError(t, s.push(Char('\t')))
	require.NoError(t, s.push(Int(3)))
	assert.Equal(t, "SPACE TAB 3", s.toString())
}
