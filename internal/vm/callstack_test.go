package vm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCallStackOverflowAt513(t *testing.T) {
	cs := newCallStack()
	for i := 0; i < callStackCapacity; i++ {
		require.NoError(t, cs.push(i))
	}
	err := cs.push(0)
	require.ErrorIs(t, err, ErrCallStackOverflow)
}

func TestCallStackUnderflow(t *testing.T) {
	cs := newCallStack()
	_, err := cs.pop()
	require.ErrorIs(t, err, ErrCallStackUnderflow)
}

func TestCallStackPushPopOrder(t *testing.T) {
	cs := newCallStack()
	require.NoError(t, cs.push(10))
	require.NoError(t, cs.push(20))
	v, err := cs.pop()
	require.NoError(t, err)
	assert.Equal(t, 20, v)
	assert.Equal(t, 1, cs.depth())
}
