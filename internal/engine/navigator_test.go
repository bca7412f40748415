package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNavigatorBounds(t *testing.T) {
	n := NewNavigator(5)

	// Previous at the first question is a no-op.
	n.Previous()
	assert.Equal(t, 0, n.Current())

	for i := 0; i < 10; i++ {
		n.Next()
	}
	// Next at the last question is a no-op.
	assert.Equal(t, 4, n.Current())

	// The index never leaves [0, count) under any call sequence.
	moves := []func(){n.Next, n.Previous, n.Previous, n.Next, n.Next, n.Previous}
	for _, mv := range moves {
		mv()
		assert.GreaterOrEqual(t, n.Current(), 0)
		assert.Less(t, n.Current(), 5)
	}
}

func TestNavigatorGoTo(t *testing.T) {
	n := NewNavigator(5)

	require.NoError(t, n.GoTo(3))
	assert.Equal(t, 3, n.Current())

	// Out-of-range jumps are rejected, not clamped.
	var ve *ValidationError
	err := n.GoTo(7)
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, 3, n.Current())

	err = n.GoTo(-1)
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, 3, n.Current())
}

func TestNavigatorVisited(t *testing.T) {
	n := NewNavigator(4)
	assert.True(t, n.Visited(0))
	assert.False(t, n.Visited(2))

	require.NoError(t, n.GoTo(2))
	n.Next()

	assert.True(t, n.Visited(2))
	assert.True(t, n.Visited(3))
	assert.False(t, n.Visited(1))
}
