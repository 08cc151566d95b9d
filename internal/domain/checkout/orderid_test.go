package checkout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOrderID(t *testing.T) {
	t.Parallel()

	id, err := NewOrderID()
	require.NoError(t, err)
	assert.Len(t, id, orderIDLength)
	assert.Regexp(t, "^[0-9a-f]+$", id)
}

func TestNewOrderIDUniqueness(t *testing.T) {
	t.Parallel()

	seen := make(map[string]struct{}, 10000)
	for range 10000 {
		id, err := NewOrderID()
		require.NoError(t, err)
		_, dup := seen[id]
		require.False(t, dup, "duplicate id %s", id)
		seen[id] = struct{}{}
	}
}
