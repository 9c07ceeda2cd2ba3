package payment

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWallet_Send(t *testing.T) {
	w := NewWallet()
	ctx := context.Background()

	require.NoError(t, w.Send(ctx, "alice", 100))
	require.NoError(t, w.Send(ctx, "alice", 20))

	assert.Equal(t, uint64(120), w.Balance("alice"))
	assert.Zero(t, w.Balance("bob"))
}

func TestWallet_SendOverflow(t *testing.T) {
	w := NewWallet()
	ctx := context.Background()

	require.NoError(t, w.Send(ctx, "alice", math.MaxUint64))
	assert.Error(t, w.Send(ctx, "alice", 1))
	assert.Equal(t, uint64(math.MaxUint64), w.Balance("alice"))
}
