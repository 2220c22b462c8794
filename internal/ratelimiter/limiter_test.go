package ratelimiter_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ShatskikhS/NotifyMe/internal/domain"
	"github.com/ShatskikhS/NotifyMe/internal/ratelimiter"
)

func TestChannelLimiters_WaitBlocksAfterBurst(t *testing.T) {
	cl := ratelimiter.New(2)

	ctx := context.Background()
	require.NoError(t, cl.Wait(ctx, domain.ChannelConsole))
	require.NoError(t, cl.Wait(ctx, domain.ChannelConsole))

	// Burst spent: the next token is ~500ms away, longer than this deadline.
	short, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	assert.Error(t, cl.Wait(short, domain.ChannelConsole))

	// Other channels have their own bucket.
	assert.NoError(t, cl.Wait(ctx, domain.ChannelEmail))
}

func TestChannelLimiters_DisabledAndUnknown(t *testing.T) {
	ctx := context.Background()
	off := ratelimiter.New(0)
	for i := 0; i < 100; i++ {
		require.NoError(t, off.Wait(ctx, domain.ChannelTelegram))
	}
	assert.NoError(t, ratelimiter.New(1).Wait(ctx, domain.Channel("fax")))
}

func TestRequestLimiter_AllowsBudgetThenRefuses(t *testing.T) {
	rl := ratelimiter.NewRequestLimiter(3, time.Hour)
	for i := 0; i < 3; i++ {
		assert.True(t, rl.Allow(), "request %d", i)
	}
	assert.False(t, rl.Allow())
	assert.Greater(t, rl.RetryAfter(), time.Duration(0))
}

func TestRequestLimiter_Unlimited(t *testing.T) {
	rl := ratelimiter.NewRequestLimiter(0, time.Minute)
	for i := 0; i < 1000; i++ {
		require.True(t, rl.Allow())
	}
}
