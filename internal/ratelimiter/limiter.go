package ratelimiter

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/ShatskikhS/NotifyMe/internal/domain"
)

// ChannelLimiters holds one token bucket limiter per delivery channel.
// Burst equals the rate so no capacity is saved up beyond one second's worth.
type ChannelLimiters struct {
	limiters map[domain.Channel]*rate.Limiter
}

// New creates a ChannelLimiters with ratePerSec tokens per second per channel.
// A non-positive rate disables limiting.
func New(ratePerSec int) *ChannelLimiters {
	cl := &ChannelLimiters{limiters: make(map[domain.Channel]*rate.Limiter, len(domain.AllChannels))}
	if ratePerSec <= 0 {
		return cl
	}
	for _, ch := range domain.AllChannels {
		cl.limiters[ch] = rate.NewLimiter(rate.Limit(ratePerSec), ratePerSec)
	}
	return cl
}

// Wait blocks until the channel's limiter grants a token.
// Returns a non-nil error only if ctx is cancelled while waiting.
func (cl *ChannelLimiters) Wait(ctx context.Context, ch domain.Channel) error {
	l, ok := cl.limiters[ch]
	if !ok {
		return nil
	}
	return l.Wait(ctx)
}

// RequestLimiter is the inbound API budget: requests per window, refilled
// evenly over the window, with the full budget available as burst.
type RequestLimiter struct {
	limiter *rate.Limiter
	window  time.Duration
}

// NewRequestLimiter allows up to requests calls per window.
func NewRequestLimiter(requests int, window time.Duration) *RequestLimiter {
	if requests <= 0 || window <= 0 {
		return &RequestLimiter{limiter: rate.NewLimiter(rate.Inf, 0), window: window}
	}
	every := rate.Every(window / time.Duration(requests))
	return &RequestLimiter{limiter: rate.NewLimiter(every, requests), window: window}
}

// Allow reports whether one more request fits the budget right now.
func (rl *RequestLimiter) Allow() bool {
	return rl.limiter.Allow()
}

// RetryAfter is a hint for the Retry-After header when a request is refused.
func (rl *RequestLimiter) RetryAfter() time.Duration {
	r := rl.limiter.Reserve()
	d := r.Delay()
	r.Cancel()
	return d
}
