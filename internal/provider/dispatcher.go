package provider

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ShatskikhS/NotifyMe/internal/domain"
)

// Limiter gates sends per channel; *ratelimiter.ChannelLimiters satisfies it.
type Limiter interface {
	Wait(ctx context.Context, ch domain.Channel) error
}

// Hooks for metrics, injected so the dispatcher stays metrics-agnostic.
type Hooks struct {
	OnSent   func(ch domain.Channel, latency time.Duration)
	OnFailed func(ch domain.Channel)
}

// Dispatcher fans a notification out to the sender of each of its channels.
type Dispatcher struct {
	senders map[domain.Channel]Sender
	limiter Limiter
	hooks   Hooks
	logger  *zap.Logger
}

// NewDispatcher wires the given senders. limiter may be nil.
func NewDispatcher(senders []Sender, limiter Limiter, hooks Hooks, logger *zap.Logger) *Dispatcher {
	if hooks.OnSent == nil {
		hooks.OnSent = func(domain.Channel, time.Duration) {}
	}
	if hooks.OnFailed == nil {
		hooks.OnFailed = func(domain.Channel) {}
	}
	d := &Dispatcher{
		senders: make(map[domain.Channel]Sender, len(senders)),
		limiter: limiter,
		hooks:   hooks,
		logger:  logger.With(zap.String("component", "dispatcher")),
	}
	for _, s := range senders {
		d.senders[s.Channel()] = s
	}
	return d
}

// Configured reports whether ch has a sender.
func (d *Dispatcher) Configured(ch domain.Channel) bool {
	_, ok := d.senders[ch]
	return ok
}

// Dispatch sends n to all of its channels concurrently. Every channel is
// attempted even when another fails. The returned error, if any, combines
// the per-channel failures and matches domain.ErrDelivery.
func (d *Dispatcher) Dispatch(ctx context.Context, n *domain.Notification) error {
	var (
		mu   sync.Mutex
		errs error
	)

	// Goroutines never return an error so one failure does not cancel siblings.
	g, gctx := errgroup.WithContext(ctx)
	for _, ch := range n.Channels {
		ch := ch
		g.Go(func() error {
			if err := d.send(gctx, ch, n); err != nil {
				mu.Lock()
				errs = multierr.Append(errs, fmt.Errorf("%s: %w", ch, err))
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	if errs != nil {
		return fmt.Errorf("%w: %w", domain.ErrDelivery, errs)
	}
	return nil
}

func (d *Dispatcher) send(ctx context.Context, ch domain.Channel, n *domain.Notification) error {
	log := d.logger.With(zap.Int64("notification_id", n.ID), zap.String("channel", string(ch)))

	s, ok := d.senders[ch]
	if !ok {
		log.Warn("no sender configured for channel")
		d.hooks.OnFailed(ch)
		return ErrChannelNotConfigured
	}

	if d.limiter != nil {
		if err := d.limiter.Wait(ctx, ch); err != nil {
			d.hooks.OnFailed(ch)
			return err
		}
	}

	start := time.Now()
	if err := s.Send(ctx, n); err != nil {
		log.Warn("send failed", zap.Error(err))
		d.hooks.OnFailed(ch)
		return err
	}
	elapsed := time.Since(start)
	d.hooks.OnSent(ch, elapsed)
	log.Debug("notification sent", zap.Duration("latency", elapsed))
	return nil
}
