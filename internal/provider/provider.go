package provider

import (
	"context"
	"errors"

	"github.com/ShatskikhS/NotifyMe/internal/domain"
)

// ErrChannelNotConfigured is returned for a channel that has no sender wired,
// e.g. email without SMTP settings.
var ErrChannelNotConfigured = errors.New("channel is not configured")

// Sender delivers a notification through one channel.
// Mocking this interface in tests gives full control over delivery
// behaviour without touching stdout, files, SMTP or HTTP.
type Sender interface {
	Channel() domain.Channel
	Send(ctx context.Context, n *domain.Notification) error
}

// SenderFunc adapts a plain function to the Sender interface.
type SenderFunc struct {
	Ch domain.Channel
	Fn func(ctx context.Context, n *domain.Notification) error
}

func (f SenderFunc) Channel() domain.Channel { return f.Ch }

func (f SenderFunc) Send(ctx context.Context, n *domain.Notification) error { return f.Fn(ctx, n) }

var _ Sender = SenderFunc{}
