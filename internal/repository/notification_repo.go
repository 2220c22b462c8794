package repository

import (
	"context"

	"github.com/ShatskikhS/NotifyMe/internal/domain"
)

// NotificationRepository defines all persistence operations for notifications.
// The JSON file implementation is in file_notification_repo.go.
// Tests use a hand-written mock (mock_notification_repo.go).
type NotificationRepository interface {
	// NextID returns the id the next Save without an explicit id would get.
	NextID() int64
	// Save persists n, assigning n.ID in place when it is zero.
	Save(ctx context.Context, n *domain.Notification) error
	FindByID(ctx context.Context, id int64) (*domain.Notification, error)
	FindAll(ctx context.Context) (map[int64]*domain.Notification, error)
	// Update replaces the whole record stored under n.ID.
	Update(ctx context.Context, n *domain.Notification) error
	Delete(ctx context.Context, id int64) error
	Len() int
}
