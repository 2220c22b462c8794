package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/ShatskikhS/NotifyMe/internal/domain"
	"github.com/ShatskikhS/NotifyMe/internal/repository"
)

// Dispatcher delivers a notification to its channels; *provider.Dispatcher
// satisfies it.
type Dispatcher interface {
	Dispatch(ctx context.Context, n *domain.Notification) error
}

type Option func(*NotificationService)

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *NotificationService) { s.now = now }
}

// NotificationService coordinates the repository and the dispatcher.
// All business rules (validation, scheduling, the cancel precondition) live
// here. HTTP handlers and workers depend on this service, not on each other.
type NotificationService struct {
	repo       repository.NotificationRepository
	dispatcher Dispatcher
	rules      domain.Rules
	now        func() time.Time
	logger     *zap.Logger

	// Held across every read-modify-write of one record so that an edit,
	// a cancel and a delivery never overwrite each other.
	locks idLocks
}

func NewNotificationService(
	repo repository.NotificationRepository,
	dispatcher Dispatcher,
	rules domain.Rules,
	logger *zap.Logger,
	opts ...Option,
) *NotificationService {
	s := &NotificationService{
		repo:       repo,
		dispatcher: dispatcher,
		rules:      rules,
		now:        func() time.Time { return time.Now().UTC() },
		logger:     logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create validates and persists a notification. Without sendAt it is
// delivered right away and the final status is persisted; the request
// succeeds even when delivery fails. With sendAt it is stored as
// awaitingDelivery for the scheduler.
func (s *NotificationService) Create(ctx context.Context, req domain.CreateNotificationRequest) (*domain.Notification, error) {
	now := s.now()
	if err := req.Validate(s.rules, now); err != nil {
		return nil, err
	}

	n := req.Notification(now)
	if err := s.repo.Save(ctx, n); err != nil {
		return nil, fmt.Errorf("persist notification: %w", err)
	}

	if n.IsDeferred() {
		s.logger.Info("notification scheduled",
			zap.Int64("id", n.ID), zap.Time("send_at", *n.SendAt))
		return n, nil
	}

	unlock := s.locks.lock(n.ID)
	defer unlock()
	if err := s.deliver(ctx, n); err != nil {
		return nil, err
	}
	return n, nil
}

func (s *NotificationService) List(ctx context.Context) (map[int64]*domain.Notification, error) {
	return s.repo.FindAll(ctx)
}

func (s *NotificationService) GetByID(ctx context.Context, id int64) (*domain.Notification, error) {
	return s.repo.FindByID(ctx, id)
}

// Count returns the number of stored notifications.
func (s *NotificationService) Count() int {
	return s.repo.Len()
}

// Update merges the present fields of req into the stored record. Moving
// sendAt is only allowed while the notification is still scheduled.
func (s *NotificationService) Update(ctx context.Context, id int64, req domain.UpdateNotificationRequest) (*domain.Notification, error) {
	now := s.now()
	if err := req.Validate(s.rules, now); err != nil {
		return nil, err
	}

	unlock := s.locks.lock(id)
	defer unlock()

	n, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.SendAt != nil {
		if err := n.CheckScheduled(now); err != nil {
			return nil, err
		}
	}

	req.Apply(n)
	if err := s.repo.Update(ctx, n); err != nil {
		return nil, fmt.Errorf("update notification: %w", err)
	}
	s.logger.Info("notification updated", zap.Int64("id", id))
	return n, nil
}

// Cancel removes a notification that is still waiting for its sendAt.
func (s *NotificationService) Cancel(ctx context.Context, id int64) error {
	unlock := s.locks.lock(id)
	defer unlock()

	n, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := n.CheckScheduled(s.now()); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("scheduled notification cancelled", zap.Int64("id", id))
	return nil
}

// DueScheduled returns awaiting notifications whose sendAt is not after now,
// earliest first.
func (s *NotificationService) DueScheduled(ctx context.Context, now time.Time) ([]*domain.Notification, error) {
	all, err := s.repo.FindAll(ctx)
	if err != nil {
		return nil, err
	}

	due := make([]*domain.Notification, 0)
	for _, n := range all {
		if n.IsDue(now) {
			due = append(due, n)
		}
	}
	sort.Slice(due, func(i, j int) bool {
		if !due[i].SendAt.Equal(*due[j].SendAt) {
			return due[i].SendAt.Before(*due[j].SendAt)
		}
		return due[i].ID < due[j].ID
	})
	return due, nil
}

// DeliverScheduled delivers one scheduled notification. The record is
// re-read first: one deleted or already handled since it was queued is
// skipped without error.
func (s *NotificationService) DeliverScheduled(ctx context.Context, id int64) error {
	unlock := s.locks.lock(id)
	defer unlock()

	n, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		s.logger.Debug("scheduled notification vanished before delivery", zap.Int64("id", id))
		return nil
	}
	if err != nil {
		return err
	}
	if n.Status != domain.StatusAwaitingDelivery {
		s.logger.Debug("scheduled notification no longer awaiting delivery",
			zap.Int64("id", id), zap.String("status", string(n.Status)))
		return nil
	}
	return s.deliver(ctx, n)
}

// ---- private helpers ----

// deliver dispatches n and persists the resulting status. A delivery failure
// only changes the status; an error is returned when the status cannot be saved.
// The caller holds the lock for n.ID.
func (s *NotificationService) deliver(ctx context.Context, n *domain.Notification) error {
	log := s.logger.With(zap.Int64("id", n.ID))

	if err := s.dispatcher.Dispatch(ctx, n); err != nil {
		log.Warn("delivery failed", zap.Error(err))
		n.Status = domain.StatusDeliveryError
	} else {
		log.Info("notification delivered")
		n.Status = domain.StatusDelivered
	}

	// Only the status is ours to write. An edit that reached the record
	// between Create's save and taking the lock is kept.
	stored, err := s.repo.FindByID(ctx, n.ID)
	if err != nil {
		return fmt.Errorf("persist delivery status: %w", err)
	}
	stored.Status = n.Status
	if err := s.repo.Update(ctx, stored); err != nil {
		return fmt.Errorf("persist delivery status: %w", err)
	}
	return nil
}
