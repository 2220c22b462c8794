package repository

import (
	"context"
	"sync"

	"github.com/ShatskikhS/NotifyMe/internal/domain"
)

// MockNotificationRepository is a hand-written, in-memory implementation of
// NotificationRepository used in unit tests. No mock-generation library needed.
type MockNotificationRepository struct {
	mu            sync.RWMutex
	notifications map[int64]*domain.Notification

	// Optional error overrides, set in tests to simulate failure paths.
	SaveErr     error
	FindByIDErr error
	FindAllErr  error
	UpdateErr   error
	DeleteErr   error

	// Updates records every successful Update, in call order.
	Updates []*domain.Notification
}

var _ NotificationRepository = (*MockNotificationRepository)(nil)

func NewMockNotificationRepository() *MockNotificationRepository {
	return &MockNotificationRepository{notifications: make(map[int64]*domain.Notification)}
}

func (m *MockNotificationRepository) NextID() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.nextID()
}

func (m *MockNotificationRepository) nextID() int64 {
	var max int64
	for id := range m.notifications {
		if id > max {
			max = id
		}
	}
	return max + 1
}

func (m *MockNotificationRepository) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.notifications)
}

func (m *MockNotificationRepository) Save(_ context.Context, n *domain.Notification) error {
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if n.ID < 0 {
		return domain.ErrInvalidID
	}
	if n.ID == 0 {
		n.ID = m.nextID()
	} else if _, exists := m.notifications[n.ID]; exists {
		return &domain.DuplicateIDError{ID: n.ID}
	}
	m.notifications[n.ID] = n.Clone()
	return nil
}

func (m *MockNotificationRepository) FindByID(_ context.Context, id int64) (*domain.Notification, error) {
	if m.FindByIDErr != nil {
		return nil, m.FindByIDErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	n, ok := m.notifications[id]
	if !ok {
		return nil, &domain.RecordNotFoundError{ID: id}
	}
	return n.Clone(), nil
}

func (m *MockNotificationRepository) FindAll(_ context.Context) (map[int64]*domain.Notification, error) {
	if m.FindAllErr != nil {
		return nil, m.FindAllErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make(map[int64]*domain.Notification, len(m.notifications))
	for id, n := range m.notifications {
		result[id] = n.Clone()
	}
	return result, nil
}

func (m *MockNotificationRepository) Update(_ context.Context, n *domain.Notification) error {
	if m.UpdateErr != nil {
		return m.UpdateErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.notifications[n.ID]; !ok {
		return &domain.RecordNotFoundError{ID: n.ID}
	}
	m.notifications[n.ID] = n.Clone()
	m.Updates = append(m.Updates, n.Clone())
	return nil
}

func (m *MockNotificationRepository) Delete(_ context.Context, id int64) error {
	if m.DeleteErr != nil {
		return m.DeleteErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.notifications[id]; !ok {
		return &domain.RecordNotFoundError{ID: id}
	}
	delete(m.notifications, id)
	return nil
}
