package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ShatskikhS/NotifyMe/internal/domain"
	"github.com/ShatskikhS/NotifyMe/internal/queue"
)

// DueSource lists scheduled notifications whose time has come;
// *service.NotificationService satisfies it.
type DueSource interface {
	DueScheduled(ctx context.Context, now time.Time) ([]*domain.Notification, error)
}

// InFlight is the set of ids currently queued or being delivered.
type InFlight struct {
	mu  sync.Mutex
	ids map[int64]struct{}
}

func NewInFlight() *InFlight {
	return &InFlight{ids: make(map[int64]struct{})}
}

// Add marks id as in flight and reports false if it already was.
func (f *InFlight) Add(id int64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.ids[id]; ok {
		return false
	}
	f.ids[id] = struct{}{}
	return true
}

func (f *InFlight) Done(id int64) {
	f.mu.Lock()
	delete(f.ids, id)
	f.mu.Unlock()
}

func (f *InFlight) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.ids)
}

// SchedulerWorker polls the store for notifications whose sendAt has passed
// and enqueues them for delivery.
//
// Notifications created with a future sendAt are stored with
// status=awaitingDelivery and bypass delivery until their time arrives.
type SchedulerWorker struct {
	source   DueSource
	q        *queue.PriorityQueue
	inflight *InFlight
	interval time.Duration
	now      func() time.Time
	logger   *zap.Logger

	// OnSample receives queue depths after every poll; optional.
	OnSample func(high, medium, low int)
}

func NewSchedulerWorker(
	source DueSource,
	q *queue.PriorityQueue,
	inflight *InFlight,
	interval time.Duration,
	logger *zap.Logger,
) *SchedulerWorker {
	return &SchedulerWorker{
		source:   source,
		q:        q,
		inflight: inflight,
		interval: interval,
		now:      func() time.Time { return time.Now().UTC() },
		logger:   logger,
		OnSample: func(int, int, int) {},
	}
}

// Run polls once right away, then every interval, until ctx is cancelled.
func (sw *SchedulerWorker) Run(ctx context.Context) {
	ticker := time.NewTicker(sw.interval)
	defer ticker.Stop()

	sw.logger.Info("scheduler worker started", zap.Duration("interval", sw.interval))
	sw.Poll(ctx)

	for {
		select {
		case <-ctx.Done():
			sw.logger.Info("scheduler worker stopping")
			return
		case <-ticker.C:
			sw.Poll(ctx)
		}
	}
}

// Poll enqueues every due notification not already in flight and returns
// how many were enqueued.
func (sw *SchedulerWorker) Poll(ctx context.Context) int {
	defer sw.sample()

	due, err := sw.source.DueScheduled(ctx, sw.now())
	if err != nil {
		sw.logger.Error("scheduler poll error", zap.Error(err))
		return 0
	}

	enqueued := 0
	for _, n := range due {
		if !sw.inflight.Add(n.ID) {
			continue
		}
		if err := sw.q.Enqueue(queue.Item{NotificationID: n.ID, Priority: n.Priority}); err != nil {
			sw.inflight.Done(n.ID)
			sw.logger.Warn("could not enqueue scheduled notification",
				zap.Int64("id", n.ID), zap.Error(err))
			continue
		}
		enqueued++
	}

	if enqueued > 0 {
		sw.logger.Info("enqueued due scheduled notifications", zap.Int("count", enqueued))
	}
	return enqueued
}

func (sw *SchedulerWorker) sample() {
	high, medium, low := sw.q.Depths()
	sw.OnSample(high, medium, low)
}
