package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/ShatskikhS/NotifyMe/internal/queue"
)

// Deliverer delivers one scheduled notification by id;
// *service.NotificationService satisfies it.
type Deliverer interface {
	DeliverScheduled(ctx context.Context, id int64) error
}

// Worker is a single goroutine that continuously pulls items from the priority
// queue and hands them to the service for delivery.
type Worker struct {
	id        int
	q         *queue.PriorityQueue
	deliverer Deliverer
	inflight  *InFlight
	logger    *zap.Logger
}

func NewWorker(id int, q *queue.PriorityQueue, deliverer Deliverer, inflight *InFlight, logger *zap.Logger) *Worker {
	return &Worker{id: id, q: q, deliverer: deliverer, inflight: inflight, logger: logger}
}

// Run blocks until ctx is cancelled, processing one queue item per iteration.
func (w *Worker) Run(ctx context.Context) {
	w.logger.Info("worker started", zap.Int("id", w.id))
	for {
		item, ok := w.q.Dequeue(ctx)
		if !ok {
			w.logger.Info("worker stopping", zap.Int("id", w.id))
			return
		}
		w.process(ctx, item)
	}
}

func (w *Worker) process(ctx context.Context, item queue.Item) {
	// Released whatever the outcome so the scheduler can pick the record up
	// again if it is still awaiting delivery.
	defer w.inflight.Done(item.NotificationID)

	start := time.Now()
	log := w.logger.With(
		zap.Int64("notification_id", item.NotificationID),
		zap.String("priority", string(item.Priority)),
	)

	// An item already taken off the queue is finished even during shutdown.
	if err := w.deliverer.DeliverScheduled(context.WithoutCancel(ctx), item.NotificationID); err != nil {
		log.Error("scheduled delivery failed", zap.Error(err))
		return
	}
	log.Debug("scheduled notification processed", zap.Duration("elapsed", time.Since(start)))
}
