package queue

import (
	"context"
	"fmt"

	"github.com/ShatskikhS/NotifyMe/internal/domain"
)

// Per-tier buffer sizes used by New. The high tier is kept small so a flood of
// urgent scheduled notifications pushes back on the scheduler early.
const (
	DefaultHighCapacity   = 100
	DefaultMediumCapacity = 500
	DefaultLowCapacity    = 500
)

// PriorityQueue holds due notification ids in three buffered tiers.
// Dequeue always drains the high tier first; medium and low compete fairly.
type PriorityQueue struct {
	high   chan Item
	medium chan Item
	low    chan Item
}

func New() *PriorityQueue {
	return NewWithCapacity(DefaultHighCapacity, DefaultMediumCapacity, DefaultLowCapacity)
}

// NewWithCapacity builds a queue with explicit per-tier buffer sizes.
func NewWithCapacity(high, medium, low int) *PriorityQueue {
	return &PriorityQueue{
		high:   make(chan Item, high),
		medium: make(chan Item, medium),
		low:    make(chan Item, low),
	}
}

func (q *PriorityQueue) tier(p domain.Priority) (chan Item, error) {
	switch p {
	case domain.PriorityHigh:
		return q.high, nil
	case domain.PriorityMedium:
		return q.medium, nil
	case domain.PriorityLow:
		return q.low, nil
	}
	return nil, fmt.Errorf("unknown priority %q", p)
}

// Enqueue never blocks. A full tier yields domain.ErrQueueFull and the caller
// retries on its next poll.
func (q *PriorityQueue) Enqueue(item Item) error {
	ch, err := q.tier(item.Priority)
	if err != nil {
		return err
	}
	select {
	case ch <- item:
		return nil
	default:
		return fmt.Errorf("%w: %s tier", domain.ErrQueueFull, item.Priority)
	}
}

// Dequeue blocks until an item is available or ctx is done, in which case it
// returns false.
func (q *PriorityQueue) Dequeue(ctx context.Context) (Item, bool) {
	// A plain select picks randomly among ready cases, so look at high alone first.
	select {
	case item := <-q.high:
		return item, true
	default:
	}

	select {
	case item := <-q.high:
		return item, true
	case item := <-q.medium:
		return item, true
	case item := <-q.low:
		return item, true
	case <-ctx.Done():
		return Item{}, false
	}
}

// Depths reports how many items wait in each tier.
func (q *PriorityQueue) Depths() (high, medium, low int) {
	return len(q.high), len(q.medium), len(q.low)
}

// Len is the total number of waiting items.
func (q *PriorityQueue) Len() int {
	h, m, l := q.Depths()
	return h + m + l
}
