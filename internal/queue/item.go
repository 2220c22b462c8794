package queue

import "github.com/ShatskikhS/NotifyMe/internal/domain"

// Item is the minimal data placed on the queue.
// Workers re-read the full Notification from the store using the ID,
// so a record edited or cancelled after enqueue is seen as it is now.
type Item struct {
	NotificationID int64
	Priority       domain.Priority
}
