package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// Channel is a delivery channel for a notification.
type Channel string

const (
	ChannelConsole  Channel = "console"
	ChannelLogfile  Channel = "logfile"
	ChannelEmail    Channel = "email"
	ChannelTelegram Channel = "telegram"
)

// AllChannels lists every channel the service knows how to resolve.
var AllChannels = []Channel{ChannelConsole, ChannelLogfile, ChannelEmail, ChannelTelegram}

func (c Channel) IsValid() bool {
	switch c {
	case ChannelConsole, ChannelLogfile, ChannelEmail, ChannelTelegram:
		return true
	}
	return false
}

// Priority controls queue ordering for deferred delivery. High is served first.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Status tracks the delivery lifecycle of a notification.
type Status string

const (
	StatusReceived         Status = "received"
	StatusAwaitingDelivery Status = "awaitingDelivery"
	StatusDelivered        Status = "delivered"
	StatusDeliveryError    Status = "deliveryError"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusReceived, StatusAwaitingDelivery, StatusDelivered, StatusDeliveryError:
		return true
	}
	return false
}

// Notification is the unit of persistence.
// ID 0 means "not assigned yet"; the store allocates one on save.
type Notification struct {
	ID         int64      `json:"id"`
	Source     string     `json:"source"`
	Priority   Priority   `json:"priority"`
	Message    string     `json:"message"`
	Channels   []Channel  `json:"channels"`
	ReceivedAt time.Time  `json:"receivedAt"`
	SendAt     *time.Time `json:"sendAt"`
	Status     Status     `json:"status"`
}

// Normalize applies the construction defaults in place: UTC timestamps,
// receivedAt set to now when zero, low priority, received status and an
// owned copy of the channel list.
func (n *Notification) Normalize() {
	if n.Priority == "" {
		n.Priority = PriorityLow
	}
	if n.Status == "" {
		n.Status = StatusReceived
	}
	if n.ReceivedAt.IsZero() {
		n.ReceivedAt = time.Now().UTC()
	} else {
		n.ReceivedAt = n.ReceivedAt.UTC()
	}
	if n.SendAt != nil {
		t := n.SendAt.UTC()
		n.SendAt = &t
	}
	n.Channels = cloneChannels(n.Channels)
}

// Clone returns a deep copy that shares no slices or pointers with n.
func (n *Notification) Clone() *Notification {
	c := *n
	c.Channels = cloneChannels(n.Channels)
	if n.SendAt != nil {
		t := *n.SendAt
		c.SendAt = &t
	}
	return &c
}

// IsDeferred reports whether the notification carries a sendAt at all.
func (n *Notification) IsDeferred() bool {
	return n.SendAt != nil
}

// CheckScheduled returns a NotScheduledError unless sendAt is strictly after now.
func (n *Notification) CheckScheduled(now time.Time) error {
	if n.SendAt == nil {
		return &NotScheduledError{ID: n.ID, Reason: "missing sendAt field"}
	}
	if !n.SendAt.After(now) {
		return &NotScheduledError{ID: n.ID, Reason: "sendAt time already passed"}
	}
	return nil
}

// IsDue reports whether a deferred notification is waiting and its time has come.
func (n *Notification) IsDue(now time.Time) bool {
	return n.Status == StatusAwaitingDelivery && n.SendAt != nil && !n.SendAt.After(now)
}

// ToMap returns the plain mapping written into the store document. Together
// with FromMap it is the single definition of the stored entry layout; the
// struct tags above only shape API responses.
func (n *Notification) ToMap() map[string]any {
	channels := make([]string, len(n.Channels))
	for i, c := range n.Channels {
		channels[i] = string(c)
	}
	var sendAt any
	if n.SendAt != nil {
		sendAt = *n.SendAt
	}
	return map[string]any{
		"id":         n.ID,
		"source":     n.Source,
		"priority":   string(n.Priority),
		"message":    n.Message,
		"channels":   channels,
		"receivedAt": n.ReceivedAt,
		"sendAt":     sendAt,
		"status":     string(n.Status),
	}
}

// DecodeNotification rebuilds a notification from one stored JSON entry by
// way of FromMap.
func DecodeNotification(data []byte) (*Notification, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, &DeserializationError{Reason: "JSON object is required for deserialization"}
	}
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, &DeserializationError{Reason: "malformed notification", Err: err}
	}
	return FromMap(raw)
}

// FromMap builds a notification from a loosely-typed bag such as a decoded
// JSON object. Only shapes and types are checked here, not values.
func FromMap(raw map[string]any) (*Notification, error) {
	if raw == nil {
		return nil, &DeserializationError{Reason: "JSON object is required for deserialization"}
	}

	var n Notification
	var err error

	if n.ID, err = toInt64(raw["id"]); err != nil {
		return nil, &DeserializationError{Reason: "id", Err: err}
	}
	if n.Source, err = toString(raw["source"]); err != nil {
		return nil, &DeserializationError{ID: n.ID, Reason: "source", Err: err}
	}
	if n.Message, err = toString(raw["message"]); err != nil {
		return nil, &DeserializationError{ID: n.ID, Reason: "message", Err: err}
	}
	p, err := toString(raw["priority"])
	if err != nil {
		return nil, &DeserializationError{ID: n.ID, Reason: "priority", Err: err}
	}
	n.Priority = Priority(p)
	s, err := toString(raw["status"])
	if err != nil {
		return nil, &DeserializationError{ID: n.ID, Reason: "status", Err: err}
	}
	n.Status = Status(s)
	if n.Channels, err = toChannels(raw["channels"]); err != nil {
		return nil, &DeserializationError{ID: n.ID, Reason: "channels", Err: err}
	}
	if n.SendAt, err = toTime(raw["sendAt"]); err != nil {
		return nil, &DeserializationError{ID: n.ID, Reason: "sendAt", Err: err}
	}
	received, err := toTime(raw["receivedAt"])
	if err != nil {
		return nil, &DeserializationError{ID: n.ID, Reason: "receivedAt", Err: err}
	}
	if received != nil {
		n.ReceivedAt = *received
	}

	n.Normalize()
	return &n, nil
}

// ---- helpers ----

func cloneChannels(in []Channel) []Channel {
	out := make([]Channel, len(in))
	copy(out, in)
	return out
}

func toInt64(v any) (int64, error) {
	switch x := v.(type) {
	case nil:
		return 0, nil
	case int:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case int64:
		return x, nil
	case float64:
		if x != math.Trunc(x) {
			return 0, fmt.Errorf("not an integer: %v", x)
		}
		return int64(x), nil
	case json.Number:
		return x.Int64()
	default:
		return 0, fmt.Errorf("unexpected type %T", v)
	}
}

func toString(v any) (string, error) {
	switch x := v.(type) {
	case nil:
		return "", nil
	case string:
		return x, nil
	case json.Number:
		return "", fmt.Errorf("unexpected number %s", x)
	case fmt.Stringer:
		return x.String(), nil
	default:
		return "", fmt.Errorf("unexpected type %T", v)
	}
}

func toChannels(v any) ([]Channel, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case []Channel:
		return cloneChannels(x), nil
	case []string:
		out := make([]Channel, len(x))
		for i, s := range x {
			out[i] = Channel(s)
		}
		return out, nil
	case []any:
		out := make([]Channel, len(x))
		for i, item := range x {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("channel %d: unexpected type %T", i, item)
			}
			out[i] = Channel(s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unexpected type %T", v)
	}
}

func toTime(v any) (*time.Time, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case time.Time:
		if x.IsZero() {
			return nil, nil
		}
		t := x.UTC()
		return &t, nil
	case *time.Time:
		if x == nil || x.IsZero() {
			return nil, nil
		}
		t := x.UTC()
		return &t, nil
	case string:
		if x == "" {
			return nil, nil
		}
		t, err := time.Parse(time.RFC3339Nano, x)
		if err != nil {
			return nil, err
		}
		t = t.UTC()
		return &t, nil
	default:
		return nil, fmt.Errorf("unexpected type %T", v)
	}
}
