package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// MaxScheduleAhead is how far in the future a notification may be scheduled.
const MaxScheduleAhead = 30 * 24 * time.Hour

// DefaultSources is the allow-list of notification origins used when the
// configuration does not override it.
var DefaultSources = []string{"telegramBot", "discountsScr", "urgentExternal", "newRoute", "backup_script"}

// Rules carries the configurable parts of request validation.
// An empty AllowedSources list accepts any non-empty source.
type Rules struct {
	AllowedSources []string
}

// CreateNotificationRequest is the inbound payload for POST /notifications.
type CreateNotificationRequest struct {
	Source   string     `json:"source"`
	Priority Priority   `json:"priority,omitempty"`
	Message  string     `json:"message"`
	Channels []Channel  `json:"channels"`
	SendAt   *time.Time `json:"sendAt,omitempty"`
}

func (r *CreateNotificationRequest) Validate(rules Rules, now time.Time) error {
	if r.Source == "" {
		return requiredField("source")
	}
	if err := rules.checkSource(r.Source); err != nil {
		return err
	}
	if r.Message == "" {
		return requiredField("message")
	}
	if r.Channels == nil {
		return requiredField("channels")
	}
	if err := checkChannels(r.Channels); err != nil {
		return err
	}
	if r.Priority != "" && !r.Priority.IsValid() {
		return invalidValue("priority", string(r.Priority), []string{"low", "medium", "high"})
	}
	if r.SendAt != nil {
		return checkSendAt(*r.SendAt, now)
	}
	return nil
}

// Notification builds the entity to persist from a validated request.
func (r *CreateNotificationRequest) Notification(now time.Time) *Notification {
	n := &Notification{
		Source:     r.Source,
		Priority:   r.Priority,
		Message:    r.Message,
		Channels:   r.Channels,
		ReceivedAt: now,
		SendAt:     r.SendAt,
		Status:     StatusReceived,
	}
	if n.SendAt != nil {
		n.Status = StatusAwaitingDelivery
	}
	n.Normalize()
	return n
}

// UpdateNotificationRequest is the inbound payload for PATCH /notifications/{id}.
// Nil fields are left untouched.
type UpdateNotificationRequest struct {
	Source   *string    `json:"source,omitempty"`
	Priority *Priority  `json:"priority,omitempty"`
	Message  *string    `json:"message,omitempty"`
	Channels []Channel  `json:"channels,omitempty"`
	SendAt   *time.Time `json:"sendAt,omitempty"`
}

func (r *UpdateNotificationRequest) IsEmpty() bool {
	return r.Source == nil && r.Priority == nil && r.Message == nil && r.Channels == nil && r.SendAt == nil
}

func (r *UpdateNotificationRequest) Validate(rules Rules, now time.Time) error {
	if r.IsEmpty() {
		return &ValidationError{
			Detail: "PATCH body must contain at least one updatable field",
			Public: "Invalid request payload",
		}
	}
	if r.Source != nil {
		if *r.Source == "" {
			return requiredField("source")
		}
		if err := rules.checkSource(*r.Source); err != nil {
			return err
		}
	}
	if r.Message != nil && *r.Message == "" {
		return requiredField("message")
	}
	if r.Channels != nil {
		if err := checkChannels(r.Channels); err != nil {
			return err
		}
	}
	if r.Priority != nil && !r.Priority.IsValid() {
		return invalidValue("priority", string(*r.Priority), []string{"low", "medium", "high"})
	}
	if r.SendAt != nil {
		return checkSendAt(*r.SendAt, now)
	}
	return nil
}

// Apply merges the present fields into n.
func (r *UpdateNotificationRequest) Apply(n *Notification) {
	if r.Source != nil {
		n.Source = *r.Source
	}
	if r.Priority != nil {
		n.Priority = *r.Priority
	}
	if r.Message != nil {
		n.Message = *r.Message
	}
	if r.Channels != nil {
		n.Channels = cloneChannels(r.Channels)
	}
	if r.SendAt != nil {
		t := r.SendAt.UTC()
		n.SendAt = &t
	}
}

// ParseID validates an id path parameter.
func ParseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, &ValidationError{
			Field:  "id",
			Detail: fmt.Sprintf("id must be an integer. Got: '%s'", raw),
			Public: "Invalid format",
		}
	}
	if id < 1 {
		return 0, &ValidationError{
			Field:  "id",
			Detail: fmt.Sprintf("id must be greater than 0. Got: '%s'", raw),
			Public: "Invalid value",
		}
	}
	return id, nil
}

// ---- helpers ----

func (r Rules) checkSource(source string) error {
	if len(r.AllowedSources) == 0 {
		return nil
	}
	for _, s := range r.AllowedSources {
		if s == source {
			return nil
		}
	}
	return invalidValue("source", source, r.AllowedSources)
}

func checkChannels(channels []Channel) error {
	if len(channels) == 0 {
		return &ValidationError{
			Field:  "channels",
			Detail: "array must contain at least 1 item",
			Public: "Invalid value",
		}
	}
	seen := make(map[Channel]struct{}, len(channels))
	for _, ch := range channels {
		if !ch.IsValid() {
			names := make([]string, len(AllChannels))
			for i, c := range AllChannels {
				names[i] = string(c)
			}
			return invalidValue("channels", string(ch), names)
		}
		if _, dup := seen[ch]; dup {
			return &ValidationError{
				Field:  "channels",
				Detail: fmt.Sprintf("duplicate values not allowed, value: %q", ch),
				Public: "Duplicate values not allowed",
			}
		}
		seen[ch] = struct{}{}
	}
	return nil
}

func checkSendAt(sendAt, now time.Time) error {
	if !sendAt.After(now) {
		return &ValidationError{Field: "sendAt", Detail: "date must be in the future", Public: "Invalid date"}
	}
	if sendAt.After(now.Add(MaxScheduleAhead)) {
		return &ValidationError{
			Field:  "sendAt",
			Detail: fmt.Sprintf("date cannot be more than %d days in the future", int(MaxScheduleAhead/(24*time.Hour))),
			Public: "Invalid date",
		}
	}
	return nil
}

func requiredField(field string) error {
	return &ValidationError{Field: field, Detail: field + " field is required", Public: "Required field missing"}
}

func invalidValue(field, value string, allowed []string) error {
	return &ValidationError{
		Field:  field,
		Detail: fmt.Sprintf("%q is invalid value. Allowed values are: %s", value, strings.Join(allowed, ", ")),
		Public: "Invalid value",
	}
}
