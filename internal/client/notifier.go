package client

import (
	"strconv"
	"sync"
	"time"
)

// DefaultNotifierCapacity bounds the stored history; the oldest events fall off.
const DefaultNotifierCapacity = 100

// DenialEvent records one blocked navigation or action.
type DenialEvent struct {
	ID                 string    `json:"id"`
	Path               string    `json:"path"`
	RequiredPermission string    `json:"requiredPermission"`
	Component          string    `json:"component,omitempty"`
	Description        string    `json:"description,omitempty"`
	Timestamp          time.Time `json:"timestamp"`
	Read               bool      `json:"read"`
}

// Notifier stores denial events newest first for a notification center.
type Notifier struct {
	mu       sync.Mutex
	events   []*DenialEvent
	current  *DenialEvent
	capacity int
	now      func() time.Time
}

func NewNotifier(now func() time.Time) *Notifier {
	if now == nil {
		now = time.Now
	}
	return &Notifier{capacity: DefaultNotifierCapacity, now: now}
}

// Record stores evt. An unread event with the same path and permission only
// gets its timestamp refreshed; otherwise evt is prepended with a fresh id.
// The stored event is returned.
func (n *Notifier) Record(evt DenialEvent) DenialEvent {
	n.mu.Lock()
	defer n.mu.Unlock()

	if evt.Timestamp.IsZero() {
		evt.Timestamp = n.now()
	}

	for _, e := range n.events {
		if !e.Read && e.Path == evt.Path && e.RequiredPermission == evt.RequiredPermission {
			e.Timestamp = evt.Timestamp
			n.current = e
			return *e
		}
	}

	stored := evt
	stored.ID = evt.RequiredPermission + "-" + strconv.FormatInt(evt.Timestamp.UnixMilli(), 10)
	stored.Read = false

	n.events = append([]*DenialEvent{&stored}, n.events...)
	if len(n.events) > n.capacity {
		n.events = n.events[:n.capacity]
	}
	n.current = &stored
	return stored
}

// MarkRead flags every event with id as read. Ids only carry millisecond
// precision, so denials of one permission on different paths can share one.
// It reports whether any was found.
func (n *Notifier) MarkRead(id string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()

	found := false
	for _, e := range n.events {
		if e.ID == id {
			e.Read = true
			found = true
		}
	}
	return found
}

func (n *Notifier) MarkAllRead() {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, e := range n.events {
		e.Read = true
	}
}

// ClearAll drops the history and the current event.
func (n *Notifier) ClearAll() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = nil
	n.current = nil
}

func (n *Notifier) UnreadCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()

	count := 0
	for _, e := range n.events {
		if !e.Read {
			count++
		}
	}
	return count
}

// List returns copies of the stored events, newest first.
func (n *Notifier) List() []DenialEvent {
	n.mu.Lock()
	defer n.mu.Unlock()

	out := make([]DenialEvent, 0, len(n.events))
	for _, e := range n.events {
		out = append(out, *e)
	}
	return out
}

// Current returns the most recently recorded event for transient display.
func (n *Notifier) Current() (DenialEvent, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.current == nil {
		return DenialEvent{}, false
	}
	return *n.current, true
}

// DismissCurrent hides the transient event without touching the history.
func (n *Notifier) DismissCurrent() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.current = nil
}
