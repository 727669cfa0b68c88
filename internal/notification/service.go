package notification

import (
	"sync"
	"time"
)

// Event is one owner-visible notice, e.g. a finished import or a campaign
// drafted by the birthday trigger.
type Event struct {
	Kind    string    `json:"kind"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// Feed keeps a bounded, per-owner list of recent events in memory. It is a
// convenience for the dashboard, not durable storage.
type Feed struct {
	mu     sync.Mutex
	events map[string][]Event
	limit  int
}

func NewFeed(limit int) *Feed {
	if limit <= 0 {
		limit = 50
	}
	return &Feed{
		events: make(map[string][]Event),
		limit:  limit,
	}
}

func (f *Feed) Publish(ownerID, kind, message string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	list := append(f.events[ownerID], Event{Kind: kind, Message: message, At: time.Now()})
	if len(list) > f.limit {
		list = list[len(list)-f.limit:]
	}
	f.events[ownerID] = list
}

func (f *Feed) Recent(ownerID string) []Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	list := f.events[ownerID]
	out := make([]Event, len(list))
	copy(out, list)
	return out
}

// Default is the process-wide feed shared by the services.
var Default = NewFeed(50)
