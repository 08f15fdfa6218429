// Package realtime turns database change notifications into per-client
// event streams. Events carry only the table and operation; clients refetch.
package realtime

import (
	"fmt"
	"strings"
	"sync"

	"github.com/opsdesk-api/internal/metrics"
)

// Channel is the LISTEN/NOTIFY channel written by the change triggers
const Channel = "table_changes"

// OpReload tells subscribers that events may have been missed
const OpReload = "RELOAD"

// Event is one change notification
type Event struct {
	Table     string `json:"table"`
	Operation string `json:"operation"`
}

// ParsePayload decodes a "table:OPERATION" notification payload
func ParsePayload(payload string) (Event, error) {
	parts := strings.SplitN(payload, ":", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return Event{}, fmt.Errorf("invalid change payload %q", payload)
	}
	return Event{Table: parts[0], Operation: strings.ToUpper(parts[1])}, nil
}

// Subscription receives events for a set of tables
type Subscription struct {
	C      <-chan Event
	ch     chan Event
	tables map[string]bool
}

func (s *Subscription) wants(ev Event) bool {
	return len(s.tables) == 0 || ev.Operation == OpReload || s.tables[ev.Table]
}

// Hub fans events out to subscribers. A subscriber that falls behind loses
// events instead of blocking the others.
type Hub struct {
	mu     sync.RWMutex
	subs   map[*Subscription]struct{}
	buffer int
}

// NewHub creates a hub whose subscriptions buffer up to buffer events
func NewHub(buffer int) *Hub {
	if buffer < 1 {
		buffer = 1
	}
	return &Hub{
		subs:   make(map[*Subscription]struct{}),
		buffer: buffer,
	}
}

// Subscribe registers interest in tables. No tables means every table.
func (h *Hub) Subscribe(tables []string) *Subscription {
	ch := make(chan Event, h.buffer)
	sub := &Subscription{C: ch, ch: ch, tables: make(map[string]bool, len(tables))}
	for _, t := range tables {
		if t = strings.TrimSpace(t); t != "" {
			sub.tables[t] = true
		}
	}

	h.mu.Lock()
	h.subs[sub] = struct{}{}
	h.mu.Unlock()
	metrics.RealtimeSubscribers.Inc()
	return sub
}

// Unsubscribe removes sub and closes its channel
func (h *Hub) Unsubscribe(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[sub]; !ok {
		return
	}
	delete(h.subs, sub)
	close(sub.ch)
	metrics.RealtimeSubscribers.Dec()
}

// Publish delivers ev to every interested subscriber without blocking.
// It returns the number of subscribers that received it.
func (h *Hub) Publish(ev Event) int {
	metrics.RealtimeEventsTotal.WithLabelValues(ev.Table).Inc()

	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for sub := range h.subs {
		if !sub.wants(ev) {
			continue
		}
		select {
		case sub.ch <- ev:
			delivered++
		default:
		}
	}
	return delivered
}

// Len returns the number of active subscriptions
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
