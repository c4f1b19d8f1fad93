// Package live re-evaluates reads when the collections they depend on change.
//
// Writers call Hub.Notify after their change is committed. Subscribers get a
// coalesced signal: at most one pending notice per subscription, since every
// re-evaluation reads current state anyway.
package live

import (
	"sync"
)

// TopicActiveWorkspace is notified when the active workspace changes, so
// queries scoped to it re-run.
const TopicActiveWorkspace = "active_workspace"

// Notifier is the write side of the hub, as seen by the store.
type Notifier interface {
	Notify(topics ...string)
}

// Change describes one notification.
type Change struct {
	Seq    uint64
	Topics []string
}

// Hub fans out change notifications to subscriptions.
type Hub struct {
	mu     sync.RWMutex
	subs   map[*Subscription]struct{}
	seq    uint64
	closed bool
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[*Subscription]struct{})}
}

// Subscription receives changes for the topics it registered. An empty topic
// set matches every change.
type Subscription struct {
	hub    *Hub
	topics map[string]bool
	ch     chan Change
	once   sync.Once
}

// Subscribe registers interest in topics. The caller must Close the
// subscription when done.
func (h *Hub) Subscribe(topics ...string) *Subscription {
	s := &Subscription{
		hub:    h,
		topics: make(map[string]bool, len(topics)),
		ch:     make(chan Change, 1),
	}
	for _, t := range topics {
		s.topics[t] = true
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(s.ch)
		s.once.Do(func() {})
		return s
	}
	h.subs[s] = struct{}{}
	return s
}

// C returns the notification channel. It is closed when the subscription or
// the hub is closed.
func (s *Subscription) C() <-chan Change {
	return s.ch
}

// Close unregisters the subscription. Safe to call more than once.
func (s *Subscription) Close() {
	s.hub.mu.Lock()
	defer s.hub.mu.Unlock()
	s.closeLocked()
}

func (s *Subscription) closeLocked() {
	s.once.Do(func() {
		delete(s.hub.subs, s)
		close(s.ch)
	})
}

func (s *Subscription) matches(topics []string) bool {
	if len(s.topics) == 0 {
		return true
	}
	for _, t := range topics {
		if s.topics[t] {
			return true
		}
	}
	return false
}

// Notify signals every subscription interested in any of topics. It never
// blocks: a subscription that already holds a pending notice keeps it.
func (h *Hub) Notify(topics ...string) {
	if len(topics) == 0 {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.seq++
	change := Change{Seq: h.seq, Topics: topics}
	for s := range h.subs {
		if !s.matches(topics) {
			continue
		}
		select {
		case s.ch <- change:
		default:
		}
	}
}

// Close shuts down the hub and all subscriptions.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for s := range h.subs {
		s.closeLocked()
	}
}
