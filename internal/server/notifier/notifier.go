// Package notifier fans state change notifications out to SSE clients.
package notifier

import (
	"sort"
	"sync"
)

// Subscription receives pings when one of the topics changed. Pings
// coalesce: a slow listener sees one ping and drains every topic changed
// since its last Drain.
type Subscription struct {
	c chan struct{}

	mu      sync.Mutex
	pending map[string]struct{}
}

// C returns the ping channel. It is closed by Unsubscribe.
func (s *Subscription) C() <-chan struct{} {
	return s.c
}

// Drain returns the topics changed since the last call, sorted.
func (s *Subscription) Drain() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	topics := make([]string, 0, len(s.pending))
	for t := range s.pending {
		topics = append(topics, t)
	}
	clear(s.pending)
	sort.Strings(topics)
	return topics
}

func (s *Subscription) mark(topic string) {
	s.mu.Lock()
	s.pending[topic] = struct{}{}
	s.mu.Unlock()
	select {
	case s.c <- struct{}{}:
	default:
		// already pinged; the topic is picked up by the pending Drain
	}
}

// Notifier broadcasts topic changes to all subscriptions.
type Notifier struct {
	mu   sync.RWMutex
	subs map[*Subscription]struct{}
}

// New creates a new Notifier instance.
func New() *Notifier {
	return &Notifier{subs: make(map[*Subscription]struct{})}
}

// Subscribe registers a listener. The caller must call Unsubscribe when
// done.
func (n *Notifier) Subscribe() *Subscription {
	s := &Subscription{c: make(chan struct{}, 1), pending: make(map[string]struct{})}
	n.mu.Lock()
	n.subs[s] = struct{}{}
	n.mu.Unlock()
	return s
}

// Unsubscribe removes a listener and closes its channel.
func (n *Notifier) Unsubscribe(s *Subscription) {
	n.mu.Lock()
	_, ok := n.subs[s]
	delete(n.subs, s)
	n.mu.Unlock()
	if ok {
		close(s.c)
	}
}

// Broadcast marks topic changed for every listener. It never blocks.
func (n *Notifier) Broadcast(topic string) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	for s := range n.subs {
		s.mark(topic)
	}
}

// Len returns the number of listeners.
func (n *Notifier) Len() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.subs)
}
