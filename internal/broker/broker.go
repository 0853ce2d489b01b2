// Package broker provides an in-memory pub/sub mechanism scoped by topic.
// The live coordinator publishes on it whenever the set of active sessions
// changes, and the lobby SSE stream subscribes to it.
package broker

import "sync"

// Broker is a topic-scoped pub/sub hub. Subscribers receive a signal (empty
// struct) whenever Publish is called for their topic. Channels are buffered
// to 1 so multiple rapid publishes coalesce into a single notification.
type Broker struct {
	mu   sync.Mutex
	subs map[string]map[chan struct{}]struct{}
}

// New creates a ready-to-use Broker.
func New() *Broker {
	return &Broker{
		subs: make(map[string]map[chan struct{}]struct{}),
	}
}

// Subscription is one subscriber's signal channel. Close it when done.
type Subscription struct {
	C <-chan struct{}

	b     *Broker
	topic string
	ch    chan struct{}
	once  sync.Once
}

// Subscribe registers a subscriber for topic.
func (b *Broker) Subscribe(topic string) *Subscription {
	ch := make(chan struct{}, 1)
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.subs[topic] == nil {
		b.subs[topic] = make(map[chan struct{}]struct{})
	}
	b.subs[topic][ch] = struct{}{}
	return &Subscription{C: ch, b: b, topic: topic, ch: ch}
}

// Close removes the subscription. The topic entry is dropped with its last
// subscriber. Safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.b.mu.Lock()
		defer s.b.mu.Unlock()
		if subs, ok := s.b.subs[s.topic]; ok {
			delete(subs, s.ch)
			if len(subs) == 0 {
				delete(s.b.subs, s.topic)
			}
		}
	})
}

// Publish sends a non-blocking signal to every subscriber of topic.
// Because channels are buffered to 1, a pending unread signal is not duplicated.
func (b *Broker) Publish(topic string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs[topic] {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Subscribers returns the number of subscribers for topic.
func (b *Broker) Subscribers(topic string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[topic])
}
