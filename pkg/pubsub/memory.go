package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// MemoryPubSub implements PubSub with in-process channels. It is used
// for single-node deployments and in tests. Published events go through
// a JSON round trip so subscribers observe exactly the wire encoding.
type MemoryPubSub struct {
	mu     sync.RWMutex
	subs   map[string][]*memorySubscription
	closed bool
}

// NewMemoryPubSub creates an in-process PubSub instance.
func NewMemoryPubSub() *MemoryPubSub {
	return &MemoryPubSub{
		subs: make(map[string][]*memorySubscription),
	}
}

// Publish delivers an event to every current subscriber of the channel.
func (m *MemoryPubSub) Publish(ctx context.Context, channel string, event *Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	m.mu.RLock()
	subs := append([]*memorySubscription(nil), m.subs[channel]...)
	m.mu.RUnlock()

	for _, sub := range subs {
		var decoded Event
		if err := json.Unmarshal(data, &decoded); err != nil {
			continue
		}
		sub.deliver(&decoded)
	}
	return nil
}

// Subscribe opens an independent subscription to a channel.
func (m *MemoryPubSub) Subscribe(ctx context.Context, channel string) (Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, fmt.Errorf("pubsub is closed")
	}

	sub := &memorySubscription{
		parent:  m,
		channel: channel,
		events:  make(chan *Event, 100),
	}
	m.subs[channel] = append(m.subs[channel], sub)
	return sub, nil
}

// Close closes all subscriptions.
func (m *MemoryPubSub) Close() error {
	m.mu.Lock()
	m.closed = true
	var all []*memorySubscription
	for _, subs := range m.subs {
		all = append(all, subs...)
	}
	m.subs = make(map[string][]*memorySubscription)
	m.mu.Unlock()

	for _, sub := range all {
		sub.closeChan()
	}
	return nil
}

func (m *MemoryPubSub) remove(sub *memorySubscription) {
	m.mu.Lock()
	defer m.mu.Unlock()

	subs := m.subs[sub.channel]
	for i, s := range subs {
		if s == sub {
			m.subs[sub.channel] = append(subs[:i], subs[i+1:]...)
			break
		}
	}
	if len(m.subs[sub.channel]) == 0 {
		delete(m.subs, sub.channel)
	}
}

type memorySubscription struct {
	parent  *MemoryPubSub
	channel string

	// mu serializes delivery against close so a publisher can never
	// send on the closed events channel.
	mu     sync.Mutex
	events chan *Event
	closed bool
}

func (s *memorySubscription) Events() <-chan *Event {
	return s.events
}

func (s *memorySubscription) Close() error {
	s.parent.remove(s)
	s.closeChan()
	return nil
}

func (s *memorySubscription) deliver(event *Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	select {
	case s.events <- event:
	default:
		// Subscriber is not keeping up, drop the event.
	}
}

func (s *memorySubscription) closeChan() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	close(s.events)
}
