package chat

import (
	"sync"
	"sync/atomic"
)

// DefaultTopicCapacity is the per-subscriber buffer size used when a topic
// is created without an explicit capacity.
const DefaultTopicCapacity = 1024

// Topic is a bounded multi-producer, multi-subscriber broadcast channel.
// Publish never blocks: when a subscriber's buffer is full, the oldest
// buffered event is discarded to admit the new one and the subscriber's drop
// counter is incremented. Slow consumers lose history and are told how much
// they lost; they never stall the publisher or the room.
type Topic struct {
	mu       sync.Mutex
	capacity int
	subs     map[*Subscription]struct{}
}

// Subscription is one consumer's handle on a Topic.
type Subscription struct {
	topic   *Topic
	events  chan ServerEvent
	dropped atomic.Uint64
	once    sync.Once
}

// NewTopic creates a topic whose subscribers each buffer up to capacity
// events. Non-positive capacities fall back to DefaultTopicCapacity.
func NewTopic(capacity int) *Topic {
	if capacity <= 0 {
		capacity = DefaultTopicCapacity
	}
	return &Topic{
		capacity: capacity,
		subs:     make(map[*Subscription]struct{}),
	}
}

// Subscribe registers a new consumer. Events published after this call are
// delivered to it; there is no replay of history.
func (t *Topic) Subscribe() *Subscription {
	sub := &Subscription{
		topic:  t,
		events: make(chan ServerEvent, t.capacity),
	}
	t.mu.Lock()
	t.subs[sub] = struct{}{}
	t.mu.Unlock()
	return sub
}

// Publish delivers ev to every current subscriber without ever blocking the
// caller. Subscribers whose buffers are full lose their oldest event.
func (t *Topic) Publish(ev ServerEvent) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for sub := range t.subs {
		select {
		case sub.events <- ev:
			continue
		default:
		}

		// Buffer full: evict the oldest event to make room. Publishers are
		// serialized by the topic lock, so the retry below can only race a
		// consumer draining the channel, which also makes room.
		select {
		case <-sub.events:
			sub.dropped.Add(1)
		default:
		}
		select {
		case sub.events <- ev:
		default:
			sub.dropped.Add(1)
		}
	}
}

// SubscriberCount returns the number of live subscriptions.
func (t *Topic) SubscriberCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.subs)
}

// Events returns the delivery channel. It is closed when the subscription
// is closed.
func (s *Subscription) Events() <-chan ServerEvent {
	return s.events
}

// TakeDropped returns how many events were discarded for this subscriber
// since the previous call, resetting the counter. Consumers surface this as
// a lag notification.
func (s *Subscription) TakeDropped() uint64 {
	return s.dropped.Swap(0)
}

// Close unsubscribes from the topic and closes the events channel. Safe to
// call more than once. Buffered but undelivered events are discarded.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.topic.mu.Lock()
		delete(s.topic.subs, s)
		s.topic.mu.Unlock()
		close(s.events)
	})
}
