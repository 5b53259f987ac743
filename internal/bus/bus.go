// Package bus implements the in-process change-notification bus. Every
// committed mutation to the market store or the user ledger publishes an
// Event; subscribers re-read state through the snapshot accessors and never
// receive mutation deltas.
package bus

import (
	"sync"
	"time"
)

// Topic identifies which slice of state changed.
type Topic string

const (
	TopicMarkets   Topic = "markets"
	TopicUser      Topic = "user"
	TopicComments  Topic = "comments"
	TopicWatchlist Topic = "watchlist"
)

// Event is a change notification. It carries no payload beyond the topic;
// listeners read fresh snapshots themselves.
type Event struct {
	Topic Topic     `json:"topic"`
	At    time.Time `json:"at"`
}

// Listener receives published events. Listeners are invoked synchronously in
// subscription order and must not block.
type Listener func(Event)

// Bus is a typed publish/subscribe hub mapping subscription handles to
// callbacks. It is safe for concurrent use; the simulator goroutine and
// request handlers publish through the same instance.
type Bus struct {
	mu        sync.RWMutex
	next      int
	listeners map[int]Listener

	// onFirst runs once, on the first Subscribe call. The app uses it to
	// start the price simulator lazily.
	onFirst     func()
	onFirstOnce sync.Once
}

// New creates an empty Bus.
func New() *Bus {
	return &Bus{listeners: make(map[int]Listener)}
}

// OnFirstSubscribe registers a hook invoked exactly once, on the next
// Subscribe call. Listeners registered before the hook is armed do not
// trigger it, which lets internal listeners attach without starting
// subscriber-gated work.
func (b *Bus) OnFirstSubscribe(fn func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onFirst = fn
}

// Subscribe registers a listener and returns its unsubscribe function.
// Unsubscribing twice is a no-op.
func (b *Bus) Subscribe(fn Listener) func() {
	b.mu.Lock()
	id := b.next
	b.next++
	b.listeners[id] = fn
	first := b.onFirst
	b.mu.Unlock()

	if first != nil {
		b.onFirstOnce.Do(first)
	}

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.listeners, id)
	}
}

// Publish delivers the event to every current listener.
func (b *Bus) Publish(ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}

	b.mu.RLock()
	fns := make([]Listener, 0, len(b.listeners))
	for _, fn := range b.listeners {
		fns = append(fns, fn)
	}
	b.mu.RUnlock()

	for _, fn := range fns {
		fn(ev)
	}
}

// Notify is shorthand for publishing a bare topic event stamped now.
func (b *Bus) Notify(topic Topic) {
	b.Publish(Event{Topic: topic, At: time.Now().UTC()})
}

// Len returns the number of active subscriptions.
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.listeners)
}
