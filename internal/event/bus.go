package event

import (
	"log"
	"runtime/debug"
	"strconv"
	"sync"
	"sync/atomic"
)

// Handler is a function that handles an event.
type Handler func(Event)

// Publisher is what the orchestrator needs from the bus.
type Publisher interface {
	Publish(Event)
}

// subscription represents a registered event handler.
type subscription struct {
	id      string
	status  Status
	handler Handler
}

const allStatuses Status = "*"

// Bus is a simple synchronous pub-sub event bus.
type Bus struct {
	mu            sync.RWMutex
	subscriptions map[Status][]subscription
	nextID        atomic.Uint64
}

// NewBus creates a new event bus.
func NewBus() *Bus {
	return &Bus{
		subscriptions: make(map[Status][]subscription),
	}
}

// Subscribe registers a handler for events of one status.
// Returns a subscription ID that can be used to unsubscribe.
func (b *Bus) Subscribe(status Status, handler Handler) string {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := "sub-" + strconv.FormatUint(b.nextID.Add(1), 10)
	b.subscriptions[status] = append(b.subscriptions[status], subscription{
		id:      id,
		status:  status,
		handler: handler,
	})
	return id
}

// SubscribeAll registers a handler for every event.
func (b *Bus) SubscribeAll(handler Handler) string {
	return b.Subscribe(allStatuses, handler)
}

// Unsubscribe removes a subscription by ID.
// Returns true if the subscription was found and removed.
func (b *Bus) Unsubscribe(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	for status, subs := range b.subscriptions {
		for i, sub := range subs {
			if sub.id == id {
				b.subscriptions[status] = append(subs[:i], subs[i+1:]...)
				return true
			}
		}
	}
	return false
}

// Publish dispatches an event to all registered handlers.
// Status-specific handlers are called first, then wildcard handlers, each
// group in registration order. A panicking handler is logged and skipped.
func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	specificSubs := make([]subscription, len(b.subscriptions[e.Status]))
	copy(specificSubs, b.subscriptions[e.Status])

	wildcardSubs := make([]subscription, len(b.subscriptions[allStatuses]))
	copy(wildcardSubs, b.subscriptions[allStatuses])
	b.mu.RUnlock()

	for _, sub := range specificSubs {
		b.safeCall(sub.handler, e)
	}
	for _, sub := range wildcardSubs {
		b.safeCall(sub.handler, e)
	}
}

// safeCall invokes a handler and recovers from any panics.
func (b *Bus) safeCall(handler Handler, e Event) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("ERROR: event handler panicked for %s event: %v\n%s",
				e.Status, r, debug.Stack())
		}
	}()
	handler(e)
}

// SubscriptionCount returns the total number of active subscriptions.
func (b *Bus) SubscriptionCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	count := 0
	for _, subs := range b.subscriptions {
		count += len(subs)
	}
	return count
}
