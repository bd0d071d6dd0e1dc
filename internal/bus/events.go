// Package bus is a small in-process pub/sub used to announce session state
// changes, finished media jobs and config reloads.
package bus

import (
	"sync"
	"sync/atomic"
	"time"

	. "github.com/Deneth123456789/My-new-bot/internal/logging"
)

// Well-known topics
const (
	TopicSessionState  = "session.state"
	TopicMediaJobDone  = "media.job.done"
	TopicConfigApplied = "config.applied"
)

// Event is a notification delivered to every subscriber of its topic.
type Event struct {
	Topic     string
	Data      any
	Timestamp time.Time
	Source    string // "whatsapp", "media", "config", ...
}

// EventHandler processes an event. Handlers run in their own goroutine.
type EventHandler func(Event)

// SubscriptionID identifies one subscription.
type SubscriptionID uint64

type subscription struct {
	id      SubscriptionID
	handler EventHandler
}

// Bus routes events to subscribers. The zero value is not usable; use New.
type Bus struct {
	mu     sync.RWMutex
	subs   map[string][]subscription
	nextID uint64
	wg     sync.WaitGroup
}

// New creates an empty bus.
func New() *Bus {
	return &Bus{subs: make(map[string][]subscription)}
}

var defaultBus = New()

// Default returns the process-wide bus.
func Default() *Bus { return defaultBus }

// Subscribe registers handler for topic.
func (b *Bus) Subscribe(topic string, handler EventHandler) SubscriptionID {
	id := SubscriptionID(atomic.AddUint64(&b.nextID, 1))

	b.mu.Lock()
	b.subs[topic] = append(b.subs[topic], subscription{id: id, handler: handler})
	b.mu.Unlock()

	L_debug("bus: subscribed", "topic", topic, "id", id)
	return id
}

// Publish delivers data to every subscriber of topic asynchronously.
// A panicking handler is logged and does not affect the others.
func (b *Bus) Publish(topic, source string, data any) {
	event := Event{
		Topic:     topic,
		Data:      data,
		Timestamp: time.Now(),
		Source:    source,
	}

	b.mu.RLock()
	subs := append([]subscription(nil), b.subs[topic]...)
	b.mu.RUnlock()

	if len(subs) == 0 {
		L_trace("bus: no subscribers", "topic", topic)
		return
	}

	for _, sub := range subs {
		b.wg.Add(1)
		go func(s subscription) {
			defer b.wg.Done()
			defer func() {
				if r := recover(); r != nil {
					L_error("bus: handler panic", "topic", topic, "id", s.id, "panic", r)
				}
			}()
			s.handler(event)
		}(sub)
	}
}

// Wait blocks until every handler started so far has returned.
func (b *Bus) Wait() {
	b.wg.Wait()
}
