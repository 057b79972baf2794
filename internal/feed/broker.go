// Package feed is the in-process realtime change feed: every message inserted
// through the service layer is published to all subscribers. The feed is
// table-wide by design; thread sessions filter it down to their own
// conversation client-side.
package feed

import (
	"log"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/djassa/djassa-backend/internal/domain"
)

const subscriberBufSize = 64

var (
	eventsPublished = promauto.NewCounter(prometheus.CounterOpts{
		Name: "djassa_feed_events_published_total",
		Help: "Message insert events published to the feed.",
	})
	eventsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "djassa_feed_events_dropped_total",
		Help: "Feed events dropped because a subscriber buffer was full.",
	})
)

// Broker fans message insert events out to subscribers. Publish never blocks:
// a subscriber whose buffer is full misses the event (it will pick the message
// up on its next history fetch).
type Broker struct {
	mu     sync.Mutex
	subs   map[int]chan domain.Message
	nextID int
}

func NewBroker() *Broker {
	return &Broker{subs: make(map[int]chan domain.Message)}
}

// Subscribe registers a new subscriber and returns its event channel along
// with an unsubscribe function. The channel is closed on unsubscribe.
func (b *Broker) Subscribe() (<-chan domain.Message, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan domain.Message, subscriberBufSize)
	b.subs[id] = ch

	unsubscribe := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sub, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(sub)
		}
	}
	return ch, unsubscribe
}

// Publish delivers an insert event to every subscriber.
func (b *Broker) Publish(msg domain.Message) {
	b.mu.Lock()
	defer b.mu.Unlock()

	eventsPublished.Inc()
	for id, ch := range b.subs {
		select {
		case ch <- msg:
		default:
			eventsDropped.Inc()
			log.Printf("feed: subscriber %d buffer full, dropping event %s", id, msg.ID)
		}
	}
}

// Subscribers returns the current subscriber count.
func (b *Broker) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
