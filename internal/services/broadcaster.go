package services

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// SubscriberConn is the minimal surface the broadcaster needs from a viewer
// connection. Implementations must serialize their own writes.
type SubscriberConn interface {
	WriteJSON(v any) error
}

// Broadcaster fans transcript events out to subscribed viewers. Delivery is
// best-effort and at-most-once per live subscriber per event; a failed write
// evicts only that subscriber.
type Broadcaster interface {
	Subscribe(conn SubscriberConn)
	Unsubscribe(conn SubscriberConn)
	Publish(event any)
	SubscriberCount() int
}

type broadcaster struct {
	mu   sync.Mutex
	subs map[SubscriberConn]struct{}
	log  *logrus.Logger
}

func NewBroadcaster(log *logrus.Logger) Broadcaster {
	return &broadcaster{
		subs: make(map[SubscriberConn]struct{}),
		log:  log,
	}
}

func (b *broadcaster) Subscribe(conn SubscriberConn) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[conn] = struct{}{}
}

func (b *broadcaster) Unsubscribe(conn SubscriberConn) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subs, conn)
}

func (b *broadcaster) Publish(event any) {
	b.mu.Lock()
	targets := make([]SubscriberConn, 0, len(b.subs))
	for conn := range b.subs {
		targets = append(targets, conn)
	}
	b.mu.Unlock()

	for _, conn := range targets {
		if err := conn.WriteJSON(event); err != nil {
			b.log.WithError(err).Warn("viewer delivery failed, unsubscribing")
			b.Unsubscribe(conn)
		}
	}
}

func (b *broadcaster) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
