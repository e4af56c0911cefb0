package server

import (
	"context"
	"sync"
	"time"
)

const (
	// EventDocumentChanged is emitted after every committed mutation so other
	// tabs of the same client can refresh their view.
	EventDocumentChanged = "document-change"
	eventHeartbeat       = "heartbeat"
	eventSource          = "bound-backend"
)

// ChangeEvent carries one committed mutation to stream subscribers.
type ChangeEvent struct {
	EventType string
	Scope     string
	EntityIDs []string
	Timestamp time.Time
}

// ChangeDispatcher fans committed-mutation events out to every subscribed
// stream. Slow subscribers drop events instead of blocking the publisher.
type ChangeDispatcher struct {
	mu          sync.RWMutex
	subscribers map[int64]*changeSubscriber
	nextID      int64
	bufferSize  int
}

type changeSubscriber struct {
	id     int64
	stream chan ChangeEvent
}

func NewChangeDispatcher() *ChangeDispatcher {
	return &ChangeDispatcher{
		subscribers: make(map[int64]*changeSubscriber),
		bufferSize:  16,
	}
}

// Subscribe registers a stream that receives events until the context ends
// or the returned cleanup runs.
func (d *ChangeDispatcher) Subscribe(ctx context.Context) (<-chan ChangeEvent, func()) {
	subscriber := &changeSubscriber{
		id:     d.nextSequence(),
		stream: make(chan ChangeEvent, d.bufferSize),
	}
	d.registerSubscriber(subscriber)
	cleanup := func() {
		d.unregisterSubscriber(subscriber.id)
	}
	go func() {
		<-ctx.Done()
		cleanup()
	}()
	return subscriber.stream, cleanup
}

// Publish delivers an event to every subscriber that has buffer room.
func (d *ChangeDispatcher) Publish(event ChangeEvent) {
	if event.EventType == "" {
		return
	}
	d.mu.RLock()
	copies := make([]*changeSubscriber, 0, len(d.subscribers))
	for _, subscriber := range d.subscribers {
		copies = append(copies, subscriber)
	}
	d.mu.RUnlock()
	for _, subscriber := range copies {
		select {
		case subscriber.stream <- event:
		default:
		}
	}
}

func (d *ChangeDispatcher) nextSequence() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextID++
	return d.nextID
}

func (d *ChangeDispatcher) registerSubscriber(subscriber *changeSubscriber) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.subscribers[subscriber.id] = subscriber
}

func (d *ChangeDispatcher) unregisterSubscriber(subscriberID int64) {
	d.mu.Lock()
	delete(d.subscribers, subscriberID)
	d.mu.Unlock()
}
