// Package sse implements a Server-Sent Events broker that streams organizer
// status to connected UI clients.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"
)

// Event represents an SSE event to broadcast.
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Event types published by the broker.
const (
	TypeFileMoved        = "file.moved"
	TypeFileFailed       = "file.failed"
	TypeCycleFailed      = "cycle.failed"
	TypeOrganizerStarted = "organizer.started"
	TypeOrganizerStopped = "organizer.stopped"
	TypeRulesChanged     = "rules.changed"
	TypeActivityUpdated  = "activity.updated"
)

// MoveEvent is the payload of file.moved and file.failed events.
type MoveEvent struct {
	Name    string `json:"name"`
	Folder  string `json:"folder"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

const clientBuffer = 64

// Broker fans organizer events out to SSE clients.
//
// A single goroutine owns the client set, the activity throttle and the
// last organizer state. A client that connects mid-run receives that state
// right away. Clients whose buffer is full miss events instead of stalling
// the organizer.
type Broker struct {
	activityMin time.Duration

	events chan Event
	join   chan chan []byte
	leave  chan chan []byte
	count  chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker creates a new SSE broker. activity.updated is emitted at most
// once per activityThrottle.
func NewBroker(activityThrottle time.Duration) *Broker {
	if activityThrottle <= 0 {
		activityThrottle = 2 * time.Second
	}

	b := &Broker{
		activityMin: activityThrottle,
		events:      make(chan Event, 256),
		join:        make(chan chan []byte),
		leave:       make(chan chan []byte),
		count:       make(chan chan int),
		stopCh:      make(chan struct{}),
		stopped:     make(chan struct{}),
	}

	go b.run()
	return b
}

func encode(event Event) ([]byte, bool) {
	payload, err := json.Marshal(event.Data)
	if err != nil {
		return nil, false
	}
	return fmt.Appendf(nil, "event: %s\ndata: %s\n\n", event.Type, payload), true
}

func (b *Broker) run() {
	defer close(b.stopped)

	clients := make(map[chan []byte]struct{})
	var (
		lastActivity time.Time
		state        []byte
	)

	send := func(msg []byte) {
		for ch := range clients {
			select {
			case ch <- msg:
			default:
			}
		}
	}

	for {
		select {
		case <-b.stopCh:
			for ch := range clients {
				close(ch)
			}
			return

		case ch := <-b.join:
			clients[ch] = struct{}{}
			if state != nil {
				ch <- state
			}

		case ch := <-b.leave:
			if _, ok := clients[ch]; ok {
				delete(clients, ch)
				close(ch)
			}

		case resp := <-b.count:
			resp <- len(clients)

		case event := <-b.events:
			msg, ok := encode(event)
			if !ok {
				continue
			}
			send(msg)

			switch event.Type {
			case TypeOrganizerStarted, TypeOrganizerStopped:
				state = msg
			case TypeFileMoved, TypeFileFailed:
				if now := time.Now(); now.Sub(lastActivity) >= b.activityMin {
					lastActivity = now
					if activity, ok := encode(Event{Type: TypeActivityUpdated, Data: struct{}{}}); ok {
						send(activity)
					}
				}
			}
		}
	}
}

// Close stops the broker and closes every client channel.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe adds a client. The returned channel is closed by Unsubscribe
// or Close.
func (b *Broker) Subscribe() chan []byte {
	ch := make(chan []byte, clientBuffer)
	if b.closed.Load() {
		close(ch)
		return ch
	}
	select {
	case b.join <- ch:
	case <-b.stopped:
		close(ch)
	}
	return ch
}

// Unsubscribe removes a client and closes its channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	if b.closed.Load() {
		return
	}
	select {
	case b.leave <- ch:
	case <-b.stopped:
	}
}

// ClientCount returns the number of connected clients.
func (b *Broker) ClientCount() int {
	if b.closed.Load() {
		return 0
	}
	resp := make(chan int, 1)
	select {
	case b.count <- resp:
		return <-resp
	case <-b.stopped:
		return 0
	}
}

// Publish sends an event to all connected clients.
func (b *Broker) Publish(event Event) {
	if b.closed.Load() {
		return
	}
	select {
	case b.events <- event:
	case <-b.stopped:
	}
}

// PublishMove publishes file.moved, or file.failed when failed is set.
// Either one may be followed by a throttled activity.updated.
func (b *Broker) PublishMove(ev MoveEvent, failed bool) {
	typ := TypeFileMoved
	if failed {
		typ = TypeFileFailed
	}
	b.Publish(Event{Type: typ, Data: ev})
}

// ServeHTTP is the SSE endpoint handler (GET /api/events). Each client is
// greeted with a hello event, then receives the organizer state if one is
// known.
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	_, _ = w.Write([]byte("event: hello\ndata: {}\n\n"))
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}
