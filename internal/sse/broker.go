// Package sse streams virtual file changes to HTTP clients as Server-Sent Events.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"
)

// fileKinds are the change kinds forwarded as file.<kind> events.
var fileKinds = map[string]bool{
	"created":     true,
	"updated":     true,
	"appended":    true,
	"renamed":     true,
	"deleted":     true,
	"reorganized": true,
	"restored":    true,
}

// clientBuffer is the number of frames a slow client may lag behind before
// it starts missing events.
const clientBuffer = 64

// Broker fans file changes out to subscribed clients. Each frame carries an
// id that increases in publish order, so clients can detect gaps.
type Broker struct {
	storeMin time.Duration

	mu        sync.Mutex
	clients   map[chan []byte]struct{}
	seq       uint64
	lastStore time.Time
	closed    bool
}

// NewBroker creates a new SSE broker. storeThrottle is the minimum gap
// between two store.updated events.
func NewBroker(storeThrottle time.Duration) *Broker {
	if storeThrottle <= 0 {
		storeThrottle = 2 * time.Second
	}
	return &Broker{
		storeMin: storeThrottle,
		clients:  make(map[chan []byte]struct{}),
	}
}

// Subscribe adds a new client and returns its channel. After Close the
// returned channel is already closed.
func (b *Broker) Subscribe() chan []byte {
	ch := make(chan []byte, clientBuffer)
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(ch)
		return ch
	}
	b.clients[ch] = struct{}{}
	return ch
}

// Unsubscribe removes a client and closes its channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.clients[ch]; ok {
		delete(b.clients, ch)
		close(ch)
	}
}

// ClientCount returns the number of connected clients.
func (b *Broker) ClientCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.clients)
}

// Close disconnects every client. Later publishes are dropped.
func (b *Broker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for ch := range b.clients {
		delete(b.clients, ch)
		close(ch)
	}
}

// PublishFileEvent publishes a file change and a throttled store.updated
// event. Its signature matches fileservice.EventCallback; it never blocks on
// slow clients.
func (b *Broker) PublishFileEvent(kind, name string) {
	if !fileKinds[kind] {
		return
	}
	data, err := json.Marshal(map[string]string{"name": name})
	if err != nil {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.send("file."+kind, data)

	now := time.Now()
	if now.Sub(b.lastStore) >= b.storeMin {
		b.lastStore = now
		b.send("store.updated", []byte("{}"))
	}
}

// send must be called with b.mu held. A client whose buffer is full misses
// the frame.
func (b *Broker) send(event string, data []byte) {
	b.seq++
	frame := fmt.Appendf(nil, "id: %d\nevent: %s\ndata: %s\n\n", b.seq, event, data)
	for ch := range b.clients {
		select {
		case ch <- frame:
		default:
		}
	}
}

// ServeHTTP is the SSE endpoint handler (GET /api/events).
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	for {
		select {
		case <-r.Context().Done():
			return
		case frame, ok := <-ch:
			if !ok {
				return
			}
			if _, err := w.Write(frame); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
