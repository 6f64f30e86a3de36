package observer

import (
	"context"
	"sync"

	"go-image-grader/pkg/models"
)

const defaultClientBuffer = 16

// Broadcaster fans state events out to streaming clients (SSE, WebSocket)
// of the session they belong to. A client that does not keep up loses
// events instead of blocking the publisher.
type Broadcaster struct {
	mu      sync.RWMutex
	clients map[string]map[chan models.StateResponse]struct{}
	buffer  int
}

// NewBroadcaster creates a broadcaster with per-client buffers of size buffer.
func NewBroadcaster(buffer int) *Broadcaster {
	if buffer <= 0 {
		buffer = defaultClientBuffer
	}
	return &Broadcaster{
		clients: make(map[string]map[chan models.StateResponse]struct{}),
		buffer:  buffer,
	}
}

// Subscribe registers a client for sessionID. The returned cancel function
// unregisters it and closes the channel.
func (b *Broadcaster) Subscribe(sessionID string) (<-chan models.StateResponse, func()) {
	ch := make(chan models.StateResponse, b.buffer)

	b.mu.Lock()
	if b.clients[sessionID] == nil {
		b.clients[sessionID] = make(map[chan models.StateResponse]struct{})
	}
	b.clients[sessionID][ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if set, ok := b.clients[sessionID]; ok {
				delete(set, ch)
				if len(set) == 0 {
					delete(b.clients, sessionID)
				}
			}
			close(ch)
		})
	}
	return ch, cancel
}

// ClientCount returns the number of clients listening on sessionID.
func (b *Broadcaster) ClientCount(sessionID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients[sessionID])
}

// OnEvent forwards the event's state to every client of its session.
func (b *Broadcaster) OnEvent(ctx context.Context, event StateEvent) {
	if event.EventType == SubmitRejected {
		return
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	for ch := range b.clients[event.SessionID] {
		select {
		case ch <- event.State:
		default:
		}
	}
}

// GetObserverName returns the observer name
func (b *Broadcaster) GetObserverName() string {
	return "broadcaster"
}
