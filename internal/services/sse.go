package services

import (
	"sync"
	"time"
)

const (
	EventReportSubmitted    = "report.submitted"
	EventAssistantCompleted = "assistant.completed"
	EventAssistantFailed    = "assistant.failed"
	EventDigestGenerated    = "digest.generated"
)

const sseClientBuffer = 100

// Event is one real-time notification pushed to dashboard clients.
type Event struct {
	Type string      `json:"type"`
	Time time.Time   `json:"time"`
	Data interface{} `json:"data,omitempty"`
}

// EventPublisher is what producers of events depend on.
type EventPublisher interface {
	Publish(event Event)
}

// SSEHub fans events out to connected clients. Each client has a bounded
// buffer; events are dropped for clients that fall behind.
type SSEHub struct {
	clients map[string]chan Event
	mu      sync.RWMutex
}

func NewSSEHub() *SSEHub {
	return &SSEHub{
		clients: make(map[string]chan Event),
	}
}

func (h *SSEHub) Subscribe(clientID string) <-chan Event {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan Event, sseClientBuffer)
	h.clients[clientID] = ch
	return ch
}

func (h *SSEHub) Unsubscribe(clientID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if ch, ok := h.clients[clientID]; ok {
		close(ch)
		delete(h.clients, clientID)
	}
}

// Publish never blocks.
func (h *SSEHub) Publish(event Event) {
	if event.Time.IsZero() {
		event.Time = time.Now().UTC()
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, ch := range h.clients {
		select {
		case ch <- event:
		default:
		}
	}
}

func (h *SSEHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

type nopPublisher struct{}

func (nopPublisher) Publish(Event) {}
