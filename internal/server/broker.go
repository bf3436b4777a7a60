package server

import (
	"encoding/json"
	"sync"
)

// SSEEvent is one message on a run's event stream. Name becomes the SSE
// event field and Data is sent JSON-encoded.
type SSEEvent struct {
	Name string
	Data any
}

type sseMessage struct {
	name string
	data []byte
}

// Broker is an in-process pub/sub for SSE events, keyed by run ID.
type Broker struct {
	mu   sync.RWMutex
	subs map[string]map[chan sseMessage]struct{}
}

func NewBroker() *Broker {
	return &Broker{
		subs: make(map[string]map[chan sseMessage]struct{}),
	}
}

// Subscribe returns a channel that receives the run's events.
func (b *Broker) Subscribe(runID string) chan sseMessage {
	ch := make(chan sseMessage, 16)
	b.mu.Lock()
	if b.subs[runID] == nil {
		b.subs[runID] = make(map[chan sseMessage]struct{})
	}
	b.subs[runID][ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

func (b *Broker) Unsubscribe(runID string, ch chan sseMessage) {
	b.mu.Lock()
	delete(b.subs[runID], ch)
	if len(b.subs[runID]) == 0 {
		delete(b.subs, runID)
	}
	b.mu.Unlock()
}

// Subscribers reports how many streams follow the run.
func (b *Broker) Subscribers(runID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[runID])
}

// Publish sends an event to all subscribers of the given run.
func (b *Broker) Publish(runID string, event SSEEvent) {
	data, err := json.Marshal(event.Data)
	if err != nil {
		return
	}
	msg := sseMessage{name: event.Name, data: data}
	b.mu.RLock()
	for ch := range b.subs[runID] {
		select {
		case ch <- msg:
		default:
			// Drop if subscriber is slow.
		}
	}
	b.mu.RUnlock()
}
