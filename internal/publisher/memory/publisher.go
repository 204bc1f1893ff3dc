// Package memory records snapshot-created events in process, standing in
// for Pub/Sub in tests and local runs.
package memory

import (
	"context"
	"fmt"
	"sync"
)

// Publisher captures every published snapshot event for later inspection.
type Publisher struct {
	mu       sync.RWMutex
	messages []PublishedMessage
}

// PublishedMessage is one captured publish: the topic it targeted and the
// snapshot payload as handed to Publish.
type PublishedMessage struct {
	Topic   string
	Payload any
}

// New returns an empty in-process Publisher.
func New() *Publisher {
	return &Publisher{}
}

// Publish records the event and returns a synthetic message id.
func (p *Publisher) Publish(_ context.Context, topic string, payload any) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, PublishedMessage{Topic: topic, Payload: payload})
	return fmt.Sprintf("mem-msg-%d", len(p.messages)), nil
}

// Messages returns the captured events in publish order.
func (p *Publisher) Messages() []PublishedMessage {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]PublishedMessage, len(p.messages))
	copy(out, p.messages)
	return out
}
