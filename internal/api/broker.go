package api

import (
	"sync"
)

// Event types published per run.
const (
	EventProgress  = "run.progress"
	EventCompleted = "run.completed"
	EventFailed    = "run.failed"
)

type SSEEvent struct {
	Type string         `json:"type"`
	Data map[string]any `json:"data"`
}

// Terminal reports whether no further events follow evt for its run.
func (e SSEEvent) Terminal() bool { return e.Type == EventCompleted || e.Type == EventFailed }

type EventBroker interface {
	Subscribe(runID string) chan SSEEvent
	Unsubscribe(runID string, ch chan SSEEvent)
	Publish(runID string, evt SSEEvent)
}

// Broker fans events out to in-process subscribers. Slow subscribers miss
// progress events rather than block the solver; terminal events are always
// delivered.
type Broker struct {
	mu   sync.Mutex
	subs map[string]map[chan SSEEvent]struct{} // runId -> set of channels
}

func NewBroker() *Broker {
	return &Broker{subs: map[string]map[chan SSEEvent]struct{}{}}
}

func (b *Broker) Subscribe(runID string) chan SSEEvent {
	ch := make(chan SSEEvent, 64)
	b.mu.Lock()
	if b.subs[runID] == nil {
		b.subs[runID] = map[chan SSEEvent]struct{}{}
	}
	b.subs[runID][ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

func (b *Broker) Unsubscribe(runID string, ch chan SSEEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	m := b.subs[runID]
	if _, ok := m[ch]; !ok {
		return
	}
	delete(m, ch)
	if len(m) == 0 {
		delete(b.subs, runID)
	}
	close(ch)
}

func (b *Broker) Publish(runID string, evt SSEEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs[runID] {
		offer(ch, evt)
	}
}

// offer sends evt without blocking. When ch is full a terminal event evicts
// the oldest buffered event. Callers must be the only sender on ch.
func offer(ch chan SSEEvent, evt SSEEvent) {
	select {
	case ch <- evt:
		return
	default:
	}
	if !evt.Terminal() {
		return
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- evt:
	default:
	}
}
