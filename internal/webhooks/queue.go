package webhooks

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Delivery statuses.
const (
	StatusPending   = "pending"
	StatusDelivered = "delivered"
	StatusFailed    = "failed"
)

type Delivery struct {
	ID            string
	EventType     string
	URL           string
	Secret        string
	Payload       []byte
	Status        string
	Attempts      int
	NextAttemptAt time.Time
	LastError     string
	ResponseCode  int
	LatencyMs     int
}

// DeliveryQueue is the state the Worker drains.
type DeliveryQueue interface {
	Enqueue(ctx context.Context, eventType, url, secret string, payload []byte) (string, error)
	FetchDue(ctx context.Context, now time.Time, limit int) ([]Delivery, error)
	Mark(ctx context.Context, id string, success bool, nextAttemptAt time.Time, lastError string, responseCode, latencyMs int) error
	Fail(ctx context.Context, id string, lastError string, responseCode, latencyMs int) error
}

// MemoryQueue keeps deliveries in process. Deliveries are lost on restart.
type MemoryQueue struct {
	mu    sync.Mutex
	items map[string]*Delivery
}

func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{items: map[string]*Delivery{}}
}

func (q *MemoryQueue) Enqueue(ctx context.Context, eventType, url, secret string, payload []byte) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	id := uuid.New().String()
	q.items[id] = &Delivery{
		ID:            id,
		EventType:     eventType,
		URL:           url,
		Secret:        secret,
		Payload:       append([]byte(nil), payload...),
		Status:        StatusPending,
		NextAttemptAt: time.Now(),
	}
	return id, nil
}

func (q *MemoryQueue) FetchDue(ctx context.Context, now time.Time, limit int) ([]Delivery, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := []Delivery{}
	for _, d := range q.items {
		if d.Status == StatusPending && !d.NextAttemptAt.After(now) {
			out = append(out, *d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NextAttemptAt.Before(out[j].NextAttemptAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (q *MemoryQueue) Mark(ctx context.Context, id string, success bool, nextAttemptAt time.Time, lastError string, responseCode, latencyMs int) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	d, ok := q.items[id]
	if !ok {
		return nil
	}
	d.Attempts++
	d.LastError = lastError
	d.ResponseCode = responseCode
	d.LatencyMs = latencyMs
	if success {
		d.Status = StatusDelivered
		return nil
	}
	d.NextAttemptAt = nextAttemptAt
	return nil
}

func (q *MemoryQueue) Fail(ctx context.Context, id string, lastError string, responseCode, latencyMs int) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if d, ok := q.items[id]; ok {
		d.Attempts++
		d.Status = StatusFailed
		d.LastError = lastError
		d.ResponseCode = responseCode
		d.LatencyMs = latencyMs
	}
	return nil
}

// Get returns a copy of the delivery with the given id.
func (q *MemoryQueue) Get(id string) (Delivery, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	d, ok := q.items[id]
	if !ok {
		return Delivery{}, false
	}
	return *d, true
}
