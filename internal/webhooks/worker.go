package webhooks

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"sync"
	"time"

	"cvrpsolver/internal/metrics"
)

type Worker struct {
	Queue       DeliveryQueue
	HTTP        *http.Client
	MaxAttempts int
	Interval    time.Duration

	stop chan struct{}
	wg   sync.WaitGroup
}

func NewWorker(q DeliveryQueue, maxAttempts int) *Worker {
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	return &Worker{
		Queue:       q,
		HTTP:        &http.Client{Timeout: 5 * time.Second},
		MaxAttempts: maxAttempts,
		Interval:    time.Second,
		stop:        make(chan struct{}),
	}
}

// Emit wraps data in an event envelope and enqueues it for url. Signing
// happens at delivery time with the stored secret.
func (w *Worker) Emit(ctx context.Context, url, secret, eventType string, data any) (string, error) {
	now := time.Now().UTC()
	body, err := json.Marshal(map[string]any{
		"id":   fmt.Sprintf("evt_%d", now.UnixNano()),
		"type": eventType,
		"ts":   now.Format(time.RFC3339),
		"data": data,
	})
	if err != nil {
		return "", err
	}
	return w.Queue.Enqueue(ctx, eventType, url, secret, body)
}

func (w *Worker) Start() {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		ticker := time.NewTicker(w.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-w.stop:
				return
			case <-ticker.C:
				w.processOnce()
			}
		}
	}()
}

// Close stops the polling loop and waits for the current batch.
func (w *Worker) Close() {
	select {
	case <-w.stop:
	default:
		close(w.stop)
	}
	w.wg.Wait()
}

func (w *Worker) processOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	items, err := w.Queue.FetchDue(ctx, time.Now(), 50)
	if err != nil {
		log.Printf("webhooks: fetch due: %v", err)
		return
	}
	for _, it := range items {
		code, latency, err := w.deliver(ctx, it)
		success := err == nil && code >= 200 && code < 300
		lastErr := ""
		if err != nil {
			lastErr = err.Error()
		} else if !success {
			lastErr = "status " + strconv.Itoa(code)
		}

		status := "success"
		if !success {
			status = "error"
		}
		metrics.WebhookDeliveries.WithLabelValues(it.EventType, status).Inc()
		metrics.WebhookLatency.WithLabelValues(it.EventType, status).Observe(float64(latency))

		if !success && it.Attempts+1 >= w.MaxAttempts {
			log.Printf("webhook_failed id=%s event=%s attempts=%d code=%d err=%q", it.ID, it.EventType, it.Attempts+1, code, lastErr)
			_ = w.Queue.Fail(ctx, it.ID, lastErr, code, latency)
			continue
		}
		next := time.Now().Add(nextBackoff(it.Attempts))
		_ = w.Queue.Mark(ctx, it.ID, success, next, lastErr, code, latency)
	}
}

func (w *Worker) deliver(ctx context.Context, it Delivery) (int, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, it.URL, bytes.NewReader(it.Payload))
	if err != nil {
		return 0, 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(EventTypeHeader, it.EventType)
	if it.Secret != "" {
		req.Header.Set(SignatureHeader, SignHMAC(it.Secret, it.Payload))
	}
	start := time.Now()
	resp, err := w.HTTP.Do(req)
	latency := int(time.Since(start).Milliseconds())
	if err != nil {
		return 0, latency, err
	}
	_ = resp.Body.Close()
	return resp.StatusCode, latency, nil
}

func nextBackoff(attempts int) time.Duration {
	if attempts < 0 {
		attempts = 0
	}
	if attempts > 10 {
		attempts = 10
	}
	base := time.Second * time.Duration(1<<attempts)
	if base > time.Hour {
		base = time.Hour
	}
	return base
}
