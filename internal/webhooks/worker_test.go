package webhooks

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

type recordQueue struct {
	*MemoryQueue
	mu    sync.Mutex
	marks []MarkRec
	fails []FailRec
}
type MarkRec struct {
	ID            string
	Success       bool
	Code, Latency int
	LastErr       string
}
type FailRec struct {
	ID      string
	Code    int
	LastErr string
}

func (r *recordQueue) Mark(ctx context.Context, id string, success bool, next time.Time, lastError string, code, latencyMs int) error {
	r.mu.Lock()
	r.marks = append(r.marks, MarkRec{ID: id, Success: success, Code: code, Latency: latencyMs, LastErr: lastError})
	r.mu.Unlock()
	return r.MemoryQueue.Mark(ctx, id, success, next, lastError, code, latencyMs)
}

func (r *recordQueue) Fail(ctx context.Context, id string, lastError string, code, latencyMs int) error {
	r.mu.Lock()
	r.fails = append(r.fails, FailRec{ID: id, Code: code, LastErr: lastError})
	r.mu.Unlock()
	return r.MemoryQueue.Fail(ctx, id, lastError, code, latencyMs)
}

func TestWorkerProcessOnce_SuccessAndSignature(t *testing.T) {
	var gotSig, gotType string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSig = r.Header.Get(SignatureHeader)
		gotType = r.Header.Get(EventTypeHeader)
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(200)
	}))
	defer srv.Close()

	rq := &recordQueue{MemoryQueue: NewMemoryQueue()}
	w := NewWorker(rq, 3)
	w.HTTP = srv.Client()
	id, err := w.Emit(context.Background(), srv.URL, "secret", "run.completed", map[string]any{"runId": "r1"})
	if err != nil || id == "" {
		t.Fatalf("emit failed: %v", err)
	}

	w.processOnce()

	if gotType != "run.completed" {
		t.Fatalf("missing event type header: %q", gotType)
	}
	if !VerifyHMAC("secret", gotBody, gotSig) {
		t.Fatalf("signature does not verify: %q", gotSig)
	}
	var env map[string]any
	if err := json.Unmarshal(gotBody, &env); err != nil || env["type"] != "run.completed" {
		t.Fatalf("bad envelope %s: %v", gotBody, err)
	}
	if len(rq.marks) != 1 || !rq.marks[0].Success {
		t.Fatalf("expected mark success, got: %+v", rq.marks)
	}
	if d, _ := rq.Get(id); d.Status != StatusDelivered {
		t.Fatalf("want delivered, got %s", d.Status)
	}
	w.processOnce()
	if len(rq.marks) != 1 {
		t.Fatalf("delivered items must not be retried")
	}
}

func TestWorkerProcessOnce_RetryThenFail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(500) }))
	defer srv.Close()
	rq := &recordQueue{MemoryQueue: NewMemoryQueue()}
	w := NewWorker(rq, 2)
	w.HTTP = srv.Client()
	id, _ := w.Emit(context.Background(), srv.URL, "", "run.failed", nil)

	w.processOnce()
	if len(rq.marks) != 1 || rq.marks[0].Success || rq.marks[0].Code != 500 {
		t.Fatalf("expected failed mark, got %+v", rq.marks)
	}
	d, _ := rq.Get(id)
	if d.Status != StatusPending || !d.NextAttemptAt.After(time.Now()) {
		t.Fatalf("expected rescheduled delivery, got %+v", d)
	}

	// force due and exhaust attempts
	rq.MemoryQueue.mu.Lock()
	rq.items[id].NextAttemptAt = time.Now().Add(-time.Second)
	rq.MemoryQueue.mu.Unlock()
	w.processOnce()
	if len(rq.fails) != 1 {
		t.Fatalf("expected fail recorded")
	}
	if d, _ := rq.Get(id); d.Status != StatusFailed || d.Attempts != 2 {
		t.Fatalf("want failed after 2 attempts, got %+v", d)
	}
}

func TestNextBackoff(t *testing.T) {
	cases := map[int]time.Duration{-1: time.Second, 0: time.Second, 3: 8 * time.Second, 10: 1024 * time.Second, 50: 1024 * time.Second}
	for in, want := range cases {
		if got := nextBackoff(in); got != want {
			t.Fatalf("nextBackoff(%d) = %v, want %v", in, got, want)
		}
	}
}

func TestSignVerify(t *testing.T) {
	body := []byte(`{"a":1}`)
	sig := SignHMAC("k", body)
	if !VerifyHMAC("k", body, sig) || !VerifyHMAC("k", body, "sha256="+sig) {
		t.Fatalf("valid signature rejected")
	}
	if VerifyHMAC("other", body, sig) || VerifyHMAC("k", body, "zz") {
		t.Fatalf("invalid signature accepted")
	}
}

func TestWorkerStartClose(t *testing.T) {
	hit := make(chan struct{}, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case hit <- struct{}{}:
		default:
		}
	}))
	defer srv.Close()
	w := NewWorker(NewMemoryQueue(), 1)
	w.HTTP = srv.Client()
	w.Interval = 10 * time.Millisecond
	_, _ = w.Emit(context.Background(), srv.URL, "", "run.completed", nil)
	w.Start()
	defer w.Close()
	select {
	case <-hit:
	case <-time.After(2 * time.Second):
		t.Fatal("worker never delivered")
	}
}
