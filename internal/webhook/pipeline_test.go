package webhook

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/reviewbooth/reviewbooth/internal/review"
)

// memStore records appended reviews in memory.
type memStore struct {
	mu      sync.Mutex
	entries []review.Record
}

func (s *memStore) Append(rec review.Record, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, rec)
	return nil
}

func (s *memStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func writtenRecord(t *testing.T, text string) review.Record {
	t.Helper()
	rec, err := review.NewWritten(text, time.Now())
	if err != nil {
		t.Fatalf("NewWritten: %v", err)
	}
	return rec
}

func TestSubmitSuccess(t *testing.T) {
	var gotHeader string
	var gotPayload Payload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeader = r.Header.Get("X-Session-ID")
		json.NewDecoder(r.Body).Decode(&gotPayload)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	store := &memStore{}
	p := NewPipeline(srv.URL, testSession(), store)

	outcome := p.Submit(context.Background(), writtenRecord(t, "Loved it"))
	if !outcome.Success {
		t.Fatalf("outcome = %+v, want success", outcome)
	}
	if gotHeader != "session_test_123" {
		t.Errorf("X-Session-ID = %q", gotHeader)
	}
	if gotPayload.ReviewType != "written" || gotPayload.Content != "Loved it" {
		t.Errorf("payload = %+v", gotPayload)
	}
	if store.len() != 0 {
		t.Error("successful submission must not be queued")
	}
}

func TestSubmitFailureQueuesOriginalRecord(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	store := &memStore{}
	p := NewPipeline(srv.URL, testSession(), store)

	outcome := p.Submit(context.Background(), writtenRecord(t, "Great experience"))
	if outcome.Success {
		t.Fatal("expected failure outcome")
	}
	if outcome.Message == "" {
		t.Error("failure outcome must carry a message")
	}
	if store.len() != 1 {
		t.Fatalf("queue len = %d, want 1", store.len())
	}
	if store.entries[0].Kind != review.KindWritten {
		t.Errorf("queued kind = %q, want written", store.entries[0].Kind)
	}
	if store.entries[0].Text != "Great experience" {
		t.Errorf("queued text = %q", store.entries[0].Text)
	}
}

func TestSubmitNetworkFailure(t *testing.T) {
	// Endpoint that is not listening.
	store := &memStore{}
	p := NewPipeline("http://127.0.0.1:1/webhook", testSession(), store)

	outcome := p.Submit(context.Background(), writtenRecord(t, "hello"))
	if outcome.Success {
		t.Fatal("expected failure outcome")
	}
	if store.len() != 1 {
		t.Errorf("queue len = %d, want 1", store.len())
	}
}

func TestSubmitUnconfiguredURL(t *testing.T) {
	store := &memStore{}
	p := NewPipeline("", testSession(), store)

	outcome := p.Submit(context.Background(), writtenRecord(t, "hello"))
	if outcome.Success {
		t.Fatal("expected failure outcome for missing URL")
	}
	if store.len() != 1 {
		t.Error("missing URL must still fall back to the retry queue")
	}
}

func TestSubmitEncodingFailure(t *testing.T) {
	store := &memStore{}
	p := NewPipeline("http://127.0.0.1:1/webhook", testSession(), store)

	// Invalid record: media kind without an artifact.
	outcome := p.Submit(context.Background(), review.Record{Kind: review.KindVoice, Text: "x", CreatedAt: time.Now()})
	if outcome.Success {
		t.Fatal("expected failure outcome for encoding error")
	}
}

func TestSendDoesNotQueue(t *testing.T) {
	store := &memStore{}
	p := NewPipeline("http://127.0.0.1:1/webhook", testSession(), store)

	if err := p.Send(context.Background(), writtenRecord(t, "hello")); err == nil {
		t.Fatal("expected send error")
	}
	if store.len() != 0 {
		t.Error("Send must have no queue side effects")
	}
}

func TestTestConnectionNoURLMakesNoCalls(t *testing.T) {
	calls := 0
	client := &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		calls++
		return nil, http.ErrHandlerTimeout
	})}

	p := NewPipeline("", testSession(), nil, WithHTTPClient(client))
	if p.TestConnection(context.Background()) {
		t.Error("TestConnection with no URL must return false")
	}
	if calls != 0 {
		t.Errorf("expected zero network calls, got %d", calls)
	}
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func TestTestConnectionOK(t *testing.T) {
	var gotHeader string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeader = r.Header.Get("X-Test-Connection")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p := NewPipeline(srv.URL, testSession(), nil)
	if !p.TestConnection(context.Background()) {
		t.Fatal("expected reachable endpoint to test true")
	}
	if gotHeader != "true" {
		t.Errorf("X-Test-Connection = %q, want true", gotHeader)
	}
}

func TestTestConnectionFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	p := NewPipeline(srv.URL, testSession(), nil)
	if p.TestConnection(context.Background()) {
		t.Error("non-2xx must test false")
	}

	p = NewPipeline("http://127.0.0.1:1/webhook", testSession(), nil)
	if p.TestConnection(context.Background()) {
		t.Error("unreachable endpoint must test false")
	}
}
