package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/reviewbooth/reviewbooth/internal/review"
)

// testTimeout bounds the connection health check.
const testTimeout = 5 * time.Second

// Outcome reports what happened to a submission attempt.
type Outcome struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// RetryStore receives the original review record when a submission fails, so
// no completed review is ever dropped. Implemented by the durable retry
// queue.
type RetryStore interface {
	Append(rec review.Record, sessionID string) error
}

// Pipeline posts review payloads to the configured webhook endpoint and
// classifies the result. One pipeline serves one session context.
type Pipeline struct {
	url    string
	client *http.Client
	sess   SessionContext
	store  RetryStore
}

// PipelineOption adjusts pipeline construction.
type PipelineOption func(*Pipeline)

// WithHTTPClient substitutes the HTTP client, mainly for tests.
func WithHTTPClient(c *http.Client) PipelineOption {
	return func(p *Pipeline) {
		if c != nil {
			p.client = c
		}
	}
}

// NewPipeline creates a submission pipeline for the given endpoint. The
// store may be nil, in which case failed submissions are only reported, not
// queued.
func NewPipeline(url string, sess SessionContext, store RetryStore, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		url:    url,
		client: &http.Client{},
		sess:   sess,
		store:  store,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Submit encodes and posts a review. On any failure -- encoding, transport,
// or a non-2xx status -- the original record is handed to the retry store and
// the outcome reports the failure with a human-readable message. A single
// attempt is made; nothing re-tries synchronously.
func (p *Pipeline) Submit(ctx context.Context, rec review.Record) Outcome {
	err := p.Send(ctx, rec)
	if err == nil {
		slog.Info("review submitted", "type", rec.Kind, "session", p.sess.ID)
		return Outcome{Success: true, Message: "Review successfully submitted to workflow"}
	}

	slog.Error("review submission failed", "type", rec.Kind, "error", err)
	if p.store != nil {
		if qerr := p.store.Append(rec, p.sess.ID); qerr != nil {
			slog.Error("failed to queue review for retry", "error", qerr)
		} else {
			slog.Info("review stored locally for retry", "type", rec.Kind)
		}
	}
	return Outcome{Success: false, Message: err.Error()}
}

// Send makes exactly one delivery attempt with no queue side effects. The
// retry queue uses it to replay entries without re-appending failures.
func (p *Pipeline) Send(ctx context.Context, rec review.Record) error {
	payload, err := Encode(rec, p.sess)
	if err != nil {
		return err
	}
	return p.post(ctx, payload, map[string]string{"X-Session-ID": p.sess.ID})
}

// TestConnection checks endpoint reachability with a minimal test payload
// and a bounded timeout. It never returns an error: unreachable, timed out
// and unconfigured all read as false. An empty URL short-circuits without a
// network call.
func (p *Pipeline) TestConnection(ctx context.Context) bool {
	if p.url == "" {
		slog.Warn("webhook URL not configured")
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, testTimeout)
	defer cancel()

	payload := Payload{
		ReviewType: string(review.KindWritten),
		Content:    "Test connection from reviewbooth",
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		Metadata: Metadata{
			UserAgent: p.sess.UserAgent,
			SessionID: "test_connection",
			IsTest:    true,
		},
	}

	if err := p.post(ctx, payload, map[string]string{"X-Test-Connection": "true"}); err != nil {
		slog.Warn("webhook connection test failed", "error", err)
		return false
	}
	return true
}

func (p *Pipeline) post(ctx context.Context, payload Payload, headers map[string]string) error {
	if p.url == "" {
		return fmt.Errorf("webhook URL not configured")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrEncoding, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook failed: %s", resp.Status)
	}
	return nil
}
