// Package server exposes the local HTTP API used by the review booth UI.
package server

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/reviewbooth/reviewbooth/internal/assist"
	"github.com/reviewbooth/reviewbooth/internal/queue"
	"github.com/reviewbooth/reviewbooth/internal/review"
	"github.com/reviewbooth/reviewbooth/internal/webhook"
)

// Server handles review submission and retry over HTTP.
type Server struct {
	pipeline *webhook.Pipeline
	queue    *queue.Queue
	actor    *assist.Actor
	port     int
}

// New creates a server bound to the given pipeline, retry queue and guide.
func New(pipeline *webhook.Pipeline, q *queue.Queue, actor *assist.Actor, port int) *Server {
	return &Server{
		pipeline: pipeline,
		queue:    q,
		actor:    actor,
		port:     port,
	}
}

// SubmitRequest is the JSON body for POST /api/reviews.
type SubmitRequest struct {
	Type     string `json:"type"`               // "written", "voice", "video"
	Content  string `json:"content,omitempty"`  // written text
	Data     string `json:"data,omitempty"`     // base64 media payload
	MIMEType string `json:"mimeType,omitempty"` // media type, e.g. "audio/webm"
	Duration int    `json:"duration,omitempty"` // measured seconds, media only
}

// SubmitResponse reports the submission outcome. Queued is true when the
// review was stored for retry instead of delivered.
type SubmitResponse struct {
	Success bool   `json:"success"`
	Queued  bool   `json:"queued"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// StatusResponse is the JSON response for GET /api/status.
type StatusResponse struct {
	Connected   bool   `json:"connected"`
	Message     string `json:"message,omitempty"`
	QueuedCount int    `json:"queued_count"`
}

// RetryResponse summarizes a replay of the retry queue.
type RetryResponse struct {
	Success   bool   `json:"success"`
	Delivered int    `json:"delivered"`
	Remaining int    `json:"remaining"`
	Error     string `json:"error,omitempty"`
}

// GenericResponse represents a generic API response
type GenericResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Handler returns the route table. Split out so tests can drive the server
// through httptest.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/reviews", s.handleSubmit)
	mux.HandleFunc("/api/reviews/retry", s.handleRetry)
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/assist", s.handleAssist)
	return mux
}

// Start starts the HTTP server and blocks.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.port)
	slog.Info("Starting review booth API",
		"port", s.port,
		"localhost_url", fmt.Sprintf("http://localhost:%d", s.port))
	return http.ListenAndServe(addr, s.Handler())
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func methodNotAllowed(w http.ResponseWriter) {
	writeJSON(w, http.StatusMethodNotAllowed, GenericResponse{
		Success: false,
		Error:   "Method not allowed",
	})
}

// handleSubmit accepts a review and sends it through the pipeline. A
// delivery failure still returns 202: the review is queued for retry, not
// lost.
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	var req SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, SubmitResponse{
			Success: false,
			Error:   "Invalid JSON payload",
		})
		return
	}

	rec, err := buildRecord(req)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, SubmitResponse{
			Success: false,
			Error:   err.Error(),
		})
		return
	}

	outcome := s.pipeline.Submit(r.Context(), rec)
	if !outcome.Success {
		slog.Warn("Review delivery failed, queued for retry", "kind", rec.Kind, "error", outcome.Message)
		writeJSON(w, http.StatusAccepted, SubmitResponse{
			Success: false,
			Queued:  true,
			Message: "Review saved locally and will be retried",
			Error:   outcome.Message,
		})
		return
	}

	slog.Info("Review delivered", "kind", rec.Kind)
	writeJSON(w, http.StatusOK, SubmitResponse{
		Success: true,
		Message: outcome.Message,
	})
}

func buildRecord(req SubmitRequest) (review.Record, error) {
	kind := review.Kind(req.Type)
	switch kind {
	case review.KindWritten:
		return review.NewWritten(req.Content, time.Now())
	case review.KindVoice, review.KindVideo:
		if req.Data == "" {
			return review.Record{}, fmt.Errorf("media review requires data")
		}
		data, err := base64.StdEncoding.DecodeString(req.Data)
		if err != nil {
			return review.Record{}, fmt.Errorf("invalid base64 data: %w", err)
		}
		mimeType := req.MIMEType
		if mimeType == "" {
			if kind == review.KindVoice {
				mimeType = "audio/webm"
			} else {
				mimeType = "video/webm"
			}
		}
		return review.NewMedia(kind, &review.Artifact{MIME: mimeType, Data: data}, req.Duration, time.Now())
	default:
		return review.Record{}, fmt.Errorf("unknown review type: %q", req.Type)
	}
}

// handleRetry replays the queue against the webhook.
func (s *Server) handleRetry(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	delivered, remaining, err := s.queue.ReplayAll(r.Context(), s.pipeline)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, RetryResponse{
			Success: false,
			Error:   fmt.Sprintf("Retry failed: %v", err),
		})
		return
	}

	slog.Info("Retry queue replayed", "delivered", delivered, "remaining", remaining)
	writeJSON(w, http.StatusOK, RetryResponse{
		Success:   true,
		Delivered: delivered,
		Remaining: remaining,
	})
}

// handleStatus reports webhook connectivity and retry queue depth.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}

	connected := s.pipeline.TestConnection(r.Context())
	message := "Webhook not reachable"
	if connected {
		message = "Webhook reachable"
	}

	count, err := s.queue.Len()
	if err != nil {
		slog.Warn("Failed to read retry queue depth", "error", err)
		count = 0
	}

	writeJSON(w, http.StatusOK, StatusResponse{
		Connected:   connected,
		Message:     message,
		QueuedCount: count,
	})
}

// handleAssist returns the guide response for a stage and review type.
func (s *Server) handleAssist(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}

	q := r.URL.Query()
	ctx := assist.Context{
		Kind:      review.Kind(q.Get("type")),
		Stage:     assist.Stage(q.Get("stage")),
		UserInput: q.Get("input"),
	}
	if d := q.Get("duration"); d != "" {
		fmt.Sscanf(d, "%d", &ctx.DurationSeconds)
	}

	resp := s.actor.Respond(ctx)
	writeJSON(w, http.StatusOK, map[string]any{
		"message":     resp.Message,
		"suggestions": resp.Suggestions,
		"emotion":     resp.Emotion,
		"emoji":       assist.Emoji(resp.Emotion),
		"guidance":    assist.LiveGuidance(ctx.Kind, ctx.Stage),
	})
}
