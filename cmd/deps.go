package cmd

import (
	"fmt"

	"github.com/reviewbooth/reviewbooth/internal/queue"
	"github.com/reviewbooth/reviewbooth/internal/webhook"
)

// buildPipeline wires the webhook pipeline against the durable retry queue.
// The caller owns the returned queue and must close it.
func buildPipeline() (*webhook.Pipeline, *queue.Queue, error) {
	q, err := queue.Open(cfg.Queue.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open retry queue: %w", err)
	}

	sess := webhook.NewSessionContext()
	pipeline := webhook.NewPipeline(cfg.Webhook.URL, sess, q)
	return pipeline, q, nil
}
