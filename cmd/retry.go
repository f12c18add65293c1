package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var retryCmd = &cobra.Command{
	Use:   "retry",
	Short: "Resend reviews from the local retry queue",
	Long: `Replay the durable retry queue against the webhook endpoint.

Reviews that deliver successfully are removed from the queue. Reviews that
fail again stay queued unchanged for a later attempt.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		pipeline, q, err := buildPipeline()
		if err != nil {
			return err
		}
		defer q.Close()

		delivered, remaining, err := q.ReplayAll(cmd.Context(), pipeline)
		if err != nil {
			return fmt.Errorf("retry failed: %w", err)
		}

		if delivered == 0 && remaining == 0 {
			fmt.Println("Retry queue is empty.")
			return nil
		}

		fmt.Printf("Delivered %d review(s), %d remaining in queue.\n", delivered, remaining)
		return nil
	},
}
