package cmd

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/reviewbooth/reviewbooth/internal/review"
)

var submitCmd = &cobra.Command{
	Use:   "submit [text]",
	Short: "Submit a written review",
	Long: `Submit a written review to the webhook endpoint.

The text is limited to 500 characters. If delivery fails the review is
stored in the local retry queue and can be resent with 'reviewbooth retry'.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rec, err := review.NewWritten(args[0], time.Now())
		if err != nil {
			return fmt.Errorf("invalid review: %w", err)
		}

		pipeline, q, err := buildPipeline()
		if err != nil {
			return err
		}
		defer q.Close()

		outcome := pipeline.Submit(cmd.Context(), rec)
		if !outcome.Success {
			slog.Warn("Delivery failed, review saved for retry", "error", outcome.Message)
			fmt.Println("Review saved locally. Run 'reviewbooth retry' to resend it.")
			return nil
		}

		fmt.Println("Review submitted successfully.")
		return nil
	},
}
