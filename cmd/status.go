package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check webhook connectivity and retry queue depth",
	RunE: func(cmd *cobra.Command, args []string) error {
		pipeline, q, err := buildPipeline()
		if err != nil {
			return err
		}
		defer q.Close()

		if cfg.Webhook.URL == "" {
			fmt.Println("Webhook: not configured")
		} else if pipeline.TestConnection(cmd.Context()) {
			fmt.Printf("Webhook: reachable (%s)\n", cfg.Webhook.URL)
		} else {
			fmt.Printf("Webhook: not reachable (%s)\n", cfg.Webhook.URL)
		}

		count, err := q.Len()
		if err != nil {
			return fmt.Errorf("failed to read retry queue: %w", err)
		}
		fmt.Printf("Retry queue: %d review(s) pending\n", count)
		return nil
	},
}
