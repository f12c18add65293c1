package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/reviewbooth/reviewbooth/internal/assist"
	"github.com/reviewbooth/reviewbooth/internal/server"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the local HTTP API",
	Long: `Start the HTTP API used by the review booth UI.

Endpoints:
  POST /api/reviews       - submit a review
  POST /api/reviews/retry - replay the retry queue
  GET  /api/status        - webhook connectivity and queue depth
  GET  /api/assist        - guide messages for the review flow`,
	RunE: func(cmd *cobra.Command, args []string) error {
		pipeline, q, err := buildPipeline()
		if err != nil {
			return err
		}
		defer q.Close()

		actor, err := assist.NewActor()
		if err != nil {
			return fmt.Errorf("failed to load guide responses: %w", err)
		}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := server.New(pipeline, q, actor, port)
		return srv.Start()
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "HTTP port (overrides config)")
}
