package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/reviewbooth/reviewbooth/internal/capture"
	"github.com/reviewbooth/reviewbooth/internal/review"
)

var recordCmd = &cobra.Command{
	Use:   "record [voice|video]",
	Short: "Record a voice or video review",
	Long: `Record a review from the configured microphone or camera.

While previewing and recording, live quality readings are shown: background
noise for audio, lighting for video. Recording stops on Ctrl+C or when the
duration cap is reached, then the review is sent to the webhook. If delivery
fails the review is stored in the local retry queue.`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"voice", "video"},
	RunE: func(cmd *cobra.Command, args []string) error {
		kind := review.Kind(args[0])
		if kind != review.KindVoice && kind != review.KindVideo {
			return fmt.Errorf("review kind must be 'voice' or 'video', got: %s", args[0])
		}

		mediaKind := capture.MediaAudio
		if kind == review.KindVideo {
			mediaKind = capture.MediaVideo
		}

		device := capture.NewDevice(cfg.Capture.Backend, capture.FFmpegOptions{
			Binary:      cfg.Capture.Binary,
			AudioFormat: cfg.Capture.AudioFormat,
			AudioInput:  cfg.Capture.AudioInput,
			VideoFormat: cfg.Capture.VideoFormat,
			VideoInput:  cfg.Capture.VideoInput,
		})

		session := capture.NewSession(mediaKind, device, capture.WithStreamConfig(capture.StreamConfig{
			Kind:       mediaKind,
			Width:      cfg.Capture.Width,
			Height:     cfg.Capture.Height,
			SampleRate: cfg.Capture.SampleRate,
		}))
		defer session.Close()

		ctx := cmd.Context()
		slog.Info("Acquiring capture device", "kind", kind, "backend", cfg.Capture.Backend)
		if err := session.Start(ctx); err != nil {
			return fmt.Errorf("failed to start capture: %w", err)
		}

		// Surface quality readings while previewing and recording.
		go printReadings(session)

		if err := session.Record(); err != nil {
			return fmt.Errorf("failed to start recording: %w", err)
		}
		slog.Info("Recording started - Press Ctrl+C to stop",
			"max_seconds", session.MaxDuration())

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(sigChan)

		waitForStop(session, sigChan)

		if err := session.Stop(); err != nil {
			return fmt.Errorf("failed to stop recording: %w", err)
		}

		rec, err := session.Finish()
		if err != nil {
			return fmt.Errorf("failed to finalize recording: %w", err)
		}
		slog.Info("Recording captured", "duration", review.FormatDuration(rec.DurationSeconds),
			"bytes", len(rec.Artifact.Data))

		return deliver(ctx, rec)
	},
}

// waitForStop blocks until the user interrupts or the session hits its
// duration cap and stops itself.
func waitForStop(session *capture.Session, sigChan <-chan os.Signal) {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-sigChan:
			slog.Info("Stopping recording...")
			return
		case <-ticker.C:
			if session.State() == capture.StateStopped {
				slog.Info("Duration cap reached")
				return
			}
		}
	}
}

func printReadings(session *capture.Session) {
	for r := range session.Readings() {
		switch r.Metric {
		case capture.MetricNoise:
			fmt.Fprintf(os.Stderr, "\rnoise: %.2f (%s)   ", r.Value, r.Level)
		case capture.MetricBrightness:
			fmt.Fprintf(os.Stderr, "\rbrightness: %.0f (%s)   ", r.Value, r.Level)
		}
	}
}

// deliver sends the record through the webhook pipeline, falling back to
// the retry queue on failure.
func deliver(ctx context.Context, rec review.Record) error {
	pipeline, q, err := buildPipeline()
	if err != nil {
		return err
	}
	defer q.Close()

	outcome := pipeline.Submit(ctx, rec)
	if !outcome.Success {
		slog.Warn("Delivery failed, review saved for retry", "error", outcome.Message)
		fmt.Println("Review saved locally. Run 'reviewbooth retry' to resend it.")
		return nil
	}

	fmt.Println("Review submitted successfully.")
	return nil
}
