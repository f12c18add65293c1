package cmd

import (
	"fmt"
	"os/exec"

	"github.com/spf13/cobra"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "Show capture backend and device availability",
	Long:  `Show whether the configured capture backend is usable and which input devices are selected.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Printf("Backend: %s\n", cfg.Capture.Backend)

		if path, err := exec.LookPath(cfg.Capture.Binary); err == nil {
			fmt.Printf("ffmpeg: available (%s)\n", path)
		} else {
			fmt.Printf("ffmpeg: not found (%s)\n", cfg.Capture.Binary)
		}

		fmt.Printf("Audio input: %s (%s)\n", cfg.Capture.AudioInput, cfg.Capture.AudioFormat)
		fmt.Printf("Video input: %s (%s)\n", cfg.Capture.VideoInput, cfg.Capture.VideoFormat)
		fmt.Printf("Video size: %dx%d\n", cfg.Capture.Width, cfg.Capture.Height)
		fmt.Printf("Sample rate: %d Hz\n", cfg.Capture.SampleRate)
		return nil
	},
}
