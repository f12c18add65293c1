package capture

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"
)

// FFmpegOptions configures the FFmpeg capture backend.
type FFmpegOptions struct {
	Binary      string // ffmpeg binary, default "ffmpeg"
	AudioFormat string // input demuxer for audio, default "pulse"
	AudioInput  string // audio device, default "default"
	VideoFormat string // input demuxer for video, default "v4l2"
	VideoInput  string // video device, default "/dev/video0"
}

// FFmpegDevice captures live media by spawning an FFmpeg subprocess. The
// encoded stream is read from stdout; two extra pipes carry the raw analysis
// taps (audio magnitudes and downscaled RGB frames).
type FFmpegDevice struct {
	opts FFmpegOptions
}

// Sample tap geometry. The brightness tap is deliberately tiny: lighting is a
// whole-frame average, so 64x48 pixels carry all the signal needed.
const (
	spectrumBlockSize = 1024
	tapFrameWidth     = 64
	tapFrameHeight    = 48
	tapFrameSize      = tapFrameWidth * tapFrameHeight * 3
)

// NewFFmpegDevice creates an FFmpeg-backed capture device.
func NewFFmpegDevice(opts FFmpegOptions) *FFmpegDevice {
	if opts.Binary == "" {
		opts.Binary = "ffmpeg"
	}
	if opts.AudioFormat == "" {
		opts.AudioFormat = "pulse"
	}
	if opts.AudioInput == "" {
		opts.AudioInput = "default"
	}
	if opts.VideoFormat == "" {
		opts.VideoFormat = "v4l2"
	}
	if opts.VideoInput == "" {
		opts.VideoInput = "/dev/video0"
	}
	return &FFmpegDevice{opts: opts}
}

// Acquire starts FFmpeg against the configured devices and returns the live
// stream. Failure to start maps to a device acquisition error in the session.
func (d *FFmpegDevice) Acquire(ctx context.Context, cfg StreamConfig) (Stream, error) {
	if _, err := exec.LookPath(d.opts.Binary); err != nil {
		return nil, fmt.Errorf("ffmpeg not found: %w", err)
	}

	args := d.buildArgs(cfg)

	// pipe:3 carries raw audio samples, pipe:4 raw RGB frames.
	specR, specW, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create spectrum pipe: %w", err)
	}
	var frameR, frameW *os.File
	if cfg.Kind == MediaVideo {
		frameR, frameW, err = os.Pipe()
		if err != nil {
			specR.Close()
			specW.Close()
			return nil, fmt.Errorf("failed to create frame pipe: %w", err)
		}
	}

	cmd := exec.Command(d.opts.Binary, args...)
	cmd.ExtraFiles = []*os.File{specW}
	if frameW != nil {
		cmd.ExtraFiles = append(cmd.ExtraFiles, frameW)
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		closeAll(specR, specW, frameR, frameW)
		return nil, fmt.Errorf("failed to create stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		closeAll(specR, specW, frameR, frameW)
		return nil, fmt.Errorf("failed to create stderr pipe: %w", err)
	}

	slog.Info("starting ffmpeg capture", "command", d.opts.Binary+" "+strings.Join(args, " "))
	if err := cmd.Start(); err != nil {
		closeAll(specR, specW, frameR, frameW)
		return nil, fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	// Parent side must close the write ends it handed to the child.
	specW.Close()
	if frameW != nil {
		frameW.Close()
	}

	st := &ffmpegStream{
		cmd:      cmd,
		chunks:   make(chan []byte, 64),
		spectrum: make(chan []byte, 64),
		frames:   make(chan []byte, 8),
		stop:     make(chan struct{}),
	}
	go st.readChunks(stdout)
	go st.readSpectrum(specR)
	if frameR != nil {
		go st.readFrames(frameR)
	} else {
		close(st.frames)
	}
	go st.readStderr(stderr)

	return st, nil
}

// buildArgs assembles the FFmpeg invocation: one webm output on stdout plus
// the raw analysis taps on the extra pipes.
func (d *FFmpegDevice) buildArgs(cfg StreamConfig) []string {
	args := []string{"-hide_banner", "-loglevel", "warning"}

	if cfg.Kind == MediaVideo {
		args = append(args,
			"-f", d.opts.VideoFormat,
			"-video_size", fmt.Sprintf("%dx%d", cfg.Width, cfg.Height),
			"-i", d.opts.VideoInput,
			"-f", d.opts.AudioFormat,
			"-i", d.opts.AudioInput,
			// Main encoded output.
			"-map", "0:v", "-map", "1:a",
			"-c:v", "libvpx", "-c:a", "libopus",
			"-f", "webm", "pipe:1",
			// Audio magnitude tap.
			"-map", "1:a",
			"-f", "u8", "-ar", "8000", "-ac", "1", "pipe:3",
			// Brightness tap: one downscaled raw frame per second.
			"-map", "0:v",
			"-vf", fmt.Sprintf("fps=1,scale=%d:%d", tapFrameWidth, tapFrameHeight),
			"-f", "rawvideo", "-pix_fmt", "rgb24", "pipe:4",
		)
		return args
	}

	args = append(args,
		"-f", d.opts.AudioFormat,
		"-i", d.opts.AudioInput,
		"-map", "0:a",
		"-c:a", "libopus",
		"-f", "webm", "pipe:1",
		"-map", "0:a",
		"-f", "u8", "-ar", "8000", "-ac", "1", "pipe:3",
	)
	return args
}

type ffmpegStream struct {
	cmd      *exec.Cmd
	chunks   chan []byte
	spectrum chan []byte
	frames   chan []byte
	stop     chan struct{}

	stderrBuf strings.Builder
	closeOnce sync.Once
	closeErr  error
}

func (s *ffmpegStream) Chunks() <-chan []byte   { return s.chunks }
func (s *ffmpegStream) Spectrum() <-chan []byte { return s.spectrum }
func (s *ffmpegStream) Frames() <-chan []byte   { return s.frames }

func (s *ffmpegStream) readChunks(r io.ReadCloser) {
	defer close(s.chunks)
	defer r.Close()

	for {
		buf := make([]byte, 32*1024)
		n, err := r.Read(buf)
		if n > 0 {
			select {
			case s.chunks <- buf[:n]:
			case <-s.stop:
				return
			}
		}
		if err != nil {
			return
		}
	}
}

// readSpectrum converts unsigned 8-bit audio samples (silence at 128) into
// magnitude frames for the quality monitor.
func (s *ffmpegStream) readSpectrum(r io.ReadCloser) {
	defer close(s.spectrum)
	defer r.Close()

	buf := make([]byte, spectrumBlockSize)
	for {
		n, err := io.ReadFull(r, buf)
		if n > 0 {
			frame := make([]byte, n)
			for i := 0; i < n; i++ {
				m := int(buf[i]) - 128
				if m < 0 {
					m = -m
				}
				m *= 2
				if m > 255 {
					m = 255
				}
				frame[i] = byte(m)
			}
			select {
			case s.spectrum <- frame:
			default:
			}
		}
		if err != nil {
			return
		}
	}
}

func (s *ffmpegStream) readFrames(r io.ReadCloser) {
	defer close(s.frames)
	defer r.Close()

	for {
		frame := make([]byte, tapFrameSize)
		if _, err := io.ReadFull(r, frame); err != nil {
			return
		}
		select {
		case s.frames <- frame:
		default:
		}
	}
}

func (s *ffmpegStream) readStderr(r io.ReadCloser) {
	defer r.Close()
	buf := make([]byte, 4096)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			s.stderrBuf.Write(buf[:n])
		}
		if err != nil {
			return
		}
	}
}

// Close stops FFmpeg with an interrupt, falling back to a kill if it does
// not exit within the timeout. The track readers drain and close on process
// exit.
func (s *ffmpegStream) Close() error {
	s.closeOnce.Do(func() {
		close(s.stop)
		if s.cmd.Process != nil {
			if err := s.cmd.Process.Signal(os.Interrupt); err != nil {
				slog.Debug("failed to interrupt ffmpeg", "error", err)
				s.cmd.Process.Kill()
			}
		}

		done := make(chan error, 1)
		go func() { done <- s.cmd.Wait() }()

		select {
		case err := <-done:
			if err != nil && !isSignalExit(err) {
				slog.Debug("ffmpeg exit", "error", err, "stderr", s.stderrBuf.String())
				s.closeErr = fmt.Errorf("ffmpeg process failed: %w", err)
			}
		case <-time.After(5 * time.Second):
			slog.Warn("ffmpeg did not exit within timeout, force killing")
			if s.cmd.Process != nil {
				s.cmd.Process.Kill()
			}
			<-done
		}
	})
	return s.closeErr
}

// isSignalExit reports whether the process terminated because of the
// interrupt we sent.
func isSignalExit(err error) bool {
	exitErr, ok := err.(*exec.ExitError)
	if !ok {
		return false
	}
	if exitErr.ExitCode() == 255 {
		return true
	}
	if exitErr.ProcessState != nil {
		state := exitErr.ProcessState.String()
		return state == "signal: interrupt" || state == "signal: killed"
	}
	return false
}

func closeAll(files ...*os.File) {
	for _, f := range files {
		if f != nil {
			f.Close()
		}
	}
}
