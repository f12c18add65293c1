package capture

import (
	"context"
	"strings"
)

// MediaKind selects what a recording session captures.
type MediaKind string

const (
	MediaAudio MediaKind = "audio"
	MediaVideo MediaKind = "video" // audio + video
)

// Maximum recording lengths per media kind, in seconds.
const (
	MaxAudioSeconds = 120
	MaxVideoSeconds = 180
)

// MaxDurationSeconds returns the hard recording cap for a media kind.
func MaxDurationSeconds(kind MediaKind) int {
	if kind == MediaVideo {
		return MaxVideoSeconds
	}
	return MaxAudioSeconds
}

// MIMEType returns the container type artifacts are tagged with.
func MIMEType(kind MediaKind) string {
	if kind == MediaVideo {
		return "video/webm"
	}
	return "audio/webm"
}

// StreamConfig describes the device stream a session requests.
type StreamConfig struct {
	Kind       MediaKind
	Width      int // video only
	Height     int // video only
	SampleRate int
}

// Stream is a live device stream. Chunks carries encoded container data that
// accumulates into the captured artifact. Spectrum carries audio magnitude
// frames (one byte per bin, 0-255) for noise analysis. Frames carries raw
// RGB24 video frames for brightness analysis; it is nil for audio-only
// streams. All channels are closed when the stream is closed.
type Stream interface {
	Chunks() <-chan []byte
	Spectrum() <-chan []byte
	Frames() <-chan []byte
	Close() error
}

// Device acquires live media streams. An acquisition failure (permission
// denied, hardware missing) is reported to the caller and never retried
// automatically.
type Device interface {
	Acquire(ctx context.Context, cfg StreamConfig) (Stream, error)
}

// BackendType selects the capture backend implementation.
type BackendType string

const (
	BackendFFmpeg    BackendType = "ffmpeg"
	BackendSynthetic BackendType = "synthetic"
	BackendAuto      BackendType = "auto"
)

// NewDevice creates a capture device for the configured backend.
func NewDevice(backend string, opts FFmpegOptions) Device {
	switch BackendType(strings.ToLower(backend)) {
	case BackendSynthetic:
		return NewSyntheticDevice()
	case BackendFFmpeg, BackendAuto:
		return NewFFmpegDevice(opts)
	default:
		return NewFFmpegDevice(opts)
	}
}
