package capture

import (
	"bytes"
	"context"
	"sync"
	"time"
)

// SyntheticDevice generates deterministic media without touching hardware.
// It backs tests and lets the CLI run end to end on machines with no
// microphone or camera.
type SyntheticDevice struct {
	// ChunkInterval is the cadence of encoded chunk emission.
	ChunkInterval time.Duration
	// Chunk is the encoded payload emitted each interval.
	Chunk []byte
	// SpectrumFrame is the audio magnitude frame emitted each interval.
	SpectrumFrame []byte
	// VideoFrame is the RGB24 frame emitted each interval (video only).
	VideoFrame []byte
	// AcquireErr, when set, makes every acquisition fail. Models a denied
	// permission prompt or missing hardware.
	AcquireErr error
}

// NewSyntheticDevice returns a synthetic device with usable defaults: a
// quiet spectrum and a well-lit frame.
func NewSyntheticDevice() *SyntheticDevice {
	return &SyntheticDevice{
		ChunkInterval: 100 * time.Millisecond,
		Chunk:         []byte("synthetic-webm-chunk"),
		SpectrumFrame: bytes.Repeat([]byte{32}, 128),
		VideoFrame:    bytes.Repeat([]byte{150}, 64*48*3),
	}
}

// Acquire starts a synthetic stream. The first chunk is emitted immediately
// so even very short recordings produce a non-empty artifact.
func (d *SyntheticDevice) Acquire(ctx context.Context, cfg StreamConfig) (Stream, error) {
	if d.AcquireErr != nil {
		return nil, d.AcquireErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	st := &syntheticStream{
		chunks:   make(chan []byte, 64),
		spectrum: make(chan []byte, 64),
		frames:   make(chan []byte, 8),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go st.run(d, cfg)
	return st, nil
}

type syntheticStream struct {
	chunks   chan []byte
	spectrum chan []byte
	frames   chan []byte
	stop     chan struct{}
	done     chan struct{}
	once     sync.Once
}

func (s *syntheticStream) run(d *SyntheticDevice, cfg StreamConfig) {
	defer close(s.done)
	defer close(s.chunks)
	defer close(s.spectrum)
	defer close(s.frames)

	interval := d.ChunkInterval
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	emit := func() {
		s.offer(s.chunks, d.Chunk)
		s.offer(s.spectrum, d.SpectrumFrame)
		if cfg.Kind == MediaVideo {
			s.offer(s.frames, d.VideoFrame)
		}
	}
	emit()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			emit()
		}
	}
}

// offer drops the value when the consumer is not keeping up.
func (s *syntheticStream) offer(ch chan []byte, b []byte) {
	if len(b) == 0 {
		return
	}
	out := make([]byte, len(b))
	copy(out, b)
	select {
	case ch <- out:
	default:
	}
}

func (s *syntheticStream) Chunks() <-chan []byte   { return s.chunks }
func (s *syntheticStream) Spectrum() <-chan []byte { return s.spectrum }
func (s *syntheticStream) Frames() <-chan []byte   { return s.frames }

func (s *syntheticStream) Close() error {
	s.once.Do(func() { close(s.stop) })
	<-s.done
	return nil
}
