package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/reviewbooth/reviewbooth/internal/review"
)

// State represents the current state of a recording session.
type State string

const (
	StateIdle       State = "IDLE"
	StateAcquiring  State = "ACQUIRING"
	StatePreviewing State = "PREVIEWING"
	StateRecording  State = "RECORDING"
	StateStopped    State = "STOPPED"
	StateError      State = "ERROR"
)

// ErrDevice marks device acquisition failures (permission denied, hardware
// unavailable). These are surfaced to the caller and never retried
// automatically; the user must start again.
var ErrDevice = errors.New("device unavailable")

// Session owns device acquisition, start/stop/reset transitions, the running
// duration counter and the enforced maximum duration. The device stream
// handle is exclusively owned by the session and released on every exit path.
type Session struct {
	kind      MediaKind
	device    Device
	streamCfg StreamConfig
	tick      time.Duration

	mu          sync.Mutex
	state       State
	stream      Stream
	monitor     *Monitor
	elapsed     int
	maxDuration int
	chunks      [][]byte
	artifact    *review.Artifact
	closed      bool
	stopOnce    *sync.Once
	stopChan    chan struct{}
	recDone     chan struct{}
}

// Option adjusts session construction.
type Option func(*Session)

// WithTickInterval overrides the 1-second duration tick. Shorter intervals
// let tests drive the timer without waiting wall-clock time.
func WithTickInterval(d time.Duration) Option {
	return func(s *Session) {
		if d > 0 {
			s.tick = d
		}
	}
}

// WithStreamConfig overrides the stream configuration requested from the
// device.
func WithStreamConfig(cfg StreamConfig) Option {
	return func(s *Session) {
		cfg.Kind = s.kind
		s.streamCfg = cfg
	}
}

// NewSession creates a session for the given media kind. The session starts
// in the Idle state; call Start to acquire the device.
func NewSession(kind MediaKind, device Device, opts ...Option) *Session {
	s := &Session{
		kind:        kind,
		device:      device,
		tick:        time.Second,
		state:       StateIdle,
		maxDuration: MaxDurationSeconds(kind),
		streamCfg: StreamConfig{
			Kind:       kind,
			Width:      640,
			Height:     480,
			SampleRate: 48000,
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start acquires the device and begins previewing (Idle -> Acquiring ->
// Previewing). On acquisition failure the session returns to Idle and the
// error wraps ErrDevice.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return fmt.Errorf("session is closed")
	}
	if s.state != StateIdle {
		cur := s.state
		s.mu.Unlock()
		return fmt.Errorf("can only start from idle state, current: %s", cur)
	}
	s.state = StateAcquiring
	s.mu.Unlock()

	return s.acquire(ctx)
}

// acquire requests a live stream and transitions to Previewing. The caller
// must have already moved the session into Acquiring.
func (s *Session) acquire(ctx context.Context) error {
	stream, err := s.device.Acquire(ctx, s.streamCfg)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		// Disposal raced the acquisition; do not resurrect the session.
		if stream != nil {
			stream.Close()
		}
		return fmt.Errorf("session is closed")
	}
	if err != nil {
		s.state = StateIdle
		s.mu.Unlock()
		slog.Error("device acquisition failed", "kind", s.kind, "error", err)
		return fmt.Errorf("%w: %v", ErrDevice, err)
	}
	s.stream = stream
	s.monitor = NewMonitor(stream, s.kind)
	s.state = StatePreviewing
	s.mu.Unlock()

	slog.Info("device stream live", "kind", s.kind)
	return nil
}

// Record begins recording (Previewing -> Recording). The duration counter is
// reset to zero and a ticking timer increments it once per interval until the
// user stops or the hard cap forces a stop.
func (s *Session) Record() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StatePreviewing {
		return fmt.Errorf("can only record from previewing state, current: %s", s.state)
	}

	s.elapsed = 0
	s.chunks = nil
	s.stopOnce = &sync.Once{}
	s.stopChan = make(chan struct{})
	s.recDone = make(chan struct{})
	s.state = StateRecording

	go s.recordLoop(s.stream, s.stopChan, s.recDone)

	slog.Info("recording started", "kind", s.kind, "max_duration", s.maxDuration)
	return nil
}

// recordLoop collects encoded chunks and drives the duration counter. It is
// the only place the Recording -> Stopped transition happens, so stop events
// cannot race.
func (s *Session) recordLoop(stream Stream, stopChan, recDone chan struct{}) {
	defer close(recDone)

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	chunks := stream.Chunks()

	for {
		select {
		case <-stopChan:
			s.finalize()
			return

		case b, ok := <-chunks:
			if !ok {
				chunks = nil
				continue
			}
			s.mu.Lock()
			if s.state == StateRecording {
				s.chunks = append(s.chunks, b)
			}
			s.mu.Unlock()

		case <-ticker.C:
			s.mu.Lock()
			if s.state != StateRecording {
				s.mu.Unlock()
				return
			}
			s.elapsed++
			reached := s.elapsed >= s.maxDuration
			s.mu.Unlock()

			if reached {
				slog.Info("maximum duration reached, forcing stop", "kind", s.kind, "elapsed", s.maxDuration)
				s.finalize()
				return
			}
		}
	}
}

// finalize performs the Recording -> Stopped transition: concatenate the
// buffered chunks into the captured artifact and release the stream.
func (s *Session) finalize() {
	s.mu.Lock()
	if s.state != StateRecording {
		s.mu.Unlock()
		return
	}

	size := 0
	for _, c := range s.chunks {
		size += len(c)
	}
	data := make([]byte, 0, size)
	for _, c := range s.chunks {
		data = append(data, c...)
	}
	s.chunks = nil
	s.artifact = &review.Artifact{MIME: MIMEType(s.kind), Data: data}

	stream := s.stream
	monitor := s.monitor
	s.stream = nil
	s.monitor = nil
	s.state = StateStopped
	elapsed := s.elapsed
	s.mu.Unlock()

	if monitor != nil {
		monitor.Stop()
	}
	if stream != nil {
		stream.Close()
	}

	slog.Info("recording stopped", "kind", s.kind, "elapsed", elapsed, "artifact_bytes", size)
}

// Stop ends the current recording. It is a no-op when the session is not
// recording, so an explicit stop cannot race the automatic cap stop.
func (s *Session) Stop() error {
	s.mu.Lock()
	if s.state != StateRecording {
		s.mu.Unlock()
		return nil
	}
	once := s.stopOnce
	stopChan := s.stopChan
	recDone := s.recDone
	s.mu.Unlock()

	once.Do(func() { close(stopChan) })
	<-recDone
	return nil
}

// Reset discards the captured artifact and re-acquires a live stream for
// another take (Stopped -> Acquiring -> Previewing).
func (s *Session) Reset(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateStopped {
		cur := s.state
		s.mu.Unlock()
		return fmt.Errorf("can only reset from stopped state, current: %s", cur)
	}
	s.artifact = nil
	s.elapsed = 0
	s.state = StateAcquiring
	s.mu.Unlock()

	return s.acquire(ctx)
}

// Close tears the session down from any state. The stream and its monitor
// are released on every exit path, including error, so a disposed session
// never holds a camera or microphone lock.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	if s.state == StateRecording {
		s.mu.Unlock()
		s.Stop()
		s.mu.Lock()
	}
	s.closed = true
	stream := s.stream
	monitor := s.monitor
	s.stream = nil
	s.monitor = nil
	s.artifact = nil
	s.state = StateIdle
	s.mu.Unlock()

	if monitor != nil {
		monitor.Stop()
	}
	if stream != nil {
		stream.Close()
	}

	slog.Debug("session closed", "kind", s.kind)
	return nil
}

// State returns the current session state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Elapsed returns the number of whole seconds recorded so far.
func (s *Session) Elapsed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.elapsed
}

// MaxDuration returns the enforced recording cap in seconds.
func (s *Session) MaxDuration() int {
	return s.maxDuration
}

// Artifact returns the captured media artifact. It is present exactly when
// the session is in the Stopped state.
func (s *Session) Artifact() (*review.Artifact, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.artifact, s.artifact != nil
}

// Readings returns the live quality reading stream, or nil when no stream is
// active.
func (s *Session) Readings() <-chan Reading {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.monitor == nil {
		return nil
	}
	return s.monitor.Readings()
}

// Finish builds the terminal review record from the captured artifact. The
// session must be in the Stopped state.
func (s *Session) Finish() (review.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateStopped || s.artifact == nil {
		return review.Record{}, fmt.Errorf("no completed recording, current state: %s", s.state)
	}

	kind := review.KindVoice
	if s.kind == MediaVideo {
		kind = review.KindVideo
	}
	return review.NewMedia(kind, s.artifact, s.elapsed, time.Now())
}
