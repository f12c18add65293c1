package capture

import (
	"time"
)

// Metric identifies the signal a quality reading measures.
type Metric string

const (
	MetricNoise      Metric = "noise"
	MetricBrightness Metric = "brightness"
)

// Level is the three-step category shown to the user.
type Level string

const (
	LevelGood Level = "good"
	LevelFair Level = "fair"
	LevelPoor Level = "poor"
)

// Brightness category thresholds (mean pixel intensity, 0-255).
const (
	brightnessGood = 120
	brightnessFair = 80
)

// Noise category thresholds (normalized amplitude, 0-1).
const (
	noiseHigh   = 0.7
	noiseMedium = 0.4
)

// noiseReference is the fixed ceiling noise magnitudes are normalized by.
const noiseReference = 128.0

// Reading is an instantaneous derived quality signal. Readings are
// independent of one another and are not retained after display.
type Reading struct {
	Metric Metric
	Value  float64
	Level  Level
	At     time.Time
}

// brightnessInterval is the video sampling cadence.
const brightnessInterval = time.Second

// Monitor samples a live stream and emits quality readings until stopped.
// Readings that nobody is consuming are dropped rather than queued.
type Monitor struct {
	out  chan Reading
	stop chan struct{}
	done chan struct{}
}

// NewMonitor starts sampling the stream. Audio magnitude frames are analyzed
// as they arrive; video frames are sampled on a fixed interval, keeping only
// the most recent frame between ticks.
func NewMonitor(stream Stream, kind MediaKind) *Monitor {
	m := &Monitor{
		out:  make(chan Reading, 16),
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	go m.run(stream, kind)
	return m
}

// Readings returns the reading sequence. The channel is closed when the
// monitor stops.
func (m *Monitor) Readings() <-chan Reading {
	return m.out
}

// Stop cancels sampling and waits for the sampling goroutine to exit.
// Idempotent.
func (m *Monitor) Stop() {
	select {
	case <-m.stop:
	default:
		close(m.stop)
	}
	<-m.done
}

func (m *Monitor) run(stream Stream, kind MediaKind) {
	defer close(m.done)
	defer close(m.out)

	var ticker *time.Ticker
	var tick <-chan time.Time
	if kind == MediaVideo {
		ticker = time.NewTicker(brightnessInterval)
		tick = ticker.C
		defer ticker.Stop()
	}

	var latestFrame []byte
	spectrum := stream.Spectrum()
	frames := stream.Frames()

	for {
		select {
		case <-m.stop:
			return

		case bins, ok := <-spectrum:
			if !ok {
				spectrum = nil
				continue
			}
			m.emit(noiseReading(bins, time.Now()))

		case frame, ok := <-frames:
			if !ok {
				frames = nil
				continue
			}
			// Overwrite: only the newest frame matters at the next tick.
			latestFrame = frame

		case now := <-tick:
			if latestFrame == nil {
				continue
			}
			m.emit(brightnessReading(latestFrame, now))
		}
	}
}

func (m *Monitor) emit(r Reading) {
	select {
	case m.out <- r:
	default:
	}
}

// noiseReading computes the normalized noise amplitude of one magnitude
// frame: the mean bin value divided by the reference ceiling, clamped to
// [0,1]. No smoothing across frames.
func noiseReading(bins []byte, at time.Time) Reading {
	value := 0.0
	if len(bins) > 0 {
		total := 0
		for _, b := range bins {
			total += int(b)
		}
		value = float64(total) / float64(len(bins)) / noiseReference
		if value > 1 {
			value = 1
		}
	}
	return Reading{Metric: MetricNoise, Value: value, Level: noiseLevel(value), At: at}
}

func noiseLevel(value float64) Level {
	switch {
	case value > noiseHigh:
		return LevelPoor
	case value > noiseMedium:
		return LevelFair
	default:
		return LevelGood
	}
}

// brightnessReading computes the mean (R+G+B)/3 intensity of an RGB24 frame
// and maps it onto the fixed three-level category.
func brightnessReading(frame []byte, at time.Time) Reading {
	value := meanBrightness(frame)
	return Reading{Metric: MetricBrightness, Value: value, Level: brightnessLevel(value), At: at}
}

func meanBrightness(frame []byte) float64 {
	pixels := len(frame) / 3
	if pixels == 0 {
		return 0
	}
	total := 0.0
	for i := 0; i+2 < len(frame); i += 3 {
		total += float64(int(frame[i])+int(frame[i+1])+int(frame[i+2])) / 3.0
	}
	return total / float64(pixels)
}

func brightnessLevel(mean float64) Level {
	switch {
	case mean > brightnessGood:
		return LevelGood
	case mean > brightnessFair:
		return LevelFair
	default:
		return LevelPoor
	}
}
