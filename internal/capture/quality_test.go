package capture

import (
	"bytes"
	"context"
	"testing"
	"time"
)

func TestBrightnessLevelThresholds(t *testing.T) {
	// Boundary values are deterministic: the thresholds are strict.
	cases := []struct {
		mean float64
		want Level
	}{
		{0, LevelPoor},
		{80, LevelPoor},
		{81, LevelFair},
		{120, LevelFair},
		{121, LevelGood},
		{255, LevelGood},
	}
	for _, tc := range cases {
		if got := brightnessLevel(tc.mean); got != tc.want {
			t.Errorf("brightnessLevel(%v) = %q, want %q", tc.mean, got, tc.want)
		}
	}
}

func TestBrightnessReadingUniformFrame(t *testing.T) {
	// A uniform RGB frame has mean brightness equal to the pixel value.
	for _, v := range []byte{80, 81, 120, 121} {
		frame := bytes.Repeat([]byte{v}, 30)
		r := brightnessReading(frame, time.Now())
		if r.Metric != MetricBrightness {
			t.Fatalf("metric = %q, want %q", r.Metric, MetricBrightness)
		}
		if r.Value != float64(v) {
			t.Errorf("value = %v, want %v", r.Value, float64(v))
		}
		if r.Level != brightnessLevel(float64(v)) {
			t.Errorf("level for %d = %q, want %q", v, r.Level, brightnessLevel(float64(v)))
		}
	}
}

func TestMeanBrightnessMixedPixels(t *testing.T) {
	// One dark pixel, one bright pixel: average of per-pixel channel means.
	frame := []byte{0, 0, 0, 255, 255, 255}
	if got := meanBrightness(frame); got != 127.5 {
		t.Errorf("meanBrightness = %v, want 127.5", got)
	}

	if got := meanBrightness(nil); got != 0 {
		t.Errorf("meanBrightness(nil) = %v, want 0", got)
	}
}

func TestNoiseReadingNormalization(t *testing.T) {
	cases := []struct {
		name string
		bins []byte
		want float64
	}{
		{"silence", bytes.Repeat([]byte{0}, 64), 0},
		{"half", bytes.Repeat([]byte{64}, 64), 0.5},
		{"reference", bytes.Repeat([]byte{128}, 64), 1},
		{"clamped", bytes.Repeat([]byte{255}, 64), 1},
		{"empty", nil, 0},
	}
	for _, tc := range cases {
		r := noiseReading(tc.bins, time.Now())
		if r.Value != tc.want {
			t.Errorf("%s: value = %v, want %v", tc.name, r.Value, tc.want)
		}
	}
}

func TestNoiseLevelCategories(t *testing.T) {
	cases := []struct {
		value float64
		want  Level
	}{
		{0.0, LevelGood},
		{0.4, LevelGood},
		{0.41, LevelFair},
		{0.7, LevelFair},
		{0.71, LevelPoor},
		{1.0, LevelPoor},
	}
	for _, tc := range cases {
		if got := noiseLevel(tc.value); got != tc.want {
			t.Errorf("noiseLevel(%v) = %q, want %q", tc.value, got, tc.want)
		}
	}
}

func TestMonitorEmitsIndependentReadings(t *testing.T) {
	d := NewSyntheticDevice()
	d.ChunkInterval = time.Millisecond
	d.SpectrumFrame = bytes.Repeat([]byte{64}, 32)

	stream, err := d.Acquire(context.Background(), StreamConfig{Kind: MediaAudio})
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer stream.Close()

	m := NewMonitor(stream, MediaAudio)
	defer m.Stop()

	// Each reading is computed from a single frame, so every reading from a
	// constant source carries the same value.
	for i := 0; i < 3; i++ {
		select {
		case r := <-m.Readings():
			if r.Value != 0.5 {
				t.Errorf("reading %d value = %v, want 0.5", i, r.Value)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("monitor emitted no reading")
		}
	}
}

func TestMonitorStopClosesReadings(t *testing.T) {
	d := NewSyntheticDevice()
	d.ChunkInterval = time.Millisecond

	stream, err := d.Acquire(context.Background(), StreamConfig{Kind: MediaAudio})
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer stream.Close()

	m := NewMonitor(stream, MediaAudio)
	m.Stop()
	m.Stop() // idempotent

	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-m.Readings():
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("readings channel not closed after Stop")
		}
	}
}
