package review

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// Kind identifies how a review was captured.
type Kind string

const (
	KindWritten Kind = "written"
	KindVoice   Kind = "voice"
	KindVideo   Kind = "video"
)

// MaxWrittenLength is the character limit for written reviews.
const MaxWrittenLength = 500

// Artifact is the final binary media buffer produced by a completed recording.
type Artifact struct {
	MIME string `json:"mime"`
	Data []byte `json:"data"`
}

// Record is a single captured review. It is constructed once, at the moment
// the user confirms, and never modified afterwards.
type Record struct {
	Kind            Kind      `json:"kind"`
	Text            string    `json:"text"`
	Artifact        *Artifact `json:"artifact,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
	DurationSeconds int       `json:"durationSeconds,omitempty"`
}

// NewWritten builds a written review record from free text.
func NewWritten(text string, createdAt time.Time) (Record, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Record{}, fmt.Errorf("written review text is required")
	}
	if n := utf8.RuneCountInString(text); n > MaxWrittenLength {
		return Record{}, fmt.Errorf("written review exceeds %d characters (got %d)", MaxWrittenLength, n)
	}
	return Record{
		Kind:      KindWritten,
		Text:      text,
		CreatedAt: createdAt,
	}, nil
}

// NewMedia builds a voice or video review record from a captured artifact.
// The caption embeds the final recording duration as minutes:seconds.
func NewMedia(kind Kind, artifact *Artifact, durationSeconds int, createdAt time.Time) (Record, error) {
	if kind != KindVoice && kind != KindVideo {
		return Record{}, fmt.Errorf("media review kind must be voice or video, got %q", kind)
	}
	if artifact == nil || len(artifact.Data) == 0 {
		return Record{}, fmt.Errorf("media review requires a non-empty artifact")
	}
	label := "Voice"
	if kind == KindVideo {
		label = "Video"
	}
	return Record{
		Kind:            kind,
		Text:            fmt.Sprintf("%s recording (%s)", label, FormatDuration(durationSeconds)),
		Artifact:        artifact,
		CreatedAt:       createdAt,
		DurationSeconds: durationSeconds,
	}, nil
}

// Validate checks the structural invariants of a record.
func (r Record) Validate() error {
	switch r.Kind {
	case KindWritten:
		if r.Artifact != nil {
			return fmt.Errorf("written review must not carry a media artifact")
		}
	case KindVoice, KindVideo:
		if r.Artifact == nil || len(r.Artifact.Data) == 0 {
			return fmt.Errorf("%s review requires a media artifact", r.Kind)
		}
	default:
		return fmt.Errorf("unknown review kind %q", r.Kind)
	}
	if r.Text == "" {
		return fmt.Errorf("review content is required")
	}
	if r.CreatedAt.IsZero() {
		return fmt.Errorf("review timestamp is required")
	}
	return nil
}

// FormatDuration renders a duration in seconds as minutes:seconds.
func FormatDuration(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}
