package webhook

import (
	"encoding/base64"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/reviewbooth/reviewbooth/internal/review"
)

// ErrEncoding marks payload encoding failures. An encoding failure aborts
// the submission and is treated as a submission failure by the pipeline.
var ErrEncoding = errors.New("payload encoding failed")

// Payload is the webhook wire format. Media is always carried as base64
// text; raw artifact bytes never appear in the JSON body directly.
type Payload struct {
	ReviewType string   `json:"reviewType"`
	Content    string   `json:"content"`
	Timestamp  string   `json:"timestamp"`
	Metadata   Metadata `json:"metadata"`
	Files      *Files   `json:"files,omitempty"`
}

// Metadata carries submission context. Duration and file size are derived
// from the artifact and are best-effort estimates, not measurements.
type Metadata struct {
	Duration  int    `json:"duration,omitempty"`
	FileSize  int    `json:"fileSize,omitempty"`
	UserAgent string `json:"userAgent"`
	SessionID string `json:"sessionId"`
	IsTest    bool   `json:"isTest,omitempty"`
}

// Files holds the base64-encoded media artifact.
type Files struct {
	Audio string `json:"audio,omitempty"`
	Video string `json:"video,omitempty"`
}

// Encode converts a review record into a transport payload. Media bytes are
// base64 encoded; the files section is present exactly when the record
// carries an artifact.
func Encode(rec review.Record, sess SessionContext) (Payload, error) {
	if err := rec.Validate(); err != nil {
		return Payload{}, fmt.Errorf("%w: %v", ErrEncoding, err)
	}

	p := Payload{
		ReviewType: string(rec.Kind),
		Content:    rec.Text,
		Timestamp:  rec.CreatedAt.UTC().Format(time.RFC3339),
		Metadata: Metadata{
			UserAgent: sess.UserAgent,
			SessionID: sess.ID,
		},
	}

	if rec.Artifact == nil {
		return p, nil
	}

	encoded := base64.StdEncoding.EncodeToString(rec.Artifact.Data)
	files := &Files{}
	switch rec.Kind {
	case review.KindVoice:
		files.Audio = encoded
	case review.KindVideo:
		files.Video = encoded
	default:
		return Payload{}, fmt.Errorf("%w: kind %q cannot carry media", ErrEncoding, rec.Kind)
	}
	p.Files = files
	p.Metadata.FileSize = len(rec.Artifact.Data)
	p.Metadata.Duration = durationSeconds(rec)
	return p, nil
}

// DecodeMedia reverses the media encoding back into the original artifact
// bytes.
func DecodeMedia(encoded string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		return nil, fmt.Errorf("decode media: %w", err)
	}
	return data, nil
}

// durationSeconds prefers the measured recording time tracked by the capture
// session, falling back to the byte-size heuristic (audio ~1 MB/min, video
// ~10 MB/min) when no measurement is available.
func durationSeconds(rec review.Record) int {
	if rec.DurationSeconds > 0 {
		return rec.DurationSeconds
	}
	return estimateDuration(rec.Kind, len(rec.Artifact.Data))
}

func estimateDuration(kind review.Kind, byteSize int) int {
	mb := float64(byteSize) / 1024 / 1024
	if kind == review.KindVideo {
		return int(math.Round(mb / 10 * 60))
	}
	return int(math.Round(mb * 60))
}
