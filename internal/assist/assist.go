// Package assist provides the canned guide persona shown alongside the
// review flow. Responses are templates keyed by stage and review kind,
// with light personalization on top.
package assist

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/reviewbooth/reviewbooth/internal/review"
)

//go:embed responses.yaml
var responsesYAML []byte

// Stage is a point in the review flow.
type Stage string

const (
	StageWelcome   Stage = "welcome"
	StageRecording Stage = "recording"
	StagePreview   Stage = "preview"
	StageComplete  Stage = "complete"
)

// Response is one guide message with optional follow-up suggestions.
type Response struct {
	Message     string   `yaml:"message" json:"message"`
	Suggestions []string `yaml:"suggestions" json:"suggestions"`
	Emotion     string   `yaml:"emotion" json:"emotion"`
}

var emojiMap = map[string]string{
	"friendly":    "😊",
	"encouraging": "💪",
	"helpful":     "🤝",
	"excited":     "🎉",
	"thoughtful":  "💭",
}

// Actor serves guide responses for the review flow.
type Actor struct {
	templates map[string]Response
}

// NewActor loads the embedded response templates.
func NewActor() (*Actor, error) {
	var templates map[string]Response
	if err := yaml.Unmarshal(responsesYAML, &templates); err != nil {
		return nil, fmt.Errorf("failed to parse response templates: %w", err)
	}
	if _, ok := templates["default"]; !ok {
		return nil, fmt.Errorf("response templates missing 'default' entry")
	}
	return &Actor{templates: templates}, nil
}

// Context describes where the user is in the flow.
type Context struct {
	Kind            review.Kind
	Stage           Stage
	DurationSeconds int
	UserInput       string
}

// Respond picks the template for the stage and kind, falling back to the
// default template for unknown combinations.
func (a *Actor) Respond(ctx Context) Response {
	key := fmt.Sprintf("%s_%s", ctx.Stage, ctx.Kind)
	resp, ok := a.templates[key]
	if !ok {
		resp = a.templates["default"]
	}
	resp.Message = personalize(resp.Message, ctx)
	return resp
}

func personalize(message string, ctx Context) string {
	if ctx.DurationSeconds > 60 {
		message += " I can tell you're really taking your time to be thorough - that's wonderful!"
	}
	if len(ctx.UserInput) > 200 {
		message += " I love how detailed you're being!"
	}
	return message
}

// Emoji maps an emotion to its display emoji.
func Emoji(emotion string) string {
	if e, ok := emojiMap[emotion]; ok {
		return e
	}
	return emojiMap["helpful"]
}

// LiveGuidance returns short hints to surface during an active recording.
func LiveGuidance(kind review.Kind, stage Stage) []string {
	if stage != StageRecording {
		return nil
	}
	switch kind {
	case review.KindVoice:
		return []string{
			"Your voice sounds clear and natural!",
			"Take your time - no need to rush",
		}
	case review.KindVideo:
		return []string{
			"Great eye contact with the camera!",
			"Your lighting looks perfect",
			"Natural gestures are working well",
		}
	case review.KindWritten:
		return []string{
			"You're expressing yourself beautifully",
			"Take all the time you need",
		}
	}
	return nil
}
