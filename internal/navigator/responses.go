package navigator

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// ErrMalformedOutput is returned (wrapped) when a generation response is not
// valid JSON or lacks a required field.
var ErrMalformedOutput = errors.New("malformed generation output")

type speakerResponse struct {
	NamedSpeaker      *string `json:"named_speaker"`
	IsSpeakerSpecific bool    `json:"is_speaker_specific"`
}

type themeResponse struct {
	SelectedThemes []string `json:"selected_themes"`
	Reasoning      string   `json:"reasoning"`
}

type episodeResponse struct {
	SelectedEpisodes []string `json:"selected_episodes"`
	SpeakerMatched   bool     `json:"speaker_matched"`
	Reasoning        string   `json:"reasoning"`
}

type topicResponse struct {
	SelectedTopics []string `json:"selected_topics"`
	Reasoning      string   `json:"reasoning"`
}

type sufficiencyResponse struct {
	Sufficient      bool     `json:"sufficient"`
	Confidence      float64  `json:"confidence"`
	AnsweredAspects []string `json:"answered_aspects"`
	MissingAspects  []string `json:"missing_aspects"`
	SuggestedThemes []string `json:"suggested_themes"`
}

var (
	optionalString = map[string]any{"type": []string{"string", "null"}}
	optionalBool   = map[string]any{"type": []string{"boolean", "null"}}
	stringList     = map[string]any{"type": "array", "items": map[string]any{"type": "string"}}
	optionalList   = map[string]any{"type": []string{"array", "null"}, "items": map[string]any{"type": "string"}}
)

func objectSchema(required []string, properties map[string]any) *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(map[string]any{
		"type":       "object",
		"required":   required,
		"properties": properties,
	}))
	if err != nil {
		panic(fmt.Sprintf("navigator: invalid response schema: %v", err))
	}
	return schema
}

var (
	speakerSchema = objectSchema([]string{"is_speaker_specific"}, map[string]any{
		"named_speaker":       optionalString,
		"is_speaker_specific": map[string]any{"type": "boolean"},
	})
	themeSchema = objectSchema([]string{"selected_themes"}, map[string]any{
		"selected_themes": stringList,
		"reasoning":       optionalString,
	})
	episodeSchema = objectSchema([]string{"selected_episodes"}, map[string]any{
		"selected_episodes": stringList,
		"speaker_matched":   optionalBool,
		"reasoning":         optionalString,
	})
	topicSchema = objectSchema([]string{"selected_topics"}, map[string]any{
		"selected_topics": stringList,
		"reasoning":       optionalString,
	})
	sufficiencySchema = objectSchema([]string{"sufficient", "confidence"}, map[string]any{
		"sufficient":       map[string]any{"type": "boolean"},
		"confidence":       map[string]any{"type": "number"},
		"answered_aspects": optionalList,
		"missing_aspects":  optionalList,
		"suggested_themes": optionalList,
	})
)

// decodeResponse validates raw against schema and unmarshals it into T.
// Any failure wraps ErrMalformedOutput.
func decodeResponse[T any](step, raw string, schema *gojsonschema.Schema) (T, error) {
	var out T
	raw = stripCodeFence(raw)

	result, err := schema.Validate(gojsonschema.NewStringLoader(raw))
	if err != nil {
		return out, fmt.Errorf("%w: %s: %v", ErrMalformedOutput, step, err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return out, fmt.Errorf("%w: %s: %s", ErrMalformedOutput, step, strings.Join(msgs, "; "))
	}

	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return out, fmt.Errorf("%w: %s: %v", ErrMalformedOutput, step, err)
	}
	return out, nil
}

// stripCodeFence removes a surrounding ```json fence some models emit even
// in JSON mode.
func stripCodeFence(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
