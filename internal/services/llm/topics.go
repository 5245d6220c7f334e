package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"

	"conftalks/internal/services"
)

// TopicsSystemPrompt instructs the model to answer with a JSON topic list.
const TopicsSystemPrompt = `You label General Conference talks of The Church of Jesus Christ of Latter-day Saints.
Extract 3-10 main topics from the talk the user sends. Topics are short noun phrases.
Respond with JSON only, in the form {"topics": ["topic one", "topic two"]}. No explanations.`

const (
	topicsTemperature = 0.2
	topicsTopP        = 0.9
	topicsMaxTokens   = 200
)

// topicList accepts either a JSON array of strings or a single comma-separated
// string; models occasionally ignore the array instruction.
type topicList []string

func (t *topicList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*t = nil
		return nil
	}
	if data[0] == '"' {
		var joined string
		if err := json.Unmarshal(data, &joined); err != nil {
			return err
		}
		*t = topicList{joined}
		return nil
	}
	var items []string
	if err := json.Unmarshal(data, &items); err != nil {
		return err
	}
	*t = items
	return nil
}

// ExtractTopics asks the model for the main topics of a talk. Text longer than
// Config.MaxInputChars is truncated, and calls wait on the client's rate
// limiter when Config.MinInterval is set. Returned topics are raw model output;
// callers clean them.
func (c *Client) ExtractTopics(ctx context.Context, text string) ([]string, error) {
	const op = "topics"
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, services.Wrap(services.ErrValidation, component, op, "text required", nil)
	}
	if c.cfg.APIKey == "" {
		return nil, services.Wrap(services.ErrConfiguration, component, op, "api key required", nil)
	}
	if limit := c.cfg.MaxInputChars; limit > 0 {
		if runes := []rune(text); len(runes) > limit {
			text = string(runes[:limit])
		}
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, services.Wrap(services.ErrTimeout, component, op, "pacing wait", err)
		}
	}

	payload := chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: TopicsSystemPrompt},
			{Role: "user", Content: text},
		},
		Temperature:    topicsTemperature,
		TopP:           topicsTopP,
		MaxTokens:      topicsMaxTokens,
		ResponseFormat: map[string]string{"type": jsonResponseType},
	}
	content, err := c.complete(ctx, op, payload)
	if err != nil {
		return nil, err
	}
	var parsed struct {
		Topics topicList `json:"topics"`
	}
	if err := DecodeJSON(content, &parsed); err != nil {
		return nil, services.Wrap(services.ErrValidation, component, op, "parse payload", err)
	}
	return []string(parsed.Topics), nil
}
