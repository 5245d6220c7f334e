package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"conftalks/internal/services"
)

type chatResponse struct {
	Choices []chatChoice `json:"choices"`
	Error   *struct {
		Message string `json:"message"`
	} `json:"error"`
}

type chatChoice struct {
	Message chatReply `json:"message"`
	// Streaming shape, returned by some providers even when stream=false.
	Delta chatReply `json:"delta"`
	// Completion-style responses.
	Text         string `json:"text"`
	FinishReason string `json:"finish_reason"`
}

type chatReply struct {
	Content      string        `json:"content"`
	ToolCalls    []toolCall    `json:"tool_calls"`
	FunctionCall *functionCall `json:"function_call"`
	Refusal      string        `json:"refusal"`
}

type toolCall struct {
	Type     string       `json:"type"`
	ID       string       `json:"id"`
	Function functionCall `json:"function"`
}

type functionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// text returns the first non-empty payload a reply carries: plain content,
// then legacy function arguments, then tool call arguments.
func (r chatReply) text() string {
	if content := strings.TrimSpace(r.Content); content != "" {
		return content
	}
	if r.FunctionCall != nil {
		if args := strings.TrimSpace(r.FunctionCall.Arguments); args != "" {
			return args
		}
	}
	for _, call := range r.ToolCalls {
		if args := strings.TrimSpace(call.Function.Arguments); args != "" {
			return args
		}
	}
	return ""
}

// completionContent picks the usable text out of a completion. An empty
// result is a transient error carrying the finish reason, any refusal, and a
// snippet of the raw body.
func completionContent(op string, completion chatResponse, body []byte) (string, error) {
	if len(completion.Choices) == 0 {
		return "", services.Wrap(services.ErrTransient, component, op, "empty choices", errors.New(summarizeSnippet(string(body))))
	}
	var finishReason, refusal string
	for _, choice := range completion.Choices {
		if finishReason == "" {
			finishReason = strings.TrimSpace(choice.FinishReason)
		}
		if refusal == "" {
			refusal = strings.TrimSpace(choice.Message.Refusal + choice.Delta.Refusal)
		}
		for _, candidate := range []string{choice.Message.text(), choice.Delta.text(), strings.TrimSpace(choice.Text)} {
			if candidate != "" {
				return candidate, nil
			}
		}
	}
	detail := fmt.Sprintf("empty content (finish_reason=%q, refusal=%q, response_snippet=%s)",
		finishReason, refusal, summarizeSnippet(string(body)))
	return "", services.Wrap(services.ErrTransient, component, op, detail, nil)
}

// DecodeJSON unmarshals a model reply into target. Replies wrapped in a
// markdown code fence or surrounded by prose are unwrapped first.
func DecodeJSON(content string, target any) error {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return errors.New("empty payload")
	}
	err := json.Unmarshal([]byte(trimmed), target)
	if err == nil {
		return nil
	}
	extracted := extractJSON(trimmed)
	if extracted == "" || extracted == trimmed {
		return fmt.Errorf("%w (payload snippet: %s)", err, summarizeSnippet(trimmed))
	}
	if err := json.Unmarshal([]byte(extracted), target); err != nil {
		return fmt.Errorf("%w (extracted payload snippet: %s)", err, summarizeSnippet(extracted))
	}
	return nil
}

func extractJSON(content string) string {
	body := stripCodeFence(content)
	if body == "" || body[0] == '{' || body[0] == '[' {
		return body
	}
	for _, pair := range [][2]string{{"{", "}"}, {"[", "]"}} {
		start := strings.Index(body, pair[0])
		end := strings.LastIndex(body, pair[1])
		if start >= 0 && end > start {
			return strings.TrimSpace(body[start : end+1])
		}
	}
	return body
}

func stripCodeFence(content string) string {
	body, ok := strings.CutPrefix(strings.TrimSpace(content), "```")
	if !ok {
		return strings.TrimSpace(content)
	}
	body = strings.TrimLeft(body, " \t\r\n")
	if len(body) >= 4 && strings.EqualFold(body[:4], "json") {
		body = body[4:]
	}
	if idx := strings.LastIndex(body, "```"); idx >= 0 {
		body = body[:idx]
	}
	return strings.TrimSpace(body)
}

const snippetLimit = 160

func summarizeSnippet(content string) string {
	clean := strings.Join(strings.Fields(content), " ")
	if clean == "" {
		return "<empty>"
	}
	if runes := []rune(clean); len(runes) > snippetLimit {
		return string(runes[:snippetLimit]) + "..."
	}
	return clean
}
