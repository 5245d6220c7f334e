package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"conftalks/internal/services"
)

type chatRequest struct {
	Model          string            `json:"model"`
	Messages       []chatMessage     `json:"messages"`
	Temperature    float64           `json:"temperature"`
	MaxTokens      int               `json:"max_tokens,omitempty"`
	TopP           float64           `json:"top_p,omitempty"`
	ResponseFormat map[string]string `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// statusError is a non-2xx reply. It stays in the chain under the marker so
// the retry loop can honour Retry-After.
type statusError struct {
	Code       int
	Body       string
	RetryAfter time.Duration
}

func (e *statusError) Error() string {
	return fmt.Sprintf("http %d: %s", e.Code, e.Body)
}

func statusMarker(code int) error {
	switch {
	case code == http.StatusUnauthorized, code == http.StatusForbidden:
		return services.ErrConfiguration
	case code == http.StatusRequestTimeout, code == http.StatusTooManyRequests, code >= http.StatusInternalServerError:
		return services.ErrTransient
	default:
		return services.ErrValidation
	}
}

// send performs one POST and decodes the completion envelope. The raw body is
// returned for diagnostics.
func (c *Client) send(ctx context.Context, op string, payload chatRequest) (chatResponse, []byte, error) {
	var completion chatResponse
	encoded, err := json.Marshal(payload)
	if err != nil {
		return completion, nil, services.Wrap(services.ErrValidation, component, op, "encode body", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL, bytes.NewReader(encoded))
	if err != nil {
		return completion, nil, services.Wrap(services.ErrConfiguration, component, op, "build request", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return completion, nil, c.transportError(ctx, op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return completion, nil, c.transportError(ctx, op, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		retryAfter, _ := parseRetryAfter(resp.Header.Get("Retry-After"), time.Now())
		statusErr := &statusError{
			Code:       resp.StatusCode,
			Body:       summarizeSnippet(string(body)),
			RetryAfter: retryAfter,
		}
		return completion, body, services.Wrap(statusMarker(resp.StatusCode), component, op, "", statusErr)
	}
	if err := json.Unmarshal(body, &completion); err != nil {
		return completion, body, services.Wrap(services.ErrValidation, component, op, "decode response", err)
	}
	if completion.Error != nil {
		return completion, body, services.Wrap(services.ErrValidation, component, op, "api error", errors.New(strings.TrimSpace(completion.Error.Message)))
	}
	return completion, body, nil
}

func (c *Client) transportError(ctx context.Context, op string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return services.Wrap(services.ErrTimeout, component, op, fmt.Sprintf("no response within %s", c.timeout()), err)
	}
	return services.Wrap(services.ErrTransient, component, op, "request failed", err)
}
