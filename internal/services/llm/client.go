package llm

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"conftalks/internal/services"
)

const (
	component          = "llm"
	jsonResponseType   = "json_object"
	defaultBaseURL     = "https://api.groq.com/openai/v1/chat/completions"
	defaultModel       = "llama-3.1-8b-instant"
	defaultHTTPTimeout = 60 * time.Second
)

// Config captures the runtime settings required to talk to the LLM.
type Config struct {
	APIKey         string
	BaseURL        string
	Model          string
	TimeoutSeconds int
	// MinInterval spaces successive topic requests. Zero disables pacing.
	MinInterval time.Duration
	// MaxInputChars truncates talk text before it is sent. Zero disables
	// truncation.
	MaxInputChars int
}

// Client wraps an OpenAI-compatible chat completion API such as Groq.
type Client struct {
	cfg     Config
	http    *http.Client
	limiter *rate.Limiter
	retry   retryPolicy
	sleeper func(time.Duration)
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.http = client
		}
	}
}

// WithRetryMaxAttempts sets how many times one request is tried. Values
// below one mean a single attempt.
func WithRetryMaxAttempts(attempts int) Option {
	return func(c *Client) {
		c.retry.attempts = attempts
	}
}

// WithRetryBackoff sets the first retry delay and the ceiling it doubles to.
func WithRetryBackoff(baseDelay, maxDelay time.Duration) Option {
	return func(c *Client) {
		c.retry.base = baseDelay
		c.retry.max = maxDelay
	}
}

// WithSleeper replaces the context-aware timer used between retries.
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(c *Client) {
		c.sleeper = sleeper
	}
}

// NewClient constructs an LLM client using the supplied configuration.
func NewClient(cfg Config, opts ...Option) *Client {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	cfg.BaseURL = strings.TrimSpace(cfg.BaseURL)
	cfg.Model = strings.TrimSpace(cfg.Model)
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}

	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg:   cfg,
		http:  &http.Client{Timeout: timeout},
		retry: defaultRetryPolicy(),
	}
	for _, opt := range opts {
		opt(client)
	}
	if cfg.MinInterval > 0 {
		client.limiter = rate.NewLimiter(rate.Every(cfg.MinInterval), 1)
	}
	return client
}

// HealthCheck issues a fast ping to verify the API key and model are usable.
func (c *Client) HealthCheck(ctx context.Context) error {
	const op = "health"
	if c.cfg.APIKey == "" {
		return services.Wrap(services.ErrConfiguration, component, op, "api key required", nil)
	}
	content, err := c.complete(ctx, op, chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: "You must respond with JSON only."},
			{Role: "user", Content: `Respond with {"ok":true}`},
		},
		ResponseFormat: map[string]string{"type": jsonResponseType},
	})
	if err != nil {
		return err
	}
	var parsed struct {
		OK bool `json:"ok"`
	}
	if err := DecodeJSON(content, &parsed); err != nil {
		return services.Wrap(services.ErrValidation, component, op, "parse payload", err)
	}
	if !parsed.OK {
		return services.Wrap(services.ErrValidation, component, op, "unexpected response", errors.New(summarizeSnippet(content)))
	}
	return nil
}

func (c *Client) timeout() time.Duration {
	if c.http == nil || c.http.Timeout <= 0 {
		return defaultHTTPTimeout
	}
	return c.http.Timeout
}
