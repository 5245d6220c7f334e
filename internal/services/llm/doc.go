// Package llm provides an OpenAI-compatible chat client used for topic
// extraction. The defaults target Groq's chat completions endpoint.
//
// # Entry Points
//
// NewClient: construct client from Config.
// Client.ExtractTopics: send a talk's text, receive the raw topic list.
// Client.HealthCheck: verify API key and model availability.
//
// # Pacing
//
// When Config.MinInterval is set, ExtractTopics waits on a token-bucket
// limiter (golang.org/x/time/rate) so successive calls are spaced at least
// that far apart. Retries inside one call are not counted against it.
//
// # Errors and Retries
//
// Failures carry the services markers: 401/403 are configuration errors,
// 408/429/5xx and empty completions are transient, network timeouts are
// timeouts, and any other status is a validation error. Transient and timeout
// failures are retried with exponential backoff (base 1s, max 10s, up to 5
// attempts by default). A Retry-After header overrides the computed delay.
// Context cancellation aborts retries immediately.
package llm
