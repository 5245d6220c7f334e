package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"conftalks/internal/services"
)

type retryPolicy struct {
	attempts int
	base     time.Duration
	max      time.Duration
}

func defaultRetryPolicy() retryPolicy {
	return retryPolicy{attempts: 5, base: time.Second, max: 10 * time.Second}
}

func (p retryPolicy) maxAttempts() int {
	if p.attempts < 1 {
		return 1
	}
	return p.attempts
}

// delay doubles the base per attempt up to max. attempt is 1-based and names
// the attempt that just failed.
func (p retryPolicy) delay(attempt int) time.Duration {
	if p.base <= 0 {
		return 0
	}
	d := p.base
	for i := 1; i < attempt && (p.max <= 0 || d < p.max); i++ {
		d *= 2
	}
	return p.clamp(d)
}

func (p retryPolicy) clamp(d time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	if p.max > 0 && d > p.max {
		return p.max
	}
	return d
}

// complete sends payload until it yields content, a non-retryable error, or
// the attempts run out.
func (c *Client) complete(ctx context.Context, op string, payload chatRequest) (string, error) {
	attempts := c.retry.maxAttempts()
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		completion, body, err := c.send(ctx, op, payload)
		if err == nil {
			content, emptyErr := completionContent(op, completion, body)
			if emptyErr == nil {
				return content, nil
			}
			err = emptyErr
		}
		lastErr = err

		if ctx.Err() != nil || !services.Retryable(err) {
			return "", err
		}
		if attempt == attempts {
			break
		}
		if err := c.pause(ctx, c.retryDelay(err, attempt)); err != nil {
			return "", err
		}
	}
	return "", fmt.Errorf("%s %s: failed after %d attempts: %w", component, op, attempts, lastErr)
}

func (c *Client) retryDelay(err error, attempt int) time.Duration {
	var statusErr *statusError
	if errors.As(err, &statusErr) && statusErr.RetryAfter > 0 {
		return c.retry.clamp(statusErr.RetryAfter)
	}
	return c.retry.delay(attempt)
}

func (c *Client) pause(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d <= 0 {
		return nil
	}
	if c.sleeper != nil {
		c.sleeper(d)
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// parseRetryAfter reads either delta-seconds or an HTTP date.
func parseRetryAfter(value string, now time.Time) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds < 0 {
			return 0, false
		}
		return time.Duration(seconds) * time.Second, true
	}
	when, err := http.ParseTime(value)
	if err != nil {
		return 0, false
	}
	if d := when.Sub(now); d > 0 {
		return d, true
	}
	return 0, false
}
