package topics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"conftalks/internal/logging"
)

// ErrEnrichmentFailed reports that topics could not be produced for a talk
// while strict mode was on.
var ErrEnrichmentFailed = errors.New("topic enrichment failed")

// Extractor produces raw topic strings for a talk body.
type Extractor interface {
	ExtractTopics(ctx context.Context, text string) ([]string, error)
}

// Gate decides whether and how to call the extractor.
type Gate struct {
	extractor   Extractor
	strict      bool
	maxTopics   int
	minInterval time.Duration
	logger      *slog.Logger
	now         func() time.Time
	sleep       func(context.Context, time.Duration) error
	lastCall    time.Time
}

// Option customizes a Gate.
type Option func(*Gate)

// WithStrict turns extraction failures into ErrEnrichmentFailed.
func WithStrict(strict bool) Option {
	return func(g *Gate) {
		g.strict = strict
	}
}

// WithMaxTopics caps the number of topics kept per talk.
func WithMaxTopics(limit int) Option {
	return func(g *Gate) {
		if limit > 0 {
			g.maxTopics = limit
		}
	}
}

// WithMinInterval enforces a minimum spacing between extractor calls.
func WithMinInterval(interval time.Duration) Option {
	return func(g *Gate) {
		if interval > 0 {
			g.minInterval = interval
		}
	}
}

// WithLogger sets the logger used for warnings and lenient failures.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Gate) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// WithClock overrides the time source and sleeper used for pacing.
func WithClock(now func() time.Time, sleep func(context.Context, time.Duration) error) Option {
	return func(g *Gate) {
		if now != nil {
			g.now = now
		}
		if sleep != nil {
			g.sleep = sleep
		}
	}
}

// NewGate wraps extractor. A nil extractor disables enrichment.
func NewGate(extractor Extractor, opts ...Option) *Gate {
	g := &Gate{
		extractor: extractor,
		maxTopics: DefaultMaxTopics,
		logger:    logging.NewNop(),
		now:       time.Now,
		sleep:     sleepContext,
	}
	for _, opt := range opts {
		opt(g)
	}
	g.logger = logging.NewComponentLogger(g.logger, "topics")
	return g
}

// Enabled reports whether an extractor is configured.
func (g *Gate) Enabled() bool {
	return g != nil && g.extractor != nil
}

// Strict reports whether failures abort the talk.
func (g *Gate) Strict() bool {
	return g != nil && g.strict
}

// Topics returns cleaned topics for text. Disabled gates and blank text return
// no topics without calling the extractor.
func (g *Gate) Topics(ctx context.Context, text string) ([]string, error) {
	if !g.Enabled() || strings.TrimSpace(text) == "" {
		return nil, nil
	}
	logger := logging.WithContext(ctx, g.logger)

	if err := g.pace(ctx); err != nil {
		return nil, g.fail(logger, err)
	}
	raw, err := g.extractor.ExtractTopics(ctx, text)
	g.lastCall = g.now()
	if err != nil {
		return nil, g.fail(logger, err)
	}

	topics := Clean(raw, g.maxTopics)
	if len(topics) == 0 {
		return nil, g.fail(logger, errors.New("no usable topics in response"))
	}
	if len(topics) < MinUsefulTopics {
		logging.WarnWithContext(logger, "few topics extracted", "topics_sparse",
			logging.Int("count", len(topics)),
			logging.String(logging.FieldErrorHint, "talk may be very short or the model ignored the prompt"),
			logging.String(logging.FieldImpact, "talk stored with fewer topics than expected"),
		)
	}
	return topics, nil
}

func (g *Gate) pace(ctx context.Context) error {
	if g.minInterval <= 0 || g.lastCall.IsZero() {
		return nil
	}
	wait := g.minInterval - g.now().Sub(g.lastCall)
	if wait <= 0 {
		return nil
	}
	return g.sleep(ctx, wait)
}

func (g *Gate) fail(logger *slog.Logger, err error) error {
	if g.strict {
		return fmt.Errorf("%w: %w", ErrEnrichmentFailed, err)
	}
	logging.ErrorWithContext(logger, "topic extraction failed", "topics_failed",
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "check topics.api_key and the topic service status"),
	)
	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
