package testsupport

import (
	"path/filepath"
	"testing"

	"conftalks/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with a unique temp output directory per
// test. Topic extraction is disabled and pacing is zeroed so tests never wait.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.OutputDir = filepath.Join(base, "data")
	cfgVal.Topics.MinIntervalMillis = 0
	cfgVal.Scraper.RetryAttempts = 0
	cfgVal.Scraper.RequestTimeoutSeconds = 5

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithTopics enables topic extraction against baseURL with the given key.
func WithTopics(baseURL, key string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Topics.Enabled = true
		b.cfg.Topics.APIKey = key
		b.cfg.Topics.BaseURL = baseURL
	}
}

// WithScraperBaseURL points the scraper at a test server.
func WithScraperBaseURL(baseURL string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Scraper.BaseURL = baseURL
	}
}

// WithoutTextCopy disables the text-less database export.
func WithoutTextCopy() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Output.NoTextCopy = ""
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.OutputDir)
}
