package config

import (
	"errors"
	"fmt"
	"net/url"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateScraper(); err != nil {
		return err
	}
	if err := c.validateTopics(); err != nil {
		return err
	}
	if err := c.validateOutput(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateScraper() error {
	parsed, err := url.Parse(c.Scraper.BaseURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return fmt.Errorf("scraper.base_url must be an absolute http(s) URL, got %q", c.Scraper.BaseURL)
	}
	if c.Scraper.Workers < 0 {
		return errors.New("scraper.workers must be zero (auto) or positive")
	}
	if c.Scraper.RetryAttempts < 0 {
		return errors.New("scraper.retry_attempts must be zero or positive")
	}
	return nil
}

func (c *Config) validateTopics() error {
	if c.Topics.Enabled && c.Topics.APIKey == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = defaultConfigPath
		}
		return fmt.Errorf("topics.api_key is required when topics.enabled is true. Set GROQ_API_KEY, pass --groq-api-key, or edit %s (create with 'conftalks config init')", defaultPath)
	}
	if c.Topics.Strict && !c.Topics.Enabled {
		return errors.New("topics.strict requires topics.enabled")
	}
	if c.Topics.MinIntervalMillis < 0 {
		return errors.New("topics.min_interval_ms must be zero or positive")
	}
	if parsed, err := url.Parse(c.Topics.BaseURL); err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("topics.base_url must be an absolute URL, got %q", c.Topics.BaseURL)
	}
	return nil
}

func (c *Config) validateOutput() error {
	if c.Output.Database == c.Output.NoTextCopy {
		return errors.New("output.no_text_copy must differ from output.database")
	}
	if c.Output.JSONArchive == c.Output.Database {
		return errors.New("output.json_archive must differ from output.database")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
		return nil
	default:
		return fmt.Errorf("logging.level %q is not one of debug, info, warn, error", c.Logging.Level)
	}
}
