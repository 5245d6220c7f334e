package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeScraper()
	c.normalizeTopics()
	c.normalizeOutput()
	c.normalizeLogging()
	return nil
}

// applyEnvironment overlays environment variables onto file values. It runs
// once in Load so later flag overrides take precedence.
func (c *Config) applyEnvironment() {
	if value, ok := os.LookupEnv("CONFTALKS_OUTPUT_DIR"); ok && strings.TrimSpace(value) != "" {
		c.Paths.OutputDir = strings.TrimSpace(value)
	}
}

func (c *Config) normalizePaths() error {
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		c.Paths.OutputDir = defaultOutputDir
	}
	var err error
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	c.Paths.LogFile = strings.TrimSpace(c.Paths.LogFile)
	if c.Paths.LogFile != "" {
		if c.Paths.LogFile, err = expandPath(c.Paths.LogFile); err != nil {
			return fmt.Errorf("paths.log_file: %w", err)
		}
	}
	return nil
}

func (c *Config) normalizeScraper() {
	c.Scraper.BaseURL = strings.TrimRight(strings.TrimSpace(c.Scraper.BaseURL), "/")
	if c.Scraper.BaseURL == "" {
		c.Scraper.BaseURL = defaultScraperBaseURL
	}
	c.Scraper.IndexPath = strings.TrimSpace(c.Scraper.IndexPath)
	if c.Scraper.IndexPath == "" {
		c.Scraper.IndexPath = defaultScraperIndexPath
	}
	if !strings.HasPrefix(c.Scraper.IndexPath, "/") {
		c.Scraper.IndexPath = "/" + c.Scraper.IndexPath
	}
	c.Scraper.Language = strings.ToLower(strings.TrimSpace(c.Scraper.Language))
	if c.Scraper.Language == "" {
		c.Scraper.Language = defaultScraperLanguage
	}
	if c.Scraper.RequestTimeoutSeconds <= 0 {
		c.Scraper.RequestTimeoutSeconds = defaultRequestTimeoutSeconds
	}
	c.Scraper.UserAgent = strings.TrimSpace(c.Scraper.UserAgent)
	if c.Scraper.UserAgent == "" {
		c.Scraper.UserAgent = defaultUserAgent
	}
}

func (c *Config) normalizeTopics() {
	c.Topics.APIKey = strings.TrimSpace(c.Topics.APIKey)
	if c.Topics.APIKey == "" {
		if value, ok := os.LookupEnv("GROQ_API_KEY"); ok {
			c.Topics.APIKey = strings.TrimSpace(value)
		}
	}
	c.Topics.BaseURL = strings.TrimSpace(c.Topics.BaseURL)
	if c.Topics.BaseURL == "" {
		c.Topics.BaseURL = defaultTopicsBaseURL
	}
	c.Topics.Model = strings.TrimSpace(c.Topics.Model)
	if c.Topics.Model == "" {
		c.Topics.Model = defaultTopicsModel
	}
	if c.Topics.TimeoutSeconds <= 0 {
		c.Topics.TimeoutSeconds = defaultTopicsTimeoutSeconds
	}
	if c.Topics.MaxInputChars <= 0 {
		c.Topics.MaxInputChars = defaultTopicsMaxInputChars
	}
	if c.Topics.MaxTopics <= 0 {
		c.Topics.MaxTopics = defaultTopicsMaxTopics
	}
}

func (c *Config) normalizeOutput() {
	c.Output.JSONArchive = filepath.Base(strings.TrimSpace(c.Output.JSONArchive))
	if c.Output.JSONArchive == "" || c.Output.JSONArchive == "." {
		c.Output.JSONArchive = defaultJSONArchive
	}
	c.Output.Database = filepath.Base(strings.TrimSpace(c.Output.Database))
	if c.Output.Database == "" || c.Output.Database == "." {
		c.Output.Database = defaultDatabase
	}
	c.Output.NoTextCopy = strings.TrimSpace(c.Output.NoTextCopy)
	if c.Output.NoTextCopy != "" {
		c.Output.NoTextCopy = filepath.Base(c.Output.NoTextCopy)
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
