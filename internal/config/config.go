package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains the output and log locations.
type Paths struct {
	OutputDir string `toml:"output_dir"`
	LogFile   string `toml:"log_file"`
}

// Scraper contains settings for fetching the conference archive.
type Scraper struct {
	BaseURL               string `toml:"base_url"`
	IndexPath             string `toml:"index_path"`
	Language              string `toml:"language"`
	Workers               int    `toml:"workers"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"`
	RetryAttempts         int    `toml:"retry_attempts"`
	UserAgent             string `toml:"user_agent"`
}

// Topics contains settings for LLM topic extraction.
type Topics struct {
	Enabled           bool   `toml:"enabled"`
	Strict            bool   `toml:"strict"`
	APIKey            string `toml:"api_key"`
	BaseURL           string `toml:"base_url"`
	Model             string `toml:"model"`
	TimeoutSeconds    int    `toml:"timeout_seconds"`
	MinIntervalMillis int    `toml:"min_interval_ms"`
	MaxInputChars     int    `toml:"max_input_chars"`
	MaxTopics         int    `toml:"max_topics"`
}

// Output names the files written into Paths.OutputDir.
type Output struct {
	JSONArchive string `toml:"json_archive"`
	Database    string `toml:"database"`
	NoTextCopy  string `toml:"no_text_copy"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for conftalks.
//
// Configuration sections:
//   - Paths: output directory and optional log file
//   - Scraper: archive location, worker count, HTTP behaviour
//   - Topics: Groq topic extraction and strict mode
//   - Output: file names for the archive, database, and text-less copy
//   - Logging: log format and level
type Config struct {
	Paths   Paths   `toml:"paths"`
	Scraper Scraper `toml:"scraper"`
	Topics  Topics  `toml:"topics"`
	Output  Output  `toml:"output"`
	Logging Logging `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized. Overrides run after the environment is
// applied and before validation.
func Load(path string, overrides ...func(*Config)) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.applyEnvironment()
	for _, override := range overrides {
		override(&cfg)
	}
	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs(projectConfigName)
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// Finalize re-applies normalization and validation after callers override
// fields, for example from command-line flags.
func (c *Config) Finalize() error {
	if err := c.normalize(); err != nil {
		return err
	}
	return c.Validate()
}

// EnsureDirectories creates the output directory and the log file's parent.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.OutputDir}
	if strings.TrimSpace(c.Paths.LogFile) != "" {
		dirs = append(dirs, filepath.Dir(c.Paths.LogFile))
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath is the SQLite store location.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.OutputDir, c.Output.Database)
}

// ArchivePath is the JSON archive location.
func (c *Config) ArchivePath() string {
	return filepath.Join(c.Paths.OutputDir, c.Output.JSONArchive)
}

// NoTextPath is the location of the database copy without talk text. Empty
// when the copy is disabled.
func (c *Config) NoTextPath() string {
	if strings.TrimSpace(c.Output.NoTextCopy) == "" {
		return ""
	}
	return filepath.Join(c.Paths.OutputDir, c.Output.NoTextCopy)
}

// LockPath is the single-writer lock file inside the output directory.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.OutputDir, ".conftalks.lock")
}

// RequestTimeout converts the scraper timeout to a duration.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Scraper.RequestTimeoutSeconds) * time.Second
}

// TopicsMinInterval is the minimum spacing between topic requests.
func (c *Config) TopicsMinInterval() time.Duration {
	return time.Duration(c.Topics.MinIntervalMillis) * time.Millisecond
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// SampleConfig returns the embedded sample configuration.
func SampleConfig() string {
	return sampleConfig
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
