package config

const (
	defaultConfigPath            = "~/.config/conftalks/config.toml"
	projectConfigName            = "conftalks.toml"
	defaultOutputDir             = "data"
	defaultScraperBaseURL        = "https://www.churchofjesuschrist.org"
	defaultScraperIndexPath      = "/study/general-conference"
	defaultScraperLanguage       = "eng"
	defaultRequestTimeoutSeconds = 30
	defaultRetryAttempts         = 3
	defaultUserAgent             = "conftalks/dev"
	defaultTopicsBaseURL         = "https://api.groq.com/openai/v1/chat/completions"
	defaultTopicsModel           = "llama-3.1-8b-instant"
	defaultTopicsTimeoutSeconds  = 60
	defaultTopicsMinIntervalMS   = 2100
	defaultTopicsMaxInputChars   = 4000
	defaultTopicsMaxTopics       = 10
	defaultJSONArchive           = "conference_talks.json"
	defaultDatabase              = "conference_talks.db"
	defaultNoTextCopy            = "conference_talks_no_text.db"
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			OutputDir: defaultOutputDir,
		},
		Scraper: Scraper{
			BaseURL:               defaultScraperBaseURL,
			IndexPath:             defaultScraperIndexPath,
			Language:              defaultScraperLanguage,
			RequestTimeoutSeconds: defaultRequestTimeoutSeconds,
			RetryAttempts:         defaultRetryAttempts,
			UserAgent:             defaultUserAgent,
		},
		Topics: Topics{
			BaseURL:           defaultTopicsBaseURL,
			Model:             defaultTopicsModel,
			TimeoutSeconds:    defaultTopicsTimeoutSeconds,
			MinIntervalMillis: defaultTopicsMinIntervalMS,
			MaxInputChars:     defaultTopicsMaxInputChars,
			MaxTopics:         defaultTopicsMaxTopics,
		},
		Output: Output{
			JSONArchive: defaultJSONArchive,
			Database:    defaultDatabase,
			NoTextCopy:  defaultNoTextCopy,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
