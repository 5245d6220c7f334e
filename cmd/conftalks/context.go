package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"conftalks/internal/config"
	"conftalks/internal/logging"
)

type commandContext struct {
	configFlag  *string
	logFileFlag *string
	verbose     *bool

	overrides []func(*config.Config)

	configOnce   sync.Once
	config       *config.Config
	configPath   string
	configExists bool
	configErr    error
}

func newCommandContext(configFlag, logFileFlag *string, verbose *bool) *commandContext {
	return &commandContext{
		configFlag:  configFlag,
		logFileFlag: logFileFlag,
		verbose:     verbose,
	}
}

// override registers a change applied to the loaded config before it is
// validated. Commands use it for flags that can satisfy validation.
func (c *commandContext) override(fn func(*config.Config)) {
	c.overrides = append(c.overrides, fn)
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		overrides := append([]func(*config.Config){c.applyGlobalFlags}, c.overrides...)
		cfg, resolved, exists, err := config.Load(path, overrides...)
		if err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = resolved
		c.configExists = exists
	})
	return c.config, c.configErr
}

func (c *commandContext) applyGlobalFlags(cfg *config.Config) {
	if c.logFileFlag != nil && strings.TrimSpace(*c.logFileFlag) != "" {
		cfg.Paths.LogFile = *c.logFileFlag
	}
	if c.verbose != nil && *c.verbose {
		cfg.Logging.Level = "debug"
	}
}

// logger builds the run logger. Console output goes to the command's error
// stream so tests can capture it.
func (c *commandContext) logger(cmd *cobra.Command, cfg *config.Config) (*slog.Logger, error) {
	outputs := []string{"stderr"}
	if cfg.Paths.LogFile != "" {
		outputs = append(outputs, cfg.Paths.LogFile)
	}
	logger, err := logging.New(logging.Options{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		OutputPaths: outputs,
		Console:     cmd.ErrOrStderr(),
	})
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return logger, nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}

func fprintf(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}
