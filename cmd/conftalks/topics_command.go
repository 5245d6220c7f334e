package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"conftalks/internal/services/llm"
)

func newTopicsCommand(ctx *commandContext) *cobra.Command {
	topicsCmd := &cobra.Command{
		Use:   "topics",
		Short: "Topic extraction utilities",
	}
	topicsCmd.AddCommand(newTopicsCheckCommand(ctx))
	return topicsCmd
}

func newTopicsCheckCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify the Groq API key and model respond",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if cfg.Topics.APIKey == "" {
				return errors.New("topics.api_key is not set (export GROQ_API_KEY or edit the config file)")
			}
			client := llm.NewClient(llm.Config{
				APIKey:         cfg.Topics.APIKey,
				BaseURL:        cfg.Topics.BaseURL,
				Model:          cfg.Topics.Model,
				TimeoutSeconds: cfg.Topics.TimeoutSeconds,
			}, llm.WithRetryMaxAttempts(1))
			if err := client.HealthCheck(cmd.Context()); err != nil {
				return fmt.Errorf("topic service unavailable: %w", err)
			}
			fprintf(cmd.OutOrStdout(), "Topic service reachable (model %s)\n", cfg.Topics.Model)
			return nil
		},
	}
}
