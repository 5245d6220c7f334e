package main

import (
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"conftalks/internal/config"
	"conftalks/internal/harvest"
)

func newScrapeCommand(ctx *commandContext) *cobra.Command {
	var outputDir string
	var extractTopics bool
	var strictTopics bool
	var apiKey string
	var workers int

	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Scrape the conference archive and load it into SQLite",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			logger, err := ctx.logger(cmd, cfg)
			if err != nil {
				return err
			}
			report, err := harvest.New(cfg, harvest.WithLogger(logger)).Scrape(cmd.Context())
			printReport(cmd.OutOrStdout(), report, true)
			return err
		},
	}

	ctx.override(func(cfg *config.Config) {
		flags := cmd.Flags()
		if flags.Changed("output-dir") {
			cfg.Paths.OutputDir = outputDir
		}
		if flags.Changed("extract-topics") {
			cfg.Topics.Enabled = extractTopics
		}
		if flags.Changed("strict-topics") {
			cfg.Topics.Strict = strictTopics
			if strictTopics {
				cfg.Topics.Enabled = true
			}
		}
		if flags.Changed("groq-api-key") {
			cfg.Topics.APIKey = apiKey
		}
		if flags.Changed("workers") {
			cfg.Scraper.Workers = workers
		}
	})

	cmd.Flags().StringVar(&outputDir, "output-dir", "", "Directory for the archive and databases")
	cmd.Flags().BoolVar(&extractTopics, "extract-topics", false, "Extract topics for new talks with the Groq API")
	cmd.Flags().BoolVar(&strictTopics, "strict-topics", false, "Skip talks whose topic extraction fails")
	cmd.Flags().StringVar(&apiKey, "groq-api-key", "", "Groq API key (defaults to GROQ_API_KEY)")
	cmd.Flags().IntVar(&workers, "workers", 0, "Concurrent page fetches (0 uses the CPU count)")
	return cmd
}

func newLoadCommand(ctx *commandContext) *cobra.Command {
	var input string

	cmd := &cobra.Command{
		Use:   "load",
		Short: "Load an existing JSON archive into SQLite",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.logger(cmd, cfg)
			if err != nil {
				return err
			}
			report, err := harvest.New(cfg, harvest.WithLogger(logger)).Load(cmd.Context(), strings.TrimSpace(input))
			printReport(cmd.OutOrStdout(), report, false)
			return err
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "JSON archive to load (defaults to the configured archive)")
	return cmd
}

func printReport(out io.Writer, report harvest.Report, scraped bool) {
	if report.DatabasePath == "" {
		return
	}
	var rows [][]string
	if scraped {
		rows = append(rows,
			[]string{"Conferences", strconv.Itoa(report.Scrape.Conferences)},
			[]string{"Talk links", strconv.Itoa(report.Scrape.Links)},
			[]string{"Skipped pages", strconv.Itoa(report.Scrape.Skipped)},
			[]string{"Failed pages", strconv.Itoa(report.Scrape.Failed)},
		)
	}
	summary := report.Ingest
	rows = append(rows,
		[]string{"Records", strconv.Itoa(report.Records)},
		[]string{"Created", strconv.Itoa(summary.Created)},
		[]string{"Existing", strconv.Itoa(summary.Existing)},
		[]string{"Failed", strconv.Itoa(summary.Failed)},
		[]string{"Calling warnings", strconv.Itoa(summary.CallingWarnings)},
		[]string{"Topics", strconv.Itoa(summary.Topics)},
		[]string{"Elapsed", report.Elapsed.Round(time.Millisecond).String()},
	)
	fprintf(out, "%s\n", renderTable([]string{"Metric", "Value"}, rows, []columnAlignment{alignLeft, alignRight}))
	if report.ArchivePath != "" {
		fprintf(out, "Archive: %s\n", report.ArchivePath)
	}
	fprintf(out, "Database: %s\n", report.DatabasePath)
	if report.NoTextPath != "" {
		fprintf(out, "Copy without text: %s\n", report.NoTextPath)
	}
	if summary.RunID != "" {
		fprintf(out, "Run: %s\n", summary.RunID)
	}
}
