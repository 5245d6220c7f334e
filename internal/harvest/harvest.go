package harvest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gofrs/flock"

	"conftalks/internal/config"
	"conftalks/internal/ingest"
	"conftalks/internal/logging"
	"conftalks/internal/scrape"
	"conftalks/internal/services/llm"
	"conftalks/internal/store"
	"conftalks/internal/talk"
	"conftalks/internal/topics"
)

// ErrLocked reports that another process holds the output directory lock.
var ErrLocked = errors.New("another conftalks run holds the output lock")

// Source produces raw records. *scrape.Scraper satisfies it.
type Source interface {
	Scrape(ctx context.Context) ([]talk.Record, scrape.Stats, error)
}

// Report summarizes a harvest.
type Report struct {
	Scrape       scrape.Stats
	Records      int
	Ingest       ingest.Summary
	ArchivePath  string
	DatabasePath string
	NoTextPath   string
	Elapsed      time.Duration
}

// Runner executes harvests against one configuration.
type Runner struct {
	cfg       *config.Config
	logger    *slog.Logger
	source    Source
	extractor topics.Extractor
}

// Option customizes a Runner.
type Option func(*Runner)

// WithLogger sets the logger passed to every stage.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithSource replaces the archive scraper.
func WithSource(source Source) Option {
	return func(r *Runner) {
		if source != nil {
			r.source = source
		}
	}
}

// WithExtractor replaces the topic extractor built from configuration.
func WithExtractor(extractor topics.Extractor) Option {
	return func(r *Runner) {
		if extractor != nil {
			r.extractor = extractor
		}
	}
}

// New builds a Runner. The scraper and topic extractor default to the ones
// described by cfg.
func New(cfg *config.Config, opts ...Option) *Runner {
	r := &Runner{cfg: cfg, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(r)
	}
	if r.source == nil {
		r.source = scrape.NewFromConfig(cfg, r.logger)
	}
	if r.extractor == nil {
		r.extractor = NewExtractor(cfg)
	}
	return r
}

// NewExtractor returns the configured topic client, or nil when topic
// extraction is disabled.
func NewExtractor(cfg *config.Config) topics.Extractor {
	if cfg == nil || !cfg.Topics.Enabled {
		return nil
	}
	return llm.NewClient(llm.Config{
		APIKey:         cfg.Topics.APIKey,
		BaseURL:        cfg.Topics.BaseURL,
		Model:          cfg.Topics.Model,
		TimeoutSeconds: cfg.Topics.TimeoutSeconds,
		MinInterval:    cfg.TopicsMinInterval(),
		MaxInputChars:  cfg.Topics.MaxInputChars,
	})
}

// Scrape runs the full pipeline from the live archive.
func (r *Runner) Scrape(ctx context.Context) (Report, error) {
	return r.locked(ctx, func(report *Report) error {
		records, stats, err := r.source.Scrape(ctx)
		report.Scrape = stats
		if err != nil {
			return fmt.Errorf("scrape: %w", err)
		}
		records = Prepare(records)
		report.Records = len(records)

		report.ArchivePath = r.cfg.ArchivePath()
		if err := talk.WriteJSON(report.ArchivePath, records); err != nil {
			return err
		}
		r.logger.Info("archive written",
			logging.String("path", report.ArchivePath),
			logging.Int("records", len(records)),
		)
		return r.load(ctx, records, report)
	})
}

// Load ingests an existing JSON archive. An empty path means the configured
// archive location.
func (r *Runner) Load(ctx context.Context, archivePath string) (Report, error) {
	if archivePath == "" {
		archivePath = r.cfg.ArchivePath()
	}
	return r.locked(ctx, func(report *Report) error {
		records, err := talk.ReadJSON(archivePath)
		if err != nil {
			return err
		}
		records = Prepare(records)
		report.ArchivePath = archivePath
		report.Records = len(records)
		return r.load(ctx, records, report)
	})
}

// Prepare cleans every record and applies the archive ordering.
func Prepare(records []talk.Record) []talk.Record {
	prepared := make([]talk.Record, len(records))
	for i, rec := range records {
		prepared[i] = rec.Clean()
	}
	talk.Sort(prepared)
	return prepared
}

func (r *Runner) locked(ctx context.Context, run func(*Report) error) (Report, error) {
	var report Report
	if err := r.cfg.EnsureDirectories(); err != nil {
		return report, err
	}
	lock := flock.New(r.cfg.LockPath())
	ok, err := lock.TryLock()
	if err != nil {
		return report, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return report, fmt.Errorf("%w: %s", ErrLocked, r.cfg.LockPath())
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			r.logger.Warn("failed to release output lock", logging.Error(err))
		}
	}()

	started := time.Now()
	err = run(&report)
	report.Elapsed = time.Since(started)
	return report, err
}

func (r *Runner) load(ctx context.Context, records []talk.Record, report *Report) error {
	report.DatabasePath = r.cfg.DatabasePath()
	st, err := store.Open(report.DatabasePath)
	if err != nil {
		return err
	}
	defer st.Close()

	gate := topics.NewGate(r.extractor,
		topics.WithStrict(r.cfg.Topics.Strict),
		topics.WithMaxTopics(r.cfg.Topics.MaxTopics),
		topics.WithLogger(r.logger),
	)
	if gate.Enabled() {
		r.logger.Info("topic extraction enabled", logging.Bool("strict", gate.Strict()))
	}
	loader := ingest.NewLoader(st, ingest.WithGate(gate), ingest.WithLogger(r.logger))
	summary, runErr := loader.Run(ctx, records)
	report.Ingest = summary
	if ctx.Err() != nil {
		return runErr
	}

	if err := st.Compact(ctx); err != nil {
		return errors.Join(runErr, err)
	}
	if noText := r.cfg.NoTextPath(); noText != "" {
		if err := st.ExportWithoutText(ctx, noText); err != nil {
			return errors.Join(runErr, err)
		}
		report.NoTextPath = noText
		r.logger.Info("text-less copy written", logging.String("path", noText))
	}
	return runErr
}
