package scrape

import (
	"context"
	"log/slog"
	"net/http"
	"runtime"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"conftalks/internal/config"
	"conftalks/internal/logging"
	"conftalks/internal/talk"
)

const defaultRetryDelay = 500 * time.Millisecond

// Options configures a Scraper.
type Options struct {
	BaseURL       string
	IndexPath     string
	Language      string
	UserAgent     string
	Workers       int
	Timeout       time.Duration
	RetryAttempts int
	RetryDelay    time.Duration
	HTTPClient    *http.Client
	Logger        *slog.Logger
	Sleep         func(context.Context, time.Duration) error
}

// Scraper walks the conference archive.
type Scraper struct {
	baseURL       string
	indexPath     string
	language      string
	userAgent     string
	workers       int
	retryAttempts int
	retryDelay    time.Duration
	httpClient    *http.Client
	logger        *slog.Logger
	sleep         func(context.Context, time.Duration) error
}

// Stats summarizes one Scrape call.
type Stats struct {
	Conferences int
	Links       int
	Records     int
	Skipped     int
	Failed      int
}

// New builds a Scraper. Workers <= 0 means runtime.NumCPU().
func New(opts Options) *Scraper {
	s := &Scraper{
		baseURL:       strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/"),
		indexPath:     opts.IndexPath,
		language:      strings.TrimSpace(opts.Language),
		userAgent:     opts.UserAgent,
		workers:       opts.Workers,
		retryAttempts: opts.RetryAttempts,
		retryDelay:    opts.RetryDelay,
		httpClient:    opts.HTTPClient,
		logger:        opts.Logger,
		sleep:         opts.Sleep,
	}
	if s.indexPath == "" {
		s.indexPath = "/study/general-conference"
	}
	if s.workers <= 0 {
		s.workers = runtime.NumCPU()
	}
	if s.retryAttempts < 0 {
		s.retryAttempts = 0
	}
	if s.retryDelay <= 0 {
		s.retryDelay = defaultRetryDelay
	}
	if s.httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		s.httpClient = &http.Client{Timeout: timeout}
	}
	if s.logger == nil {
		s.logger = logging.NewNop()
	}
	s.logger = logging.NewComponentLogger(s.logger, component)
	if s.sleep == nil {
		s.sleep = sleepContext
	}
	return s
}

// NewFromConfig builds a Scraper from the scraper section of cfg.
func NewFromConfig(cfg *config.Config, logger *slog.Logger) *Scraper {
	return New(Options{
		BaseURL:       cfg.Scraper.BaseURL,
		IndexPath:     cfg.Scraper.IndexPath,
		Language:      cfg.Scraper.Language,
		UserAgent:     cfg.Scraper.UserAgent,
		Workers:       cfg.Scraper.Workers,
		Timeout:       cfg.RequestTimeout(),
		RetryAttempts: cfg.Scraper.RetryAttempts,
		Logger:        logger,
	})
}

// Scrape discovers every talk and returns the parsed records in discovery
// order. Only a failed index fetch or cancellation returns an error; page
// level failures are counted in Stats.
func (s *Scraper) Scrape(ctx context.Context) ([]talk.Record, Stats, error) {
	var stats Stats
	pages, err := s.ConferencePages(ctx)
	if err != nil {
		return nil, stats, err
	}
	stats.Conferences = len(pages)

	links, failedPages, err := s.collectLinks(ctx, pages)
	if err != nil {
		return nil, stats, err
	}
	stats.Links = len(links)
	stats.Failed += failedPages
	s.logger.Info("talk links discovered", logging.Int("count", len(links)))

	records, parsed, err := s.collectTalks(ctx, links)
	if err != nil {
		return nil, stats, err
	}
	stats.Records = len(records)
	stats.Skipped = parsed.skipped
	stats.Failed += parsed.failed
	s.logger.Info("talks scraped",
		logging.Int("records", stats.Records),
		logging.Int("skipped", stats.Skipped),
		logging.Int("failed", stats.Failed),
	)
	return records, stats, nil
}

func (s *Scraper) collectLinks(ctx context.Context, pages []string) ([]TalkLink, int, error) {
	perPage := make([][]TalkLink, len(pages))
	var (
		mu     sync.Mutex
		failed int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, page := range pages {
		g.Go(func() error {
			links, err := s.TalkLinks(gctx, page)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				logging.WarnWithContext(s.logger, "conference page unavailable", "conference_fetch_failed",
					logging.String(logging.FieldURL, page),
					logging.Error(err),
					logging.String(logging.FieldImpact, "talks from this conference are missing"),
				)
				mu.Lock()
				failed++
				mu.Unlock()
				return nil
			}
			perPage[i] = links
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}

	var all []TalkLink
	for _, links := range perPage {
		all = append(all, links...)
	}
	return all, failed, nil
}

type talkCounts struct {
	skipped int
	failed  int
}

func (s *Scraper) collectTalks(ctx context.Context, links []TalkLink) ([]talk.Record, talkCounts, error) {
	results := make([]*talk.Record, len(links))
	var (
		mu     sync.Mutex
		counts talkCounts
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, link := range links {
		g.Go(func() error {
			rec, ok, err := s.scrapeTalk(gctx, link)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				logging.WarnWithContext(s.logger, "talk page skipped", "talk_fetch_failed",
					logging.String(logging.FieldURL, link.URL),
					logging.Error(err),
					logging.String(logging.FieldImpact, "talk missing from this harvest"),
				)
				mu.Lock()
				counts.failed++
				mu.Unlock()
				return nil
			}
			if !ok {
				mu.Lock()
				counts.skipped++
				mu.Unlock()
				return nil
			}
			results[i] = &rec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, counts, err
	}

	records := make([]talk.Record, 0, len(results))
	for _, rec := range results {
		if rec != nil {
			records = append(records, *rec)
		}
	}
	return records, counts, nil
}

func (s *Scraper) scrapeTalk(ctx context.Context, link TalkLink) (talk.Record, bool, error) {
	doc, err := s.fetch(ctx, link.URL)
	if err != nil {
		return talk.Record{}, false, err
	}
	rec, ok, err := ParseTalk(doc, link)
	if err == nil && !ok {
		s.logger.Debug("non-talk page skipped", logging.String(logging.FieldURL, link.URL))
	}
	return rec, ok, err
}
