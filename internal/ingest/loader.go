package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"conftalks/internal/calling"
	"conftalks/internal/dimension"
	"conftalks/internal/logging"
	"conftalks/internal/speaker"
	"conftalks/internal/store"
	"conftalks/internal/talk"
	"conftalks/internal/topics"
)

// Store is the persistence surface the loader needs. *store.Store satisfies
// it.
type Store interface {
	dimension.DimensionStore
	FindTalk(ctx context.Context, title string, conferenceID int64) (int64, bool, error)
	CreateTalk(ctx context.Context, talk store.NewTalk) (int64, bool, error)
	RecordRun(ctx context.Context, run store.Run) error
}

// Result describes the outcome of ingesting one record.
type Result struct {
	Created        bool
	TalkID         int64
	Topics         []string
	CallingWarning bool
}

// Loader writes records through a Store. It is not safe for concurrent use.
type Loader struct {
	store    Store
	resolver *dimension.Resolver
	gate     *topics.Gate
	logger   *slog.Logger
	now      func() time.Time
	newRunID func() string
}

// Option customizes a Loader.
type Option func(*Loader)

// WithGate sets the topic enrichment gate. Without one no topics are written.
func WithGate(gate *topics.Gate) Option {
	return func(l *Loader) {
		if gate != nil {
			l.gate = gate
		}
	}
}

// WithLogger sets the loader's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithClock overrides the time source used for run timestamps.
func WithClock(now func() time.Time) Option {
	return func(l *Loader) {
		if now != nil {
			l.now = now
		}
	}
}

// WithRunIDs overrides run id generation.
func WithRunIDs(next func() string) Option {
	return func(l *Loader) {
		if next != nil {
			l.newRunID = next
		}
	}
}

// NewLoader constructs a loader with its own dimension cache.
func NewLoader(st Store, opts ...Option) *Loader {
	l := &Loader{
		store:    st,
		resolver: dimension.NewResolver(st, dimension.NewCache()),
		gate:     topics.NewGate(nil),
		logger:   logging.NewNop(),
		now:      time.Now,
		newRunID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(l)
	}
	l.logger = logging.NewComponentLogger(l.logger, "ingest")
	return l
}

// Ingest loads a single record. An existing talk with the same title and
// conference yields Created=false and writes nothing.
func (l *Loader) Ingest(ctx context.Context, rec talk.Record) (Result, error) {
	rec = rec.Clean()
	if err := rec.Validate(); err != nil {
		return Result{}, err
	}
	logger := logging.WithContext(ctx, l.logger).With(
		logging.String(logging.FieldTalk, rec.Title),
		logging.String(logging.FieldConference, rec.Period()),
	)

	conferenceID, err := l.resolver.Conference(ctx, rec.Year, string(rec.Season))
	if err != nil {
		return Result{}, err
	}

	var result Result
	role, err := calling.Parse(rec.Calling)
	if err != nil {
		if !errors.Is(err, calling.ErrUnsupportedCalling) {
			return Result{}, err
		}
		result.CallingWarning = true
		logging.WarnWithContext(logger, "calling not recognised", "calling_unsupported",
			logging.String("calling", rec.Calling),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "extend the calling rule table if this role is legitimate"),
			logging.String(logging.FieldImpact, "talk stored without a calling link"),
		)
	}

	var callingID int64
	if role.Known() {
		orgID, err := l.resolver.Organization(ctx, role.Organization, role.OrganizationRank)
		if err != nil {
			return Result{}, err
		}
		callingID, err = l.resolver.Calling(ctx, role.Name, orgID, role.Rank)
		if err != nil {
			return Result{}, err
		}
	}

	existingID, exists, err := l.store.FindTalk(ctx, rec.Title, conferenceID)
	if err != nil {
		return Result{}, err
	}
	if exists {
		result.TalkID = existingID
		logger.Debug("talk already stored", logging.Int64("talk_id", existingID))
		return result, nil
	}

	speakerID, err := l.resolveSpeaker(ctx, logger, rec.Speaker)
	if err != nil {
		return Result{}, err
	}

	// Topics must be settled before CreateTalk opens its transaction.
	topicList, err := l.gate.Topics(ctx, rec.Talk)
	if err != nil {
		return Result{}, err
	}

	id, created, err := l.store.CreateTalk(ctx, store.NewTalk{
		Title:        rec.Title,
		ConferenceID: conferenceID,
		Emeritus:     role.Emeritus,
		SpeakerID:    speakerID,
		CallingID:    callingID,
		Text:         rec.Talk,
		URL:          rec.URL,
		Topics:       topicList,
	})
	if err != nil {
		return Result{}, err
	}
	result.TalkID = id
	result.Created = created
	if created {
		result.Topics = topicList
		logger.Debug("talk created", logging.Int64("talk_id", id), logging.Int("topics", len(topicList)))
	} else {
		logger.Debug("talk already existed at insert", logging.Int64("talk_id", id))
	}
	return result, nil
}

func (l *Loader) resolveSpeaker(ctx context.Context, logger *slog.Logger, byline string) (int64, error) {
	parsed, ok := speaker.Parse(byline)
	if !ok {
		logging.WarnWithContext(logger, "talk has no speaker", "speaker_missing",
			logging.String(logging.FieldErrorHint, "check the byline selector for this page"),
			logging.String(logging.FieldImpact, "talk stored without a speaker link"),
		)
		return 0, nil
	}
	if parsed.LowConfidence {
		logger.Debug("speaker byline kept verbatim",
			logging.String("speaker", parsed.Name),
			logging.Error(speaker.ErrLowConfidence),
		)
	}
	return l.resolver.Speaker(ctx, parsed.Name)
}

// Summary totals one Run.
type Summary struct {
	RunID           string
	Processed       int
	Created         int
	Existing        int
	Failed          int
	CallingWarnings int
	Topics          int
	Duration        time.Duration
}

// Run ingests records in order. Per-record failures are logged and counted
// without stopping the batch. The dimension cache is reset first, and the run
// is recorded in ingest_runs when it finishes. When strict enrichment skipped
// any talk the returned error wraps topics.ErrEnrichmentFailed.
func (l *Loader) Run(ctx context.Context, records []talk.Record) (Summary, error) {
	summary := Summary{RunID: l.newRunID()}
	ctx = logging.WithRunID(ctx, summary.RunID)
	logger := logging.WithContext(ctx, l.logger)
	l.resolver.Cache().Reset()

	started := l.now()
	logger.Info("ingest started", logging.Int("records", len(records)))

	var enrichmentFailures int
	var runErr error
	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}
		summary.Processed++
		result, err := l.Ingest(ctx, rec)
		if result.CallingWarning {
			summary.CallingWarnings++
		}
		if err != nil {
			summary.Failed++
			if errors.Is(err, topics.ErrEnrichmentFailed) {
				enrichmentFailures++
			}
			l.logRecordFailure(logger, rec, err)
			continue
		}
		if result.Created {
			summary.Created++
			summary.Topics += len(result.Topics)
		} else {
			summary.Existing++
		}
	}

	finished := l.now()
	summary.Duration = finished.Sub(started)
	if err := l.store.RecordRun(context.WithoutCancel(ctx), store.Run{
		ID:              summary.RunID,
		StartedAt:       started,
		FinishedAt:      finished,
		Processed:       summary.Processed,
		Created:         summary.Created,
		Existing:        summary.Existing,
		Failed:          summary.Failed,
		CallingWarnings: summary.CallingWarnings,
		Topics:          summary.Topics,
	}); err != nil {
		logging.WarnWithContext(logger, "failed to record ingest run", "run_record_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "run missing from stats history"),
		)
	}

	stats := l.resolver.Cache().Stats()
	logger.Info("ingest finished",
		logging.Int("processed", summary.Processed),
		logging.Int("created", summary.Created),
		logging.Int("existing", summary.Existing),
		logging.Int("failed", summary.Failed),
		logging.Int("calling_warnings", summary.CallingWarnings),
		logging.Int("topics", summary.Topics),
		logging.Int("cache_hits", stats.Hits),
		logging.Int("cache_misses", stats.Misses),
		logging.Duration("duration", summary.Duration),
	)

	if runErr != nil {
		return summary, runErr
	}
	if enrichmentFailures > 0 {
		return summary, fmt.Errorf("%w: %d talks skipped in strict mode", topics.ErrEnrichmentFailed, enrichmentFailures)
	}
	return summary, nil
}

func (l *Loader) logRecordFailure(logger *slog.Logger, rec talk.Record, err error) {
	attrs := []logging.Attr{
		logging.String(logging.FieldTalk, rec.Title),
		logging.String(logging.FieldConference, rec.Period()),
		logging.Error(err),
	}
	switch {
	case errors.Is(err, store.ErrPersistenceConflict):
		logging.ErrorWithContext(logger, "talk skipped: persistence conflict", "persistence_conflict",
			append(attrs, logging.String(logging.FieldErrorHint, "inspect child rows for this talk"))...)
	case errors.Is(err, topics.ErrEnrichmentFailed):
		logging.ErrorWithContext(logger, "talk skipped: topic enrichment failed", "enrichment_failed",
			append(attrs, logging.String(logging.FieldErrorHint, "rerun once the topic service recovers, or disable strict mode"))...)
	default:
		logging.ErrorWithContext(logger, "talk skipped", "ingest_failed", attrs...)
	}
}
