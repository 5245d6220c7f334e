package ingest_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"
	"testing"
	"time"

	"conftalks/internal/ingest"
	"conftalks/internal/store"
	"conftalks/internal/talk"
	"conftalks/internal/testsupport"
	"conftalks/internal/topics"
)

type mockExtractor struct {
	ExtractFunc func(ctx context.Context, text string) ([]string, error)
	CallCount   int
}

func (m *mockExtractor) ExtractTopics(ctx context.Context, text string) ([]string, error) {
	m.CallCount++
	if m.ExtractFunc != nil {
		return m.ExtractFunc(ctx, text)
	}
	return []string{"Faith", "Prayer", "Repentance"}, nil
}

func sequentialIDs() func() string {
	var n int
	return func() string {
		n++
		return fmt.Sprintf("run-%d", n)
	}
}

func TestRunEndToEndIsIdempotent(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	extractor := &mockExtractor{}
	loader := ingest.NewLoader(st,
		ingest.WithGate(topics.NewGate(extractor)),
		ingest.WithRunIDs(sequentialIDs()),
	)
	ctx := context.Background()
	records := []talk.Record{testsupport.SampleRecord()}

	first, err := loader.Run(ctx, records)
	if err != nil {
		t.Fatalf("first Run failed: %v", err)
	}
	if first.Processed != 1 || first.Created != 1 || first.Existing != 0 || first.Failed != 0 || first.Topics != 3 {
		t.Fatalf("unexpected first summary %+v", first)
	}
	afterFirst, err := st.Counts(ctx)
	if err != nil {
		t.Fatalf("Counts failed: %v", err)
	}
	want := store.Counts{
		Speakers: 1, Organizations: 1, Callings: 1, Conferences: 1,
		Talks: 1, Texts: 1, URLs: 1, Topics: 3, Runs: 1,
	}
	if afterFirst != want {
		t.Fatalf("unexpected counts after first run\n got %+v\nwant %+v", afterFirst, want)
	}

	second, err := loader.Run(ctx, records)
	if err != nil {
		t.Fatalf("second Run failed: %v", err)
	}
	if second.Created != 0 || second.Existing != 1 || second.Topics != 0 {
		t.Fatalf("unexpected second summary %+v", second)
	}
	if extractor.CallCount != 1 {
		t.Fatalf("expected extractor called once across runs, got %d", extractor.CallCount)
	}
	afterSecond, err := st.Counts(ctx)
	if err != nil {
		t.Fatalf("Counts failed: %v", err)
	}
	want.Runs = 2
	if afterSecond != want {
		t.Fatalf("re-run added rows\n got %+v\nwant %+v", afterSecond, want)
	}

	runs, err := st.RecentRuns(ctx, 5)
	if err != nil {
		t.Fatalf("RecentRuns failed: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected two recorded runs, got %d", len(runs))
	}
}

func TestIngestStoresNormalizedDimensions(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	loader := ingest.NewLoader(st)
	ctx := context.Background()

	result, err := loader.Ingest(ctx, testsupport.SampleRecord())
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	if !result.Created || result.TalkID == 0 {
		t.Fatalf("unexpected result %+v", result)
	}
	summary, err := st.Talk(ctx, result.TalkID)
	if err != nil {
		t.Fatalf("Talk failed: %v", err)
	}
	if summary.Title != "Faith in Every Footstep" || summary.Year != 2020 || summary.Season != "April" {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if summary.Speaker != "Dieter F. Uchtdorf" {
		t.Fatalf("expected speaker without office, got %q", summary.Speaker)
	}
	if summary.Organization != "Quorum of the Twelve Apostles" || summary.Emeritus {
		t.Fatalf("unexpected organization %+v", summary)
	}
	urls, err := st.TalkURLs(ctx, result.TalkID)
	if err != nil {
		t.Fatalf("TalkURLs failed: %v", err)
	}
	if len(urls) != 1 || urls[0].Kind != store.URLKindText {
		t.Fatalf("unexpected urls %+v", urls)
	}
	topicsStored, err := st.TalkTopics(ctx, result.TalkID)
	if err != nil {
		t.Fatalf("TalkTopics failed: %v", err)
	}
	if len(topicsStored) != 0 {
		t.Fatalf("expected no topics without a gate, got %v", topicsStored)
	}
}

func TestIngestFirstWriteWins(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	loader := ingest.NewLoader(st)
	ctx := context.Background()

	original := testsupport.SampleRecord()
	first, err := loader.Ingest(ctx, original)
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}

	changed := original
	changed.Talk = "Revised body text."
	changed.URL = "https://example.org/other"
	second, err := loader.Ingest(ctx, changed)
	if err != nil {
		t.Fatalf("second Ingest failed: %v", err)
	}
	if second.Created || second.TalkID != first.TalkID {
		t.Fatalf("expected existing talk %d, got %+v", first.TalkID, second)
	}
	text, err := st.TalkText(ctx, first.TalkID)
	if err != nil {
		t.Fatalf("TalkText failed: %v", err)
	}
	if text != original.Talk {
		t.Fatalf("expected original text, got %q", text)
	}
	urls, err := st.TalkURLs(ctx, first.TalkID)
	if err != nil {
		t.Fatalf("TalkURLs failed: %v", err)
	}
	if len(urls) != 1 || urls[0].URL != original.URL {
		t.Fatalf("expected original url only, got %+v", urls)
	}
}

func TestIngestUnsupportedCallingUsesSentinel(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	loader := ingest.NewLoader(st, ingest.WithLogger(logger))
	ctx := context.Background()

	rec := testsupport.SampleRecord()
	rec.Calling = "General Young Men Leader"
	result, err := loader.Ingest(ctx, rec)
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	if !result.Created || !result.CallingWarning {
		t.Fatalf("expected created talk with calling warning, got %+v", result)
	}
	summary, err := st.Talk(ctx, result.TalkID)
	if err != nil {
		t.Fatalf("Talk failed: %v", err)
	}
	if summary.Calling != "" || summary.Organization != "" {
		t.Fatalf("expected no calling link, got %+v", summary)
	}
	counts, err := st.Counts(ctx)
	if err != nil {
		t.Fatalf("Counts failed: %v", err)
	}
	if counts.Callings != 0 || counts.Organizations != 0 {
		t.Fatalf("expected no calling rows, got %+v", counts)
	}
	if !strings.Contains(buf.String(), "calling_unsupported") {
		t.Fatalf("expected warning event in logs, got %s", buf.String())
	}
}

func TestIngestEmeritusAndMissingSpeaker(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	loader := ingest.NewLoader(st)
	ctx := context.Background()

	rec := testsupport.SampleRecord()
	rec.Calling = "Recently Released Bishop"
	rec.Speaker = ""
	result, err := loader.Ingest(ctx, rec)
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	summary, err := st.Talk(ctx, result.TalkID)
	if err != nil {
		t.Fatalf("Talk failed: %v", err)
	}
	if !summary.Emeritus || summary.Calling != "Bishop" || summary.Organization != "Local" {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if summary.Speaker != "" {
		t.Fatalf("expected no speaker link, got %q", summary.Speaker)
	}
}

func TestIngestEmptyTextSkipsExtractor(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	extractor := &mockExtractor{}
	loader := ingest.NewLoader(st, ingest.WithGate(topics.NewGate(extractor, topics.WithStrict(true))))

	rec := testsupport.SampleRecord()
	rec.Talk = ""
	result, err := loader.Ingest(context.Background(), rec)
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	if !result.Created || len(result.Topics) != 0 {
		t.Fatalf("unexpected result %+v", result)
	}
	if extractor.CallCount != 0 {
		t.Fatalf("expected extractor not called, got %d", extractor.CallCount)
	}
}

func TestRunStrictEnrichmentSkipsAndContinues(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	extractor := &mockExtractor{ExtractFunc: func(_ context.Context, text string) ([]string, error) {
		if strings.Contains(text, "fail") {
			return nil, errors.New("http 503")
		}
		return []string{"Faith, Hope, Charity"}, nil
	}}
	loader := ingest.NewLoader(st, ingest.WithGate(topics.NewGate(extractor, topics.WithStrict(true))))
	ctx := context.Background()

	failing := testsupport.SampleRecord()
	failing.Title = "A Talk That Will Fail"
	failing.Talk = "please fail"
	ok := testsupport.SampleRecord()

	summary, err := loader.Run(ctx, []talk.Record{failing, ok})
	if !errors.Is(err, topics.ErrEnrichmentFailed) {
		t.Fatalf("expected ErrEnrichmentFailed, got %v", err)
	}
	if summary.Processed != 2 || summary.Failed != 1 || summary.Created != 1 || summary.Topics != 3 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	conf, err := st.EnsureConference(ctx, 2020, "April")
	if err != nil {
		t.Fatalf("EnsureConference failed: %v", err)
	}
	if _, found, err := st.FindTalk(ctx, failing.Title, conf); err != nil || found {
		t.Fatalf("expected failing talk absent, found=%v err=%v", found, err)
	}
}

func TestRunLenientEnrichmentStoresTalkWithoutTopics(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	extractor := &mockExtractor{ExtractFunc: func(context.Context, string) ([]string, error) {
		return nil, errors.New("http 503")
	}}
	loader := ingest.NewLoader(st, ingest.WithGate(topics.NewGate(extractor)))

	summary, err := loader.Run(context.Background(), []talk.Record{testsupport.SampleRecord()})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if summary.Created != 1 || summary.Topics != 0 || summary.Failed != 0 {
		t.Fatalf("unexpected summary %+v", summary)
	}
}

func TestRunCountsInvalidRecordsAsFailed(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	loader := ingest.NewLoader(st)

	bad := testsupport.SampleRecord()
	bad.Season = "June"
	untitled := testsupport.SampleRecord()
	untitled.Title = "  "
	summary, err := loader.Run(context.Background(), []talk.Record{bad, untitled, testsupport.SampleRecord()})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if summary.Failed != 2 || summary.Created != 1 {
		t.Fatalf("unexpected summary %+v", summary)
	}
}

type conflictStore struct {
	ingest.Store
	runs []store.Run
}

func (c *conflictStore) CreateTalk(context.Context, store.NewTalk) (int64, bool, error) {
	return 0, false, fmt.Errorf("%w: topic for talk 7: constraint failed", store.ErrPersistenceConflict)
}

func (c *conflictStore) RecordRun(_ context.Context, run store.Run) error {
	c.runs = append(c.runs, run)
	return nil
}

func TestRunLogsPersistenceConflicts(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := &conflictStore{Store: testsupport.MustOpenStore(t, cfg)}
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	base := time.Date(2026, 4, 5, 10, 0, 0, 0, time.UTC)
	tick := base
	loader := ingest.NewLoader(st,
		ingest.WithLogger(logger),
		ingest.WithRunIDs(func() string { return "fixed-run" }),
		ingest.WithClock(func() time.Time {
			tick = tick.Add(time.Second)
			return tick
		}),
	)

	summary, err := loader.Run(context.Background(), []talk.Record{testsupport.SampleRecord()})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if summary.Failed != 1 || summary.RunID != "fixed-run" || summary.Duration != time.Second {
		t.Fatalf("unexpected summary %+v", summary)
	}
	out := buf.String()
	for _, want := range []string{"persistence_conflict", "run_id=fixed-run", "Faith in Every Footstep", "2020 April"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in logs, got %s", want, out)
		}
	}
	if len(st.runs) != 1 || st.runs[0].Failed != 1 {
		t.Fatalf("unexpected recorded runs %+v", st.runs)
	}
}

func TestRunStopsOnCancellation(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	loader := ingest.NewLoader(st)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary, err := loader.Run(ctx, []talk.Record{testsupport.SampleRecord()})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if summary.Processed != 0 {
		t.Fatalf("expected nothing processed, got %+v", summary)
	}
	runs, err := st.RecentRuns(context.Background(), 1)
	if err != nil {
		t.Fatalf("RecentRuns failed: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected cancelled run still recorded, got %d", len(runs))
	}
}

func TestResultTopicsMatchStoredTopics(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	extractor := &mockExtractor{ExtractFunc: func(context.Context, string) ([]string, error) {
		return []string{"Prayer", "Faith", "Hope"}, nil
	}}
	loader := ingest.NewLoader(st, ingest.WithGate(topics.NewGate(extractor)))
	ctx := context.Background()

	result, err := loader.Ingest(ctx, testsupport.SampleRecord())
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	stored, err := st.TalkTopics(ctx, result.TalkID)
	if err != nil {
		t.Fatalf("TalkTopics failed: %v", err)
	}
	if !reflect.DeepEqual(stored, []string{"Faith", "Hope", "Prayer"}) {
		t.Fatalf("unexpected stored topics %v", stored)
	}
	if len(result.Topics) != 3 {
		t.Fatalf("unexpected result topics %v", result.Topics)
	}
}
