package harvest_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/gofrs/flock"

	"conftalks/internal/harvest"
	"conftalks/internal/scrape"
	"conftalks/internal/store"
	"conftalks/internal/talk"
	"conftalks/internal/testsupport"
	"conftalks/internal/topics"
)

type staticSource struct {
	records []talk.Record
	err     error
	calls   int
}

func (s *staticSource) Scrape(context.Context) ([]talk.Record, scrape.Stats, error) {
	s.calls++
	return s.records, scrape.Stats{Records: len(s.records)}, s.err
}

type fixedExtractor struct {
	topics []string
	err    error
}

func (f fixedExtractor) ExtractTopics(context.Context, string) ([]string, error) {
	return f.topics, f.err
}

func sampleRecords() []talk.Record {
	later := testsupport.SampleRecord()
	earlier := testsupport.SampleRecord()
	earlier.Title = "Closing Remarks"
	earlier.Year = 2019
	earlier.Season = talk.SeasonOctober
	earlier.Speaker = "By President Russell M. Nelson"
	earlier.Calling = "President of The Church of Jesus Christ of Latter-day Saints"
	earlier.URL = "https://www.churchofjesuschrist.org/study/general-conference/2019/10/57nelson?lang=eng"
	earlier.Talk = "Jos\u00e9\tsaid amen."
	return []talk.Record{later, earlier}
}

func TestScrapeWritesArchiveDatabaseAndCopy(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	source := &staticSource{records: sampleRecords()}
	runner := harvest.New(cfg,
		harvest.WithSource(source),
		harvest.WithExtractor(fixedExtractor{topics: []string{"Faith, Hope, Charity"}}),
	)

	report, err := runner.Scrape(context.Background())
	if err != nil {
		t.Fatalf("Scrape failed: %v", err)
	}
	if report.Records != 2 || report.Ingest.Created != 2 {
		t.Fatalf("unexpected report %+v", report)
	}

	archived, err := talk.ReadJSON(cfg.ArchivePath())
	if err != nil {
		t.Fatalf("ReadJSON failed: %v", err)
	}
	if len(archived) != 2 || archived[0].Year != 2019 || archived[1].Year != 2020 {
		t.Fatalf("expected archive sorted by period, got %+v", archived)
	}
	if archived[0].Talk != "Jose\u0301    said amen." {
		t.Fatalf("expected cleaned text in archive, got %q", archived[0].Talk)
	}

	if report.NoTextPath != cfg.NoTextPath() {
		t.Fatalf("expected no-text copy at %s, got %q", cfg.NoTextPath(), report.NoTextPath)
	}
	copyStore, err := store.Open(report.NoTextPath, store.WithoutMigrations())
	if err != nil {
		t.Fatalf("open copy: %v", err)
	}
	defer copyStore.Close()
	counts, err := copyStore.Counts(context.Background())
	if err != nil {
		t.Fatalf("Counts failed: %v", err)
	}
	if counts.Talks != 2 || counts.Texts != 0 || counts.Topics != 6 {
		t.Fatalf("unexpected copy counts %+v", counts)
	}
}

func TestScrapeTwiceAddsNothing(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithoutTextCopy())
	source := &staticSource{records: sampleRecords()}
	runner := harvest.New(cfg, harvest.WithSource(source))
	ctx := context.Background()

	if _, err := runner.Scrape(ctx); err != nil {
		t.Fatalf("first Scrape failed: %v", err)
	}
	report, err := runner.Scrape(ctx)
	if err != nil {
		t.Fatalf("second Scrape failed: %v", err)
	}
	if report.Ingest.Created != 0 || report.Ingest.Existing != 2 {
		t.Fatalf("unexpected second run %+v", report.Ingest)
	}
	if report.NoTextPath != "" {
		t.Fatalf("expected no copy when disabled, got %q", report.NoTextPath)
	}
	if _, err := os.Stat(filepath.Join(cfg.Paths.OutputDir, "conference_talks_no_text.db")); !os.IsNotExist(err) {
		t.Fatalf("expected no text-less copy on disk, stat returned %v", err)
	}
}

func TestLoadReadsExistingArchive(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	path := cfg.ArchivePath()
	testsupport.WriteArchive(t, path, sampleRecords())
	source := &staticSource{}
	runner := harvest.New(cfg, harvest.WithSource(source))

	report, err := runner.Load(context.Background(), "")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if source.calls != 0 {
		t.Fatal("expected Load not to scrape")
	}
	if report.ArchivePath != path || report.Ingest.Created != 2 {
		t.Fatalf("unexpected report %+v", report)
	}
}

func TestLoadMissingArchive(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	runner := harvest.New(cfg, harvest.WithSource(&staticSource{}))
	if _, err := runner.Load(context.Background(), cfg.ArchivePath()+".missing"); err == nil {
		t.Fatal("expected error for missing archive")
	}
}

func TestScrapeRefusesWhenLocked(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	held := flock.New(cfg.LockPath())
	ok, err := held.TryLock()
	if err != nil || !ok {
		t.Fatalf("could not take lock: ok=%v err=%v", ok, err)
	}
	defer held.Unlock()

	source := &staticSource{records: sampleRecords()}
	_, err = harvest.New(cfg, harvest.WithSource(source)).Scrape(context.Background())
	if !errors.Is(err, harvest.ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}
	if source.calls != 0 {
		t.Fatal("expected no scrape while locked")
	}
}

func TestScrapeErrorStopsBeforeWriting(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	source := &staticSource{err: errors.New("index unavailable")}

	_, err := harvest.New(cfg, harvest.WithSource(source)).Scrape(context.Background())
	if err == nil {
		t.Fatal("expected scrape error")
	}
	if _, statErr := os.Stat(cfg.ArchivePath()); !os.IsNotExist(statErr) {
		t.Fatalf("expected no archive, stat returned %v", statErr)
	}
}

func TestStrictTopicFailureStillFinishesRun(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Topics.Strict = true
	runner := harvest.New(cfg,
		harvest.WithSource(&staticSource{records: sampleRecords()}),
		harvest.WithExtractor(fixedExtractor{err: errors.New("http 503")}),
	)

	report, err := runner.Scrape(context.Background())
	if !errors.Is(err, topics.ErrEnrichmentFailed) {
		t.Fatalf("expected ErrEnrichmentFailed, got %v", err)
	}
	if report.Ingest.Failed != 2 || report.Ingest.Created != 0 {
		t.Fatalf("unexpected summary %+v", report.Ingest)
	}
	if report.NoTextPath == "" {
		t.Fatal("expected post-processing to run after strict failures")
	}
}

func TestNewExtractorDisabled(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if harvest.NewExtractor(cfg) != nil {
		t.Fatal("expected nil extractor when topics are disabled")
	}
	enabled := testsupport.NewConfig(t, testsupport.WithTopics("http://127.0.0.1:1", "key"))
	if harvest.NewExtractor(enabled) == nil {
		t.Fatal("expected extractor when topics are enabled")
	}
}
