package store_test

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"conftalks/internal/store"
	"conftalks/internal/testsupport"
)

func TestOpenAppliesMigrations(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	version, err := st.SchemaVersion(context.Background())
	if err != nil {
		t.Fatalf("SchemaVersion failed: %v", err)
	}
	if version != store.LatestVersion() {
		t.Fatalf("expected schema version %d, got %d", store.LatestVersion(), version)
	}
	if store.LatestVersion() < 2 {
		t.Fatalf("expected at least two embedded migrations, got %d", store.LatestVersion())
	}
}

func TestOpenWithTargetVersionThenMigrate(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg, store.WithTargetVersion(1))
	ctx := context.Background()

	version, err := st.SchemaVersion(ctx)
	if err != nil {
		t.Fatalf("SchemaVersion failed: %v", err)
	}
	if version != 1 {
		t.Fatalf("expected version 1, got %d", version)
	}
	counts, err := st.Counts(ctx)
	if err != nil {
		t.Fatalf("Counts on partial schema failed: %v", err)
	}
	if counts.Runs != 0 {
		t.Fatalf("expected no runs on partial schema, got %d", counts.Runs)
	}

	applied, err := st.Migrate(ctx, 0)
	if err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}
	if applied != store.LatestVersion() {
		t.Fatalf("expected migrate to reach %d, got %d", store.LatestVersion(), applied)
	}
	again, err := st.Migrate(ctx, 0)
	if err != nil || again != applied {
		t.Fatalf("expected repeat migrate to be a no-op, got %d, %v", again, err)
	}
}

func TestOpenWithoutMigrationsLeavesEmptySchema(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg, store.WithoutMigrations())

	version, err := st.SchemaVersion(context.Background())
	if err != nil {
		t.Fatalf("SchemaVersion failed: %v", err)
	}
	if version != 0 {
		t.Fatalf("expected empty schema, got version %d", version)
	}
}

func TestMigrateRejectsUnknownVersion(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	_, err := st.Migrate(context.Background(), store.LatestVersion()+1)
	if !errors.Is(err, store.ErrUnknownVersion) {
		t.Fatalf("expected ErrUnknownVersion, got %v", err)
	}
}

func TestOpenRejectsSchemaAhead(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st, err := store.Open(cfg.DatabasePath())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	st.Close()
	bumpSchema(t, cfg.DatabasePath(), store.LatestVersion()+5)

	_, err = store.Open(cfg.DatabasePath())
	if !errors.Is(err, store.ErrSchemaAhead) {
		t.Fatalf("expected ErrSchemaAhead, got %v", err)
	}
}

func TestEnsureDimensionsAreIdempotent(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	conf1, err := st.EnsureConference(ctx, 2020, "April")
	if err != nil {
		t.Fatalf("EnsureConference failed: %v", err)
	}
	conf2, err := st.EnsureConference(ctx, 2020, "April")
	if err != nil {
		t.Fatalf("EnsureConference repeat failed: %v", err)
	}
	if conf1 != conf2 {
		t.Fatalf("expected same conference id, got %d and %d", conf1, conf2)
	}
	other, err := st.EnsureConference(ctx, 2020, "October")
	if err != nil {
		t.Fatalf("EnsureConference october failed: %v", err)
	}
	if other == conf1 {
		t.Fatal("expected distinct id for a different season")
	}

	org, err := st.EnsureOrganization(ctx, "Quorum of the Seventy", 3)
	if err != nil {
		t.Fatalf("EnsureOrganization failed: %v", err)
	}
	if again, _ := st.EnsureOrganization(ctx, "Quorum of the Seventy", 3); again != org {
		t.Fatalf("expected same organization id, got %d and %d", org, again)
	}

	calling, err := st.EnsureCalling(ctx, "Of The Seventy", org, 99)
	if err != nil {
		t.Fatalf("EnsureCalling failed: %v", err)
	}
	if again, _ := st.EnsureCalling(ctx, "Of The Seventy", org, 99); again != calling {
		t.Fatalf("expected same calling id, got %d and %d", calling, again)
	}

	speaker, err := st.EnsureSpeaker(ctx, "Gérald Caussé")
	if err != nil {
		t.Fatalf("EnsureSpeaker failed: %v", err)
	}
	if again, _ := st.EnsureSpeaker(ctx, "Gérald Caussé"); again != speaker {
		t.Fatalf("expected same speaker id, got %d and %d", speaker, again)
	}

	counts, err := st.Counts(ctx)
	if err != nil {
		t.Fatalf("Counts failed: %v", err)
	}
	if counts.Conferences != 2 || counts.Organizations != 1 || counts.Callings != 1 || counts.Speakers != 1 {
		t.Fatalf("unexpected counts %+v", counts)
	}
}

func TestEnsureConferenceRejectsBadSeason(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	if _, err := st.EnsureConference(context.Background(), 2020, "June"); err == nil {
		t.Fatal("expected check constraint to reject season")
	}
}

func TestCreateTalkFirstWriteWins(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()
	talk := seedTalk(t, st)

	id, created, err := st.CreateTalk(ctx, talk)
	if err != nil {
		t.Fatalf("CreateTalk failed: %v", err)
	}
	if !created || id == 0 {
		t.Fatalf("expected new talk, got id=%d created=%v", id, created)
	}

	second := talk
	second.Text = "A different body"
	second.Topics = []string{"Other"}
	againID, againCreated, err := st.CreateTalk(ctx, second)
	if err != nil {
		t.Fatalf("second CreateTalk failed: %v", err)
	}
	if againCreated || againID != id {
		t.Fatalf("expected existing talk %d, got id=%d created=%v", id, againID, againCreated)
	}

	text, err := st.TalkText(ctx, id)
	if err != nil {
		t.Fatalf("TalkText failed: %v", err)
	}
	if text != talk.Text {
		t.Fatalf("expected first text to persist, got %q", text)
	}
	topics, err := st.TalkTopics(ctx, id)
	if err != nil {
		t.Fatalf("TalkTopics failed: %v", err)
	}
	if !reflect.DeepEqual(topics, []string{"Faith", "Prayer"}) {
		t.Fatalf("unexpected topics %v", topics)
	}
	urls, err := st.TalkURLs(ctx, id)
	if err != nil {
		t.Fatalf("TalkURLs failed: %v", err)
	}
	if len(urls) != 1 || urls[0].Kind != store.URLKindText || urls[0].URL != talk.URL {
		t.Fatalf("unexpected urls %+v", urls)
	}

	found, ok, err := st.FindTalk(ctx, talk.Title, talk.ConferenceID)
	if err != nil || !ok || found != id {
		t.Fatalf("FindTalk returned id=%d ok=%v err=%v", found, ok, err)
	}

	summary, err := st.Talk(ctx, id)
	if err != nil {
		t.Fatalf("Talk failed: %v", err)
	}
	if summary.Year != 2020 || summary.Season != "April" || summary.Speaker != "Dieter F. Uchtdorf" {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if summary.Organization != "Quorum of the Twelve Apostles" || summary.Emeritus {
		t.Fatalf("unexpected summary %+v", summary)
	}
}

func TestCreateTalkWithoutOptionalLinks(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	conf, err := st.EnsureConference(ctx, 1999, "October")
	if err != nil {
		t.Fatalf("EnsureConference failed: %v", err)
	}
	id, created, err := st.CreateTalk(ctx, store.NewTalk{Title: "Sustaining of Officers", ConferenceID: conf})
	if err != nil || !created {
		t.Fatalf("CreateTalk returned created=%v err=%v", created, err)
	}
	text, err := st.TalkText(ctx, id)
	if err != nil {
		t.Fatalf("TalkText failed: %v", err)
	}
	if text != "" {
		t.Fatalf("expected empty stored text, got %q", text)
	}
	urls, err := st.TalkURLs(ctx, id)
	if err != nil {
		t.Fatalf("TalkURLs failed: %v", err)
	}
	if len(urls) != 0 {
		t.Fatalf("expected no urls, got %+v", urls)
	}
	summary, err := st.Talk(ctx, id)
	if err != nil {
		t.Fatalf("Talk failed: %v", err)
	}
	if summary.Speaker != "" || summary.Calling != "" {
		t.Fatalf("expected empty links, got %+v", summary)
	}
}

func TestCreateTalkDeduplicatesTopics(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()
	talk := seedTalk(t, st)
	talk.Topics = []string{"Faith", "Faith", "Hope"}

	id, _, err := st.CreateTalk(ctx, talk)
	if err != nil {
		t.Fatalf("CreateTalk failed: %v", err)
	}
	topics, err := st.TalkTopics(ctx, id)
	if err != nil {
		t.Fatalf("TalkTopics failed: %v", err)
	}
	if !reflect.DeepEqual(topics, []string{"Faith", "Hope"}) {
		t.Fatalf("unexpected topics %v", topics)
	}
}

func TestCreateTalkConflictRollsBack(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()
	talk := seedTalk(t, st)
	talk.SpeakerID = 9999

	_, _, err := st.CreateTalk(ctx, talk)
	if !errors.Is(err, store.ErrPersistenceConflict) {
		t.Fatalf("expected ErrPersistenceConflict, got %v", err)
	}
	if _, ok, err := st.FindTalk(ctx, talk.Title, talk.ConferenceID); err != nil || ok {
		t.Fatalf("expected talk row rolled back, ok=%v err=%v", ok, err)
	}
}

func TestCreateTalkRequiresTitleAndConference(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	if _, _, err := st.CreateTalk(ctx, store.NewTalk{Title: " ", ConferenceID: 1}); err == nil {
		t.Fatal("expected error for blank title")
	}
	if _, _, err := st.CreateTalk(ctx, store.NewTalk{Title: "A Talk"}); err == nil {
		t.Fatal("expected error for missing conference")
	}
}

func TestRecordRunAndRecentRuns(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	base := time.Date(2026, 4, 5, 10, 0, 0, 0, time.UTC)
	older := store.Run{ID: "run-1", StartedAt: base, FinishedAt: base.Add(2 * time.Second), Processed: 3, Created: 3}
	newer := store.Run{ID: "run-2", StartedAt: base.Add(time.Hour), FinishedAt: base.Add(time.Hour + time.Second), Processed: 3, Existing: 3, Topics: 4}
	for _, run := range []store.Run{older, newer} {
		if err := st.RecordRun(ctx, run); err != nil {
			t.Fatalf("RecordRun failed: %v", err)
		}
	}
	if err := st.RecordRun(ctx, store.Run{}); err == nil {
		t.Fatal("expected error for run without id")
	}

	runs, err := st.RecentRuns(ctx, 0)
	if err != nil {
		t.Fatalf("RecentRuns failed: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != "run-2" || runs[1].ID != "run-1" {
		t.Fatalf("unexpected run order %+v", runs)
	}
	if runs[0].Existing != 3 || runs[0].Topics != 4 {
		t.Fatalf("unexpected run counters %+v", runs[0])
	}
	if got := runs[1].Duration(); got != 2*time.Second {
		t.Fatalf("expected 2s duration, got %s", got)
	}
}

func TestMaintenanceOperations(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()
	talk := seedTalk(t, st)
	if _, _, err := st.CreateTalk(ctx, talk); err != nil {
		t.Fatalf("CreateTalk failed: %v", err)
	}

	if err := st.Compact(ctx); err != nil {
		t.Fatalf("Compact failed: %v", err)
	}
	ok, err := st.IntegrityCheck(ctx)
	if err != nil || !ok {
		t.Fatalf("IntegrityCheck returned ok=%v err=%v", ok, err)
	}

	dest := filepath.Join(testsupport.BaseDir(cfg), "export", "no_text.db")
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		t.Fatalf("mkdir export dir: %v", err)
	}
	// A stale export is replaced.
	if err := os.WriteFile(dest, []byte("stale"), 0o644); err != nil {
		t.Fatalf("write stale export: %v", err)
	}
	if err := st.ExportWithoutText(ctx, dest); err != nil {
		t.Fatalf("ExportWithoutText failed: %v", err)
	}

	exported, err := store.Open(dest, store.WithoutMigrations())
	if err != nil {
		t.Fatalf("open export: %v", err)
	}
	defer exported.Close()
	counts, err := exported.Counts(ctx)
	if err != nil {
		t.Fatalf("Counts on export failed: %v", err)
	}
	if counts.Talks != 1 || counts.Texts != 0 || counts.Topics != 2 {
		t.Fatalf("unexpected export counts %+v", counts)
	}
	if _, err := exported.TalkText(ctx, 1); err == nil {
		t.Fatal("expected talk_texts to be absent from export")
	}

	original, err := st.Counts(ctx)
	if err != nil {
		t.Fatalf("Counts failed: %v", err)
	}
	if original.Texts != 1 {
		t.Fatalf("expected source database to keep text, got %+v", original)
	}
	if len(original.Tables()) != 9 {
		t.Fatalf("expected nine tables, got %d", len(original.Tables()))
	}
}

func seedTalk(t *testing.T, st *store.Store) store.NewTalk {
	t.Helper()
	ctx := context.Background()

	conf, err := st.EnsureConference(ctx, 2020, "April")
	if err != nil {
		t.Fatalf("EnsureConference failed: %v", err)
	}
	org, err := st.EnsureOrganization(ctx, "Quorum of the Twelve Apostles", 2)
	if err != nil {
		t.Fatalf("EnsureOrganization failed: %v", err)
	}
	calling, err := st.EnsureCalling(ctx, "Of The Quorum Of The Twelve Apostles", org, 99)
	if err != nil {
		t.Fatalf("EnsureCalling failed: %v", err)
	}
	speaker, err := st.EnsureSpeaker(ctx, "Dieter F. Uchtdorf")
	if err != nil {
		t.Fatalf("EnsureSpeaker failed: %v", err)
	}
	return store.NewTalk{
		Title:        "Faith in Every Footstep",
		ConferenceID: conf,
		SpeakerID:    speaker,
		CallingID:    calling,
		Text:         "Faith is a principle of action and power.",
		URL:          "https://www.churchofjesuschrist.org/study/general-conference/2020/04/13uchtdorf",
		Topics:       []string{"Prayer", "Faith"},
	}
}

// bumpSchema records a migration version this build does not know about.
func bumpSchema(t *testing.T, path string, version int) {
	t.Helper()
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open raw db: %v", err)
	}
	defer db.Close()
	if _, err := db.Exec(
		"INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)",
		version, time.Now().UTC().Format(time.RFC3339Nano),
	); err != nil {
		t.Fatalf("bump schema: %v", err)
	}
}
