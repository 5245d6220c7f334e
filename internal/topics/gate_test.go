package topics_test

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"conftalks/internal/topics"
)

type mockExtractor struct {
	ExtractFunc func(ctx context.Context, text string) ([]string, error)
	CallCount   int
	LastText    string
}

func (m *mockExtractor) ExtractTopics(ctx context.Context, text string) ([]string, error) {
	m.CallCount++
	m.LastText = text
	if m.ExtractFunc != nil {
		return m.ExtractFunc(ctx, text)
	}
	return []string{"Faith", "Prayer", "Repentance"}, nil
}

func TestGateSkipsBlankText(t *testing.T) {
	extractor := &mockExtractor{}
	gate := topics.NewGate(extractor)

	got, err := gate.Topics(context.Background(), "  \n\t ")
	if err != nil {
		t.Fatalf("Topics returned error: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no topics, got %v", got)
	}
	if extractor.CallCount != 0 {
		t.Fatalf("expected extractor not called, got %d calls", extractor.CallCount)
	}
}

func TestGateDisabledWithoutExtractor(t *testing.T) {
	gate := topics.NewGate(nil, topics.WithStrict(true))
	if gate.Enabled() {
		t.Fatal("expected gate without extractor to be disabled")
	}
	got, err := gate.Topics(context.Background(), "A talk about faith.")
	if err != nil || got != nil {
		t.Fatalf("expected nil topics and nil error, got %v, %v", got, err)
	}
}

func TestGateCallsExtractorOnceAndCleans(t *testing.T) {
	extractor := &mockExtractor{ExtractFunc: func(context.Context, string) ([]string, error) {
		return []string{"Faith, Hope.", "\u2022 Charity", "ok"}, nil
	}}
	gate := topics.NewGate(extractor)

	got, err := gate.Topics(context.Background(), "A talk about faith.")
	if err != nil {
		t.Fatalf("Topics returned error: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"Faith", "Hope", "Charity"}) {
		t.Fatalf("unexpected topics %v", got)
	}
	if extractor.CallCount != 1 {
		t.Fatalf("expected one call, got %d", extractor.CallCount)
	}
}

func TestGateLenientSwallowsFailures(t *testing.T) {
	extractor := &mockExtractor{ExtractFunc: func(context.Context, string) ([]string, error) {
		return nil, errors.New("http 503")
	}}
	gate := topics.NewGate(extractor)

	got, err := gate.Topics(context.Background(), "text")
	if err != nil {
		t.Fatalf("expected lenient gate to swallow error, got %v", err)
	}
	if got != nil {
		t.Fatalf("expected no topics, got %v", got)
	}
}

func TestGateStrictReportsEnrichmentFailure(t *testing.T) {
	cases := map[string]func(context.Context, string) ([]string, error){
		"extractor error": func(context.Context, string) ([]string, error) {
			return nil, errors.New("http 503")
		},
		"no usable topics": func(context.Context, string) ([]string, error) {
			return []string{"a", "b,c"}, nil
		},
	}
	for name, fn := range cases {
		t.Run(name, func(t *testing.T) {
			gate := topics.NewGate(&mockExtractor{ExtractFunc: fn}, topics.WithStrict(true))
			_, err := gate.Topics(context.Background(), "text")
			if !errors.Is(err, topics.ErrEnrichmentFailed) {
				t.Fatalf("expected ErrEnrichmentFailed, got %v", err)
			}
		})
	}
}

func TestGateRespectsMaxTopics(t *testing.T) {
	extractor := &mockExtractor{ExtractFunc: func(context.Context, string) ([]string, error) {
		return []string{"Faith, Hope, Charity, Prayer, Service"}, nil
	}}
	gate := topics.NewGate(extractor, topics.WithMaxTopics(2))

	got, err := gate.Topics(context.Background(), "text")
	if err != nil {
		t.Fatalf("Topics returned error: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"Faith", "Hope"}) {
		t.Fatalf("unexpected topics %v", got)
	}
}

func TestGatePacesCalls(t *testing.T) {
	now := time.Date(2026, 4, 5, 10, 0, 0, 0, time.UTC)
	var slept []time.Duration
	clock := func() time.Time { return now }
	sleeper := func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		now = now.Add(d)
		return nil
	}
	gate := topics.NewGate(&mockExtractor{},
		topics.WithMinInterval(2100*time.Millisecond),
		topics.WithClock(clock, sleeper),
	)
	ctx := context.Background()

	if _, err := gate.Topics(ctx, "first"); err != nil {
		t.Fatalf("Topics returned error: %v", err)
	}
	now = now.Add(100 * time.Millisecond)
	if _, err := gate.Topics(ctx, "second"); err != nil {
		t.Fatalf("Topics returned error: %v", err)
	}
	now = now.Add(5 * time.Second)
	if _, err := gate.Topics(ctx, "third"); err != nil {
		t.Fatalf("Topics returned error: %v", err)
	}

	if len(slept) != 1 || slept[0] != 2*time.Second {
		t.Fatalf("expected a single 2s wait, got %v", slept)
	}
}

func TestGatePacingHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	extractor := &mockExtractor{}
	gate := topics.NewGate(extractor, topics.WithStrict(true), topics.WithMinInterval(time.Hour))

	if _, err := gate.Topics(ctx, "first"); err != nil {
		t.Fatalf("Topics returned error: %v", err)
	}
	cancel()
	_, err := gate.Topics(ctx, "second")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
	if extractor.CallCount != 1 {
		t.Fatalf("expected second call to be skipped, got %d calls", extractor.CallCount)
	}
}

func TestClean(t *testing.T) {
	cases := []struct {
		name  string
		raw   []string
		limit int
		want  []string
	}{
		{"comma split", []string{"Faith, Hope"}, 0, []string{"Faith", "Hope"}},
		{"quotes and periods", []string{`"Prayer."`, "'Service'"}, 0, []string{"Prayer", "Service"}},
		{"bullets and dashes", []string{"- Covenants", "\u2022 Temples", "* Baptism"}, 0, []string{"Covenants", "Temples", "Baptism"}},
		{"short fragments dropped", []string{"ok, no, yes"}, 0, []string{"yes"}},
		{"duplicates kept", []string{"Faith", "Faith"}, 0, []string{"Faith", "Faith"}},
		{"internal spaces collapsed", []string{"  Plan   of   Salvation "}, 0, []string{"Plan of Salvation"}},
		{"limit", []string{"Alpha, Bravo, Charlie"}, 1, []string{"Alpha"}},
		{"empty", nil, 0, []string{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := topics.Clean(tc.raw, tc.limit)
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("Clean(%q) = %q, want %q", tc.raw, got, tc.want)
			}
		})
	}
}

func TestCleanDefaultLimit(t *testing.T) {
	raw := []string{"one1, two2, three, four, five, six, seven, eight, nine, ten10, eleven, twelve"}
	if got := topics.Clean(raw, 0); len(got) != topics.DefaultMaxTopics {
		t.Fatalf("expected %d topics, got %d", topics.DefaultMaxTopics, len(got))
	}
}
