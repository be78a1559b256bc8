package analyzer

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sqanar/urlguard/internal/classifier"
	"github.com/sqanar/urlguard/internal/explain"
	"github.com/sqanar/urlguard/internal/features"
	"github.com/sqanar/urlguard/internal/risk"
	"github.com/sqanar/urlguard/internal/store"
	"github.com/sqanar/urlguard/internal/urlutil"
)

// fakeCollector returns a canned record shaped like a young, IP-hosted,
// plain-HTTP URL so the malicious branch has signals to explain.
type fakeCollector struct {
	calls atomic.Int64
}

func (f *fakeCollector) Collect(_ context.Context, n *urlutil.NormalizedURL) *features.RawFeatureRecord {
	f.calls.Add(1)
	rec := &features.RawFeatureRecord{
		URL:           n.String(),
		Domain:        n.Host(),
		Lexical:       features.ExtractLexical(n),
		DomainAgeDays: features.Int(10),
	}
	return rec
}

// fakeClassifier replays scripted verdicts and optionally blocks until
// released so tests can hold a computation in flight.
type fakeClassifier struct {
	mu      sync.Mutex
	script  []classifier.Verdict
	calls   atomic.Int64
	started chan struct{}
	release chan struct{}
}

func (f *fakeClassifier) Classify(context.Context, string) classifier.Verdict {
	n := f.calls.Add(1)
	if f.started != nil && n == 1 {
		close(f.started)
	}
	if f.release != nil {
		<-f.release
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.script) == 0 {
		return classifier.Verdict{Label: classifier.LabelLegitimate}
	}
	v := f.script[0]
	if len(f.script) > 1 {
		f.script = f.script[1:]
	}
	return v
}

func malicious(conf float64) classifier.Verdict {
	return classifier.Verdict{Label: classifier.LabelMalicious, Confidence: &conf}
}

func newTestAnalyzer(cls classifier.Classifier, st store.Store) (*Analyzer, *fakeCollector) {
	col := &fakeCollector{}
	a := New(DefaultConfig(), col, cls,
		risk.NewMapper(nil), explain.NewRanker(nil, 3), st, nil)
	return a, col
}

func TestAnalyzeCachesVerdict(t *testing.T) {
	cls := &fakeClassifier{script: []classifier.Verdict{malicious(0.92)}}
	st := store.NewMemoryStore()
	a, col := newTestAnalyzer(cls, st)
	ctx := context.Background()

	first, err := a.AnalyzeURL(ctx, "http://198.51.100.7/login.php")
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if first.Label != classifier.LabelMalicious || first.FromCache {
		t.Fatalf("first result: %+v", first)
	}
	if first.Confidence == nil || *first.Confidence != 0.92 {
		t.Errorf("Confidence = %v", first.Confidence)
	}
	if len(first.Justifications) != 3 {
		t.Errorf("justifications = %v, want 3", first.Justifications)
	}

	second, err := a.AnalyzeURL(ctx, "http://198.51.100.7/login.php")
	if err != nil {
		t.Fatalf("analyze cached: %v", err)
	}
	if !second.FromCache {
		t.Error("second call should be served from cache")
	}
	if second.Label != first.Label {
		t.Errorf("cached label %q != %q", second.Label, first.Label)
	}
	if got := cls.calls.Load(); got != 1 {
		t.Errorf("classifier invoked %d times, want 1", got)
	}
	if got := col.calls.Load(); got != 1 {
		t.Errorf("collector invoked %d times, want 1", got)
	}
}

func TestConcurrentRequestsCoalesce(t *testing.T) {
	cls := &fakeClassifier{
		script:  []classifier.Verdict{malicious(0.8)},
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	a, col := newTestAnalyzer(cls, store.NewMemoryStore())

	const n = 8
	results := make(chan *Result, n)
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		go func() {
			r, err := a.AnalyzeURL(context.Background(), "http://example.com/path")
			if err != nil {
				errs <- err
				return
			}
			results <- r
		}()
	}

	<-cls.started
	// Give the remaining callers time to join the in-flight computation.
	time.Sleep(50 * time.Millisecond)
	close(cls.release)

	for i := 0; i < n; i++ {
		select {
		case err := <-errs:
			t.Fatalf("analyze: %v", err)
		case r := <-results:
			if r.Label != classifier.LabelMalicious {
				t.Errorf("result %d label = %q", i, r.Label)
			}
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for coalesced results")
		}
	}
	if got := cls.calls.Load(); got != 1 {
		t.Errorf("classifier invoked %d times for %d concurrent callers, want 1", got, n)
	}
	if got := col.calls.Load(); got != 1 {
		t.Errorf("collector invoked %d times, want 1", got)
	}
}

func TestFailedVerdictNotCached(t *testing.T) {
	cls := &fakeClassifier{script: []classifier.Verdict{
		{Label: classifier.LabelFailed},
		malicious(0.7),
	}}
	st := store.NewMemoryStore()
	a, _ := newTestAnalyzer(cls, st)
	ctx := context.Background()

	first, err := a.AnalyzeURL(ctx, "http://example.com")
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if first.Label != classifier.LabelFailed {
		t.Fatalf("label = %q, want FAILED", first.Label)
	}
	if st.Len() != 0 {
		t.Fatal("FAILED verdict must not be cached")
	}

	second, err := a.AnalyzeURL(ctx, "http://example.com")
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if second.Label != classifier.LabelMalicious || second.FromCache {
		t.Errorf("retry result: %+v", second)
	}
	if cls.calls.Load() != 2 {
		t.Errorf("classifier invoked %d times, want 2", cls.calls.Load())
	}
	if st.Len() != 1 {
		t.Error("successful retry should be cached")
	}
}

func TestEquivalentURLsShareIdentity(t *testing.T) {
	cls := &fakeClassifier{script: []classifier.Verdict{malicious(0.9)}}
	a, _ := newTestAnalyzer(cls, store.NewMemoryStore())
	ctx := context.Background()

	if _, err := a.AnalyzeURL(ctx, "HTTP://Example.com:80/a/b/"); err != nil {
		t.Fatalf("analyze: %v", err)
	}
	second, err := a.AnalyzeURL(ctx, "http://example.com/a/b")
	if err != nil {
		t.Fatalf("analyze equivalent: %v", err)
	}
	if !second.FromCache {
		t.Error("equivalent spelling should hit the cache")
	}
	if cls.calls.Load() != 1 {
		t.Errorf("classifier invoked %d times, want 1", cls.calls.Load())
	}
}

func TestInvalidURLIsRejected(t *testing.T) {
	a, _ := newTestAnalyzer(&fakeClassifier{}, store.NewMemoryStore())
	if _, err := a.AnalyzeURL(context.Background(), ""); err == nil {
		t.Fatal("empty URL should be rejected")
	}
}

// brokenStore fails every operation.
type brokenStore struct{}

func (brokenStore) Get(context.Context, string) (*store.CacheRecord, error) {
	return nil, errors.New("disk on fire")
}
func (brokenStore) Put(context.Context, *store.CacheRecord) error {
	return errors.New("disk on fire")
}
func (brokenStore) Close() error { return nil }

func TestHeaderInfoPersisted(t *testing.T) {
	header := "Server: nginx"
	v := malicious(0.8)
	v.HeaderInfo = &header
	cls := &fakeClassifier{script: []classifier.Verdict{v}}
	st := store.NewMemoryStore()
	a, _ := newTestAnalyzer(cls, st)

	res, err := a.AnalyzeURL(context.Background(), "http://example.com")
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	rec, err := st.Get(context.Background(), res.URLHash)
	if err != nil {
		t.Fatalf("cache read: %v", err)
	}
	if rec.HeaderInfo == nil || *rec.HeaderInfo != header {
		t.Errorf("HeaderInfo = %v, want %q", rec.HeaderInfo, header)
	}
	if rec.RawFeatures == nil {
		t.Error("raw feature audit JSON not persisted")
	}
}

func TestStoreFailureStillAnswers(t *testing.T) {
	cls := &fakeClassifier{script: []classifier.Verdict{malicious(0.6)}}
	a, _ := newTestAnalyzer(cls, brokenStore{})

	res, err := a.AnalyzeURL(context.Background(), "http://example.com")
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if res.Label != classifier.LabelMalicious {
		t.Errorf("label = %q, want MALICIOUS despite storage failure", res.Label)
	}
}

func TestIdentityIsStable(t *testing.T) {
	n1, err := urlutil.Normalize("http://example.com/a", urlutil.DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	n2, err := urlutil.Normalize("HTTP://EXAMPLE.COM:80/a", urlutil.DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if Identity(n1) != Identity(n2) {
		t.Error("equivalent URLs must share an identity")
	}
	if len(Identity(n1)) != 64 {
		t.Errorf("identity length = %d, want 64 hex chars", len(Identity(n1)))
	}
}
