package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sqanar/urlguard/internal/analyzer"
	"github.com/sqanar/urlguard/internal/classifier"
	"github.com/sqanar/urlguard/internal/explain"
	"github.com/sqanar/urlguard/internal/features"
	"github.com/sqanar/urlguard/internal/risk"
	"github.com/sqanar/urlguard/internal/store"
	"github.com/sqanar/urlguard/internal/urlutil"
)

type stubCollector struct{}

func (stubCollector) Collect(_ context.Context, n *urlutil.NormalizedURL) *features.RawFeatureRecord {
	return &features.RawFeatureRecord{
		URL:           n.String(),
		Domain:        n.Host(),
		Lexical:       features.ExtractLexical(n),
		DomainAgeDays: features.Int(12),
	}
}

type stubClassifier struct {
	verdict classifier.Verdict
}

func (s stubClassifier) Classify(context.Context, string) classifier.Verdict { return s.verdict }

func newTestServer(v classifier.Verdict) *Server {
	a := analyzer.New(analyzer.DefaultConfig(), stubCollector{}, stubClassifier{verdict: v},
		risk.NewMapper(nil), explain.NewRanker(nil, 3), store.NewMemoryStore(), nil)
	return NewServer(Config{}, a, nil)
}

func TestHandleAnalyze(t *testing.T) {
	conf := 0.9
	srv := newTestServer(classifier.Verdict{Label: classifier.LabelMalicious, Confidence: &conf})

	req := httptest.NewRequest(http.MethodPost, "/api/analyze",
		strings.NewReader(`{"url":"http://198.51.100.7/login.php"}`))
	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body)
	}
	var res analyzer.Result
	if err := json.Unmarshal(rr.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.Label != classifier.LabelMalicious {
		t.Errorf("label = %q", res.Label)
	}
	if len(res.Justifications) == 0 {
		t.Error("no justifications returned")
	}
	if res.FromCache {
		t.Error("first analysis should not come from cache")
	}
	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("response missing X-Request-ID")
	}
}

func TestRequestIDHonorsCaller(t *testing.T) {
	srv := newTestServer(classifier.Verdict{Label: classifier.LabelLegitimate})
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "caller-chosen")
	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, req)
	if got := rr.Header().Get("X-Request-ID"); got != "caller-chosen" {
		t.Errorf("X-Request-ID = %q, want caller-chosen", got)
	}
}

func TestHandleAnalyzeBadRequests(t *testing.T) {
	srv := newTestServer(classifier.Verdict{Label: classifier.LabelLegitimate})

	tests := []struct {
		name string
		body string
	}{
		{"invalid json", "{"},
		{"missing url", "{}"},
		{"unparseable url", `{"url":"   "}`},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodPost, "/api/analyze", strings.NewReader(tt.body))
		rr := httptest.NewRecorder()
		srv.ServeHTTP(rr, req)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", tt.name, rr.Code)
		}
	}
}

func TestHandleHealth(t *testing.T) {
	srv := newTestServer(classifier.Verdict{Label: classifier.LabelLegitimate})
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
}
