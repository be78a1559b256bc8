// Package analyzer is the pipeline front door: it owns URL identity,
// the verdict cache, and request coalescing, and drives collection,
// classification and explanation for cache misses.
package analyzer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sync/singleflight"

	"github.com/sqanar/urlguard/internal/classifier"
	"github.com/sqanar/urlguard/internal/explain"
	"github.com/sqanar/urlguard/internal/features"
	"github.com/sqanar/urlguard/internal/logging"
	"github.com/sqanar/urlguard/internal/risk"
	"github.com/sqanar/urlguard/internal/store"
	"github.com/sqanar/urlguard/internal/urlutil"
)

// Collector produces the complete raw feature record for a normalized URL.
type Collector interface {
	Collect(ctx context.Context, n *urlutil.NormalizedURL) *features.RawFeatureRecord
}

// Result is one answered analysis.
type Result struct {
	URL     string `json:"url"`
	URLHash string `json:"url_hash"`

	Label      classifier.Label `json:"label"`
	Confidence *float64         `json:"confidence,omitempty"`

	Justifications []string `json:"justifications"`

	// FromCache is true when the verdict was answered without running
	// the pipeline.
	FromCache bool `json:"from_cache"`
}

// Config holds analyzer behavior toggles.
type Config struct {
	// KeepRawFeatures persists the JSON feature record alongside the
	// verdict for audit.
	KeepRawFeatures bool
}

func DefaultConfig() Config {
	return Config{KeepRawFeatures: true}
}

// Analyzer coalesces concurrent questions about the same URL and caches
// answered verdicts. FAILED classifications are returned but never cached,
// so the next request retries.
type Analyzer struct {
	cfg        Config
	collector  Collector
	classifier classifier.Classifier
	mapper     *risk.Mapper
	ranker     *explain.Ranker
	store      store.Store
	logger     logging.Logger

	flight singleflight.Group
}

func New(cfg Config, col Collector, cls classifier.Classifier, mapper *risk.Mapper, ranker *explain.Ranker, st store.Store, logger logging.Logger) *Analyzer {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Analyzer{
		cfg:        cfg,
		collector:  col,
		classifier: cls,
		mapper:     mapper,
		ranker:     ranker,
		store:      st,
		logger:     logger.With(logging.Field{Key: "component", Value: "analyzer"}),
	}
}

// Identity returns the cache key for a normalized URL, the hex SHA-256 of
// its canonical string.
func Identity(n *urlutil.NormalizedURL) string {
	sum := sha256.Sum256([]byte(n.String()))
	return hex.EncodeToString(sum[:])
}

// AnalyzeURL answers whether rawURL looks malicious. Identical URLs asked
// concurrently share one computation; answered verdicts are served from
// cache on later calls. The only error cases are an unparseable URL and a
// cancelled context.
func (a *Analyzer) AnalyzeURL(ctx context.Context, rawURL string) (*Result, error) {
	n, err := urlutil.Normalize(rawURL, urlutil.DefaultOptions())
	if err != nil {
		return nil, fmt.Errorf("normalize %q: %w", rawURL, err)
	}
	hash := Identity(n)

	v, err, shared := a.flight.Do(hash, func() (interface{}, error) {
		return a.analyze(ctx, n, hash)
	})
	if err != nil {
		return nil, err
	}
	res := v.(*Result)
	if shared {
		// Coalesced callers get their own copy so nobody mutates a peer's.
		cp := *res
		return &cp, nil
	}
	return res, nil
}

func (a *Analyzer) analyze(ctx context.Context, n *urlutil.NormalizedURL, hash string) (*Result, error) {
	if cached, err := a.store.Get(ctx, hash); err == nil {
		return cachedResult(n.String(), hash, cached), nil
	} else if !errors.Is(err, store.ErrNotFound) {
		a.logger.Warn("cache read failed",
			logging.Field{Key: "url_hash", Value: hash},
			logging.Field{Key: "error", Value: err.Error()})
	}

	// Feature collection and classification are independent; run both at
	// once and join before mapping.
	var (
		rec     *features.RawFeatureRecord
		verdict classifier.Verdict
		done    = make(chan struct{})
	)
	go func() {
		defer close(done)
		rec = a.collector.Collect(ctx, n)
	}()
	verdict = a.classifier.Classify(ctx, n.String())
	<-done

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if verdict.Failed() {
		a.logger.Warn("classification unavailable, verdict not cached",
			logging.Field{Key: "url", Value: n.String()})
		return &Result{
			URL:            n.String(),
			URLHash:        hash,
			Label:          classifier.LabelFailed,
			Justifications: []string{},
		}, nil
	}

	mapped := a.mapper.Map(rec)

	justifications := a.ranker.Justifications(rec, verdict.Label)
	res := &Result{
		URL:            n.String(),
		URLHash:        hash,
		Label:          verdict.Label,
		Confidence:     verdict.Confidence,
		Justifications: justifications,
	}

	a.persist(ctx, rec, mapped, verdict.HeaderInfo, res)
	return res, nil
}

// featureAudit is the raw_features JSON shape: the collected record plus
// the ternary risk view derived from it.
type featureAudit struct {
	Raw    *features.RawFeatureRecord `json:"raw"`
	Mapped risk.MappedFeatureRecord   `json:"mapped"`
}

// persist writes the verdict to the cache. Storage trouble is logged and
// swallowed: the caller still gets the verdict.
func (a *Analyzer) persist(ctx context.Context, rec *features.RawFeatureRecord, mapped risk.MappedFeatureRecord, headerInfo *string, res *Result) {
	cacheRec := &store.CacheRecord{
		URLHash:              res.URLHash,
		URL:                  res.URL,
		HeaderInfo:           headerInfo,
		IsMalicious:          res.Label == classifier.LabelMalicious,
		Confidence:           res.Confidence,
		JustificationSummary: strings.Join(res.Justifications, "; "),
	}
	if a.cfg.KeepRawFeatures {
		if raw, err := json.Marshal(featureAudit{Raw: rec, Mapped: mapped}); err == nil {
			cacheRec.RawFeatures = raw
		}
	}
	if err := a.store.Put(ctx, cacheRec); err != nil {
		a.logger.Error("persisting verdict failed",
			logging.Field{Key: "url_hash", Value: res.URLHash},
			logging.Field{Key: "error", Value: err.Error()})
	}
}

func cachedResult(url, hash string, rec *store.CacheRecord) *Result {
	label := classifier.LabelLegitimate
	if rec.IsMalicious {
		label = classifier.LabelMalicious
	}
	var justifications []string
	if rec.JustificationSummary != "" {
		justifications = strings.Split(rec.JustificationSummary, "; ")
	}
	return &Result{
		URL:            url,
		URLHash:        hash,
		Label:          label,
		Confidence:     rec.Confidence,
		Justifications: justifications,
		FromCache:      true,
	}
}
