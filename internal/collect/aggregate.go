package collect

import (
	"context"
	"sync"
	"time"

	"github.com/sqanar/urlguard/internal/features"
	"github.com/sqanar/urlguard/internal/logging"
	"github.com/sqanar/urlguard/internal/urlutil"
)

// Aggregator fans the network collectors out per request and joins their
// outputs into one complete RawFeatureRecord. A slow or failing collector
// degrades only its own family to unknown; the join always completes.
type Aggregator struct {
	whois   *WhoisCollector
	tls     *TLSCollector
	content *ContentCollector
	logger  logging.Logger

	// now is swappable in tests so derived day counts are stable.
	now func() time.Time
}

func NewAggregator(whois *WhoisCollector, tls *TLSCollector, content *ContentCollector, logger logging.Logger) *Aggregator {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Aggregator{
		whois:   whois,
		tls:     tls,
		content: content,
		logger:  logger.With(logging.Field{Key: "component", Value: "aggregator"}),
		now:     time.Now,
	}
}

// Collect runs the lexical extractor inline and the three network collectors
// concurrently, then merges everything. This is the pipeline's only fan-out /
// fan-in point: the returned record is always fully populated (with unknowns
// substituted for failures) before the risk mapper sees it.
func (a *Aggregator) Collect(ctx context.Context, n *urlutil.NormalizedURL) *features.RawFeatureRecord {
	rec := &features.RawFeatureRecord{
		URL:     n.String(),
		Domain:  n.Host(),
		Lexical: features.ExtractLexical(n),
	}

	var wg sync.WaitGroup
	wg.Add(3)

	go func() {
		defer wg.Done()
		rec.Whois = a.whois.Collect(ctx, n.Host())
	}()
	go func() {
		defer wg.Done()
		rec.TLS = a.tls.Collect(ctx, n.Host())
	}()
	go func() {
		defer wg.Done()
		rec.Content = a.content.Collect(ctx, n)
	}()

	wg.Wait()

	rec.DomainAgeDays, rec.DaysToExpiry = a.deriveAges(rec.Whois)

	return rec
}

// deriveAges turns WHOIS dates into day counts against now. Unparseable or
// missing dates stay unknown.
func (a *Aggregator) deriveAges(w features.WhoisFeatures) (age, toExpiry features.OptInt) {
	now := a.now()
	if w.CreatedDate.Known {
		if t, err := time.Parse("2006-01-02", w.CreatedDate.Value); err == nil {
			age = features.Int(int(now.Sub(t).Hours() / 24))
		}
	}
	if w.ExpiryDate.Known {
		if t, err := time.Parse("2006-01-02", w.ExpiryDate.Value); err == nil {
			toExpiry = features.Int(int(t.Sub(now).Hours() / 24))
		}
	}
	return age, toExpiry
}
