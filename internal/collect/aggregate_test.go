package collect

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sqanar/urlguard/internal/logging"
	"github.com/sqanar/urlguard/internal/testutil"
)

// newTestAggregator wires collectors that never touch the network.
func newTestAggregator(t *testing.T, lookup WhoisLookupFunc) *Aggregator {
	t.Helper()
	cfg := DefaultConfig()
	cfg.TLSTimeout = 100 * time.Millisecond

	whois := NewWhoisCollector(cfg, lookup, logging.NewNopLogger())
	whois.sleep = noSleep

	tlsc := NewTLSCollector(cfg, logging.NewNopLogger())
	tlsc.addr = "127.0.0.1:1" // dial fails fast

	content := NewContentCollector(cfg, &testutil.CountingWebClient{}, &testutil.StaticResolver{}, logging.NewNopLogger())

	return NewAggregator(whois, tlsc, content, logging.NewNopLogger())
}

func TestAggregatorAllCollectorsFailingStillCompleteRecord(t *testing.T) {
	agg := newTestAggregator(t, func(context.Context, string) (*WhoisRecord, error) {
		return nil, errors.New("whois down")
	})

	rec := agg.Collect(context.Background(), normalized(t, "http://very-broken.example/login"))

	// Lexical features are always measured.
	if rec.Lexical.URLLength == 0 {
		t.Fatal("lexical features missing")
	}
	// Every failing collector degrades to unknown, not to an error.
	if rec.Whois.Available {
		t.Error("expected whois unavailable")
	}
	if rec.TLS.CertTotalDays.Known {
		t.Error("expected unknown cert span")
	}
	if rec.Content.Measured {
		t.Error("expected unmeasured content")
	}
	if rec.DomainAgeDays.Known || rec.DaysToExpiry.Known {
		t.Error("expected unknown derived ages")
	}
}

func TestAggregatorDerivesAges(t *testing.T) {
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	expiry := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	agg := newTestAggregator(t, func(context.Context, string) (*WhoisRecord, error) {
		return &WhoisRecord{Created: &created, Expiry: &expiry}, nil
	})
	agg.now = func() time.Time { return time.Date(2024, 1, 11, 0, 0, 0, 0, time.UTC) }

	rec := agg.Collect(context.Background(), normalized(t, "http://example.com"))

	if !rec.DomainAgeDays.Known || rec.DomainAgeDays.Value != 10 {
		t.Errorf("DomainAgeDays = %+v, want 10", rec.DomainAgeDays)
	}
	if !rec.DaysToExpiry.Known || rec.DaysToExpiry.Value != 721 {
		t.Errorf("DaysToExpiry = %+v, want 721", rec.DaysToExpiry)
	}
}

func TestAggregatorUnparseableDatesStayUnknown(t *testing.T) {
	agg := newTestAggregator(t, func(context.Context, string) (*WhoisRecord, error) {
		return &WhoisRecord{Registrar: "Somebody"}, nil
	})

	rec := agg.Collect(context.Background(), normalized(t, "http://example.com"))

	if !rec.Whois.Available {
		t.Fatal("expected whois available")
	}
	if rec.DomainAgeDays.Known || rec.DaysToExpiry.Known {
		t.Fatalf("expected unknown ages, got %+v / %+v", rec.DomainAgeDays, rec.DaysToExpiry)
	}
}

func TestAggregatorOwnsOneRecordPerCall(t *testing.T) {
	agg := newTestAggregator(t, func(context.Context, string) (*WhoisRecord, error) {
		return nil, errors.New("down")
	})

	n := normalized(t, "http://example.com")
	a := agg.Collect(context.Background(), n)
	b := agg.Collect(context.Background(), n)
	if a == b {
		t.Fatal("expected distinct records per call")
	}
	if a.URL != b.URL {
		t.Fatal("expected identical content for identical input")
	}
}
