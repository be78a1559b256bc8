package collect

import (
	"context"
	"strings"
	"time"

	"github.com/likexian/whois"
	whoisparser "github.com/likexian/whois-parser"

	"github.com/sqanar/urlguard/internal/features"
	"github.com/sqanar/urlguard/internal/logging"
)

// WhoisRecord is what a lookup yields before normalization into the feature
// sub-record. Dates stay as raw time values so formatting lives in one place.
type WhoisRecord struct {
	Created   *time.Time
	Expiry    *time.Time
	Registrar string
}

// WhoisLookupFunc performs one registration-data lookup for a bare domain.
// Injectable so tests never hit real WHOIS servers.
type WhoisLookupFunc func(ctx context.Context, domain string) (*WhoisRecord, error)

// WhoisCollector fetches domain registration metadata with retry. It never
// returns an error past its boundary: exhausted retries produce an
// all-unknown record with Available=false.
type WhoisCollector struct {
	cfg    Config
	lookup WhoisLookupFunc
	logger logging.Logger

	// sleep is swappable in tests so retries don't take real time.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewWhoisCollector builds the collector. A nil lookup installs the real
// likexian/whois-backed one.
func NewWhoisCollector(cfg Config, lookup WhoisLookupFunc, logger logging.Logger) *WhoisCollector {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if lookup == nil {
		lookup = liveWhoisLookup(cfg.WhoisTimeout)
	}
	return &WhoisCollector{
		cfg:    cfg,
		lookup: lookup,
		logger: logger.With(logging.Field{Key: "component", Value: "whois-collector"}),
		sleep:  sleepCtx,
	}
}

// Collect looks up registration data for host with up to cfg.WhoisAttempts
// tries and a fixed backoff between them. Dates are normalized to YYYY-MM-DD.
func (c *WhoisCollector) Collect(ctx context.Context, host string) features.WhoisFeatures {
	domain := strings.TrimPrefix(host, "www.")

	attempts := c.cfg.WhoisAttempts
	if attempts <= 0 {
		attempts = 1
	}

	for i := 0; i < attempts; i++ {
		if ctx.Err() != nil {
			break
		}
		rec, err := c.lookup(ctx, domain)
		if err == nil && rec != nil {
			out := features.WhoisFeatures{Available: true}
			if rec.Created != nil {
				out.CreatedDate = features.String(rec.Created.Format("2006-01-02"))
			}
			if rec.Expiry != nil {
				out.ExpiryDate = features.String(rec.Expiry.Format("2006-01-02"))
			}
			if rec.Registrar != "" {
				out.Registrar = features.String(rec.Registrar)
			}
			return out
		}
		if err != nil {
			c.logger.Debug("whois lookup failed",
				logging.Field{Key: "domain", Value: domain},
				logging.Field{Key: "attempt", Value: i + 1},
				logging.Field{Key: "error", Value: err.Error()})
		}
		if i < attempts-1 {
			if serr := c.sleep(ctx, c.cfg.WhoisBackoff); serr != nil {
				break
			}
		}
	}

	c.logger.Warn("whois unavailable after retries", logging.Field{Key: "domain", Value: domain})
	return features.WhoisFeatures{Available: false}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// liveWhoisLookup queries WHOIS servers via likexian/whois and parses the raw
// response with likexian/whois-parser.
func liveWhoisLookup(timeout time.Duration) WhoisLookupFunc {
	client := whois.NewClient()
	if timeout > 0 {
		client.SetTimeout(timeout)
	}
	return func(ctx context.Context, domain string) (*WhoisRecord, error) {
		raw, err := client.Whois(domain)
		if err != nil {
			return nil, err
		}
		info, err := whoisparser.Parse(raw)
		if err != nil {
			return nil, err
		}

		rec := &WhoisRecord{}
		if info.Domain != nil {
			rec.Created = parseWhoisDate(info.Domain.CreatedDateInTime, info.Domain.CreatedDate)
			rec.Expiry = parseWhoisDate(info.Domain.ExpirationDateInTime, info.Domain.ExpirationDate)
		}
		if info.Registrar != nil {
			rec.Registrar = info.Registrar.Name
		}
		return rec, nil
	}
}

// parseWhoisDate prefers the parser's time value and falls back to the common
// date spellings registries use. Returns nil for anything unparseable.
func parseWhoisDate(parsed *time.Time, raw string) *time.Time {
	if parsed != nil {
		return parsed
	}
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.EqualFold(raw, "unknown") {
		return nil
	}
	// Drop a trailing time-of-day component
	if fields := strings.Fields(raw); len(fields) > 0 {
		raw = fields[0]
	}
	for _, layout := range []string{"2006-01-02", "2006/01/02", time.RFC3339} {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t
		}
	}
	return nil
}
