package collect

import (
	"bytes"
	"context"
	"math"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/sqanar/urlguard/internal/features"
	"github.com/sqanar/urlguard/internal/logging"
	"github.com/sqanar/urlguard/internal/urlutil"
	"github.com/sqanar/urlguard/internal/webclient"
)

// ContentCollector fetches the page and computes crawl ratios over embedded
// resources and anchors. It is gated by the system-wide crawl switch and by a
// DNS-resolvability pre-check; when either gate closes, it performs zero
// network calls and returns an unmeasured sub-record.
type ContentCollector struct {
	cfg      Config
	wc       webclient.WebClient
	resolver Resolver
	logger   logging.Logger
}

// NewContentCollector builds the collector. resolver may be nil to use the
// system resolver.
func NewContentCollector(cfg Config, wc webclient.WebClient, resolver Resolver, logger logging.Logger) *ContentCollector {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &ContentCollector{
		cfg:      cfg,
		wc:       wc,
		resolver: resolver,
		logger:   logger.With(logging.Field{Key: "component", Value: "content-collector"}),
	}
}

// Collect fetches n's page and computes the three crawl ratios. Fetch or
// parse failure degrades to unmeasured zeros, never an error.
func (c *ContentCollector) Collect(ctx context.Context, n *urlutil.NormalizedURL) features.ContentFeatures {
	if !c.cfg.CrawlEnabled {
		return features.ContentFeatures{}
	}
	if !canResolve(ctx, c.resolver, n.Host()) {
		c.logger.Debug("host does not resolve, skipping crawl",
			logging.Field{Key: "host", Value: n.Host()})
		return features.ContentFeatures{}
	}

	fetchCtx := ctx
	if c.cfg.FetchTimeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, c.cfg.FetchTimeout)
		defer cancel()
	}

	resp, err := webclient.Get(fetchCtx, c.wc, n.String())
	if err != nil {
		c.logger.Debug("page fetch failed",
			logging.Field{Key: "url", Value: n.String()},
			logging.Field{Key: "error", Value: err.Error()})
		return features.ContentFeatures{}
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body))
	if err != nil {
		c.logger.Debug("page parse failed",
			logging.Field{Key: "url", Value: n.String()},
			logging.Field{Key: "error", Value: err.Error()})
		return features.ContentFeatures{}
	}

	return crawlRatios(n, doc)
}

// crawlRatios computes the fraction of externally-hosted script/link
// resources, the fraction of off-domain anchors, and the fraction of anchors
// with an invalid target.
func crawlRatios(page *urlutil.NormalizedURL, doc *goquery.Document) features.ContentFeatures {
	var totalResources, externalResources int

	count := func(sel, attr string) {
		doc.Find(sel).Each(func(_ int, s *goquery.Selection) {
			ref, ok := s.Attr(attr)
			if !ok || strings.TrimSpace(ref) == "" {
				return
			}
			totalResources++
			if isExternal(page, ref) {
				externalResources++
			}
		})
	}
	count("script[src]", "src")
	count("link[href]", "href")

	var totalAnchors, externalAnchors, invalidAnchors int
	doc.Find("a").Each(func(_ int, s *goquery.Selection) {
		totalAnchors++
		href, ok := s.Attr("href")
		if !ok || isInvalidHref(href) {
			invalidAnchors++
			return
		}
		if isExternal(page, href) {
			externalAnchors++
		}
	})

	out := features.ContentFeatures{Measured: true}
	if totalResources > 0 {
		out.ExtURLRatio = round3(float64(externalResources) / float64(totalResources))
	}
	if totalAnchors > 0 {
		out.ExternalAnchorRate = round3(float64(externalAnchors) / float64(totalAnchors))
		out.InvalidAnchorRate = round3(float64(invalidAnchors) / float64(totalAnchors))
	}
	return out
}

// isExternal resolves ref against the page URL and reports whether it lands
// on a different registrable domain.
func isExternal(page *urlutil.NormalizedURL, ref string) bool {
	parsed, err := url.Parse(strings.TrimSpace(ref))
	if err != nil {
		return false
	}
	resolved := page.URL.ResolveReference(parsed)
	return !page.SameRegistrableDomain(resolved)
}

// isInvalidHref matches empty and no-op anchor targets.
func isInvalidHref(href string) bool {
	switch strings.TrimSpace(href) {
	case "", "#", "javascript:void(0)", "javascript:;":
		return true
	}
	return false
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
