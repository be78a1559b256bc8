package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/sqanar/urlguard/internal/logging"
	"github.com/sqanar/urlguard/internal/webclient"
)

// Response headers forwarded to the model as classification context, probed
// in this order.
var contextHeaders = []string{
	"Server",
	"Content-Type",
	"X-Powered-By",
	"Location",
	"Set-Cookie",
}

// noHeaderContext is sent when the target returned no usable headers or the
// probe itself failed.
const noHeaderContext = "NOHEADER"

type classifyRequest struct {
	URL         string `json:"url"`
	ContextText string `json:"context_text"`
}

type classifyResponse struct {
	Label      string   `json:"label"`
	Confidence *float64 `json:"confidence"`
}

// HTTPClassifier talks to the external classification service over HTTP.
// Every failure mode degrades to a FAILED verdict.
type HTTPClassifier struct {
	cfg    Config
	client *http.Client
	probe  webclient.WebClient
	logger logging.Logger
}

// NewHTTPClassifier builds the adapter. probe fetches the target URL's
// response headers for context and may be nil to skip the probe entirely.
func NewHTTPClassifier(cfg Config, probe webclient.WebClient, logger logging.Logger) *HTTPClassifier {
	def := DefaultConfig()
	if cfg.Endpoint == "" {
		cfg.Endpoint = def.Endpoint
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.HeaderFetchTimeout <= 0 {
		cfg.HeaderFetchTimeout = def.HeaderFetchTimeout
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &HTTPClassifier{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		probe:  probe,
		logger: logger.With(logging.Field{Key: "component", Value: "classifier"}),
	}
}

// Classify fetches header context for rawURL and posts both to the service.
func (c *HTTPClassifier) Classify(ctx context.Context, rawURL string) Verdict {
	v, err := c.classify(ctx, rawURL)
	if err != nil {
		c.logger.Warn("classification failed",
			logging.Field{Key: "url", Value: rawURL},
			logging.Field{Key: "error", Value: err.Error()})
		return Verdict{Label: LabelFailed}
	}
	return v
}

func (c *HTTPClassifier) classify(ctx context.Context, rawURL string) (Verdict, error) {
	ctxText := c.headerContext(ctx, rawURL)
	payload, err := json.Marshal(classifyRequest{
		URL:         rawURL,
		ContextText: ctxText,
	})
	if err != nil {
		return Verdict{}, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return Verdict{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return Verdict{}, fmt.Errorf("post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return Verdict{}, fmt.Errorf("service returned status %d", resp.StatusCode)
	}

	var out classifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Verdict{}, fmt.Errorf("decode response: %w", err)
	}

	switch Label(out.Label) {
	case LabelMalicious, LabelLegitimate:
		v := Verdict{Label: Label(out.Label), Confidence: out.Confidence}
		if ctxText != noHeaderContext {
			v.HeaderInfo = &ctxText
		}
		return v, nil
	default:
		return Verdict{}, fmt.Errorf("unexpected label %q", out.Label)
	}
}

// headerContext probes the target URL and flattens a fixed set of response
// headers into "Name: value" pairs. Any failure yields the NOHEADER marker;
// the classification proceeds regardless.
func (c *HTTPClassifier) headerContext(ctx context.Context, rawURL string) string {
	if c.probe == nil {
		return noHeaderContext
	}
	probeCtx, cancel := context.WithTimeout(ctx, c.cfg.HeaderFetchTimeout)
	defer cancel()

	resp, err := webclient.Get(probeCtx, c.probe, rawURL)
	if err != nil {
		c.logger.Debug("header probe failed",
			logging.Field{Key: "url", Value: rawURL},
			logging.Field{Key: "error", Value: err.Error()})
		return noHeaderContext
	}

	var parts []string
	for _, name := range contextHeaders {
		if v := resp.Headers.Get(name); v != "" {
			parts = append(parts, name+": "+v)
		}
	}
	if len(parts) == 0 {
		return noHeaderContext
	}
	return strings.Join(parts, ", ")
}
