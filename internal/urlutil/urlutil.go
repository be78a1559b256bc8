package urlutil

import (
	"net"
	"net/url"
	"path"
	"sort"
	"strings"

	"golang.org/x/net/idna"
	"golang.org/x/net/publicsuffix"
)

// Errors
var (
	ErrEmptyURL    = &url.Error{Op: "normalize", URL: "", Err: &errStr{"empty url"}}
	ErrMissingHost = &url.Error{Op: "normalize", URL: "", Err: &errStr{"missing host"}}
)

type errStr struct{ s string }

func (e *errStr) Error() string { return e.s }

// NormalizeOptions controls optional normalization policies.
type NormalizeOptions struct {
	// DefaultScheme is assumed for schemeless input; if empty, a scheme is required.
	DefaultScheme string

	// StripTrailingSlash treats /a and /a/ the same by removing the trailing
	// slash (except for root "/").
	StripTrailingSlash bool
}

// DefaultOptions returns the normalization policy used by the analysis
// pipeline: schemeless input is assumed to be plain http.
func DefaultOptions() NormalizeOptions {
	return NormalizeOptions{
		DefaultScheme:      "http",
		StripTrailingSlash: true,
	}
}

// NormalizedURL wraps a parsed, canonicalized URL and exposes the structural
// accessors the feature extractors need. Construct via Normalize.
type NormalizedURL struct {
	URL *url.URL

	hadFragment bool
}

// Normalize returns a deterministic canonical URL or an error. It lowercases
// scheme and host, converts IDN hosts to punycode, strips default ports,
// drops userinfo and fragment, cleans the path and sorts query params.
// Fails closed: input with no parseable host returns an error rather than a
// guess.
func Normalize(raw string, opts NormalizeOptions) (*NormalizedURL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrEmptyURL
	}

	// If a default scheme is configured and the input has none, prepend it.
	if opts.DefaultScheme != "" && !strings.Contains(raw, "://") {
		raw = opts.DefaultScheme + "://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}

	// Must have host
	if u.Host == "" {
		return nil, ErrMissingHost
	}

	u.Scheme = strings.ToLower(u.Scheme)

	// Lowercase host and convert IDN -> punycode
	host := strings.ToLower(u.Hostname())
	if puny, err := idna.Lookup.ToASCII(host); err == nil {
		host = puny
	}

	// Preserve non-default port only
	port := u.Port()
	if (u.Scheme == "http" && port == "80") || (u.Scheme == "https" && port == "443") {
		u.Host = host
	} else if port != "" {
		u.Host = net.JoinHostPort(host, port)
	} else {
		u.Host = host
	}

	// Drop userinfo (credentials)
	u.User = nil

	// Normalize path
	cleanPath := u.Path
	if cleanPath != "" {
		cleanPath = path.Clean(cleanPath)
		if cleanPath == "." {
			cleanPath = "/"
		}
	}
	if opts.StripTrailingSlash && len(cleanPath) > 1 {
		cleanPath = strings.TrimRight(cleanPath, "/")
		if cleanPath == "" {
			cleanPath = "/"
		}
	}
	u.Path = cleanPath

	// Remove fragment... but record it first: the lexical extractor counts it.
	hadFragment := u.Fragment != ""
	u.Fragment = ""

	// Sort query keys and values for deterministic encoding
	q := u.Query()
	keys := make([]string, 0, len(q))
	for k := range q {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	ordered := url.Values{}
	for _, k := range keys {
		values := q[k]
		sort.Strings(values)
		for _, v := range values {
			ordered.Add(k, v)
		}
	}
	u.RawQuery = ordered.Encode()

	return &NormalizedURL{URL: u, hadFragment: hadFragment}, nil
}

// String returns the canonical URL string. url.URL.String re-escapes as needed.
func (n *NormalizedURL) String() string { return n.URL.String() }

// Host returns the lower-cased host without the port.
func (n *NormalizedURL) Host() string { return n.URL.Hostname() }

// HostPort returns host:port as present in the canonical URL.
func (n *NormalizedURL) HostPort() string { return n.URL.Host }

// Path returns the cleaned URL path.
func (n *NormalizedURL) Path() string { return n.URL.Path }

// Query returns the sorted raw query string.
func (n *NormalizedURL) Query() string { return n.URL.RawQuery }

// IsHTTPS reports whether the canonical scheme is https.
func (n *NormalizedURL) IsHTTPS() bool { return n.URL.Scheme == "https" }

// HasPort reports whether a non-default port survived normalization.
func (n *NormalizedURL) HasPort() bool { return n.URL.Port() != "" }

// HadFragment reports whether the raw input carried a #fragment before it was
// stripped during normalization.
func (n *NormalizedURL) HadFragment() bool { return n.hadFragment }

// RegistrableDomain returns the eTLD+1 for the host ("example.co.uk" for
// "a.b.example.co.uk"), falling back to the host itself when the public
// suffix list cannot derive one (IP literals, single labels).
func (n *NormalizedURL) RegistrableDomain() string {
	host := n.Host()
	if d, err := publicsuffix.EffectiveTLDPlusOne(host); err == nil {
		return d
	}
	return host
}

// SecondLevelLabel returns the label left of the public suffix, i.e. the part
// a typosquatter imitates ("paypa1" in "paypa1.com"). Empty for IP literals.
func (n *NormalizedURL) SecondLevelLabel() string {
	if net.ParseIP(n.Host()) != nil {
		return ""
	}
	reg := n.RegistrableDomain()
	label, _, found := strings.Cut(reg, ".")
	if !found {
		return reg
	}
	return label
}

// SameRegistrableDomain reports whether target belongs to the same
// registrable domain as n. Used for external-resource classification.
func (n *NormalizedURL) SameRegistrableDomain(target *url.URL) bool {
	th := strings.ToLower(target.Hostname())
	if th == "" {
		return true // relative reference resolves onto the page's own domain
	}
	td := th
	if d, err := publicsuffix.EffectiveTLDPlusOne(th); err == nil {
		td = d
	}
	return td == n.RegistrableDomain()
}
