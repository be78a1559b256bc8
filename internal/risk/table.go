package risk

import (
	"embed"
	"encoding/json"
	"fmt"
	"os"
)

// Feature keys shared by the tuned-threshold table, the mapper and the
// explanation ranker. The spellings match the persisted threshold config.
const (
	KeyDomainAgeDays  = "domain_age_days"
	KeyDaysToExpiry   = "days_to_expiry"
	KeyWhoisAvailable = "whois_available"
	KeyRegistrar      = "registrar"

	KeyURLLength      = "url_length"
	KeyDomainLength   = "domain_length"
	KeyTLDLength      = "tld_length"
	KeyPathLength     = "path_length"
	KeyQueryLength    = "query_length"
	KeySubdomainCount = "subdomain_count"
	KeyCharRatio      = "char_ratio"
	KeyDigitRatio     = "digit_ratio"
	KeyDotCount       = "dot_count"
	KeyHyphenCount    = "hyphen_count"
	KeySlashCount     = "slash_count"
	KeyQuestionCount  = "question_count"
	KeyHasHash        = "has_hash"
	KeyHasAtSymbol    = "has_at_symbol"
	KeyIsPunycode     = "is_punycode"
	KeyEncoding       = "encoding"
	KeyContainsPort   = "contains_port"
	KeyFileExtension  = "file_extension"
	KeyContainsIP     = "contains_ip"
	KeyPhishingWords  = "phishing_keywords"
	KeyFreeDomain     = "free_domain"
	KeyShortenedURL   = "shortened_url"
	KeyTyposquatting  = "typosquatting"

	KeyExtURLRatio        = "extUrlRatio"
	KeyExternalAnchorRate = "externalAnchorRatio"
	KeyInvalidAnchorRate  = "invalidAnchorRatio"

	KeyCertTotalDays = "cert_total_days"
	KeyIsHTTPS       = "is_https"
)

// Direction states which side of the thresholds is risky.
type Direction string

const (
	HigherIsRisk Direction = "higher_is_risk"
	LowerIsRisk  Direction = "lower_is_risk"
)

// Quantiles are optional distribution percentiles for the soft-band fallback
// used by the explanation scorer.
type Quantiles struct {
	P25 *float64 `json:"p25,omitempty"`
	P75 *float64 `json:"p75,omitempty"`
}

// Entry is one tuned-threshold rule for a numeric feature.
type Entry struct {
	Direction Direction  `json:"direction"`
	TMed      *float64   `json:"t_med,omitempty"`
	THigh     *float64   `json:"t_high,omitempty"`
	Q         *Quantiles `json:"q,omitempty"`
}

// Table maps feature keys to tuned rules. Features without an entry use the
// hand-authored mapping rules baked into the mapper.
type Table map[string]Entry

//go:embed thresholds.json
var thresholdsFS embed.FS

// DefaultTable returns the tuned thresholds shipped with the binary.
func DefaultTable() Table {
	data, err := thresholdsFS.ReadFile("thresholds.json")
	if err != nil {
		// Embedded file, read can only fail if the build is broken.
		panic(fmt.Sprintf("risk: embedded thresholds: %v", err))
	}
	var t Table
	if err := json.Unmarshal(data, &t); err != nil {
		panic(fmt.Sprintf("risk: embedded thresholds: %v", err))
	}
	return t
}

// LoadTable reads a tuned-threshold table from a JSON file. Intended to be
// called once at process start; an empty path returns the embedded default.
func LoadTable(path string) (Table, error) {
	if path == "" {
		return DefaultTable(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read thresholds: %w", err)
	}
	var t Table
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parse thresholds: %w", err)
	}
	return t, nil
}
