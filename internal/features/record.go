package features

// Family is the topical grouping of a feature, used to diversify
// justifications. The four values match the signal collectors.
type Family string

const (
	FamilyWhois   Family = "whois"
	FamilyURL     Family = "url"
	FamilySSL     Family = "ssl"
	FamilyContent Family = "content"
)

// OptInt is an integer that may be unknown. The zero value is unknown,
// so a collector that never ran leaves the field correctly marked.
type OptInt struct {
	Value int
	Known bool
}

// OptFloat is a float that may be unknown. Distinguishes "measured 0"
// from "could not measure".
type OptFloat struct {
	Value float64
	Known bool
}

// OptString is a string that may be unknown ("" is a legal known value).
type OptString struct {
	Value string
	Known bool
}

func Int(v int) OptInt          { return OptInt{Value: v, Known: true} }
func Float(v float64) OptFloat  { return OptFloat{Value: v, Known: true} }
func String(v string) OptString { return OptString{Value: v, Known: true} }

// LexicalFeatures are the purely string/structural signals computed from the
// normalized URL. The extractor is a pure function, so every field here is
// always measured.
type LexicalFeatures struct {
	IsPunycode       bool    `json:"is_punycode"`
	URLLength        int     `json:"url_length"`
	DomainLength     int     `json:"domain_length"`
	TLDLength        int     `json:"tld_length"`
	PathLength       int     `json:"path_length"`
	QueryLength      int     `json:"query_length"`
	SubdomainCount   int     `json:"subdomain_count"`
	CharRatio        float64 `json:"char_ratio"`
	DigitRatio       float64 `json:"digit_ratio"`
	DotCount         int     `json:"dot_count"`
	HyphenCount      int     `json:"hyphen_count"`
	SlashCount       int     `json:"slash_count"`
	QuestionCount    int     `json:"question_count"`
	HasHash          bool    `json:"has_hash"`
	HasAtSymbol      bool    `json:"has_at_symbol"`
	IsHTTPS          bool    `json:"is_https"`
	HasEncoding      bool    `json:"encoding"`
	ContainsPort     bool    `json:"contains_port"`
	HasFileExtension bool    `json:"file_extension"`
	ContainsIP       bool    `json:"contains_ip"`
	PhishingKeywords bool    `json:"phishing_keywords"`
	FreeDomain       bool    `json:"free_domain"`
	ShortenedURL     bool    `json:"shortened_url"`
	Typosquatting    bool    `json:"typosquatting"`
}

// WhoisFeatures is the registration-data sub-record. Available is true only
// when the lookup itself succeeded, independent of whether the dates were
// parseable.
type WhoisFeatures struct {
	Available   bool      `json:"whois_available"`
	CreatedDate OptString `json:"created_date"` // YYYY-MM-DD when known
	ExpiryDate  OptString `json:"expiry_date"`  // YYYY-MM-DD when known
	Registrar   OptString `json:"registrar"`
}

// TLSFeatures is the certificate sub-record.
type TLSFeatures struct {
	CertTotalDays OptInt    `json:"cert_total_days"`
	CertIssuer    OptString `json:"cert_issuer"`
}

// ContentFeatures are the crawl ratios. Measured is false when crawling was
// disabled, the host did not resolve, or the fetch/parse failed; in that case
// the zero ratios mean "not measured", not "measured zero".
type ContentFeatures struct {
	Measured           bool    `json:"measured"`
	ExtURLRatio        float64 `json:"extUrlRatio"`
	ExternalAnchorRate float64 `json:"externalAnchorRatio"`
	InvalidAnchorRate  float64 `json:"invalidAnchorRatio"`
}

// RawFeatureRecord is the fixed, named schema merged from all collectors for
// one analyzed URL. Each request owns its own record; records are never
// shared across concurrent requests.
type RawFeatureRecord struct {
	URL    string `json:"url"`
	Domain string `json:"domain"`

	Lexical LexicalFeatures `json:"lexical"`
	Whois   WhoisFeatures   `json:"whois"`
	TLS     TLSFeatures     `json:"tls"`
	Content ContentFeatures `json:"content"`

	// Derived by the aggregator from the WHOIS dates against "now".
	// Unknown when the dates were missing or unparseable.
	DomainAgeDays OptInt `json:"domain_age_days"`
	DaysToExpiry  OptInt `json:"days_to_expiry"`
}
