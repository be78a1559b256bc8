package risk

import (
	"strings"

	"github.com/sqanar/urlguard/internal/features"
)

// Level is the ternary risk value a feature maps to.
type Level int8

const (
	Reassuring Level = -1
	Neutral    Level = 0
	Concerning Level = 1
)

// MappedFeatureRecord is the ternary view of a raw feature record. Every
// field is always populated; features whose raw value is unknown map to
// Neutral.
type MappedFeatureRecord struct {
	DomainAgeDays  Level `json:"domain_age_days"`
	DaysToExpiry   Level `json:"days_to_expiry"`
	WhoisAvailable Level `json:"whois_available"`
	Registrar      Level `json:"registrar"`

	IsHTTPS       Level `json:"is_https"`
	HTTPSCertRisk Level `json:"https_cert_risk"`

	ExtURLRatio        Level `json:"extUrlRatio"`
	ExternalAnchorRate Level `json:"externalAnchorRatio"`
	InvalidAnchorRate  Level `json:"invalidAnchorRatio"`

	IsPunycode      Level `json:"is_punycode"`
	URLLength       Level `json:"url_length"`
	DomainLength    Level `json:"domain_length"`
	TLDLength       Level `json:"tld_length"`
	PathLength      Level `json:"path_length"`
	QueryLength     Level `json:"query_length"`
	SubdomainCount  Level `json:"subdomain_count"`
	CharRatio       Level `json:"char_ratio"`
	DigitRatio      Level `json:"digit_ratio"`
	DotCount        Level `json:"dot_count"`
	HyphenCount     Level `json:"hyphen_count"`
	SlashCount      Level `json:"slash_count"`
	QuestionCount   Level `json:"question_count"`
	HasHash         Level `json:"has_hash"`
	HasAtSymbol     Level `json:"has_at_symbol"`
	HasEncoding     Level `json:"encoding"`
	ContainsPort    Level `json:"contains_port"`
	HasFileExt      Level `json:"file_extension"`
	ContainsIP      Level `json:"contains_ip"`
	PhishingWords   Level `json:"phishing_keywords"`
	FreeDomain      Level `json:"free_domain"`
	ShortenedURL    Level `json:"shortened_url"`
	Typosquatting   Level `json:"typosquatting"`
}

// Registrars whose presence is taken as a trust or distrust signal. Matched
// as case-insensitive substrings of the registrar name.
var (
	trustedRegistrars = []string{
		"markmonitor",
		"godaddy",
		"csc",
		"com laude",
		"amazon registrar",
		"alibaba cloud",
		"network solutions",
		"cloudflare",
	}
	riskyRegistrars = []string{
		"dominent",
		"gname.com",
		"webcc",
	}
)

// Mapper turns raw feature records into ternary risk levels. Numeric
// features with a tuned-threshold entry follow the table; everything else
// follows the hand-authored rules.
type Mapper struct {
	table Table
}

// NewMapper builds a mapper over the given tuned table. A nil table means
// every feature uses the hand-authored rules.
func NewMapper(table Table) *Mapper {
	return &Mapper{table: table}
}

// Map produces the ternary view of rec. Total over its input: unknown raw
// values always map to Neutral.
func (m *Mapper) Map(rec *features.RawFeatureRecord) MappedFeatureRecord {
	lex := rec.Lexical
	out := MappedFeatureRecord{
		DomainAgeDays:  m.numericOpt(KeyDomainAgeDays, rec.DomainAgeDays, mapAgeDays),
		DaysToExpiry:   m.numericOpt(KeyDaysToExpiry, rec.DaysToExpiry, mapAgeDays),
		WhoisAvailable: boolLevel(!rec.Whois.Available),
		Registrar:      mapRegistrar(rec.Whois.Registrar),

		IsHTTPS:       boolLevel(!lex.IsHTTPS),
		HTTPSCertRisk: mapCertRisk(lex.IsHTTPS, rec.TLS),

		ExtURLRatio:        m.contentRatio(KeyExtURLRatio, rec.Content, rec.Content.ExtURLRatio),
		ExternalAnchorRate: m.contentRatio(KeyExternalAnchorRate, rec.Content, rec.Content.ExternalAnchorRate),
		InvalidAnchorRate:  m.contentRatio(KeyInvalidAnchorRate, rec.Content, rec.Content.InvalidAnchorRate),

		IsPunycode: boolLevel(lex.IsPunycode),
		URLLength: m.numeric(KeyURLLength, float64(lex.URLLength), func(v float64) Level {
			return stepUp(v, 130, 80)
		}),
		DomainLength: m.numeric(KeyDomainLength, float64(lex.DomainLength), func(v float64) Level {
			return stepDown(v, 10, 18)
		}),
		TLDLength: m.numeric(KeyTLDLength, float64(lex.TLDLength), func(v float64) Level {
			if v <= 2 {
				return Concerning
			}
			return Reassuring
		}),
		PathLength: m.numeric(KeyPathLength, float64(lex.PathLength), func(v float64) Level {
			return stepUp(v, 100, 30)
		}),
		QueryLength: m.numeric(KeyQueryLength, float64(lex.QueryLength), func(v float64) Level {
			return stepUp(v, 80, 20)
		}),
		SubdomainCount: m.numeric(KeySubdomainCount, float64(lex.SubdomainCount), func(v float64) Level {
			switch {
			case v <= 1:
				return Concerning
			case v == 2:
				return Neutral
			default:
				return Reassuring
			}
		}),
		CharRatio: m.numeric(KeyCharRatio, lex.CharRatio, func(v float64) Level {
			switch {
			case v < 0.1 || v >= 0.3:
				return Concerning
			case v >= 0.15 && v <= 0.25:
				return Reassuring
			default:
				return Neutral
			}
		}),
		DigitRatio: m.numeric(KeyDigitRatio, lex.DigitRatio, func(v float64) Level {
			switch {
			case v >= 0.1:
				return Concerning
			case v >= 0.09:
				return Neutral
			default:
				return Reassuring
			}
		}),
		DotCount: m.numeric(KeyDotCount, float64(lex.DotCount), func(v float64) Level {
			switch {
			case v <= 2:
				return Concerning
			case v >= 5:
				return Reassuring
			default:
				return Neutral
			}
		}),
		HyphenCount: m.numeric(KeyHyphenCount, float64(lex.HyphenCount), func(v float64) Level {
			switch {
			case v >= 2 && v <= 3:
				return Concerning
			case v < 1:
				return Neutral
			default:
				return Reassuring
			}
		}),
		SlashCount: m.numeric(KeySlashCount, float64(lex.SlashCount), func(v float64) Level {
			if v >= 3 {
				return Concerning
			}
			return Reassuring
		}),
		QuestionCount: m.numeric(KeyQuestionCount, float64(lex.QuestionCount), func(v float64) Level {
			if v == 1 {
				return Neutral
			}
			return Reassuring
		}),
		HasHash:       boolLevel(lex.HasHash),
		HasAtSymbol:   boolLevel(lex.HasAtSymbol),
		HasEncoding:   boolLevel(lex.HasEncoding),
		ContainsPort:  boolLevel(lex.ContainsPort),
		HasFileExt:    boolLevel(lex.HasFileExtension),
		ContainsIP:    boolLevel(lex.ContainsIP),
		PhishingWords: boolLevel(lex.PhishingKeywords),
		FreeDomain:    boolLevel(lex.FreeDomain),
		ShortenedURL:  boolLevel(lex.ShortenedURL),
		Typosquatting: boolLevel(lex.Typosquatting),
	}
	return out
}

// numeric maps an always-known numeric feature, consulting the tuned table
// before falling back to the hand-authored rule.
func (m *Mapper) numeric(key string, v float64, fallback func(float64) Level) Level {
	if lvl, ok := m.tuned(key, v); ok {
		return lvl
	}
	return fallback(v)
}

// numericOpt maps an optional numeric feature; unknown is Neutral.
func (m *Mapper) numericOpt(key string, v features.OptInt, fallback func(float64) Level) Level {
	if !v.Known {
		return Neutral
	}
	return m.numeric(key, float64(v.Value), fallback)
}

func (m *Mapper) contentRatio(key string, c features.ContentFeatures, v float64) Level {
	if !c.Measured {
		return Neutral
	}
	return m.numeric(key, v, func(v float64) Level {
		if v > 0.2 {
			return Concerning
		}
		return Reassuring
	})
}

// tuned applies the table rule for key if one exists. Both thresholds are
// inclusive: a value exactly at t_high is Concerning, exactly at t_med is
// Neutral.
func (m *Mapper) tuned(key string, v float64) (Level, bool) {
	entry, ok := m.table[key]
	if !ok || entry.TMed == nil || entry.THigh == nil {
		return Neutral, false
	}
	switch entry.Direction {
	case HigherIsRisk:
		switch {
		case v >= *entry.THigh:
			return Concerning, true
		case v >= *entry.TMed:
			return Neutral, true
		default:
			return Reassuring, true
		}
	case LowerIsRisk:
		switch {
		case v <= *entry.THigh:
			return Concerning, true
		case v <= *entry.TMed:
			return Neutral, true
		default:
			return Reassuring, true
		}
	}
	return Neutral, false
}

// mapAgeDays covers both domain age and days to expiry: young and soon
// expiring domains are risky.
func mapAgeDays(v float64) Level {
	switch {
	case v <= 365:
		return Concerning
	case v <= 1095:
		return Neutral
	default:
		return Reassuring
	}
}

func mapRegistrar(r features.OptString) Level {
	if !r.Known {
		return Concerning
	}
	name := strings.ToLower(strings.TrimSpace(r.Value))
	if name == "" || name == "null" || name == "unknown" {
		return Concerning
	}
	for _, t := range trustedRegistrars {
		if strings.Contains(name, t) {
			return Reassuring
		}
	}
	for _, t := range riskyRegistrars {
		if strings.Contains(name, t) {
			return Neutral
		}
	}
	return Neutral
}

// mapCertRisk combines transport scheme and certificate posture. Plain HTTP
// or an HTTPS endpoint with no readable issuer is Concerning; a short or
// unknown validity span is Neutral; an established issuer with a long span
// is Reassuring.
func mapCertRisk(isHTTPS bool, t features.TLSFeatures) Level {
	if !isHTTPS {
		return Concerning
	}
	if !t.CertIssuer.Known || strings.TrimSpace(t.CertIssuer.Value) == "" {
		return Concerning
	}
	if !t.CertTotalDays.Known || t.CertTotalDays.Value <= 100 {
		return Neutral
	}
	return Reassuring
}

// stepUp is the three-way split for features where larger values are risky.
func stepUp(v, high, med float64) Level {
	switch {
	case v >= high:
		return Concerning
	case v >= med:
		return Neutral
	default:
		return Reassuring
	}
}

// stepDown is the split for features where smaller values are risky.
func stepDown(v, high, med float64) Level {
	switch {
	case v <= high:
		return Concerning
	case v <= med:
		return Neutral
	default:
		return Reassuring
	}
}

func boolLevel(risky bool) Level {
	if risky {
		return Concerning
	}
	return Reassuring
}
