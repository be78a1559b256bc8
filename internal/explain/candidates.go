package explain

import (
	"fmt"

	"github.com/sqanar/urlguard/internal/features"
	"github.com/sqanar/urlguard/internal/risk"
)

// candidates scores every feature that has something to say about rec.
// A tuned-threshold entry overrides the hand heuristic for its numeric
// feature. Typosquatting deliberately never becomes a candidate; it feeds
// the risk mapping only.
func (r *Ranker) candidates(rec *features.RawFeatureRecord) []Candidate {
	var out []Candidate
	add := func(key string, fam features.Family, score float64, text string) {
		if score != 0 {
			out = append(out, Candidate{Key: key, Family: fam, Score: score, Text: text})
		}
	}
	lex := rec.Lexical

	// whois
	if rec.DomainAgeDays.Known {
		age := rec.DomainAgeDays.Value
		score, tuned := r.tunedScore(risk.KeyDomainAgeDays, float64(age))
		if !tuned {
			switch {
			case age < 30:
				score = 2.0
			case age < 180:
				score = 1.0
			case age > 365:
				score = -0.5
			}
		}
		add(risk.KeyDomainAgeDays, features.FamilyWhois, score,
			describeAge(age, score))
	}
	if rec.DaysToExpiry.Known {
		d := rec.DaysToExpiry.Value
		score, tuned := r.tunedScore(risk.KeyDaysToExpiry, float64(d))
		if !tuned {
			switch {
			case d < 0:
				score = 1.4
			case d < 30:
				score = 0.8
			}
		}
		add(risk.KeyDaysToExpiry, features.FamilyWhois, score, describeExpiry(d))
	}
	if !rec.Whois.Available {
		add(risk.KeyWhoisAvailable, features.FamilyWhois, 0.8,
			"WHOIS lookup returned no registration data")
	}

	// url booleans
	addBool := func(key string, on bool, score float64, text string) {
		if on {
			add(key, features.FamilyURL, score, text)
		}
	}
	addBool(risk.KeyContainsIP, lex.ContainsIP, 1.4,
		"URL addresses the host by raw IP instead of a domain name")
	addBool(risk.KeyPhishingWords, lex.PhishingKeywords, 1.2,
		"URL contains wording commonly used in phishing lures")
	addBool(risk.KeyHasAtSymbol, lex.HasAtSymbol, 1.1,
		"URL contains an @ symbol before the host")
	addBool(risk.KeyShortenedURL, lex.ShortenedURL, 1.0,
		"URL points at a link-shortening service")
	addBool(risk.KeyFreeDomain, lex.FreeDomain, 0.8,
		"Domain is registered under a free top-level domain")
	addBool(risk.KeyIsPunycode, lex.IsPunycode, 0.7,
		"Hostname uses punycode encoding")
	addBool(risk.KeyEncoding, lex.HasEncoding, 0.6,
		"URL contains encoded fragments")
	addBool(risk.KeyFileExtension, lex.HasFileExtension, 0.5,
		"Path ends in a script or executable file extension")
	addBool(risk.KeyContainsPort, lex.ContainsPort, 0.4,
		"URL pins an explicit port number")
	addBool(risk.KeyHasHash, lex.HasHash, 0.2,
		"URL carries a fragment component")

	// url numerics
	addNum := func(key string, fam features.Family, v float64, heuristic func(float64) float64, text string) {
		score, tuned := r.tunedScore(key, v)
		if !tuned {
			score = heuristic(v)
		}
		add(key, fam, score, text)
	}
	addNum(risk.KeySubdomainCount, features.FamilyURL, float64(lex.SubdomainCount),
		threshold(3, 1.0),
		fmt.Sprintf("Hostname nests %d subdomain levels", lex.SubdomainCount))
	addNum(risk.KeyURLLength, features.FamilyURL, float64(lex.URLLength),
		threshold(120, 0.7),
		fmt.Sprintf("URL is unusually long (%d characters)", lex.URLLength))
	addNum(risk.KeyCharRatio, features.FamilyURL, lex.CharRatio,
		func(v float64) float64 {
			switch {
			case v >= 0.30:
				return 0.6
			case v >= 0.15 && v <= 0.25:
				return -0.2
			}
			return 0
		},
		fmt.Sprintf("Special-character density of %.2f is atypical", lex.CharRatio))
	addNum(risk.KeyDigitRatio, features.FamilyURL, lex.DigitRatio,
		threshold(0.10, 0.5),
		fmt.Sprintf("Digits make up %.0f%% of the URL", lex.DigitRatio*100))
	addNum(risk.KeyHyphenCount, features.FamilyURL, float64(lex.HyphenCount),
		threshold(3, 0.4),
		fmt.Sprintf("Hostname and path contain %d hyphens", lex.HyphenCount))
	addNum(risk.KeySlashCount, features.FamilyURL, float64(lex.SlashCount),
		threshold(5, 0.4),
		fmt.Sprintf("Path is nested %d levels deep", lex.SlashCount))
	addNum(risk.KeyQuestionCount, features.FamilyURL, float64(lex.QuestionCount),
		func(v float64) float64 {
			if v > 1 {
				return 0.3
			}
			return 0
		},
		"URL repeats the query separator")

	// content, only when the crawl actually measured something
	if rec.Content.Measured {
		ratio := func(v float64) float64 {
			switch {
			case v >= 0.8:
				return 1.1
			case v >= 0.5:
				return 0.6
			}
			return 0
		}
		addNum(risk.KeyExtURLRatio, features.FamilyContent, rec.Content.ExtURLRatio, ratio,
			fmt.Sprintf("%.0f%% of page resources load from other domains", rec.Content.ExtURLRatio*100))
		addNum(risk.KeyExternalAnchorRate, features.FamilyContent, rec.Content.ExternalAnchorRate, ratio,
			fmt.Sprintf("%.0f%% of page links point off-site", rec.Content.ExternalAnchorRate*100))
		addNum(risk.KeyInvalidAnchorRate, features.FamilyContent, rec.Content.InvalidAnchorRate,
			func(v float64) float64 {
				switch {
				case v >= 0.3:
					return 1.1
				case v >= 0.1:
					return 0.6
				}
				return 0
			},
			fmt.Sprintf("%.0f%% of page links go nowhere", rec.Content.InvalidAnchorRate*100))
	}

	// ssl
	if rec.TLS.CertTotalDays.Known {
		days := rec.TLS.CertTotalDays.Value
		addNum(risk.KeyCertTotalDays, features.FamilySSL, float64(days),
			func(v float64) float64 {
				switch {
				case v < 90:
					return 0.5
				case v > 365:
					return -0.3
				}
				return 0
			},
			describeCert(days))
	}
	if lex.IsHTTPS {
		add(risk.KeyIsHTTPS, features.FamilySSL, -0.2, "Connection uses HTTPS")
	} else {
		add(risk.KeyIsHTTPS, features.FamilySSL, 1.0, "Site is served over plain HTTP")
	}

	return out
}

// tunedScore converts a tuned-threshold entry into a candidate score.
// Crossing t_high is a strong signal, t_med a moderate one, and sitting
// in the calm quartile a mild benign one.
func (r *Ranker) tunedScore(key string, v float64) (float64, bool) {
	entry, ok := r.table[key]
	if !ok || entry.TMed == nil || entry.THigh == nil {
		return 0, false
	}
	switch entry.Direction {
	case risk.HigherIsRisk:
		switch {
		case v >= *entry.THigh:
			return 1.2, true
		case v >= *entry.TMed:
			return 0.7, true
		case entry.Q != nil && entry.Q.P25 != nil && v <= *entry.Q.P25:
			return -0.3, true
		}
		return 0, true
	case risk.LowerIsRisk:
		switch {
		case v <= *entry.THigh:
			return 1.2, true
		case v <= *entry.TMed:
			return 0.7, true
		case entry.Q != nil && entry.Q.P75 != nil && v >= *entry.Q.P75:
			return -0.3, true
		}
		return 0, true
	}
	return 0, false
}

// threshold builds the common "score s once v reaches min" heuristic.
func threshold(min, s float64) func(float64) float64 {
	return func(v float64) float64 {
		if v >= min {
			return s
		}
		return 0
	}
}

func describeAge(days int, score float64) string {
	if score < 0 {
		return fmt.Sprintf("Domain has an established registration history (%d days)", days)
	}
	return fmt.Sprintf("Domain was registered only %d days ago", days)
}

func describeExpiry(days int) string {
	if days < 0 {
		return "Domain registration has already lapsed"
	}
	return fmt.Sprintf("Domain registration expires in %d days", days)
}

func describeCert(days int) string {
	if days > 365 {
		return fmt.Sprintf("Certificate has a long validity span (%d days)", days)
	}
	return fmt.Sprintf("Certificate validity span is only %d days", days)
}
