package features

import (
	"net"
	"regexp"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
	"golang.org/x/net/idna"

	"github.com/sqanar/urlguard/internal/urlutil"
)

// Fixed lookup lists. These mirror the label sets the model was trained
// against; extending them changes feature semantics, so treat as frozen.
var (
	phishingKeywords = []string{
		"secure", "security", "login", "verify", "account", "update",
		"bank", "paypal", "mail", "free", "email", "amazon", "app",
	}

	freeDomainTLDs = []string{".tk", ".ml", ".cf", ".ga", ".gq"}

	shortenerHosts = []string{
		"bit.ly", "goo.gl", "tinyurl.com", "ow.ly", "t.co", "is.gd",
		"buff.ly", "adf.ly", "bit.do", "mcaf.ee", "shorturl.at",
	}

	brandNames = []string{
		"naver", "kakao", "google", "youtube", "facebook", "instagram",
		"twitter", "wikipedia", "amazon", "apple", "microsoft",
		"whatsapp", "bing", "yahoo",
	}
)

// typosquatSimilarityThreshold: a second-level label more similar than this
// to a known brand, without being an exact match, is flagged.
const typosquatSimilarityThreshold = 0.8

var (
	encodingTokenRe  = regexp.MustCompile(`%[0-9A-Fa-f]{2}|base64`)
	fileExtensionRe  = regexp.MustCompile(`\.(php|html|htm|doc|docx|xls|xlsx|ppt|pptx|hwp|exe|apk|zip)`)
	keywordPatternRe = map[string]*regexp.Regexp{}
)

func init() {
	for _, w := range phishingKeywords {
		keywordPatternRe[w] = regexp.MustCompile(`\b` + regexp.QuoteMeta(w) + `\b`)
	}
}

// ExtractLexical computes the url-family features from a normalized URL.
// Pure function: deterministic for the same input, no network access.
func ExtractLexical(n *urlutil.NormalizedURL) LexicalFeatures {
	full := n.String()
	host := n.Host()
	hostPort := n.HostPort()
	path := n.Path()
	query := n.Query()
	lowered := strings.ToLower(full)

	labels := strings.Split(host, ".")
	subdomains := 0
	if len(labels) > 2 {
		subdomains = len(labels) - 2
	}
	tldLength := 0
	if len(labels) > 1 {
		tldLength = len(labels[len(labels)-1])
	}

	f := LexicalFeatures{
		URLLength:      len(full),
		DomainLength:   len(hostPort),
		TLDLength:      tldLength,
		PathLength:     len(path),
		QueryLength:    len(query),
		SubdomainCount: subdomains,
		CharRatio:      charClassRatio(full, isSpecial),
		DigitRatio:     charClassRatio(full, isDigit),
		DotCount:       strings.Count(full, "."),
		HyphenCount:    strings.Count(full, "-"),
		SlashCount:     strings.Count(full, "/"),
		QuestionCount:  strings.Count(full, "?"),
		HasHash:        n.HadFragment(),
		HasAtSymbol:    strings.Contains(full, "@"),
		IsHTTPS:        n.IsHTTPS(),
		HasEncoding:    encodingTokenRe.MatchString(full),
		ContainsPort:   n.HasPort(),
		ContainsIP:     net.ParseIP(host) != nil,
	}

	f.IsPunycode = punycodeMismatch(host)
	f.HasFileExtension = fileExtensionRe.MatchString(path)

	for _, re := range keywordPatternRe {
		if re.MatchString(lowered) {
			f.PhishingKeywords = true
			break
		}
	}

	for _, tld := range freeDomainTLDs {
		if strings.HasSuffix(host, tld) {
			f.FreeDomain = true
			break
		}
	}

	for _, svc := range shortenerHosts {
		if strings.Contains(host, svc) {
			f.ShortenedURL = true
			break
		}
	}

	f.Typosquatting = detectTyposquat(n.SecondLevelLabel())

	return f
}

func isSpecial(r rune) bool {
	return !(r >= 'a' && r <= 'z') && !(r >= 'A' && r <= 'Z') && !(r >= '0' && r <= '9')
}

func isDigit(r rune) bool { return r >= '0' && r <= '9' }

func charClassRatio(s string, match func(rune) bool) float64 {
	if s == "" {
		return 0
	}
	count := 0
	for _, r := range s {
		if match(r) {
			count++
		}
	}
	return float64(count) / float64(len([]rune(s)))
}

// punycodeMismatch reports whether the host decodes to a different unicode
// representation, i.e. it carries IDN-encoded labels.
func punycodeMismatch(host string) bool {
	decoded, err := idna.Lookup.ToUnicode(host)
	if err != nil {
		return false
	}
	return decoded != host
}

// detectTyposquat compares the registrable second-level label against the
// brand list. Similarity above the threshold without an exact match flags the
// label; first match wins, no further scoring.
func detectTyposquat(label string) bool {
	label = strings.ToLower(label)
	if label == "" {
		return false
	}
	for _, brand := range brandNames {
		if label == brand {
			continue
		}
		if similarityRatio(label, brand) > typosquatSimilarityThreshold {
			return true
		}
	}
	return false
}

// similarityRatio is the classic 2*M/T ratio over the common characters of
// the two strings, computed from a character-level diff.
func similarityRatio(a, b string) float64 {
	if a == "" && b == "" {
		return 1
	}
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(a, b, false)
	common := 0
	for _, d := range diffs {
		if d.Type == diffmatchpatch.DiffEqual {
			common += len(d.Text)
		}
	}
	return 2 * float64(common) / float64(len(a)+len(b))
}
