// Package explain turns a raw feature record into a short, human-readable
// justification list for a verdict. Candidates are scored per feature,
// then a diversity-constrained selection picks the top K so the summary
// does not repeat one signal family three times.
package explain

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sqanar/urlguard/internal/classifier"
	"github.com/sqanar/urlguard/internal/features"
	"github.com/sqanar/urlguard/internal/risk"
)

// DefaultTopK is the number of justifications kept per verdict.
const DefaultTopK = 3

// Candidate is one scored explanation. Positive scores argue the URL is
// risky, negative scores argue it is benign.
type Candidate struct {
	Key    string
	Family features.Family
	Score  float64
	Text   string
}

// Ranker scores and selects justification candidates. Numeric features with
// a tuned-threshold entry are scored from the table; the hand heuristics
// cover the rest.
type Ranker struct {
	table risk.Table
	topK  int
}

// NewRanker builds a ranker over the tuned table. topK <= 0 selects
// DefaultTopK.
func NewRanker(table risk.Table, topK int) *Ranker {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &Ranker{table: table, topK: topK}
}

// Justifications produces at most topK explanation strings for the verdict
// label, diversified across signal families. The returned order is the
// presentation order.
func (r *Ranker) Justifications(rec *features.RawFeatureRecord, label classifier.Label) []string {
	cands := r.candidates(rec)
	if len(cands) == 0 {
		return fallbackSummary(rec, r.topK)
	}

	var picked []Candidate
	if label == classifier.LabelLegitimate {
		picked = selectLegitimate(cands, r.topK)
	} else {
		picked = selectMalicious(cands, r.topK)
	}

	out := make([]string, 0, len(picked))
	for _, c := range picked {
		out = append(out, c.Text)
	}
	return out
}

// Summary joins the justifications into the single string persisted with
// the verdict.
func (r *Ranker) Summary(rec *features.RawFeatureRecord, label classifier.Label) string {
	return strings.Join(r.Justifications(rec, label), "; ")
}

// selectMalicious prefers strong risk signals, one per family first.
func selectMalicious(cands []Candidate, k int) []Candidate {
	strong := filter(cands, func(c Candidate) bool { return c.Score >= 0.5 })
	sortByScoreDesc(strong)

	picked := make([]Candidate, 0, k)
	used := map[string]bool{}
	seenFamily := map[features.Family]bool{}

	for _, c := range strong {
		if len(picked) == k {
			return picked
		}
		if seenFamily[c.Family] {
			continue
		}
		seenFamily[c.Family] = true
		used[c.Key] = true
		picked = append(picked, c)
	}
	for _, c := range strong {
		if len(picked) == k {
			return picked
		}
		if !used[c.Key] {
			used[c.Key] = true
			picked = append(picked, c)
		}
	}

	rest := filter(cands, func(c Candidate) bool { return !used[c.Key] })
	sort.SliceStable(rest, func(i, j int) bool {
		ai, aj := abs(rest[i].Score), abs(rest[j].Score)
		if ai != aj {
			return ai > aj
		}
		return rest[i].Key < rest[j].Key
	})
	for _, c := range rest {
		if len(picked) == k {
			break
		}
		picked = append(picked, c)
	}
	return picked
}

// selectLegitimate leads with up to two benign signals from distinct
// families, then admits the single strongest caveat if one exists.
func selectLegitimate(cands []Candidate, k int) []Candidate {
	negatives := filter(cands, func(c Candidate) bool { return c.Score < 0 })
	sort.SliceStable(negatives, func(i, j int) bool {
		if negatives[i].Score != negatives[j].Score {
			return negatives[i].Score < negatives[j].Score
		}
		return negatives[i].Key < negatives[j].Key
	})

	picked := make([]Candidate, 0, k)
	used := map[string]bool{}
	seenFamily := map[features.Family]bool{}
	for _, c := range negatives {
		if len(picked) == 2 || len(picked) == k {
			break
		}
		if seenFamily[c.Family] {
			continue
		}
		seenFamily[c.Family] = true
		used[c.Key] = true
		picked = append(picked, c)
	}

	positives := filter(cands, func(c Candidate) bool { return c.Score > 0 })
	if len(positives) > 0 && len(picked) < k {
		sortByScoreDesc(positives)
		picked = append(picked, positives[0])
		used[positives[0].Key] = true
	}

	rest := filter(cands, func(c Candidate) bool { return !used[c.Key] })
	sort.SliceStable(rest, func(i, j int) bool {
		ni, nj := rest[i].Score >= 0, rest[j].Score >= 0
		if ni != nj {
			return !ni // negatives first
		}
		ai, aj := abs(rest[i].Score), abs(rest[j].Score)
		if ai != aj {
			return ai > aj
		}
		return rest[i].Key < rest[j].Key
	})
	for _, c := range rest {
		if len(picked) == k {
			break
		}
		picked = append(picked, c)
	}
	return picked
}

// fallbackSummary reports a handful of raw values verbatim when nothing
// produced a scored candidate.
func fallbackSummary(rec *features.RawFeatureRecord, k int) []string {
	lines := []string{
		"Domain age (days): " + optIntString(rec.DomainAgeDays),
		"Days to expiry: " + optIntString(rec.DaysToExpiry),
		fmt.Sprintf("WHOIS available: %t", rec.Whois.Available),
		fmt.Sprintf("URL length: %d", rec.Lexical.URLLength),
		fmt.Sprintf("Subdomain count: %d", rec.Lexical.SubdomainCount),
		fmt.Sprintf("External resource ratio: %.3f", rec.Content.ExtURLRatio),
	}
	if k < 1 {
		k = 1
	}
	if k > len(lines) {
		k = len(lines)
	}
	return lines[:k]
}

func optIntString(v features.OptInt) string {
	if !v.Known {
		return "unknown"
	}
	return fmt.Sprintf("%d", v.Value)
}

func filter(cands []Candidate, keep func(Candidate) bool) []Candidate {
	out := make([]Candidate, 0, len(cands))
	for _, c := range cands {
		if keep(c) {
			out = append(out, c)
		}
	}
	return out
}

func sortByScoreDesc(cands []Candidate) {
	sort.SliceStable(cands, func(i, j int) bool {
		if cands[i].Score != cands[j].Score {
			return cands[i].Score > cands[j].Score
		}
		return cands[i].Key < cands[j].Key
	})
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
