package indexer

import (
	"context"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/cases"

	"github.com/user/signalhub/internal/db"
)

var (
	cashtagRe  = regexp.MustCompile(`\$([A-Z]{1,6})\b`)
	exchangeRe = regexp.MustCompile(`(?i)\b(?:NASDAQ|NYSE)\s*:\s*([A-Z]{1,6})\b`)

	adRe      = regexp.MustCompile(`#ad\b|\bsponsored\b|paid partnership|promo code|\buse code\b`)
	medicalRe = regexp.MustCompile(`\bcure\b|\btreat\b|\bdiagnos\w*|\bdoctor\b|\bmedic\w*|\bvaccine\b|\bivermectin\b|\bmiracle\b`)

	viralRe   = regexp.MustCompile(`\bviral\b|\btrend\w*|\bblowing up\b|\beveryone\s+is\s+talking\b`)
	productRe = regexp.MustCompile(`\bhaul\b|\bunboxing\b|\breview\b|\bdupe\b`)
	dealRe    = regexp.MustCompile(`\bdeal\b|\bsale\b|\bdiscount\b|\bcoupon\b|\bpromo\b|\bback in stock\b`)
)

// Extra metrics keys written by the enrichers.
const (
	MetricContextSummary = "context_summary"
	MetricKeyEntities    = "key_entities"
	MetricRelatedTickers = "related_tickers"
	MetricWhySpreading   = "why_spreading"
	MetricRiskFlags      = "risk_flags"
	MetricEnrichMethod   = "enrich_method"
)

const contextSummaryLimit = 280

// RegexEnricher is the offline enricher: tickers, brands, investable
// mapping and heuristic annotations.
type RegexEnricher struct {
	brands     []string
	investable InvestableMap
}

func NewRegexEnricher(brands []string, investable InvestableMap) *RegexEnricher {
	if investable == nil {
		investable = InvestableMap{}
	}
	return &RegexEnricher{brands: brands, investable: investable}
}

func (e *RegexEnricher) Name() string { return "regex" }

func (e *RegexEnricher) Enrich(_ context.Context, it db.Item) (db.Item, error) {
	blob := it.Title + "\n" + it.Text
	lower := cases.Fold().String(blob)
	m := &it.Metrics

	tickers := ExtractTickers(blob)
	if len(tickers) > 0 {
		m.Tickers = mergeSorted(m.Tickers, tickers)
	}
	brands := ExtractBrands(blob, e.brands)
	if len(brands) > 0 {
		m.Brands = mergeSorted(m.Brands, brands)
	}

	var refs []db.InvestableRef
	for _, b := range m.Brands {
		if ref, ok := e.investable.Lookup(b); ok {
			refs = append(refs, ref)
		}
	}
	if len(refs) > 0 {
		m.Investable = refs
	}

	setDefault(m, MetricContextSummary, contextSummary(blob))
	setDefault(m, MetricKeyEntities, keyEntities(brands, tickers))
	setDefault(m, MetricRelatedTickers, relatedTickers(tickers, refs))
	setDefault(m, MetricWhySpreading, whySpreading(lower))
	setDefault(m, MetricRiskFlags, map[string]any{
		"ad_sponsored":                    adRe.MatchString(lower),
		"misinformation_or_medical_claim": medicalRe.MatchString(lower),
		"notes":                           "Heuristic flags (offline).",
	})
	setDefault(m, MetricEnrichMethod, "regex")

	return it, nil
}

// ExtractTickers finds $ABC cashtags and NASDAQ:/NYSE: references.
func ExtractTickers(text string) []string {
	seen := map[string]struct{}{}
	for _, match := range cashtagRe.FindAllStringSubmatch(text, -1) {
		seen[match[1]] = struct{}{}
	}
	for _, match := range exchangeRe.FindAllStringSubmatch(text, -1) {
		seen[strings.ToUpper(match[1])] = struct{}{}
	}
	return sortedKeys(seen)
}

// ExtractBrands returns the brands mentioned in text, case-insensitively.
func ExtractBrands(text string, brands []string) []string {
	fold := cases.Fold()
	lower := fold.String(text)
	byFold := map[string]string{}
	for _, b := range brands {
		b = strings.TrimSpace(b)
		key := fold.String(b)
		if _, dup := byFold[key]; dup || b == "" {
			continue
		}
		if strings.Contains(lower, key) {
			byFold[key] = b
		}
	}
	seen := make(map[string]struct{}, len(byFold))
	for _, b := range byFold {
		seen[b] = struct{}{}
	}
	return sortedKeys(seen)
}

func whySpreading(lower string) string {
	switch {
	case viralRe.MatchString(lower):
		return "Viral/trend propagation across the feed."
	case productRe.MatchString(lower):
		return "Product content (haul/review/dupe) is easy to remix and share."
	case dealRe.MatchString(lower):
		return "People are sharing it as a deal / availability signal."
	}
	return ""
}

// contextSummary keeps the first two sentences, capped in length.
func contextSummary(blob string) string {
	blob = strings.TrimSpace(blob)
	if blob == "" {
		return ""
	}
	var sentences []string
	start := 0
	runes := []rune(blob)
	for i := 0; i < len(runes) && len(sentences) < 2; i++ {
		switch runes[i] {
		case '.', '!', '?':
			if i+1 < len(runes) && unicode.IsSpace(runes[i+1]) {
				sentences = append(sentences, strings.TrimSpace(string(runes[start:i+1])))
				start = i + 1
			}
		}
	}
	if len(sentences) < 2 && start < len(runes) {
		sentences = append(sentences, strings.TrimSpace(string(runes[start:])))
	}
	summary := []rune(strings.Join(strings.Fields(strings.Join(sentences, " ")), " "))
	if len(summary) > contextSummaryLimit {
		summary = summary[:contextSummaryLimit]
	}
	return string(summary)
}

func keyEntities(brands, tickers []string) []string {
	var out []string
	seen := map[string]struct{}{}
	for _, e := range append(append([]string(nil), brands...), tickers...) {
		if _, ok := seen[e]; ok || e == "" {
			continue
		}
		seen[e] = struct{}{}
		out = append(out, e)
		if len(out) == 12 {
			break
		}
	}
	return out
}

func relatedTickers(tickers []string, refs []db.InvestableRef) []any {
	var out []any
	seen := map[string]struct{}{}
	add := func(ticker string, confidence float64, reason string) {
		if _, ok := seen[ticker]; ok || ticker == "" {
			return
		}
		seen[ticker] = struct{}{}
		out = append(out, map[string]any{"ticker": ticker, "confidence": confidence, "reason": reason})
	}
	for _, t := range tickers {
		add(t, 0.35, "Mentioned in text.")
	}
	for _, ref := range refs {
		add(ref.Ticker, 0.55, "Investable map: "+ref.Brand+".")
	}
	return out
}

// setDefault writes value unless the key is already set or value is empty.
func setDefault(m *db.Metrics, key string, value any) {
	if _, ok := m.Get(key); ok {
		return
	}
	switch v := value.(type) {
	case string:
		if v == "" {
			return
		}
	case []string:
		if len(v) == 0 {
			return
		}
	case []any:
		if len(v) == 0 {
			return
		}
	}
	m.Set(key, value)
}

func mergeSorted(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	for _, s := range a {
		seen[s] = struct{}{}
	}
	for _, s := range b {
		seen[s] = struct{}{}
	}
	return sortedKeys(seen)
}

func sortedKeys(set map[string]struct{}) []string {
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
