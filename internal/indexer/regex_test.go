package indexer

import (
	"context"
	"reflect"
	"strings"
	"testing"

	"github.com/user/signalhub/internal/db"
)

func TestExtractTickers(t *testing.T) {
	got := ExtractTickers("Buying $ANF and NYSE: pmi, also nasdaq:CELH. Not $5 or $toolong.")
	want := []string{"ANF", "CELH", "PMI"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestExtractBrands(t *testing.T) {
	got := ExtractBrands("ABERCROMBIE is back, stanley cups too", []string{"Abercrombie", "Stanley", "stanley", "Crocs"})
	want := []string{"Abercrombie", "Stanley"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestRegexEnricher(t *testing.T) {
	investable, err := ParseInvestableMap(strings.NewReader(
		"brand,ticker,status,parent,notes\nAbercrombie,ANF,Public,,\nStanley,,pre_ipo,PMI Worldwide,\n"))
	if err != nil {
		t.Fatalf("ParseInvestableMap: %v", err)
	}
	e := NewRegexEnricher([]string{"Abercrombie", "Stanley"}, investable)

	it := db.Item{
		ID:     "id",
		Source: db.SourceTikTok,
		Title:  "Abercrombie haul revival??",
		Text:   "ABERCROMBIE is back and no one told Wall St. Sponsored by nobody. Third sentence here.",
	}
	it.Metrics.Set(db.MetricLikes, 10)
	it.Metrics.Set(MetricWhySpreading, "kept")

	out, err := e.Enrich(context.Background(), it)
	if err != nil {
		t.Fatalf("Enrich: %v", err)
	}
	m := out.Metrics
	if !reflect.DeepEqual(m.Brands, []string{"Abercrombie"}) {
		t.Errorf("brands = %v", m.Brands)
	}
	if len(m.Investable) != 1 || m.Investable[0].Ticker != "ANF" || m.Investable[0].Status != db.StatusPublic {
		t.Errorf("investable = %+v", m.Investable)
	}
	if v, _ := m.Get(MetricWhySpreading); v != "kept" {
		t.Errorf("existing why_spreading overwritten: %v", v)
	}
	flags, _ := m.Get(MetricRiskFlags)
	if f, ok := flags.(map[string]any); !ok || f["ad_sponsored"] != true {
		t.Errorf("risk_flags = %v", flags)
	}
	summary, _ := m.Get(MetricContextSummary)
	if s, _ := summary.(string); strings.Contains(s, "Third") {
		t.Errorf("context summary should keep two sentences: %q", s)
	}
	if v, _ := m.Get(MetricEnrichMethod); v != "regex" {
		t.Errorf("enrich_method = %v", v)
	}
	if likes, _ := m.Float(db.MetricLikes); likes != 10 {
		t.Errorf("existing metrics lost: likes = %v", likes)
	}
	related, _ := m.Get(MetricRelatedTickers)
	if list, ok := related.([]any); !ok || len(list) != 1 {
		t.Errorf("related_tickers = %v", related)
	}
}

func TestContextSummaryLimit(t *testing.T) {
	long := strings.Repeat("word ", 100)
	if got := contextSummary(long); len([]rune(got)) != contextSummaryLimit {
		t.Errorf("len = %d", len([]rune(got)))
	}
	if got := contextSummary("One. Two! Three?"); got != "One. Two!" {
		t.Errorf("got %q", got)
	}
}
