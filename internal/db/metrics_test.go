package db

import (
	"encoding/json"
	"testing"
)

func TestCoerceFloat(t *testing.T) {
	tests := []struct {
		in   any
		want float64
		ok   bool
	}{
		{1000, 1000, true},
		{int64(7), 7, true},
		{2.5, 2.5, true},
		{"12,000", 12000, true},
		{"1.2K", 1200, true},
		{"3M", 3e6, true},
		{" 4 ", 4, true},
		{json.Number("9"), 9, true},
		{"n/a", 0, false},
		{nil, 0, false},
		{true, 0, false},
	}
	for _, tt := range tests {
		got, ok := CoerceFloat(tt.in)
		if ok != tt.ok || got != tt.want {
			t.Errorf("CoerceFloat(%v) = %v, %v; want %v, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestMetricsSetRoutesKnownKeys(t *testing.T) {
	var m Metrics
	m.Set(MetricViews, "1.5K")
	m.Set(MetricLikes, "lots")
	m.Set("duet_count", 4)
	m.Set(MetricBrands, []any{"Stanley"})

	if m.Views == nil || *m.Views != 1500 {
		t.Errorf("views = %v", m.Views)
	}
	if m.Likes != nil {
		t.Error("non-numeric likes should not populate the typed field")
	}
	if m.Extra[MetricLikes] != "lots" {
		t.Errorf("non-numeric likes should pass through, extra = %v", m.Extra)
	}
	if m.Extra["duet_count"] != 4 {
		t.Errorf("unknown key lost: %v", m.Extra)
	}
	if len(m.Brands) != 1 || m.Brands[0] != "Stanley" {
		t.Errorf("brands = %v", m.Brands)
	}
	if _, ok := m.Float(MetricViewVelocity); ok {
		t.Error("absent view_velocity should report !ok")
	}
}

func TestMetricsJSONFlat(t *testing.T) {
	var m Metrics
	m.Set(MetricLikes, 200)
	m.Set(MetricInvestable, []InvestableRef{{Brand: "Stanley", Ticker: "PMI", Status: StatusPublicParent}})
	m.Set("llm_enrich", map[string]any{"why_spreading": "restock"})

	data, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var flat map[string]any
	if err := json.Unmarshal(data, &flat); err != nil {
		t.Fatalf("unmarshal flat: %v", err)
	}
	if flat["likes"] != 200.0 {
		t.Errorf("likes = %v", flat["likes"])
	}

	var back Metrics
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(back.Investable) != 1 || back.Investable[0].Status != StatusPublicParent {
		t.Errorf("investable = %+v", back.Investable)
	}
	if _, ok := back.Extra["llm_enrich"].(map[string]any); !ok {
		t.Errorf("provider sub-object lost: %v", back.Extra)
	}
}

func TestItemCloneIsDeep(t *testing.T) {
	it := Item{ID: "a", Source: SourceTikTok, Title: "t"}
	it.Metrics.Set(MetricBrands, []string{"One"})
	it.SetScore(0.3, Breakdown{KeyEngagement: 0.1})

	cp := it.Clone()
	cp.Metrics.Brands[0] = "Two"
	cp.ScoreBreakdown[KeyEngagement] = 0.9
	*cp.Score = 0.8

	if it.Metrics.Brands[0] != "One" || it.ScoreBreakdown[KeyEngagement] != 0.1 || *it.Score != 0.3 {
		t.Error("clone shares state with original")
	}
}

func TestBreakdownReconstruct(t *testing.T) {
	b := Breakdown{
		KeyEngagement: 0.5, KeyWeightPrefix + KeyEngagement: 0.5,
		KeyRecency: 1, KeyWeightPrefix + KeyRecency: 0.2,
		KeyInvestableBoost: 0.15,
	}
	if got := b.Reconstruct(); got < 0.5999 || got > 0.6001 {
		t.Errorf("reconstruct = %v, want 0.60", got)
	}
	b[KeyInvestableBoost] = 0.9
	if got := b.Reconstruct(); got != 1 {
		t.Errorf("Expected clamp to 1, got %v", got)
	}
}
