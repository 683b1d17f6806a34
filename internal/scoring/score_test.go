package scoring

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/user/signalhub/internal/db"
)

var testNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func item(metrics map[string]any) db.Item {
	return db.Item{
		ID:        "id",
		Source:    db.SourceTikTok,
		URL:       "https://x/video/1",
		Title:     "new colorway drop",
		Metrics:   db.MetricsFromMap(metrics),
		CreatedAt: testNow,
		FetchedAt: testNow,
	}
}

func TestScoreBoundsAndReconstruct(t *testing.T) {
	w := DefaultWeights()
	huge := 1e12
	cases := []db.Item{
		item(nil),
		item(map[string]any{"likes": huge, "comments": huge, "shares": huge, "view_velocity": 5.0}),
		item(map[string]any{"view_velocity": -3.0}),
		item(map[string]any{
			"likes": 10, "view_velocity": 1.0,
			"investable": []db.InvestableRef{{Brand: "A", Status: db.StatusPublic}},
		}),
	}
	cases[1].Title = "restock restock"
	cases[3].CreatedAt = time.Time{}

	for i, it := range cases {
		score, b := Score(it, w, Input{Keywords: []string{"restock"}, Now: testNow})
		if score < 0 || score > 1 {
			t.Errorf("case %d: score %v out of bounds", i, score)
		}
		if got := b.Reconstruct(); got != score {
			t.Errorf("case %d: reconstruct %v != score %v", i, got, score)
		}
		for _, key := range []string{db.KeyEngagement, db.KeyRecency, db.KeyKeyword, db.KeyVelocity} {
			if v := b[key]; v < 0 || v > 1 {
				t.Errorf("case %d: %s = %v out of bounds", i, key, v)
			}
			if _, ok := b[db.KeyWeightPrefix+key]; !ok {
				t.Errorf("case %d: missing weight for %s", i, key)
			}
		}
	}
}

func TestScoreDeterministic(t *testing.T) {
	it := item(map[string]any{"likes": 200, "comments": 10, "view_velocity": 0.4})
	in := Input{Keywords: []string{"drop"}, Now: testNow}
	s1, b1 := Score(it, DefaultWeights(), in)
	s2, b2 := Score(it, DefaultWeights(), in)
	if s1 != s2 {
		t.Fatalf("scores differ: %v vs %v", s1, s2)
	}
	for k, v := range b1 {
		if b2[k] != v {
			t.Errorf("breakdown %s differs: %v vs %v", k, v, b2[k])
		}
	}
}

func TestEngagementMonotonic(t *testing.T) {
	w := DefaultWeights()
	prev := -1.0
	for _, likes := range []float64{0, 1, 10, 100, 1000, 1e5, 1e9} {
		_, b := Score(item(map[string]any{"likes": likes, "views": likes * 10}), w, Input{Now: testNow})
		if b[db.KeyEngagement] < prev {
			t.Errorf("engagement decreased at likes=%v", likes)
		}
		if b[db.KeyEngagement] >= 1 {
			t.Errorf("engagement reached 1 at likes=%v", likes)
		}
		prev = b[db.KeyEngagement]
	}
}

func TestRecencyMonotonic(t *testing.T) {
	w := DefaultWeights()
	prev := 2.0
	for _, age := range []time.Duration{0, time.Hour, 18 * time.Hour, 72 * time.Hour, 720 * time.Hour} {
		it := item(nil)
		it.CreatedAt = testNow.Add(-age)
		r := Recency(it, w.RecencyHalfLife, testNow)
		if r > prev {
			t.Errorf("recency increased at age %v", age)
		}
		prev = r
	}

	it := item(nil)
	it.CreatedAt = testNow.Add(-18 * time.Hour)
	if r := Recency(it, 18*time.Hour, testNow); math.Abs(r-0.5) > 1e-9 {
		t.Errorf("recency at one half-life = %v, want 0.5", r)
	}
}

func TestRecencySignals(t *testing.T) {
	it := item(nil)
	it.CreatedAt = time.Time{}
	if r := Recency(it, time.Hour, testNow); r != NeutralRecency {
		t.Errorf("no age signal: %v, want %v", r, NeutralRecency)
	}

	published := testNow.Add(-2 * time.Hour)
	it.PublishedAt = &published
	it.CreatedAt = testNow
	if r := Recency(it, time.Hour, testNow); math.Abs(r-0.25) > 1e-9 {
		t.Errorf("published_at should win: %v", r)
	}

	future := testNow.Add(time.Hour)
	it.PublishedAt = &future
	if r := Recency(it, time.Hour, testNow); r != 1 {
		t.Errorf("future timestamp: %v, want 1", r)
	}
}

func TestKeywordMatch(t *testing.T) {
	tests := []struct {
		name     string
		title    string
		text     string
		keyword  string
		keywords []string
		want     float64
	}{
		{"different casing", "SOLD OUT everywhere", "", "", []string{"sold out"}, 1},
		{"no match", "new colorway", "", "", []string{"sold out"}, 0},
		{"in text", "clip", "back in Stock now", "", []string{"back in stock"}, 1},
		{"in metrics keyword", "clip", "", "Restock", []string{"restock"}, 1},
		{"any configured keyword", "launch day", "", "", []string{"restock", "launch"}, 1},
		{"empty keywords", "anything", "", "", []string{"", " "}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			it := item(nil)
			it.Title = tt.title
			it.Text = tt.text
			it.Metrics.Keyword = tt.keyword
			if got := KeywordMatch(it, tt.keywords); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestVelocityMissingIsZero(t *testing.T) {
	_, b := Score(item(map[string]any{"likes": 5}), DefaultWeights(), Input{Now: testNow})
	if b[db.KeyVelocity] != 0 {
		t.Errorf("velocity = %v, want exactly 0", b[db.KeyVelocity])
	}
	if v := Velocity(item(map[string]any{"view_velocity": 2.5}).Metrics); v != 1 {
		t.Errorf("velocity clamp = %v", v)
	}
}

func TestInvestableBoostTakesMax(t *testing.T) {
	w := DefaultWeights()
	m := db.MetricsFromMap(map[string]any{"investable": []db.InvestableRef{
		{Brand: "A", Status: db.StatusPreIPO},
		{Brand: "B", Status: "PUBLIC_PARENT"},
		{Brand: "C", Status: "unknown"},
	}})
	if got := InvestableBoost(m, w.Boost); got != w.Boost.PublicParent {
		t.Errorf("boost = %v, want %v", got, w.Boost.PublicParent)
	}
	if got := InvestableBoost(db.Metrics{}, w.Boost); got != 0 {
		t.Errorf("no investable: boost = %v", got)
	}
}

func TestFreshIngestScenario(t *testing.T) {
	it := item(map[string]any{"views": 1000, "likes": 200, "comments": 10, "shares": 5, "view_velocity": 0.9})
	it.Title = ""
	w := DefaultWeights()
	score, b := Score(it, w, Input{Keywords: []string{"restock"}, Now: testNow})

	if b[db.KeyKeyword] != 0 {
		t.Errorf("keyword = %v, want 0", b[db.KeyKeyword])
	}
	if b[db.KeyVelocity] != 0.9 {
		t.Errorf("velocity = %v, want 0.9", b[db.KeyVelocity])
	}

	it.Metrics.Set(db.MetricLikes, 500)
	rescored, _ := Score(it, w, Input{Keywords: []string{"restock"}, Now: testNow})
	if rescored <= score {
		t.Errorf("more likes should raise the score: %v <= %v", rescored, score)
	}
}

func TestWeightsValidate(t *testing.T) {
	if err := DefaultWeights().Validate(); err != nil {
		t.Fatalf("default weights invalid: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Weights)
	}{
		{"negative", func(w *Weights) { w.Engagement = -0.1; w.Recency = 0.8 }},
		{"nan", func(w *Weights) { w.Keyword = math.NaN() }},
		{"sum", func(w *Weights) { w.Velocity = 0.3 }},
		{"negative boost", func(w *Weights) { w.Boost.Public = -1 }},
		{"zero half saturation", func(w *Weights) { w.HalfSaturation = 0 }},
		{"zero half life", func(w *Weights) { w.RecencyHalfLife = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := DefaultWeights()
			tt.mutate(&w)
			var wErr *ScoreWeightsError
			if err := w.Validate(); !errors.As(err, &wErr) {
				t.Errorf("Expected ScoreWeightsError, got %v", err)
			}
		})
	}

	w := DefaultWeights()
	w.Engagement += SumTolerance / 2
	if err := w.Validate(); err != nil {
		t.Errorf("within tolerance should pass: %v", err)
	}
}
