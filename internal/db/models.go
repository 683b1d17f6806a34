package db

import (
	"strings"
	"time"
)

// Known sources. The set is open: unknown values are stored as given.
const (
	SourceTikTok = "tiktok"
	SourceX      = "x_mock"
	SourceHN     = "hn"
	SourceRSS    = "rss"
	SourceReddit = "reddit"
	SourceManual = "manual"
)

// Item is the canonical normalized representation of one ingested post.
type Item struct {
	ID             string     `json:"item_id" yaml:"item_id"`
	Source         string     `json:"source" yaml:"source"`
	URL            string     `json:"url" yaml:"url"`
	Title          string     `json:"title" yaml:"title"`
	Text           string     `json:"text,omitempty" yaml:"text,omitempty"`
	Metrics        Metrics    `json:"metrics" yaml:"metrics"`
	Score          *float64   `json:"score,omitempty" yaml:"score,omitempty"`
	ScoreBreakdown Breakdown  `json:"score_breakdown,omitempty" yaml:"score_breakdown,omitempty"`
	PublishedAt    *time.Time `json:"published_at,omitempty" yaml:"published_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at" yaml:"created_at"`
	FetchedAt      time.Time  `json:"fetched_at" yaml:"fetched_at"`
}

// Scored reports whether the scorer has populated the item.
func (it *Item) Scored() bool {
	return it.Score != nil
}

// ScoreValue returns the score or 0 when unscored.
func (it *Item) ScoreValue() float64 {
	if it.Score == nil {
		return 0
	}
	return *it.Score
}

// SetScore writes score and breakdown together.
func (it *Item) SetScore(score float64, breakdown Breakdown) {
	s := score
	it.Score = &s
	it.ScoreBreakdown = breakdown
}

// Clone returns a deep copy so enrichers can work on their own metrics.
func (it Item) Clone() Item {
	out := it
	out.Metrics = it.Metrics.Clone()
	if it.Score != nil {
		s := *it.Score
		out.Score = &s
	}
	if it.ScoreBreakdown != nil {
		out.ScoreBreakdown = make(Breakdown, len(it.ScoreBreakdown))
		for k, v := range it.ScoreBreakdown {
			out.ScoreBreakdown[k] = v
		}
	}
	if it.PublishedAt != nil {
		p := *it.PublishedAt
		out.PublishedAt = &p
	}
	return out
}

// Breakdown holds named sub-scores and the weights used to combine them.
type Breakdown map[string]float64

// Breakdown keys.
const (
	KeyEngagement      = "engagement"
	KeyEngagementCount = "engagement_count"
	KeyRecency         = "recency"
	KeyKeyword         = "keyword"
	KeyVelocity        = "velocity"
	KeyInvestableBoost = "investable_boost"
	KeyWeightPrefix    = "weight_"
)

// Reconstruct recomputes the score from the recorded sub-scores and weights.
func (b Breakdown) Reconstruct() float64 {
	sum := 0.0
	for _, name := range []string{KeyEngagement, KeyRecency, KeyKeyword, KeyVelocity} {
		sum += b[KeyWeightPrefix+name] * b[name]
	}
	sum += b[KeyInvestableBoost]
	if sum < 0 {
		return 0
	}
	if sum > 1 {
		return 1
	}
	return sum
}

// RawRecord is a collector's source-specific record before normalization.
type RawRecord map[string]any

// Source returns the record's source tag.
func (r RawRecord) Source() string {
	return r.String("source")
}

// String returns the trimmed string value under key, or "".
func (r RawRecord) String(key string) string {
	v, ok := r[key]
	if !ok || v == nil {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(s)
}

// UpsertResult reports whether Put inserted a new row.
type UpsertResult struct {
	Inserted bool
}

// ListFilter selects items for List.
type ListFilter struct {
	MinScore *float64
	Source   string
	Limit    int
}

// ScoreEvent is one entry of the append-only score history.
type ScoreEvent struct {
	ID        string    `json:"id"`
	ItemID    string    `json:"item_id"`
	Score     float64   `json:"score"`
	Breakdown Breakdown `json:"breakdown"`
	ScoredAt  time.Time `json:"scored_at"`
}

// Run summarizes one pipeline batch.
type Run struct {
	ID         string    `json:"id"`
	Keyword    string    `json:"keyword,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Stored     int       `json:"stored"`
	Skipped    int       `json:"skipped"`
	Errored    int       `json:"errored"`
}
