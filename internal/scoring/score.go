// Package scoring computes the confidence score of an item. Scoring is a pure
// function of the item, the weights, the keywords and the reference time.
package scoring

import (
	"math"
	"strings"
	"time"

	"golang.org/x/text/cases"

	"github.com/user/signalhub/internal/db"
)

// NeutralRecency is used when an item carries no age signal.
const NeutralRecency = 0.5

// Input carries the run-scoped values the scorer reads.
type Input struct {
	// Keywords holds the active rotation keyword followed by any
	// configured keywords. Empty entries are ignored.
	Keywords []string
	Now      time.Time
}

// Score returns the score and its breakdown. The score always equals
// breakdown.Reconstruct().
func Score(it db.Item, w Weights, in Input) (float64, db.Breakdown) {
	count := EngagementCount(it.Metrics, w)
	b := db.Breakdown{
		db.KeyEngagementCount: count,
		db.KeyEngagement:      Engagement(count, w.HalfSaturation),
		db.KeyRecency:         Recency(it, w.RecencyHalfLife, in.Now),
		db.KeyKeyword:         KeywordMatch(it, in.Keywords),
		db.KeyVelocity:        Velocity(it.Metrics),
		db.KeyInvestableBoost: InvestableBoost(it.Metrics, w.Boost),

		db.KeyWeightPrefix + db.KeyEngagement: w.Engagement,
		db.KeyWeightPrefix + db.KeyRecency:    w.Recency,
		db.KeyWeightPrefix + db.KeyKeyword:    w.Keyword,
		db.KeyWeightPrefix + db.KeyVelocity:   w.Velocity,
	}
	return b.Reconstruct(), b
}

// Apply scores the item in place.
func Apply(it *db.Item, w Weights, in Input) {
	score, breakdown := Score(*it, w, in)
	it.SetScore(score, breakdown)
}

// EngagementCount combines the collected counters into one count.
// Missing counters contribute nothing.
func EngagementCount(m db.Metrics, w Weights) float64 {
	count := 0.0
	add := func(v *float64, weight float64) {
		if v != nil && *v > 0 {
			count += *v * weight
		}
	}
	add(m.Likes, 1)
	add(m.Comments, w.CommentWeight)
	add(m.Shares, w.ShareWeight)
	add(m.Points, w.PointsWeight)
	add(m.Views, w.ViewWeight)
	return count
}

// Engagement saturates count/(count+k); it approaches but never reaches 1.
func Engagement(count, halfSaturation float64) float64 {
	if count <= 0 || halfSaturation <= 0 {
		return 0
	}
	return count / (count + halfSaturation)
}

// Recency halves every halfLife of age. Future timestamps count as age zero.
func Recency(it db.Item, halfLife time.Duration, now time.Time) float64 {
	var at time.Time
	switch {
	case it.PublishedAt != nil && !it.PublishedAt.IsZero():
		at = *it.PublishedAt
	case !it.CreatedAt.IsZero():
		at = it.CreatedAt
	default:
		return NeutralRecency
	}
	if halfLife <= 0 {
		return NeutralRecency
	}
	age := now.Sub(at)
	if age <= 0 {
		return 1
	}
	return math.Exp2(-age.Hours() / halfLife.Hours())
}

// KeywordMatch is 1 when any keyword occurs in title, text or
// metrics.keyword, compared case-insensitively, else 0.
func KeywordMatch(it db.Item, keywords []string) float64 {
	fold := cases.Fold()
	haystack := fold.String(it.Title + "\n" + it.Text + "\n" + it.Metrics.Keyword)
	for _, kw := range keywords {
		kw = strings.TrimSpace(kw)
		if kw == "" {
			continue
		}
		if strings.Contains(haystack, fold.String(kw)) {
			return 1
		}
	}
	return 0
}

// Velocity is view_velocity clamped to [0,1], or 0 when not collected.
func Velocity(m db.Metrics) float64 {
	if m.ViewVelocity == nil {
		return 0
	}
	return clamp01(*m.ViewVelocity)
}

// InvestableBoost returns the largest bonus among the item's investable
// references.
func InvestableBoost(m db.Metrics, b Boosts) float64 {
	boost := 0.0
	for _, ref := range m.Investable {
		var v float64
		switch strings.ToLower(strings.TrimSpace(ref.Status)) {
		case db.StatusPublic:
			v = b.Public
		case db.StatusPublicParent:
			v = b.PublicParent
		case db.StatusPreIPO:
			v = b.PreIPO
		}
		boost = math.Max(boost, v)
	}
	return boost
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
