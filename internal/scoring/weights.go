package scoring

import (
	"fmt"
	"math"
	"time"
)

// SumTolerance is how far the four base weights may drift from 1.0.
const SumTolerance = 1e-6

// Weights configures the scorer. The four base weights must sum to 1.
type Weights struct {
	Engagement float64 `mapstructure:"engagement" json:"engagement"`
	Recency    float64 `mapstructure:"recency" json:"recency"`
	Keyword    float64 `mapstructure:"keyword" json:"keyword"`
	Velocity   float64 `mapstructure:"velocity" json:"velocity"`

	Boost Boosts `mapstructure:"boost" json:"boost"`

	// HalfSaturation is the engagement count at which the engagement
	// sub-score reaches 0.5.
	HalfSaturation  float64       `mapstructure:"half_saturation" json:"half_saturation"`
	RecencyHalfLife time.Duration `mapstructure:"recency_half_life" json:"recency_half_life"`

	CommentWeight float64 `mapstructure:"comment_weight" json:"comment_weight"`
	ShareWeight   float64 `mapstructure:"share_weight" json:"share_weight"`
	ViewWeight    float64 `mapstructure:"view_weight" json:"view_weight"`
	PointsWeight  float64 `mapstructure:"points_weight" json:"points_weight"`
}

// Boosts are the additive investable bonuses by status.
type Boosts struct {
	Public       float64 `mapstructure:"public" json:"public"`
	PublicParent float64 `mapstructure:"public_parent" json:"public_parent"`
	PreIPO       float64 `mapstructure:"pre_ipo" json:"pre_ipo"`
}

// DefaultWeights returns the stock configuration.
func DefaultWeights() Weights {
	return Weights{
		Engagement: 0.50,
		Recency:    0.20,
		Keyword:    0.15,
		Velocity:   0.15,
		Boost: Boosts{
			Public:       0.15,
			PublicParent: 0.10,
			PreIPO:       0.05,
		},
		HalfSaturation:  1000,
		RecencyHalfLife: 18 * time.Hour,
		CommentWeight:   2,
		ShareWeight:     3,
		ViewWeight:      0.01,
		PointsWeight:    1,
	}
}

// ScoreWeightsError reports an unusable scoring configuration.
type ScoreWeightsError struct {
	Field  string
	Reason string
}

func (e *ScoreWeightsError) Error() string {
	return fmt.Sprintf("invalid scoring weights: %s %s", e.Field, e.Reason)
}

// Validate checks the weights once, before any record is scored.
func (w Weights) Validate() error {
	named := []struct {
		name  string
		value float64
	}{
		{"engagement", w.Engagement},
		{"recency", w.Recency},
		{"keyword", w.Keyword},
		{"velocity", w.Velocity},
		{"boost.public", w.Boost.Public},
		{"boost.public_parent", w.Boost.PublicParent},
		{"boost.pre_ipo", w.Boost.PreIPO},
		{"half_saturation", w.HalfSaturation},
		{"comment_weight", w.CommentWeight},
		{"share_weight", w.ShareWeight},
		{"view_weight", w.ViewWeight},
		{"points_weight", w.PointsWeight},
	}
	for _, n := range named {
		if math.IsNaN(n.value) || math.IsInf(n.value, 0) {
			return &ScoreWeightsError{Field: n.name, Reason: "is not a finite number"}
		}
		if n.value < 0 {
			return &ScoreWeightsError{Field: n.name, Reason: fmt.Sprintf("is negative (%v)", n.value)}
		}
	}

	sum := w.Engagement + w.Recency + w.Keyword + w.Velocity
	if math.Abs(sum-1) > SumTolerance {
		return &ScoreWeightsError{Field: "base weights", Reason: fmt.Sprintf("sum to %v, want 1", sum)}
	}
	if w.HalfSaturation <= 0 {
		return &ScoreWeightsError{Field: "half_saturation", Reason: "must be positive"}
	}
	if w.RecencyHalfLife <= 0 {
		return &ScoreWeightsError{Field: "recency_half_life", Reason: "must be positive"}
	}
	return nil
}
