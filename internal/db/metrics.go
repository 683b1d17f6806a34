package db

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Metric keys with typed accessors. Anything else lives in Metrics.Extra.
const (
	MetricViews        = "views"
	MetricLikes        = "likes"
	MetricComments     = "comments"
	MetricShares       = "shares"
	MetricPoints       = "points"
	MetricViewVelocity = "view_velocity"
	MetricKeyword      = "keyword"
	MetricBrands       = "brands"
	MetricTickers      = "tickers"
	MetricInvestable   = "investable"
)

// Investable statuses recognized by the scorer.
const (
	StatusPublic       = "public"
	StatusPublicParent = "public_parent"
	StatusPreIPO       = "pre_ipo"
)

// InvestableRef maps a referenced brand to its investable path.
type InvestableRef struct {
	Brand  string `json:"brand" yaml:"brand"`
	Ticker string `json:"ticker,omitempty" yaml:"ticker,omitempty"`
	Status string `json:"status,omitempty" yaml:"status,omitempty"`
	Parent string `json:"parent,omitempty" yaml:"parent,omitempty"`
}

// Metrics is the open metrics mapping: typed fields for the keys the scorer
// reads, plus an Extra bucket for source- and provider-specific keys.
// Nil numeric fields mean the counter was not collected.
type Metrics struct {
	Views        *float64
	Likes        *float64
	Comments     *float64
	Shares       *float64
	Points       *float64
	ViewVelocity *float64
	Keyword      string
	Brands       []string
	Tickers      []string
	Investable   []InvestableRef
	Extra        map[string]any
}

func (m *Metrics) numeric() []struct {
	key string
	ptr **float64
} {
	return []struct {
		key string
		ptr **float64
	}{
		{MetricViews, &m.Views},
		{MetricLikes, &m.Likes},
		{MetricComments, &m.Comments},
		{MetricShares, &m.Shares},
		{MetricPoints, &m.Points},
		{MetricViewVelocity, &m.ViewVelocity},
	}
}

// Float returns a numeric counter by key, looking at Extra for unknown keys.
func (m Metrics) Float(key string) (float64, bool) {
	for _, f := range m.numeric() {
		if f.key == key {
			if *f.ptr == nil {
				return 0, false
			}
			return **f.ptr, true
		}
	}
	if v, ok := m.Extra[key]; ok {
		return CoerceFloat(v)
	}
	return 0, false
}

// Set stores a value, routing known keys to their typed field. Known numeric
// keys that do not coerce to a number are kept in Extra untouched.
func (m *Metrics) Set(key string, value any) {
	for _, f := range m.numeric() {
		if f.key == key {
			if n, ok := CoerceFloat(value); ok {
				*f.ptr = &n
				delete(m.Extra, key)
				return
			}
			m.setExtra(key, value)
			return
		}
	}
	switch key {
	case MetricKeyword:
		if s, ok := value.(string); ok {
			m.Keyword = s
			return
		}
	case MetricBrands:
		if ss, ok := stringSlice(value); ok {
			m.Brands = ss
			return
		}
	case MetricTickers:
		if ss, ok := stringSlice(value); ok {
			m.Tickers = ss
			return
		}
	case MetricInvestable:
		if refs, ok := investableSlice(value); ok {
			m.Investable = refs
			return
		}
	}
	m.setExtra(key, value)
}

// Get returns the value under key in its map form.
func (m Metrics) Get(key string) (any, bool) {
	v, ok := m.ToMap()[key]
	return v, ok
}

func (m *Metrics) setExtra(key string, value any) {
	if m.Extra == nil {
		m.Extra = make(map[string]any)
	}
	m.Extra[key] = value
}

// ToMap flattens the metrics into one mapping.
func (m Metrics) ToMap() map[string]any {
	out := make(map[string]any, len(m.Extra)+8)
	for k, v := range m.Extra {
		out[k] = v
	}
	for _, f := range m.numeric() {
		if *f.ptr != nil {
			out[f.key] = **f.ptr
		}
	}
	if m.Keyword != "" {
		out[MetricKeyword] = m.Keyword
	}
	if len(m.Brands) > 0 {
		out[MetricBrands] = append([]string(nil), m.Brands...)
	}
	if len(m.Tickers) > 0 {
		out[MetricTickers] = append([]string(nil), m.Tickers...)
	}
	if len(m.Investable) > 0 {
		out[MetricInvestable] = append([]InvestableRef(nil), m.Investable...)
	}
	return out
}

// MetricsFromMap builds Metrics from a flat mapping.
func MetricsFromMap(in map[string]any) Metrics {
	var m Metrics
	keys := make([]string, 0, len(in))
	for k := range in {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		m.Set(k, in[k])
	}
	return m
}

// Clone deep-copies slices and the Extra map (one level).
func (m Metrics) Clone() Metrics {
	out := m
	for _, f := range out.numeric() {
		if *f.ptr != nil {
			v := **f.ptr
			*f.ptr = &v
		}
	}
	out.Brands = append([]string(nil), m.Brands...)
	out.Tickers = append([]string(nil), m.Tickers...)
	out.Investable = append([]InvestableRef(nil), m.Investable...)
	if m.Extra != nil {
		out.Extra = make(map[string]any, len(m.Extra))
		for k, v := range m.Extra {
			out.Extra[k] = v
		}
	}
	return out
}

// Len returns the number of populated keys.
func (m Metrics) Len() int {
	return len(m.ToMap())
}

func (m Metrics) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.ToMap())
}

func (m *Metrics) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*m = MetricsFromMap(raw)
	return nil
}

func (m Metrics) MarshalYAML() (any, error) {
	return m.ToMap(), nil
}

// CoerceFloat converts numeric-looking values to float64. Strings may carry
// thousands separators or K/M/B suffixes ("12,000", "1.2K", "3M").
func CoerceFloat(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case uint:
		f = float64(n)
	case uint32:
		f = float64(n)
	case uint64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		parsed, ok := parseCount(n)
		if !ok {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func parseCount(s string) (float64, bool) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	if s == "" {
		return 0, false
	}
	mult := 1.0
	switch s[len(s)-1] {
	case 'k', 'K':
		mult = 1e3
	case 'm', 'M':
		mult = 1e6
	case 'b', 'B':
		mult = 1e9
	}
	if mult != 1 {
		s = strings.TrimSpace(s[:len(s)-1])
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f * mult, true
}

func stringSlice(v any) ([]string, bool) {
	switch s := v.(type) {
	case []string:
		return append([]string(nil), s...), true
	case []any:
		out := make([]string, 0, len(s))
		for _, e := range s {
			str, ok := e.(string)
			if !ok {
				return nil, false
			}
			out = append(out, str)
		}
		return out, true
	}
	return nil, false
}

func investableSlice(v any) ([]InvestableRef, bool) {
	if refs, ok := v.([]InvestableRef); ok {
		return append([]InvestableRef(nil), refs...), true
	}
	list, ok := v.([]any)
	if !ok {
		return nil, false
	}
	out := make([]InvestableRef, 0, len(list))
	for _, e := range list {
		obj, ok := e.(map[string]any)
		if !ok {
			return nil, false
		}
		out = append(out, InvestableRef{
			Brand:  fmt.Sprint(valueOr(obj["brand"])),
			Ticker: fmt.Sprint(valueOr(obj["ticker"])),
			Status: strings.ToLower(fmt.Sprint(valueOr(obj["status"]))),
			Parent: fmt.Sprint(valueOr(obj["parent"])),
		})
	}
	return out, true
}

func valueOr(v any) any {
	if v == nil {
		return ""
	}
	return v
}
