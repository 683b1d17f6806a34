package indexer

import (
	"sort"
	"strings"
	"time"

	"github.com/user/signalhub/internal/db"
)

// metricAliases maps collector-specific counter names to canonical keys.
var metricAliases = map[string]string{
	"upvotes":      db.MetricLikes,
	"ups":          db.MetricLikes,
	"replies":      db.MetricComments,
	"num_comments": db.MetricComments,
	"descendants":  db.MetricComments,
	"retweets":     db.MetricShares,
	"reposts":      db.MetricShares,
	"score":        db.MetricPoints,
	"plays":        db.MetricViews,
	"play_count":   db.MetricViews,
}

var canonicalMetricKeys = []string{
	db.MetricViews, db.MetricLikes, db.MetricComments,
	db.MetricShares, db.MetricPoints, db.MetricViewVelocity,
}

var (
	urlKeys       = []string{"url", "link", "permalink"}
	titleKeys     = []string{"title", "headline"}
	textKeys      = []string{"text", "body", "description", "caption", "summary"}
	publishedKeys = []string{"published_at", "published", "created_at", "created_utc", "time", "timestamp"}
)

// Normalize maps a raw collector record onto an Item. Optional text fields
// default to empty; the only failure is a record with neither url nor title.
func Normalize(raw db.RawRecord, source string, now time.Time) (db.Item, error) {
	if source == "" {
		source = raw.Source()
	}
	if source == "" {
		source = "unknown"
	}

	rawURL := firstString(raw, urlKeys)
	title := firstString(raw, titleKeys)
	id, err := db.ItemID(source, rawURL, title)
	if err != nil {
		return db.Item{}, err
	}

	now = now.UTC()
	it := db.Item{
		ID:        id,
		Source:    source,
		URL:       rawURL,
		Title:     title,
		Text:      firstString(raw, textKeys),
		Metrics:   extractMetrics(raw),
		CreatedAt: now,
		FetchedAt: now,
	}
	if ts, ok := firstTime(raw, publishedKeys); ok {
		it.PublishedAt = &ts
	}
	return it, nil
}

// extractMetrics merges top-level counters and the metrics sub-mapping.
// Sub-mapping values win. Aliases resolve only when the canonical key is
// absent, so nothing collected is dropped.
func extractMetrics(raw db.RawRecord) db.Metrics {
	flat := make(map[string]any)
	for _, k := range canonicalMetricKeys {
		if v, ok := raw[k]; ok && v != nil {
			flat[k] = v
		}
	}
	for alias := range metricAliases {
		if v, ok := raw[alias]; ok && v != nil {
			flat[alias] = v
		}
	}
	if kw := raw.String(db.MetricKeyword); kw != "" {
		flat[db.MetricKeyword] = kw
	}
	for k, v := range asMap(raw["metrics"]) {
		flat[k] = v
	}

	aliases := make([]string, 0, len(flat))
	for k := range flat {
		if _, ok := metricAliases[k]; ok {
			aliases = append(aliases, k)
		}
	}
	sort.Strings(aliases)
	for _, alias := range aliases {
		canonical := metricAliases[alias]
		if _, taken := flat[canonical]; taken {
			continue
		}
		flat[canonical] = flat[alias]
		delete(flat, alias)
	}

	return db.MetricsFromMap(flat)
}

func asMap(v any) map[string]any {
	switch m := v.(type) {
	case map[string]any:
		return m
	case db.RawRecord:
		return m
	}
	return nil
}

func firstString(raw db.RawRecord, keys []string) string {
	for _, k := range keys {
		if s := raw.String(k); s != "" {
			return s
		}
	}
	return ""
}

func firstTime(raw db.RawRecord, keys []string) (time.Time, bool) {
	for _, k := range keys {
		if t, ok := parseTimestamp(raw[k]); ok {
			return t, true
		}
	}
	return time.Time{}, false
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC1123Z,
	time.RFC1123,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

const (
	// Epoch values above this are taken as milliseconds.
	epochMillisThreshold = 1e11
	// 9999-12-31T23:59:59Z
	maxEpochSeconds = 253402300799
)

// parseTimestamp accepts time values, RFC3339-like strings and unix seconds
// or milliseconds.
func parseTimestamp(v any) (time.Time, bool) {
	switch t := v.(type) {
	case nil:
		return time.Time{}, false
	case time.Time:
		return t.UTC(), !t.IsZero()
	case *time.Time:
		if t == nil || t.IsZero() {
			return time.Time{}, false
		}
		return t.UTC(), true
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return time.Time{}, false
		}
		for _, layout := range timestampLayouts {
			if parsed, err := time.Parse(layout, s); err == nil {
				return parsed.UTC(), true
			}
		}
	}
	if n, ok := db.CoerceFloat(v); ok && n > 0 {
		if n > epochMillisThreshold {
			if n/1000 > maxEpochSeconds {
				return time.Time{}, false
			}
			return time.UnixMilli(int64(n)).UTC(), true
		}
		return time.Unix(int64(n), 0).UTC(), true
	}
	return time.Time{}, false
}
