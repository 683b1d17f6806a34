package sources

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/user/signalhub/internal/db"
)

// SeedSource reads JSON Lines records from a seed file. Without the file it
// returns a small built-in set so a fresh install has something to score.
type SeedSource struct {
	name         string
	path         string
	defaultURL   string
	defaultTitle string
	stampKeyword bool
	fallback     []db.RawRecord
}

// NewTikTokSource stands in for the TikTok scanner. Records are tagged with
// the active keyword and collector "mock".
func NewTikTokSource(seedFile string) *SeedSource {
	return &SeedSource{
		name:         db.SourceTikTok,
		path:         seedFile,
		defaultURL:   "https://www.tiktok.com/",
		defaultTitle: "(tiktok)",
		stampKeyword: true,
		fallback: []db.RawRecord{
			{
				"url":   "https://www.tiktok.com/@example/video/111",
				"title": "New drink brand is everywhere (Gen Z)",
				"text":  "Seeing this brand in every college video…",
				"metrics": map[string]any{
					"views": 2500000, "likes": 210000, "comments": 3200, "shares": 18000, "view_velocity": 0.82,
				},
			},
			{
				"url":   "https://www.tiktok.com/@example/video/222",
				"title": "Abercrombie haul revival??",
				"text":  "ABERCROMBIE is back and no one told Wall St.",
				"metrics": map[string]any{
					"views": 1200000, "likes": 95000, "comments": 1100, "shares": 7500, "view_velocity": 0.74,
				},
			},
		},
	}
}

// NewXMockSource stands in for X ingestion, which needs credentials.
func NewXMockSource(seedFile string) *SeedSource {
	return &SeedSource{
		name:         db.SourceX,
		path:         seedFile,
		defaultURL:   "https://x.com/",
		defaultTitle: "(tweet)",
		fallback: []db.RawRecord{
			{
				"url":     "https://x.com/example/status/1",
				"title":   "New AI tool hits 10k users in 48h",
				"text":    "If you do X, you can get Y in Z hours…",
				"metrics": map[string]any{"likes": 12000, "retweets": 1800, "replies": 220},
			},
			{
				"url":     "https://x.com/example/status/2",
				"title":   "Open-source agent framework drops",
				"text":    "Repo + quickstart + benchmarks…",
				"metrics": map[string]any{"likes": 6000, "retweets": 900, "replies": 150},
			},
		},
	}
}

func (s *SeedSource) Name() string {
	return s.name
}

func (s *SeedSource) Available() bool {
	return true
}

func (s *SeedSource) Fetch(ctx context.Context, keyword string) ([]db.RawRecord, error) {
	records, err := s.readSeed(ctx)
	if errors.Is(err, fs.ErrNotExist) {
		records = s.fallbackRecords()
	} else if err != nil {
		return nil, err
	}

	for _, rec := range records {
		rec["source"] = s.name
		if s.stampKeyword {
			metrics := metricsOf(rec)
			if _, ok := metrics["collector"]; !ok {
				metrics["collector"] = "mock"
			}
			if _, ok := metrics[db.MetricKeyword]; !ok && keyword != "" {
				metrics[db.MetricKeyword] = keyword
			}
		}
	}
	return records, nil
}

func (s *SeedSource) readSeed(ctx context.Context) ([]db.RawRecord, error) {
	if s.path == "" {
		return nil, fs.ErrNotExist
	}
	f, err := os.Open(s.path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var records []db.RawRecord
	dec := json.NewDecoder(f)
	dec.UseNumber()
	for n := 1; ; n++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var rec db.RawRecord
		if err := dec.Decode(&rec); err == io.EOF {
			break
		} else if err != nil {
			return nil, fmt.Errorf("%s seed %s: record %d: %w", s.name, s.path, n, err)
		}
		if rec == nil {
			continue
		}
		if rec.String("url") == "" {
			rec["url"] = s.defaultURL
		}
		if rec.String("title") == "" {
			rec["title"] = s.defaultTitle
		}
		records = append(records, rec)
	}
	return records, nil
}

// fallbackRecords copies the built-in records so callers can mutate them.
func (s *SeedSource) fallbackRecords() []db.RawRecord {
	out := make([]db.RawRecord, len(s.fallback))
	for i, rec := range s.fallback {
		cp := make(db.RawRecord, len(rec))
		for k, v := range rec {
			cp[k] = v
		}
		if m, ok := rec["metrics"].(map[string]any); ok {
			mc := make(map[string]any, len(m))
			for k, v := range m {
				mc[k] = v
			}
			cp["metrics"] = mc
		}
		out[i] = cp
	}
	return out
}

// metricsOf returns the record's metrics map, creating it when missing.
func metricsOf(rec db.RawRecord) map[string]any {
	if m, ok := rec["metrics"].(map[string]any); ok {
		return m
	}
	m := map[string]any{}
	rec["metrics"] = m
	return m
}
