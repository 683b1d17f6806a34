package sources

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/user/signalhub/internal/config"
	"github.com/user/signalhub/internal/db"
	"github.com/user/signalhub/internal/indexer"
	"github.com/user/signalhub/internal/logging"
)

// Names lists the known collectors in display order.
func Names() []string {
	return []string{db.SourceTikTok, db.SourceHN, db.SourceRSS, db.SourceReddit, db.SourceX}
}

// UnknownSourceError reports a collector name the registry does not know.
type UnknownSourceError struct {
	Name string
}

func (e *UnknownSourceError) Error() string {
	return fmt.Sprintf("unknown source %q (known: %s)", e.Name, strings.Join(Names(), ", "))
}

// New builds one collector by name. Aliases: tt for tiktok; x and twitter
// for x_mock.
func New(name string, cfg config.SourcesConfig) (Source, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case db.SourceTikTok, "tt":
		return NewTikTokSource(cfg.TikTokSeed), nil
	case db.SourceX, "x", "twitter":
		return NewXMockSource(cfg.XSeed), nil
	case db.SourceHN:
		return NewHNSource(cfg.HNKind, cfg.HNLimit, cfg.Timeout), nil
	case db.SourceRSS:
		return NewRSSSource(cfg.RSSFeeds, cfg.PerFeedLimit, cfg.Timeout), nil
	case db.SourceReddit:
		return NewRedditSource(cfg.Subreddits, cfg.PerFeedLimit, cfg.Timeout), nil
	default:
		return nil, &UnknownSourceError{Name: name}
	}
}

// FromConfig builds the named collectors, or cfg.Enabled when names is empty.
// Blank names are ignored and duplicates collapse.
func FromConfig(cfg config.SourcesConfig, names []string) ([]Source, error) {
	if len(names) == 0 {
		names = cfg.Enabled
	}
	var (
		out  []Source
		seen = map[string]struct{}{}
	)
	for _, n := range names {
		if strings.TrimSpace(n) == "" {
			continue
		}
		src, err := New(n, cfg)
		if err != nil {
			return nil, err
		}
		if _, ok := seen[src.Name()]; ok {
			continue
		}
		seen[src.Name()] = struct{}{}
		out = append(out, src)
	}
	return out, nil
}

// Collect fetches from each collector in order and tags every record with
// its source. A failing collector is logged and skipped; its records, if
// any came back, are still used. The returned error joins all failures.
func Collect(ctx context.Context, srcs []Source, keyword string, logger *slog.Logger) ([]indexer.Record, error) {
	if logger == nil {
		logger = logging.Discard()
	}
	var (
		records []indexer.Record
		errs    []error
	)
	for _, src := range srcs {
		if err := ctx.Err(); err != nil {
			return records, err
		}
		if !src.Available() {
			logger.Info("source unavailable, skipping", "source", src.Name())
			continue
		}
		raws, err := src.Fetch(ctx, keyword)
		if err != nil {
			logger.Warn("source fetch failed", "source", src.Name(), "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", src.Name(), err))
		}
		logger.Debug("source fetched", "source", src.Name(), "records", len(raws))
		for _, raw := range raws {
			records = append(records, indexer.Record{Source: src.Name(), Raw: raw})
		}
	}
	return records, errors.Join(errs...)
}
