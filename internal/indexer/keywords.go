package indexer

import (
	"context"
	"fmt"
	"strconv"

	"github.com/user/signalhub/internal/config"
)

const (
	keywordIndexKey   = "keyword_index"
	keywordCurrentKey = "keyword_current"
)

// MetadataStore persists small key/value state.
type MetadataStore interface {
	GetMetadata(ctx context.Context, key string) (string, error)
	SetMetadata(ctx context.Context, key, value string) error
}

// LoadKeywords prefers the keywords file and falls back to the list.
func LoadKeywords(cfg config.KeywordsConfig) ([]string, error) {
	if cfg.File != "" {
		kws, err := LoadList(cfg.File)
		if err != nil {
			return nil, fmt.Errorf("load keywords: %w", err)
		}
		if len(kws) > 0 {
			return kws, nil
		}
	}
	return cfg.List, nil
}

// Rotation hands out one keyword per run, round-robin, with the position
// kept in the store so it survives restarts.
type Rotation struct {
	keywords []string
	meta     MetadataStore
}

func NewRotation(keywords []string, meta MetadataStore) *Rotation {
	return &Rotation{keywords: keywords, meta: meta}
}

func (r *Rotation) Keywords() []string {
	return r.keywords
}

// Current returns the keyword of the latest run, or "" before the first.
func (r *Rotation) Current(ctx context.Context) (string, error) {
	idx, err := r.index(ctx)
	if err != nil || idx < 0 || len(r.keywords) == 0 {
		return "", err
	}
	return r.keywords[idx%len(r.keywords)], nil
}

// Next advances the rotation and returns the new active keyword.
func (r *Rotation) Next(ctx context.Context) (string, error) {
	if len(r.keywords) == 0 {
		return "", nil
	}
	idx, err := r.index(ctx)
	if err != nil {
		return "", err
	}
	idx = (idx + 1) % len(r.keywords)
	kw := r.keywords[idx]

	if err := r.meta.SetMetadata(ctx, keywordIndexKey, strconv.Itoa(idx)); err != nil {
		return "", err
	}
	if err := r.meta.SetMetadata(ctx, keywordCurrentKey, kw); err != nil {
		return "", err
	}
	return kw, nil
}

func (r *Rotation) index(ctx context.Context) (int, error) {
	v, err := r.meta.GetMetadata(ctx, keywordIndexKey)
	if err != nil {
		return -1, err
	}
	if v == "" {
		return -1, nil
	}
	idx, err := strconv.Atoi(v)
	if err != nil || idx < 0 {
		return -1, nil
	}
	return idx, nil
}
