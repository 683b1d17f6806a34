package indexer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/user/signalhub/internal/db"
)

// Enricher annotates an item's metrics. Implementations only add or
// replace metrics keys and return the item unchanged on error.
type Enricher interface {
	Name() string
	Enrich(ctx context.Context, it db.Item) (db.Item, error)
}

// EnrichmentError reports a provider failure or timeout. It never stops
// an item from being scored or stored.
type EnrichmentError struct {
	Provider string
	ItemID   string
	Err      error
}

func (e *EnrichmentError) Error() string {
	return fmt.Sprintf("enrich %s %s: %v", e.Provider, e.ItemID, e.Err)
}

func (e *EnrichmentError) Unwrap() error {
	return e.Err
}

// NullEnricher leaves items untouched.
type NullEnricher struct{}

func (NullEnricher) Name() string { return "none" }

func (NullEnricher) Enrich(_ context.Context, it db.Item) (db.Item, error) {
	return it, nil
}

// Chain runs enrichers in order. A failing member is skipped and the
// remaining members still run on the last good item.
type Chain []Enricher

func (c Chain) Name() string {
	names := make([]string, 0, len(c))
	for _, e := range c {
		names = append(names, e.Name())
	}
	return strings.Join(names, "+")
}

func (c Chain) Enrich(ctx context.Context, it db.Item) (db.Item, error) {
	cur := it
	var errs []error
	for _, e := range c {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		out, err := e.Enrich(ctx, cur.Clone())
		if err != nil {
			errs = append(errs, err)
			continue
		}
		cur = preserveIdentity(cur, out)
	}
	if len(errs) > 0 {
		return cur, &EnrichmentError{Provider: c.Name(), ItemID: it.ID, Err: errors.Join(errs...)}
	}
	return cur, nil
}

// preserveIdentity merges the enriched metrics onto the original item. Keys
// the enricher dropped keep their original values, and identity, content and
// timestamps always come from orig.
func preserveIdentity(orig, enriched db.Item) db.Item {
	out := orig
	out.Metrics = orig.Metrics.Clone()
	for k, v := range enriched.Metrics.ToMap() {
		out.Metrics.Set(k, v)
	}
	return out
}
