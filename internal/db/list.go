package db

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
)

// List returns items ordered by score descending (unscored last), then most
// recently fetched, then item_id. Limit <= 0 means no cap.
func (s *Store) List(ctx context.Context, f ListFilter) ([]*Item, error) {
	q := sq.Select(itemColumns).From("items")
	if f.MinScore != nil {
		q = q.Where(sq.GtOrEq{"score": *f.MinScore})
	}
	if f.Source != "" {
		q = q.Where(sq.Eq{"source": f.Source})
	}
	q = q.OrderBy("score IS NULL", "score DESC", "fetched_at DESC", "item_id ASC")
	if f.Limit > 0 {
		q = q.Limit(uint64(f.Limit))
	}
	return s.queryItems(ctx, "list", q)
}

// ListUnscored returns items that have never been scored, newest first.
func (s *Store) ListUnscored(ctx context.Context, limit int) ([]*Item, error) {
	q := sq.Select(itemColumns).From("items").
		Where(sq.Eq{"score": nil}).
		OrderBy("fetched_at DESC", "item_id ASC")
	if limit > 0 {
		q = q.Limit(uint64(limit))
	}
	return s.queryItems(ctx, "list unscored", q)
}

// ListSince returns scored items fetched at or after since, best first.
func (s *Store) ListSince(ctx context.Context, since time.Time, minScore float64, limit int) ([]*Item, error) {
	q := sq.Select(itemColumns).From("items").
		Where(sq.NotEq{"score": nil}).
		Where(sq.GtOrEq{"score": minScore})
	if !since.IsZero() {
		q = q.Where(sq.GtOrEq{"fetched_at": formatTime(since)})
	}
	q = q.OrderBy("score DESC", "fetched_at DESC", "item_id ASC")
	if limit > 0 {
		q = q.Limit(uint64(limit))
	}
	return s.queryItems(ctx, "list since", q)
}

func (s *Store) queryItems(ctx context.Context, op string, q sq.SelectBuilder) ([]*Item, error) {
	query, args, err := q.ToSql()
	if err != nil {
		return nil, &StoreError{Op: op, Err: err}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &StoreError{Op: op, Err: err}
	}
	defer rows.Close()

	var items []*Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, &StoreError{Op: op, Err: err}
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, &StoreError{Op: op, Err: err}
	}
	return items, nil
}
