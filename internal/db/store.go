package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// DBFile is the database file name inside the data directory.
const DBFile = "signalhub.db"

// timeLayout is fixed-width so text ordering matches time ordering.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// ErrNotFound is returned when no item matches.
var ErrNotFound = errors.New("item not found")

// StoreError wraps persistence failures.
type StoreError struct {
	Op     string
	ItemID string
	Err    error
}

func (e *StoreError) Error() string {
	if e.ItemID != "" {
		return fmt.Sprintf("store %s %s: %v", e.Op, e.ItemID, e.Err)
	}
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// Option configures a Store.
type Option func(*Store)

// WithScoreHistory appends a score event every time a score is written.
func WithScoreHistory(enabled bool) Option {
	return func(s *Store) {
		s.scoreHistory = enabled
	}
}

// Store persists items in SQLite, one row per item_id.
type Store struct {
	db           *sql.DB
	path         string
	scoreHistory bool
	locks        *keyLocks
}

func NewStore(dataDir string, opts ...Option) (*Store, error) {
	dbPath := filepath.Join(dataDir, DBFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_txlock=immediate")
	if err != nil {
		return nil, &StoreError{Op: "open", Err: err}
	}

	s := &Store{db: db, path: dbPath, locks: &keyLocks{}}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, &StoreError{Op: "migrate", Err: err}
	}

	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS items (
		item_id TEXT PRIMARY KEY,
		source TEXT NOT NULL,
		url TEXT NOT NULL DEFAULT '',
		title TEXT NOT NULL DEFAULT '',
		text TEXT NOT NULL DEFAULT '',
		metrics_json TEXT NOT NULL DEFAULT '{}',
		score REAL,
		score_breakdown_json TEXT,
		published_at TEXT,
		created_at TEXT NOT NULL,
		fetched_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_items_score ON items(score);
	CREATE INDEX IF NOT EXISTS idx_items_fetched_at ON items(fetched_at);
	CREATE INDEX IF NOT EXISTS idx_items_source ON items(source);
	CREATE INDEX IF NOT EXISTS idx_items_url ON items(url);

	CREATE TABLE IF NOT EXISTS score_events (
		id TEXT PRIMARY KEY,
		item_id TEXT NOT NULL,
		score REAL NOT NULL,
		breakdown_json TEXT NOT NULL,
		scored_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_score_events_item ON score_events(item_id, scored_at);

	CREATE TABLE IF NOT EXISTS ingest_runs (
		id TEXT PRIMARY KEY,
		keyword TEXT NOT NULL DEFAULT '',
		started_at TEXT NOT NULL,
		finished_at TEXT NOT NULL,
		stored INTEGER NOT NULL DEFAULT 0,
		skipped INTEGER NOT NULL DEFAULT 0,
		errored INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS metadata (
		key TEXT PRIMARY KEY,
		value TEXT
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

const itemColumns = `item_id, source, url, title, text, metrics_json, score, score_breakdown_json, published_at, created_at, fetched_at`

// Put inserts the item if its item_id is new, otherwise merges it into the
// existing row: title, text, metrics and fetched_at are replaced, score and
// breakdown are replaced when the item is scored, created_at is kept.
// fetched_at never moves backwards. On return the item reflects the stored
// timestamps.
func (s *Store) Put(ctx context.Context, it *Item) (UpsertResult, error) {
	if err := validateItem(it); err != nil {
		var id string
		if it != nil {
			id = it.ID
		}
		return UpsertResult{}, &StoreError{Op: "put", ItemID: id, Err: err}
	}

	metricsJSON, err := json.Marshal(it.Metrics)
	if err != nil {
		return UpsertResult{}, &StoreError{Op: "put", ItemID: it.ID, Err: fmt.Errorf("marshal metrics: %w", err)}
	}
	var breakdownJSON []byte
	if it.Score != nil {
		breakdownJSON, err = json.Marshal(it.ScoreBreakdown)
		if err != nil {
			return UpsertResult{}, &StoreError{Op: "put", ItemID: it.ID, Err: fmt.Errorf("marshal breakdown: %w", err)}
		}
	}

	now := time.Now().UTC()
	if it.CreatedAt.IsZero() {
		it.CreatedAt = now
	}
	if it.FetchedAt.IsZero() {
		it.FetchedAt = now
	}

	unlock := s.locks.lock(it.ID)
	defer unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return UpsertResult{}, &StoreError{Op: "put", ItemID: it.ID, Err: err}
	}
	defer tx.Rollback()

	var existingCreated, existingFetched string
	err = tx.QueryRowContext(ctx, `SELECT created_at, fetched_at FROM items WHERE item_id = ?`, it.ID).
		Scan(&existingCreated, &existingFetched)
	inserted := errors.Is(err, sql.ErrNoRows)
	if err != nil && !inserted {
		return UpsertResult{}, &StoreError{Op: "put", ItemID: it.ID, Err: err}
	}

	createdAt := it.CreatedAt.UTC()
	fetchedAt := it.FetchedAt.UTC()
	if !inserted {
		if createdAt, err = parseTime(existingCreated); err != nil {
			return UpsertResult{}, &StoreError{Op: "put", ItemID: it.ID, Err: err}
		}
		prevFetched, err := parseTime(existingFetched)
		if err != nil {
			return UpsertResult{}, &StoreError{Op: "put", ItemID: it.ID, Err: err}
		}
		if prevFetched.After(fetchedAt) {
			fetchedAt = prevFetched
		}
	}

	if inserted {
		_, err = tx.ExecContext(ctx, `
		INSERT INTO items (`+itemColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			it.ID, it.Source, it.URL, it.Title, it.Text, string(metricsJSON),
			nullableScore(it.Score), nullableBytes(breakdownJSON), nullableTime(it.PublishedAt),
			formatTime(createdAt), formatTime(fetchedAt),
		)
	} else if it.Score != nil {
		_, err = tx.ExecContext(ctx, `
		UPDATE items SET
			title = ?, text = ?, metrics_json = ?,
			score = ?, score_breakdown_json = ?,
			published_at = COALESCE(?, published_at),
			fetched_at = ?
		WHERE item_id = ?`,
			it.Title, it.Text, string(metricsJSON),
			*it.Score, string(breakdownJSON),
			nullableTime(it.PublishedAt), formatTime(fetchedAt), it.ID,
		)
	} else {
		_, err = tx.ExecContext(ctx, `
		UPDATE items SET
			title = ?, text = ?, metrics_json = ?,
			published_at = COALESCE(?, published_at),
			fetched_at = ?
		WHERE item_id = ?`,
			it.Title, it.Text, string(metricsJSON),
			nullableTime(it.PublishedAt), formatTime(fetchedAt), it.ID,
		)
	}
	if err != nil {
		return UpsertResult{}, &StoreError{Op: "put", ItemID: it.ID, Err: err}
	}

	if s.scoreHistory && it.Score != nil {
		if err := appendScoreEvent(ctx, tx, it.ID, *it.Score, breakdownJSON, fetchedAt); err != nil {
			return UpsertResult{}, &StoreError{Op: "put", ItemID: it.ID, Err: err}
		}
	}

	if err := tx.Commit(); err != nil {
		return UpsertResult{}, &StoreError{Op: "put", ItemID: it.ID, Err: err}
	}

	it.CreatedAt = createdAt
	it.FetchedAt = fetchedAt
	return UpsertResult{Inserted: inserted}, nil
}

// UpdateScore rewrites score and breakdown only.
func (s *Store) UpdateScore(ctx context.Context, id string, score float64, breakdown Breakdown) error {
	breakdownJSON, err := json.Marshal(breakdown)
	if err != nil {
		return &StoreError{Op: "update score", ItemID: id, Err: err}
	}

	unlock := s.locks.lock(id)
	defer unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &StoreError{Op: "update score", ItemID: id, Err: err}
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `UPDATE items SET score = ?, score_breakdown_json = ? WHERE item_id = ?`,
		score, string(breakdownJSON), id)
	if err != nil {
		return &StoreError{Op: "update score", ItemID: id, Err: err}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return &StoreError{Op: "update score", ItemID: id, Err: err}
	}
	if n == 0 {
		return ErrNotFound
	}

	if s.scoreHistory {
		if err := appendScoreEvent(ctx, tx, id, score, breakdownJSON, time.Now().UTC()); err != nil {
			return &StoreError{Op: "update score", ItemID: id, Err: err}
		}
	}

	if err := tx.Commit(); err != nil {
		return &StoreError{Op: "update score", ItemID: id, Err: err}
	}
	return nil
}

func (s *Store) Get(ctx context.Context, id string) (*Item, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM items WHERE item_id = ?`, id)
	it, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, &StoreError{Op: "get", ItemID: id, Err: err}
	}
	return it, nil
}

// GetByURL returns the most recently fetched item stored under url.
func (s *Store) GetByURL(ctx context.Context, url string) (*Item, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+itemColumns+` FROM items WHERE url = ? ORDER BY fetched_at DESC LIMIT 1`, url)
	it, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, &StoreError{Op: "get by url", Err: err}
	}
	return it, nil
}

// Lookup resolves an item by id, stored url, or canonical url.
func (s *Store) Lookup(ctx context.Context, idOrURL string) (*Item, error) {
	idOrURL = strings.TrimSpace(idOrURL)
	it, err := s.Get(ctx, idOrURL)
	if err == nil || !errors.Is(err, ErrNotFound) {
		return it, err
	}
	it, err = s.GetByURL(ctx, idOrURL)
	if err == nil || !errors.Is(err, ErrNotFound) {
		return it, err
	}
	if canonical := CanonicalURL(idOrURL); canonical != idOrURL {
		return s.GetByURL(ctx, canonical)
	}
	return nil, ErrNotFound
}

func (s *Store) GetMetadata(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", &StoreError{Op: "get metadata", Err: err}
	}
	return value, nil
}

func (s *Store) SetMetadata(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `INSERT OR REPLACE INTO metadata (key, value) VALUES (?, ?)`, key, value)
	if err != nil {
		return &StoreError{Op: "set metadata", Err: err}
	}
	return nil
}

func (s *Store) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM items`).Scan(&count); err != nil {
		return 0, &StoreError{Op: "count", Err: err}
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (*Item, error) {
	var (
		it            Item
		metricsJSON   string
		score         sql.NullFloat64
		breakdownJSON sql.NullString
		publishedAt   sql.NullString
		createdAt     string
		fetchedAt     string
	)
	if err := row.Scan(&it.ID, &it.Source, &it.URL, &it.Title, &it.Text, &metricsJSON,
		&score, &breakdownJSON, &publishedAt, &createdAt, &fetchedAt); err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(metricsJSON), &it.Metrics); err != nil {
		return nil, fmt.Errorf("decode metrics: %w", err)
	}
	if score.Valid {
		v := score.Float64
		it.Score = &v
		if breakdownJSON.Valid && breakdownJSON.String != "" {
			if err := json.Unmarshal([]byte(breakdownJSON.String), &it.ScoreBreakdown); err != nil {
				return nil, fmt.Errorf("decode breakdown: %w", err)
			}
		}
	}
	if publishedAt.Valid {
		t, err := parseTime(publishedAt.String)
		if err != nil {
			return nil, err
		}
		it.PublishedAt = &t
	}

	var err error
	if it.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if it.FetchedAt, err = parseTime(fetchedAt); err != nil {
		return nil, err
	}
	return &it, nil
}

func validateItem(it *Item) error {
	if it == nil {
		return errors.New("nil item")
	}
	if it.ID == "" {
		return errors.New("missing item_id")
	}
	if it.Source == "" {
		return errors.New("missing source")
	}
	if strings.TrimSpace(it.URL) == "" && strings.TrimSpace(it.Title) == "" {
		return errors.New("missing url and title")
	}
	if it.Score != nil && (*it.Score < 0 || *it.Score > 1) {
		return fmt.Errorf("score %v out of range", *it.Score)
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		// Rows written by other tools may use plain RFC3339.
		if t2, err2 := time.Parse(time.RFC3339Nano, s); err2 == nil {
			return t2.UTC(), nil
		}
		return time.Time{}, fmt.Errorf("parse time %q: %w", s, err)
	}
	return t, nil
}

func nullableScore(score *float64) any {
	if score == nil {
		return nil
	}
	return *score
}

func nullableBytes(b []byte) any {
	if b == nil {
		return nil
	}
	return string(b)
}

func nullableTime(t *time.Time) any {
	if t == nil || t.IsZero() {
		return nil
	}
	return formatTime(*t)
}

// keyLocks serializes writers per item_id; different ids usually map to
// different stripes.
type keyLocks [64]sync.Mutex

func (k *keyLocks) lock(id string) func() {
	h := fnv.New32a()
	h.Write([]byte(id))
	m := &k[h.Sum32()%uint32(len(k))]
	m.Lock()
	return m.Unlock
}
