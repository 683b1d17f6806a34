package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/user/signalhub/internal/db"
)

const (
	hnBaseURL     = "https://hacker-news.firebaseio.com/v0"
	hnItemURL     = "https://news.ycombinator.com/item?id=%d"
	hnConcurrency = 8
)

// HNSource reads story lists from the Hacker News Firebase API.
type HNSource struct {
	baseURL string
	kind    string
	limit   int
	client  *http.Client
}

func NewHNSource(kind string, limit int, timeout time.Duration) *HNSource {
	switch kind {
	case "top", "new", "best", "ask", "show":
	default:
		kind = "top"
	}
	if limit <= 0 {
		limit = 30
	}
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &HNSource{
		baseURL: hnBaseURL,
		kind:    kind,
		limit:   limit,
		client:  &http.Client{Timeout: timeout},
	}
}

func (h *HNSource) Name() string {
	return db.SourceHN
}

func (h *HNSource) Available() bool {
	return true
}

type hnItem struct {
	ID          int64  `json:"id"`
	Type        string `json:"type"`
	By          string `json:"by"`
	Time        int64  `json:"time"`
	Title       string `json:"title"`
	URL         string `json:"url"`
	Text        string `json:"text"`
	Score       int64  `json:"score"`
	Descendants int64  `json:"descendants"`
	Dead        bool   `json:"dead"`
	Deleted     bool   `json:"deleted"`
}

// Fetch ignores keyword: HN lists are not searchable by term.
func (h *HNSource) Fetch(ctx context.Context, _ string) ([]db.RawRecord, error) {
	var ids []int64
	if err := h.getJSON(ctx, fmt.Sprintf("%s/%sstories.json", h.baseURL, h.kind), &ids); err != nil {
		return nil, err
	}
	if len(ids) > h.limit {
		ids = ids[:h.limit]
	}

	items := make([]*hnItem, len(ids))
	errs := make([]error, len(ids))
	var g errgroup.Group
	g.SetLimit(hnConcurrency)
	for i, id := range ids {
		g.Go(func() error {
			var it hnItem
			if err := h.getJSON(ctx, fmt.Sprintf("%s/item/%d.json", h.baseURL, id), &it); err != nil {
				// One failed item must not cancel the rest.
				errs[i] = err
				return nil
			}
			items[i] = &it
			return nil
		})
	}
	_ = g.Wait()

	var (
		records []db.RawRecord
		failed  int
		lastErr error
	)
	for i, it := range items {
		if errs[i] != nil {
			failed++
			lastErr = errs[i]
			continue
		}
		if it == nil || it.Type != "story" || it.Dead || it.Deleted {
			continue
		}
		records = append(records, it.record())
	}
	if len(ids) > 0 && failed == len(ids) {
		return nil, fmt.Errorf("hn: all %d item fetches failed: %w", failed, lastErr)
	}
	return records, nil
}

func (it *hnItem) record() db.RawRecord {
	url := strings.TrimSpace(it.URL)
	if url == "" {
		url = fmt.Sprintf(hnItemURL, it.ID)
	}
	title := it.Title
	if title == "" {
		title = "(no title)"
	}
	rec := db.RawRecord{
		"source": db.SourceHN,
		"url":    url,
		"title":  title,
		"metrics": map[string]any{
			"points":   it.Score,
			"comments": it.Descendants,
			"by":       it.By,
			"hn_id":    it.ID,
		},
	}
	if it.Text != "" {
		rec["text"] = HTMLText(it.Text)
	}
	if it.Time > 0 {
		rec["published_at"] = time.Unix(it.Time, 0).UTC()
	}
	return rec
}

func (h *HNSource) getJSON(ctx context.Context, url string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("hn: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("hn: GET %s: status %d", url, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("hn: decode %s: %w", url, err)
	}
	return nil
}
