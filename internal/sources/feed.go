package sources

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/user/signalhub/internal/db"
)

const (
	redditFeedURL   = "https://www.reddit.com/r/%s/hot/.rss"
	feedUserAgent   = "signalhub/1.0"
	defaultPerFeed  = 25
	defaultFeedWait = 20 * time.Second
)

// FeedSource collects entries from RSS/Atom feeds. The reddit source is a
// FeedSource over each subreddit's hot feed.
type FeedSource struct {
	name    string
	feeds   []feedRef
	limit   int
	timeout time.Duration
	parser  *gofeed.Parser
}

type feedRef struct {
	url       string
	subreddit string
}

func NewRSSSource(feeds []string, perFeed int, timeout time.Duration) *FeedSource {
	refs := make([]feedRef, 0, len(feeds))
	for _, f := range feeds {
		if f = strings.TrimSpace(f); f != "" && !strings.HasPrefix(f, "#") {
			refs = append(refs, feedRef{url: f})
		}
	}
	return newFeedSource(db.SourceRSS, refs, perFeed, timeout)
}

func NewRedditSource(subreddits []string, perFeed int, timeout time.Duration) *FeedSource {
	refs := make([]feedRef, 0, len(subreddits))
	for _, sub := range subreddits {
		sub = strings.TrimPrefix(strings.TrimSpace(sub), "r/")
		if sub == "" || strings.HasPrefix(sub, "#") {
			continue
		}
		refs = append(refs, feedRef{
			url:       fmt.Sprintf(redditFeedURL, url.PathEscape(sub)),
			subreddit: sub,
		})
	}
	return newFeedSource(db.SourceReddit, refs, perFeed, timeout)
}

func newFeedSource(name string, refs []feedRef, perFeed int, timeout time.Duration) *FeedSource {
	if perFeed <= 0 {
		perFeed = defaultPerFeed
	}
	if timeout <= 0 {
		timeout = defaultFeedWait
	}
	parser := gofeed.NewParser()
	parser.UserAgent = feedUserAgent
	return &FeedSource{name: name, feeds: refs, limit: perFeed, timeout: timeout, parser: parser}
}

func (f *FeedSource) Name() string {
	return f.name
}

// Available is false when no feeds are configured.
func (f *FeedSource) Available() bool {
	return len(f.feeds) > 0
}

// Fetch reads every feed. A failing feed does not stop the others; its
// error is returned joined with any others alongside the records collected.
func (f *FeedSource) Fetch(ctx context.Context, _ string) ([]db.RawRecord, error) {
	var (
		records []db.RawRecord
		errs    []error
	)
	for _, ref := range f.feeds {
		if err := ctx.Err(); err != nil {
			return records, err
		}
		recs, err := f.fetchFeed(ctx, ref)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		records = append(records, recs...)
	}
	return records, errors.Join(errs...)
}

func (f *FeedSource) fetchFeed(ctx context.Context, ref feedRef) ([]db.RawRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	feed, err := f.parser.ParseURLWithContext(ref.url, ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: parse feed %s: %w", f.name, ref.url, err)
	}

	records := make([]db.RawRecord, 0, min(len(feed.Items), f.limit))
	for i, item := range feed.Items {
		if i >= f.limit {
			break
		}
		records = append(records, f.record(ref, item))
	}
	return records, nil
}

func (f *FeedSource) record(ref feedRef, item *gofeed.Item) db.RawRecord {
	link := strings.TrimSpace(item.Link)
	if link == "" {
		link = ref.url
	}
	title := strings.TrimSpace(item.Title)
	if title == "" {
		title = "(no title)"
	}

	metrics := map[string]any{"feed": ref.url}
	if ref.subreddit != "" {
		metrics = map[string]any{"subreddit": ref.subreddit}
	}
	if item.Author != nil && item.Author.Name != "" {
		metrics["author"] = item.Author.Name
	}

	rec := db.RawRecord{
		"source":  f.name,
		"url":     link,
		"title":   title,
		"metrics": metrics,
	}

	summary := item.Description
	if summary == "" {
		summary = item.Content
	}
	if text := HTMLText(summary); text != "" {
		rec["text"] = text
	}

	if item.PublishedParsed != nil {
		rec["published_at"] = item.PublishedParsed.UTC()
	} else if item.UpdatedParsed != nil {
		rec["published_at"] = item.UpdatedParsed.UTC()
	}
	return rec
}
