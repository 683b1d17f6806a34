package sources

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mmcdole/gofeed"
)

const testRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel><title>Deals</title>
<item>
  <title>Stanley cup restock</title>
  <link>https://example.com/a</link>
  <description>&lt;p&gt;Lines &lt;b&gt;around&lt;/b&gt; the block&lt;/p&gt;</description>
  <pubDate>Mon, 02 Jan 2006 15:04:05 GMT</pubDate>
</item>
<item><title></title><link></link></item>
<item><title>Third</title><link>https://example.com/c</link></item>
</channel></rss>`

func TestRSSFetch(t *testing.T) {
	var userAgent string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userAgent = r.Header.Get("User-Agent")
		if r.URL.Path == "/broken" {
			http.Error(w, "nope", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprint(w, testRSS)
	}))
	defer srv.Close()

	feedURL := srv.URL + "/feed"
	src := NewRSSSource([]string{srv.URL + "/broken", "# comment", feedURL}, 2, time.Second)
	records, err := src.Fetch(context.Background(), "")
	if err == nil {
		t.Error("Expected joined error for the broken feed")
	}
	if len(records) != 2 {
		t.Fatalf("Expected 2 records from the good feed, got %d", len(records))
	}
	if userAgent != feedUserAgent {
		t.Errorf("user agent = %q", userAgent)
	}

	first := records[0]
	if first.String("title") != "Stanley cup restock" || first.String("text") != "Lines around the block" {
		t.Errorf("first = %v", first)
	}
	if first["metrics"].(map[string]any)["feed"] != feedURL {
		t.Errorf("metrics = %v", first["metrics"])
	}
	want := time.Date(2006, 1, 2, 15, 4, 5, 0, time.UTC)
	if got, ok := first["published_at"].(time.Time); !ok || !got.Equal(want) {
		t.Errorf("published_at = %v", first["published_at"])
	}

	second := records[1]
	if second.String("title") != "(no title)" || second.String("url") != feedURL {
		t.Errorf("defaults not applied: %v", second)
	}
}

func TestRedditSourceFeeds(t *testing.T) {
	src := NewRedditSource([]string{"r/wallstreetbets", " ", "#skip", "BuyItForLife"}, 0, 0)
	if len(src.feeds) != 2 {
		t.Fatalf("feeds = %v", src.feeds)
	}
	if src.feeds[0].url != "https://www.reddit.com/r/wallstreetbets/hot/.rss" {
		t.Errorf("url = %q", src.feeds[0].url)
	}
	if src.limit != defaultPerFeed || !src.Available() {
		t.Errorf("limit = %d available = %v", src.limit, src.Available())
	}

	rec := src.record(src.feeds[1], &gofeed.Item{Title: "Boots that last", Link: "https://reddit.com/x"})
	m := rec["metrics"].(map[string]any)
	if m["subreddit"] != "BuyItForLife" {
		t.Errorf("metrics = %v", m)
	}
	if rec.Source() != "reddit" {
		t.Errorf("source = %q", rec.Source())
	}
}

func TestHTMLText(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"plain   text", "plain text"},
		{"<p>One</p><p>Two &amp; three</p>", "One Two & three"},
		{"<script>x()</script>kept", "kept"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := HTMLText(tt.in); got != tt.want {
			t.Errorf("HTMLText(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
