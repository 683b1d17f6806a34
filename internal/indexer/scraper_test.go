package indexer

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestScraperExtractsReadableText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><head><title>Restock alert</title><script>var x = 1;</script></head>
<body><nav>menu</nav><article><p>The cups are   back.</p><p>Lines form early.</p></article></body></html>`))
	}))
	defer srv.Close()

	page, err := NewScraper().Scrape(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Scrape: %v", err)
	}
	if page.Title != "Restock alert" {
		t.Errorf("title = %q", page.Title)
	}
	if page.Text != "The cups are back.Lines form early." && page.Text != "The cups are back. Lines form early." {
		t.Errorf("text = %q", page.Text)
	}
	if strings.Contains(page.Text, "menu") || strings.Contains(page.Text, "var x") {
		t.Errorf("boilerplate leaked: %q", page.Text)
	}
}

func TestScraperStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	if _, err := NewScraper().Scrape(context.Background(), srv.URL); err == nil {
		t.Error("Expected error for 404")
	}
}
