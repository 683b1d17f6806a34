package indexer

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const maxPageText = 50000

// Page is the readable part of a fetched web page.
type Page struct {
	Title string
	Text  string
}

// Scraper fetches pages and reduces them to title and body text.
type Scraper struct {
	client *http.Client
}

func NewScraper() *Scraper {
	return &Scraper{
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Scrape fetches targetURL and extracts its title and visible text.
func (s *Scraper) Scrape(ctx context.Context, targetURL string) (*Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "signalhub/1.0")
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("scrape %s: status %d", targetURL, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", targetURL, err)
	}
	return pageFromDocument(doc), nil
}

func pageFromDocument(doc *goquery.Document) *Page {
	doc.Find("script, style, noscript, nav, footer, header").Remove()

	title := strings.TrimSpace(doc.Find("meta[property='og:title']").AttrOr("content", ""))
	if title == "" {
		title = strings.TrimSpace(doc.Find("title").First().Text())
	}

	root := doc.Find("article").First()
	if root.Length() == 0 {
		root = doc.Find("body")
	}
	text := strings.Join(strings.Fields(root.Text()), " ")

	// Limit content size to avoid excessive token usage
	if len(text) > maxPageText {
		text = text[:maxPageText]
	}
	return &Page{Title: title, Text: text}
}
