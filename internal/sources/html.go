package sources

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// HTMLText reduces an HTML fragment (feed summaries, HN text) to plain text.
func HTMLText(fragment string) string {
	if !strings.Contains(fragment, "<") && !strings.Contains(fragment, "&") {
		return strings.Join(strings.Fields(fragment), " ")
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return strings.Join(strings.Fields(fragment), " ")
	}
	doc.Find("script, style").Remove()
	// Block elements run together in Text(); give them a separator.
	doc.Find("p, br, li, div").Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml(" ")
	})
	return strings.Join(strings.Fields(doc.Text()), " ")
}
