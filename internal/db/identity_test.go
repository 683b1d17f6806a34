package db

import (
	"errors"
	"testing"
)

func TestItemIDDeterministic(t *testing.T) {
	a, err := ItemID("tiktok", "https://x/video/1", "")
	if err != nil {
		t.Fatalf("ItemID: %v", err)
	}
	b, _ := ItemID("tiktok", "https://x/video/1", "different title")
	if a != b {
		t.Errorf("url-keyed id depends on title: %s != %s", a, b)
	}
	if len(a) != 64 {
		t.Errorf("Expected 64 hex chars, got %d", len(a))
	}
	c, _ := ItemID("x_mock", "https://x/video/1", "")
	if a == c {
		t.Error("Expected source to change the id")
	}
}

func TestItemIDCanonicalization(t *testing.T) {
	tests := []struct {
		name string
		a, b string
	}{
		{"tracking params", "https://shop.test/p/1?utm_source=tw&id=3", "https://shop.test/p/1?id=3"},
		{"host case", "https://Shop.Test/p/1", "https://shop.test/p/1"},
		{"default port", "https://shop.test:443/p/1", "https://shop.test/p/1"},
		{"fragment", "https://shop.test/p/1#top", "https://shop.test/p/1"},
		{"trailing slash", "https://shop.test/p/1/", "https://shop.test/p/1"},
		{"surrounding space", "  https://shop.test/p/1 ", "https://shop.test/p/1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, _ := ItemID("rss", tt.a, "")
			b, _ := ItemID("rss", tt.b, "")
			if a != b {
				t.Errorf("%q and %q should share an id", tt.a, tt.b)
			}
		})
	}
}

func TestItemIDTitleFallback(t *testing.T) {
	a, err := ItemID("x_mock", "", "Sold  out\teverywhere")
	if err != nil {
		t.Fatalf("ItemID: %v", err)
	}
	b, _ := ItemID("x_mock", "   ", "Sold out everywhere")
	if a != b {
		t.Error("Expected whitespace-collapsed titles to match")
	}
}

func TestItemIDIdentityError(t *testing.T) {
	_, err := ItemID("tiktok", " ", "\t")
	var idErr *IdentityError
	if !errors.As(err, &idErr) {
		t.Fatalf("Expected IdentityError, got %v", err)
	}
	if idErr.Source != "tiktok" {
		t.Errorf("source = %q", idErr.Source)
	}
}

func TestCanonicalURLKeepsRelative(t *testing.T) {
	if got := CanonicalURL(" /video/1 "); got != "/video/1" {
		t.Errorf("got %q", got)
	}
}
