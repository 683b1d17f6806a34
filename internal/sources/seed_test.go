package sources

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/user/signalhub/internal/db"
)

func TestTikTokFallbackStampsKeyword(t *testing.T) {
	src := NewTikTokSource(filepath.Join(t.TempDir(), "missing.jsonl"))

	records, err := src.Fetch(context.Background(), "restock")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("Expected 2 fallback records, got %d", len(records))
	}
	for _, rec := range records {
		if rec.Source() != db.SourceTikTok {
			t.Errorf("source = %q", rec.Source())
		}
		m := rec["metrics"].(map[string]any)
		if m["keyword"] != "restock" || m["collector"] != "mock" {
			t.Errorf("metrics = %v", m)
		}
	}

	// Mutating one fetch must not leak into the next.
	records[0]["title"] = "changed"
	again, _ := src.Fetch(context.Background(), "dupe")
	if again[0].String("title") == "changed" {
		t.Error("fallback records shared between fetches")
	}
	if again[0]["metrics"].(map[string]any)["keyword"] != "dupe" {
		t.Error("keyword from previous fetch leaked")
	}
}

func TestSeedFileDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x_seed.jsonl")
	seed := `{"url":"https://x.com/a/status/9","title":"Sold out in an hour","metrics":{"likes":"1.2K"}}

{"text":"no url or title"}
`
	if err := os.WriteFile(path, []byte(seed), 0644); err != nil {
		t.Fatal(err)
	}

	records, err := NewXMockSource(path).Fetch(context.Background(), "restock")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(records))
	}
	if records[1].String("url") != "https://x.com/" || records[1].String("title") != "(tweet)" {
		t.Errorf("defaults not applied: %v", records[1])
	}
	if _, ok := records[0]["metrics"].(map[string]any)["keyword"]; ok {
		t.Error("x_mock should not stamp the keyword")
	}
}

func TestSeedFileMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tiktok_seed.jsonl")
	if err := os.WriteFile(path, []byte("{\"url\":\"a\"}\n{broken\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewTikTokSource(path).Fetch(context.Background(), ""); err == nil {
		t.Error("Expected error for malformed seed line")
	}
}
