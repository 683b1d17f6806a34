package indexer

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/user/signalhub/internal/config"
	"github.com/user/signalhub/internal/db"
)

func TestParseLLMResult(t *testing.T) {
	tests := []struct {
		name     string
		response string
		wantErr  bool
	}{
		{"bare json", `{"context_summary":"Restock frenzy","related_tickers":[]}`, false},
		{"wrapped", "Sure! Here you go:\n```json\n{\"context_summary\":\"Restock frenzy\"}\n```", false},
		{"no json", "I cannot help with that.", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseLLMResult(tt.response)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got.ContextSummary != "Restock frenzy" {
				t.Errorf("context_summary = %q", got.ContextSummary)
			}
		})
	}
}

func TestLLMEnricher(t *testing.T) {
	var prompt string
	e := &LLMEnricher{
		cfg: config.LLMConfig{Provider: "openai", Model: "test-model"},
		complete: func(_ context.Context, p string) (string, error) {
			prompt = p
			return `{"context_summary":"Gen Z drink trend","key_entities":["Celsius"],
				"related_tickers":[{"ticker":"$celh","confidence":0.8,"reason":"brand"},{"ticker":"KO","confidence":0.2,"reason":"maybe"}],
				"why_spreading":"Meme","risk_flags":{"ad_sponsored":false}}`, nil
		},
	}

	it := db.Item{ID: "id", Source: db.SourceTikTok, URL: "https://x/video/1", Title: "New drink brand is everywhere"}
	it.Metrics.Set("creator", "@someone")
	out, err := e.Enrich(context.Background(), it)
	if err != nil {
		t.Fatalf("Enrich: %v", err)
	}
	if !strings.Contains(prompt, "New drink brand is everywhere") || !strings.Contains(prompt, "@someone") {
		t.Errorf("prompt missing item content: %s", prompt)
	}
	if !reflect.DeepEqual(out.Metrics.Tickers, []string{"CELH"}) {
		t.Errorf("tickers = %v", out.Metrics.Tickers)
	}
	sub, ok := out.Metrics.Extra[MetricLLMEnrich].(map[string]any)
	if !ok || sub["why_spreading"] != "Meme" {
		t.Errorf("llm_enrich = %v", out.Metrics.Extra[MetricLLMEnrich])
	}
	if v, _ := out.Metrics.Get("enrich_model"); v != "test-model" {
		t.Errorf("enrich_model = %v", v)
	}
}

func TestLLMEnricherFailure(t *testing.T) {
	e := &LLMEnricher{
		cfg: config.LLMConfig{Provider: "anthropic"},
		complete: func(context.Context, string) (string, error) {
			return "", errors.New("rate limited")
		},
	}
	it := db.Item{ID: "id", Title: "t"}
	out, err := e.Enrich(context.Background(), it)
	var enrichErr *EnrichmentError
	if !errors.As(err, &enrichErr) || enrichErr.Provider != "llm" {
		t.Fatalf("Expected EnrichmentError, got %v", err)
	}
	if out.Metrics.Len() != 0 {
		t.Errorf("failed enrichment modified metrics: %v", out.Metrics.ToMap())
	}
}

func TestTruncateBytesKeepsRunes(t *testing.T) {
	s := strings.Repeat("é", 5) // 2 bytes each
	got := truncateBytes(s, 5)
	if got != "éé" {
		t.Errorf("truncateBytes = %q, want %q", got, "éé")
	}
	if !utf8.ValidString(got) {
		t.Error("truncated string is not valid UTF-8")
	}
	if truncateBytes("abc", 10) != "abc" {
		t.Error("short strings should be returned unchanged")
	}
}

func TestNewLLMEnricherRequiresKey(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	if _, err := NewLLMEnricher(config.LLMConfig{Provider: "anthropic"}, nil); err == nil {
		t.Error("Expected error without API key")
	}
	if _, err := NewLLMEnricher(config.LLMConfig{Provider: "bogus"}, nil); err == nil {
		t.Error("Expected error for unknown provider")
	}

	t.Setenv("OPENAI_API_KEY", "sk-test")
	e, err := NewLLMEnricher(config.LLMConfig{Provider: "openai", Model: "gpt-4o-mini"}, nil)
	if err != nil || e.complete == nil {
		t.Fatalf("NewLLMEnricher: %v", err)
	}
}
