package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/user/signalhub/internal/scoring"
)

func setupDataDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("SIGNALHUB_DATA_DIR", dir)
	t.Setenv("HOME", dir)
	return dir
}

func TestLoadDefaults(t *testing.T) {
	dir := setupDataDir(t)

	cfg, err := Load(LoadOptions{EnvFile: filepath.Join(dir, "missing.env")})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DataDir != dir {
		t.Errorf("data_dir = %q, want %q", cfg.DataDir, dir)
	}
	if cfg.Scoring.Weights != scoring.DefaultWeights() {
		t.Errorf("weights = %+v", cfg.Scoring.Weights)
	}
	if cfg.Enrich.Provider != "regex" {
		t.Errorf("enrich.provider = %q", cfg.Enrich.Provider)
	}
	if cfg.Keywords.File != filepath.Join(dir, "keywords.txt") {
		t.Errorf("keywords.file = %q", cfg.Keywords.File)
	}
	if cfg.Sources.Timeout != 20*time.Second {
		t.Errorf("sources.timeout = %v", cfg.Sources.Timeout)
	}
}

func TestLoadConfigFileAndEnv(t *testing.T) {
	dir := setupDataDir(t)
	yaml := `
scoring:
  engagement: 0.4
  recency: 0.3
  keyword: 0.2
  velocity: 0.1
  recency_half_life: 6h
  keywords: [launch]
alert:
  top_k: 9
`
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644); err != nil {
		t.Fatal(err)
	}
	envFile := filepath.Join(dir, "test.env")
	if err := os.WriteFile(envFile, []byte("TELEGRAM_CHAT_ID=12345\nSIGNALHUB_LOG_LEVEL=debug\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		os.Unsetenv("TELEGRAM_CHAT_ID")
		os.Unsetenv("SIGNALHUB_LOG_LEVEL")
	})

	cfg, err := Load(LoadOptions{EnvFile: envFile})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Scoring.Engagement != 0.4 || cfg.Scoring.RecencyHalfLife != 6*time.Hour {
		t.Errorf("scoring not read from file: %+v", cfg.Scoring.Weights)
	}
	if cfg.Alert.TopK != 9 {
		t.Errorf("alert.top_k = %d", cfg.Alert.TopK)
	}
	if cfg.Alert.TelegramChatID != 12345 {
		t.Errorf("telegram chat id = %d", cfg.Alert.TelegramChatID)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("log.level = %q", cfg.Log.Level)
	}
	if len(cfg.Scoring.Keywords) != 1 || cfg.Scoring.Keywords[0] != "launch" {
		t.Errorf("scoring.keywords = %v", cfg.Scoring.Keywords)
	}
}

func TestLoadRejectsBadWeights(t *testing.T) {
	dir := setupDataDir(t)
	yaml := "scoring:\n  engagement: 0.9\n"
	path := filepath.Join(dir, "custom.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := Load(LoadOptions{ConfigFile: path, EnvFile: filepath.Join(dir, "none.env")})
	var wErr *scoring.ScoreWeightsError
	if !errors.As(err, &wErr) {
		t.Fatalf("Expected ScoreWeightsError, got %v", err)
	}
}
