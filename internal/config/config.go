package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/user/signalhub/internal/db"
	"github.com/user/signalhub/internal/scoring"
)

const envPrefix = "SIGNALHUB"

type Config struct {
	DataDir  string         `mapstructure:"data_dir"`
	Log      LogConfig      `mapstructure:"log"`
	Scoring  ScoringConfig  `mapstructure:"scoring"`
	Keywords KeywordsConfig `mapstructure:"keywords"`
	Enrich   EnrichConfig   `mapstructure:"enrich"`
	LLM      LLMConfig      `mapstructure:"llm"`
	Vision   VisionConfig   `mapstructure:"vision"`
	Sources  SourcesConfig  `mapstructure:"sources"`
	Alert    AlertConfig    `mapstructure:"alert"`
	Store    StoreConfig    `mapstructure:"store"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ScoringConfig holds the weights plus keywords that always count as a
// keyword match, on top of the active rotation keyword.
type ScoringConfig struct {
	scoring.Weights `mapstructure:",squash"`
	Keywords        []string `mapstructure:"keywords"`
}

type KeywordsConfig struct {
	File string   `mapstructure:"file"`
	List []string `mapstructure:"list"`
}

type EnrichConfig struct {
	Provider       string        `mapstructure:"provider"`
	Timeout        time.Duration `mapstructure:"timeout"`
	BrandsFile     string        `mapstructure:"brands_file"`
	Brands         []string      `mapstructure:"brands"`
	InvestableFile string        `mapstructure:"investable_file"`
	ScrapePages    bool          `mapstructure:"scrape_pages"`
}

type LLMConfig struct {
	Provider  string `mapstructure:"provider"`
	Model     string `mapstructure:"model"`
	BaseURL   string `mapstructure:"base_url"`
	MaxTokens int    `mapstructure:"max_tokens"`
}

type VisionConfig struct {
	Region    string `mapstructure:"region"`
	MaxImages int    `mapstructure:"max_images"`
}

type SourcesConfig struct {
	Enabled      []string      `mapstructure:"enabled"`
	TikTokSeed   string        `mapstructure:"tiktok_seed"`
	XSeed        string        `mapstructure:"x_seed"`
	RSSFeeds     []string      `mapstructure:"rss_feeds"`
	Subreddits   []string      `mapstructure:"subreddits"`
	HNKind       string        `mapstructure:"hn_kind"`
	HNLimit      int           `mapstructure:"hn_limit"`
	PerFeedLimit int           `mapstructure:"per_feed_limit"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

type AlertConfig struct {
	Channel           string  `mapstructure:"channel"`
	MinScore          float64 `mapstructure:"min_score"`
	TopK              int     `mapstructure:"top_k"`
	TelegramBotToken  string  `mapstructure:"telegram_bot_token"`
	TelegramChatID    int64   `mapstructure:"telegram_chat_id"`
	DiscordWebhookURL string  `mapstructure:"discord_webhook_url"`
}

type StoreConfig struct {
	ScoreHistory bool `mapstructure:"score_history"`
}

// LoadOptions points Load at explicit files. Empty fields use defaults.
type LoadOptions struct {
	ConfigFile string
	EnvFile    string
}

func Load(opts LoadOptions) (*Config, error) {
	envFile := opts.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", envFile, err)
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	defaultDataDir := filepath.Join(homeDir, ".signalhub")

	v := viper.New()
	setDefaults(v, defaultDataDir)

	// Environment variable overrides
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.BindEnv("data_dir", "SIGNALHUB_DATA_DIR")
	v.BindEnv("llm.provider", "SIGNALHUB_LLM_PROVIDER")
	v.BindEnv("llm.model", "SIGNALHUB_LLM_MODEL")
	v.BindEnv("llm.base_url", "SIGNALHUB_LLM_BASE_URL")
	v.BindEnv("alert.telegram_bot_token", "SIGNALHUB_ALERT_TELEGRAM_BOT_TOKEN", "TELEGRAM_BOT_TOKEN")
	v.BindEnv("alert.telegram_chat_id", "SIGNALHUB_ALERT_TELEGRAM_CHAT_ID", "TELEGRAM_CHAT_ID")
	v.BindEnv("alert.discord_webhook_url", "SIGNALHUB_ALERT_DISCORD_WEBHOOK_URL", "DISCORD_WEBHOOK_URL")
	v.BindEnv("vision.region", "SIGNALHUB_VISION_REGION", "AWS_REGION")

	// Config file
	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", opts.ConfigFile, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(v.GetString("data_dir"))
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.Scoring.Weights.Validate(); err != nil {
		return nil, err
	}

	// Ensure data directory exists
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, err
	}

	cfg.Keywords.File = cfg.resolve(cfg.Keywords.File, "keywords.txt")
	cfg.Enrich.BrandsFile = cfg.resolve(cfg.Enrich.BrandsFile, "brands.txt")
	cfg.Enrich.InvestableFile = cfg.resolve(cfg.Enrich.InvestableFile, "investable_map.csv")
	cfg.Sources.TikTokSeed = cfg.resolve(cfg.Sources.TikTokSeed, "tiktok_seed.jsonl")
	cfg.Sources.XSeed = cfg.resolve(cfg.Sources.XSeed, "x_seed.jsonl")

	return &cfg, nil
}

func setDefaults(v *viper.Viper, dataDir string) {
	w := scoring.DefaultWeights()

	v.SetDefault("data_dir", dataDir)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "auto")

	v.SetDefault("scoring.engagement", w.Engagement)
	v.SetDefault("scoring.recency", w.Recency)
	v.SetDefault("scoring.keyword", w.Keyword)
	v.SetDefault("scoring.velocity", w.Velocity)
	v.SetDefault("scoring.boost.public", w.Boost.Public)
	v.SetDefault("scoring.boost.public_parent", w.Boost.PublicParent)
	v.SetDefault("scoring.boost.pre_ipo", w.Boost.PreIPO)
	v.SetDefault("scoring.half_saturation", w.HalfSaturation)
	v.SetDefault("scoring.recency_half_life", w.RecencyHalfLife)
	v.SetDefault("scoring.comment_weight", w.CommentWeight)
	v.SetDefault("scoring.share_weight", w.ShareWeight)
	v.SetDefault("scoring.view_weight", w.ViewWeight)
	v.SetDefault("scoring.points_weight", w.PointsWeight)
	v.SetDefault("scoring.keywords", []string{})

	v.SetDefault("keywords.file", "")
	v.SetDefault("keywords.list", []string{"restock", "sold out", "dupe", "viral", "launch"})

	v.SetDefault("enrich.provider", "regex")
	v.SetDefault("enrich.timeout", 20*time.Second)
	v.SetDefault("enrich.brands_file", "")
	v.SetDefault("enrich.brands", []string{})
	v.SetDefault("enrich.investable_file", "")
	v.SetDefault("enrich.scrape_pages", false)

	v.SetDefault("llm.provider", "anthropic")
	v.SetDefault("llm.model", "claude-haiku-4-5-20251001")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.max_tokens", 700)

	v.SetDefault("vision.region", "us-east-1")
	v.SetDefault("vision.max_images", 2)

	v.SetDefault("sources.enabled", []string{db.SourceTikTok, db.SourceX, db.SourceHN})
	v.SetDefault("sources.tiktok_seed", "")
	v.SetDefault("sources.x_seed", "")
	v.SetDefault("sources.rss_feeds", []string{})
	v.SetDefault("sources.subreddits", []string{})
	v.SetDefault("sources.hn_kind", "top")
	v.SetDefault("sources.hn_limit", 30)
	v.SetDefault("sources.per_feed_limit", 25)
	v.SetDefault("sources.timeout", 20*time.Second)

	v.SetDefault("alert.channel", "auto")
	v.SetDefault("alert.min_score", 0.6)
	v.SetDefault("alert.top_k", 5)
	v.SetDefault("alert.telegram_bot_token", "")
	v.SetDefault("alert.telegram_chat_id", 0)
	v.SetDefault("alert.discord_webhook_url", "")

	v.SetDefault("store.score_history", false)
}

// resolve returns path, or name inside the data dir when path is empty.
func (c *Config) resolve(path, name string) string {
	if path != "" {
		return path
	}
	return filepath.Join(c.DataDir, name)
}

func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, db.DBFile)
}

func (c *Config) LockPath() string {
	return filepath.Join(c.DataDir, "signalhub.lock")
}

func (c *Config) ExportDir() string {
	return filepath.Join(c.DataDir, "exports")
}
