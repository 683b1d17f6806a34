package alert

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/user/signalhub/internal/config"
	"github.com/user/signalhub/internal/db"
)

// Channel names accepted by Select.
const (
	ChannelAuto     = "auto"
	ChannelStdout   = "stdout"
	ChannelDiscord  = "discord"
	ChannelTelegram = "telegram"
)

// ErrNotConfigured means the requested channel lacks its credentials.
var ErrNotConfigured = errors.New("alert channel not configured")

// Notifier delivers a batch of top items somewhere a human will see them.
type Notifier interface {
	Name() string
	Notify(ctx context.Context, items []*db.Item) error
}

// FormatItem renders one item as three lines: source and score, title, url.
func FormatItem(it *db.Item) string {
	return fmt.Sprintf("[%s] score=%.2f\n%s\n%s", it.Source, it.ScoreValue(), strings.TrimSpace(it.Title), it.URL)
}

func formatBatch(items []*db.Item, limit int) string {
	parts := make([]string, 0, len(items))
	for _, it := range items {
		parts = append(parts, FormatItem(it))
	}
	return truncateRunes(strings.Join(parts, "\n\n"), limit)
}

func truncateRunes(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}

var newTelegram = func(token string, chatID int64) (Notifier, error) {
	return NewTelegramNotifier(token, chatID)
}

// Select resolves a channel name to a notifier. An empty channel uses
// cfg.Channel. auto prefers telegram, then discord, then stdout.
func Select(cfg config.AlertConfig, channel string, stdout io.Writer) (Notifier, error) {
	if channel == "" {
		channel = cfg.Channel
	}
	telegramReady := cfg.TelegramBotToken != "" && cfg.TelegramChatID != 0

	switch strings.ToLower(channel) {
	case ChannelStdout:
		return NewStdoutNotifier(stdout), nil
	case ChannelDiscord:
		if cfg.DiscordWebhookURL == "" {
			return nil, fmt.Errorf("%w: DISCORD_WEBHOOK_URL not set", ErrNotConfigured)
		}
		return NewDiscordNotifier(cfg.DiscordWebhookURL), nil
	case ChannelTelegram:
		if !telegramReady {
			return nil, fmt.Errorf("%w: TELEGRAM_BOT_TOKEN/TELEGRAM_CHAT_ID not set", ErrNotConfigured)
		}
		return newTelegram(cfg.TelegramBotToken, cfg.TelegramChatID)
	case ChannelAuto, "":
		switch {
		case telegramReady:
			return newTelegram(cfg.TelegramBotToken, cfg.TelegramChatID)
		case cfg.DiscordWebhookURL != "":
			return NewDiscordNotifier(cfg.DiscordWebhookURL), nil
		default:
			return NewStdoutNotifier(stdout), nil
		}
	default:
		return nil, fmt.Errorf("unknown alert channel %q", channel)
	}
}

// ItemLister is the query side of the store.
type ItemLister interface {
	List(ctx context.Context, f db.ListFilter) ([]*db.Item, error)
}

// Top returns up to topK scored items at or above minScore, best first.
func Top(ctx context.Context, store ItemLister, minScore float64, topK int) ([]*db.Item, error) {
	if topK <= 0 {
		return nil, nil
	}
	return store.List(ctx, db.ListFilter{MinScore: &minScore, Limit: topK})
}
