package indexer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/liushuangls/go-anthropic/v2"
	"github.com/sashabaranov/go-openai"

	"github.com/user/signalhub/internal/config"
	"github.com/user/signalhub/internal/db"
)

// MetricLLMEnrich holds the provider's structured answer.
const MetricLLMEnrich = "llm_enrich"

const (
	maxPromptContent    = 10000
	tickerMinConfidence = 0.5
)

const enrichPrompt = `You are a financial/social trend analyst. Given a social post and its metadata, produce a compact structured enrichment.
Return ONLY valid JSON with these keys:
- context_summary: 1-2 sentences explaining the trend/context
- key_entities: list of brands/products/people/places (strings)
- related_tickers: list of objects {"ticker": string, "confidence": number 0..1, "reason": string}
- why_spreading: 1-2 sentences (mechanism: meme, controversy, utility, deal, etc.)
- risk_flags: object {"ad_sponsored": boolean, "misinformation_or_medical_claim": boolean, "notes": string}
If you are unsure, keep confidence low and keep fields empty rather than guessing.

INPUT:
%s`

type completeFunc func(ctx context.Context, prompt string) (string, error)

// LLMResult is the structured enrichment returned by the model.
type LLMResult struct {
	ContextSummary string          `json:"context_summary"`
	KeyEntities    []string        `json:"key_entities"`
	RelatedTickers []RelatedTicker `json:"related_tickers"`
	WhySpreading   string          `json:"why_spreading"`
	RiskFlags      map[string]any  `json:"risk_flags"`
}

type RelatedTicker struct {
	Ticker     string  `json:"ticker"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason"`
}

// LLMEnricher asks a chat model for context, entities and tickers.
type LLMEnricher struct {
	cfg      config.LLMConfig
	scraper  *Scraper
	complete completeFunc
}

// NewLLMEnricher builds the provider client. scraper may be nil; when set,
// items without text get their page text fetched first.
func NewLLMEnricher(cfg config.LLMConfig, scraper *Scraper) (*LLMEnricher, error) {
	e := &LLMEnricher{cfg: cfg, scraper: scraper}
	if e.cfg.MaxTokens <= 0 {
		e.cfg.MaxTokens = 700
	}

	switch cfg.Provider {
	case "anthropic":
		apiKey := os.Getenv("ANTHROPIC_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY not set")
		}
		e.complete = e.anthropicCompleter(anthropic.NewClient(apiKey))
	case "openai", "openrouter":
		var apiKey, baseURL string
		if cfg.Provider == "openrouter" {
			apiKey = os.Getenv("OPENROUTER_API_KEY")
			baseURL = cfg.BaseURL
			if baseURL == "" {
				baseURL = "https://openrouter.ai/api/v1"
			}
		} else {
			apiKey = os.Getenv("OPENAI_API_KEY")
			baseURL = cfg.BaseURL
		}
		if apiKey == "" {
			return nil, fmt.Errorf("API key not set for provider %s", cfg.Provider)
		}
		clientConfig := openai.DefaultConfig(apiKey)
		if baseURL != "" {
			clientConfig.BaseURL = baseURL
		}
		e.complete = e.openAICompleter(openai.NewClientWithConfig(clientConfig))
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}

	return e, nil
}

func (e *LLMEnricher) Name() string { return "llm" }

func (e *LLMEnricher) Enrich(ctx context.Context, it db.Item) (db.Item, error) {
	orig := it
	fail := func(err error) (db.Item, error) {
		return orig, &EnrichmentError{Provider: e.Name(), ItemID: it.ID, Err: err}
	}

	text := it.Text
	if text == "" && e.scraper != nil && strings.HasPrefix(it.URL, "http") {
		if page, err := e.scraper.Scrape(ctx, it.URL); err == nil {
			text = page.Text
		}
	}

	input, err := json.Marshal(promptInput(it, text))
	if err != nil {
		return fail(err)
	}
	content := truncateBytes(string(input), maxPromptContent)

	response, err := e.complete(ctx, fmt.Sprintf(enrichPrompt, content))
	if err != nil {
		return fail(err)
	}
	result, err := parseLLMResult(response)
	if err != nil {
		return fail(err)
	}

	if err := applyLLMResult(&it.Metrics, result); err != nil {
		return fail(err)
	}
	it.Metrics.Set(MetricEnrichMethod, "llm")
	it.Metrics.Set("enrich_model", e.cfg.Model)
	return it, nil
}

func promptInput(it db.Item, text string) map[string]any {
	in := map[string]any{
		"source": it.Source,
		"url":    it.URL,
		"title":  it.Title,
		"text":   text,
	}
	for _, key := range []string{"creator", "hashtags", "sound_title", "sound_artist", db.MetricKeyword} {
		if v, ok := it.Metrics.Get(key); ok {
			in[key] = v
		}
	}
	if vision, ok := it.Metrics.Extra[MetricVision].(map[string]any); ok {
		if ocr, ok := vision["ocr_text"]; ok {
			in["ocr"] = ocr
		}
	}
	return in
}

var jsonObjectRe = regexp.MustCompile(`\{[\s\S]*\}`)

// parseLLMResult accepts a bare JSON object or one embedded in prose.
func parseLLMResult(response string) (*LLMResult, error) {
	response = strings.TrimSpace(response)
	var result LLMResult
	if err := json.Unmarshal([]byte(response), &result); err == nil {
		return &result, nil
	}
	match := jsonObjectRe.FindString(response)
	if match == "" {
		return nil, errors.New("no JSON object in model response")
	}
	if err := json.Unmarshal([]byte(match), &result); err != nil {
		return nil, fmt.Errorf("decode model response: %w", err)
	}
	return &result, nil
}

// truncateBytes cuts s to at most n bytes without splitting a rune.
func truncateBytes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func applyLLMResult(m *db.Metrics, r *LLMResult) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode model result: %w", err)
	}
	var sub map[string]any
	if err := json.Unmarshal(data, &sub); err != nil {
		return fmt.Errorf("decode model result: %w", err)
	}
	m.Set(MetricLLMEnrich, sub)

	if r.ContextSummary != "" {
		m.Set(MetricContextSummary, r.ContextSummary)
	}
	if r.WhySpreading != "" {
		m.Set(MetricWhySpreading, r.WhySpreading)
	}

	var confident []string
	for _, t := range r.RelatedTickers {
		ticker := strings.ToUpper(strings.TrimPrefix(strings.TrimSpace(t.Ticker), "$"))
		if ticker != "" && t.Confidence >= tickerMinConfidence {
			confident = append(confident, ticker)
		}
	}
	if len(confident) > 0 {
		m.Tickers = mergeSorted(m.Tickers, confident)
	}
	return nil
}

func (e *LLMEnricher) anthropicCompleter(client *anthropic.Client) completeFunc {
	return func(ctx context.Context, prompt string) (string, error) {
		resp, err := client.CreateMessages(ctx, anthropic.MessagesRequest{
			Model:     anthropic.Model(e.cfg.Model),
			MaxTokens: e.cfg.MaxTokens,
			Messages: []anthropic.Message{
				{
					Role:    anthropic.RoleUser,
					Content: []anthropic.MessageContent{{Type: "text", Text: &prompt}},
				},
			},
		})
		if err != nil {
			return "", err
		}
		if len(resp.Content) == 0 {
			return "", fmt.Errorf("empty response from Anthropic")
		}
		return resp.Content[0].GetText(), nil
	}
}

func (e *LLMEnricher) openAICompleter(client *openai.Client) completeFunc {
	return func(ctx context.Context, prompt string) (string, error) {
		req := openai.ChatCompletionRequest{
			Model:       e.cfg.Model,
			MaxTokens:   e.cfg.MaxTokens,
			Temperature: 0.2,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleUser, Content: prompt},
			},
		}
		if e.cfg.Provider == "openai" {
			req.ResponseFormat = &openai.ChatCompletionResponseFormat{
				Type: openai.ChatCompletionResponseFormatTypeJSONObject,
			}
		}

		resp, err := client.CreateChatCompletion(ctx, req)
		if err != nil {
			return "", err
		}
		if len(resp.Choices) == 0 {
			return "", fmt.Errorf("empty response from OpenAI")
		}
		return resp.Choices[0].Message.Content, nil
	}
}
