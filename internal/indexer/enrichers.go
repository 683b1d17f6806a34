package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/user/signalhub/internal/config"
)

// Enricher providers accepted in enrich.provider.
const (
	ProviderNone   = "none"
	ProviderRegex  = "regex"
	ProviderLLM    = "llm"
	ProviderVision = "vision"
)

// NewEnricher builds the configured strategy. provider is a comma-separated
// list run in order, e.g. "regex,vision,llm". Providers whose credentials are
// missing are skipped with a warning.
func NewEnricher(ctx context.Context, cfg *config.Config, provider string, logger *slog.Logger) (Enricher, error) {
	if provider == "" {
		provider = cfg.Enrich.Provider
	}

	var chain Chain
	for _, name := range strings.Split(provider, ",") {
		name = strings.ToLower(strings.TrimSpace(name))
		switch name {
		case "", ProviderNone:
			continue
		case ProviderRegex:
			e, err := newRegexFromConfig(cfg)
			if err != nil {
				return nil, err
			}
			chain = append(chain, e)
		case ProviderLLM:
			var scraper *Scraper
			if cfg.Enrich.ScrapePages {
				scraper = NewScraper()
			}
			e, err := NewLLMEnricher(cfg.LLM, scraper)
			if err != nil {
				logger.Warn("llm enrichment disabled", "error", err)
				continue
			}
			chain = append(chain, e)
		case ProviderVision:
			e, err := NewVisionEnricher(ctx, cfg.Vision.Region, cfg.Vision.MaxImages)
			if err != nil {
				logger.Warn("vision enrichment disabled", "error", err)
				continue
			}
			chain = append(chain, e)
		default:
			return nil, fmt.Errorf("unsupported enrich provider: %s", name)
		}
	}

	switch len(chain) {
	case 0:
		return NullEnricher{}, nil
	case 1:
		return chain[0], nil
	}
	return chain, nil
}

func newRegexFromConfig(cfg *config.Config) (*RegexEnricher, error) {
	brands, err := LoadList(cfg.Enrich.BrandsFile)
	if err != nil {
		return nil, fmt.Errorf("load brands: %w", err)
	}
	brands = append(brands, cfg.Enrich.Brands...)

	investable, err := LoadInvestableMap(cfg.Enrich.InvestableFile)
	if err != nil {
		return nil, fmt.Errorf("load investable map: %w", err)
	}
	// Every mapped brand is also a brand to look for.
	for _, ref := range investable {
		brands = append(brands, ref.Brand)
	}
	return NewRegexEnricher(brands, investable), nil
}
