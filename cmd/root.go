package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/user/signalhub/internal/config"
	"github.com/user/signalhub/internal/db"
	"github.com/user/signalhub/internal/indexer"
	"github.com/user/signalhub/internal/logging"
	"github.com/user/signalhub/internal/tui"
)

var (
	configFile string
	envFile    string
	dataDir    string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "signalhub",
	Short: "Social trend signal scanner",
	Long: "Collects posts from social and news sources, enriches them with brands and tickers, " +
		"scores them for investability and surfaces the strongest signals.",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return tui.Run(cfg)
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file (default: <data-dir>/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "Env file with credentials (default: ./.env)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "Data directory (default: ~/.signalhub)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
}

func loadConfig() (*config.Config, error) {
	if dataDir != "" {
		os.Setenv("SIGNALHUB_DATA_DIR", dataDir)
	}
	cfg, err := config.Load(config.LoadOptions{ConfigFile: configFile, EnvFile: envFile})
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// app bundles what most commands need: config, logger and an open store.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	store  *db.Store
}

func openApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	level := cfg.Log.Level
	if logLevel != "" {
		level = logLevel
	}
	logger, err := logging.New(level, cfg.Log.Format, os.Stderr)
	if err != nil {
		return nil, err
	}

	store, err := db.NewStore(cfg.DataDir, db.WithScoreHistory(cfg.Store.ScoreHistory))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return &app{cfg: cfg, logger: logger, store: store}, nil
}

func (a *app) Close() {
	a.store.Close()
}

// pipeline builds the ingest pipeline. An empty provider uses enrich.provider.
func (a *app) pipeline(ctx context.Context, provider string) (*indexer.Pipeline, error) {
	enricher, err := indexer.NewEnricher(ctx, a.cfg, provider, a.logger)
	if err != nil {
		return nil, err
	}
	return indexer.NewPipeline(indexer.Options{
		Store:         a.store,
		Enricher:      enricher,
		Weights:       a.cfg.Scoring.Weights,
		Keywords:      a.cfg.Scoring.Keywords,
		EnrichTimeout: a.cfg.Enrich.Timeout,
		Logger:        a.logger,
	})
}

func (a *app) rotation() (*indexer.Rotation, error) {
	kws, err := indexer.LoadKeywords(a.cfg.Keywords)
	if err != nil {
		return nil, err
	}
	return indexer.NewRotation(kws, a.store), nil
}

// lock takes the run lock shared by every command that writes items.
func (a *app) lock() (*indexer.RunLock, error) {
	return indexer.AcquireRunLock(a.cfg.LockPath())
}

// signalContext is cancelled on SIGINT/SIGTERM so batches stop between records.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
