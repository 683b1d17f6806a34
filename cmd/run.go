package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/user/signalhub/internal/indexer"
)

var (
	runSources  []string
	runNoAlert  bool
	runInterval time.Duration
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Ingest and alert, once or on a schedule",
}

var runOnceCmd = &cobra.Command{
	Use:   "once",
	Short: "Ingest, then alert on the best new items",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, stop := signalContext()
		defer stop()

		report, err := runCycle(ctx, a)
		if report != nil {
			printReport(os.Stdout, report, true)
		}
		return err
	},
}

var runDaemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run ingest and alert cycles until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		if runInterval < time.Minute {
			return fmt.Errorf("interval must be at least 1m, got %s", runInterval)
		}

		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, stop := signalContext()
		defer stop()

		a.logger.Info("daemon started", "interval", runInterval)
		ticker := time.NewTicker(runInterval)
		defer ticker.Stop()

		for {
			report, err := runCycle(ctx, a)
			switch {
			case errors.Is(err, indexer.ErrLocked):
				a.logger.Warn("previous run still in progress, skipping cycle")
			case errors.Is(err, context.Canceled):
				a.logger.Info("daemon stopped")
				return nil
			case err != nil:
				a.logger.Error("cycle failed", "error", err)
			default:
				a.logger.Info("cycle finished", "stored", report.Stored, "skipped", report.Skipped, "errored", report.Errored)
			}

			select {
			case <-ctx.Done():
				a.logger.Info("daemon stopped")
				return nil
			case <-ticker.C:
			}
		}
	},
}

// runCycle ingests under the run lock, then alerts on what this run stored.
func runCycle(ctx context.Context, a *app) (*indexer.BatchReport, error) {
	lock, err := a.lock()
	if err != nil {
		return nil, err
	}
	defer lock.Release()

	report, err := runIngest(ctx, a, runSources, "")
	if err != nil || runNoAlert {
		return report, err
	}

	items, err := a.store.ListSince(ctx, report.StartedAt, a.cfg.Alert.MinScore, a.cfg.Alert.TopK)
	if err != nil {
		return report, err
	}
	return report, sendAlert(ctx, a, "", items)
}

func init() {
	runCmd.PersistentFlags().StringSliceVarP(&runSources, "sources", "s", nil, "Sources to fetch (default: sources.enabled)")
	runCmd.PersistentFlags().BoolVar(&runNoAlert, "no-alert", false, "Skip the alert step")
	runDaemonCmd.Flags().DurationVarP(&runInterval, "interval", "i", 30*time.Minute, "Time between cycles")
	runCmd.AddCommand(runOnceCmd, runDaemonCmd)
	rootCmd.AddCommand(runCmd)
}
