package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/user/signalhub/internal/alert"
	"github.com/user/signalhub/internal/db"
)

var (
	alertMinScore float64
	alertTopK     int
	alertChannel  string
)

var alertCmd = &cobra.Command{
	Use:   "alert",
	Short: "Send the top items to a notification channel",
	Long:  "Send the best items at or above the score floor to stdout, Telegram or Discord.",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		minScore := a.cfg.Alert.MinScore
		if cmd.Flags().Changed("min-score") {
			minScore = alertMinScore
		}
		topK := a.cfg.Alert.TopK
		if cmd.Flags().Changed("top-k") {
			topK = alertTopK
		}

		items, err := alert.Top(cmd.Context(), a.store, minScore, topK)
		if err != nil {
			return err
		}
		return sendAlert(cmd.Context(), a, alertChannel, items)
	},
}

func sendAlert(ctx context.Context, a *app, channel string, items []*db.Item) error {
	if len(items) == 0 {
		a.logger.Info("nothing to alert")
		return nil
	}
	n, err := alert.Select(a.cfg.Alert, channel, os.Stdout)
	if err != nil {
		return err
	}
	if err := n.Notify(ctx, items); err != nil {
		return fmt.Errorf("alert via %s: %w", n.Name(), err)
	}
	a.logger.Info("alert sent", "channel", n.Name(), "items", len(items))
	return nil
}

func init() {
	alertCmd.Flags().Float64Var(&alertMinScore, "min-score", 0, "Score floor (default: alert.min_score)")
	alertCmd.Flags().IntVarP(&alertTopK, "top-k", "k", 0, "Number of items (default: alert.top_k)")
	alertCmd.Flags().StringVarP(&alertChannel, "channel", "c", "", "auto, stdout, telegram or discord (default: alert.channel)")
	rootCmd.AddCommand(alertCmd)
}
