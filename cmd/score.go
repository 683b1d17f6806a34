package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/user/signalhub/internal/db"
)

var (
	scoreLimit   int
	scoreAll     bool
	scoreKeyword string
)

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Recompute scores for stored items",
	Long: "Score unscored items, or every item with --all. Only the score and its " +
		"breakdown are written; metrics and timestamps are left alone.",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		lock, err := a.lock()
		if err != nil {
			return err
		}
		defer lock.Release()

		ctx, stop := signalContext()
		defer stop()

		var items []*db.Item
		if scoreAll {
			items, err = a.store.List(ctx, db.ListFilter{})
		} else {
			items, err = a.store.ListUnscored(ctx, scoreLimit)
		}
		if err != nil {
			return err
		}
		if len(items) == 0 {
			fmt.Println("No items to score.")
			return nil
		}

		keyword := scoreKeyword
		if keyword == "" {
			rot, err := a.rotation()
			if err != nil {
				return err
			}
			if keyword, err = rot.Current(ctx); err != nil {
				return err
			}
		}

		p, err := a.pipeline(ctx, "none")
		if err != nil {
			return err
		}

		scored := 0
		for _, it := range items {
			if err := ctx.Err(); err != nil {
				return err
			}
			p.Score(it, keyword)
			if err := a.store.UpdateScore(ctx, it.ID, it.ScoreValue(), it.ScoreBreakdown); err != nil {
				a.logger.Error("update score failed", "item_id", it.ID, "error", err)
				continue
			}
			scored++
		}
		fmt.Printf("Scored %d of %d item(s).\n", scored, len(items))
		return nil
	},
}

func init() {
	scoreCmd.Flags().IntVarP(&scoreLimit, "limit", "l", 100, "Number of unscored items to process")
	scoreCmd.Flags().BoolVarP(&scoreAll, "all", "a", false, "Rescore every item (overrides --limit)")
	scoreCmd.Flags().StringVarP(&scoreKeyword, "keyword", "k", "", "Keyword for matching (default: current rotation keyword)")
	rootCmd.AddCommand(scoreCmd)
}
