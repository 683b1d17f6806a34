package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/user/signalhub/internal/db"
)

var reprocessNoEnrich bool

var reprocessCmd = &cobra.Command{
	Use:   "reprocess <id-or-url>",
	Short: "Reprocess a single item",
	Long:  "Re-enrich and rescore one item by ID or URL.",
	Args:  cobra.ExactArgs(1),
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

		it, err := a.store.Lookup(ctx, args[0])
		if errors.Is(err, db.ErrNotFound) {
			return fmt.Errorf("no item matches %q", args[0])
		}
		if err != nil {
			return err
		}

		p, err := a.pipeline(ctx, "")
		if err != nil {
			return err
		}
		rot, err := a.rotation()
		if err != nil {
			return err
		}
		keyword, err := rot.Current(ctx)
		if err != nil {
			return err
		}

		_, enrichErr, err := p.Refresh(ctx, it, keyword, !reprocessNoEnrich)
		if err != nil {
			return fmt.Errorf("reprocess failed: %w", err)
		}

		if enrichErr != nil {
			fmt.Printf("Enrichment failed: %v\n", enrichErr.Err)
		}
		fmt.Printf("Reprocessed: %s\n", it.URL)
		fmt.Printf("Title: %s\n", it.Title)
		fmt.Printf("Score: %s\n", formatScore(it))
		return nil
	},
}

func init() {
	reprocessCmd.Flags().BoolVar(&reprocessNoEnrich, "no-enrich", false, "Only rescore")
	rootCmd.AddCommand(reprocessCmd)
}
