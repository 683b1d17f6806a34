package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/user/signalhub/internal/db"
	"github.com/user/signalhub/internal/indexer"
)

var (
	enrichProvider  string
	enrichLimit     int
	enrichOverwrite bool
)

var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Enrich stored items and rescore them",
	Long: "Run an enrichment provider over stored items. Items already enriched are " +
		"skipped unless --overwrite is set.",
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

		p, err := a.pipeline(ctx, enrichProvider)
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

		items, err := a.store.List(ctx, db.ListFilter{})
		if err != nil {
			return err
		}

		processed, failed, enrichFailed := 0, 0, 0
		for _, it := range items {
			if enrichLimit > 0 && processed >= enrichLimit {
				break
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			if _, done := it.Metrics.Extra[indexer.MetricEnrichMethod]; done && !enrichOverwrite {
				continue
			}
			processed++
			fmt.Printf("[%d] %s\n", processed, truncate(it.Title, 70))
			_, enrichErr, err := p.Refresh(ctx, it, keyword, true)
			if err != nil {
				fmt.Printf("    Error: %v\n", err)
				failed++
				continue
			}
			if enrichErr != nil {
				fmt.Printf("    Enrichment failed: %v\n", enrichErr.Err)
				enrichFailed++
			}
			fmt.Printf("    score %.3f\n", it.ScoreValue())
		}

		if processed == 0 {
			fmt.Println("No items found needing enrichment.")
			return nil
		}
		fmt.Printf("\nEnriched %d item(s), %d enrichment failure(s), %d failed to store.\n",
			processed-failed-enrichFailed, enrichFailed, failed)
		return nil
	},
}

func init() {
	enrichCmd.Flags().StringVar(&enrichProvider, "provider", "", "Providers to run, e.g. regex,llm (default: enrich.provider)")
	enrichCmd.Flags().IntVarP(&enrichLimit, "limit", "l", 10, "Number of items to process (0 = all)")
	enrichCmd.Flags().BoolVar(&enrichOverwrite, "overwrite", false, "Re-enrich items that were already enriched")
	rootCmd.AddCommand(enrichCmd)
}
