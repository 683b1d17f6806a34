package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/user/signalhub/internal/indexer"
	"github.com/user/signalhub/internal/sources"
)

var (
	ingestSources   []string
	ingestKeyword   string
	ingestJSON      bool
	ingestPlaintext bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Fetch sources and run the pipeline",
	Long: "Advance the keyword rotation, collect records from the enabled sources, " +
		"then normalize, enrich, score and store each one.",
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

		report, err := runIngest(ctx, a, ingestSources, ingestKeyword)
		if report != nil {
			if ingestJSON {
				if jerr := outputJSON(os.Stdout, report); jerr != nil {
					return jerr
				}
			} else {
				printReport(os.Stdout, report, ingestPlaintext)
			}
		}
		return err
	},
}

// runIngest resolves the keyword, collects from sources and runs one batch.
// Source failures are logged; only pipeline setup and cancellation fail it.
func runIngest(ctx context.Context, a *app, names []string, keyword string) (*indexer.BatchReport, error) {
	p, err := a.pipeline(ctx, "")
	if err != nil {
		return nil, err
	}

	if keyword == "" {
		rot, err := a.rotation()
		if err != nil {
			return nil, err
		}
		if keyword, err = rot.Next(ctx); err != nil {
			return nil, fmt.Errorf("rotate keyword: %w", err)
		}
	}

	srcs, err := sources.FromConfig(a.cfg.Sources, names)
	if err != nil {
		return nil, err
	}
	a.logger.Info("ingest starting", "keyword", keyword, "sources", len(srcs))

	records, err := sources.Collect(ctx, srcs, keyword, a.logger)
	if err != nil && errors.Is(err, context.Canceled) {
		return nil, err
	}
	return p.Run(ctx, records, keyword)
}

func printReport(w io.Writer, r *indexer.BatchReport, plaintext bool) {
	if useTable(plaintext) {
		rows := make([][]string, 0, len(r.Outcomes))
		for _, o := range r.Outcomes {
			detail := o.Reason
			if detail == "" {
				detail = o.EnrichError
			}
			score := ""
			if o.Status == indexer.StatusStored {
				score = fmt.Sprintf("%.3f", o.Score)
			}
			title := o.Title
			if title == "" {
				title = o.URL
			}
			rows = append(rows, []string{
				fmt.Sprintf("%d", o.Index+1),
				string(o.Status),
				score,
				sourceIcon(o.Source),
				truncate(title, 50),
				truncate(detail, 40),
			})
		}
		if len(rows) > 0 {
			fmt.Fprintln(w, renderTable(
				[]string{"#", "Status", "Score", "Src", "Title", "Detail"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignRight},
			))
		}
	} else {
		for _, o := range r.Outcomes {
			fmt.Fprintf(w, "%s\t%s\t%s\t%.3f\t%s\n", o.Status, o.Source, o.ItemID, o.Score, o.Reason)
		}
	}
	fmt.Fprintf(w, "Keyword %q: %d stored (%d new), %d skipped, %d errors\n",
		r.Keyword, r.Stored, r.Inserted, r.Skipped, r.Errored)
}

func init() {
	ingestCmd.Flags().StringSliceVarP(&ingestSources, "sources", "s", nil, "Sources to fetch (default: sources.enabled)")
	ingestCmd.Flags().StringVarP(&ingestKeyword, "keyword", "k", "", "Use this keyword instead of advancing the rotation")
	ingestCmd.Flags().BoolVarP(&ingestJSON, "json", "j", false, "Output the report as JSON")
	ingestCmd.Flags().BoolVarP(&ingestPlaintext, "plaintext", "p", false, "Output as plaintext")
	rootCmd.AddCommand(ingestCmd)
}
