package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/user/signalhub/internal/db"
	"github.com/user/signalhub/internal/indexer"
)

var (
	addTitle   string
	addText    string
	addSource  string
	addNoFetch bool
)

var addCmd = &cobra.Command{
	Use:   "add <url>",
	Short: "Add a manual record",
	Long:  "Run one URL through the pipeline as a manual record. The page title is fetched when --title is not given.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		url := args[0]

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

		raw := db.RawRecord{"url": url, "title": addTitle, "text": addText}
		if addTitle == "" && !addNoFetch {
			if page, err := indexer.NewScraper().Scrape(ctx, url); err != nil {
				a.logger.Warn("could not fetch page title", "url", url, "error", err)
			} else {
				raw["title"] = page.Title
				if addText == "" {
					raw["text"] = truncate(page.Text, 2000)
				}
			}
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

		report, err := p.Run(ctx, []indexer.Record{{Source: addSource, Raw: raw}}, keyword)
		if err != nil {
			return fmt.Errorf("failed to add URL: %w", err)
		}
		if len(report.Outcomes) == 0 {
			return fmt.Errorf("failed to add URL: nothing processed")
		}
		o := report.Outcomes[0]
		if o.Status != indexer.StatusStored {
			return fmt.Errorf("failed to add URL: %s", o.Reason)
		}

		verb := "Updated"
		if o.Inserted {
			verb = "Added"
		}
		fmt.Fprintf(os.Stdout, "%s: %s\nID: %s\nScore: %.3f\n", verb, url, o.ItemID, o.Score)
		return nil
	},
}

func init() {
	addCmd.Flags().StringVarP(&addTitle, "title", "t", "", "Title (default: fetched from the page)")
	addCmd.Flags().StringVar(&addText, "text", "", "Body text")
	addCmd.Flags().StringVar(&addSource, "source", db.SourceManual, "Source tag")
	addCmd.Flags().BoolVar(&addNoFetch, "no-fetch", false, "Do not fetch the page")
	rootCmd.AddCommand(addCmd)
}
