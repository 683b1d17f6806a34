package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	runsLimit int
	runsJSON  bool
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Show recent ingest runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		runs, err := a.store.Runs(cmd.Context(), runsLimit)
		if err != nil {
			return err
		}
		if runsJSON {
			return outputJSON(os.Stdout, runs)
		}
		if len(runs) == 0 {
			fmt.Println("No runs recorded.")
			return nil
		}

		rows := make([][]string, 0, len(runs))
		for _, r := range runs {
			rows = append(rows, []string{
				r.StartedAt.Local().Format(time.DateTime),
				r.Keyword,
				fmt.Sprintf("%d", r.Stored),
				fmt.Sprintf("%d", r.Skipped),
				fmt.Sprintf("%d", r.Errored),
				r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond).String(),
			})
		}
		fmt.Println(renderTable(
			[]string{"Started", "Keyword", "Stored", "Skipped", "Errors", "Took"},
			rows,
			[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight},
		))
		return nil
	},
}

func init() {
	runsCmd.Flags().IntVarP(&runsLimit, "limit", "n", 10, "Number of runs")
	runsCmd.Flags().BoolVarP(&runsJSON, "json", "j", false, "Output as JSON")
	rootCmd.AddCommand(runsCmd)
}
