package cmd

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/user/signalhub/internal/db"
)

var showJSON bool

var showCmd = &cobra.Command{
	Use:   "show <id-or-url>",
	Short: "Show one item with its score breakdown",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		ctx := cmd.Context()
		it, err := a.store.Lookup(ctx, args[0])
		if errors.Is(err, db.ErrNotFound) {
			return fmt.Errorf("no item matches %q", args[0])
		}
		if err != nil {
			return err
		}
		history, err := a.store.ScoreHistory(ctx, it.ID)
		if err != nil {
			return err
		}

		if showJSON {
			return outputJSON(os.Stdout, struct {
				*db.Item
				History []db.ScoreEvent `json:"score_history,omitempty"`
			}{it, history})
		}

		fmt.Printf("%s %s\n%s\n\n", sourceIcon(it.Source), it.Title, it.URL)
		fmt.Printf("ID:        %s\n", it.ID)
		fmt.Printf("Score:     %s\n", formatScore(it))
		if it.PublishedAt != nil {
			fmt.Printf("Published: %s\n", it.PublishedAt.Format(time.RFC3339))
		}
		fmt.Printf("Created:   %s\n", it.CreatedAt.Format(time.RFC3339))
		fmt.Printf("Fetched:   %s\n", it.FetchedAt.Format(time.RFC3339))
		if it.Text != "" {
			fmt.Printf("\n%s\n", truncate(it.Text, 400))
		}

		if len(it.ScoreBreakdown) > 0 {
			fmt.Println()
			fmt.Println(renderTable([]string{"Component", "Value"}, breakdownRows(it.ScoreBreakdown), []columnAlignment{alignLeft, alignRight}))
		}

		if m := it.Metrics.ToMap(); len(m) > 0 {
			keys := make([]string, 0, len(m))
			for k := range m {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			fmt.Println("\nMetrics:")
			for _, k := range keys {
				fmt.Printf("  %-16s %s\n", k, truncate(fmt.Sprint(m[k]), 100))
			}
		}

		if len(history) > 0 {
			rows := make([][]string, 0, len(history))
			for _, ev := range history {
				rows = append(rows, []string{ev.ScoredAt.Format(time.RFC3339), fmt.Sprintf("%.3f", ev.Score)})
			}
			fmt.Println()
			fmt.Println(renderTable([]string{"Scored at", "Score"}, rows, []columnAlignment{alignLeft, alignRight}))
		}
		return nil
	},
}

// breakdownRows lists sub-scores first, then the weights that combined them.
func breakdownRows(b db.Breakdown) [][]string {
	keys := make([]string, 0, len(b))
	for k := range b {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		wi := strings.HasPrefix(keys[i], db.KeyWeightPrefix)
		wj := strings.HasPrefix(keys[j], db.KeyWeightPrefix)
		if wi != wj {
			return !wi
		}
		return keys[i] < keys[j]
	})
	rows := make([][]string, 0, len(keys))
	for _, k := range keys {
		rows = append(rows, []string{k, fmt.Sprintf("%.4f", b[k])})
	}
	return rows
}

func init() {
	showCmd.Flags().BoolVarP(&showJSON, "json", "j", false, "Output as JSON")
	rootCmd.AddCommand(showCmd)
}
