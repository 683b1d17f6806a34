package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/user/signalhub/internal/db"
)

var (
	listMinScore  float64
	listSource    string
	listLimit     int
	listJSON      bool
	listPlaintext bool
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored items by score",
	Long:  "List items best first. Unscored items sort last.",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		filter := db.ListFilter{Source: listSource, Limit: listLimit}
		if cmd.Flags().Changed("min-score") {
			filter.MinScore = &listMinScore
		}

		items, err := a.store.List(cmd.Context(), filter)
		if err != nil {
			return err
		}

		if listJSON {
			if items == nil {
				items = []*db.Item{}
			}
			return outputJSON(os.Stdout, items)
		}
		printItems(os.Stdout, items, listPlaintext)
		return nil
	},
}

func init() {
	listCmd.Flags().Float64Var(&listMinScore, "min-score", 0, "Only items scoring at least this much")
	listCmd.Flags().StringVar(&listSource, "source", "", "Only items from this source")
	listCmd.Flags().IntVarP(&listLimit, "limit", "n", 20, "Maximum items (0 = no limit)")
	listCmd.Flags().BoolVarP(&listJSON, "json", "j", false, "Output as JSON")
	listCmd.Flags().BoolVarP(&listPlaintext, "plaintext", "p", false, "Output as plaintext")
	rootCmd.AddCommand(listCmd)
}
