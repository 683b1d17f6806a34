package cmd

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/user/signalhub/internal/sources"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "Inspect source collectors",
}

var sourcesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List known sources and whether they are enabled",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		rows := [][]string{}
		for _, name := range sources.Names() {
			src, err := sources.New(name, cfg.Sources)
			if err != nil {
				return err
			}
			enabled := slices.Contains(cfg.Sources.Enabled, name)
			rows = append(rows, []string{name, yesNo(enabled), yesNo(src.Available())})
		}
		fmt.Println(renderTable([]string{"Source", "Enabled", "Available"}, rows, nil))
		return nil
	},
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func init() {
	sourcesCmd.AddCommand(sourcesListCmd)
	rootCmd.AddCommand(sourcesCmd)
}
