package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/user/signalhub/internal/db"
	"github.com/user/signalhub/internal/export"
)

var (
	exportOutDir   string
	exportFormat   string
	exportMinScore float64
	exportLimit    int
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write report files of the top items",
	Long:  "Write the top items as JSON, CSV and/or YAML files named signals_<timestamp>.",
	RunE: func(cmd *cobra.Command, args []string) error {
		formats, err := export.ParseFormats(exportFormat)
		if err != nil {
			return err
		}

		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		items, err := a.store.List(cmd.Context(), db.ListFilter{MinScore: &exportMinScore, Limit: exportLimit})
		if err != nil {
			return err
		}

		dir := exportOutDir
		if dir == "" {
			dir = a.cfg.ExportDir()
		}
		paths, err := export.ToDir(dir, formats, items, time.Now())
		if err != nil {
			return err
		}
		for _, p := range paths {
			fmt.Println(p)
		}
		fmt.Printf("Exported %d item(s).\n", len(items))
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportOutDir, "out-dir", "o", "", "Output directory (default: <data-dir>/exports)")
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "json,csv", "Formats: json, csv, yaml or all")
	exportCmd.Flags().Float64Var(&exportMinScore, "min-score", 0, "Only items scoring at least this much")
	exportCmd.Flags().IntVarP(&exportLimit, "limit", "n", 100, "Maximum items (0 = no limit)")
	rootCmd.AddCommand(exportCmd)
}
