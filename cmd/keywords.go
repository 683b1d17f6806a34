package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var keywordsCmd = &cobra.Command{
	Use:   "keywords",
	Short: "Inspect the keyword rotation",
}

var keywordsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List rotation keywords, marking the current one",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		rot, err := a.rotation()
		if err != nil {
			return err
		}
		current, err := rot.Current(cmd.Context())
		if err != nil {
			return err
		}

		rows := make([][]string, 0, len(rot.Keywords()))
		for i, kw := range rot.Keywords() {
			mark := ""
			if kw == current {
				mark = "*"
			}
			rows = append(rows, []string{fmt.Sprintf("%d", i+1), kw, mark})
		}
		if len(rows) == 0 {
			fmt.Println("No keywords configured.")
			return nil
		}
		fmt.Println(renderTable([]string{"#", "Keyword", "Current"}, rows, []columnAlignment{alignRight}))
		return nil
	},
}

var keywordsCurrentCmd = &cobra.Command{
	Use:   "current",
	Short: "Print the keyword of the latest run",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		rot, err := a.rotation()
		if err != nil {
			return err
		}
		kw, err := rot.Current(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Println(kw)
		return nil
	},
}

var keywordsNextCmd = &cobra.Command{
	Use:   "next",
	Short: "Advance the rotation and print the new keyword",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		rot, err := a.rotation()
		if err != nil {
			return err
		}
		kw, err := rot.Next(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Println(kw)
		return nil
	},
}

func init() {
	keywordsCmd.AddCommand(keywordsListCmd, keywordsCurrentCmd, keywordsNextCmd)
	rootCmd.AddCommand(keywordsCmd)
}
