package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/user/signalhub/internal/db"
	"github.com/user/signalhub/internal/logging"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i := 0; i < columns; i++ {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := 0; i < columns; i++ {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	columnConfigs := make([]table.ColumnConfig, 0, columns)
	for i := 0; i < columns; i++ {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		columnConfigs = append(columnConfigs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(columnConfigs)

	return tw.Render()
}

func outputJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// useTable reports whether stdout gets a table rather than tab-separated rows.
func useTable(plaintext bool) bool {
	return !plaintext && logging.IsTerminal(os.Stdout)
}

func sourceIcon(source string) string {
	switch source {
	case db.SourceTikTok:
		return "[T]"
	case db.SourceX:
		return "[X]"
	case db.SourceHN:
		return "[H]"
	case db.SourceRSS:
		return "[R]"
	case db.SourceReddit:
		return "[D]"
	case db.SourceManual:
		return "[M]"
	default:
		return "[?]"
	}
}

func formatScore(it *db.Item) string {
	if !it.Scored() {
		return "-"
	}
	return fmt.Sprintf("%.3f", it.ScoreValue())
}

func truncate(s string, maxLen int) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen-3]) + "..."
}

func itemRows(items []*db.Item) [][]string {
	rows := make([][]string, 0, len(items))
	for i, it := range items {
		rows = append(rows, []string{
			fmt.Sprintf("%d", i+1),
			formatScore(it),
			sourceIcon(it.Source),
			truncate(it.Title, 60),
			strings.Join(it.Metrics.Tickers, " "),
			it.ID[:min(12, len(it.ID))],
		})
	}
	return rows
}

func printItems(w io.Writer, items []*db.Item, plaintext bool) {
	if !useTable(plaintext) {
		for _, it := range items {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", formatScore(it), it.Source, it.ID, it.Title, it.URL)
		}
		return
	}
	if len(items) == 0 {
		fmt.Fprintln(w, "No items found.")
		return
	}
	fmt.Fprintln(w, renderTable(
		[]string{"#", "Score", "Src", "Title", "Tickers", "ID"},
		itemRows(items),
		[]columnAlignment{alignRight, alignRight},
	))
}
