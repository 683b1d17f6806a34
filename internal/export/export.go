package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/user/signalhub/internal/db"
)

// Supported formats.
const (
	FormatJSON = "json"
	FormatCSV  = "csv"
	FormatYAML = "yaml"
)

var csvHeader = []string{
	"item_id", "source", "score", "title", "url",
	"published_at", "created_at", "fetched_at", "tickers", "metrics_json",
}

// ParseFormats splits a comma list such as "json,csv". "all" selects every
// format; an empty list means json and csv.
func ParseFormats(list string) ([]string, error) {
	list = strings.TrimSpace(strings.ToLower(list))
	switch list {
	case "":
		return []string{FormatJSON, FormatCSV}, nil
	case "all":
		return []string{FormatJSON, FormatCSV, FormatYAML}, nil
	}

	var out []string
	seen := map[string]bool{}
	for _, f := range strings.Split(list, ",") {
		f = strings.TrimSpace(f)
		if f == "yml" {
			f = FormatYAML
		}
		switch f {
		case "":
			continue
		case FormatJSON, FormatCSV, FormatYAML:
			if !seen[f] {
				seen[f] = true
				out = append(out, f)
			}
		default:
			return nil, fmt.Errorf("unknown export format %q", f)
		}
	}
	return out, nil
}

// Write renders items in one format.
func Write(w io.Writer, format string, items []*db.Item) error {
	switch format {
	case FormatJSON:
		return WriteJSON(w, items)
	case FormatCSV:
		return WriteCSV(w, items)
	case FormatYAML:
		return WriteYAML(w, items)
	default:
		return fmt.Errorf("unknown export format %q", format)
	}
}

func WriteJSON(w io.Writer, items []*db.Item) error {
	if items == nil {
		items = []*db.Item{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(items)
}

func WriteYAML(w io.Writer, items []*db.Item) error {
	if items == nil {
		items = []*db.Item{}
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(items); err != nil {
		return err
	}
	return enc.Close()
}

// WriteCSV flattens each item into one row; metrics go in as JSON.
func WriteCSV(w io.Writer, items []*db.Item) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, it := range items {
		metrics, err := json.Marshal(it.Metrics)
		if err != nil {
			return fmt.Errorf("marshal metrics for %s: %w", it.ID, err)
		}
		score := ""
		if it.Score != nil {
			score = strconv.FormatFloat(*it.Score, 'f', 4, 64)
		}
		published := ""
		if it.PublishedAt != nil {
			published = it.PublishedAt.UTC().Format(time.RFC3339)
		}
		row := []string{
			it.ID,
			it.Source,
			score,
			it.Title,
			it.URL,
			published,
			it.CreatedAt.UTC().Format(time.RFC3339),
			it.FetchedAt.UTC().Format(time.RFC3339),
			strings.Join(it.Metrics.Tickers, " "),
			string(metrics),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ToDir writes one signals_<timestamp>.<ext> file per format into dir and
// returns the paths in format order.
func ToDir(dir string, formats []string, items []*db.Item, now time.Time) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	stamp := now.UTC().Format("20060102_150405")

	var paths []string
	for _, format := range formats {
		path := filepath.Join(dir, fmt.Sprintf("signals_%s.%s", stamp, format))
		if err := writeFile(path, format, items); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func writeFile(path, format string, items []*db.Item) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	if err := Write(f, format, items); err != nil {
		return fmt.Errorf("export %s: %w", format, err)
	}
	return nil
}
