package indexer

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/user/signalhub/internal/db"
)

// LoadList reads one entry per line, skipping blanks and # comments.
// A missing file yields an empty list.
func LoadList(path string) ([]string, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return out, scanner.Err()
}

// InvestableMap maps lower-cased brand names to their investable path.
type InvestableMap map[string]db.InvestableRef

// Lookup finds a brand case-insensitively.
func (m InvestableMap) Lookup(brand string) (db.InvestableRef, bool) {
	ref, ok := m[strings.ToLower(strings.TrimSpace(brand))]
	return ref, ok
}

// LoadInvestableMap reads a CSV with a brand,ticker,status,parent,notes
// header. A missing file yields an empty map.
func LoadInvestableMap(path string) (InvestableMap, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return InvestableMap{}, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseInvestableMap(f)
}

func ParseInvestableMap(r io.Reader) (InvestableMap, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return InvestableMap{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("investable map header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, h := range header {
		col[strings.ToLower(strings.TrimSpace(h))] = i
	}
	if _, ok := col["brand"]; !ok {
		return nil, errors.New("investable map: missing brand column")
	}
	field := func(row []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	out := InvestableMap{}
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("investable map: %w", err)
		}
		brand := field(row, "brand")
		if brand == "" {
			continue
		}
		out[strings.ToLower(brand)] = db.InvestableRef{
			Brand:  brand,
			Ticker: field(row, "ticker"),
			Status: strings.ToLower(field(row, "status")),
			Parent: field(row, "parent"),
		}
	}
	return out, nil
}
