package sources

import (
	"context"
	"errors"
	"testing"

	"github.com/user/signalhub/internal/config"
	"github.com/user/signalhub/internal/db"
)

func TestFromConfigAliases(t *testing.T) {
	cfg := config.SourcesConfig{Enabled: []string{"tiktok", "hn"}}

	srcs, err := FromConfig(cfg, []string{"tt", "twitter", "x", " ", "hn"})
	if err != nil {
		t.Fatalf("FromConfig: %v", err)
	}
	var names []string
	for _, s := range srcs {
		names = append(names, s.Name())
	}
	want := []string{db.SourceTikTok, db.SourceX, db.SourceHN}
	if len(names) != len(want) {
		t.Fatalf("names = %v", names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("names[%d] = %q, want %q", i, names[i], want[i])
		}
	}

	srcs, _ = FromConfig(cfg, nil)
	if len(srcs) != 2 {
		t.Errorf("enabled defaults: got %d sources", len(srcs))
	}

	_, err = FromConfig(cfg, []string{"myspace"})
	var unknown *UnknownSourceError
	if !errors.As(err, &unknown) || unknown.Name != "myspace" {
		t.Errorf("Expected UnknownSourceError, got %v", err)
	}
}

type stubSource struct {
	name      string
	available bool
	records   []db.RawRecord
	err       error
}

func (s *stubSource) Name() string    { return s.name }
func (s *stubSource) Available() bool { return s.available }
func (s *stubSource) Fetch(context.Context, string) ([]db.RawRecord, error) {
	return s.records, s.err
}

func TestCollect(t *testing.T) {
	srcs := []Source{
		&stubSource{name: "a", available: true, records: []db.RawRecord{{"title": "one"}}},
		&stubSource{name: "off", available: false, records: []db.RawRecord{{"title": "never"}}},
		&stubSource{name: "b", available: true, records: []db.RawRecord{{"title": "partial"}}, err: errors.New("feed down")},
	}

	records, err := Collect(context.Background(), srcs, "restock", nil)
	if err == nil {
		t.Error("Expected joined error from source b")
	}
	if len(records) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(records))
	}
	if records[0].Source != "a" || records[1].Source != "b" {
		t.Errorf("sources = %q, %q", records[0].Source, records[1].Source)
	}
}
