package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/user/signalhub/internal/config"
	"github.com/user/signalhub/internal/db"
)

func newTestModel(t *testing.T) model {
	t.Helper()
	m := initialModel(&config.Config{DataDir: t.TempDir()})

	hn := &db.Item{ID: "1", Source: db.SourceHN, Title: "Show HN: restock tracker", URL: "https://a"}
	hn.SetScore(0.82, db.Breakdown{db.KeyEngagement: 0.9})
	tiktok := &db.Item{ID: "2", Source: db.SourceTikTok, Title: "Abercrombie haul", URL: "https://b"}
	tiktok.SetScore(0.41, nil)
	tiktok.Metrics.Tickers = []string{"ANF"}
	unscored := &db.Item{ID: "3", Source: db.SourceRSS, Title: "Unscored feed entry", URL: "https://c"}

	newModel, _ := m.Update(loadMsg{items: []*db.Item{hn, tiktok, unscored}})
	return newModel.(model)
}

func press(t *testing.T, m model, key string) model {
	t.Helper()
	var msg tea.KeyMsg
	switch key {
	case "esc":
		msg = tea.KeyMsg{Type: tea.KeyEscape}
	case "enter":
		msg = tea.KeyMsg{Type: tea.KeyEnter}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
	}
	newModel, _ := m.Update(msg)
	return newModel.(model)
}

func TestInitialModel_ListFocused(t *testing.T) {
	m := initialModel(&config.Config{DataDir: t.TempDir()})

	if m.filtering {
		t.Error("expected filtering=false on init, got true")
	}
	if m.filterInput.Focused() {
		t.Error("expected filter input blurred on init, got focused")
	}
	for _, f := range sourceFilters {
		if !m.sources[f.key] {
			t.Errorf("source %s should start enabled", f.key)
		}
	}
}

func TestUpdate_SlashFocusesFilter(t *testing.T) {
	m := press(t, newTestModel(t), "/")

	if !m.filtering || !m.filterInput.Focused() {
		t.Error("expected filter input focused after pressing /")
	}

	m = press(t, m, "esc")
	if m.filtering || m.filterInput.Focused() {
		t.Error("expected filter input blurred after pressing Esc")
	}
}

func TestUpdate_QQuitsOnlyFromList(t *testing.T) {
	m := newTestModel(t)

	if _, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}}); cmd == nil {
		t.Error("expected quit command when pressing q from list mode")
	}

	m = press(t, m, "/")
	m = press(t, m, "q")
	if !m.filtering || m.filterInput.Value() != "q" {
		t.Errorf("q should be typed into the filter, got %q", m.filterInput.Value())
	}
}

func TestTextFilter(t *testing.T) {
	m := newTestModel(t)
	m = press(t, m, "/")
	for _, r := range "anf" {
		m = press(t, m, string(r))
	}

	items := m.list.Items()
	if len(items) != 1 || items[0].(signalItem).item.ID != "2" {
		t.Errorf("filter by ticker: got %d items", len(items))
	}
}

func TestSourceToggle(t *testing.T) {
	m := newTestModel(t)
	if n := len(m.list.Items()); n != 3 {
		t.Fatalf("expected 3 items, got %d", n)
	}

	// 3 toggles hn.
	m = press(t, m, "3")
	if m.sources[db.SourceHN] {
		t.Error("hn should be disabled")
	}
	if n := len(m.list.Items()); n != 2 {
		t.Errorf("expected 2 items after hiding hn, got %d", n)
	}
	m = press(t, m, "3")
	if n := len(m.list.Items()); n != 3 {
		t.Errorf("expected 3 items after re-enabling hn, got %d", n)
	}
}

func TestMinScoreFloor(t *testing.T) {
	m := newTestModel(t)
	for i := 0; i < 5; i++ {
		m = press(t, m, "+")
	}
	items := m.list.Items()
	if len(items) != 1 || items[0].(signalItem).item.ID != "1" {
		t.Errorf("min score 0.5 should keep only the hn item, got %d", len(items))
	}

	for i := 0; i < 10; i++ {
		m = press(t, m, "-")
	}
	if m.minScore != 0 {
		t.Errorf("minScore should clamp at 0, got %v", m.minScore)
	}
}

func TestEnterTogglesDetail(t *testing.T) {
	m := newTestModel(t)
	m = press(t, m, "enter")
	if !m.detail {
		t.Fatal("expected detail view after Enter")
	}
	if view := m.View(); !containsAll(view, "Show HN: restock tracker", "engagement", "0.82") {
		t.Errorf("detail view missing content:\n%s", view)
	}
	m = press(t, m, "esc")
	if m.detail {
		t.Error("Esc should close the detail view")
	}
}

func TestSignalItemRendering(t *testing.T) {
	it := &db.Item{Source: db.SourceX, Title: "Tweet", URL: "https://x.com/1"}
	s := signalItem{item: it}
	if s.Title() != "[X]   --  Tweet" {
		t.Errorf("title = %q", s.Title())
	}
	if s.Description() != "https://x.com/1" {
		t.Errorf("description = %q", s.Description())
	}
	it.Metrics.Set("context_summary", "People want the cups back.")
	if s.Description() != "People want the cups back." {
		t.Errorf("description = %q", s.Description())
	}
}

func containsAll(s string, subs ...string) bool {
	for _, sub := range subs {
		if !strings.Contains(s, sub) {
			return false
		}
	}
	return true
}
