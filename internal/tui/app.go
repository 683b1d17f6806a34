package tui

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/text/cases"

	"github.com/user/signalhub/internal/config"
	"github.com/user/signalhub/internal/db"
	"github.com/user/signalhub/internal/indexer"
)

const (
	loadLimit     = 500
	minScoreStep  = 0.1
	summaryLength = 80
)

// sourceFilters are the toggles bound to keys 1-5, in key order.
var sourceFilters = []struct{ key, label string }{
	{db.SourceTikTok, "[T]"},
	{db.SourceX, "[X]"},
	{db.SourceHN, "[H]"},
	{db.SourceRSS, "[R]"},
	{db.SourceReddit, "[D]"},
}

type model struct {
	cfg         *config.Config
	store       *db.Store
	filterInput textinput.Model
	list        list.Model
	items       []*db.Item
	sources     map[string]bool // Source filter toggles
	minScore    float64
	width       int
	height      int
	filtering   bool
	detail      bool
	err         error
}

type signalItem struct {
	item *db.Item
}

func (s signalItem) Title() string {
	return fmt.Sprintf("%s %s %s", sourceIcon(s.item.Source), scoreLabel(s.item), s.item.Title)
}

func (s signalItem) Description() string {
	summary := s.item.Text
	if v, ok := s.item.Metrics.Extra[indexer.MetricContextSummary].(string); ok && v != "" {
		summary = v
	}
	if summary == "" {
		return s.item.URL
	}
	runes := []rune(summary)
	if len(runes) > summaryLength {
		return string(runes[:summaryLength]) + "..."
	}
	return summary
}

func (s signalItem) FilterValue() string {
	return s.item.Title + " " + s.item.Text + " " + strings.Join(s.item.Metrics.Tickers, " ")
}

func scoreLabel(it *db.Item) string {
	if !it.Scored() {
		return "  -- "
	}
	return fmt.Sprintf("%.2f", it.ScoreValue())
}

func sourceIcon(source string) string {
	for _, f := range sourceFilters {
		if f.key == source {
			return f.label
		}
	}
	if source == db.SourceManual {
		return "[M]"
	}
	return "[?]"
}

func initialModel(cfg *config.Config) model {
	ti := textinput.New()
	ti.Placeholder = "Filter signals..."
	ti.CharLimit = 256
	ti.Width = 50

	delegate := list.NewDefaultDelegate()
	l := list.New([]list.Item{}, delegate, 0, 0)
	l.Title = "SignalHub"
	l.SetShowStatusBar(true)
	l.SetFilteringEnabled(false)
	l.SetShowHelp(true)

	sources := make(map[string]bool, len(sourceFilters)+1)
	for _, f := range sourceFilters {
		sources[f.key] = true
	}
	sources[db.SourceManual] = true

	return model{
		cfg:         cfg,
		filterInput: ti,
		list:        l,
		sources:     sources,
	}
}

type initMsg struct {
	store *db.Store
	items []*db.Item
	err   error
}

type loadMsg struct {
	items []*db.Item
	err   error
}

func (m model) Init() tea.Cmd {
	return m.initStore
}

func (m model) initStore() tea.Msg {
	store, err := db.NewStore(m.cfg.DataDir, db.WithScoreHistory(m.cfg.Store.ScoreHistory))
	if err != nil {
		return initMsg{err: err}
	}
	items, err := store.List(context.Background(), db.ListFilter{Limit: loadLimit})
	return initMsg{store: store, items: items, err: err}
}

func (m model) reload() tea.Msg {
	if m.store == nil {
		return loadMsg{err: fmt.Errorf("store not initialized")}
	}
	items, err := m.store.List(context.Background(), db.ListFilter{Limit: loadLimit})
	return loadMsg{items: items, err: err}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.filtering {
			switch msg.String() {
			case "esc", "enter":
				m.filtering = false
				m.filterInput.Blur()
				m.refreshList()
				return m, nil
			}
			break
		}
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "esc":
			if m.detail {
				m.detail = false
				return m, nil
			}
		case "/":
			m.filtering = true
			m.detail = false
			m.filterInput.Focus()
			return m, textinput.Blink
		case "enter":
			if _, ok := m.list.SelectedItem().(signalItem); ok {
				m.detail = !m.detail
			}
			return m, nil
		case "j", "down":
			m.list.CursorDown()
			return m, nil
		case "k", "up":
			m.list.CursorUp()
			return m, nil
		case "g":
			m.list.Select(0)
			return m, nil
		case "G":
			if n := len(m.list.Items()); n > 0 {
				m.list.Select(n - 1)
			}
			return m, nil
		case "o":
			if item, ok := m.list.SelectedItem().(signalItem); ok {
				openBrowser(item.item.URL)
			}
			return m, nil
		case "r":
			return m, m.reload
		case "+", "=":
			m.minScore = min(1, m.minScore+minScoreStep)
			m.refreshList()
			return m, nil
		case "-":
			m.minScore = max(0, m.minScore-minScoreStep)
			m.refreshList()
			return m, nil
		case "1", "2", "3", "4", "5":
			f := sourceFilters[msg.String()[0]-'1']
			m.sources[f.key] = !m.sources[f.key]
			m.refreshList()
			return m, nil
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.list.SetSize(msg.Width, msg.Height-6)
		m.filterInput.Width = msg.Width - 40

	case initMsg:
		m.store = msg.store
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.items = msg.items
		m.refreshList()

	case loadMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.items = msg.items
		m.refreshList()
	}

	if m.filtering {
		var cmd tea.Cmd
		before := m.filterInput.Value()
		m.filterInput, cmd = m.filterInput.Update(msg)
		cmds = append(cmds, cmd)
		if m.filterInput.Value() != before {
			m.refreshList()
		}
	} else if !m.detail {
		var cmd tea.Cmd
		m.list, cmd = m.list.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

// visible applies the source toggles, score floor and text filter.
func (m model) visible() []*db.Item {
	fold := cases.Fold()
	query := fold.String(strings.TrimSpace(m.filterInput.Value()))

	out := make([]*db.Item, 0, len(m.items))
	for _, it := range m.items {
		if enabled, known := m.sources[it.Source]; known && !enabled {
			continue
		}
		if m.minScore > 0 && it.ScoreValue() < m.minScore {
			continue
		}
		if query != "" && !strings.Contains(fold.String(signalItem{item: it}.FilterValue()), query) {
			continue
		}
		out = append(out, it)
	}
	return out
}

func (m *model) refreshList() {
	visible := m.visible()
	items := make([]list.Item, 0, len(visible))
	for _, it := range visible {
		items = append(items, signalItem{item: it})
	}
	m.list.SetItems(items)
}

func (m model) View() string {
	if m.err != nil {
		return fmt.Sprintf("Error: %v\n\nPress q to quit.", m.err)
	}

	var b strings.Builder

	// Header with filter input, source toggles and score floor
	inputStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("62")).
		Padding(0, 1)

	activeFilter := lipgloss.NewStyle().
		Foreground(lipgloss.Color("86")).
		Bold(true)

	inactiveFilter := lipgloss.NewStyle().
		Foreground(lipgloss.Color("240"))

	filters := []string{}
	for _, f := range sourceFilters {
		if m.sources[f.key] {
			filters = append(filters, activeFilter.Render(f.label))
		} else {
			filters = append(filters, inactiveFilter.Render(f.label))
		}
	}
	filters = append(filters, inactiveFilter.Render(fmt.Sprintf("score>=%.1f", m.minScore)))

	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		inputStyle.Render(m.filterInput.View()), "  ", strings.Join(filters, " ")))
	b.WriteString("\n\n")

	if m.detail {
		if item, ok := m.list.SelectedItem().(signalItem); ok {
			b.WriteString(renderDetail(item.item))
		}
	} else {
		b.WriteString(m.list.View())
	}

	helpStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("240")).
		MarginTop(1)

	help := "[j/k]nav [g/G]top/end [/]filter [Enter]details [o]pen [r]eload [+/-]min score [1-5]sources [q]uit"
	b.WriteString(helpStyle.Render(help))

	return b.String()
}

// renderDetail shows the score breakdown and enrichment for one item.
func renderDetail(it *db.Item) string {
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	labelStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))

	var b strings.Builder
	b.WriteString(titleStyle.Render(it.Title) + "\n")
	b.WriteString(it.URL + "\n\n")
	fmt.Fprintf(&b, "%s %s   %s %s\n", labelStyle.Render("score"), scoreLabel(it), labelStyle.Render("source"), it.Source)

	if len(it.ScoreBreakdown) > 0 {
		keys := make([]string, 0, len(it.ScoreBreakdown))
		for k := range it.ScoreBreakdown {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "  %-18s %.4f\n", k, it.ScoreBreakdown[k])
		}
	}

	if len(it.Metrics.Tickers) > 0 {
		fmt.Fprintf(&b, "\n%s %s\n", labelStyle.Render("tickers"), strings.Join(it.Metrics.Tickers, ", "))
	}
	if len(it.Metrics.Brands) > 0 {
		fmt.Fprintf(&b, "%s %s\n", labelStyle.Render("brands"), strings.Join(it.Metrics.Brands, ", "))
	}
	for _, ref := range it.Metrics.Investable {
		fmt.Fprintf(&b, "%s %s %s (%s)\n", labelStyle.Render("investable"), ref.Brand, ref.Ticker, ref.Status)
	}
	for _, key := range []string{indexer.MetricContextSummary, indexer.MetricWhySpreading} {
		if v, ok := it.Metrics.Extra[key].(string); ok && v != "" {
			fmt.Fprintf(&b, "\n%s\n%s\n", labelStyle.Render(strings.ReplaceAll(key, "_", " ")), v)
		}
	}
	return b.String()
}

func openBrowser(url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", url)
	}
	if cmd != nil {
		cmd.Start()
	}
}

// Run starts the TUI application
func Run(cfg *config.Config) error {
	p := tea.NewProgram(initialModel(cfg), tea.WithAltScreen())
	final, err := p.Run()
	if m, ok := final.(model); ok && m.store != nil {
		m.store.Close()
	}
	return err
}
