package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/josh-kwaku/rice-ledger/internal/calc"
	"github.com/josh-kwaku/rice-ledger/internal/domain"
	"github.com/josh-kwaku/rice-ledger/internal/ledger"
	"github.com/josh-kwaku/rice-ledger/internal/session"
)

const rowMarkerWidth = 2

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#89b4fa"))
	headerStyle  = lipgloss.NewStyle().Bold(true).Underline(true)
	derivedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#a6adc8"))
	cursorStyle  = lipgloss.NewStyle().Reverse(true)
	editStyle    = lipgloss.NewStyle().Reverse(true).Bold(true)
	helpStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#6c7086"))
	statusStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#f38ba8"))
	warnStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#fab387"))
	pickStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#1e1e2e")).Background(lipgloss.Color("#f9e2af"))

	toneStyles = map[calc.Tone]lipgloss.Style{
		calc.ToneCleared: lipgloss.NewStyle().Foreground(lipgloss.Color("#a6e3a1")),
		calc.ToneRecent:  lipgloss.NewStyle().Foreground(lipgloss.Color("#f9e2af")),
		calc.ToneOverdue: lipgloss.NewStyle().Foreground(lipgloss.Color("#f38ba8")),
	}
)

func columnWidth(f domain.Field) int {
	w := 10
	switch f.Kind() {
	case domain.FieldKindNumber:
		w = 12
	case domain.FieldKindText:
		w = 14
	case domain.FieldKindSelect:
		w = 6
	}
	if f == domain.FieldMiller || f == domain.FieldShop {
		w = 18
	}
	if l := ansi.StringWidth(f.Label()); l > w {
		w = l
	}
	return w
}

// fit truncates or pads s to exactly w cells.
func fit(s string, w int, right bool) string {
	s = ansi.Truncate(s, w, "…")
	pad := strings.Repeat(" ", w-ansi.StringWidth(s))
	if right {
		return pad + s
	}
	return s + pad
}

func (m model) View() string {
	var b strings.Builder
	b.WriteString(m.viewStats())
	b.WriteString("\n")
	b.WriteString(m.viewQuery())
	b.WriteString("\n")

	cols := m.visibleColumns()
	b.WriteString(m.viewHeader(cols))
	b.WriteString("\n")

	end := min(m.rowOffset+m.pageSize(), len(m.rows))
	for i := m.rowOffset; i < end; i++ {
		b.WriteString(m.viewRow(i, cols))
		b.WriteString("\n")
	}
	if len(m.rows) == 0 {
		b.WriteString(helpStyle.Render("  no records, press A to add one"))
		b.WriteString("\n")
	}

	if s := m.viewSuggestions(); s != "" {
		b.WriteString(s)
	}
	b.WriteString(m.viewFooter())
	return b.String()
}

func (m model) viewStats() string {
	s := m.stats
	parts := []string{
		titleStyle.Render("Rice Ledger"),
		fmt.Sprintf("%d records", s.Total),
		fmt.Sprintf("%d pending", s.Pending),
		fmt.Sprintf("%d cleared", s.Cleared),
		"net " + ledger.FormatMoney(s.TotalNet),
		"outstanding " + ledger.FormatMoney(s.PendingNet),
		fmt.Sprintf("avg %d days", s.AvgPendingDays),
	}
	return ansi.Truncate(strings.Join(parts, "  "), m.width, "…")
}

func (m model) viewQuery() string {
	q := m.sess.Query()
	var parts []string
	if m.searching {
		parts = append(parts, "search: "+m.search+"▏")
	} else if q.Search != "" {
		parts = append(parts, "search: "+q.Search)
	}
	if q.Status != "" {
		parts = append(parts, "status: "+q.Status)
	}
	if q.SortBy != domain.FieldDate || q.Desc {
		dir := "asc"
		if q.Desc {
			dir = "desc"
		}
		parts = append(parts, "sort: "+q.SortBy.Label()+" "+dir)
	}
	return helpStyle.Render(strings.Join(parts, "  "))
}

func (m model) visibleColumns() []domain.Field {
	var cols []domain.Field
	used := rowMarkerWidth
	for _, f := range domain.AllFields()[m.colOffset:] {
		w := columnWidth(f) + 1
		if used+w > m.width && len(cols) > 0 {
			break
		}
		used += w
		cols = append(cols, f)
	}
	return cols
}

func (m model) viewHeader(cols []domain.Field) string {
	var b strings.Builder
	b.WriteString(strings.Repeat(" ", rowMarkerWidth))
	for _, f := range cols {
		b.WriteString(headerStyle.Render(fit(f.Label(), columnWidth(f), f.Numeric())))
		b.WriteString(" ")
	}
	return b.String()
}

func (m model) viewRow(i int, cols []domain.Field) string {
	rec := m.rows[i]
	tone := toneStyles[m.calc.Tone(rec)]
	editing := m.state.Mode == session.ModeEditing && m.state.Cell.RecordID == rec.ID
	pending := m.state.PendingDelete == rec.ID

	var b strings.Builder
	switch {
	case pending:
		b.WriteString(warnStyle.Render("✗ "))
	case i == m.row:
		b.WriteString("› ")
	default:
		b.WriteString(strings.Repeat(" ", rowMarkerWidth))
	}

	for _, f := range cols {
		w := columnWidth(f)
		switch {
		case editing && m.state.Cell.Field == f:
			b.WriteString(editStyle.Render(fit(m.state.Draft+"▏", w, false)))
		case i == m.row && int(f) == m.col && m.state.Mode == session.ModeIdle:
			b.WriteString(cursorStyle.Render(fit(ledger.FormatCell(f, rec.Get(f)), w, f.Numeric())))
		case f.Derived() && f != domain.FieldStatus:
			b.WriteString(derivedStyle.Render(fit(ledger.FormatCell(f, rec.Get(f)), w, f.Numeric())))
		default:
			b.WriteString(tone.Render(fit(ledger.FormatCell(f, rec.Get(f)), w, f.Numeric())))
		}
		b.WriteString(" ")
	}
	return b.String()
}

func (m model) viewSuggestions() string {
	if m.state.Mode != session.ModeEditing || len(m.state.Suggestions) == 0 {
		return ""
	}
	var b strings.Builder
	for i, s := range m.state.Suggestions {
		line := "  " + s
		if i == m.state.Highlight {
			line = pickStyle.Render("› " + s)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String()
}

func (m model) viewFooter() string {
	var lines []string
	if m.state.PendingDelete != "" {
		lines = append(lines, warnStyle.Render("Delete this record? y/n"))
	}
	if m.status != "" {
		lines = append(lines, statusStyle.Render(m.status))
	}
	lines = append(lines, helpStyle.Render(m.help()))
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func (m model) help() string {
	switch {
	case m.searching:
		return "type to filter  enter keep  esc clear"
	case m.state.Mode == session.ModeEditing:
		return "enter/tab next  shift+tab prev  alt+enter down  ↑↓ move  esc cancel  ctrl+u clear"
	}
	return "←↑↓→ move  enter edit  a add below  A add  d delete  / search  s sort  f filter  q quit"
}
