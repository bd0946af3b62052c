// Package tui is a terminal front end for an editing session: a scrolling
// grid with the active cell editable in place.
package tui

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/josh-kwaku/rice-ledger/internal/calc"
	"github.com/josh-kwaku/rice-ledger/internal/domain"
	"github.com/josh-kwaku/rice-ledger/internal/ledger"
	"github.com/josh-kwaku/rice-ledger/internal/session"
)

const storeTimeout = 10 * time.Second

// statusFilters is the cycle behind the "f" key.
var statusFilters = []string{"", ledger.StatusPending, domain.StatusCleared}

type errMsg struct {
	err error
}

type model struct {
	ctx  context.Context
	sess *session.Session
	calc *calc.Calculator

	rows  []domain.Record
	stats ledger.Stats
	state session.State

	row, col  int
	rowOffset int
	colOffset int

	width, height int

	searching bool
	search    string
	filter    int

	status string
}

func newModel(ctx context.Context, sess *session.Session, c *calc.Calculator) model {
	return model{
		ctx:    ctx,
		sess:   sess,
		calc:   c,
		state:  sess.State(),
		width:  120,
		height: 30,
	}
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.scroll()
		return m, nil
	case eventMsg:
		m.apply(msg.ev)
		return m, nil
	case errMsg:
		m.status = errorText(msg.err)
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *model) apply(ev session.Event) {
	switch e := ev.(type) {
	case session.RenderEvent:
		var current string
		if m.row < len(m.rows) {
			current = m.rows[m.row].ID
		}
		m.rows = e.Rows
		m.stats = e.Stats
		if i := m.indexOf(current); i >= 0 {
			m.row = i
		}
		m.clampRow()
	case session.RowEvent:
		if i := m.indexOf(e.Record.ID); i >= 0 {
			m.rows[i] = e.Record
		}
	case session.StateEvent:
		m.state = e.State
		if e.State.Mode == session.ModeEditing {
			if i := m.indexOf(e.State.Cell.RecordID); i >= 0 {
				m.row = i
			}
			m.col = int(e.State.Cell.Field)
		}
	case session.ErrorEvent:
		m.status = "Not saved: " + errorText(e.Err)
	}
	m.scroll()
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		return m, tea.Quit
	}
	m.status = ""

	switch {
	case m.sess.State().PendingDelete != "":
		return m.confirmKey(msg)
	case m.searching:
		return m.searchKey(msg), nil
	case m.sess.State().Mode == session.ModeEditing:
		m.editKey(msg)
		return m, nil
	}
	return m.idleKey(msg)
}

func (m model) confirmKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y":
		sess, ctx := m.sess, m.ctx
		return m, func() tea.Msg {
			ctx, cancel := context.WithTimeout(ctx, storeTimeout)
			defer cancel()
			if err := sess.ConfirmDelete(ctx); err != nil {
				return errMsg{err: err}
			}
			return nil
		}
	case "n", "N", "esc":
		m.sess.DismissDelete()
	}
	return m, nil
}

func (m model) searchKey(msg tea.KeyMsg) model {
	switch msg.Type {
	case tea.KeyEnter:
		m.searching = false
		return m
	case tea.KeyEsc:
		m.searching = false
		m.search = ""
	case tea.KeyBackspace:
		m.search = trimLastRune(m.search)
	case tea.KeyRunes, tea.KeySpace:
		m.search += string(msg.Runes)
	default:
		return m
	}
	q := m.sess.Query()
	q.Search = m.search
	m.sess.SetQuery(q)
	return m
}

var editKeys = map[string]struct {
	key   session.Key
	shift bool
}{
	"up":        {key: session.KeyUp},
	"down":      {key: session.KeyDown},
	"left":      {key: session.KeyLeft},
	"right":     {key: session.KeyRight},
	"enter":     {key: session.KeyEnter},
	"alt+enter": {key: session.KeyEnter, shift: true},
	"tab":       {key: session.KeyTab},
	"shift+tab": {key: session.KeyTab, shift: true},
	"home":      {key: session.KeyHome},
	"end":       {key: session.KeyEnd},
	"esc":       {key: session.KeyEscape},
}

func (m *model) editKey(msg tea.KeyMsg) {
	draft := m.sess.State().Draft
	f := domain.Field(m.col)

	var err error
	switch msg.Type {
	case tea.KeyRunes, tea.KeySpace:
		if f.Kind() == domain.FieldKindSelect {
			err = m.sess.Input(matchOption(f, string(msg.Runes), draft))
		} else {
			err = m.sess.Input(draft + string(msg.Runes))
		}
	case tea.KeyBackspace:
		if f.Kind() == domain.FieldKindSelect {
			err = m.sess.Input("")
		} else {
			err = m.sess.Input(trimLastRune(draft))
		}
	case tea.KeyCtrlU:
		err = m.sess.Input("")
	default:
		k, ok := editKeys[msg.String()]
		if !ok {
			return
		}
		err = m.sess.HandleKey(k.key, k.shift)
	}
	if err != nil {
		m.status = errorText(err)
	}
}

func (m model) idleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "up", "k":
		m.row--
	case "down", "j":
		m.row++
	case "left", "h":
		m.col--
	case "right", "l":
		m.col++
	case "home":
		m.col = 0
	case "end":
		m.col = len(domain.AllFields()) - 1
	case "pgup":
		m.row -= m.pageSize()
	case "pgdown":
		m.row += m.pageSize()
	case "enter", "e":
		m.activate()
	case "a":
		return m, m.addRow(m.currentID())
	case "A":
		return m, m.addRow("")
	case "d":
		if id := m.currentID(); id != "" {
			if err := m.sess.RequestDelete(id); err != nil {
				m.status = errorText(err)
			}
		}
	case "/":
		m.searching = true
	case "s":
		if err := m.sess.ToggleSort(domain.Field(m.col)); err != nil {
			m.status = errorText(err)
		}
	case "f":
		m.filter = (m.filter + 1) % len(statusFilters)
		q := m.sess.Query()
		q.Status = statusFilters[m.filter]
		m.sess.SetQuery(q)
	}
	m.clampRow()
	m.clampCol()
	m.scroll()
	return m, nil
}

func (m *model) activate() {
	id := m.currentID()
	if id == "" {
		return
	}
	f := domain.Field(m.col)
	if !f.Editable() {
		m.status = f.Label() + " is calculated"
		return
	}
	if err := m.sess.Activate(session.CellRef{RecordID: id, Field: f}); err != nil {
		m.status = errorText(err)
	}
}

func (m model) addRow(afterID string) tea.Cmd {
	sess, ctx := m.sess, m.ctx
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, storeTimeout)
		defer cancel()
		if _, err := sess.AddRow(ctx, afterID); err != nil {
			return errMsg{err: err}
		}
		return nil
	}
}

func (m model) currentID() string {
	if m.row < 0 || m.row >= len(m.rows) {
		return ""
	}
	return m.rows[m.row].ID
}

func (m model) indexOf(id string) int {
	if id == "" {
		return -1
	}
	for i, r := range m.rows {
		if r.ID == id {
			return i
		}
	}
	return -1
}

func (m *model) clampRow() {
	if m.row >= len(m.rows) {
		m.row = len(m.rows) - 1
	}
	if m.row < 0 {
		m.row = 0
	}
}

func (m *model) clampCol() {
	if n := len(domain.AllFields()); m.col >= n {
		m.col = n - 1
	}
	if m.col < 0 {
		m.col = 0
	}
}

// scroll keeps the cursor inside the visible window.
func (m *model) scroll() {
	page := m.pageSize()
	if m.row < m.rowOffset {
		m.rowOffset = m.row
	}
	if m.row >= m.rowOffset+page {
		m.rowOffset = m.row - page + 1
	}

	if m.col < m.colOffset {
		m.colOffset = m.col
	}
	for m.colOffset < m.col && !m.columnVisible(m.col) {
		m.colOffset++
	}
}

func (m model) columnVisible(col int) bool {
	used := rowMarkerWidth
	for i := m.colOffset; i <= col; i++ {
		used += columnWidth(domain.Field(i)) + 1
	}
	return used <= m.width
}

// pageSize is the number of table rows that fit under the header and above
// the footer.
func (m model) pageSize() int {
	reserved := 6 + len(m.state.Suggestions)
	if n := m.height - reserved; n > 1 {
		return n
	}
	return 1
}

// matchOption picks the first option starting with typed, or the option
// after current when typed matches several in turn.
func matchOption(f domain.Field, typed, current string) string {
	typed = strings.ToLower(strings.TrimSpace(typed))
	if typed == "" {
		return current
	}
	var matches []string
	for _, o := range f.Options() {
		if strings.HasPrefix(strings.ToLower(o), typed) {
			matches = append(matches, o)
		}
	}
	if len(matches) == 0 {
		return current
	}
	for i, o := range matches {
		if o == current {
			return matches[(i+1)%len(matches)]
		}
	}
	return matches[0]
}

func trimLastRune(s string) string {
	if s == "" {
		return s
	}
	_, size := utf8.DecodeLastRuneInString(s)
	return s[:len(s)-size]
}

func errorText(err error) string {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return "record no longer exists"
	case errors.Is(err, domain.ErrNotEditable):
		return "field is calculated"
	case errors.Is(err, domain.ErrInvalidOption):
		return "value is not one of the options"
	case errors.Is(err, domain.ErrNotEditing):
		return "no cell is being edited"
	case errors.Is(err, domain.ErrNoPendingDelete):
		return "nothing to delete"
	case errors.Is(err, context.DeadlineExceeded):
		return "the database did not answer in time"
	}
	return err.Error()
}
