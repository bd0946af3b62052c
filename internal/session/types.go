package session

import (
	"strings"

	"github.com/josh-kwaku/rice-ledger/internal/domain"
	"github.com/josh-kwaku/rice-ledger/internal/ledger"
)

type Mode int

const (
	ModeIdle Mode = iota
	ModeEditing
)

func (m Mode) String() string {
	if m == ModeEditing {
		return "editing"
	}
	return "idle"
}

// CellRef addresses one cell of the table.
type CellRef struct {
	RecordID string       `json:"record_id"`
	Field    domain.Field `json:"-"`
}

type State struct {
	Mode          Mode
	Cell          CellRef
	Draft         string
	Suggestions   []string
	Highlight     int // -1 when no suggestion is highlighted
	PendingDelete string
}

// Event is delivered to the session listener.
type Event interface {
	isEvent()
}

// RenderEvent carries the whole table in display order.
type RenderEvent struct {
	Rows  []domain.Record
	Stats ledger.Stats
}

// RowEvent redraws a single row after a local change.
type RowEvent struct {
	Record domain.Record
}

type StateEvent struct {
	State State
}

// ErrorEvent reports a background write that failed. The local value is
// kept.
type ErrorEvent struct {
	RecordID string
	Err      error
}

func (RenderEvent) isEvent() {}
func (RowEvent) isEvent()    {}
func (StateEvent) isEvent()  {}
func (ErrorEvent) isEvent()  {}

type Key int

const (
	KeyUp Key = iota
	KeyDown
	KeyLeft
	KeyRight
	KeyEnter
	KeyTab
	KeyHome
	KeyEnd
	KeyEscape
)

var keyNames = map[string]Key{
	"arrowup":    KeyUp,
	"up":         KeyUp,
	"arrowdown":  KeyDown,
	"down":       KeyDown,
	"arrowleft":  KeyLeft,
	"left":       KeyLeft,
	"arrowright": KeyRight,
	"right":      KeyRight,
	"enter":      KeyEnter,
	"tab":        KeyTab,
	"home":       KeyHome,
	"end":        KeyEnd,
	"escape":     KeyEscape,
	"esc":        KeyEscape,
}

// ParseKey maps a key name such as "ArrowDown" or "Tab" to a Key.
func ParseKey(name string) (Key, bool) {
	k, ok := keyNames[strings.ToLower(name)]
	return k, ok
}
