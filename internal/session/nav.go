package session

import (
	"slices"

	"github.com/josh-kwaku/rice-ledger/internal/domain"
)

// target resolves the cell a navigation key moves to from the active cell,
// using the table as currently displayed.
func (s *Session) target(key Key, shift bool) (CellRef, bool) {
	switch key {
	case KeyEnter:
		if shift {
			return s.vertical(1)
		}
		return s.horizontal(1)
	case KeyTab:
		if shift {
			return s.horizontal(-1)
		}
		return s.horizontal(1)
	case KeyRight:
		return s.horizontal(1)
	case KeyLeft:
		return s.horizontal(-1)
	case KeyDown:
		return s.vertical(1)
	case KeyUp:
		return s.vertical(-1)
	case KeyHome:
		return CellRef{RecordID: s.cell.RecordID, Field: firstEditable()}, s.viewRow() >= 0
	case KeyEnd:
		return CellRef{RecordID: s.cell.RecordID, Field: lastEditable()}, s.viewRow() >= 0
	}
	return CellRef{}, false
}

// horizontal moves step columns along the editable cells, wrapping to the
// next row's first cell or the previous row's last cell.
func (s *Session) horizontal(step int) (CellRef, bool) {
	row := s.viewRow()
	if row < 0 {
		return CellRef{}, false
	}
	cols := domain.EditableFields()
	col := slices.Index(cols, s.cell.Field) + step

	switch {
	case col >= 0 && col < len(cols):
		return CellRef{RecordID: s.view[row].ID, Field: cols[col]}, true
	case step > 0 && row+1 < len(s.view):
		return CellRef{RecordID: s.view[row+1].ID, Field: cols[0]}, true
	case step < 0 && row > 0:
		return CellRef{RecordID: s.view[row-1].ID, Field: cols[len(cols)-1]}, true
	}
	return CellRef{}, false
}

// vertical keeps the column and stops at the first and last rows.
func (s *Session) vertical(step int) (CellRef, bool) {
	row := s.viewRow()
	if row < 0 {
		return CellRef{}, false
	}
	next := row + step
	if next < 0 || next >= len(s.view) {
		return CellRef{}, false
	}
	return CellRef{RecordID: s.view[next].ID, Field: s.cell.Field}, true
}

func (s *Session) viewRow() int {
	return slices.IndexFunc(s.view, func(r domain.Record) bool { return r.ID == s.cell.RecordID })
}

func firstEditable() domain.Field {
	return domain.EditableFields()[0]
}

func lastEditable() domain.Field {
	cols := domain.EditableFields()
	return cols[len(cols)-1]
}
