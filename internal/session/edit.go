package session

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/josh-kwaku/rice-ledger/internal/calc"
	"github.com/josh-kwaku/rice-ledger/internal/domain"
)

const (
	minSuggestLen  = 4
	maxSuggestions = 8
)

// Activate starts editing ref. A cell already being edited is committed
// first.
func (s *Session) Activate(ref CellRef) error {
	return s.do(func() error { return s.activate(ref) })
}

// Input replaces the draft of the active cell and refreshes its suggestions.
func (s *Session) Input(text string) error {
	return s.do(func() error {
		if s.mode != ModeEditing {
			return fmt.Errorf("Input: %w", domain.ErrNotEditing)
		}
		f := s.cell.Field
		if !f.AllowsValue(text) {
			return fmt.Errorf("Input: %w", domain.ErrInvalidOption)
		}
		s.draft = text
		s.highlight = -1
		s.suggestions = nil
		if f.Autocomplete() && utf8.RuneCountInString(text) >= minSuggestLen {
			s.suggestions = s.suggest(f, text)
		}
		s.stateDirty = true
		return nil
	})
}

// HandleKey applies a navigation key to the active cell. An open suggestion
// list sees Up, Down, Enter and Escape first.
func (s *Session) HandleKey(key Key, shift bool) error {
	return s.do(func() error {
		if s.mode != ModeEditing {
			return fmt.Errorf("HandleKey: %w", domain.ErrNotEditing)
		}

		if len(s.suggestions) > 0 {
			switch key {
			case KeyDown:
				s.moveHighlight(1)
				return nil
			case KeyUp:
				s.moveHighlight(-1)
				return nil
			case KeyEnter:
				if s.highlight >= 0 {
					s.commit(s.suggestions[s.highlight])
					return nil
				}
			case KeyEscape:
				s.suggestions = nil
				s.highlight = -1
				s.stateDirty = true
				return nil
			}
		}

		if key == KeyEscape {
			s.cancel()
			return nil
		}

		target, ok := s.target(key, shift)
		s.commit(s.draft)
		if ok {
			// The target row may have gone away with a deferred snapshot.
			_ = s.activate(target)
		}
		return nil
	})
}

// SelectSuggestion commits the i-th suggestion of the active cell.
func (s *Session) SelectSuggestion(i int) error {
	return s.do(func() error {
		if s.mode != ModeEditing {
			return fmt.Errorf("SelectSuggestion: %w", domain.ErrNotEditing)
		}
		if i < 0 || i >= len(s.suggestions) {
			return fmt.Errorf("SelectSuggestion: %w", domain.ErrInvalidRequest)
		}
		s.commit(s.suggestions[i])
		return nil
	})
}

// Commit finalizes the active cell, if any.
func (s *Session) Commit() {
	s.do(func() error {
		if s.mode == ModeEditing {
			s.commit(s.draft)
		}
		return nil
	})
}

// Cancel drops the active cell's draft without writing.
func (s *Session) Cancel() {
	s.do(func() error {
		if s.mode == ModeEditing {
			s.cancel()
		}
		return nil
	})
}

func (s *Session) activate(ref CellRef) error {
	if s.mode == ModeEditing {
		if s.cell == ref {
			return nil
		}
		s.commit(s.draft)
	}
	if !ref.Field.Editable() {
		return fmt.Errorf("activate: %w", domain.ErrNotEditable)
	}
	i := s.find(ref.RecordID)
	if i < 0 {
		return fmt.Errorf("activate: %w", domain.ErrNotFound)
	}

	value := s.records[i].Get(ref.Field)
	s.mode = ModeEditing
	s.cell = ref
	s.draft = value
	if ref.Field.Kind() == domain.FieldKindDate {
		s.draft = calc.NormalizeDate(value)
	}
	s.suggestions = nil
	s.highlight = -1
	s.stateDirty = true
	return nil
}

// commit writes value into the active cell, shows the recomputed row and
// hands the record to the store in the background.
func (s *Session) commit(value string) {
	ref := s.cell
	if i := s.find(ref.RecordID); i >= 0 {
		rec := s.records[i]
		value = strings.TrimSpace(value)
		if ref.Field.Kind() == domain.FieldKindDate {
			value = calc.NormalizeDate(value)
		}
		rec.Set(ref.Field, value)
		rec = s.calc.Apply(rec)
		s.records[i] = rec
		if j := slices.IndexFunc(s.view, func(r domain.Record) bool { return r.ID == rec.ID }); j >= 0 {
			s.view[j] = rec
		}
		s.queue(RowEvent{Record: rec})
		s.dispatchSave(rec)
	}
	s.leaveEditing()
}

func (s *Session) cancel() {
	ref := s.cell
	s.leaveEditing()
	if i := s.find(ref.RecordID); i >= 0 {
		s.queue(RowEvent{Record: s.records[i]})
	}
}

func (s *Session) leaveEditing() {
	s.mode = ModeIdle
	s.cell = CellRef{}
	s.draft = ""
	s.suggestions = nil
	s.highlight = -1
	s.stateDirty = true
	s.settle()
}

func (s *Session) moveHighlight(step int) {
	s.highlight = max(0, min(s.highlight+step, len(s.suggestions)-1))
	s.stateDirty = true
}

// suggest returns the distinct values of f across all loaded records that
// contain text, ignoring case and excluding text itself.
func (s *Session) suggest(f domain.Field, text string) []string {
	q := strings.ToLower(text)
	seen := make(map[string]struct{})
	var out []string
	for _, r := range s.records {
		v := r.Get(f)
		if v == "" {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		lv := strings.ToLower(v)
		if lv != q && strings.Contains(lv, q) {
			out = append(out, v)
		}
	}
	slices.Sort(out)
	if len(out) > maxSuggestions {
		out = out[:maxSuggestions]
	}
	return out
}

func (s *Session) dispatchSave(rec domain.Record) {
	s.inflight[rec.ID] = rec
	s.inflightCount[rec.ID]++
	s.writes.Add(1)

	go func() {
		defer s.writes.Done()

		ctx, cancel := context.WithTimeout(context.Background(), s.writeTimeout)
		defer cancel()

		saved := rec
		err := s.store.Save(ctx, &saved)

		s.do(func() error {
			s.finishWrite(rec.ID, saved.ID, err)
			return nil
		})
	}()
}

func (s *Session) finishWrite(id, savedID string, err error) {
	s.inflightCount[id]--
	if s.inflightCount[id] <= 0 {
		delete(s.inflightCount, id)
		delete(s.inflight, id)
	}

	if err != nil {
		s.logger.Error("failed to save record", "record_id", id, "error", err)
		s.queue(ErrorEvent{RecordID: id, Err: err})
		return
	}
	if savedID != "" && savedID != id {
		s.rename(id, savedID)
	}
}

// rename moves a draft's placeholder id to the id the store assigned.
func (s *Session) rename(from, to string) {
	if i := s.find(from); i >= 0 {
		s.records[i].ID = to
		s.records[i].Draft = false
	}
	for i := range s.view {
		if s.view[i].ID == from {
			s.view[i].ID = to
			s.view[i].Draft = false
		}
	}
	if s.cell.RecordID == from {
		s.cell.RecordID = to
		s.stateDirty = true
	}
	if s.deleteID == from {
		s.deleteID = to
		s.stateDirty = true
	}
}
