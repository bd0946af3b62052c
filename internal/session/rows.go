package session

import (
	"context"
	"fmt"
	"slices"

	"github.com/josh-kwaku/rice-ledger/internal/domain"
	"github.com/josh-kwaku/rice-ledger/internal/ledger"
)

// SetQuery changes the filters and sort order of the displayed rows.
func (s *Session) SetQuery(q ledger.Query) {
	s.do(func() error {
		s.query = q
		s.refresh()
		return nil
	})
}

// ToggleSort sorts by f, flipping the direction when f is already the sort
// column.
func (s *Session) ToggleSort(f domain.Field) error {
	if !f.IsValid() {
		return fmt.Errorf("ToggleSort: %w", domain.ErrUnknownField)
	}
	return s.do(func() error {
		s.query = s.query.ToggleSort(f)
		s.refresh()
		return nil
	})
}

// AddRow creates an empty record and starts editing its first cell. With an
// afterID the record takes that row's date and is placed right after it;
// otherwise it is dated today and placed first. The record is saved before
// it is shown so it always has a real ID. The save runs outside the session
// lock.
func (s *Session) AddRow(ctx context.Context, afterID string) (domain.Record, error) {
	var rec domain.Record
	err := s.do(func() error {
		if s.mode == ModeEditing {
			s.commit(s.draft)
		}
		date := ""
		if afterID != "" {
			i := s.find(afterID)
			if i < 0 {
				return fmt.Errorf("AddRow: %w", domain.ErrNotFound)
			}
			date = s.records[i].Date
		}
		rec = s.calc.NewRecord(date)
		return nil
	})
	if err != nil {
		return domain.Record{}, err
	}

	if err := s.store.Save(ctx, &rec); err != nil {
		s.logger.Error("failed to create record", "error", err)
		return domain.Record{}, fmt.Errorf("AddRow: %w", err)
	}
	rec.Draft = false

	err = s.do(func() error {
		if s.mode == ModeEditing {
			s.commit(s.draft)
		}
		// A snapshot published by the save may already carry the record.
		if s.find(rec.ID) < 0 {
			anchor := s.find(afterID)
			s.records = slices.Insert(s.records, anchor+1, rec)
		}
		s.render()
		return s.activate(CellRef{RecordID: rec.ID, Field: firstEditable()})
	})
	return rec, err
}

// RequestDelete marks a record for deletion pending confirmation.
func (s *Session) RequestDelete(id string) error {
	return s.do(func() error {
		if s.mode == ModeEditing {
			s.commit(s.draft)
		}
		if s.find(id) < 0 {
			return fmt.Errorf("RequestDelete: %w", domain.ErrNotFound)
		}
		s.deleteID = id
		s.stateDirty = true
		return nil
	})
}

// ConfirmDelete deletes the record marked by RequestDelete. An edit open on
// that record is dropped. The store call runs outside the session lock.
func (s *Session) ConfirmDelete(ctx context.Context) error {
	var id string
	err := s.do(func() error {
		if s.deleteID == "" {
			return fmt.Errorf("ConfirmDelete: %w", domain.ErrNoPendingDelete)
		}
		id = s.deleteID
		s.deleteID = ""
		s.stateDirty = true
		s.cancelOn(id)
		return nil
	})
	if err != nil {
		return err
	}

	if err := s.store.Delete(ctx, id); err != nil {
		s.logger.Error("failed to delete record", "record_id", id, "error", err)
		return fmt.Errorf("ConfirmDelete: %w", err)
	}

	return s.do(func() error {
		s.cancelOn(id)
		if i := s.find(id); i >= 0 {
			s.records = slices.Delete(s.records, i, i+1)
		}
		s.refresh()
		return nil
	})
}

// cancelOn drops the active edit when it sits on record id.
func (s *Session) cancelOn(id string) {
	if s.mode == ModeEditing && s.cell.RecordID == id {
		s.cancel()
	}
}

func (s *Session) DismissDelete() {
	s.do(func() error {
		if s.deleteID != "" {
			s.deleteID = ""
			s.stateDirty = true
		}
		return nil
	})
}
