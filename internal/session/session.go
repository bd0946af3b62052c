// Package session implements the single-cursor editing controller that sits
// between a record store and an interactive table.
//
// A Session owns an in-memory copy of one owner's records. At most one cell
// is being edited at a time. Committing a cell recomputes the record's
// derived fields, shows the result immediately and persists it in the
// background. Record sets pushed by the store are held back while a cell is
// being edited so the editor is never redrawn under the user.
//
// Every method is safe for concurrent use. Events are delivered to the
// listener in order after the session lock is released; the listener must
// not call back into the session synchronously.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/josh-kwaku/rice-ledger/internal/calc"
	"github.com/josh-kwaku/rice-ledger/internal/domain"
	"github.com/josh-kwaku/rice-ledger/internal/ledger"
)

const DefaultWriteTimeout = 10 * time.Second

type recordStore interface {
	// Save creates the record when it is a draft, assigning its ID, and
	// updates it otherwise.
	Save(ctx context.Context, r *domain.Record) error
	Delete(ctx context.Context, id string) error
}

type Listener func(Event)

type Session struct {
	store        recordStore
	calc         *calc.Calculator
	listener     Listener
	logger       *slog.Logger
	writeTimeout time.Duration

	mu      sync.Mutex
	emitMu  sync.Mutex
	writes  sync.WaitGroup
	pending []Event

	records []domain.Record
	view    []domain.Record
	query   ledger.Query

	mode        Mode
	cell        CellRef
	draft       string
	suggestions []string
	highlight   int
	deleteID    string
	stateDirty  bool

	deferred    []domain.Record
	hasDeferred bool
	staleView   bool

	inflight      map[string]domain.Record
	inflightCount map[string]int
}

func New(store recordStore, c *calc.Calculator, writeTimeout time.Duration, logger *slog.Logger, listener Listener) *Session {
	if writeTimeout <= 0 {
		writeTimeout = DefaultWriteTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		store:         store,
		calc:          c,
		listener:      listener,
		logger:        logger,
		writeTimeout:  writeTimeout,
		highlight:     -1,
		inflight:      make(map[string]domain.Record),
		inflightCount: make(map[string]int),
	}
}

// Replace installs the full ordered record set delivered by the store. While
// a cell is being edited the set is held and applied, latest first, when
// the session returns to idle.
func (s *Session) Replace(records []domain.Record) {
	derived := make([]domain.Record, len(records))
	for i, r := range records {
		derived[i] = s.calc.Apply(r)
	}

	s.do(func() error {
		if s.mode == ModeEditing {
			s.deferred = derived
			s.hasDeferred = true
			return nil
		}
		s.apply(derived)
		return nil
	})
}

// State returns a snapshot of the editing state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

// Rows returns the rows currently on display.
func (s *Session) Rows() []domain.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.view)
}

func (s *Session) Stats() ledger.Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ledger.ComputeStats(s.calc, s.records)
}

func (s *Session) Query() ledger.Query {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.query
}

// Record returns the cached copy of a record.
func (s *Session) Record(id string) (domain.Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.find(id); i >= 0 {
		return s.records[i], true
	}
	return domain.Record{}, false
}

// Flush waits until every dispatched write has finished or ctx is done.
func (s *Session) Flush(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.writes.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("Flush: %w", ctx.Err())
	}
}

// do runs fn under the session lock and then delivers the events it queued.
// emitMu is taken before the session lock is released so listeners observe
// events in the order they were produced.
func (s *Session) do(fn func() error) error {
	s.mu.Lock()
	err := fn()
	events := s.drain()
	s.emitMu.Lock()
	s.mu.Unlock()
	defer s.emitMu.Unlock()

	if s.listener != nil {
		for _, e := range events {
			s.listener(e)
		}
	}
	return err
}

func (s *Session) queue(e Event) {
	s.pending = append(s.pending, e)
}

func (s *Session) drain() []Event {
	if s.stateDirty {
		s.pending = append(s.pending, StateEvent{State: s.snapshot()})
		s.stateDirty = false
	}
	events := s.pending
	s.pending = nil
	return events
}

func (s *Session) snapshot() State {
	st := State{
		Mode:          s.mode,
		Highlight:     -1,
		PendingDelete: s.deleteID,
	}
	if s.mode == ModeEditing {
		st.Cell = s.cell
		st.Draft = s.draft
		st.Suggestions = slices.Clone(s.suggestions)
		st.Highlight = s.highlight
	}
	return st
}

func (s *Session) find(id string) int {
	if id == "" {
		return -1
	}
	return slices.IndexFunc(s.records, func(r domain.Record) bool { return r.ID == id })
}

// apply swaps in a new record set, keeping the local version of records
// whose writes have not finished.
func (s *Session) apply(records []domain.Record) {
	for i, r := range records {
		if local, ok := s.inflight[r.ID]; ok {
			records[i] = local
		}
	}
	s.records = records
	s.deferred = nil
	s.hasDeferred = false
	if s.deleteID != "" && s.find(s.deleteID) < 0 {
		s.deleteID = ""
		s.stateDirty = true
	}
	s.render()
}

func (s *Session) render() {
	s.view = s.query.Apply(s.records)
	s.staleView = false
	s.queue(RenderEvent{
		Rows:  slices.Clone(s.view),
		Stats: ledger.ComputeStats(s.calc, s.records),
	})
}

// refresh redraws the table unless a cell is being edited.
func (s *Session) refresh() {
	if s.mode == ModeEditing {
		s.staleView = true
		return
	}
	s.render()
}

// settle runs on every return to idle and catches up on whatever was held
// back while editing.
func (s *Session) settle() {
	switch {
	case s.hasDeferred:
		s.apply(s.deferred)
	case s.staleView:
		s.render()
	}
}
