package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/josh-kwaku/rice-ledger/internal/calc"
	"github.com/josh-kwaku/rice-ledger/internal/domain"
	"github.com/josh-kwaku/rice-ledger/internal/ledger"
	"github.com/josh-kwaku/rice-ledger/internal/logging"
)

type recordRepo interface {
	Save(ctx context.Context, owner uuid.UUID, rec *domain.Record) error
	SaveBatch(ctx context.Context, owner uuid.UUID, records []domain.Record) (int, error)
	UpdateBatch(ctx context.Context, owner uuid.UUID, records []domain.Record) (int, error)
	SaveImport(ctx context.Context, owner uuid.UUID, records []domain.Record, receipt domain.ImportReceipt) (int, error)
	FindReceipt(ctx context.Context, owner uuid.UUID, key string) (*domain.ImportReceipt, error)
	Delete(ctx context.Context, owner uuid.UUID, id string) error
	Get(ctx context.Context, owner uuid.UUID, id string) (*domain.Record, error)
	List(ctx context.Context, owner uuid.UUID) ([]domain.Record, error)
	ListOwners(ctx context.Context) ([]uuid.UUID, error)
}

// ImportReceiptTTL is how long a retried import under the same key replays
// the first result.
const ImportReceiptTTL = 24 * time.Hour

type ExportFormat string

const (
	ExportCSV  ExportFormat = "csv"
	ExportXLSX ExportFormat = "xlsx"
)

func (f ExportFormat) ContentType() string {
	switch f {
	case ExportXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "text/csv; charset=utf-8"
	}
}

type RecordService struct {
	records recordRepo
	calc    *calc.Calculator
}

func NewRecordService(records recordRepo, c *calc.Calculator) *RecordService {
	return &RecordService{records: records, calc: c}
}

func (s *RecordService) Calculator() *calc.Calculator { return s.calc }

// Load returns the owner's records in store order with derived fields
// recomputed for today.
func (s *RecordService) Load(ctx context.Context, owner uuid.UUID) ([]domain.Record, error) {
	records, err := s.records.List(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("Load: %w", err)
	}
	for i := range records {
		records[i] = s.calc.Apply(records[i])
	}
	return records, nil
}

// List returns the owner's records filtered and sorted by q.
func (s *RecordService) List(ctx context.Context, owner uuid.UUID, q ledger.Query) ([]domain.Record, error) {
	records, err := s.Load(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("List: %w", err)
	}
	return q.Apply(records), nil
}

func (s *RecordService) Stats(ctx context.Context, owner uuid.UUID, q ledger.Query) (ledger.Stats, error) {
	records, err := s.List(ctx, owner, q)
	if err != nil {
		return ledger.Stats{}, fmt.Errorf("Stats: %w", err)
	}
	return ledger.ComputeStats(s.calc, records), nil
}

// AddRow creates a blank record. When afterID names an existing record the
// new one takes its transaction date, otherwise today's.
func (s *RecordService) AddRow(ctx context.Context, owner uuid.UUID, afterID string) (*domain.Record, error) {
	date := ""
	if afterID != "" {
		anchor, err := s.records.Get(ctx, owner, afterID)
		if err != nil {
			return nil, fmt.Errorf("AddRow: anchor: %w", err)
		}
		date = anchor.Date
	}

	rec := s.calc.NewRecord(date)
	if err := s.records.Save(ctx, owner, &rec); err != nil {
		return nil, fmt.Errorf("AddRow: %w", err)
	}
	logging.FromContext(ctx).Info("record created", "owner_id", owner, "record_id", rec.ID)
	return &rec, nil
}

// UpdateField commits a single editable field and persists the recomputed
// record.
func (s *RecordService) UpdateField(ctx context.Context, owner uuid.UUID, id, key, value string) (*domain.Record, error) {
	f, err := domain.ParseField(key)
	if err != nil {
		return nil, fmt.Errorf("UpdateField: %w", err)
	}
	if !f.Editable() {
		return nil, fmt.Errorf("UpdateField: %s: %w", key, domain.ErrNotEditable)
	}
	value = strings.TrimSpace(value)
	if !f.AllowsValue(value) {
		return nil, fmt.Errorf("UpdateField: %s: %w", key, domain.ErrInvalidOption)
	}
	if f.Kind() == domain.FieldKindDate {
		value = calc.NormalizeDate(value)
	}

	rec, err := s.records.Get(ctx, owner, id)
	if err != nil {
		return nil, fmt.Errorf("UpdateField: %w", err)
	}
	rec.Set(f, value)
	*rec = s.calc.Apply(*rec)

	if err := s.records.Save(ctx, owner, rec); err != nil {
		return nil, fmt.Errorf("UpdateField: %w", err)
	}
	return rec, nil
}

func (s *RecordService) Delete(ctx context.Context, owner uuid.UUID, id string) error {
	if err := s.records.Delete(ctx, owner, id); err != nil {
		return fmt.Errorf("Delete: %w", err)
	}
	logging.FromContext(ctx).Info("record deleted", "owner_id", owner, "record_id", id)
	return nil
}

// Import reads a CSV export and stores every usable row as a new record.
func (s *RecordService) Import(ctx context.Context, owner uuid.UUID, r io.Reader) (int, error) {
	records, err := ledger.ReadCSV(r, s.calc)
	if err != nil {
		return 0, fmt.Errorf("Import: %w", err)
	}
	n, err := s.records.SaveBatch(ctx, owner, records)
	if err != nil {
		return 0, fmt.Errorf("Import: %w", err)
	}
	logging.FromContext(ctx).Info("records imported", "owner_id", owner, "count", n)
	return n, nil
}

type ImportResult struct {
	Imported int
	Replayed bool
}

// ImportOnce imports a CSV body under a client idempotency key. Retrying with
// the same key and the same file replays the first count without writing
// again; reusing the key for a different file fails with
// domain.ErrImportKeyTaken.
func (s *RecordService) ImportOnce(ctx context.Context, owner uuid.UUID, key string, body []byte) (ImportResult, error) {
	sum := sha256.Sum256(body)
	hash := hex.EncodeToString(sum[:])

	if res, ok, err := s.replayImport(ctx, owner, key, hash); err != nil || ok {
		return res, err
	}

	records, err := ledger.ReadCSV(bytes.NewReader(body), s.calc)
	if err != nil {
		return ImportResult{}, fmt.Errorf("ImportOnce: %w", err)
	}

	now := time.Now().UTC()
	receipt := domain.ImportReceipt{Key: key, ContentHash: hash, CreatedAt: now, ExpiresAt: now.Add(ImportReceiptTTL)}
	n, err := s.records.SaveImport(ctx, owner, records, receipt)
	if errors.Is(err, domain.ErrImportKeyTaken) {
		// Lost a race with a concurrent import under the same key.
		if res, ok, ferr := s.replayImport(ctx, owner, key, hash); ferr != nil || ok {
			return res, ferr
		}
	}
	if err != nil {
		return ImportResult{}, fmt.Errorf("ImportOnce: %w", err)
	}
	logging.FromContext(ctx).Info("records imported", "owner_id", owner, "count", n, "idempotency_key", key)
	return ImportResult{Imported: n}, nil
}

func (s *RecordService) replayImport(ctx context.Context, owner uuid.UUID, key, hash string) (ImportResult, bool, error) {
	rc, err := s.records.FindReceipt(ctx, owner, key)
	if err != nil {
		return ImportResult{}, false, fmt.Errorf("ImportOnce: %w", err)
	}
	if rc == nil {
		return ImportResult{}, false, nil
	}
	if !rc.Matches(hash) {
		return ImportResult{}, false, fmt.Errorf("ImportOnce: %w", domain.ErrImportKeyTaken)
	}
	return ImportResult{Imported: rc.Imported, Replayed: true}, true, nil
}

// Export writes the records matching q in the requested format.
func (s *RecordService) Export(ctx context.Context, owner uuid.UUID, q ledger.Query, format ExportFormat, w io.Writer) error {
	if format != ExportCSV && format != ExportXLSX {
		return fmt.Errorf("Export: format %q: %w", format, domain.ErrInvalidRequest)
	}
	records, err := s.List(ctx, owner, q)
	if err != nil {
		return fmt.Errorf("Export: %w", err)
	}

	switch format {
	case ExportXLSX:
		err = ledger.WriteXLSX(w, records)
	default:
		err = ledger.WriteCSV(w, records)
	}
	if err != nil {
		return fmt.Errorf("Export: %w", err)
	}
	return nil
}

// Recalculate persists every record whose stored derived fields no longer
// match a fresh calculation, which happens once a day passes for pending
// records. The stale records are written together so subscribers reload
// once. It returns the number of records rewritten.
func (s *RecordService) Recalculate(ctx context.Context, owner uuid.UUID) (int, error) {
	stored, err := s.records.List(ctx, owner)
	if err != nil {
		return 0, fmt.Errorf("Recalculate: %w", err)
	}

	var stale []domain.Record
	for _, r := range stored {
		if fresh := s.calc.Apply(r); fresh != r {
			stale = append(stale, fresh)
		}
	}
	n, err := s.records.UpdateBatch(ctx, owner, stale)
	if err != nil {
		return 0, fmt.Errorf("Recalculate: %w", err)
	}
	return n, nil
}

// ListOwners returns every owner with stored records.
func (s *RecordService) ListOwners(ctx context.Context) ([]uuid.UUID, error) {
	owners, err := s.records.ListOwners(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListOwners: %w", err)
	}
	return owners, nil
}

// ForOwner scopes the store to one owner for an editing session.
func (s *RecordService) ForOwner(owner uuid.UUID) *OwnerStore {
	return &OwnerStore{records: s.records, owner: owner}
}

// OwnerStore persists an editing session's commits for a single owner.
type OwnerStore struct {
	records recordRepo
	owner   uuid.UUID
}

func (o *OwnerStore) Save(ctx context.Context, rec *domain.Record) error {
	return o.records.Save(ctx, o.owner, rec)
}

func (o *OwnerStore) Delete(ctx context.Context, id string) error {
	return o.records.Delete(ctx, o.owner, id)
}

func (o *OwnerStore) Owner() uuid.UUID { return o.owner }
