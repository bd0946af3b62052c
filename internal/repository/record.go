package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/josh-kwaku/rice-ledger/internal/calc"
	"github.com/josh-kwaku/rice-ledger/internal/domain"
)

const DefaultNotifyChannel = "record_changes"

const recordColumns = `id, fields`

type scanner interface {
	Scan(dest ...any) error
}

// RecordRepository stores ledger records as one jsonb document per row.
// Every write notifies the owner id on the change channel when its
// transaction commits.
type RecordRepository struct {
	db      *sql.DB
	channel string
}

func NewRecordRepository(db *sql.DB, channel string) *RecordRepository {
	if channel == "" {
		channel = DefaultNotifyChannel
	}
	return &RecordRepository{db: db, channel: channel}
}

// Save inserts r when it is a draft, assigning a new ID, and updates the
// stored fields otherwise.
func (r *RecordRepository) Save(ctx context.Context, owner uuid.UUID, rec *domain.Record) error {
	fields, err := json.Marshal(rec.Fields())
	if err != nil {
		return fmt.Errorf("Save: marshal fields: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("Save: begin tx: %w", err)
	}
	defer tx.Rollback()

	if rec.Draft || rec.ID == "" {
		id := uuid.New()
		if err := insertRecord(ctx, tx, id, owner, rec, fields); err != nil {
			return fmt.Errorf("Save: %w", err)
		}
		rec.ID = id.String()
		rec.Draft = false
	} else {
		if err := updateRecord(ctx, tx, owner, rec, fields); err != nil {
			return fmt.Errorf("Save: %w", err)
		}
	}

	if err := r.notify(ctx, tx, owner); err != nil {
		return fmt.Errorf("Save: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("Save: commit: %w", err)
	}
	return nil
}

// SaveBatch inserts every record as new in one transaction and notifies
// once. It returns the number of records written.
func (r *RecordRepository) SaveBatch(ctx context.Context, owner uuid.UUID, records []domain.Record) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("SaveBatch: begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := insertAll(ctx, tx, owner, records); err != nil {
		return 0, fmt.Errorf("SaveBatch: %w", err)
	}
	if err := r.notify(ctx, tx, owner); err != nil {
		return 0, fmt.Errorf("SaveBatch: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("SaveBatch: commit: %w", err)
	}
	return len(records), nil
}

// UpdateBatch rewrites existing records in one transaction and notifies
// once. Records deleted in the meantime are skipped. It returns the number
// of records updated.
func (r *RecordRepository) UpdateBatch(ctx context.Context, owner uuid.UUID, records []domain.Record) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("UpdateBatch: begin tx: %w", err)
	}
	defer tx.Rollback()

	n := 0
	for i := range records {
		fields, err := json.Marshal(records[i].Fields())
		if err != nil {
			return 0, fmt.Errorf("UpdateBatch: marshal fields: %w", err)
		}
		err = updateRecord(ctx, tx, owner, &records[i], fields)
		if errors.Is(err, domain.ErrNotFound) {
			continue
		}
		if err != nil {
			return 0, fmt.Errorf("UpdateBatch: record %s: %w", records[i].ID, err)
		}
		n++
	}
	if n == 0 {
		return 0, nil
	}

	if err := r.notify(ctx, tx, owner); err != nil {
		return 0, fmt.Errorf("UpdateBatch: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("UpdateBatch: commit: %w", err)
	}
	return n, nil
}

func (r *RecordRepository) Delete(ctx context.Context, owner uuid.UUID, id string) error {
	rid, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("Delete: %w", domain.ErrNotFound)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("Delete: begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`DELETE FROM records WHERE id = $1 AND owner_id = $2`, rid, owner,
	)
	if err != nil {
		return fmt.Errorf("Delete: %w", err)
	}
	if err := requireRow(res); err != nil {
		return fmt.Errorf("Delete: %w", err)
	}
	if err := r.notify(ctx, tx, owner); err != nil {
		return fmt.Errorf("Delete: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("Delete: commit: %w", err)
	}
	return nil
}

func (r *RecordRepository) Get(ctx context.Context, owner uuid.UUID, id string) (*domain.Record, error) {
	rid, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("Get: %w", domain.ErrNotFound)
	}
	row := r.db.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM records WHERE id = $1 AND owner_id = $2`, rid, owner,
	)
	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("Get: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("Get: %w", err)
	}
	return rec, nil
}

// List returns the owner's records, most recent transaction date first.
func (r *RecordRepository) List(ctx context.Context, owner uuid.UUID) ([]domain.Record, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+recordColumns+` FROM records
		WHERE owner_id = $1
		ORDER BY txn_date DESC, created_at DESC`,
		owner,
	)
	if err != nil {
		return nil, fmt.Errorf("List: %w", err)
	}
	defer rows.Close()

	records := []domain.Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("List: scan: %w", err)
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("List: rows: %w", err)
	}
	return records, nil
}

// ListOwners returns every owner that has at least one record.
func (r *RecordRepository) ListOwners(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT owner_id FROM records`)
	if err != nil {
		return nil, fmt.Errorf("ListOwners: %w", err)
	}
	defer rows.Close()

	var owners []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("ListOwners: scan: %w", err)
		}
		owners = append(owners, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListOwners: rows: %w", err)
	}
	return owners, nil
}

func insertRecord(ctx context.Context, tx *sql.Tx, id, owner uuid.UUID, rec *domain.Record, fields []byte) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO records (id, owner_id, txn_date, fields) VALUES ($1, $2, $3, $4)`,
		id, owner, calc.NormalizeDate(rec.Date), fields,
	)
	if err != nil {
		return fmt.Errorf("insert: %w", err)
	}
	return nil
}

// insertAll inserts every record as new, assigning IDs in place.
func insertAll(ctx context.Context, tx *sql.Tx, owner uuid.UUID, records []domain.Record) error {
	for i := range records {
		fields, err := json.Marshal(records[i].Fields())
		if err != nil {
			return fmt.Errorf("marshal fields: %w", err)
		}
		id := uuid.New()
		if err := insertRecord(ctx, tx, id, owner, &records[i], fields); err != nil {
			return err
		}
		records[i].ID = id.String()
		records[i].Draft = false
	}
	return nil
}

func updateRecord(ctx context.Context, tx *sql.Tx, owner uuid.UUID, rec *domain.Record, fields []byte) error {
	id, err := uuid.Parse(rec.ID)
	if err != nil {
		return domain.ErrNotFound
	}
	res, err := tx.ExecContext(ctx,
		`UPDATE records SET txn_date = $3, fields = $4, updated_at = now()
		WHERE id = $1 AND owner_id = $2`,
		id, owner, calc.NormalizeDate(rec.Date), fields,
	)
	if err != nil {
		return fmt.Errorf("update: %w", err)
	}
	return requireRow(res)
}

func (r *RecordRepository) notify(ctx context.Context, tx *sql.Tx, owner uuid.UUID) error {
	if _, err := tx.ExecContext(ctx, `SELECT pg_notify($1, $2)`, r.channel, owner.String()); err != nil {
		return fmt.Errorf("notify: %w", err)
	}
	return nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanRecord(s scanner) (*domain.Record, error) {
	var (
		id     uuid.UUID
		fields []byte
	)
	if err := s.Scan(&id, &fields); err != nil {
		return nil, err
	}
	var m map[string]string
	if err := json.Unmarshal(fields, &m); err != nil {
		return nil, fmt.Errorf("decode fields: %w", err)
	}
	rec := domain.RecordFromFields(id.String(), m)
	return &rec, nil
}
