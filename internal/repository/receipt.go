package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/josh-kwaku/rice-ledger/internal/domain"
)

// SaveImport inserts records as new together with the receipt for the
// import key, in one transaction that notifies once. A key still holding an
// unexpired receipt fails with domain.ErrImportKeyTaken and writes nothing;
// concurrent imports under one key block on the receipt row, so only the
// first commits.
func (r *RecordRepository) SaveImport(ctx context.Context, owner uuid.UUID, records []domain.Record, receipt domain.ImportReceipt) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("SaveImport: begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO import_receipts (owner_id, idempotency_key, content_hash, imported, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (owner_id, idempotency_key) DO UPDATE
		SET content_hash = EXCLUDED.content_hash,
			imported = EXCLUDED.imported,
			created_at = EXCLUDED.created_at,
			expires_at = EXCLUDED.expires_at
		WHERE import_receipts.expires_at < now()`,
		owner, receipt.Key, receipt.ContentHash, len(records), receipt.CreatedAt, receipt.ExpiresAt,
	)
	if err != nil {
		return 0, fmt.Errorf("SaveImport: receipt: %w", err)
	}
	if err := requireRow(res); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return 0, fmt.Errorf("SaveImport: %w", domain.ErrImportKeyTaken)
		}
		return 0, fmt.Errorf("SaveImport: receipt: %w", err)
	}

	if err := insertAll(ctx, tx, owner, records); err != nil {
		return 0, fmt.Errorf("SaveImport: %w", err)
	}
	if err := r.notify(ctx, tx, owner); err != nil {
		return 0, fmt.Errorf("SaveImport: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("SaveImport: commit: %w", err)
	}
	return len(records), nil
}

// FindReceipt returns the unexpired receipt stored under key, or nil when
// there is none.
func (r *RecordRepository) FindReceipt(ctx context.Context, owner uuid.UUID, key string) (*domain.ImportReceipt, error) {
	var rc domain.ImportReceipt
	err := r.db.QueryRowContext(ctx,
		`SELECT idempotency_key, content_hash, imported, created_at, expires_at
		FROM import_receipts
		WHERE owner_id = $1 AND idempotency_key = $2 AND expires_at > now()`,
		owner, key,
	).Scan(&rc.Key, &rc.ContentHash, &rc.Imported, &rc.CreatedAt, &rc.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("FindReceipt: %w", err)
	}
	return &rc, nil
}

// CleanExpiredReceipts drops receipts past their expiry and returns how many
// were removed.
func (r *RecordRepository) CleanExpiredReceipts(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM import_receipts WHERE expires_at < now()`)
	if err != nil {
		return 0, fmt.Errorf("CleanExpiredReceipts: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("CleanExpiredReceipts: rows affected: %w", err)
	}
	return n, nil
}
