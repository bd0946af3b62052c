package testutil

import (
	"context"
	"database/sql"
	"testing"

	"github.com/google/uuid"

	"github.com/josh-kwaku/rice-ledger/internal/calc"
	"github.com/josh-kwaku/rice-ledger/internal/domain"
	"github.com/josh-kwaku/rice-ledger/internal/repository"
)

var (
	OwnerA = uuid.MustParse("00000000-0000-0000-0000-00000000000a")
	OwnerB = uuid.MustParse("00000000-0000-0000-0000-00000000000b")
)

// SampleRecords returns a few realistic draft records, already derived.
func SampleRecords(c *calc.Calculator) []domain.Record {
	raw := []domain.Record{
		{
			Date: "2025-02-02", Miller: "Sri Balaji Mills", Place: "Nellore", Brand: "Golden Swan",
			Shop: "Laxmi Traders", Area: "Guntur", BillNo: "1042", Qty: "38.16", Rate: "3600",
			Freight: "4204.2", CommissionPct: "2%", PaymentDate: "2025-02-23", ChequeAmount: "129000", Bank: "SBI",
		},
		{
			Date: "05-03-2025", Miller: "Annapurna Rice Mill", Place: "Kavali", Brand: "Lotus",
			Shop: "Venkat Stores", Area: "Ongole", BillNo: "1043", Qty: "57", Rate: "7300", SellerCommission: "500",
		},
		{
			Date: "2025-01-20", Miller: "Balaji Agro", Shop: "Sai Ram Kirana", Area: "Guntur", Qty: "12", Rate: "4100",
		},
	}
	for i := range raw {
		raw[i].Draft = true
		raw[i] = c.Apply(raw[i])
	}
	return raw
}

// SeedRecords stores records for owner and returns them with their new IDs.
func SeedRecords(t *testing.T, db *sql.DB, owner uuid.UUID, records []domain.Record) []domain.Record {
	t.Helper()

	repo := repository.NewRecordRepository(db, "")
	out := append([]domain.Record(nil), records...)
	if _, err := repo.SaveBatch(context.Background(), owner, out); err != nil {
		t.Fatalf("seed records: %v", err)
	}
	return out
}
