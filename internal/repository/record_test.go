package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josh-kwaku/rice-ledger/internal/calc"
	"github.com/josh-kwaku/rice-ledger/internal/domain"
	"github.com/josh-kwaku/rice-ledger/internal/repository"
	"github.com/josh-kwaku/rice-ledger/internal/testutil"
)

func TestRecordRepository(t *testing.T) {
	db, _ := testutil.SetupTestDB(t)
	repo := repository.NewRecordRepository(db, "")
	ctx := context.Background()
	c := calc.New(nil)

	seeded := testutil.SeedRecords(t, db, testutil.OwnerA, testutil.SampleRecords(c))
	for _, r := range seeded {
		assert.False(t, r.Draft)
		_, err := uuid.Parse(r.ID)
		require.NoError(t, err)
	}

	t.Run("list orders by normalized date descending", func(t *testing.T) {
		list, err := repo.List(ctx, testutil.OwnerA)
		require.NoError(t, err)
		require.Len(t, list, 3)
		assert.Equal(t, "05-03-2025", list[0].Date)
		assert.Equal(t, "2025-02-02", list[1].Date)
		assert.Equal(t, "2025-01-20", list[2].Date)
		assert.Equal(t, "137376.00", list[1].Amount)
	})

	t.Run("owners are isolated", func(t *testing.T) {
		list, err := repo.List(ctx, testutil.OwnerB)
		require.NoError(t, err)
		assert.Empty(t, list)

		_, err = repo.Get(ctx, testutil.OwnerB, seeded[0].ID)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("save creates drafts and updates existing", func(t *testing.T) {
		rec := c.NewRecord("")
		require.NoError(t, repo.Save(ctx, testutil.OwnerB, &rec))
		assert.False(t, rec.Draft)
		_, err := uuid.Parse(rec.ID)
		require.NoError(t, err)

		rec.Miller = "Lakshmi Rice Mill"
		require.NoError(t, repo.Save(ctx, testutil.OwnerB, &rec))

		got, err := repo.Get(ctx, testutil.OwnerB, rec.ID)
		require.NoError(t, err)
		assert.Equal(t, "Lakshmi Rice Mill", got.Miller)
		assert.Equal(t, rec.Date, got.Date)
	})

	t.Run("update of unknown record", func(t *testing.T) {
		rec := domain.Record{ID: uuid.NewString(), Miller: "ghost"}
		assert.ErrorIs(t, repo.Save(ctx, testutil.OwnerA, &rec), domain.ErrNotFound)

		rec.ID = "not-a-uuid"
		assert.ErrorIs(t, repo.Save(ctx, testutil.OwnerA, &rec), domain.ErrNotFound)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, repo.Delete(ctx, testutil.OwnerA, seeded[2].ID))
		_, err := repo.Get(ctx, testutil.OwnerA, seeded[2].ID)
		assert.ErrorIs(t, err, domain.ErrNotFound)
		assert.ErrorIs(t, repo.Delete(ctx, testutil.OwnerA, seeded[2].ID), domain.ErrNotFound)
	})

	t.Run("update batch skips deleted records", func(t *testing.T) {
		batch := []domain.Record{seeded[0], seeded[1], seeded[2]}
		batch[0].Bank = "HDFC"
		batch[1].Bank = "ICICI"

		n, err := repo.UpdateBatch(ctx, testutil.OwnerA, batch)
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		got, err := repo.Get(ctx, testutil.OwnerA, seeded[1].ID)
		require.NoError(t, err)
		assert.Equal(t, "ICICI", got.Bank)

		n, err = repo.UpdateBatch(ctx, testutil.OwnerA, nil)
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("list owners", func(t *testing.T) {
		owners, err := repo.ListOwners(ctx)
		require.NoError(t, err)
		assert.ElementsMatch(t, []uuid.UUID{testutil.OwnerA, testutil.OwnerB}, owners)
	})
}

func TestRecordRepositoryNotifies(t *testing.T) {
	db, dsn := testutil.SetupTestDB(t)
	repo := repository.NewRecordRepository(db, "")
	ctx := context.Background()

	l := pq.NewListener(dsn, time.Second, 10*time.Second, nil)
	defer l.Close()
	require.NoError(t, l.Listen(repository.DefaultNotifyChannel))

	rec := calc.New(nil).NewRecord("")
	require.NoError(t, repo.Save(ctx, testutil.OwnerA, &rec))

	select {
	case n := <-l.Notify:
		require.NotNil(t, n)
		assert.Equal(t, testutil.OwnerA.String(), n.Extra)
	case <-time.After(5 * time.Second):
		t.Fatal("no notification received")
	}
}

func TestImportReceipts(t *testing.T) {
	db, _ := testutil.SetupTestDB(t)
	repo := repository.NewRecordRepository(db, "")
	ctx := context.Background()
	c := calc.New(nil)
	now := time.Now().UTC()

	receipt := domain.ImportReceipt{Key: "import-1", ContentHash: "abc", CreatedAt: now, ExpiresAt: now.Add(time.Hour)}

	t.Run("save stores records and receipt", func(t *testing.T) {
		n, err := repo.SaveImport(ctx, testutil.OwnerA, testutil.SampleRecords(c), receipt)
		require.NoError(t, err)
		assert.Equal(t, 3, n)

		rc, err := repo.FindReceipt(ctx, testutil.OwnerA, "import-1")
		require.NoError(t, err)
		require.NotNil(t, rc)
		assert.Equal(t, "abc", rc.ContentHash)
		assert.Equal(t, 3, rc.Imported)
	})

	t.Run("taken key writes nothing", func(t *testing.T) {
		_, err := repo.SaveImport(ctx, testutil.OwnerA, testutil.SampleRecords(c), receipt)
		assert.ErrorIs(t, err, domain.ErrImportKeyTaken)

		list, err := repo.List(ctx, testutil.OwnerA)
		require.NoError(t, err)
		assert.Len(t, list, 3)
	})

	t.Run("keys are scoped to the owner", func(t *testing.T) {
		rc, err := repo.FindReceipt(ctx, testutil.OwnerB, "import-1")
		require.NoError(t, err)
		assert.Nil(t, rc)

		n, err := repo.SaveImport(ctx, testutil.OwnerB, testutil.SampleRecords(c)[:1], receipt)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})

	t.Run("expired receipts are ignored and swept", func(t *testing.T) {
		old := domain.ImportReceipt{Key: "import-2", ContentHash: "old", CreatedAt: now.Add(-2 * time.Hour), ExpiresAt: now.Add(-time.Hour)}
		_, err := repo.SaveImport(ctx, testutil.OwnerA, testutil.SampleRecords(c)[:1], old)
		require.NoError(t, err)

		rc, err := repo.FindReceipt(ctx, testutil.OwnerA, "import-2")
		require.NoError(t, err)
		assert.Nil(t, rc)

		fresh := domain.ImportReceipt{Key: "import-2", ContentHash: "new", CreatedAt: now, ExpiresAt: now.Add(time.Hour)}
		_, err = repo.SaveImport(ctx, testutil.OwnerA, testutil.SampleRecords(c)[:1], fresh)
		require.NoError(t, err)
		rc, err = repo.FindReceipt(ctx, testutil.OwnerA, "import-2")
		require.NoError(t, err)
		require.NotNil(t, rc)
		assert.Equal(t, "new", rc.ContentHash)

		expired := domain.ImportReceipt{Key: "import-3", ContentHash: "x", CreatedAt: now.Add(-2 * time.Hour), ExpiresAt: now.Add(-time.Hour)}
		_, err = repo.SaveImport(ctx, testutil.OwnerB, testutil.SampleRecords(c)[:1], expired)
		require.NoError(t, err)
		n, err := repo.CleanExpiredReceipts(ctx)
		require.NoError(t, err)
		assert.EqualValues(t, 1, n)
	})
}
