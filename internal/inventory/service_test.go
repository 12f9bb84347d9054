package inventory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/repo/repotest"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
)

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	conn := repotest.Open(t)
	emitter := outbox.NewService(outbox.NewRepository(conn), nil)
	svc, err := NewService(NewRepository(conn), db.NewFromGorm(conn), emitter)
	require.NoError(t, err)
	svc.(*service).now = func() time.Time { return repotest.Epoch }
	return svc, conn
}

func TestFindAllocatableBatchPicksOldestImport(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	variant := repotest.SeedVariant(t, conn, 50000, 200)

	newer := repotest.SeedBatch(t, conn, variant.ID, repotest.BatchSpec{Code: "B2", Quantity: 5, ImportDate: repotest.Epoch.AddDate(0, 0, -1)})
	older := repotest.SeedBatch(t, conn, variant.ID, repotest.BatchSpec{Code: "B1", Quantity: 2, ImportDate: repotest.Epoch.AddDate(0, 0, -3)})

	batch, err := svc.FindAllocatableBatch(ctx, variant.ID, 2, repotest.Epoch)
	require.NoError(t, err)
	require.Equal(t, older.ID, batch.ID)

	// B1 cannot cover three units, so the newer batch is used.
	batch, err = svc.FindAllocatableBatch(ctx, variant.ID, 3, repotest.Epoch)
	require.NoError(t, err)
	require.Equal(t, newer.ID, batch.ID)

	_, err = svc.FindAllocatableBatch(ctx, variant.ID, 6, repotest.Epoch)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestFindAllocatableBatchSkipsExpiredAndInactive(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	variant := repotest.SeedVariant(t, conn, 50000, 200)

	expired := repotest.Epoch.AddDate(0, 0, -1)
	repotest.SeedBatch(t, conn, variant.ID, repotest.BatchSpec{Code: "OLD", ImportDate: repotest.Epoch.AddDate(0, 0, -30), ExpiryDate: &expired})
	repotest.SeedBatch(t, conn, variant.ID, repotest.BatchSpec{Code: "PAUSED", ImportDate: repotest.Epoch.AddDate(0, 0, -20), Status: enums.BatchStatusPaused})
	future := repotest.Epoch.AddDate(0, 1, 0)
	good := repotest.SeedBatch(t, conn, variant.ID, repotest.BatchSpec{Code: "GOOD", ImportDate: repotest.Epoch.AddDate(0, 0, -10), ExpiryDate: &future})

	batch, err := svc.FindAllocatableBatch(ctx, variant.ID, 1, repotest.Epoch)
	require.NoError(t, err)
	require.Equal(t, good.ID, batch.ID)

	ok, err := svc.IsAvailable(ctx, variant.ID, repotest.Epoch)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = svc.IsAvailable(ctx, variant.ID, future.AddDate(0, 0, 1))
	require.NoError(t, err)
	require.False(t, ok)
}

func TestDecrementMarksSoldOutAndEmits(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	variant := repotest.SeedVariant(t, conn, 50000, 200)
	batch := repotest.SeedBatch(t, conn, variant.ID, repotest.BatchSpec{Quantity: 3})

	require.NoError(t, svc.Decrement(ctx, batch.ID, 2))
	reloaded := repotest.ReloadBatch(t, conn, batch.ID)
	require.Equal(t, 1, reloaded.RemainingQuantity)
	require.Equal(t, enums.BatchStatusActive, reloaded.Status)

	require.NoError(t, svc.Decrement(ctx, batch.ID, 1))
	reloaded = repotest.ReloadBatch(t, conn, batch.ID)
	require.Equal(t, 0, reloaded.RemainingQuantity)
	require.Equal(t, enums.BatchStatusSoldOut, reloaded.Status)

	var events []models.OutboxEvent
	require.NoError(t, conn.Where("event_type = ?", enums.EventStockBatchSoldOut).Find(&events).Error)
	require.Len(t, events, 1)
	require.Equal(t, batch.ID, events[0].AggregateID)
}

func TestDecrementContentionNeverOversells(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	variant := repotest.SeedVariant(t, conn, 50000, 200)
	batch := repotest.SeedBatch(t, conn, variant.ID, repotest.BatchSpec{Quantity: 5})

	allocated, conflicts := 0, 0
	for i := 0; i < 8; i++ {
		err := svc.Decrement(ctx, batch.ID, 1)
		switch {
		case err == nil:
			allocated++
		case pkgerrors.IsCode(err, pkgerrors.CodeConflict):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	require.Equal(t, 5, allocated)
	require.Equal(t, 3, conflicts)
	require.Equal(t, 0, repotest.ReloadBatch(t, conn, batch.ID).RemainingQuantity)
}

func TestDecrementInsufficientCarriesDetails(t *testing.T) {
	svc, conn := newTestService(t)
	variant := repotest.SeedVariant(t, conn, 50000, 200)
	batch := repotest.SeedBatch(t, conn, variant.ID, repotest.BatchSpec{Quantity: 1})

	err := svc.Decrement(context.Background(), batch.ID, 2)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))
	details, ok := pkgerrors.As(err).Details().(map[string]any)
	require.True(t, ok)
	require.Equal(t, ReasonInsufficientStock, details["reason"])

	require.True(t, pkgerrors.IsCode(svc.Decrement(context.Background(), batch.ID, 0), pkgerrors.CodeValidation))
}

func TestRestockKeepsSoldOutSticky(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	variant := repotest.SeedVariant(t, conn, 50000, 200)
	batch := repotest.SeedBatch(t, conn, variant.ID, repotest.BatchSpec{Quantity: 2})

	require.NoError(t, svc.Decrement(ctx, batch.ID, 2))
	require.NoError(t, svc.Restock(ctx, batch.ID, 2))

	reloaded := repotest.ReloadBatch(t, conn, batch.ID)
	require.Equal(t, 2, reloaded.RemainingQuantity)
	require.Equal(t, enums.BatchStatusSoldOut, reloaded.Status)

	_, err := svc.FindAllocatableBatch(ctx, variant.ID, 1, repotest.Epoch)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestRestockBounds(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	variant := repotest.SeedVariant(t, conn, 50000, 200)
	batch := repotest.SeedBatch(t, conn, variant.ID, repotest.BatchSpec{Quantity: 4, Remaining: repotest.Ptr(3)})

	err := svc.Restock(ctx, batch.ID, 2)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))
	require.Equal(t, 3, repotest.ReloadBatch(t, conn, batch.ID).RemainingQuantity)

	require.True(t, pkgerrors.IsCode(svc.Restock(ctx, uuid.New(), 1), pkgerrors.CodeNotFound))
}

func TestWithTxRollsBackTogether(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	variant := repotest.SeedVariant(t, conn, 50000, 200)
	a := repotest.SeedBatch(t, conn, variant.ID, repotest.BatchSpec{Quantity: 2})
	b := repotest.SeedBatch(t, conn, variant.ID, repotest.BatchSpec{Quantity: 1})

	err := db.NewFromGorm(conn).WithTx(ctx, func(tx *gorm.DB) error {
		ledger := svc.WithTx(tx)
		if err := ledger.Decrement(ctx, a.ID, 2); err != nil {
			return err
		}
		return ledger.Decrement(ctx, b.ID, 5)
	})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))
	require.Equal(t, 2, repotest.ReloadBatch(t, conn, a.ID).RemainingQuantity)
	require.Equal(t, enums.BatchStatusActive, repotest.ReloadBatch(t, conn, a.ID).Status)
}

func TestAvailabilitySumsAllocatableStock(t *testing.T) {
	svc, conn := newTestService(t)
	v1 := repotest.SeedVariant(t, conn, 10000, 100)
	v2 := repotest.SeedVariant(t, conn, 20000, 100)
	repotest.SeedBatch(t, conn, v1.ID, repotest.BatchSpec{Quantity: 4})
	repotest.SeedBatch(t, conn, v1.ID, repotest.BatchSpec{Quantity: 6, Remaining: repotest.Ptr(2)})
	repotest.SeedBatch(t, conn, v1.ID, repotest.BatchSpec{Quantity: 9, Status: enums.BatchStatusDiscontinued})

	got, err := svc.Availability(context.Background(), []uuid.UUID{v1.ID, v2.ID}, repotest.Epoch)
	require.NoError(t, err)
	require.Equal(t, int64(6), got[v1.ID])
	require.Equal(t, int64(0), got[v2.ID])
}

func TestCreateBatch(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	variant := repotest.SeedVariant(t, conn, 10000, 100)
	expiry := repotest.Epoch.AddDate(0, 6, 0)

	batch, err := svc.CreateBatch(ctx, CreateBatchInput{
		BatchCode:   " LOT-1 ",
		VariantID:   variant.ID,
		ImportPrice: 7000,
		Quantity:    12,
		ExpiryDate:  &expiry,
	})
	require.NoError(t, err)
	require.Equal(t, "LOT-1", batch.BatchCode)
	require.Equal(t, 12, batch.RemainingQuantity)
	require.Equal(t, enums.BatchStatusActive, batch.Status)

	_, err = svc.CreateBatch(ctx, CreateBatchInput{BatchCode: "LOT-1", VariantID: variant.ID, Quantity: 1})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))

	_, err = svc.CreateBatch(ctx, CreateBatchInput{BatchCode: "LOT-2", VariantID: uuid.New(), Quantity: 1})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	past := repotest.Epoch.AddDate(0, 0, -1)
	_, err = svc.CreateBatch(ctx, CreateBatchInput{BatchCode: "LOT-3", VariantID: variant.ID, Quantity: 1, ExpiryDate: &past})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestSetBatchStatusTransitions(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	variant := repotest.SeedVariant(t, conn, 10000, 100)
	batch := repotest.SeedBatch(t, conn, variant.ID, repotest.BatchSpec{Quantity: 2})

	updated, err := svc.SetBatchStatus(ctx, batch.ID, enums.BatchStatusPaused)
	require.NoError(t, err)
	require.Equal(t, enums.BatchStatusPaused, updated.Status)

	_, err = svc.SetBatchStatus(ctx, batch.ID, enums.BatchStatusActive)
	require.NoError(t, err)

	_, err = svc.SetBatchStatus(ctx, batch.ID, enums.BatchStatusDiscontinued)
	require.NoError(t, err)

	_, err = svc.SetBatchStatus(ctx, batch.ID, enums.BatchStatusActive)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))

	_, err = svc.SetBatchStatus(ctx, batch.ID, enums.BatchStatusSoldOut)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	empty := repotest.SeedBatch(t, conn, variant.ID, repotest.BatchSpec{Quantity: 2, Remaining: repotest.Ptr(0), Status: enums.BatchStatusPaused})
	_, err = svc.SetBatchStatus(ctx, empty.ID, enums.BatchStatusActive)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))
}
