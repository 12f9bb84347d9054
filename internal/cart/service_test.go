package cart

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-backend/internal/repo/repotest"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

func newTestService(t *testing.T) (Service, *Repository, func() models.User, func(price int64) models.Variant) {
	t.Helper()
	conn := repotest.Open(t)
	repo := NewRepository(conn)
	svc, err := NewService(repo, db.NewFromGorm(conn))
	require.NoError(t, err)
	seedUser := func() models.User { return repotest.SeedUser(t, conn) }
	seedVariant := func(price int64) models.Variant { return repotest.SeedVariant(t, conn, price, 250) }
	return svc, repo, seedUser, seedVariant
}

func TestAddOrIncrementCreatesCartAndCapturesPrice(t *testing.T) {
	svc, _, seedUser, seedVariant := newTestService(t)
	ctx := context.Background()
	user := seedUser()
	variant := seedVariant(45000)

	cart, err := svc.AddOrIncrement(ctx, user.ID, variant.ID, 2)
	require.NoError(t, err)
	require.Equal(t, user.ID, cart.UserID)
	require.Equal(t, 2, cart.ItemCount)
	require.Len(t, cart.Lines, 1)
	require.Equal(t, int64(45000), cart.Lines[0].UnitPrice)

	cart, err = svc.AddOrIncrement(ctx, user.ID, variant.ID, 3)
	require.NoError(t, err)
	require.Len(t, cart.Lines, 1)
	require.Equal(t, 5, cart.Lines[0].Quantity)
	require.Equal(t, 5, cart.ItemCount)
}

func TestAddOrIncrementClampsToMax(t *testing.T) {
	svc, _, seedUser, seedVariant := newTestService(t)
	ctx := context.Background()
	user := seedUser()
	a := seedVariant(10000)
	b := seedVariant(20000)

	_, err := svc.AddOrIncrement(ctx, user.ID, a.ID, 15)
	require.NoError(t, err)
	cart, err := svc.AddOrIncrement(ctx, user.ID, a.ID, 10)
	require.NoError(t, err)
	require.Equal(t, MaxPerVariant, cart.Lines[0].Quantity)

	cart, err = svc.AddOrIncrement(ctx, user.ID, b.ID, 99)
	require.NoError(t, err)
	require.Len(t, cart.Lines, 2)
	require.Equal(t, 2*MaxPerVariant, cart.ItemCount)
}

func TestAddOrIncrementValidation(t *testing.T) {
	svc, _, seedUser, seedVariant := newTestService(t)
	ctx := context.Background()
	user := seedUser()
	variant := seedVariant(10000)

	_, err := svc.AddOrIncrement(ctx, user.ID, variant.ID, 0)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = svc.AddOrIncrement(ctx, user.ID, uuid.New(), 1)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestUpdateQuantityOwnershipAndClamp(t *testing.T) {
	svc, _, seedUser, seedVariant := newTestService(t)
	ctx := context.Background()
	owner := seedUser()
	other := seedUser()
	variant := seedVariant(10000)

	cart, err := svc.AddOrIncrement(ctx, owner.ID, variant.ID, 1)
	require.NoError(t, err)
	lineID := cart.Lines[0].ID

	cart, err = svc.UpdateQuantity(ctx, owner.ID, lineID, 50)
	require.NoError(t, err)
	require.Equal(t, MaxPerVariant, cart.ItemCount)

	cart, err = svc.UpdateQuantity(ctx, owner.ID, lineID, 4)
	require.NoError(t, err)
	require.Equal(t, 4, cart.ItemCount)

	_, err = svc.UpdateQuantity(ctx, owner.ID, lineID, 0)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = svc.UpdateQuantity(ctx, other.ID, lineID, 2)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	_, err = svc.UpdateQuantity(ctx, owner.ID, uuid.New(), 2)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestRemoveDeletesEmptyCart(t *testing.T) {
	svc, repo, seedUser, seedVariant := newTestService(t)
	ctx := context.Background()
	user := seedUser()
	a := seedVariant(10000)
	b := seedVariant(15000)

	_, err := svc.AddOrIncrement(ctx, user.ID, a.ID, 1)
	require.NoError(t, err)
	cart, err := svc.AddOrIncrement(ctx, user.ID, b.ID, 2)
	require.NoError(t, err)
	require.Len(t, cart.Lines, 2)

	cart, err = svc.Remove(ctx, user.ID, cart.Lines[0].ID)
	require.NoError(t, err)
	require.NotNil(t, cart)
	require.Equal(t, 2, cart.ItemCount)

	cart, err = svc.Remove(ctx, user.ID, cart.Lines[0].ID)
	require.NoError(t, err)
	require.Nil(t, cart)

	_, err = repo.FindByUser(ctx, user.ID)
	require.Error(t, err)

	view, err := svc.Get(ctx, user.ID)
	require.NoError(t, err)
	require.Empty(t, view.Lines)
	require.Zero(t, view.ItemCount)
}
