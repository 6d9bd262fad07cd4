package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"craftstock/backend/internal/domain"
	"craftstock/backend/internal/store"
)

func TestWithTxRollsBackOnError(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.AdjustMaterialStock(ctx, SeedMaterialOak, dec("100"), time.Now()); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	oak, err := s.GetMaterial(ctx, SeedMaterialOak)
	require.NoError(t, err)
	assert.Equal(t, "40", oak.CurrentStock.String())
}

func TestWithTxCommitsOnSuccess(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	err := s.WithTx(ctx, func(tx store.Tx) error {
		return tx.AdjustLotQuantity(ctx, SeedLotTable, dec("-1"), time.Now())
	})
	require.NoError(t, err)

	lot, err := s.GetInventoryItem(ctx, SeedLotTable)
	require.NoError(t, err)
	assert.Equal(t, "2", lot.Quantity.String())
	assert.Equal(t, "Dining table", lot.ModelName)
}

func TestLotsForModelsOrdersOldestFirst(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, s.CreateInventoryItem(ctx, domain.InventoryItem{ID: "lot-2", ModelID: SeedModelTable, Quantity: dec("1"), CreatedAt: now}))
	require.NoError(t, s.CreateInventoryItem(ctx, domain.InventoryItem{ID: "lot-3", ModelID: SeedModelTable, Quantity: dec("1"), CreatedAt: now}))

	lots, err := s.LotsForModels(ctx, []string{SeedModelTable, "missing"})
	require.NoError(t, err)
	require.Len(t, lots[SeedModelTable], 3)
	assert.Equal(t, SeedLotTable, lots[SeedModelTable][0].ID)
	assert.Equal(t, "lot-3", lots[SeedModelTable][2].ID)
	assert.Empty(t, lots["missing"])

	listed, err := s.ListInventory(ctx)
	require.NoError(t, err)
	assert.Equal(t, "lot-3", listed[0].ID)
}

func TestDeleteComponentInUseConflicts(t *testing.T) {
	s := NewSeeded()

	err := s.DeleteComponent(context.Background(), SeedComponentLeg)

	require.ErrorIs(t, err, store.ErrConflict)
}

func TestDeleteSupplierClearsMaterialReference(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	require.NoError(t, s.DeleteSupplier(ctx, SeedSupplierTimber))

	oak, err := s.GetMaterial(ctx, SeedMaterialOak)
	require.NoError(t, err)
	assert.Nil(t, oak.SupplierID)
	assert.Empty(t, oak.SupplierName)
}

func TestComponentLinksCarryCurrentMaterialCost(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	links, err := s.ListComponentMaterials(ctx, SeedComponentLeg)
	require.NoError(t, err)
	require.Len(t, links, 2)
	assert.Equal(t, "Oak board", links[0].MaterialName)
	assert.Equal(t, "12.5", links[0].MaterialCost.String())
}

func TestResetRestoresSeed(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	require.NoError(t, s.DeleteInventoryItem(ctx, SeedLotTable))
	require.NoError(t, s.Reset(ctx))

	_, err := s.GetInventoryItem(ctx, SeedLotTable)
	assert.NoError(t, err)
}

func TestMissingRowsAreNotFound(t *testing.T) {
	s := New()
	ctx := context.Background()

	_, err := s.GetTransaction(ctx, "nope")
	assert.ErrorIs(t, err, store.ErrNotFound)
	err = s.AdjustMaterialStock(ctx, "nope", dec("1"), time.Now())
	assert.ErrorIs(t, err, store.ErrNotFound)
	err = s.WithTx(ctx, func(tx store.Tx) error {
		return tx.LockTransaction(ctx, "nope")
	})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestTruncateKeepsUsers(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	require.NoError(t, s.Truncate(ctx))

	suppliers, err := s.ListSuppliers(ctx)
	require.NoError(t, err)
	assert.Empty(t, suppliers)
	materials, err := s.ListMaterials(ctx)
	require.NoError(t, err)
	assert.Empty(t, materials)
	_, err = s.GetInventoryItem(ctx, SeedLotTable)
	assert.ErrorIs(t, err, store.ErrNotFound)

	admin, err := s.GetUserByUsername(ctx, "admin")
	require.NoError(t, err)
	assert.Equal(t, SeedUserAdmin, admin.ID)

	require.NoError(t, s.Reset(ctx))
	_, err = s.GetInventoryItem(ctx, SeedLotTable)
	assert.NoError(t, err)
}
