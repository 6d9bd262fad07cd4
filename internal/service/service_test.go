package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"craftstock/backend/internal/cache"
	"craftstock/backend/internal/domain"
	"craftstock/backend/internal/store"
	"craftstock/backend/internal/store/memory"
)

func newTestService() *Service {
	return New(memory.NewSeeded(), cache.NoopCostCache{}, Options{AllowNegativeStock: true})
}

func newEmptyService(opts Options) (*Service, *memory.Store) {
	repo := memory.New()
	return New(repo, cache.NoopCostCache{}, opts), repo
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func ptr[T any](v T) *T {
	return &v
}

func today() *domain.Date {
	d := domain.NewDate(time.Now().UTC())
	return &d
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal, why ...string) {
	t.Helper()
	msg := fmt.Sprintf("expected %s, got %s", want, got)
	if len(why) > 0 {
		msg = strings.Join(why, " ") + ": " + msg
	}
	assert.True(t, got.Equal(dec(want)), msg)
}

type workshop struct {
	material  domain.Material
	component domain.Component
	model     domain.ProductModel
	supplier  domain.Supplier
	customer  domain.Customer
}

// buildWorkshop creates a material at 10 per unit, a component using two
// units of it and a model using three components.
func buildWorkshop(t *testing.T, svc *Service, stock string) workshop {
	t.Helper()
	ctx := context.Background()

	supplier, err := svc.CreateSupplier(ctx, domain.SupplierInput{Name: "Timber Co"})
	require.NoError(t, err)
	customer, err := svc.CreateCustomer(ctx, domain.CustomerInput{Name: "Jane"})
	require.NoError(t, err)
	material, err := svc.CreateMaterial(ctx, domain.MaterialInput{
		Name:         "Walnut",
		CostPerUnit:  dec("10"),
		CurrentStock: dec(stock),
		SupplierID:   &supplier.ID,
	})
	require.NoError(t, err)
	component, err := svc.CreateComponent(ctx, domain.ComponentInput{
		Name: "Shelf",
		Materials: &[]domain.ComponentMaterialInput{
			{MaterialID: material.ID, Quantity: dec("2")},
		},
	})
	require.NoError(t, err)
	model, err := svc.CreateModel(ctx, domain.ModelInput{
		Name:         "Bookcase",
		SellingPrice: dec("199"),
		Components: &[]domain.ModelComponentInput{
			{ComponentID: component.ID, Quantity: dec("3")},
		},
	})
	require.NoError(t, err)
	return workshop{material: material, component: component, model: model, supplier: supplier, customer: customer}
}

func TestCostRollUpAndSaleCompletion(t *testing.T) {
	svc, _ := newEmptyService(Options{AllowNegativeStock: true})
	ctx := context.Background()
	w := buildWorkshop(t, svc, "0")

	cost, err := svc.ComputeComponentCost(ctx, w.component.ID)
	require.NoError(t, err)
	assertDecimal(t, "20", cost)
	assertDecimal(t, "60", w.model.ProductionCost)

	lot, err := svc.CreateInventoryItem(ctx, domain.InventoryInput{ModelID: w.model.ID, Quantity: dec("5")})
	require.NoError(t, err)

	sale, err := svc.CreateTransaction(ctx, domain.TransactionInput{
		TransactionType: "sale",
		Date:            today(),
		CustomerID:      &w.customer.ID,
		Status:          "pending",
		Items: []domain.TransactionItemInput{
			{ProductModelID: &w.model.ID, Quantity: dec("1"), UnitPrice: dec("199")},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, sale.Status)

	pending, err := svc.GetInventoryItem(ctx, lot.ID)
	require.NoError(t, err)
	assertDecimal(t, "5", pending.Quantity, "pending sale must not touch stock")

	completed, err := svc.TransitionStatus(ctx, sale.ID, "completed")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, completed.Status)

	after, err := svc.GetInventoryItem(ctx, lot.ID)
	require.NoError(t, err)
	assertDecimal(t, "4", after.Quantity)
}

func TestPurchaseImmediateEffectAndDeleteReversal(t *testing.T) {
	svc, _ := newEmptyService(Options{AllowNegativeStock: true})
	ctx := context.Background()
	w := buildWorkshop(t, svc, "100")

	purchase, err := svc.CreateTransaction(ctx, domain.TransactionInput{
		TransactionType: "purchase",
		Date:            today(),
		SupplierID:      &w.supplier.ID,
		Items: []domain.TransactionItemInput{
			{MaterialID: &w.material.ID, Quantity: dec("50"), UnitPrice: dec("9.5")},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, purchase.Status, "immediate effect stores completed")
	assertDecimal(t, "475", purchase.TotalAmount)

	material, err := svc.GetMaterial(ctx, w.material.ID)
	require.NoError(t, err)
	assertDecimal(t, "150", material.CurrentStock)

	require.NoError(t, svc.DeleteTransaction(ctx, purchase.ID))
	material, err = svc.GetMaterial(ctx, w.material.ID)
	require.NoError(t, err)
	assertDecimal(t, "100", material.CurrentStock, "stock restored")

	_, err = svc.GetTransaction(ctx, purchase.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestTransitionIsAtomicWhenOneItemFails(t *testing.T) {
	svc, _ := newEmptyService(Options{AllowNegativeStock: true})
	ctx := context.Background()
	w := buildWorkshop(t, svc, "0")

	lot, err := svc.CreateInventoryItem(ctx, domain.InventoryInput{ModelID: w.model.ID, Quantity: dec("5")})
	require.NoError(t, err)
	empty, err := svc.CreateModel(ctx, domain.ModelInput{Name: "Stool"})
	require.NoError(t, err)

	sale, err := svc.CreateTransaction(ctx, domain.TransactionInput{
		TransactionType: "sale",
		Date:            today(),
		CustomerID:      &w.customer.ID,
		Status:          "pending",
		Items: []domain.TransactionItemInput{
			{ProductModelID: &w.model.ID, Quantity: dec("1"), UnitPrice: dec("199")},
			{ProductModelID: &empty.ID, Quantity: dec("1"), UnitPrice: dec("49")},
		},
	})
	require.NoError(t, err)

	_, err = svc.TransitionStatus(ctx, sale.ID, "completed")
	require.ErrorIs(t, err, store.ErrInsufficientStock)

	stored, err := svc.GetTransaction(ctx, sale.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, stored.Status)
	untouched, err := svc.GetInventoryItem(ctx, lot.ID)
	require.NoError(t, err)
	assertDecimal(t, "5", untouched.Quantity)
}

func TestLifecycleRejectsInvalidTransitions(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	customerID := memory.SeedCustomerPrivate
	modelID := memory.SeedModelTable

	_, err := svc.CreateTransaction(ctx, domain.TransactionInput{
		TransactionType: "sale",
		Date:            today(),
		CustomerID:      &customerID,
		Status:          "cancelled",
		Items:           []domain.TransactionItemInput{{ProductModelID: &modelID, Quantity: dec("1")}},
	})
	require.ErrorIs(t, err, store.ErrInvalid, "cancelled at creation")

	sale, err := svc.CreateTransaction(ctx, domain.TransactionInput{
		TransactionType: "sale",
		Date:            today(),
		CustomerID:      &customerID,
		Status:          "pending",
		Items:           []domain.TransactionItemInput{{ProductModelID: &modelID, Quantity: dec("1")}},
	})
	require.NoError(t, err)

	same, err := svc.TransitionStatus(ctx, sale.ID, "pending")
	require.NoError(t, err, "pending to pending is a no-op")
	assert.Equal(t, domain.StatusPending, same.Status)

	cancelled, err := svc.TransitionStatus(ctx, sale.ID, "cancelled")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, cancelled.Status)

	_, err = svc.TransitionStatus(ctx, sale.ID, "completed")
	assert.ErrorIs(t, err, store.ErrInvalid, "terminal state")

	lot, err := svc.GetInventoryItem(ctx, memory.SeedLotTable)
	require.NoError(t, err)
	assertDecimal(t, "3", lot.Quantity, "cancelled sale must not touch stock")

	_, err = svc.TransitionStatus(ctx, "missing", "completed")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestConcurrentTransitionsApplyStockOnce(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	customerID := memory.SeedCustomerPrivate
	modelID := memory.SeedModelTable

	sale, err := svc.CreateTransaction(ctx, domain.TransactionInput{
		TransactionType: "sale",
		Date:            today(),
		CustomerID:      &customerID,
		Status:          "pending",
		Items:           []domain.TransactionItemInput{{ProductModelID: &modelID, Quantity: dec("1"), UnitPrice: dec("249")}},
	})
	require.NoError(t, err)

	const workers = 8
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.TransitionStatus(ctx, sale.ID, "completed")
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, store.ErrInvalid)
	}
	assert.Equal(t, 1, succeeded)

	lot, err := svc.GetInventoryItem(ctx, memory.SeedLotTable)
	require.NoError(t, err)
	assertDecimal(t, "2", lot.Quantity, "stock effect applied exactly once")
}

func TestCreateTransactionValidation(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	materialID := memory.SeedMaterialOak
	modelID := memory.SeedModelTable
	supplierID := memory.SeedSupplierTimber

	cases := []struct {
		name string
		req  domain.TransactionInput
	}{
		{"missing date", domain.TransactionInput{TransactionType: "purchase", SupplierID: &supplierID, Items: []domain.TransactionItemInput{{MaterialID: &materialID, Quantity: dec("1")}}}},
		{"unknown type", domain.TransactionInput{TransactionType: "gift", Date: today(), Items: []domain.TransactionItemInput{{MaterialID: &materialID, Quantity: dec("1")}}}},
		{"no items", domain.TransactionInput{TransactionType: "purchase", Date: today(), SupplierID: &supplierID}},
		{"purchase without supplier", domain.TransactionInput{TransactionType: "purchase", Date: today(), Items: []domain.TransactionItemInput{{MaterialID: &materialID, Quantity: dec("1")}}}},
		{"sale without customer", domain.TransactionInput{TransactionType: "sale", Date: today(), Items: []domain.TransactionItemInput{{ProductModelID: &modelID, Quantity: dec("1")}}}},
		{"purchase item with model", domain.TransactionInput{TransactionType: "purchase", Date: today(), SupplierID: &supplierID, Items: []domain.TransactionItemInput{{ProductModelID: &modelID, Quantity: dec("1")}}}},
		{"zero purchase quantity", domain.TransactionInput{TransactionType: "purchase", Date: today(), SupplierID: &supplierID, Items: []domain.TransactionItemInput{{MaterialID: &materialID, Quantity: dec("0")}}}},
		{"negative unit price", domain.TransactionInput{TransactionType: "purchase", Date: today(), SupplierID: &supplierID, Items: []domain.TransactionItemInput{{MaterialID: &materialID, Quantity: dec("1"), UnitPrice: dec("-1")}}}},
		{"zero adjustment", domain.TransactionInput{TransactionType: "adjustment", Date: today(), Items: []domain.TransactionItemInput{{MaterialID: &materialID, Quantity: dec("0")}}}},
		{"adjustment with both targets", domain.TransactionInput{TransactionType: "adjustment", Date: today(), Items: []domain.TransactionItemInput{{MaterialID: &materialID, ProductModelID: &modelID, Quantity: dec("1")}}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreateTransaction(ctx, tc.req)
			assert.ErrorIs(t, err, store.ErrInvalid)
		})
	}
}

func TestStrictPolicyRejectsShortLot(t *testing.T) {
	svc := New(memory.NewSeeded(), cache.NoopCostCache{}, Options{AllowNegativeStock: false})
	ctx := context.Background()
	customerID := memory.SeedCustomerBusiness
	modelID := memory.SeedModelTable

	_, err := svc.CreateTransaction(ctx, domain.TransactionInput{
		TransactionType: "sale",
		Date:            today(),
		CustomerID:      &customerID,
		Items:           []domain.TransactionItemInput{{ProductModelID: &modelID, Quantity: dec("4"), UnitPrice: dec("249")}},
	})
	require.ErrorIs(t, err, store.ErrInsufficientStock)

	txs, err := svc.ListTransactions(ctx, domain.TransactionFilter{})
	require.NoError(t, err)
	assert.Empty(t, txs, "failed creation leaves no transaction")
}

func TestPermissivePolicyDrivesLotNegative(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	customerID := memory.SeedCustomerBusiness
	modelID := memory.SeedModelTable

	_, err := svc.CreateTransaction(ctx, domain.TransactionInput{
		TransactionType: "sale",
		Date:            today(),
		CustomerID:      &customerID,
		Items:           []domain.TransactionItemInput{{ProductModelID: &modelID, Quantity: dec("4"), UnitPrice: dec("249")}},
	})
	require.NoError(t, err)

	lot, err := svc.GetInventoryItem(ctx, memory.SeedLotTable)
	require.NoError(t, err)
	assertDecimal(t, "-1", lot.Quantity)
}

func TestSaleDeletionRecreatesLot(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	customerID := memory.SeedCustomerPrivate
	modelID := memory.SeedModelTable

	sale, err := svc.CreateTransaction(ctx, domain.TransactionInput{
		TransactionType: "sale",
		Date:            today(),
		CustomerID:      &customerID,
		Items:           []domain.TransactionItemInput{{ProductModelID: &modelID, Quantity: dec("2"), UnitPrice: dec("249")}},
	})
	require.NoError(t, err)
	require.NoError(t, svc.DeleteInventoryItem(ctx, memory.SeedLotTable))

	require.NoError(t, svc.DeleteTransaction(ctx, sale.ID))

	lots, err := svc.ListInventory(ctx)
	require.NoError(t, err)
	require.Len(t, lots, 1)
	assert.Equal(t, modelID, lots[0].ModelID)
	assertDecimal(t, "2", lots[0].Quantity)
}

func TestAdjustmentMovesMaterialAndLot(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	materialID := memory.SeedMaterialOak
	modelID := memory.SeedModelTable

	adj, err := svc.CreateTransaction(ctx, domain.TransactionInput{
		TransactionType: "adjustment",
		Date:            today(),
		Items: []domain.TransactionItemInput{
			{MaterialID: &materialID, Quantity: dec("-2.5")},
			{ProductModelID: &modelID, Quantity: dec("2")},
		},
	})
	require.NoError(t, err)

	oak, err := svc.GetMaterial(ctx, materialID)
	require.NoError(t, err)
	assertDecimal(t, "37.5", oak.CurrentStock)
	lot, err := svc.GetInventoryItem(ctx, memory.SeedLotTable)
	require.NoError(t, err)
	assertDecimal(t, "5", lot.Quantity)

	require.NoError(t, svc.DeleteTransaction(ctx, adj.ID))
	oak, err = svc.GetMaterial(ctx, materialID)
	require.NoError(t, err)
	lot, err = svc.GetInventoryItem(ctx, memory.SeedLotTable)
	require.NoError(t, err)
	assertDecimal(t, "40", oak.CurrentStock, "reversal restores oak")
	assertDecimal(t, "3", lot.Quantity, "reversal restores lot")
}

func TestUpdateTransactionDelegatesStatus(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	supplierID := memory.SeedSupplierHardware
	materialID := memory.SeedMaterialScrew

	purchase, err := svc.CreateTransaction(ctx, domain.TransactionInput{
		TransactionType: "purchase",
		Date:            today(),
		SupplierID:      &supplierID,
		Status:          "pending",
		Items:           []domain.TransactionItemInput{{MaterialID: &materialID, Quantity: dec("500"), UnitPrice: dec("0.04")}},
	})
	require.NoError(t, err)

	updated, err := svc.UpdateTransaction(ctx, purchase.ID, domain.TransactionUpdate{
		Notes:  ptr("received in full"),
		Status: ptr("completed"),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, updated.Status)
	assert.Equal(t, "received in full", updated.Notes)

	screws, err := svc.GetMaterial(ctx, materialID)
	require.NoError(t, err)
	assertDecimal(t, "2500", screws.CurrentStock)

	again, err := svc.UpdateTransaction(ctx, purchase.ID, domain.TransactionUpdate{Status: ptr("completed")})
	require.NoError(t, err, "resubmitting the current status")
	assert.Equal(t, domain.StatusCompleted, again.Status)
	screws, err = svc.GetMaterial(ctx, materialID)
	require.NoError(t, err)
	assertDecimal(t, "2500", screws.CurrentStock, "stock moves only once")
}

func TestMaterialPriceChangeNeedsExplicitRecalculation(t *testing.T) {
	svc, _ := newEmptyService(Options{AllowNegativeStock: true})
	ctx := context.Background()
	w := buildWorkshop(t, svc, "0")

	_, err := svc.UpdateMaterial(ctx, w.material.ID, domain.MaterialInput{
		Name:        w.material.Name,
		CostPerUnit: dec("12.5"),
		SupplierID:  w.material.SupplierID,
	})
	require.NoError(t, err)

	stale, err := svc.GetModel(ctx, w.model.ID)
	require.NoError(t, err)
	assertDecimal(t, "60", stale.ProductionCost, "stored cost stays until recalculated")

	live, err := svc.ComputeModelProductionCost(ctx, w.model.ID)
	require.NoError(t, err)
	assertDecimal(t, "75", live)

	fresh, err := svc.RecalculateModelCost(ctx, w.model.ID)
	require.NoError(t, err)
	assertDecimal(t, "75", fresh.ProductionCost)
}

func TestStoredCostKeepsFullScale(t *testing.T) {
	svc, _ := newEmptyService(Options{AllowNegativeStock: true})
	ctx := context.Background()

	material, err := svc.CreateMaterial(ctx, domain.MaterialInput{Name: "Cherry veneer", CostPerUnit: dec("12.345")})
	require.NoError(t, err)
	component, err := svc.CreateComponent(ctx, domain.ComponentInput{
		Name:      "Inlay",
		Materials: &[]domain.ComponentMaterialInput{{MaterialID: material.ID, Quantity: dec("0.25")}},
	})
	require.NoError(t, err)
	model, err := svc.CreateModel(ctx, domain.ModelInput{
		Name:       "Jewel box",
		Components: &[]domain.ModelComponentInput{{ComponentID: component.ID, Quantity: dec("1")}},
	})
	require.NoError(t, err)

	stored, err := svc.GetModel(ctx, model.ID)
	require.NoError(t, err)
	live, err := svc.ComputeModelProductionCost(ctx, model.ID)
	require.NoError(t, err)
	assertDecimal(t, "3.08625", stored.ProductionCost)
	assert.True(t, stored.ProductionCost.Equal(live), "stored %s, recomputed %s", stored.ProductionCost, live)

	precise, err := svc.CreateMaterial(ctx, domain.MaterialInput{Name: "Gold leaf", CostPerUnit: dec("0.123456789")})
	require.NoError(t, err)
	got, err := svc.GetMaterial(ctx, precise.ID)
	require.NoError(t, err)
	assertDecimal(t, "0.123456789", got.CostPerUnit)
}

func TestComponentLinkChangeRecalculatesModels(t *testing.T) {
	svc, _ := newEmptyService(Options{AllowNegativeStock: true})
	ctx := context.Background()
	w := buildWorkshop(t, svc, "0")

	_, err := svc.UpdateComponent(ctx, w.component.ID, domain.ComponentInput{
		Name: w.component.Name,
		Materials: &[]domain.ComponentMaterialInput{
			{MaterialID: w.material.ID, Quantity: dec("1"), UseMaterialCost: ptr(false), CustomCost: decimal.NewNullDecimal(dec("4.25"))},
		},
	})
	require.NoError(t, err)

	model, err := svc.GetModel(ctx, w.model.ID)
	require.NoError(t, err)
	assertDecimal(t, "12.75", model.ProductionCost)
}

func TestCustomCostRequiredWhenMaterialCostDisabled(t *testing.T) {
	svc := newTestService()
	_, err := svc.CreateComponent(context.Background(), domain.ComponentInput{
		Name: "Drawer",
		Materials: &[]domain.ComponentMaterialInput{
			{MaterialID: memory.SeedMaterialOak, Quantity: dec("1"), UseMaterialCost: ptr(false)},
		},
	})
	assert.ErrorIs(t, err, store.ErrInvalid)
}

func TestUnknownReferencesAreNotFound(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	_, err := svc.CreateComponent(ctx, domain.ComponentInput{
		Name:      "Drawer",
		Materials: &[]domain.ComponentMaterialInput{{MaterialID: "missing", Quantity: dec("1")}},
	})
	assert.ErrorIs(t, err, store.ErrNotFound, "component material")

	_, err = svc.CreateModel(ctx, domain.ModelInput{
		Name:      "Phantom",
		Materials: &[]domain.ModelMaterialInput{{MaterialID: "missing", Quantity: dec("1")}},
	})
	assert.ErrorIs(t, err, store.ErrNotFound, "model material")

	_, err = svc.CreateInventoryItem(ctx, domain.InventoryInput{ModelID: "missing", Quantity: dec("1")})
	assert.ErrorIs(t, err, store.ErrNotFound, "lot model")

	materialID := "missing"
	supplierID := memory.SeedSupplierTimber
	_, err = svc.CreateTransaction(ctx, domain.TransactionInput{
		TransactionType: "purchase",
		Date:            today(),
		SupplierID:      &supplierID,
		Items:           []domain.TransactionItemInput{{MaterialID: &materialID, Quantity: dec("1")}},
	})
	assert.ErrorIs(t, err, store.ErrNotFound, "transaction item")
}

func TestCreateModelWithUnknownComponentRollsBack(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	_, err := svc.CreateModel(ctx, domain.ModelInput{
		Name:       "Phantom",
		Components: &[]domain.ModelComponentInput{{ComponentID: "missing", Quantity: dec("1")}},
	})
	require.ErrorIs(t, err, store.ErrNotFound)

	models, err := svc.ListModels(ctx)
	require.NoError(t, err)
	assert.Len(t, models, 1, "only the seeded model remains")
}

func TestGeneratedSKUsAreWellFormed(t *testing.T) {
	svc := newTestService()
	material, err := svc.CreateMaterial(context.Background(), domain.MaterialInput{Name: "Brass hinge"})
	require.NoError(t, err)
	assert.Len(t, material.SKU, 8)
	assert.Equal(t, "pz", material.UnitOfMeasure)
}

func TestSeededProductionCostMatchesRollUp(t *testing.T) {
	svc := newTestService()
	cost, err := svc.ComputeModelProductionCost(context.Background(), memory.SeedModelTable)
	require.NoError(t, err)
	assertDecimal(t, "75.10", cost)
}

type mapCostCache struct {
	mu      sync.Mutex
	entries map[string]domain.ComponentCostBreakdown
	sets    int
	flushes int
}

func (c *mapCostCache) Get(_ context.Context, id string) (*domain.ComponentCostBreakdown, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[id]
	if !ok {
		return nil, false, nil
	}
	return &v, true, nil
}

func (c *mapCostCache) Set(_ context.Context, v *domain.ComponentCostBreakdown, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.entries == nil {
		c.entries = make(map[string]domain.ComponentCostBreakdown)
	}
	c.entries[v.ComponentID] = *v
	c.sets++
	return nil
}

func (c *mapCostCache) Invalidate(_ context.Context, ids ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range ids {
		delete(c.entries, id)
	}
	return nil
}

func (c *mapCostCache) Flush(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = nil
	c.flushes++
	return nil
}

func TestComponentBreakdownIsCachedAndInvalidated(t *testing.T) {
	costs := &mapCostCache{}
	svc := New(memory.NewSeeded(), costs, Options{AllowNegativeStock: true})
	ctx := context.Background()

	first, err := svc.ComponentCostBreakdown(ctx, memory.SeedComponentTop)
	require.NoError(t, err)
	assertDecimal(t, "33.50", first.TotalCost)
	assert.Len(t, first.Materials, 2)

	_, err = svc.ComponentCostBreakdown(ctx, memory.SeedComponentTop)
	require.NoError(t, err)
	assert.Equal(t, 1, costs.sets, "second read hits the cache")

	_, err = svc.UpdateMaterial(ctx, memory.SeedMaterialOak, domain.MaterialInput{Name: "Oak board", UnitOfMeasure: "m", CostPerUnit: dec("14"), CurrentStock: dec("40"), MinStockLevel: dec("10")})
	require.NoError(t, err)
	fresh, err := svc.ComponentCostBreakdown(ctx, memory.SeedComponentTop)
	require.NoError(t, err)
	assertDecimal(t, "37.25", fresh.TotalCost, "after price change")
}

func TestResetDatabaseAndLoadDemoData(t *testing.T) {
	costs := &mapCostCache{}
	svc := New(memory.NewSeeded(), costs, Options{AllowNegativeStock: true})
	ctx := context.Background()

	_, err := svc.ComponentCostBreakdown(ctx, memory.SeedComponentTop)
	require.NoError(t, err)

	wiped, err := svc.ResetDatabase(ctx)
	require.NoError(t, err)
	assert.False(t, wiped.Seeded)
	assert.Equal(t, 1, costs.flushes)
	assert.Empty(t, costs.entries)

	materials, err := svc.ListMaterials(ctx)
	require.NoError(t, err)
	assert.Empty(t, materials)
	txs, err := svc.ListTransactions(ctx, domain.TransactionFilter{})
	require.NoError(t, err)
	assert.Empty(t, txs)
	_, err = svc.GetModel(ctx, memory.SeedModelTable)
	assert.ErrorIs(t, err, store.ErrNotFound)

	seeded, err := svc.LoadDemoData(ctx)
	require.NoError(t, err)
	assert.True(t, seeded.Seeded)
	assert.Equal(t, 2, costs.flushes)

	model, err := svc.GetModel(ctx, memory.SeedModelTable)
	require.NoError(t, err)
	assertDecimal(t, "75.10", model.ProductionCost)
}

func TestLowStockMaterials(t *testing.T) {
	svc := newTestService()
	low, err := svc.LowStockMaterials(context.Background())
	require.NoError(t, err)
	require.Len(t, low, 1)
	assert.Equal(t, memory.SeedMaterialOil, low[0].ID, "only linseed oil is low")
}

func TestDeleteReferencedEntitiesConflict(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	assert.ErrorIs(t, svc.DeleteMaterial(ctx, memory.SeedMaterialOak), store.ErrConflict, "used material")
	assert.ErrorIs(t, svc.DeleteComponent(ctx, memory.SeedComponentLeg), store.ErrConflict, "used component")
	assert.ErrorIs(t, svc.DeleteModel(ctx, memory.SeedModelTable), store.ErrConflict, "model with lots")
}
