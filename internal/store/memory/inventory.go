package memory

import (
	"cmp"
	"context"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"craftstock/backend/internal/domain"
)

func (v *view) ListInventory(_ context.Context) ([]domain.InventoryItem, error) {
	defer v.read()()

	records := make([]lotRecord, 0, len(v.data.lots))
	for _, rec := range v.data.lots {
		records = append(records, rec)
	}
	slices.SortFunc(records, func(a, b lotRecord) int { return cmp.Compare(b.seq, a.seq) })

	out := make([]domain.InventoryItem, 0, len(records))
	for _, rec := range records {
		out = append(out, v.decorateLot(rec.item))
	}
	return out, nil
}

func (v *view) GetInventoryItem(_ context.Context, id string) (*domain.InventoryItem, error) {
	defer v.read()()

	rec, ok := v.data.lots[id]
	if !ok {
		return nil, notFound("inventory item", id)
	}
	item := v.decorateLot(rec.item)
	return &item, nil
}

func (v *view) CreateInventoryItem(_ context.Context, item domain.InventoryItem) error {
	defer v.write()()

	if _, exists := v.data.lots[item.ID]; exists {
		return conflict("inventory item %s already exists", item.ID)
	}
	if _, ok := v.data.models[item.ModelID]; !ok {
		return notFound("model", item.ModelID)
	}
	item.ModelName = ""
	v.data.lots[item.ID] = lotRecord{item: item, seq: v.data.nextSeq()}
	return nil
}

func (v *view) UpdateInventoryItem(_ context.Context, item domain.InventoryItem) error {
	defer v.write()()

	rec, ok := v.data.lots[item.ID]
	if !ok {
		return notFound("inventory item", item.ID)
	}
	rec.item.Quantity = item.Quantity
	rec.item.ProductionDate = item.ProductionDate
	rec.item.Notes = item.Notes
	rec.item.UpdatedAt = item.UpdatedAt
	v.data.lots[item.ID] = rec
	return nil
}

func (v *view) DeleteInventoryItem(_ context.Context, id string) error {
	defer v.write()()

	if _, ok := v.data.lots[id]; !ok {
		return notFound("inventory item", id)
	}
	delete(v.data.lots, id)
	return nil
}

func (v *view) LotsForModels(_ context.Context, modelIDs []string) (map[string][]domain.InventoryItem, error) {
	defer v.read()()

	wanted := make(map[string][]lotRecord, len(modelIDs))
	for _, id := range modelIDs {
		wanted[id] = nil
	}
	for _, rec := range v.data.lots {
		if _, ok := wanted[rec.item.ModelID]; ok {
			wanted[rec.item.ModelID] = append(wanted[rec.item.ModelID], rec)
		}
	}

	out := make(map[string][]domain.InventoryItem, len(wanted))
	for modelID, records := range wanted {
		slices.SortFunc(records, func(a, b lotRecord) int { return cmp.Compare(a.seq, b.seq) })
		items := make([]domain.InventoryItem, 0, len(records))
		for _, rec := range records {
			items = append(items, rec.item)
		}
		out[modelID] = items
	}
	return out, nil
}

func (v *view) AdjustLotQuantity(_ context.Context, id string, delta decimal.Decimal, at time.Time) error {
	defer v.write()()

	rec, ok := v.data.lots[id]
	if !ok {
		return notFound("inventory item", id)
	}
	rec.item.Quantity = rec.item.Quantity.Add(delta)
	rec.item.UpdatedAt = at
	v.data.lots[id] = rec
	return nil
}

func (v *view) decorateLot(item domain.InventoryItem) domain.InventoryItem {
	item.ModelName = v.data.models[item.ModelID].Name
	return item
}
