package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/shopspring/decimal"

	"craftstock/backend/internal/domain"
	"craftstock/backend/internal/store"
)

const lotColumns = `i.id, i.model_id, COALESCE(m.name, ''), i.quantity, i.production_date, i.notes, i.created_at, i.updated_at`

func scanLot(row rowScanner) (domain.InventoryItem, error) {
	var (
		item     domain.InventoryItem
		produced sql.NullTime
	)
	err := row.Scan(&item.ID, &item.ModelID, &item.ModelName, &item.Quantity, &produced, &item.Notes, &item.CreatedAt, &item.UpdatedAt)
	if produced.Valid {
		d := domain.NewDate(produced.Time)
		item.ProductionDate = &d
	}
	return item, err
}

func dateArg(d *domain.Date) any {
	if d == nil {
		return nil
	}
	return d.Time
}

func (q *queries) ListInventory(ctx context.Context) ([]domain.InventoryItem, error) {
	rows, err := q.q.QueryContext(ctx, `
		SELECT `+lotColumns+`
		FROM inventory_items i
		LEFT JOIN product_models m ON m.id = i.model_id
		ORDER BY i.created_at DESC, i.seq DESC
	`)
	if err != nil {
		return nil, store.Persistence("list inventory", err)
	}
	defer rows.Close()

	items := make([]domain.InventoryItem, 0, 64)
	for rows.Next() {
		item, err := scanLot(rows)
		if err != nil {
			return nil, store.Persistence("scan inventory item", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, store.Persistence("list inventory", err)
	}
	return items, nil
}

func (q *queries) GetInventoryItem(ctx context.Context, id string) (*domain.InventoryItem, error) {
	item, err := scanLot(q.q.QueryRowContext(ctx, `
		SELECT `+lotColumns+`
		FROM inventory_items i
		LEFT JOIN product_models m ON m.id = i.model_id
		WHERE i.id = $1
	`, id))
	if err != nil {
		return nil, readErr("get inventory item", "inventory item", id, err)
	}
	return &item, nil
}

func (q *queries) CreateInventoryItem(ctx context.Context, item domain.InventoryItem) error {
	_, err := q.q.ExecContext(ctx, `
		INSERT INTO inventory_items (id, model_id, quantity, production_date, notes, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, item.ID, item.ModelID, item.Quantity, dateArg(item.ProductionDate), item.Notes, item.CreatedAt, item.UpdatedAt)
	return writeErr("create inventory item", err)
}

func (q *queries) UpdateInventoryItem(ctx context.Context, item domain.InventoryItem) error {
	res, err := q.q.ExecContext(ctx, `
		UPDATE inventory_items
		SET quantity = $2, production_date = $3, notes = $4, updated_at = $5
		WHERE id = $1
	`, item.ID, item.Quantity, dateArg(item.ProductionDate), item.Notes, item.UpdatedAt)
	return expectRow("update inventory item", "inventory item", item.ID, res, err)
}

func (q *queries) DeleteInventoryItem(ctx context.Context, id string) error {
	res, err := q.q.ExecContext(ctx, `DELETE FROM inventory_items WHERE id = $1`, id)
	return expectDeleted("delete inventory item", "inventory item", id, res, err)
}

func (q *queries) LotsForModels(ctx context.Context, modelIDs []string) (map[string][]domain.InventoryItem, error) {
	out := make(map[string][]domain.InventoryItem, len(modelIDs))
	if len(modelIDs) == 0 {
		return out, nil
	}
	for _, id := range modelIDs {
		out[id] = nil
	}

	rows, err := q.q.QueryContext(ctx, `
		SELECT i.id, i.model_id, '', i.quantity, i.production_date, i.notes, i.created_at, i.updated_at
		FROM inventory_items i
		WHERE i.model_id = ANY($1)
		ORDER BY i.model_id, i.created_at, i.seq
		FOR UPDATE
	`, modelIDs)
	if err != nil {
		return nil, store.Persistence("lock lots", err)
	}
	defer rows.Close()

	for rows.Next() {
		item, err := scanLot(rows)
		if err != nil {
			return nil, store.Persistence("scan lot", err)
		}
		out[item.ModelID] = append(out[item.ModelID], item)
	}
	if err := rows.Err(); err != nil {
		return nil, store.Persistence("lock lots", err)
	}
	return out, nil
}

func (q *queries) AdjustLotQuantity(ctx context.Context, id string, delta decimal.Decimal, at time.Time) error {
	res, err := q.q.ExecContext(ctx, `
		UPDATE inventory_items SET quantity = quantity + $2, updated_at = $3 WHERE id = $1
	`, id, delta, at)
	return expectRow("adjust lot quantity", "inventory item", id, res, err)
}
