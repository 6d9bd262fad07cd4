package postgres

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"craftstock/backend/internal/domain"
	"craftstock/backend/internal/store"
)

func (q *queries) ListSuppliers(ctx context.Context) ([]domain.Supplier, error) {
	rows, err := q.q.QueryContext(ctx, `
		SELECT id, name, contact_person, email, phone, address, notes, created_at, updated_at
		FROM suppliers
		ORDER BY name
	`)
	if err != nil {
		return nil, store.Persistence("list suppliers", err)
	}
	defer rows.Close()

	suppliers := make([]domain.Supplier, 0, 32)
	for rows.Next() {
		var s domain.Supplier
		if err := rows.Scan(&s.ID, &s.Name, &s.ContactPerson, &s.Email, &s.Phone, &s.Address, &s.Notes, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, store.Persistence("scan supplier", err)
		}
		suppliers = append(suppliers, s)
	}
	if err := rows.Err(); err != nil {
		return nil, store.Persistence("list suppliers", err)
	}
	return suppliers, nil
}

func (q *queries) GetSupplier(ctx context.Context, id string) (*domain.Supplier, error) {
	var s domain.Supplier
	err := q.q.QueryRowContext(ctx, `
		SELECT id, name, contact_person, email, phone, address, notes, created_at, updated_at
		FROM suppliers
		WHERE id = $1
	`, id).Scan(&s.ID, &s.Name, &s.ContactPerson, &s.Email, &s.Phone, &s.Address, &s.Notes, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, readErr("get supplier", "supplier", id, err)
	}
	return &s, nil
}

func (q *queries) CreateSupplier(ctx context.Context, s domain.Supplier) error {
	_, err := q.q.ExecContext(ctx, `
		INSERT INTO suppliers (id, name, contact_person, email, phone, address, notes, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, s.ID, s.Name, s.ContactPerson, s.Email, s.Phone, s.Address, s.Notes, s.CreatedAt, s.UpdatedAt)
	return writeErr("create supplier", err)
}

func (q *queries) UpdateSupplier(ctx context.Context, s domain.Supplier) error {
	res, err := q.q.ExecContext(ctx, `
		UPDATE suppliers
		SET name = $2, contact_person = $3, email = $4, phone = $5, address = $6, notes = $7, updated_at = $8
		WHERE id = $1
	`, s.ID, s.Name, s.ContactPerson, s.Email, s.Phone, s.Address, s.Notes, s.UpdatedAt)
	return expectRow("update supplier", "supplier", s.ID, res, err)
}

func (q *queries) DeleteSupplier(ctx context.Context, id string) error {
	res, err := q.q.ExecContext(ctx, `DELETE FROM suppliers WHERE id = $1`, id)
	return expectDeleted("delete supplier", "supplier", id, res, err)
}

func (q *queries) ListCustomers(ctx context.Context) ([]domain.Customer, error) {
	rows, err := q.q.QueryContext(ctx, `
		SELECT id, name, contact_person, customer_type, email, phone, address, notes, created_at, updated_at
		FROM customers
		ORDER BY name
	`)
	if err != nil {
		return nil, store.Persistence("list customers", err)
	}
	defer rows.Close()

	customers := make([]domain.Customer, 0, 32)
	for rows.Next() {
		var c domain.Customer
		if err := rows.Scan(&c.ID, &c.Name, &c.ContactPerson, &c.CustomerType, &c.Email, &c.Phone, &c.Address, &c.Notes, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, store.Persistence("scan customer", err)
		}
		customers = append(customers, c)
	}
	if err := rows.Err(); err != nil {
		return nil, store.Persistence("list customers", err)
	}
	return customers, nil
}

func (q *queries) GetCustomer(ctx context.Context, id string) (*domain.Customer, error) {
	var c domain.Customer
	err := q.q.QueryRowContext(ctx, `
		SELECT id, name, contact_person, customer_type, email, phone, address, notes, created_at, updated_at
		FROM customers
		WHERE id = $1
	`, id).Scan(&c.ID, &c.Name, &c.ContactPerson, &c.CustomerType, &c.Email, &c.Phone, &c.Address, &c.Notes, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, readErr("get customer", "customer", id, err)
	}
	return &c, nil
}

func (q *queries) CreateCustomer(ctx context.Context, c domain.Customer) error {
	_, err := q.q.ExecContext(ctx, `
		INSERT INTO customers (id, name, contact_person, customer_type, email, phone, address, notes, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`, c.ID, c.Name, c.ContactPerson, c.CustomerType, c.Email, c.Phone, c.Address, c.Notes, c.CreatedAt, c.UpdatedAt)
	return writeErr("create customer", err)
}

func (q *queries) UpdateCustomer(ctx context.Context, c domain.Customer) error {
	res, err := q.q.ExecContext(ctx, `
		UPDATE customers
		SET name = $2, contact_person = $3, customer_type = $4, email = $5, phone = $6, address = $7, notes = $8, updated_at = $9
		WHERE id = $1
	`, c.ID, c.Name, c.ContactPerson, c.CustomerType, c.Email, c.Phone, c.Address, c.Notes, c.UpdatedAt)
	return expectRow("update customer", "customer", c.ID, res, err)
}

func (q *queries) DeleteCustomer(ctx context.Context, id string) error {
	res, err := q.q.ExecContext(ctx, `DELETE FROM customers WHERE id = $1`, id)
	return expectDeleted("delete customer", "customer", id, res, err)
}

const materialColumns = `
	m.id, m.name, m.description, m.sku, m.unit_of_measure, m.cost_per_unit,
	m.current_stock, m.min_stock_level, m.supplier_id, COALESCE(s.name, ''),
	m.created_at, m.updated_at
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMaterial(row rowScanner) (domain.Material, error) {
	var m domain.Material
	err := row.Scan(&m.ID, &m.Name, &m.Description, &m.SKU, &m.UnitOfMeasure, &m.CostPerUnit,
		&m.CurrentStock, &m.MinStockLevel, &m.SupplierID, &m.SupplierName, &m.CreatedAt, &m.UpdatedAt)
	return m, err
}

func (q *queries) ListMaterials(ctx context.Context) ([]domain.Material, error) {
	rows, err := q.q.QueryContext(ctx, `
		SELECT `+materialColumns+`
		FROM materials m
		LEFT JOIN suppliers s ON s.id = m.supplier_id
		ORDER BY m.name
	`)
	if err != nil {
		return nil, store.Persistence("list materials", err)
	}
	defer rows.Close()

	materials := make([]domain.Material, 0, 64)
	for rows.Next() {
		m, err := scanMaterial(rows)
		if err != nil {
			return nil, store.Persistence("scan material", err)
		}
		materials = append(materials, m)
	}
	if err := rows.Err(); err != nil {
		return nil, store.Persistence("list materials", err)
	}
	return materials, nil
}

func (q *queries) GetMaterial(ctx context.Context, id string) (*domain.Material, error) {
	m, err := scanMaterial(q.q.QueryRowContext(ctx, `
		SELECT `+materialColumns+`
		FROM materials m
		LEFT JOIN suppliers s ON s.id = m.supplier_id
		WHERE m.id = $1
	`, id))
	if err != nil {
		return nil, readErr("get material", "material", id, err)
	}
	return &m, nil
}

func (q *queries) GetMaterialsByIDs(ctx context.Context, ids []string) (map[string]domain.Material, error) {
	out := make(map[string]domain.Material, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := q.q.QueryContext(ctx, `
		SELECT `+materialColumns+`
		FROM materials m
		LEFT JOIN suppliers s ON s.id = m.supplier_id
		WHERE m.id = ANY($1)
	`, ids)
	if err != nil {
		return nil, store.Persistence("get materials", err)
	}
	defer rows.Close()

	for rows.Next() {
		m, err := scanMaterial(rows)
		if err != nil {
			return nil, store.Persistence("scan material", err)
		}
		out[m.ID] = m
	}
	if err := rows.Err(); err != nil {
		return nil, store.Persistence("get materials", err)
	}
	return out, nil
}

func (q *queries) CreateMaterial(ctx context.Context, m domain.Material) error {
	_, err := q.q.ExecContext(ctx, `
		INSERT INTO materials (
			id, name, description, sku, unit_of_measure, cost_per_unit,
			current_stock, min_stock_level, supplier_id, created_at, updated_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
	`, m.ID, m.Name, m.Description, m.SKU, m.UnitOfMeasure, m.CostPerUnit,
		m.CurrentStock, m.MinStockLevel, m.SupplierID, m.CreatedAt, m.UpdatedAt)
	return writeErr("create material", err)
}

func (q *queries) UpdateMaterial(ctx context.Context, m domain.Material) error {
	res, err := q.q.ExecContext(ctx, `
		UPDATE materials
		SET name = $2, description = $3, unit_of_measure = $4, cost_per_unit = $5,
			current_stock = $6, min_stock_level = $7, supplier_id = $8, updated_at = $9
		WHERE id = $1
	`, m.ID, m.Name, m.Description, m.UnitOfMeasure, m.CostPerUnit,
		m.CurrentStock, m.MinStockLevel, m.SupplierID, m.UpdatedAt)
	return expectRow("update material", "material", m.ID, res, err)
}

func (q *queries) DeleteMaterial(ctx context.Context, id string) error {
	res, err := q.q.ExecContext(ctx, `DELETE FROM materials WHERE id = $1`, id)
	return expectDeleted("delete material", "material", id, res, err)
}

func (q *queries) AdjustMaterialStock(ctx context.Context, id string, delta decimal.Decimal, at time.Time) error {
	res, err := q.q.ExecContext(ctx, `
		UPDATE materials
		SET current_stock = current_stock + $2, updated_at = $3
		WHERE id = $1
	`, id, delta, at)
	return expectRow("adjust material stock", "material", id, res, err)
}
