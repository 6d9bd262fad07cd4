package memory

import (
	"context"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"craftstock/backend/internal/domain"
)

func (v *view) ListSuppliers(_ context.Context) ([]domain.Supplier, error) {
	defer v.read()()

	out := make([]domain.Supplier, 0, len(v.data.suppliers))
	for _, s := range v.data.suppliers {
		out = append(out, s)
	}
	slices.SortFunc(out, byName(func(s domain.Supplier) string { return s.Name }))
	return out, nil
}

func (v *view) GetSupplier(_ context.Context, id string) (*domain.Supplier, error) {
	defer v.read()()

	s, ok := v.data.suppliers[id]
	if !ok {
		return nil, notFound("supplier", id)
	}
	return &s, nil
}

func (v *view) CreateSupplier(_ context.Context, supplier domain.Supplier) error {
	defer v.write()()

	if _, exists := v.data.suppliers[supplier.ID]; exists {
		return conflict("supplier %s already exists", supplier.ID)
	}
	v.data.suppliers[supplier.ID] = supplier
	return nil
}

func (v *view) UpdateSupplier(_ context.Context, supplier domain.Supplier) error {
	defer v.write()()

	existing, ok := v.data.suppliers[supplier.ID]
	if !ok {
		return notFound("supplier", supplier.ID)
	}
	supplier.CreatedAt = existing.CreatedAt
	v.data.suppliers[supplier.ID] = supplier
	return nil
}

// DeleteSupplier clears the supplier from materials and transactions that
// reference it.
func (v *view) DeleteSupplier(_ context.Context, id string) error {
	defer v.write()()

	if _, ok := v.data.suppliers[id]; !ok {
		return notFound("supplier", id)
	}
	delete(v.data.suppliers, id)
	for key, m := range v.data.materials {
		if optionalRef(m.SupplierID) == id {
			m.SupplierID = nil
			v.data.materials[key] = m
		}
	}
	for key, rec := range v.data.transactions {
		if optionalRef(rec.tx.SupplierID) == id {
			rec.tx.SupplierID = nil
			v.data.transactions[key] = rec
		}
	}
	return nil
}

func (v *view) ListCustomers(_ context.Context) ([]domain.Customer, error) {
	defer v.read()()

	out := make([]domain.Customer, 0, len(v.data.customers))
	for _, c := range v.data.customers {
		out = append(out, c)
	}
	slices.SortFunc(out, byName(func(c domain.Customer) string { return c.Name }))
	return out, nil
}

func (v *view) GetCustomer(_ context.Context, id string) (*domain.Customer, error) {
	defer v.read()()

	c, ok := v.data.customers[id]
	if !ok {
		return nil, notFound("customer", id)
	}
	return &c, nil
}

func (v *view) CreateCustomer(_ context.Context, customer domain.Customer) error {
	defer v.write()()

	if _, exists := v.data.customers[customer.ID]; exists {
		return conflict("customer %s already exists", customer.ID)
	}
	v.data.customers[customer.ID] = customer
	return nil
}

func (v *view) UpdateCustomer(_ context.Context, customer domain.Customer) error {
	defer v.write()()

	existing, ok := v.data.customers[customer.ID]
	if !ok {
		return notFound("customer", customer.ID)
	}
	customer.CreatedAt = existing.CreatedAt
	v.data.customers[customer.ID] = customer
	return nil
}

func (v *view) DeleteCustomer(_ context.Context, id string) error {
	defer v.write()()

	if _, ok := v.data.customers[id]; !ok {
		return notFound("customer", id)
	}
	delete(v.data.customers, id)
	for key, rec := range v.data.transactions {
		if optionalRef(rec.tx.CustomerID) == id {
			rec.tx.CustomerID = nil
			v.data.transactions[key] = rec
		}
	}
	return nil
}

func (v *view) ListMaterials(_ context.Context) ([]domain.Material, error) {
	defer v.read()()

	out := make([]domain.Material, 0, len(v.data.materials))
	for _, m := range v.data.materials {
		out = append(out, v.decorateMaterial(m))
	}
	slices.SortFunc(out, byName(func(m domain.Material) string { return m.Name }))
	return out, nil
}

func (v *view) GetMaterial(_ context.Context, id string) (*domain.Material, error) {
	defer v.read()()

	m, ok := v.data.materials[id]
	if !ok {
		return nil, notFound("material", id)
	}
	m = v.decorateMaterial(m)
	return &m, nil
}

func (v *view) GetMaterialsByIDs(_ context.Context, ids []string) (map[string]domain.Material, error) {
	defer v.read()()

	out := make(map[string]domain.Material, len(ids))
	for _, id := range ids {
		if m, ok := v.data.materials[id]; ok {
			out[id] = v.decorateMaterial(m)
		}
	}
	return out, nil
}

func (v *view) CreateMaterial(_ context.Context, material domain.Material) error {
	defer v.write()()

	if _, exists := v.data.materials[material.ID]; exists {
		return conflict("material %s already exists", material.ID)
	}
	if err := v.checkSupplier(material.SupplierID); err != nil {
		return err
	}
	material.SupplierName = ""
	v.data.materials[material.ID] = material
	return nil
}

func (v *view) UpdateMaterial(_ context.Context, material domain.Material) error {
	defer v.write()()

	existing, ok := v.data.materials[material.ID]
	if !ok {
		return notFound("material", material.ID)
	}
	if err := v.checkSupplier(material.SupplierID); err != nil {
		return err
	}
	material.SKU = existing.SKU
	material.CreatedAt = existing.CreatedAt
	material.SupplierName = ""
	v.data.materials[material.ID] = material
	return nil
}

func (v *view) DeleteMaterial(_ context.Context, id string) error {
	defer v.write()()

	if _, ok := v.data.materials[id]; !ok {
		return notFound("material", id)
	}
	for componentID, links := range v.data.componentMaterials {
		for _, link := range links {
			if link.MaterialID == id {
				return conflict("material %s is used by component %s", id, componentID)
			}
		}
	}
	for modelID, links := range v.data.modelMaterials {
		for _, link := range links {
			if link.MaterialID == id {
				return conflict("material %s is used by model %s", id, modelID)
			}
		}
	}
	for _, rec := range v.data.transactions {
		for _, item := range rec.tx.Items {
			if optionalRef(item.MaterialID) == id {
				return conflict("material %s is referenced by transaction %s", id, rec.tx.ID)
			}
		}
	}
	delete(v.data.materials, id)
	return nil
}

func (v *view) AdjustMaterialStock(_ context.Context, id string, delta decimal.Decimal, at time.Time) error {
	defer v.write()()

	m, ok := v.data.materials[id]
	if !ok {
		return notFound("material", id)
	}
	m.CurrentStock = m.CurrentStock.Add(delta)
	m.UpdatedAt = at
	v.data.materials[id] = m
	return nil
}

func (v *view) checkSupplier(id *string) error {
	if ref := optionalRef(id); ref != "" {
		if _, ok := v.data.suppliers[ref]; !ok {
			return notFound("supplier", ref)
		}
	}
	return nil
}

func (v *view) decorateMaterial(m domain.Material) domain.Material {
	m.SupplierName = ""
	if ref := optionalRef(m.SupplierID); ref != "" {
		m.SupplierName = v.data.suppliers[ref].Name
	}
	return m
}
