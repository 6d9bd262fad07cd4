package service

import (
	"context"
	"strings"

	"craftstock/backend/internal/domain"
	"craftstock/backend/internal/store"
	"craftstock/backend/internal/xid"
)

func (s *Service) ListSuppliers(ctx context.Context) ([]domain.Supplier, error) {
	return s.repo.ListSuppliers(ctx)
}

func (s *Service) GetSupplier(ctx context.Context, id string) (domain.Supplier, error) {
	supplier, err := s.repo.GetSupplier(ctx, id)
	if err != nil {
		return domain.Supplier{}, err
	}
	return *supplier, nil
}

func (s *Service) CreateSupplier(ctx context.Context, req domain.SupplierInput) (domain.Supplier, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := s.check(req); err != nil {
		return domain.Supplier{}, err
	}

	now := s.now()
	supplier := domain.Supplier{
		ID:            xid.New(),
		Name:          req.Name,
		ContactPerson: strings.TrimSpace(req.ContactPerson),
		Email:         strings.TrimSpace(req.Email),
		Phone:         strings.TrimSpace(req.Phone),
		Address:       req.Address,
		Notes:         req.Notes,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.repo.CreateSupplier(ctx, supplier); err != nil {
		return domain.Supplier{}, err
	}
	return supplier, nil
}

func (s *Service) UpdateSupplier(ctx context.Context, id string, req domain.SupplierInput) (domain.Supplier, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := s.check(req); err != nil {
		return domain.Supplier{}, err
	}

	var out domain.Supplier
	err := s.repo.WithTx(ctx, func(tx store.Tx) error {
		existing, err := tx.GetSupplier(ctx, id)
		if err != nil {
			return err
		}
		updated := *existing
		updated.Name = req.Name
		updated.ContactPerson = strings.TrimSpace(req.ContactPerson)
		updated.Email = strings.TrimSpace(req.Email)
		updated.Phone = strings.TrimSpace(req.Phone)
		updated.Address = req.Address
		updated.Notes = req.Notes
		updated.UpdatedAt = s.now()
		if err := tx.UpdateSupplier(ctx, updated); err != nil {
			return err
		}
		out = updated
		return nil
	})
	return out, err
}

func (s *Service) DeleteSupplier(ctx context.Context, id string) error {
	return s.repo.DeleteSupplier(ctx, id)
}

func (s *Service) ListCustomers(ctx context.Context) ([]domain.Customer, error) {
	return s.repo.ListCustomers(ctx)
}

func (s *Service) GetCustomer(ctx context.Context, id string) (domain.Customer, error) {
	customer, err := s.repo.GetCustomer(ctx, id)
	if err != nil {
		return domain.Customer{}, err
	}
	return *customer, nil
}

func (s *Service) CreateCustomer(ctx context.Context, req domain.CustomerInput) (domain.Customer, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.CustomerType = strings.TrimSpace(req.CustomerType)
	if err := s.check(req); err != nil {
		return domain.Customer{}, err
	}

	now := s.now()
	customer := domain.Customer{
		ID:            xid.New(),
		Name:          req.Name,
		ContactPerson: strings.TrimSpace(req.ContactPerson),
		CustomerType:  defaultString(req.CustomerType, "private"),
		Email:         strings.TrimSpace(req.Email),
		Phone:         strings.TrimSpace(req.Phone),
		Address:       req.Address,
		Notes:         req.Notes,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.repo.CreateCustomer(ctx, customer); err != nil {
		return domain.Customer{}, err
	}
	return customer, nil
}

func (s *Service) UpdateCustomer(ctx context.Context, id string, req domain.CustomerInput) (domain.Customer, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.CustomerType = strings.TrimSpace(req.CustomerType)
	if err := s.check(req); err != nil {
		return domain.Customer{}, err
	}

	var out domain.Customer
	err := s.repo.WithTx(ctx, func(tx store.Tx) error {
		existing, err := tx.GetCustomer(ctx, id)
		if err != nil {
			return err
		}
		updated := *existing
		updated.Name = req.Name
		updated.ContactPerson = strings.TrimSpace(req.ContactPerson)
		updated.CustomerType = defaultString(req.CustomerType, existing.CustomerType)
		updated.Email = strings.TrimSpace(req.Email)
		updated.Phone = strings.TrimSpace(req.Phone)
		updated.Address = req.Address
		updated.Notes = req.Notes
		updated.UpdatedAt = s.now()
		if err := tx.UpdateCustomer(ctx, updated); err != nil {
			return err
		}
		out = updated
		return nil
	})
	return out, err
}

func (s *Service) DeleteCustomer(ctx context.Context, id string) error {
	return s.repo.DeleteCustomer(ctx, id)
}

func (s *Service) ListMaterials(ctx context.Context) ([]domain.Material, error) {
	return s.repo.ListMaterials(ctx)
}

// LowStockMaterials lists materials whose stock is at or below their minimum.
func (s *Service) LowStockMaterials(ctx context.Context) ([]domain.Material, error) {
	materials, err := s.repo.ListMaterials(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Material, 0, len(materials))
	for _, m := range materials {
		if m.LowStock() {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *Service) GetMaterial(ctx context.Context, id string) (domain.Material, error) {
	material, err := s.repo.GetMaterial(ctx, id)
	if err != nil {
		return domain.Material{}, err
	}
	return *material, nil
}

func (s *Service) validateMaterial(req *domain.MaterialInput) error {
	req.Name = strings.TrimSpace(req.Name)
	req.UnitOfMeasure = defaultString(req.UnitOfMeasure, "pz")
	req.SupplierID = optionalID(req.SupplierID)
	if err := s.check(req); err != nil {
		return err
	}
	if err := requireNonNegative("cost_per_unit", req.CostPerUnit); err != nil {
		return err
	}
	return requireNonNegative("min_stock_level", req.MinStockLevel)
}

// CreateMaterial stores a material under a freshly generated SKU.
func (s *Service) CreateMaterial(ctx context.Context, req domain.MaterialInput) (domain.Material, error) {
	if err := s.validateMaterial(&req); err != nil {
		return domain.Material{}, err
	}
	if err := requireNonNegative("current_stock", req.CurrentStock); err != nil {
		return domain.Material{}, err
	}

	var out domain.Material
	err := s.repo.WithTx(ctx, func(tx store.Tx) error {
		code, err := s.newSKU(ctx, tx, store.SKUMaterials)
		if err != nil {
			return err
		}
		now := s.now()
		material := domain.Material{
			ID:            xid.New(),
			Name:          req.Name,
			Description:   req.Description,
			SKU:           code,
			UnitOfMeasure: req.UnitOfMeasure,
			CostPerUnit:   req.CostPerUnit,
			CurrentStock:  req.CurrentStock,
			MinStockLevel: req.MinStockLevel,
			SupplierID:    req.SupplierID,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := tx.CreateMaterial(ctx, material); err != nil {
			return err
		}
		created, err := tx.GetMaterial(ctx, material.ID)
		if err != nil {
			return err
		}
		out = *created
		return nil
	})
	return out, err
}

// UpdateMaterial rewrites a material. Cached component costs are dropped,
// but model production costs keep their stored value until recalculated.
func (s *Service) UpdateMaterial(ctx context.Context, id string, req domain.MaterialInput) (domain.Material, error) {
	if err := s.validateMaterial(&req); err != nil {
		return domain.Material{}, err
	}

	var out domain.Material
	err := s.repo.WithTx(ctx, func(tx store.Tx) error {
		existing, err := tx.GetMaterial(ctx, id)
		if err != nil {
			return err
		}
		updated := *existing
		updated.Name = req.Name
		updated.Description = req.Description
		updated.UnitOfMeasure = req.UnitOfMeasure
		updated.CostPerUnit = req.CostPerUnit
		updated.CurrentStock = req.CurrentStock
		updated.MinStockLevel = req.MinStockLevel
		updated.SupplierID = req.SupplierID
		updated.UpdatedAt = s.now()
		if err := tx.UpdateMaterial(ctx, updated); err != nil {
			return err
		}
		fresh, err := tx.GetMaterial(ctx, id)
		if err != nil {
			return err
		}
		out = *fresh
		return nil
	})
	if err != nil {
		return domain.Material{}, err
	}
	s.flushCosts(ctx)
	return out, nil
}

func (s *Service) DeleteMaterial(ctx context.Context, id string) error {
	if err := s.repo.DeleteMaterial(ctx, id); err != nil {
		return err
	}
	s.flushCosts(ctx)
	return nil
}
