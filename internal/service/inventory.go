package service

import (
	"context"
	"strings"

	"craftstock/backend/internal/domain"
	"craftstock/backend/internal/store"
	"craftstock/backend/internal/xid"
)

func (s *Service) ListInventory(ctx context.Context) ([]domain.InventoryItem, error) {
	return s.repo.ListInventory(ctx)
}

func (s *Service) GetInventoryItem(ctx context.Context, id string) (domain.InventoryItem, error) {
	item, err := s.repo.GetInventoryItem(ctx, id)
	if err != nil {
		return domain.InventoryItem{}, err
	}
	return *item, nil
}

// CreateInventoryItem records a new lot of finished goods.
func (s *Service) CreateInventoryItem(ctx context.Context, req domain.InventoryInput) (domain.InventoryItem, error) {
	req.ModelID = strings.TrimSpace(req.ModelID)
	if err := s.check(req); err != nil {
		return domain.InventoryItem{}, err
	}
	if err := requireNonNegative("quantity", req.Quantity); err != nil {
		return domain.InventoryItem{}, err
	}

	var out domain.InventoryItem
	err := s.repo.WithTx(ctx, func(tx store.Tx) error {
		if _, err := tx.GetModel(ctx, req.ModelID); err != nil {
			return err
		}
		now := s.now()
		item := domain.InventoryItem{
			ID:             xid.New(),
			ModelID:        req.ModelID,
			Quantity:       req.Quantity,
			ProductionDate: req.ProductionDate,
			Notes:          req.Notes,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := tx.CreateInventoryItem(ctx, item); err != nil {
			return err
		}
		created, err := tx.GetInventoryItem(ctx, item.ID)
		if err != nil {
			return err
		}
		out = *created
		return nil
	})
	return out, err
}

// UpdateInventoryItem applies the fields present in req.
func (s *Service) UpdateInventoryItem(ctx context.Context, id string, req domain.InventoryUpdate) (domain.InventoryItem, error) {
	var out domain.InventoryItem
	err := s.repo.WithTx(ctx, func(tx store.Tx) error {
		existing, err := tx.GetInventoryItem(ctx, id)
		if err != nil {
			return err
		}
		updated := *existing
		if req.Quantity != nil {
			updated.Quantity = *req.Quantity
		}
		if req.ProductionDate != nil {
			updated.ProductionDate = req.ProductionDate
		}
		if req.Notes != nil {
			updated.Notes = *req.Notes
		}
		updated.UpdatedAt = s.now()
		if err := tx.UpdateInventoryItem(ctx, updated); err != nil {
			return err
		}
		fresh, err := tx.GetInventoryItem(ctx, id)
		if err != nil {
			return err
		}
		out = *fresh
		return nil
	})
	return out, err
}

func (s *Service) DeleteInventoryItem(ctx context.Context, id string) error {
	return s.repo.DeleteInventoryItem(ctx, id)
}
