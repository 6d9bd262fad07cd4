package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"craftstock/backend/internal/domain"
	"craftstock/backend/internal/ledger"
	"craftstock/backend/internal/store"
	"craftstock/backend/internal/xid"
)

func (s *Service) ListComponents(ctx context.Context) ([]domain.Component, error) {
	return s.repo.ListComponents(ctx)
}

func (s *Service) GetComponent(ctx context.Context, id string) (domain.Component, error) {
	component, err := s.repo.GetComponent(ctx, id)
	if err != nil {
		return domain.Component{}, err
	}
	return *component, nil
}

func (s *Service) CreateComponent(ctx context.Context, req domain.ComponentInput) (domain.Component, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := s.check(req); err != nil {
		return domain.Component{}, err
	}

	var out domain.Component
	err := s.repo.WithTx(ctx, func(tx store.Tx) error {
		code, err := s.newSKU(ctx, tx, store.SKUComponents)
		if err != nil {
			return err
		}
		now := s.now()
		component := domain.Component{
			ID:          xid.New(),
			Name:        req.Name,
			Description: req.Description,
			SKU:         code,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := tx.CreateComponent(ctx, component); err != nil {
			return err
		}
		if req.Materials != nil {
			if err := s.replaceComponentLinks(ctx, tx, component.ID, *req.Materials); err != nil {
				return err
			}
		}
		created, err := tx.GetComponent(ctx, component.ID)
		if err != nil {
			return err
		}
		out = *created
		return nil
	})
	return out, err
}

// UpdateComponent rewrites the component header. When material links are
// supplied they replace the stored ones and every model using the component
// is recalculated in the same unit of work.
func (s *Service) UpdateComponent(ctx context.Context, id string, req domain.ComponentInput) (domain.Component, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := s.check(req); err != nil {
		return domain.Component{}, err
	}

	var (
		out      domain.Component
		affected []string
	)
	err := s.repo.WithTx(ctx, func(tx store.Tx) error {
		existing, err := tx.GetComponent(ctx, id)
		if err != nil {
			return err
		}
		at := s.now()
		updated := *existing
		updated.Name = req.Name
		updated.Description = req.Description
		updated.UpdatedAt = at
		if err := tx.UpdateComponent(ctx, updated); err != nil {
			return err
		}

		if req.Materials != nil {
			if err := s.replaceComponentLinks(ctx, tx, id, *req.Materials); err != nil {
				return err
			}
			affected, err = tx.ModelIDsUsingComponent(ctx, id)
			if err != nil {
				return err
			}
			for _, modelID := range affected {
				if _, err := s.recalculate(ctx, tx, modelID); err != nil {
					return err
				}
			}
		}

		fresh, err := tx.GetComponent(ctx, id)
		if err != nil {
			return err
		}
		out = *fresh
		return nil
	})
	if err != nil {
		return domain.Component{}, err
	}
	s.invalidateCosts(ctx, id)
	if len(affected) > 0 {
		log.Info().Str("component_id", id).Int("models", len(affected)).Msg("recalculated models after component change")
	}
	return out, nil
}

func (s *Service) DeleteComponent(ctx context.Context, id string) error {
	if err := s.repo.DeleteComponent(ctx, id); err != nil {
		return err
	}
	s.invalidateCosts(ctx, id)
	return nil
}

func (s *Service) replaceComponentLinks(ctx context.Context, tx store.Tx, componentID string, inputs []domain.ComponentMaterialInput) error {
	ids := make([]string, 0, len(inputs))
	for _, in := range inputs {
		ids = append(ids, strings.TrimSpace(in.MaterialID))
	}
	materials, err := tx.GetMaterialsByIDs(ctx, ids)
	if err != nil {
		return err
	}

	links := make([]domain.ComponentMaterial, 0, len(inputs))
	for i, in := range inputs {
		materialID := ids[i]
		if _, ok := materials[materialID]; !ok {
			return store.NotFoundf("materials[%d]: material %s does not exist", i, materialID)
		}
		if err := requirePositive(fmt.Sprintf("materials[%d].quantity", i), in.Quantity); err != nil {
			return err
		}
		useMaterialCost := in.UseMaterialCost == nil || *in.UseMaterialCost
		link := domain.ComponentMaterial{
			ID:              xid.New(),
			ComponentID:     componentID,
			MaterialID:      materialID,
			Quantity:        in.Quantity,
			UseMaterialCost: useMaterialCost,
		}
		if !useMaterialCost {
			if !in.CustomCost.Valid {
				return store.Invalidf("materials[%d]: custom_cost is required when use_material_cost is false", i)
			}
			if in.CustomCost.Decimal.IsNegative() {
				return store.Invalidf("materials[%d]: custom_cost must not be negative", i)
			}
			link.CustomCost = in.CustomCost
		}
		links = append(links, link)
	}
	return tx.ReplaceComponentMaterials(ctx, componentID, links)
}

// ComputeComponentCost returns the material cost of one component unit.
func (s *Service) ComputeComponentCost(ctx context.Context, componentID string) (decimal.Decimal, error) {
	breakdown, err := s.ComponentCostBreakdown(ctx, componentID)
	if err != nil {
		return decimal.Zero, err
	}
	return breakdown.TotalCost, nil
}

// ComponentCostBreakdown prices every material link of a component. Results
// are cached; cache failures only cost a recomputation.
func (s *Service) ComponentCostBreakdown(ctx context.Context, componentID string) (domain.ComponentCostBreakdown, error) {
	if cached, ok, err := s.costs.Get(ctx, componentID); err != nil {
		log.Warn().Err(err).Str("component_id", componentID).Msg("read component cost cache")
	} else if ok {
		return *cached, nil
	}

	component, err := s.repo.GetComponent(ctx, componentID)
	if err != nil {
		return domain.ComponentCostBreakdown{}, err
	}
	breakdown := ledger.ComponentBreakdown(*component)
	if err := s.costs.Set(ctx, &breakdown, s.costTTL); err != nil {
		log.Warn().Err(err).Str("component_id", componentID).Msg("write component cost cache")
	}
	return breakdown, nil
}

// componentCost computes a component's cost from live rows read through tx.
func componentCost(ctx context.Context, tx store.Tx, componentID string) (decimal.Decimal, error) {
	links, err := tx.ListComponentMaterials(ctx, componentID)
	if err != nil {
		return decimal.Zero, err
	}
	lines := make([]ledger.MaterialLine, 0, len(links))
	for _, link := range links {
		lines = append(lines, ledger.LineFromLink(link))
	}
	return ledger.ComponentCost(lines), nil
}

// modelCost rolls a model's bill of materials up into one production cost.
func modelCost(ctx context.Context, tx store.Tx, modelID string) (decimal.Decimal, error) {
	if _, err := tx.GetModel(ctx, modelID); err != nil {
		return decimal.Zero, err
	}
	components, err := tx.ListModelComponents(ctx, modelID)
	if err != nil {
		return decimal.Zero, err
	}
	materials, err := tx.ListModelMaterials(ctx, modelID)
	if err != nil {
		return decimal.Zero, err
	}

	unitCosts := make(map[string]decimal.Decimal, len(components))
	links := make([]ledger.BOMLink, 0, len(components)+len(materials))
	for _, link := range components {
		cost, ok := unitCosts[link.ComponentID]
		if !ok {
			cost, err = componentCost(ctx, tx, link.ComponentID)
			if err != nil {
				return decimal.Zero, err
			}
			unitCosts[link.ComponentID] = cost
		}
		links = append(links, ledger.ComponentLink{ComponentID: link.ComponentID, Quantity: link.Quantity, ComponentCost: cost})
	}
	for _, link := range materials {
		links = append(links, ledger.DirectMaterialLink{MaterialID: link.MaterialID, Quantity: link.Quantity, CostPerUnit: link.CostPerUnit})
	}
	return ledger.ProductionCost(links), nil
}

// ComputeModelProductionCost returns the current production cost of a model
// without touching its stored value.
func (s *Service) ComputeModelProductionCost(ctx context.Context, modelID string) (decimal.Decimal, error) {
	var cost decimal.Decimal
	err := s.repo.WithTx(ctx, func(tx store.Tx) error {
		var err error
		cost, err = modelCost(ctx, tx, modelID)
		return err
	})
	return cost, err
}

func (s *Service) recalculate(ctx context.Context, tx store.Tx, modelID string) (decimal.Decimal, error) {
	cost, err := modelCost(ctx, tx, modelID)
	if err != nil {
		return decimal.Zero, err
	}
	if err := tx.SetModelProductionCost(ctx, modelID, cost, s.now()); err != nil {
		return decimal.Zero, err
	}
	return cost, nil
}

// RecalculateModelCost recomputes a model's production cost and stores it.
func (s *Service) RecalculateModelCost(ctx context.Context, modelID string) (domain.ProductModel, error) {
	var out domain.ProductModel
	err := s.repo.WithTx(ctx, func(tx store.Tx) error {
		if _, err := s.recalculate(ctx, tx, modelID); err != nil {
			return err
		}
		model, err := tx.GetModel(ctx, modelID)
		if err != nil {
			return err
		}
		out = *model
		return nil
	})
	return out, err
}

// RecalculateAllModelCosts refreshes every model in one unit of work.
func (s *Service) RecalculateAllModelCosts(ctx context.Context) ([]domain.ProductModel, error) {
	var out []domain.ProductModel
	err := s.repo.WithTx(ctx, func(tx store.Tx) error {
		models, err := tx.ListModels(ctx)
		if err != nil {
			return err
		}
		for _, m := range models {
			if _, err := s.recalculate(ctx, tx, m.ID); err != nil {
				return err
			}
		}
		out, err = tx.ListModels(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	log.Info().Int("models", len(out)).Str("actor", logActor(ctx)).Msg("recalculated production costs")
	return out, nil
}

func (s *Service) ListModels(ctx context.Context) ([]domain.ProductModel, error) {
	return s.repo.ListModels(ctx)
}

func (s *Service) GetModel(ctx context.Context, id string) (domain.ProductModel, error) {
	model, err := s.repo.GetModel(ctx, id)
	if err != nil {
		return domain.ProductModel{}, err
	}
	return *model, nil
}

func (s *Service) validateModel(req *domain.ModelInput) error {
	req.Name = strings.TrimSpace(req.Name)
	if err := s.check(req); err != nil {
		return err
	}
	return requireNonNegative("selling_price", req.SellingPrice)
}

// CreateModel stores a model with its bill of materials and computes its
// production cost before commit.
func (s *Service) CreateModel(ctx context.Context, req domain.ModelInput) (domain.ProductModel, error) {
	if err := s.validateModel(&req); err != nil {
		return domain.ProductModel{}, err
	}

	var out domain.ProductModel
	err := s.repo.WithTx(ctx, func(tx store.Tx) error {
		code, err := s.newSKU(ctx, tx, store.SKUModels)
		if err != nil {
			return err
		}
		now := s.now()
		model := domain.ProductModel{
			ID:               xid.New(),
			Name:             req.Name,
			Description:      req.Description,
			SKU:              code,
			SellingPrice:     req.SellingPrice,
			LaborTimeMinutes: req.LaborTimeMinutes,
			ProductionCost:   decimal.Zero,
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		if err := tx.CreateModel(ctx, model); err != nil {
			return err
		}
		if err := s.replaceModelLinks(ctx, tx, model.ID, req); err != nil {
			return err
		}
		if _, err := s.recalculate(ctx, tx, model.ID); err != nil {
			return err
		}
		created, err := tx.GetModel(ctx, model.ID)
		if err != nil {
			return err
		}
		out = *created
		return nil
	})
	return out, err
}

// UpdateModel rewrites the model header and, when links are supplied,
// replaces them and recomputes the production cost.
func (s *Service) UpdateModel(ctx context.Context, id string, req domain.ModelInput) (domain.ProductModel, error) {
	if err := s.validateModel(&req); err != nil {
		return domain.ProductModel{}, err
	}

	var out domain.ProductModel
	err := s.repo.WithTx(ctx, func(tx store.Tx) error {
		existing, err := tx.GetModel(ctx, id)
		if err != nil {
			return err
		}
		updated := *existing
		updated.Name = req.Name
		updated.Description = req.Description
		updated.SellingPrice = req.SellingPrice
		updated.LaborTimeMinutes = req.LaborTimeMinutes
		updated.UpdatedAt = s.now()
		if err := tx.UpdateModel(ctx, updated); err != nil {
			return err
		}
		if req.Components != nil || req.Materials != nil {
			if err := s.replaceModelLinks(ctx, tx, id, req); err != nil {
				return err
			}
			if _, err := s.recalculate(ctx, tx, id); err != nil {
				return err
			}
		}
		fresh, err := tx.GetModel(ctx, id)
		if err != nil {
			return err
		}
		out = *fresh
		return nil
	})
	return out, err
}

func (s *Service) DeleteModel(ctx context.Context, id string) error {
	return s.repo.DeleteModel(ctx, id)
}

// replaceModelLinks writes whichever link lists req carries. A nil list
// leaves the stored links untouched.
func (s *Service) replaceModelLinks(ctx context.Context, tx store.Tx, modelID string, req domain.ModelInput) error {
	if req.Components != nil {
		links := make([]domain.ModelComponent, 0, len(*req.Components))
		for i, in := range *req.Components {
			componentID := strings.TrimSpace(in.ComponentID)
			if _, err := tx.GetComponent(ctx, componentID); err != nil {
				if errors.Is(err, store.ErrNotFound) {
					return store.NotFoundf("components[%d]: component %s does not exist", i, componentID)
				}
				return err
			}
			if err := requirePositive(fmt.Sprintf("components[%d].quantity", i), in.Quantity); err != nil {
				return err
			}
			links = append(links, domain.ModelComponent{
				ID:          xid.New(),
				ModelID:     modelID,
				ComponentID: componentID,
				Quantity:    in.Quantity,
			})
		}
		if err := tx.ReplaceModelComponents(ctx, modelID, links); err != nil {
			return err
		}
	}

	if req.Materials != nil {
		ids := make([]string, 0, len(*req.Materials))
		for _, in := range *req.Materials {
			ids = append(ids, strings.TrimSpace(in.MaterialID))
		}
		materials, err := tx.GetMaterialsByIDs(ctx, ids)
		if err != nil {
			return err
		}
		links := make([]domain.ModelMaterial, 0, len(ids))
		for i, in := range *req.Materials {
			if _, ok := materials[ids[i]]; !ok {
				return store.NotFoundf("materials[%d]: material %s does not exist", i, ids[i])
			}
			if err := requirePositive(fmt.Sprintf("materials[%d].quantity", i), in.Quantity); err != nil {
				return err
			}
			links = append(links, domain.ModelMaterial{
				ID:         xid.New(),
				ModelID:    modelID,
				MaterialID: ids[i],
				Quantity:   in.Quantity,
			})
		}
		if err := tx.ReplaceModelMaterials(ctx, modelID, links); err != nil {
			return err
		}
	}
	return nil
}
