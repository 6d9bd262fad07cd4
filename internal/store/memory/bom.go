package memory

import (
	"context"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"craftstock/backend/internal/domain"
)

func (v *view) ListComponents(_ context.Context) ([]domain.Component, error) {
	defer v.read()()

	out := make([]domain.Component, 0, len(v.data.components))
	for _, c := range v.data.components {
		c.Materials = v.componentLinks(c.ID)
		out = append(out, c)
	}
	slices.SortFunc(out, byName(func(c domain.Component) string { return c.Name }))
	return out, nil
}

func (v *view) GetComponent(_ context.Context, id string) (*domain.Component, error) {
	defer v.read()()

	c, ok := v.data.components[id]
	if !ok {
		return nil, notFound("component", id)
	}
	c.Materials = v.componentLinks(id)
	return &c, nil
}

func (v *view) CreateComponent(_ context.Context, component domain.Component) error {
	defer v.write()()

	if _, exists := v.data.components[component.ID]; exists {
		return conflict("component %s already exists", component.ID)
	}
	component.Materials = nil
	v.data.components[component.ID] = component
	return nil
}

func (v *view) UpdateComponent(_ context.Context, component domain.Component) error {
	defer v.write()()

	existing, ok := v.data.components[component.ID]
	if !ok {
		return notFound("component", component.ID)
	}
	component.SKU = existing.SKU
	component.CreatedAt = existing.CreatedAt
	component.Materials = nil
	v.data.components[component.ID] = component
	return nil
}

// DeleteComponent refuses while a model still uses the component and drops
// its material links otherwise.
func (v *view) DeleteComponent(_ context.Context, id string) error {
	defer v.write()()

	if _, ok := v.data.components[id]; !ok {
		return notFound("component", id)
	}
	for modelID, links := range v.data.modelComponents {
		for _, link := range links {
			if link.ComponentID == id {
				return conflict("component %s is used by model %s", id, modelID)
			}
		}
	}
	delete(v.data.components, id)
	delete(v.data.componentMaterials, id)
	return nil
}

func (v *view) ReplaceComponentMaterials(_ context.Context, componentID string, links []domain.ComponentMaterial) error {
	defer v.write()()

	if _, ok := v.data.components[componentID]; !ok {
		return notFound("component", componentID)
	}
	stored := make([]domain.ComponentMaterial, 0, len(links))
	for _, link := range links {
		if _, ok := v.data.materials[link.MaterialID]; !ok {
			return notFound("material", link.MaterialID)
		}
		link.ComponentID = componentID
		link.MaterialName = ""
		link.UnitOfMeasure = ""
		link.MaterialCost = decimal.Zero
		stored = append(stored, link)
	}
	v.data.componentMaterials[componentID] = stored
	return nil
}

func (v *view) ListComponentMaterials(_ context.Context, componentID string) ([]domain.ComponentMaterial, error) {
	defer v.read()()

	if _, ok := v.data.components[componentID]; !ok {
		return nil, notFound("component", componentID)
	}
	return v.componentLinks(componentID), nil
}

func (v *view) ModelIDsUsingComponent(_ context.Context, componentID string) ([]string, error) {
	defer v.read()()

	ids := make([]string, 0)
	for modelID, links := range v.data.modelComponents {
		for _, link := range links {
			if link.ComponentID == componentID {
				ids = append(ids, modelID)
				break
			}
		}
	}
	slices.Sort(ids)
	return ids, nil
}

func (v *view) ListModels(_ context.Context) ([]domain.ProductModel, error) {
	defer v.read()()

	out := make([]domain.ProductModel, 0, len(v.data.models))
	for _, m := range v.data.models {
		m.Components = v.modelComponentLinks(m.ID)
		m.Materials = v.modelMaterialLinks(m.ID)
		out = append(out, m)
	}
	slices.SortFunc(out, byName(func(m domain.ProductModel) string { return m.Name }))
	return out, nil
}

func (v *view) GetModel(_ context.Context, id string) (*domain.ProductModel, error) {
	defer v.read()()

	m, ok := v.data.models[id]
	if !ok {
		return nil, notFound("model", id)
	}
	m.Components = v.modelComponentLinks(id)
	m.Materials = v.modelMaterialLinks(id)
	return &m, nil
}

func (v *view) CreateModel(_ context.Context, model domain.ProductModel) error {
	defer v.write()()

	if _, exists := v.data.models[model.ID]; exists {
		return conflict("model %s already exists", model.ID)
	}
	model.Components = nil
	model.Materials = nil
	v.data.models[model.ID] = model
	return nil
}

func (v *view) UpdateModel(_ context.Context, model domain.ProductModel) error {
	defer v.write()()

	existing, ok := v.data.models[model.ID]
	if !ok {
		return notFound("model", model.ID)
	}
	model.SKU = existing.SKU
	model.CreatedAt = existing.CreatedAt
	model.ProductionCost = existing.ProductionCost
	model.Components = nil
	model.Materials = nil
	v.data.models[model.ID] = model
	return nil
}

// DeleteModel drops the model with its links. Lots and transaction items
// that still reference it block the delete.
func (v *view) DeleteModel(_ context.Context, id string) error {
	defer v.write()()

	if _, ok := v.data.models[id]; !ok {
		return notFound("model", id)
	}
	for _, rec := range v.data.lots {
		if rec.item.ModelID == id {
			return conflict("model %s still has inventory lot %s", id, rec.item.ID)
		}
	}
	for _, rec := range v.data.transactions {
		for _, item := range rec.tx.Items {
			if optionalRef(item.ProductModelID) == id {
				return conflict("model %s is referenced by transaction %s", id, rec.tx.ID)
			}
		}
	}
	delete(v.data.models, id)
	delete(v.data.modelComponents, id)
	delete(v.data.modelMaterials, id)
	return nil
}

func (v *view) ReplaceModelComponents(_ context.Context, modelID string, links []domain.ModelComponent) error {
	defer v.write()()

	if _, ok := v.data.models[modelID]; !ok {
		return notFound("model", modelID)
	}
	stored := make([]domain.ModelComponent, 0, len(links))
	for _, link := range links {
		if _, ok := v.data.components[link.ComponentID]; !ok {
			return notFound("component", link.ComponentID)
		}
		link.ModelID = modelID
		link.ComponentName = ""
		stored = append(stored, link)
	}
	v.data.modelComponents[modelID] = stored
	return nil
}

func (v *view) ReplaceModelMaterials(_ context.Context, modelID string, links []domain.ModelMaterial) error {
	defer v.write()()

	if _, ok := v.data.models[modelID]; !ok {
		return notFound("model", modelID)
	}
	stored := make([]domain.ModelMaterial, 0, len(links))
	for _, link := range links {
		if _, ok := v.data.materials[link.MaterialID]; !ok {
			return notFound("material", link.MaterialID)
		}
		link.ModelID = modelID
		link.MaterialName = ""
		link.CostPerUnit = decimal.Zero
		stored = append(stored, link)
	}
	v.data.modelMaterials[modelID] = stored
	return nil
}

func (v *view) ListModelComponents(_ context.Context, modelID string) ([]domain.ModelComponent, error) {
	defer v.read()()

	if _, ok := v.data.models[modelID]; !ok {
		return nil, notFound("model", modelID)
	}
	return v.modelComponentLinks(modelID), nil
}

func (v *view) ListModelMaterials(_ context.Context, modelID string) ([]domain.ModelMaterial, error) {
	defer v.read()()

	if _, ok := v.data.models[modelID]; !ok {
		return nil, notFound("model", modelID)
	}
	return v.modelMaterialLinks(modelID), nil
}

func (v *view) SetModelProductionCost(_ context.Context, modelID string, cost decimal.Decimal, at time.Time) error {
	defer v.write()()

	m, ok := v.data.models[modelID]
	if !ok {
		return notFound("model", modelID)
	}
	m.ProductionCost = cost
	m.UpdatedAt = at
	v.data.models[modelID] = m
	return nil
}

func (v *view) componentLinks(componentID string) []domain.ComponentMaterial {
	links := v.data.componentMaterials[componentID]
	out := make([]domain.ComponentMaterial, 0, len(links))
	for _, link := range links {
		material := v.data.materials[link.MaterialID]
		link.MaterialName = material.Name
		link.UnitOfMeasure = material.UnitOfMeasure
		link.MaterialCost = material.CostPerUnit
		out = append(out, link)
	}
	return out
}

func (v *view) modelComponentLinks(modelID string) []domain.ModelComponent {
	links := v.data.modelComponents[modelID]
	out := make([]domain.ModelComponent, 0, len(links))
	for _, link := range links {
		link.ComponentName = v.data.components[link.ComponentID].Name
		out = append(out, link)
	}
	return out
}

func (v *view) modelMaterialLinks(modelID string) []domain.ModelMaterial {
	links := v.data.modelMaterials[modelID]
	out := make([]domain.ModelMaterial, 0, len(links))
	for _, link := range links {
		material := v.data.materials[link.MaterialID]
		link.MaterialName = material.Name
		link.CostPerUnit = material.CostPerUnit
		out = append(out, link)
	}
	return out
}
