package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/shopspring/decimal"

	"craftstock/backend/internal/domain"
	"craftstock/backend/internal/store"
)

func (q *queries) ListComponents(ctx context.Context) ([]domain.Component, error) {
	rows, err := q.q.QueryContext(ctx, `
		SELECT id, name, description, sku, created_at, updated_at
		FROM components
		ORDER BY name
	`)
	if err != nil {
		return nil, store.Persistence("list components", err)
	}
	defer rows.Close()

	components := make([]domain.Component, 0, 32)
	for rows.Next() {
		var c domain.Component
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.SKU, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, store.Persistence("scan component", err)
		}
		components = append(components, c)
	}
	if err := rows.Err(); err != nil {
		return nil, store.Persistence("list components", err)
	}

	for i := range components {
		links, err := q.componentLinks(ctx, components[i].ID)
		if err != nil {
			return nil, err
		}
		components[i].Materials = links
	}
	return components, nil
}

func (q *queries) GetComponent(ctx context.Context, id string) (*domain.Component, error) {
	var c domain.Component
	err := q.q.QueryRowContext(ctx, `
		SELECT id, name, description, sku, created_at, updated_at
		FROM components
		WHERE id = $1
	`, id).Scan(&c.ID, &c.Name, &c.Description, &c.SKU, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, readErr("get component", "component", id, err)
	}
	links, err := q.componentLinks(ctx, id)
	if err != nil {
		return nil, err
	}
	c.Materials = links
	return &c, nil
}

func (q *queries) CreateComponent(ctx context.Context, c domain.Component) error {
	_, err := q.q.ExecContext(ctx, `
		INSERT INTO components (id, name, description, sku, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, c.ID, c.Name, c.Description, c.SKU, c.CreatedAt, c.UpdatedAt)
	return writeErr("create component", err)
}

func (q *queries) UpdateComponent(ctx context.Context, c domain.Component) error {
	res, err := q.q.ExecContext(ctx, `
		UPDATE components SET name = $2, description = $3, updated_at = $4
		WHERE id = $1
	`, c.ID, c.Name, c.Description, c.UpdatedAt)
	return expectRow("update component", "component", c.ID, res, err)
}

func (q *queries) DeleteComponent(ctx context.Context, id string) error {
	res, err := q.q.ExecContext(ctx, `DELETE FROM components WHERE id = $1`, id)
	return expectDeleted("delete component", "component", id, res, err)
}

func (q *queries) ReplaceComponentMaterials(ctx context.Context, componentID string, links []domain.ComponentMaterial) error {
	if _, err := q.q.ExecContext(ctx, `DELETE FROM component_materials WHERE component_id = $1`, componentID); err != nil {
		return store.Persistence("clear component materials", err)
	}
	for i, link := range links {
		_, err := q.q.ExecContext(ctx, `
			INSERT INTO component_materials (id, component_id, material_id, quantity, use_material_cost, custom_cost, position)
			VALUES ($1,$2,$3,$4,$5,$6,$7)
		`, link.ID, componentID, link.MaterialID, link.Quantity, link.UseMaterialCost, link.CustomCost, i)
		if err != nil {
			return writeErr("insert component material", err)
		}
	}
	return nil
}

func (q *queries) ListComponentMaterials(ctx context.Context, componentID string) ([]domain.ComponentMaterial, error) {
	var exists bool
	if err := q.q.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM components WHERE id = $1)`, componentID).Scan(&exists); err != nil {
		return nil, store.Persistence("component exists", err)
	}
	if !exists {
		return nil, readErr("component materials", "component", componentID, sql.ErrNoRows)
	}
	return q.componentLinks(ctx, componentID)
}

func (q *queries) componentLinks(ctx context.Context, componentID string) ([]domain.ComponentMaterial, error) {
	rows, err := q.q.QueryContext(ctx, `
		SELECT cm.id, cm.component_id, cm.material_id, m.name, m.unit_of_measure, m.cost_per_unit,
			cm.quantity, cm.use_material_cost, cm.custom_cost
		FROM component_materials cm
		JOIN materials m ON m.id = cm.material_id
		WHERE cm.component_id = $1
		ORDER BY cm.position, cm.id
	`, componentID)
	if err != nil {
		return nil, store.Persistence("component materials", err)
	}
	defer rows.Close()

	links := make([]domain.ComponentMaterial, 0, 8)
	for rows.Next() {
		var l domain.ComponentMaterial
		if err := rows.Scan(&l.ID, &l.ComponentID, &l.MaterialID, &l.MaterialName, &l.UnitOfMeasure, &l.MaterialCost,
			&l.Quantity, &l.UseMaterialCost, &l.CustomCost); err != nil {
			return nil, store.Persistence("scan component material", err)
		}
		links = append(links, l)
	}
	if err := rows.Err(); err != nil {
		return nil, store.Persistence("component materials", err)
	}
	return links, nil
}

func (q *queries) ModelIDsUsingComponent(ctx context.Context, componentID string) ([]string, error) {
	rows, err := q.q.QueryContext(ctx, `
		SELECT DISTINCT model_id FROM model_components WHERE component_id = $1 ORDER BY model_id
	`, componentID)
	if err != nil {
		return nil, store.Persistence("models using component", err)
	}
	defer rows.Close()

	ids := make([]string, 0, 4)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, store.Persistence("scan model id", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, store.Persistence("models using component", err)
	}
	return ids, nil
}

const modelColumns = `id, name, description, sku, selling_price, labor_time_minutes, production_cost, created_at, updated_at`

func scanModel(row rowScanner) (domain.ProductModel, error) {
	var m domain.ProductModel
	err := row.Scan(&m.ID, &m.Name, &m.Description, &m.SKU, &m.SellingPrice, &m.LaborTimeMinutes, &m.ProductionCost, &m.CreatedAt, &m.UpdatedAt)
	return m, err
}

func (q *queries) ListModels(ctx context.Context) ([]domain.ProductModel, error) {
	rows, err := q.q.QueryContext(ctx, `SELECT `+modelColumns+` FROM product_models ORDER BY name`)
	if err != nil {
		return nil, store.Persistence("list models", err)
	}
	defer rows.Close()

	models := make([]domain.ProductModel, 0, 32)
	for rows.Next() {
		m, err := scanModel(rows)
		if err != nil {
			return nil, store.Persistence("scan model", err)
		}
		models = append(models, m)
	}
	if err := rows.Err(); err != nil {
		return nil, store.Persistence("list models", err)
	}

	for i := range models {
		if err := q.loadModelLinks(ctx, &models[i]); err != nil {
			return nil, err
		}
	}
	return models, nil
}

func (q *queries) GetModel(ctx context.Context, id string) (*domain.ProductModel, error) {
	m, err := scanModel(q.q.QueryRowContext(ctx, `SELECT `+modelColumns+` FROM product_models WHERE id = $1`, id))
	if err != nil {
		return nil, readErr("get model", "model", id, err)
	}
	if err := q.loadModelLinks(ctx, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (q *queries) loadModelLinks(ctx context.Context, m *domain.ProductModel) error {
	components, err := q.modelComponentLinks(ctx, m.ID)
	if err != nil {
		return err
	}
	materials, err := q.modelMaterialLinks(ctx, m.ID)
	if err != nil {
		return err
	}
	m.Components = components
	m.Materials = materials
	return nil
}

func (q *queries) CreateModel(ctx context.Context, m domain.ProductModel) error {
	_, err := q.q.ExecContext(ctx, `
		INSERT INTO product_models (
			id, name, description, sku, selling_price, labor_time_minutes, production_cost, created_at, updated_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, m.ID, m.Name, m.Description, m.SKU, m.SellingPrice, m.LaborTimeMinutes, m.ProductionCost, m.CreatedAt, m.UpdatedAt)
	return writeErr("create model", err)
}

func (q *queries) UpdateModel(ctx context.Context, m domain.ProductModel) error {
	res, err := q.q.ExecContext(ctx, `
		UPDATE product_models
		SET name = $2, description = $3, selling_price = $4, labor_time_minutes = $5, updated_at = $6
		WHERE id = $1
	`, m.ID, m.Name, m.Description, m.SellingPrice, m.LaborTimeMinutes, m.UpdatedAt)
	return expectRow("update model", "model", m.ID, res, err)
}

func (q *queries) DeleteModel(ctx context.Context, id string) error {
	res, err := q.q.ExecContext(ctx, `DELETE FROM product_models WHERE id = $1`, id)
	return expectDeleted("delete model", "model", id, res, err)
}

func (q *queries) ReplaceModelComponents(ctx context.Context, modelID string, links []domain.ModelComponent) error {
	if _, err := q.q.ExecContext(ctx, `DELETE FROM model_components WHERE model_id = $1`, modelID); err != nil {
		return store.Persistence("clear model components", err)
	}
	for i, link := range links {
		_, err := q.q.ExecContext(ctx, `
			INSERT INTO model_components (id, model_id, component_id, quantity, position)
			VALUES ($1,$2,$3,$4,$5)
		`, link.ID, modelID, link.ComponentID, link.Quantity, i)
		if err != nil {
			return writeErr("insert model component", err)
		}
	}
	return nil
}

func (q *queries) ReplaceModelMaterials(ctx context.Context, modelID string, links []domain.ModelMaterial) error {
	if _, err := q.q.ExecContext(ctx, `DELETE FROM model_materials WHERE model_id = $1`, modelID); err != nil {
		return store.Persistence("clear model materials", err)
	}
	for i, link := range links {
		_, err := q.q.ExecContext(ctx, `
			INSERT INTO model_materials (id, model_id, material_id, quantity, position)
			VALUES ($1,$2,$3,$4,$5)
		`, link.ID, modelID, link.MaterialID, link.Quantity, i)
		if err != nil {
			return writeErr("insert model material", err)
		}
	}
	return nil
}

func (q *queries) ListModelComponents(ctx context.Context, modelID string) ([]domain.ModelComponent, error) {
	if err := q.requireModel(ctx, modelID); err != nil {
		return nil, err
	}
	return q.modelComponentLinks(ctx, modelID)
}

func (q *queries) ListModelMaterials(ctx context.Context, modelID string) ([]domain.ModelMaterial, error) {
	if err := q.requireModel(ctx, modelID); err != nil {
		return nil, err
	}
	return q.modelMaterialLinks(ctx, modelID)
}

func (q *queries) SetModelProductionCost(ctx context.Context, modelID string, cost decimal.Decimal, at time.Time) error {
	res, err := q.q.ExecContext(ctx, `
		UPDATE product_models SET production_cost = $2, updated_at = $3 WHERE id = $1
	`, modelID, cost, at)
	return expectRow("set production cost", "model", modelID, res, err)
}

func (q *queries) requireModel(ctx context.Context, modelID string) error {
	var exists bool
	if err := q.q.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM product_models WHERE id = $1)`, modelID).Scan(&exists); err != nil {
		return store.Persistence("model exists", err)
	}
	if !exists {
		return readErr("model", "model", modelID, sql.ErrNoRows)
	}
	return nil
}

func (q *queries) modelComponentLinks(ctx context.Context, modelID string) ([]domain.ModelComponent, error) {
	rows, err := q.q.QueryContext(ctx, `
		SELECT mc.id, mc.model_id, mc.component_id, c.name, mc.quantity
		FROM model_components mc
		JOIN components c ON c.id = mc.component_id
		WHERE mc.model_id = $1
		ORDER BY mc.position, mc.id
	`, modelID)
	if err != nil {
		return nil, store.Persistence("model components", err)
	}
	defer rows.Close()

	links := make([]domain.ModelComponent, 0, 8)
	for rows.Next() {
		var l domain.ModelComponent
		if err := rows.Scan(&l.ID, &l.ModelID, &l.ComponentID, &l.ComponentName, &l.Quantity); err != nil {
			return nil, store.Persistence("scan model component", err)
		}
		links = append(links, l)
	}
	if err := rows.Err(); err != nil {
		return nil, store.Persistence("model components", err)
	}
	return links, nil
}

func (q *queries) modelMaterialLinks(ctx context.Context, modelID string) ([]domain.ModelMaterial, error) {
	rows, err := q.q.QueryContext(ctx, `
		SELECT mm.id, mm.model_id, mm.material_id, m.name, m.cost_per_unit, mm.quantity
		FROM model_materials mm
		JOIN materials m ON m.id = mm.material_id
		WHERE mm.model_id = $1
		ORDER BY mm.position, mm.id
	`, modelID)
	if err != nil {
		return nil, store.Persistence("model materials", err)
	}
	defer rows.Close()

	links := make([]domain.ModelMaterial, 0, 8)
	for rows.Next() {
		var l domain.ModelMaterial
		if err := rows.Scan(&l.ID, &l.ModelID, &l.MaterialID, &l.MaterialName, &l.CostPerUnit, &l.Quantity); err != nil {
			return nil, store.Persistence("scan model material", err)
		}
		links = append(links, l)
	}
	if err := rows.Err(); err != nil {
		return nil, store.Persistence("model materials", err)
	}
	return links, nil
}
