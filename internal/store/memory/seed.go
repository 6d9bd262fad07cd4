package memory

import (
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"craftstock/backend/internal/domain"
)

// Demo row identifiers shared with the postgres seed so both backends reset
// to the same dataset.
const (
	SeedSupplierTimber   = "5b0d6f4e-1c2a-4d0e-9a51-0f7c2d9e3a01"
	SeedSupplierHardware = "5b0d6f4e-1c2a-4d0e-9a51-0f7c2d9e3a02"
	SeedCustomerPrivate  = "7c1e8a5f-2d3b-4e1f-8b62-1a8d3e0f4b01"
	SeedCustomerBusiness = "7c1e8a5f-2d3b-4e1f-8b62-1a8d3e0f4b02"
	SeedMaterialOak      = "9d2f9b60-3e4c-4f20-9c73-2b9e4f1a5c01"
	SeedMaterialScrew    = "9d2f9b60-3e4c-4f20-9c73-2b9e4f1a5c02"
	SeedMaterialOil      = "9d2f9b60-3e4c-4f20-9c73-2b9e4f1a5c03"
	SeedMaterialFelt     = "9d2f9b60-3e4c-4f20-9c73-2b9e4f1a5c04"
	SeedComponentLeg     = "ae30ac71-4f5d-4031-8d84-3caf5a2b6d01"
	SeedComponentTop     = "ae30ac71-4f5d-4031-8d84-3caf5a2b6d02"
	SeedModelTable       = "bf41bd82-5a6e-4142-9e95-4db06b3c7e01"
	SeedLotTable         = "c052ce93-6b7f-4253-8fa6-5ec17c4d8f01"
	SeedUserAdmin        = "d163dfa4-7c80-4364-90b7-6fd28d5e9a01"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func strPtr(s string) *string {
	return &s
}

// seedDataset builds the demo workshop: two suppliers, two customers, four
// materials, a dining table made of a top and four legs, and one lot.
func seedDataset() *dataset {
	d := newDataset()
	now := time.Now().UTC()

	d.suppliers[SeedSupplierTimber] = domain.Supplier{ID: SeedSupplierTimber, Name: "Northwood Timber", ContactPerson: "Elena Marchetti", Email: "orders@northwood.example", Phone: "+39 055 123456", CreatedAt: now, UpdatedAt: now}
	d.suppliers[SeedSupplierHardware] = domain.Supplier{ID: SeedSupplierHardware, Name: "Atlas Hardware", ContactPerson: "Marco Bini", Email: "sales@atlas.example", CreatedAt: now, UpdatedAt: now}

	d.customers[SeedCustomerPrivate] = domain.Customer{ID: SeedCustomerPrivate, Name: "Maria Rossi", CustomerType: "private", Email: "maria.rossi@example.com", CreatedAt: now, UpdatedAt: now}
	d.customers[SeedCustomerBusiness] = domain.Customer{ID: SeedCustomerBusiness, Name: "Studio Verde", ContactPerson: "Luca Verdi", CustomerType: "business", CreatedAt: now, UpdatedAt: now}

	d.materials[SeedMaterialOak] = domain.Material{ID: SeedMaterialOak, Name: "Oak board", SKU: "OAKB0001", UnitOfMeasure: "m", CostPerUnit: dec("12.50"), CurrentStock: dec("40"), MinStockLevel: dec("10"), SupplierID: strPtr(SeedSupplierTimber), CreatedAt: now, UpdatedAt: now}
	d.materials[SeedMaterialScrew] = domain.Material{ID: SeedMaterialScrew, Name: "Steel screw 4x40", SKU: "SCRW0001", UnitOfMeasure: "pz", CostPerUnit: dec("0.05"), CurrentStock: dec("2000"), MinStockLevel: dec("500"), SupplierID: strPtr(SeedSupplierHardware), CreatedAt: now, UpdatedAt: now}
	d.materials[SeedMaterialOil] = domain.Material{ID: SeedMaterialOil, Name: "Linseed oil", SKU: "OILL0001", UnitOfMeasure: "l", CostPerUnit: dec("8.00"), CurrentStock: dec("2"), MinStockLevel: dec("2"), CreatedAt: now, UpdatedAt: now}
	d.materials[SeedMaterialFelt] = domain.Material{ID: SeedMaterialFelt, Name: "Felt pad", SKU: "FELT0001", UnitOfMeasure: "pz", CostPerUnit: dec("0.20"), CurrentStock: dec("150"), MinStockLevel: dec("50"), CreatedAt: now, UpdatedAt: now}

	d.components[SeedComponentLeg] = domain.Component{ID: SeedComponentLeg, Name: "Table leg", SKU: "LEGC0001", CreatedAt: now, UpdatedAt: now}
	d.components[SeedComponentTop] = domain.Component{ID: SeedComponentTop, Name: "Table top", SKU: "TOPC0001", CreatedAt: now, UpdatedAt: now}
	d.componentMaterials[SeedComponentLeg] = []domain.ComponentMaterial{
		{ID: "e274e0b5-8d91-4475-a1c8-70e39e6fab01", ComponentID: SeedComponentLeg, MaterialID: SeedMaterialOak, Quantity: dec("0.8"), UseMaterialCost: true},
		{ID: "e274e0b5-8d91-4475-a1c8-70e39e6fab02", ComponentID: SeedComponentLeg, MaterialID: SeedMaterialScrew, Quantity: dec("4"), UseMaterialCost: true},
	}
	d.componentMaterials[SeedComponentTop] = []domain.ComponentMaterial{
		{ID: "e274e0b5-8d91-4475-a1c8-70e39e6fab03", ComponentID: SeedComponentTop, MaterialID: SeedMaterialOak, Quantity: dec("2.5"), UseMaterialCost: true},
		{ID: "e274e0b5-8d91-4475-a1c8-70e39e6fab04", ComponentID: SeedComponentTop, MaterialID: SeedMaterialOil, Quantity: dec("0.3"), CustomCost: decimal.NewNullDecimal(dec("7.50"))},
	}

	// top 33.50 + 4 legs at 10.20 + 4 felt pads at 0.20
	d.models[SeedModelTable] = domain.ProductModel{ID: SeedModelTable, Name: "Dining table", Description: "Solid oak, oil finish", SKU: "TBLM0001", SellingPrice: dec("249.00"), LaborTimeMinutes: 240, ProductionCost: dec("75.10"), CreatedAt: now, UpdatedAt: now}
	d.modelComponents[SeedModelTable] = []domain.ModelComponent{
		{ID: "f385f1c6-9ea2-4586-b2d9-81f4af70bc01", ModelID: SeedModelTable, ComponentID: SeedComponentTop, Quantity: dec("1")},
		{ID: "f385f1c6-9ea2-4586-b2d9-81f4af70bc02", ModelID: SeedModelTable, ComponentID: SeedComponentLeg, Quantity: dec("4")},
	}
	d.modelMaterials[SeedModelTable] = []domain.ModelMaterial{
		{ID: "0496a2d7-afb3-4697-83ea-92a5b081cd01", ModelID: SeedModelTable, MaterialID: SeedMaterialFelt, Quantity: dec("4")},
	}

	production := domain.NewDate(now)
	d.lots[SeedLotTable] = lotRecord{
		item: domain.InventoryItem{ID: SeedLotTable, ModelID: SeedModelTable, Quantity: dec("3"), ProductionDate: &production, Notes: "first batch", CreatedAt: now, UpdatedAt: now},
		seq:  d.nextSeq(),
	}

	for _, user := range seedUsers(now) {
		d.users[user.ID] = user
	}
	return d
}

// seedUsers builds the demo login. The password comes from
// SEED_ADMIN_PASSWORD and falls back to a development default.
func seedUsers(now time.Time) []domain.User {
	password := os.Getenv("SEED_ADMIN_PASSWORD")
	if password == "" {
		password = "admin123"
		log.Warn().Str("component", "memory-store").Msg("using default demo credentials, set SEED_ADMIN_PASSWORD to override")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Error().Err(err).Msg("hash seed password")
		return nil
	}
	return []domain.User{{
		ID:           SeedUserAdmin,
		Username:     "admin",
		Email:        "admin@craftstock.local",
		PasswordHash: string(hash),
		CreatedAt:    now,
	}}
}
