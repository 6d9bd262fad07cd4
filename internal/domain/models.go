package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TransactionPurchase   TransactionType = "purchase"
	TransactionSale       TransactionType = "sale"
	TransactionAdjustment TransactionType = "adjustment"
)

func (t TransactionType) Valid() bool {
	switch t {
	case TransactionPurchase, TransactionSale, TransactionAdjustment:
		return true
	}
	return false
}

type TransactionStatus string

const (
	StatusPending   TransactionStatus = "pending"
	StatusCompleted TransactionStatus = "completed"
	StatusCancelled TransactionStatus = "cancelled"
)

func (s TransactionStatus) Valid() bool {
	switch s {
	case StatusPending, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further lifecycle transition is allowed.
func (s TransactionStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

type Supplier struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	ContactPerson string    `json:"contact_person"`
	Email         string    `json:"email"`
	Phone         string    `json:"phone"`
	Address       string    `json:"address"`
	Notes         string    `json:"notes"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type SupplierInput struct {
	Name          string `json:"name" validate:"required,max=255"`
	ContactPerson string `json:"contact_person" validate:"max=255"`
	Email         string `json:"email" validate:"omitempty,email,max=255"`
	Phone         string `json:"phone" validate:"max=64"`
	Address       string `json:"address"`
	Notes         string `json:"notes"`
}

type Customer struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	ContactPerson string    `json:"contact_person"`
	CustomerType  string    `json:"customer_type"`
	Email         string    `json:"email"`
	Phone         string    `json:"phone"`
	Address       string    `json:"address"`
	Notes         string    `json:"notes"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type CustomerInput struct {
	Name          string `json:"name" validate:"required,max=255"`
	ContactPerson string `json:"contact_person" validate:"max=255"`
	CustomerType  string `json:"customer_type" validate:"omitempty,oneof=private business"`
	Email         string `json:"email" validate:"omitempty,email,max=255"`
	Phone         string `json:"phone" validate:"max=64"`
	Address       string `json:"address"`
	Notes         string `json:"notes"`
}

type Material struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	SKU           string          `json:"sku"`
	UnitOfMeasure string          `json:"unit_of_measure"`
	CostPerUnit   decimal.Decimal `json:"cost_per_unit"`
	CurrentStock  decimal.Decimal `json:"current_stock"`
	MinStockLevel decimal.Decimal `json:"min_stock_level"`
	SupplierID    *string         `json:"supplier_id"`
	SupplierName  string          `json:"supplier_name,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// LowStock reports whether the material is at or below its minimum level.
func (m Material) LowStock() bool {
	return m.CurrentStock.LessThanOrEqual(m.MinStockLevel)
}

type MaterialInput struct {
	Name          string          `json:"name" validate:"required,max=255"`
	Description   string          `json:"description"`
	UnitOfMeasure string          `json:"unit_of_measure" validate:"max=32"`
	CostPerUnit   decimal.Decimal `json:"cost_per_unit"`
	CurrentStock  decimal.Decimal `json:"current_stock"`
	MinStockLevel decimal.Decimal `json:"min_stock_level"`
	SupplierID    *string         `json:"supplier_id"`
}

type Component struct {
	ID          string              `json:"id"`
	Name        string              `json:"name"`
	Description string              `json:"description"`
	SKU         string              `json:"sku"`
	Materials   []ComponentMaterial `json:"materials"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

// ComponentMaterial links a component to one material. CustomCost is only
// meaningful when UseMaterialCost is false.
type ComponentMaterial struct {
	ID              string              `json:"id"`
	ComponentID     string              `json:"component_id"`
	MaterialID      string              `json:"material_id"`
	MaterialName    string              `json:"material_name,omitempty"`
	UnitOfMeasure   string              `json:"unit_of_measure,omitempty"`
	MaterialCost    decimal.Decimal     `json:"cost_per_unit"`
	Quantity        decimal.Decimal     `json:"quantity"`
	UseMaterialCost bool                `json:"use_material_cost"`
	CustomCost      decimal.NullDecimal `json:"custom_cost"`
}

type ComponentInput struct {
	Name        string                    `json:"name" validate:"required,max=255"`
	Description string                    `json:"description"`
	Materials   *[]ComponentMaterialInput `json:"materials" validate:"omitempty,dive"`
}

type ComponentMaterialInput struct {
	MaterialID      string              `json:"material_id" validate:"required"`
	Quantity        decimal.Decimal     `json:"quantity"`
	UseMaterialCost *bool               `json:"use_material_cost"`
	CustomCost      decimal.NullDecimal `json:"custom_cost"`
}

type CostLine struct {
	MaterialID      string          `json:"material_id"`
	MaterialName    string          `json:"material_name"`
	Quantity        decimal.Decimal `json:"quantity"`
	UnitCost        decimal.Decimal `json:"unit_cost"`
	UseMaterialCost bool            `json:"use_material_cost"`
	LineCost        decimal.Decimal `json:"line_cost"`
}

type ComponentCostBreakdown struct {
	ComponentID   string          `json:"component_id"`
	ComponentName string          `json:"component_name"`
	Materials     []CostLine      `json:"materials"`
	TotalCost     decimal.Decimal `json:"total_cost"`
}

type ProductModel struct {
	ID               string           `json:"id"`
	Name             string           `json:"name"`
	Description      string           `json:"description"`
	SKU              string           `json:"sku"`
	SellingPrice     decimal.Decimal  `json:"selling_price"`
	LaborTimeMinutes int              `json:"labor_time_minutes"`
	ProductionCost   decimal.Decimal  `json:"production_cost"`
	Components       []ModelComponent `json:"components"`
	Materials        []ModelMaterial  `json:"materials"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

type ModelComponent struct {
	ID            string          `json:"id"`
	ModelID       string          `json:"model_id"`
	ComponentID   string          `json:"component_id"`
	ComponentName string          `json:"component_name,omitempty"`
	Quantity      decimal.Decimal `json:"quantity"`
}

// ModelMaterial is a direct model-to-material link kept for older bills of
// materials that predate components.
type ModelMaterial struct {
	ID           string          `json:"id"`
	ModelID      string          `json:"model_id"`
	MaterialID   string          `json:"material_id"`
	MaterialName string          `json:"material_name,omitempty"`
	CostPerUnit  decimal.Decimal `json:"cost_per_unit"`
	Quantity     decimal.Decimal `json:"quantity"`
}

type ModelInput struct {
	Name             string                 `json:"name" validate:"required,max=255"`
	Description      string                 `json:"description"`
	SellingPrice     decimal.Decimal        `json:"selling_price"`
	LaborTimeMinutes int                    `json:"labor_time_minutes" validate:"gte=0"`
	Components       *[]ModelComponentInput `json:"components" validate:"omitempty,dive"`
	Materials        *[]ModelMaterialInput  `json:"materials" validate:"omitempty,dive"`
}

type ModelComponentInput struct {
	ComponentID string          `json:"component_id" validate:"required"`
	Quantity    decimal.Decimal `json:"quantity"`
}

type ModelMaterialInput struct {
	MaterialID string          `json:"material_id" validate:"required"`
	Quantity   decimal.Decimal `json:"quantity"`
}

// InventoryItem is one lot of finished goods for a product model.
type InventoryItem struct {
	ID             string          `json:"id"`
	ModelID        string          `json:"model_id"`
	ModelName      string          `json:"model_name,omitempty"`
	Quantity       decimal.Decimal `json:"quantity"`
	ProductionDate *Date           `json:"production_date"`
	Notes          string          `json:"notes"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

type InventoryInput struct {
	ModelID        string          `json:"model_id" validate:"required"`
	Quantity       decimal.Decimal `json:"quantity"`
	ProductionDate *Date           `json:"production_date"`
	Notes          string          `json:"notes"`
}

type InventoryUpdate struct {
	Quantity       *decimal.Decimal `json:"quantity"`
	ProductionDate *Date            `json:"production_date"`
	Notes          *string          `json:"notes"`
}

type Transaction struct {
	ID           string            `json:"id"`
	Type         TransactionType   `json:"transaction_type"`
	Date         Date              `json:"date"`
	SupplierID   *string           `json:"supplier_id"`
	SupplierName string            `json:"supplier_name,omitempty"`
	CustomerID   *string           `json:"customer_id"`
	CustomerName string            `json:"customer_name,omitempty"`
	TotalAmount  decimal.Decimal   `json:"total_amount"`
	Status       TransactionStatus `json:"status"`
	Notes        string            `json:"notes"`
	Items        []TransactionItem `json:"items,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

type TransactionItem struct {
	ID             string          `json:"id"`
	TransactionID  string          `json:"transaction_id"`
	MaterialID     *string         `json:"material_id"`
	MaterialName   string          `json:"material_name,omitempty"`
	ProductModelID *string         `json:"product_model_id"`
	ModelName      string          `json:"model_name,omitempty"`
	Quantity       decimal.Decimal `json:"quantity"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
}

type TransactionInput struct {
	TransactionType string                 `json:"transaction_type" validate:"required,oneof=purchase sale adjustment"`
	Date            *Date                  `json:"date" validate:"required"`
	SupplierID      *string                `json:"supplier_id"`
	CustomerID      *string                `json:"customer_id"`
	Status          string                 `json:"status" validate:"omitempty,oneof=pending completed cancelled"`
	Notes           string                 `json:"notes"`
	Items           []TransactionItemInput `json:"items" validate:"required,min=1,dive"`
}

type TransactionItemInput struct {
	MaterialID     *string         `json:"material_id"`
	ProductModelID *string         `json:"product_model_id"`
	Quantity       decimal.Decimal `json:"quantity"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
}

type TransactionUpdate struct {
	Date   *Date   `json:"date"`
	Notes  *string `json:"notes"`
	Status *string `json:"status" validate:"omitempty,oneof=pending completed cancelled"`
}

type StatusChangeRequest struct {
	Status string `json:"status" validate:"required,oneof=pending completed cancelled"`
}

type TransactionFilter struct {
	Type       TransactionType
	Status     TransactionStatus
	SupplierID string
	CustomerID string
}

type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=64"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=6,max=128"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type AuthResponse struct {
	Token     string `json:"token"`
	ExpiresAt string `json:"expires_at"`
	User      User   `json:"user"`
}

type Actor struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
}

type KioskStatus struct {
	Enabled         bool       `json:"enabled"`
	IntervalMinutes int        `json:"interval_minutes"`
	ResetCount      int        `json:"reset_count"`
	LastReset       *time.Time `json:"last_reset"`
	NextReset       *time.Time `json:"next_reset"`
	StartTime       time.Time  `json:"start_time"`
	UptimeSeconds   int64      `json:"uptime_seconds"`
}

// DatabaseReset reports a manual wipe of the business tables.
type DatabaseReset struct {
	Message string    `json:"message"`
	Seeded  bool      `json:"seeded"`
	ResetAt time.Time `json:"reset_at"`
}
