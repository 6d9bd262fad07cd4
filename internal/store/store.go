package store

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"craftstock/backend/internal/domain"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalid           = errors.New("validation failed")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrConflict          = errors.New("conflict")
	ErrPersistence       = errors.New("persistence failure")
)

// SKUTable names a table whose rows carry a generated SKU.
type SKUTable string

const (
	SKUMaterials  SKUTable = "materials"
	SKUComponents SKUTable = "components"
	SKUModels     SKUTable = "product_models"
)

// Tx is the set of data primitives available inside one unit of work.
// Implementations return ErrNotFound for missing rows and wrap driver
// failures in ErrPersistence.
type Tx interface {
	SKUExists(ctx context.Context, table SKUTable, sku string) (bool, error)

	ListSuppliers(ctx context.Context) ([]domain.Supplier, error)
	GetSupplier(ctx context.Context, id string) (*domain.Supplier, error)
	CreateSupplier(ctx context.Context, supplier domain.Supplier) error
	UpdateSupplier(ctx context.Context, supplier domain.Supplier) error
	DeleteSupplier(ctx context.Context, id string) error

	ListCustomers(ctx context.Context) ([]domain.Customer, error)
	GetCustomer(ctx context.Context, id string) (*domain.Customer, error)
	CreateCustomer(ctx context.Context, customer domain.Customer) error
	UpdateCustomer(ctx context.Context, customer domain.Customer) error
	DeleteCustomer(ctx context.Context, id string) error

	ListMaterials(ctx context.Context) ([]domain.Material, error)
	GetMaterial(ctx context.Context, id string) (*domain.Material, error)
	GetMaterialsByIDs(ctx context.Context, ids []string) (map[string]domain.Material, error)
	CreateMaterial(ctx context.Context, material domain.Material) error
	UpdateMaterial(ctx context.Context, material domain.Material) error
	DeleteMaterial(ctx context.Context, id string) error
	AdjustMaterialStock(ctx context.Context, id string, delta decimal.Decimal, at time.Time) error

	ListComponents(ctx context.Context) ([]domain.Component, error)
	GetComponent(ctx context.Context, id string) (*domain.Component, error)
	CreateComponent(ctx context.Context, component domain.Component) error
	UpdateComponent(ctx context.Context, component domain.Component) error
	DeleteComponent(ctx context.Context, id string) error
	ReplaceComponentMaterials(ctx context.Context, componentID string, links []domain.ComponentMaterial) error
	ListComponentMaterials(ctx context.Context, componentID string) ([]domain.ComponentMaterial, error)
	ModelIDsUsingComponent(ctx context.Context, componentID string) ([]string, error)

	ListModels(ctx context.Context) ([]domain.ProductModel, error)
	GetModel(ctx context.Context, id string) (*domain.ProductModel, error)
	CreateModel(ctx context.Context, model domain.ProductModel) error
	UpdateModel(ctx context.Context, model domain.ProductModel) error
	DeleteModel(ctx context.Context, id string) error
	ReplaceModelComponents(ctx context.Context, modelID string, links []domain.ModelComponent) error
	ReplaceModelMaterials(ctx context.Context, modelID string, links []domain.ModelMaterial) error
	ListModelComponents(ctx context.Context, modelID string) ([]domain.ModelComponent, error)
	ListModelMaterials(ctx context.Context, modelID string) ([]domain.ModelMaterial, error)
	SetModelProductionCost(ctx context.Context, modelID string, cost decimal.Decimal, at time.Time) error

	ListInventory(ctx context.Context) ([]domain.InventoryItem, error)
	GetInventoryItem(ctx context.Context, id string) (*domain.InventoryItem, error)
	CreateInventoryItem(ctx context.Context, item domain.InventoryItem) error
	UpdateInventoryItem(ctx context.Context, item domain.InventoryItem) error
	DeleteInventoryItem(ctx context.Context, id string) error
	// LotsForModels returns the lots of each model ordered oldest first.
	// Postgres locks the returned rows until the unit of work ends.
	LotsForModels(ctx context.Context, modelIDs []string) (map[string][]domain.InventoryItem, error)
	AdjustLotQuantity(ctx context.Context, id string, delta decimal.Decimal, at time.Time) error

	ListTransactions(ctx context.Context, filter domain.TransactionFilter) ([]domain.Transaction, error)
	GetTransaction(ctx context.Context, id string) (*domain.Transaction, error)
	// LockTransaction holds the transaction header until the unit of work
	// ends so concurrent status changes on one transaction serialize.
	LockTransaction(ctx context.Context, id string) error
	CreateTransaction(ctx context.Context, tx domain.Transaction) error
	UpdateTransaction(ctx context.Context, tx domain.Transaction) error
	DeleteTransaction(ctx context.Context, id string) error

	CreateUser(ctx context.Context, user domain.User) error
	GetUserByUsername(ctx context.Context, username string) (*domain.User, error)
	UserExists(ctx context.Context, username string, email string) (bool, error)
}

// Repository runs units of work. WithTx commits when fn returns nil and
// rolls back every staged write otherwise.
type Repository interface {
	Tx
	WithTx(ctx context.Context, fn func(tx Tx) error) error
	// Reset removes every row and loads the demo dataset.
	Reset(ctx context.Context) error
	// Truncate removes every business row and leaves the tables empty.
	// User accounts survive so an authenticated deployment stays reachable.
	Truncate(ctx context.Context) error
}
