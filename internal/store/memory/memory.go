package memory

import (
	"cmp"
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"

	"craftstock/backend/internal/domain"
	"craftstock/backend/internal/store"
)

// Store keeps every table in maps guarded by one RWMutex. WithTx holds the
// write lock for the whole unit of work and restores a snapshot when the
// callback fails.
type Store struct {
	*view
	mu   sync.RWMutex
	data *dataset
	seed func() *dataset
}

var _ store.Repository = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return newStore(newDataset)
}

// NewSeeded returns a store holding the demo dataset.
func NewSeeded() *Store {
	return newStore(seedDataset)
}

func newStore(seed func() *dataset) *Store {
	s := &Store{data: seed(), seed: seed}
	s.view = &view{mu: &s.mu, data: s.data}
	return s
}

func (s *Store) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.data.clone()
	if err := fn(&view{data: s.data}); err != nil {
		*s.data = *snapshot
		return err
	}
	return nil
}

func (s *Store) Reset(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	*s.data = *s.seed()
	return nil
}

// Truncate empties every table except users.
func (s *Store) Truncate(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	users := s.data.users
	*s.data = *newDataset()
	s.data.users = users
	return nil
}

type lotRecord struct {
	item domain.InventoryItem
	seq  int64
}

type txRecord struct {
	tx  domain.Transaction
	seq int64
}

type dataset struct {
	suppliers          map[string]domain.Supplier
	customers          map[string]domain.Customer
	materials          map[string]domain.Material
	components         map[string]domain.Component
	componentMaterials map[string][]domain.ComponentMaterial
	models             map[string]domain.ProductModel
	modelComponents    map[string][]domain.ModelComponent
	modelMaterials     map[string][]domain.ModelMaterial
	lots               map[string]lotRecord
	transactions       map[string]txRecord
	users              map[string]domain.User
	seq                int64
}

func newDataset() *dataset {
	return &dataset{
		suppliers:          make(map[string]domain.Supplier),
		customers:          make(map[string]domain.Customer),
		materials:          make(map[string]domain.Material),
		components:         make(map[string]domain.Component),
		componentMaterials: make(map[string][]domain.ComponentMaterial),
		models:             make(map[string]domain.ProductModel),
		modelComponents:    make(map[string][]domain.ModelComponent),
		modelMaterials:     make(map[string][]domain.ModelMaterial),
		lots:               make(map[string]lotRecord),
		transactions:       make(map[string]txRecord),
		users:              make(map[string]domain.User),
	}
}

func (d *dataset) clone() *dataset {
	out := &dataset{
		suppliers:          maps.Clone(d.suppliers),
		customers:          maps.Clone(d.customers),
		materials:          maps.Clone(d.materials),
		components:         maps.Clone(d.components),
		componentMaterials: make(map[string][]domain.ComponentMaterial, len(d.componentMaterials)),
		models:             maps.Clone(d.models),
		modelComponents:    make(map[string][]domain.ModelComponent, len(d.modelComponents)),
		modelMaterials:     make(map[string][]domain.ModelMaterial, len(d.modelMaterials)),
		lots:               maps.Clone(d.lots),
		transactions:       make(map[string]txRecord, len(d.transactions)),
		users:              maps.Clone(d.users),
		seq:                d.seq,
	}
	for k, v := range d.componentMaterials {
		out.componentMaterials[k] = slices.Clone(v)
	}
	for k, v := range d.modelComponents {
		out.modelComponents[k] = slices.Clone(v)
	}
	for k, v := range d.modelMaterials {
		out.modelMaterials[k] = slices.Clone(v)
	}
	for k, v := range d.transactions {
		v.tx.Items = slices.Clone(v.tx.Items)
		out.transactions[k] = v
	}
	return out
}

func (d *dataset) nextSeq() int64 {
	d.seq++
	return d.seq
}

// view implements store.Tx over a dataset. The top-level view locks mu on
// every call; views handed to WithTx callbacks run under the held lock and
// leave mu nil.
type view struct {
	mu   *sync.RWMutex
	data *dataset
}

func (v *view) read() func() {
	if v.mu == nil {
		return func() {}
	}
	v.mu.RLock()
	return v.mu.RUnlock
}

func (v *view) write() func() {
	if v.mu == nil {
		return func() {}
	}
	v.mu.Lock()
	return v.mu.Unlock
}

func (v *view) SKUExists(_ context.Context, table store.SKUTable, sku string) (bool, error) {
	defer v.read()()

	switch table {
	case store.SKUMaterials:
		for _, m := range v.data.materials {
			if m.SKU == sku {
				return true, nil
			}
		}
	case store.SKUComponents:
		for _, c := range v.data.components {
			if c.SKU == sku {
				return true, nil
			}
		}
	case store.SKUModels:
		for _, m := range v.data.models {
			if m.SKU == sku {
				return true, nil
			}
		}
	default:
		return false, store.Invalidf("unknown sku table %q", table)
	}
	return false, nil
}

func notFound(kind string, id string) error {
	return fmt.Errorf("%s %s: %w", kind, id, store.ErrNotFound)
}

func conflict(format string, args ...any) error {
	return fmt.Errorf("%w: %s", store.ErrConflict, fmt.Sprintf(format, args...))
}

func byName[T any](name func(T) string) func(a, b T) int {
	return func(a, b T) int {
		return cmp.Compare(strings.ToLower(name(a)), strings.ToLower(name(b)))
	}
}

func optionalRef(id *string) string {
	if id == nil {
		return ""
	}
	return *id
}
