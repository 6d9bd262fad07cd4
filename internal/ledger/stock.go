package ledger

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"craftstock/backend/internal/domain"
)

var (
	ErrNoLot      = errors.New("no inventory lot")
	ErrShortLot   = errors.New("inventory lot too small")
	ErrItemTarget = errors.New("item target does not match transaction type")
)

type MutationKind int

const (
	// MaterialStock changes materials.current_stock.
	MaterialStock MutationKind = iota + 1
	// LotQuantity changes inventory_items.quantity of an existing lot.
	LotQuantity
	// NewLot creates a lot holding Delta for ModelID.
	NewLot
)

func (k MutationKind) String() string {
	switch k {
	case MaterialStock:
		return "material_stock"
	case LotQuantity:
		return "lot_quantity"
	case NewLot:
		return "new_lot"
	}
	return "unknown"
}

type Mutation struct {
	Kind       MutationKind
	ItemIndex  int
	MaterialID string
	ModelID    string
	LotID      string
	Delta      decimal.Decimal
}

// Warning records a lot that was driven below zero.
type Warning struct {
	ItemIndex int
	ModelID   string
	LotID     string
	Available decimal.Decimal
	Requested decimal.Decimal
}

func (w Warning) String() string {
	return fmt.Sprintf("item %d: lot %s of model %s holds %s, %s requested", w.ItemIndex, w.LotID, w.ModelID, w.Available, w.Requested)
}

type Plan struct {
	Mutations []Mutation
	Warnings  []Warning
}

// Planner turns a transaction into stock mutations, one per item in item
// order. Decrements always hit the oldest lot of the model by creation order.
// When AllowNegative is false a lot holding less than requested fails the
// plan with ErrShortLot; otherwise the lot goes negative and a Warning is
// recorded. A model without any lot fails with ErrNoLot.
type Planner struct {
	AllowNegative bool
	NewLotID      func() string
}

// ModelIDs lists the distinct models referenced by items.
func ModelIDs(items []domain.TransactionItem) []string {
	seen := make(map[string]struct{}, len(items))
	ids := make([]string, 0, len(items))
	for _, item := range items {
		if item.ProductModelID == nil || *item.ProductModelID == "" {
			continue
		}
		id := *item.ProductModelID
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}

// Completion plans the effect of moving tx into the completed state.
// lots must hold each referenced model's lots ordered oldest first.
func (p Planner) Completion(tx domain.Transaction, lots map[string][]domain.InventoryItem) (Plan, error) {
	state := newLotState(lots)
	plan := Plan{Mutations: make([]Mutation, 0, len(tx.Items))}

	for i, item := range tx.Items {
		materialID, modelID, err := itemTarget(tx.Type, item)
		if err != nil {
			return Plan{}, fmt.Errorf("item %d: %w", i, err)
		}

		switch tx.Type {
		case domain.TransactionPurchase:
			plan.add(materialMutation(i, materialID, item.Quantity))
		case domain.TransactionSale:
			if err := p.decrement(&plan, state, i, modelID, item.Quantity, false); err != nil {
				return Plan{}, err
			}
		case domain.TransactionAdjustment:
			if materialID != "" {
				plan.add(materialMutation(i, materialID, item.Quantity))
				continue
			}
			if item.Quantity.IsNegative() {
				if err := p.decrement(&plan, state, i, modelID, item.Quantity.Neg(), false); err != nil {
					return Plan{}, err
				}
				continue
			}
			p.increment(&plan, state, i, modelID, item.Quantity)
		}
	}
	return plan, nil
}

// Reversal plans the undo of a completed transaction. Shortfalls while
// undoing never fail the plan; they are recorded as warnings.
func (p Planner) Reversal(tx domain.Transaction, lots map[string][]domain.InventoryItem) (Plan, error) {
	state := newLotState(lots)
	plan := Plan{Mutations: make([]Mutation, 0, len(tx.Items))}

	for i, item := range tx.Items {
		materialID, modelID, err := itemTarget(tx.Type, item)
		if err != nil {
			return Plan{}, fmt.Errorf("item %d: %w", i, err)
		}

		switch tx.Type {
		case domain.TransactionPurchase:
			plan.add(materialMutation(i, materialID, item.Quantity.Neg()))
		case domain.TransactionSale:
			p.increment(&plan, state, i, modelID, item.Quantity)
		case domain.TransactionAdjustment:
			if materialID != "" {
				plan.add(materialMutation(i, materialID, item.Quantity.Neg()))
				continue
			}
			if item.Quantity.IsNegative() {
				p.increment(&plan, state, i, modelID, item.Quantity.Neg())
				continue
			}
			if err := p.decrement(&plan, state, i, modelID, item.Quantity, true); err != nil {
				return Plan{}, err
			}
		}
	}
	return plan, nil
}

func (p Planner) decrement(plan *Plan, state lotState, index int, modelID string, qty decimal.Decimal, forceAllow bool) error {
	lot := state.oldest(modelID)
	if lot == nil {
		return fmt.Errorf("item %d: model %s: %w", index, modelID, ErrNoLot)
	}
	if lot.quantity.LessThan(qty) {
		if !p.AllowNegative && !forceAllow {
			return fmt.Errorf("item %d: lot %s holds %s, %s requested: %w", index, lot.id, lot.quantity, qty, ErrShortLot)
		}
		plan.Warnings = append(plan.Warnings, Warning{
			ItemIndex: index,
			ModelID:   modelID,
			LotID:     lot.id,
			Available: lot.quantity,
			Requested: qty,
		})
	}
	lot.quantity = lot.quantity.Sub(qty)
	plan.add(Mutation{Kind: LotQuantity, ItemIndex: index, ModelID: modelID, LotID: lot.id, Delta: qty.Neg()})
	return nil
}

func (p Planner) increment(plan *Plan, state lotState, index int, modelID string, qty decimal.Decimal) {
	if lot := state.oldest(modelID); lot != nil {
		lot.quantity = lot.quantity.Add(qty)
		plan.add(Mutation{Kind: LotQuantity, ItemIndex: index, ModelID: modelID, LotID: lot.id, Delta: qty})
		return
	}
	id := ""
	if p.NewLotID != nil {
		id = p.NewLotID()
	}
	state[modelID] = append(state[modelID], &workingLot{id: id, quantity: qty})
	plan.add(Mutation{Kind: NewLot, ItemIndex: index, ModelID: modelID, LotID: id, Delta: qty})
}

func (p *Plan) add(m Mutation) {
	p.Mutations = append(p.Mutations, m)
}

func materialMutation(index int, materialID string, delta decimal.Decimal) Mutation {
	return Mutation{Kind: MaterialStock, ItemIndex: index, MaterialID: materialID, Delta: delta}
}

// itemTarget resolves which row an item acts on. Purchases move materials,
// sales move finished goods, adjustments move exactly one of the two.
func itemTarget(txType domain.TransactionType, item domain.TransactionItem) (string, string, error) {
	materialID := deref(item.MaterialID)
	modelID := deref(item.ProductModelID)

	switch txType {
	case domain.TransactionPurchase:
		if materialID == "" || modelID != "" {
			return "", "", fmt.Errorf("purchase items need a material: %w", ErrItemTarget)
		}
	case domain.TransactionSale:
		if modelID == "" || materialID != "" {
			return "", "", fmt.Errorf("sale items need a product model: %w", ErrItemTarget)
		}
	case domain.TransactionAdjustment:
		if (materialID == "") == (modelID == "") {
			return "", "", fmt.Errorf("adjustment items need either a material or a product model: %w", ErrItemTarget)
		}
	default:
		return "", "", fmt.Errorf("unknown transaction type %q: %w", txType, ErrItemTarget)
	}
	return materialID, modelID, nil
}

type workingLot struct {
	id       string
	quantity decimal.Decimal
}

type lotState map[string][]*workingLot

func newLotState(lots map[string][]domain.InventoryItem) lotState {
	state := make(lotState, len(lots))
	for modelID, items := range lots {
		working := make([]*workingLot, 0, len(items))
		for _, item := range items {
			working = append(working, &workingLot{id: item.ID, quantity: item.Quantity})
		}
		state[modelID] = working
	}
	return state
}

func (s lotState) oldest(modelID string) *workingLot {
	lots := s[modelID]
	if len(lots) == 0 {
		return nil
	}
	return lots[0]
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
