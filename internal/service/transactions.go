package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"craftstock/backend/internal/domain"
	"craftstock/backend/internal/ledger"
	"craftstock/backend/internal/store"
	"craftstock/backend/internal/xid"
)

func (s *Service) ListTransactions(ctx context.Context, filter domain.TransactionFilter) ([]domain.Transaction, error) {
	if filter.Type != "" && !filter.Type.Valid() {
		return nil, store.Invalidf("unknown transaction type %q", filter.Type)
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, store.Invalidf("unknown transaction status %q", filter.Status)
	}
	return s.repo.ListTransactions(ctx, filter)
}

func (s *Service) GetTransaction(ctx context.Context, id string) (domain.Transaction, error) {
	tx, err := s.repo.GetTransaction(ctx, id)
	if err != nil {
		return domain.Transaction{}, err
	}
	return *tx, nil
}

// CreateTransaction stores a transaction with its items. Without a status,
// or with status completed, the stock effect is applied in the same unit of
// work and the transaction is stored as completed. Pending transactions are
// stored without touching stock.
func (s *Service) CreateTransaction(ctx context.Context, req domain.TransactionInput) (domain.Transaction, error) {
	txn, err := s.buildTransaction(req)
	if err != nil {
		return domain.Transaction{}, err
	}

	var out domain.Transaction
	err = s.repo.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.CreateTransaction(ctx, txn); err != nil {
			return err
		}
		if txn.Status == domain.StatusCompleted {
			if err := s.applyCompletion(ctx, tx, txn, txn.CreatedAt); err != nil {
				return err
			}
		}
		created, err := tx.GetTransaction(ctx, txn.ID)
		if err != nil {
			return err
		}
		out = *created
		return nil
	})
	if err != nil {
		return domain.Transaction{}, err
	}
	log.Info().
		Str("transaction_id", out.ID).
		Str("type", string(out.Type)).
		Str("status", string(out.Status)).
		Str("actor", logActor(ctx)).
		Msg("transaction created")
	return out, nil
}

func (s *Service) buildTransaction(req domain.TransactionInput) (domain.Transaction, error) {
	req.TransactionType = strings.TrimSpace(req.TransactionType)
	req.Status = strings.TrimSpace(req.Status)
	if err := s.check(req); err != nil {
		return domain.Transaction{}, err
	}

	txType := domain.TransactionType(req.TransactionType)
	status := domain.TransactionStatus(req.Status)
	switch status {
	case "", domain.StatusCompleted:
		status = domain.StatusCompleted
	case domain.StatusPending:
	default:
		return domain.Transaction{}, store.Invalidf("a transaction cannot be created as %s", status)
	}

	supplierID := optionalID(req.SupplierID)
	customerID := optionalID(req.CustomerID)
	if txType == domain.TransactionPurchase && supplierID == nil {
		return domain.Transaction{}, store.Invalidf("supplier_id is required for purchases")
	}
	if txType == domain.TransactionSale && customerID == nil {
		return domain.Transaction{}, store.Invalidf("customer_id is required for sales")
	}

	now := s.now()
	txn := domain.Transaction{
		ID:          xid.New(),
		Type:        txType,
		Date:        *req.Date,
		SupplierID:  supplierID,
		CustomerID:  customerID,
		TotalAmount: decimal.Zero,
		Status:      status,
		Notes:       req.Notes,
		Items:       make([]domain.TransactionItem, 0, len(req.Items)),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	for i, in := range req.Items {
		item, err := buildItem(txType, i, in)
		if err != nil {
			return domain.Transaction{}, err
		}
		item.TransactionID = txn.ID
		txn.Items = append(txn.Items, item)
		txn.TotalAmount = txn.TotalAmount.Add(item.Quantity.Mul(item.UnitPrice))
	}
	return txn, nil
}

func buildItem(txType domain.TransactionType, index int, in domain.TransactionItemInput) (domain.TransactionItem, error) {
	materialID := optionalID(in.MaterialID)
	modelID := optionalID(in.ProductModelID)

	switch txType {
	case domain.TransactionPurchase:
		if materialID == nil || modelID != nil {
			return domain.TransactionItem{}, store.Invalidf("items[%d]: purchase items need a material_id", index)
		}
	case domain.TransactionSale:
		if modelID == nil || materialID != nil {
			return domain.TransactionItem{}, store.Invalidf("items[%d]: sale items need a product_model_id", index)
		}
	case domain.TransactionAdjustment:
		if (materialID == nil) == (modelID == nil) {
			return domain.TransactionItem{}, store.Invalidf("items[%d]: adjustment items need exactly one of material_id and product_model_id", index)
		}
	}

	if txType == domain.TransactionAdjustment {
		if in.Quantity.IsZero() {
			return domain.TransactionItem{}, store.Invalidf("items[%d].quantity must not be zero", index)
		}
	} else if err := requirePositive(fmt.Sprintf("items[%d].quantity", index), in.Quantity); err != nil {
		return domain.TransactionItem{}, err
	}
	if err := requireNonNegative(fmt.Sprintf("items[%d].unit_price", index), in.UnitPrice); err != nil {
		return domain.TransactionItem{}, err
	}

	return domain.TransactionItem{
		ID:             xid.New(),
		MaterialID:     materialID,
		ProductModelID: modelID,
		Quantity:       in.Quantity,
		UnitPrice:      in.UnitPrice,
	}, nil
}

// TransitionStatus moves a transaction through its lifecycle. Only
// pending -> completed touches stock; the status write and every stock
// mutation commit together or not at all.
func (s *Service) TransitionStatus(ctx context.Context, id string, status string) (domain.Transaction, error) {
	if err := s.check(domain.StatusChangeRequest{Status: strings.TrimSpace(status)}); err != nil {
		return domain.Transaction{}, err
	}
	next := domain.TransactionStatus(strings.TrimSpace(status))

	var out domain.Transaction
	err := s.repo.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.LockTransaction(ctx, id); err != nil {
			return err
		}
		current, err := tx.GetTransaction(ctx, id)
		if err != nil {
			return err
		}
		changed, err := s.transition(ctx, tx, current, next)
		if err != nil {
			return err
		}
		if changed {
			if err := tx.UpdateTransaction(ctx, *current); err != nil {
				return err
			}
		}
		fresh, err := tx.GetTransaction(ctx, id)
		if err != nil {
			return err
		}
		out = *fresh
		return nil
	})
	if err != nil {
		return domain.Transaction{}, err
	}
	log.Info().Str("transaction_id", id).Str("status", string(out.Status)).Str("actor", logActor(ctx)).Msg("transaction status changed")
	return out, nil
}

// transition validates the move to next, applies its stock effect through
// tx and updates txn in place. It reports whether txn needs to be written.
func (s *Service) transition(ctx context.Context, tx store.Tx, txn *domain.Transaction, next domain.TransactionStatus) (bool, error) {
	if txn.Status == domain.StatusPending && next == domain.StatusPending {
		return false, nil
	}
	if txn.Status.Terminal() {
		return false, store.Invalidf("transaction %s is %s and cannot change to %s", txn.ID, txn.Status, next)
	}

	at := s.now()
	if next == domain.StatusCompleted {
		if err := s.applyCompletion(ctx, tx, *txn, at); err != nil {
			return false, err
		}
	}
	txn.Status = next
	txn.UpdatedAt = at
	return true, nil
}

// UpdateTransaction changes date and notes and, when a status is supplied,
// runs the lifecycle transition in the same unit of work.
func (s *Service) UpdateTransaction(ctx context.Context, id string, req domain.TransactionUpdate) (domain.Transaction, error) {
	if err := s.check(req); err != nil {
		return domain.Transaction{}, err
	}

	var out domain.Transaction
	err := s.repo.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.LockTransaction(ctx, id); err != nil {
			return err
		}
		current, err := tx.GetTransaction(ctx, id)
		if err != nil {
			return err
		}
		// Resubmitting the current status is not a transition.
		if req.Status != nil && domain.TransactionStatus(strings.TrimSpace(*req.Status)) != current.Status {
			if _, err := s.transition(ctx, tx, current, domain.TransactionStatus(strings.TrimSpace(*req.Status))); err != nil {
				return err
			}
		}
		if req.Date != nil {
			current.Date = *req.Date
		}
		if req.Notes != nil {
			current.Notes = *req.Notes
		}
		current.UpdatedAt = s.now()
		if err := tx.UpdateTransaction(ctx, *current); err != nil {
			return err
		}
		fresh, err := tx.GetTransaction(ctx, id)
		if err != nil {
			return err
		}
		out = *fresh
		return nil
	})
	return out, err
}

// DeleteTransaction removes a transaction. A completed transaction has its
// stock effect reversed before the rows go away.
func (s *Service) DeleteTransaction(ctx context.Context, id string) error {
	err := s.repo.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.LockTransaction(ctx, id); err != nil {
			return err
		}
		current, err := tx.GetTransaction(ctx, id)
		if err != nil {
			return err
		}
		if current.Status == domain.StatusCompleted {
			lots, err := tx.LotsForModels(ctx, ledger.ModelIDs(current.Items))
			if err != nil {
				return err
			}
			plan, err := s.planner.Reversal(*current, lots)
			if err != nil {
				return planError(err)
			}
			if err := s.applyPlan(ctx, tx, *current, plan, s.now()); err != nil {
				return err
			}
		}
		return tx.DeleteTransaction(ctx, id)
	})
	if err != nil {
		return err
	}
	log.Info().Str("transaction_id", id).Str("actor", logActor(ctx)).Msg("transaction deleted")
	return nil
}

func (s *Service) applyCompletion(ctx context.Context, tx store.Tx, txn domain.Transaction, at time.Time) error {
	lots, err := tx.LotsForModels(ctx, ledger.ModelIDs(txn.Items))
	if err != nil {
		return err
	}
	plan, err := s.planner.Completion(txn, lots)
	if err != nil {
		return planError(err)
	}
	return s.applyPlan(ctx, tx, txn, plan, at)
}

// applyPlan writes every planned mutation through tx. Any failure aborts the
// surrounding unit of work.
func (s *Service) applyPlan(ctx context.Context, tx store.Tx, txn domain.Transaction, plan ledger.Plan, at time.Time) error {
	for _, m := range plan.Mutations {
		var err error
		switch m.Kind {
		case ledger.MaterialStock:
			err = tx.AdjustMaterialStock(ctx, m.MaterialID, m.Delta, at)
		case ledger.LotQuantity:
			err = tx.AdjustLotQuantity(ctx, m.LotID, m.Delta, at)
		case ledger.NewLot:
			produced := txn.Date
			err = tx.CreateInventoryItem(ctx, domain.InventoryItem{
				ID:             m.LotID,
				ModelID:        m.ModelID,
				Quantity:       m.Delta,
				ProductionDate: &produced,
				Notes:          fmt.Sprintf("created by transaction %s", txn.ID),
				CreatedAt:      at,
				UpdatedAt:      at,
			})
		default:
			err = fmt.Errorf("unknown stock mutation %s", m.Kind)
		}
		if err != nil {
			return fmt.Errorf("item %d: %s: %w", m.ItemIndex, m.Kind, err)
		}
	}

	for _, w := range plan.Warnings {
		log.Warn().
			Str("transaction_id", txn.ID).
			Str("model_id", w.ModelID).
			Str("lot_id", w.LotID).
			Str("available", w.Available.String()).
			Str("requested", w.Requested.String()).
			Msg("inventory lot driven below zero")
	}
	return nil
}

func planError(err error) error {
	switch {
	case errors.Is(err, ledger.ErrNoLot), errors.Is(err, ledger.ErrShortLot):
		return fmt.Errorf("%w: %v", store.ErrInsufficientStock, err)
	case errors.Is(err, ledger.ErrItemTarget):
		return fmt.Errorf("%w: %v", store.ErrInvalid, err)
	}
	return err
}
