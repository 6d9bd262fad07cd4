package memory

import (
	"cmp"
	"context"
	"slices"
	"strings"

	"craftstock/backend/internal/domain"
)

func (v *view) ListTransactions(_ context.Context, filter domain.TransactionFilter) ([]domain.Transaction, error) {
	defer v.read()()

	records := make([]txRecord, 0, len(v.data.transactions))
	for _, rec := range v.data.transactions {
		if filter.Type != "" && rec.tx.Type != filter.Type {
			continue
		}
		if filter.Status != "" && rec.tx.Status != filter.Status {
			continue
		}
		if filter.SupplierID != "" && optionalRef(rec.tx.SupplierID) != filter.SupplierID {
			continue
		}
		if filter.CustomerID != "" && optionalRef(rec.tx.CustomerID) != filter.CustomerID {
			continue
		}
		records = append(records, rec)
	}
	slices.SortFunc(records, func(a, b txRecord) int {
		if c := b.tx.Date.Compare(a.tx.Date.Time); c != 0 {
			return c
		}
		return cmp.Compare(b.seq, a.seq)
	})

	out := make([]domain.Transaction, 0, len(records))
	for _, rec := range records {
		tx := v.decorateTransaction(rec.tx)
		tx.Items = nil
		out = append(out, tx)
	}
	return out, nil
}

func (v *view) GetTransaction(_ context.Context, id string) (*domain.Transaction, error) {
	defer v.read()()

	rec, ok := v.data.transactions[id]
	if !ok {
		return nil, notFound("transaction", id)
	}
	tx := v.decorateTransaction(rec.tx)
	return &tx, nil
}

// LockTransaction only checks existence: WithTx already holds the store's
// write lock for the whole unit of work.
func (v *view) LockTransaction(_ context.Context, id string) error {
	defer v.read()()

	if _, ok := v.data.transactions[id]; !ok {
		return notFound("transaction", id)
	}
	return nil
}

func (v *view) CreateTransaction(_ context.Context, tx domain.Transaction) error {
	defer v.write()()

	if _, exists := v.data.transactions[tx.ID]; exists {
		return conflict("transaction %s already exists", tx.ID)
	}
	if ref := optionalRef(tx.SupplierID); ref != "" {
		if _, ok := v.data.suppliers[ref]; !ok {
			return notFound("supplier", ref)
		}
	}
	if ref := optionalRef(tx.CustomerID); ref != "" {
		if _, ok := v.data.customers[ref]; !ok {
			return notFound("customer", ref)
		}
	}
	items := make([]domain.TransactionItem, 0, len(tx.Items))
	for _, item := range tx.Items {
		if ref := optionalRef(item.MaterialID); ref != "" {
			if _, ok := v.data.materials[ref]; !ok {
				return notFound("material", ref)
			}
		}
		if ref := optionalRef(item.ProductModelID); ref != "" {
			if _, ok := v.data.models[ref]; !ok {
				return notFound("model", ref)
			}
		}
		item.TransactionID = tx.ID
		item.MaterialName = ""
		item.ModelName = ""
		items = append(items, item)
	}
	tx.Items = items
	tx.SupplierName = ""
	tx.CustomerName = ""
	v.data.transactions[tx.ID] = txRecord{tx: tx, seq: v.data.nextSeq()}
	return nil
}

// UpdateTransaction writes the header fields. Items and counterparties are
// fixed at creation.
func (v *view) UpdateTransaction(_ context.Context, tx domain.Transaction) error {
	defer v.write()()

	rec, ok := v.data.transactions[tx.ID]
	if !ok {
		return notFound("transaction", tx.ID)
	}
	rec.tx.Date = tx.Date
	rec.tx.Notes = tx.Notes
	rec.tx.Status = tx.Status
	rec.tx.UpdatedAt = tx.UpdatedAt
	v.data.transactions[tx.ID] = rec
	return nil
}

func (v *view) DeleteTransaction(_ context.Context, id string) error {
	defer v.write()()

	if _, ok := v.data.transactions[id]; !ok {
		return notFound("transaction", id)
	}
	delete(v.data.transactions, id)
	return nil
}

func (v *view) CreateUser(_ context.Context, user domain.User) error {
	defer v.write()()

	for _, existing := range v.data.users {
		if strings.EqualFold(existing.Username, user.Username) || strings.EqualFold(existing.Email, user.Email) {
			return conflict("username or email already registered")
		}
	}
	v.data.users[user.ID] = user
	return nil
}

func (v *view) GetUserByUsername(_ context.Context, username string) (*domain.User, error) {
	defer v.read()()

	for _, user := range v.data.users {
		if strings.EqualFold(user.Username, username) {
			return &user, nil
		}
	}
	return nil, notFound("user", username)
}

func (v *view) UserExists(_ context.Context, username string, email string) (bool, error) {
	defer v.read()()

	for _, user := range v.data.users {
		if strings.EqualFold(user.Username, username) || strings.EqualFold(user.Email, email) {
			return true, nil
		}
	}
	return false, nil
}

func (v *view) decorateTransaction(tx domain.Transaction) domain.Transaction {
	tx.SupplierName = ""
	tx.CustomerName = ""
	if ref := optionalRef(tx.SupplierID); ref != "" {
		tx.SupplierName = v.data.suppliers[ref].Name
	}
	if ref := optionalRef(tx.CustomerID); ref != "" {
		tx.CustomerName = v.data.customers[ref].Name
	}
	items := make([]domain.TransactionItem, 0, len(tx.Items))
	for _, item := range tx.Items {
		if ref := optionalRef(item.MaterialID); ref != "" {
			item.MaterialName = v.data.materials[ref].Name
		}
		if ref := optionalRef(item.ProductModelID); ref != "" {
			item.ModelName = v.data.models[ref].Name
		}
		items = append(items, item)
	}
	tx.Items = items
	return tx
}
