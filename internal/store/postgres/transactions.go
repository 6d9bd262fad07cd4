package postgres

import (
	"context"
	"database/sql"
	"strconv"
	"strings"
	"time"

	"craftstock/backend/internal/domain"
	"craftstock/backend/internal/store"
)

const transactionColumns = `
	t.id, t.transaction_type, t.date, t.supplier_id, COALESCE(s.name, ''),
	t.customer_id, COALESCE(c.name, ''), t.total_amount, t.status, t.notes,
	t.created_at, t.updated_at
`

func scanTransaction(row rowScanner) (domain.Transaction, error) {
	var (
		tx   domain.Transaction
		date time.Time
	)
	err := row.Scan(&tx.ID, &tx.Type, &date, &tx.SupplierID, &tx.SupplierName,
		&tx.CustomerID, &tx.CustomerName, &tx.TotalAmount, &tx.Status, &tx.Notes,
		&tx.CreatedAt, &tx.UpdatedAt)
	tx.Date = domain.NewDate(date)
	return tx, err
}

func (q *queries) ListTransactions(ctx context.Context, filter domain.TransactionFilter) ([]domain.Transaction, error) {
	where := make([]string, 0, 4)
	args := make([]any, 0, 4)
	add := func(clause string, value any) {
		args = append(args, value)
		where = append(where, strings.Replace(clause, "?", "$"+strconv.Itoa(len(args)), 1))
	}
	if filter.Type != "" {
		add("t.transaction_type = ?", string(filter.Type))
	}
	if filter.Status != "" {
		add("t.status = ?", string(filter.Status))
	}
	if filter.SupplierID != "" {
		add("t.supplier_id = ?", filter.SupplierID)
	}
	if filter.CustomerID != "" {
		add("t.customer_id = ?", filter.CustomerID)
	}

	query := `
		SELECT ` + transactionColumns + `
		FROM transactions t
		LEFT JOIN suppliers s ON s.id = t.supplier_id
		LEFT JOIN customers c ON c.id = t.customer_id
	`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY t.date DESC, t.seq DESC"

	rows, err := q.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, store.Persistence("list transactions", err)
	}
	defer rows.Close()

	txs := make([]domain.Transaction, 0, 64)
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, store.Persistence("scan transaction", err)
		}
		txs = append(txs, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, store.Persistence("list transactions", err)
	}
	return txs, nil
}

func (q *queries) GetTransaction(ctx context.Context, id string) (*domain.Transaction, error) {
	tx, err := scanTransaction(q.q.QueryRowContext(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions t
		LEFT JOIN suppliers s ON s.id = t.supplier_id
		LEFT JOIN customers c ON c.id = t.customer_id
		WHERE t.id = $1
	`, id))
	if err != nil {
		return nil, readErr("get transaction", "transaction", id, err)
	}

	rows, err := q.q.QueryContext(ctx, `
		SELECT ti.id, ti.transaction_id, ti.material_id, COALESCE(m.name, ''),
			ti.product_model_id, COALESCE(pm.name, ''), ti.quantity, ti.unit_price
		FROM transaction_items ti
		LEFT JOIN materials m ON m.id = ti.material_id
		LEFT JOIN product_models pm ON pm.id = ti.product_model_id
		WHERE ti.transaction_id = $1
		ORDER BY ti.position, ti.id
	`, id)
	if err != nil {
		return nil, store.Persistence("transaction items", err)
	}
	defer rows.Close()

	tx.Items = make([]domain.TransactionItem, 0, 8)
	for rows.Next() {
		var item domain.TransactionItem
		if err := rows.Scan(&item.ID, &item.TransactionID, &item.MaterialID, &item.MaterialName,
			&item.ProductModelID, &item.ModelName, &item.Quantity, &item.UnitPrice); err != nil {
			return nil, store.Persistence("scan transaction item", err)
		}
		tx.Items = append(tx.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, store.Persistence("transaction items", err)
	}
	return &tx, nil
}

func (q *queries) LockTransaction(ctx context.Context, id string) error {
	var locked string
	err := q.q.QueryRowContext(ctx, `SELECT id FROM transactions WHERE id = $1 FOR UPDATE`, id).Scan(&locked)
	return readErr("lock transaction", "transaction", id, err)
}

func (q *queries) CreateTransaction(ctx context.Context, tx domain.Transaction) error {
	_, err := q.q.ExecContext(ctx, `
		INSERT INTO transactions (
			id, transaction_type, date, supplier_id, customer_id, total_amount, status, notes, created_at, updated_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`, tx.ID, string(tx.Type), tx.Date.Time, tx.SupplierID, tx.CustomerID, tx.TotalAmount, string(tx.Status), tx.Notes, tx.CreatedAt, tx.UpdatedAt)
	if err != nil {
		return writeErr("create transaction", err)
	}

	for i, item := range tx.Items {
		_, err := q.q.ExecContext(ctx, `
			INSERT INTO transaction_items (id, transaction_id, material_id, product_model_id, quantity, unit_price, position)
			VALUES ($1,$2,$3,$4,$5,$6,$7)
		`, item.ID, tx.ID, item.MaterialID, item.ProductModelID, item.Quantity, item.UnitPrice, i)
		if err != nil {
			return writeErr("create transaction item", err)
		}
	}
	return nil
}

func (q *queries) UpdateTransaction(ctx context.Context, tx domain.Transaction) error {
	res, err := q.q.ExecContext(ctx, `
		UPDATE transactions SET date = $2, notes = $3, status = $4, updated_at = $5
		WHERE id = $1
	`, tx.ID, tx.Date.Time, tx.Notes, string(tx.Status), tx.UpdatedAt)
	return expectRow("update transaction", "transaction", tx.ID, res, err)
}

func (q *queries) DeleteTransaction(ctx context.Context, id string) error {
	res, err := q.q.ExecContext(ctx, `DELETE FROM transactions WHERE id = $1`, id)
	return expectDeleted("delete transaction", "transaction", id, res, err)
}

func (q *queries) CreateUser(ctx context.Context, user domain.User) error {
	_, err := q.q.ExecContext(ctx, `
		INSERT INTO users (id, username, email, password_hash, created_at)
		VALUES ($1,$2,$3,$4,$5)
	`, user.ID, user.Username, user.Email, user.PasswordHash, user.CreatedAt)
	return writeErr("create user", err)
}

func (q *queries) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	var user domain.User
	err := q.q.QueryRowContext(ctx, `
		SELECT id, username, email, password_hash, created_at
		FROM users
		WHERE lower(username) = lower($1)
	`, username).Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		return nil, readErr("get user", "user", username, err)
	}
	return &user, nil
}

func (q *queries) UserExists(ctx context.Context, username string, email string) (bool, error) {
	var exists bool
	err := q.q.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM users WHERE lower(username) = lower($1) OR lower(email) = lower($2))
	`, username, email).Scan(&exists)
	if err != nil && err != sql.ErrNoRows {
		return false, store.Persistence("user exists", err)
	}
	return exists, nil
}
