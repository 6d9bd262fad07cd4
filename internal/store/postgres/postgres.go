package postgres

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"time"

	migrate "github.com/golang-migrate/migrate/v4"
	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"craftstock/backend/internal/store"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

//go:embed seed.sql
var seedSQL string

const seedAdminID = "d163dfa4-7c80-4364-90b7-6fd28d5e9a01"

type Options struct {
	MaxOpenConns int
	MaxIdleConns int
}

// querier is satisfied by both *sql.DB and *sql.Tx so every data primitive
// runs unchanged inside or outside a unit of work.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type queries struct {
	q querier
}

type Store struct {
	*queries
	db *sql.DB
}

var _ store.Repository = (*Store)(nil)

func New(ctx context.Context, databaseURL string, opts Options) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	if opts.MaxOpenConns < 1 {
		opts.MaxOpenConns = 30
	}
	if opts.MaxIdleConns < 1 {
		opts.MaxIdleConns = 8
	}
	db.SetMaxIdleConns(opts.MaxIdleConns)
	db.SetMaxOpenConns(opts.MaxOpenConns)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{queries: &queries{q: db}, db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// WithTx runs fn inside one READ COMMITTED transaction. Rows read with
// LotsForModels stay locked until commit or rollback.
func (s *Store) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return store.Persistence("begin", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(&queries{q: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return store.Persistence("commit", err)
	}
	return nil
}

const truncateData = `
	TRUNCATE transaction_items, transactions, inventory_items,
		model_materials, model_components, product_models,
		component_materials, components, materials,
		customers, suppliers
	RESTART IDENTITY CASCADE
`

// Truncate empties every business table in one transaction. Users stay.
func (s *Store) Truncate(ctx context.Context) error {
	return s.WithTx(ctx, func(tx store.Tx) error {
		if _, err := tx.(*queries).q.ExecContext(ctx, truncateData); err != nil {
			return store.Persistence("truncate", err)
		}
		return nil
	})
}

// Reset empties every table and loads the demo dataset in one transaction.
func (s *Store) Reset(ctx context.Context) error {
	return s.WithTx(ctx, func(tx store.Tx) error {
		q := tx.(*queries)
		if _, err := q.q.ExecContext(ctx, truncateData); err != nil {
			return store.Persistence("truncate", err)
		}
		if _, err := q.q.ExecContext(ctx, `TRUNCATE users`); err != nil {
			return store.Persistence("truncate users", err)
		}
		if _, err := q.q.ExecContext(ctx, seedSQL); err != nil {
			return store.Persistence("seed", err)
		}
		return q.seedAdmin(ctx)
	})
}

func (q *queries) seedAdmin(ctx context.Context) error {
	password := os.Getenv("SEED_ADMIN_PASSWORD")
	if password == "" {
		password = "admin123"
		log.Warn().Str("component", "postgres-store").Msg("using default demo credentials, set SEED_ADMIN_PASSWORD to override")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash seed password: %w", err)
	}
	_, err = q.q.ExecContext(ctx, `
		INSERT INTO users (id, username, email, password_hash, created_at)
		VALUES ($1, 'admin', 'admin@craftstock.local', $2, now())
	`, seedAdminID, string(hash))
	return writeErr("seed admin", err)
}

// Migrate applies the embedded schema migrations. It opens its own
// connection and closes it when done.
func Migrate(databaseURL string) error {
	src, err := iofs.New(migrationFS, "migrations")
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return err
	}
	driver, err := migratepgx.WithInstance(db, &migratepgx.Config{})
	if err != nil {
		_ = db.Close()
		return fmt.Errorf("migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "pgx5", driver)
	if err != nil {
		_ = db.Close()
		return fmt.Errorf("migration instance: %w", err)
	}
	defer func() {
		srcErr, dbErr := m.Close()
		if srcErr != nil || dbErr != nil {
			log.Warn().AnErr("source", srcErr).AnErr("database", dbErr).Msg("close migrator")
		}
	}()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate up: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23503"
	}
	return false
}

// writeErr maps insert and update failures. A dangling reference means the
// referenced row does not exist.
func writeErr(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case isUniqueViolation(err):
		return fmt.Errorf("%s: %w", op, store.ErrConflict)
	case isForeignKeyViolation(err):
		return fmt.Errorf("%s: referenced row missing: %w", op, store.ErrNotFound)
	}
	return store.Persistence(op, err)
}

// deleteErr maps delete failures. A foreign key violation means the row is
// still referenced elsewhere.
func deleteErr(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case isForeignKeyViolation(err):
		return fmt.Errorf("%s: still referenced: %w", op, store.ErrConflict)
	}
	return store.Persistence(op, err)
}

func readErr(op string, kind string, id string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %s: %w", kind, id, store.ErrNotFound)
	}
	return store.Persistence(op, err)
}

// expectRow turns an update that touched nothing into ErrNotFound.
func expectRow(op string, kind string, id string, res sql.Result, err error) error {
	if err != nil {
		return writeErr(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return store.Persistence(op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, store.ErrNotFound)
	}
	return nil
}

func expectDeleted(op string, kind string, id string, res sql.Result, err error) error {
	if err != nil {
		return deleteErr(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return store.Persistence(op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, store.ErrNotFound)
	}
	return nil
}

func (q *queries) SKUExists(ctx context.Context, table store.SKUTable, sku string) (bool, error) {
	var query string
	switch table {
	case store.SKUMaterials:
		query = `SELECT EXISTS (SELECT 1 FROM materials WHERE sku = $1)`
	case store.SKUComponents:
		query = `SELECT EXISTS (SELECT 1 FROM components WHERE sku = $1)`
	case store.SKUModels:
		query = `SELECT EXISTS (SELECT 1 FROM product_models WHERE sku = $1)`
	default:
		return false, store.Invalidf("unknown sku table %q", table)
	}

	var exists bool
	if err := q.q.QueryRowContext(ctx, query, sku).Scan(&exists); err != nil {
		return false, store.Persistence("sku exists", err)
	}
	return exists, nil
}
