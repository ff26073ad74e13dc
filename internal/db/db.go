package db

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/cryptochain/exchange/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// holdingEpsilon is the largest residual amount treated as an empty
// position. Trade quantities go through exact decimal arithmetic before
// they reach the store, so in practice the remainder is exactly zero;
// the epsilon only catches dust left behind by older float math.
const holdingEpsilon = 1e-9

// uniqueViolation is the Postgres error code for a unique constraint breach
const uniqueViolation = "23505"

// DB wraps a PostgreSQL connection pool
type DB struct {
	Pool *pgxpool.Pool
}

// NewDB initializes a new database connection pool
func NewDB(ctx context.Context, connString string) (*DB, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	return &DB{Pool: pool}, nil
}

// Close closes the database connection pool
func (db *DB) Close(ctx context.Context) error {
	db.Pool.Close()
	return nil
}

// CreateUser inserts a new user. The starting cash balance comes from the
// column default.
func (db *DB) CreateUser(ctx context.Context, name, email, passwordHash string) (*models.User, error) {
	user := &models.User{}
	err := db.Pool.QueryRow(ctx,
		"INSERT INTO users (name, email, password_hash) VALUES ($1, $2, $3) RETURNING id, name, email, password_hash, balance, created_at",
		name, email, passwordHash).Scan(&user.ID, &user.Name, &user.Email, &user.PasswordHash, &user.Balance, &user.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, models.ErrDuplicateEmail
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

// GetUserByEmail retrieves a user by email
func (db *DB) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	user := &models.User{}
	err := db.Pool.QueryRow(ctx,
		"SELECT id, name, email, password_hash, balance, created_at FROM users WHERE email = $1",
		email).Scan(&user.ID, &user.Name, &user.Email, &user.PasswordHash, &user.Balance, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// GetUserByID retrieves a user by id
func (db *DB) GetUserByID(ctx context.Context, id int) (*models.User, error) {
	user := &models.User{}
	err := db.Pool.QueryRow(ctx,
		"SELECT id, name, email, password_hash, balance, created_at FROM users WHERE id = $1",
		id).Scan(&user.ID, &user.Name, &user.Email, &user.PasswordHash, &user.Balance, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// GetHolding retrieves a user's position in one symbol
func (db *DB) GetHolding(ctx context.Context, userID int, symbol string) (*models.Holding, error) {
	holding := &models.Holding{}
	err := db.Pool.QueryRow(ctx,
		"SELECT id, user_id, crypto_symbol, amount, updated_at FROM holdings WHERE user_id = $1 AND crypto_symbol = $2",
		userID, symbol).Scan(&holding.ID, &holding.UserID, &holding.CryptoSymbol, &holding.Amount, &holding.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get holding: %w", err)
	}
	return holding, nil
}

// GetUserHoldings retrieves all of a user's positions
func (db *DB) GetUserHoldings(ctx context.Context, userID int) ([]models.Holding, error) {
	rows, err := db.Pool.Query(ctx,
		"SELECT id, user_id, crypto_symbol, amount, updated_at FROM holdings WHERE user_id = $1 ORDER BY crypto_symbol",
		userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get holdings: %w", err)
	}
	defer rows.Close()

	var holdings []models.Holding
	for rows.Next() {
		var h models.Holding
		if err := rows.Scan(&h.ID, &h.UserID, &h.CryptoSymbol, &h.Amount, &h.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan holding: %w", err)
		}
		holdings = append(holdings, h)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return holdings, nil
}

// GetUserTransactions retrieves a user's trade history, newest first
func (db *DB) GetUserTransactions(ctx context.Context, userID int) ([]models.Transaction, error) {
	rows, err := db.Pool.Query(ctx,
		"SELECT id, user_id, transaction_type, crypto_symbol, crypto_name, amount, price, total, created_at "+
			"FROM transactions WHERE user_id = $1 ORDER BY created_at DESC, id DESC",
		userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get transactions: %w", err)
	}
	defer rows.Close()

	var txs []models.Transaction
	for rows.Next() {
		var t models.Transaction
		if err := rows.Scan(&t.ID, &t.UserID, &t.Type, &t.CryptoSymbol, &t.CryptoName, &t.Amount, &t.Price, &t.Total, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txs = append(txs, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return txs, nil
}

// GetTransaction retrieves one transaction if it belongs to the user
func (db *DB) GetTransaction(ctx context.Context, userID, id int) (*models.Transaction, error) {
	t := &models.Transaction{}
	err := db.Pool.QueryRow(ctx,
		"SELECT id, user_id, transaction_type, crypto_symbol, crypto_name, amount, price, total, created_at "+
			"FROM transactions WHERE id = $1 AND user_id = $2",
		id, userID).Scan(&t.ID, &t.UserID, &t.Type, &t.CryptoSymbol, &t.CryptoName, &t.Amount, &t.Price, &t.Total, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return t, nil
}

// ExecuteBuy atomically debits the purchase cost, adds the bought amount
// to the user's holding, and appends the BUY ledger row. The debit is
// guarded, so a concurrent trade that drains the balance first makes
// this one fail cleanly instead of pushing the balance negative.
// Returns the inserted transaction and the new balance.
func (db *DB) ExecuteBuy(ctx context.Context, t *models.Transaction) (*models.Transaction, float64, error) {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// Guarded debit. The caller has already resolved the user, so a
	// missing row means the balance check failed.
	var balance float64
	err = tx.QueryRow(ctx,
		"UPDATE users SET balance = balance - $1 WHERE id = $2 AND balance >= $1 RETURNING balance",
		t.Total, t.UserID).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, 0, models.ErrInsufficientFunds
		}
		return nil, 0, fmt.Errorf("failed to debit balance: %w", err)
	}

	_, err = tx.Exec(ctx,
		"INSERT INTO holdings (user_id, crypto_symbol, amount) VALUES ($1, $2, $3) "+
			"ON CONFLICT (user_id, crypto_symbol) DO UPDATE SET amount = holdings.amount + EXCLUDED.amount, updated_at = now()",
		t.UserID, t.CryptoSymbol, t.Amount)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to upsert holding: %w", err)
	}

	newTx, err := insertTransaction(ctx, tx, t)
	if err != nil {
		return nil, 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return newTx, balance, nil
}

// ExecuteSell atomically removes the sold amount from the user's holding,
// credits the proceeds, and appends the SELL ledger row. The holding
// decrement is guarded the same way the buy debit is; an emptied holding
// row is deleted.
func (db *DB) ExecuteSell(ctx context.Context, t *models.Transaction) (*models.Transaction, float64, error) {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var remaining float64
	err = tx.QueryRow(ctx,
		"UPDATE holdings SET amount = amount - $1, updated_at = now() "+
			"WHERE user_id = $2 AND crypto_symbol = $3 AND amount >= $1 RETURNING amount",
		t.Amount, t.UserID, t.CryptoSymbol).Scan(&remaining)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, 0, models.ErrInsufficientHoldings
		}
		return nil, 0, fmt.Errorf("failed to update holding: %w", err)
	}

	if math.Abs(remaining) <= holdingEpsilon {
		if _, err := tx.Exec(ctx,
			"DELETE FROM holdings WHERE user_id = $1 AND crypto_symbol = $2",
			t.UserID, t.CryptoSymbol); err != nil {
			return nil, 0, fmt.Errorf("failed to delete empty holding: %w", err)
		}
	}

	var balance float64
	err = tx.QueryRow(ctx,
		"UPDATE users SET balance = balance + $1 WHERE id = $2 RETURNING balance",
		t.Total, t.UserID).Scan(&balance)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to credit balance: %w", err)
	}

	newTx, err := insertTransaction(ctx, tx, t)
	if err != nil {
		return nil, 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return newTx, balance, nil
}

func insertTransaction(ctx context.Context, tx pgx.Tx, t *models.Transaction) (*models.Transaction, error) {
	newTx := &models.Transaction{}
	err := tx.QueryRow(ctx,
		"INSERT INTO transactions (user_id, transaction_type, crypto_symbol, crypto_name, amount, price, total) "+
			"VALUES ($1, $2, $3, $4, $5, $6, $7) "+
			"RETURNING id, user_id, transaction_type, crypto_symbol, crypto_name, amount, price, total, created_at",
		t.UserID, t.Type, t.CryptoSymbol, t.CryptoName, t.Amount, t.Price, t.Total).Scan(
		&newTx.ID, &newTx.UserID, &newTx.Type, &newTx.CryptoSymbol, &newTx.CryptoName, &newTx.Amount, &newTx.Price, &newTx.Total, &newTx.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to record transaction: %w", err)
	}
	return newTx, nil
}
