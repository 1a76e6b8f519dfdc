package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/innovategy/innosystem/db"
)

type Wallet struct {
	ID           string    `json:"id" db:"id"`
	CustomerID   string    `json:"customer_id" db:"customer_id"`
	BalanceCents int32     `json:"balance_cents" db:"balance_cents"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

type WalletModel struct {
	dbConnectionPool db.DBConnectionPool
}

func (m *WalletModel) Get(ctx context.Context, id string) (*Wallet, error) {
	var w Wallet
	query := `SELECT * FROM wallets WHERE id = $1`
	if err := m.dbConnectionPool.GetContext(ctx, &w, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("querying wallet %s: %w", id, err)
	}
	return &w, nil
}

func (m *WalletModel) GetByCustomerID(ctx context.Context, customerID string) (*Wallet, error) {
	var w Wallet
	query := `SELECT * FROM wallets WHERE customer_id = $1`
	if err := m.dbConnectionPool.GetContext(ctx, &w, query, customerID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("querying wallet for customer %s: %w", customerID, err)
	}
	return &w, nil
}

// GetByCustomerIDForUpdate locks the wallet row for the duration of the
// caller's transaction (spec §5: "wallet updates on a single wallet id are
// serialized by a row-level lock acquired within the database transaction").
func (m *WalletModel) GetByCustomerIDForUpdate(ctx context.Context, dbTx db.DBTransaction, customerID string) (*Wallet, error) {
	var w Wallet
	query := `SELECT * FROM wallets WHERE customer_id = $1 FOR UPDATE`
	if err := dbTx.GetContext(ctx, &w, query, customerID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("querying wallet for update for customer %s: %w", customerID, err)
	}
	return &w, nil
}

// UpdateBalance sets the wallet's balance_cents within the caller's
// transaction. It is never called outside of WalletEngine, which pairs it
// with a ledger insert in the same transaction (spec §4.3).
func (m *WalletModel) UpdateBalance(ctx context.Context, dbTx db.DBTransaction, walletID string, newBalanceCents int32) error {
	query := `UPDATE wallets SET balance_cents = $1, updated_at = NOW() WHERE id = $2`
	result, err := dbTx.ExecContext(ctx, query, newBalanceCents, walletID)
	if err != nil {
		return fmt.Errorf("updating wallet %s balance: %w", walletID, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected updating wallet %s: %w", walletID, err)
	}
	if rows == 0 {
		return ErrRecordNotFound
	}
	return nil
}
