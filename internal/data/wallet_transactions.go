package data

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/innovategy/innosystem/db"
)

// WalletTransactionType encodes the direction and reason of a ledger row
// (spec §3). The ledger is append-only: rows are never updated or deleted.
type WalletTransactionType string

const (
	TransactionTypeDeposit     WalletTransactionType = "DEPOSIT"
	TransactionTypeWithdrawal  WalletTransactionType = "WITHDRAWAL"
	TransactionTypeReserved    WalletTransactionType = "RESERVED"
	TransactionTypeReleased    WalletTransactionType = "RELEASED"
	TransactionTypeJobCredit   WalletTransactionType = "JOB_CREDIT"
	TransactionTypeJobDebit    WalletTransactionType = "JOB_DEBIT"
	TransactionTypeRefundCredit WalletTransactionType = "REFUND_CREDIT"
)

type WalletTransaction struct {
	ID              string                `json:"id" db:"id"`
	WalletID        string                `json:"wallet_id" db:"wallet_id"`
	CustomerID      string                `json:"customer_id" db:"customer_id"`
	AmountCents     int32                 `json:"amount_cents" db:"amount_cents"`
	TransactionType WalletTransactionType `json:"transaction_type" db:"transaction_type"`
	Description     *string               `json:"description,omitempty" db:"description"`
	JobID           *string               `json:"job_id,omitempty" db:"job_id"`
	ReferenceID     *string               `json:"reference_id,omitempty" db:"reference_id"`
	CreatedAt       time.Time             `json:"created_at" db:"created_at"`
}

type WalletTransactionInsert struct {
	WalletID        string
	CustomerID      string
	AmountCents     int32
	TransactionType WalletTransactionType
	Description     *string
	JobID           *string
	ReferenceID     *string
}

type WalletTransactionModel struct {
	dbConnectionPool db.DBConnectionPool
}

// Insert appends a ledger row within the caller's transaction. Callers
// (WalletEngine) are responsible for writing the matching balance update in
// the same transaction so the two never diverge (I3).
func (m *WalletTransactionModel) Insert(ctx context.Context, dbTx db.DBTransaction, insert WalletTransactionInsert) (*WalletTransaction, error) {
	var tx WalletTransaction
	query := `
		INSERT INTO wallet_transactions
			(id, wallet_id, customer_id, amount_cents, transaction_type, description, job_id, reference_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING *`
	err := dbTx.GetContext(ctx, &tx, query,
		uuid.NewString(), insert.WalletID, insert.CustomerID, insert.AmountCents,
		insert.TransactionType, insert.Description, insert.JobID, insert.ReferenceID)
	if err != nil {
		return nil, fmt.Errorf("inserting wallet transaction: %w", err)
	}
	return &tx, nil
}

func (m *WalletTransactionModel) ListByWallet(ctx context.Context, walletID string, limit, offset int) ([]WalletTransaction, error) {
	txs := []WalletTransaction{}
	query := `
		SELECT * FROM wallet_transactions
		WHERE wallet_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`
	if err := m.dbConnectionPool.SelectContext(ctx, &txs, query, walletID, limit, offset); err != nil {
		return nil, fmt.Errorf("listing wallet transactions for wallet %s: %w", walletID, err)
	}
	return txs, nil
}

// SumByWallet returns the sum of all ledger amounts for a wallet, used by
// property tests (P1/P3) to assert it always equals balance_cents (I3).
func (m *WalletTransactionModel) SumByWallet(ctx context.Context, walletID string) (int64, error) {
	var sum int64
	query := `SELECT COALESCE(SUM(amount_cents), 0) FROM wallet_transactions WHERE wallet_id = $1`
	if err := m.dbConnectionPool.GetContext(ctx, &sum, query, walletID); err != nil {
		return 0, fmt.Errorf("summing wallet transactions for wallet %s: %w", walletID, err)
	}
	return sum, nil
}
