// Package wallet implements the Wallet Engine (spec §4.3): the six
// mutating operations over a customer's wallet, each committing its balance
// change and ledger row in a single database transaction.
package wallet

import (
	"context"
	"errors"
	"fmt"

	"github.com/innovategy/innosystem/db"
	"github.com/innovategy/innosystem/internal/data"
)

// ErrInsufficientFunds is returned whenever an operation's balance
// precondition is violated, surfaced distinctly so callers can refuse to
// admit a job (spec §4.3, §7).
var ErrInsufficientFunds = errors.New("wallet: insufficient funds")

// Engine is the Wallet Engine. It never reads the customer or job tables
// directly; billing.Service owns orchestrating which job a reservation
// belongs to.
type Engine struct {
	dbConnectionPool db.DBConnectionPool
	wallets          *data.WalletModel
	transactions     *data.WalletTransactionModel
}

func NewEngine(pool db.DBConnectionPool, wallets *data.WalletModel, transactions *data.WalletTransactionModel) *Engine {
	return &Engine{dbConnectionPool: pool, wallets: wallets, transactions: transactions}
}

// mutate is the shared body behind every operation below: lock the wallet
// row, compute the new balance, write it, and append the ledger row, all
// inside one transaction (spec §4.3 table).
func (e *Engine) mutate(
	ctx context.Context,
	customerID string,
	amountCents int32,
	txType data.WalletTransactionType,
	description string,
	jobID *string,
	delta func(balance int32) (int32, error),
) (*data.Wallet, *data.WalletTransaction, error) {
	type result struct {
		wallet *data.Wallet
		tx     *data.WalletTransaction
	}

	res, err := db.RunInTransactionWithResult(ctx, e.dbConnectionPool, nil, func(dbTx db.DBTransaction) (result, error) {
		w, err := e.wallets.GetByCustomerIDForUpdate(ctx, dbTx, customerID)
		if err != nil {
			return result{}, fmt.Errorf("loading wallet for customer %s: %w", customerID, err)
		}

		newBalance, err := delta(w.BalanceCents)
		if err != nil {
			return result{}, err
		}

		if err := e.wallets.UpdateBalance(ctx, dbTx, w.ID, newBalance); err != nil {
			return result{}, fmt.Errorf("updating wallet %s balance: %w", w.ID, err)
		}

		desc := description
		signedAmount := amountCents
		if txType == data.TransactionTypeWithdrawal || txType == data.TransactionTypeReserved || txType == data.TransactionTypeJobDebit {
			signedAmount = -amountCents
		}

		ledgerRow, err := e.transactions.Insert(ctx, dbTx, data.WalletTransactionInsert{
			WalletID:        w.ID,
			CustomerID:      customerID,
			AmountCents:     signedAmount,
			TransactionType: txType,
			Description:     &desc,
			JobID:           jobID,
		})
		if err != nil {
			return result{}, fmt.Errorf("writing ledger row for wallet %s: %w", w.ID, err)
		}

		w.BalanceCents = newBalance
		return result{wallet: w, tx: ledgerRow}, nil
	})
	if err != nil {
		if errors.Is(err, ErrInsufficientFunds) {
			return nil, nil, ErrInsufficientFunds
		}
		return nil, nil, err
	}

	return res.wallet, res.tx, nil
}

// Deposit adds funds to a wallet on the customer's own initiative.
func (e *Engine) Deposit(ctx context.Context, customerID string, amountCents int32, description string) (*data.Wallet, error) {
	if amountCents <= 0 {
		return nil, fmt.Errorf("deposit amount must be positive, got %d", amountCents)
	}
	w, _, err := e.mutate(ctx, customerID, amountCents, data.TransactionTypeDeposit, description, nil, func(balance int32) (int32, error) {
		return balance + amountCents, nil
	})
	return w, err
}

// Withdraw removes funds from a wallet, failing with ErrInsufficientFunds if
// the balance can't cover it.
func (e *Engine) Withdraw(ctx context.Context, customerID string, amountCents int32, description string) (*data.Wallet, error) {
	if amountCents <= 0 {
		return nil, fmt.Errorf("withdrawal amount must be positive, got %d", amountCents)
	}
	w, _, err := e.mutate(ctx, customerID, amountCents, data.TransactionTypeWithdrawal, description, nil, func(balance int32) (int32, error) {
		if balance < amountCents {
			return 0, ErrInsufficientFunds
		}
		return balance - amountCents, nil
	})
	return w, err
}

// Reserve debits the balance immediately against jobID, recording a
// Reserved row (spec §4.3). The matching Release later restores it.
func (e *Engine) Reserve(ctx context.Context, customerID string, amountCents int32, description string, jobID string) (*data.Wallet, error) {
	if amountCents <= 0 {
		return nil, fmt.Errorf("reserve amount must be positive, got %d", amountCents)
	}
	w, _, err := e.mutate(ctx, customerID, amountCents, data.TransactionTypeReserved, description, &jobID, func(balance int32) (int32, error) {
		if balance < amountCents {
			return 0, ErrInsufficientFunds
		}
		return balance - amountCents, nil
	})
	return w, err
}

// Release restores previously reserved funds to the balance.
func (e *Engine) Release(ctx context.Context, customerID string, amountCents int32, description string, jobID string) (*data.Wallet, error) {
	if amountCents <= 0 {
		return nil, fmt.Errorf("release amount must be positive, got %d", amountCents)
	}
	w, _, err := e.mutate(ctx, customerID, amountCents, data.TransactionTypeReleased, description, &jobID, func(balance int32) (int32, error) {
		return balance + amountCents, nil
	})
	return w, err
}

// JobDebit records the final charge for a job. It is always called after
// the matching Release, so the net arithmetic across the pair is
// balance' = balance - reserved + released - debited (spec §4.3, P2). It
// may charge more than was reserved, provided the wallet has residual funds
// to cover the difference (scenario S2); otherwise it fails with
// ErrInsufficientFunds and the caller must decide how to handle an already
// -released reservation (billing.Service does so by re-reserving before
// debiting, see billing/service.go).
func (e *Engine) JobDebit(ctx context.Context, customerID string, amountCents int32, description string, jobID string) (*data.Wallet, error) {
	if amountCents < 0 {
		return nil, fmt.Errorf("job debit amount must not be negative, got %d", amountCents)
	}
	w, _, err := e.mutate(ctx, customerID, amountCents, data.TransactionTypeJobDebit, description, &jobID, func(balance int32) (int32, error) {
		if balance < amountCents {
			return 0, ErrInsufficientFunds
		}
		return balance - amountCents, nil
	})
	return w, err
}

// ReleaseAndDebit collapses a Release+JobDebit pair into a single balance
// update, as spec §4.3 permits provided both ledger rows land in the same
// transaction. billing.Service uses this so process_job_billing's
// release-then-charge never exposes an intermediate balance to a concurrent
// reader of the same wallet.
func (e *Engine) ReleaseAndDebit(ctx context.Context, customerID string, releasedCents, debitedCents int32, description string, jobID string) (*data.Wallet, error) {
	if releasedCents < 0 || debitedCents < 0 {
		return nil, fmt.Errorf("released and debited amounts must not be negative, got %d and %d", releasedCents, debitedCents)
	}

	w, err := db.RunInTransactionWithResult(ctx, e.dbConnectionPool, nil, func(dbTx db.DBTransaction) (*data.Wallet, error) {
		wlt, err := e.wallets.GetByCustomerIDForUpdate(ctx, dbTx, customerID)
		if err != nil {
			return nil, fmt.Errorf("loading wallet for customer %s: %w", customerID, err)
		}

		newBalance := wlt.BalanceCents + releasedCents - debitedCents
		if newBalance < 0 {
			return nil, ErrInsufficientFunds
		}

		if err := e.wallets.UpdateBalance(ctx, dbTx, wlt.ID, newBalance); err != nil {
			return nil, fmt.Errorf("updating wallet %s balance: %w", wlt.ID, err)
		}

		if _, err := e.transactions.Insert(ctx, dbTx, data.WalletTransactionInsert{
			WalletID:        wlt.ID,
			CustomerID:      customerID,
			AmountCents:     releasedCents,
			TransactionType: data.TransactionTypeReleased,
			Description:     &description,
			JobID:           &jobID,
		}); err != nil {
			return nil, fmt.Errorf("writing release ledger row for wallet %s: %w", wlt.ID, err)
		}

		if _, err := e.transactions.Insert(ctx, dbTx, data.WalletTransactionInsert{
			WalletID:        wlt.ID,
			CustomerID:      customerID,
			AmountCents:     -debitedCents,
			TransactionType: data.TransactionTypeJobDebit,
			Description:     &description,
			JobID:           &jobID,
		}); err != nil {
			return nil, fmt.Errorf("writing debit ledger row for wallet %s: %w", wlt.ID, err)
		}

		wlt.BalanceCents = newBalance
		return wlt, nil
	})
	if err != nil {
		if errors.Is(err, ErrInsufficientFunds) {
			return nil, ErrInsufficientFunds
		}
		return nil, err
	}
	return w, nil
}

// RefundCredit restores funds to a customer outside of the reserve/release
// cycle, e.g. a manual adjustment.
func (e *Engine) RefundCredit(ctx context.Context, customerID string, amountCents int32, description string, jobID string) (*data.Wallet, error) {
	if amountCents < 0 {
		return nil, fmt.Errorf("refund amount must not be negative, got %d", amountCents)
	}
	w, _, err := e.mutate(ctx, customerID, amountCents, data.TransactionTypeRefundCredit, description, &jobID, func(balance int32) (int32, error) {
		return balance + amountCents, nil
	})
	return w, err
}
