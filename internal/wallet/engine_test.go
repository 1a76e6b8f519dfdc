package wallet

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/innovategy/innosystem/db"
	"github.com/innovategy/innosystem/internal/data"
	"github.com/innovategy/innosystem/internal/dbtest"
)

func Test_Engine_DepositAndWithdraw(t *testing.T) {
	dbt := dbtest.Open(t)
	defer dbt.Close()

	pool, err := db.OpenDBConnectionPool(dbt.DSN)
	require.NoError(t, err)
	defer pool.Close()

	ctx := context.Background()
	models, err := data.NewModels(pool)
	require.NoError(t, err)
	engine := NewEngine(pool, models.Wallets, models.WalletTransactions)

	customer := data.CreateCustomerFixture(t, ctx, pool, "Acme Inc", "acme@example.com")

	t.Run("deposit increases balance and writes a ledger row", func(t *testing.T) {
		w, err := engine.Deposit(ctx, customer.ID, 5000, "initial top-up")
		require.NoError(t, err)
		assert.Equal(t, int32(5000), w.BalanceCents)

		sum, err := models.WalletTransactions.SumByWallet(ctx, w.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(5000), sum)
	})

	t.Run("withdraw decreases balance when funds are sufficient", func(t *testing.T) {
		w, err := engine.Withdraw(ctx, customer.ID, 2000, "partial refund to customer")
		require.NoError(t, err)
		assert.Equal(t, int32(3000), w.BalanceCents)
	})

	t.Run("withdraw beyond balance fails with ErrInsufficientFunds and leaves balance untouched", func(t *testing.T) {
		before := data.GetWalletFixture(t, ctx, pool, customer.ID)

		_, err := engine.Withdraw(ctx, customer.ID, 999999, "too much")
		require.ErrorIs(t, err, ErrInsufficientFunds)

		after := data.GetWalletFixture(t, ctx, pool, customer.ID)
		assert.Equal(t, before.BalanceCents, after.BalanceCents)
	})
}

func Test_Engine_ReserveReleaseDebitCycle(t *testing.T) {
	dbt := dbtest.Open(t)
	defer dbt.Close()

	pool, err := db.OpenDBConnectionPool(dbt.DSN)
	require.NoError(t, err)
	defer pool.Close()

	ctx := context.Background()
	models, err := data.NewModels(pool)
	require.NoError(t, err)
	engine := NewEngine(pool, models.Wallets, models.WalletTransactions)

	customer := data.CreateCustomerFixture(t, ctx, pool, "Globex", "globex@example.com")
	data.SetWalletBalanceFixture(t, ctx, pool, customer.ID, 10000)
	jobID := "00000000-0000-0000-0000-000000000001"

	t.Run("reserve fails past the balance, leaving it unchanged", func(t *testing.T) {
		_, err := engine.Reserve(ctx, customer.ID, 20000, "reserve for job", jobID)
		require.ErrorIs(t, err, ErrInsufficientFunds)

		w := data.GetWalletFixture(t, ctx, pool, customer.ID)
		assert.Equal(t, int32(10000), w.BalanceCents)
	})

	t.Run("reserve debits immediately", func(t *testing.T) {
		w, err := engine.Reserve(ctx, customer.ID, 3000, "reserve for job", jobID)
		require.NoError(t, err)
		assert.Equal(t, int32(7000), w.BalanceCents)
	})

	t.Run("release restores the reserved amount and job debit charges the final cost", func(t *testing.T) {
		w, err := engine.Release(ctx, customer.ID, 3000, "release reservation", jobID)
		require.NoError(t, err)
		assert.Equal(t, int32(10000), w.BalanceCents)

		w, err = engine.JobDebit(ctx, customer.ID, 2500, "final job cost", jobID)
		require.NoError(t, err)
		assert.Equal(t, int32(7500), w.BalanceCents)

		sum, err := models.WalletTransactions.SumByWallet(ctx, w.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(7500), sum)
	})
}

func Test_Engine_RefundCredit(t *testing.T) {
	dbt := dbtest.Open(t)
	defer dbt.Close()

	pool, err := db.OpenDBConnectionPool(dbt.DSN)
	require.NoError(t, err)
	defer pool.Close()

	ctx := context.Background()
	models, err := data.NewModels(pool)
	require.NoError(t, err)
	engine := NewEngine(pool, models.Wallets, models.WalletTransactions)

	customer := data.CreateCustomerFixture(t, ctx, pool, "Initech", "initech@example.com")

	w, err := engine.RefundCredit(ctx, customer.ID, 1200, "goodwill refund", "00000000-0000-0000-0000-000000000002")
	require.NoError(t, err)
	assert.Equal(t, int32(1200), w.BalanceCents)
}
