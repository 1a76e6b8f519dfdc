package cmd

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/innovategy/innosystem/db"
	"github.com/innovategy/innosystem/internal/data"
	"github.com/innovategy/innosystem/internal/dbtest"
	"github.com/innovategy/innosystem/internal/wallet"
)

func Test_seedJobTypesIfEmpty(t *testing.T) {
	dbt := dbtest.Open(t)
	defer dbt.Close()

	pool, err := db.OpenDBConnectionPool(dbt.DSN)
	require.NoError(t, err)
	defer pool.Close()

	ctx := context.Background()
	models, err := data.NewModels(pool)
	require.NoError(t, err)

	require.NoError(t, seedJobTypesIfEmpty(ctx, models))

	jobTypes, err := models.JobTypes.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, jobTypes, len(seedJobTypes))

	t.Run("is idempotent", func(t *testing.T) {
		require.NoError(t, seedJobTypesIfEmpty(ctx, models))

		jobTypes, err := models.JobTypes.ListAll(ctx)
		require.NoError(t, err)
		assert.Len(t, jobTypes, len(seedJobTypes))
	})
}

func Test_seedCustomersAndWalletsIfEmpty(t *testing.T) {
	dbt := dbtest.Open(t)
	defer dbt.Close()

	pool, err := db.OpenDBConnectionPool(dbt.DSN)
	require.NoError(t, err)
	defer pool.Close()

	ctx := context.Background()
	models, err := data.NewModels(pool)
	require.NoError(t, err)
	engine := wallet.NewEngine(pool, models.Wallets, models.WalletTransactions)

	require.NoError(t, seedCustomersAndWalletsIfEmpty(ctx, models, engine))

	customers, err := models.Customers.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, customers, len(seedCustomers))

	for _, c := range customers {
		w, err := models.Wallets.GetByCustomerID(ctx, c.ID)
		require.NoError(t, err)
		assert.Equal(t, int32(seedStartingBalanceCents), w.BalanceCents)
	}

	t.Run("is idempotent", func(t *testing.T) {
		require.NoError(t, seedCustomersAndWalletsIfEmpty(ctx, models, engine))

		customers, err := models.Customers.ListAll(ctx)
		require.NoError(t, err)
		assert.Len(t, customers, len(seedCustomers))
	})
}
