package billing

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

func Test_Service_CalculateJobCost(t *testing.T) {
	dbt := dbtest.Open(t)
	defer dbt.Close()

	pool, err := db.OpenDBConnectionPool(dbt.DSN)
	require.NoError(t, err)
	defer pool.Close()

	ctx := context.Background()
	models, err := data.NewModels(pool)
	require.NoError(t, err)
	engine := wallet.NewEngine(pool, models.Wallets, models.WalletTransactions)
	service := NewService(models.Jobs, models.JobTypes, models.Customers, engine)

	customer := data.CreateCustomerFixture(t, ctx, pool, "Acme Inc", "acme@example.com")
	jobType := data.CreateJobTypeFixture(t, ctx, pool, "resize-image", data.ProcessorTypeSync, 1000)

	cases := []struct {
		priority data.Priority
		want     int32
	}{
		{data.PriorityLow, 1000},
		{data.PriorityMedium, 1000},
		{data.PriorityHigh, 1500},
		{data.PriorityCritical, 2000},
	}

	for _, tc := range cases {
		job := data.CreateJobFixture(t, ctx, pool, customer.ID, jobType.ID, tc.priority, data.JobStatusPending, tc.want)
		cost, err := service.CalculateJobCost(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, tc.want, cost, "priority %s", tc.priority)
	}
}

func Test_Service_ReserveReleaseAndBilling(t *testing.T) {
	dbt := dbtest.Open(t)
	defer dbt.Close()

	pool, err := db.OpenDBConnectionPool(dbt.DSN)
	require.NoError(t, err)
	defer pool.Close()

	ctx := context.Background()
	models, err := data.NewModels(pool)
	require.NoError(t, err)
	engine := wallet.NewEngine(pool, models.Wallets, models.WalletTransactions)
	service := NewService(models.Jobs, models.JobTypes, models.Customers, engine)

	customer := data.CreateCustomerFixture(t, ctx, pool, "Globex", "globex@example.com")
	data.SetWalletBalanceFixture(t, ctx, pool, customer.ID, 10000)
	jobType := data.CreateJobTypeFixture(t, ctx, pool, "transcode-video", data.ProcessorTypeAsync, 2000)

	t.Run("reserve fails the submission when funds are insufficient", func(t *testing.T) {
		job := data.CreateJobFixture(t, ctx, pool, customer.ID, jobType.ID, data.PriorityCritical, data.JobStatusPending, 4000)
		data.SetWalletBalanceFixture(t, ctx, pool, customer.ID, 1000)

		err := service.ReserveFundsForJob(ctx, job.ID)
		require.ErrorIs(t, err, wallet.ErrInsufficientFunds)

		data.SetWalletBalanceFixture(t, ctx, pool, customer.ID, 10000)
	})

	t.Run("successful job is charged the calculated cost", func(t *testing.T) {
		job := data.CreateJobFixture(t, ctx, pool, customer.ID, jobType.ID, data.PriorityHigh, data.JobStatusPending, 3000)

		require.NoError(t, service.ReserveFundsForJob(ctx, job.ID))
		w := data.GetWalletFixture(t, ctx, pool, customer.ID)
		assert.Equal(t, int32(7000), w.BalanceCents)

		require.NoError(t, service.ProcessJobBilling(ctx, job.ID, true))

		w = data.GetWalletFixture(t, ctx, pool, customer.ID)
		assert.Equal(t, int32(7000), w.BalanceCents, "reservation released then re-debited the same amount nets to no change")

		billed, err := service.jobs.Get(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, int32(3000), billed.CostCents)
	})

	t.Run("failed job is charged 25 percent of the estimate", func(t *testing.T) {
		job := data.CreateJobFixture(t, ctx, pool, customer.ID, jobType.ID, data.PriorityLow, data.JobStatusPending, 4000)

		require.NoError(t, service.ReserveFundsForJob(ctx, job.ID))
		require.NoError(t, service.ProcessJobBilling(ctx, job.ID, false))

		billed, err := service.jobs.Get(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, int32(1000), billed.CostCents)
	})

	t.Run("release without billing restores the reservation in full", func(t *testing.T) {
		before := data.GetWalletFixture(t, ctx, pool, customer.ID)

		job := data.CreateJobFixture(t, ctx, pool, customer.ID, jobType.ID, data.PriorityMedium, data.JobStatusPending, 2500)
		require.NoError(t, service.ReserveFundsForJob(ctx, job.ID))
		require.NoError(t, service.ReleaseReservedFunds(ctx, job.ID))

		after := data.GetWalletFixture(t, ctx, pool, customer.ID)
		assert.Equal(t, before.BalanceCents, after.BalanceCents)
	})
}
