package dispatch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	goredis "github.com/redis/go-redis/v9"

	"github.com/innovategy/innosystem/db"
	"github.com/innovategy/innosystem/internal/billing"
	"github.com/innovategy/innosystem/internal/data"
	"github.com/innovategy/innosystem/internal/dbtest"
	"github.com/innovategy/innosystem/internal/queue"
	"github.com/innovategy/innosystem/internal/wallet"
)

func newTestControllerWithBilling(t *testing.T, pool db.DBConnectionPool, models *data.Models) *Controller {
	t.Helper()
	client := goredis.NewClient(&goredis.Options{Addr: "127.0.0.1:6379"})
	engine := wallet.NewEngine(pool, models.Wallets, models.WalletTransactions)
	svc := billing.NewService(models.Jobs, models.JobTypes, models.Customers, engine)
	return NewController(pool, models.Jobs, models.JobTypes, models.Runners, queue.NewBroker(client), WithBilling(svc))
}

func Test_Controller_SubmitJob_InsufficientFunds(t *testing.T) {
	dbt := dbtest.Open(t)
	defer dbt.Close()

	pool, err := db.OpenDBConnectionPool(dbt.DSN)
	require.NoError(t, err)
	defer pool.Close()

	ctx := context.Background()
	models, err := data.NewModels(pool)
	require.NoError(t, err)
	controller := newTestControllerWithBilling(t, pool, models)

	// CreateCustomerFixture pairs the customer with a zero-balance wallet,
	// so any positive estimate exceeds what it can cover.
	customer := data.CreateCustomerFixture(t, ctx, pool, "Acme", "acme@example.com")
	jobType := data.CreateJobTypeFixture(t, ctx, pool, "resize-image", data.ProcessorTypeSync, 1000)

	job, err := controller.SubmitJob(ctx, customer.ID, jobType.ID, data.PriorityLow, nil, nil)
	require.ErrorIs(t, err, wallet.ErrInsufficientFunds)
	assert.Nil(t, job)

	jobs, err := models.Jobs.GetByCustomerID(ctx, customer.ID)
	require.NoError(t, err)
	assert.Empty(t, jobs, "no job row should exist after a reservation that fails for insufficient funds")

	w := data.GetWalletFixture(t, ctx, pool, customer.ID)
	assert.Equal(t, int32(0), w.BalanceCents, "no ledger movement should have landed either")
}

func Test_Controller_SubmitJob_FundedCustomerSucceeds(t *testing.T) {
	dbt := dbtest.Open(t)
	defer dbt.Close()

	pool, err := db.OpenDBConnectionPool(dbt.DSN)
	require.NoError(t, err)
	defer pool.Close()

	ctx := context.Background()
	models, err := data.NewModels(pool)
	require.NoError(t, err)
	controller := newTestControllerWithBilling(t, pool, models)

	customer := data.CreateCustomerFixture(t, ctx, pool, "Acme", "acme@example.com")
	data.SetWalletBalanceFixture(t, ctx, pool, customer.ID, 10_000)
	jobType := data.CreateJobTypeFixture(t, ctx, pool, "resize-image", data.ProcessorTypeSync, 1000)

	job, err := controller.SubmitJob(ctx, customer.ID, jobType.ID, data.PriorityLow, nil, nil)
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, data.JobStatusPending, job.Status)

	jobID, priority, ok, err := controller.broker.PeekNext(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, job.ID, jobID)
	assert.Equal(t, job.Priority, priority)
}

func Test_Controller_SubmitJob_NoBillingConfigured(t *testing.T) {
	dbt := dbtest.Open(t)
	defer dbt.Close()

	pool, err := db.OpenDBConnectionPool(dbt.DSN)
	require.NoError(t, err)
	defer pool.Close()

	ctx := context.Background()
	models, err := data.NewModels(pool)
	require.NoError(t, err)
	controller := newTestController(t, pool, models)

	_, err = controller.SubmitJob(ctx, "customer-id", "job-type-id", data.PriorityLow, nil, nil)
	assert.True(t, errors.Is(err, ErrBillingNotConfigured))
}

func Test_WorkerPool_RequeuesJobAfterFailedClaim(t *testing.T) {
	dbt := dbtest.Open(t)
	defer dbt.Close()

	pool, err := db.OpenDBConnectionPool(dbt.DSN)
	require.NoError(t, err)
	defer pool.Close()

	ctx := context.Background()
	models, err := data.NewModels(pool)
	require.NoError(t, err)
	controller := newTestController(t, pool, models)

	customer := data.CreateCustomerFixture(t, ctx, pool, "Acme", "acme@example.com")
	jobType := data.CreateJobTypeFixture(t, ctx, pool, "resize-image", data.ProcessorTypeSync, 1000)
	otherType := data.CreateJobTypeFixture(t, ctx, pool, "transcode-video", data.ProcessorTypeAsync, 2000)
	incompatible := data.CreateRunnerFixture(t, ctx, pool, "runner-incompatible", otherType.Name)
	require.NoError(t, controller.Heartbeat(ctx, incompatible.ID))

	job := data.CreateJobFixture(t, ctx, pool, customer.ID, jobType.ID, data.PriorityHigh, data.JobStatusPending, 1000)
	require.NoError(t, controller.broker.Push(ctx, job.ID, job.Priority))

	popped, err := controller.broker.Pop(ctx, time.Second)
	require.NoError(t, err)
	require.Equal(t, job.ID, popped)

	wp := &WorkerPool{Controller: controller, JobTypes: models.JobTypes, RunnerID: incompatible.ID}
	wp.handle(ctx, popped)

	stillPending, err := models.Jobs.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, data.JobStatusPending, stillPending.Status)

	requeuedID, requeuedPriority, ok, err := controller.broker.PeekNext(ctx)
	require.NoError(t, err)
	require.True(t, ok, "job should have been pushed back onto the broker after the failed claim")
	assert.Equal(t, job.ID, requeuedID)
	assert.Equal(t, job.Priority, requeuedPriority)

	compatible := data.CreateRunnerFixture(t, ctx, pool, "runner-compatible", jobType.Name)
	require.NoError(t, controller.Heartbeat(ctx, compatible.ID))

	reclaimed, err := controller.ClaimJob(ctx, job.ID, compatible.ID)
	require.NoError(t, err)
	assert.Equal(t, data.JobStatusRunning, reclaimed.Status)
}
