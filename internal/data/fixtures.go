package data

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/innovategy/innosystem/db"
)

// CreateCustomerFixture inserts a customer (and its paired zero-balance
// wallet) directly, bypassing CustomerModel.Insert's validation so tests can
// construct edge cases quickly.
func CreateCustomerFixture(t *testing.T, ctx context.Context, sqlExec db.SQLExecuter, name, email string) *Customer {
	apiKey := fmt.Sprintf("ck_test_%s", uuid.NewString())
	var c Customer
	query := `
		INSERT INTO customers (id, name, email, api_key)
		VALUES ($1, $2, $3, $4)
		RETURNING *`
	err := sqlExec.GetContext(ctx, &c, query, uuid.NewString(), name, email, apiKey)
	require.NoError(t, err)

	walletQuery := `INSERT INTO wallets (id, customer_id, balance_cents) VALUES ($1, $2, 0)`
	_, err = sqlExec.ExecContext(ctx, walletQuery, uuid.NewString(), c.ID)
	require.NoError(t, err)

	return &c
}

// CreateResellerFixture inserts a reseller.
func CreateResellerFixture(t *testing.T, ctx context.Context, sqlExec db.SQLExecuter, name, email string) *Reseller {
	var r Reseller
	query := `
		INSERT INTO resellers (id, name, email, api_key, commission_rate)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING *`
	err := sqlExec.GetContext(ctx, &r, query, uuid.NewString(), name, email, fmt.Sprintf("rk_test_%s", uuid.NewString()), 1000)
	require.NoError(t, err)
	return &r
}

// GetWalletFixture loads the wallet belonging to customerID, for asserting
// post-operation balances.
func GetWalletFixture(t *testing.T, ctx context.Context, sqlExec db.SQLExecuter, customerID string) *Wallet {
	var w Wallet
	err := sqlExec.GetContext(ctx, &w, `SELECT * FROM wallets WHERE customer_id = $1`, customerID)
	require.NoError(t, err)
	return &w
}

// SetWalletBalanceFixture forces a wallet's balance directly, for seeding
// test preconditions without going through the wallet engine.
func SetWalletBalanceFixture(t *testing.T, ctx context.Context, sqlExec db.SQLExecuter, customerID string, balanceCents int32) {
	_, err := sqlExec.ExecContext(ctx, `UPDATE wallets SET balance_cents = $1 WHERE customer_id = $2`, balanceCents, customerID)
	require.NoError(t, err)
}

// CreateJobTypeFixture inserts an enabled job type with the given name and
// standard cost.
func CreateJobTypeFixture(t *testing.T, ctx context.Context, sqlExec db.SQLExecuter, name string, processor ProcessorType, standardCostCents int32) *JobType {
	var jt JobType
	query := `
		INSERT INTO job_types (id, name, processor_type, processing_logic_id, standard_cost_cents, enabled)
		VALUES ($1, $2, $3, $4, $5, TRUE)
		RETURNING *`
	err := sqlExec.GetContext(ctx, &jt, query, uuid.NewString(), name, processor, fmt.Sprintf("logic_%s", name), standardCostCents)
	require.NoError(t, err)
	return &jt
}

// CreateJobFixture inserts a job for customerID against jobTypeID with the
// given priority, status, and estimated cost.
func CreateJobFixture(t *testing.T, ctx context.Context, sqlExec db.SQLExecuter, customerID, jobTypeID string, priority Priority, status JobStatus, estimatedCostCents int32) *Job {
	var j Job
	query := `
		INSERT INTO jobs (id, customer_id, job_type_id, priority, status, input_data, estimated_cost_cents)
		VALUES ($1, $2, $3, $4, $5, '{}', $6)
		RETURNING *`
	err := sqlExec.GetContext(ctx, &j, query, uuid.NewString(), customerID, jobTypeID, priority, status, estimatedCostCents)
	require.NoError(t, err)
	return &j
}

// CreateRunnerFixture inserts an active runner compatible with the given job
// type names.
func CreateRunnerFixture(t *testing.T, ctx context.Context, sqlExec db.SQLExecuter, name string, jobTypeNames ...string) *Runner {
	var r Runner
	query := `
		INSERT INTO runners (id, name, description, status)
		VALUES ($1, $2, '', $3)
		RETURNING *`
	err := sqlExec.GetContext(ctx, &r, query, uuid.NewString(), name, RunnerStatusActive)
	require.NoError(t, err)

	for _, jt := range jobTypeNames {
		_, err := sqlExec.ExecContext(ctx, `INSERT INTO runner_job_type_compatibility (runner_id, job_type_name) VALUES ($1, $2)`, r.ID, jt)
		require.NoError(t, err)
	}
	r.CompatibleJobTypes = jobTypeNames
	return &r
}

// DeleteAllFixtures truncates every table, for test teardown between
// sub-tests that share one database.
func DeleteAllFixtures(t *testing.T, ctx context.Context, sqlExec db.SQLExecuter) {
	tables := []string{
		"wallet_transactions", "jobs", "runner_job_type_compatibility",
		"runners", "job_types", "wallets", "projects", "customers", "resellers",
	}
	for _, table := range tables {
		_, err := sqlExec.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s", table))
		require.NoError(t, err)
	}
}
