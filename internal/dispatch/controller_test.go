package dispatch

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/innovategy/innosystem/db"
	"github.com/innovategy/innosystem/internal/data"
	"github.com/innovategy/innosystem/internal/dbtest"
	"github.com/innovategy/innosystem/internal/queue"
	goredis "github.com/redis/go-redis/v9"
)

func newTestController(t *testing.T, pool db.DBConnectionPool, models *data.Models) *Controller {
	t.Helper()
	client := goredis.NewClient(&goredis.Options{Addr: "127.0.0.1:6379"})
	return NewController(pool, models.Jobs, models.JobTypes, models.Runners, queue.NewBroker(client))
}

func Test_ClassifyHealth(t *testing.T) {
	now := time.Now().UTC()

	t.Run("inactive runner is Unknown regardless of heartbeat", func(t *testing.T) {
		h := ClassifyHealth(data.Runner{Status: data.RunnerStatusInactive, LastHeartbeat: &now}, now, DefaultThresholds)
		assert.Equal(t, HealthUnknown, h)
	})

	t.Run("no heartbeat recorded is Critical", func(t *testing.T) {
		h := ClassifyHealth(data.Runner{Status: data.RunnerStatusActive}, now, DefaultThresholds)
		assert.Equal(t, HealthCritical, h)
	})

	cases := []struct {
		name string
		age  time.Duration
		want Health
	}{
		{"at the healthy boundary", DefaultThresholds.Healthy, HealthHealthy},
		{"just past the healthy boundary", DefaultThresholds.Healthy + time.Second, HealthWarning},
		{"at the warning boundary", DefaultThresholds.Warning, HealthWarning},
		{"just past the warning boundary", DefaultThresholds.Warning + time.Second, HealthCritical},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			hb := now.Add(-tc.age)
			h := ClassifyHealth(data.Runner{Status: data.RunnerStatusActive, LastHeartbeat: &hb}, now, DefaultThresholds)
			assert.Equal(t, tc.want, h)
		})
	}
}

func Test_Controller_ClaimJob(t *testing.T) {
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

	t.Run("rejects a claim from an incompatible runner", func(t *testing.T) {
		job := data.CreateJobFixture(t, ctx, pool, customer.ID, jobType.ID, data.PriorityLow, data.JobStatusPending, 1000)
		runner := data.CreateRunnerFixture(t, ctx, pool, "runner-a", otherType.Name)
		require.NoError(t, controller.Heartbeat(ctx, runner.ID))

		_, err := controller.ClaimJob(ctx, job.ID, runner.ID)
		require.ErrorIs(t, err, ErrRunnerNotCompatible)
	})

	t.Run("rejects a claim from an unhealthy runner", func(t *testing.T) {
		job := data.CreateJobFixture(t, ctx, pool, customer.ID, jobType.ID, data.PriorityLow, data.JobStatusPending, 1000)
		runner := data.CreateRunnerFixture(t, ctx, pool, "runner-b", jobType.Name)
		// No heartbeat recorded at all -> Critical.

		_, err := controller.ClaimJob(ctx, job.ID, runner.ID)
		require.ErrorIs(t, err, ErrRunnerUnhealthy)
	})

	t.Run("a compatible, healthy runner claims successfully", func(t *testing.T) {
		job := data.CreateJobFixture(t, ctx, pool, customer.ID, jobType.ID, data.PriorityLow, data.JobStatusPending, 1000)
		runner := data.CreateRunnerFixture(t, ctx, pool, "runner-c", jobType.Name)
		require.NoError(t, controller.Heartbeat(ctx, runner.ID))

		claimed, err := controller.ClaimJob(ctx, job.ID, runner.ID)
		require.NoError(t, err)
		assert.Equal(t, data.JobStatusRunning, claimed.Status)
	})

	t.Run("a terminal job rejects any further claim", func(t *testing.T) {
		job := data.CreateJobFixture(t, ctx, pool, customer.ID, jobType.ID, data.PriorityLow, data.JobStatusSucceeded, 1000)
		runner := data.CreateRunnerFixture(t, ctx, pool, "runner-d", jobType.Name)
		require.NoError(t, controller.Heartbeat(ctx, runner.ID))

		_, err := controller.ClaimJob(ctx, job.ID, runner.ID)
		var badState data.ErrBadState
		require.ErrorAs(t, err, &badState)
	})
}

func Test_Controller_FindCompatibleRunners_SortsByHealth(t *testing.T) {
	dbt := dbtest.Open(t)
	defer dbt.Close()

	pool, err := db.OpenDBConnectionPool(dbt.DSN)
	require.NoError(t, err)
	defer pool.Close()

	ctx := context.Background()
	models, err := data.NewModels(pool)
	require.NoError(t, err)
	controller := newTestController(t, pool, models)

	jobType := data.CreateJobTypeFixture(t, ctx, pool, "resize-image", data.ProcessorTypeSync, 1000)

	critical := data.CreateRunnerFixture(t, ctx, pool, "runner-critical", jobType.Name)
	healthy := data.CreateRunnerFixture(t, ctx, pool, "runner-healthy", jobType.Name)
	warning := data.CreateRunnerFixture(t, ctx, pool, "runner-warning", jobType.Name)

	require.NoError(t, controller.Heartbeat(ctx, healthy.ID))
	require.NoError(t, controller.Heartbeat(ctx, warning.ID))
	staleHeartbeat := time.Now().UTC().Add(-DefaultThresholds.Warning - time.Minute)
	require.NoError(t, models.Runners.Heartbeat(ctx, critical.ID, staleHeartbeat))
	warningHeartbeat := time.Now().UTC().Add(-DefaultThresholds.Healthy - time.Minute)
	require.NoError(t, models.Runners.Heartbeat(ctx, warning.ID, warningHeartbeat))

	runners, err := controller.FindCompatibleRunners(ctx, jobType.ID)
	require.NoError(t, err)
	require.Len(t, runners, 3)
	assert.Equal(t, healthy.ID, runners[0].ID)
	assert.Equal(t, warning.ID, runners[1].ID)
	assert.Equal(t, critical.ID, runners[2].ID)
}

func Test_Controller_StallSweep(t *testing.T) {
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

	stalled := data.CreateJobFixture(t, ctx, pool, customer.ID, jobType.ID, data.PriorityHigh, data.JobStatusRunning, 1000)
	_, err = pool.ExecContext(ctx, `UPDATE jobs SET updated_at = $1 WHERE id = $2`, time.Now().UTC().Add(-time.Hour), stalled.ID)
	require.NoError(t, err)

	fresh := data.CreateJobFixture(t, ctx, pool, customer.ID, jobType.ID, data.PriorityHigh, data.JobStatusRunning, 1000)

	count, err := controller.StallSweep(ctx, DefaultStallThreshold)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	reloaded, err := models.Jobs.Get(ctx, stalled.ID)
	require.NoError(t, err)
	assert.Equal(t, data.JobStatusPending, reloaded.Status)

	stillRunning, err := models.Jobs.Get(ctx, fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, data.JobStatusRunning, stillRunning.Status)
}
