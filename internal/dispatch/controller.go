// Package dispatch implements the Dispatch & Health Controller (spec §4.5,
// §4.6): runner heartbeat tracking, compatibility-based runner selection,
// the job claim path, and the periodic stall sweep that recovers jobs
// abandoned by a crashed runner.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/innovategy/innosystem/db"
	"github.com/innovategy/innosystem/internal/billing"
	"github.com/innovategy/innosystem/internal/data"
	"github.com/innovategy/innosystem/internal/monitor"
	"github.com/innovategy/innosystem/internal/queue"
)

// ErrRunnerNotCompatible is returned by ClaimJob when the claiming runner's
// compatibility set doesn't include the job's type.
var ErrRunnerNotCompatible = errors.New("dispatch: runner not compatible with job type")

// ErrRunnerUnhealthy is returned by ClaimJob when the claiming runner's
// health is Critical or Unknown.
var ErrRunnerUnhealthy = errors.New("dispatch: runner is not healthy enough to claim work")

// ActiveWindow is the heartbeat recency threshold for listing runners
// considered for dispatch (spec §4.5 glossary).
const ActiveWindow = 5 * time.Minute

// DefaultStallThreshold is how long a Running job may go without an update
// before the sweep reassigns it (spec §4.5).
const DefaultStallThreshold = 30 * time.Minute

// Controller is the Dispatch & Health Controller.
type Controller struct {
	dbConnectionPool db.DBConnectionPool
	jobs             *data.JobModel
	jobTypes         *data.JobTypeModel
	runners          *data.RunnerModel
	broker           *queue.Broker
	thresholds       Thresholds
	billingSvc       *billing.Service
	metrics          monitor.Client
}

// ControllerOption configures optional collaborators the core claim/sweep
// path doesn't need but the submission/completion path does, so tests
// exercising only ClaimJob/StallSweep can keep constructing a bare
// Controller.
type ControllerOption func(*Controller)

// WithBilling wires the Billing Service into SubmitJob/CompleteJob.
func WithBilling(svc *billing.Service) ControllerOption {
	return func(c *Controller) { c.billingSvc = svc }
}

// WithMonitor wires submission/completion counters into the monitor client.
func WithMonitor(m monitor.Client) ControllerOption {
	return func(c *Controller) { c.metrics = m }
}

func NewController(pool db.DBConnectionPool, jobs *data.JobModel, jobTypes *data.JobTypeModel, runners *data.RunnerModel, broker *queue.Broker, opts ...ControllerOption) *Controller {
	c := &Controller{
		dbConnectionPool: pool,
		jobs:             jobs,
		jobTypes:         jobTypes,
		runners:          runners,
		broker:           broker,
		thresholds:       DefaultThresholds,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Register enrolls a new runner with its compatible job-type names.
func (c *Controller) Register(ctx context.Context, name, description string, compatibleJobTypes []string) (*data.Runner, error) {
	return c.runners.Register(ctx, data.RunnerInsert{
		Name:               name,
		Description:        description,
		CompatibleJobTypes: compatibleJobTypes,
	})
}

// Heartbeat records that runnerID is alive right now.
func (c *Controller) Heartbeat(ctx context.Context, runnerID string) error {
	return c.runners.Heartbeat(ctx, runnerID, time.Now().UTC())
}

// HealthOf classifies a single runner's current health.
func (c *Controller) HealthOf(ctx context.Context, runnerID string) (Health, error) {
	runner, err := c.runners.Get(ctx, runnerID)
	if err != nil {
		return "", fmt.Errorf("loading runner %s: %w", runnerID, err)
	}
	return ClassifyHealth(*runner, time.Now().UTC(), c.thresholds), nil
}

// FindCompatibleRunners returns every active runner compatible with
// jobTypeID, sorted by health then runner id (spec §4.5). Health is
// computed against the active-window regardless of status filtering
// already applied by the repository query.
func (c *Controller) FindCompatibleRunners(ctx context.Context, jobTypeID string) ([]data.Runner, error) {
	jobType, err := c.jobTypes.Get(ctx, jobTypeID)
	if err != nil {
		return nil, fmt.Errorf("loading job type %s: %w", jobTypeID, err)
	}

	runners, err := c.runners.ListCompatibleWithJobType(ctx, jobType.Name)
	if err != nil {
		return nil, fmt.Errorf("listing runners compatible with %s: %w", jobType.Name, err)
	}

	now := time.Now().UTC()
	health := make(map[string]Health, len(runners))
	for _, r := range runners {
		health[r.ID] = ClassifyHealth(r, now, c.thresholds)
	}
	sortByHealthThenID(runners, health)

	return runners, nil
}

// ClaimJob is the Pending -> Running edge (spec §4.6): it verifies the
// claiming runner is healthy and compatible with the job's type, then
// transitions the job, all under the job row's lock so two racing claims
// serialize instead of both succeeding (spec §5).
func (c *Controller) ClaimJob(ctx context.Context, jobID, runnerID string) (*data.Job, error) {
	return db.RunInTransactionWithResult(ctx, c.dbConnectionPool, nil, func(dbTx db.DBTransaction) (*data.Job, error) {
		job, err := c.jobs.GetForUpdate(ctx, dbTx, jobID)
		if err != nil {
			return nil, fmt.Errorf("loading job %s for claim: %w", jobID, err)
		}

		runner, err := c.runners.Get(ctx, runnerID)
		if err != nil {
			return nil, fmt.Errorf("loading runner %s: %w", runnerID, err)
		}

		jobType, err := c.jobTypes.Get(ctx, job.JobTypeID)
		if err != nil {
			return nil, fmt.Errorf("loading job type %s: %w", job.JobTypeID, err)
		}

		if !compatible(*runner, jobType.Name) {
			return nil, ErrRunnerNotCompatible
		}

		health := ClassifyHealth(*runner, time.Now().UTC(), c.thresholds)
		if health == HealthCritical || health == HealthUnknown {
			return nil, ErrRunnerUnhealthy
		}

		if err := c.jobs.TransitionStatus(ctx, dbTx, job, data.JobStatusRunning); err != nil {
			return nil, err
		}

		return job, nil
	})
}

func compatible(runner data.Runner, jobTypeName string) bool {
	for _, name := range runner.CompatibleJobTypes {
		if name == jobTypeName {
			return true
		}
	}
	return false
}

// StallSweep implements the reassignment sweep (spec §4.5): every Running
// job whose updated_at is older than staleAfter is moved back to Pending
// and re-pushed to the queue at its original priority. Returns the count
// reassigned.
func (c *Controller) StallSweep(ctx context.Context, staleAfter time.Duration) (int, error) {
	stalled, err := c.jobs.FindStalled(ctx, staleAfter, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("finding stalled jobs: %w", err)
	}
	if len(stalled) == 0 {
		return 0, nil
	}

	ids := make([]string, len(stalled))
	for i, j := range stalled {
		ids[i] = j.ID
	}
	if err := c.jobs.BulkUpdateStatus(ctx, ids, data.JobStatusPending); err != nil {
		return 0, fmt.Errorf("reassigning stalled jobs: %w", err)
	}

	for _, j := range stalled {
		if err := c.broker.Push(ctx, j.ID, j.Priority); err != nil {
			return 0, fmt.Errorf("re-pushing stalled job %s: %w", j.ID, err)
		}
	}

	return len(stalled), nil
}
