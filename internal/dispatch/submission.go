package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/stellar/go/support/log"

	"github.com/innovategy/innosystem/db"
	"github.com/innovategy/innosystem/internal/data"
	"github.com/innovategy/innosystem/internal/wallet"
)

// ErrBillingNotConfigured is returned by SubmitJob/CompleteJob when the
// Controller was built without WithBilling, the way a nil broker would
// panic on Push — this fails loudly instead.
var ErrBillingNotConfigured = errors.New("dispatch: controller has no billing service configured")

// SubmitJob is the submission flow (spec §2): estimate the job's cost,
// reserve the estimate against the customer's wallet, and only then persist
// the job as Pending and push its id onto the broker at the chosen
// priority. The reservation runs against a pre-generated id before the job
// row exists (spec §4.1 Scenario S3): a wallet that can't cover the
// estimate must fail submission with no job row and no ledger row, not a
// Pending row created and then cancelled. The caller distinguishes this
// case by checking for wallet.ErrInsufficientFunds.
func (c *Controller) SubmitJob(ctx context.Context, customerID, jobTypeID string, priority data.Priority, projectID *string, inputData json.RawMessage) (*data.Job, error) {
	if c.billingSvc == nil {
		return nil, ErrBillingNotConfigured
	}
	if !priority.Valid() {
		return nil, fmt.Errorf("invalid priority: %d", priority)
	}

	estimatedCost, err := c.billingSvc.EstimateCost(ctx, jobTypeID, priority)
	if err != nil {
		return nil, fmt.Errorf("estimating cost for job type %s: %w", jobTypeID, err)
	}

	jobID := uuid.NewString()
	if err := c.billingSvc.ReserveFunds(ctx, customerID, estimatedCost, jobID); err != nil {
		if errors.Is(err, wallet.ErrInsufficientFunds) {
			return nil, wallet.ErrInsufficientFunds
		}
		return nil, fmt.Errorf("reserving funds for job %s: %w", jobID, err)
	}

	job, err := c.jobs.Insert(ctx, data.JobInsert{
		ID:                 jobID,
		CustomerID:         customerID,
		JobTypeID:          jobTypeID,
		ProjectID:          projectID,
		Priority:           priority,
		InputData:          inputData,
		EstimatedCostCents: estimatedCost,
	})
	if err != nil {
		return nil, fmt.Errorf("inserting job: %w", err)
	}

	if err := c.broker.Push(ctx, job.ID, job.Priority); err != nil {
		return nil, fmt.Errorf("pushing job %s to queue: %w", job.ID, err)
	}

	if c.metrics != nil {
		c.metrics.MonitorJobSubmitted(job.Priority.String())
	}

	return job, nil
}

// CompleteJob is the Running -> {Succeeded, Failed} edge driven by a
// runner's completion report (spec §4.1, §4.6): it records the outcome,
// transitions the job, and settles billing, all before returning so a
// runner retrying a failed report never double-bills the customer's
// wallet (the release/debit pair runs once, inside ProcessJobBilling).
func (c *Controller) CompleteJob(ctx context.Context, jobID string, success bool, outputData json.RawMessage, jobErr *string) error {
	if c.billingSvc == nil {
		return ErrBillingNotConfigured
	}

	targetStatus := data.JobStatusSucceeded
	if !success {
		targetStatus = data.JobStatusFailed
	}

	job, err := db.RunInTransactionWithResult(ctx, c.dbConnectionPool, nil, func(dbTx db.DBTransaction) (*data.Job, error) {
		job, err := c.jobs.GetForUpdate(ctx, dbTx, jobID)
		if err != nil {
			return nil, fmt.Errorf("loading job %s for completion: %w", jobID, err)
		}
		if err := c.jobs.TransitionStatus(ctx, dbTx, job, targetStatus); err != nil {
			return nil, err
		}
		return job, nil
	})
	if err != nil {
		return err
	}

	if err := c.jobs.SetOutcome(ctx, jobID, outputData, jobErr); err != nil {
		return fmt.Errorf("recording outcome for job %s: %w", jobID, err)
	}

	if err := c.billingSvc.ProcessJobBilling(ctx, jobID, success); err != nil {
		return fmt.Errorf("settling billing for job %s: %w", jobID, err)
	}

	if c.metrics != nil {
		outcome := "succeeded"
		if !success {
			outcome = "failed"
		}
		c.metrics.MonitorJobCompleted(outcome)
	}

	log.Ctx(ctx).WithField("job_id", job.ID).Infof("job completed with outcome %s", targetStatus)

	return nil
}
