// Package billing implements the Billing Service (spec §4.4): the stateless
// layer that turns a job's priority and job type into a cost and drives the
// reserve/release/debit cycle over the Wallet Engine.
package billing

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/stellar/go/support/log"

	"github.com/innovategy/innosystem/internal/data"
	"github.com/innovategy/innosystem/internal/wallet"
)

// failureChargeFraction is the fraction of the estimated cost billed when a
// job fails (spec §4.4).
var failureChargeFraction = decimal.NewFromFloat(0.25)

// priorityFactors maps each priority to the multiplier applied to a job
// type's standard cost (spec §4.4). The design leaves room for additional
// factors (duration, resource tier) without changing Service's interface.
var priorityFactors = map[data.Priority]decimal.Decimal{
	data.PriorityLow:      decimal.NewFromFloat(1.0),
	data.PriorityMedium:   decimal.NewFromFloat(1.0),
	data.PriorityHigh:     decimal.NewFromFloat(1.5),
	data.PriorityCritical: decimal.NewFromFloat(2.0),
}

// Service is the Billing Service. It never talks to Postgres directly;
// every persistence access goes through the Job/JobType repositories or the
// Wallet Engine so that a billing bug can never desync the ledger (I3).
type Service struct {
	jobs      *data.JobModel
	jobTypes  *data.JobTypeModel
	customers *data.CustomerModel
	engine    *wallet.Engine
}

func NewService(jobs *data.JobModel, jobTypes *data.JobTypeModel, customers *data.CustomerModel, engine *wallet.Engine) *Service {
	return &Service{jobs: jobs, jobTypes: jobTypes, customers: customers, engine: engine}
}

// CalculateJobCost computes the cents a job is billed at its current
// priority, rounded half-up to the nearest cent (spec §4.4).
func (s *Service) CalculateJobCost(ctx context.Context, jobID string) (int32, error) {
	job, err := s.jobs.Get(ctx, jobID)
	if err != nil {
		return 0, fmt.Errorf("loading job %s: %w", jobID, err)
	}
	return s.calculateJobCost(ctx, job)
}

func (s *Service) calculateJobCost(ctx context.Context, job *data.Job) (int32, error) {
	jobType, err := s.jobTypes.Get(ctx, job.JobTypeID)
	if err != nil {
		return 0, fmt.Errorf("loading job type %s: %w", job.JobTypeID, err)
	}
	return costForPriority(jobType.StandardCostCents, job.Priority)
}

// EstimateCost computes the same priority-weighted cost as CalculateJobCost,
// but from a job type id directly, for use before a job row exists (spec
// §4.4's submission-time estimate and the POST /jobs/cost/calculate preview).
func (s *Service) EstimateCost(ctx context.Context, jobTypeID string, priority data.Priority) (int32, error) {
	jobType, err := s.jobTypes.Get(ctx, jobTypeID)
	if err != nil {
		return 0, fmt.Errorf("loading job type %s: %w", jobTypeID, err)
	}
	return costForPriority(jobType.StandardCostCents, priority)
}

func costForPriority(standardCostCents int32, priority data.Priority) (int32, error) {
	factor, ok := priorityFactors[priority]
	if !ok {
		return 0, fmt.Errorf("no priority factor defined for priority %s", priority)
	}
	cost := decimal.NewFromInt32(standardCostCents).Mul(factor).Round(0)
	return int32(cost.IntPart()), nil
}

// ReserveFundsForJob loads the job, locates the customer's wallet, and
// reserves its estimated_cost_cents, failing the submission with
// wallet.ErrInsufficientFunds if the wallet can't cover it (spec §4.4).
func (s *Service) ReserveFundsForJob(ctx context.Context, jobID string) error {
	job, err := s.jobs.Get(ctx, jobID)
	if err != nil {
		return fmt.Errorf("loading job %s: %w", jobID, err)
	}
	return s.ReserveFunds(ctx, job.CustomerID, job.EstimatedCostCents, jobID)
}

// ReserveFunds reserves amountCents against customerID's wallet, tagging the
// ledger row with jobID. Unlike ReserveFundsForJob it never reads the jobs
// table, so it can run before a job row exists at all (spec §4.1 Scenario
// S3: an estimate the wallet can't cover must fail submission with no job
// row and no ledger row created, not a Pending row that gets cancelled
// after the fact).
func (s *Service) ReserveFunds(ctx context.Context, customerID string, amountCents int32, jobID string) error {
	_, err := s.engine.Reserve(ctx, customerID, amountCents, fmt.Sprintf("reservation for job %s", jobID), jobID)
	if err != nil {
		return fmt.Errorf("reserving funds for job %s: %w", jobID, err)
	}
	return nil
}

// ReleaseReservedFunds releases a job's estimated_cost_cents without
// charging anything, used by cancellation and error paths that must not
// bill the customer (spec §4.4).
func (s *Service) ReleaseReservedFunds(ctx context.Context, jobID string) error {
	job, err := s.jobs.Get(ctx, jobID)
	if err != nil {
		return fmt.Errorf("loading job %s: %w", jobID, err)
	}

	_, err = s.engine.Release(ctx, job.CustomerID, job.EstimatedCostCents, fmt.Sprintf("releasing reservation for cancelled/errored job %s", jobID), jobID)
	if err != nil {
		return fmt.Errorf("releasing reservation for job %s: %w", jobID, err)
	}
	return nil
}

// ProcessJobBilling settles a job's final charge once its processor has
// finished (spec §4.4): on success the actual cost comes from
// CalculateJobCost; on failure it is 25% of the estimate, rounded half-up.
// The release and debit land in one wallet transaction; the job row's
// cost_cents update is best-effort afterward — per spec, a failure there is
// logged and swallowed because the debit has already committed.
func (s *Service) ProcessJobBilling(ctx context.Context, jobID string, success bool) error {
	job, err := s.jobs.Get(ctx, jobID)
	if err != nil {
		return fmt.Errorf("loading job %s: %w", jobID, err)
	}

	var actualCost int32
	if success {
		actualCost, err = s.calculateJobCost(ctx, job)
		if err != nil {
			return fmt.Errorf("calculating cost for job %s: %w", jobID, err)
		}
	} else {
		actualCost = int32(decimal.NewFromInt32(job.EstimatedCostCents).Mul(failureChargeFraction).Round(0).IntPart())
	}

	description := fmt.Sprintf("final billing for job %s", jobID)
	if _, err := s.engine.ReleaseAndDebit(ctx, job.CustomerID, job.EstimatedCostCents, actualCost, description, jobID); err != nil {
		return fmt.Errorf("settling billing for job %s: %w", jobID, err)
	}

	if err := s.jobs.SetCost(ctx, jobID, actualCost); err != nil {
		log.Ctx(ctx).Warnf("job %s billed %d cents but recording cost_cents on the job row failed: %s", jobID, actualCost, err)
	}

	return nil
}
