package data

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/innovategy/innosystem/db"
)

// Priority mirrors the four queue levels from spec §4.2: higher values
// drain first.
type Priority int16

const (
	PriorityLow      Priority = 0
	PriorityMedium   Priority = 1
	PriorityHigh     Priority = 2
	PriorityCritical Priority = 3
)

func (p Priority) Valid() bool {
	return p >= PriorityLow && p <= PriorityCritical
}

// ToPriority parses a priority name case-insensitively, the way
// ToProcessorType and ToJobStatus parse their own enumerations at the
// persistence boundary.
func ToPriority(s string) (Priority, error) {
	switch s {
	case "LOW", "low":
		return PriorityLow, nil
	case "MEDIUM", "medium":
		return PriorityMedium, nil
	case "HIGH", "high":
		return PriorityHigh, nil
	case "CRITICAL", "critical":
		return PriorityCritical, nil
	default:
		return 0, fmt.Errorf("unknown priority: %s", s)
	}
}

func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "LOW"
	case PriorityMedium:
		return "MEDIUM"
	case PriorityHigh:
		return "HIGH"
	case PriorityCritical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

type Job struct {
	ID                 string          `json:"id" db:"id"`
	CustomerID         string          `json:"customer_id" db:"customer_id"`
	JobTypeID          string          `json:"job_type_id" db:"job_type_id"`
	ProjectID          *string         `json:"project_id,omitempty" db:"project_id"`
	Status             JobStatus       `json:"status" db:"status"`
	Priority           Priority        `json:"priority" db:"priority"`
	InputData          json.RawMessage `json:"input_data" db:"input_data"`
	OutputData         json.RawMessage `json:"output_data,omitempty" db:"output_data"`
	Error              *string         `json:"error,omitempty" db:"error"`
	EstimatedCostCents int32           `json:"estimated_cost_cents" db:"estimated_cost_cents"`
	CostCents          int32           `json:"cost_cents" db:"cost_cents"`
	CreatedAt          time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at" db:"updated_at"`
	CompletedAt        *time.Time      `json:"completed_at,omitempty" db:"completed_at"`
}

type JobInsert struct {
	// ID lets a caller pin the row to an id it already reserved funds
	// against (spec §4.1 Scenario S3: the reservation must exist before the
	// job row does). Left empty, Insert generates one itself.
	ID                 string
	CustomerID         string
	JobTypeID          string
	ProjectID          *string
	Priority           Priority
	InputData          json.RawMessage
	EstimatedCostCents int32
}

type JobModel struct {
	dbConnectionPool db.DBConnectionPool
}

func (m *JobModel) Get(ctx context.Context, id string) (*Job, error) {
	var j Job
	query := `SELECT * FROM jobs WHERE id = $1`
	if err := m.dbConnectionPool.GetContext(ctx, &j, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("querying job %s: %w", id, err)
	}
	return &j, nil
}

// GetForUpdate locks the job row for the duration of dbTx, used by the
// dispatch controller's claim path so that two workers racing to claim the
// same job serialize on the row lock instead of both succeeding (spec §5).
func (m *JobModel) GetForUpdate(ctx context.Context, dbTx db.DBTransaction, id string) (*Job, error) {
	var j Job
	query := `SELECT * FROM jobs WHERE id = $1 FOR UPDATE`
	if err := dbTx.GetContext(ctx, &j, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("querying job %s for update: %w", id, err)
	}
	return &j, nil
}

func (m *JobModel) GetByCustomerID(ctx context.Context, customerID string) ([]Job, error) {
	jobs := []Job{}
	query := `SELECT * FROM jobs WHERE customer_id = $1 ORDER BY created_at DESC`
	if err := m.dbConnectionPool.SelectContext(ctx, &jobs, query, customerID); err != nil {
		return nil, fmt.Errorf("querying jobs for customer %s: %w", customerID, err)
	}
	return jobs, nil
}

// FindByStatus is a convenience over QueryJobs (design note, SPEC_FULL §9:
// "the narrow ones are conveniences").
func (m *JobModel) FindByStatus(ctx context.Context, status JobStatus) ([]Job, error) {
	jobs := []Job{}
	query := `SELECT * FROM jobs WHERE status = $1 ORDER BY created_at ASC`
	if err := m.dbConnectionPool.SelectContext(ctx, &jobs, query, status); err != nil {
		return nil, fmt.Errorf("querying jobs with status %s: %w", status, err)
	}
	return jobs, nil
}

// FindPendingUpToN returns the oldest N pending jobs, oldest first. Used to
// rehydrate the queue broker on process restart.
func (m *JobModel) FindPendingUpToN(ctx context.Context, n int) ([]Job, error) {
	jobs := []Job{}
	query := `SELECT * FROM jobs WHERE status = $1 ORDER BY created_at ASC LIMIT $2`
	if err := m.dbConnectionPool.SelectContext(ctx, &jobs, query, JobStatusPending, n); err != nil {
		return nil, fmt.Errorf("querying pending jobs: %w", err)
	}
	return jobs, nil
}

// FindStalled returns jobs whose status is Running and whose updated_at is
// older than staleAfter, relative to now (spec §4.1: "evaluated relative to
// updated_at, not created_at").
func (m *JobModel) FindStalled(ctx context.Context, staleAfter time.Duration, now time.Time) ([]Job, error) {
	jobs := []Job{}
	query := `SELECT * FROM jobs WHERE status = $1 AND updated_at < $2 ORDER BY updated_at ASC`
	if err := m.dbConnectionPool.SelectContext(ctx, &jobs, query, JobStatusRunning, now.Add(-staleAfter)); err != nil {
		return nil, fmt.Errorf("querying stalled jobs: %w", err)
	}
	return jobs, nil
}

// QueryJobs is the general filter/sort/pagination path (spec §4.1,
// supplemented in SPEC_FULL.md §9): customer, job type, status, a
// created-at window, and completed/failed-only shortcuts, combined with
// sort and page/page-size pagination, returning the total matching count.
func (m *JobModel) QueryJobs(ctx context.Context, params JobQueryParams) ([]Job, int, error) {
	qb := NewQueryBuilder("SELECT * FROM jobs j")
	countQB := NewQueryBuilder("SELECT COUNT(*) FROM jobs j")

	applyFilters := func(qb *QueryBuilder) {
		if v, ok := params.Filters[FilterKeyCustomerID]; ok {
			qb.AddCondition("j."+FilterKeyCustomerID.Equals(), v)
		}
		if v, ok := params.Filters[FilterKeyJobTypeID]; ok {
			qb.AddCondition("j."+FilterKeyJobTypeID.Equals(), v)
		}
		if v, ok := params.Filters[FilterKeyStatus]; ok {
			qb.AddCondition("j."+FilterKeyStatus.Equals(), v)
		}
		if v, ok := params.Filters[FilterKeyCreatedAtAfter]; ok {
			qb.AddCondition("j.created_at >= ?", v)
		}
		if v, ok := params.Filters[FilterKeyCreatedAtBefore]; ok {
			qb.AddCondition("j.created_at <= ?", v)
		}
		if v, ok := params.Filters[FilterKeyCompletedOnly]; ok && v == true {
			qb.AddCondition("j.completed_at IS NOT NULL")
		}
		if v, ok := params.Filters[FilterKeyFailedOnly]; ok && v == true {
			qb.AddCondition("j.status = ?", JobStatusFailed)
		}
	}

	applyFilters(qb)
	applyFilters(countQB)

	sortField := params.SortBy
	if sortField == "" {
		sortField = SortFieldCreatedAt
	}
	sortOrder := params.SortOrder
	if sortOrder == "" {
		sortOrder = SortOrderDESC
	}
	qb.AddSorting(sortField, sortOrder, "j")

	page, pageLimit := params.Page, params.PageLimit
	if page <= 0 {
		page = 1
	}
	if pageLimit <= 0 {
		pageLimit = 50
	}
	qb.AddPagination(page, pageLimit)

	query, args := qb.BuildAndRebind(m.dbConnectionPool)
	jobs := []Job{}
	if err := m.dbConnectionPool.SelectContext(ctx, &jobs, query, args...); err != nil {
		return nil, 0, fmt.Errorf("querying jobs: %w", err)
	}

	countQuery, countArgs := countQB.BuildAndRebind(m.dbConnectionPool)
	var total int
	if err := m.dbConnectionPool.GetContext(ctx, &total, countQuery, countArgs...); err != nil {
		return nil, 0, fmt.Errorf("counting jobs: %w", err)
	}

	return jobs, total, nil
}

// Insert persists a new job row as Pending. It never reserves funds or
// pushes to the queue itself — that orchestration belongs to billing.Service
// and queue.Broker respectively (spec §2 flow).
func (m *JobModel) Insert(ctx context.Context, insert JobInsert) (*Job, error) {
	if insert.CustomerID == "" || insert.JobTypeID == "" {
		return nil, ErrMissingInput
	}
	if !insert.Priority.Valid() {
		return nil, fmt.Errorf("invalid priority: %d", insert.Priority)
	}
	if insert.InputData == nil {
		insert.InputData = json.RawMessage(`{}`)
	}
	id := insert.ID
	if id == "" {
		id = uuid.NewString()
	}

	var j Job
	query := `
		INSERT INTO jobs (id, customer_id, job_type_id, project_id, status, priority, input_data, estimated_cost_cents, cost_cents)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 0)
		RETURNING *`
	err := m.dbConnectionPool.GetContext(ctx, &j, query,
		id, insert.CustomerID, insert.JobTypeID, insert.ProjectID,
		JobStatusPending, insert.Priority, insert.InputData, insert.EstimatedCostCents)
	if err != nil {
		return nil, fmt.Errorf("inserting job: %w", err)
	}
	return &j, nil
}

// TransitionStatus moves a job to targetStatus within dbTx, validating the
// move against the state machine first (I2) and stamping updated_at /
// completed_at as appropriate. Callers supply dbTx so the status change
// commits atomically with whatever else the transition implies (a wallet
// release, a queue push).
func (m *JobModel) TransitionStatus(ctx context.Context, dbTx db.DBTransaction, job *Job, targetStatus JobStatus) error {
	if err := job.Status.TransitionTo(targetStatus); err != nil {
		return err
	}

	var completedAt *time.Time
	if targetStatus.IsTerminal() {
		now := time.Now().UTC()
		completedAt = &now
	}

	query := `UPDATE jobs SET status = $1, updated_at = NOW(), completed_at = $2 WHERE id = $3`
	result, err := dbTx.ExecContext(ctx, query, targetStatus, completedAt, job.ID)
	if err != nil {
		return fmt.Errorf("transitioning job %s to %s: %w", job.ID, targetStatus, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected transitioning job %s: %w", job.ID, err)
	}
	if rows == 0 {
		return ErrRecordNotFound
	}

	job.Status = targetStatus
	job.CompletedAt = completedAt
	return nil
}

// BulkUpdateStatus is used by the stall sweep to move every stalled job back
// to Pending in one statement; the broker re-push happens per job afterward.
func (m *JobModel) BulkUpdateStatus(ctx context.Context, ids []string, status JobStatus) error {
	if len(ids) == 0 {
		return nil
	}
	query := `UPDATE jobs SET status = $1, updated_at = NOW() WHERE id = ANY($2)`
	if _, err := m.dbConnectionPool.ExecContext(ctx, query, status, pq.Array(ids)); err != nil {
		return fmt.Errorf("bulk updating %d jobs to %s: %w", len(ids), status, err)
	}
	return nil
}

// SetCost updates a job's final cost_cents after billing settles. Per spec
// §4.4, a failure here is logged and swallowed by the caller — the debit
// already committed and takes priority over this bookkeeping.
func (m *JobModel) SetCost(ctx context.Context, id string, costCents int32) error {
	query := `UPDATE jobs SET cost_cents = $1, updated_at = NOW() WHERE id = $2`
	result, err := m.dbConnectionPool.ExecContext(ctx, query, costCents, id)
	if err != nil {
		return fmt.Errorf("setting cost for job %s: %w", id, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected setting cost for job %s: %w", id, err)
	}
	if rows == 0 {
		return ErrRecordNotFound
	}
	return nil
}

func (m *JobModel) SetOutcome(ctx context.Context, id string, outputData json.RawMessage, jobErr *string) error {
	query := `UPDATE jobs SET output_data = $1, error = $2, updated_at = NOW() WHERE id = $3`
	if _, err := m.dbConnectionPool.ExecContext(ctx, query, outputData, jobErr, id); err != nil {
		return fmt.Errorf("setting outcome for job %s: %w", id, err)
	}
	return nil
}
