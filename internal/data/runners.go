package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/innovategy/innosystem/db"
)

type RunnerStatus string

const (
	RunnerStatusActive      RunnerStatus = "ACTIVE"
	RunnerStatusInactive    RunnerStatus = "INACTIVE"
	RunnerStatusMaintenance RunnerStatus = "MAINTENANCE"
)

type Runner struct {
	ID                 string       `json:"id" db:"id"`
	Name               string       `json:"name" db:"name"`
	Description        string       `json:"description" db:"description"`
	Status             RunnerStatus `json:"status" db:"status"`
	LastHeartbeat      *time.Time   `json:"last_heartbeat,omitempty" db:"last_heartbeat"`
	CompatibleJobTypes []string     `json:"compatible_job_types" db:"-"`
	CreatedAt          time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time    `json:"updated_at" db:"updated_at"`
}

type RunnerInsert struct {
	Name               string
	Description        string
	CompatibleJobTypes []string
}

type RunnerModel struct {
	dbConnectionPool db.DBConnectionPool
}

// hydrateCompatibility loads the compatible_job_types set for a batch of
// runners in one round trip.
func (m *RunnerModel) hydrateCompatibility(ctx context.Context, runners []Runner) error {
	if len(runners) == 0 {
		return nil
	}

	ids := make([]string, len(runners))
	byID := make(map[string]*Runner, len(runners))
	for i := range runners {
		ids[i] = runners[i].ID
		byID[runners[i].ID] = &runners[i]
	}

	type row struct {
		RunnerID    string `db:"runner_id"`
		JobTypeName string `db:"job_type_name"`
	}
	rows := []row{}
	query := `SELECT runner_id, job_type_name FROM runner_job_type_compatibility WHERE runner_id = ANY($1)`
	if err := m.dbConnectionPool.SelectContext(ctx, &rows, query, pq.Array(ids)); err != nil {
		return fmt.Errorf("loading runner compatibility: %w", err)
	}

	for _, r := range rows {
		if runner, ok := byID[r.RunnerID]; ok {
			runner.CompatibleJobTypes = append(runner.CompatibleJobTypes, r.JobTypeName)
		}
	}
	return nil
}

func (m *RunnerModel) Get(ctx context.Context, id string) (*Runner, error) {
	var r Runner
	query := `SELECT * FROM runners WHERE id = $1`
	if err := m.dbConnectionPool.GetContext(ctx, &r, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("querying runner %s: %w", id, err)
	}
	if err := m.hydrateCompatibility(ctx, []Runner{r}); err != nil {
		return nil, err
	}
	return &r, nil
}

func (m *RunnerModel) ListAll(ctx context.Context) ([]Runner, error) {
	runners := []Runner{}
	query := `SELECT * FROM runners ORDER BY name ASC`
	if err := m.dbConnectionPool.SelectContext(ctx, &runners, query); err != nil {
		return nil, fmt.Errorf("listing runners: %w", err)
	}
	if err := m.hydrateCompatibility(ctx, runners); err != nil {
		return nil, err
	}
	return runners, nil
}

// ListActive returns runners within the active-window: status=Active and a
// heartbeat seen within the last 5 minutes (spec §4.5).
func (m *RunnerModel) ListActive(ctx context.Context, activeWindow time.Duration, now time.Time) ([]Runner, error) {
	runners := []Runner{}
	query := `
		SELECT * FROM runners
		WHERE status = $1 AND last_heartbeat >= $2
		ORDER BY name ASC`
	err := m.dbConnectionPool.SelectContext(ctx, &runners, query, RunnerStatusActive, now.Add(-activeWindow))
	if err != nil {
		return nil, fmt.Errorf("listing active runners: %w", err)
	}
	if err := m.hydrateCompatibility(ctx, runners); err != nil {
		return nil, err
	}
	return runners, nil
}

// ListCompatibleWithJobType returns every active runner whose compatibility
// set contains jobTypeName, regardless of health; health ranking happens in
// dispatch.Controller.FindCompatibleRunners.
func (m *RunnerModel) ListCompatibleWithJobType(ctx context.Context, jobTypeName string) ([]Runner, error) {
	runners := []Runner{}
	query := `
		SELECT r.* FROM runners r
		JOIN runner_job_type_compatibility c ON c.runner_id = r.id
		WHERE c.job_type_name = $1 AND r.status = $2
		ORDER BY r.id ASC`
	if err := m.dbConnectionPool.SelectContext(ctx, &runners, query, jobTypeName, RunnerStatusActive); err != nil {
		return nil, fmt.Errorf("listing runners compatible with %s: %w", jobTypeName, err)
	}
	if err := m.hydrateCompatibility(ctx, runners); err != nil {
		return nil, err
	}
	return runners, nil
}

func (m *RunnerModel) Register(ctx context.Context, insert RunnerInsert) (*Runner, error) {
	if insert.Name == "" {
		return nil, ErrMissingInput
	}

	runner, err := db.RunInTransactionWithResult(ctx, m.dbConnectionPool, nil, func(dbTx db.DBTransaction) (*Runner, error) {
		var r Runner
		query := `
			INSERT INTO runners (id, name, description, status)
			VALUES ($1, $2, $3, $4)
			RETURNING *`
		if err := dbTx.GetContext(ctx, &r, query, uuid.NewString(), insert.Name, insert.Description, RunnerStatusActive); err != nil {
			return nil, fmt.Errorf("inserting runner: %w", err)
		}

		for _, jobTypeName := range insert.CompatibleJobTypes {
			compatQuery := `INSERT INTO runner_job_type_compatibility (runner_id, job_type_name) VALUES ($1, $2)`
			if _, err := dbTx.ExecContext(ctx, compatQuery, r.ID, jobTypeName); err != nil {
				return nil, fmt.Errorf("registering compatibility %s for runner %s: %w", jobTypeName, r.ID, err)
			}
		}

		return &r, nil
	})
	if err != nil {
		return nil, err
	}

	runner.CompatibleJobTypes = insert.CompatibleJobTypes
	return runner, nil
}

// Heartbeat updates last_heartbeat to now. Idempotent and requires no
// payload (spec §4.5).
func (m *RunnerModel) Heartbeat(ctx context.Context, id string, now time.Time) error {
	query := `UPDATE runners SET last_heartbeat = $1, updated_at = $1 WHERE id = $2`
	result, err := m.dbConnectionPool.ExecContext(ctx, query, now, id)
	if err != nil {
		return fmt.Errorf("recording heartbeat for runner %s: %w", id, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected for runner %s heartbeat: %w", id, err)
	}
	if rows == 0 {
		return ErrRecordNotFound
	}
	return nil
}

func (m *RunnerModel) UpdateStatus(ctx context.Context, id string, status RunnerStatus) error {
	query := `UPDATE runners SET status = $1, updated_at = NOW() WHERE id = $2`
	result, err := m.dbConnectionPool.ExecContext(ctx, query, status, id)
	if err != nil {
		return fmt.Errorf("updating runner %s status: %w", id, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected updating runner %s: %w", id, err)
	}
	if rows == 0 {
		return ErrRecordNotFound
	}
	return nil
}
