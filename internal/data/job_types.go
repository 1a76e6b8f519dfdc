package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/innovategy/innosystem/db"
)

// ProcessorType is a closed enumeration validated at the persistence
// boundary; unknown strings are rejected at read time (design note,
// SPEC_FULL.md §7 "job state as a sum type").
type ProcessorType string

const (
	ProcessorTypeSync        ProcessorType = "SYNC"
	ProcessorTypeAsync       ProcessorType = "ASYNC"
	ProcessorTypeExternalAPI ProcessorType = "EXTERNAL_API"
	ProcessorTypeBatch       ProcessorType = "BATCH"
	ProcessorTypeWebhook     ProcessorType = "WEBHOOK"
)

func ToProcessorType(s string) (ProcessorType, error) {
	switch ProcessorType(s) {
	case ProcessorTypeSync, ProcessorTypeAsync, ProcessorTypeExternalAPI, ProcessorTypeBatch, ProcessorTypeWebhook:
		return ProcessorType(s), nil
	default:
		return "", fmt.Errorf("unknown processor_type: %s", s)
	}
}

type JobType struct {
	ID                 string        `json:"id" db:"id"`
	Name               string        `json:"name" db:"name"`
	Description        string        `json:"description" db:"description"`
	ProcessorType      ProcessorType `json:"processor_type" db:"processor_type"`
	ProcessingLogicID  string        `json:"processing_logic_id" db:"processing_logic_id"`
	StandardCostCents  int32         `json:"standard_cost_cents" db:"standard_cost_cents"`
	Enabled            bool          `json:"enabled" db:"enabled"`
	CreatedAt          time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time     `json:"updated_at" db:"updated_at"`
}

type JobTypeInsert struct {
	Name              string
	Description       string
	ProcessorType      ProcessorType
	ProcessingLogicID string
	StandardCostCents int32
}

type JobTypeModel struct {
	dbConnectionPool db.DBConnectionPool
}

func (m *JobTypeModel) Get(ctx context.Context, id string) (*JobType, error) {
	var jt JobType
	query := `SELECT * FROM job_types WHERE id = $1`
	if err := m.dbConnectionPool.GetContext(ctx, &jt, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("querying job type %s: %w", id, err)
	}
	return &jt, nil
}

func (m *JobTypeModel) GetByName(ctx context.Context, name string) (*JobType, error) {
	var jt JobType
	query := `SELECT * FROM job_types WHERE name = $1`
	if err := m.dbConnectionPool.GetContext(ctx, &jt, query, name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("querying job type %s: %w", name, err)
	}
	return &jt, nil
}

func (m *JobTypeModel) ListAll(ctx context.Context) ([]JobType, error) {
	jobTypes := []JobType{}
	query := `SELECT * FROM job_types ORDER BY name ASC`
	if err := m.dbConnectionPool.SelectContext(ctx, &jobTypes, query); err != nil {
		return nil, fmt.Errorf("listing job types: %w", err)
	}
	return jobTypes, nil
}

func (m *JobTypeModel) ListActive(ctx context.Context) ([]JobType, error) {
	jobTypes := []JobType{}
	query := `SELECT * FROM job_types WHERE enabled = TRUE ORDER BY name ASC`
	if err := m.dbConnectionPool.SelectContext(ctx, &jobTypes, query); err != nil {
		return nil, fmt.Errorf("listing active job types: %w", err)
	}
	return jobTypes, nil
}

func (m *JobTypeModel) Insert(ctx context.Context, insert JobTypeInsert) (*JobType, error) {
	if insert.Name == "" {
		return nil, ErrMissingInput
	}

	var jt JobType
	query := `
		INSERT INTO job_types (id, name, description, processor_type, processing_logic_id, standard_cost_cents)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING *`
	err := m.dbConnectionPool.GetContext(ctx, &jt, query,
		uuid.NewString(), insert.Name, insert.Description, insert.ProcessorType, insert.ProcessingLogicID, insert.StandardCostCents)
	if err != nil {
		return nil, fmt.Errorf("inserting job type: %w", err)
	}
	return &jt, nil
}

func (m *JobTypeModel) Update(ctx context.Context, id string, enabled bool) error {
	query := `UPDATE job_types SET enabled = $1, updated_at = NOW() WHERE id = $2`
	result, err := m.dbConnectionPool.ExecContext(ctx, query, enabled, id)
	if err != nil {
		return fmt.Errorf("updating job type %s: %w", id, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected updating job type %s: %w", id, err)
	}
	if rows == 0 {
		return ErrRecordNotFound
	}
	return nil
}

func (m *JobTypeModel) Delete(ctx context.Context, id string) error {
	result, err := m.dbConnectionPool.ExecContext(ctx, `DELETE FROM job_types WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting job type %s: %w", id, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected deleting job type %s: %w", id, err)
	}
	if rows == 0 {
		return ErrRecordNotFound
	}
	return nil
}
