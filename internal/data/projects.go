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

type Project struct {
	ID          string    `json:"id" db:"id"`
	CustomerID  string    `json:"customer_id" db:"customer_id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

type ProjectInsert struct {
	CustomerID  string
	Name        string
	Description string
}

type ProjectModel struct {
	dbConnectionPool db.DBConnectionPool
}

func (m *ProjectModel) Get(ctx context.Context, id string) (*Project, error) {
	var p Project
	query := `SELECT * FROM projects WHERE id = $1`
	if err := m.dbConnectionPool.GetContext(ctx, &p, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("querying project %s: %w", id, err)
	}
	return &p, nil
}

func (m *ProjectModel) GetByCustomerID(ctx context.Context, customerID string) ([]Project, error) {
	projects := []Project{}
	query := `SELECT * FROM projects WHERE customer_id = $1 ORDER BY created_at ASC`
	if err := m.dbConnectionPool.SelectContext(ctx, &projects, query, customerID); err != nil {
		return nil, fmt.Errorf("querying projects for customer %s: %w", customerID, err)
	}
	return projects, nil
}

func (m *ProjectModel) Insert(ctx context.Context, insert ProjectInsert) (*Project, error) {
	if insert.CustomerID == "" || insert.Name == "" {
		return nil, ErrMissingInput
	}

	var p Project
	query := `
		INSERT INTO projects (id, customer_id, name, description)
		VALUES ($1, $2, $3, $4)
		RETURNING *`
	err := m.dbConnectionPool.GetContext(ctx, &p, query, uuid.NewString(), insert.CustomerID, insert.Name, insert.Description)
	if err != nil {
		return nil, fmt.Errorf("inserting project: %w", err)
	}
	return &p, nil
}

func (m *ProjectModel) Delete(ctx context.Context, id string) error {
	result, err := m.dbConnectionPool.ExecContext(ctx, `DELETE FROM projects WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting project %s: %w", id, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected deleting project %s: %w", id, err)
	}
	if rows == 0 {
		return ErrRecordNotFound
	}
	return nil
}
