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

type Reseller struct {
	ID             string    `json:"id" db:"id"`
	Name           string    `json:"name" db:"name"`
	Email          string    `json:"email" db:"email"`
	APIKey         string    `json:"api_key" db:"api_key"`
	Active         bool      `json:"active" db:"active"`
	CommissionRate int       `json:"commission_rate" db:"commission_rate"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

type ResellerInsert struct {
	Name           string
	Email          string
	APIKey         string
	CommissionRate int
}

type ResellerModel struct {
	dbConnectionPool db.DBConnectionPool
}

func (m *ResellerModel) Get(ctx context.Context, id string) (*Reseller, error) {
	var r Reseller
	query := `SELECT * FROM resellers WHERE id = $1`
	if err := m.dbConnectionPool.GetContext(ctx, &r, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("querying reseller %s: %w", id, err)
	}
	return &r, nil
}

func (m *ResellerModel) GetByAPIKey(ctx context.Context, apiKey string) (*Reseller, error) {
	var r Reseller
	query := `SELECT * FROM resellers WHERE api_key = $1`
	if err := m.dbConnectionPool.GetContext(ctx, &r, query, apiKey); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("querying reseller by api key: %w", err)
	}
	return &r, nil
}

func (m *ResellerModel) ListAll(ctx context.Context) ([]Reseller, error) {
	resellers := []Reseller{}
	query := `SELECT * FROM resellers ORDER BY created_at ASC`
	if err := m.dbConnectionPool.SelectContext(ctx, &resellers, query); err != nil {
		return nil, fmt.Errorf("listing resellers: %w", err)
	}
	return resellers, nil
}

func (m *ResellerModel) Insert(ctx context.Context, insert ResellerInsert) (*Reseller, error) {
	if insert.Name == "" || insert.Email == "" || insert.APIKey == "" {
		return nil, ErrMissingInput
	}
	if insert.CommissionRate < 0 || insert.CommissionRate > 10000 {
		return nil, fmt.Errorf("commission rate %d out of range [0, 10000]", insert.CommissionRate)
	}

	var r Reseller
	query := `
		INSERT INTO resellers (id, name, email, api_key, commission_rate)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING *`
	err := m.dbConnectionPool.GetContext(ctx, &r, query, uuid.NewString(), insert.Name, insert.Email, insert.APIKey, insert.CommissionRate)
	if err != nil {
		return nil, fmt.Errorf("inserting reseller: %w", err)
	}
	return &r, nil
}
