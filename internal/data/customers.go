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

type Customer struct {
	ID         string    `json:"id" db:"id"`
	Name       string    `json:"name" db:"name"`
	Email      string    `json:"email" db:"email"`
	APIKey     *string   `json:"api_key,omitempty" db:"api_key"`
	ResellerID *string   `json:"reseller_id,omitempty" db:"reseller_id"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}

type CustomerInsert struct {
	Name       string
	Email      string
	APIKey     *string
	ResellerID *string
}

type CustomerModel struct {
	dbConnectionPool db.DBConnectionPool
}

func (m *CustomerModel) Get(ctx context.Context, id string) (*Customer, error) {
	var c Customer
	query := `SELECT * FROM customers WHERE id = $1`
	if err := m.dbConnectionPool.GetContext(ctx, &c, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("querying customer %s: %w", id, err)
	}
	return &c, nil
}

func (m *CustomerModel) GetByAPIKey(ctx context.Context, apiKey string) (*Customer, error) {
	var c Customer
	query := `SELECT * FROM customers WHERE api_key = $1`
	if err := m.dbConnectionPool.GetContext(ctx, &c, query, apiKey); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("querying customer by api key: %w", err)
	}
	return &c, nil
}

func (m *CustomerModel) GetByResellerID(ctx context.Context, resellerID string) ([]Customer, error) {
	customers := []Customer{}
	query := `SELECT * FROM customers WHERE reseller_id = $1 ORDER BY created_at ASC`
	if err := m.dbConnectionPool.SelectContext(ctx, &customers, query, resellerID); err != nil {
		return nil, fmt.Errorf("querying customers by reseller %s: %w", resellerID, err)
	}
	return customers, nil
}

func (m *CustomerModel) ListAll(ctx context.Context) ([]Customer, error) {
	customers := []Customer{}
	query := `SELECT * FROM customers ORDER BY created_at ASC`
	if err := m.dbConnectionPool.SelectContext(ctx, &customers, query); err != nil {
		return nil, fmt.Errorf("listing customers: %w", err)
	}
	return customers, nil
}

// Insert creates a customer and its wallet together: every customer owns
// exactly one wallet (spec §3), so the pair is written in a single
// transaction to avoid a customer ever existing without one.
func (m *CustomerModel) Insert(ctx context.Context, insert CustomerInsert) (*Customer, error) {
	if insert.Name == "" || insert.Email == "" {
		return nil, ErrMissingInput
	}

	return db.RunInTransactionWithResult(ctx, m.dbConnectionPool, nil, func(dbTx db.DBTransaction) (*Customer, error) {
		var c Customer
		query := `
			INSERT INTO customers (id, name, email, api_key, reseller_id)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING *`
		id := uuid.NewString()
		if err := dbTx.GetContext(ctx, &c, query, id, insert.Name, insert.Email, insert.APIKey, insert.ResellerID); err != nil {
			return nil, fmt.Errorf("inserting customer: %w", err)
		}

		walletQuery := `INSERT INTO wallets (id, customer_id, balance_cents) VALUES ($1, $2, 0)`
		if _, err := dbTx.ExecContext(ctx, walletQuery, uuid.NewString(), c.ID); err != nil {
			return nil, fmt.Errorf("inserting wallet for customer %s: %w", c.ID, err)
		}

		return &c, nil
	})
}
