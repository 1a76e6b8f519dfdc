// Package dto holds the request/response bodies for the HTTP API (spec §6),
// kept separate from internal/data's persistence structs so a storage
// column rename never silently changes the wire contract.
package dto

import (
	"encoding/json"
	"time"

	"github.com/innovategy/innosystem/internal/data"
)

type HealthResponse struct {
	Status string `json:"status"`
}

type CreateCustomerRequest struct {
	Name       string  `json:"name"`
	Email      string  `json:"email"`
	ResellerID *string `json:"reseller_id,omitempty"`
}

type CustomerResponse struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	APIKey     *string   `json:"api_key,omitempty"`
	ResellerID *string   `json:"reseller_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

func FromCustomer(c data.Customer) CustomerResponse {
	return CustomerResponse{
		ID:         c.ID,
		Name:       c.Name,
		Email:      c.Email,
		APIKey:     c.APIKey,
		ResellerID: c.ResellerID,
		CreatedAt:  c.CreatedAt,
	}
}

func FromCustomers(customers []data.Customer) []CustomerResponse {
	out := make([]CustomerResponse, len(customers))
	for i, c := range customers {
		out[i] = FromCustomer(c)
	}
	return out
}

type SubmitJobRequest struct {
	JobTypeID string          `json:"job_type_id"`
	Priority  string          `json:"priority"`
	ProjectID *string         `json:"project_id,omitempty"`
	InputData json.RawMessage `json:"input_data"`
}

type EstimateCostRequest struct {
	JobTypeID string `json:"job_type_id"`
	Priority  string `json:"priority"`
}

type EstimateCostResponse struct {
	EstimatedCostCents int32 `json:"estimated_cost_cents"`
}

type CompleteJobRequest struct {
	JobID      string          `json:"job_id"`
	Success    bool            `json:"success"`
	OutputData json.RawMessage `json:"output_data,omitempty"`
	Error      *string         `json:"error,omitempty"`
}

type JobResponse struct {
	ID                 string          `json:"id"`
	CustomerID         string          `json:"customer_id"`
	JobTypeID          string          `json:"job_type_id"`
	ProjectID          *string         `json:"project_id,omitempty"`
	Status             string          `json:"status"`
	Priority           string          `json:"priority"`
	InputData          json.RawMessage `json:"input_data"`
	OutputData         json.RawMessage `json:"output_data,omitempty"`
	Error              *string         `json:"error,omitempty"`
	EstimatedCostCents int32           `json:"estimated_cost_cents"`
	CostCents          int32           `json:"cost_cents"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
	CompletedAt        *time.Time      `json:"completed_at,omitempty"`
}

func FromJob(j data.Job) JobResponse {
	return JobResponse{
		ID:                 j.ID,
		CustomerID:         j.CustomerID,
		JobTypeID:          j.JobTypeID,
		ProjectID:          j.ProjectID,
		Status:             string(j.Status),
		Priority:           j.Priority.String(),
		InputData:          j.InputData,
		OutputData:         j.OutputData,
		Error:              j.Error,
		EstimatedCostCents: j.EstimatedCostCents,
		CostCents:          j.CostCents,
		CreatedAt:          j.CreatedAt,
		UpdatedAt:          j.UpdatedAt,
		CompletedAt:        j.CompletedAt,
	}
}

func FromJobs(jobs []data.Job) []JobResponse {
	out := make([]JobResponse, len(jobs))
	for i, j := range jobs {
		out[i] = FromJob(j)
	}
	return out
}

type JobListResponse struct {
	Jobs  []JobResponse `json:"jobs"`
	Total int           `json:"total"`
}

type RegisterRunnerRequest struct {
	Name               string   `json:"name"`
	Description        string   `json:"description"`
	CompatibleJobTypes []string `json:"compatible_job_types"`
}

type RunnerResponse struct {
	ID                 string     `json:"id"`
	Name               string     `json:"name"`
	Description        string     `json:"description"`
	Status             string     `json:"status"`
	LastHeartbeat      *time.Time `json:"last_heartbeat,omitempty"`
	CompatibleJobTypes []string   `json:"compatible_job_types"`
}

func FromRunner(r data.Runner) RunnerResponse {
	return RunnerResponse{
		ID:                 r.ID,
		Name:               r.Name,
		Description:        r.Description,
		Status:             string(r.Status),
		LastHeartbeat:      r.LastHeartbeat,
		CompatibleJobTypes: r.CompatibleJobTypes,
	}
}

type RunnerHealthResponse struct {
	RunnerID string `json:"runner_id"`
	Health   string `json:"health"`
}

type ReassignJobsResponse struct {
	Reassigned int `json:"reassigned"`
}

type DepositRequest struct {
	AmountCents int32  `json:"amount_cents"`
	Description string `json:"description"`
}

type WalletResponse struct {
	ID           string    `json:"id"`
	CustomerID   string    `json:"customer_id"`
	BalanceCents int32     `json:"balance_cents"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func FromWallet(w data.Wallet) WalletResponse {
	return WalletResponse{
		ID:           w.ID,
		CustomerID:   w.CustomerID,
		BalanceCents: w.BalanceCents,
		UpdatedAt:    w.UpdatedAt,
	}
}

type WalletTransactionResponse struct {
	ID              string    `json:"id"`
	AmountCents     int32     `json:"amount_cents"`
	TransactionType string    `json:"transaction_type"`
	Description     *string   `json:"description,omitempty"`
	JobID           *string   `json:"job_id,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

func FromWalletTransaction(t data.WalletTransaction) WalletTransactionResponse {
	return WalletTransactionResponse{
		ID:              t.ID,
		AmountCents:     t.AmountCents,
		TransactionType: string(t.TransactionType),
		Description:     t.Description,
		JobID:           t.JobID,
		CreatedAt:       t.CreatedAt,
	}
}

func FromWalletTransactions(txs []data.WalletTransaction) []WalletTransactionResponse {
	out := make([]WalletTransactionResponse, len(txs))
	for i, t := range txs {
		out[i] = FromWalletTransaction(t)
	}
	return out
}
