// Package data implements the Persistence Store: a typed repository per
// entity, each backed by a single Postgres connection pool and composing
// multi-row writes through db.RunInTransaction so they commit atomically.
package data

import (
	"errors"

	"github.com/innovategy/innosystem/db"
)

var (
	ErrRecordNotFound      = errors.New("record not found")
	ErrRecordAlreadyExists = errors.New("record already exists")
	ErrMissingInput        = errors.New("missing input")
)

// Models bundles every repository behind a single struct constructed once at
// startup and handed by reference to the services and HTTP handlers that
// outlive the request (design note in SPEC_FULL.md §7, "owned-reference
// arcs shared across handlers").
type Models struct {
	Customers          *CustomerModel
	Resellers          *ResellerModel
	Projects           *ProjectModel
	Wallets            *WalletModel
	WalletTransactions *WalletTransactionModel
	JobTypes           *JobTypeModel
	Jobs               *JobModel
	Runners            *RunnerModel
	DBConnectionPool   db.DBConnectionPool
}

func NewModels(pool db.DBConnectionPool) (*Models, error) {
	if pool == nil {
		return nil, errors.New("dbConnectionPool is required for NewModels")
	}

	return &Models{
		Customers:          &CustomerModel{dbConnectionPool: pool},
		Resellers:          &ResellerModel{dbConnectionPool: pool},
		Projects:           &ProjectModel{dbConnectionPool: pool},
		Wallets:            &WalletModel{dbConnectionPool: pool},
		WalletTransactions: &WalletTransactionModel{dbConnectionPool: pool},
		JobTypes:           &JobTypeModel{dbConnectionPool: pool},
		Jobs:               &JobModel{dbConnectionPool: pool},
		Runners:            &RunnerModel{dbConnectionPool: pool},
		DBConnectionPool:   pool,
	}, nil
}
