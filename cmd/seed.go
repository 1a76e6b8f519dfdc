package cmd

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/stellar/go/support/log"

	"github.com/innovategy/innosystem/db"
	"github.com/innovategy/innosystem/internal/config"
	"github.com/innovategy/innosystem/internal/data"
	"github.com/innovategy/innosystem/internal/wallet"
)

// seedJobType mirrors original_source/core/common/src/seed.rs's fixture
// list: a handful of job types spanning every processor_type so a fresh
// environment has something to submit against and a runner can register
// compatibility with right away.
type seedJobType struct {
	name              string
	description       string
	processingLogicID string
	processorType     data.ProcessorType
	standardCostCents int32
	enabled           bool
}

var seedJobTypes = []seedJobType{
	{"Text Analysis", "Analyze text documents for sentiment and key concepts", "text-analysis-v1", data.ProcessorTypeAsync, 100, true},
	{"Image Recognition", "Process images to identify objects and scenes", "image-recog-v2", data.ProcessorTypeAsync, 200, true},
	{"Data Processing", "Process structured data files", "data-proc-v1", data.ProcessorTypeBatch, 50, true},
	{"Report Generation", "Generate PDF reports from templates", "report-gen-v1", data.ProcessorTypeSync, 75, true},
	{"Email Processing", "Process and categorize emails", "email-proc-v1", data.ProcessorTypeBatch, 25, false},
}

type seedCustomer struct {
	name  string
	email string
}

var seedCustomers = []seedCustomer{
	{"Acme Corporation", "contact@acme.example.com"},
	{"TechStart Inc.", "info@techstart.example.com"},
	{"Global Services Ltd.", "support@globalservices.example.com"},
}

// seedStartingBalanceCents matches the fixture's "start with $100 balance".
const seedStartingBalanceCents = 10000

func seedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Populate a fresh database with sample job types, customers, and funded wallets",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cmd.Parent().PersistentPreRun(cmd.Parent(), args)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSeed(cmd.Context())
		},
	}
	return cmd
}

func runSeed(ctx context.Context) error {
	pool, err := db.OpenDBConnectionPool(config.Options.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	models, err := data.NewModels(pool)
	if err != nil {
		return err
	}
	engine := wallet.NewEngine(pool, models.Wallets, models.WalletTransactions)

	if err := seedJobTypesIfEmpty(ctx, models); err != nil {
		return err
	}
	if err := seedCustomersAndWalletsIfEmpty(ctx, models, engine); err != nil {
		return err
	}

	log.Ctx(ctx).Info("seed complete")
	return nil
}

// seedJobTypesIfEmpty is idempotent the way the fixture's seed_job_types is:
// if anything already exists, leave it alone rather than risk duplicating
// or clobbering operator-entered data.
func seedJobTypesIfEmpty(ctx context.Context, models *data.Models) error {
	existing, err := models.JobTypes.ListAll(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		log.Ctx(ctx).Info("job types already present, skipping")
		return nil
	}

	for _, jt := range seedJobTypes {
		if _, err := models.JobTypes.Insert(ctx, data.JobTypeInsert{
			Name:              jt.name,
			Description:       jt.description,
			ProcessorType:     jt.processorType,
			ProcessingLogicID: jt.processingLogicID,
			StandardCostCents: jt.standardCostCents,
		}); err != nil {
			return err
		}
	}
	log.Ctx(ctx).Infof("seeded %d job types", len(seedJobTypes))
	return nil
}

func seedCustomersAndWalletsIfEmpty(ctx context.Context, models *data.Models, engine *wallet.Engine) error {
	existing, err := models.Customers.ListAll(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		log.Ctx(ctx).Info("customers already present, skipping")
		return nil
	}

	for _, sc := range seedCustomers {
		apiKey, err := data.GenerateAPIKey("ck")
		if err != nil {
			return err
		}
		customer, err := models.Customers.Insert(ctx, data.CustomerInsert{
			Name:   sc.name,
			Email:  sc.email,
			APIKey: &apiKey,
		})
		if err != nil {
			return err
		}
		if _, err := engine.Deposit(ctx, customer.ID, seedStartingBalanceCents, "initial seed balance"); err != nil {
			return err
		}
	}
	log.Ctx(ctx).Infof("seeded %d customers with funded wallets", len(seedCustomers))
	return nil
}
