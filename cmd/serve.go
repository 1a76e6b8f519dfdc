package cmd

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/stellar/go/support/log"

	"github.com/innovategy/innosystem/db"
	"github.com/innovategy/innosystem/internal/billing"
	"github.com/innovategy/innosystem/internal/config"
	"github.com/innovategy/innosystem/internal/crashtracker"
	"github.com/innovategy/innosystem/internal/data"
	"github.com/innovategy/innosystem/internal/dispatch"
	"github.com/innovategy/innosystem/internal/monitor"
	"github.com/innovategy/innosystem/internal/queue"
	"github.com/innovategy/innosystem/internal/serve"
	"github.com/innovategy/innosystem/internal/wallet"
)

// workerRunnerName is the display name under which the serve process
// self-registers as a runner so its own worker pool has a row to heartbeat
// and claim against (spec §4.5: "runners self-register").
const workerRunnerName = "in-process-worker-pool"

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the in-process worker pool",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cmd.Parent().PersistentPreRun(cmd.Parent(), args)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context())
		},
	}
	return cmd
}

func runServe(ctx context.Context) error {
	opts := config.Options
	if err := config.BindRuntimeDefaults(&opts); err != nil {
		return err
	}

	crashTrackerClient, err := crashtracker.GetClient(ctx, crashtracker.Options{
		Type:        crashTrackerType(opts.Environment),
		Environment: opts.Environment,
	})
	if err != nil {
		return err
	}
	defer crashTrackerClient.FlushEvents(2 * time.Second)
	defer crashTrackerClient.Recover()

	dbConnectionPool, err := db.OpenDBConnectionPool(opts.DatabaseURL)
	if err != nil {
		log.Ctx(ctx).Fatalf("opening database connection pool: %s", err.Error())
	}

	models, err := data.NewModels(dbConnectionPool)
	if err != nil {
		log.Ctx(ctx).Fatalf("creating models: %s", err.Error())
	}

	redisOpts, err := redis.ParseURL(opts.RedisURL)
	if err != nil {
		log.Ctx(ctx).Fatalf("parsing REDIS_URL: %s", err.Error())
	}
	redisClient := redis.NewClient(redisOpts)
	broker := queue.NewBroker(redisClient)

	metricsClient, err := monitor.NewPrometheusClient()
	if err != nil {
		log.Ctx(ctx).Fatalf("creating monitor client: %s", err.Error())
	}

	walletEngine := wallet.NewEngine(dbConnectionPool, models.Wallets, models.WalletTransactions)
	billingService := billing.NewService(models.Jobs, models.JobTypes, models.Customers, walletEngine)

	dispatchController := dispatch.NewController(
		dbConnectionPool, models.Jobs, models.JobTypes, models.Runners, broker,
		dispatch.WithBilling(billingService),
		dispatch.WithMonitor(metricsClient),
	)

	runner, err := dispatchController.Register(ctx, workerRunnerName, "in-process worker pool started by `serve`", allJobTypeNames(ctx, models))
	if err != nil {
		log.Ctx(ctx).Fatalf("registering in-process worker pool runner: %s", err.Error())
	}

	workerCtx, cancelWorkers := context.WithCancel(ctx)
	pool := &dispatch.WorkerPool{
		Controller:   dispatchController,
		JobTypes:     models.JobTypes,
		RunnerID:     runner.ID,
		Concurrency:  opts.MaxConcurrentJobs,
		PopTimeout:   time.Duration(opts.QueueTimeoutSeconds) * time.Second,
		HTTPClient:   &http.Client{},
		CrashTracker: crashTrackerClient,
	}
	go pool.Run(workerCtx)

	go runHeartbeat(workerCtx, dispatchController, runner.ID)
	go runStallSweep(workerCtx, dispatchController, metricsClient, time.Duration(opts.PollIntervalMS)*time.Millisecond)

	serveOpts := serve.ServeOptions{
		Port:               opts.Port,
		DBConnectionPool:   dbConnectionPool,
		Models:             models,
		Dispatch:           dispatchController,
		Billing:            billingService,
		WalletEngine:       walletEngine,
		Monitor:            metricsClient,
		AdminAPIKey:        opts.AdminAPIKey,
		CorsAllowedOrigins: []string{"*"},
	}

	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	go func() {
		<-signalChan
		cancelWorkers()
	}()

	return serve.Serve(serveOpts, &serve.HTTPServer{})
}

func crashTrackerType(environment string) crashtracker.Type {
	if environment == "development" {
		return crashtracker.TypeDryRun
	}
	return crashtracker.TypeSentry
}

// allJobTypeNames lets the in-process worker pool claim every enabled job
// type rather than requiring an operator to list them by hand at startup.
func allJobTypeNames(ctx context.Context, models *data.Models) []string {
	jobTypes, err := models.JobTypes.ListActive(ctx)
	if err != nil {
		log.Ctx(ctx).Warnf("listing enabled job types for worker pool registration: %s", err.Error())
		return nil
	}
	names := make([]string, len(jobTypes))
	for i, jt := range jobTypes {
		names[i] = jt.Name
	}
	return names
}

// runHeartbeat keeps the in-process worker pool's runner row alive so the
// stall sweep and dispatch health checks never mistake it for a crashed
// runner while this process is up.
func runHeartbeat(ctx context.Context, controller *dispatch.Controller, runnerID string) {
	ticker := time.NewTicker(dispatch.ActiveWindow / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := controller.Heartbeat(ctx, runnerID); err != nil {
				log.Ctx(ctx).Warnf("heartbeating worker pool runner: %s", err.Error())
			}
		}
	}
}

// runStallSweep periodically reassigns jobs abandoned by a crashed runner
// (spec §4.5).
func runStallSweep(ctx context.Context, controller *dispatch.Controller, metrics monitor.Client, interval time.Duration) {
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			reassigned, err := controller.StallSweep(ctx, dispatch.DefaultStallThreshold)
			if err != nil {
				log.Ctx(ctx).Errorf("running stall sweep: %s", err.Error())
				continue
			}
			if reassigned > 0 && metrics != nil {
				metrics.MonitorStallSweep(reassigned)
			}
		}
	}
}
