// Package serve assembles the HTTP API: route table, middleware chain, and
// the dependencies every handler needs, following the teacher's
// ServeOptions/handleHTTP split in internal/serve/serve.go.
package serve

import (
	"context"
	"fmt"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	supporthttp "github.com/stellar/go/support/http"
	"github.com/stellar/go/support/log"

	"github.com/innovategy/innosystem/db"
	"github.com/innovategy/innosystem/internal/billing"
	"github.com/innovategy/innosystem/internal/data"
	"github.com/innovategy/innosystem/internal/dispatch"
	"github.com/innovategy/innosystem/internal/monitor"
	"github.com/innovategy/innosystem/internal/serve/httphandler"
	"github.com/innovategy/innosystem/internal/serve/middleware"
	"github.com/innovategy/innosystem/internal/wallet"
)

const (
	rateLimitPerWindow = 100
	rateLimitWindow    = 20 * time.Second
)

// ServeOptions bundles everything handleHTTP needs to build the router.
// Built by cmd/serve.go from config.GlobalOptions plus the constructed
// core-domain dependencies.
type ServeOptions struct {
	Port int

	DBConnectionPool db.DBConnectionPool
	Models           *data.Models
	Dispatch         *dispatch.Controller
	Billing          *billing.Service
	WalletEngine     *wallet.Engine
	Monitor          monitor.Client

	AdminAPIKey        string
	CorsAllowedOrigins []string
}

// HTTPServerInterface abstracts supporthttp.Run so tests can substitute a
// fake server instead of binding a real port.
type HTTPServerInterface interface {
	Run(conf supporthttp.Config)
}

type HTTPServer struct{}

func (h *HTTPServer) Run(conf supporthttp.Config) {
	supporthttp.Run(conf)
}

// Serve validates the options, builds the router, and blocks serving HTTP
// until shutdown.
func Serve(opts ServeOptions, httpServer HTTPServerInterface) error {
	if opts.AdminAPIKey == "" {
		log.Warn("starting server with no admin API key configured; admin routes are unreachable")
	}

	listenAddr := fmt.Sprintf(":%d", opts.Port)
	serverConfig := supporthttp.Config{
		ListenAddr:          listenAddr,
		Handler:             handleHTTP(opts),
		TCPKeepAlive:        time.Minute * 3,
		ShutdownGracePeriod: time.Second * 30,
		ReadTimeout:         time.Second * 5,
		WriteTimeout:        time.Second * 35,
		IdleTimeout:         time.Minute * 2,
		OnStarting: func() {
			log.Info("Starting job dispatch API")
			log.Infof("Listening on %s", listenAddr)
		},
		OnStopping: func() {
			log.Info("Closing database connection pool")
			if err := db.CloseConnectionPoolIfNeeded(context.Background(), opts.DBConnectionPool); err != nil {
				log.Errorf("error closing database connection: %v", err)
			}
			log.Info("Stopping job dispatch API")
		},
	}
	httpServer.Run(serverConfig)
	return nil
}

func handleHTTP(o ServeOptions) *chi.Mux {
	mux := chi.NewMux()

	mux.Use(middleware.CorsMiddleware(o.CorsAllowedOrigins))
	mux.Use(httprate.Limit(rateLimitPerWindow, rateLimitWindow, httprate.WithKeyFuncs(httprate.KeyByIP)))
	mux.Use(chimiddleware.RequestID)
	mux.Use(chimiddleware.RealIP)
	mux.Use(middleware.LoggingMiddleware)
	mux.Use(middleware.RecoverHandler)
	mux.Use(middleware.MetricsRequestHandler(o.Monitor))

	healthHandler := httphandler.HealthHandler{}
	customerHandler := httphandler.CustomerHandler{Models: o.Models}
	jobHandler := httphandler.JobHandler{Models: o.Models, Dispatch: o.Dispatch, Billing: o.Billing}
	runnerHandler := httphandler.RunnerHandler{Models: o.Models, Dispatch: o.Dispatch, Monitor: o.Monitor}
	walletHandler := httphandler.WalletHandler{Models: o.Models, Engine: o.WalletEngine, Monitor: o.Monitor}

	mux.Get("/health", healthHandler.ServeHTTP)

	// Runner heartbeats carry no credential (spec §4.5): a runner proves
	// liveness, not identity, so this sits outside the authenticated group.
	mux.Post("/runners/{id}/heartbeat", runnerHandler.Heartbeat)

	mux.Route("/", func(r chi.Router) {
		r.Use(middleware.Authenticate(o.AdminAPIKey, o.Models.Customers, o.Models.Resellers))

		r.Route("/customers", func(r chi.Router) {
			r.Use(middleware.RequireRole(middleware.RoleAdmin, middleware.RoleReseller))
			r.Post("/", customerHandler.Create)
			r.Get("/", customerHandler.List)
			r.Get("/{id}", customerHandler.Get)
		})

		r.Route("/jobs", func(r chi.Router) {
			r.With(middleware.RequireRole(middleware.RoleAdmin)).Post("/complete", jobHandler.Complete)
			r.With(middleware.RequireRole(middleware.RoleCustomer, middleware.RoleAdmin)).Post("/cost/calculate", jobHandler.EstimateCost)
			r.With(middleware.RequireRole(middleware.RoleCustomer)).Post("/", jobHandler.Submit)
			r.With(middleware.RequireRole(middleware.RoleCustomer)).Get("/", jobHandler.List)
			r.With(middleware.RequireRole(middleware.RoleCustomer, middleware.RoleAdmin)).Get("/{id}", jobHandler.Get)
		})

		r.Route("/runners", func(r chi.Router) {
			r.Use(middleware.RequireRole(middleware.RoleAdmin))
			r.Post("/", runnerHandler.Register)
			r.Get("/{id}/health", runnerHandler.Health)
			r.Post("/maintenance/reassign-jobs", runnerHandler.ReassignJobs)
		})

		r.Route("/wallets/{customer_id}", func(r chi.Router) {
			r.Use(middleware.RequireRole(middleware.RoleCustomer, middleware.RoleAdmin))
			r.Get("/", walletHandler.Get)
			r.Post("/deposit", walletHandler.Deposit)
			r.Get("/transactions/{limit}/{offset}", walletHandler.ListTransactions)
		})
	})

	return mux
}
