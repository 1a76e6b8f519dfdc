package serve

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	supporthttp "github.com/stellar/go/support/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/innovategy/innosystem/db"
	"github.com/innovategy/innosystem/internal/billing"
	"github.com/innovategy/innosystem/internal/data"
	"github.com/innovategy/innosystem/internal/dbtest"
	"github.com/innovategy/innosystem/internal/dispatch"
	"github.com/innovategy/innosystem/internal/monitor"
	"github.com/innovategy/innosystem/internal/queue"
	"github.com/innovategy/innosystem/internal/wallet"
)

type mockHTTPServer struct {
	mock.Mock
}

func (m *mockHTTPServer) Run(conf supporthttp.Config) {
	m.Called(conf)
}

func testServeOptions(t *testing.T, pool db.DBConnectionPool) ServeOptions {
	t.Helper()

	models, err := data.NewModels(pool)
	require.NoError(t, err)

	broker := queue.NewBroker(goredis.NewClient(&goredis.Options{Addr: "127.0.0.1:6379"}))
	walletEngine := wallet.NewEngine(pool, models.Wallets, models.WalletTransactions)
	billingSvc := billing.NewService(models.Jobs, models.JobTypes, models.Customers, walletEngine)
	controller := dispatch.NewController(pool, models.Jobs, models.JobTypes, models.Runners, broker)

	metrics, err := monitor.NewPrometheusClient()
	require.NoError(t, err)

	return ServeOptions{
		Port:               8080,
		DBConnectionPool:   pool,
		Models:             models,
		Dispatch:           controller,
		Billing:            billingSvc,
		WalletEngine:       walletEngine,
		Monitor:            metrics,
		AdminAPIKey:        "test-admin-key",
		CorsAllowedOrigins: []string{"*"},
	}
}

func Test_Serve(t *testing.T) {
	dbt := dbtest.Open(t)
	defer dbt.Close()

	pool, err := db.OpenDBConnectionPool(dbt.DSN)
	require.NoError(t, err)
	defer pool.Close()

	opts := testServeOptions(t, pool)

	mHTTPServer := mockHTTPServer{}
	mHTTPServer.On("Run", mock.AnythingOfType("http.Config")).Run(func(args mock.Arguments) {
		conf, ok := args.Get(0).(supporthttp.Config)
		require.True(t, ok, "should be of type supporthttp.Config")
		assert.Equal(t, ":8080", conf.ListenAddr)
		assert.Equal(t, time.Minute*3, conf.TCPKeepAlive)
		assert.Equal(t, time.Second*30, conf.ShutdownGracePeriod)
		assert.Equal(t, time.Second*5, conf.ReadTimeout)
		assert.Equal(t, time.Second*35, conf.WriteTimeout)
		assert.Equal(t, time.Minute*2, conf.IdleTimeout)
		conf.OnStopping()
	}).Once()

	err = Serve(opts, &mHTTPServer)
	require.NoError(t, err)
	mHTTPServer.AssertExpectations(t)
}

func Test_HandleHTTP_Routes(t *testing.T) {
	dbt := dbtest.Open(t)
	defer dbt.Close()

	pool, err := db.OpenDBConnectionPool(dbt.DSN)
	require.NoError(t, err)
	defer pool.Close()

	opts := testServeOptions(t, pool)
	mux := handleHTTP(opts)

	t.Run("health is reachable without a credential", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		rr := httptest.NewRecorder()
		mux.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("runner heartbeat is reachable without a credential", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/runners/some-id/heartbeat", nil)
		rr := httptest.NewRecorder()
		mux.ServeHTTP(rr, req)
		assert.NotEqual(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("an authenticated route rejects a missing credential", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/customers", nil)
		rr := httptest.NewRecorder()
		mux.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("an authenticated route rejects a bad credential", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/customers", nil)
		req.Header.Set("Authorization", "Bearer wrong-key")
		rr := httptest.NewRecorder()
		mux.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("the admin key reaches the customer route's role gate", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/customers", nil)
		req.Header.Set("Authorization", "Bearer "+opts.AdminAPIKey)
		rr := httptest.NewRecorder()
		mux.ServeHTTP(rr, req)
		assert.NotEqual(t, http.StatusUnauthorized, rr.Code)
	})
}
