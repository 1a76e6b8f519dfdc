package monitor

import (
	"net/http"
	"time"
)

// Client is the narrow interface the rest of the platform depends on, the
// way the persistence layer depends on db.SQLExecuter rather than *sqlx.DB
// directly: a log-only implementation can stand in for tests without
// touching Prometheus.
//
//go:generate mockery --name=Client --case=underscore --structname=MockMonitorClient
type Client interface {
	GetMetricHTTPHandler() http.Handler
	MonitorJobSubmitted(priority string)
	MonitorJobCompleted(outcome string)
	MonitorWalletOperation(transactionType, outcome string)
	MonitorStallSweep(reassigned int)
	MonitorQueueDepth(priority string, depth int64)
	MonitorRunnerHealth(runnerID, health string)
	MonitorHTTPRequest(method, route string, status int, duration time.Duration)
}
