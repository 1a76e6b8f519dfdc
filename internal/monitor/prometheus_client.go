package monitor

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type prometheusClient struct {
	httpHandler http.Handler
}

func (p *prometheusClient) GetMetricHTTPHandler() http.Handler {
	return p.httpHandler
}

func (p *prometheusClient) MonitorJobSubmitted(priority string) {
	CounterVecMetrics[JobsSubmittedCounterTag].With(prometheus.Labels{"priority": priority}).Inc()
}

func (p *prometheusClient) MonitorJobCompleted(outcome string) {
	CounterVecMetrics[JobsCompletedCounterTag].With(prometheus.Labels{"outcome": outcome}).Inc()
}

func (p *prometheusClient) MonitorWalletOperation(transactionType, outcome string) {
	CounterVecMetrics[WalletOpsCounterTag].With(prometheus.Labels{"transaction_type": transactionType, "outcome": outcome}).Inc()
}

func (p *prometheusClient) MonitorStallSweep(reassigned int) {
	CounterVecMetrics[StallSweepCounterTag].With(prometheus.Labels{}).Add(float64(reassigned))
}

func (p *prometheusClient) MonitorQueueDepth(priority string, depth int64) {
	GaugeVecMetrics[QueueDepthGaugeTag].With(prometheus.Labels{"priority": priority}).Set(float64(depth))
}

func (p *prometheusClient) MonitorRunnerHealth(runnerID, health string) {
	GaugeVecMetrics[RunnerHealthGaugeTag].With(prometheus.Labels{"runner_id": runnerID, "health": health}).Set(1)
}

func (p *prometheusClient) MonitorHTTPRequest(method, route string, status int, duration time.Duration) {
	SummaryVecMetrics[HTTPRequestDurationTag].With(prometheus.Labels{
		"status": strconv.Itoa(status), "route": route, "method": method,
	}).Observe(duration.Seconds())
}

// NewPrometheusClient registers every metric this platform exposes and
// returns a Client backed by an isolated registry, so repeated calls in
// tests don't collide with prometheus's default global registry.
func NewPrometheusClient() (Client, error) {
	registry := prometheus.NewRegistry()

	var tag MetricTag
	for _, t := range tag.ListAll() {
		switch {
		case SummaryVecMetrics[t] != nil:
			registry.MustRegister(SummaryVecMetrics[t])
		case CounterVecMetrics[t] != nil:
			registry.MustRegister(CounterVecMetrics[t])
		case GaugeVecMetrics[t] != nil:
			registry.MustRegister(GaugeVecMetrics[t])
		default:
			return nil, fmt.Errorf("metric not registered: %s", t)
		}
	}

	return &prometheusClient{httpHandler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{})}, nil
}

var _ Client = (*prometheusClient)(nil)
