package monitor

import "github.com/prometheus/client_golang/prometheus"

var SummaryVecMetrics = map[MetricTag]*prometheus.SummaryVec{
	HTTPRequestDurationTag: prometheus.NewSummaryVec(prometheus.SummaryOpts{
		Namespace: "innosystem", Subsystem: "http", Name: string(HTTPRequestDurationTag),
		Help: "HTTP request durations, sliding window = 10m",
	},
		[]string{"status", "route", "method"},
	),
	SuccessfulQueryDurationTag: prometheus.NewSummaryVec(prometheus.SummaryOpts{
		Namespace: "innosystem", Subsystem: "db", Name: string(SuccessfulQueryDurationTag),
		Help: "Successful DB query durations",
	},
		[]string{"query_type"},
	),
	FailureQueryDurationTag: prometheus.NewSummaryVec(prometheus.SummaryOpts{
		Namespace: "innosystem", Subsystem: "db", Name: string(FailureQueryDurationTag),
		Help: "Failure DB query durations",
	},
		[]string{"query_type"},
	),
}

var CounterVecMetrics = map[MetricTag]*prometheus.CounterVec{
	JobsSubmittedCounterTag: prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "innosystem", Subsystem: "jobs", Name: string(JobsSubmittedCounterTag),
		Help: "Jobs submitted, labeled by priority",
	},
		[]string{"priority"},
	),
	JobsCompletedCounterTag: prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "innosystem", Subsystem: "jobs", Name: string(JobsCompletedCounterTag),
		Help: "Jobs completed, labeled by outcome",
	},
		[]string{"outcome"},
	),
	WalletOpsCounterTag: prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "innosystem", Subsystem: "wallet", Name: string(WalletOpsCounterTag),
		Help: "Wallet engine operations, labeled by type and outcome",
	},
		[]string{"transaction_type", "outcome"},
	),
	StallSweepCounterTag: prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "innosystem", Subsystem: "dispatch", Name: string(StallSweepCounterTag),
		Help: "Jobs reassigned by the stall sweep",
	},
		[]string{},
	),
}

var GaugeVecMetrics = map[MetricTag]*prometheus.GaugeVec{
	QueueDepthGaugeTag: prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "innosystem", Subsystem: "queue", Name: string(QueueDepthGaugeTag),
		Help: "Current queue depth per priority level",
	},
		[]string{"priority"},
	),
	RunnerHealthGaugeTag: prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "innosystem", Subsystem: "dispatch", Name: string(RunnerHealthGaugeTag),
		Help: "1 if a runner currently holds the given health classification, else 0",
	},
		[]string{"runner_id", "health"},
	),
}
