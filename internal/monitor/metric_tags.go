package monitor

type MetricTag string

const (
	JobsSubmittedCounterTag MetricTag = "jobs_submitted_total"
	JobsCompletedCounterTag MetricTag = "jobs_completed_total"
	WalletOpsCounterTag     MetricTag = "wallet_operations_total"
	QueueDepthGaugeTag      MetricTag = "queue_depth"
	RunnerHealthGaugeTag    MetricTag = "runner_health"
	StallSweepCounterTag    MetricTag = "stall_sweep_reassigned_total"

	SuccessfulQueryDurationTag MetricTag = "successful_queries_duration"
	FailureQueryDurationTag    MetricTag = "failure_queries_duration"
	HTTPRequestDurationTag     MetricTag = "requests_duration_seconds"
)

func (m MetricTag) ListAll() []MetricTag {
	return []MetricTag{
		JobsSubmittedCounterTag,
		JobsCompletedCounterTag,
		WalletOpsCounterTag,
		QueueDepthGaugeTag,
		RunnerHealthGaugeTag,
		StallSweepCounterTag,
		SuccessfulQueryDurationTag,
		FailureQueryDurationTag,
		HTTPRequestDurationTag,
	}
}
