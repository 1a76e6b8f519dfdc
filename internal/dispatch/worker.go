package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/stellar/go/support/log"

	"github.com/innovategy/innosystem/internal/crashtracker"
	"github.com/innovategy/innosystem/internal/data"
	"github.com/innovategy/innosystem/internal/queue"
)

// webhookTimeout is the fixed per-request budget for a Webhook processor
// call (spec §5: "External I/O performed by a processor ... has a
// 10-second request timeout").
const webhookTimeout = 10 * time.Second

// ErrWebhookTimeout is surfaced as the job's stored error when a webhook
// processor call exceeds webhookTimeout (spec §5).
var ErrWebhookTimeout = fmt.Errorf("webhook timeout")

// Processor executes a claimed job's business logic and returns the data
// to store as the job's output. Rendering the payload and running
// arbitrary customer code are both out of scope (spec §9 Non-goals); a
// processor here either makes one bounded HTTP call (Webhook) or treats
// the claim itself as the unit of work (everything else).
type Processor interface {
	Process(ctx context.Context, job *data.Job, jobType *data.JobType) (json.RawMessage, error)
}

// ProcessorFor picks the processor for a job type the way the claim path
// picks a runner: by the type's declared processor_type.
func ProcessorFor(pt data.ProcessorType, httpClient *http.Client) Processor {
	if pt == data.ProcessorTypeWebhook {
		return &WebhookProcessor{httpClient: httpClient}
	}
	return NoopProcessor{}
}

// NoopProcessor stands in for Sync/Async/ExternalApi/Batch job types,
// whose actual processing logic lives outside this platform; the claim
// and completion bookkeeping is what this system owns, not the logic
// itself.
type NoopProcessor struct{}

func (NoopProcessor) Process(_ context.Context, job *data.Job, _ *data.JobType) (json.RawMessage, error) {
	return job.InputData, nil
}

// WebhookProcessor posts the job's input to its job type's
// processing_logic_id URL and treats the response body as the job's
// output.
type WebhookProcessor struct {
	httpClient *http.Client
}

func (p *WebhookProcessor) Process(ctx context.Context, job *data.Job, jobType *data.JobType) (json.RawMessage, error) {
	client := p.httpClient
	if client == nil {
		client = http.DefaultClient
	}

	var output json.RawMessage
	err := retry.Do(
		func() error {
			reqCtx, cancel := context.WithTimeout(ctx, webhookTimeout)
			defer cancel()

			req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, jobType.ProcessingLogicID, bytes.NewReader(job.InputData))
			if err != nil {
				return retry.Unrecoverable(fmt.Errorf("building webhook request: %w", err))
			}
			req.Header.Set("Content-Type", "application/json")

			resp, err := client.Do(req)
			if err != nil {
				if reqCtx.Err() != nil {
					return retry.Unrecoverable(ErrWebhookTimeout)
				}
				return err
			}
			defer resp.Body.Close()

			body, err := decodeBody(resp)
			if err != nil {
				return err
			}

			if resp.StatusCode >= 500 {
				return fmt.Errorf("webhook returned %d", resp.StatusCode)
			}
			if resp.StatusCode >= 400 {
				return retry.Unrecoverable(fmt.Errorf("webhook returned %d", resp.StatusCode))
			}

			output = body
			return nil
		},
		retry.Attempts(3),
		retry.Delay(200*time.Millisecond),
		retry.Context(ctx),
	)
	if err != nil {
		return nil, err
	}
	return output, nil
}

func decodeBody(resp *http.Response) (json.RawMessage, error) {
	buf := new(bytes.Buffer)
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return nil, fmt.Errorf("reading webhook response: %w", err)
	}
	return json.RawMessage(buf.Bytes()), nil
}

// WorkerPool runs a fixed number of worker tasks against one runner
// identity, each blocking on the queue broker's pop call (spec §5:
// "parallel I/O-bound workers ... each runner instance operates as one
// or more worker tasks").
type WorkerPool struct {
	Controller   *Controller
	JobTypes     *data.JobTypeModel
	RunnerID     string
	Concurrency  int
	PopTimeout   time.Duration
	HTTPClient   *http.Client
	CrashTracker crashtracker.Client
}

// Run starts Concurrency worker goroutines and blocks until ctx is
// cancelled.
func (wp *WorkerPool) Run(ctx context.Context) {
	concurrency := wp.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}

	done := make(chan struct{}, concurrency)
	for i := 0; i < concurrency; i++ {
		go func(workerNum int) {
			defer func() { done <- struct{}{} }()
			wp.runLoop(ctx, workerNum)
		}(i)
	}

	<-ctx.Done()
	for i := 0; i < concurrency; i++ {
		<-done
	}
}

func (wp *WorkerPool) runLoop(ctx context.Context, workerNum int) {
	if wp.CrashTracker != nil {
		defer wp.CrashTracker.Recover()
	}

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		jobID, err := wp.Controller.broker.Pop(ctx, wp.PopTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if !errors.Is(err, queue.ErrEmpty) {
				log.Ctx(ctx).WithField("runner_id", wp.RunnerID).WithField("worker", workerNum).WithField("error", err).Error("popping job from queue")
			}
			continue
		}
		if jobID == "" {
			continue
		}

		wp.handle(ctx, jobID)
	}
}

func (wp *WorkerPool) handle(ctx context.Context, jobID string) {
	job, err := wp.Controller.ClaimJob(ctx, jobID, wp.RunnerID)
	if err != nil {
		log.Ctx(ctx).WithField("job_id", jobID).WithField("error", err).Warn("failed to claim job")
		wp.requeueUnclaimed(ctx, jobID)
		return
	}

	jobType, err := wp.JobTypes.Get(ctx, job.JobTypeID)
	if err != nil {
		log.Ctx(ctx).WithField("job_id", job.ID).WithField("error", err).Error("loading job type for claimed job")
		return
	}

	processor := ProcessorFor(jobType.ProcessorType, wp.HTTPClient)
	output, procErr := processor.Process(ctx, job, jobType)

	success := procErr == nil
	var jobErrMsg *string
	if procErr != nil {
		msg := procErr.Error()
		jobErrMsg = &msg
	}

	if err := wp.Controller.CompleteJob(ctx, job.ID, success, output, jobErrMsg); err != nil {
		log.Ctx(ctx).WithField("job_id", job.ID).WithField("error", err).Error("recording job completion")
		if wp.CrashTracker != nil {
			wp.CrashTracker.LogAndReportErrors(ctx, err, "recording job completion")
		}
	}
}

// requeueUnclaimed re-pushes jobID back onto the broker after a failed
// ClaimJob call, the same way StallSweep recovers a stuck job, so a claim
// rejection (ErrRunnerNotCompatible, ErrRunnerUnhealthy, or any other
// failure that leaves the job's row untouched) doesn't strand the job:
// Pop already removed it from the queue, and it won't show up in a stall
// sweep because its status never left Pending (I4). A job that was
// already terminal when the claim was attempted is left alone.
func (wp *WorkerPool) requeueUnclaimed(ctx context.Context, jobID string) {
	job, err := wp.Controller.jobs.Get(ctx, jobID)
	if err != nil {
		log.Ctx(ctx).WithField("job_id", jobID).WithField("error", err).Error("loading job to requeue after failed claim")
		return
	}
	if job.Status != data.JobStatusPending {
		return
	}
	if err := wp.Controller.broker.Push(ctx, job.ID, job.Priority); err != nil {
		log.Ctx(ctx).WithField("job_id", jobID).WithField("error", err).Error("re-pushing job after failed claim")
	}
}
