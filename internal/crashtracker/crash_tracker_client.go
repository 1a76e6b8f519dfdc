package crashtracker

import (
	"context"
	"time"
)

// Client is narrowed from the teacher's interface to what the dispatch
// worker pool and HTTP layer actually call.
type Client interface {
	LogAndReportErrors(ctx context.Context, err error, msg string)
	LogAndReportMessages(ctx context.Context, msg string)
	FlushEvents(waitTime time.Duration) bool
	Recover()
	Clone() Client
}
