package crashtracker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/stellar/go/support/log"
)

type hubSentryInterface interface {
	CaptureException(exception error) *sentry.EventID
	CaptureMessage(message string) *sentry.EventID
	Clone() *sentry.Hub
	Flush(timeout time.Duration) bool
	Recover(err interface{}) *sentry.EventID
}

var _ hubSentryInterface = (*sentry.Hub)(nil)

type sentryInterface interface {
	Init(options sentry.ClientOptions) error
	CurrentHub() hubSentryInterface
}

type sentryImplementation struct{}

func (s *sentryImplementation) Init(options sentry.ClientOptions) error {
	return sentry.Init(options)
}

func (s *sentryImplementation) CurrentHub() hubSentryInterface {
	return sentry.CurrentHub()
}

var _ sentryInterface = (*sentryImplementation)(nil)

type sentryClient struct {
	hub hubSentryInterface
}

func (s *sentryClient) LogAndReportErrors(ctx context.Context, err error, msg string) {
	if errors.Is(err, context.Canceled) {
		log.Ctx(ctx).Warn("context canceled, not reporting error to sentry")
		return
	}

	if msg != "" {
		err = fmt.Errorf("%s: %w", msg, err)
	}
	log.Ctx(ctx).Errorf("%+v", err)
	s.hub.CaptureException(err)
}

func (s *sentryClient) LogAndReportMessages(ctx context.Context, msg string) {
	log.Ctx(ctx).Info(msg)
	s.hub.CaptureMessage(msg)
}

func (s *sentryClient) FlushEvents(waitTime time.Duration) bool {
	return s.hub.Flush(waitTime)
}

// Recover captures an in-flight panic, used by the dispatch worker pool so
// one runner's processor panicking never takes the whole process down.
func (s *sentryClient) Recover() {
	if err := recover(); err != nil {
		s.hub.Recover(err)
	}
}

func (s *sentryClient) Clone() Client {
	return &sentryClient{hub: s.hub.Clone()}
}

func NewSentryClient(sentryDSN, environment, gitCommit string) (*sentryClient, error) {
	si := &sentryImplementation{}
	if err := si.Init(sentry.ClientOptions{Dsn: sentryDSN, Release: gitCommit, Environment: environment}); err != nil {
		return nil, fmt.Errorf("setting up Sentry: %w", err)
	}

	return &sentryClient{hub: si.CurrentHub()}, nil
}

var _ Client = (*sentryClient)(nil)
