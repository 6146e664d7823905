package telemetry

import (
	"context"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/pkg/errors"
)

const sentryFlushTimeout = 2 * time.Second

var errDropped = errors.New("sentry dropped the report")

// SentrySink forwards reports to a Sentry project through its own hub.
type SentrySink struct {
	hub *sentry.Hub
}

func NewSentrySink(dsn, release string) (*SentrySink, error) {
	return newSentrySink(sentry.ClientOptions{
		Dsn:              dsn,
		Release:          release,
		AttachStacktrace: true,
	})
}

func newSentrySink(opts sentry.ClientOptions) (*SentrySink, error) {
	client, err := sentry.NewClient(opts)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create sentry client")
	}
	return &SentrySink{hub: sentry.NewHub(client, sentry.NewScope())}, nil
}

// SetUser identifies the device for every later event.
func (s *SentrySink) SetUser(id string) {
	s.hub.ConfigureScope(func(scope *sentry.Scope) {
		scope.SetUser(sentry.User{ID: id})
	})
}

func (s *SentrySink) Capture(_ context.Context, r Report) error {
	var id *sentry.EventID
	s.hub.WithScope(func(scope *sentry.Scope) {
		for k, v := range r.Tags {
			scope.SetTag(k, v)
		}
		scope.SetTag("kind", string(r.Kind))
		if len(r.Detail) > 0 {
			detail := sentry.Context{}
			for k, v := range r.Detail {
				detail[k] = v
			}
			scope.SetContext("detail", detail)
		}
		switch r.Kind {
		case KindCrash:
			scope.SetLevel(sentry.LevelFatal)
		case KindEvent:
			scope.SetLevel(sentry.LevelInfo)
		default:
			scope.SetLevel(sentry.LevelError)
		}
		if r.Err != nil {
			id = s.hub.CaptureException(r.Err)
		} else {
			id = s.hub.CaptureMessage(r.Message)
		}
	})
	if id == nil {
		return errDropped
	}
	return nil
}

// Flush waits for queued events. It reports false on timeout.
func (s *SentrySink) Flush() bool {
	return s.hub.Flush(sentryFlushTimeout)
}
