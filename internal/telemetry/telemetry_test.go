package telemetry

import (
	"bytes"
	"context"
	"log"
	"testing"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vehicle-interface/internal/logger"
)

type mockSink struct {
	reports []Report
	err     error
}

func (m *mockSink) Capture(_ context.Context, r Report) error {
	m.reports = append(m.reports, r)
	return m.err
}

func TestCaptureFansOutWithTags(t *testing.T) {
	a, b := &mockSink{}, &mockSink{}
	r := NewReporter(nil, a)
	r.AddSink(b)
	r.BindTags(map[string]string{"model": "SONATA", "session": "s1"})

	r.Capture(context.Background(), Report{
		Kind: KindFault,
		Err:  errors.New("boom"),
		Tags: map[string]string{"session": "s2"},
	})

	require.Len(t, a.reports, 1)
	require.Len(t, b.reports, 1)
	got := a.reports[0]
	assert.Equal(t, "boom", got.Message)
	assert.Equal(t, map[string]string{"model": "SONATA", "session": "s2"}, got.Tags)
	assert.False(t, got.Time.IsZero())
	assert.Equal(t, map[string]string{"model": "SONATA", "session": "s1"}, r.Tags(), "report tags do not leak back")
}

func TestSinkFailureIsLoggedAndSwallowed(t *testing.T) {
	var buf bytes.Buffer
	l := logger.NewLogger(log.New(&buf, "", 0), logger.LogLevelWarning)
	failing := &mockSink{err: errors.New("unreachable")}
	after := &mockSink{}
	r := NewReporter(l, failing, after)

	r.Event(context.Background(), "fingerprinted", nil)

	assert.Len(t, after.reports, 1, "later sinks still run")
	assert.Contains(t, buf.String(), "unreachable")
}

func TestRecoverCapturesPanic(t *testing.T) {
	sink := &mockSink{}
	r := NewReporter(nil, sink)

	assert.NotPanics(t, func() {
		defer r.Recover(context.Background())
		panic("cycle exploded")
	})

	require.Len(t, sink.reports, 1)
	assert.Equal(t, KindCrash, sink.reports[0].Kind)
	assert.Equal(t, "panic: cycle exploded", sink.reports[0].Message)
	assert.Contains(t, sink.reports[0].Detail["stack"], "goroutine")
}

func TestRecoverWithoutPanic(t *testing.T) {
	sink := &mockSink{}
	r := NewReporter(nil, sink)

	func() {
		defer r.Recover(context.Background())
	}()
	assert.Empty(t, sink.reports)
}

func TestNilAndNopReporters(t *testing.T) {
	var r *Reporter
	assert.NotPanics(t, func() {
		r.Capture(context.Background(), Report{Message: "x"})
	})
	assert.NotPanics(t, func() {
		Nop().Fault(context.Background(), errors.New("x"), nil)
	})
}

func TestReportKeepsExplicitTime(t *testing.T) {
	sink := &mockSink{}
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	NewReporter(nil, sink).Capture(context.Background(), Report{Message: "x", Time: at})

	assert.Equal(t, at, sink.reports[0].Time)
}

func TestSentrySinkRejectsBadDSN(t *testing.T) {
	_, err := NewSentrySink("not-a-dsn", "test")
	assert.Error(t, err)
}

type panickingSink struct{}

func (panickingSink) Capture(context.Context, Report) error {
	panic("sink exploded")
}

func TestSinkPanicIsLoggedAndSwallowed(t *testing.T) {
	var buf bytes.Buffer
	l := logger.NewLogger(log.New(&buf, "", 0), logger.LogLevelWarning)
	after := &mockSink{}
	r := NewReporter(l, panickingSink{}, after)

	assert.NotPanics(t, func() {
		r.Fault(context.Background(), errors.New("bus down"), nil)
	})
	assert.Len(t, after.reports, 1, "later sinks still run")
	assert.Contains(t, buf.String(), "sink panicked: sink exploded")
}

func TestSentrySinkIdentifiesDevice(t *testing.T) {
	var sent []*sentry.Event
	sink, err := newSentrySink(sentry.ClientOptions{
		Dsn: "https://public@127.0.0.1/1",
		BeforeSend: func(e *sentry.Event, _ *sentry.EventHint) *sentry.Event {
			sent = append(sent, e)
			return nil
		},
	})
	require.NoError(t, err)

	sink.SetUser("vi-unit-7")
	err = sink.Capture(context.Background(), Report{
		Kind:    KindEvent,
		Message: "fingerprinted",
		Tags:    map[string]string{"model": "SONATA"},
	})
	assert.Error(t, err, "dropped by the send hook")

	require.Len(t, sent, 1)
	assert.Equal(t, "vi-unit-7", sent[0].User.ID)
	assert.Equal(t, "SONATA", sent[0].Tags["model"])
	assert.Equal(t, "event", sent[0].Tags["kind"])
	assert.Equal(t, sentry.LevelInfo, sent[0].Level)
	assert.Equal(t, "fingerprinted", sent[0].Message)
}
