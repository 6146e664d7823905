// Package telemetry reports crashes and faults to external sinks. Reporting
// is fire and forget: callers never see a sink failure.
package telemetry

import (
	"context"
	"runtime/debug"
	"sync"
	"time"

	"github.com/pkg/errors"

	"vehicle-interface/internal/logger"
)

type Kind string

const (
	KindCrash Kind = "crash"
	KindFault Kind = "fault"
	KindEvent Kind = "event"
)

// Report is one thing worth telling someone about.
type Report struct {
	Kind    Kind
	Message string
	Err     error
	Detail  map[string]string
	Tags    map[string]string
	Time    time.Time
}

// Sink delivers reports somewhere. Errors are logged by the Reporter.
type Sink interface {
	Capture(ctx context.Context, r Report) error
}

type Reporter struct {
	mu     sync.RWMutex
	sinks  []Sink
	tags   map[string]string
	logger *logger.Logger
	now    func() time.Time
}

func NewReporter(l *logger.Logger, sinks ...Sink) *Reporter {
	if l == nil {
		l = logger.Nop()
	}
	return &Reporter{
		sinks:  sinks,
		tags:   make(map[string]string),
		logger: l,
		now:    time.Now,
	}
}

// Nop returns a reporter without sinks.
func Nop() *Reporter {
	return NewReporter(nil)
}

func (r *Reporter) AddSink(s Sink) {
	r.mu.Lock()
	r.sinks = append(r.sinks, s)
	r.mu.Unlock()
}

// BindTags attaches tags to every later report. Existing keys are replaced.
func (r *Reporter) BindTags(tags map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k, v := range tags {
		r.tags[k] = v
	}
}

func (r *Reporter) Tags() map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]string, len(r.tags))
	for k, v := range r.tags {
		out[k] = v
	}
	return out
}

// Capture hands rep to every sink in order.
func (r *Reporter) Capture(ctx context.Context, rep Report) {
	if r == nil {
		return
	}
	r.mu.RLock()
	sinks := append([]Sink(nil), r.sinks...)
	tags := make(map[string]string, len(r.tags)+len(rep.Tags))
	for k, v := range r.tags {
		tags[k] = v
	}
	r.mu.RUnlock()

	for k, v := range rep.Tags {
		tags[k] = v
	}
	rep.Tags = tags
	if rep.Time.IsZero() {
		rep.Time = r.now()
	}
	if rep.Message == "" && rep.Err != nil {
		rep.Message = rep.Err.Error()
	}

	for _, s := range sinks {
		if err := captureSink(ctx, s, rep); err != nil {
			r.logger.Warnf("telemetry sink %T failed: %v (report: %s)", s, err, rep.Message)
		}
	}
}

// captureSink turns a panicking sink into an error.
func captureSink(ctx context.Context, s Sink, rep Report) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = errors.Errorf("sink panicked: %v", p)
		}
	}()
	return s.Capture(ctx, rep)
}

func (r *Reporter) Fault(ctx context.Context, err error, detail map[string]string) {
	r.Capture(ctx, Report{Kind: KindFault, Err: err, Detail: detail})
}

func (r *Reporter) Event(ctx context.Context, msg string, detail map[string]string) {
	r.Capture(ctx, Report{Kind: KindEvent, Message: msg, Detail: detail})
}

// Recover must be deferred. It reports a panic as a crash and lets the
// caller carry on.
func (r *Reporter) Recover(ctx context.Context) {
	p := recover()
	if p == nil {
		return
	}
	err, ok := p.(error)
	if !ok {
		err = errors.Errorf("panic: %v", p)
	}
	if r == nil {
		return
	}
	r.logger.Errorf("recovered panic: %v", err)
	r.Capture(ctx, Report{
		Kind:   KindCrash,
		Err:    err,
		Detail: map[string]string{"stack": string(debug.Stack())},
	})
}
