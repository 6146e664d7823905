package core

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/librescoot/librefsm"
	"github.com/pkg/errors"

	"vehicle-interface/internal/config"
	"vehicle-interface/internal/engagement"
	"vehicle-interface/internal/fingerprint"
	"vehicle-interface/internal/fsm"
	"vehicle-interface/internal/logger"
	"vehicle-interface/internal/messaging"
	"vehicle-interface/internal/telemetry"
	"vehicle-interface/internal/types"
	"vehicle-interface/internal/vehicle"
)

var ErrNotRunning = errors.New("car interface is not running")

// Options configures a CarInterface.
type Options struct {
	Model           vehicle.Model
	Flags           config.Flags
	Firmware        map[string]string
	DetectionWindow time.Duration

	// Fingerprint replaces live detection with a recorded fingerprint.
	Fingerprint *fingerprint.Set
	OpenFrames  FrameSourceFunc

	Recorder      SessionRecorder
	Reporter      *telemetry.Reporter
	SpeedSmoother engagement.SpeedSmoother
}

// CarInterface detects the bus layout of the car, publishes the resulting
// configuration and runs the engagement engine on every cycle input.
type CarInterface struct {
	opts      Options
	redis     MessagingClient
	logger    *logger.Logger
	reporter  *telemetry.Reporter
	collector *fingerprint.Collector
	machine   *librefsm.Machine

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.RWMutex
	state   types.SystemState
	flags   config.Flags
	cfg     *config.VehicleConfiguration
	fp      fingerprint.Set
	engine  *engagement.Engine
	frames  FrameSource
	session string

	done     chan struct{}
	doneOnce sync.Once
}

func NewCarInterface(redis MessagingClient, opts Options, l *logger.Logger) (*CarInterface, error) {
	if _, err := vehicle.Lookup(opts.Model, vehicle.Options{}); err != nil {
		return nil, err
	}
	if opts.DetectionWindow <= 0 {
		opts.DetectionWindow = config.DefaultDetectionWindow
	}
	if l == nil {
		l = logger.Nop()
	}
	reporter := opts.Reporter
	if reporter == nil {
		reporter = telemetry.Nop()
	}
	return &CarInterface{
		opts:      opts,
		redis:     redis,
		logger:    l,
		reporter:  reporter,
		collector: fingerprint.NewCollector(),
		state:     types.StateInit,
		flags:     opts.Flags,
		done:      make(chan struct{}),
	}, nil
}

// Start connects to Redis, applies the settings overlay and begins
// fingerprinting. Cycle inputs are accepted once the interface is running.
func (v *CarInterface) Start(ctx context.Context) error {
	v.logger.Infof("Starting car interface for %s", v.opts.Model)
	v.ctx, v.cancel = context.WithCancel(ctx)

	v.redis.SetCallbacks(messaging.Callbacks{
		CycleCallback:       v.handleCycleInput,
		ReconfigureCallback: v.handleReconfigure,
		ShutdownCallback:    v.handleShutdownRequest,
		SettingsCallback:    v.handleSettingsChange,
	})

	if err := v.redis.Connect(); err != nil {
		return errors.Wrap(err, "failed to connect to Redis")
	}

	v.loadSettings()

	v.reporter.BindTags(map[string]string{"model": string(v.opts.Model)})

	if err := v.initFSM(v.ctx); err != nil {
		return errors.Wrap(err, "failed to start state machine")
	}

	if err := v.redis.StartListening(); err != nil {
		return errors.Wrap(err, "failed to start Redis listeners")
	}

	return v.sendEvent(fsm.EvStart)
}

// Shutdown stops the interface and releases Redis. It is safe to call more
// than once.
func (v *CarInterface) Shutdown() {
	if v.machine != nil && v.getCurrentState() != types.StateStopped {
		if err := v.sendEvent(fsm.EvShutdown); err != nil {
			v.logger.Warnf("Shutdown event failed: %v", err)
		}
	}
	v.stopFrames()
	if v.cancel != nil {
		v.cancel()
	}
	if err := v.redis.Close(); err != nil {
		v.logger.Warnf("Failed to close Redis: %v", err)
	}
}

// Done is closed once the interface has stopped, including on a remote
// shutdown command.
func (v *CarInterface) Done() <-chan struct{} {
	return v.done
}

// Configuration returns the configuration of the current session, or nil
// while fingerprinting.
func (v *CarInterface) Configuration() *config.VehicleConfiguration {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.cfg
}

// Session is the id of the recorded session, empty when nothing records.
func (v *CarInterface) Session() string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.session
}

func (v *CarInterface) loadSettings() {
	settings, err := v.redis.LoadSettings()
	if err != nil {
		v.logger.Warnf("Failed to load settings, using configured flags: %v", err)
		return
	}
	flags, ignored := v.opts.Flags.Overlay(settings)
	sort.Strings(ignored)
	for _, key := range ignored {
		v.logger.Warnf("Ignoring setting %s=%q", key, settings[key])
	}

	v.mu.Lock()
	v.flags = flags
	v.mu.Unlock()
	v.logger.Debugf("Feature flags: %+v", flags)
}

func (v *CarInterface) handleCycleInput(in types.CycleInput) error {
	defer v.reporter.Recover(v.ctx)

	out, err := v.step(in)
	if err != nil {
		return err
	}
	if err := v.redis.PublishCycle(out); err != nil {
		v.reporter.Fault(v.ctx, err, map[string]string{"op": "publish-cycle"})
		return err
	}
	return nil
}

func (v *CarInterface) step(in types.CycleInput) (engagement.Output, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.engine == nil {
		return engagement.Output{}, ErrNotRunning
	}
	return v.engine.Update(in), nil
}

func (v *CarInterface) handleReconfigure() error {
	v.logger.Infof("Reconfigure requested")
	return v.sendEvent(fsm.EvReconfigure)
}

func (v *CarInterface) handleShutdownRequest() error {
	v.logger.Infof("Shutdown requested")
	return v.sendEvent(fsm.EvShutdown)
}

func (v *CarInterface) handleSettingsChange(key string) error {
	if config.IsFlagSetting(key) {
		v.logger.Infof("Setting %s changed, applied on next reconfigure", key)
	}
	return nil
}
