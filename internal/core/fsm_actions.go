package core

import (
	"context"

	"github.com/librescoot/librefsm"

	"vehicle-interface/internal/alerts"
	"vehicle-interface/internal/config"
	"vehicle-interface/internal/engagement"
	"vehicle-interface/internal/fingerprint"
	"vehicle-interface/internal/fsm"
	"vehicle-interface/internal/store"
	"vehicle-interface/internal/types"
)

// Ensure CarInterface implements fsm.Actions
var _ fsm.Actions = (*CarInterface)(nil)

func stateIDToSystemState(id librefsm.StateID) types.SystemState {
	switch id {
	case fsm.StateInit:
		return types.StateInit
	case fsm.StateFingerprinting:
		return types.StateFingerprinting
	case fsm.StateRunning:
		return types.StateRunning
	case fsm.StateStopped:
		return types.StateStopped
	default:
		return types.SystemState(string(id))
	}
}

// initFSM initializes and starts the librefsm machine
func (v *CarInterface) initFSM(ctx context.Context) error {
	def := fsm.NewDefinition(v, v.opts.DetectionWindow)
	machine, err := def.Build()
	if err != nil {
		return err
	}
	v.machine = machine

	v.machine.OnStateChange(func(from, to librefsm.StateID) {
		newState := stateIDToSystemState(to)
		oldState := stateIDToSystemState(from)

		v.mu.Lock()
		v.state = newState
		v.mu.Unlock()

		v.logger.Infof("State transition: %s -> %s", oldState, newState)

		if err := v.redis.PublishState(newState); err != nil {
			v.logger.Errorf("Failed to publish state: %v", err)
		}
	})

	if err := v.machine.Start(ctx); err != nil {
		return err
	}

	v.logger.Infof("librefsm state machine started")
	return nil
}

func (v *CarInterface) sendEvent(event librefsm.EventID) error {
	return v.machine.SendSync(librefsm.Event{ID: event})
}

func (v *CarInterface) getCurrentState() types.SystemState {
	if v.machine != nil {
		return stateIDToSystemState(v.machine.CurrentState())
	}
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.state
}

// === State Entry Actions ===

func (v *CarInterface) EnterFingerprinting(c *librefsm.Context) error {
	v.collector.Reset()

	if v.opts.Fingerprint != nil {
		v.logger.Infof("Using recorded fingerprint (%d messages)", v.opts.Fingerprint.Len())
		v.machine.Send(librefsm.Event{ID: fsm.EvFingerprintComplete})
		return nil
	}
	if v.opts.OpenFrames == nil {
		v.logger.Warnf("No frame source configured, resolving an empty fingerprint")
		return nil
	}

	src, err := v.opts.OpenFrames(v.collector)
	if err != nil {
		// The window still elapses and resolves whatever was seen.
		v.logger.Errorf("Failed to open CAN buses: %v", err)
		v.reporter.Fault(v.ctx, err, map[string]string{"op": "open-buses"})
		return nil
	}

	v.mu.Lock()
	v.frames = src
	v.mu.Unlock()
	src.Start(v.ctx)

	v.logger.Infof("Listening for fingerprint for %s", v.opts.DetectionWindow)
	return nil
}

func (v *CarInterface) EnterRunning(c *librefsm.Context) error {
	if err := v.resolveConfiguration(); err != nil {
		v.reporter.Fault(v.ctx, err, map[string]string{"op": "resolve"})
		return err
	}

	v.mu.Lock()
	cfg, fp := v.cfg, v.fp
	opts := []engagement.Option{engagement.WithLogger(v.logger.WithTag("engine"))}
	if v.opts.SpeedSmoother != nil {
		opts = append(opts, engagement.WithSpeedSmoother(v.opts.SpeedSmoother))
	}
	v.engine = engagement.NewEngine(cfg, alerts.NewPolicy(), opts...)
	v.mu.Unlock()

	t := cfg.Topology
	v.logger.Infof("Resolved %s: steering %s, angle sensor %s, cruise %s, safety %s",
		cfg.Model, t.SteeringBus, t.AngleSensorBus, t.AdaptiveCruiseBus, t.SafetyModel)

	if err := v.redis.PublishConfiguration(cfg); err != nil {
		v.logger.Errorf("Failed to publish configuration: %v", err)
		v.reporter.Fault(v.ctx, err, map[string]string{"op": "publish-configuration"})
	}

	v.recordSession(cfg, fp)
	return nil
}

func (v *CarInterface) EnterStopped(c *librefsm.Context) error {
	v.stopFrames()
	v.doneOnce.Do(func() { close(v.done) })
	return nil
}

// === State Exit Actions ===

func (v *CarInterface) ExitFingerprinting(c *librefsm.Context) error {
	v.stopFrames()
	return nil
}

func (v *CarInterface) ExitRunning(c *librefsm.Context) error {
	v.mu.Lock()
	v.engine = nil
	v.cfg = nil
	v.mu.Unlock()
	return nil
}

// === Transition Actions ===

func (v *CarInterface) OnFingerprintComplete(c *librefsm.Context) error {
	return v.resolveConfiguration()
}

func (v *CarInterface) OnReconfigure(c *librefsm.Context) error {
	v.loadSettings()
	return nil
}

// resolveConfiguration builds the configuration from the fingerprint once
// per session.
func (v *CarInterface) resolveConfiguration() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.cfg != nil {
		return nil
	}

	fp := v.collector.Snapshot()
	if v.opts.Fingerprint != nil {
		fp = *v.opts.Fingerprint
	}
	cfg, err := config.Build(v.opts.Model, fp, v.flags, v.opts.Firmware)
	if err != nil {
		return err
	}
	v.cfg, v.fp = cfg, fp
	return nil
}

func (v *CarInterface) recordSession(cfg *config.VehicleConfiguration, fp fingerprint.Set) {
	if v.opts.Recorder == nil {
		return
	}
	sess, err := v.opts.Recorder.CreateSession(v.ctx, string(cfg.Model), fp, cfg.Topology)
	if err != nil {
		v.logger.Warnf("Failed to record session: %v", err)
		return
	}

	v.mu.Lock()
	v.session = sess.ID
	v.mu.Unlock()
	v.reporter.BindTags(map[string]string{store.SessionTag: sess.ID})
	v.logger.Infof("Session %s started", sess.ID)
}

func (v *CarInterface) stopFrames() {
	v.mu.Lock()
	src := v.frames
	v.frames = nil
	v.mu.Unlock()
	if src != nil {
		src.Stop()
	}
}
