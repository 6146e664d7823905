// Package engagement runs the per-cycle button, alert and engagement state
// machine of a car interface session.
package engagement

import (
	"vehicle-interface/internal/config"
	"vehicle-interface/internal/events"
	"vehicle-interface/internal/logger"
	"vehicle-interface/internal/types"
	"vehicle-interface/internal/vehicle"
)

// LaneChangeSpeedMin is the lowest speed at which the planner will perform a
// lane change.
const LaneChangeSpeedMin = 30 * vehicle.MPHToMS

const (
	turningIndicatorMargin = 1.2
	lowSpeedEnterMargin    = 2.0
	lowSpeedExitMargin     = 4.0
	// Cars whose steering does not cut out above this speed never raise the
	// low speed alert.
	lowSpeedCutoffMin = 10.0
)

// State is carried from one cycle to the next.
type State struct {
	PrevCruiseButtons     types.CruiseButton `json:"prev_cruise_buttons"`
	PrevMainButton        bool               `json:"prev_main_button"`
	LowSpeedAlert         bool               `json:"low_speed_alert"`
	TurningIndicatorAlert bool               `json:"turning_indicator_alert"`
	Cycle                 uint64             `json:"cycle"`
}

// AlertPolicy evaluates the alerts shared by every car.
type AlertPolicy interface {
	Evaluate(status types.CycleStatus, pcmCruise bool) *events.Set
}

// SpeedSmoother may add its own events after the engine has finished.
type SpeedSmoother interface {
	InjectEvents(ev *events.Set)
}

// Output is the result of one cycle.
type Output struct {
	Status types.CycleStatus
	Events *events.Set
}

type Option func(*Engine)

func WithSpeedSmoother(s SpeedSmoother) Option {
	return func(e *Engine) { e.smoother = s }
}

func WithLogger(l *logger.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// Engine owns the engagement state of one session. It also owns the
// pcmCruise flag, seeded from the configuration and reconciled every cycle
// against the cruise module liveness reported one cycle earlier. Update is
// not safe for concurrent use.
type Engine struct {
	cfg       *config.VehicleConfiguration
	policy    AlertPolicy
	smoother  SpeedSmoother
	logger    *logger.Logger
	state     State
	pcmCruise bool
	// sccLive is the liveness seen on the previous cycle. Before the first
	// cycle it agrees with the configured cruise source.
	sccLive bool
}

func NewEngine(cfg *config.VehicleConfiguration, policy AlertPolicy, opts ...Option) *Engine {
	e := &Engine{
		cfg:       cfg,
		policy:    policy,
		logger:    logger.Nop(),
		pcmCruise: cfg.Topology.PCMCruise,
		sccLive:   cfg.Topology.PCMCruise,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

func (e *Engine) State() State {
	return e.state
}

func (e *Engine) PCMCruise() bool {
	return e.pcmCruise
}

// Update advances the engine by one cycle. The order of the steps matters:
// later steps remove events added by earlier ones.
func (e *Engine) Update(in types.CycleInput) Output {
	flags := e.cfg.Flags
	longControl := flags.LongitudinalControl
	sccLive := e.sccLive

	if e.pcmCruise && !sccLive {
		e.pcmCruise = false
		e.logger.Debugf("cruise module not live, cruise source demoted")
	} else if sccLive && !e.pcmCruise {
		e.pcmCruise = true
		e.logger.Debugf("cruise module live, cruise source promoted")
	}

	status := types.CycleStatus{CycleInput: in}
	if flags.MadMode {
		status.CruiseEnabled = status.CruiseAvailable
	}

	blinking := in.LeftBlinker || in.RightBlinker || e.state.TurningIndicatorAlert
	e.state.TurningIndicatorAlert = blinking && in.VEgo < LaneChangeSpeedMin-turningIndicatorMargin

	status.ButtonEvents = e.buttonEvents(in)

	ev := events.NewSet()
	if e.policy != nil {
		ev.Merge(e.policy.Evaluate(status, e.pcmCruise))
	}

	minSteer := e.cfg.Constants.MinSteerSpeed
	if !flags.SMDPSHarness && flags.LowSpeedAlerts {
		if in.VEgo < minSteer+lowSpeedEnterMargin && minSteer > lowSpeedCutoffMin {
			e.state.LowSpeedAlert = true
		}
		if in.VEgo > minSteer+lowSpeedExitMargin {
			e.state.LowSpeedAlert = false
		}
		if e.state.LowSpeedAlert {
			ev.Add(events.BelowSteerSpeed)
		}
	}

	if flags.TPMSAlerts {
		if low, ok := lowTire(in.TPMS, e.cfg.Constants.MinTirePressure); ok {
			ev.Add(low)
		}
	}

	if longControl && in.CruiseUnavailable {
		ev.Add(events.BrakeUnavailable)
	}
	if e.state.LowSpeedAlert && e.cfg.Topology.SteeringBus == types.Bus0 {
		ev.Add(events.BelowSteerSpeed)
	}
	if e.state.TurningIndicatorAlert {
		ev.Add(events.TurningIndicatorOn)
	}

	if flags.MadMode {
		ev.Remove(events.PedalPressed)
	}

	for _, b := range status.ButtonEvents {
		if b.Type == types.ButtonCancel && b.Pressed {
			ev.Add(events.ButtonCancel)
		}
		if longControl && !sccLive {
			if (b.Type == types.ButtonAccelCruise || b.Type == types.ButtonDecelCruise) && !b.Pressed {
				ev.Add(events.ButtonEnable)
			}
			ev.Remove(events.WrongCarMode)
			ev.Remove(events.PCMDisable)
		} else if !longControl && status.CruiseEnabled {
			if b.Type == types.ButtonDecelCruise && !b.Pressed {
				ev.Add(events.ButtonEnable)
			}
		}
	}

	if e.smoother != nil {
		e.smoother.InjectEvents(ev)
	}

	e.state.PrevCruiseButtons = in.CruiseButtons
	e.state.PrevMainButton = in.CruiseMainButton
	e.sccLive = in.SCCLive
	e.state.Cycle++

	status.PCMCruise = e.pcmCruise
	status.LowSpeedAlert = e.state.LowSpeedAlert
	status.TurningIndicatorAlert = e.state.TurningIndicatorAlert
	status.Cycle = e.state.Cycle
	return Output{Status: status, Events: ev}
}

// buttonEvents compares this cycle's buttons to the previous ones and
// returns at most one cruise button event and one main button event.
func (e *Engine) buttonEvents(in types.CycleInput) []types.ButtonEvent {
	var out []types.ButtonEvent
	if in.CruiseButtons != e.state.PrevCruiseButtons {
		pressed := in.CruiseButtons != types.CruiseButtonNone
		code := e.state.PrevCruiseButtons
		if pressed {
			code = in.CruiseButtons
		}
		out = append(out, types.ButtonEvent{Type: buttonType(code), Pressed: pressed})
	}
	if in.CruiseMainButton != e.state.PrevMainButton {
		out = append(out, types.ButtonEvent{Type: types.ButtonAltButton3, Pressed: in.CruiseMainButton})
	}
	return out
}

// buttonType maps a cruise stalk code to a button type. Cancel is
// reported as unknown and never disengages by itself.
func buttonType(code types.CruiseButton) types.ButtonType {
	switch code {
	case types.CruiseButtonResAccel:
		return types.ButtonAccelCruise
	case types.CruiseButtonSetDecel:
		return types.ButtonDecelCruise
	case types.CruiseButtonGapDist:
		return types.ButtonGapAdjustCruise
	default:
		return types.ButtonUnknown
	}
}

// lowTire returns the event for the first wheel, in FL FR RL RR order, whose
// pressure is below threshold.
func lowTire(p types.TirePressures, threshold float64) (events.EventName, bool) {
	switch {
	case p.FL < threshold:
		return events.TirePressureLowFL, true
	case p.FR < threshold:
		return events.TirePressureLowFR, true
	case p.RL < threshold:
		return events.TirePressureLowRL, true
	case p.RR < threshold:
		return events.TirePressureLowRR, true
	}
	return "", false
}
