// Package alerts holds the shared alert evaluation applied to every car
// before model specific rules run.
package alerts

import (
	"vehicle-interface/internal/events"
	"vehicle-interface/internal/types"
)

// standstillSpeed is the speed below which a pressed brake is not treated
// as a driver override.
const standstillSpeed = 0.1

// Policy produces the baseline events for one cycle. It remembers the
// previous cruise state so pcmEnable fires on the rising edge only.
// A Policy belongs to a single engine and is not safe for concurrent use.
type Policy struct {
	prevCruiseEnabled bool
}

func NewPolicy() *Policy {
	return &Policy{}
}

// Evaluate returns the common events for status. pcmCruise selects whether
// the powertrain cruise state drives engagement.
func (p *Policy) Evaluate(status types.CycleStatus, pcmCruise bool) *events.Set {
	ev := events.NewSet()

	if status.DoorOpen {
		ev.Add(events.DoorOpen)
	}
	if status.SeatbeltUnlatched {
		ev.Add(events.SeatbeltNotLatched)
	}
	switch status.GearShifter {
	case types.GearDrive, types.GearSport, types.GearLow, "":
	case types.GearReverse:
		ev.Add(events.ReverseGear)
	default:
		ev.Add(events.WrongGear)
	}
	if !status.CruiseAvailable {
		ev.Add(events.WrongCarMode)
	}
	if status.ESPDisabled {
		ev.Add(events.ESPDisabled)
	}
	if status.GasPressed || (status.BrakePressed && (!status.Standstill || status.VEgo > standstillSpeed)) {
		ev.Add(events.PedalPressed)
	}
	if status.BrakeHoldActive {
		ev.Add(events.BrakeHold)
	}
	if status.SteerWarning {
		ev.Add(events.SteerTempUnavailable)
	}

	if pcmCruise {
		if status.CruiseEnabled && !p.prevCruiseEnabled {
			ev.Add(events.PCMEnable)
		} else if !status.CruiseEnabled {
			ev.Add(events.PCMDisable)
		}
	}
	p.prevCruiseEnabled = status.CruiseEnabled

	return ev
}
