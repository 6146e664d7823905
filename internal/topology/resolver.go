// Package topology infers which bus carries each subsystem from the
// message identifiers seen during fingerprinting.
package topology

import (
	"vehicle-interface/internal/fingerprint"
	"vehicle-interface/internal/types"
)

// Options are the feature flags that influence resolution.
type Options struct {
	// LCANHarness treats the L-CAN marker as present on bus1 even if it was
	// not observed during the detection window.
	LCANHarness         bool
	LongitudinalControl bool
	MadMode             bool
}

// Resolve maps a fingerprint to a hardware topology. It never fails: a car
// with no adaptive cruise messages anywhere resolves to an external radar.
func Resolve(fp fingerprint.Set, opts Options) types.HardwareTopology {
	lcan := opts.LCANHarness || fp.Has(types.Bus1, fingerprint.MsgLCANMarker)

	var t types.HardwareTopology
	t.AngleSensorBus = bridgedBus(fp, fingerprint.MsgSAS11, lcan)
	t.SteeringBus = bridgedBus(fp, fingerprint.MsgMDPS12, lcan)

	switch {
	case fp.Has(types.Bus0, fingerprint.MsgSCC11):
		t.AdaptiveCruiseBus = types.Bus0
	case fp.Has(types.Bus1, fingerprint.MsgSCC11) && !lcan:
		t.AdaptiveCruiseBus = types.Bus1
	case fp.Has(types.Bus2, fingerprint.MsgSCC11):
		t.AdaptiveCruiseBus = types.Bus2
	default:
		t.AdaptiveCruiseBus = types.BusNone
	}

	t.HasBlindSpotModule = fp.Has(types.Bus0, fingerprint.MsgLCA11)
	t.HasAutoHold = fp.Has(types.Bus0, fingerprint.MsgESP11)
	t.HasEngineManagementSignals = fp.Has(types.Bus0, fingerprint.MsgEMS11) && fp.Has(types.Bus0, fingerprint.MsgEMS16)

	if t.AdaptiveCruiseBus != types.BusNone {
		t.HasSCC13 = fp.Has(t.AdaptiveCruiseBus, fingerprint.MsgSCC13)
		t.HasSCC14 = fp.Has(t.AdaptiveCruiseBus, fingerprint.MsgSCC14)
	}

	t.RadarIsExternal = t.AdaptiveCruiseBus == types.BusNone
	t.PCMCruise = !t.RadarIsExternal

	t.SafetyModel = types.SafetyStandard
	if t.RadarIsExternal ||
		t.SteeringBus != types.Bus0 ||
		opts.LongitudinalControl ||
		t.AdaptiveCruiseBus == types.Bus1 ||
		opts.MadMode {
		t.SafetyModel = types.SafetyCommunity
	}
	return t
}

// bridgedBus is bus1 when id is seen there and no L-CAN harness forwards
// bus1 traffic onto bus0, else bus0.
func bridgedBus(fp fingerprint.Set, id uint32, lcan bool) types.Bus {
	if fp.Has(types.Bus1, id) && !lcan {
		return types.Bus1
	}
	return types.Bus0
}
