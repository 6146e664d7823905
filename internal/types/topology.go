package types

import "strconv"

// Bus is a physical CAN bus index as seen by the interface harness.
type Bus int

const (
	BusNone Bus = -1
	Bus0    Bus = 0
	Bus1    Bus = 1
	Bus2    Bus = 2
)

// BusCount is the number of physical buses fingerprinted.
const BusCount = 3

func (b Bus) String() string {
	if b == BusNone {
		return "none"
	}
	return "bus" + strconv.Itoa(int(b))
}

// Valid reports whether b addresses one of the physical buses.
func (b Bus) Valid() bool {
	return b >= Bus0 && b < BusCount
}

type SafetyModel string

const (
	SafetyStandard  SafetyModel = "hyundai"
	SafetyCommunity SafetyModel = "hyundaiCommunity"
)

// HardwareTopology is derived once from a fingerprint and never mutated.
type HardwareTopology struct {
	SteeringBus                Bus         `json:"steering_bus" yaml:"steering_bus"`
	AngleSensorBus             Bus         `json:"angle_sensor_bus" yaml:"angle_sensor_bus"`
	AdaptiveCruiseBus          Bus         `json:"adaptive_cruise_bus" yaml:"adaptive_cruise_bus"`
	HasBlindSpotModule         bool        `json:"has_blind_spot_module" yaml:"has_blind_spot_module"`
	HasAutoHold                bool        `json:"has_auto_hold" yaml:"has_auto_hold"`
	HasEngineManagementSignals bool        `json:"has_engine_management_signals" yaml:"has_engine_management_signals"`
	HasSCC13                   bool        `json:"has_scc13" yaml:"has_scc13"`
	HasSCC14                   bool        `json:"has_scc14" yaml:"has_scc14"`
	RadarIsExternal            bool        `json:"radar_is_external" yaml:"radar_is_external"`
	PCMCruise                  bool        `json:"pcm_cruise" yaml:"pcm_cruise"`
	SafetyModel                SafetyModel `json:"safety_model" yaml:"safety_model"`
}
