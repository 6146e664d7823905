package config

import (
	"github.com/pkg/errors"

	"vehicle-interface/internal/fingerprint"
	"vehicle-interface/internal/topology"
	"vehicle-interface/internal/types"
	"vehicle-interface/internal/vehicle"
)

// VehicleConfiguration is the immutable parameter record for one drive
// session. The engine takes its initial cruise source from Topology.PCMCruise
// and owns any later change to it.
type VehicleConfiguration struct {
	Model     vehicle.Model          `json:"model"`
	Topology  types.HardwareTopology `json:"topology"`
	Constants vehicle.Constants      `json:"constants"`
	Flags     Flags                  `json:"flags"`
	Firmware  map[string]string      `json:"firmware,omitempty"`
}

// Build resolves the topology of fp and merges it with the static constants
// for model.
func Build(model vehicle.Model, fp fingerprint.Set, flags Flags, firmware map[string]string) (*VehicleConfiguration, error) {
	consts, err := vehicle.Lookup(model, vehicle.Options{
		UseLQR:       flags.UseLQR,
		SMDPSHarness: flags.SMDPSHarness,
		EPSModified:  vehicle.EPSModified(firmware),
	})
	if err != nil {
		return nil, errors.Wrap(err, "building vehicle configuration")
	}

	fw := make(map[string]string, len(firmware))
	for k, v := range firmware {
		fw[k] = v
	}

	return &VehicleConfiguration{
		Model: model,
		Topology: topology.Resolve(fp, topology.Options{
			LCANHarness:         flags.LCANHarness,
			LongitudinalControl: flags.LongitudinalControl,
			MadMode:             flags.MadMode,
		}),
		Constants: consts,
		Flags:     flags,
		Firmware:  fw,
	}, nil
}
