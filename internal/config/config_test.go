package config

import (
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	fp "vehicle-interface/internal/fingerprint"
	"vehicle-interface/internal/types"
	"vehicle-interface/internal/vehicle"
)

func newViper(t *testing.T, args ...string) *viper.Viper {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	RegisterServiceFlags(fs)
	require.NoError(t, fs.Parse(args))

	v := viper.New()
	require.NoError(t, v.BindPFlags(fs))
	return v
}

func TestFlagsFromViperDefaults(t *testing.T) {
	f := FlagsFromViper(newViper(t))

	assert.Equal(t, Flags{LowSpeedAlerts: true, TPMSAlerts: true}, f)
}

func TestFlagsFromViperCommandLine(t *testing.T) {
	f := FlagsFromViper(newViper(t, "--mad-mode", "--tpms-alerts=false", "--long-control"))

	assert.True(t, f.MadMode)
	assert.True(t, f.LongitudinalControl)
	assert.False(t, f.TPMSAlerts)
	assert.True(t, f.LowSpeedAlerts)
}

func TestFlagsOverlay(t *testing.T) {
	base := Flags{LowSpeedAlerts: true}
	got, ignored := base.Overlay(map[string]string{
		"MadModeEnabled":  "1",
		"LowSpeedAlerts":  "0",
		"UseSMDPSHarness": "true",
		"TPMS_Alerts":     "maybe",
		"SomethingElse":   "1",
	})

	assert.True(t, got.MadMode)
	assert.False(t, got.LowSpeedAlerts)
	assert.True(t, got.SMDPSHarness)
	assert.False(t, got.TPMSAlerts)
	assert.Equal(t, []string{"TPMS_Alerts"}, ignored)
	assert.True(t, base.LowSpeedAlerts, "overlay does not mutate the receiver")
}

func TestLoadService(t *testing.T) {
	_, err := LoadService(newViper(t))
	assert.Error(t, err, "model is required")

	s, err := LoadService(newViper(t, "--model", "SONATA", "--can", "vcan0,vcan1"))
	require.NoError(t, err)
	assert.Equal(t, "SONATA", s.Model)
	assert.Equal(t, []string{"vcan0", "vcan1"}, s.CANInterfaces)
	assert.Equal(t, 2*time.Second, s.DetectionWindow)
	assert.Equal(t, "127.0.0.1:6379", s.RedisAddr)

	_, err = LoadService(newViper(t, "--model", "SONATA", "--can", "a,b,c,d"))
	assert.Error(t, err)
}

func TestBuild(t *testing.T) {
	set := fp.NewSet(fp.Fingerprint{fp.MsgSCC11: 8, fp.MsgLCA11: 8})
	fw := map[string]string{"eps": "LX2,4"}

	cfg, err := Build(vehicle.Palisade, set, Flags{SMDPSHarness: true}, fw)
	require.NoError(t, err)

	assert.Equal(t, vehicle.Palisade, cfg.Model)
	assert.Equal(t, types.Bus0, cfg.Topology.AdaptiveCruiseBus)
	assert.True(t, cfg.Topology.HasBlindSpotModule)
	assert.True(t, cfg.Topology.PCMCruise)
	assert.Equal(t, types.SafetyStandard, cfg.Topology.SafetyModel)
	assert.InDelta(t, 1000, cfg.Constants.MaxSteeringAngleDeg, 1e-9)

	fw["eps"] = "changed"
	assert.Equal(t, "LX2,4", cfg.Firmware["eps"])
}

func TestBuildPassesFlagsToResolver(t *testing.T) {
	set := fp.NewSet(nil, fp.Fingerprint{fp.MsgMDPS12: 8, fp.MsgSCC11: 8})

	cfg, err := Build(vehicle.NiroHEV, set, Flags{LCANHarness: true, SMDPSHarness: true}, nil)
	require.NoError(t, err)
	assert.Equal(t, types.Bus0, cfg.Topology.SteeringBus)
	assert.Equal(t, types.BusNone, cfg.Topology.AdaptiveCruiseBus)
	assert.Zero(t, cfg.Constants.MinSteerSpeed)
}

func TestBuildUnknownModel(t *testing.T) {
	_, err := Build("NOPE", fp.NewSet(), Flags{}, nil)
	assert.Error(t, err)
}
