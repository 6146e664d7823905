package config

import (
	"strconv"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Flag keys, shared by the command line, config file and environment.
const (
	KeyLongControl    = "long-control"
	KeyMadMode        = "mad-mode"
	KeySMDPSHarness   = "smdps-harness"
	KeyLCANHarness    = "lcan-harness"
	KeyLowSpeedAlerts = "low-speed-alerts"
	KeyTPMSAlerts     = "tpms-alerts"
	KeyUseLQR         = "use-lqr"
)

// Flags are the boolean feature switches fixed for a session.
type Flags struct {
	LongitudinalControl bool `json:"long_control"`
	MadMode             bool `json:"mad_mode"`
	SMDPSHarness        bool `json:"smdps_harness"`
	LCANHarness         bool `json:"lcan_harness"`
	LowSpeedAlerts      bool `json:"low_speed_alerts"`
	TPMSAlerts          bool `json:"tpms_alerts"`
	UseLQR              bool `json:"use_lqr"`
}

// settingsKeys maps the names used in the Redis settings hash.
var settingsKeys = map[string]func(*Flags) *bool{
	"LongControlEnabled": func(f *Flags) *bool { return &f.LongitudinalControl },
	"MadModeEnabled":     func(f *Flags) *bool { return &f.MadMode },
	"UseSMDPSHarness":    func(f *Flags) *bool { return &f.SMDPSHarness },
	"UseLCANHarness":     func(f *Flags) *bool { return &f.LCANHarness },
	"LowSpeedAlerts":     func(f *Flags) *bool { return &f.LowSpeedAlerts },
	"TPMS_Alerts":        func(f *Flags) *bool { return &f.TPMSAlerts },
	"UseLQR":             func(f *Flags) *bool { return &f.UseLQR },
}

// RegisterFlags adds the feature flags to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.Bool(KeyLongControl, false, "host software controls acceleration and braking")
	fs.Bool(KeyMadMode, false, "engage lateral control whenever main cruise is on")
	fs.Bool(KeySMDPSHarness, false, "an SMDPS harness removes the low speed steering cutoff")
	fs.Bool(KeyLCANHarness, false, "an L-CAN harness bridges bus1 onto bus0")
	fs.Bool(KeyLowSpeedAlerts, true, "alert when below the minimum steering speed")
	fs.Bool(KeyTPMSAlerts, true, "alert on low tire pressure")
	fs.Bool(KeyUseLQR, false, "use the LQR lateral tune instead of INDI")
}

// FlagsFromViper reads the feature flags from v.
func FlagsFromViper(v *viper.Viper) Flags {
	return Flags{
		LongitudinalControl: v.GetBool(KeyLongControl),
		MadMode:             v.GetBool(KeyMadMode),
		SMDPSHarness:        v.GetBool(KeySMDPSHarness),
		LCANHarness:         v.GetBool(KeyLCANHarness),
		LowSpeedAlerts:      v.GetBool(KeyLowSpeedAlerts),
		TPMSAlerts:          v.GetBool(KeyTPMSAlerts),
		UseLQR:              v.GetBool(KeyUseLQR),
	}
}

// Overlay applies values from a settings hash on top of f. Unknown keys and
// unparsable values are ignored and reported back.
func (f Flags) Overlay(settings map[string]string) (Flags, []string) {
	var ignored []string
	for key, raw := range settings {
		field, ok := settingsKeys[key]
		if !ok {
			continue
		}
		val, ok := parseBool(raw)
		if !ok {
			ignored = append(ignored, key)
			continue
		}
		*field(&f) = val
	}
	return f, ignored
}

func parseBool(s string) (bool, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return false, false
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, false
	}
	return b, true
}

// IsFlagSetting reports whether a settings hash key maps to a feature flag.
func IsFlagSetting(key string) bool {
	_, ok := settingsKeys[key]
	return ok
}
