package config

import (
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	KeyModel           = "model"
	KeyRedisAddr       = "redis-addr"
	KeyDBPath          = "db"
	KeySentryDSN       = "sentry-dsn"
	KeyDetectionWindow = "detection-window"
	KeyCANInterfaces   = "can"
	KeySLCANPorts      = "slcan"
	KeySLCANBitrate    = "slcan-bitrate"
	KeyFingerprintFile = "fingerprint"
	KeyLogLevel        = "log-level"
)

const DefaultDetectionWindow = 2 * time.Second

// Service is the full runtime configuration of the car interface service.
type Service struct {
	Model           string
	RedisAddr       string
	DBPath          string
	SentryDSN       string
	DetectionWindow time.Duration
	CANInterfaces   []string
	SLCANPorts      []string
	SLCANBitrate    int
	FingerprintFile string
	LogLevel        string
	Flags           Flags
}

// RegisterServiceFlags adds the runtime flags of the run command to fs.
func RegisterServiceFlags(fs *pflag.FlagSet) {
	fs.String(KeyModel, "", "vehicle model identifier (see `models`)")
	fs.String(KeyRedisAddr, "127.0.0.1:6379", "redis address")
	fs.String(KeyDBPath, "/data/vehicle-interface.db", "sqlite database for sessions and crash reports (empty disables)")
	fs.String(KeySentryDSN, "", "sentry DSN for crash reports (empty disables)")
	fs.Duration(KeyDetectionWindow, DefaultDetectionWindow, "fingerprint detection window")
	fs.StringSlice(KeyCANInterfaces, []string{"can0", "can1", "can2"}, "socketcan interfaces for bus0, bus1 and bus2")
	fs.StringSlice(KeySLCANPorts, nil, "serial SLCAN adapters for bus0, bus1 and bus2 (overrides --can)")
	fs.Int(KeySLCANBitrate, 500000, "CAN bitrate for SLCAN adapters")
	fs.String(KeyFingerprintFile, "", "use a recorded fingerprint instead of listening")
}

// LoadService reads the service configuration from v.
func LoadService(v *viper.Viper) (Service, error) {
	s := Service{
		Model:           v.GetString(KeyModel),
		RedisAddr:       v.GetString(KeyRedisAddr),
		DBPath:          v.GetString(KeyDBPath),
		SentryDSN:       v.GetString(KeySentryDSN),
		DetectionWindow: v.GetDuration(KeyDetectionWindow),
		CANInterfaces:   v.GetStringSlice(KeyCANInterfaces),
		SLCANPorts:      v.GetStringSlice(KeySLCANPorts),
		SLCANBitrate:    v.GetInt(KeySLCANBitrate),
		FingerprintFile: v.GetString(KeyFingerprintFile),
		LogLevel:        v.GetString(KeyLogLevel),
		Flags:           FlagsFromViper(v),
	}
	if s.Model == "" {
		return Service{}, errors.New("no vehicle model configured")
	}
	if s.DetectionWindow <= 0 {
		s.DetectionWindow = DefaultDetectionWindow
	}
	if len(s.CANInterfaces) > 3 || len(s.SLCANPorts) > 3 {
		return Service{}, errors.New("at most three buses are supported")
	}
	return s, nil
}
