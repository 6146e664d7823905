package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vehicle-interface/internal/config"
	"vehicle-interface/internal/fingerprint"
	"vehicle-interface/internal/logger"
	"vehicle-interface/internal/store"
	"vehicle-interface/internal/telemetry"
	"vehicle-interface/internal/types"
	"vehicle-interface/internal/vehicle"
)

// execute runs the root command against an isolated config file.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("log-level: none\n"), 0o644))

	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--config", cfgPath}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func writeFingerprint(t *testing.T, model string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fingerprint.yaml")
	set := fingerprint.NewSet(
		fingerprint.Fingerprint{fingerprint.MsgSCC11: 8, fingerprint.MsgSAS11: 5},
		fingerprint.Fingerprint{fingerprint.MsgMDPS12: 8},
		fingerprint.Fingerprint{},
	)
	require.NoError(t, fingerprint.SaveFile(path, fingerprint.NewFile(model, nil, set)))
	return path
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "vehicle-interface", cmd.Use)
	assert.Equal(t, version, cmd.Version)
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	for _, name := range []string{"run", "record", "resolve", "models", "sessions"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)
			assert.Equal(t, name, sub.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	format := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, format)
	assert.Equal(t, "text", format.DefValue)

	level := cmd.PersistentFlags().Lookup(config.KeyLogLevel)
	require.NotNil(t, level)
	assert.Equal(t, "info", level.DefValue)

	assert.NotNil(t, cmd.PersistentFlags().Lookup("config"))
}

func TestRunCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	run, _, err := cmd.Find([]string{"run"})
	require.NoError(t, err)

	redis := run.Flags().Lookup(config.KeyRedisAddr)
	require.NotNil(t, redis)
	assert.Equal(t, "127.0.0.1:6379", redis.DefValue)

	window := run.Flags().Lookup(config.KeyDetectionWindow)
	require.NotNil(t, window)
	assert.Equal(t, "2s", window.DefValue)

	for _, key := range []string{config.KeyLongControl, config.KeyMadMode, config.KeyLCANHarness, config.KeyTPMSAlerts} {
		assert.NotNil(t, run.Flags().Lookup(key), key)
	}
}

func TestInvalidFormat(t *testing.T) {
	_, err := execute(t, "models", "--format", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestModelsCommand(t *testing.T) {
	out, err := execute(t, "models")
	require.NoError(t, err)
	assert.Contains(t, out, "SONATA\n")
	assert.Contains(t, out, "PALISADE\n")

	out, err = execute(t, "models", "--format", "json")
	require.NoError(t, err)
	var models []string
	require.NoError(t, json.Unmarshal([]byte(out), &models))
	assert.Len(t, models, len(vehicle.Models()))
}

func TestResolveCommandJSON(t *testing.T) {
	path := writeFingerprint(t, "SONATA")

	out, err := execute(t, "resolve", "--fingerprint", path, "--format", "json")
	require.NoError(t, err)

	var cfg struct {
		Model    string                 `json:"model"`
		Topology types.HardwareTopology `json:"topology"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &cfg))
	assert.Equal(t, "SONATA", cfg.Model)
	assert.Equal(t, types.Bus1, cfg.Topology.SteeringBus)
	assert.Equal(t, types.Bus0, cfg.Topology.AngleSensorBus)
	assert.Equal(t, types.Bus0, cfg.Topology.AdaptiveCruiseBus)
	assert.Equal(t, types.SafetyCommunity, cfg.Topology.SafetyModel)
}

func TestResolveCommandText(t *testing.T) {
	path := writeFingerprint(t, "")

	out, err := execute(t, "resolve", "--fingerprint", path, "--model", "PALISADE")
	require.NoError(t, err)
	assert.Regexp(t, `model\s+PALISADE`, out)
	assert.Regexp(t, `steering bus\s+bus1`, out)
	assert.Regexp(t, `radar is external\s+false`, out)
	assert.Regexp(t, `bus0 messages\s+688 1056\n`, out)
	assert.Regexp(t, `bus1 messages\s+593\n`, out)
	assert.Regexp(t, `bus2 messages\s*\n`, out)
}

func TestResolveCommandReadsEnvironment(t *testing.T) {
	t.Setenv("VI_LCAN_HARNESS", "true")
	path := writeFingerprint(t, "SONATA")

	out, err := execute(t, "resolve", "--fingerprint", path, "--format", "json")
	require.NoError(t, err)

	var cfg config.VehicleConfiguration
	require.NoError(t, json.Unmarshal([]byte(out), &cfg))
	assert.True(t, cfg.Flags.LCANHarness)
	assert.Equal(t, types.Bus0, cfg.Topology.SteeringBus, "the harness marker keeps steering on bus0")
}

func TestResolveCommandErrors(t *testing.T) {
	_, err := execute(t, "resolve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fingerprint file is required")

	_, err = execute(t, "resolve", "--fingerprint", writeFingerprint(t, ""))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no vehicle model")

	_, err = execute(t, "resolve", "--fingerprint", writeFingerprint(t, "DELOREAN"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, vehicle.ErrUnknownModel))
}

func TestSessionsCommand(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "sessions.db")
	st, err := store.NewStore(dbPath)
	require.NoError(t, err)

	ctx := context.Background()
	sess, err := st.CreateSession(ctx, "SONATA", fingerprint.NewSet(), types.HardwareTopology{
		SteeringBus:       types.Bus0,
		AngleSensorBus:    types.Bus0,
		AdaptiveCruiseBus: types.BusNone,
		SafetyModel:       types.SafetyCommunity,
	})
	require.NoError(t, err)
	require.NoError(t, st.Capture(ctx, telemetry.Report{
		Kind:    telemetry.KindFault,
		Message: "publish failed",
		Tags:    map[string]string{store.SessionTag: sess.ID},
		Time:    time.Now(),
	}))
	require.NoError(t, st.Close())

	out, err := execute(t, "sessions", "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, sess.ID)
	assert.Contains(t, out, "hyundaiCommunity")

	out, err = execute(t, "sessions", "--db", dbPath, sess.ID)
	require.NoError(t, err)
	assert.Contains(t, out, "publish failed")
}

func TestRunServiceFailsWithoutRedis(t *testing.T) {
	svc := config.Service{
		Model:           string(vehicle.Sonata),
		RedisAddr:       "127.0.0.1:0",
		DetectionWindow: 10 * time.Millisecond,
	}
	err := runService(context.Background(), svc, logger.Nop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to start car interface")
}

func TestRunServiceRejectsUnknownModel(t *testing.T) {
	svc := config.Service{Model: "DELOREAN", RedisAddr: "127.0.0.1:0"}
	err := runService(context.Background(), svc, logger.Nop())
	assert.True(t, errors.Is(err, vehicle.ErrUnknownModel))
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	l, err := newLogger(&buf, "debug")
	require.NoError(t, err)
	assert.Equal(t, logger.LogLevelDebug, l.Level())

	_, err = newLogger(&buf, "loud")
	assert.Error(t, err)
}
