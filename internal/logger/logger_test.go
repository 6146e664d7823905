package logger

import (
	"bytes"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]LogLevel{
		"none":  LogLevelNone,
		"0":     LogLevelNone,
		"error": LogLevelError,
		"WARN":  LogLevelWarning,
		"2":     LogLevelWarning,
		"info":  LogLevelInfo,
		"":      LogLevelInfo,
		"debug": LogLevelDebug,
		"4":     LogLevelDebug,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(log.New(&buf, "", 0), LogLevelWarning)

	l.Debugf("debug %d", 1)
	l.Infof("info %d", 2)
	l.Warnf("warn %d", 3)
	l.Errorf("error %d", 4)

	out := buf.String()
	assert.NotContains(t, out, "debug 1")
	assert.NotContains(t, out, "info 2")
	assert.Contains(t, out, "WARN: warn 3")
	assert.Contains(t, out, "ERROR: error 4")
}

func TestWithTag(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(log.New(&buf, "", 0), LogLevelInfo).WithTag("engine")

	l.Infof("cycle %d", 7)
	assert.Equal(t, "[engine] cycle 7\n", buf.String())
}

func TestNilLoggerDiscards(t *testing.T) {
	l := NewLogger(nil, LogLevelDebug)
	assert.NotPanics(t, func() {
		l.Debugf("x")
		l.Errorf("y")
	})
	assert.NotPanics(t, func() { Nop().Warnf("z") })
}
