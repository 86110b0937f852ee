package logger

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Tests in this file mutate package state and must not run in parallel.

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	Setup(&buf)
	SetLevel(LevelWarn)
	t.Cleanup(func() { SetLevel(LevelInfo) })

	Info("hidden %d", 1)
	Debug("hidden %d", 2)
	Warn("shown %s", "warn")
	Error("shown %s", "error")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown warn")
	assert.Contains(t, out, "shown error")
}

func TestConnLoggerCarriesFields(t *testing.T) {
	var buf bytes.Buffer
	Setup(&buf)
	SetLevel(LevelDebug)
	t.Cleanup(func() { SetLevel(LevelInfo) })

	l := Conn("c-1", "127.0.0.1:5555")
	l.Info().Msg("client connected")

	out := buf.String()
	assert.Contains(t, out, "client connected")
	assert.Contains(t, out, "conn=c-1")
	assert.Contains(t, out, "remote=127.0.0.1:5555")
}

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]Level{
		"debug":   LevelDebug,
		"INFO":    LevelInfo,
		"":        LevelInfo,
		"warning": LevelWarn,
		"error":   LevelError,
	} {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseLevel("loud")
	assert.Error(t, err)
}
