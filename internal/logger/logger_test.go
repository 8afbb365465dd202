package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLevels(t *testing.T) {
	for _, level := range []string{"debug", "info", "WARN", "error"} {
		l, err := New(level, "console")
		require.NoError(t, err, level)
		require.NotNil(t, l)
	}
}

func TestNewJSON(t *testing.T) {
	l, err := New("info", "json")
	require.NoError(t, err)
	assert.NotNil(t, l.With("component", "test").SugaredLogger)
}

func TestNewInvalidLevel(t *testing.T) {
	_, err := New("loud", "console")
	assert.Error(t, err)
}

func TestNopDoesNotPanic(t *testing.T) {
	l := Nop()
	l.Info("hello", "k", "v")
	l.With("run_id", "x").Warn("careful")
	l.Sync()
}
