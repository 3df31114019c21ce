package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZerologLoggerMethods(t *testing.T) {
	assert.NoError(t, os.Setenv("APP_ENV", "dev"))
	defer func() { assert.NoError(t, os.Unsetenv("APP_ENV")) }()
	l := NewZerologLogger("test")
	if l == nil {
		t.Fatalf("nil logger")
	}
	l.Debugf("debug %d", 1)
	l.Debugw("debug", map[string]any{"k": 1})
	l.Infof("info %s", "test")
	l.Warnf("warn")
	l.Errorf("error")
}

func TestZerologLoggerComponentField(t *testing.T) {
	var buf bytes.Buffer
	l := NewZerologLoggerWithWriter("dispatcher", &buf)
	l.Debugw("reserve", map[string]any{"evse": "DE*GEF*E1"})

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "dispatcher", line["component"])
	assert.Equal(t, "DE*GEF*E1", line["evse"])
	assert.Equal(t, "reserve", line["message"])
}

func TestZerologLoggerLevel(t *testing.T) {
	t.Setenv("LOG_LEVEL", "warn")
	var buf bytes.Buffer
	l := NewZerologLoggerWithWriter("x", &buf)
	l.Infof("hidden")
	assert.Zero(t, buf.Len())
	l.Warnf("shown")
	assert.Contains(t, buf.String(), "shown")
}
