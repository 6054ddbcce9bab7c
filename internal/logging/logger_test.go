package logging

import (
	"fmt"
	"os"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	cfg := NewDefaultConfig()

	logger, err := New(cfg, nil)
	require.NoError(t, err)
	require.NotNil(t, logger)
}

func TestNew_ConsoleFormat(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Format = "console"

	logger, err := New(cfg, nil)
	require.NoError(t, err)
	require.NotNil(t, logger)
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Format = "xml"

	logger, err := New(cfg, nil)
	require.Error(t, err)
	assert.Nil(t, logger)
	assert.Contains(t, err.Error(), "invalid config")
}

func TestNewDualCore_StdoutOnly(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Output.Stdout = true
	cfg.Output.OTEL = false

	core, err := newDualCore(cfg, nil)
	require.NoError(t, err)
	assert.NotNil(t, core)
}

func TestNewDualCore_BothOutputs(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Output.Stdout = true
	cfg.Output.OTEL = true

	// Nil provider: the OTEL core is skipped, stdout still works
	core, err := newDualCore(cfg, nil)
	require.NoError(t, err)
	assert.NotNil(t, core)
}

func TestNewDualCore_NoAvailableOutputs(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Output.Stdout = false
	cfg.Output.OTEL = true

	// OTEL enabled but no provider leaves zero cores
	_, err := newDualCore(cfg, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least one output")
}

func TestNewEncoder(t *testing.T) {
	entry := zapcore.Entry{Level: zapcore.InfoLevel, Message: "hello", Time: time.Now()}

	buf, err := newEncoder("json").EncodeEntry(entry, nil)
	require.NoError(t, err)
	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "{"), "json output should be an object: %s", out)
	assert.Contains(t, out, `"ts"`)
	assert.Contains(t, out, `"msg":"hello"`)

	buf, err = newEncoder("console").EncodeEntry(entry, nil)
	require.NoError(t, err)
	assert.False(t, strings.HasPrefix(buf.String(), "{"), "console output should not be JSON")
}

func TestIsStdoutSyncError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "einval", err: syscall.EINVAL, want: true},
		{name: "enotty", err: syscall.ENOTTY, want: true},
		{name: "wrapped einval", err: fmt.Errorf("sync /dev/stdout: %w", syscall.EINVAL), want: true},
		{name: "other errno", err: syscall.EPERM, want: false},
		{name: "unrelated error", err: os.ErrNotExist, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isStdoutSyncError(tt.err))
		})
	}
}

func TestSync(t *testing.T) {
	cfg := NewDefaultConfig()
	logger, err := New(cfg, nil)
	require.NoError(t, err)

	// Syncing a stdout-backed logger must not surface EINVAL/ENOTTY
	assert.NoError(t, Sync(logger))
}
