package logging

import (
	"strings"
	"testing"

	"github.com/fyrsmithlabs/ragd/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestSecretField(t *testing.T) {
	secret := config.Secret("super-secret-value")

	core, observed := observer.New(zapcore.InfoLevel)
	logger := zap.New(core)

	logger.Info("test secret", Secret("password", secret))

	logs := observed.All()
	require.Len(t, logs, 1)

	var found bool
	for _, field := range logs[0].Context {
		if field.Key != "password" {
			continue
		}
		marshaler, ok := field.Interface.(zapcore.ObjectMarshaler)
		require.True(t, ok, "password field is not an object marshaler")

		enc := zapcore.NewMapObjectEncoder()
		require.NoError(t, marshaler.MarshalLogObject(enc))
		assert.Equal(t, "[REDACTED:18]", enc.Fields["password"])
		found = true
	}
	assert.True(t, found, "password field not found")
}

func TestRedactedString(t *testing.T) {
	core, observed := observer.New(zapcore.InfoLevel)
	logger := zap.New(core)

	logger.Info("test", RedactedString("api_key", "sk-1234567890abcdef"))

	logs := observed.All()
	require.Len(t, logs, 1)

	var found bool
	for _, f := range logs[0].Context {
		if f.Key == "api_key" {
			assert.Equal(t, "[REDACTED:19]", f.String)
			found = true
		}
	}
	assert.True(t, found, "api_key field not found")
}

func TestRedactingEncoder_EncodesRedacted(t *testing.T) {
	enc, err := NewRedactingEncoder(newEncoder("json"), RedactionConfig{
		Enabled:  true,
		Fields:   []string{"api_key"},
		Patterns: []string{`\bsk-[A-Za-z0-9_-]{20,}`},
	})
	require.NoError(t, err)

	enc.AddString("api_key", "sk-plain")
	enc.AddString("note", "request used sk-ABCDEFGHIJKLMNOPQRSTUV inline")
	enc.AddString("disease", "influenza")

	buf, err := enc.EncodeEntry(zapcore.Entry{Level: zapcore.InfoLevel, Message: "m"}, nil)
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, `"api_key":"[REDACTED]"`)
	assert.Contains(t, out, `"note":"[REDACTED:pattern]"`)
	assert.Contains(t, out, `"disease":"influenza"`)
	assert.NotContains(t, out, "sk-ABCDEFGHIJKLMNOPQRSTUV")
}

func TestRedactingEncoder_KeyMatchIsCaseInsensitive(t *testing.T) {
	enc, err := NewRedactingEncoder(newEncoder("json"), RedactionConfig{
		Enabled: true,
		Fields:  []string{"api_key"},
	})
	require.NoError(t, err)

	enc.AddString("API_KEY", "sk-plain")

	buf, err := enc.EncodeEntry(zapcore.Entry{Level: zapcore.InfoLevel, Message: "m"}, nil)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), `"API_KEY":"[REDACTED]"`)
}

func TestNewRedactingEncoder_Defaults(t *testing.T) {
	cfg := NewDefaultConfig()

	encoder, err := NewRedactingEncoder(newEncoder("json"), cfg.Redaction)
	require.NoError(t, err)
	require.NotNil(t, encoder)
	assert.Len(t, encoder.redactFields, len(cfg.Redaction.Fields))
	assert.Len(t, encoder.redactRegex, len(cfg.Redaction.Patterns))
}

func TestNewRedactingEncoder_InvalidPattern(t *testing.T) {
	cfg := RedactionConfig{
		Enabled:  true,
		Fields:   []string{"password"},
		Patterns: []string{`(?i)bearer\s+\S+`, "[invalid("},
	}

	encoder, err := NewRedactingEncoder(newEncoder("json"), cfg)
	require.Error(t, err)
	assert.Nil(t, encoder)
	assert.Contains(t, err.Error(), "invalid redaction pattern")
	assert.Contains(t, err.Error(), "[invalid(")
}

func TestNewRedactingEncoder_PatternTooLong(t *testing.T) {
	cfg := RedactionConfig{
		Enabled:  true,
		Patterns: []string{strings.Repeat("a", maxPatternLength+1)},
	}

	encoder, err := NewRedactingEncoder(newEncoder("json"), cfg)
	require.Error(t, err)
	assert.Nil(t, encoder)
	assert.Contains(t, err.Error(), "pattern too long")
}

func TestNewRedactingEncoder_DisabledSkipsValidation(t *testing.T) {
	cfg := RedactionConfig{
		Enabled:  false,
		Patterns: []string{"[invalid("},
	}

	encoder, err := NewRedactingEncoder(newEncoder("json"), cfg)
	require.NoError(t, err)
	assert.NotNil(t, encoder)
}

func TestRedactingEncoder_AllMethodsImplemented(t *testing.T) {
	cfg := RedactionConfig{
		Enabled: true,
		Fields:  []string{"password", "token", "certificate", "credentials", "secret_array"},
	}

	encoder, err := NewRedactingEncoder(newEncoder("json"), cfg)
	require.NoError(t, err)

	assert.NotPanics(t, func() {
		encoder.AddString("password", "secret")
		encoder.AddByteString("token", []byte("token-value"))
		encoder.AddBinary("certificate", []byte{0x00})
		_ = encoder.AddReflected("safe_field", "value")
		_ = encoder.AddObject("credentials", zapcore.ObjectMarshalerFunc(func(enc zapcore.ObjectEncoder) error {
			return nil
		}))
		_ = encoder.AddArray("secret_array", zapcore.ArrayMarshalerFunc(func(enc zapcore.ArrayEncoder) error {
			return nil
		}))
	})
}

func TestRedactingEncoder_Clone(t *testing.T) {
	encoder, err := NewRedactingEncoder(newEncoder("json"), RedactionConfig{
		Enabled: true,
		Fields:  []string{"api_key"},
	})
	require.NoError(t, err)

	clone, ok := encoder.Clone().(*RedactingEncoder)
	require.True(t, ok, "clone should stay a RedactingEncoder")
	assert.True(t, clone.shouldRedactKey("api_key"))
}
