package logger

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]zap.AtomicLevel{
		"debug":   zap.NewAtomicLevelAt(zap.DebugLevel),
		"WARN":    zap.NewAtomicLevelAt(zap.WarnLevel),
		"warning": zap.NewAtomicLevelAt(zap.WarnLevel),
		"error":   zap.NewAtomicLevelAt(zap.ErrorLevel),
		"":        zap.NewAtomicLevelAt(zap.InfoLevel),
		"bogus":   zap.NewAtomicLevelAt(zap.InfoLevel),
	}
	for raw, want := range cases {
		assert.Equal(t, want.Level(), parseLevel(raw), raw)
	}
}

func TestNewWithFileSink(t *testing.T) {
	file := filepath.Join(t.TempDir(), "app.log")
	l := New(Options{Level: "debug", File: file, Production: true})
	assert.True(t, l.Core().Enabled(zap.DebugLevel))
	l.Info("hello")
	_ = l.Sync()
	assert.FileExists(t, file)
}
