package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    zap.AtomicLevel
		wantErr bool
	}{
		{"", zap.NewAtomicLevelAt(zap.InfoLevel), false},
		{"DEBUG", zap.NewAtomicLevelAt(zap.DebugLevel), false},
		{"warning", zap.NewAtomicLevelAt(zap.WarnLevel), false},
		{"error", zap.NewAtomicLevelAt(zap.ErrorLevel), false},
		{"loud", zap.NewAtomicLevelAt(zap.InfoLevel), true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want.Level(), got)
		})
	}
}

func TestNew(t *testing.T) {
	logger, err := New("warn", false)
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zap.InfoLevel))
	assert.True(t, logger.Core().Enabled(zap.WarnLevel))

	dev, err := New("debug", true)
	require.NoError(t, err)
	assert.True(t, dev.Core().Enabled(zap.DebugLevel))

	_, err = New("loud", false)
	assert.Error(t, err)
}

func TestToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "treepilot.log")
	logger, err := ToFile(path, "info")
	require.NoError(t, err)
	logger.Info("layout done", zap.Int("nodes", 9))
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"layout done"`)
	assert.Contains(t, string(data), `"nodes":9`)
}
