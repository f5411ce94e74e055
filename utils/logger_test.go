package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/amirphl/inox-pricing/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name        string
		cfg         config.LoggingConfig
		expectError bool
	}{
		{
			name: "stdout json",
			cfg:  config.LoggingConfig{Level: "info", Format: "json", Output: "stdout"},
		},
		{
			name: "text with caller and stacktrace",
			cfg:  config.LoggingConfig{Level: "debug", Format: "text", Output: "stdout", EnableCaller: true, EnableStacktrace: true},
		},
		{
			name:        "unknown level",
			cfg:         config.LoggingConfig{Level: "verbose", Output: "stdout"},
			expectError: true,
		},
		{
			name:        "unknown output",
			cfg:         config.LoggingConfig{Level: "info", Output: "syslog"},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := NewLogger(tt.cfg)
			if tt.expectError {
				assert.Error(t, err)
				assert.Nil(t, logger)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, logger)
		})
	}
}

func TestNewLoggerWritesRotatedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	logger, err := NewLogger(config.LoggingConfig{
		Level:      "info",
		Format:     "json",
		Output:     "file",
		FilePath:   path,
		MaxSize:    1,
		MaxBackups: 1,
	})
	require.NoError(t, err)

	logger.Info("rule set loaded")
	require.NoError(t, logger.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"rule set loaded"`)
}
