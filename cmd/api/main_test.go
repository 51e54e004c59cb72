package main

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm/logger"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, parseLevel("WARN"))
	assert.Equal(t, slog.LevelInfo, parseLevel("verbose"))
}

func TestGormLogLevelFollowsLogLevel(t *testing.T) {
	tests := []struct {
		level string
		want  logger.LogLevel
	}{
		{"debug", logger.Info},
		{"info", logger.Info},
		{"warn", logger.Warn},
		{"error", logger.Error},
		{"", logger.Info},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, gormLogLevel(tt.level), "LOG_LEVEL=%q", tt.level)
	}
}
