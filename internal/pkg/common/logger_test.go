package common

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// observeLogs 以 observer 取代全局 logger，測試結束後還原
func observeLogs(t *testing.T, level zapcore.Level) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(level)
	prevLogger, prevMode := Logger, LogMode
	Logger = zap.New(core)
	t.Cleanup(func() {
		Logger, LogMode = prevLogger, prevMode
	})
	return logs
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, ParseLevel("DEBUG"))
	assert.Equal(t, zapcore.WarnLevel, ParseLevel("warn"))
	assert.Equal(t, zapcore.ErrorLevel, ParseLevel("error"))
	assert.Equal(t, zapcore.InfoLevel, ParseLevel("verbose"))
	assert.Equal(t, zapcore.InfoLevel, ParseLevel(""))
}

func TestLogFiltersSensitiveFields(t *testing.T) {
	logs := observeLogs(t, zapcore.DebugLevel)

	LogInfo("calling provider",
		zap.String("openrouter_api_key", "sk-secret"),
		zap.String("Authorization", "Bearer sk-secret"),
		zap.String("model", "gpt"),
	)

	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "gpt", fields["model"])
	assert.NotContains(t, fields, "openrouter_api_key")
	assert.NotContains(t, fields, "Authorization")
}

func TestConciseModeSuppressesInfo(t *testing.T) {
	logs := observeLogs(t, zapcore.DebugLevel)
	LogMode = "concise"

	LogInfo("匯入階段完成")
	LogInfo("請求完成")
	LogWarn("匯入階段無結果")

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "請求完成", entries[0].Message)
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
}

func TestLogImportStage(t *testing.T) {
	logs := observeLogs(t, zapcore.DebugLevel)

	LogImportStage("fetch", SourceWeb, errors.New("boom"), zap.String("url", "https://example.com"))
	LogImportStage("structured_data", SourceWeb, nil)

	entries := logs.All()
	require.Len(t, entries, 2)

	failed := entries[0].ContextMap()
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	assert.Equal(t, "fetch", failed["stage"])
	assert.Equal(t, "web", failed["source_type"])
	assert.Equal(t, "boom", failed["error"])
	assert.Equal(t, "https://example.com", failed["url"])

	assert.Equal(t, zapcore.DebugLevel, entries[1].Level)
	assert.Equal(t, "structured_data", entries[1].ContextMap()["stage"])
}
