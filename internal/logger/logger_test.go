package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisabledByDefault(t *testing.T) {
	require.NoError(t, Init(Options{}))
	assert.False(t, Enabled(slog.LevelError))
	Info("dropped", "k", 1)
}

func TestInitTextLevelFilter(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, Init(Options{Enabled: true, Level: slog.LevelInfo, Output: &out}))
	t.Cleanup(func() { _ = Init(Options{}) })

	assert.False(t, Enabled(slog.LevelDebug))
	assert.True(t, Enabled(slog.LevelWarn))

	Debug("hidden")
	Info("segment mapped", "size", 4096)

	assert.NotContains(t, out.String(), "hidden")
	assert.Contains(t, out.String(), "segment mapped")
	assert.Contains(t, out.String(), "size=4096")
}

func TestInitJSON(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, Init(Options{Enabled: true, Level: slog.LevelDebug, Output: &out, JSON: true}))
	t.Cleanup(func() { _ = Init(Options{}) })

	Debug("thread init", "id", 7)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &rec))
	assert.Equal(t, "thread init", rec["msg"])
	assert.EqualValues(t, 7, rec["id"])
}

func TestInitLogDirAndRetention(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, logPrefix+time.Now().AddDate(0, 0, -retentionDays-5).Format("2006-01-02")+logSuffix)
	require.NoError(t, os.WriteFile(old, []byte("stale\n"), 0o644))
	unrelated := filepath.Join(dir, "other.log")
	require.NoError(t, os.WriteFile(unrelated, nil, 0o644))

	require.NoError(t, Init(Options{Enabled: true, Level: slog.LevelInfo, LogDir: dir}))
	Warn("cache full")
	require.NoError(t, Init(Options{}))

	_, err := os.Stat(old)
	assert.True(t, os.IsNotExist(err), "stale log should be removed")
	_, err = os.Stat(unrelated)
	assert.NoError(t, err)

	today := filepath.Join(dir, logPrefix+time.Now().Format("2006-01-02")+logSuffix)
	data, err := os.ReadFile(today)
	require.NoError(t, err)
	assert.Contains(t, string(data), "cache full")
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
		ok   bool
	}{
		{"debug", slog.LevelDebug, true},
		{" INFO ", slog.LevelInfo, true},
		{"warning", slog.LevelWarn, true},
		{"error", slog.LevelError, true},
		{"off", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseLevel(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}
