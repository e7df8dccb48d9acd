package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnvs(t *testing.T) {
	t.Helper()
	t.Setenv("BOT_TOKEN", "12345:ABCDEF")
	t.Setenv("BOT_USERNAME", "afk_test_bot")
}

func TestLoad_Success(t *testing.T) {
	setRequiredEnvs(t)
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "12345:ABCDEF", cfg.BotToken)
	assert.Equal(t, "afk_test_bot", cfg.BotUsername)
	assert.Equal(t, "production", cfg.Environment)
	assert.Equal(t, 8080, cfg.HTTPPort)
}

func TestLoad_MissingRequired(t *testing.T) {
	os.Clearenv()
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BOT_TOKEN")
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnvs(t)
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 30*time.Second, cfg.SweepInterval)
	assert.Equal(t, 2*time.Minute, cfg.SweepErrorBackoff)
	assert.Equal(t, "afkbot.db", cfg.DBPath)
	assert.Equal(t, "downloads", cfg.DownloadsDir)
	assert.Equal(t, 20, cfg.BroadcastRate)
	assert.Equal(t, time.Hour, cfg.BroadcastDraftTTL)
	assert.False(t, cfg.OwnerEnabled())
}

func TestLoad_CustomValues(t *testing.T) {
	setRequiredEnvs(t)
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("OWNER_ID", "777")
	t.Setenv("SWEEP_INTERVAL", "10s")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.HTTPPort)
	assert.Equal(t, int64(777), cfg.OwnerID)
	assert.True(t, cfg.OwnerEnabled())
	assert.Equal(t, 10*time.Second, cfg.SweepInterval)
}

func TestLoad_RejectsBackoffShorterThanInterval(t *testing.T) {
	setRequiredEnvs(t)
	t.Setenv("SWEEP_INTERVAL", "1m")
	t.Setenv("SWEEP_ERROR_BACKOFF", "10s")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SWEEP_ERROR_BACKOFF")
}

func TestLoad_FileOverlay(t *testing.T) {
	setRequiredEnvs(t)
	t.Setenv("SUPPORT_LINK", "https://t.me/support_chat")

	path := filepath.Join(t.TempDir(), "afkbot.yaml")
	content := "http_port: 9191\nsupport_url: ${SUPPORT_LINK}\nsweep_interval: 45s\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv("CONFIG_FILE", path)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9191, cfg.HTTPPort)
	assert.Equal(t, "https://t.me/support_chat", cfg.SupportURL)
	assert.Equal(t, 45*time.Second, cfg.SweepInterval)
	// Keys absent from the file keep their env/default value.
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoad_MissingFile(t *testing.T) {
	setRequiredEnvs(t)
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "nope.yaml"))
	_, err := Load()
	require.Error(t, err)
}

func TestConfig_IsDevelopment(t *testing.T) {
	cfg := &Config{Environment: "Development"}
	assert.True(t, cfg.IsDevelopment())
	cfg.Environment = "production"
	assert.False(t, cfg.IsDevelopment())
}
