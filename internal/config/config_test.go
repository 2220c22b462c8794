package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ShatskikhS/NotifyMe/internal/domain"
)

// isolate runs the test in an empty directory so no stray .env is picked up.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)

	cfg, err := Load([]string{"--port", "3000"})
	require.NoError(t, err)

	assert.Equal(t, 3000, cfg.Port)
	assert.Equal(t, ":3000", cfg.Addr())
	assert.False(t, cfg.Debug)
	assert.Equal(t, "data/allNotifications.json", cfg.NotificationsFile)
	assert.Equal(t, 5*time.Second, cfg.ReadTimeout)
	assert.Equal(t, 10*time.Second, cfg.WriteTimeout)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, 100, cfg.RateLimitRequests)
	assert.Equal(t, 15*time.Minute, cfg.RateLimitWindow)
	assert.Equal(t, 10, cfg.ChannelRateLimit)
	assert.Equal(t, 5*time.Second, cfg.SchedulerInterval)
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, domain.DefaultSources, cfg.AllowedSources)
	assert.Equal(t, "data/notifications.log", cfg.LogfilePath)
	assert.Equal(t, "https://api.telegram.org", cfg.TelegramBaseURL)
	assert.Equal(t, 10*time.Second, cfg.TelegramTimeout)
	assert.False(t, cfg.TelegramEnabled())
}

func TestLoad_PortRequired(t *testing.T) {
	isolate(t)

	_, err := Load(nil)
	require.ErrorIs(t, err, ErrInvalidConfig)
	assert.Contains(t, err.Error(), "port is required")
}

func TestLoad_ShortFlags(t *testing.T) {
	isolate(t)

	cfg, err := Load([]string{"-p", "8080", "-d", "--notifications-file", "store/n.json"})
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Port)
	assert.True(t, cfg.Debug)
	assert.Equal(t, "store/n.json", cfg.NotificationsFile)
}

func TestLoad_EnvOverridesDefault(t *testing.T) {
	isolate(t)
	t.Setenv("PORT", "4000")
	t.Setenv("WORKERS", "8")
	t.Setenv("SCHEDULER_INTERVAL", "250ms")
	t.Setenv("ALLOWED_SOURCES", "cron, backup ,")
	t.Setenv("TELEGRAM_TOKEN", "tok")
	t.Setenv("TELEGRAM_CHAT_ID", "42")

	cfg, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, 4000, cfg.Port)
	assert.Equal(t, 8, cfg.Workers)
	assert.Equal(t, 250*time.Millisecond, cfg.SchedulerInterval)
	assert.Equal(t, []string{"cron", "backup"}, cfg.AllowedSources)
	assert.True(t, cfg.TelegramEnabled())
}

func TestLoad_EmptyEnvFallsBackToDefault(t *testing.T) {
	isolate(t)
	t.Setenv("PORT", "3000")
	t.Setenv("NOTIFICATIONS_FILE", "")

	cfg, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, "data/allNotifications.json", cfg.NotificationsFile)
}

func TestLoad_FlagOverridesEnv(t *testing.T) {
	isolate(t)
	t.Setenv("PORT", "4000")
	t.Setenv("DEBUG", "false")

	cfg, err := Load([]string{"--port=5000", "--debug"})
	require.NoError(t, err)
	assert.Equal(t, 5000, cfg.Port)
	assert.True(t, cfg.Debug)
}

func TestLoad_DotEnvFile(t *testing.T) {
	dir := isolate(t)
	content := "PORT=6000\nDEBUG=true\nSMTP_ADDR=mail.local:25\nSMTP_FROM=a@b.c\nSMTP_TO=d@e.f\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, DefaultConfigFile), []byte(content), 0o644))

	cfg, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, 6000, cfg.Port)
	assert.True(t, cfg.Debug)
	assert.Equal(t, SMTP{Addr: "mail.local:25", From: "a@b.c", To: "d@e.f"}, cfg.SMTP)
}

func TestLoad_EnvOverridesDotEnv(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, DefaultConfigFile), []byte("PORT=6000\n"), 0o644))
	t.Setenv("PORT", "7000")

	cfg, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, 7000, cfg.Port)
}

func TestLoad_ExplicitYAMLConfig(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "notifyme.yaml")
	content := "port: 9000\nworkers: 2\nallowed_sources:\n  - cron\n  - ci\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load([]string{"--config", path})
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, 2, cfg.Workers)
	assert.Equal(t, []string{"cron", "ci"}, cfg.AllowedSources)
}

func TestLoad_MissingExplicitConfig(t *testing.T) {
	dir := isolate(t)

	_, err := Load([]string{"--port", "1", "--config", filepath.Join(dir, "nope.yaml")})
	require.ErrorIs(t, err, ErrInvalidConfig)
}

func TestLoad_Help(t *testing.T) {
	isolate(t)

	_, err := Load([]string{"-h"})
	assert.True(t, errors.Is(err, pflag.ErrHelp))
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		args []string
		env  map[string]string
		want string
	}{
		{"port not a number", []string{"--port", "abc"}, nil, "invalid argument"},
		{"port env not a number", nil, map[string]string{"PORT": "abc"}, "not a number"},
		{"port too large", []string{"--port", "70000"}, nil, "out of range"},
		{"negative port", []string{"--port=-1"}, nil, "out of range"},
		{"wrong extension", []string{"-p", "1", "--notifications-file", "data/n.txt"}, nil, ".json extension"},
		{"prohibited symbol", []string{"-p", "1", "--notifications-file", "data/n?.json"}, nil, "prohibited symbols"},
		{"bad log level", []string{"-p", "1", "--log-level", "loud"}, nil, "log level"},
		{"zero workers", []string{"-p", "1"}, map[string]string{"WORKERS": "0"}, "workers"},
		{"bad duration", []string{"-p", "1"}, map[string]string{"READ_TIMEOUT": "soon"}, "read_timeout"},
		{"unknown flag", []string{"--colour"}, nil, "unknown flag"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load(tt.args)
			require.ErrorIs(t, err, ErrInvalidConfig)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
