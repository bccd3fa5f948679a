package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv(EnvConfigPath, "")
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, DefaultDBPath, cfg.Database.Path)
	assert.Equal(t, ProviderLog, cfg.Notify.Provider)
	assert.False(t, cfg.Server.Debug)
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "orderdesk.yaml")
	data := `
server:
  addr: ":9000"
  read_timeout: 3s
database:
  path: /tmp/shop.db
notify:
  provider: WEBHOOK
  webhook_url: http://hooks.local/orders
  timeout: 2s
rate_limit:
  rps: 1
  burst: 2
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	t.Setenv(EnvAddr, ":9100")
	t.Setenv(EnvDebug, "true")
	t.Setenv(EnvRateBurst, "7")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9100", cfg.Server.Addr)
	assert.Equal(t, 3*time.Second, cfg.Server.ReadTimeout)
	assert.True(t, cfg.Server.Debug)
	assert.Equal(t, "/tmp/shop.db", cfg.Database.Path)
	assert.Equal(t, ProviderWebhook, cfg.Notify.Provider)
	assert.Equal(t, 2*time.Second, cfg.Notify.Timeout)
	assert.Equal(t, 1.0, cfg.RateLimit.RPS)
	assert.Equal(t, 7, cfg.RateLimit.Burst)
}

func TestLoadErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})

	t.Run("bad env value", func(t *testing.T) {
		t.Setenv(EnvDebug, "maybe")
		_, err := Load("")
		assert.ErrorIs(t, err, ErrInvalidConfig)
	})

	t.Run("webhook without url", func(t *testing.T) {
		t.Setenv(EnvNotifyProvider, "webhook")
		_, err := Load("")
		assert.ErrorIs(t, err, ErrInvalidConfig)
	})

	t.Run("unknown provider", func(t *testing.T) {
		t.Setenv(EnvNotifyProvider, "pigeon")
		_, err := Load("")
		assert.ErrorIs(t, err, ErrInvalidConfig)
	})
}

func TestResolveDBPath(t *testing.T) {
	cfg := Default()
	cfg.Database.Path = ":memory:"
	path, err := cfg.ResolveDBPath()
	require.NoError(t, err)
	assert.Equal(t, ":memory:", path)

	cfg.Database.Path = filepath.Join(t.TempDir(), "nested", "shop.db")
	path, err = cfg.ResolveDBPath()
	require.NoError(t, err)
	assert.DirExists(t, filepath.Dir(path))
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := LogConfig{Level: "warn", Format: "json"}.NewLogger(&buf)
	logger.Info("hidden")
	logger.Warn("shown", "order_number", "ORD000001")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"order_number":"ORD000001"`)
}
