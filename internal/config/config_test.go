package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	yaml := `
server:
  host: 0.0.0.0
  port: 8080
database:
  host: localhost
  port: 5432
  user: whereyou
  password: secret
  dbname: whereyou
  sslmode: disable
apns:
  key_path: AuthKey.p8
  key_id: ABC123DEFG
  team_id: TEAM456789
  topic: com.example.whereyou
  production: false
jwt:
  secret: supersecret
sweep:
  interval: 1m
log:
  level: debug
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "com.example.whereyou", cfg.APNs.Topic)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t,
		"host=localhost port=5432 user=whereyou password=secret dbname=whereyou sslmode=disable",
		cfg.Database.DSN())
	assert.Equal(t, time.Minute, cfg.Sweep.Duration())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestSweepDurationDefaults(t *testing.T) {
	tests := []struct {
		interval string
		want     time.Duration
	}{
		{"", time.Minute},
		{"30s", 30 * time.Second},
		{"5m", 5 * time.Minute},
		{"garbage", time.Minute},
		{"-10s", time.Minute},
	}

	for _, tt := range tests {
		cfg := SweepConfig{Interval: tt.interval}
		assert.Equal(t, tt.want, cfg.Duration(), "interval %q", tt.interval)
	}
}
