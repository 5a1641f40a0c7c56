package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"codeberg.org/mutker/mongeu/internal/config"
	"codeberg.org/mutker/mongeu/internal/errors"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "mongeu.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
listen_addrs = ["127.0.0.1"]
listen_port = 8080
base_uri = "http://gpu01.example.org/"
log_level = "debug"

[oneshot]
enabled = true
duration = 250

[gc]
min_age = 3600
min_campaigns = 16

[cache]
max_age = 60

[journal]
enabled = true
path = "/tmp/journal.db"
`)
	t.Setenv("MONGEU_CONFIG", path)

	cfg, err := config.Load(nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"127.0.0.1"}, cfg.ListenAddrs)
	assert.Equal(t, uint16(8080), cfg.ListenPort)
	assert.Equal(t, "http://gpu01.example.org", cfg.RedirectBase())
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.True(t, cfg.Oneshot.Enabled)
	assert.Equal(t, 250*time.Millisecond, cfg.OneshotDuration())
	assert.Equal(t, time.Hour, cfg.GCMinAge())
	assert.Equal(t, 16, cfg.GC.MinCampaigns)
	assert.Equal(t, time.Minute, cfg.MaxAge())
	assert.True(t, cfg.Journal.Enabled)
	assert.Equal(t, "/tmp/journal.db", cfg.Journal.Path)
	assert.True(t, cfg.Metrics.Enabled, "metrics stay enabled unless disabled")
}

func TestLoadDefaults(t *testing.T) {
	// Ensure no config file is used
	t.Setenv("MONGEU_CONFIG", "")

	cfg, err := config.Load(nil)
	require.NoError(t, err)

	assert.Equal(t, config.DefaultListenAddrs, cfg.ListenAddrs)
	assert.Equal(t, uint16(config.DefaultListenPort), cfg.ListenPort)
	assert.False(t, cfg.Oneshot.Enabled)
	assert.Equal(t, 500*time.Millisecond, cfg.OneshotDuration())
	assert.Equal(t, 24*time.Hour, cfg.GCMinAge())
	assert.Equal(t, 65536, cfg.GC.MinCampaigns)
	assert.Zero(t, cfg.MaxAge())
	assert.Equal(t, config.DefaultLogLevel, cfg.LogLevel)
	assert.False(t, cfg.Journal.Enabled)
	assert.Equal(t, config.DefaultJournalPath, cfg.Journal.Path)
	assert.Zero(t, cfg.Dev.FakeDevices)
}

func TestFlagsOverrideFile(t *testing.T) {
	path := writeConfig(t, `
listen_port = 8080

[gc]
min_campaigns = 16
`)

	cfg, err := config.Load([]string{
		"--config", path,
		"--port", "9090",
		"--oneshot",
		"--oneshot-duration", "50",
		"--listen", "::1",
		"--listen", "127.0.0.1",
	})
	require.NoError(t, err)

	assert.Equal(t, uint16(9090), cfg.ListenPort, "flag wins over file")
	assert.Equal(t, 16, cfg.GC.MinCampaigns, "file wins over flag default")
	assert.True(t, cfg.Oneshot.Enabled)
	assert.Equal(t, 50*time.Millisecond, cfg.OneshotDuration())
	assert.Equal(t, []string{"::1", "127.0.0.1"}, cfg.ListenAddrs)
}

func TestLoadConfigFileInvalidFormat(t *testing.T) {
	path := writeConfig(t, `
This is not a valid TOML file
`)
	t.Setenv("MONGEU_CONFIG", path)

	_, err := config.Load(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Failed to read config file")
	assert.True(t, errors.HasCode(err, errors.ErrReadConfig))
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := config.Load(nil, config.WithConfigFile(filepath.Join(t.TempDir(), "missing.toml")))
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrReadConfig))
}

func TestInvalidLogLevel(t *testing.T) {
	path := writeConfig(t, `
log_level = "invalid"
`)
	t.Setenv("MONGEU_CONFIG", path)

	_, err := config.Load(nil)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrInvalidLogLevel))
}

func TestValidate(t *testing.T) {
	t.Setenv("MONGEU_CONFIG", "")

	tests := []struct {
		name string
		args []string
	}{
		{"zero oneshot duration", []string{"--oneshot-duration", "0"}},
		{"oneshot duration overflows", []string{"--oneshot-duration", "9223372036855"}},
		{"zero gc age", []string{"--gc-min-age", "0"}},
		{"gc age overflows", []string{"--gc-min-age", "9223372037"}},
		{"max age overflows", []string{"--max-age", "9223372037"}},
		{"zero gc threshold", []string{"--gc-min-campaigns", "0"}},
		{"hostname listen address", []string{"--listen", "localhost"}},
		{"negative fake devices", []string{"--fake-devices", "-1"}},
		{"journal without path", []string{"--journal", "--journal-path", ""}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.Load(tt.args)
			require.Error(t, err)
			assert.True(t, errors.HasCode(err, errors.ErrInvalidConfig))
		})
	}
}

func TestValidateLargestDurations(t *testing.T) {
	t.Setenv("MONGEU_CONFIG", "")

	cfg, err := config.Load([]string{
		"--oneshot-duration", "9223372036854",
		"--gc-min-age", "9223372036",
		"--max-age", "9223372036",
	})
	require.NoError(t, err)
	assert.Positive(t, cfg.OneshotDuration())
	assert.Positive(t, cfg.GCMinAge())
	assert.Positive(t, cfg.MaxAge())
}

func TestHelpFlag(t *testing.T) {
	_, err := config.Load([]string{"--help"})
	require.Error(t, err)
	assert.ErrorIs(t, err, pflag.ErrHelp)
}
