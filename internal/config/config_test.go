package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadKeepsDefaultsForMissingKeys(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.toml", `
[server]
port = 8080

[flight_phases]
cruise_policy = "plan_relative"
liftoff_speed_kts = 40
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, "plan_relative", cfg.FlightPhases.CruisePolicy)
	assert.Equal(t, 40.0, cfg.FlightPhases.LiftoffSpeedKts)
	assert.Equal(t, 5.0, cfg.FlightPhases.MovingSpeedKts)
	assert.Equal(t, 30, cfg.Staleness.RetentionMinutes)
	assert.Equal(t, "wss://24data.ptfs.app/wss", cfg.Stream.URL)
}

func TestLoadRejectsBadTOML(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.toml", "[server\nport = ")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadWithFallbackExplicitPathMustExist(t *testing.T) {
	_, err := LoadWithFallback(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestLoadWithFallbackUsesDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := LoadWithFallback("")
	require.NoError(t, err)
	assert.Equal(t, 2424, cfg.Server.Port)
}

func TestApplyEnvOverridesFileValues(t *testing.T) {
	dir := t.TempDir()
	envFile := writeFile(t, dir, ".env", "AUTH_TOKEN=from-dotenv\nATC_UPDATE_INTERVAL=15\n")
	t.Setenv("PORT", "9090")
	t.Setenv("WEBSOCKET_URL", "ws://localhost:9999/wss")

	cfg := Default()
	require.NoError(t, cfg.ApplyEnv(envFile))
	t.Cleanup(func() {
		os.Unsetenv("AUTH_TOKEN")
		os.Unsetenv("ATC_UPDATE_INTERVAL")
	})

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "ws://localhost:9999/wss", cfg.Stream.URL)
	assert.Equal(t, "from-dotenv", cfg.Auth.Token)
	assert.Equal(t, 15, cfg.Controllers.ATCIntervalSecs)
}

func TestApplyEnvRejectsNonNumericPort(t *testing.T) {
	t.Setenv("PORT", "http")
	cfg := Default()
	assert.Error(t, cfg.ApplyEnv(filepath.Join(t.TempDir(), "none.env")))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "defaults", mutate: func(c *Config) {}},
		{name: "bad port", mutate: func(c *Config) { c.Server.Port = 70000 }, wantErr: true},
		{name: "http stream url", mutate: func(c *Config) { c.Stream.URL = "http://example" }, wantErr: true},
		{name: "unknown cruise policy", mutate: func(c *Config) { c.FlightPhases.CruisePolicy = "average" }, wantErr: true},
		{name: "moving above liftoff", mutate: func(c *Config) {
			c.FlightPhases.MovingSpeedKts = 60
			c.FlightPhases.LiftoffSpeedKts = 50
		}, wantErr: true},
		{name: "bad log level", mutate: func(c *Config) { c.Logging.Level = "trace" }, wantErr: true},
		{name: "retention shorter than liveness", mutate: func(c *Config) {
			c.Staleness.RetentionMinutes = 1
			c.Staleness.LivenessTimeoutSecs = 120
		}, wantErr: true},
		{name: "zero values get defaults", mutate: func(c *Config) {
			c.Staleness = StalenessConfig{}
			c.Statistics = StatisticsConfig{}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, 60, cfg.Staleness.SweepIntervalSecs)
			assert.Equal(t, 120.0, cfg.Statistics.MaxOffBlockMinutes)
		})
	}
}
