package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Config represents the main application configuration structure
// containing all configuration sections
type Config struct {
	Server       ServerConfig       `toml:"server"`        // HTTP server settings
	Stream       StreamConfig       `toml:"stream"`        // Upstream event stream settings
	FlightPhases FlightPhasesConfig `toml:"flight_phases"` // Flight phase detection settings
	Staleness    StalenessConfig    `toml:"staleness"`     // Liveness and retention timers
	Statistics   StatisticsConfig   `toml:"statistics"`    // Per-origin duration statistics
	Controllers  ControllersConfig  `toml:"controllers"`   // Controller / ATIS REST polling
	Auth         AuthConfig         `toml:"auth"`          // Write surface authentication
	Storage      StorageConfig      `toml:"storage"`       // Flight-plan cache
	Logging      LoggingConfig      `toml:"logging"`       // Application logging settings
}

// ServerConfig contains HTTP server configuration settings
type ServerConfig struct {
	Port               int      `toml:"port"`                  // HTTP port for the server
	Host               string   `toml:"host"`                  // Host address to bind to (0.0.0.0 for all interfaces)
	CORSAllowedOrigins []string `toml:"cors_allowed_origins"`  // Origins allowed for CORS requests (["*"] for all origins)
	ReadTimeoutSecs    int      `toml:"read_timeout_seconds"`  // Maximum duration for reading the entire request
	WriteTimeoutSecs   int      `toml:"write_timeout_seconds"` // Maximum duration for writing the response
	IdleTimeoutSecs    int      `toml:"idle_timeout_seconds"`  // Keep-alive idle timeout
	StaticFilesDir     string   `toml:"static_files_dir"`      // Directory holding the dashboard pages
}

// StreamConfig contains the upstream websocket settings
type StreamConfig struct {
	URL                  string `toml:"url"`                       // Event stream endpoint (wss://...)
	ReconnectDelaySecs   int    `toml:"reconnect_delay_seconds"`   // Fixed delay between reconnect attempts
	HandshakeTimeoutSecs int    `toml:"handshake_timeout_seconds"` // Websocket handshake timeout
	ReadTimeoutSecs      int    `toml:"read_timeout_seconds"`      // Connection is recycled if nothing arrives for this long
	MaxMessageSizeBytes  int64  `toml:"max_message_size_bytes"`    // Upper bound for a single frame
}

// FlightPhasesConfig contains thresholds for phase inference
type FlightPhasesConfig struct {
	// Cruise policy
	// Allowed values:
	// - "fixed": cruise when at or above cruise_altitude_ft
	// - "plan_relative": cruise when within plan_cruise_band_ft of the filed level
	CruisePolicy string `toml:"cruise_policy"`

	CruiseAltitudeFt      float64 `toml:"cruise_altitude_ft"`       // Fixed cruise threshold, also the fallback when no level was filed
	MovingSpeedKts        float64 `toml:"moving_speed_kts"`         // Below this on the ground the aircraft is stationary
	LiftoffSpeedKts       float64 `toml:"liftoff_speed_kts"`        // At or above this on the ground the aircraft is rolling for takeoff
	DescentCutoffSpeedKts float64 `toml:"descent_cutoff_speed_kts"` // Below this, a climbing/cruising aircraft under the threshold is descending
	PlanCruiseBandFt      float64 `toml:"plan_cruise_band_ft"`      // plan_relative: cruise when within this of the filed level
	PlanDescentBandFt     float64 `toml:"plan_descent_band_ft"`     // plan_relative: descent when more than this below the filed level
}

// StalenessConfig contains the reaper timers
type StalenessConfig struct {
	LivenessTimeoutSecs       int `toml:"liveness_timeout_seconds"`        // Records without telemetry for this long are not live
	LivenessCheckIntervalSecs int `toml:"liveness_check_interval_seconds"` // How often liveness is re-evaluated
	RetentionMinutes          int `toml:"retention_minutes"`               // Records idle for this long are deleted
	TimelineCeilingMinutes    int `toml:"timeline_ceiling_minutes"`        // Milestone timelines older than this are deleted
	SweepIntervalSecs         int `toml:"sweep_interval_seconds"`          // Retention sweep period
}

// StatisticsConfig contains the origin statistics settings
type StatisticsConfig struct {
	WindowMinutes      int     `toml:"window_minutes"`        // Trailing window on plan-filed time
	MaxOffBlockMinutes float64 `toml:"max_off_block_minutes"` // Plausibility ceiling for off-block durations
	MaxTaxiMinutes     float64 `toml:"max_taxi_minutes"`      // Plausibility ceiling for taxi durations
}

// ControllersConfig contains the controller / ATIS polling settings
type ControllersConfig struct {
	Enabled            bool   `toml:"enabled"`                 // Poll the upstream REST API
	APIBaseURL         string `toml:"api_base_url"`            // Base URL, /controllers and /atis are appended
	ATCIntervalSecs    int    `toml:"atc_interval_seconds"`    // Controller refresh period
	ATISIntervalSecs   int    `toml:"atis_interval_seconds"`   // ATIS refresh period
	RequestTimeoutSecs int    `toml:"request_timeout_seconds"` // Per-request HTTP timeout
	MaxRetries         int    `toml:"max_retries"`             // Retries per poll with exponential backoff
}

// AuthConfig contains the shared-secret for the event write surface
type AuthConfig struct {
	Token string `toml:"token"` // Bearer token; empty rejects every write
}

// StorageConfig contains data persistence settings
type StorageConfig struct {
	PlanCachePath string `toml:"plan_cache_path"` // SQLite file for the flight-plan cache, empty disables it
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level      string `toml:"level"`        // debug, info, warn, error
	Format     string `toml:"format"`       // console or json
	File       string `toml:"file"`         // Optional rotating log file
	MaxSizeMB  int    `toml:"max_size_mb"`  // Rotate after this size
	MaxAgeDays int    `toml:"max_age_days"` // Delete rotated files older than this
	MaxBackups int    `toml:"max_backups"`  // Number of rotated files to keep
	Compress   bool   `toml:"compress"`     // Gzip rotated files
}

// Default returns a configuration populated with the built-in defaults
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:               "0.0.0.0",
			Port:               2424,
			CORSAllowedOrigins: []string{"*"},
			ReadTimeoutSecs:    15,
			WriteTimeoutSecs:   15,
			IdleTimeoutSecs:    60,
			StaticFilesDir:     "www",
		},
		Stream: StreamConfig{
			URL:                  "wss://24data.ptfs.app/wss",
			ReconnectDelaySecs:   2,
			HandshakeTimeoutSecs: 10,
			ReadTimeoutSecs:      60,
			MaxMessageSizeBytes:  4 << 20,
		},
		FlightPhases: FlightPhasesConfig{
			CruisePolicy:          "fixed",
			CruiseAltitudeFt:      25000,
			MovingSpeedKts:        5,
			LiftoffSpeedKts:       50,
			DescentCutoffSpeedKts: 300,
			PlanCruiseBandFt:      300,
			PlanDescentBandFt:     500,
		},
		Staleness: StalenessConfig{
			LivenessTimeoutSecs:       10,
			LivenessCheckIntervalSecs: 2,
			RetentionMinutes:          30,
			TimelineCeilingMinutes:    120,
			SweepIntervalSecs:         60,
		},
		Statistics: StatisticsConfig{
			WindowMinutes:      60,
			MaxOffBlockMinutes: 120,
			MaxTaxiMinutes:     60,
		},
		Controllers: ControllersConfig{
			Enabled:            true,
			APIBaseURL:         "https://24data.ptfs.app",
			ATCIntervalSecs:    10,
			ATISIntervalSecs:   30,
			RequestTimeoutSecs: 5,
			MaxRetries:         2,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "console",
			MaxSizeMB:  50,
			MaxAgeDays: 7,
			MaxBackups: 5,
		},
	}
}

// Load loads the configuration from the specified file path.
// Keys missing from the file keep their default values.
func Load(path string) (*Config, error) {
	config := Default()

	// Check if the file exists
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s", path)
	}

	if _, err := toml.DecodeFile(path, config); err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}

	return config, nil
}

// LoadWithFallback loads the configuration by checking multiple locations in order of preference.
// When no file exists the defaults are returned; an explicitly requested path must exist.
func LoadWithFallback(preferredPath string) (*Config, error) {
	if preferredPath != "" {
		if _, err := os.Stat(preferredPath); err != nil {
			return nil, fmt.Errorf("config file not found: %s", preferredPath)
		}
		return Load(preferredPath)
	}

	for _, path := range []string{"configs/config.toml", "config.toml"} {
		if _, err := os.Stat(path); err == nil {
			config, err := Load(path)
			if err != nil {
				return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
			}
			return config, nil
		}
	}

	return Default(), nil
}

// ApplyEnv loads an optional .env file and overlays the environment on top of the config.
// envFile may be empty, a missing file is not an error.
func (c *Config) ApplyEnv(envFile string) error {
	if envFile == "" {
		envFile = ".env"
	}
	if _, err := os.Stat(envFile); err == nil {
		if err := godotenv.Load(envFile); err != nil {
			return fmt.Errorf("failed to load env file %s: %w", envFile, err)
		}
	}

	setString(&c.Server.Host, "HOST")
	setString(&c.Stream.URL, "WEBSOCKET_URL")
	setString(&c.Controllers.APIBaseURL, "EXTERNAL_API_URL")
	setString(&c.Auth.Token, "AUTH_TOKEN")
	setString(&c.Logging.Level, "LOG_LEVEL")
	setString(&c.Storage.PlanCachePath, "PLAN_CACHE_PATH")

	if err := setInt(&c.Server.Port, "PORT"); err != nil {
		return err
	}
	if err := setInt(&c.Controllers.ATCIntervalSecs, "ATC_UPDATE_INTERVAL"); err != nil {
		return err
	}
	if err := setInt(&c.Controllers.ATISIntervalSecs, "ATIS_UPDATE_INTERVAL"); err != nil {
		return err
	}
	return nil
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return fmt.Errorf("invalid %s value %q: %w", key, v, err)
	}
	*dst = n
	return nil
}

// Validate validates the configuration and fills zero values with defaults
func (c *Config) Validate() error {
	// Validate server config
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.StaticFilesDir == "" {
		c.Server.StaticFilesDir = "www"
	}

	// Validate stream config
	if c.Stream.URL == "" {
		return fmt.Errorf("stream url is required")
	}
	if !strings.HasPrefix(c.Stream.URL, "ws://") && !strings.HasPrefix(c.Stream.URL, "wss://") {
		return fmt.Errorf("invalid stream url: %s (must start with ws:// or wss://)", c.Stream.URL)
	}
	if c.Stream.ReconnectDelaySecs <= 0 {
		c.Stream.ReconnectDelaySecs = 2
	}
	if c.Stream.HandshakeTimeoutSecs <= 0 {
		c.Stream.HandshakeTimeoutSecs = 10
	}
	if c.Stream.MaxMessageSizeBytes <= 0 {
		c.Stream.MaxMessageSizeBytes = 4 << 20
	}

	if err := c.ValidateFlightPhases(); err != nil {
		return err
	}
	if err := c.ValidateStaleness(); err != nil {
		return err
	}

	// Validate statistics config
	if c.Statistics.WindowMinutes <= 0 {
		c.Statistics.WindowMinutes = 60
	}
	if c.Statistics.MaxOffBlockMinutes <= 0 {
		c.Statistics.MaxOffBlockMinutes = 120
	}
	if c.Statistics.MaxTaxiMinutes <= 0 {
		c.Statistics.MaxTaxiMinutes = 60
	}

	// Validate controllers config
	if c.Controllers.Enabled && c.Controllers.APIBaseURL == "" {
		return fmt.Errorf("controllers api_base_url is required when controllers polling is enabled")
	}
	c.Controllers.APIBaseURL = strings.TrimRight(c.Controllers.APIBaseURL, "/")
	if c.Controllers.ATCIntervalSecs <= 0 {
		c.Controllers.ATCIntervalSecs = 10
	}
	if c.Controllers.ATISIntervalSecs <= 0 {
		c.Controllers.ATISIntervalSecs = 30
	}
	if c.Controllers.RequestTimeoutSecs <= 0 {
		c.Controllers.RequestTimeoutSecs = 5
	}
	if c.Controllers.MaxRetries < 0 {
		return fmt.Errorf("invalid controllers max_retries: %d (must be >= 0)", c.Controllers.MaxRetries)
	}

	// Validate logging config
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "console"
	}
	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		return fmt.Errorf("invalid log format: %s", c.Logging.Format)
	}

	return nil
}

// ValidateFlightPhases validates the phase thresholds
func (c *Config) ValidateFlightPhases() error {
	fp := &c.FlightPhases

	if fp.CruisePolicy == "" {
		fp.CruisePolicy = "fixed"
	}
	if fp.CruisePolicy != "fixed" && fp.CruisePolicy != "plan_relative" {
		return fmt.Errorf("invalid cruise_policy: %s (must be 'fixed' or 'plan_relative')", fp.CruisePolicy)
	}
	if fp.CruiseAltitudeFt <= 0 {
		fp.CruiseAltitudeFt = 25000
	}
	if fp.MovingSpeedKts <= 0 {
		fp.MovingSpeedKts = 5
	}
	if fp.LiftoffSpeedKts <= 0 {
		fp.LiftoffSpeedKts = 50
	}
	if fp.DescentCutoffSpeedKts <= 0 {
		fp.DescentCutoffSpeedKts = 300
	}
	if fp.PlanCruiseBandFt <= 0 {
		fp.PlanCruiseBandFt = 300
	}
	if fp.PlanDescentBandFt <= 0 {
		fp.PlanDescentBandFt = 500
	}

	if fp.MovingSpeedKts >= fp.LiftoffSpeedKts {
		return fmt.Errorf("moving_speed_kts (%.0f) must be below liftoff_speed_kts (%.0f)", fp.MovingSpeedKts, fp.LiftoffSpeedKts)
	}
	if fp.PlanDescentBandFt < fp.PlanCruiseBandFt {
		return fmt.Errorf("plan_descent_band_ft (%.0f) must not be below plan_cruise_band_ft (%.0f)", fp.PlanDescentBandFt, fp.PlanCruiseBandFt)
	}
	return nil
}

// ValidateStaleness validates the reaper timers
func (c *Config) ValidateStaleness() error {
	s := &c.Staleness

	if s.LivenessTimeoutSecs <= 0 {
		s.LivenessTimeoutSecs = 10
	}
	if s.LivenessCheckIntervalSecs <= 0 {
		s.LivenessCheckIntervalSecs = 2
	}
	if s.RetentionMinutes <= 0 {
		s.RetentionMinutes = 30
	}
	if s.TimelineCeilingMinutes <= 0 {
		s.TimelineCeilingMinutes = 120
	}
	if s.SweepIntervalSecs <= 0 {
		s.SweepIntervalSecs = 60
	}

	if s.RetentionMinutes*60 <= s.LivenessTimeoutSecs {
		return fmt.Errorf("retention_minutes (%d) must exceed the liveness timeout (%ds)", s.RetentionMinutes, s.LivenessTimeoutSecs)
	}
	return nil
}
