// Package config loads and validates the daemon's static configuration:
// logging, telemetry, metrics, the bus connection, and the capability
// policy file (spec.md §4.3). The engine's access check does not read
// the policy rules.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config is the daemon's static configuration.
//
// Configuration sources, in order of precedence:
//  1. Environment variables (SDBUSD_*), for keys present in a found
//     configuration file
//  2. Configuration file (YAML or TOML)
//  3. Default values (lowest priority)
//
// No CLI flag other than --config (which picks the file) is bound. When no
// file is found, the defaults are used unchanged.
type Config struct {
	Logging   LoggingConfig   `mapstructure:"logging" yaml:"logging"`
	Telemetry TelemetryConfig `mapstructure:"telemetry" yaml:"telemetry"`
	Metrics   MetricsConfig   `mapstructure:"metrics" yaml:"metrics"`

	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required,gt=0" yaml:"shutdown_timeout"`

	Bus        BusConfig        `mapstructure:"bus" yaml:"bus"`
	Capability CapabilityConfig `mapstructure:"capability" yaml:"capability"`
	Admin      AdminHTTPConfig  `mapstructure:"admin" yaml:"admin"`
}

// BusConfig describes the connection the engine dispatches over.
type BusConfig struct {
	// Address is the transport address: "system", "session", or a bare
	// unix://, tcp://, or vsock:// URI for direct peer-to-peer use.
	Address string `mapstructure:"address" validate:"required" yaml:"address"`

	// Name is the well-known bus name this daemon requests, if any.
	Name string `mapstructure:"name" yaml:"name,omitempty"`

	// Trusted marks the connection as trusted, bypassing access control
	// entirely (spec.md §4.3 step 1). Only meaningful for direct
	// peer-to-peer connections with no bus daemon mediating.
	Trusted bool `mapstructure:"trusted" yaml:"trusted"`
}

// CapabilityConfig points at the capability policy file and enables
// hot reload of it without restarting the daemon.
type CapabilityConfig struct {
	// PolicyPath is the YAML file mapping object-path prefixes to a Linux
	// capability. sdbusd serve loads and watches it; the engine's access
	// check does not consult it.
	PolicyPath string `mapstructure:"policy_path" yaml:"policy_path,omitempty"`

	// WatchForChanges enables fsnotify-driven hot reload of PolicyPath.
	WatchForChanges bool `mapstructure:"watch_for_changes" yaml:"watch_for_changes"`
}

// AdminHTTPConfig configures the debug/introspection HTTP surface
// (internal/adminapi).
type AdminHTTPConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Addr    string `mapstructure:"addr" validate:"omitempty,hostname_port" yaml:"addr,omitempty"`

	// JWTSigningKey authenticates admin HTTP requests. When Enabled is
	// true it must be at least 32 characters; the admin server refuses to
	// start with a shorter or empty key.
	JWTSigningKey string `mapstructure:"jwt_signing_key" yaml:"jwt_signing_key,omitempty"`
}

// LoggingConfig controls slog output (internal/logger).
type LoggingConfig struct {
	Level  string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error" yaml:"level"`
	Format string `mapstructure:"format" validate:"required,oneof=text json" yaml:"format"`
	Output string `mapstructure:"output" validate:"required" yaml:"output"`
}

// TelemetryConfig controls OpenTelemetry tracing around dispatch
// (internal/telemetry).
type TelemetryConfig struct {
	Enabled    bool            `mapstructure:"enabled" yaml:"enabled"`
	Endpoint   string          `mapstructure:"endpoint" yaml:"endpoint"`
	Insecure   bool            `mapstructure:"insecure" yaml:"insecure"`
	SampleRate float64         `mapstructure:"sample_rate" validate:"omitempty,gte=0,lte=1" yaml:"sample_rate"`
	Profiling  ProfilingConfig `mapstructure:"profiling" yaml:"profiling"`
}

// ProfilingConfig controls Pyroscope continuous profiling.
type ProfilingConfig struct {
	Enabled      bool     `mapstructure:"enabled" yaml:"enabled"`
	Endpoint     string   `mapstructure:"endpoint" yaml:"endpoint"`
	ProfileTypes []string `mapstructure:"profile_types" yaml:"profile_types"`
}

// MetricsConfig configures the Prometheus metrics HTTP server.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	Port    int  `mapstructure:"port" validate:"omitempty,min=1,max=65535" yaml:"port"`
}

const envPrefix = "SDBUSD"

// Load reads configuration from file, environment, and defaults, then
// validates it.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setupViper(v, configPath)

	found, err := readConfigFile(v)
	if err != nil {
		return nil, err
	}

	cfg := DefaultConfig()
	if found {
		if err := v.Unmarshal(cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config: %w", err)
		}
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func setupViper(v *viper.Viper, configPath string) {
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		return
	}
	v.SetConfigName("sdbusd")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/sdbusd")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".config", "sdbusd"))
	}
}

func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return false, nil
		}
		return false, fmt.Errorf("failed to read config file: %w", err)
	}
	return true, nil
}

var validatorInstance = validator.New(validator.WithRequiredStructEnabled())

// Validate runs struct-tag validation over cfg.
func Validate(cfg *Config) error {
	if err := validatorInstance.Struct(cfg); err != nil {
		return err
	}
	cfg.Logging.Level = strings.ToUpper(cfg.Logging.Level)
	return nil
}

// DefaultConfig returns a Config populated with production-sane defaults.
func DefaultConfig() *Config {
	return &Config{
		Logging: LoggingConfig{Level: "INFO", Format: "text", Output: "stdout"},
		Telemetry: TelemetryConfig{
			Enabled:    false,
			Endpoint:   "localhost:4317",
			Insecure:   true,
			SampleRate: 1.0,
			Profiling: ProfilingConfig{
				ProfileTypes: []string{"cpu", "alloc_objects", "alloc_space", "inuse_objects", "inuse_space", "goroutines"},
			},
		},
		Metrics:         MetricsConfig{Enabled: true, Port: 9090},
		ShutdownTimeout: 10 * time.Second,
		Bus:             BusConfig{Address: "system"},
		Capability:      CapabilityConfig{PolicyPath: "/etc/sdbusd/capabilities.yaml", WatchForChanges: true},
		Admin:           AdminHTTPConfig{Enabled: false, Addr: "127.0.0.1:8787"},
	}
}
