// Package config manages the 802.1X daemon configuration using koanf/v2.
//
// Supports YAML files and environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// -------------------------------------------------------------------------
// Configuration Structures
// -------------------------------------------------------------------------

// Config holds the complete authenticator/supplicant daemon configuration.
type Config struct {
	GRPC    GRPCConfig    `koanf:"grpc"`
	Metrics MetricsConfig `koanf:"metrics"`
	Log     LogConfig     `koanf:"log"`
	Auth    AuthConfig    `koanf:"auth"`
	Supp    SuppConfig    `koanf:"supplicant"`
	Radius  RadiusConfig  `koanf:"radius"`
	Switch  SwitchConfig  `koanf:"switch"`
	Ports   []PortConfig  `koanf:"ports"`
}

// GRPCConfig holds the authenticator management RPC server configuration
// (SPEC_FULL.md Section 4.12).
type GRPCConfig struct {
	// Addr is the ConnectRPC listen address (e.g., ":50051").
	Addr string `koanf:"addr"`
}

// MetricsConfig holds the Prometheus metrics endpoint configuration.
type MetricsConfig struct {
	// Addr is the HTTP listen address for the metrics endpoint (e.g., ":9100").
	Addr string `koanf:"addr"`
	// Path is the URL path for the metrics endpoint (e.g., "/metrics").
	Path string `koanf:"path"`
}

// LogConfig holds the logging configuration.
type LogConfig struct {
	// Level is the log level: "debug", "info", "warn", "error".
	Level string `koanf:"level"`
	// Format is the log output format: "json" or "text".
	Format string `koanf:"format"`
}

// AuthConfig holds the default Authenticator PAE/Backend/Reauth timer
// parameters (spec.md Section 6, MIB defaults of 802.1X-2004 Section 9).
// Ports may override these individually via PortConfig or at runtime via
// the two-phase-commit management RPC (SPEC_FULL.md Section 4.12).
type AuthConfig struct {
	// PortControl is the default administrative mode: "force_unauth",
	// "force_auth", or "auto".
	PortControl string `koanf:"port_control"`

	// QuietPeriod is dot1xAuthQuietPeriod in seconds (default 60, bounds
	// [0,65535] per spec.md Section 4.10).
	QuietPeriod int `koanf:"quiet_period"`

	// ServerTimeout is dot1xAuthServerTimeout in seconds (default 30,
	// bounds [1,3600]).
	ServerTimeout int `koanf:"server_timeout"`

	// MaxRetrans is dot1xAuthMaxReq, the EAP-Request retransmission count
	// before the full-authenticator FSM declares TIMEOUT_FAILURE.
	MaxRetrans int `koanf:"max_retrans"`

	// ReAuthMax is dot1xAuthReAuthMax, the CONNECTING retry budget before
	// the PAE FSM gives up (default 2).
	ReAuthMax int `koanf:"reauth_max"`

	// ReAuthEnabled toggles dot1xAuthReAuthEnabled.
	ReAuthEnabled bool `koanf:"reauth_enabled"`

	// ReAuthPeriod is dot1xAuthReAuthPeriod in seconds (bounds
	// [ReAuthPeriodMin, ReAuthPeriodMax] per spec.md Section 4.10).
	ReAuthPeriod int `koanf:"reauth_period"`

	// NumPorts is the number of authenticator ports to manage (commonly
	// one per switch port bridged to the daemon).
	NumPorts int `koanf:"num_ports"`

	// IfaceName is the network interface the authenticator listens on
	// for EAPOL frames addressed to the PAE group MAC.
	IfaceName string `koanf:"iface_name"`
}

// SuppConfig holds supplicant-side peer/PAE policy timers (spec.md Section 6).
type SuppConfig struct {
	IfaceName     string `koanf:"iface_name"`
	Username      string `koanf:"username"`
	Password      string `koanf:"password"`
	StartPeriod   int    `koanf:"start_period"`
	MaxStart      int    `koanf:"max_start"`
	HeldPeriod    int    `koanf:"held_period"`
	AuthPeriod    int    `koanf:"auth_period"`
	ClientTimeout int    `koanf:"client_timeout"`
	AllowCanned   bool   `koanf:"allow_canned"`

	// Acceptable is the EAP method Nak ordering from config
	// (SPEC_FULL.md Section 6 supplemented feature): a preference list of
	// method names, e.g. ["md5", "tls", "identity"].
	Acceptable []string `koanf:"acceptable_methods"`
}

// RadiusConfig holds the authenticator's RADIUS client parameters
// (spec.md Section 4.8).
type RadiusConfig struct {
	ServerAddr string `koanf:"server_addr"`
	Secret     string `koanf:"secret"`
	NASIP      string `koanf:"nas_ip"`
}

// SwitchConfig holds the OVSDB connection and VLAN tags the switchport
// driver uses to express port authorization state (SPEC_FULL.md Section
// 4.11's switch-port enforcement component).
type SwitchConfig struct {
	// OVSDBAddr is the OVSDB server endpoint (e.g. "tcp:127.0.0.1:6640").
	// Empty disables switch-port enforcement.
	OVSDBAddr string `koanf:"ovsdb_addr"`

	// QuarantineVLAN is the VLAN tag applied while a port is Unauthorized.
	QuarantineVLAN int `koanf:"quarantine_vlan"`

	// ProductionVLAN is the VLAN tag applied once a port is Authorized.
	ProductionVLAN int `koanf:"production_vlan"`
}

// PortConfig overrides AuthConfig's defaults for a single port index.
type PortConfig struct {
	Index       int    `koanf:"index"`
	PortControl string `koanf:"port_control"`
}

// -------------------------------------------------------------------------
// Defaults
// -------------------------------------------------------------------------

// DefaultConfig returns a Config populated with the 802.1X-2004 Section 9
// MIB default values.
func DefaultConfig() *Config {
	return &Config{
		GRPC: GRPCConfig{
			Addr: ":50051",
		},
		Metrics: MetricsConfig{
			Addr: ":9100",
			Path: "/metrics",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Auth: AuthConfig{
			PortControl:   "auto",
			QuietPeriod:   60,
			ServerTimeout: 30,
			MaxRetrans:    2,
			ReAuthMax:     2,
			ReAuthEnabled: false,
			ReAuthPeriod:  3600,
			NumPorts:      1,
		},
		Supp: SuppConfig{
			StartPeriod:   30,
			MaxStart:      3,
			HeldPeriod:    60,
			AuthPeriod:    30,
			ClientTimeout: 10,
			AllowCanned:   true,
			Acceptable:    []string{"md5", "tls", "identity"},
		},
		Switch: SwitchConfig{
			QuarantineVLAN: 999,
			ProductionVLAN: 1,
		},
	}
}

// -------------------------------------------------------------------------
// Loader
// -------------------------------------------------------------------------

// envPrefix is the environment variable prefix for this daemon's
// configuration. Variables are named GO8021X_<section>_<key>, e.g.
// GO8021X_AUTH_QUIET_PERIOD.
const envPrefix = "GO8021X_"

// Load reads configuration from a YAML file at path, overlays environment
// variable overrides (GO8021X_ prefix), and merges on top of DefaultConfig().
// Missing fields inherit defaults.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	defaults := DefaultConfig()
	if err := loadDefaults(k, defaults); err != nil {
		return nil, fmt.Errorf("load config defaults: %w", err)
	}

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("load config from %s: %w", path, err)
	}

	if err := k.Load(env.Provider(envPrefix, ".", envKeyMapper), nil); err != nil {
		return nil, fmt.Errorf("load env overrides: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("validate config from %s: %w", path, err)
	}

	return cfg, nil
}

// envKeyMapper transforms GO8021X_AUTH_QUIET_PERIOD -> auth.quiet_period.
func envKeyMapper(s string) string {
	s = strings.TrimPrefix(s, envPrefix)
	s = strings.ToLower(s)
	return strings.Replace(s, "_", ".", 1)
}

// loadDefaults marshals the default config into koanf as the base layer.
func loadDefaults(k *koanf.Koanf, defaults *Config) error {
	defaultMap := map[string]any{
		"grpc.addr":              defaults.GRPC.Addr,
		"metrics.addr":           defaults.Metrics.Addr,
		"metrics.path":           defaults.Metrics.Path,
		"log.level":              defaults.Log.Level,
		"log.format":             defaults.Log.Format,
		"auth.port_control":      defaults.Auth.PortControl,
		"auth.quiet_period":      defaults.Auth.QuietPeriod,
		"auth.server_timeout":    defaults.Auth.ServerTimeout,
		"auth.max_retrans":       defaults.Auth.MaxRetrans,
		"auth.reauth_max":        defaults.Auth.ReAuthMax,
		"auth.reauth_enabled":    defaults.Auth.ReAuthEnabled,
		"auth.reauth_period":     defaults.Auth.ReAuthPeriod,
		"auth.num_ports":         defaults.Auth.NumPorts,
		"supplicant.start_period":   defaults.Supp.StartPeriod,
		"supplicant.max_start":      defaults.Supp.MaxStart,
		"supplicant.held_period":    defaults.Supp.HeldPeriod,
		"supplicant.auth_period":    defaults.Supp.AuthPeriod,
		"supplicant.client_timeout": defaults.Supp.ClientTimeout,
		"supplicant.allow_canned":   defaults.Supp.AllowCanned,
		"switch.quarantine_vlan":   defaults.Switch.QuarantineVLAN,
		"switch.production_vlan":   defaults.Switch.ProductionVLAN,
	}

	for key, val := range defaultMap {
		if err := k.Set(key, val); err != nil {
			return fmt.Errorf("set default %s: %w", key, err)
		}
	}

	return nil
}

// -------------------------------------------------------------------------
// Validation
// -------------------------------------------------------------------------

// Validation errors.
var (
	ErrEmptyGRPCAddr          = errors.New("grpc.addr must not be empty")
	ErrInvalidPortControl     = errors.New("auth.port_control must be force_unauth, force_auth, or auto")
	ErrInvalidQuietPeriod     = errors.New("auth.quiet_period must be in [0,65535]")
	ErrInvalidServerTimeout   = errors.New("auth.server_timeout must be in [1,3600]")
	ErrInvalidReAuthPeriod    = errors.New("auth.reauth_period must be in [10,86400]")
	ErrInvalidNumPorts        = errors.New("auth.num_ports must be >= 1")
	ErrInvalidAcceptableMethod = errors.New("supplicant.acceptable_methods contains an unrecognized method")
)

// ValidPortControlValues lists the recognized port_control strings.
var ValidPortControlValues = map[string]bool{
	"force_unauth": true,
	"force_auth":   true,
	"auto":         true,
}

// ValidMethodNames lists the recognized acceptable_methods strings
// (SPEC_FULL.md Section 6).
var ValidMethodNames = map[string]bool{
	"identity":     true,
	"notification": true,
	"md5":          true,
	"tls":          true,
}

// Validate checks the configuration for logical errors.
// Returns the first validation error encountered.
func Validate(cfg *Config) error {
	if cfg.GRPC.Addr == "" {
		return ErrEmptyGRPCAddr
	}

	if !ValidPortControlValues[cfg.Auth.PortControl] {
		return fmt.Errorf("auth.port_control=%q: %w", cfg.Auth.PortControl, ErrInvalidPortControl)
	}

	if cfg.Auth.QuietPeriod < 0 || cfg.Auth.QuietPeriod > 65535 {
		return ErrInvalidQuietPeriod
	}

	if cfg.Auth.ServerTimeout < 1 || cfg.Auth.ServerTimeout > 3600 {
		return ErrInvalidServerTimeout
	}

	if cfg.Auth.ReAuthEnabled && (cfg.Auth.ReAuthPeriod < 10 || cfg.Auth.ReAuthPeriod > 86400) {
		return ErrInvalidReAuthPeriod
	}

	if cfg.Auth.NumPorts < 1 {
		return ErrInvalidNumPorts
	}

	for _, m := range cfg.Supp.Acceptable {
		if !ValidMethodNames[m] {
			return fmt.Errorf("%q: %w", m, ErrInvalidAcceptableMethod)
		}
	}

	for i, pc := range cfg.Ports {
		if pc.PortControl != "" && !ValidPortControlValues[pc.PortControl] {
			return fmt.Errorf("ports[%d] port_control=%q: %w", i, pc.PortControl, ErrInvalidPortControl)
		}
	}

	return nil
}

// -------------------------------------------------------------------------
// Log Level Parsing
// -------------------------------------------------------------------------

// ParseLogLevel maps a configuration log level string to the corresponding
// slog.Level. Unknown values default to slog.LevelInfo.
func ParseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
