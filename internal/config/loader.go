// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
)

// Mode represents the server operating mode.
type Mode string

const (
	ModeProduction Mode = "production"
	ModeDev        Mode = "dev"
)

// ParseMode parses a mode string, returning an error for invalid values.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "production", "":
		return ModeProduction, nil
	case "dev":
		return ModeDev, nil
	default:
		return "", fmt.Errorf("invalid mode %q: must be one of production, dev", s)
	}
}

// LoaderOptions controls how configuration is loaded.
type LoaderOptions struct {
	// ConfigPath is the path to a TOML config file (optional).
	// If provided but the file is missing or invalid, loading fails.
	ConfigPath string

	// ModeFlag is the --mode flag value (overrides config file mode).
	ModeFlag string

	// FlagOverrides are CLI flag values that override config file values.
	FlagOverrides FlagOverrides

	// Logger is used for warning messages (e.g., undecoded keys).
	// If nil, slog.Default() is used.
	Logger *slog.Logger
}

// FlagOverrides holds CLI flag values that override config file values.
type FlagOverrides struct {
	ListenAddr     *string
	ExternalOrigin *string
	StoreDriver    *string
	DataDir        *string
	MailDriver     *string
}

// envOverrides holds secrets and deploy-time settings read from the
// environment. Environment values win over the config file.
type envOverrides struct {
	ListenAddr     string `env:"COACHLINK_LISTEN_ADDR"`
	ExternalOrigin string `env:"COACHLINK_EXTERNAL_ORIGIN"`
	StoreDriver    string `env:"COACHLINK_STORE_DRIVER"`
	DataDir        string `env:"COACHLINK_DATA_DIR"`
	SendGridAPIKey string `env:"SENDGRID_API_KEY"`
	JWTSecret      string `env:"COACHLINK_JWT_SECRET"`
}

// fileConfig mirrors Config but with pointer sections to detect presence.
type fileConfig struct {
	Mode string `toml:"mode"`

	ListenAddr     string `toml:"listen_addr"`
	ExternalOrigin string `toml:"external_origin"`

	Server *serverFileConfig `toml:"server"`
	Store  *storeFileConfig  `toml:"store"`
	Mail   *mailFileConfig   `toml:"mail"`
	Auth   *authFileConfig   `toml:"auth"`
}

type serverFileConfig struct {
	CORSAllowedOrigins []string `toml:"cors_allowed_origins"`
	ShutdownTimeoutMS  int      `toml:"shutdown_timeout_ms"`
}

type storeFileConfig struct {
	Driver  string         `toml:"driver"`
	DataDir string         `toml:"data_dir"`
	Drivers map[string]any `toml:"drivers"`
}

type mailFileConfig struct {
	Driver         string `toml:"driver"`
	FromAddress    string `toml:"from_address"`
	FromName       string `toml:"from_name"`
	SendGridAPIKey string `toml:"sendgrid_api_key"`
}

type authFileConfig struct {
	SessionTTLHours int    `toml:"session_ttl_hours"`
	SessionCookie   string `toml:"session_cookie"`
	JWTSecret       string `toml:"jwt_secret"`
}

// Load loads configuration with the following precedence:
//  1. Determine effective mode: --mode flag > mode in config file > default (production)
//  2. Start from mode preset defaults
//  3. Overlay TOML config file values
//  4. Overlay environment variables
//  5. Overlay CLI flags
//  6. Validate enum fields
//
// If ConfigPath is provided but the file is missing, unreadable, or invalid
// TOML, Load returns an error (fail fast). Unknown/undecoded TOML keys
// produce a warning but do not fail the load.
func Load(opts LoaderOptions) (*Config, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var fc fileConfig

	// Step 1: Load TOML file if provided
	if opts.ConfigPath != "" {
		data, err := os.ReadFile(opts.ConfigPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", opts.ConfigPath, err)
		}
		md, err := toml.Decode(string(data), &fc)
		if err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", opts.ConfigPath, err)
		}

		// Warn about undecoded keys (do not fail)
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, len(undecoded))
			for i, k := range undecoded {
				keys[i] = k.String()
			}
			logger.Warn("config file contains undecoded keys", "path", opts.ConfigPath, "keys", keys)
		}
	}

	// Step 2: Determine effective mode
	modeStr := "production"
	if fc.Mode != "" {
		modeStr = fc.Mode
	}
	if opts.ModeFlag != "" {
		modeStr = opts.ModeFlag
	}

	mode, err := ParseMode(modeStr)
	if err != nil {
		return nil, err
	}

	// Step 3: Start from mode preset
	cfg := presetForMode(mode)

	// Step 4: Overlay TOML values
	if opts.ConfigPath != "" {
		overlayFileConfig(cfg, &fc)
	}

	// Step 5: Overlay environment variables
	if err := overlayEnv(cfg); err != nil {
		return nil, err
	}

	// Step 6: Overlay CLI flags
	overlayFlags(cfg, opts.FlagOverrides)

	// Step 7: Validate enum fields (fatal on invalid values)
	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// presetForMode returns the base config for a given mode.
func presetForMode(mode Mode) *Config {
	if mode == ModeDev {
		return DevConfig()
	}
	return ProductionConfig()
}

// ProductionConfig returns production-safe defaults.
func ProductionConfig() *Config {
	return &Config{
		Mode:           string(ModeProduction),
		ListenAddr:     ":9300",
		ExternalOrigin: "https://app.coachlink.io",
		Server: ServerConfig{
			CORSAllowedOrigins: nil,
			ShutdownTimeoutMS:  10000,
		},
		Store: StoreConfig{
			Driver:  "sqlite",
			DataDir: ".coachlink",
		},
		Mail: MailConfig{
			Driver:      "sendgrid",
			FromAddress: "invites@coachlink.io",
			FromName:    "Coachlink",
		},
		Auth: AuthConfig{
			SessionTTLHours: 72,
			SessionCookie:   "session",
		},
	}
}

// DevConfig returns development mode defaults: in-memory storage and
// captured (never sent) mail.
func DevConfig() *Config {
	return &Config{
		Mode:           string(ModeDev),
		ListenAddr:     ":9300",
		ExternalOrigin: "http://localhost:9300",
		Server: ServerConfig{
			CORSAllowedOrigins: []string{"http://localhost:3000"},
			ShutdownTimeoutMS:  2000,
		},
		Store: StoreConfig{
			Driver:  "memory",
			DataDir: ".coachlink",
		},
		Mail: MailConfig{
			Driver:      "capture",
			FromAddress: "invites@localhost",
			FromName:    "Coachlink Dev",
		},
		Auth: AuthConfig{
			SessionTTLHours: 720,
			SessionCookie:   "session",
		},
	}
}

// overlayFileConfig applies TOML file values onto cfg.
func overlayFileConfig(cfg *Config, fc *fileConfig) {
	if fc.ListenAddr != "" {
		cfg.ListenAddr = fc.ListenAddr
	}
	if fc.ExternalOrigin != "" {
		cfg.ExternalOrigin = fc.ExternalOrigin
	}

	if fc.Server != nil {
		if len(fc.Server.CORSAllowedOrigins) > 0 {
			cfg.Server.CORSAllowedOrigins = fc.Server.CORSAllowedOrigins
		}
		if fc.Server.ShutdownTimeoutMS != 0 {
			cfg.Server.ShutdownTimeoutMS = fc.Server.ShutdownTimeoutMS
		}
	}

	if fc.Store != nil {
		if fc.Store.Driver != "" {
			cfg.Store.Driver = fc.Store.Driver
		}
		if fc.Store.DataDir != "" {
			cfg.Store.DataDir = fc.Store.DataDir
		}
		if len(fc.Store.Drivers) > 0 {
			cfg.Store.Drivers = fc.Store.Drivers
		}
	}

	if fc.Mail != nil {
		if fc.Mail.Driver != "" {
			cfg.Mail.Driver = fc.Mail.Driver
		}
		if fc.Mail.FromAddress != "" {
			cfg.Mail.FromAddress = fc.Mail.FromAddress
		}
		if fc.Mail.FromName != "" {
			cfg.Mail.FromName = fc.Mail.FromName
		}
		if fc.Mail.SendGridAPIKey != "" {
			cfg.Mail.SendGridAPIKey = fc.Mail.SendGridAPIKey
		}
	}

	if fc.Auth != nil {
		if fc.Auth.SessionTTLHours != 0 {
			cfg.Auth.SessionTTLHours = fc.Auth.SessionTTLHours
		}
		if fc.Auth.SessionCookie != "" {
			cfg.Auth.SessionCookie = fc.Auth.SessionCookie
		}
		if fc.Auth.JWTSecret != "" {
			cfg.Auth.JWTSecret = fc.Auth.JWTSecret
		}
	}
}

// overlayEnv applies environment variables onto cfg.
func overlayEnv(cfg *Config) error {
	var e envOverrides
	if err := env.Parse(&e); err != nil {
		return fmt.Errorf("failed to parse environment: %w", err)
	}

	if e.ListenAddr != "" {
		cfg.ListenAddr = e.ListenAddr
	}
	if e.ExternalOrigin != "" {
		cfg.ExternalOrigin = e.ExternalOrigin
	}
	if e.StoreDriver != "" {
		cfg.Store.Driver = e.StoreDriver
	}
	if e.DataDir != "" {
		cfg.Store.DataDir = e.DataDir
	}
	if e.SendGridAPIKey != "" {
		cfg.Mail.SendGridAPIKey = e.SendGridAPIKey
	}
	if e.JWTSecret != "" {
		cfg.Auth.JWTSecret = e.JWTSecret
	}
	return nil
}

// overlayFlags applies CLI flag values onto cfg.
func overlayFlags(cfg *Config, f FlagOverrides) {
	if f.ListenAddr != nil && *f.ListenAddr != "" {
		cfg.ListenAddr = *f.ListenAddr
	}
	if f.ExternalOrigin != nil && *f.ExternalOrigin != "" {
		cfg.ExternalOrigin = *f.ExternalOrigin
	}
	if f.StoreDriver != nil && *f.StoreDriver != "" {
		cfg.Store.Driver = *f.StoreDriver
	}
	if f.DataDir != nil && *f.DataDir != "" {
		cfg.Store.DataDir = *f.DataDir
	}
	if f.MailDriver != nil && *f.MailDriver != "" {
		cfg.Mail.Driver = *f.MailDriver
	}
}

// validate checks enum-like config fields and cross-field requirements.
func validate(cfg *Config) error {
	// mode is already validated by ParseMode before we get here

	switch cfg.Store.Driver {
	case "memory", "sqlite", "postgres":
		// valid
	default:
		return fmt.Errorf("invalid store.driver %q: must be one of memory, sqlite, postgres", cfg.Store.Driver)
	}

	switch cfg.Mail.Driver {
	case "sendgrid", "capture":
		// valid
	default:
		return fmt.Errorf("invalid mail.driver %q: must be one of sendgrid, capture", cfg.Mail.Driver)
	}

	if cfg.Mail.Driver == "sendgrid" && cfg.Mail.SendGridAPIKey == "" {
		return fmt.Errorf("mail.driver is sendgrid but no API key is set (SENDGRID_API_KEY)")
	}

	if cfg.Auth.SessionTTLHours < 1 {
		return fmt.Errorf("auth.session_ttl_hours must be positive, got %d", cfg.Auth.SessionTTLHours)
	}

	return nil
}
