// Package config provides configuration loading and validation.
package config

// Config holds the server configuration.
type Config struct {
	// Mode is the operating mode: "production" or "dev".
	Mode string `json:"mode"`

	// ListenAddr is the address to listen on.
	// Example: ":9300"
	ListenAddr string `json:"listen_addr"`

	// ExternalOrigin is the public web origin invitation links point at.
	// Example: "https://app.coachlink.io"
	ExternalOrigin string `json:"external_origin"`

	// Server holds HTTP server settings.
	Server ServerConfig `json:"server"`

	// Store holds the persistence driver settings.
	Store StoreConfig `json:"store"`

	// Mail holds outbound email settings.
	Mail MailConfig `json:"mail"`

	// Auth holds session and bearer token settings.
	Auth AuthConfig `json:"auth"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// CORSAllowedOrigins are the origins allowed to call the API from a
	// browser. Empty means same-origin only.
	CORSAllowedOrigins []string `json:"cors_allowed_origins"`

	// ShutdownTimeoutMS bounds graceful shutdown.
	ShutdownTimeoutMS int `json:"shutdown_timeout_ms"`
}

// StoreConfig holds persistence settings.
type StoreConfig struct {
	// Driver is one of: memory, sqlite, postgres.
	Driver string `json:"driver"`

	// DataDir is where file-backed drivers keep their data.
	DataDir string `json:"data_dir"`

	// Drivers holds per-driver settings keyed by driver name.
	Drivers map[string]any `json:"drivers"`
}

// MailConfig holds outbound email settings.
type MailConfig struct {
	// Driver is one of: sendgrid, capture. Capture keeps mail in memory
	// and is only useful for dev and tests.
	Driver string `json:"driver"`

	// FromAddress is the sender address on all outbound mail.
	FromAddress string `json:"from_address"`

	// FromName is the display name attached to FromAddress.
	FromName string `json:"from_name"`

	// SendGridAPIKey authenticates against the SendGrid v3 API.
	// Prefer the SENDGRID_API_KEY environment variable over the file.
	SendGridAPIKey string `json:"-"`
}

// AuthConfig holds session and bearer token settings.
type AuthConfig struct {
	// SessionTTLHours is how long an opaque session stays valid.
	SessionTTLHours int `json:"session_ttl_hours"`

	// SessionCookie is the cookie name carrying the session token.
	SessionCookie string `json:"session_cookie"`

	// JWTSecret verifies platform-issued bearer tokens.
	// Prefer the COACHLINK_JWT_SECRET environment variable over the file.
	JWTSecret string `json:"-"`
}

// Redacted returns a copy safe for logging, with secrets blanked.
func (c *Config) Redacted() Config {
	out := *c
	if out.Mail.SendGridAPIKey != "" {
		out.Mail.SendGridAPIKey = "[redacted]"
	}
	if out.Auth.JWTSecret != "" {
		out.Auth.JWTSecret = "[redacted]"
	}
	return out
}
