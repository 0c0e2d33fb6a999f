// Package config provides application configuration through environment variables.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/allisson/go-env"
	validation "github.com/jellydator/validation"
	"github.com/jellydator/validation/is"
	"github.com/joho/godotenv"

	"github.com/allisson/uapf-mcp/internal/claims"
	customValidation "github.com/allisson/uapf-mcp/internal/validation"
)

// Operating modes.
const (
	ModeAuto      = "auto"
	ModePackage   = "package"
	ModeWorkspace = "workspace"
)

// Engine mode overrides.
const (
	EngineModeAuto      = "auto"
	EngineModePackages  = "packages"
	EngineModeWorkspace = "workspace"
)

// Claims verifier kinds.
const (
	VerifierNone = "none"
	VerifierHTTP = "http"
)

// Transport kinds.
const (
	TransportStreamableHTTP = "streamable_http"
	TransportWebSocket      = "websocket"
	TransportStdio          = "stdio"
	TransportSSE            = "sse"
)

// Config holds all application configuration.
type Config struct {
	// ServerHost is the host address the server will bind to.
	ServerHost string
	// ServerPort is the port number the protocol server will listen on.
	ServerPort int
	// Path is the HTTP path that carries the protocol.
	Path string
	// CORSOrigin is "*" or a comma-separated list of allowed origins.
	CORSOrigin string
	// Transport selects how the protocol session is carried.
	Transport string

	// ServerName is the display name reported to protocol clients.
	ServerName string
	// ToolPrefix produces alias tool names when it differs from "uapf".
	ToolPrefix string

	// Mode is the operating mode override (auto, package, workspace).
	Mode string
	// PackagePath points at the single package served in package mode.
	PackagePath string
	// PackageID selects the scoped package in package mode.
	PackageID string
	// WorkspaceDir points at the workspace served in workspace mode.
	WorkspaceDir string

	// EngineURL is the base URL of the UAPF engine.
	EngineURL string
	// EngineMode is the engine mode override (auto, packages, workspace).
	EngineMode string
	// EngineTimeout bounds every engine call.
	EngineTimeout time.Duration

	// SecurityMode is the raw claims security mode (off, declare, enforce).
	SecurityMode string
	// ClaimsVerifier selects the claims verifier (none, http).
	ClaimsVerifier string
	// ClaimsVerifierURL is the endpoint of the HTTP claims verifier.
	ClaimsVerifierURL string

	// LogLevel is the logging level (e.g., "debug", "info", "warn", "error").
	LogLevel string

	// RateLimitEnabled indicates whether per-IP rate limiting on the protocol path is enabled.
	RateLimitEnabled bool
	// RateLimitRequestsPerSec is the number of requests allowed per second per client IP.
	RateLimitRequestsPerSec float64
	// RateLimitBurst is the burst size for the protocol path rate limiting.
	RateLimitBurst int

	// MetricsEnabled indicates whether metrics collection is enabled.
	MetricsEnabled bool
	// MetricsNamespace is the namespace for the application metrics.
	MetricsNamespace string
	// MetricsPort is the port number for the metrics server.
	MetricsPort int

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration
}

// Load loads configuration from environment variables and .env file.
func Load() *Config {
	// Try to load .env file recursively
	loadDotEnv()

	return &Config{
		// Server configuration
		ServerHost: env.GetString("SERVER_HOST", "0.0.0.0"),
		ServerPort: env.GetInt("MCP_PORT", 7900),
		Path:       env.GetString("MCP_PATH", "/mcp"),
		CORSOrigin: env.GetString("MCP_CORS_ORIGIN", "*"),
		Transport:  NormalizeTransport(env.GetString("MCP_TRANSPORT", TransportStreamableHTTP)),

		// Naming
		ServerName: env.GetString("MCP_SERVER_NAME", "uapf-mcp"),
		ToolPrefix: env.GetString("MCP_TOOL_PREFIX", "uapf"),

		// Scope
		Mode:         strings.ToLower(env.GetString("UAPF_MODE", ModeAuto)),
		PackagePath:  env.GetString("UAPF_PACKAGE_PATH", ""),
		PackageID:    env.GetString("UAPF_PACKAGE_ID", ""),
		WorkspaceDir: env.GetString("UAPF_WORKSPACE_DIR", ""),

		// Engine
		EngineURL:     env.GetString("UAPF_ENGINE_URL", "http://localhost:3001"),
		EngineMode:    strings.ToLower(env.GetString("UAPF_ENGINE_MODE", EngineModeAuto)),
		EngineTimeout: env.GetDuration("UAPF_ENGINE_TIMEOUT_SECONDS", 15, time.Second),

		// Claims
		SecurityMode:      env.GetString("UAPF_SECURITY_MODE", "off"),
		ClaimsVerifier:    strings.ToLower(env.GetString("UAPF_CLAIMS_VERIFIER", VerifierNone)),
		ClaimsVerifierURL: env.GetString("UAPF_CLAIMS_VERIFIER_URL", ""),

		// Logging
		LogLevel: env.GetString("LOG_LEVEL", "info"),

		// Rate Limiting (protocol path, IP-based)
		RateLimitEnabled:        env.GetBool("RATE_LIMIT_ENABLED", false),
		RateLimitRequestsPerSec: env.GetFloat64("RATE_LIMIT_REQUESTS_PER_SEC", 20.0),
		RateLimitBurst:          env.GetInt("RATE_LIMIT_BURST", 40),

		// Metrics
		MetricsEnabled:   env.GetBool("METRICS_ENABLED", true),
		MetricsNamespace: env.GetString("METRICS_NAMESPACE", "uapf_mcp"),
		MetricsPort:      env.GetInt("METRICS_PORT", 7901),

		ShutdownTimeout: env.GetDuration("SHUTDOWN_TIMEOUT_SECONDS", 10, time.Second),
	}
}

// NormalizeTransport maps accepted spellings onto the canonical transport names.
// Unknown values are returned lowercased so validation can reject them.
func NormalizeTransport(s string) string {
	switch v := strings.ToLower(strings.TrimSpace(s)); v {
	case "streamable_http", "streamable-http", "http":
		return TransportStreamableHTTP
	case "websocket", "socket", "ws":
		return TransportWebSocket
	case "stdio", "standard-stream":
		return TransportStdio
	default:
		return v
	}
}

// Validate checks the configuration for fatal errors. It never performs I/O, so
// it can run before any engine call.
func (c *Config) Validate() error {
	err := validation.ValidateStruct(c,
		validation.Field(&c.ServerPort, validation.Required, validation.Min(1), validation.Max(65535)),
		validation.Field(&c.Path, validation.Required, customValidation.ProtocolPath),
		validation.Field(&c.CORSOrigin, customValidation.Origins),
		validation.Field(&c.Transport,
			validation.Required,
			validation.In(TransportStreamableHTTP, TransportWebSocket, TransportStdio, TransportSSE),
			validation.NotIn(TransportSSE).Error("sse is recognised but not implemented"),
		),
		validation.Field(&c.ServerName, validation.Required, customValidation.NotBlank),
		validation.Field(&c.ToolPrefix, validation.Required, customValidation.ToolPrefix),
		validation.Field(&c.Mode, validation.Required, validation.In(ModeAuto, ModePackage, ModeWorkspace)),
		validation.Field(&c.PackagePath,
			validation.When(c.Mode == ModePackage,
				validation.Required.Error("is required when UAPF_MODE=package"),
				customValidation.NotBlank,
			),
		),
		validation.Field(&c.WorkspaceDir,
			validation.When(c.Mode == ModeWorkspace,
				validation.Required.Error("is required when UAPF_MODE=workspace"),
				customValidation.NotBlank,
			),
		),
		validation.Field(&c.PackageID, customValidation.NoWhitespace),
		validation.Field(&c.EngineURL, validation.Required, is.URL),
		validation.Field(&c.EngineMode,
			validation.Required,
			validation.In(EngineModeAuto, EngineModePackages, EngineModeWorkspace),
		),
		validation.Field(&c.EngineTimeout, validation.Required),
		validation.Field(&c.SecurityMode, validation.By(func(value any) error {
			if _, err := claims.ParseSecurityMode(value.(string)); err != nil {
				return validation.NewError(
					"validation_security_mode",
					"must be one of off, declare, enforce",
				)
			}
			return nil
		})),
		validation.Field(&c.ClaimsVerifier, validation.Required, validation.In(VerifierNone, VerifierHTTP)),
		validation.Field(&c.ClaimsVerifierURL,
			validation.When(c.ClaimsVerifier == VerifierHTTP,
				validation.Required.Error("is required when UAPF_CLAIMS_VERIFIER=http"),
				is.URL,
			),
		),
	)
	return customValidation.WrapValidationError(err)
}

// GetSecurityMode returns the parsed claims security mode.
func (c *Config) GetSecurityMode() claims.SecurityMode {
	mode, err := claims.ParseSecurityMode(c.SecurityMode)
	if err != nil {
		return claims.ModeOff
	}
	return mode
}

// GetGinMode returns the appropriate Gin mode based on log level.
func (c *Config) GetGinMode() string {
	switch c.LogLevel {
	case "debug":
		return "debug"
	default:
		return "release"
	}
}

// loadDotEnv searches for a .env file recursively from the current directory
// up to the root directory and loads it if found.
func loadDotEnv() {
	// Get current working directory
	cwd, err := os.Getwd()
	if err != nil {
		return
	}

	// Search for .env file recursively up the directory tree
	dir := cwd
	for {
		envPath := filepath.Join(dir, ".env")
		if _, err := os.Stat(envPath); err == nil {
			// .env file found, load it
			_ = godotenv.Load(envPath)
			return
		}

		// Move to parent directory
		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root directory
			break
		}
		dir = parent
	}
}
