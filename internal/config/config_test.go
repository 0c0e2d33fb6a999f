package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allisson/uapf-mcp/internal/claims"
	apperrors "github.com/allisson/uapf-mcp/internal/errors"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name     string
		envVars  map[string]string
		validate func(t *testing.T, cfg *Config)
	}{
		{
			name:    "load default configuration",
			envVars: map[string]string{},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "0.0.0.0", cfg.ServerHost)
				assert.Equal(t, 7900, cfg.ServerPort)
				assert.Equal(t, "/mcp", cfg.Path)
				assert.Equal(t, "*", cfg.CORSOrigin)
				assert.Equal(t, TransportStreamableHTTP, cfg.Transport)
				assert.Equal(t, "uapf-mcp", cfg.ServerName)
				assert.Equal(t, "uapf", cfg.ToolPrefix)
				assert.Equal(t, ModeAuto, cfg.Mode)
				assert.Equal(t, "http://localhost:3001", cfg.EngineURL)
				assert.Equal(t, EngineModeAuto, cfg.EngineMode)
				assert.Equal(t, 15*time.Second, cfg.EngineTimeout)
				assert.Equal(t, claims.ModeOff, cfg.GetSecurityMode())
				assert.Equal(t, VerifierNone, cfg.ClaimsVerifier)
				assert.Equal(t, "info", cfg.LogLevel)
				assert.False(t, cfg.RateLimitEnabled)
				assert.True(t, cfg.MetricsEnabled)
				assert.Equal(t, "uapf_mcp", cfg.MetricsNamespace)
				assert.Equal(t, 7901, cfg.MetricsPort)
				assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
			},
		},
		{
			name: "load custom server configuration",
			envVars: map[string]string{
				"SERVER_HOST":     "localhost",
				"MCP_PORT":        "9090",
				"MCP_PATH":        "/rpc",
				"MCP_CORS_ORIGIN": "https://app.example.com",
				"MCP_TRANSPORT":   "socket",
			},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "localhost", cfg.ServerHost)
				assert.Equal(t, 9090, cfg.ServerPort)
				assert.Equal(t, "/rpc", cfg.Path)
				assert.Equal(t, "https://app.example.com", cfg.CORSOrigin)
				assert.Equal(t, TransportWebSocket, cfg.Transport)
			},
		},
		{
			name: "load custom scope and claims configuration",
			envVars: map[string]string{
				"UAPF_MODE":                "WORKSPACE",
				"UAPF_WORKSPACE_DIR":       "/srv/uapf",
				"UAPF_SECURITY_MODE":       "claims_enforce",
				"UAPF_CLAIMS_VERIFIER":     "http",
				"UAPF_CLAIMS_VERIFIER_URL": "http://pdp.local/verify",
			},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, ModeWorkspace, cfg.Mode)
				assert.Equal(t, "/srv/uapf", cfg.WorkspaceDir)
				assert.Equal(t, claims.ModeEnforce, cfg.GetSecurityMode())
				assert.Equal(t, VerifierHTTP, cfg.ClaimsVerifier)
				assert.Equal(t, "http://pdp.local/verify", cfg.ClaimsVerifierURL)
			},
		},
		{
			name: "load custom log level",
			envVars: map[string]string{
				"LOG_LEVEL": "debug",
			},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "debug", cfg.LogLevel)
				assert.Equal(t, "debug", cfg.GetGinMode())
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Clear environment
			os.Clearenv()

			// Set test environment variables
			for key, value := range tt.envVars {
				err := os.Setenv(key, value)
				require.NoError(t, err)
			}

			// Load configuration
			cfg := Load()

			// Validate
			tt.validate(t, cfg)
		})
	}
}

func TestNormalizeTransport(t *testing.T) {
	tests := map[string]string{
		"streamable_http": TransportStreamableHTTP,
		"streamable-http": TransportStreamableHTTP,
		"HTTP":            TransportStreamableHTTP,
		"websocket":       TransportWebSocket,
		"ws":              TransportWebSocket,
		"stdio":           TransportStdio,
		"sse":             TransportSSE,
		"grpc":            "grpc",
	}

	for input, want := range tests {
		t.Run(input, func(t *testing.T) {
			assert.Equal(t, want, NormalizeTransport(input))
		})
	}
}

func validConfig() *Config {
	return &Config{
		ServerHost:     "0.0.0.0",
		ServerPort:     7900,
		Path:           "/mcp",
		CORSOrigin:     "*",
		Transport:      TransportStreamableHTTP,
		ServerName:     "uapf-mcp",
		ToolPrefix:     "uapf",
		Mode:           ModeAuto,
		EngineURL:      "http://localhost:3001",
		EngineMode:     EngineModeAuto,
		EngineTimeout:  15 * time.Second,
		SecurityMode:   "off",
		ClaimsVerifier: VerifierNone,
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(cfg *Config)
		wantErr string
	}{
		{
			name:   "defaults are valid",
			mutate: func(cfg *Config) {},
		},
		{
			name:    "package override without package pointer",
			mutate:  func(cfg *Config) { cfg.Mode = ModePackage },
			wantErr: "is required when UAPF_MODE=package",
		},
		{
			name: "package override with package pointer",
			mutate: func(cfg *Config) {
				cfg.Mode = ModePackage
				cfg.PackagePath = "/srv/pkg"
			},
		},
		{
			name:    "workspace override without workspace pointer",
			mutate:  func(cfg *Config) { cfg.Mode = ModeWorkspace },
			wantErr: "is required when UAPF_MODE=workspace",
		},
		{
			name:    "http verifier without url",
			mutate:  func(cfg *Config) { cfg.ClaimsVerifier = VerifierHTTP },
			wantErr: "is required when UAPF_CLAIMS_VERIFIER=http",
		},
		{
			name:    "unknown transport",
			mutate:  func(cfg *Config) { cfg.Transport = "grpc" },
			wantErr: "Transport",
		},
		{
			name:    "sse transport is refused before any engine call",
			mutate:  func(cfg *Config) { cfg.Transport = TransportSSE },
			wantErr: "sse is recognised but not implemented",
		},
		{
			name:    "unknown security mode",
			mutate:  func(cfg *Config) { cfg.SecurityMode = "strict" },
			wantErr: "must be one of off, declare, enforce",
		},
		{
			name:    "unknown operating mode",
			mutate:  func(cfg *Config) { cfg.Mode = "cluster" },
			wantErr: "Mode",
		},
		{
			name:    "relative protocol path",
			mutate:  func(cfg *Config) { cfg.Path = "mcp" },
			wantErr: "must be an absolute path",
		},
		{
			name:    "invalid tool prefix",
			mutate:  func(cfg *Config) { cfg.ToolPrefix = "acme.tools" },
			wantErr: "ToolPrefix",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
