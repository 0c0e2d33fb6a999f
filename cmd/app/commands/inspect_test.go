package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allisson/uapf-mcp/internal/config"
	engineDomain "github.com/allisson/uapf-mcp/internal/engine/domain"
	engineMocks "github.com/allisson/uapf-mcp/internal/engine/mocks"
	"github.com/allisson/uapf-mcp/internal/scope"
)

func validConfig() *config.Config {
	return &config.Config{
		ServerHost:     "0.0.0.0",
		ServerPort:     7900,
		Path:           "/mcp",
		CORSOrigin:     "*",
		Transport:      config.TransportStreamableHTTP,
		ServerName:     "uapf-mcp",
		ToolPrefix:     "uapf",
		Mode:           config.ModeAuto,
		EngineURL:      "http://localhost:3001",
		EngineMode:     config.EngineModeAuto,
		EngineTimeout:  15 * time.Second,
		SecurityMode:   "enforce",
		ClaimsVerifier: config.VerifierNone,
	}
}

func TestRunCheckConfig(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, RunCheckConfig(validConfig(), &out))
		assert.Contains(t, out.String(), "configuration is valid")
		assert.Contains(t, out.String(), "security=enforce")
	})

	t.Run("invalid", func(t *testing.T) {
		cfg := validConfig()
		cfg.Mode = config.ModePackage

		var out bytes.Buffer
		err := RunCheckConfig(cfg, &out)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid configuration")
		assert.Empty(t, out.String())
	})
}

func TestRunProbe(t *testing.T) {
	ctx := context.Background()
	logger := slog.Default()

	t.Run("text-output", func(t *testing.T) {
		client := &engineMocks.MockClient{}
		client.On("GetMeta", ctx).Return(engineDomain.Meta{"mode": "workspace", "version": "1.2.0"}, nil)

		var out bytes.Buffer
		err := RunProbe(ctx, client, "http://engine:3001", logger, &out, FormatText)

		require.NoError(t, err)
		assert.Contains(t, out.String(), "Engine: http://engine:3001")
		assert.Contains(t, out.String(), "Mode:   workspace")
		assert.Contains(t, out.String(), "version: 1.2.0")
		client.AssertExpectations(t)
	})

	t.Run("json-output", func(t *testing.T) {
		client := &engineMocks.MockClient{}
		client.On("GetMeta", ctx).Return(engineDomain.Meta{"mode": "packages"}, nil)

		var out bytes.Buffer
		err := RunProbe(ctx, client, "http://engine:3001", logger, &out, FormatJSON)
		require.NoError(t, err)

		var doc map[string]any
		require.NoError(t, json.Unmarshal(out.Bytes(), &doc))
		assert.Equal(t, "packages", doc["mode"])
		assert.Equal(t, "http://engine:3001", doc["engineUrl"])
	})

	t.Run("unknown-mode", func(t *testing.T) {
		client := &engineMocks.MockClient{}
		client.On("GetMeta", ctx).Return(engineDomain.Meta{}, nil)

		var out bytes.Buffer
		require.NoError(t, RunProbe(ctx, client, "http://engine:3001", logger, &out, FormatText))
		assert.Contains(t, out.String(), "Mode:   unknown")
	})

	t.Run("engine-error", func(t *testing.T) {
		client := &engineMocks.MockClient{}
		client.On("GetMeta", ctx).Return(nil, errors.New("connection refused"))

		err := RunProbe(ctx, client, "http://engine:3001", logger, &bytes.Buffer{}, FormatText)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to probe engine")
	})

	t.Run("invalid-format", func(t *testing.T) {
		client := &engineMocks.MockClient{}
		err := RunProbe(ctx, client, "http://engine:3001", logger, &bytes.Buffer{}, "yaml")
		require.Error(t, err)
		client.AssertNotCalled(t, "GetMeta", ctx)
	})
}

func TestRunPackages(t *testing.T) {
	packages := []engineDomain.Package{
		{
			PackageID:      "pkg-a",
			Version:        "1.0.0",
			Processes:      []engineDomain.Process{{ID: "apply", BpmnProcessID: "Apply"}},
			RequiredClaims: []string{"kyc"},
		},
		{PackageID: "pkg-b", Version: "2.0.0"},
	}

	t.Run("text-output", func(t *testing.T) {
		sc := scope.New(scope.ModeWorkspace, "workspace", "http://engine", packages, nil)

		var out bytes.Buffer
		require.NoError(t, RunPackages(sc, &out, FormatText))
		assert.Contains(t, out.String(), "Mode: workspace (2 package(s))")
		assert.Regexp(t, `pkg-a\s+1\.0\.0\s+1\s+0\s+kyc`, out.String())
		assert.Regexp(t, `pkg-b\s+2\.0\.0\s+0\s+0\s+-`, out.String())
	})

	t.Run("json-output-package-mode", func(t *testing.T) {
		sc := scope.New(scope.ModePackage, "packages", "http://engine", packages, &packages[1])

		var out bytes.Buffer
		require.NoError(t, RunPackages(sc, &out, FormatJSON))

		var doc struct {
			Mode     string                 `json:"mode"`
			Packages []engineDomain.Package `json:"packages"`
		}
		require.NoError(t, json.Unmarshal(out.Bytes(), &doc))
		assert.Equal(t, "package", doc.Mode)
		require.Len(t, doc.Packages, 1)
		assert.Equal(t, "pkg-b", doc.Packages[0].PackageID)
	})
}
