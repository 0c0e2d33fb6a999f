package app

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/server"

	"github.com/allisson/uapf-mcp/internal/claims"
	"github.com/allisson/uapf-mcp/internal/config"
	"github.com/allisson/uapf-mcp/internal/engine"
	"github.com/allisson/uapf-mcp/internal/protocol"
	"github.com/allisson/uapf-mcp/internal/resources"
	"github.com/allisson/uapf-mcp/internal/scope"
	"github.com/allisson/uapf-mcp/internal/tools"
	"github.com/allisson/uapf-mcp/internal/transport"
)

// EngineClient returns the engine client, instrumented with business metrics.
func (c *Container) EngineClient() (engine.Client, error) {
	var err error
	c.engineClientInit.Do(func() {
		c.engineClient, err = c.initEngineClient()
		if err != nil {
			c.initErrors["engineClient"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["engineClient"]; exists {
		return nil, storedErr
	}
	return c.engineClient, nil
}

// ClaimsVerifier returns the configured claims verifier.
func (c *Container) ClaimsVerifier() claims.Verifier {
	c.claimsVerifierInit.Do(func() {
		c.claimsVerifier = c.initClaimsVerifier()
	})
	return c.claimsVerifier
}

// ClaimsGate returns the claims enforcement gate shared by tools and resources.
func (c *Container) ClaimsGate() (*claims.Gate, error) {
	var err error
	c.claimsGateInit.Do(func() {
		c.claimsGate, err = c.initClaimsGate()
		if err != nil {
			c.initErrors["claimsGate"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["claimsGate"]; exists {
		return nil, storedErr
	}
	return c.claimsGate, nil
}

// Scope resolves the served scope on first access. It contacts the engine.
func (c *Container) Scope(ctx context.Context) (*scope.Scope, error) {
	var err error
	c.scopeInit.Do(func() {
		c.scope, err = c.initScope(ctx)
		if err != nil {
			c.initErrors["scope"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["scope"]; exists {
		return nil, storedErr
	}
	return c.scope, nil
}

// ToolRegistry returns the tool registry for the resolved scope.
func (c *Container) ToolRegistry(ctx context.Context) (*tools.Registry, error) {
	var err error
	c.toolRegistryInit.Do(func() {
		c.toolRegistry, err = c.initToolRegistry(ctx)
		if err != nil {
			c.initErrors["toolRegistry"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["toolRegistry"]; exists {
		return nil, storedErr
	}
	return c.toolRegistry, nil
}

// ResourceRegistry returns the resource registry for the resolved scope.
func (c *Container) ResourceRegistry(ctx context.Context) (*resources.Registry, error) {
	var err error
	c.resourceRegistryInit.Do(func() {
		c.resourceRegistry, err = c.initResourceRegistry(ctx)
		if err != nil {
			c.initErrors["resourceRegistry"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["resourceRegistry"]; exists {
		return nil, storedErr
	}
	return c.resourceRegistry, nil
}

// MCPServer returns the protocol server with every tool and resource registered.
func (c *Container) MCPServer(ctx context.Context) (*server.MCPServer, error) {
	var err error
	c.mcpServerInit.Do(func() {
		c.mcpServer, err = c.initMCPServer(ctx)
		if err != nil {
			c.initErrors["mcpServer"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["mcpServer"]; exists {
		return nil, storedErr
	}
	return c.mcpServer, nil
}

// Transport returns the configured protocol transport.
func (c *Container) Transport(ctx context.Context) (transport.Server, error) {
	var err error
	c.transportInit.Do(func() {
		c.transport, err = c.initTransport(ctx)
		if err != nil {
			c.initErrors["transport"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["transport"]; exists {
		return nil, storedErr
	}
	return c.transport, nil
}

func (c *Container) initEngineClient() (engine.Client, error) {
	bm, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get business metrics for engine client: %w", err)
	}
	client := engine.NewHTTPClient(c.config.EngineURL, engine.WithTimeout(c.config.EngineTimeout))
	return engine.NewClientWithMetrics(client, bm), nil
}

func (c *Container) initClaimsVerifier() claims.Verifier {
	if c.config.ClaimsVerifier == config.VerifierHTTP {
		return claims.NewHTTPVerifier(c.config.ClaimsVerifierURL, c.config.EngineTimeout)
	}
	return claims.NewNoopVerifier()
}

func (c *Container) initClaimsGate() (*claims.Gate, error) {
	bm, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get business metrics for claims gate: %w", err)
	}
	return claims.NewGate(
		c.config.GetSecurityMode(),
		c.ClaimsVerifier(),
		c.Logger(),
		claims.WithMetrics(bm),
	), nil
}

func (c *Container) initScope(ctx context.Context) (*scope.Scope, error) {
	client, err := c.EngineClient()
	if err != nil {
		return nil, fmt.Errorf("failed to get engine client for scope: %w", err)
	}

	resolver := scope.NewResolver(client, scope.Options{
		Signals: scope.Signals{
			Override:         c.config.Mode,
			PackagePointer:   c.config.PackagePath,
			WorkspacePointer: c.config.WorkspaceDir,
		},
		PackageID:  c.config.PackageID,
		EngineMode: c.config.EngineMode,
		EngineURL:  c.config.EngineURL,
	}, c.Logger())

	return resolver.Resolve(ctx)
}

func (c *Container) initToolRegistry(ctx context.Context) (*tools.Registry, error) {
	sc, err := c.Scope(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve scope for tool registry: %w", err)
	}
	client, err := c.EngineClient()
	if err != nil {
		return nil, fmt.Errorf("failed to get engine client for tool registry: %w", err)
	}
	gate, err := c.ClaimsGate()
	if err != nil {
		return nil, fmt.Errorf("failed to get claims gate for tool registry: %w", err)
	}
	bm, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get business metrics for tool registry: %w", err)
	}

	return tools.NewRegistry(sc, client, gate, tools.Options{
		ServerName: c.config.ServerName,
		Prefix:     c.config.ToolPrefix,
		Metrics:    bm,
	}, c.Logger())
}

func (c *Container) initResourceRegistry(ctx context.Context) (*resources.Registry, error) {
	sc, err := c.Scope(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve scope for resource registry: %w", err)
	}
	client, err := c.EngineClient()
	if err != nil {
		return nil, fmt.Errorf("failed to get engine client for resource registry: %w", err)
	}
	gate, err := c.ClaimsGate()
	if err != nil {
		return nil, fmt.Errorf("failed to get claims gate for resource registry: %w", err)
	}
	bm, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get business metrics for resource registry: %w", err)
	}

	return resources.NewRegistry(sc, client, gate, resources.Options{Metrics: bm}, c.Logger()), nil
}

func (c *Container) initMCPServer(ctx context.Context) (*server.MCPServer, error) {
	toolRegistry, err := c.ToolRegistry(ctx)
	if err != nil {
		return nil, err
	}
	resourceRegistry, err := c.ResourceRegistry(ctx)
	if err != nil {
		return nil, err
	}

	return protocol.NewServer(toolRegistry, resourceRegistry, protocol.Options{
		Name:    c.config.ServerName,
		Version: c.version,
	}, c.Logger()), nil
}

func (c *Container) initTransport(ctx context.Context) (transport.Server, error) {
	mcpServer, err := c.MCPServer(ctx)
	if err != nil {
		return nil, err
	}
	provider, err := c.MetricsProvider()
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics provider for transport: %w", err)
	}

	return transport.New(c.config, transport.Dependencies{
		MCPServer:       mcpServer,
		MetricsProvider: provider,
		Stdin:           c.stdin,
		Stdout:          c.stdout,
		Logger:          c.Logger(),
	})
}
