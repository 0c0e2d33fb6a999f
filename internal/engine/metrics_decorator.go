package engine

import (
	"context"
	"time"

	engineDomain "github.com/allisson/uapf-mcp/internal/engine/domain"
	"github.com/allisson/uapf-mcp/internal/metrics"
)

// clientWithMetrics decorates Client with metrics instrumentation.
type clientWithMetrics struct {
	next    Client
	metrics metrics.BusinessMetrics
}

// NewClientWithMetrics wraps a Client with metrics recording.
func NewClientWithMetrics(client Client, m metrics.BusinessMetrics) Client {
	return &clientWithMetrics{
		next:    client,
		metrics: m,
	}
}

func (c *clientWithMetrics) record(ctx context.Context, operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}

	c.metrics.RecordOperation(ctx, "engine", operation, status)
	c.metrics.RecordDuration(ctx, "engine", operation, time.Since(start), status)
}

// GetMeta records metrics for engine meta probes.
func (c *clientWithMetrics) GetMeta(ctx context.Context) (engineDomain.Meta, error) {
	start := time.Now()
	meta, err := c.next.GetMeta(ctx)
	c.record(ctx, "get_meta", start, err)
	return meta, err
}

// ListPackages records metrics for package listing.
func (c *clientWithMetrics) ListPackages(ctx context.Context) ([]engineDomain.Package, error) {
	start := time.Now()
	pkgs, err := c.next.ListPackages(ctx)
	c.record(ctx, "list_packages", start, err)
	return pkgs, err
}

// GetPackage records metrics for package retrieval.
func (c *clientWithMetrics) GetPackage(ctx context.Context, packageID string) (*engineDomain.Package, error) {
	start := time.Now()
	pkg, err := c.next.GetPackage(ctx, packageID)
	c.record(ctx, "get_package", start, err)
	return pkg, err
}

// GetArtifact records metrics for artifact retrieval.
func (c *clientWithMetrics) GetArtifact(
	ctx context.Context,
	packageID, kind, id string,
) (*engineDomain.Artifact, error) {
	start := time.Now()
	artifact, err := c.next.GetArtifact(ctx, packageID, kind, id)
	c.record(ctx, "get_artifact", start, err)
	return artifact, err
}

// ResolveResources records metrics for resource resolution.
func (c *clientWithMetrics) ResolveResources(
	ctx context.Context,
	req engineDomain.ResolveResourcesRequest,
) (any, error) {
	start := time.Now()
	out, err := c.next.ResolveResources(ctx, req)
	c.record(ctx, "resolve_resources", start, err)
	return out, err
}

// Validate records metrics for validation.
func (c *clientWithMetrics) Validate(ctx context.Context, req engineDomain.ValidationRequest) (any, error) {
	start := time.Now()
	out, err := c.next.Validate(ctx, req)
	c.record(ctx, "validate", start, err)
	return out, err
}

// RunProcess records metrics for process execution.
func (c *clientWithMetrics) RunProcess(
	ctx context.Context,
	req engineDomain.ProcessExecutionRequest,
) (any, error) {
	start := time.Now()
	out, err := c.next.RunProcess(ctx, req)
	c.record(ctx, "run_process", start, err)
	return out, err
}

// EvaluateDecision records metrics for decision evaluation.
func (c *clientWithMetrics) EvaluateDecision(
	ctx context.Context,
	req engineDomain.DecisionEvaluationRequest,
) (any, error) {
	start := time.Now()
	out, err := c.next.EvaluateDecision(ctx, req)
	c.record(ctx, "evaluate_decision", start, err)
	return out, err
}
