// Package mocks provides mock implementations of the engine client for testing.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	engineDomain "github.com/allisson/uapf-mcp/internal/engine/domain"
)

// MockClient is a mock implementation of engine.Client for testing.
type MockClient struct {
	mock.Mock
}

// GetMeta mocks the GetMeta method of Client.
func (m *MockClient) GetMeta(ctx context.Context) (engineDomain.Meta, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(engineDomain.Meta), args.Error(1)
}

// ListPackages mocks the ListPackages method of Client.
func (m *MockClient) ListPackages(ctx context.Context) ([]engineDomain.Package, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]engineDomain.Package), args.Error(1)
}

// GetPackage mocks the GetPackage method of Client.
func (m *MockClient) GetPackage(ctx context.Context, packageID string) (*engineDomain.Package, error) {
	args := m.Called(ctx, packageID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*engineDomain.Package), args.Error(1)
}

// GetArtifact mocks the GetArtifact method of Client.
func (m *MockClient) GetArtifact(
	ctx context.Context,
	packageID, kind, id string,
) (*engineDomain.Artifact, error) {
	args := m.Called(ctx, packageID, kind, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*engineDomain.Artifact), args.Error(1)
}

// ResolveResources mocks the ResolveResources method of Client.
func (m *MockClient) ResolveResources(
	ctx context.Context,
	req engineDomain.ResolveResourcesRequest,
) (any, error) {
	args := m.Called(ctx, req)
	return args.Get(0), args.Error(1)
}

// Validate mocks the Validate method of Client.
func (m *MockClient) Validate(ctx context.Context, req engineDomain.ValidationRequest) (any, error) {
	args := m.Called(ctx, req)
	return args.Get(0), args.Error(1)
}

// RunProcess mocks the RunProcess method of Client.
func (m *MockClient) RunProcess(ctx context.Context, req engineDomain.ProcessExecutionRequest) (any, error) {
	args := m.Called(ctx, req)
	return args.Get(0), args.Error(1)
}

// EvaluateDecision mocks the EvaluateDecision method of Client.
func (m *MockClient) EvaluateDecision(
	ctx context.Context,
	req engineDomain.DecisionEvaluationRequest,
) (any, error) {
	args := m.Called(ctx, req)
	return args.Get(0), args.Error(1)
}
