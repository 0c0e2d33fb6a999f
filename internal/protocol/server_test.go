package protocol

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/allisson/uapf-mcp/internal/claims"
	engineDomain "github.com/allisson/uapf-mcp/internal/engine/domain"
	engineMocks "github.com/allisson/uapf-mcp/internal/engine/mocks"
	apperrors "github.com/allisson/uapf-mcp/internal/errors"
	"github.com/allisson/uapf-mcp/internal/resources"
	"github.com/allisson/uapf-mcp/internal/scope"
	"github.com/allisson/uapf-mcp/internal/tools"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(t *testing.T, client *engineMocks.MockClient) *server.MCPServer {
	t.Helper()
	pkgs := []engineDomain.Package{{PackageID: "pkg-a", Version: "1"}}
	sc := scope.New(scope.ModePackage, "packages", "http://engine", pkgs, &pkgs[0])
	gate := claims.NewGate(claims.ModeOff, nil, testLogger())

	toolRegistry, err := tools.NewRegistry(sc, client, gate, tools.Options{ServerName: "uapf-mcp", Prefix: "acme"}, testLogger())
	require.NoError(t, err)
	resourceRegistry := resources.NewRegistry(sc, client, gate, resources.Options{}, testLogger())

	return NewServer(toolRegistry, resourceRegistry, Options{Name: "uapf-mcp", Version: "test"}, testLogger())
}

// call sends one JSON-RPC request and returns the decoded response document.
func call(t *testing.T, s *server.MCPServer, method string, params any) map[string]any {
	t.Helper()
	raw, err := json.Marshal(map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  method,
		"params":  params,
	})
	require.NoError(t, err)

	resp := s.HandleMessage(context.Background(), raw)
	require.NotNil(t, resp)

	data, err := json.Marshal(resp)
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	return doc
}

func TestNewServer_ToolsList(t *testing.T) {
	s := newTestServer(t, &engineMocks.MockClient{})

	doc := call(t, s, "tools/list", map[string]any{})
	result := doc["result"].(map[string]any)
	list := result["tools"].([]any)
	assert.Len(t, list, 2*len(tools.CanonicalTools))

	names := map[string]bool{}
	for _, item := range list {
		names[item.(map[string]any)["name"].(string)] = true
	}
	assert.True(t, names["uapf.run_process"])
	assert.True(t, names["acme.run_process"])
}

func TestNewServer_ToolCall(t *testing.T) {
	t.Run("success returns json text and structured content", func(t *testing.T) {
		client := &engineMocks.MockClient{}
		client.On("RunProcess", mock.Anything, mock.Anything).Return(map[string]any{"status": "completed"}, nil).Once()
		s := newTestServer(t, client)

		doc := call(t, s, "tools/call", map[string]any{
			"name":      "acme.run_process",
			"arguments": map[string]any{"packageId": "pkg-a", "processId": "apply"},
		})
		result := doc["result"].(map[string]any)
		assert.NotEqual(t, true, result["isError"])

		content := result["content"].([]any)[0].(map[string]any)
		assert.JSONEq(t, `{"status":"completed"}`, content["text"].(string))
		assert.Equal(t, map[string]any{"status": "completed"}, result["structuredContent"])
		client.AssertExpectations(t)
	})

	t.Run("scope mismatch is an error result", func(t *testing.T) {
		client := &engineMocks.MockClient{}
		s := newTestServer(t, client)

		doc := call(t, s, "tools/call", map[string]any{
			"name":      "uapf.run_process",
			"arguments": map[string]any{"packageId": "pkg-z", "processId": "apply"},
		})
		result := doc["result"].(map[string]any)
		assert.Equal(t, true, result["isError"])

		content := result["content"].([]any)[0].(map[string]any)
		var body struct {
			Error apperrors.Error `json:"error"`
		}
		require.NoError(t, json.Unmarshal([]byte(content["text"].(string)), &body))
		assert.Equal(t, apperrors.CodeScopeMismatch, body.Error.Code)
		assert.Equal(t, "package mode is locked to pkg-a", body.Error.Message)
		client.AssertNotCalled(t, "RunProcess", mock.Anything, mock.Anything)
	})
}

func TestNewServer_Resources(t *testing.T) {
	client := &engineMocks.MockClient{}
	client.On("GetArtifact", mock.Anything, "pkg-a", "manifest", "").
		Return(&engineDomain.Artifact{Data: []byte(`{"packageId":"pkg-a"}`)}, nil).
		Once()
	s := newTestServer(t, client)

	doc := call(t, s, "resources/list", map[string]any{})
	listed := doc["result"].(map[string]any)["resources"].([]any)
	assert.Len(t, listed, 2)

	doc = call(t, s, "resources/templates/list", map[string]any{})
	templates := doc["result"].(map[string]any)["resourceTemplates"].([]any)
	assert.Len(t, templates, len(resources.ArtifactKinds)+1)

	doc = call(t, s, "resources/read", map[string]any{"uri": "uapf://manifest/pkg-a"})
	contents := doc["result"].(map[string]any)["contents"].([]any)
	require.Len(t, contents, 1)
	first := contents[0].(map[string]any)
	assert.Equal(t, "application/json", first["mimeType"])
	assert.JSONEq(t, `{"packageId":"pkg-a"}`, first["text"].(string))
}

func TestNewServer_ResourceClaimsMeta(t *testing.T) {
	pkgs := []engineDomain.Package{{PackageID: "pkg-a", Version: "1", RequiredClaims: []string{"kyc"}}}
	sc := scope.New(scope.ModePackage, "packages", "http://engine", pkgs, &pkgs[0])

	newServer := func(t *testing.T, client *engineMocks.MockClient, mode claims.SecurityMode) *server.MCPServer {
		t.Helper()
		gate := claims.NewGate(mode, claims.NewNoopVerifier(), testLogger())
		toolRegistry, err := tools.NewRegistry(sc, client, gate, tools.Options{ServerName: "uapf-mcp"}, testLogger())
		require.NoError(t, err)
		resourceRegistry := resources.NewRegistry(sc, client, gate, resources.Options{}, testLogger())
		return NewServer(toolRegistry, resourceRegistry, Options{Name: "uapf-mcp", Version: "test"}, testLogger())
	}

	readFirst := func(t *testing.T, s *server.MCPServer, uri string) map[string]any {
		t.Helper()
		doc := call(t, s, "resources/read", map[string]any{"uri": uri})
		require.Contains(t, doc, "result", doc)
		contents := doc["result"].(map[string]any)["contents"].([]any)
		require.Len(t, contents, 1)
		return contents[0].(map[string]any)
	}

	t.Run("declare mode annotates text contents", func(t *testing.T) {
		client := &engineMocks.MockClient{}
		client.On("Validate", mock.Anything, engineDomain.ValidationRequest{PackageID: "pkg-a"}).
			Return(map[string]any{"valid": true}, nil).
			Once()
		s := newServer(t, client, claims.ModeDeclare)

		first := readFirst(t, s, "uapf://policies/pkg-a")
		assert.Equal(t, map[string]any{"requiredClaims": []any{"kyc"}}, first["_meta"])
	})

	t.Run("declare mode annotates blob contents", func(t *testing.T) {
		client := &engineMocks.MockClient{}
		client.On("GetArtifact", mock.Anything, "pkg-a", "bpmn", "").
			Return(&engineDomain.Artifact{Data: []byte("<x/>")}, nil).
			Once()
		s := newServer(t, client, claims.ModeDeclare)

		first := readFirst(t, s, "uapf://bpmn/pkg-a")
		assert.Equal(t, "PHgvPg==", first["blob"])
		assert.Equal(t, map[string]any{"requiredClaims": []any{"kyc"}}, first["_meta"])
	})

	t.Run("off mode omits _meta", func(t *testing.T) {
		client := &engineMocks.MockClient{}
		client.On("Validate", mock.Anything, engineDomain.ValidationRequest{PackageID: "pkg-a"}).
			Return(map[string]any{"valid": true}, nil).
			Once()
		s := newServer(t, client, claims.ModeOff)

		first := readFirst(t, s, "uapf://policies/pkg-a")
		assert.NotContains(t, first, "_meta")
	})
}

func TestResourceMeta(t *testing.T) {
	assert.Nil(t, resourceMeta(nil))
	assert.Nil(t, resourceMeta(map[string]any{}))

	meta := resourceMeta(map[string]any{"requiredClaims": []string{"kyc"}})
	require.NotNil(t, meta)
	assert.Equal(t, []string{"kyc"}, meta.AdditionalFields["requiredClaims"])
}

func TestErrorResult(t *testing.T) {
	result := ErrorResult(errors.New("boom"))
	assert.True(t, result.IsError)
	text := result.Content[0].(mcp.TextContent).Text
	assert.JSONEq(t, `{"error":{"code":"internal_error","message":"boom"}}`, text)
}

func TestSuccessResult_NonObject(t *testing.T) {
	result := SuccessResult([]string{"a"})
	assert.False(t, result.IsError)
	assert.Nil(t, result.StructuredContent)
	assert.Equal(t, `["a"]`, result.Content[0].(mcp.TextContent).Text)
}
