// Package engine provides the typed client used to reach the UAPF engine over HTTP.
package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-cleanhttp"

	engineDomain "github.com/allisson/uapf-mcp/internal/engine/domain"
)

// DefaultTimeout is the ceiling applied to every engine call.
const DefaultTimeout = 15 * time.Second

// Client is the set of engine operations the gateway relies on.
type Client interface {
	GetMeta(ctx context.Context) (engineDomain.Meta, error)
	ListPackages(ctx context.Context) ([]engineDomain.Package, error)
	GetPackage(ctx context.Context, packageID string) (*engineDomain.Package, error)
	GetArtifact(ctx context.Context, packageID, kind, id string) (*engineDomain.Artifact, error)
	ResolveResources(ctx context.Context, req engineDomain.ResolveResourcesRequest) (any, error)
	Validate(ctx context.Context, req engineDomain.ValidationRequest) (any, error)
	RunProcess(ctx context.Context, req engineDomain.ProcessExecutionRequest) (any, error)
	EvaluateDecision(ctx context.Context, req engineDomain.DecisionEvaluationRequest) (any, error)
}

// errorBody is the structured error document returned by the engine.
type errorBody struct {
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// HTTPClient implements Client against the engine HTTP API.
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
}

// Option configures the HTTPClient.
type Option func(*HTTPClient)

// WithTimeout sets the per-call timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *HTTPClient) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *HTTPClient) { c.httpClient = hc }
}

// NewHTTPClient creates an engine client for baseURL. A trailing slash is trimmed.
func NewHTTPClient(baseURL string, opts ...Option) *HTTPClient {
	hc := cleanhttp.DefaultPooledClient()
	hc.Timeout = DefaultTimeout

	c := &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: hc,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// BaseURL returns the normalized engine URL.
func (c *HTTPClient) BaseURL() string {
	return c.baseURL
}

// GetMeta calls GET /_/meta.
func (c *HTTPClient) GetMeta(ctx context.Context) (engineDomain.Meta, error) {
	var out engineDomain.Meta
	if err := c.doJSON(ctx, http.MethodGet, "/_/meta", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListPackages calls GET /uapf/packages.
func (c *HTTPClient) ListPackages(ctx context.Context) ([]engineDomain.Package, error) {
	var out []engineDomain.Package
	if err := c.doJSON(ctx, http.MethodGet, "/uapf/packages", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetPackage calls GET /uapf/packages/{id}.
func (c *HTTPClient) GetPackage(ctx context.Context, packageID string) (*engineDomain.Package, error) {
	var out engineDomain.Package
	path := "/uapf/packages/" + url.PathEscape(packageID)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetArtifact calls GET /uapf/packages/{id}/artifacts/{kind} and returns the raw bytes.
func (c *HTTPClient) GetArtifact(
	ctx context.Context,
	packageID, kind, id string,
) (*engineDomain.Artifact, error) {
	path := fmt.Sprintf(
		"/uapf/packages/%s/artifacts/%s",
		url.PathEscape(packageID),
		url.PathEscape(kind),
	)
	if id != "" {
		path += "?" + url.Values{"id": []string{id}}.Encode()
	}

	resp, err := c.send(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, wrapTransportError(err)
	}

	return &engineDomain.Artifact{Data: data, Header: resp.Header.Clone()}, nil
}

// ResolveResources calls POST /uapf/resolve-resources.
func (c *HTTPClient) ResolveResources(
	ctx context.Context,
	req engineDomain.ResolveResourcesRequest,
) (any, error) {
	var out any
	if err := c.doJSON(ctx, http.MethodPost, "/uapf/resolve-resources", req, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Validate calls POST /uapf/validate.
func (c *HTTPClient) Validate(ctx context.Context, req engineDomain.ValidationRequest) (any, error) {
	var out any
	if err := c.doJSON(ctx, http.MethodPost, "/uapf/validate", req, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// RunProcess calls POST /uapf/execute-process.
func (c *HTTPClient) RunProcess(ctx context.Context, req engineDomain.ProcessExecutionRequest) (any, error) {
	var out any
	if err := c.doJSON(ctx, http.MethodPost, "/uapf/execute-process", req, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// EvaluateDecision calls POST /uapf/evaluate-decision.
func (c *HTTPClient) EvaluateDecision(
	ctx context.Context,
	req engineDomain.DecisionEvaluationRequest,
) (any, error) {
	var out any
	if err := c.doJSON(ctx, http.MethodPost, "/uapf/evaluate-decision", req, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) doJSON(ctx context.Context, method, path string, body, out any) error {
	resp, err := c.send(ctx, method, path, body)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return wrapTransportError(fmt.Errorf("decode response: %w", err))
	}
	return nil
}

// send performs the request and converts every failure into *engineDomain.Error.
// On success the caller owns the response body.
func (c *HTTPClient) send(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, engineDomain.NewRequestFailedError(err.Error(), 0, err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, engineDomain.NewRequestFailedError(err.Error(), 0, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json, */*")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, wrapTransportError(err)
	}

	if resp.StatusCode >= 400 {
		defer func() {
			_ = resp.Body.Close()
		}()
		return nil, wrapStatusError(resp)
	}

	return resp, nil
}

// wrapStatusError maps a non-2xx response. A structured body wins over the status code.
func wrapStatusError(resp *http.Response) *engineDomain.Error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))

	var code, message string
	var body errorBody
	if err := json.Unmarshal(raw, &body); err == nil && body.Error != nil {
		code = body.Error.Code
		message = body.Error.Message
	}

	if message == "" {
		message = fmt.Sprintf("engine responded with status %d", resp.StatusCode)
	}

	if code != "" {
		return &engineDomain.Error{Code: code, Message: message, Status: resp.StatusCode}
	}
	if resp.StatusCode >= 500 {
		return engineDomain.NewUnavailableError(message, resp.StatusCode, nil)
	}
	return engineDomain.NewRequestFailedError(message, resp.StatusCode, nil)
}

// wrapTransportError maps failures that produced no response. Timeouts are
// reported as engine_unavailable.
func wrapTransportError(err error) *engineDomain.Error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return engineDomain.NewUnavailableError(err.Error(), 0, err)
	}
	return engineDomain.NewRequestFailedError(err.Error(), 0, err)
}
