// Package claims decides whether an operation's required claims are satisfied and
// applies the configured security mode before any engine call is made.
package claims

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-cleanhttp"
)

// Result is the verifier's answer for a set of required claims.
type Result struct {
	Satisfied bool   `json:"ok"`
	Reason    string `json:"reason,omitempty"`
}

// Verifier checks required claims against an opaque request context.
// Implementations must not mutate requiredClaims or vctx.
type Verifier interface {
	Verify(ctx context.Context, requiredClaims []string, vctx map[string]any) Result
}

// NoopVerifier reports every requirement as satisfied.
type NoopVerifier struct{}

// NewNoopVerifier creates a Verifier used when no policy decision point is configured.
func NewNoopVerifier() *NoopVerifier {
	return &NoopVerifier{}
}

// Verify always returns a satisfied result.
func (v *NoopVerifier) Verify(ctx context.Context, requiredClaims []string, vctx map[string]any) Result {
	return Result{Satisfied: true}
}

// verifyRequest is the body posted to the remote policy decision point.
type verifyRequest struct {
	RequiredClaims []string       `json:"requiredClaims"`
	Context        map[string]any `json:"context"`
}

// HTTPVerifier delegates verification to a remote endpoint. Any failure to obtain
// a positive answer is reported as not satisfied.
type HTTPVerifier struct {
	url        string
	httpClient *http.Client
}

// NewHTTPVerifier creates a Verifier that POSTs to url.
func NewHTTPVerifier(url string, timeout time.Duration) *HTTPVerifier {
	hc := cleanhttp.DefaultPooledClient()
	hc.Timeout = timeout

	return &HTTPVerifier{
		url:        url,
		httpClient: hc,
	}
}

// Verify posts {requiredClaims, context} and decodes {ok, reason}.
func (v *HTTPVerifier) Verify(ctx context.Context, requiredClaims []string, vctx map[string]any) Result {
	body, err := json.Marshal(verifyRequest{
		RequiredClaims: append([]string(nil), requiredClaims...),
		Context:        vctx,
	})
	if err != nil {
		return notSatisfied("encode verifier request: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.url, bytes.NewReader(body))
	if err != nil {
		return notSatisfied("build verifier request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return notSatisfied("verifier unreachable: %v", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return notSatisfied("read verifier response: %v", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		reason := strings.TrimSpace(string(raw))
		if reason == "" {
			reason = http.StatusText(resp.StatusCode)
		}
		return Result{Satisfied: false, Reason: reason}
	}

	var result Result
	if err := json.Unmarshal(raw, &result); err != nil {
		return notSatisfied("decode verifier response: %v", err)
	}
	return result
}

func notSatisfied(format string, args ...any) Result {
	return Result{Satisfied: false, Reason: fmt.Sprintf(format, args...)}
}
