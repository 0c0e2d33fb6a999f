// Package resources exposes package artifacts, bindings and policies as
// addressable read-only resources under the uapf:// scheme.
package resources

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/allisson/uapf-mcp/internal/claims"
	"github.com/allisson/uapf-mcp/internal/engine"
	engineDomain "github.com/allisson/uapf-mcp/internal/engine/domain"
	apperrors "github.com/allisson/uapf-mcp/internal/errors"
	"github.com/allisson/uapf-mcp/internal/metrics"
	"github.com/allisson/uapf-mcp/internal/scope"
)

// DefaultScheme is the URI scheme of every resource.
const DefaultScheme = "uapf"

// Resource kinds.
const (
	KindManifest = "manifest"
	KindBPMN     = "bpmn"
	KindDMN      = "dmn"
	KindCMMN     = "cmmn"
	KindDocs     = "docs"
	KindTests    = "tests"
	KindBindings = "bindings"
	KindPolicies = "policies"
)

// ArtifactKinds are the kinds served straight from the engine artifact endpoint
// with an optional id query parameter.
var ArtifactKinds = []string{KindBPMN, KindDMN, KindCMMN, KindDocs, KindTests}

const jsonMediaType = "application/json"

// Descriptor describes a listed resource or a resource template.
type Descriptor struct {
	// URI is a concrete URI for resources and an RFC 6570 template for templates.
	URI         string
	Name        string
	Description string
	MIMEType    string
	PackageID   string
	Kind        string
}

// Content is one resource payload. Binary content carries base64 in Blob,
// everything else carries Text.
type Content struct {
	URI      string
	MIMEType string
	Text     string
	Blob     string
	Binary   bool
	Meta     map[string]any
}

// IsBlob reports whether the content is binary. An empty artifact is still binary.
func (c Content) IsBlob() bool {
	return c.Binary
}

// Options carries the optional settings of the registry.
type Options struct {
	Scheme  string
	Metrics metrics.BusinessMetrics
}

// Registry resolves resource URIs against the engine.
type Registry struct {
	scope   *scope.Scope
	client  engine.Client
	gate    *claims.Gate
	scheme  string
	metrics metrics.BusinessMetrics
	logger  *slog.Logger
}

// NewRegistry creates a resource registry over the visible packages of sc.
func NewRegistry(
	sc *scope.Scope,
	client engine.Client,
	gate *claims.Gate,
	opts Options,
	logger *slog.Logger,
) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	if gate == nil {
		gate = claims.NewGate(claims.ModeOff, nil, logger)
	}
	scheme := opts.Scheme
	if scheme == "" {
		scheme = DefaultScheme
	}
	return &Registry{
		scope:   sc,
		client:  client,
		gate:    gate,
		scheme:  scheme,
		metrics: opts.Metrics,
		logger:  logger,
	}
}

// Resources returns the concrete, listable resources: one manifest and one
// policies resource per visible package.
func (r *Registry) Resources() []Descriptor {
	var out []Descriptor
	for _, pkg := range r.scope.Packages {
		out = append(out,
			Descriptor{
				URI:         r.uri(KindManifest, pkg.PackageID),
				Name:        fmt.Sprintf("%s manifest", pkg.PackageID),
				Description: fmt.Sprintf("Manifest of UAPF package %s (%s).", pkg.PackageID, pkg.Version),
				MIMEType:    jsonMediaType,
				PackageID:   pkg.PackageID,
				Kind:        KindManifest,
			},
			Descriptor{
				URI:         r.uri(KindPolicies, pkg.PackageID),
				Name:        fmt.Sprintf("%s policies", pkg.PackageID),
				Description: fmt.Sprintf("Validation report of UAPF package %s.", pkg.PackageID),
				MIMEType:    jsonMediaType,
				PackageID:   pkg.PackageID,
				Kind:        KindPolicies,
			},
		)
	}
	return out
}

// Templates returns the URI templates per visible package. Templates have no
// enumerable instances.
func (r *Registry) Templates() []Descriptor {
	var out []Descriptor
	for _, pkg := range r.scope.Packages {
		for _, kind := range ArtifactKinds {
			out = append(out, Descriptor{
				URI:         r.uri(kind, pkg.PackageID) + "{?id}",
				Name:        fmt.Sprintf("%s %s", pkg.PackageID, kind),
				Description: fmt.Sprintf("%s artifact of UAPF package %s.", strings.ToUpper(kind), pkg.PackageID),
				PackageID:   pkg.PackageID,
				Kind:        kind,
			})
		}
		out = append(out, Descriptor{
			URI:         r.uri(KindBindings, pkg.PackageID) + "{?processId,taskId}",
			Name:        fmt.Sprintf("%s bindings", pkg.PackageID),
			Description: fmt.Sprintf("Resource bindings of UAPF package %s, optionally narrowed to a process or task.", pkg.PackageID),
			MIMEType:    jsonMediaType,
			PackageID:   pkg.PackageID,
			Kind:        KindBindings,
		})
	}
	return out
}

func (r *Registry) uri(kind, packageID string) string {
	return fmt.Sprintf("%s://%s/%s", r.scheme, kind, url.PathEscape(packageID))
}

// target is a parsed resource URI.
type target struct {
	kind      string
	packageID string
	query     url.Values
}

func (r *Registry) parse(raw string) (target, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return target{}, apperrors.Newf(apperrors.CodeInvalidInput, "invalid resource uri %q", raw)
	}
	if u.Scheme != r.scheme {
		return target{}, apperrors.Newf(apperrors.CodeInvalidInput, "unsupported resource scheme %q", u.Scheme)
	}

	packageID := strings.Trim(u.Path, "/")
	if u.Host == "" || packageID == "" || strings.Contains(packageID, "/") {
		return target{}, apperrors.Newf(apperrors.CodeInvalidInput, "invalid resource uri %q", raw)
	}
	if !knownKind(u.Host) {
		return target{}, apperrors.Newf(apperrors.CodeInvalidInput, "unknown resource kind %q", u.Host)
	}
	return target{kind: u.Host, packageID: packageID, query: u.Query()}, nil
}

func knownKind(kind string) bool {
	switch kind {
	case KindManifest, KindBindings, KindPolicies:
		return true
	}
	for _, k := range ArtifactKinds {
		if k == kind {
			return true
		}
	}
	return false
}

// Read resolves a resource URI. Failures are returned as *errors.Error.
func (r *Registry) Read(ctx context.Context, uri string) (contents []Content, err error) {
	start := time.Now()
	kind := "unknown"
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("resource handler panic", slog.String("uri", uri), slog.Any("panic", rec))
			contents = nil
			err = apperrors.Newf(apperrors.CodeInternal, "%v", rec)
		}
		if err != nil {
			err = apperrors.Normalize(err)
		}
		r.record(ctx, kind, uri, start, err)
	}()

	t, err := r.parse(uri)
	if err != nil {
		return nil, err
	}
	kind = t.kind

	pkg, err := r.scope.Target(t.packageID)
	if err != nil {
		return nil, err
	}

	outcome, err := r.gate.Enforce(ctx, pkg.RequiredClaims, map[string]any{
		"resource":  uri,
		"kind":      t.kind,
		"packageId": pkg.PackageID,
	})
	if err != nil {
		return nil, err
	}

	var content Content
	switch t.kind {
	case KindManifest:
		content, err = r.readManifest(ctx, pkg)
	case KindBindings:
		content, err = r.readBindings(ctx, pkg, t.query)
	case KindPolicies:
		content, err = r.readPolicies(ctx, pkg)
	case KindBPMN, KindDMN, KindCMMN, KindDocs, KindTests:
		content, err = r.readArtifact(ctx, pkg, t.kind, t.query.Get("id"))
	default:
		return nil, apperrors.Newf(apperrors.CodeInvalidInput, "unknown resource kind %q", t.kind)
	}
	if err != nil {
		return nil, err
	}

	content.URI = uri
	content.Meta = outcome.Meta()
	return []Content{content}, nil
}

func (r *Registry) readManifest(ctx context.Context, pkg *engineDomain.Package) (Content, error) {
	artifact, err := r.client.GetArtifact(ctx, pkg.PackageID, KindManifest, "")
	if err != nil {
		return Content{}, err
	}

	if doc, ok := artifact.ParseManifest(); ok {
		return jsonContent(doc)
	}
	return Content{MIMEType: jsonMediaType, Text: string(artifact.Data)}, nil
}

func (r *Registry) readArtifact(ctx context.Context, pkg *engineDomain.Package, kind, id string) (Content, error) {
	artifact, err := r.client.GetArtifact(ctx, pkg.PackageID, kind, id)
	if err != nil {
		return Content{}, err
	}

	if artifact.IsJSON() {
		return Content{MIMEType: artifact.MediaType(), Text: string(artifact.Data)}, nil
	}
	return Content{MIMEType: artifact.MediaType(), Blob: artifact.Base64(), Binary: true}, nil
}

func (r *Registry) readBindings(ctx context.Context, pkg *engineDomain.Package, q url.Values) (Content, error) {
	result, err := r.client.ResolveResources(ctx, engineDomain.ResolveResourcesRequest{
		PackageID: pkg.PackageID,
		ProcessID: q.Get("processId"),
		TaskID:    q.Get("taskId"),
	})
	if err != nil {
		return Content{}, err
	}
	return jsonContent(result)
}

func (r *Registry) readPolicies(ctx context.Context, pkg *engineDomain.Package) (Content, error) {
	result, err := r.client.Validate(ctx, engineDomain.ValidationRequest{PackageID: pkg.PackageID})
	if err != nil {
		return Content{}, err
	}
	return jsonContent(result)
}

func jsonContent(v any) (Content, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return Content{}, apperrors.Wrap(err, "failed to encode resource")
	}
	return Content{MIMEType: jsonMediaType, Text: string(data)}, nil
}

func (r *Registry) record(ctx context.Context, kind, uri string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
		r.logger.Warn("resource read failed",
			slog.String("uri", uri),
			slog.String("code", apperrors.Normalize(err).Code),
			slog.Any("error", err),
		)
	} else {
		r.logger.Debug("resource read completed", slog.String("uri", uri))
	}

	if r.metrics == nil {
		return
	}
	r.metrics.RecordOperation(ctx, "resources", kind, status)
	r.metrics.RecordDuration(ctx, "resources", kind, time.Since(start), status)
}
