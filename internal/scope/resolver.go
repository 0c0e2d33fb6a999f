package scope

import (
	"context"
	"log/slog"

	"github.com/allisson/uapf-mcp/internal/engine"
	engineDomain "github.com/allisson/uapf-mcp/internal/engine/domain"
	apperrors "github.com/allisson/uapf-mcp/internal/errors"
)

// Options configures a Resolver.
type Options struct {
	Signals
	// PackageID selects the scoped package in package mode. Empty means the
	// first package listed by the engine.
	PackageID string
	// EngineMode is the engine mode override ("packages", "workspace", "auto").
	EngineMode string
	// EngineURL is reported back to clients by describe.
	EngineURL string
}

// Resolver runs the startup sequence: validate, probe, resolve, fetch.
type Resolver struct {
	client engine.Client
	opts   Options
	logger *slog.Logger
}

// NewResolver creates a Resolver.
func NewResolver(client engine.Client, opts Options, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		client: client,
		opts:   opts,
		logger: logger,
	}
}

// Resolve returns the scope the gateway will serve. Configuration errors are
// reported before any engine call. A failed probe only forfeits the probed
// fallback; a failed package fetch or an empty package set is fatal.
func (r *Resolver) Resolve(ctx context.Context) (*Scope, error) {
	if err := ValidateSignals(r.opts.Signals); err != nil {
		return nil, err
	}

	probed := r.probe(ctx)

	mode, err := ResolveMode(r.opts.Signals, probed)
	if err != nil {
		return nil, err
	}
	engineMode := ResolveEngineMode(r.opts.EngineMode, probed)

	packages, err := r.client.ListPackages(ctx)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list engine packages")
	}
	if len(packages) == 0 {
		return nil, apperrors.Wrap(apperrors.ErrNotFound, "engine reported zero packages")
	}

	var scoped *engineDomain.Package
	if mode == ModePackage {
		scoped, err = r.selectPackage(ctx, packages)
		if err != nil {
			return nil, err
		}
	}

	s := New(mode, engineMode, r.opts.EngineURL, packages, scoped)

	attrs := []any{
		slog.String("mode", string(s.Mode)),
		slog.String("engine_mode", s.EngineMode),
		slog.Int("packages", len(s.Packages)),
	}
	if s.ScopedPackage != nil {
		attrs = append(attrs, slog.String("scoped_package", s.ScopedPackage.PackageID))
	}
	r.logger.Info("scope resolved", attrs...)

	return s, nil
}

// probe fetches the engine meta document. Failures are logged and ignored.
func (r *Resolver) probe(ctx context.Context) string {
	meta, err := r.client.GetMeta(ctx)
	if err != nil {
		r.logger.Warn("engine meta probe failed", slog.Any("error", err))
		return ""
	}
	return meta.Mode()
}

func (r *Resolver) selectPackage(
	ctx context.Context,
	packages []engineDomain.Package,
) (*engineDomain.Package, error) {
	if r.opts.PackageID == "" {
		return &packages[0], nil
	}

	for i := range packages {
		if packages[i].PackageID == r.opts.PackageID {
			return &packages[i], nil
		}
	}

	pkg, err := r.client.GetPackage(ctx, r.opts.PackageID)
	if err != nil {
		return nil, apperrors.Wrapf(err, "failed to fetch package %s", r.opts.PackageID)
	}
	return pkg, nil
}
