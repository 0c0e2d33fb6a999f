package claims

import (
	"context"
	"log/slog"
	"strings"

	apperrors "github.com/allisson/uapf-mcp/internal/errors"
	"github.com/allisson/uapf-mcp/internal/metrics"
)

// SecurityMode controls how unsatisfied claims are handled.
type SecurityMode string

const (
	// ModeOff never consults the verifier.
	ModeOff SecurityMode = "off"
	// ModeDeclare verifies and annotates responses but never blocks.
	ModeDeclare SecurityMode = "declare"
	// ModeEnforce rejects operations whose claims are not satisfied.
	ModeEnforce SecurityMode = "enforce"
)

// ParseSecurityMode parses a configured security mode. The claims_ prefixed
// spellings are accepted as aliases.
func ParseSecurityMode(s string) (SecurityMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "off", "none":
		return ModeOff, nil
	case "declare", "claims_declare":
		return ModeDeclare, nil
	case "enforce", "claims_enforce":
		return ModeEnforce, nil
	}
	return "", apperrors.Wrapf(apperrors.ErrInvalidInput, "unknown security mode %q", s)
}

// Requirement resolves the claims that apply to an operation target. A non-nil
// operation-level requirement overrides the package requirement, even when empty.
func Requirement(operation, pkg []string) []string {
	if operation != nil {
		return operation
	}
	return pkg
}

// Outcome is the gate decision for an allowed operation.
type Outcome struct {
	// RequiredClaims is set when the response must be annotated.
	RequiredClaims []string
	// Satisfied reports the verifier answer. Only meaningful when RequiredClaims is set.
	Satisfied bool
	// Reason carries the verifier reason, if any.
	Reason string
}

// Annotated reports whether the outcome carries an annotation.
func (o Outcome) Annotated() bool {
	return len(o.RequiredClaims) > 0
}

// Apply merges the annotation into a successful operation result. Object
// results receive the fields directly; any other value is nested under "result".
func (o Outcome) Apply(result any) any {
	if !o.Annotated() {
		return result
	}

	var out map[string]any
	switch r := result.(type) {
	case map[string]any:
		out = make(map[string]any, len(r)+2)
		for k, v := range r {
			out[k] = v
		}
	case nil:
		out = make(map[string]any, 2)
	default:
		out = map[string]any{"result": r}
	}

	out["requiredClaims"] = append([]string(nil), o.RequiredClaims...)
	if !o.Satisfied {
		out["claimsSatisfied"] = false
	}
	return out
}

// Meta returns the annotation as resource metadata, or nil when there is none.
func (o Outcome) Meta() map[string]any {
	if !o.Annotated() {
		return nil
	}
	meta := map[string]any{"requiredClaims": append([]string(nil), o.RequiredClaims...)}
	if !o.Satisfied {
		meta["claimsSatisfied"] = false
	}
	return meta
}

// Gate runs the claims check once per operation, before the engine call.
type Gate struct {
	mode     SecurityMode
	verifier Verifier
	logger   *slog.Logger
	metrics  metrics.BusinessMetrics
}

// GateOption configures a Gate.
type GateOption func(*Gate)

// WithMetrics counts gate decisions.
func WithMetrics(m metrics.BusinessMetrics) GateOption {
	return func(g *Gate) {
		if m != nil {
			g.metrics = m
		}
	}
}

// NewGate creates a Gate for the given mode and verifier.
func NewGate(mode SecurityMode, verifier Verifier, logger *slog.Logger, opts ...GateOption) *Gate {
	if verifier == nil {
		verifier = NewNoopVerifier()
	}
	if logger == nil {
		logger = slog.Default()
	}
	g := &Gate{
		mode:     mode,
		verifier: verifier,
		logger:   logger,
		metrics:  metrics.NewNoOpBusinessMetrics(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Mode returns the active security mode.
func (g *Gate) Mode() SecurityMode {
	return g.mode
}

// Enforce evaluates the requirement. It returns a claims_not_satisfied error in
// enforce mode when the verifier rejects, and an Outcome describing the
// annotation otherwise.
func (g *Gate) Enforce(ctx context.Context, required []string, vctx map[string]any) (Outcome, error) {
	if len(required) == 0 || g.mode == ModeOff {
		return Outcome{}, nil
	}

	result := g.verifier.Verify(ctx, required, vctx)

	if !result.Satisfied && g.mode == ModeEnforce {
		reason := result.Reason
		if reason == "" {
			reason = "required claims not satisfied"
		}
		g.metrics.RecordClaimsDecision(ctx, g.mode.String(), metrics.ClaimsBlocked)
		g.logger.Warn("claims gate: operation blocked",
			slog.Any("required_claims", required),
			slog.Any("context", vctx),
			slog.String("reason", reason),
		)
		return Outcome{}, &apperrors.Error{Code: apperrors.CodeClaimsNotSatisfied, Message: reason}
	}

	if result.Satisfied {
		g.metrics.RecordClaimsDecision(ctx, g.mode.String(), metrics.ClaimsSatisfied)
	} else {
		g.metrics.RecordClaimsDecision(ctx, g.mode.String(), metrics.ClaimsDeclared)
		g.logger.Info("claims gate: unsatisfied claims declared",
			slog.Any("required_claims", required),
			slog.Any("context", vctx),
			slog.String("reason", result.Reason),
		)
	}

	return Outcome{
		RequiredClaims: append([]string(nil), required...),
		Satisfied:      result.Satisfied,
		Reason:         result.Reason,
	}, nil
}

func (m SecurityMode) String() string {
	return string(m)
}
