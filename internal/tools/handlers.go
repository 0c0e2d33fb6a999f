package tools

import (
	"context"

	"github.com/allisson/uapf-mcp/internal/claims"
	engineDomain "github.com/allisson/uapf-mcp/internal/engine/domain"
	"github.com/allisson/uapf-mcp/internal/scope"
)

func stringArg(args map[string]any, key string) string {
	s, _ := args[key].(string)
	return s
}

// claimsContext builds the opaque context handed to the verifier.
func claimsContext(canonical string, kv ...string) map[string]any {
	ctx := map[string]any{"tool": canonical}
	for i := 0; i+1 < len(kv); i += 2 {
		if kv[i+1] != "" {
			ctx[kv[i]] = kv[i+1]
		}
	}
	return ctx
}

func (r *Registry) describe(_ context.Context, _ map[string]any) (any, error) {
	aliasMap := AliasMap(r.prefix)
	aliases := []map[string]any{}
	for _, canonical := range CanonicalTools {
		for _, alias := range aliasMap[canonical] {
			aliases = append(aliases, map[string]any{"name": alias, "canonical": canonical})
		}
	}

	out := map[string]any{
		"name":         r.serverName,
		"mode":         string(r.scope.Mode),
		"securityMode": r.gate.Mode().String(),
		"engine": map[string]any{
			"url":  r.scope.EngineURL,
			"mode": r.scope.EngineMode,
		},
		"capabilities": map[string]any{
			"runProcess":       true,
			"evaluateDecision": true,
			"validate":         true,
			"resolveResources": true,
			"tools":            true,
			"resources":        true,
			"claims":           r.gate.Mode() != claims.ModeOff,
			"workspaceScope":   r.scope.Mode == scope.ModeWorkspace,
			"packageCount":     len(r.scope.Packages),
		},
		"tooling": map[string]any{
			"canonicalTools": append([]string(nil), CanonicalTools...),
			"aliases":        aliases,
			"aliasMap":       aliasMap,
		},
	}
	if pkg := r.scope.ScopedPackage; pkg != nil {
		out["scopedPackage"] = map[string]any{
			"packageId": pkg.PackageID,
			"version":   pkg.Version,
		}
	}
	return out, nil
}

func (r *Registry) list(_ context.Context, args map[string]any) (any, error) {
	tag := stringArg(args, "tag")
	domain := stringArg(args, "domain")
	q := stringArg(args, "q")

	candidates := r.scope.Packages
	if r.scope.Mode == scope.ModePackage && r.scope.ScopedPackage != nil {
		candidates = []engineDomain.Package{*r.scope.ScopedPackage}
	}

	out := []engineDomain.Package{}
	for i := range candidates {
		pkg := &candidates[i]
		if tag != "" && !pkg.HasTag(tag) {
			continue
		}
		if domain != "" && pkg.Domain != domain {
			continue
		}
		if q != "" && !pkg.MatchesQuery(q) {
			continue
		}
		out = append(out, *pkg)
	}
	return out, nil
}

func (r *Registry) runProcess(ctx context.Context, args map[string]any) (any, error) {
	processID := stringArg(args, "processId")
	pkg, err := r.scope.Target(stringArg(args, "packageId"))
	if err != nil {
		return nil, err
	}

	var operationClaims []string
	if p, ok := pkg.FindProcess(processID); ok {
		operationClaims = p.RequiredClaims
	}

	outcome, err := r.gate.Enforce(
		ctx,
		claims.Requirement(operationClaims, pkg.RequiredClaims),
		claimsContext(ToolRunProcess, "packageId", pkg.PackageID, "processId", processID),
	)
	if err != nil {
		return nil, err
	}

	result, err := r.client.RunProcess(ctx, engineDomain.ProcessExecutionRequest{
		PackageID: pkg.PackageID,
		ProcessID: processID,
		Input:     args["input"],
	})
	if err != nil {
		return nil, err
	}
	return outcome.Apply(result), nil
}

func (r *Registry) evaluateDecision(ctx context.Context, args map[string]any) (any, error) {
	decisionID := stringArg(args, "decisionId")
	pkg, err := r.scope.Target(stringArg(args, "packageId"))
	if err != nil {
		return nil, err
	}

	var operationClaims []string
	if d, ok := pkg.FindDecision(decisionID); ok {
		operationClaims = d.RequiredClaims
	}

	outcome, err := r.gate.Enforce(
		ctx,
		claims.Requirement(operationClaims, pkg.RequiredClaims),
		claimsContext(ToolEvaluateDecision, "packageId", pkg.PackageID, "decisionId", decisionID),
	)
	if err != nil {
		return nil, err
	}

	result, err := r.client.EvaluateDecision(ctx, engineDomain.DecisionEvaluationRequest{
		PackageID:  pkg.PackageID,
		DecisionID: decisionID,
		Input:      args["input"],
	})
	if err != nil {
		return nil, err
	}
	return outcome.Apply(result), nil
}

func (r *Registry) resolveResources(ctx context.Context, args map[string]any) (any, error) {
	processID := stringArg(args, "processId")
	taskID := stringArg(args, "taskId")
	pkg, err := r.scope.Target(stringArg(args, "packageId"))
	if err != nil {
		return nil, err
	}

	var operationClaims []string
	if processID != "" {
		if p, ok := pkg.FindProcess(processID); ok {
			operationClaims = p.RequiredClaims
		}
	}

	outcome, err := r.gate.Enforce(
		ctx,
		claims.Requirement(operationClaims, pkg.RequiredClaims),
		claimsContext(ToolResolveResources,
			"packageId", pkg.PackageID,
			"processId", processID,
			"taskId", taskID,
		),
	)
	if err != nil {
		return nil, err
	}

	result, err := r.client.ResolveResources(ctx, engineDomain.ResolveResourcesRequest{
		PackageID: pkg.PackageID,
		ProcessID: processID,
		TaskID:    taskID,
	})
	if err != nil {
		return nil, err
	}
	return outcome.Apply(result), nil
}

func (r *Registry) getArtifact(ctx context.Context, args map[string]any) (any, error) {
	kind := stringArg(args, "kind")
	id := stringArg(args, "id")
	pkg, err := r.scope.Target(stringArg(args, "packageId"))
	if err != nil {
		return nil, err
	}

	outcome, err := r.gate.Enforce(
		ctx,
		pkg.RequiredClaims,
		claimsContext(ToolGetArtifact, "packageId", pkg.PackageID, "kind", kind, "id", id),
	)
	if err != nil {
		return nil, err
	}

	artifact, err := r.client.GetArtifact(ctx, pkg.PackageID, kind, id)
	if err != nil {
		return nil, err
	}

	if kind == "manifest" {
		return outcome.Apply(artifact.Manifest()), nil
	}
	return outcome.Apply(map[string]any{
		"mediaType":     artifact.MediaType(),
		"contentBase64": artifact.Base64(),
	}), nil
}

func (r *Registry) validate(ctx context.Context, args map[string]any) (any, error) {
	packageID := stringArg(args, "packageId")

	var pkg *engineDomain.Package
	switch {
	case r.scope.Mode == scope.ModePackage:
		target := packageID
		if target == "" && r.scope.ScopedPackage != nil {
			target = r.scope.ScopedPackage.PackageID
		}
		p, err := r.scope.Target(target)
		if err != nil {
			return nil, err
		}
		pkg = p
	case packageID != "":
		p, err := r.scope.Target(packageID)
		if err != nil {
			return nil, err
		}
		pkg = p
	}

	req := engineDomain.ValidationRequest{}
	var required []string
	if pkg != nil {
		req.PackageID = pkg.PackageID
		required = pkg.RequiredClaims
	}

	outcome, err := r.gate.Enforce(ctx, required, claimsContext(ToolValidate, "packageId", req.PackageID))
	if err != nil {
		return nil, err
	}

	result, err := r.client.Validate(ctx, req)
	if err != nil {
		return nil, err
	}
	return outcome.Apply(result), nil
}
