package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/allisson/uapf-mcp/internal/claims"
	"github.com/allisson/uapf-mcp/internal/engine"
	apperrors "github.com/allisson/uapf-mcp/internal/errors"
	"github.com/allisson/uapf-mcp/internal/metrics"
	"github.com/allisson/uapf-mcp/internal/scope"
)

const schemaBaseURL = "https://uapf.local/schemas/tools/"

// Handler implements one canonical tool. Arguments have already been validated
// against the tool input schema.
type Handler func(ctx context.Context, args map[string]any) (any, error)

// Descriptor is the protocol-visible description of a registered tool name.
type Descriptor struct {
	Name         string
	Canonical    string
	Description  string
	InputSchema  json.RawMessage
	OutputSchema json.RawMessage
}

// Options carries the presentation settings of the registry.
type Options struct {
	ServerName string
	Prefix     string
	// Metrics is optional; nil disables business metrics.
	Metrics metrics.BusinessMetrics
}

// Registry maps tool names (canonical and aliases) onto shared handlers.
type Registry struct {
	scope      *scope.Scope
	client     engine.Client
	gate       *claims.Gate
	serverName string
	prefix     string
	metrics    metrics.BusinessMetrics
	logger     *slog.Logger

	handlers      map[string]Handler
	inputSchemas  map[string]*jsonschema.Schema
	outputSchemas map[string]*jsonschema.Schema
	canonicalOf   map[string]string
	descriptors   []Descriptor
}

// NewRegistry builds the registry for a resolved scope. Every canonical tool is
// registered under its canonical name and its prefixed alias.
func NewRegistry(
	sc *scope.Scope,
	client engine.Client,
	gate *claims.Gate,
	opts Options,
	logger *slog.Logger,
) (*Registry, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if gate == nil {
		gate = claims.NewGate(claims.ModeOff, nil, logger)
	}
	prefix := opts.Prefix
	if prefix == "" {
		prefix = DefaultPrefix
	}

	r := &Registry{
		scope:         sc,
		client:        client,
		gate:          gate,
		serverName:    opts.ServerName,
		prefix:        prefix,
		metrics:       opts.Metrics,
		logger:        logger,
		inputSchemas:  make(map[string]*jsonschema.Schema, len(CanonicalTools)),
		outputSchemas: make(map[string]*jsonschema.Schema, len(CanonicalTools)),
		canonicalOf:   make(map[string]string),
	}
	r.handlers = map[string]Handler{
		ToolDescribe:         r.describe,
		ToolList:             r.list,
		ToolRunProcess:       r.runProcess,
		ToolEvaluateDecision: r.evaluateDecision,
		ToolResolveResources: r.resolveResources,
		ToolGetArtifact:      r.getArtifact,
		ToolValidate:         r.validate,
	}

	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	for _, canonical := range CanonicalTools {
		in, err := compileSchema(compiler, canonical+".input.json", inputSchemas[canonical])
		if err != nil {
			return nil, err
		}
		out, err := compileSchema(compiler, canonical+".output.json", outputSchemas[canonical])
		if err != nil {
			return nil, err
		}
		r.inputSchemas[canonical] = in
		r.outputSchemas[canonical] = out

		for _, name := range Names(canonical, prefix) {
			if _, exists := r.canonicalOf[name]; exists {
				continue
			}
			r.canonicalOf[name] = canonical
			r.descriptors = append(r.descriptors, Descriptor{
				Name:         name,
				Canonical:    canonical,
				Description:  descriptions[canonical],
				InputSchema:  rawSchema(inputSchemas[canonical]),
				OutputSchema: rawSchema(outputSchemas[canonical]),
			})
		}
	}

	return r, nil
}

func compileSchema(c *jsonschema.Compiler, name, schema string) (*jsonschema.Schema, error) {
	url := schemaBaseURL + name
	if err := c.AddResource(url, strings.NewReader(schema)); err != nil {
		return nil, fmt.Errorf("failed to add schema %s: %w", name, err)
	}
	sch, err := c.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema %s: %w", name, err)
	}
	return sch, nil
}

// Descriptors returns every registered tool name in registration order.
func (r *Registry) Descriptors() []Descriptor {
	return append([]Descriptor(nil), r.descriptors...)
}

// Canonical returns the canonical tool behind a registered name.
func (r *Registry) Canonical(name string) (string, bool) {
	c, ok := r.canonicalOf[name]
	return c, ok
}

// Call invokes the tool registered under name. Every failure, including a
// panic in the handler, is returned as a *errors.Error.
func (r *Registry) Call(ctx context.Context, name string, args map[string]any) (result any, err error) {
	canonical, ok := r.canonicalOf[name]
	if !ok {
		return nil, apperrors.Newf(apperrors.CodeInvalidInput, "unknown tool %s", name)
	}

	start := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("tool handler panic",
				slog.String("tool", name),
				slog.Any("panic", rec),
			)
			result = nil
			err = apperrors.Newf(apperrors.CodeInternal, "%v", rec)
		}
		if err != nil {
			err = apperrors.Normalize(err)
		}
		r.record(ctx, canonical, start, err)
	}()

	normalized, err := r.validateInput(canonical, args)
	if err != nil {
		return nil, err
	}

	result, err = r.handlers[canonical](ctx, normalized)
	if err != nil {
		return nil, err
	}

	r.checkOutput(canonical, result)
	return result, nil
}

// validateInput round-trips args through JSON so the schema sees plain JSON values.
func (r *Registry) validateInput(canonical string, args map[string]any) (map[string]any, error) {
	if args == nil {
		args = map[string]any{}
	}
	raw, err := json.Marshal(args)
	if err != nil {
		return nil, apperrors.Newf(apperrors.CodeInvalidInput, "arguments are not valid JSON: %v", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, apperrors.Newf(apperrors.CodeInvalidInput, "arguments are not valid JSON: %v", err)
	}
	if doc == nil {
		doc = map[string]any{}
	}

	if err := r.inputSchemas[canonical].Validate(doc); err != nil {
		return nil, apperrors.Newf(apperrors.CodeInvalidInput, "invalid arguments for %s: %v", canonical, err)
	}
	return doc, nil
}

func (r *Registry) checkOutput(canonical string, result any) {
	sch := r.outputSchemas[canonical]
	raw, err := json.Marshal(result)
	if err != nil {
		r.logger.Warn("tool result is not serializable", slog.String("tool", canonical), slog.Any("error", err))
		return
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return
	}
	if err := sch.Validate(doc); err != nil {
		r.logger.Debug("tool result does not match output schema",
			slog.String("tool", canonical),
			slog.Any("error", err),
		)
	}
}

func (r *Registry) record(ctx context.Context, canonical string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
		code := apperrors.Normalize(err).Code
		r.logger.Warn("tool call failed",
			slog.String("tool", canonical),
			slog.String("code", code),
			slog.Any("error", err),
		)
	} else {
		r.logger.Debug("tool call completed",
			slog.String("tool", canonical),
			slog.Duration("duration", time.Since(start)),
		)
	}

	if r.metrics == nil {
		return
	}
	operation := Operation(canonical)
	r.metrics.RecordOperation(ctx, "tools", operation, status)
	r.metrics.RecordDuration(ctx, "tools", operation, time.Since(start), status)
}
