// Package metrics provides OpenTelemetry metrics instrumentation with Prometheus export.
// Gateway operations (tools, resources, engine calls, claims decisions) and HTTP
// requests are recorded here and scraped from the metrics server.
package metrics

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
)

// Provider owns the meter provider and the Prometheus registry it exports into.
type Provider struct {
	meterProvider *metric.MeterProvider
	registry      *prometheus.Registry
}

type providerOptions struct {
	serviceName    string
	serviceVersion string
	transport      string
	runtime        bool
}

// ProviderOption configures NewProvider.
type ProviderOption func(*providerOptions)

// WithService sets the service name and version reported in target_info and build_info.
func WithService(name, version string) ProviderOption {
	return func(o *providerOptions) {
		o.serviceName = name
		o.serviceVersion = version
	}
}

// WithTransport labels build_info with the active transport.
func WithTransport(transport string) ProviderOption {
	return func(o *providerOptions) {
		o.transport = transport
	}
}

// WithRuntimeCollectors registers the Go runtime and process collectors.
func WithRuntimeCollectors() ProviderOption {
	return func(o *providerOptions) {
		o.runtime = true
	}
}

// NewProvider creates a meter provider backed by a private Prometheus registry.
// The namespace prefixes every metric name (e.g., "uapf_mcp").
func NewProvider(namespace string, opts ...ProviderOption) (*Provider, error) {
	o := providerOptions{serviceName: "uapf-mcp", serviceVersion: "dev"}
	for _, opt := range opts {
		opt(&o)
	}

	registry := prometheus.NewRegistry()

	if o.runtime {
		if err := registry.Register(collectors.NewGoCollector()); err != nil {
			return nil, fmt.Errorf("failed to register go collector: %w", err)
		}
		processCollector := collectors.NewProcessCollector(collectors.ProcessCollectorOpts{Namespace: namespace})
		if err := registry.Register(processCollector); err != nil {
			return nil, fmt.Errorf("failed to register process collector: %w", err)
		}
	}

	buildInfo := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: prometheus.BuildFQName(namespace, "", "build_info"),
		Help: "Build and runtime configuration of the gateway",
		ConstLabels: prometheus.Labels{
			"version":   o.serviceVersion,
			"transport": o.transport,
		},
	})
	buildInfo.Set(1)
	if err := registry.Register(buildInfo); err != nil {
		return nil, fmt.Errorf("failed to register build info: %w", err)
	}

	exporter, err := promexporter.New(promexporter.WithRegisterer(registry))
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	res := resource.NewSchemaless(
		attribute.String("service.name", o.serviceName),
		attribute.String("service.version", o.serviceVersion),
	)

	return &Provider{
		meterProvider: metric.NewMeterProvider(
			metric.WithReader(exporter),
			metric.WithResource(res),
		),
		registry: registry,
	}, nil
}

// Handler serves the registry in Prometheus exposition format.
func (p *Provider) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// MeterProvider returns the OpenTelemetry meter provider.
func (p *Provider) MeterProvider() *metric.MeterProvider {
	return p.meterProvider
}

// Shutdown flushes and stops the meter provider.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.meterProvider == nil {
		return nil
	}
	return p.meterProvider.Shutdown(ctx)
}
