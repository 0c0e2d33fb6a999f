package metrics

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type httpMetrics struct {
	requestCounter metric.Int64Counter
	durationHisto  metric.Float64Histogram
	transport      string
}

// HTTPMetricsMiddleware returns a Gin middleware that records request counts and
// durations labelled with transport, method, path and status_code. The path is
// the route pattern (e.g., /mcp), so unmatched requests share the "unknown" label.
func HTTPMetricsMiddleware(meterProvider metric.MeterProvider, namespace, transport string) gin.HandlerFunc {
	m, err := newHTTPMetrics(meterProvider, namespace, transport)
	if err != nil {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		m.record(c, time.Since(start))
	}
}

func newHTTPMetrics(meterProvider metric.MeterProvider, namespace, transport string) (*httpMetrics, error) {
	meter := meterProvider.Meter(namespace)

	requestCounter, err := meter.Int64Counter(
		fmt.Sprintf("%s_http_requests_total", namespace),
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	durationHisto, err := meter.Float64Histogram(
		fmt.Sprintf("%s_http_request_duration_seconds", namespace),
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &httpMetrics{
		requestCounter: requestCounter,
		durationHisto:  durationHisto,
		transport:      transport,
	}, nil
}

func (m *httpMetrics) record(c *gin.Context, duration time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("transport", m.transport),
		attribute.String("method", c.Request.Method),
		attribute.String("path", sanitizePath(c.FullPath())),
		attribute.String("status_code", strconv.Itoa(c.Writer.Status())),
	)

	ctx := c.Request.Context()
	m.requestCounter.Add(ctx, 1, attrs)
	m.durationHisto.Record(ctx, duration.Seconds(), attrs)
}

// sanitizePath returns the route pattern, or "unknown" when no route matched.
func sanitizePath(fullPath string) string {
	if fullPath == "" {
		return "unknown"
	}
	return fullPath
}
