package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPMetricsMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	provider, err := NewProvider("test_app")
	require.NoError(t, err)
	defer func() {
		assert.NoError(t, provider.Shutdown(context.Background()))
	}()

	router := gin.New()
	router.Use(HTTPMetricsMiddleware(provider.MeterProvider(), "test_app", "streamable_http"))
	router.POST("/mcp", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"jsonrpc": "2.0"})
	})
	router.GET("/packages/:id", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"id": c.Param("id")})
	})

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/mcp", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	}
	for _, id := range []string{"a", "b"} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/packages/"+id, nil))
		assert.Equal(t, http.StatusOK, w.Code)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/missing", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	output := scrape(t, provider)

	assertBizMetricLine(t, output, `test_app_http_requests_total`,
		`method="POST".*path="/mcp".*status_code="200".*transport="streamable_http"`, `3`)
	assertBizMetricLine(t, output, `test_app_http_requests_total`,
		`method="GET".*path="/packages/:id".*status_code="200"`, `2`)
	assertBizMetricLine(t, output, `test_app_http_requests_total`,
		`path="unknown".*status_code="404"`, `1`)
	assertBizMetricLine(t, output, `test_app_http_request_duration_seconds_count`,
		`method="POST".*path="/mcp"`, `3`)
}

func TestSanitizePath(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "RoutePattern", input: "/packages/:id", expected: "/packages/:id"},
		{name: "ProtocolPath", input: "/mcp", expected: "/mcp"},
		{name: "EmptyPath", input: "", expected: "unknown"},
		{name: "RootPath", input: "/", expected: "/"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, sanitizePath(tt.input))
		})
	}
}
