package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProvider(t *testing.T) {
	t.Run("build info carries version and transport", func(t *testing.T) {
		provider, err := NewProvider("test_app",
			WithService("uapf-mcp", "1.2.3"),
			WithTransport("websocket"),
		)
		require.NoError(t, err)
		defer func() { assert.NoError(t, provider.Shutdown(context.Background())) }()

		body := scrape(t, provider)
		assert.Regexp(t, `test_app_build_info\{[^}]*transport="websocket"[^}]*version="1\.2\.3"[^}]*\} 1`, body)
	})

	t.Run("empty namespace", func(t *testing.T) {
		provider, err := NewProvider("")
		require.NoError(t, err)

		body := scrape(t, provider)
		assert.Regexp(t, `(?m)^build_info\{[^}]*version="dev"[^}]*\} 1`, body)
	})

	t.Run("runtime collectors", func(t *testing.T) {
		provider, err := NewProvider("test_app", WithRuntimeCollectors())
		require.NoError(t, err)

		body := scrape(t, provider)
		assert.Contains(t, body, "go_goroutines")
	})

	t.Run("target info reports the service", func(t *testing.T) {
		provider, err := NewProvider("test_app", WithService("gateway-a", "9.9.9"))
		require.NoError(t, err)

		counter, err := provider.MeterProvider().Meter("test").Int64Counter("test_app_probe_total")
		require.NoError(t, err)
		counter.Add(context.Background(), 1)

		body := scrape(t, provider)
		assert.Contains(t, body, `service_name="gateway-a"`)
		assert.Contains(t, body, `service_version="9.9.9"`)
	})
}

func TestProvider_Handler(t *testing.T) {
	provider, err := NewProvider("test_app")
	require.NoError(t, err)

	w := httptest.NewRecorder()
	provider.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestProvider_Shutdown(t *testing.T) {
	t.Run("shutdown provider", func(t *testing.T) {
		provider, err := NewProvider("test_app")
		require.NoError(t, err)
		assert.NoError(t, provider.Shutdown(context.Background()))
	})

	t.Run("shutdown without meter provider", func(t *testing.T) {
		provider := &Provider{}
		assert.NoError(t, provider.Shutdown(context.Background()))
	})
}
