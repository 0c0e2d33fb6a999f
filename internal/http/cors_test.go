package http

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestCreateCORSMiddleware_EmptyOriginReturnsNil(t *testing.T) {
	assert.Nil(t, createCORSMiddleware(" , ", slog.Default()))
}

func TestParseOrigins(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Origins
	}{
		{name: "empty", raw: "", want: Origins{}},
		{name: "wildcard", raw: "*", want: Origins{Any: true}},
		{name: "wildcard in list", raw: "https://app.example.com, *", want: Origins{Any: true}},
		{
			name: "trims and deduplicates",
			raw:  " https://app.example.com , https://admin.example.com,https://app.example.com",
			want: Origins{List: []string{"https://app.example.com", "https://admin.example.com"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseOrigins(tt.raw)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.raw == "", got.Empty())
		})
	}
}

func TestCORSConfig_CredentialsOnlyForExplicitOrigins(t *testing.T) {
	wildcard := corsConfig(Origins{Any: true})
	assert.True(t, wildcard.AllowAllOrigins)
	assert.False(t, wildcard.AllowCredentials)

	listed := corsConfig(Origins{List: []string{"https://app.example.com"}})
	assert.False(t, listed.AllowAllOrigins)
	assert.True(t, listed.AllowCredentials)
	assert.Equal(t, []string{"https://app.example.com"}, listed.AllowOrigins)
	assert.Contains(t, listed.ExposeHeaders, "Mcp-Session-Id")
}

func newCORSRouter(origin string) *gin.Engine {
	router := gin.New()
	if middleware := createCORSMiddleware(origin, slog.Default()); middleware != nil {
		router.Use(middleware)
	}
	router.POST("/mcp", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	return router
}

func TestCORSIntegration_ListedOrigin(t *testing.T) {
	router := newCORSRouter("https://app.example.com")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/mcp", nil)
	req.Header.Set("Origin", "https://app.example.com")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSIntegration_UnlistedOriginRejected(t *testing.T) {
	router := newCORSRouter("https://app.example.com")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/mcp", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSIntegration_WildcardOrigin(t *testing.T) {
	router := newCORSRouter("*")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/mcp", nil)
	req.Header.Set("Origin", "https://anywhere.example.com")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSIntegration_PreflightRequestHandled(t *testing.T) {
	router := newCORSRouter("https://app.example.com")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/mcp", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", "POST")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "POST")
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), "Mcp-Session-Id")
}

func TestCORSIntegration_WildcardWithoutOriginHeader(t *testing.T) {
	router := newCORSRouter("*")

	t.Run("plain request still gets the allow-origin header", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/mcp", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("options is answered with 204", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodOptions, "/mcp", nil))

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), "Mcp-Session-Id")
	})
}

func TestCORSIntegration_ListedOriginsWithoutOriginHeader(t *testing.T) {
	router := newCORSRouter("https://app.example.com")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/mcp", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}
