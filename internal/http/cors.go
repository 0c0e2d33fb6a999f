package http

import (
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Headers a browser-hosted MCP client sends or needs to read back.
var (
	protocolRequestHeaders = []string{
		"Authorization",
		"Content-Type",
		"Accept",
		"Last-Event-ID",
		"Mcp-Session-Id",
		"Mcp-Protocol-Version",
	}
	protocolExposedHeaders = []string{
		"X-Request-Id",
		"Mcp-Session-Id",
	}
)

// Origins is the parsed MCP_CORS_ORIGIN value.
type Origins struct {
	// Any is set when "*" appears anywhere in the list.
	Any  bool
	List []string
}

// Empty reports whether no origin was configured.
func (o Origins) Empty() bool {
	return !o.Any && len(o.List) == 0
}

// ParseOrigins splits a comma separated origin list. A "*" entry allows
// every origin and discards the explicit entries.
func ParseOrigins(raw string) Origins {
	var origins Origins
	for part := range strings.SplitSeq(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if part == "*" {
			return Origins{Any: true}
		}
		if !slices.Contains(origins.List, part) {
			origins.List = append(origins.List, part)
		}
	}
	return origins
}

func corsConfig(origins Origins) cors.Config {
	config := cors.Config{
		AllowMethods:  []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:  protocolRequestHeaders,
		ExposeHeaders: protocolExposedHeaders,
		MaxAge:        12 * time.Hour,
	}
	if origins.Any {
		config.AllowAllOrigins = true
		return config
	}
	config.AllowOrigins = origins.List
	config.AllowCredentials = true
	return config
}

// createCORSMiddleware returns nil when no origin is configured.
func createCORSMiddleware(raw string, logger *slog.Logger) gin.HandlerFunc {
	origins := ParseOrigins(raw)
	if origins.Empty() {
		logger.Warn("no CORS origin configured, CORS headers will not be sent")
		return nil
	}

	logger.Debug("CORS enabled",
		slog.Bool("any_origin", origins.Any),
		slog.Any("origins", origins.List),
	)
	handler := cors.New(corsConfig(origins))
	if !origins.Any {
		return handler
	}
	return wildcardCORS(handler)
}

// wildcardCORS sends the allow-all headers on every response, including those
// to requests without an Origin header, and answers any OPTIONS with 204.
func wildcardCORS(handler gin.HandlerFunc) gin.HandlerFunc {
	allowHeaders := strings.Join(protocolRequestHeaders, ",")
	return func(c *gin.Context) {
		handler(c)
		if c.IsAborted() {
			return
		}

		c.Header("Access-Control-Allow-Origin", "*")
		if c.Request.Method == http.MethodOptions {
			c.Header("Access-Control-Allow-Methods", "GET,POST,DELETE,OPTIONS")
			c.Header("Access-Control-Allow-Headers", allowHeaders)
			c.AbortWithStatus(http.StatusNoContent)
		}
	}
}
