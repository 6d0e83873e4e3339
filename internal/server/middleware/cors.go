package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// CORSConfig holds configuration for the CORS middleware.
type CORSConfig struct {
	// AllowOrigins is a list of origins that may access the resource.
	// Use "*" to allow all origins.
	AllowOrigins []string

	// AllowHeaders is sent as Access-Control-Allow-Headers.
	AllowHeaders []string
}

// DefaultCORSConfig returns the permissive policy used by the relay.
func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{"Origin", "X-Requested-With", "Content-Type", "Accept"},
	}
}

// corsContext holds pre-computed values for CORS middleware.
type corsContext struct {
	config          CORSConfig
	allowAllOrigins bool
	allowHeadersStr string
}

func newCORSContext(config CORSConfig) *corsContext {
	defaults := DefaultCORSConfig()
	if len(config.AllowOrigins) == 0 {
		config.AllowOrigins = defaults.AllowOrigins
	}
	if len(config.AllowHeaders) == 0 {
		config.AllowHeaders = defaults.AllowHeaders
	}

	allowAllOrigins := false
	for _, origin := range config.AllowOrigins {
		if origin == "*" {
			allowAllOrigins = true
			break
		}
	}

	return &corsContext{
		config:          config,
		allowAllOrigins: allowAllOrigins,
		allowHeadersStr: strings.Join(config.AllowHeaders, ", "),
	}
}

// CORS returns a middleware that applies the cross-origin policy to
// every response, whether or not the request carried an Origin header.
// Preflight requests are answered with 204 and never reach a handler.
func CORS(config CORSConfig) gin.HandlerFunc {
	ctx := newCORSContext(config)

	return func(c *gin.Context) {
		switch {
		case ctx.allowAllOrigins:
			c.Header("Access-Control-Allow-Origin", "*")
		default:
			origin := c.Request.Header.Get("Origin")
			c.Header("Vary", "Origin")
			if origin != "" && isOriginAllowed(origin, ctx.config.AllowOrigins) {
				c.Header("Access-Control-Allow-Origin", origin)
			}
		}
		c.Header("Access-Control-Allow-Headers", ctx.allowHeadersStr)

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// isOriginAllowed checks if the origin is in the allowed list.
func isOriginAllowed(origin string, allowedOrigins []string) bool {
	for _, allowed := range allowedOrigins {
		if allowed == origin {
			return true
		}
	}
	return false
}
