package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/cors"
)

const corsMaxAge = 3600

var (
	corsAllowedMethods = []string{http.MethodGet, http.MethodPost, http.MethodOptions}
	corsAllowedHeaders = []string{"Accept", "Content-Type", "X-Request-Id"}
)

// CORSMiddleware allows cross-origin reads from the configured origins.
// Credentials are never allowed, so "*" may be used as a wildcard origin.
// Requests from other origins get no CORS headers and are blocked by the browser.
func CORSMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	origins := make([]string, 0, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		origin = strings.TrimRight(strings.TrimSpace(origin), "/")
		if origin != "" {
			origins = append(origins, origin)
		}
	}

	options := cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   corsAllowedMethods,
		AllowedHeaders:   corsAllowedHeaders,
		AllowCredentials: false,
		MaxAge:           corsMaxAge,
	}
	// An empty list means "allow all" to the cors package
	if len(origins) == 0 {
		slog.Warn("No CORS origins configured, cross-origin requests will be rejected")
		options.AllowOriginFunc = func(*http.Request, string) bool { return false }
	}

	return cors.Handler(options)
}
