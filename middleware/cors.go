// Package middleware provides the HTTP middleware shared by the REST API and
// the WebSocket upgrade endpoint.
package middleware

import (
	"net/http"
	"strconv"
	"strings"
)

// CORSConfig holds CORS middleware configuration.
type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
	MaxAge         int // Preflight cache duration in seconds
}

// originMatcher decides whether a browser origin may call the API.
// Entries are exact origins, "*", or scheme://*.domain wildcards.
type originMatcher struct {
	allowAll bool
	allowed  []string
}

func newOriginMatcher(origins []string) originMatcher {
	m := originMatcher{allowAll: len(origins) == 0}
	for _, o := range origins {
		if o == "*" {
			m.allowAll = true
		}
		m.allowed = append(m.allowed, o)
	}
	return m
}

func (m originMatcher) match(origin string) bool {
	if m.allowAll {
		return true
	}
	for _, allowed := range m.allowed {
		if allowed == origin || matchWildcardOrigin(allowed, origin) {
			return true
		}
	}
	return false
}

// CORS creates a middleware that handles CORS headers for the wallet front-end.
func CORS(cfg CORSConfig) func(http.Handler) http.Handler {
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{"*"}
	}
	if len(cfg.AllowedMethods) == 0 {
		cfg.AllowedMethods = []string{"GET", "POST", "OPTIONS"}
	}
	if len(cfg.AllowedHeaders) == 0 {
		cfg.AllowedHeaders = []string{"Content-Type", "Authorization", "X-Request-ID"}
	}
	if cfg.MaxAge == 0 {
		cfg.MaxAge = 86400 // 24 hours
	}

	origins := newOriginMatcher(cfg.AllowedOrigins)
	methods := strings.Join(cfg.AllowedMethods, ", ")
	headers := strings.Join(cfg.AllowedHeaders, ", ")
	maxAge := strconv.Itoa(cfg.MaxAge)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Add("Vary", "Origin")

			origin := r.Header.Get("Origin")
			if origin == "" {
				next.ServeHTTP(w, r)
				return
			}

			if !origins.match(origin) {
				// Same-origin clients never send a foreign Origin, so only
				// the preflight needs an explicit refusal.
				if r.Method == http.MethodOptions {
					w.WriteHeader(http.StatusForbidden)
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")

			if r.Method == http.MethodOptions {
				w.Header().Set("Access-Control-Allow-Methods", methods)
				w.Header().Set("Access-Control-Allow-Headers", headers)
				w.Header().Set("Access-Control-Max-Age", maxAge)
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// CheckOrigin returns a function for WebSocket origin checking.
func CheckOrigin(allowedOrigins []string) func(*http.Request) bool {
	origins := newOriginMatcher(allowedOrigins)
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || origins.match(origin)
	}
}

// matchWildcardOrigin reports whether origin matches a "scheme://*.domain"
// pattern. The bare domain itself does not match. Ports are ignored.
func matchWildcardOrigin(pattern, origin string) bool {
	scheme, patternHost, ok := strings.Cut(pattern, "://")
	if !ok || !strings.HasPrefix(patternHost, "*.") {
		return false
	}
	originScheme, originHost, ok := strings.Cut(origin, "://")
	if !ok || originScheme != scheme {
		return false
	}

	patternHost, _, _ = strings.Cut(patternHost, ":")
	originHost, _, _ = strings.Cut(originHost, ":")

	suffix := patternHost[1:] // ".example.com"
	return strings.HasSuffix(originHost, suffix) && len(originHost) > len(suffix)
}
