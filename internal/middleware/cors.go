package middleware

import (
	"net/http"
	"strconv"
	"strings"
)

// CORSConfig holds CORS configuration
type CORSConfig struct {
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	ExposedHeaders   []string
	AllowCredentials bool
	MaxAge           int
}

// DefaultCORSConfig returns the CORS configuration for the storefront API
func DefaultCORSConfig(origins ...string) CORSConfig {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return CORSConfig{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           86400,
	}
}

// originPolicy is a CORSConfig resolved once into lookup tables and header values
type originPolicy struct {
	anyOrigin bool
	exact     map[string]bool
	suffixes  []string
	headers   http.Header
}

func newOriginPolicy(config CORSConfig) originPolicy {
	p := originPolicy{exact: make(map[string]bool), headers: make(http.Header)}
	for _, allowed := range config.AllowedOrigins {
		switch {
		case allowed == "*":
			p.anyOrigin = true
		case strings.HasPrefix(allowed, "*."):
			p.suffixes = append(p.suffixes, allowed[1:])
		default:
			p.exact[allowed] = true
		}
	}

	set := func(name string, values []string) {
		if len(values) > 0 {
			p.headers.Set(name, strings.Join(values, ", "))
		}
	}
	set("Access-Control-Allow-Methods", config.AllowedMethods)
	set("Access-Control-Allow-Headers", config.AllowedHeaders)
	set("Access-Control-Expose-Headers", config.ExposedHeaders)
	if config.MaxAge > 0 {
		p.headers.Set("Access-Control-Max-Age", strconv.Itoa(config.MaxAge))
	}
	if config.AllowCredentials {
		p.headers.Set("Access-Control-Allow-Credentials", "true")
	}
	return p
}

func (p originPolicy) allows(origin string) bool {
	if p.anyOrigin || p.exact[origin] {
		return true
	}
	for _, suffix := range p.suffixes {
		if strings.HasSuffix(origin, suffix) {
			return true
		}
	}
	return false
}

// CORSMiddleware answers cross-origin requests from the widget page.
// The concrete origin is echoed, never "*", since the session cookie travels with credentials.
func CORSMiddleware(config CORSConfig) func(http.Handler) http.Handler {
	policy := newOriginPolicy(config)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Add("Vary", "Origin")

			origin := r.Header.Get("Origin")
			if origin != "" && policy.allows(origin) {
				for name, values := range policy.headers {
					w.Header()[name] = values
				}
				w.Header().Set("Access-Control-Allow-Origin", origin)
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// isOriginAllowed reports whether origin matches one of allowedOrigins
func isOriginAllowed(origin string, allowedOrigins []string) bool {
	return newOriginPolicy(CORSConfig{AllowedOrigins: allowedOrigins}).allows(origin)
}

// SecurityHeadersMiddleware sets the response headers for a JSON-only API
func SecurityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		h.Set("Cache-Control", "no-store")
		if r.TLS != nil {
			h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		next.ServeHTTP(w, r)
	})
}
