package middleware

import (
	"net/http"

	"github.com/rs/cors"
)

// CORSOptions returns the cross-origin policy of the checkout API. Origins may
// use one wildcard, e.g. "https://*.example.com"; an empty list allows any origin.
func CORSOptions(origins []string) cors.Options {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{
			"Accept",
			"Content-Type",
			"Idempotency-Key",
			"X-Request-Id",
		},
		ExposedHeaders: []string{
			"Content-Disposition",
			"X-Request-Id",
		},
		// The cart lives in a session cookie
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}
}

// CORS applies the checkout API's cross-origin policy
func CORS(origins []string) func(http.Handler) http.Handler {
	return cors.New(CORSOptions(origins)).Handler
}

// SecurityHeaders adds security headers suited to a JSON API
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")

		// HSTS header for HTTPS
		if r.TLS != nil {
			w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		next.ServeHTTP(w, r)
	})
}
