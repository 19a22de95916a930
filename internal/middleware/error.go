package middleware

import (
	"encoding/json"
	"net/http"
	"runtime/debug"

	"go.uber.org/zap"

	"event-checkout/internal/logger"
	"event-checkout/internal/models"
)

// ErrorBody is the JSON shape of every error response
type ErrorBody struct {
	Success bool             `json:"success"`
	Error   string           `json:"error"`
	Code    models.ErrorKind `json:"code"`
}

// WriteError writes a JSON error response
func WriteError(w http.ResponseWriter, status int, kind models.ErrorKind, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorBody{Error: message, Code: kind})
}

// Recoverer turns panics into a 500 JSON response and logs the stack
func Recoverer(log *zap.Logger) func(http.Handler) http.Handler {
	log = logger.OrNop(log)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}
					log.Error("Panic while serving request",
						zap.Any("panic", rec),
						zap.String("method", r.Method),
						zap.String("path", r.URL.Path),
						zap.ByteString("stack", debug.Stack()))
					WriteError(w, http.StatusInternalServerError, models.KindInternal, "internal server error")
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// NotFoundHandler handles 404 errors
func NotFoundHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, http.StatusNotFound, "NotFound", "no route for "+r.URL.Path)
	})
}

// MethodNotAllowedHandler handles 405 errors
func MethodNotAllowedHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, http.StatusMethodNotAllowed, "MethodNotAllowed", r.Method+" is not allowed on "+r.URL.Path)
	})
}
