package api

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// SetupRouter creates and configures the HTTP router
func SetupRouter(handler *Handler, logger *zap.Logger) *mux.Router {
	router := mux.NewRouter()

	router.Use(loggingMiddleware(logger))
	router.Use(recoveryMiddleware(logger))

	router.HandleFunc("/health", handler.HandleHealth).Methods(http.MethodGet)

	api := router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/state", handler.HandleGetState).Methods(http.MethodGet)
	api.HandleFunc("/tokens", handler.HandleGetTokens).Methods(http.MethodGet)
	api.HandleFunc("/connect", handler.HandleConnect).Methods(http.MethodPost)
	api.HandleFunc("/tokens/in", handler.HandleSelectTokenIn).Methods(http.MethodPost)
	api.HandleFunc("/tokens/out", handler.HandleSelectTokenOut).Methods(http.MethodPost)
	api.HandleFunc("/amount", handler.HandleEditAmount).Methods(http.MethodPost)
	api.HandleFunc("/action", handler.HandlePrimaryAction).Methods(http.MethodPost)
	api.HandleFunc("/retry", handler.HandleRetry).Methods(http.MethodPost)
	api.HandleFunc("/close", handler.HandleClosePanel).Methods(http.MethodPost)
	api.HandleFunc("/base-currency/toggle", handler.HandleToggleBaseCurrency).Methods(http.MethodPost)
	api.HandleFunc("/error/hide", handler.HandleHideError).Methods(http.MethodPost)

	return router
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware(logger *zap.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(wrapped, r)

			logger.Info("HTTP request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", wrapped.statusCode),
				zap.Duration("duration", time.Since(start)),
			)
		})
	}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// recoveryMiddleware recovers from panics and logs them
func recoveryMiddleware(logger *zap.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					logger.Error("Panic recovered",
						zap.Any("error", err),
						zap.String("method", r.Method),
						zap.String("path", r.URL.Path),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					w.Write([]byte(`{"error":"Internal server error","message":"An unexpected error occurred"}`))
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
