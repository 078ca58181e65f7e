// Package httpapi собирает HTTP-роутер сервиса: GraphQL, playground и health-check.
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/99designs/gqlgen/graphql/playground"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/UkralStul/sitecms/internal/dataloader"
	"github.com/UkralStul/sitecms/internal/storage"
)

// NewRouter создает и настраивает chi-роутер.
func NewRouter(store storage.Storage, graphql http.Handler, log zerolog.Logger) chi.Router {
	router := chi.NewRouter()

	// Middleware
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(loggingMiddleware(log))
	router.Use(middleware.Recoverer)

	router.Handle("/", playground.Handler("GraphQL playground", "/query"))
	router.Handle("/query", dataloader.Middleware(store, graphql))
	router.Get("/health", healthCheck(store))

	return router
}

// healthCheck отвечает 200, если хранилище доступно, и 503 иначе.
func healthCheck(store storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status, code := "healthy", http.StatusOK
		if err := store.Ping(ctx); err != nil {
			status, code = "unhealthy", http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"status":    status,
			"timestamp": time.Now().Format(time.RFC3339),
			"service":   "sitecms",
		})
	}
}

// loggingMiddleware пишет в лог каждый запрос, уровень зависит от статуса ответа.
func loggingMiddleware(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			statusCode := ww.Status()
			if statusCode == 0 {
				statusCode = http.StatusOK
			}

			event := log.Info()
			if statusCode >= 400 {
				event = log.Warn()
			}
			if statusCode >= 500 {
				event = log.Error()
			}

			event.
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", statusCode).
				Dur("duration", time.Since(start)).
				Str("client_ip", r.RemoteAddr).
				Str("request_id", middleware.GetReqID(r.Context())).
				Msg("Request completed")
		})
	}
}
