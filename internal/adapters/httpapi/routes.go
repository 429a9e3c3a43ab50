package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"adscout/internal/core/domain"
)

// Scraper is the orchestrator surface the API exposes.
type Scraper interface {
	Scrape(ctx context.Context, req domain.ScrapeRequest) *domain.ScrapeResult
	ClearCache()
	AbortActiveRun(ctx context.Context) domain.AbortResult
}

func handleJSON(handler func(r *http.Request) (any, int, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, status, err := handler(r)
		if err != nil {
			http.Error(w, err.Error(), status)
			return
		}
		if res == nil {
			w.WriteHeader(status)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(res)
	}
}

// NewRouter mounts the scrape endpoints. requestTimeout should exceed the
// orchestrator's poll budget or long scrapes get cut short.
func NewRouter(svc Scraper, logger *zap.Logger, requestTimeout time.Duration) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout))

	r.Get("/healthz", handleJSON(func(r *http.Request) (any, int, error) {
		return map[string]string{"status": "ok"}, http.StatusOK, nil
	}))

	r.Route("/v1/scrape", func(sr chi.Router) {
		// POST /v1/scrape
		sr.Post("/", handleJSON(func(r *http.Request) (any, int, error) {
			var req domain.ScrapeRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				return nil, http.StatusBadRequest, err
			}
			return svc.Scrape(r.Context(), req), http.StatusOK, nil
		}))

		// POST /v1/scrape/stop
		sr.Post("/stop", handleJSON(func(r *http.Request) (any, int, error) {
			return svc.AbortActiveRun(r.Context()), http.StatusOK, nil
		}))

		// DELETE /v1/scrape/cache
		sr.Delete("/cache", handleJSON(func(r *http.Request) (any, int, error) {
			svc.ClearCache()
			return nil, http.StatusNoContent, nil
		}))
	})

	return r
}

func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				logger.Info("request",
					zap.String("request_id", middleware.GetReqID(r.Context())),
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Int("status", ww.Status()),
					zap.Duration("duration", time.Since(start)),
				)
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
