// Package server exposes the acquisition pipeline, lead store, and
// follow-up scheduler over an HTTP JSON API.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/prospectline/leadgen/internal/config"
	"github.com/prospectline/leadgen/internal/mailer"
	"github.com/prospectline/leadgen/internal/pipeline"
	"github.com/prospectline/leadgen/internal/scheduler"
	"github.com/prospectline/leadgen/internal/store"
)

// Server wires the HTTP API over the application services.
type Server struct {
	cfg       *config.Config
	store     store.Store
	pipeline  *pipeline.Pipeline
	outreach  *mailer.Outreach
	scheduler *scheduler.Scheduler
}

// New creates a Server.
func New(cfg *config.Config, st store.Store, p *pipeline.Pipeline, o *mailer.Outreach, sched *scheduler.Scheduler) *Server {
	return &Server{cfg: cfg, store: st, pipeline: p, outreach: o, scheduler: sched}
}

// Router builds the chi router with all API routes mounted.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/config/status", s.handleConfigStatus)

		r.Route("/leads", func(r chi.Router) {
			r.Post("/discover", s.handleDiscover)
			r.Get("/", s.handleListLeads)
			r.Delete("/", s.handleDeleteAllLeads)
			r.Post("/send-bulk", s.handleSendBulk)
			r.Post("/replied", s.handleMarkReplied)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetLead)
				r.Delete("/", s.handleDeleteLead)
				r.Post("/generate-email", s.handleGenerateEmail)
				r.Post("/send-email", s.handleSendEmail)
			})
		})

		r.Post("/email/test", s.handleTestEmail)

		r.Route("/campaigns", func(r chi.Router) {
			r.Get("/", s.handleListCampaigns)
			r.Post("/", s.handleCreateCampaign)
			r.Get("/{id}", s.handleGetCampaign)
			r.Delete("/{id}", s.handleDeleteCampaign)
		})

		r.Get("/stats", s.handleStats)

		r.Route("/analytics", func(r chi.Router) {
			r.Get("/timeseries", s.handleTimeseries)
			r.Get("/funnel", s.handleFunnel)
			r.Get("/sources", s.handleSources)
			r.Get("/campaigns", s.handleCampaignPerformance)
		})

		r.Route("/followup", func(r chi.Router) {
			r.Post("/check", s.handleFollowUpCheck)
			r.Get("/status", s.handleFollowUpStatus)
		})
	})

	return r
}

// ListenAndServe runs the HTTP server until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, port int) error {
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: s.Router(),
	}

	go func() {
		<-ctx.Done()
		zap.L().Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	zap.L().Info("starting server", zap.Int("port", port))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return eris.Wrap(err, "server: listen")
	}
	return nil
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		zap.L().Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

// response helpers

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeStoreError maps store sentinels onto HTTP statuses.
func writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, store.ErrDuplicateEmail):
		writeError(w, http.StatusConflict, "duplicate email")
	default:
		zap.L().Error("request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func decodeBody(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}
