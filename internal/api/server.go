// Package api provides the HTTP surface for the FundHive settlement
// engine. Callers are identified by the X-Account header, supplied by
// the fronting identity layer; the engine itself never authenticates.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fundhive-network/fundhive/internal/domain"
	"github.com/fundhive-network/fundhive/internal/engine"
	"github.com/fundhive-network/fundhive/internal/infra/observability"
)

// Server is the FundHive HTTP API server.
type Server struct {
	engine         *engine.Engine
	tracer         *observability.Tracer
	metricsEnabled bool
	version        string
}

// NewServer creates a new API server around one engine instance.
func NewServer(eng *engine.Engine, version string) *Server {
	return &Server{
		engine:  eng,
		tracer:  observability.NewTracer(observability.DefaultTracerConfig()),
		version: version,
	}
}

// EnableMetrics enables the /metrics Prometheus endpoint.
func (s *Server) EnableMetrics() { s.metricsEnabled = true }

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(corsMiddleware)
	r.Use(s.traceMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status": "ok",
		})
	})
	r.Get("/api/version", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"version": s.version,
		})
	})

	r.Route("/api/campaigns", func(r chi.Router) {
		r.Post("/", s.handleCreateCampaign)
		r.Post("/batch", s.handleCreateCampaignsBatch)
		r.Get("/", s.handleListCampaigns)
		r.Get("/active", s.handleActiveCampaigns)
		r.Post("/withdraw/batch", s.handleWithdrawBatch)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetCampaign)
			r.Get("/details", s.handleCampaignDetails)
			r.Post("/donate", s.handleDonate)
			r.Post("/withdraw", s.handleWithdraw)
			r.Post("/cancel", s.handleCancel)
			r.Post("/refund", s.handleClaimRefund)
			r.Get("/matching/estimate", s.handleEstimateMatching)

			r.Route("/milestones", func(r chi.Router) {
				r.Post("/", s.handleAddMilestones)
				r.Get("/", s.handleGetMilestones)
				r.Post("/{index}/activate", s.handleActivateVoting)
				r.Post("/{index}/vote", s.handleVote)
				r.Post("/{index}/release", s.handleRelease)
			})
		})
	})

	r.Route("/api/matching", func(r chi.Router) {
		r.Post("/fund", s.handleFundPool)
		r.Get("/pool", s.handlePoolBalance)
		r.Post("/rounds", s.handleCreateRound)
		r.Get("/rounds/{id}", s.handleGetRound)
		r.Post("/rounds/{id}/distribute", s.handleDistribute)
	})

	r.Get("/api/donors/{account}/stats", s.handleDonorStats)
	r.Get("/api/leaderboard", s.handleLeaderboard)
	r.Get("/api/events", s.handleEvents)
	r.Get("/api/traces", s.handleTraces)

	if s.metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	return r
}

// caller extracts the acting account from the X-Account header.
func caller(r *http.Request) domain.AccountID {
	return domain.AccountID(r.Header.Get("X-Account"))
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]interface{}{
			"message": msg,
			"type":    "error",
		},
	})
}

// writeEngineError maps a sentinel error onto its HTTP status.
func writeEngineError(w http.ResponseWriter, err error) {
	writeError(w, statusFor(err), err.Error())
}

// statusFor maps the engine's error taxonomy onto HTTP statuses:
// not-found 404, authorization 403, validation 400, state conflict 409,
// arithmetic 422, transfer failure 502, busy 409, capacity 413.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrCampaignNotFound),
		errors.Is(err, domain.ErrRoundNotFound),
		errors.Is(err, domain.ErrMilestoneNotFound):
		return http.StatusNotFound

	case errors.Is(err, domain.ErrNotOwner),
		errors.Is(err, domain.ErrNotAdmin):
		return http.StatusForbidden

	case errors.Is(err, domain.ErrEmptyTitle),
		errors.Is(err, domain.ErrTitleTooLong),
		errors.Is(err, domain.ErrDescriptionTooLong),
		errors.Is(err, domain.ErrInvalidGoal),
		errors.Is(err, domain.ErrInvalidDeadline),
		errors.Is(err, domain.ErrZeroBeneficiary),
		errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrInvalidMilestones),
		errors.Is(err, domain.ErrEmptyMilestoneDesc),
		errors.Is(err, domain.ErrMilestoneDescTooLong),
		errors.Is(err, domain.ErrInvalidPoolAmount):
		return http.StatusBadRequest

	case errors.Is(err, domain.ErrArithmeticOverflow):
		return http.StatusUnprocessableEntity

	case errors.Is(err, domain.ErrTransferFailed):
		return http.StatusBadGateway

	case errors.Is(err, domain.ErrBatchTooLarge):
		return http.StatusRequestEntityTooLarge

	default:
		// The remaining taxonomy is state conflicts, including the
		// reentrancy guard's busy rejection.
		return http.StatusConflict
	}
}

// traceMiddleware records a span per request and feeds the HTTP metrics.
// Route patterns are resolved after the handler runs so spans group by
// template ("/api/campaigns/{id}/donate") rather than concrete URL.
func (s *Server) traceMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := observability.WithTraceID(r.Context(), middleware.GetReqID(r.Context()))
		span := s.tracer.StartSpan(ctx, r.Method+" "+r.URL.Path, map[string]string{
			"method": r.Method,
		})

		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(sw, r.WithContext(ctx))

		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = "unmatched"
		}
		span.Operation = r.Method + " " + route
		span.Attrs["status"] = strconv.Itoa(sw.status)

		var err error
		if sw.status >= http.StatusInternalServerError {
			err = fmt.Errorf("status %d", sw.status)
		}
		s.tracer.EndSpan(span, err)

		observability.HTTPRequests.WithLabelValues(route, r.Method, strconv.Itoa(sw.status)).Inc()
		observability.HTTPDuration.WithLabelValues(route).Observe(float64(time.Since(start).Milliseconds()))
	})
}

// statusWriter captures the response status for tracing.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// handleTraces returns recent request spans, newest last.
func (s *Server) handleTraces(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 100)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"count":  s.tracer.SpanCount(),
		"traces": s.tracer.Spans(limit),
	})
}

// corsMiddleware adds CORS headers for local development.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Account")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
