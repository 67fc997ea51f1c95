package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"litfunds/internal/analytics"
	applog "litfunds/internal/log"
)

// handleHealth is the liveness probe.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewResponse().JSON(map[string]any{
		"status":    "ok",
		"timestamp": s.now().Format(time.RFC3339),
		"uptime":    time.Since(s.startedAt).Round(time.Second).String(),
	}).Write(w)
}

// handleReady checks templates and the storage backend.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status, code := "ready", http.StatusOK
	checks := map[string]string{"templates": "ok", "storage": "ok"}

	if len(s.templates) != len(pages) {
		checks["templates"] = "failed: templates not loaded"
		status, code = "not_ready", http.StatusServiceUnavailable
	}
	if s.ready != nil {
		if err := s.ready(ctx); err != nil {
			applog.FromContext(ctx).WarnContext(ctx, "Readiness check failed", "error", err)
			checks["storage"] = fmt.Sprintf("failed: %v", err)
			status, code = "not_ready", http.StatusServiceUnavailable
		}
	}

	limiter := s.rateLimiter.GetMetrics()
	requests := s.traceMiddleware.GetMetrics()
	hits, misses := s.transactions.CacheStats()
	NewResponse().Status(code).JSON(map[string]any{
		"status": status,
		"checks": checks,
		"metrics": map[string]int64{
			"requests_total":        requests.TotalRequests,
			"last_response_us":      requests.LastResponseTime,
			"rate_limited_hits":     limiter.TotalHits,
			"rate_limit_clients":    limiter.ClientCount,
			"suspicious_requests":   s.securityDetector.GetMetrics().SuspiciousRequests,
			"snapshot_cache_hits":   int64(hits),
			"snapshot_cache_misses": int64(misses),
		},
	}).Write(w)
}

type summaryResponse struct {
	Period   analytics.Period  `json:"period"`
	Currency string            `json:"currency"`
	Summary  analytics.Summary `json:"summary"`
}

// handleAPISummary returns the aggregated view of ?period=week|month|year.
func (s *Server) handleAPISummary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	period := analytics.ParsePeriod(r.URL.Query().Get("period"))

	d, err := s.loadUserData(ctx, userIDFrom(ctx))
	if err != nil {
		applog.FromContext(ctx).ErrorContext(ctx, "Failed to load summary data", "error", err, applog.FieldPeriod, period)
		NewResponse().Status(http.StatusInternalServerError).JSON(map[string]string{"error": "could not load summary"}).Write(w)
		return
	}

	start, end := analytics.PeriodRange(period, s.now())
	NewResponse().JSON(summaryResponse{
		Period:   period,
		Currency: d.Profile.Currency,
		Summary:  analytics.Summarize(d.Transactions, start, end, d.Budgets),
	}).Write(w)
}
