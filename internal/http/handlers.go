package http

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"finboard/internal/auth"
	"finboard/internal/core"
	"finboard/internal/log"
)

type appMetrics struct {
	uptime              time.Time
	transactionsCreated int64
	transactionsUpdated int64
	transactionsDeleted int64
	budgetReplacements  int64
	alertsServed        int64
}

func newAppMetrics() *appMetrics {
	return &appMetrics{uptime: time.Now()}
}

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.appMetrics.uptime).String(),
	})
}

// handleReady checks the record store and reports middleware state.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]any)

	if err := s.ledger.Ping(ctx); err != nil {
		checks["store"] = fmt.Sprintf("failed: %v", err)
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
		s.logger.WithComponent(log.ComponentStorage).WarnContext(ctx, "Readiness check failed", log.FieldError, err)
	} else {
		checks["store"] = "ok"
	}

	if s.verifier == nil {
		checks["auth"] = "disabled"
	} else {
		checks["auth"] = "ok"
	}

	checks["rate_limiter"] = map[string]any{
		"active_clients": s.rateLimiter.ActiveClients(),
		"status":         "ok",
	}

	writeJSON(w, r, httpStatus, map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}

// handleMetrics provides application and security metrics in plain text format
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	securityMetrics := s.securityDetector.GetMetrics()
	rateLimitMetrics := s.rateLimiter.GetMetrics()
	traceMetrics := s.traceMiddleware.GetMetrics()
	uptime := time.Since(s.appMetrics.uptime)

	w.WriteHeader(http.StatusOK)

	// Prometheus text exposition
	fmt.Fprintf(w, "# HELP http_requests_total Total number of HTTP requests\n")
	fmt.Fprintf(w, "# TYPE http_requests_total counter\n")
	fmt.Fprintf(w, "http_requests_total %d\n\n", traceMetrics.TotalRequests)

	fmt.Fprintf(w, "# HELP http_server_errors_total Responses with a 5xx status\n")
	fmt.Fprintf(w, "# TYPE http_server_errors_total counter\n")
	fmt.Fprintf(w, "http_server_errors_total %d\n\n", traceMetrics.ServerErrors)

	fmt.Fprintf(w, "# HELP http_request_duration_avg_seconds Mean request duration\n")
	fmt.Fprintf(w, "# TYPE http_request_duration_avg_seconds gauge\n")
	fmt.Fprintf(w, "http_request_duration_avg_seconds %.6f\n\n", traceMetrics.AverageLatency().Seconds())

	fmt.Fprintf(w, "# HELP ledger_writes_total Successful ledger writes by kind\n")
	fmt.Fprintf(w, "# TYPE ledger_writes_total counter\n")
	fmt.Fprintf(w, "ledger_writes_total{kind=\"transaction_created\"} %d\n", atomic.LoadInt64(&s.appMetrics.transactionsCreated))
	fmt.Fprintf(w, "ledger_writes_total{kind=\"transaction_updated\"} %d\n", atomic.LoadInt64(&s.appMetrics.transactionsUpdated))
	fmt.Fprintf(w, "ledger_writes_total{kind=\"transaction_deleted\"} %d\n", atomic.LoadInt64(&s.appMetrics.transactionsDeleted))
	fmt.Fprintf(w, "ledger_writes_total{kind=\"budgets_replaced\"} %d\n\n", atomic.LoadInt64(&s.appMetrics.budgetReplacements))

	fmt.Fprintf(w, "# HELP budget_alerts_served_total Alerts returned by /api/alerts and /api/summary\n")
	fmt.Fprintf(w, "# TYPE budget_alerts_served_total counter\n")
	fmt.Fprintf(w, "budget_alerts_served_total %d\n\n", atomic.LoadInt64(&s.appMetrics.alertsServed))

	if s.tokenCache != nil {
		stats := s.tokenCache.Stats()
		fmt.Fprintf(w, "# HELP token_cache_hits_total Verified token cache hits\n")
		fmt.Fprintf(w, "# TYPE token_cache_hits_total counter\n")
		fmt.Fprintf(w, "token_cache_hits_total %d\n\n", stats.Hits)

		fmt.Fprintf(w, "# HELP token_cache_misses_total Verified token cache misses\n")
		fmt.Fprintf(w, "# TYPE token_cache_misses_total counter\n")
		fmt.Fprintf(w, "token_cache_misses_total %d\n\n", stats.Misses)

		fmt.Fprintf(w, "# HELP token_cache_entries Current token cache entries\n")
		fmt.Fprintf(w, "# TYPE token_cache_entries gauge\n")
		fmt.Fprintf(w, "token_cache_entries %d\n\n", s.tokenCache.Size())
	}

	fmt.Fprintf(w, "# HELP rate_limit_hits_total Total rate limit hits\n")
	fmt.Fprintf(w, "# TYPE rate_limit_hits_total counter\n")
	fmt.Fprintf(w, "rate_limit_hits_total %d\n\n", rateLimitMetrics.TotalHits)

	fmt.Fprintf(w, "# HELP active_rate_limit_clients Currently tracked rate limit clients\n")
	fmt.Fprintf(w, "# TYPE active_rate_limit_clients gauge\n")
	fmt.Fprintf(w, "active_rate_limit_clients %d\n\n", rateLimitMetrics.ClientCount)

	fmt.Fprintf(w, "# HELP suspicious_requests_total Total suspicious requests detected\n")
	fmt.Fprintf(w, "# TYPE suspicious_requests_total counter\n")
	fmt.Fprintf(w, "suspicious_requests_total %d\n\n", securityMetrics.SuspiciousRequests)

	fmt.Fprintf(w, "# HELP uptime_seconds Application uptime in seconds\n")
	fmt.Fprintf(w, "# TYPE uptime_seconds gauge\n")
	fmt.Fprintf(w, "uptime_seconds %.0f\n", uptime.Seconds())
}

// requireScope returns the scope set by the auth middleware.
func requireScope(w http.ResponseWriter, r *http.Request) (core.UserScope, bool) {
	scope, ok := auth.ScopeFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return "", false
	}
	return scope, true
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	scope, ok := requireScope(w, r)
	if !ok {
		return
	}
	txns, err := s.ledger.ListTransactions(r.Context(), scope)
	if err != nil {
		writeServiceError(w, r, err, log.OpList)
		return
	}
	writeJSON(w, r, http.StatusOK, nonNil(txns))
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	scope, ok := requireScope(w, r)
	if !ok {
		return
	}
	t, err := parseCreateTransaction(w, r)
	if err != nil {
		writeServiceError(w, r, err, log.OpValidate)
		return
	}
	created, err := s.ledger.CreateTransaction(r.Context(), scope, t)
	if err != nil {
		writeServiceError(w, r, err, log.OpCreate)
		return
	}
	atomic.AddInt64(&s.appMetrics.transactionsCreated, 1)
	writeJSON(w, r, http.StatusCreated, created)
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	scope, ok := requireScope(w, r)
	if !ok {
		return
	}
	patch, err := parseUpdateTransaction(w, r)
	if err != nil {
		writeServiceError(w, r, err, log.OpValidate)
		return
	}
	updated, err := s.ledger.UpdateTransaction(r.Context(), scope, r.PathValue("id"), patch)
	if err != nil {
		writeServiceError(w, r, err, log.OpUpdate)
		return
	}
	atomic.AddInt64(&s.appMetrics.transactionsUpdated, 1)
	writeJSON(w, r, http.StatusOK, updated)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	scope, ok := requireScope(w, r)
	if !ok {
		return
	}
	if err := s.ledger.DeleteTransaction(r.Context(), scope, r.PathValue("id")); err != nil {
		writeServiceError(w, r, err, log.OpDelete)
		return
	}
	atomic.AddInt64(&s.appMetrics.transactionsDeleted, 1)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	scope, ok := requireScope(w, r)
	if !ok {
		return
	}
	budgets, err := s.ledger.ListBudgets(r.Context(), scope)
	if err != nil {
		writeServiceError(w, r, err, log.OpList)
		return
	}
	writeJSON(w, r, http.StatusOK, nonNil(budgets))
}

func (s *Server) handleReplaceBudgets(w http.ResponseWriter, r *http.Request) {
	scope, ok := requireScope(w, r)
	if !ok {
		return
	}
	budgets, err := parseBudgets(w, r)
	if err != nil {
		writeServiceError(w, r, err, log.OpValidate)
		return
	}
	stored, err := s.ledger.ReplaceBudgets(r.Context(), scope, budgets)
	if err != nil {
		writeServiceError(w, r, err, log.OpReplace)
		return
	}
	atomic.AddInt64(&s.appMetrics.budgetReplacements, 1)
	writeJSON(w, r, http.StatusOK, nonNil(stored))
}

func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	scope, ok := requireScope(w, r)
	if !ok {
		return
	}
	alerts, err := s.ledger.Alerts(r.Context(), scope)
	if err != nil {
		writeServiceError(w, r, err, log.OpDerive)
		return
	}
	atomic.AddInt64(&s.appMetrics.alertsServed, int64(len(alerts)))
	writeJSON(w, r, http.StatusOK, nonNil(alerts))
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	scope, ok := requireScope(w, r)
	if !ok {
		return
	}
	dash, err := s.ledger.Dashboard(r.Context(), scope)
	if err != nil {
		writeServiceError(w, r, err, log.OpDerive)
		return
	}
	dash.Alerts = nonNil(dash.Alerts)
	atomic.AddInt64(&s.appMetrics.alertsServed, int64(len(dash.Alerts)))
	writeJSON(w, r, http.StatusOK, dash)
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	scope, ok := requireScope(w, r)
	if !ok {
		return
	}
	cats, err := s.ledger.Categories(r.Context(), scope)
	if err != nil {
		writeServiceError(w, r, err, log.OpRead)
		return
	}
	writeJSON(w, r, http.StatusOK, nonNil(cats))
}
