package http

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"finboard/internal/auth"
	"finboard/internal/cache"
	"finboard/internal/core"
	"finboard/internal/log"
	"finboard/internal/middleware/ratelimit"
	"finboard/internal/middleware/security"
	"finboard/internal/middleware/trace"
	"finboard/internal/services"
)

// Ledger is the service surface the handlers call. *services.LedgerService satisfies it.
type Ledger interface {
	ListTransactions(ctx context.Context, scope core.UserScope) ([]core.Transaction, error)
	CreateTransaction(ctx context.Context, scope core.UserScope, t core.Transaction) (core.Transaction, error)
	UpdateTransaction(ctx context.Context, scope core.UserScope, id string, patch services.TransactionPatch) (core.Transaction, error)
	DeleteTransaction(ctx context.Context, scope core.UserScope, id string) error
	ListBudgets(ctx context.Context, scope core.UserScope) ([]core.CategoryBudget, error)
	ReplaceBudgets(ctx context.Context, scope core.UserScope, budgets []core.CategoryBudget) ([]core.CategoryBudget, error)
	Alerts(ctx context.Context, scope core.UserScope) ([]core.BudgetAlert, error)
	Dashboard(ctx context.Context, scope core.UserScope) (services.Dashboard, error)
	Categories(ctx context.Context, scope core.UserScope) ([]string, error)
	Ping(ctx context.Context) error
}

// Options configures the middleware around the API.
type Options struct {
	CORSAllowedOrigins []string
	RateLimitPerMinute int
	// TokenCache is the verifier's cache; the server sweeps it and reports its stats.
	TokenCache *cache.LRUCache[core.UserScope]
	Logger     *log.Logger
}

type Server struct {
	http.Server
	ledger   Ledger
	verifier *auth.Verifier
	logger   *log.Logger

	rateLimiter      *ratelimit.Limiter
	securityDetector *security.Detector
	traceMiddleware  *trace.Middleware
	tokenCache       *cache.LRUCache[core.UserScope]
	cacheManager     *cache.Manager
	appMetrics       *appMetrics

	shutdownOnce sync.Once
}

// NewServer wires routes and middleware. A nil verifier disables auth and
// runs every request as auth.LocalScope.
func NewServer(addr string, ledger Ledger, verifier *auth.Verifier, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.Wrap(slog.Default(), log.ComponentHTTP)
	}

	detector := security.NewDetector()
	s := &Server{
		ledger:           ledger,
		verifier:         verifier,
		logger:           logger,
		rateLimiter:      ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		securityDetector: detector,
		traceMiddleware:  trace.NewMiddleware(detector.ExtractClientIP),
		tokenCache:       opts.TokenCache,
		cacheManager:     cache.NewManager(),
		appMetrics:       newAppMetrics(),
	}

	if s.tokenCache != nil {
		s.cacheManager.Register(s.tokenCache)
		s.cacheManager.StartCleanup(10 * time.Minute)
	}

	api := http.NewServeMux()
	api.HandleFunc("GET /api/transactions", s.handleListTransactions)
	api.HandleFunc("POST /api/transactions", s.handleCreateTransaction)
	api.HandleFunc("PUT /api/transactions/{id}", s.handleUpdateTransaction)
	api.HandleFunc("DELETE /api/transactions/{id}", s.handleDeleteTransaction)
	api.HandleFunc("GET /api/budgets", s.handleListBudgets)
	api.HandleFunc("PUT /api/budgets", s.handleReplaceBudgets)
	api.HandleFunc("GET /api/alerts", s.handleAlerts)
	api.HandleFunc("GET /api/summary", s.handleSummary)
	api.HandleFunc("GET /api/categories", s.handleCategories)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)
	mux.Handle("/api/", auth.Middleware(verifier)(api))
	mux.HandleFunc("/", s.handleNotFound)

	var handler http.Handler = mux
	handler = log.Middleware(logger, trace.GetRequestID)(handler)
	handler = s.rateLimiter.Middleware(detector.ExtractClientIP, s.handleRateLimited,
		http.MethodPost, http.MethodPut, http.MethodDelete)(handler)
	handler = detector.Middleware(handler)
	handler = security.NewCORS(opts.CORSAllowedOrigins).Middleware(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = s.traceMiddleware.Middleware(handler)

	s.Server = http.Server{
		Addr:    addr,
		Handler: handler,
	}
	return s
}

func (s *Server) handleRateLimited(w http.ResponseWriter, r *http.Request) {
	s.logger.WithComponent(log.ComponentRateLimit).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, s.securityDetector.ExtractClientIP(r),
		log.FieldMethod, r.Method,
		log.FieldPath, r.URL.Path)
	writeError(w, r, http.StatusTooManyRequests, "rate limit exceeded, try again later")
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, r, http.StatusNotFound, "not found")
}

// Shutdown stops background cleanup and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
