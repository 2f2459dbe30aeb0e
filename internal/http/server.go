package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"

	"dompet/internal/auth"
	"dompet/internal/core"
	"dompet/internal/log"
	"dompet/internal/middleware/ratelimit"
	"dompet/internal/middleware/security"
	"dompet/internal/middleware/trace"
	"dompet/internal/services"
)

// Ledger is the application surface the handlers call. *services.LedgerService
// implements it.
type Ledger interface {
	CreateTransaction(ctx context.Context, ownerID string, in core.NewTransaction) (core.Transaction, error)
	ListTransactions(ctx context.Context, ownerID string) ([]core.Transaction, error)
	GetTransaction(ctx context.Context, ownerID string, id int64) (core.Transaction, error)
	DeleteTransaction(ctx context.Context, ownerID string, id int64) error

	CreateGoal(ctx context.Context, ownerID string, in core.NewGoal) (core.Goal, error)
	ListGoals(ctx context.Context, ownerID string) ([]core.Goal, error)
	GetGoal(ctx context.Context, ownerID string, id int64) (core.Goal, error)
	UpdateGoal(ctx context.Context, ownerID string, id int64, u core.GoalUpdate) (core.Goal, error)
	ContributeToGoal(ctx context.Context, ownerID string, id int64, m services.Movement) (core.Goal, *core.Transaction, error)
	ClaimGoal(ctx context.Context, ownerID string, id int64) (core.Goal, error)
	DeleteGoal(ctx context.Context, ownerID string, id int64) error

	CreateDebt(ctx context.Context, ownerID string, in core.NewDebt) (core.Debt, error)
	ListDebts(ctx context.Context, ownerID string) ([]core.Debt, error)
	GetDebt(ctx context.Context, ownerID string, id int64) (core.Debt, error)
	PayDebt(ctx context.Context, ownerID string, id int64, m services.Movement) (core.Debt, *core.Transaction, error)
	DeleteDebt(ctx context.Context, ownerID string, id int64) error

	NetWorth(ctx context.Context, ownerID string) (core.NetWorth, error)
	Summary(ctx context.Context, ownerID string) (core.Summary, error)
	Allocate(income decimal.Decimal) (core.Allocation, error)

	Ping(ctx context.Context) error
}

// Config carries the HTTP-facing settings.
type Config struct {
	Addr               string
	APIPrefix          string
	RateLimitPerMinute int
	CORSAllowedOrigins []string
}

type Server struct {
	http.Server
	ledger  Ledger
	logger  *log.Logger
	limiter *ratelimit.Limiter
	started time.Time
}

// NewServer builds the router. The rate limiter is disabled when
// cfg.RateLimitPerMinute is zero.
func NewServer(cfg Config, ledger Ledger, authn auth.Authenticator, logger *log.Logger) *Server {
	logger = logger.WithComponent(log.ComponentHTTP)
	s := &Server{
		ledger:  ledger,
		logger:  logger,
		started: time.Now(),
	}

	clientIP := security.NewClientIP()
	tracer := trace.NewMiddleware(logger, clientIP.Extract, routeTemplate)

	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(s.handleNotFound)
	r.MethodNotAllowedHandler = http.HandlerFunc(s.handleMethodNotAllowed)
	r.Use(log.Middleware(logger), tracer.Middleware,
		log.RequestIDMiddleware(func(r *http.Request) string { return trace.GetRequestID(r.Context()) }),
		metricsMiddleware)

	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/readyz", s.handleReady).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	// API routes sit on the root router so a wrong method on a known path
	// reaches MethodNotAllowedHandler.
	var guards []mux.MiddlewareFunc
	if cfg.RateLimitPerMinute > 0 {
		s.limiter = ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: cfg.RateLimitPerMinute})
		guards = append(guards, s.limiter.Middleware(clientIP.Extract, s.handleRateLimited))
	}
	guards = append(guards, auth.Middleware(authn, s.respondError))
	api := func(method, path string, h http.HandlerFunc) {
		var handler http.Handler = h
		for i := len(guards) - 1; i >= 0; i-- {
			handler = guards[i](handler)
		}
		r.Handle(cfg.APIPrefix+path, handler).Methods(method)
	}

	api(http.MethodGet, "/transactions", s.handleListTransactions)
	api(http.MethodPost, "/transactions", s.handleCreateTransaction)
	api(http.MethodGet, "/transactions/{id:[0-9]+}", s.handleGetTransaction)
	api(http.MethodDelete, "/transactions/{id:[0-9]+}", s.handleDeleteTransaction)

	api(http.MethodGet, "/goals", s.handleListGoals)
	api(http.MethodPost, "/goals", s.handleCreateGoal)
	api(http.MethodGet, "/goals/{id:[0-9]+}", s.handleGetGoal)
	api(http.MethodPatch, "/goals/{id:[0-9]+}", s.handleUpdateGoal)
	api(http.MethodDelete, "/goals/{id:[0-9]+}", s.handleDeleteGoal)
	api(http.MethodPatch, "/goals/{id:[0-9]+}/contribute", s.handleContributeToGoal)
	api(http.MethodPost, "/goals/{id:[0-9]+}/claim", s.handleClaimGoal)

	api(http.MethodGet, "/debts", s.handleListDebts)
	api(http.MethodPost, "/debts", s.handleCreateDebt)
	api(http.MethodGet, "/debts/{id:[0-9]+}", s.handleGetDebt)
	api(http.MethodDelete, "/debts/{id:[0-9]+}", s.handleDeleteDebt)
	api(http.MethodPost, "/debts/{id:[0-9]+}/pay", s.handlePayDebt)

	api(http.MethodGet, "/analytics/net-worth", s.handleNetWorth)
	api(http.MethodGet, "/analytics/summary", s.handleSummary)
	api(http.MethodPost, "/analytics/allocator", s.handleAllocate)

	var handler http.Handler = r
	handler = security.NewCORS(cfg.CORSAllowedOrigins).Middleware(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)

	s.Server = http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Shutdown drains connections and stops the rate limiter.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.limiter != nil {
		s.limiter.Stop()
	}
	return s.Server.Shutdown(ctx)
}

func routeTemplate(r *http.Request) string {
	route := mux.CurrentRoute(r)
	if route == nil {
		return ""
	}
	tpl, err := route.GetPathTemplate()
	if err != nil {
		return ""
	}
	return tpl
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"uptime": time.Since(s.started).Round(time.Second).String(),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := s.ledger.Ping(ctx); err != nil {
		log.FromContext(ctx).WarnContext(ctx, "Readiness check failed", log.FieldError, err)
		respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not_ready"})
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusNotFound, errorBody{Message: "not found"})
}

func (s *Server) handleMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusMethodNotAllowed, errorBody{Message: "method not allowed"})
}

func (s *Server) handleRateLimited(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusTooManyRequests, errorBody{Message: "rate limit exceeded, please try again later"})
}
