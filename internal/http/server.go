package http

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"bajeti/internal/auth"
	"bajeti/internal/cache"
	"bajeti/internal/log"
	"bajeti/internal/middleware/ratelimit"
	"bajeti/internal/middleware/security"
	"bajeti/internal/middleware/trace"
	"bajeti/internal/services"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options configures NewServer. Services, Auth and Store are required.
type Options struct {
	Addr     string
	Services *services.Services
	Auth     *auth.Service
	Store    Pinger

	// Overviews is the overview cache shared with Services.Reports, reported
	// by /readyz and /metrics and purged periodically.
	Overviews              *cache.Overviews
	Logger                 *log.Logger
	RateLimitPerMinute     int
	AuthRateLimitPerMinute int
	BlockSuspicious        bool
	ReadTimeout            time.Duration
	WriteTimeout           time.Duration
	IdleTimeout            time.Duration
}

type appMetrics struct {
	uptime       time.Time
	failedLogins int64
	writes       int64
	overviews    int64
	serverErrors int64
}

type Server struct {
	http.Server
	svc       *services.Services
	auth      *auth.Service
	store     Pinger
	overviews *cache.Overviews
	logger    *log.Logger

	rateLimiter *ratelimit.Limiter
	detector    *security.Detector
	tracer      *trace.Middleware
	cacheMgr    *cache.Manager
	appMetrics  *appMetrics

	shutdownOnce sync.Once
}

// NewServer configures routes and the middleware chain, returning a ready to
// run server. Call Shutdown to stop its background goroutines.
func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig()).WithComponent(log.ComponentHTTP)
	}
	rlConfig := ratelimit.DefaultConfig()
	if opts.RateLimitPerMinute > 0 {
		rlConfig.RequestsPerMinute = opts.RateLimitPerMinute
	}
	if opts.AuthRateLimitPerMinute > 0 {
		rlConfig.AuthRequestsPerMinute = opts.AuthRateLimitPerMinute
	}

	s := &Server{
		svc:         opts.Services,
		auth:        opts.Auth,
		store:       opts.Store,
		overviews:   opts.Overviews,
		logger:      logger,
		rateLimiter: ratelimit.NewLimiter(rlConfig),
		detector:    security.NewDetector(),
		cacheMgr:    cache.NewManager(),
		appMetrics:  &appMetrics{uptime: time.Now()},
	}
	s.tracer = trace.NewMiddleware(s.detector.ExtractClientIP, logger)

	if s.overviews != nil {
		s.cacheMgr.Register(s.overviews)
	}
	s.cacheMgr.StartCleanup(10 * time.Minute)

	s.Server = http.Server{
		Addr:         opts.Addr,
		Handler:      s.chain(s.routes(), opts.BlockSuspicious),
		ReadTimeout:  opts.ReadTimeout,
		WriteTimeout: opts.WriteTimeout,
		IdleTimeout:  opts.IdleTimeout,
	}
	return s
}

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	authLogs := log.ComponentMiddleware(log.ComponentAuth)
	mux.Handle("POST /api/auth/register", authLogs(http.HandlerFunc(s.handleRegister)))
	mux.Handle("POST /api/auth/token", authLogs(http.HandlerFunc(s.handleLogin)))
	mux.Handle("POST /api/users/reset-password", authLogs(http.HandlerFunc(s.handleResetPassword)))
	mux.HandleFunc("GET /api/auth/users/me", s.requireUser(s.handleMe))
	mux.HandleFunc("PUT /api/users/me", s.requireUser(s.handleUpdateProfile))

	mux.HandleFunc("GET /api/budgets", s.requireUser(s.handleListBudgets))
	mux.HandleFunc("POST /api/budgets", s.requireUser(s.handleCreateBudget))
	mux.HandleFunc("GET /api/budgets/current", s.requireUser(s.handleCurrentBudget))
	mux.HandleFunc("GET /api/budgets/{budget_id}", s.requireUser(s.handleGetBudget))
	mux.HandleFunc("PUT /api/budgets/{budget_id}", s.requireUser(s.handleUpdateBudget))
	mux.HandleFunc("DELETE /api/budgets/{budget_id}", s.requireUser(s.handleDeleteBudget))
	mux.HandleFunc("GET /api/budgets/{budget_id}/overview", s.requireUser(s.handleBudgetOverview))

	mux.HandleFunc("GET /api/budgets/{budget_id}/allocations", s.requireUser(s.handleListAllocations))
	mux.HandleFunc("POST /api/budgets/{budget_id}/allocations", s.requireUser(s.handleCreateAllocation))
	mux.HandleFunc("GET /api/budgets/{budget_id}/allocations/{allocation_id}", s.requireUser(s.handleGetAllocation))
	mux.HandleFunc("PUT /api/budgets/{budget_id}/allocations/{allocation_id}", s.requireUser(s.handleUpdateAllocation))
	mux.HandleFunc("DELETE /api/budgets/{budget_id}/allocations/{allocation_id}", s.requireUser(s.handleDeleteAllocation))

	mux.HandleFunc("GET /api/categories/stats", s.requireUser(s.handleCategoryStats))
	mux.HandleFunc("GET /api/categories", s.requireUser(s.handleListCategories))
	mux.HandleFunc("POST /api/categories", s.requireUser(s.handleCreateCategory))
	mux.HandleFunc("GET /api/categories/{category_id}", s.requireUser(s.handleGetCategory))
	mux.HandleFunc("PUT /api/categories/{category_id}", s.requireUser(s.handleUpdateCategory))
	mux.HandleFunc("DELETE /api/categories/{category_id}", s.requireUser(s.handleDeleteCategory))

	mux.HandleFunc("GET /api/expenses", s.requireUser(s.handleListExpenses))
	mux.HandleFunc("POST /api/expenses", s.requireUser(s.handleCreateExpense))
	mux.HandleFunc("GET /api/expenses/{expense_id}", s.requireUser(s.handleGetExpense))
	mux.HandleFunc("PUT /api/expenses/{expense_id}", s.requireUser(s.handleUpdateExpense))
	mux.HandleFunc("DELETE /api/expenses/{expense_id}", s.requireUser(s.handleDeleteExpense))

	mux.HandleFunc("GET /api/transfers", s.requireUser(s.handleListTransfers))
	mux.HandleFunc("POST /api/transfers", s.requireUser(s.handleCreateTransfer))
	mux.HandleFunc("GET /api/transfers/{transfer_id}", s.requireUser(s.handleGetTransfer))
	mux.HandleFunc("DELETE /api/transfers/{transfer_id}", s.requireUser(s.handleDeleteTransfer))

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeDetail(w, http.StatusNotFound, "Not Found")
	})
	return mux
}

// chain wraps h with the middleware stack, outermost first: security
// headers, tracing, rate limiting, suspicious request detection and the
// request scoped logger.
func (s *Server) chain(h http.Handler, block bool) http.Handler {
	h = log.RequestIDMiddleware(trace.FromRequest)(h)
	h = log.Middleware(s.logger)(h)
	h = s.detector.Middleware(block)(h)
	h = s.rateLimiter.Middleware(s.detector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		writeDetail(w, http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.")
	})(h)
	h = s.tracer.Middleware(h)
	return security.NewHeadersMiddleware(security.APIHeadersConfig()).Middleware(h)
}

// Shutdown gracefully shuts down the server and its cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.cacheMgr.Stop()
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func (s *Server) countWrite() { atomic.AddInt64(&s.appMetrics.writes, 1) }
