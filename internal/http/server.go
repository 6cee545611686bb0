// Package http exposes the group ledger as a JSON API.
package http

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"divvy/internal/cache"
	"divvy/internal/config"
	"divvy/internal/middleware/ratelimit"
	"divvy/internal/middleware/security"
	"divvy/internal/middleware/trace"
	"divvy/internal/services"
)

type Server struct {
	http.Server

	ledger      *services.LedgerService
	rateLimiter *ratelimit.Limiter

	// Balance responses are cached per group and invalidated on every write
	// to that group. Settlement plans derive from the same snapshot so they
	// share the invalidation.
	balancesCache    *cache.LRUCache[BalancesResponse]
	settlementsCache *cache.LRUCache[SettlementsResponse]

	cacheManager *cache.Manager
	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(cfg *config.Config, ledger *services.LedgerService) *Server {
	mux := http.NewServeMux()

	s := &Server{
		ledger: ledger,
		rateLimiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: cfg.RateLimitPerMinute,
			CleanupInterval:   5 * time.Minute,
		}),
		balancesCache:    cache.NewLRUCache[BalancesResponse](cfg.CacheSize, cfg.CacheTTL),
		settlementsCache: cache.NewLRUCache[SettlementsResponse](cfg.CacheSize, cfg.CacheTTL),
		cacheManager:     cache.NewManager(),
	}
	s.cacheManager.Register(s.balancesCache)
	s.cacheManager.Register(s.settlementsCache)
	s.cacheManager.StartCleanup(10 * time.Minute)

	mux.HandleFunc("POST /api/groups", s.handleCreateGroup)
	mux.HandleFunc("GET /api/groups/{groupID}", s.handleGetGroup)
	mux.HandleFunc("POST /api/groups/{groupID}/members", s.handleAddMember)
	mux.HandleFunc("GET /api/groups/{groupID}/members", s.handleListMembers)
	mux.HandleFunc("POST /api/groups/{groupID}/expenses", s.handleCreateExpense)
	mux.HandleFunc("GET /api/groups/{groupID}/expenses", s.handleListExpenses)
	mux.HandleFunc("DELETE /api/expenses/{expenseID}", s.handleDeleteExpense)
	mux.HandleFunc("POST /api/groups/{groupID}/payments", s.handleCreatePayment)
	mux.HandleFunc("GET /api/groups/{groupID}/payments", s.handleListPayments)
	mux.HandleFunc("DELETE /api/payments/{paymentID}", s.handleDeletePayment)
	mux.HandleFunc("GET /api/groups/{groupID}/balances", s.handleGetBalances)
	mux.HandleFunc("GET /api/groups/{groupID}/settlements", s.handleGetSettlements)

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("GET /metrics", promhttp.Handler())

	headers := security.NewHeadersMiddleware(security.APIHeadersConfig())
	tracer := trace.NewMiddleware(clientIP)
	limit := s.rateLimiter.Middleware(clientIP, nil)

	var handler http.Handler = mux
	handler = instrumentHandler(handler)
	handler = limitWrites(limit, handler)
	handler = headers.Middleware(handler)
	handler = tracer.Middleware(handler)

	s.Server = http.Server{
		Addr:    ":" + cfg.Port,
		Handler: handler,
	}
	return s
}

// limitWrites applies the rate limiter to mutating requests only; reads are
// served from cache and stay cheap.
func limitWrites(limit func(http.Handler) http.Handler, next http.Handler) http.Handler {
	limited := limit(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost, http.MethodDelete, http.MethodPut, http.MethodPatch:
			limited.ServeHTTP(w, r)
		default:
			next.ServeHTTP(w, r)
		}
	})
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i > 0 {
			return strings.TrimSpace(fwd[:i])
		}
		return strings.TrimSpace(fwd)
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	return r.RemoteAddr
}

func (s *Server) invalidateGroup(groupID string) {
	s.balancesCache.Delete(groupID)
	s.settlementsCache.Delete(groupID)
}

func (s *Server) dropAllCached() {
	s.balancesCache.Purge()
	s.settlementsCache.Purge()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	// The service owns the SQLite handle; a failing probe query means we
	// should not receive traffic yet.
	if err := s.ledger.Ping(r.Context()); err != nil {
		http.Error(w, "not ready", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// Shutdown stops background cleanup goroutines and the HTTP listener.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
