package httpserver

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/yndnr/regmesh-go/internal/server/httpserver/handler"
)

// RouterConfig holds configuration for the HTTP router.
type RouterConfig struct {
	// Handler serves the API routes.
	Handler *handler.Handler

	// Metrics serves GET /metrics. Nil disables the route.
	Metrics http.Handler

	// Observer records per-route request metrics. May be nil.
	Observer HTTPObserver

	Logger *slog.Logger

	// AdminAllowList is the IP/CIDR allowlist for state-changing routes
	// (empty = no restriction).
	AdminAllowList []string

	// RateLimit is the per-IP request rate (requests/second). Zero disables it.
	RateLimit int

	// Burst is the per-IP bucket size. Zero uses RateLimit.
	Burst int

	// EnableAudit logs every request. Admin routes are always audited.
	EnableAudit bool
}

// DefaultRouterConfig returns default router configuration.
func DefaultRouterConfig() RouterConfig {
	return RouterConfig{
		RateLimit:   1000,
		EnableAudit: false,
	}
}

// NewRouter creates and configures the HTTP router with all routes and middleware.
func NewRouter(cfg RouterConfig) http.Handler {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	// Shared so every route draws from the same per-IP buckets.
	var limit Middleware
	if cfg.RateLimit > 0 {
		limit = RateLimit(cfg.RateLimit, cfg.Burst)
	}
	acl := NetworkACL(NetworkACLConfig{AllowList: cfg.AdminAllowList, Logger: cfg.Logger})

	mux := http.NewServeMux()
	for _, rt := range cfg.Handler.Routes() {
		mws := []Middleware{
			Recover(cfg.Logger),
			RequestID(),
			Observe(cfg.Observer, routeLabel(rt.Pattern)),
		}
		if limit != nil {
			mws = append(mws, limit)
		}
		if rt.Admin {
			mws = append(mws, acl)
		}
		if rt.Admin || cfg.EnableAudit {
			mws = append(mws, Audit(cfg.Logger))
		}
		mux.Handle(rt.Pattern, Chain(rt.Handler, mws...))
	}

	if cfg.Metrics != nil {
		mux.Handle("GET /metrics", Chain(cfg.Metrics, Recover(cfg.Logger), RequestID()))
	}
	return mux
}

// routeLabel strips the method from a mux pattern.
func routeLabel(pattern string) string {
	if _, path, ok := strings.Cut(pattern, " "); ok {
		return path
	}
	return pattern
}
