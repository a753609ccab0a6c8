package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/yndnr/regmesh-go/internal/core/domain"
	"github.com/yndnr/regmesh-go/internal/core/loader"
	"github.com/yndnr/regmesh-go/internal/core/naming"
	"github.com/yndnr/regmesh-go/internal/server/clusterserver"
	"github.com/yndnr/regmesh-go/internal/telemetry/logger"
)

// LoaderService is the load rebalancing surface behind the console routes.
type LoaderService interface {
	SetMaxClients(ctx context.Context, count int) error
	ReloadLocal(ctx context.Context, count int, redirectAddress string) error
	ReloadCluster(ctx context.Context, count int, redirectAddress string) (*loader.Report, error)
	SmartReload(ctx context.Context, factor *float64) (*loader.SmartReloadResult, error)
	ReloadSingle(ctx context.Context, connectionID, redirectAddress string) error
	CurrentConnections() map[string]domain.Connection
	ClusterMetrics(ctx context.Context) (*domain.LoadStatistics, error)
}

// Reconciler consumes checksum reports.
type Reconciler interface {
	Authorize(source string) (string, error)
	Report(ctx context.Context, source string, vector domain.ChecksumVector) (*naming.ReconcileResult, error)
}

// Registry is the local service registry including instance writes.
type Registry interface {
	naming.Registry
	RegisterInstance(ctx context.Context, namespaceID, name string, inst domain.Instance) error
	DeregisterInstance(ctx context.Context, namespaceID, name string, inst domain.Instance) error
}

// Backuper dumps the local store.
type Backuper interface {
	Backup(ctx context.Context, w io.Writer) error
}

// PeerChecker reports the reachability of cluster peers.
type PeerChecker interface {
	Check(ctx context.Context) []clusterserver.PeerHealth
}

// Config wires the handler to its services.
type Config struct {
	Loader     LoaderService
	Reconciler Reconciler
	Registry   Registry

	// Backup serves /v1/system/backup. Nil disables the route.
	Backup Backuper

	// Peers serves /v1/system/peers. Nil disables the route.
	Peers PeerChecker

	// Ready reports readiness. Nil means always ready.
	Ready func() error

	// Version is reported by /health.
	Version string

	Logger *slog.Logger
}

// Route is one admin API endpoint.
type Route struct {
	// Pattern is an http.ServeMux pattern ("METHOD /path").
	Pattern string

	// Admin marks routes that change cluster state.
	Admin bool

	Handler http.HandlerFunc
}

// Handler is the main HTTP handler that routes requests to appropriate handlers.
type Handler struct {
	loader     LoaderService
	reconciler Reconciler
	registry   Registry
	backup     Backuper
	peers      PeerChecker
	ready      func() error
	version    string
	logger     *slog.Logger
	mux        *http.ServeMux
}

// New creates a new Handler with the given services.
func New(cfg Config) *Handler {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	h := &Handler{
		loader:     cfg.Loader,
		reconciler: cfg.Reconciler,
		registry:   cfg.Registry,
		backup:     cfg.Backup,
		peers:      cfg.Peers,
		ready:      cfg.Ready,
		version:    cfg.Version,
		logger:     cfg.Logger,
		mux:        http.NewServeMux(),
	}

	for _, rt := range h.Routes() {
		h.mux.HandleFunc(rt.Pattern, rt.Handler)
	}
	return h
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// Routes lists every endpoint served by the handler.
func (h *Handler) Routes() []Route {
	return []Route{
		// Health endpoints
		{Pattern: "GET /health", Handler: h.handleHealth},
		{Pattern: "GET /ready", Handler: h.handleReady},

		// System
		{Pattern: "GET /v1/system/peers", Handler: h.handlePeers},
		{Pattern: "GET /v1/system/backup", Admin: true, Handler: h.handleBackup},

		// Loader console
		{Pattern: "GET /v1/console/loader/current", Handler: h.handleCurrent},
		{Pattern: "GET /v1/console/loader/clustermetric", Handler: h.handleClusterMetric},
		{Pattern: "GET /v1/console/loader/max", Admin: true, Handler: h.handleMax},
		{Pattern: "GET /v1/console/loader/reload", Admin: true, Handler: h.handleReload},
		{Pattern: "GET /v1/console/loader/reloadcluster", Admin: true, Handler: h.handleReloadCluster},
		{Pattern: "GET /v1/console/loader/smartReload", Admin: true, Handler: h.handleSmartReload},
		{Pattern: "GET /v1/console/loader/reloadsingle", Admin: true, Handler: h.handleReloadSingle},

		// Naming
		{Pattern: "POST /v1/ns/service/status", Handler: h.handleServiceStatus},
		{Pattern: "PUT /v1/ns/service/checksum", Handler: h.handleChecksum},
		{Pattern: "GET /v1/ns/service", Handler: h.handleGetService},
		{Pattern: "GET /v1/ns/service/list", Handler: h.handleListServices},
		{Pattern: "POST /v1/ns/instance", Admin: true, Handler: h.handleRegisterInstance},
		{Pattern: "DELETE /v1/ns/instance", Admin: true, Handler: h.handleDeregisterInstance},
	}
}

// writeJSON writes a JSON response with standard envelope format.
func (h *Handler) writeJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	requestID := getRequestID(r)
	response := NewResponse(requestID, data)

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Request-ID", requestID)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

// writeError writes an error response with standard envelope format.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, status int, code, message string, details any) {
	requestID := getRequestID(r)
	response := NewErrorResponse(requestID, code, message, details)

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Error-Code", code)
	w.Header().Set("X-Request-ID", requestID)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.logger.Error("failed to encode error response", "error", err)
	}
}

// getRequestID extracts request ID from context or header.
func getRequestID(r *http.Request) string {
	if reqID := logger.RequestIDFromContext(r.Context()); reqID != "" {
		return reqID
	}
	return r.Header.Get("X-Request-ID")
}

// handleServiceError converts service errors to HTTP responses.
func (h *Handler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	if domain.IsDomainError(err, "") {
		code := domain.GetErrorCode(err)
		status := ErrorCodeToHTTPStatus(code)
		if status >= http.StatusInternalServerError {
			h.logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err)
		}
		h.writeError(w, r, status, code, err.Error(), nil)
		return
	}

	// Generic internal error
	h.logger.ErrorContext(r.Context(), "internal error", "path", r.URL.Path, "error", err)
	h.writeError(w, r, http.StatusInternalServerError, domain.ErrInternalServer.Code, "internal server error", nil)
}

// ErrorCodeToHTTPStatus maps error codes to HTTP status codes.
func ErrorCodeToHTTPStatus(code string) int {
	switch {
	case strings.HasSuffix(code, "-4040"):
		return http.StatusNotFound
	case strings.HasSuffix(code, "-4090"):
		return http.StatusConflict
	case strings.HasSuffix(code, "-4290"):
		return http.StatusTooManyRequests
	case strings.HasSuffix(code, "-4000"), strings.HasSuffix(code, "-4001"),
		strings.HasSuffix(code, "-4002"), strings.HasSuffix(code, "-4003"):
		return http.StatusBadRequest
	case strings.HasSuffix(code, "-4030"):
		return http.StatusForbidden
	case strings.HasPrefix(code, "RM-ARG-"):
		return http.StatusBadRequest
	case strings.HasSuffix(code, "-5030"), strings.HasSuffix(code, "-5031"):
		return http.StatusServiceUnavailable
	case strings.HasSuffix(code, "-5040"):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// ClientIP extracts client IP from request.
func ClientIP(r *http.Request) string {
	// Check X-Forwarded-For header
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		return strings.TrimSpace(parts[0])
	}

	// Check X-Real-IP header
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
