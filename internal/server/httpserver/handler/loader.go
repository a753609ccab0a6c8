package handler

import (
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/yndnr/regmesh-go/internal/core/domain"
)

// queryCount reads a required non-negative count parameter.
func queryCount(r *http.Request) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("count"))
	if raw == "" {
		return 0, domain.ErrMissingArgument.WithDetails("count")
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, domain.ErrInvalidArgument.WithDetails("count must be an integer")
	}
	return n, nil
}

// handleMax handles GET /v1/console/loader/max?count=.
func (h *Handler) handleMax(w http.ResponseWriter, r *http.Request) {
	count, err := queryCount(r)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	if err := h.loader.SetMaxClients(r.Context(), count); err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, MaxClientsResponse{Count: count})
}

// handleReload handles GET /v1/console/loader/reload?count=&redirectAddress=.
func (h *Handler) handleReload(w http.ResponseWriter, r *http.Request) {
	count, err := queryCount(r)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	redirect := r.URL.Query().Get("redirectAddress")
	if err := h.loader.ReloadLocal(r.Context(), count, redirect); err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, "success")
}

// handleReloadCluster handles GET /v1/console/loader/reloadcluster?count=&redirectAddress=.
func (h *Handler) handleReloadCluster(w http.ResponseWriter, r *http.Request) {
	count, err := queryCount(r)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	report, err := h.loader.ReloadCluster(r.Context(), count, r.URL.Query().Get("redirectAddress"))
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, report)
}

// handleSmartReload handles GET /v1/console/loader/smartReload?loaderFactor=.
func (h *Handler) handleSmartReload(w http.ResponseWriter, r *http.Request) {
	var factor *float64
	if raw := strings.TrimSpace(r.URL.Query().Get("loaderFactor")); raw != "" {
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			h.handleServiceError(w, r, domain.ErrInvalidFactor.WithDetails(raw))
			return
		}
		factor = &f
	}

	result, err := h.loader.SmartReload(r.Context(), factor)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, result)
}

// handleReloadSingle handles GET /v1/console/loader/reloadsingle?connectionId=&redirectAddress=.
func (h *Handler) handleReloadSingle(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if err := h.loader.ReloadSingle(r.Context(), q.Get("connectionId"), q.Get("redirectAddress")); err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, "success")
}

// handleCurrent handles GET /v1/console/loader/current.
func (h *Handler) handleCurrent(w http.ResponseWriter, r *http.Request) {
	conns := h.loader.CurrentConnections()

	resp := CurrentResponse{
		Total:       len(conns),
		Connections: make([]ConnectionResponse, 0, len(conns)),
	}
	for _, c := range conns {
		resp.Connections = append(resp.Connections, ConnectionResponse{
			ID:          c.ID,
			ClientIP:    c.ClientIP,
			ClientPort:  c.ClientPort,
			AppName:     c.AppName,
			Version:     c.Version,
			SDK:         c.SDK,
			Labels:      c.Labels,
			ConnectedAt: c.ConnectedAt,
		})
	}
	sort.Slice(resp.Connections, func(i, j int) bool {
		return resp.Connections[i].ID < resp.Connections[j].ID
	})
	h.writeJSON(w, r, http.StatusOK, resp)
}

// handleClusterMetric handles GET /v1/console/loader/clustermetric.
func (h *Handler) handleClusterMetric(w http.ResponseWriter, r *http.Request) {
	stats, err := h.loader.ClusterMetrics(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, stats)
}
