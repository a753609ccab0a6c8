package handler

import (
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/yndnr/regmesh-go/internal/core/domain"
	"github.com/yndnr/regmesh-go/internal/core/naming"
)

// maxStatusBody bounds a checksum report body.
const maxStatusBody = 8 << 20

func namespaceParam(r *http.Request) string {
	if ns := strings.TrimSpace(r.URL.Query().Get("namespaceId")); ns != "" {
		return ns
	}
	return domain.DefaultNamespace
}

// handleServiceStatus handles POST /v1/ns/service/status.
//
// The body is a URL-encoded JSON object {"statuses": "...", "clientIP": "..."}
// where statuses is itself a JSON checksum vector or the legacy
// svc@@sum@@@svc@@sum form.
func (h *Handler) handleServiceStatus(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxStatusBody))
	if err != nil {
		h.writeError(w, r, http.StatusBadRequest, domain.ErrBadRequest.Code, "unreadable request body", nil)
		return
	}

	decoded, err := url.QueryUnescape(string(body))
	if err != nil {
		decoded = string(body)
	}

	var report StatusReport
	if err := json.Unmarshal([]byte(decoded), &report); err != nil {
		h.writeError(w, r, http.StatusBadRequest, domain.ErrBadRequest.Code, "invalid request body", nil)
		return
	}
	if report.ClientIP == "" {
		h.handleServiceError(w, r, domain.ErrMissingArgument.WithDetails("clientIP"))
		return
	}

	source, err := h.reconciler.Authorize(report.ClientIP)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	vector, skipped, err := naming.ParseStatuses(namespaceParam(r), report.Statuses)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	result, err := h.reconciler.Report(r.Context(), source, vector)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, StatusReportResponse{
		NamespaceID: vector.NamespaceID,
		Received:    len(vector.Entries) + skipped,
		Compared:    result.Compared,
		Mismatched:  result.Mismatched,
		Enqueued:    result.Enqueued,
		Skipped:     result.Skipped + skipped,
		Unknown:     result.Unknown,
	})
}

// handleChecksum handles PUT /v1/ns/service/checksum?namespaceId=&serviceName=.
func (h *Handler) handleChecksum(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.URL.Query().Get("serviceName"))
	if name == "" {
		h.handleServiceError(w, r, domain.ErrMissingArgument.WithDetails("serviceName"))
		return
	}
	ns := namespaceParam(r)

	sum, ok := h.registry.ComputeChecksum(ns, name)
	if !ok {
		h.handleServiceError(w, r, domain.ErrServiceNotFound.WithDetails(ns+"/"+name))
		return
	}
	h.writeJSON(w, r, http.StatusOK, ChecksumResponse{Checksum: sum})
}

// handleGetService handles GET /v1/ns/service?namespaceId=&serviceName=.
func (h *Handler) handleGetService(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.URL.Query().Get("serviceName"))
	if name == "" {
		h.handleServiceError(w, r, domain.ErrMissingArgument.WithDetails("serviceName"))
		return
	}
	ns := namespaceParam(r)

	svc, ok := h.registry.Lookup(ns, name)
	if !ok {
		h.handleServiceError(w, r, domain.ErrServiceNotFound.WithDetails(ns+"/"+name))
		return
	}
	h.writeJSON(w, r, http.StatusOK, svc)
}

// handleListServices handles GET /v1/ns/service/list?namespaceId=.
func (h *Handler) handleListServices(w http.ResponseWriter, r *http.Request) {
	ns := namespaceParam(r)
	vector := naming.Vector(h.registry, ns)
	h.writeJSON(w, r, http.StatusOK, vector)
}

// instanceParams reads an instance from query or form parameters.
func instanceParams(r *http.Request) (ns, service string, inst domain.Instance, err error) {
	if err := r.ParseForm(); err != nil {
		return "", "", inst, domain.ErrBadRequest.WithCause(err)
	}
	form := r.Form

	service = strings.TrimSpace(form.Get("serviceName"))
	if service == "" {
		return "", "", inst, domain.ErrMissingArgument.WithDetails("serviceName")
	}
	ns = strings.TrimSpace(form.Get("namespaceId"))
	if ns == "" {
		ns = domain.DefaultNamespace
	}

	inst.IP = strings.TrimSpace(form.Get("ip"))
	if inst.IP == "" {
		return "", "", inst, domain.ErrMissingArgument.WithDetails("ip")
	}
	inst.Port, err = strconv.Atoi(form.Get("port"))
	if err != nil || inst.Port <= 0 || inst.Port > 65535 {
		return "", "", inst, domain.ErrInvalidArgument.WithDetails("port")
	}

	inst.ClusterName = form.Get("clusterName")
	if inst.ClusterName == "" {
		inst.ClusterName = domain.DefaultClusterName
	}
	inst.Weight = 1
	if raw := form.Get("weight"); raw != "" {
		if inst.Weight, err = strconv.ParseFloat(raw, 64); err != nil || inst.Weight < 0 {
			return "", "", inst, domain.ErrInvalidArgument.WithDetails("weight")
		}
	}
	inst.Healthy = boolParam(form, "healthy", true)
	inst.Enabled = boolParam(form, "enabled", true)
	inst.Ephemeral = boolParam(form, "ephemeral", true)
	if raw := form.Get("metadata"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &inst.Metadata); err != nil {
			return "", "", inst, domain.ErrInvalidArgument.WithDetails("metadata must be a JSON object")
		}
	}
	return ns, service, inst, nil
}

func boolParam(form url.Values, key string, def bool) bool {
	raw := form.Get(key)
	if raw == "" {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return def
	}
	return v
}

// handleRegisterInstance handles POST /v1/ns/instance.
func (h *Handler) handleRegisterInstance(w http.ResponseWriter, r *http.Request) {
	ns, service, inst, err := instanceParams(r)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	if err := h.registry.RegisterInstance(r.Context(), ns, service, inst); err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, "ok")
}

// handleDeregisterInstance handles DELETE /v1/ns/instance.
func (h *Handler) handleDeregisterInstance(w http.ResponseWriter, r *http.Request) {
	ns, service, inst, err := instanceParams(r)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	if err := h.registry.DeregisterInstance(r.Context(), ns, service, inst); err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, "ok")
}
