package clusterserver

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"connectrpc.com/connect"

	"github.com/yndnr/regmesh-go/internal/core/domain"
	"github.com/yndnr/regmesh-go/internal/core/loader"
	"github.com/yndnr/regmesh-go/internal/core/naming"
)

// Directory is the member view the handler needs.
type Directory interface {
	Self() domain.Member
	Members() []domain.Member
}

// Handler implements the ClusterService RPC handlers.
//
// This connects the connect-go RPC layer with the local connection table,
// the reconciler and the service registry.
type Handler struct {
	dir        Directory
	local      loader.LocalNode
	reconciler *naming.Reconciler
	registry   naming.Registry
	logger     *slog.Logger
}

// NewHandler creates a new RPC handler.
func NewHandler(dir Directory, local loader.LocalNode, reconciler *naming.Reconciler, registry naming.Registry, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}

	return &Handler{
		dir:        dir,
		local:      local,
		reconciler: reconciler,
		registry:   registry,
		logger:     logger,
	}
}

// Mount returns the path prefix and the http.Handler serving every
// procedure of the cluster service. The JSON codec is always registered.
func (h *Handler) Mount(opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{connect.WithCodec(JSONCodec{})}, opts...)

	mux := http.NewServeMux()
	mux.Handle(ServerLoaderInfoProcedure, connect.NewUnaryHandler(ServerLoaderInfoProcedure, h.ServerLoaderInfo, opts...))
	mux.Handle(ServerReloadProcedure, connect.NewUnaryHandler(ServerReloadProcedure, h.ServerReload, opts...))
	mux.Handle(SetMaxClientsProcedure, connect.NewUnaryHandler(SetMaxClientsProcedure, h.SetMaxClients, opts...))
	mux.Handle(ServiceStatusProcedure, connect.NewUnaryHandler(ServiceStatusProcedure, h.ServiceStatus, opts...))
	mux.Handle(GetServiceProcedure, connect.NewUnaryHandler(GetServiceProcedure, h.GetService, opts...))
	mux.Handle(PingProcedure, connect.NewUnaryHandler(PingProcedure, h.Ping, opts...))
	return "/" + ServiceName + "/", mux
}

// ServerLoaderInfo returns the local loader metrics.
func (h *Handler) ServerLoaderInfo(
	ctx context.Context,
	req *connect.Request[LoaderInfoRequest],
) (*connect.Response[LoaderInfoResponse], error) {
	return connect.NewResponse(&LoaderInfoResponse{
		Address: h.dir.Self().Address,
		Metrics: h.local.LoaderMetrics(),
	}), nil
}

// ServerReload sheds local connections down to the requested count.
func (h *Handler) ServerReload(
	ctx context.Context,
	req *connect.Request[ServerReloadRequest],
) (*connect.Response[ServerReloadResponse], error) {
	h.logger.Info("server reload requested",
		"peer", req.Peer().Addr,
		"count", req.Msg.Count,
		"redirect", req.Msg.RedirectAddress)

	expelled, err := h.local.LoadCount(ctx, req.Msg.Count, req.Msg.RedirectAddress)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&ServerReloadResponse{Expelled: expelled}), nil
}

// SetMaxClients sets the local SDK connection cap.
func (h *Handler) SetMaxClients(
	ctx context.Context,
	req *connect.Request[SetMaxClientsRequest],
) (*connect.Response[SetMaxClientsResponse], error) {
	if err := h.local.SetMaxClientCount(req.Msg.Count); err != nil {
		return nil, toConnectError(err)
	}
	h.logger.Info("max clients updated", "peer", req.Peer().Addr, "count", req.Msg.Count)
	return connect.NewResponse(&SetMaxClientsResponse{}), nil
}

// ServiceStatus feeds a peer's checksum vector to the reconciler.
func (h *Handler) ServiceStatus(
	ctx context.Context,
	req *connect.Request[ServiceStatusRequest],
) (*connect.Response[ServiceStatusResponse], error) {
	result, err := h.reconciler.Report(ctx, req.Msg.Source, req.Msg.Vector)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&ServiceStatusResponse{Result: result}), nil
}

// GetService returns the local copy of one service.
func (h *Handler) GetService(
	ctx context.Context,
	req *connect.Request[GetServiceRequest],
) (*connect.Response[GetServiceResponse], error) {
	if req.Msg.ServiceName == "" {
		return nil, toConnectError(domain.ErrMissingArgument.WithDetails("serviceName"))
	}
	ns := req.Msg.NamespaceID
	if ns == "" {
		ns = domain.DefaultNamespace
	}

	svc, ok := h.registry.Lookup(ns, req.Msg.ServiceName)
	return connect.NewResponse(&GetServiceResponse{Found: ok, Service: svc}), nil
}

// Ping handles the Ping RPC.
func (h *Handler) Ping(
	ctx context.Context,
	req *connect.Request[PingRequest],
) (*connect.Response[PingResponse], error) {
	h.logger.Debug("ping received", "from", req.Msg.From)

	return connect.NewResponse(&PingResponse{
		Address:   h.dir.Self().Address,
		Members:   len(h.dir.Members()),
		Timestamp: time.Now().Unix(),
	}), nil
}
