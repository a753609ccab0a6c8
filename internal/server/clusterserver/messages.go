package clusterserver

import (
	"github.com/yndnr/regmesh-go/internal/core/domain"
	"github.com/yndnr/regmesh-go/internal/core/naming"
)

// ServiceName is the fully-qualified cluster service name.
const ServiceName = "regmesh.cluster.v1.ClusterService"

// Procedure paths.
const (
	ServerLoaderInfoProcedure = "/" + ServiceName + "/ServerLoaderInfo"
	ServerReloadProcedure     = "/" + ServiceName + "/ServerReload"
	SetMaxClientsProcedure    = "/" + ServiceName + "/SetMaxClients"
	ServiceStatusProcedure    = "/" + ServiceName + "/ServiceStatus"
	GetServiceProcedure       = "/" + ServiceName + "/GetService"
	PingProcedure             = "/" + ServiceName + "/Ping"
)

// LoaderInfoRequest asks a peer for its loader metrics.
type LoaderInfoRequest struct{}

// LoaderInfoResponse carries the loader metrics map of one node.
type LoaderInfoResponse struct {
	Address string            `json:"address"`
	Metrics map[string]string `json:"metrics"`
}

// ServerReloadRequest asks a peer to shed connections down to Count.
type ServerReloadRequest struct {
	Count           int    `json:"count"`
	RedirectAddress string `json:"redirectAddress,omitempty"`
}

// ServerReloadResponse reports how many connections were expelled.
type ServerReloadResponse struct {
	Expelled int `json:"expelled"`
}

// SetMaxClientsRequest sets a peer's SDK connection cap.
type SetMaxClientsRequest struct {
	Count int `json:"count"`
}

// SetMaxClientsResponse is empty.
type SetMaxClientsResponse struct{}

// ServiceStatusRequest pushes a checksum vector from Source.
type ServiceStatusRequest struct {
	Source string                `json:"source"`
	Vector domain.ChecksumVector `json:"vector"`
}

// ServiceStatusResponse summarizes how the receiver handled the vector.
type ServiceStatusResponse struct {
	Result *naming.ReconcileResult `json:"result,omitempty"`
}

// GetServiceRequest asks for the authoritative copy of one service.
type GetServiceRequest struct {
	NamespaceID string `json:"namespaceId"`
	ServiceName string `json:"serviceName"`
}

// GetServiceResponse carries the service, or Found=false.
type GetServiceResponse struct {
	Found   bool            `json:"found"`
	Service *domain.Service `json:"service,omitempty"`
}

// PingRequest is a liveness check.
type PingRequest struct {
	From string `json:"from,omitempty"`
}

// PingResponse identifies the answering node.
type PingResponse struct {
	Address   string `json:"address"`
	Members   int    `json:"members"`
	Timestamp int64  `json:"timestamp"`
}
