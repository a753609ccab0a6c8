package handler

import (
	"time"

	"github.com/yndnr/regmesh-go/internal/server/clusterserver"
)

// Response is the standard API response envelope.
// All JSON responses use this format (except /metrics which uses Prometheus format).
type Response struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id"`
	Timestamp int64  `json:"timestamp"`
	Data      any    `json:"data,omitempty"`
	Details   any    `json:"details,omitempty"`
}

// NewResponse creates a success response.
func NewResponse(requestID string, data any) *Response {
	return &Response{
		Code:      "OK",
		Message:   "Success",
		RequestID: requestID,
		Timestamp: time.Now().UnixMilli(),
		Data:      data,
	}
}

// NewErrorResponse creates an error response.
func NewErrorResponse(requestID, code, message string, details any) *Response {
	return &Response{
		Code:      code,
		Message:   message,
		RequestID: requestID,
		Timestamp: time.Now().UnixMilli(),
		Details:   details,
	}
}

// StatusReport is the decoded body of POST /v1/ns/service/status.
type StatusReport struct {
	Statuses string `json:"statuses"`
	ClientIP string `json:"clientIP"`
}

// StatusReportResponse is the data of POST /v1/ns/service/status.
type StatusReportResponse struct {
	NamespaceID string `json:"namespaceId"`
	Received    int    `json:"received"`
	Compared    int    `json:"compared"`
	Mismatched  int    `json:"mismatched"`
	Enqueued    int    `json:"enqueued"`
	Skipped     int    `json:"skipped"`
	Unknown     int    `json:"unknown"`
}

// ChecksumResponse is the data of PUT /v1/ns/service/checksum.
type ChecksumResponse struct {
	Checksum string `json:"checksum"`
}

// MaxClientsResponse is the data of GET /v1/console/loader/max.
type MaxClientsResponse struct {
	Count int `json:"count"`
}

// CurrentResponse is the data of GET /v1/console/loader/current.
type CurrentResponse struct {
	Total       int                  `json:"total"`
	Connections []ConnectionResponse `json:"connections"`
}

// ConnectionResponse represents a connection in API responses.
type ConnectionResponse struct {
	ID          string            `json:"connectionId"`
	ClientIP    string            `json:"clientIp"`
	ClientPort  int               `json:"clientPort,omitempty"`
	AppName     string            `json:"appName,omitempty"`
	Version     string            `json:"version,omitempty"`
	SDK         bool              `json:"sdk"`
	Labels      map[string]string `json:"labels,omitempty"`
	ConnectedAt time.Time         `json:"connectedAt"`
}

// PeersResponse is the data of GET /v1/system/peers.
type PeersResponse struct {
	Total     int                        `json:"total"`
	Reachable int                        `json:"reachable"`
	Peers     []clusterserver.PeerHealth `json:"peers"`
}
