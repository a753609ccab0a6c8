package domain

import (
	"crypto/rand"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// ConnectionIDPrefix is the prefix of generated connection IDs.
const ConnectionIDPrefix = "rmcn-"

// Connection is a long-lived client connection held by the local node.
type Connection struct {
	ID          string            `json:"connectionId"`
	ClientIP    string            `json:"clientIp"`
	ClientPort  int               `json:"clientPort"`
	AppName     string            `json:"appName,omitempty"`
	Version     string            `json:"version,omitempty"`
	Labels      map[string]string `json:"labels,omitempty"`
	SDK         bool              `json:"sdk"`
	ConnectedAt time.Time         `json:"connectedAt"`
}

// NewConnectionID generates a connection ID: rmcn-{ulid_lowercase}.
func NewConnectionID() string {
	id := ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader)
	return ConnectionIDPrefix + strings.ToLower(id.String())
}
