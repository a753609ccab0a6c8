package domain

import (
	"net"
	"strings"
)

// Member is a peer server process in the cluster.
//
// A Member is a snapshot taken from the member directory for a single round;
// it has no lifecycle of its own.
type Member struct {
	// Address is the cluster RPC address (host:port).
	Address string `json:"address"`

	// Self marks the local node.
	Self bool `json:"self"`

	// LongConnection reports whether the member accepts long-lived client
	// connections and can therefore report and shed connection load.
	LongConnection bool `json:"long_connection"`
}

// Host returns the host part of the member address.
func (m Member) Host() string {
	host, _, err := net.SplitHostPort(m.Address)
	if err != nil {
		return m.Address
	}
	return host
}

// Matches reports whether addr identifies this member, either as the full
// host:port address or as a bare host.
func (m Member) Matches(addr string) bool {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return false
	}
	if addr == m.Address {
		return true
	}
	if _, _, err := net.SplitHostPort(addr); err == nil {
		return false
	}
	return strings.Trim(addr, "[]") == m.Host()
}
