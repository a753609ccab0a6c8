package clusterserver

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/yndnr/regmesh-go/internal/core/domain"
)

// DefaultPeerCheckTimeout bounds one peer ping.
const DefaultPeerCheckTimeout = time.Second

// PeerHealth is the reachability of one cluster peer.
type PeerHealth struct {
	Address   string `json:"address"`
	Reachable bool   `json:"reachable"`
	Members   int    `json:"members,omitempty"`
	LatencyMs int64  `json:"latency_ms"`
	Error     string `json:"error,omitempty"`
}

// PeerChecker pings every peer of a directory.
type PeerChecker struct {
	dir     Directory
	client  *Client
	timeout time.Duration
}

// NewPeerChecker creates a checker. timeout <= 0 means DefaultPeerCheckTimeout.
func NewPeerChecker(dir Directory, client *Client, timeout time.Duration) *PeerChecker {
	if timeout <= 0 {
		timeout = DefaultPeerCheckTimeout
	}
	return &PeerChecker{dir: dir, client: client, timeout: timeout}
}

// Check pings all peers concurrently. The result keeps member order and
// never includes self.
func (p *PeerChecker) Check(ctx context.Context) []PeerHealth {
	self := p.dir.Self()
	var peers []domain.Member
	for _, m := range p.dir.Members() {
		if m.Address != self.Address {
			peers = append(peers, m)
		}
	}

	out := make([]PeerHealth, len(peers))
	var g errgroup.Group
	for i, m := range peers {
		g.Go(func() error {
			callCtx, cancel := context.WithTimeout(ctx, p.timeout)
			defer cancel()

			start := time.Now()
			resp, err := p.client.Ping(callCtx, m, self.Address)
			h := PeerHealth{Address: m.Address, LatencyMs: time.Since(start).Milliseconds()}
			if err != nil {
				h.Error = err.Error()
			} else {
				h.Reachable = true
				h.Members = resp.Members
			}
			out[i] = h
			return nil
		})
	}
	_ = g.Wait()
	return out
}
