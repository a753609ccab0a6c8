package membership

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/hashicorp/memberlist"

	"github.com/yndnr/regmesh-go/internal/core/domain"
)

// GossipConfig configures the memberlist backed directory.
type GossipConfig struct {
	// NodeID is the unique node name in the gossip pool.
	NodeID string

	// BindAddr is the address to bind for gossip communication.
	BindAddr string

	// BindPort is the port to bind for gossip communication. 0 picks one.
	BindPort int

	// AdvertiseAddr overrides the address announced to peers.
	AdvertiseAddr string

	// RPCAddr is the cluster RPC address announced in node metadata.
	RPCAddr string

	// LongConnection announces support for long-lived client connections.
	LongConnection bool

	// SeedNodes are gossip addresses to join at start.
	SeedNodes []string

	Logger *slog.Logger
}

// nodeMetadata is gossiped with every node.
type nodeMetadata struct {
	RPCAddr        string `json:"rpc_addr"`
	LongConnection bool   `json:"long_conn"`
}

// Gossip is a Directory backed by hashicorp/memberlist.
type Gossip struct {
	list   *memberlist.Memberlist
	self   domain.Member
	logger *slog.Logger

	mu       sync.Mutex
	shutdown bool
	onChange []func()
}

// NewGossip starts the gossip member list and joins the seed nodes.
func NewGossip(cfg GossipConfig) (*Gossip, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.NodeID == "" {
		return nil, domain.ErrMissingArgument.WithDetails("node id")
	}
	if cfg.RPCAddr == "" {
		return nil, domain.ErrMissingArgument.WithDetails("rpc address")
	}

	meta, err := json.Marshal(nodeMetadata{
		RPCAddr:        cfg.RPCAddr,
		LongConnection: cfg.LongConnection,
	})
	if err != nil {
		return nil, fmt.Errorf("encode node metadata: %w", err)
	}

	g := &Gossip{
		self: domain.Member{
			Address:        cfg.RPCAddr,
			Self:           true,
			LongConnection: cfg.LongConnection,
		},
		logger: cfg.Logger,
	}

	mlConfig := memberlist.DefaultLANConfig()
	mlConfig.Name = cfg.NodeID
	mlConfig.BindAddr = cfg.BindAddr
	mlConfig.BindPort = cfg.BindPort
	if cfg.AdvertiseAddr != "" {
		mlConfig.AdvertiseAddr = cfg.AdvertiseAddr
	}
	mlConfig.Delegate = &metadataDelegate{meta: meta}
	mlConfig.Events = &eventDelegate{gossip: g}
	mlConfig.LogOutput = &slogWriter{logger: cfg.Logger}

	list, err := memberlist.Create(mlConfig)
	if err != nil {
		return nil, fmt.Errorf("create memberlist: %w", err)
	}
	g.list = list

	if len(cfg.SeedNodes) > 0 {
		n, err := list.Join(cfg.SeedNodes)
		if err != nil {
			_ = list.Shutdown()
			return nil, fmt.Errorf("join seed nodes: %w", err)
		}
		cfg.Logger.Info("joined cluster",
			"node_id", cfg.NodeID,
			"seed_nodes", cfg.SeedNodes,
			"joined_count", n)
	} else {
		cfg.Logger.Info("started gossip (bootstrap mode)",
			"node_id", cfg.NodeID)
	}

	return g, nil
}

// OnChange registers a callback invoked after any join, leave or update.
func (g *Gossip) OnChange(fn func()) {
	g.mu.Lock()
	g.onChange = append(g.onChange, fn)
	g.mu.Unlock()
}

// GossipAddr returns the local gossip address.
func (g *Gossip) GossipAddr() string {
	n := g.list.LocalNode()
	return net.JoinHostPort(n.Addr.String(), strconv.Itoa(int(n.Port)))
}

// Members implements Directory.
func (g *Gossip) Members() []domain.Member {
	nodes := g.list.Members()
	local := g.list.LocalNode().Name

	members := []domain.Member{g.self}
	for _, n := range nodes {
		if n.Name == local {
			continue
		}
		members = append(members, g.toMember(n))
	}
	sort.SliceStable(members[1:], func(i, j int) bool {
		return members[1+i].Address < members[1+j].Address
	})
	return members
}

// Peers implements Directory.
func (g *Gossip) Peers() []domain.Member {
	return g.Members()[1:]
}

// Self implements Directory.
func (g *Gossip) Self() domain.Member {
	return g.self
}

// Find implements Directory.
func (g *Gossip) Find(address string) (domain.Member, bool) {
	return find(g.Members(), address)
}

// HasMember implements Directory.
func (g *Gossip) HasMember(addr string) bool {
	return hasMember(g.Members(), addr)
}

// Leave broadcasts a leave and waits for it to propagate.
func (g *Gossip) Leave() error {
	if err := g.list.Leave(0); err != nil {
		g.logger.Error("failed to leave cluster", "error", err)
		return err
	}
	g.logger.Info("left cluster")
	return nil
}

// Shutdown stops gossip. It is safe to call more than once.
func (g *Gossip) Shutdown() error {
	g.mu.Lock()
	if g.shutdown {
		g.mu.Unlock()
		return nil
	}
	g.shutdown = true
	g.mu.Unlock()

	if err := g.list.Shutdown(); err != nil {
		return fmt.Errorf("shutdown memberlist: %w", err)
	}
	g.logger.Info("gossip shutdown complete")
	return nil
}

func (g *Gossip) toMember(n *memberlist.Node) domain.Member {
	var meta nodeMetadata
	if len(n.Meta) > 0 {
		if err := json.Unmarshal(n.Meta, &meta); err != nil {
			g.logger.Warn("invalid node metadata",
				"node_id", n.Name,
				"error", err)
		}
	}
	addr := meta.RPCAddr
	if addr == "" {
		addr = net.JoinHostPort(n.Addr.String(), strconv.Itoa(int(n.Port)))
	}
	return domain.Member{
		Address:        addr,
		LongConnection: meta.LongConnection,
	}
}

func (g *Gossip) notify() {
	g.mu.Lock()
	fns := append([]func(){}, g.onChange...)
	g.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// eventDelegate implements memberlist.EventDelegate.
type eventDelegate struct {
	gossip *Gossip
}

func (e *eventDelegate) NotifyJoin(node *memberlist.Node) {
	m := e.gossip.toMember(node)
	e.gossip.logger.Info("node joined",
		"node_id", node.Name,
		"rpc_addr", m.Address,
		"long_conn", m.LongConnection)
	e.gossip.notify()
}

func (e *eventDelegate) NotifyLeave(node *memberlist.Node) {
	e.gossip.logger.Info("node left",
		"node_id", node.Name,
		"addr", node.Addr.String())
	e.gossip.notify()
}

func (e *eventDelegate) NotifyUpdate(node *memberlist.Node) {
	e.gossip.logger.Debug("node updated",
		"node_id", node.Name,
		"addr", node.Addr.String())
	e.gossip.notify()
}

// metadataDelegate publishes node metadata.
type metadataDelegate struct {
	meta []byte
}

func (m *metadataDelegate) NodeMeta(limit int) []byte {
	if len(m.meta) > limit {
		return m.meta[:limit]
	}
	return m.meta
}

func (m *metadataDelegate) NotifyMsg([]byte) {}

func (m *metadataDelegate) GetBroadcasts(overhead, limit int) [][]byte { return nil }

func (m *metadataDelegate) LocalState(join bool) []byte { return nil }

func (m *metadataDelegate) MergeRemoteState(buf []byte, join bool) {}

// slogWriter adapts slog.Logger to io.Writer for memberlist.
type slogWriter struct {
	logger *slog.Logger
}

func (w *slogWriter) Write(p []byte) (int, error) {
	w.logger.Debug(strings.TrimRight(string(p), "\n"), "component", "memberlist")
	return len(p), nil
}
