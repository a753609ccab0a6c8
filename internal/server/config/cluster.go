package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/oklog/ulid/v2"

	"github.com/yndnr/regmesh-go/internal/cluster/membership"
	"github.com/yndnr/regmesh-go/internal/core/domain"
	"github.com/yndnr/regmesh-go/internal/core/fanout"
	"github.com/yndnr/regmesh-go/internal/server/clusterserver"
)

// ToGossipConfig converts ServerConfig to membership.GossipConfig.
//
// This handles NodeID generation and announces the advertised RPC address.
func ToGossipConfig(cfg *ServerConfig, logger *slog.Logger) (membership.GossipConfig, error) {
	if cfg == nil {
		return membership.GossipConfig{}, fmt.Errorf("server config is nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	rpcAddr, err := AdvertiseAddress(&cfg.Server)
	if err != nil {
		return membership.GossipConfig{}, err
	}

	nodeID := cfg.Cluster.Gossip.NodeID
	if nodeID == "" {
		nodeID = generateNodeID()
		logger.Info("generated gossip node ID", "node_id", nodeID)
	}

	return membership.GossipConfig{
		NodeID:         nodeID,
		BindAddr:       cfg.Cluster.Gossip.BindAddr,
		BindPort:       cfg.Cluster.Gossip.BindPort,
		AdvertiseAddr:  cfg.Cluster.Gossip.AdvertiseAddr,
		RPCAddr:        rpcAddr,
		LongConnection: cfg.Cluster.LongConnection,
		SeedNodes:      cfg.Cluster.Gossip.Seeds,
		Logger:         logger,
	}, nil
}

// ToStaticDirectory builds the static member directory. Every configured
// member shares this node's long connection setting.
func ToStaticDirectory(cfg *ServerConfig) (*membership.Static, error) {
	self, err := AdvertiseAddress(&cfg.Server)
	if err != nil {
		return nil, err
	}
	peers := make([]domain.Member, 0, len(cfg.Cluster.Members))
	for _, addr := range cfg.Cluster.Members {
		peers = append(peers, domain.Member{
			Address:        strings.TrimSpace(addr),
			LongConnection: cfg.Cluster.LongConnection,
		})
	}
	return membership.NewStatic(domain.Member{
		Address:        self,
		LongConnection: cfg.Cluster.LongConnection,
	}, peers), nil
}

// ToAuthConfig converts the cluster identity settings.
func ToAuthConfig(cfg *ServerConfig, logger *slog.Logger) clusterserver.AuthConfig {
	return clusterserver.AuthConfig{
		IdentityKey:   cfg.Cluster.IdentityKey,
		IdentityValue: cfg.Cluster.IdentityValue,
		Logger:        logger,
	}
}

// ToClientConfig converts ServerConfig to clusterserver.ClientConfig.
func ToClientConfig(cfg *ServerConfig, logger *slog.Logger) clusterserver.ClientConfig {
	c := clusterserver.DefaultClientConfig()
	if cfg.Cluster.DialTimeout > 0 {
		c.DialTimeout = cfg.Cluster.DialTimeout
	}
	c.Auth = ToAuthConfig(cfg, logger)
	c.Logger = logger
	return c
}

// ToClusterServerConfig converts ServerConfig to clusterserver.Config.
func ToClusterServerConfig(cfg *ServerConfig, logger *slog.Logger) clusterserver.Config {
	c := clusterserver.DefaultConfig()
	c.Addr = cfg.Server.Cluster.Addr
	c.Auth = ToAuthConfig(cfg, logger)
	c.Logger = logger
	return c
}

// ToFanoutConfig converts the round budget. observer may be nil.
func ToFanoutConfig(cfg *ServerConfig, observer fanout.Observer, logger *slog.Logger) fanout.Config {
	return fanout.Config{
		Budget: fanout.Budget{
			Round:  cfg.Cluster.RoundTimeout,
			Result: cfg.Cluster.ResultTimeout,
		},
		Observer: observer,
		Logger:   logger,
	}
}

// generateNodeID generates a unique node identifier.
//
// Format: rmnode-<lowercase ulid>
func generateNodeID() string {
	return "rmnode-" + strings.ToLower(ulid.Make().String())
}
