package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"

	"github.com/yndnr/regmesh-go/internal/core/loader"
	"github.com/yndnr/regmesh-go/internal/telemetry/logger"
)

// Verify validates the configuration.
func Verify(cfg *ServerConfig) error {
	if err := verifyServer(&cfg.Server); err != nil {
		return err
	}
	if err := verifyCluster(cfg); err != nil {
		return err
	}
	if err := verifyLoader(&cfg.Loader); err != nil {
		return err
	}
	if err := verifyNaming(&cfg.Naming); err != nil {
		return err
	}
	if err := verifyStorage(&cfg.Storage); err != nil {
		return err
	}
	if _, err := logger.ParseLevel(cfg.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	return nil
}

func verifyServer(cfg *ServerSection) error {
	if err := verifyHostPort("server.http.addr", cfg.HTTP.Addr); err != nil {
		return err
	}
	if err := verifyHostPort("server.cluster.addr", cfg.Cluster.Addr); err != nil {
		return err
	}
	if cfg.HTTP.Addr == cfg.Cluster.Addr {
		return errors.New("server.http.addr and server.cluster.addr must differ")
	}
	if (cfg.HTTP.TLSCertFile == "") != (cfg.HTTP.TLSKeyFile == "") {
		return errors.New("server.http.tls_cert_file and tls_key_file must be set together")
	}
	for _, f := range []string{cfg.HTTP.TLSCertFile, cfg.HTTP.TLSKeyFile} {
		if f == "" {
			continue
		}
		if _, err := os.Stat(f); err != nil {
			return fmt.Errorf("server.http tls file: %w", err)
		}
	}
	if cfg.HTTP.RateLimit < 0 || cfg.HTTP.Burst < 0 {
		return errors.New("server.http.rate_limit and burst must not be negative")
	}
	for _, entry := range cfg.HTTP.AdminAllowList {
		if net.ParseIP(entry) != nil {
			continue
		}
		if _, _, err := net.ParseCIDR(entry); err != nil {
			return fmt.Errorf("server.http.admin_allow_list: invalid entry %q", entry)
		}
	}
	if _, err := AdvertiseAddress(cfg); err != nil {
		return err
	}
	return nil
}

func verifyCluster(cfg *ServerConfig) error {
	c := &cfg.Cluster
	switch c.Membership {
	case MembershipStatic:
		for _, m := range c.Members {
			if err := verifyHostPort("cluster.members", m); err != nil {
				return err
			}
		}
	case MembershipGossip:
		if c.Gossip.BindPort < 0 || c.Gossip.BindPort > 65535 {
			return fmt.Errorf("cluster.gossip.bind_port out of range: %d", c.Gossip.BindPort)
		}
		for _, s := range c.Gossip.Seeds {
			if err := verifyHostPort("cluster.gossip.seeds", s); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("cluster.membership must be %q or %q, got %q", MembershipStatic, MembershipGossip, c.Membership)
	}

	if c.DialTimeout <= 0 || c.RoundTimeout <= 0 || c.ResultTimeout < 0 {
		return errors.New("cluster timeouts must be positive")
	}
	if c.Workers < 1 {
		return errors.New("cluster.workers must be at least 1")
	}
	return nil
}

func verifyLoader(cfg *LoaderSection) error {
	if cfg.MaxClients < -1 {
		return fmt.Errorf("loader.max_clients must be -1 or greater, got %d", cfg.MaxClients)
	}
	if cfg.ThresholdFactor < 1 {
		return fmt.Errorf("loader.threshold_factor must be at least 1, got %v", cfg.ThresholdFactor)
	}
	if err := loader.ValidateFactor(cfg.ToleranceFactor); err != nil {
		return fmt.Errorf("loader.tolerance_factor: %w", err)
	}
	return nil
}

func verifyNaming(cfg *NamingSection) error {
	if cfg.ReportInterval <= 0 {
		return errors.New("naming.report_interval must be positive")
	}
	if cfg.RepairQueueSize < 1 {
		return errors.New("naming.repair_queue_size must be at least 1")
	}
	if cfg.SyncWorkers < 1 {
		return errors.New("naming.sync_workers must be at least 1")
	}
	if cfg.FetchTimeout <= 0 {
		return errors.New("naming.fetch_timeout must be positive")
	}
	return nil
}

func verifyStorage(cfg *StorageSection) error {
	if cfg.DataDir != "" {
		if err := os.MkdirAll(cfg.DataDir, 0750); err != nil {
			return errors.New("cannot create data directory: " + err.Error())
		}
	}
	if cfg.GCThreshold <= 0 || cfg.GCThreshold >= 1 {
		return fmt.Errorf("storage.gc_threshold must be in (0, 1), got %v", cfg.GCThreshold)
	}
	return nil
}

func verifyHostPort(field, addr string) error {
	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("%s: invalid address %q: %w", field, addr, err)
	}
	n, err := strconv.Atoi(port)
	if err != nil || n < 0 || n > 65535 {
		return fmt.Errorf("%s: invalid port in %q", field, addr)
	}
	return nil
}

// AdvertiseAddress returns the member address peers use to reach the
// cluster RPC server.
func AdvertiseAddress(cfg *ServerSection) (string, error) {
	if cfg.Cluster.Advertise != "" {
		host, _, err := net.SplitHostPort(cfg.Cluster.Advertise)
		if err != nil || host == "" {
			return "", fmt.Errorf("server.cluster.advertise: invalid address %q", cfg.Cluster.Advertise)
		}
		return cfg.Cluster.Advertise, nil
	}
	host, _, err := net.SplitHostPort(cfg.Cluster.Addr)
	if err != nil {
		return "", fmt.Errorf("server.cluster.addr: %w", err)
	}
	if ip := net.ParseIP(host); host != "" && (ip == nil || !ip.IsUnspecified()) {
		return cfg.Cluster.Addr, nil
	}

	_, port, _ := net.SplitHostPort(cfg.Cluster.Addr)
	local, ok := localIPv4()
	if !ok {
		return "", errors.New("server.cluster.advertise is required: no non-loopback address found")
	}
	return net.JoinHostPort(local, port), nil
}

// localIPv4 returns the first non-loopback IPv4 interface address.
func localIPv4() (string, bool) {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return "", false
	}
	for _, a := range addrs {
		ipNet, ok := a.(*net.IPNet)
		if !ok || ipNet.IP.IsLoopback() {
			continue
		}
		if ip4 := ipNet.IP.To4(); ip4 != nil && !ip4.IsLinkLocalUnicast() {
			return ip4.String(), true
		}
	}
	return "", false
}
