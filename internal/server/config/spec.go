package config

import "time"

// Membership modes.
const (
	MembershipStatic = "static"
	MembershipGossip = "gossip"
)

// ServerConfig is the root configuration for regmesh-server.
type ServerConfig struct {
	Server  ServerSection  `koanf:"server"`
	Cluster ClusterSection `koanf:"cluster"`
	Loader  LoaderSection  `koanf:"loader"`
	Naming  NamingSection  `koanf:"naming"`
	Storage StorageSection `koanf:"storage"`
	Log     LogSection     `koanf:"log"`
}

// ServerSection configures server endpoints.
type ServerSection struct {
	HTTP    HTTPConfig    `koanf:"http"`
	Cluster ClusterConfig `koanf:"cluster"`
}

// HTTPConfig configures the HTTP server.
type HTTPConfig struct {
	Addr         string        `koanf:"addr"`
	TLSCertFile  string        `koanf:"tls_cert_file"`
	TLSKeyFile   string        `koanf:"tls_key_file"`
	ReadTimeout  time.Duration `koanf:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout"`

	// AdminAllowList restricts state-changing routes to these IPs/CIDRs.
	AdminAllowList []string `koanf:"admin_allow_list"`

	// RateLimit is the per-IP request rate. Zero disables limiting.
	RateLimit int `koanf:"rate_limit"`
	Burst     int `koanf:"burst"`

	EnableAudit bool `koanf:"enable_audit"`
}

// ClusterConfig configures the cluster RPC server.
type ClusterConfig struct {
	// Addr is the bind address.
	Addr string `koanf:"addr"`

	// Advertise is the member address announced to peers. Defaults to Addr
	// when Addr names a concrete host.
	Advertise string `koanf:"advertise"`
}

// ClusterSection configures membership and peer calls.
type ClusterSection struct {
	// Membership selects the member directory: "static" or "gossip".
	Membership string `koanf:"membership"`

	// Members lists the peer RPC addresses in static mode.
	Members []string `koanf:"members"`

	// LongConnection announces that this node accepts SDK connections.
	LongConnection bool `koanf:"long_connection"`

	// IdentityKey and IdentityValue authenticate inter-node calls. An empty
	// value disables authentication.
	IdentityKey   string `koanf:"identity_key"`
	IdentityValue string `koanf:"identity_value"`

	DialTimeout time.Duration `koanf:"dial_timeout"`

	// RoundTimeout bounds one fan-out round; ResultTimeout is the grace
	// given to calls still running when it fires.
	RoundTimeout  time.Duration `koanf:"round_timeout"`
	ResultTimeout time.Duration `koanf:"result_timeout"`

	// Workers is the size of the shared fan-out pool.
	Workers int `koanf:"workers"`

	Gossip GossipSection `koanf:"gossip"`
}

// GossipSection configures memberlist in gossip mode.
type GossipSection struct {
	// NodeID is the gossip node name. If empty, one is generated at startup.
	NodeID string `koanf:"node_id"`

	BindAddr      string `koanf:"bind_addr"`
	BindPort      int    `koanf:"bind_port"`
	AdvertiseAddr string `koanf:"advertise_addr"`

	// Seeds is the list of gossip addresses to join.
	// Format: ["192.168.1.10:7946", "192.168.1.11:7946"]
	Seeds []string `koanf:"seeds"`
}

// LoaderSection configures connection load rebalancing.
type LoaderSection struct {
	// MaxClients caps SDK connections on this node; -1 is unlimited.
	MaxClients int `koanf:"max_clients"`

	ThresholdFactor float64 `koanf:"threshold_factor"`

	// ToleranceFactor is reloadable at runtime.
	ToleranceFactor float64 `koanf:"tolerance_factor"`
}

// NamingSection configures checksum anti-entropy.
type NamingSection struct {
	ReportInterval  time.Duration `koanf:"report_interval"`
	RepairQueueSize int           `koanf:"repair_queue_size"`
	SyncWorkers     int           `koanf:"sync_workers"`
	FetchTimeout    time.Duration `koanf:"fetch_timeout"`
}

// StorageSection configures the registry store.
type StorageSection struct {
	// DataDir is the Badger directory. Empty keeps the registry in memory.
	DataDir     string        `koanf:"data_dir"`
	GCInterval  time.Duration `koanf:"gc_interval"`
	GCThreshold float64       `koanf:"gc_threshold"`
	SyncWrites  bool          `koanf:"sync_writes"`
}

// LogSection configures logging. Level is reloadable at runtime.
type LogSection struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}
