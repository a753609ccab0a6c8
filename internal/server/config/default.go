package config

import "time"

// Default configuration values.
const (
	DefaultHTTPAddr    = "0.0.0.0:8848"
	DefaultClusterAddr = "0.0.0.0:9848"

	DefaultHTTPReadTimeout  = 10 * time.Second
	DefaultHTTPWriteTimeout = 60 * time.Second
	DefaultRateLimit        = 1000

	DefaultDialTimeout   = 2 * time.Second
	DefaultRoundTimeout  = 1000 * time.Millisecond
	DefaultResultTimeout = 500 * time.Millisecond
	DefaultWorkers       = 16
	DefaultGossipPort    = 7946

	DefaultMaxClients      = -1
	DefaultThresholdFactor = 1.1
	DefaultToleranceFactor = 0.1

	DefaultReportInterval  = 5 * time.Second
	DefaultRepairQueueSize = 1 << 14
	DefaultSyncWorkers     = 2
	DefaultFetchTimeout    = 3 * time.Second

	DefaultDataDir     = "/var/lib/regmesh-server/data"
	DefaultGCInterval  = 10 * time.Minute
	DefaultGCThreshold = 0.5

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// Default returns the default server configuration.
func Default() *ServerConfig {
	return &ServerConfig{
		Server: ServerSection{
			HTTP: HTTPConfig{
				Addr:         DefaultHTTPAddr,
				ReadTimeout:  DefaultHTTPReadTimeout,
				WriteTimeout: DefaultHTTPWriteTimeout,
				RateLimit:    DefaultRateLimit,
			},
			Cluster: ClusterConfig{
				Addr: DefaultClusterAddr,
			},
		},
		Cluster: ClusterSection{
			Membership:     MembershipStatic,
			LongConnection: true,
			DialTimeout:    DefaultDialTimeout,
			RoundTimeout:   DefaultRoundTimeout,
			ResultTimeout:  DefaultResultTimeout,
			Workers:        DefaultWorkers,
			Gossip: GossipSection{
				BindAddr: "0.0.0.0",
				BindPort: DefaultGossipPort,
			},
		},
		Loader: LoaderSection{
			MaxClients:      DefaultMaxClients,
			ThresholdFactor: DefaultThresholdFactor,
			ToleranceFactor: DefaultToleranceFactor,
		},
		Naming: NamingSection{
			ReportInterval:  DefaultReportInterval,
			RepairQueueSize: DefaultRepairQueueSize,
			SyncWorkers:     DefaultSyncWorkers,
			FetchTimeout:    DefaultFetchTimeout,
		},
		Storage: StorageSection{
			DataDir:     DefaultDataDir,
			GCInterval:  DefaultGCInterval,
			GCThreshold: DefaultGCThreshold,
		},
		Log: LogSection{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}
