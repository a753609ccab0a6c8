package config

import (
	"log/slog"

	"github.com/yndnr/regmesh-go/internal/connection"
	"github.com/yndnr/regmesh-go/internal/core/loader"
	"github.com/yndnr/regmesh-go/internal/core/naming"
	"github.com/yndnr/regmesh-go/internal/server/httpserver"
	"github.com/yndnr/regmesh-go/internal/storage"
	"github.com/yndnr/regmesh-go/internal/telemetry/logger"
)

// ToLoggerConfig converts the log section.
func ToLoggerConfig(cfg *ServerConfig) logger.Config {
	c := logger.DefaultConfig()
	c.Level = cfg.Log.Level
	c.Format = cfg.Log.Format
	return c
}

// ToKVConfig converts the storage section.
func ToKVConfig(cfg *ServerConfig) storage.KVConfig {
	c := storage.DefaultKVConfig(cfg.Storage.DataDir)
	if cfg.Storage.GCInterval > 0 {
		c.Badger.GCInterval = cfg.Storage.GCInterval.String()
	}
	if cfg.Storage.GCThreshold > 0 {
		c.Badger.GCThreshold = cfg.Storage.GCThreshold
	}
	c.Badger.SyncWrites = cfg.Storage.SyncWrites
	return c
}

// ToConnectionConfig converts the connection limit.
func ToConnectionConfig(cfg *ServerConfig, log *slog.Logger) connection.Config {
	return connection.Config{
		MaxClients: cfg.Loader.MaxClients,
		Logger:     log,
	}
}

// ToLoaderConfig converts the loader section.
func ToLoaderConfig(cfg *ServerConfig, log *slog.Logger) loader.Config {
	return loader.Config{
		ThresholdFactor: cfg.Loader.ThresholdFactor,
		ToleranceFactor: cfg.Loader.ToleranceFactor,
		Logger:          log,
	}
}

// ToSyncerConfig converts the repair settings.
func ToSyncerConfig(cfg *ServerConfig, log *slog.Logger) naming.SyncerConfig {
	return naming.SyncerConfig{
		Workers:      cfg.Naming.SyncWorkers,
		FetchTimeout: cfg.Naming.FetchTimeout,
		Logger:       log,
	}
}

// ToReporterConfig converts the report settings.
func ToReporterConfig(cfg *ServerConfig, log *slog.Logger) naming.ReporterConfig {
	return naming.ReporterConfig{
		Interval: cfg.Naming.ReportInterval,
		Logger:   log,
	}
}

// ToHTTPServerConfig converts the HTTP server section.
func ToHTTPServerConfig(cfg *ServerConfig, log *slog.Logger) httpserver.Config {
	c := httpserver.DefaultConfig()
	c.Addr = cfg.Server.HTTP.Addr
	if cfg.Server.HTTP.ReadTimeout > 0 {
		c.ReadTimeout = cfg.Server.HTTP.ReadTimeout
	}
	if cfg.Server.HTTP.WriteTimeout > 0 {
		c.WriteTimeout = cfg.Server.HTTP.WriteTimeout
	}
	c.TLSCertFile = cfg.Server.HTTP.TLSCertFile
	c.TLSKeyFile = cfg.Server.HTTP.TLSKeyFile
	c.Logger = log
	return c
}

// ToRouterConfig converts the HTTP middleware settings. The caller sets the
// handler, metrics and observer.
func ToRouterConfig(cfg *ServerConfig, log *slog.Logger) httpserver.RouterConfig {
	return httpserver.RouterConfig{
		Logger:         log,
		AdminAllowList: cfg.Server.HTTP.AdminAllowList,
		RateLimit:      cfg.Server.HTTP.RateLimit,
		Burst:          cfg.Server.HTTP.Burst,
		EnableAudit:    cfg.Server.HTTP.EnableAudit,
	}
}
