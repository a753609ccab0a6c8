// Package main provides the entry point for regmesh-server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/regmesh-go/internal/cluster/membership"
	"github.com/yndnr/regmesh-go/internal/connection"
	"github.com/yndnr/regmesh-go/internal/core/fanout"
	"github.com/yndnr/regmesh-go/internal/core/loader"
	"github.com/yndnr/regmesh-go/internal/core/naming"
	"github.com/yndnr/regmesh-go/internal/infra/buildinfo"
	"github.com/yndnr/regmesh-go/internal/infra/confloader"
	"github.com/yndnr/regmesh-go/internal/infra/shutdown"
	"github.com/yndnr/regmesh-go/internal/server/clusterserver"
	"github.com/yndnr/regmesh-go/internal/server/config"
	"github.com/yndnr/regmesh-go/internal/server/httpserver"
	"github.com/yndnr/regmesh-go/internal/server/httpserver/handler"
	"github.com/yndnr/regmesh-go/internal/storage"
	"github.com/yndnr/regmesh-go/internal/telemetry/logger"
	"github.com/yndnr/regmesh-go/internal/telemetry/metric"
)

const shutdownTimeout = 30 * time.Second

// listKeys are config keys whose environment values are comma separated.
var listKeys = []string{
	"cluster.members",
	"cluster.gossip.seeds",
	"server.http.admin_allow_list",
}

func main() {
	app := &cli.App{
		Name:    "regmesh-server",
		Usage:   "RegMesh cluster node",
		Version: buildinfo.String(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				EnvVars: []string{"REGMESH_CONFIG"},
			},
			&cli.BoolFlag{
				Name:  "watch",
				Usage: "Reload log level and loader settings when the config file changes",
				Value: true,
			},
		},
		Action: func(c *cli.Context) error {
			return run(c.Context, c.String("config"), c.Bool("watch"))
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configFile string, watch bool) error {
	cfg, err := loadConfig(configFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New(config.ToLoggerConfig(cfg))
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	slog.SetDefault(log)

	info := buildinfo.Get()
	log.Info("starting regmesh-server",
		"version", info.Version,
		"commit", info.Commit,
		"config", configFile)
	log.Debug("effective configuration", "config", config.Sanitize(cfg))

	shutdownHandler := shutdown.NewHandler(shutdownTimeout, log)

	// Storage
	kv, err := storage.NewBadgerEngine(config.ToKVConfig(cfg), log.With("component", "storage"))
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}
	shutdownHandler.OnShutdown("storage", func(context.Context) error {
		return kv.Close()
	})

	registry := naming.NewServiceRegistry(kv, log.With("component", "registry"))
	loaded, err := registry.Load(ctx)
	if err != nil {
		_ = shutdownHandler.Shutdown()
		return fmt.Errorf("load registry: %w", err)
	}
	log.Info("registry loaded", "services", loaded)

	// Cluster
	dir, err := newDirectory(cfg, log, shutdownHandler)
	if err != nil {
		_ = shutdownHandler.Shutdown()
		return err
	}

	metrics := metric.NewRegistry()
	if err := kv.RegisterMetrics(metrics.Registerer()); err != nil {
		_ = shutdownHandler.Shutdown()
		return err
	}

	conns := connection.NewManager(config.ToConnectionConfig(cfg, log.With("component", "connection")))
	client := clusterserver.NewClient(config.ToClientConfig(cfg, log.With("component", "cluster-client")))
	if g, ok := dir.(*membership.Gossip); ok {
		g.OnChange(func() {
			if n := client.Retain(g.Members()); n > 0 {
				log.Info("dropped stubs for departed members", "count", n)
			}
		})
	}

	agg := fanout.New(config.ToFanoutConfig(cfg, metrics, log.With("component", "fanout")),
		fanout.NewPool(cfg.Cluster.Workers))

	loaderSvc, err := loader.NewService(config.ToLoaderConfig(cfg, log.With("component", "loader")),
		dir, conns, client, agg, metrics)
	if err != nil {
		_ = shutdownHandler.Shutdown()
		return fmt.Errorf("init loader: %w", err)
	}

	queue := naming.NewRepairQueue(cfg.Naming.RepairQueueSize)
	reconciler := naming.NewReconciler(dir, registry, queue, metrics, log.With("component", "reconciler"))
	syncer := naming.NewSyncer(config.ToSyncerConfig(cfg, log.With("component", "syncer")),
		queue, dir, client, registry, metrics)
	reporter := naming.NewReporter(config.ToReporterConfig(cfg, log.With("component", "reporter")),
		registry, dir, client, agg)

	if err := metrics.RegisterSources(metric.Sources{
		Connections:      conns.Count,
		SDKConnections:   conns.SDKCount,
		MaxClients:       conns.MaxClientCount,
		RepairQueueDepth: queue.Len,
		Members:          func() int { return len(dir.Members()) },
		Services:         registry.Count,
	}); err != nil {
		_ = shutdownHandler.Shutdown()
		return err
	}

	workCtx, stopWork := context.WithCancel(context.Background())
	workDone := make(chan struct{}, 2)
	go func() { syncer.Run(workCtx); workDone <- struct{}{} }()
	go func() { reporter.Run(workCtx); workDone <- struct{}{} }()
	shutdownHandler.OnShutdown("anti-entropy", func(ctx context.Context) error {
		stopWork()
		for i := 0; i < 2; i++ {
			select {
			case <-workDone:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})

	// Cluster RPC
	clusterSrv := clusterserver.New(
		config.ToClusterServerConfig(cfg, log.With("component", "cluster-server")),
		clusterserver.NewHandler(dir, conns, reconciler, registry, log.With("component", "cluster-rpc")),
	)
	if err := clusterSrv.Start(); err != nil {
		_ = shutdownHandler.Shutdown()
		return fmt.Errorf("start cluster server: %w", err)
	}
	shutdownHandler.OnShutdown("cluster-server", clusterSrv.Shutdown)

	// Admin HTTP
	routerCfg := config.ToRouterConfig(cfg, log.With("component", "http"))
	routerCfg.Handler = handler.New(handler.Config{
		Loader:     loaderSvc,
		Reconciler: reconciler,
		Registry:   registry,
		Backup:     kv,
		Peers:      clusterserver.NewPeerChecker(dir, client, cfg.Cluster.RoundTimeout),
		Version:    info.Version,
		Logger:     log.With("component", "handler"),
	})
	routerCfg.Metrics = metrics.Handler()
	routerCfg.Observer = metrics

	httpSrv := httpserver.New(config.ToHTTPServerConfig(cfg, log.With("component", "http")),
		httpserver.NewRouter(routerCfg))
	if err := httpSrv.Start(); err != nil {
		_ = shutdownHandler.Shutdown()
		return fmt.Errorf("start http server: %w", err)
	}
	shutdownHandler.OnShutdown("http-server", httpSrv.Shutdown)

	if watch && configFile != "" {
		if err := watchConfig(configFile, log, conns, loaderSvc, shutdownHandler); err != nil {
			log.Warn("config watch disabled", "error", err)
		}
	}

	log.Info("server started",
		"http", httpSrv.Addr(),
		"cluster", clusterSrv.Addr(),
		"self", dir.Self().Address,
		"members", len(dir.Members()))

	if err := shutdownHandler.Wait(ctx); err != nil {
		log.Error("shutdown error", "error", err)
		return err
	}

	log.Info("server stopped gracefully")
	return nil
}

// loadConfig loads configuration from defaults, file and environment.
func loadConfig(configFile string) (*config.ServerConfig, error) {
	cfg := config.Default()

	opts := []confloader.Option{confloader.WithListKeys(listKeys...)}
	if configFile != "" {
		opts = append(opts, confloader.WithConfigFile(configFile))
	}
	if err := confloader.NewLoader(opts...).Load(cfg); err != nil {
		return nil, err
	}

	if err := config.Verify(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// newDirectory builds the member directory selected by cluster.membership.
func newDirectory(cfg *config.ServerConfig, log *slog.Logger, h *shutdown.Handler) (membership.Directory, error) {
	switch cfg.Cluster.Membership {
	case config.MembershipGossip:
		gossipCfg, err := config.ToGossipConfig(cfg, log.With("component", "gossip"))
		if err != nil {
			return nil, fmt.Errorf("gossip config: %w", err)
		}
		g, err := membership.NewGossip(gossipCfg)
		if err != nil {
			return nil, fmt.Errorf("start gossip: %w", err)
		}
		h.OnShutdown("gossip", func(context.Context) error {
			return errors.Join(g.Leave(), g.Shutdown())
		})
		return g, nil
	default:
		dir, err := config.ToStaticDirectory(cfg)
		if err != nil {
			return nil, fmt.Errorf("static members: %w", err)
		}
		return dir, nil
	}
}

// watchConfig re-reads the config file on change and applies the settings
// that can change at runtime: log level, max clients and tolerance factor.
func watchConfig(path string, log *slog.Logger, conns *connection.Manager, svc *loader.Service, h *shutdown.Handler) error {
	w, err := confloader.NewWatcher(confloader.WithWatcherLogger(log.With("component", "watcher")))
	if err != nil {
		return err
	}
	if err := w.Watch(path); err != nil {
		_ = w.Stop()
		return err
	}

	w.OnChange(func(string) {
		next, err := loadConfig(path)
		if err != nil {
			log.Warn("config reload rejected", "error", err)
			return
		}
		logger.SetLevel(next.Log.Level)
		if next.Loader.MaxClients >= 0 && next.Loader.MaxClients != conns.MaxClientCount() {
			if err := conns.SetMaxClientCount(next.Loader.MaxClients); err != nil {
				log.Warn("max clients not applied", "error", err)
			}
		}
		if f := next.Loader.ToleranceFactor; f != 0 && f != svc.ToleranceFactor() {
			if err := svc.SetToleranceFactor(f); err != nil {
				log.Warn("tolerance factor not applied", "error", err)
			}
		}
		log.Info("config reloaded", "path", path)
	})
	w.StartAsync()

	h.OnShutdown("config-watcher", func(context.Context) error {
		return w.Stop()
	})
	return nil
}
