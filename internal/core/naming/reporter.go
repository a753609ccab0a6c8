package naming

import (
	"context"
	"log/slog"
	"time"

	"github.com/yndnr/regmesh-go/internal/core/domain"
	"github.com/yndnr/regmesh-go/internal/core/fanout"
)

// OpServiceStatus names checksum push rounds in logs and metrics.
const OpServiceStatus = "service_status"

// Pusher delivers a checksum vector to a peer on behalf of source.
type Pusher interface {
	ServiceStatus(ctx context.Context, member domain.Member, source string, vector domain.ChecksumVector) error
}

// ReporterConfig configures a Reporter.
type ReporterConfig struct {
	// Interval between two pushes.
	Interval time.Duration

	Logger *slog.Logger
}

// DefaultReporterConfig returns sensible defaults.
func DefaultReporterConfig() ReporterConfig {
	return ReporterConfig{
		Interval: 5 * time.Second,
		Logger:   slog.Default(),
	}
}

// Reporter periodically pushes the local checksum vectors to every peer.
type Reporter struct {
	cfg      ReporterConfig
	registry Registry
	dir      Directory
	pusher   Pusher
	agg      *fanout.Aggregator
	logger   *slog.Logger
}

// NewReporter creates a reporter.
func NewReporter(cfg ReporterConfig, registry Registry, dir Directory, pusher Pusher, agg *fanout.Aggregator) *Reporter {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultReporterConfig().Interval
	}
	return &Reporter{
		cfg:      cfg,
		registry: registry,
		dir:      dir,
		pusher:   pusher,
		agg:      agg,
		logger:   cfg.Logger,
	}
}

// Run pushes every Interval until ctx is done.
func (r *Reporter) Run(ctx context.Context) {
	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			r.ReportOnce(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// ReportOnce pushes one vector per local namespace to every peer and
// returns the number of successful deliveries.
func (r *Reporter) ReportOnce(ctx context.Context) int {
	peers := r.dir.Peers()
	if len(peers) == 0 {
		return 0
	}
	source := r.dir.Self().Address

	delivered := 0
	for _, ns := range r.registry.Namespaces() {
		vector := Vector(r.registry, ns)
		if len(vector.Entries) == 0 {
			continue
		}

		targets := make([]fanout.Target[struct{}], 0, len(peers))
		for _, p := range peers {
			p := p
			targets = append(targets, fanout.Target[struct{}]{
				Member: p,
				Call: func(ctx context.Context) (struct{}, error) {
					return struct{}{}, r.pusher.ServiceStatus(ctx, p, source, vector)
				},
			})
		}

		round := fanout.Gather(ctx, r.agg, OpServiceStatus, targets)
		delivered += len(round.Results)
		r.logger.Debug("checksum vector pushed",
			"namespace_id", ns,
			"services", len(vector.Entries),
			"delivered", len(round.Results),
			"peers", len(peers))
	}
	return delivered
}
