package loader

import (
	"context"
	"log/slog"

	"github.com/yndnr/regmesh-go/internal/core/domain"
	"github.com/yndnr/regmesh-go/internal/core/fanout"
)

// DefaultThresholdFactor is the headroom marker applied to avg.
const DefaultThresholdFactor = 1.1

// OpLoaderInfo names loader metric rounds in logs and metrics.
const OpLoaderInfo = "loader_info"

// CollectorConfig configures a Collector.
type CollectorConfig struct {
	// ThresholdFactor sets LoadStatistics.Threshold = avg * ThresholdFactor.
	ThresholdFactor float64

	Logger *slog.Logger
}

// DefaultCollectorConfig returns sensible defaults.
func DefaultCollectorConfig() CollectorConfig {
	return CollectorConfig{
		ThresholdFactor: DefaultThresholdFactor,
		Logger:          slog.Default(),
	}
}

// Collector gathers load metrics from self and long-connection peers.
type Collector struct {
	cfg      CollectorConfig
	resolver resolver
	agg      *fanout.Aggregator
	logger   *slog.Logger
}

// NewCollector creates a collector.
func NewCollector(cfg CollectorConfig, dir Directory, local LocalNode, remote Remote, agg *fanout.Aggregator) *Collector {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.ThresholdFactor <= 0 {
		cfg.ThresholdFactor = DefaultThresholdFactor
	}
	return &Collector{
		cfg:      cfg,
		resolver: resolver{dir: dir, local: local, remote: remote},
		agg:      agg,
		logger:   cfg.Logger,
	}
}

// Collect runs one collection round.
//
// Self is measured first and always included. Unreachable peers only shrink
// MetricsCount. The round fails only when self cannot report a usable count.
func (c *Collector) Collect(ctx context.Context) (*domain.LoadStatistics, error) {
	self := c.resolver.dir.Self()

	selfMetric, err := localInvoker{node: c.resolver.local}.loaderInfo(ctx)
	if err != nil {
		return nil, domain.ErrSelfMeasurement.WithCause(err)
	}
	local := domain.LoadMetric{Address: self.Address, Metric: selfMetric}
	if _, ok := local.SDKConCount(); !ok {
		return nil, domain.ErrSelfMeasurement.WithDetails("local node reported no sdkConCount")
	}

	peers := longConnectionPeers(c.resolver.dir)
	targets := make([]fanout.Target[map[string]string], 0, len(peers))
	for _, p := range peers {
		inv := c.resolver.invokerFor(p)
		targets = append(targets, fanout.Target[map[string]string]{
			Member: p,
			Call:   inv.loaderInfo,
		})
	}

	round := fanout.Gather(ctx, c.agg, OpLoaderInfo, targets)

	detail := make([]domain.LoadMetric, 0, 1+len(round.Results))
	detail = append(detail, local)
	for _, r := range round.Results {
		detail = append(detail, domain.LoadMetric{Address: r.Member.Address, Metric: r.Value})
	}

	stats, err := Summarize(detail, len(c.resolver.dir.Members()), c.cfg.ThresholdFactor)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("load metrics collected",
		"member_count", stats.MemberCount,
		"metrics_count", stats.MetricsCount,
		"avg", stats.Avg,
		"max", stats.Max,
		"min", stats.Min,
	)
	return stats, nil
}

// Summarize reduces per-member metrics into LoadStatistics.
//
// Every entry counts toward MetricsCount; only entries with a usable
// sdkConCount contribute to Total, Max and Min. Avg uses integer division.
func Summarize(detail []domain.LoadMetric, memberCount int, thresholdFactor float64) (*domain.LoadStatistics, error) {
	if len(detail) == 0 {
		return nil, domain.ErrInsufficientData
	}

	stats := &domain.LoadStatistics{
		Min:          -1,
		MemberCount:  memberCount,
		MetricsCount: len(detail),
		Detail:       detail,
	}
	for _, m := range detail {
		n, ok := m.SDKConCount()
		if !ok {
			continue
		}
		if n > stats.Max {
			stats.Max = n
		}
		if stats.Min == -1 || n < stats.Min {
			stats.Min = n
		}
		stats.Total += n
	}
	stats.Avg = stats.Total / stats.MetricsCount
	stats.Threshold = float64(stats.Avg) * thresholdFactor
	return stats, nil
}
