package loader

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync/atomic"

	"github.com/yndnr/regmesh-go/internal/core/domain"
	"github.com/yndnr/regmesh-go/internal/core/fanout"
)

// Config configures a Service.
type Config struct {
	// ThresholdFactor is the headroom marker reported with statistics.
	ThresholdFactor float64

	// ToleranceFactor is the planner default and the cluster reload guard.
	ToleranceFactor float64

	Logger *slog.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		ThresholdFactor: DefaultThresholdFactor,
		ToleranceFactor: DefaultToleranceFactor,
		Logger:          slog.Default(),
	}
}

// SmartReloadResult is returned by SmartReload.
type SmartReloadResult struct {
	Statistics *domain.LoadStatistics `json:"statistics"`
	Plan       *Plan                  `json:"plan"`
	Report     *Report                `json:"report"`
}

// Service exposes the loader operations to the admin surfaces.
type Service struct {
	dir       Directory
	local     LocalNode
	collector *Collector
	executor  *Executor
	tolerance atomic.Uint64
	logger    *slog.Logger
}

// NewService wires a collector and an executor over the same directory,
// local node, remote and aggregator.
func NewService(cfg Config, dir Directory, local LocalNode, remote Remote, agg *fanout.Aggregator, observer InstructionObserver) (*Service, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.ToleranceFactor == 0 {
		cfg.ToleranceFactor = DefaultToleranceFactor
	}
	if err := ValidateFactor(cfg.ToleranceFactor); err != nil {
		return nil, err
	}

	s := &Service{
		dir:   dir,
		local: local,
		collector: NewCollector(CollectorConfig{
			ThresholdFactor: cfg.ThresholdFactor,
			Logger:          cfg.Logger,
		}, dir, local, remote, agg),
		executor: NewExecutor(dir, local, remote, agg, observer, cfg.Logger),
		logger:   cfg.Logger,
	}
	s.tolerance.Store(math.Float64bits(cfg.ToleranceFactor))
	return s, nil
}

// ToleranceFactor returns the current default tolerance factor.
func (s *Service) ToleranceFactor() float64 {
	return math.Float64frombits(s.tolerance.Load())
}

// SetToleranceFactor replaces the default tolerance factor.
func (s *Service) SetToleranceFactor(f float64) error {
	if err := ValidateFactor(f); err != nil {
		return err
	}
	prev := math.Float64frombits(s.tolerance.Swap(math.Float64bits(f)))
	if prev != f {
		s.logger.Info("tolerance factor updated", "previous", prev, "current", f)
	}
	return nil
}

// Collector returns the underlying collector.
func (s *Service) Collector() *Collector {
	return s.collector
}

// Executor returns the underlying executor.
func (s *Service) Executor() *Executor {
	return s.executor
}

// SetMaxClients caps client connections on the local node.
func (s *Service) SetMaxClients(ctx context.Context, count int) error {
	return s.executor.SetMaxConnections(ctx, s.dir.Self(), count)
}

// ReloadLocal sheds local connections above count.
func (s *Service) ReloadLocal(ctx context.Context, count int, redirectAddress string) error {
	return s.executor.Reload(ctx, s.dir.Self(), count, redirectAddress)
}

// ReloadSingle redirects one local connection.
func (s *Service) ReloadSingle(ctx context.Context, connectionID, redirectAddress string) error {
	return s.executor.RedirectSingleConnection(ctx, connectionID, redirectAddress)
}

// CurrentConnections returns the local connection snapshot.
func (s *Service) CurrentConnections() map[string]domain.Connection {
	return s.local.CurrentClients()
}

// ClusterMetrics runs one collection round.
func (s *Service) ClusterMetrics(ctx context.Context) (*domain.LoadStatistics, error) {
	return s.collector.Collect(ctx)
}

// ReloadCluster reloads every long-connection member to count. The count
// must be at least avg*tolerance+1 of a fresh collection round.
func (s *Service) ReloadCluster(ctx context.Context, count int, redirectAddress string) (*Report, error) {
	if err := validCount(count); err != nil {
		return nil, err
	}
	stats, err := s.collector.Collect(ctx)
	if err != nil {
		return nil, err
	}
	if floor := float64(stats.Avg)*s.ToleranceFactor() + 1; float64(count) < floor {
		return nil, domain.ErrReloadCountTooLow.WithDetails(
			fmt.Sprintf("count %d, current avg %d", count, stats.Avg))
	}
	return s.executor.ReloadCluster(ctx, count, redirectAddress)
}

// SmartReload collects, plans and applies one rebalancing pass. A nil
// factor uses the configured tolerance factor.
func (s *Service) SmartReload(ctx context.Context, factor *float64) (*SmartReloadResult, error) {
	f := s.ToleranceFactor()
	if factor != nil {
		f = *factor
	}
	if err := ValidateFactor(f); err != nil {
		return nil, err
	}

	stats, err := s.collector.Collect(ctx)
	if err != nil {
		return nil, err
	}
	plan, err := NewPlan(stats, f)
	if err != nil {
		return nil, err
	}

	for _, in := range plan.Instructions {
		s.logger.Info("reload task submit",
			"from_server", in.Target.Address,
			"to_server", in.RedirectAddress,
			"reload_count", in.ReloadCount,
		)
	}

	report, err := s.executor.Apply(ctx, plan.Instructions)
	if err != nil {
		return nil, err
	}
	return &SmartReloadResult{Statistics: stats, Plan: plan, Report: report}, nil
}
