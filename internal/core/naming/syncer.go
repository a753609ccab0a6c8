package naming

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/yndnr/regmesh-go/internal/core/domain"
)

// Fetcher reads a service from a peer.
type Fetcher interface {
	GetService(ctx context.Context, member domain.Member, namespaceID, name string) (*domain.Service, error)
}

// SyncerConfig configures a Syncer.
type SyncerConfig struct {
	// Workers is the number of goroutines draining the repair queue.
	Workers int

	// FetchTimeout bounds one GetService call.
	FetchTimeout time.Duration

	Logger *slog.Logger
}

// DefaultSyncerConfig returns sensible defaults.
func DefaultSyncerConfig() SyncerConfig {
	return SyncerConfig{
		Workers:      2,
		FetchTimeout: 3 * time.Second,
		Logger:       slog.Default(),
	}
}

// Syncer repairs divergent services by copying them from the reporting peer.
type Syncer struct {
	cfg      SyncerConfig
	queue    *RepairQueue
	dir      Directory
	fetcher  Fetcher
	registry Registry
	observer Observer
	logger   *slog.Logger
}

// NewSyncer creates a syncer. observer may be nil.
func NewSyncer(cfg SyncerConfig, queue *RepairQueue, dir Directory, fetcher Fetcher, registry Registry, observer Observer) *Syncer {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = DefaultSyncerConfig().FetchTimeout
	}
	return &Syncer{
		cfg:      cfg,
		queue:    queue,
		dir:      dir,
		fetcher:  fetcher,
		registry: registry,
		observer: observer,
		logger:   cfg.Logger,
	}
}

// Run drains the queue until ctx is done.
func (s *Syncer) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for i := 0; i < s.cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				task, err := s.queue.Take(ctx)
				if err != nil {
					return
				}
				if err := s.Sync(ctx, task); err != nil {
					s.logger.Warn("service repair failed",
						"namespace_id", task.NamespaceID,
						"service", task.ServiceName,
						"source", task.SourceAddress,
						"error", err)
				}
			}
		}()
	}
	wg.Wait()
}

// Sync repairs one service. It does not retry; the next checksum report
// re-enqueues a service that is still divergent.
func (s *Syncer) Sync(ctx context.Context, task domain.RepairTask) (err error) {
	defer func() {
		if s.observer != nil {
			s.observer.ObserveRepair(err == nil)
		}
	}()

	member, ok := s.resolve(task.SourceAddress)
	if !ok {
		return domain.ErrMemberNotFound.WithDetails(task.SourceAddress)
	}

	fetchCtx, cancel := context.WithTimeout(ctx, s.cfg.FetchTimeout)
	defer cancel()

	remote, err := s.fetcher.GetService(fetchCtx, member, task.NamespaceID, task.ServiceName)
	if err != nil {
		if errors.Is(fetchCtx.Err(), context.DeadlineExceeded) {
			return domain.ErrPeerTimeout.WithCause(err)
		}
		return err
	}
	if remote == nil {
		return domain.ErrServiceNotFound.WithDetails(task.ServiceName)
	}
	remote.NamespaceID = task.NamespaceID
	remote.Name = task.ServiceName

	if local, ok := s.registry.ComputeChecksum(task.NamespaceID, task.ServiceName); ok && local == remote.Checksum() {
		s.logger.Debug("service already consistent",
			"namespace_id", task.NamespaceID,
			"service", task.ServiceName)
		return nil
	}

	if err := s.registry.Put(ctx, remote); err != nil {
		return err
	}
	s.logger.Info("service repaired",
		"namespace_id", task.NamespaceID,
		"service", task.ServiceName,
		"source", member.Address,
		"instances", len(remote.Instances))
	return nil
}

// resolve finds the peer behind addr. A bare host must match a single peer.
func (s *Syncer) resolve(addr string) (domain.Member, bool) {
	var found []domain.Member
	for _, m := range s.dir.Members() {
		if m.Self {
			continue
		}
		if m.Address == addr {
			return m, true
		}
		if m.Matches(addr) {
			found = append(found, m)
		}
	}
	if len(found) != 1 {
		return domain.Member{}, false
	}
	return found[0], true
}
