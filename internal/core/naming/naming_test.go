package naming

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yndnr/regmesh-go/internal/cluster/membership"
	"github.com/yndnr/regmesh-go/internal/core/domain"
	"github.com/yndnr/regmesh-go/internal/core/fanout"
)

const (
	selfAddr = "10.0.0.1:8848"
	peerAddr = "10.0.0.2:8848"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testDirectory() *membership.Static {
	return membership.NewStatic(domain.Member{Address: selfAddr}, []domain.Member{{Address: peerAddr}})
}

func orders(healthy bool) *domain.Service {
	return &domain.Service{
		NamespaceID: domain.DefaultNamespace,
		Name:        "orders",
		Instances: []domain.Instance{
			{IP: "192.168.0.10", Port: 8080, Weight: 1, Healthy: healthy, Enabled: true, ClusterName: "DEFAULT"},
		},
	}
}

func newRegistry(t *testing.T, services ...*domain.Service) *ServiceRegistry {
	t.Helper()
	r := NewServiceRegistry(nil, quietLogger())
	for _, s := range services {
		require.NoError(t, r.Put(context.Background(), s))
	}
	return r
}

type recordingObserver struct {
	mu       sync.Mutex
	results  []*ReconcileResult
	repairs  int
	failures int
}

func (o *recordingObserver) ObserveReconcile(r *ReconcileResult) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.results = append(o.results, r)
}

func (o *recordingObserver) ObserveRepair(ok bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if ok {
		o.repairs++
	} else {
		o.failures++
	}
}

type fakeFetcher struct {
	mu       sync.Mutex
	services map[string]*domain.Service
	calls    []string
	err      error
	delay    time.Duration
}

func (f *fakeFetcher) GetService(ctx context.Context, m domain.Member, ns, name string) (*domain.Service, error) {
	f.mu.Lock()
	f.calls = append(f.calls, m.Address+"/"+ns+"/"+name)
	f.mu.Unlock()
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	svc, ok := f.services[name]
	if !ok {
		return nil, nil
	}
	return svc.Clone(), nil
}

type fakePusher struct {
	mu      sync.Mutex
	vectors map[string][]domain.ChecksumVector
	sources []string
	fail    map[string]error
}

func (p *fakePusher) ServiceStatus(_ context.Context, m domain.Member, source string, v domain.ChecksumVector) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.fail[m.Address]; err != nil {
		return err
	}
	if p.vectors == nil {
		p.vectors = map[string][]domain.ChecksumVector{}
	}
	p.vectors[m.Address] = append(p.vectors[m.Address], v)
	p.sources = append(p.sources, source)
	return nil
}

var errFetch = errors.New("fetch failed")

func testAggregator() *fanout.Aggregator {
	return fanout.New(fanout.Config{
		Budget: fanout.Budget{Round: 200 * time.Millisecond, Result: 50 * time.Millisecond},
		Logger: quietLogger(),
	}, fanout.NewPool(4))
}
