package loader

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/yndnr/regmesh-go/internal/cluster/membership"
	"github.com/yndnr/regmesh-go/internal/core/domain"
	"github.com/yndnr/regmesh-go/internal/core/fanout"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testAggregator() *fanout.Aggregator {
	return fanout.New(fanout.Config{
		Budget: fanout.Budget{Round: 150 * time.Millisecond, Result: 50 * time.Millisecond},
		Logger: quietLogger(),
	}, fanout.NewPool(8))
}

const selfAddr = "10.0.0.1:9848"

func directory(peers ...domain.Member) *membership.Static {
	return membership.NewStatic(domain.Member{Address: selfAddr, LongConnection: true}, peers)
}

func peer(addr string) domain.Member {
	return domain.Member{Address: addr, LongConnection: true}
}

type reloadCall struct {
	count    int
	redirect string
}

type fakeLocal struct {
	mu      sync.Mutex
	metrics map[string]string
	max     int
	reloads []reloadCall
	singles []string
	clients map[string]domain.Connection
	loadErr error
}

func newFakeLocal(sdk int) *fakeLocal {
	return &fakeLocal{
		metrics: map[string]string{domain.MetricSDKConCount: strconv.Itoa(sdk)},
		max:     -1,
		clients: map[string]domain.Connection{},
	}
}

func (f *fakeLocal) SetMaxClientCount(count int) error {
	if count < 0 {
		return domain.ErrInvalidCount
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.max = count
	return nil
}

func (f *fakeLocal) CurrentClients() map[string]domain.Connection {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]domain.Connection, len(f.clients))
	for k, v := range f.clients {
		out[k] = v
	}
	return out
}

func (f *fakeLocal) LoadCount(_ context.Context, count int, redirect string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loadErr != nil {
		return 0, f.loadErr
	}
	f.reloads = append(f.reloads, reloadCall{count: count, redirect: redirect})
	return 0, nil
}

func (f *fakeLocal) LoadSingle(_ context.Context, id, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.clients[id]; !ok {
		return domain.ErrConnectionNotFound
	}
	f.singles = append(f.singles, id)
	return nil
}

func (f *fakeLocal) LoaderMetrics() map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]string, len(f.metrics))
	for k, v := range f.metrics {
		out[k] = v
	}
	return out
}

type peerBehavior struct {
	metrics map[string]string
	delay   time.Duration
	err     error
}

type fakeRemote struct {
	mu        sync.Mutex
	peers     map[string]peerBehavior
	infoCalls []string
	reloads   map[string]reloadCall
	maxCalls  map[string]int
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		peers:    map[string]peerBehavior{},
		reloads:  map[string]reloadCall{},
		maxCalls: map[string]int{},
	}
}

func (f *fakeRemote) withSDK(addr string, sdk int) *fakeRemote {
	f.peers[addr] = peerBehavior{metrics: map[string]string{domain.MetricSDKConCount: strconv.Itoa(sdk)}}
	return f
}

func (f *fakeRemote) behavior(ctx context.Context, addr string) (peerBehavior, error) {
	f.mu.Lock()
	b, ok := f.peers[addr]
	f.mu.Unlock()
	if !ok {
		return b, domain.ErrPeerUnreachable
	}
	if b.delay > 0 {
		select {
		case <-time.After(b.delay):
		case <-ctx.Done():
			return b, ctx.Err()
		}
	}
	return b, b.err
}

func (f *fakeRemote) LoaderInfo(ctx context.Context, m domain.Member) (map[string]string, error) {
	f.mu.Lock()
	f.infoCalls = append(f.infoCalls, m.Address)
	f.mu.Unlock()
	b, err := f.behavior(ctx, m.Address)
	if err != nil {
		return nil, err
	}
	return b.metrics, nil
}

func (f *fakeRemote) ServerReload(ctx context.Context, m domain.Member, count int, redirect string) error {
	if _, err := f.behavior(ctx, m.Address); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reloads[m.Address] = reloadCall{count: count, redirect: redirect}
	return nil
}

func (f *fakeRemote) SetMaxClients(ctx context.Context, m domain.Member, count int) error {
	if _, err := f.behavior(ctx, m.Address); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.maxCalls[m.Address] = count
	return nil
}

func (f *fakeRemote) reloadCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.reloads)
}

var errRefused = errors.New("connection refused")

type instructionCounter struct {
	mu    sync.Mutex
	local int
	peer  int
	fail  int
}

func (c *instructionCounter) ObserveInstruction(_ string, self, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !ok {
		c.fail++
	}
	if self {
		c.local++
	} else {
		c.peer++
	}
}
