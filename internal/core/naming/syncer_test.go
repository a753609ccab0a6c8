package naming

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yndnr/regmesh-go/internal/cluster/membership"
	"github.com/yndnr/regmesh-go/internal/core/domain"
)

func newTestSyncer(queue *RepairQueue, fetcher Fetcher, registry Registry, obs Observer) *Syncer {
	return NewSyncer(SyncerConfig{
		Workers:      2,
		FetchTimeout: 100 * time.Millisecond,
		Logger:       quietLogger(),
	}, queue, testDirectory(), fetcher, registry, obs)
}

func TestSyncer_RepairsFromSource(t *testing.T) {
	registry := newRegistry(t, orders(true))
	fetcher := &fakeFetcher{services: map[string]*domain.Service{"orders": orders(false)}}
	obs := &recordingObserver{}
	s := newTestSyncer(NewRepairQueue(0), fetcher, registry, obs)

	err := s.Sync(context.Background(), domain.RepairTask{
		NamespaceID:   domain.DefaultNamespace,
		ServiceName:   "orders",
		SourceAddress: "10.0.0.2",
	})
	require.NoError(t, err)

	sum, _ := registry.ComputeChecksum(domain.DefaultNamespace, "orders")
	assert.Equal(t, orders(false).Checksum(), sum)
	assert.Equal(t, []string{peerAddr + "/public/orders"}, fetcher.calls)
	assert.Equal(t, 1, obs.repairs)
}

func TestSyncer_Failures(t *testing.T) {
	registry := newRegistry(t, orders(true))
	obs := &recordingObserver{}

	s := newTestSyncer(NewRepairQueue(0), &fakeFetcher{err: errFetch}, registry, obs)
	err := s.Sync(context.Background(), domain.RepairTask{NamespaceID: "public", ServiceName: "orders", SourceAddress: peerAddr})
	assert.ErrorIs(t, err, errFetch)

	err = s.Sync(context.Background(), domain.RepairTask{NamespaceID: "public", ServiceName: "orders", SourceAddress: "172.16.0.1:1"})
	assert.ErrorIs(t, err, domain.ErrMemberNotFound)

	s = newTestSyncer(NewRepairQueue(0), &fakeFetcher{}, registry, obs)
	err = s.Sync(context.Background(), domain.RepairTask{NamespaceID: "public", ServiceName: "orders", SourceAddress: peerAddr})
	assert.ErrorIs(t, err, domain.ErrServiceNotFound)

	s = newTestSyncer(NewRepairQueue(0), &fakeFetcher{delay: time.Second}, registry, obs)
	err = s.Sync(context.Background(), domain.RepairTask{NamespaceID: "public", ServiceName: "orders", SourceAddress: peerAddr})
	assert.ErrorIs(t, err, domain.ErrPeerTimeout)

	sum, _ := registry.ComputeChecksum(domain.DefaultNamespace, "orders")
	assert.Equal(t, orders(true).Checksum(), sum)
	assert.Equal(t, 4, obs.failures)
}

func TestSyncer_SharedHostNeedsFullAddress(t *testing.T) {
	dir := membership.NewStatic(domain.Member{Address: selfAddr}, []domain.Member{
		{Address: "10.0.0.2:8848"},
		{Address: "10.0.0.2:9848"},
	})
	registry := newRegistry(t, orders(true))
	fetcher := &fakeFetcher{services: map[string]*domain.Service{"orders": orders(false)}}
	s := NewSyncer(SyncerConfig{Workers: 1, FetchTimeout: 100 * time.Millisecond, Logger: quietLogger()},
		NewRepairQueue(0), dir, fetcher, registry, nil)

	err := s.Sync(context.Background(), domain.RepairTask{NamespaceID: "public", ServiceName: "orders", SourceAddress: "10.0.0.2"})
	assert.ErrorIs(t, err, domain.ErrMemberNotFound)
	assert.Empty(t, fetcher.calls)

	err = s.Sync(context.Background(), domain.RepairTask{NamespaceID: "public", ServiceName: "orders", SourceAddress: "10.0.0.2:9848"})
	require.NoError(t, err)
	assert.Equal(t, []string{"10.0.0.2:9848/public/orders"}, fetcher.calls)
}

func TestSyncer_RunDrainsQueue(t *testing.T) {
	registry := newRegistry(t, orders(true))
	fetcher := &fakeFetcher{services: map[string]*domain.Service{"orders": orders(false)}}
	queue := NewRepairQueue(0)
	s := newTestSyncer(queue, fetcher, registry, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	_, err := queue.Offer(domain.RepairTask{NamespaceID: "public", ServiceName: "orders", SourceAddress: peerAddr})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		sum, _ := registry.ComputeChecksum("public", "orders")
		return sum == orders(false).Checksum()
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop")
	}
}

func TestAntiEntropy_EndToEnd(t *testing.T) {
	local := newRegistry(t, orders(true))
	remote := newRegistry(t, orders(false))
	queue := NewRepairQueue(0)
	r := NewReconciler(testDirectory(), local, queue, nil, quietLogger())

	res, err := r.Report(context.Background(), peerAddr, Vector(remote, domain.DefaultNamespace))
	require.NoError(t, err)
	require.Equal(t, 1, res.Enqueued)

	svc, _ := remote.Lookup(domain.DefaultNamespace, "orders")
	s := newTestSyncer(queue, &fakeFetcher{services: map[string]*domain.Service{"orders": svc}}, local, nil)
	task, err := queue.Take(context.Background())
	require.NoError(t, err)
	require.NoError(t, s.Sync(context.Background(), task))

	res, err = r.Report(context.Background(), peerAddr, Vector(remote, domain.DefaultNamespace))
	require.NoError(t, err)
	assert.Zero(t, res.Mismatched)
}
