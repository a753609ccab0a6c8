package clusterserver

import (
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yndnr/regmesh-go/internal/cluster/membership"
	"github.com/yndnr/regmesh-go/internal/connection"
	"github.com/yndnr/regmesh-go/internal/core/domain"
	"github.com/yndnr/regmesh-go/internal/core/loader"
	"github.com/yndnr/regmesh-go/internal/core/naming"
)

const (
	selfAddr = "10.0.0.1:9848"
	peerAddr = "10.0.0.2:9848"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type testNode struct {
	conns    *connection.Manager
	registry *naming.ServiceRegistry
	queue    *naming.RepairQueue
	member   domain.Member
	client   *Client
}

type nodeOption func(*Config, *loader.LocalNode)

func withAuth(value string) nodeOption {
	return func(cfg *Config, _ *loader.LocalNode) {
		cfg.Auth.IdentityValue = value
	}
}

func withLocal(wrap func(loader.LocalNode) loader.LocalNode) nodeOption {
	return func(_ *Config, local *loader.LocalNode) {
		*local = wrap(*local)
	}
}

// startNode serves one node over httptest and returns a client pointed at it.
func startNode(t *testing.T, opts ...nodeOption) *testNode {
	t.Helper()

	dir := membership.NewStatic(domain.Member{Address: selfAddr, LongConnection: true},
		[]domain.Member{{Address: peerAddr, LongConnection: true}})
	conns := connection.NewManager(connection.Config{MaxClients: connection.Unlimited, Logger: quietLogger()})
	registry := naming.NewServiceRegistry(nil, quietLogger())
	queue := naming.NewRepairQueue(0)
	reconciler := naming.NewReconciler(dir, registry, queue, nil, quietLogger())

	cfg := DefaultConfig()
	cfg.Logger = quietLogger()
	var local loader.LocalNode = conns
	for _, opt := range opts {
		opt(&cfg, &local)
	}

	srv := New(cfg, NewHandler(dir, local, reconciler, registry, quietLogger()))
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	return &testNode{
		conns:    conns,
		registry: registry,
		queue:    queue,
		member:   domain.Member{Address: strings.TrimPrefix(ts.URL, "http://"), LongConnection: true},
		client:   NewClient(ClientConfig{Auth: cfg.Auth, Logger: quietLogger()}),
	}
}

func registerSDK(t *testing.T, m *connection.Manager, n int) {
	t.Helper()
	base := time.Now()
	for i := 0; i < n; i++ {
		_, err := m.Register(domain.Connection{
			ClientIP:    "192.168.1.10",
			SDK:         true,
			ConnectedAt: base.Add(time.Duration(i) * time.Millisecond),
		})
		require.NoError(t, err)
	}
}

func TestClient_LoaderInfo(t *testing.T) {
	node := startNode(t)
	registerSDK(t, node.conns, 3)

	metrics, err := node.client.LoaderInfo(context.Background(), node.member)
	require.NoError(t, err)
	assert.Equal(t, "3", metrics[domain.MetricSDKConCount])
}

func TestClient_ServerReload(t *testing.T) {
	node := startNode(t)
	registerSDK(t, node.conns, 5)

	err := node.client.ServerReload(context.Background(), node.member, 2, "10.0.0.9:8848")
	require.NoError(t, err)
	assert.Equal(t, 2, node.conns.SDKCount())

	err = node.client.ServerReload(context.Background(), node.member, -1, "")
	assert.ErrorIs(t, err, domain.ErrInvalidCount)
}

func TestClient_SetMaxClients(t *testing.T) {
	node := startNode(t)

	require.NoError(t, node.client.SetMaxClients(context.Background(), node.member, 7))
	assert.Equal(t, 7, node.conns.MaxClientCount())

	err := node.client.SetMaxClients(context.Background(), node.member, -3)
	assert.ErrorIs(t, err, domain.ErrInvalidCount)
	assert.Equal(t, 7, node.conns.MaxClientCount())
}

func TestClient_ServiceStatus(t *testing.T) {
	node := startNode(t)
	ctx := context.Background()
	require.NoError(t, node.registry.Put(ctx, &domain.Service{Name: "orders"}))

	vector := domain.ChecksumVector{
		NamespaceID: domain.DefaultNamespace,
		Entries:     map[string]string{"orders": "ffff", "ghost": "0000"},
	}

	err := node.client.ServiceStatus(ctx, node.member, "172.16.0.1:9848", vector)
	assert.ErrorIs(t, err, domain.ErrUnknownMember)
	assert.Zero(t, node.queue.Len())

	require.NoError(t, node.client.ServiceStatus(ctx, node.member, peerAddr, vector))
	assert.Equal(t, 1, node.queue.Len())
	assert.True(t, node.queue.Pending(domain.RepairKey{NamespaceID: domain.DefaultNamespace, ServiceName: "orders", SourceAddress: peerAddr}))
}

func TestClient_GetService(t *testing.T) {
	node := startNode(t)
	ctx := context.Background()
	want := &domain.Service{
		NamespaceID: domain.DefaultNamespace,
		Name:        "orders",
		Instances: []domain.Instance{
			{IP: "192.168.0.10", Port: 8080, Weight: 1, Healthy: true, Enabled: true, ClusterName: "DEFAULT"},
		},
	}
	require.NoError(t, node.registry.Put(ctx, want))

	got, err := node.client.GetService(ctx, node.member, "", "orders")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, want.Checksum(), got.Checksum())

	missing, err := node.client.GetService(ctx, node.member, domain.DefaultNamespace, "ghost")
	require.NoError(t, err)
	assert.Nil(t, missing)

	_, err = node.client.GetService(ctx, node.member, domain.DefaultNamespace, "")
	assert.ErrorIs(t, err, domain.ErrMissingArgument)
}

func TestClient_Ping(t *testing.T) {
	node := startNode(t)

	resp, err := node.client.Ping(context.Background(), node.member, "cli")
	require.NoError(t, err)
	assert.Equal(t, selfAddr, resp.Address)
	assert.Equal(t, 2, resp.Members)
	assert.NotZero(t, resp.Timestamp)
}

func TestClient_Auth(t *testing.T) {
	node := startNode(t, withAuth("s3cret"))

	_, err := node.client.Ping(context.Background(), node.member, "")
	require.NoError(t, err)

	anonymous := NewClient(ClientConfig{Logger: quietLogger()})
	_, err = anonymous.Ping(context.Background(), node.member, "")
	assert.ErrorIs(t, err, domain.ErrPeerUnreachable)

	wrong := NewClient(ClientConfig{Auth: AuthConfig{IdentityValue: "guess"}, Logger: quietLogger()})
	_, err = wrong.Ping(context.Background(), node.member, "")
	assert.ErrorIs(t, err, domain.ErrPeerUnreachable)
}

type slowNode struct {
	loader.LocalNode
	delay time.Duration
}

func (s slowNode) LoaderMetrics() map[string]string {
	time.Sleep(s.delay)
	return s.LocalNode.LoaderMetrics()
}

type panickyNode struct {
	loader.LocalNode
}

func (panickyNode) LoaderMetrics() map[string]string {
	panic("boom")
}

func TestClient_Timeout(t *testing.T) {
	node := startNode(t, withLocal(func(l loader.LocalNode) loader.LocalNode {
		return slowNode{LocalNode: l, delay: 300 * time.Millisecond}
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := node.client.LoaderInfo(ctx, node.member)
	assert.ErrorIs(t, err, domain.ErrPeerTimeout)
}

func TestClient_PanicRecovered(t *testing.T) {
	node := startNode(t, withLocal(func(l loader.LocalNode) loader.LocalNode {
		return panickyNode{LocalNode: l}
	}))

	_, err := node.client.LoaderInfo(context.Background(), node.member)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrPeerUnreachable)

	_, err = node.client.Ping(context.Background(), node.member, "")
	assert.NoError(t, err, "server keeps serving after a panic")
}

func TestClient_Unreachable(t *testing.T) {
	ts := httptest.NewServer(nil)
	addr := strings.TrimPrefix(ts.URL, "http://")
	ts.Close()

	client := NewClient(ClientConfig{Logger: quietLogger()})
	err := client.SetMaxClients(context.Background(), domain.Member{Address: addr}, 1)
	assert.ErrorIs(t, err, domain.ErrPeerUnreachable)
}

func TestServer_StartShutdown(t *testing.T) {
	dir := membership.NewStatic(domain.Member{Address: "127.0.0.1:0"}, nil)
	conns := connection.NewManager(connection.Config{Logger: quietLogger()})
	registry := naming.NewServiceRegistry(nil, quietLogger())
	reconciler := naming.NewReconciler(dir, registry, naming.NewRepairQueue(0), nil, quietLogger())

	cfg := DefaultConfig()
	cfg.Addr = "127.0.0.1:0"
	cfg.Logger = quietLogger()
	srv := New(cfg, NewHandler(dir, conns, reconciler, registry, quietLogger()))

	require.NoError(t, srv.Start())
	assert.Error(t, srv.Start(), "second start fails")

	client := NewClient(ClientConfig{Logger: quietLogger()})
	resp, err := client.Ping(context.Background(), domain.Member{Address: srv.Addr()}, "")
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:0", resp.Address)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, srv.Shutdown(ctx))
	require.NoError(t, srv.Shutdown(ctx))
}

func TestClient_Retain(t *testing.T) {
	node := startNode(t)
	other := startNode(t)
	ctx := context.Background()

	_, err := node.client.LoaderInfo(ctx, node.member)
	require.NoError(t, err)
	_, err = node.client.LoaderInfo(ctx, other.member)
	require.NoError(t, err)

	assert.Equal(t, 1, node.client.Retain([]domain.Member{node.member}))
	assert.Equal(t, 0, node.client.Retain([]domain.Member{node.member}))

	// Dropped peers are rebuilt on demand.
	_, err = node.client.LoaderInfo(ctx, other.member)
	assert.NoError(t, err)
}
