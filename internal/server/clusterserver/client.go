package clusterserver

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"connectrpc.com/connect"

	"github.com/yndnr/regmesh-go/internal/core/domain"
)

// ClientConfig configures the outbound RPC client.
type ClientConfig struct {
	// Scheme is prepended to member addresses. Defaults to "http".
	Scheme string

	// DialTimeout bounds connection setup. Call deadlines come from ctx.
	DialTimeout time.Duration

	// Auth sets the identity header on every call.
	Auth AuthConfig

	// HTTPClient overrides the transport, mainly for tests.
	HTTPClient connect.HTTPClient

	Logger *slog.Logger
}

// DefaultClientConfig returns the default client configuration.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Scheme:      "http",
		DialTimeout: 2 * time.Second,
	}
}

// Client calls the cluster service on peers.
type Client struct {
	httpClient connect.HTTPClient
	scheme     string
	opts       []connect.ClientOption
	logger     *slog.Logger

	mu    sync.Mutex
	peers map[string]*peerClient
}

type peerClient struct {
	loaderInfo    *connect.Client[LoaderInfoRequest, LoaderInfoResponse]
	serverReload  *connect.Client[ServerReloadRequest, ServerReloadResponse]
	setMaxClients *connect.Client[SetMaxClientsRequest, SetMaxClientsResponse]
	serviceStatus *connect.Client[ServiceStatusRequest, ServiceStatusResponse]
	getService    *connect.Client[GetServiceRequest, GetServiceResponse]
	ping          *connect.Client[PingRequest, PingResponse]
}

// NewClient creates a new cluster RPC client.
func NewClient(cfg ClientConfig) *Client {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Scheme == "" {
		cfg.Scheme = "http"
	}
	if cfg.HTTPClient == nil {
		transport := http.DefaultTransport.(*http.Transport).Clone()
		if cfg.DialTimeout > 0 {
			transport.DialContext = (&net.Dialer{
				Timeout:   cfg.DialTimeout,
				KeepAlive: 30 * time.Second,
			}).DialContext
		}
		transport.MaxIdleConnsPerHost = 16
		cfg.HTTPClient = &http.Client{Transport: transport}
	}
	if cfg.Auth.Logger == nil {
		cfg.Auth.Logger = cfg.Logger
	}

	return &Client{
		httpClient: cfg.HTTPClient,
		scheme:     cfg.Scheme,
		opts: []connect.ClientOption{
			connect.WithCodec(JSONCodec{}),
			connect.WithInterceptors(NewAuthInterceptor(cfg.Auth)),
		},
		logger: cfg.Logger,
		peers:  make(map[string]*peerClient),
	}
}

func (c *Client) peer(member domain.Member) *peerClient {
	c.mu.Lock()
	defer c.mu.Unlock()

	if p, ok := c.peers[member.Address]; ok {
		return p
	}

	base := member.Address
	if !strings.Contains(base, "://") {
		base = c.scheme + "://" + base
	}
	base = strings.TrimRight(base, "/")

	p := &peerClient{
		loaderInfo:    connect.NewClient[LoaderInfoRequest, LoaderInfoResponse](c.httpClient, base+ServerLoaderInfoProcedure, c.opts...),
		serverReload:  connect.NewClient[ServerReloadRequest, ServerReloadResponse](c.httpClient, base+ServerReloadProcedure, c.opts...),
		setMaxClients: connect.NewClient[SetMaxClientsRequest, SetMaxClientsResponse](c.httpClient, base+SetMaxClientsProcedure, c.opts...),
		serviceStatus: connect.NewClient[ServiceStatusRequest, ServiceStatusResponse](c.httpClient, base+ServiceStatusProcedure, c.opts...),
		getService:    connect.NewClient[GetServiceRequest, GetServiceResponse](c.httpClient, base+GetServiceProcedure, c.opts...),
		ping:          connect.NewClient[PingRequest, PingResponse](c.httpClient, base+PingProcedure, c.opts...),
	}
	c.peers[member.Address] = p
	return p
}

// Retain drops cached stubs for every address not in members and returns
// how many were dropped. Called after a membership change.
func (c *Client) Retain(members []domain.Member) int {
	keep := make(map[string]struct{}, len(members))
	for _, m := range members {
		keep[m.Address] = struct{}{}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	dropped := 0
	for addr := range c.peers {
		if _, ok := keep[addr]; !ok {
			delete(c.peers, addr)
			dropped++
		}
	}
	return dropped
}

// LoaderInfo implements loader.Remote.
func (c *Client) LoaderInfo(ctx context.Context, member domain.Member) (map[string]string, error) {
	resp, err := c.peer(member).loaderInfo.CallUnary(ctx, connect.NewRequest(&LoaderInfoRequest{}))
	if err != nil {
		return nil, fromConnectError(member, err)
	}
	return resp.Msg.Metrics, nil
}

// ServerReload implements loader.Remote.
func (c *Client) ServerReload(ctx context.Context, member domain.Member, count int, redirectAddress string) error {
	_, err := c.peer(member).serverReload.CallUnary(ctx, connect.NewRequest(&ServerReloadRequest{
		Count:           count,
		RedirectAddress: redirectAddress,
	}))
	return fromConnectError(member, err)
}

// SetMaxClients implements loader.Remote.
func (c *Client) SetMaxClients(ctx context.Context, member domain.Member, count int) error {
	_, err := c.peer(member).setMaxClients.CallUnary(ctx, connect.NewRequest(&SetMaxClientsRequest{Count: count}))
	return fromConnectError(member, err)
}

// ServiceStatus implements naming.Pusher.
func (c *Client) ServiceStatus(ctx context.Context, member domain.Member, source string, vector domain.ChecksumVector) error {
	_, err := c.peer(member).serviceStatus.CallUnary(ctx, connect.NewRequest(&ServiceStatusRequest{
		Source: source,
		Vector: vector,
	}))
	return fromConnectError(member, err)
}

// GetService implements naming.Fetcher. It returns nil, nil when the peer
// does not know the service.
func (c *Client) GetService(ctx context.Context, member domain.Member, namespaceID, serviceName string) (*domain.Service, error) {
	resp, err := c.peer(member).getService.CallUnary(ctx, connect.NewRequest(&GetServiceRequest{
		NamespaceID: namespaceID,
		ServiceName: serviceName,
	}))
	if err != nil {
		return nil, fromConnectError(member, err)
	}
	if !resp.Msg.Found {
		return nil, nil
	}
	return resp.Msg.Service, nil
}

// Ping checks that one member answers.
func (c *Client) Ping(ctx context.Context, member domain.Member, from string) (*PingResponse, error) {
	resp, err := c.peer(member).ping.CallUnary(ctx, connect.NewRequest(&PingRequest{From: from}))
	if err != nil {
		return nil, fromConnectError(member, err)
	}
	return resp.Msg, nil
}
