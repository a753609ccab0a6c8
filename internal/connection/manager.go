package connection

import (
	"context"
	"log/slog"
	"os"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/yndnr/regmesh-go/internal/core/domain"
	"github.com/yndnr/regmesh-go/pkg/cmap"
)

// Unlimited is the max client count that disables the limit.
const Unlimited = -1

// Redirector tells a client to reconnect, optionally to redirectAddress.
type Redirector interface {
	Redirect(ctx context.Context, conn domain.Connection, redirectAddress string) error
}

// RedirectorFunc adapts a function to Redirector.
type RedirectorFunc func(ctx context.Context, conn domain.Connection, redirectAddress string) error

// Redirect calls f.
func (f RedirectorFunc) Redirect(ctx context.Context, conn domain.Connection, redirectAddress string) error {
	return f(ctx, conn, redirectAddress)
}

// Config configures a Manager.
type Config struct {
	// MaxClients caps SDK connections; Unlimited disables the cap.
	MaxClients int

	// Redirector notifies expelled clients. Nil only logs.
	Redirector Redirector

	Logger *slog.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxClients: Unlimited,
		Logger:     slog.Default(),
	}
}

// Manager is the local connection table.
type Manager struct {
	conns      *cmap.Map[domain.Connection]
	maxClients atomic.Int64
	redirector Redirector
	logger     *slog.Logger
}

// NewManager creates a connection manager.
func NewManager(cfg Config) *Manager {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	m := &Manager{
		conns:      cmap.New[domain.Connection](0),
		redirector: cfg.Redirector,
		logger:     cfg.Logger,
	}
	if cfg.MaxClients < 0 {
		cfg.MaxClients = Unlimited
	}
	m.maxClients.Store(int64(cfg.MaxClients))
	if m.redirector == nil {
		m.redirector = RedirectorFunc(m.logRedirect)
	}
	return m
}

// Register adds a connection. An empty ID is generated.
func (m *Manager) Register(conn domain.Connection) (string, error) {
	if conn.ID == "" {
		conn.ID = domain.NewConnectionID()
	}
	if conn.SDK {
		if limit := m.maxClients.Load(); limit >= 0 && int64(m.SDKCount()) >= limit {
			return "", domain.ErrConnectionLimit.WithDetails(
				"max " + strconv.FormatInt(limit, 10) + " clients")
		}
	}
	if !m.conns.SetIfAbsent(conn.ID, conn) {
		return "", domain.ErrConnectionConflict.WithDetails(conn.ID)
	}
	m.logger.Debug("connection registered",
		"connection_id", conn.ID,
		"client_ip", conn.ClientIP,
		"sdk", conn.SDK,
	)
	return conn.ID, nil
}

// Unregister removes a connection and reports whether it existed.
func (m *Manager) Unregister(id string) bool {
	_, ok := m.conns.Pop(id)
	if ok {
		m.logger.Debug("connection unregistered", "connection_id", id)
	}
	return ok
}

// Get returns a connection by ID.
func (m *Manager) Get(id string) (domain.Connection, bool) {
	return m.conns.Get(id)
}

// Count returns the number of all connections.
func (m *Manager) Count() int {
	return m.conns.Count()
}

// SDKCount returns the number of SDK connections.
func (m *Manager) SDKCount() int {
	return m.conns.CountFunc(func(c domain.Connection) bool { return c.SDK })
}

// MaxClientCount returns the current cap, or Unlimited.
func (m *Manager) MaxClientCount() int {
	return int(m.maxClients.Load())
}

// SetMaxClientCount caps SDK connections. Existing connections are kept.
func (m *Manager) SetMaxClientCount(count int) error {
	if count < 0 {
		return domain.ErrInvalidCount.WithDetails(strconv.Itoa(count))
	}
	prev := m.maxClients.Swap(int64(count))
	m.logger.Info("max client count updated", "previous", prev, "current", count)
	return nil
}

// CurrentClients returns a snapshot of all connections keyed by ID.
func (m *Manager) CurrentClients() map[string]domain.Connection {
	out := make(map[string]domain.Connection, m.conns.Count())
	m.conns.Range(func(id string, c domain.Connection) bool {
		out[id] = c
		return true
	})
	return out
}

// LoadCount sheds SDK connections above count, newest first, and returns
// how many were expelled.
func (m *Manager) LoadCount(ctx context.Context, count int, redirectAddress string) (int, error) {
	if count < 0 {
		return 0, domain.ErrInvalidCount.WithDetails(strconv.Itoa(count))
	}

	var sdk []domain.Connection
	m.conns.Range(func(_ string, c domain.Connection) bool {
		if c.SDK {
			sdk = append(sdk, c)
		}
		return true
	})

	excess := len(sdk) - count
	if excess <= 0 {
		return 0, nil
	}

	sort.Slice(sdk, func(i, j int) bool {
		if !sdk[i].ConnectedAt.Equal(sdk[j].ConnectedAt) {
			return sdk[i].ConnectedAt.After(sdk[j].ConnectedAt)
		}
		return sdk[i].ID > sdk[j].ID
	})

	expelled := 0
	for _, c := range sdk[:excess] {
		if ctx.Err() != nil {
			break
		}
		m.expel(ctx, c, redirectAddress)
		expelled++
	}

	m.logger.Info("connections reloaded",
		"count", count,
		"expelled", expelled,
		"redirect_address", redirectAddress,
	)
	return expelled, nil
}

// LoadSingle expels one connection.
func (m *Manager) LoadSingle(ctx context.Context, id string, redirectAddress string) error {
	c, ok := m.conns.Get(id)
	if !ok {
		return domain.ErrConnectionNotFound.WithDetails(id)
	}
	m.expel(ctx, c, redirectAddress)
	return nil
}

func (m *Manager) expel(ctx context.Context, c domain.Connection, redirectAddress string) {
	if err := m.redirector.Redirect(ctx, c, redirectAddress); err != nil {
		m.logger.Warn("redirect notification failed",
			"connection_id", c.ID,
			"error", err,
		)
	}
	m.conns.Delete(c.ID)
}

func (m *Manager) logRedirect(_ context.Context, c domain.Connection, redirectAddress string) error {
	m.logger.Info("connection reset",
		"connection_id", c.ID,
		"client_ip", c.ClientIP,
		"redirect_address", redirectAddress,
	)
	return nil
}

// LoaderMetrics returns the load metric map reported to the cluster.
func (m *Manager) LoaderMetrics() map[string]string {
	metrics := map[string]string{
		domain.MetricSDKConCount: strconv.Itoa(m.SDKCount()),
		domain.MetricConCount:    strconv.Itoa(m.Count()),
		domain.MetricLimitRule:   strconv.Itoa(m.MaxClientCount()),
		domain.MetricCPU:         strconv.Itoa(runtime.NumCPU()),
	}
	if load, ok := loadAverage(); ok {
		metrics[domain.MetricLoad] = load
	}
	return metrics
}

// loadAverage returns the one minute load average on systems exposing
// /proc/loadavg.
func loadAverage() (string, bool) {
	raw, err := os.ReadFile("/proc/loadavg")
	if err != nil {
		return "", false
	}
	fields := strings.Fields(string(raw))
	if len(fields) == 0 {
		return "", false
	}
	return fields[0], true
}
