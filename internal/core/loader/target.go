package loader

import (
	"context"

	"github.com/yndnr/regmesh-go/internal/core/domain"
)

// Directory is the member view the loader needs.
type Directory interface {
	Members() []domain.Member
	Peers() []domain.Member
	Self() domain.Member
}

// LocalNode is the local connection table.
type LocalNode interface {
	SetMaxClientCount(count int) error
	CurrentClients() map[string]domain.Connection
	LoadCount(ctx context.Context, count int, redirectAddress string) (int, error)
	LoadSingle(ctx context.Context, connectionID, redirectAddress string) error
	LoaderMetrics() map[string]string
}

// Remote sends loader requests to a peer.
type Remote interface {
	LoaderInfo(ctx context.Context, member domain.Member) (map[string]string, error)
	ServerReload(ctx context.Context, member domain.Member, count int, redirectAddress string) error
	SetMaxClients(ctx context.Context, member domain.Member, count int) error
}

// invoker runs loader operations against one member, either in-process or
// over RPC. It is chosen once per member when a round is built.
type invoker interface {
	loaderInfo(ctx context.Context) (map[string]string, error)
	reload(ctx context.Context, count int, redirectAddress string) error
	setMaxClients(ctx context.Context, count int) error
}

type localInvoker struct {
	node LocalNode
}

func (l localInvoker) loaderInfo(context.Context) (map[string]string, error) {
	return l.node.LoaderMetrics(), nil
}

func (l localInvoker) reload(ctx context.Context, count int, redirectAddress string) error {
	_, err := l.node.LoadCount(ctx, count, redirectAddress)
	return err
}

func (l localInvoker) setMaxClients(_ context.Context, count int) error {
	return l.node.SetMaxClientCount(count)
}

type remoteInvoker struct {
	remote Remote
	member domain.Member
}

func (r remoteInvoker) loaderInfo(ctx context.Context) (map[string]string, error) {
	return r.remote.LoaderInfo(ctx, r.member)
}

func (r remoteInvoker) reload(ctx context.Context, count int, redirectAddress string) error {
	return r.remote.ServerReload(ctx, r.member, count, redirectAddress)
}

func (r remoteInvoker) setMaxClients(ctx context.Context, count int) error {
	return r.remote.SetMaxClients(ctx, r.member, count)
}

// resolver picks the invoker for a member.
type resolver struct {
	dir    Directory
	local  LocalNode
	remote Remote
}

func (r resolver) isSelf(m domain.Member) bool {
	return m.Self || m.Address == r.dir.Self().Address
}

func (r resolver) invokerFor(m domain.Member) invoker {
	if r.isSelf(m) {
		return localInvoker{node: r.local}
	}
	return remoteInvoker{remote: r.remote, member: m}
}

func longConnectionPeers(dir Directory) []domain.Member {
	var out []domain.Member
	for _, p := range dir.Peers() {
		if p.LongConnection {
			out = append(out, p)
		}
	}
	return out
}
