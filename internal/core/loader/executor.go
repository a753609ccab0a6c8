package loader

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	"github.com/yndnr/regmesh-go/internal/core/domain"
	"github.com/yndnr/regmesh-go/internal/core/fanout"
)

// Fan-out operation names.
const (
	OpServerReload  = "server_reload"
	OpSmartReload   = "smart_reload"
	OpSetMaxClients = "set_max_clients"
)

// Outcome is the result of one reload call.
type Outcome struct {
	Address         string `json:"address"`
	Self            bool   `json:"self"`
	ReloadCount     int    `json:"reloadCount"`
	RedirectAddress string `json:"redirectAddress,omitempty"`
	OK              bool   `json:"ok"`
	TimedOut        bool   `json:"timedOut,omitempty"`
	Error           string `json:"error,omitempty"`
}

// Report summarizes a bulk reload.
//
// A report with failures is still a successful operation: peers that did
// not answer only shrink Succeeded.
type Report struct {
	Submitted int       `json:"submitted"`
	Succeeded int       `json:"succeeded"`
	Failed    int       `json:"failed"`
	TimedOut  int       `json:"timedOut"`
	Outcomes  []Outcome `json:"outcomes"`
}

func (r *Report) add(o Outcome) {
	r.Submitted++
	switch {
	case o.OK:
		r.Succeeded++
	case o.TimedOut:
		r.TimedOut++
	default:
		r.Failed++
	}
	r.Outcomes = append(r.Outcomes, o)
}

// InstructionObserver counts issued reload instructions.
type InstructionObserver interface {
	ObserveInstruction(op string, self bool, ok bool)
}

// Executor applies loader instructions to members.
type Executor struct {
	resolver resolver
	agg      *fanout.Aggregator
	observer InstructionObserver
	logger   *slog.Logger
}

// NewExecutor creates an executor. observer may be nil.
func NewExecutor(dir Directory, local LocalNode, remote Remote, agg *fanout.Aggregator, observer InstructionObserver, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{
		resolver: resolver{dir: dir, local: local, remote: remote},
		agg:      agg,
		observer: observer,
		logger:   logger,
	}
}

func validCount(count int) error {
	if count < 0 {
		return domain.ErrInvalidCount.WithDetails(strconv.Itoa(count))
	}
	return nil
}

func (e *Executor) observe(op string, self, ok bool) {
	if e.observer != nil {
		e.observer.ObserveInstruction(op, self, ok)
	}
}

// SetMaxConnections caps the client connections member accepts.
func (e *Executor) SetMaxConnections(ctx context.Context, member domain.Member, count int) error {
	if err := validCount(count); err != nil {
		return err
	}
	self := e.resolver.isSelf(member)
	err := e.resolver.invokerFor(member).setMaxClients(ctx, count)
	e.observe(OpSetMaxClients, self, err == nil)
	if err != nil {
		return err
	}
	e.logger.Info("max clients set", "member", member.Address, "self", self, "count", count)
	return nil
}

// Reload asks member to keep at most count client connections. Self runs
// in-process; a peer gets one blocking RPC.
func (e *Executor) Reload(ctx context.Context, member domain.Member, count int, redirectAddress string) error {
	if err := validCount(count); err != nil {
		return err
	}
	self := e.resolver.isSelf(member)
	err := e.resolver.invokerFor(member).reload(ctx, count, redirectAddress)
	e.observe(OpServerReload, self, err == nil)
	if err != nil {
		return err
	}
	e.logger.Info("reload submitted",
		"member", member.Address,
		"self", self,
		"count", count,
		"redirect_address", redirectAddress,
	)
	return nil
}

// RedirectSingleConnection redirects one local connection. It never leaves
// the node.
func (e *Executor) RedirectSingleConnection(ctx context.Context, connectionID, redirectAddress string) error {
	if connectionID == "" {
		return domain.ErrMissingArgument.WithDetails("connectionId")
	}
	return e.resolver.local.LoadSingle(ctx, connectionID, redirectAddress)
}

// ReloadCluster sends the same reload to self and every long-connection
// peer. Self runs directly; peers go through one fan-out round.
func (e *Executor) ReloadCluster(ctx context.Context, count int, redirectAddress string) (*Report, error) {
	if err := validCount(count); err != nil {
		return nil, err
	}

	instructions := []domain.ReloadInstruction{{
		Target:          e.resolver.dir.Self(),
		ReloadCount:     count,
		RedirectAddress: redirectAddress,
	}}
	for _, p := range longConnectionPeers(e.resolver.dir) {
		instructions = append(instructions, domain.ReloadInstruction{
			Target:          p,
			ReloadCount:     count,
			RedirectAddress: redirectAddress,
		})
	}
	return e.dispatch(ctx, OpServerReload, instructions), nil
}

// Apply executes planned instructions. Self-targeted instructions run
// directly; the rest go through one fan-out round.
func (e *Executor) Apply(ctx context.Context, instructions []domain.ReloadInstruction) (*Report, error) {
	for _, in := range instructions {
		if err := validCount(in.ReloadCount); err != nil {
			return nil, err
		}
	}
	return e.dispatch(ctx, OpSmartReload, instructions), nil
}

func (e *Executor) dispatch(ctx context.Context, op string, instructions []domain.ReloadInstruction) *Report {
	report := &Report{}

	var targets []fanout.Target[struct{}]
	byAddress := make(map[string]domain.ReloadInstruction, len(instructions))

	for _, in := range instructions {
		in := in
		outcome := Outcome{
			Address:         in.Target.Address,
			ReloadCount:     in.ReloadCount,
			RedirectAddress: in.RedirectAddress,
		}
		inv := e.resolver.invokerFor(in.Target)

		if e.resolver.isSelf(in.Target) {
			outcome.Self = true
			if err := inv.reload(ctx, in.ReloadCount, in.RedirectAddress); err != nil {
				outcome.Error = err.Error()
				e.logger.Warn("local reload failed", "op", op, "error", err)
			} else {
				outcome.OK = true
			}
			e.observe(op, true, outcome.OK)
			report.add(outcome)
			continue
		}

		byAddress[in.Target.Address] = in
		targets = append(targets, fanout.Target[struct{}]{
			Member: in.Target,
			Call: func(ctx context.Context) (struct{}, error) {
				return struct{}{}, inv.reload(ctx, in.ReloadCount, in.RedirectAddress)
			},
		})
	}

	round := fanout.Gather(ctx, e.agg, op, targets)

	peerOutcome := func(m domain.Member) Outcome {
		in := byAddress[m.Address]
		return Outcome{Address: m.Address, ReloadCount: in.ReloadCount, RedirectAddress: in.RedirectAddress}
	}
	for _, r := range round.Results {
		o := peerOutcome(r.Member)
		o.OK = true
		e.observe(op, false, true)
		report.add(o)
	}
	for _, f := range round.Failed {
		o := peerOutcome(f.Member)
		o.Error = f.Err.Error()
		if errors.Is(f.Err, domain.ErrPeerTimeout) {
			o.TimedOut = true
		}
		e.observe(op, false, false)
		report.add(o)
	}
	for _, m := range round.TimedOut {
		o := peerOutcome(m)
		o.TimedOut = true
		o.Error = "no answer within budget"
		e.observe(op, false, false)
		report.add(o)
	}

	e.logger.Info("reload dispatched",
		"op", op,
		"submitted", report.Submitted,
		"succeeded", report.Succeeded,
		"failed", report.Failed,
		"timed_out", report.TimedOut,
	)
	return report
}
