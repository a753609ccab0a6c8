package fanout

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/yndnr/regmesh-go/internal/core/domain"
)

// Default budget values.
const (
	DefaultRoundTimeout  = 1000 * time.Millisecond
	DefaultResultTimeout = 500 * time.Millisecond
)

// Budget bounds a single round.
type Budget struct {
	// Round is the wall-clock time allowed for collecting answers.
	Round time.Duration

	// Result is the extra time granted, once the round deadline fires, to
	// calls that were already executing.
	Result time.Duration
}

// DefaultBudget returns the default round budget.
func DefaultBudget() Budget {
	return Budget{
		Round:  DefaultRoundTimeout,
		Result: DefaultResultTimeout,
	}
}

// Max returns the longest time Gather can block with this budget.
func (b Budget) Max() time.Duration {
	return b.Round + b.Result
}

// Target is one member and the call that measures or instructs it.
type Target[T any] struct {
	Member domain.Member
	Call   func(ctx context.Context) (T, error)
}

// Result is a successful answer.
type Result[T any] struct {
	Member  domain.Member
	Value   T
	Elapsed time.Duration
}

// Failure is a call that returned an error within the budget.
type Failure struct {
	Member domain.Member
	Err    error
}

// Round is the outcome of one Gather call.
//
// Results are in arrival order. Every target appears in exactly one of
// Results, Failed or TimedOut.
type Round[T any] struct {
	Results  []Result[T]
	Failed   []Failure
	TimedOut []domain.Member
	Elapsed  time.Duration
}

// Dispatched returns the number of targets of the round.
func (r *Round[T]) Dispatched() int {
	return len(r.Results) + len(r.Failed) + len(r.TimedOut)
}

// Observer receives round statistics.
type Observer interface {
	ObserveRound(op string, ok, failed, timedOut int, elapsed time.Duration)
}

// Config configures an Aggregator.
type Config struct {
	Budget   Budget
	Logger   *slog.Logger
	Observer Observer
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Budget: DefaultBudget(),
		Logger: slog.Default(),
	}
}

// Aggregator runs fan-out rounds on a shared pool.
type Aggregator struct {
	pool     *Pool
	budget   Budget
	logger   *slog.Logger
	observer Observer
}

// New creates an aggregator. A nil pool means Shared().
func New(cfg Config, pool *Pool) *Aggregator {
	if pool == nil {
		pool = Shared()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Budget.Round <= 0 {
		cfg.Budget.Round = DefaultRoundTimeout
	}
	if cfg.Budget.Result < 0 {
		cfg.Budget.Result = 0
	}
	return &Aggregator{
		pool:     pool,
		budget:   cfg.Budget,
		logger:   cfg.Logger,
		observer: cfg.Observer,
	}
}

// Budget returns the round budget.
func (a *Aggregator) Budget() Budget {
	return a.budget
}

// Pool returns the underlying pool.
func (a *Aggregator) Pool() *Pool {
	return a.pool
}

type outcome[T any] struct {
	idx     int
	value   T
	err     error
	elapsed time.Duration
}

// Gather dispatches every target through the aggregator's pool and collects
// answers until all arrived or the budget is spent.
//
// Calls still waiting for a pool slot when the round deadline fires are
// abandoned. Calls already executing get one more Budget.Result to finish.
// The context handed to calls is cancelled when Gather returns; answers that
// arrive later are dropped.
func Gather[T any](ctx context.Context, a *Aggregator, op string, targets []Target[T]) *Round[T] {
	start := time.Now()
	round := &Round[T]{}
	if len(targets) == 0 {
		return round
	}

	callCtx, cancel := context.WithTimeout(ctx, a.budget.Max())
	defer cancel()

	// Buffered to len(targets) so abandoned calls never block on send.
	answers := make(chan outcome[T], len(targets))

	var (
		mu        sync.Mutex
		closed    bool
		started   = make([]bool, len(targets))
		completed = make([]bool, len(targets))
	)

	for i := range targets {
		go func(i int, t Target[T]) {
			if err := a.pool.acquire(callCtx); err != nil {
				return
			}
			defer a.pool.release()

			mu.Lock()
			if closed {
				mu.Unlock()
				return
			}
			started[i] = true
			mu.Unlock()

			begin := time.Now()
			v, err := invoke(callCtx, t.Call)
			answers <- outcome[T]{idx: i, value: v, err: err, elapsed: time.Since(begin)}
		}(i, targets[i])
	}

	record := func(o outcome[T]) {
		completed[o.idx] = true
		m := targets[o.idx].Member
		if o.err != nil {
			round.Failed = append(round.Failed, Failure{Member: m, Err: o.err})
			a.logger.Warn("fan-out call failed",
				"op", op,
				"member", m.Address,
				"error", o.err,
			)
			return
		}
		round.Results = append(round.Results, Result[T]{Member: m, Value: o.value, Elapsed: o.elapsed})
	}

	remaining := len(targets)
	deadline := time.NewTimer(a.budget.Round)
	defer deadline.Stop()

collect:
	for remaining > 0 {
		select {
		case o := <-answers:
			record(o)
			remaining--
		case <-deadline.C:
			break collect
		case <-ctx.Done():
			break collect
		}
	}

	if remaining > 0 && ctx.Err() == nil {
		// Close dispatch and count the calls that are still executing.
		mu.Lock()
		closed = true
		executing := 0
		for i := range targets {
			if started[i] && !completed[i] {
				executing++
			}
		}
		mu.Unlock()

		if executing > 0 && a.budget.Result > 0 {
			grace := time.NewTimer(a.budget.Result)
		drain:
			for executing > 0 {
				select {
				case o := <-answers:
					record(o)
					executing--
				case <-grace.C:
					break drain
				case <-ctx.Done():
					break drain
				}
			}
			grace.Stop()
		}
	}

	for i, t := range targets {
		if !completed[i] {
			round.TimedOut = append(round.TimedOut, t.Member)
			a.logger.Warn("fan-out call timed out",
				"op", op,
				"member", t.Member.Address,
			)
		}
	}

	round.Elapsed = time.Since(start)
	if a.observer != nil {
		a.observer.ObserveRound(op, len(round.Results), len(round.Failed), len(round.TimedOut), round.Elapsed)
	}
	a.logger.Debug("fan-out round finished",
		"op", op,
		"dispatched", len(targets),
		"ok", len(round.Results),
		"failed", len(round.Failed),
		"timed_out", len(round.TimedOut),
		"elapsed", round.Elapsed,
	)
	return round
}

func invoke[T any](ctx context.Context, call func(context.Context) (T, error)) (v T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("fan-out call panicked: %v", r)
		}
	}()
	return call(ctx)
}
