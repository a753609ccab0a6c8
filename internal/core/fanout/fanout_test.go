package fanout

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yndnr/regmesh-go/internal/core/domain"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newAggregator(pool *Pool, round, result time.Duration) *Aggregator {
	return New(Config{
		Budget: Budget{Round: round, Result: result},
		Logger: quietLogger(),
	}, pool)
}

func member(i int) domain.Member {
	return domain.Member{Address: fmt.Sprintf("10.0.0.%d:9848", i), LongConnection: true}
}

func sleeper(d time.Duration, v int) func(context.Context) (int, error) {
	return func(ctx context.Context) (int, error) {
		select {
		case <-time.After(d):
			return v, nil
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
}

type roundRecorder struct {
	mu    sync.Mutex
	op    string
	ok    int
	fail  int
	tout  int
	calls int
}

func (r *roundRecorder) ObserveRound(op string, ok, failed, timedOut int, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.op, r.ok, r.fail, r.tout = op, ok, failed, timedOut
	r.calls++
}

func TestGather_AllRespond(t *testing.T) {
	rec := &roundRecorder{}
	agg := New(Config{Budget: DefaultBudget(), Logger: quietLogger(), Observer: rec}, NewPool(4))

	targets := make([]Target[int], 5)
	for i := range targets {
		targets[i] = Target[int]{Member: member(i), Call: sleeper(time.Millisecond, i)}
	}

	round := Gather(context.Background(), agg, "loader_info", targets)

	require.Len(t, round.Results, 5)
	assert.Empty(t, round.Failed)
	assert.Empty(t, round.TimedOut)
	assert.Equal(t, 5, round.Dispatched())

	seen := map[int]bool{}
	for _, r := range round.Results {
		seen[r.Value] = true
	}
	assert.Len(t, seen, 5)

	assert.Equal(t, 1, rec.calls)
	assert.Equal(t, "loader_info", rec.op)
	assert.Equal(t, 5, rec.ok)
}

func TestGather_ArrivalOrder(t *testing.T) {
	agg := newAggregator(NewPool(3), time.Second, 100*time.Millisecond)

	targets := []Target[int]{
		{Member: member(1), Call: sleeper(120*time.Millisecond, 1)},
		{Member: member(2), Call: sleeper(60*time.Millisecond, 2)},
		{Member: member(3), Call: sleeper(1*time.Millisecond, 3)},
	}

	round := Gather(context.Background(), agg, "order", targets)
	require.Len(t, round.Results, 3)
	assert.Equal(t, []int{3, 2, 1}, []int{round.Results[0].Value, round.Results[1].Value, round.Results[2].Value})
}

func TestGather_KOfN(t *testing.T) {
	agg := newAggregator(NewPool(8), 100*time.Millisecond, 50*time.Millisecond)

	targets := []Target[int]{
		{Member: member(1), Call: sleeper(time.Millisecond, 1)},
		{Member: member(2), Call: sleeper(time.Millisecond, 2)},
		{Member: member(3), Call: sleeper(10*time.Second, 3)},
		{Member: member(4), Call: func(context.Context) (int, error) { return 0, errors.New("refused") }},
	}

	start := time.Now()
	round := Gather(context.Background(), agg, "k_of_n", targets)
	elapsed := time.Since(start)

	assert.Len(t, round.Results, 2)
	require.Len(t, round.Failed, 1)
	assert.Equal(t, member(4), round.Failed[0].Member)
	require.Len(t, round.TimedOut, 1)
	assert.Equal(t, member(3), round.TimedOut[0])
	assert.Less(t, elapsed, agg.Budget().Max()+100*time.Millisecond)
}

func TestGather_GraceWindowForExecutingCalls(t *testing.T) {
	agg := newAggregator(NewPool(2), 50*time.Millisecond, 200*time.Millisecond)

	targets := []Target[int]{
		{Member: member(1), Call: sleeper(100*time.Millisecond, 1)},
	}

	round := Gather(context.Background(), agg, "grace", targets)
	require.Len(t, round.Results, 1, "a call running at the round deadline gets the result window")
	assert.Empty(t, round.TimedOut)
}

func TestGather_QueuedCallsAbandonedAtDeadline(t *testing.T) {
	agg := newAggregator(NewPool(1), 50*time.Millisecond, 500*time.Millisecond)

	var ran atomic.Int32
	call := func(d time.Duration, v int) func(context.Context) (int, error) {
		inner := sleeper(d, v)
		return func(ctx context.Context) (int, error) {
			ran.Add(1)
			return inner(ctx)
		}
	}

	targets := []Target[int]{
		{Member: member(1), Call: call(80*time.Millisecond, 1)},
		{Member: member(2), Call: call(80*time.Millisecond, 2)},
	}

	round := Gather(context.Background(), agg, "queued", targets)

	assert.Len(t, round.Results, 1)
	assert.Len(t, round.TimedOut, 1)

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(1), ran.Load(), "the queued call must never start after the deadline")
}

func TestGather_NeverBlocksPastBudget(t *testing.T) {
	agg := newAggregator(NewPool(4), 80*time.Millisecond, 40*time.Millisecond)

	hang := func(ctx context.Context) (int, error) {
		time.Sleep(2 * time.Second)
		return 0, nil
	}
	targets := make([]Target[int], 6)
	for i := range targets {
		targets[i] = Target[int]{Member: member(i), Call: hang}
	}

	start := time.Now()
	round := Gather(context.Background(), agg, "hang", targets)
	elapsed := time.Since(start)

	assert.Empty(t, round.Results)
	assert.Len(t, round.TimedOut, 6)
	assert.Less(t, elapsed, 120*time.Millisecond+100*time.Millisecond)
}

func TestGather_LateResultsDiscarded(t *testing.T) {
	agg := newAggregator(NewPool(2), 30*time.Millisecond, 10*time.Millisecond)

	done := make(chan struct{})
	late := func(ctx context.Context) (int, error) {
		defer close(done)
		time.Sleep(100 * time.Millisecond)
		return 42, nil
	}

	round := Gather(context.Background(), agg, "late", []Target[int]{{Member: member(1), Call: late}})
	require.Len(t, round.TimedOut, 1)

	<-done
	assert.Empty(t, round.Results, "a finalized round is never modified")
}

func TestGather_PanicIsFailure(t *testing.T) {
	agg := newAggregator(NewPool(1), time.Second, 0)

	round := Gather(context.Background(), agg, "panic", []Target[int]{{
		Member: member(1),
		Call:   func(context.Context) (int, error) { panic("boom") },
	}})

	require.Len(t, round.Failed, 1)
	assert.Contains(t, round.Failed[0].Err.Error(), "boom")
}

func TestGather_ParentCancelled(t *testing.T) {
	agg := newAggregator(NewPool(2), time.Second, time.Second)
	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	round := Gather(ctx, agg, "cancel", []Target[int]{{Member: member(1), Call: sleeper(5*time.Second, 1)}})
	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.Len(t, round.TimedOut, 1)
}

func TestGather_Empty(t *testing.T) {
	agg := newAggregator(NewPool(1), time.Second, time.Second)
	round := Gather[int](context.Background(), agg, "empty", nil)
	assert.Equal(t, 0, round.Dispatched())
}

func TestPool_Defaults(t *testing.T) {
	p := NewPool(0)
	assert.Positive(t, p.Size())
	assert.Equal(t, 0, p.Busy())

	assert.Same(t, Shared(), Shared())

	agg := New(Config{}, nil)
	assert.Same(t, Shared(), agg.Pool())
	assert.Equal(t, DefaultRoundTimeout, agg.Budget().Round)
}

func TestPool_BoundsConcurrency(t *testing.T) {
	pool := NewPool(2)
	agg := newAggregator(pool, time.Second, time.Second)

	var cur, peak atomic.Int32
	call := func(ctx context.Context) (int, error) {
		n := cur.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		cur.Add(-1)
		return 1, nil
	}
	targets := make([]Target[int], 6)
	for i := range targets {
		targets[i] = Target[int]{Member: member(i), Call: call}
	}

	round := Gather(context.Background(), agg, "bound", targets)
	assert.Len(t, round.Results, 6)
	assert.LessOrEqual(t, peak.Load(), int32(2))
}
