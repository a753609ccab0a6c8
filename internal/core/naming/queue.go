package naming

import (
	"context"
	"sync"

	"github.com/yndnr/regmesh-go/internal/core/domain"
)

// DefaultRepairQueueSize is the default repair queue capacity.
const DefaultRepairQueueSize = 1 << 20

// RepairQueue is a bounded FIFO of repair tasks with at most one pending
// task per (namespace, service, source) key.
type RepairQueue struct {
	mu       sync.Mutex
	tasks    []domain.RepairTask
	pending  map[domain.RepairKey]struct{}
	capacity int
	notify   chan struct{}
}

// NewRepairQueue creates a queue. capacity <= 0 means DefaultRepairQueueSize.
func NewRepairQueue(capacity int) *RepairQueue {
	if capacity <= 0 {
		capacity = DefaultRepairQueueSize
	}
	return &RepairQueue{
		pending:  make(map[domain.RepairKey]struct{}),
		capacity: capacity,
		notify:   make(chan struct{}, 1),
	}
}

// Offer enqueues task unless a task with the same key is pending. It reports
// whether the task was enqueued.
func (q *RepairQueue) Offer(task domain.RepairTask) (bool, error) {
	key := task.Key()

	q.mu.Lock()
	if _, dup := q.pending[key]; dup {
		q.mu.Unlock()
		return false, nil
	}
	if len(q.tasks) >= q.capacity {
		q.mu.Unlock()
		return false, domain.ErrRepairQueueFull
	}
	q.pending[key] = struct{}{}
	q.tasks = append(q.tasks, task)
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
	return true, nil
}

// Take removes the oldest task, blocking until one is available or ctx is
// done. The task's key is released.
func (q *RepairQueue) Take(ctx context.Context) (domain.RepairTask, error) {
	for {
		if task, ok := q.poll(); ok {
			return task, nil
		}
		select {
		case <-q.notify:
		case <-ctx.Done():
			return domain.RepairTask{}, ctx.Err()
		}
	}
}

func (q *RepairQueue) poll() (domain.RepairTask, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.tasks) == 0 {
		return domain.RepairTask{}, false
	}
	task := q.tasks[0]
	q.tasks[0] = domain.RepairTask{}
	q.tasks = q.tasks[1:]
	delete(q.pending, task.Key())

	if len(q.tasks) > 0 {
		select {
		case q.notify <- struct{}{}:
		default:
		}
	}
	return task, true
}

// Len returns the number of queued tasks.
func (q *RepairQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}

// Pending reports whether a task with key is queued.
func (q *RepairQueue) Pending(key domain.RepairKey) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	_, ok := q.pending[key]
	return ok
}
