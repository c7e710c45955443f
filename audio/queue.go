package audio

import "sync"

// Queue is a generic bounded-concurrency task scheduler. It owns no domain
// knowledge: tasks are opaque funcs identified by an id. At most concurrency
// tasks run at once; completion (success or panic) admits the next queued
// task. There is no priority, no cancellation and no completion-order
// guarantee. The only promise is same-id idempotency: a task whose id is already queued or
// running is dropped.
type Queue struct {
	mu          sync.Mutex
	concurrency int
	active      int
	pending     []queuedTask
	inFlight    map[string]struct{}
}

type queuedTask struct {
	id  string
	run func()
}

// NewQueue creates a queue admitting up to concurrency tasks at once.
func NewQueue(concurrency int) *Queue {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Queue{
		concurrency: concurrency,
		inFlight:    make(map[string]struct{}),
	}
}

// Add schedules a task. Duplicate ids are dropped while the original is still
// queued or running.
func (q *Queue) Add(id string, task func()) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, dup := q.inFlight[id]; dup {
		return
	}
	q.inFlight[id] = struct{}{}
	q.pending = append(q.pending, queuedTask{id: id, run: task})
	q.admitLocked()
}

// admitLocked starts queued tasks while there is capacity. Caller holds q.mu.
func (q *Queue) admitLocked() {
	for q.active < q.concurrency && len(q.pending) > 0 {
		next := q.pending[0]
		q.pending = q.pending[1:]
		q.active++
		go q.runTask(next)
	}
}

func (q *Queue) runTask(t queuedTask) {
	defer func() {
		recover() // a panicking task must not wedge the scheduler
		q.mu.Lock()
		q.active--
		delete(q.inFlight, t.id)
		q.admitLocked()
		q.mu.Unlock()
	}()
	t.run()
}

// Len returns the number of queued (not yet started) tasks.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Active returns the number of running tasks.
func (q *Queue) Active() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.active
}
