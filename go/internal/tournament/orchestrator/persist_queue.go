package orchestrator

import (
	"sync"

	"github.com/siner/nextjs.pokerclock-sub000/go/internal/models"
)

type persistJob struct {
	snapshot models.SessionSnapshot
	discard  bool
}

// terminal jobs end a session in the store and are never replaced.
func (j persistJob) terminal() bool {
	return j.discard || j.snapshot.Finalized
}

// persistQueue is an ordered queue of store writes with one consumer. A
// pending save is replaced by a newer save of the same session; every other
// job is kept and written in order.
type persistQueue struct {
	mu     sync.Mutex
	jobs   []persistJob
	closed bool
	wake   chan struct{}
}

func newPersistQueue() *persistQueue {
	return &persistQueue{wake: make(chan struct{}, 1)}
}

// push queues job and reports whether it replaced a pending save.
func (q *persistQueue) push(job persistJob) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false
	}

	replaced := false
	if n := len(q.jobs); n > 0 && !job.terminal() {
		last := &q.jobs[n-1]
		if !last.terminal() && last.snapshot.ID == job.snapshot.ID {
			*last = job
			replaced = true
		}
	}
	if !replaced {
		q.jobs = append(q.jobs, job)
	}
	q.signal()
	return replaced
}

// pop blocks until a job is available. It returns false once the queue is
// closed and drained.
func (q *persistQueue) pop() (persistJob, bool) {
	for {
		q.mu.Lock()
		if len(q.jobs) > 0 {
			job := q.jobs[0]
			q.jobs[0] = persistJob{}
			q.jobs = q.jobs[1:]
			q.mu.Unlock()
			return job, true
		}
		closed := q.closed
		q.mu.Unlock()
		if closed {
			return persistJob{}, false
		}
		<-q.wake
	}
}

// close stops accepting jobs. Pending jobs are still handed out by pop.
func (q *persistQueue) close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.signal()
}

func (q *persistQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.jobs)
}

// signal must be called with mu held.
func (q *persistQueue) signal() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}
