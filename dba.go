package auth

import (
	"context"
	"sync"

	"github.com/goliatone/go-errors"
)

// Dba is a bounded worker pool that serializes database work onto a fixed
// number of goroutines. It replaces per-request goroutine fanout so the
// SQLite connection never sees unbounded concurrency.
type Dba struct {
	jobs   chan dbaJob
	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool
	once   sync.Once
	logger Logger
}

type dbaJob struct {
	ctx  context.Context
	fn   func(context.Context) error
	done chan error
}

// NewDba starts workers goroutines consuming from a backlog-sized queue.
func NewDba(workers, backlog int, logger Logger) *Dba {
	if workers <= 0 {
		workers = 1
	}
	if backlog <= 0 {
		backlog = workers
	}
	if logger == nil {
		logger = defLogger{}
	}

	d := &Dba{
		jobs:   make(chan dbaJob, backlog),
		logger: logger,
	}

	d.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go d.worker()
	}

	return d
}

func (d *Dba) worker() {
	defer d.wg.Done()
	for job := range d.jobs {
		// The job runs to completion even if the request that queued it
		// went away, so a commit is never torn by a client disconnect.
		err := job.fn(context.WithoutCancel(job.ctx))
		job.done <- err
	}
}

// submit enqueues a job while holding the read lock so it can never race
// Close's channel close. It reports whether the queue had room.
func (d *Dba) submit(job dbaJob) (bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return false, errors.New("dba pool is shut down", errors.CategoryOperation)
	}

	select {
	case d.jobs <- job:
		return true, nil
	default:
		return false, nil
	}
}

// Dispatch queues fn and waits for its result. A full backlog fails fast
// instead of blocking the caller; a canceled ctx abandons the wait but the
// job still runs.
func (d *Dba) Dispatch(ctx context.Context, fn func(context.Context) error) error {
	job := dbaJob{
		ctx:  ctx,
		fn:   fn,
		done: make(chan error, 1),
	}

	queued, err := d.submit(job)
	if err != nil {
		return err
	}
	if !queued {
		d.logger.Warn("Dba backlog full, rejecting job")
		return errors.New("service overloaded", errors.CategoryOperation).
			WithCode(errors.CodeInternal)
	}

	select {
	case err := <-job.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting jobs and waits for in-flight work to finish.
func (d *Dba) Close() {
	d.once.Do(func() {
		d.mu.Lock()
		d.closed = true
		close(d.jobs)
		d.mu.Unlock()
	})
	d.wg.Wait()
}
