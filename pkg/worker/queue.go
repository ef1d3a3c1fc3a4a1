// Package worker runs dispatcher jobs one at a time on a background goroutine.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/kdeps/mediacmd/pkg/logging"
	"github.com/kdeps/mediacmd/pkg/messages"
)

// ErrQueueClosed is returned by Submit after Close.
var ErrQueueClosed = errors.New("job queue is closed")

// Status is what the worker is currently doing.
type Status int

const (
	Sleeping Status = iota
	Working
	Finished
)

// Job is one unit of dispatcher work.
type Job struct {
	Label string
	Run   func(ctx context.Context) error
	// Done, if set, receives the job's error (nil on success) once it ends.
	Done chan<- error
}

// Queue executes submitted jobs sequentially. A failing or panicking job is
// logged and the queue moves on to the next one.
type Queue struct {
	mu      sync.RWMutex
	jobs    chan Job
	wg      sync.WaitGroup
	logger  *logging.Logger
	started bool
	closed  bool

	statusMu sync.Mutex
	status   Status
}

// NewQueue creates a queue holding up to size pending jobs.
func NewQueue(size int, logger *logging.Logger) *Queue {
	if logger == nil {
		logger = logging.GetLogger()
	}
	if size < 1 {
		size = 1
	}
	return &Queue{jobs: make(chan Job, size), logger: logger}
}

// Start launches the worker goroutine. It does not block.
func (q *Queue) Start(ctx context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started {
		return errors.New("cannot start an already started job queue")
	}
	q.started = true

	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		for job := range q.jobs {
			q.setStatus(Working)
			err := q.run(ctx, job)
			if job.Done != nil {
				job.Done <- err
			}
			q.setStatus(Sleeping)
		}
		q.setStatus(Finished)
		q.logger.Debug(messages.MsgQueueStopped)
	}()
	return nil
}

func (q *Queue) run(ctx context.Context, job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			q.logger.Error(messages.MsgJobPanicked, "job", job.Label, "panic", r)
			err = fmt.Errorf("job %s panicked: %v", job.Label, r)
		}
	}()

	if err = job.Run(ctx); err != nil {
		q.logger.Error(messages.MsgJobFailed, "job", job.Label, "error", err)
	}
	return err
}

// Submit enqueues job, blocking while the queue is full.
func (q *Queue) Submit(job Job) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}
	q.jobs <- job
	return nil
}

// Close stops accepting jobs and waits for queued ones to finish.
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.jobs)
	q.mu.Unlock()
	q.wg.Wait()
}

// Status reports what the worker goroutine is doing.
func (q *Queue) Status() Status {
	q.statusMu.Lock()
	defer q.statusMu.Unlock()
	return q.status
}

func (q *Queue) setStatus(s Status) {
	q.statusMu.Lock()
	q.status = s
	q.statusMu.Unlock()
}
