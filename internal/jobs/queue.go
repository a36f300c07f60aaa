package jobs

import (
	"context"
	"errors"
	"sync"

	"nexusai-api/internal/logging"
)

// ErrQueueFull is returned when the job queue cannot accept more work.
var ErrQueueFull = errors.New("job queue is full")

// Runner executes one job to completion.
type Runner interface {
	Run(ctx context.Context, req *Request)
}

// Queue is a fixed-size worker pool for generation jobs. Enqueue never
// blocks: a full queue is reported to the caller immediately instead of
// stalling the HTTP handler.
type Queue struct {
	tasks  chan *Request
	runner Runner

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

func NewQueue(runner Runner, workers, size int) *Queue {
	if workers < 1 {
		workers = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	q := &Queue{
		tasks:  make(chan *Request, size),
		runner: runner,
		cancel: cancel,
	}

	q.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go q.worker(ctx, i)
	}
	return q
}

func (q *Queue) worker(ctx context.Context, id int) {
	defer q.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case req, ok := <-q.tasks:
			if !ok {
				return
			}
			logging.S().Infow("worker picked up job", "worker", id, "job_id", req.JobID)
			q.runner.Run(ctx, req)
		}
	}
}

// Enqueue submits a job for background execution.
func (q *Queue) Enqueue(req *Request) error {
	select {
	case q.tasks <- req:
		return nil
	default:
		return ErrQueueFull
	}
}

// Shutdown stops the workers. Jobs already running are cancelled through
// their context; queued jobs are dropped. Job records for dropped work stay
// pending until their TTL expires.
func (q *Queue) Shutdown() {
	q.cancel()
	q.wg.Wait()
}
