package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/GPTx-global/flightsurety/oracle/log"
	"github.com/GPTx-global/flightsurety/oracle/metrics"
)

var ErrStopped = errors.New("job manager stopped")

// Job is a unit of work run on the pool. The context is the pool's context
// and is cancelled on shutdown.
type Job struct {
	Name string
	Run  func(ctx context.Context)
}

type JobManager struct {
	jobQueue chan Job
	quit     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	active   atomic.Int64
}

// NewJobManager creates a job manager with a bounded queue of queueSize.
func NewJobManager(queueSize int) *JobManager {
	if queueSize <= 0 {
		queueSize = 1
	}

	return &JobManager{
		jobQueue: make(chan Job, queueSize),
		quit:     make(chan struct{}),
	}
}

// Start launches n worker goroutines.
func (jm *JobManager) Start(ctx context.Context, n int) {
	if n <= 0 {
		n = 1
	}
	for i := 0; i < n; i++ {
		jm.wg.Add(1)
		go jm.worker(ctx)
	}
	log.Debugf("job manager started with %d workers", n)
}

// Stop shuts down all workers and waits for running jobs to return.
// Queued jobs that have not started are discarded.
func (jm *JobManager) Stop() {
	jm.stopOnce.Do(func() { close(jm.quit) })
	jm.wg.Wait()
}

// SubmitJob queues job without blocking, drops it if the queue is full.
func (jm *JobManager) SubmitJob(job Job) bool {
	select {
	case <-jm.quit:
		return false
	default:
	}

	select {
	case jm.jobQueue <- job:
		metrics.JobsQueued.Set(float64(len(jm.jobQueue)))
		return true
	default:
		log.Errorf("job queue is full, drop job %s", job.Name)
		metrics.JobsDropped.Inc()
		return false
	}
}

// Dispatch queues job, waiting for room in the queue.
func (jm *JobManager) Dispatch(ctx context.Context, job Job) error {
	select {
	case <-jm.quit:
		return ErrStopped
	default:
	}

	select {
	case jm.jobQueue <- job:
		metrics.JobsQueued.Set(float64(len(jm.jobQueue)))
		return nil
	case <-jm.quit:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Active is the number of jobs currently running.
func (jm *JobManager) Active() int64 {
	return jm.active.Load()
}

func (jm *JobManager) worker(ctx context.Context) {
	defer jm.wg.Done()

	for {
		select {
		case job := <-jm.jobQueue:
			metrics.JobsQueued.Set(float64(len(jm.jobQueue)))
			jm.run(ctx, job)
		case <-jm.quit:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (jm *JobManager) run(ctx context.Context, job Job) {
	jm.active.Add(1)
	defer jm.active.Add(-1)

	defer func() {
		if r := recover(); r != nil {
			log.Errorf("job %s panicked: %v", job.Name, r)
		}
	}()

	job.Run(ctx)
}
