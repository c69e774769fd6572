// Package background runs deferred work after a conversational reply has
// already been returned. One queue, one fixed worker pool. Jobs carry a key;
// jobs with the same key land on the same worker, so deferred writes for one
// record never race each other.
package background

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/studyhall-ai/orchestrator/internal/metrics"
)

// Job is one unit of deferred work. Key selects the worker; jobs sharing a
// key run in submission order.
type Job struct {
	Key  string
	Name string
	Run  func(ctx context.Context) error
}

// Spawner owns the worker pool. Spawn never blocks the caller: if the
// selected worker's queue is full the job is dropped and logged.
type Spawner struct {
	queues  []chan Job
	wg      sync.WaitGroup
	timeout time.Duration
	logger  *zap.Logger

	mu     sync.Mutex
	closed bool
}

// NewSpawner starts workers goroutines, each with its own buffered queue of
// queueSize jobs. jobTimeout bounds a single job's execution.
func NewSpawner(workers, queueSize int, jobTimeout time.Duration, logger *zap.Logger) *Spawner {
	if workers <= 0 {
		workers = 4
	}
	if queueSize <= 0 {
		queueSize = 64
	}
	if jobTimeout <= 0 {
		jobTimeout = 2 * time.Minute
	}

	s := &Spawner{
		queues:  make([]chan Job, workers),
		timeout: jobTimeout,
		logger:  logger,
	}
	for i := range s.queues {
		s.queues[i] = make(chan Job, queueSize)
		s.wg.Add(1)
		go s.worker(i)
	}
	return s
}

// Spawn enqueues a job and returns immediately. It reports false if the job
// was dropped because the spawner is closed or the worker's queue is full.
func (s *Spawner) Spawn(job Job) bool {
	if job.Run == nil {
		return false
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		s.logger.Warn("Background job rejected after shutdown",
			zap.String("job", job.Name))
		metrics.BackgroundJobsDropped.Inc()
		return false
	}
	queue := s.queues[s.workerFor(job.Key)]
	select {
	case queue <- job:
		s.mu.Unlock()
		metrics.BackgroundJobsQueued.Inc()
		metrics.BackgroundQueueDepth.Inc()
		return true
	default:
		s.mu.Unlock()
		s.logger.Error("Background queue saturated, dropping job",
			zap.String("job", job.Name),
			zap.String("key", job.Key))
		metrics.BackgroundJobsDropped.Inc()
		return false
	}
}

// Close stops intake and waits for queued jobs to finish.
func (s *Spawner) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	for _, q := range s.queues {
		close(q)
	}
	s.wg.Wait()
}

func (s *Spawner) workerFor(key string) int {
	h := fnv.New32a()
	h.Write([]byte(key))
	return int(h.Sum32() % uint32(len(s.queues)))
}

func (s *Spawner) worker(id int) {
	defer s.wg.Done()
	for job := range s.queues[id] {
		metrics.BackgroundQueueDepth.Dec()
		s.runOne(id, job)
	}
}

func (s *Spawner) runOne(worker int, job Job) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Background job panicked",
				zap.String("job", job.Name),
				zap.String("key", job.Key),
				zap.Any("panic", r))
			metrics.BackgroundJobsCompleted.WithLabelValues("panic").Inc()
		}
	}()

	if err := job.Run(ctx); err != nil {
		s.logger.Error("Background job failed",
			zap.String("job", job.Name),
			zap.String("key", job.Key),
			zap.Int("worker", worker),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		metrics.BackgroundJobsCompleted.WithLabelValues("error").Inc()
		return
	}

	s.logger.Debug("Background job completed",
		zap.String("job", job.Name),
		zap.String("key", job.Key),
		zap.Duration("elapsed", time.Since(start)))
	metrics.BackgroundJobsCompleted.WithLabelValues("ok").Inc()
}
