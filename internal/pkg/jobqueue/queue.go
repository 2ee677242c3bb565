package jobqueue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/redis/go-redis/v9"

	"github.com/trevall/carfolio/internal/pkg/cache"
)

const (
	// Redis key layout
	JobKeyPrefix = "job:"
	JobQueueKey  = "job_queue"

	DefaultMaxRetries = 3
	JobTTL            = 24 * time.Hour
)

// Processor executes one job type. Returning an error requeues the job
// until its retry budget is exhausted.
type Processor func(ctx context.Context, job *Job) error

// Queue runs background jobs off a Redis list. Work here is best-effort
// auxiliary (cache pre-warming); a lost job costs latency, not data.
type Queue struct {
	client     *redis.Client
	workers    int
	processors map[JobType]Processor

	stopCh  chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool
}

// NewQueue creates a queue with the given worker count.
func NewQueue(workers int) *Queue {
	if workers <= 0 {
		workers = 2
	}
	return &Queue{
		client:     cache.GetClient(),
		workers:    workers,
		processors: make(map[JobType]Processor),
		stopCh:     make(chan struct{}),
	}
}

// RegisterProcessor binds a processor to a job type. Must happen before
// Start.
func (q *Queue) RegisterProcessor(t JobType, p Processor) {
	q.processors[t] = p
}

// Enqueue stores the job and pushes its ID onto the work list.
func (q *Queue) Enqueue(ctx context.Context, job *Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to serialize job: %w", err)
	}
	if err := q.client.Set(ctx, JobKeyPrefix+job.ID, data, JobTTL).Err(); err != nil {
		return err
	}
	return q.client.LPush(ctx, JobQueueKey, job.ID).Err()
}

// Start launches the workers.
func (q *Queue) Start() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.running {
		return
	}
	q.running = true

	log.Infof("[JobQueue] Starting %d workers", q.workers)
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(i)
	}
}

// Stop signals the workers and waits for them to drain.
func (q *Queue) Stop() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.running {
		return
	}
	log.Info("[JobQueue] Stopping workers...")
	close(q.stopCh)
	q.running = false
	q.wg.Wait()
	log.Info("[JobQueue] All workers stopped")
}

func (q *Queue) worker(id int) {
	defer q.wg.Done()
	ctx := context.Background()

	for {
		select {
		case <-q.stopCh:
			return
		default:
		}

		// Blocking pop with a timeout so the stop signal is observed.
		res, err := q.client.BRPop(ctx, 2*time.Second, JobQueueKey).Result()
		if err != nil {
			if err != redis.Nil {
				log.Errorf("[JobQueue] worker %d: pop failed: %v", id, err)
				time.Sleep(time.Second)
			}
			continue
		}

		q.process(ctx, res[1])
	}
}

func (q *Queue) process(ctx context.Context, jobID string) {
	jobKey := JobKeyPrefix + jobID
	data, err := q.client.Get(ctx, jobKey).Result()
	if err != nil {
		log.Errorf("[JobQueue] job %s vanished before processing: %v", jobID, err)
		return
	}

	var job Job
	if err := json.Unmarshal([]byte(data), &job); err != nil {
		log.Errorf("[JobQueue] job %s is unreadable: %v", jobID, err)
		return
	}

	processor, ok := q.processors[job.Type]
	if !ok {
		log.Errorf("[JobQueue] no processor for job type %s", job.Type)
		return
	}

	job.markProcessing()
	q.save(ctx, &job)

	if err := processor(ctx, &job); err != nil {
		job.markFailed(err)
		q.save(ctx, &job)
		if job.IsRetryable() {
			log.Warnf("[JobQueue] job %s failed (attempt %d/%d), requeueing: %v",
				job.ID, job.Retries, job.MaxRetries, err)
			q.client.LPush(ctx, JobQueueKey, job.ID)
		} else {
			log.Errorf("[JobQueue] job %s failed permanently: %v", job.ID, err)
		}
		return
	}

	job.markCompleted()
	q.save(ctx, &job)
}

func (q *Queue) save(ctx context.Context, job *Job) {
	data, err := json.Marshal(job)
	if err != nil {
		return
	}
	q.client.Set(ctx, JobKeyPrefix+job.ID, data, JobTTL)
}
