package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"courseos-backend/internal/logger"
	"courseos-backend/internal/models"
)

const (
	GenerationQueue = "queue:course-generation"

	popTimeout = 30 * time.Second
	lockTTL    = 10 * time.Minute
)

// Queue pushes generation jobs onto the Redis list the pool consumes.
type Queue struct {
	redis *redis.Client
}

func NewQueue(client *redis.Client) *Queue {
	return &Queue{redis: client}
}

func (q *Queue) Push(ctx context.Context, job *models.GenerationJob) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to encode job: %w", err)
	}
	if err := q.redis.RPush(ctx, GenerationQueue, data).Err(); err != nil {
		return fmt.Errorf("failed to queue job: %w", err)
	}
	return nil
}

type processor interface {
	Process(ctx context.Context, job *models.GenerationJob) (*models.GeneratedCourseView, error)
	Abandon(ctx context.Context, job *models.GenerationJob, err error)
}

// Pool runs queued generation jobs. Jobs are not retried: a failed run leaves
// the creator in the failed state until they reset or try again.
type Pool struct {
	redis       *redis.Client
	proc        processor
	workerCount int
	log         *logger.Logger
}

func NewPool(client *redis.Client, proc processor, workerCount int, log *logger.Logger) *Pool {
	if workerCount <= 0 {
		workerCount = 1
	}
	return &Pool{
		redis:       client,
		proc:        proc,
		workerCount: workerCount,
		log:         log.With("component", "worker"),
	}
}

// Run blocks until ctx is cancelled and every worker has returned.
func (p *Pool) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < p.workerCount; i++ {
		id := i
		g.Go(func() error {
			p.worker(ctx, id)
			return nil
		})
	}
	p.log.Info("started workers", "count", p.workerCount)
	return g.Wait()
}

func (p *Pool) worker(ctx context.Context, id int) {
	for {
		if ctx.Err() != nil {
			p.log.Info("worker shutting down", "worker", id)
			return
		}

		result, err := p.redis.BLPop(ctx, popTimeout, GenerationQueue).Result()
		if err != nil {
			if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
				p.log.Warn("queue pop failed", "worker", id, "error", err)
				sleep(ctx, time.Second)
			}
			continue
		}
		if len(result) < 2 {
			continue
		}

		var job models.GenerationJob
		if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
			p.log.Error("failed to parse job", "worker", id, "error", err)
			continue
		}

		p.handle(ctx, id, &job)
	}
}

func (p *Pool) handle(ctx context.Context, id int, job *models.GenerationJob) {
	lockKey := "job_lock:" + job.ID.String()
	locked, err := p.redis.SetNX(ctx, lockKey, "1", lockTTL).Result()
	if err != nil {
		// The job is already off the queue; fail it rather than leave the
		// creator generating.
		p.log.Error("failed to lock job", "worker", id, "job_id", job.ID, "error", err)
		p.proc.Abandon(ctx, job, err)
		return
	}
	if !locked {
		p.log.Debug("job already locked", "worker", id, "job_id", job.ID)
		return
	}
	defer p.redis.Del(context.Background(), lockKey)

	p.log.Info("processing job", "worker", id, "job_id", job.ID, "creator_id", job.CreatorID)

	view, err := p.proc.Process(ctx, job)
	if err != nil {
		p.log.Warn("job failed", "job_id", job.ID, "error", err)
		return
	}
	p.log.Info("job completed", "job_id", job.ID, "course_id", view.CourseID, "wait", time.Since(job.QueuedAt).String())
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
