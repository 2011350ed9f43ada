package tasks

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/lysyi3m/blogroll/app/ingest"
)

var _ TaskSchedulerInterface = (*Scheduler)(nil)

var (
	ErrQueueFull    = errors.New("task queue is full")
	ErrCrawlPending = errors.New("a crawl is already queued")
)

const crawlTimeout = 30 * time.Minute

// Scheduler runs tasks on a single worker so crawls never overlap. The queue
// holds one pending task; triggers arriving while one is pending coalesce into it.
type Scheduler struct {
	crawler    Crawler
	interval   time.Duration
	retryDelay time.Duration
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	taskQueue  chan TaskInterface

	mu          sync.RWMutex
	lastSummary *ingest.Summary
}

// NewScheduler crawls every interval once started; a zero interval only runs triggered crawls.
func NewScheduler(crawler Crawler, interval time.Duration) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		crawler:    crawler,
		interval:   interval,
		retryDelay: time.Second,
		ctx:        ctx,
		cancel:     cancel,
		taskQueue:  make(chan TaskInterface, 1),
	}
}

func (s *Scheduler) Start() {
	s.wg.Add(1)
	go s.worker()

	if s.interval <= 0 {
		slog.Debug("Scheduled crawls disabled")
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.enqueueScheduledCrawl()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.enqueueScheduledCrawl()
			}
		}
	}()
}

// Stop cancels the running crawl, which ends after its current feed, and waits for the worker.
func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
}

func (s *Scheduler) EnqueueTask(task TaskInterface) error {
	select {
	case <-s.ctx.Done():
		return s.ctx.Err()
	default:
	}

	select {
	case s.taskQueue <- task:
		return nil
	default:
		return ErrQueueFull
	}
}

func (s *Scheduler) TriggerCrawl(trigger string) error {
	err := s.EnqueueTask(NewCrawlTask(trigger, s.crawler, s.recordSummary))
	if errors.Is(err, ErrQueueFull) {
		return ErrCrawlPending
	}
	return err
}

// LastSummary returns the summary of the most recent completed crawl, or nil.
func (s *Scheduler) LastSummary() *ingest.Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastSummary
}

func (s *Scheduler) recordSummary(summary *ingest.Summary) {
	s.mu.Lock()
	s.lastSummary = summary
	s.mu.Unlock()
}

func (s *Scheduler) enqueueScheduledCrawl() {
	if err := s.TriggerCrawl("schedule"); err != nil {
		slog.Debug("Scheduled crawl not enqueued", "error", err)
	}
}

func (s *Scheduler) worker() {
	defer s.wg.Done()

	for {
		select {
		case task := <-s.taskQueue:
			s.executeTask(task)

		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Scheduler) executeTask(task TaskInterface) {
	task.Start()

	taskCtx, cancel := context.WithTimeout(s.ctx, crawlTimeout)
	defer cancel()

	err := task.Execute(taskCtx)
	if err == nil {
		return
	}

	slog.Error("Task execution failed", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", err)

	if !task.CanRetry() {
		slog.Error("Task failed after maximum retries", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "last_error", err)
		return
	}

	task.IncrementRetryCount()
	retryDelay := task.RetryDelay(s.retryDelay)

	slog.Warn("Task retry scheduled", "type", string(task.GetType()), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "delay", retryDelay.String())

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		timer := time.NewTimer(retryDelay)
		defer timer.Stop()

		select {
		case <-s.ctx.Done():
			slog.Debug("Scheduler stopped, skipping task retry", "type", string(task.GetType()), "id", task.GetID())
		case <-timer.C:
			if retryErr := s.EnqueueTask(task); retryErr != nil {
				slog.Warn("Task retry dropped", "type", string(task.GetType()), "id", task.GetID(), "error", retryErr)
			}
		}
	}()
}
