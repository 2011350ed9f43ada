package tasks

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"
)

type TaskType string

const (
	TaskTypeCrawl TaskType = "crawl"
)

const (
	DefaultMaxRetries = 3
	maxRetryDelay     = 30 * time.Second
)

var taskSeq atomic.Uint64

type TaskInterface interface {
	Execute(ctx context.Context) error
	GetID() string
	GetType() TaskType
	GetRetryCount() int
	GetMaxRetries() int
	IncrementRetryCount()
	CanRetry() bool
	RetryDelay(base time.Duration) time.Duration
	Start()
	GetDuration() time.Duration
}

// Task carries the bookkeeping shared by every task type.
type Task struct {
	ID         string
	Type       TaskType
	RetryCount int
	MaxRetries int
	EnqueuedAt time.Time
	StartedAt  *time.Time
}

func NewTask(taskType TaskType) Task {
	return Task{
		ID:         fmt.Sprintf("%s-%d", taskType, taskSeq.Add(1)),
		Type:       taskType,
		MaxRetries: DefaultMaxRetries,
		EnqueuedAt: time.Now(),
	}
}

func (t *Task) GetID() string        { return t.ID }
func (t *Task) GetType() TaskType    { return t.Type }
func (t *Task) GetRetryCount() int   { return t.RetryCount }
func (t *Task) GetMaxRetries() int   { return t.MaxRetries }
func (t *Task) IncrementRetryCount() { t.RetryCount++ }

func (t *Task) CanRetry() bool {
	return t.RetryCount < t.MaxRetries
}

// RetryDelay doubles base for every retry already taken, capped at 30s.
func (t *Task) RetryDelay(base time.Duration) time.Duration {
	delay := base
	for i := 1; i < t.RetryCount && delay < maxRetryDelay; i++ {
		delay *= 2
	}
	return min(delay, maxRetryDelay)
}

// Start stamps the current attempt; GetDuration measures from the latest attempt.
func (t *Task) Start() {
	now := time.Now()
	t.StartedAt = &now
}

func (t *Task) GetDuration() time.Duration {
	if t.StartedAt == nil {
		return 0
	}
	return time.Since(*t.StartedAt)
}
