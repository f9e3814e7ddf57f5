package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"FinScout/pkg/clock"
	"FinScout/pkg/logger"
)

const deadLetterCap = 100

// MemoryQueue is an in-process worker pool backed by a bounded channel.
type MemoryQueue struct {
	logger    *logger.Logger
	config    *QueueConfig
	clk       clock.Clock
	jobs      map[string]Job
	ch        chan Message
	wg        sync.WaitGroup
	mu        sync.RWMutex
	isRunning bool
	dead      []Message
	ctx       context.Context
	cancel    context.CancelFunc
}

var _ QueueService = (*MemoryQueue)(nil)

// NewMemoryQueue creates a new in-memory queue.
func NewMemoryQueue(lgr *logger.Logger, config *QueueConfig, clk clock.Clock) *MemoryQueue {
	if config == nil {
		config = &QueueConfig{}
	}
	if config.Workers <= 0 {
		config.Workers = 1
	}
	if config.QueueSize <= 0 {
		config.QueueSize = 64
	}
	if config.RetryDelay <= 0 {
		config.RetryDelay = 10 * time.Second
	}
	if clk == nil {
		clk = clock.System{}
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &MemoryQueue{
		logger: lgr,
		config: config,
		clk:    clk,
		jobs:   make(map[string]Job),
		ch:     make(chan Message, config.QueueSize),
		ctx:    ctx,
		cancel: cancel,
	}
}

// RegisterJobs registers multiple jobs.
func (q *MemoryQueue) RegisterJobs(jobs []Job) {
	for _, job := range jobs {
		q.RegisterJob(job)
	}
}

// RegisterJob registers a single job.
func (q *MemoryQueue) RegisterJob(job Job) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, exists := q.jobs[job.Type()]; exists {
		q.logger.Warn("job already registered", logger.String("job", job.Name()))
		return
	}

	q.jobs[job.Type()] = job
	q.logger.Info("job registered",
		logger.String("job", job.Name()),
		logger.String("type", job.Type()))
}

// Start starts the queue workers.
func (q *MemoryQueue) Start() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.isRunning {
		return fmt.Errorf("queue already running")
	}
	q.isRunning = true

	for i := 0; i < q.config.Workers; i++ {
		q.wg.Add(1)
		go q.worker(i)
	}

	q.logger.Info("queue started",
		logger.Int("workers", q.config.Workers),
		logger.Int("size", q.config.QueueSize))
	return nil
}

// Stop gracefully stops the queue.
func (q *MemoryQueue) Stop(ctx context.Context) error {
	q.mu.Lock()
	if !q.isRunning {
		q.mu.Unlock()
		return nil
	}
	q.isRunning = false
	q.mu.Unlock()

	q.logger.Info("stopping queue...")
	q.cancel()

	doneCh := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(doneCh)
	}()

	select {
	case <-ctx.Done():
		q.logger.Warn("timeout waiting for queue workers", logger.Error(ctx.Err()))
		return fmt.Errorf("timeout: %w", ctx.Err())
	case <-doneCh:
		q.logger.Info("queue stopped gracefully")
		return nil
	}
}

// Enqueue adds a message to the queue.
func (q *MemoryQueue) Enqueue(ctx context.Context, msgType string, payload interface{}) error {
	q.mu.RLock()
	running := q.isRunning
	_, exists := q.jobs[msgType]
	q.mu.RUnlock()

	if !running {
		return fmt.Errorf("queue not running")
	}
	if !exists {
		return fmt.Errorf("no job registered for type: %s", msgType)
	}

	msg := Message{
		ID:        fmt.Sprintf("%d", q.clk.Now().UnixNano()),
		Type:      msgType,
		Payload:   payload,
		Timestamp: q.clk.Now(),
		Attempts:  0,
	}

	select {
	case q.ch <- msg:
		return nil
	default:
		return fmt.Errorf("queue full")
	}
}

// PublishMessage publishes a message (implements QueueService).
func (q *MemoryQueue) PublishMessage(ctx context.Context, msgType string, payload interface{}) error {
	return q.Enqueue(ctx, msgType, payload)
}

// Depth returns the number of pending messages.
func (q *MemoryQueue) Depth() int {
	return len(q.ch)
}

// DeadLetters returns messages that exhausted their retries.
func (q *MemoryQueue) DeadLetters() []Message {
	q.mu.RLock()
	defer q.mu.RUnlock()
	out := make([]Message, len(q.dead))
	copy(out, q.dead)
	return out
}

func (q *MemoryQueue) worker(id int) {
	defer q.wg.Done()
	q.logger.Info("queue worker started", logger.Int("worker_id", id))

	for {
		select {
		case <-q.ctx.Done():
			q.logger.Info("queue worker stopping", logger.Int("worker_id", id))
			return
		case msg := <-q.ch:
			q.processMessage(msg)
		}
	}
}

func (q *MemoryQueue) processMessage(msg Message) {
	q.mu.RLock()
	job, exists := q.jobs[msg.Type]
	q.mu.RUnlock()
	if !exists {
		q.logger.Error("no job found",
			logger.String("type", msg.Type),
			logger.String("id", msg.ID))
		return
	}

	payload := q.convertPayload(msg.Payload)
	start := q.clk.Now()
	err := job.Handle(q.ctx, payload)
	elapsed := q.clk.Now().Sub(start)

	if err != nil {
		if errors.Is(err, context.Canceled) {
			q.logger.Warn("message cancelled",
				logger.String("id", msg.ID),
				logger.String("job", job.Name()),
				logger.Int64("elapsed_ms", elapsed.Milliseconds()))
			return
		}
		q.handleProcessingError(msg, job, err)
	}
}

func (q *MemoryQueue) convertPayload(payload interface{}) interface{} {
	payloadMap, ok := payload.(map[string]interface{})
	if !ok {
		return payload
	}

	jsonBytes, err := json.Marshal(payloadMap)
	if err != nil {
		q.logger.Error("convert payload", logger.Error(err))
		return payload
	}

	return json.RawMessage(jsonBytes)
}

func (q *MemoryQueue) handleProcessingError(msg Message, job Job, err error) {
	q.logger.Error("message processing error",
		logger.String("id", msg.ID),
		logger.String("job", job.Name()),
		logger.Int("attempt", msg.Attempts+1),
		logger.Error(err))

	if msg.Attempts >= q.config.RetryLimit {
		q.logger.Error("max retries reached",
			logger.String("id", msg.ID),
			logger.String("job", job.Name()))
		q.moveToDeadLetters(msg)
		return
	}

	msg.Attempts++
	q.wg.Add(1)
	go q.scheduleRetry(msg)
}

func (q *MemoryQueue) scheduleRetry(msg Message) {
	defer q.wg.Done()

	if err := q.clk.Sleep(q.ctx, q.config.RetryDelay); err != nil {
		return
	}

	select {
	case q.ch <- msg:
		q.logger.Info("message retried",
			logger.String("id", msg.ID),
			logger.Int("attempt", msg.Attempts))
	default:
		q.logger.Error("retry dropped, queue full", logger.String("id", msg.ID))
		q.moveToDeadLetters(msg)
	}
}

func (q *MemoryQueue) moveToDeadLetters(msg Message) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.dead) >= deadLetterCap {
		q.dead = q.dead[1:]
	}
	q.dead = append(q.dead, msg)
}
